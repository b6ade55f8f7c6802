package service

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/threatsmith/threatsmith/internal/domain/models"
	"github.com/threatsmith/threatsmith/internal/domain/repository"
	apperrors "github.com/threatsmith/threatsmith/pkg/errors"
	"github.com/threatsmith/threatsmith/pkg/logger"
)

const (
	settingsCacheTTL     = 5 * time.Minute
	settingsCacheCleanup = 10 * time.Minute
)

// SettingsAppService is a read-through cache over the settings table.
// Settings change rarely and are read on hot paths, so stale reads within
// the TTL are acceptable; writes invalidate the local cache entry.
type SettingsAppService struct {
	settings repository.SettingRepository
	cache    *gocache.Cache
	log      logger.Logger
}

func NewSettingsAppService(settings repository.SettingRepository, log logger.Logger) *SettingsAppService {
	return &SettingsAppService{
		settings: settings,
		cache:    gocache.New(settingsCacheTTL, settingsCacheCleanup),
		log:      log.WithComponent("SettingsAppService"),
	}
}

// Get returns the setting for key, serving from cache when fresh.
func (s *SettingsAppService) Get(ctx context.Context, key string) (*models.Setting, error) {
	if cached, ok := s.cache.Get(key); ok {
		return cached.(*models.Setting), nil
	}
	setting, err := s.settings.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, setting, gocache.DefaultExpiration)
	return setting, nil
}

// Set stores a setting and replaces the cached entry.
func (s *SettingsAppService) Set(ctx context.Context, setting *models.Setting) error {
	if setting.Key == "" {
		return apperrors.ErrValidation("setting key is required")
	}
	if err := s.settings.Set(ctx, setting); err != nil {
		return err
	}
	s.cache.Set(setting.Key, setting, gocache.DefaultExpiration)
	return nil
}
