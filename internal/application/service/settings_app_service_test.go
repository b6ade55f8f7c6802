package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threatsmith/threatsmith/internal/domain/models"
	apperrors "github.com/threatsmith/threatsmith/pkg/errors"
	"github.com/threatsmith/threatsmith/pkg/logger"
)

// countingSettingRepo records how often the backing store is hit.
type countingSettingRepo struct {
	store map[string]*models.Setting
	gets  int
}

func (r *countingSettingRepo) Get(_ context.Context, key string) (*models.Setting, error) {
	r.gets++
	if setting, ok := r.store[key]; ok {
		return setting, nil
	}
	return nil, apperrors.ErrNotFound("setting", key)
}

func (r *countingSettingRepo) Set(_ context.Context, setting *models.Setting) error {
	r.store[setting.Key] = setting
	return nil
}

func TestSettingsGetServesFromCache(t *testing.T) {
	repo := &countingSettingRepo{store: map[string]*models.Setting{
		"merge.max_sources": {Key: "merge.max_sources", Value: "10"},
	}}
	svc := NewSettingsAppService(repo, logger.NewNoopLogger())
	ctx := context.Background()

	first, err := svc.Get(ctx, "merge.max_sources")
	require.NoError(t, err)
	assert.Equal(t, "10", first.Value)

	_, err = svc.Get(ctx, "merge.max_sources")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.gets)
}

func TestSettingsSetRefreshesCache(t *testing.T) {
	repo := &countingSettingRepo{store: map[string]*models.Setting{}}
	svc := NewSettingsAppService(repo, logger.NewNoopLogger())
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, &models.Setting{Key: "ui.theme", Value: "dark"}))

	setting, err := svc.Get(ctx, "ui.theme")
	require.NoError(t, err)
	assert.Equal(t, "dark", setting.Value)
	assert.Equal(t, 0, repo.gets)
}

func TestSettingsSetRequiresKey(t *testing.T) {
	svc := NewSettingsAppService(&countingSettingRepo{store: map[string]*models.Setting{}}, logger.NewNoopLogger())

	err := svc.Set(context.Background(), &models.Setting{Value: "x"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestSettingsGetMissing(t *testing.T) {
	svc := NewSettingsAppService(&countingSettingRepo{store: map[string]*models.Setting{}}, logger.NewNoopLogger())

	_, err := svc.Get(context.Background(), "absent")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}
