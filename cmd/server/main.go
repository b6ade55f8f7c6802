// Command server runs the threatsmith API: the threat-modeling record
// keeper and its merge engine.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	appservice "github.com/threatsmith/threatsmith/internal/application/service"
	domainservice "github.com/threatsmith/threatsmith/internal/domain/service"

	"github.com/threatsmith/threatsmith/internal/config"
	"github.com/threatsmith/threatsmith/internal/infrastructure/audit"
	"github.com/threatsmith/threatsmith/internal/infrastructure/monitoring"
	"github.com/threatsmith/threatsmith/internal/infrastructure/persistence/postgres"
	redisinfra "github.com/threatsmith/threatsmith/internal/infrastructure/persistence/redis"
	"github.com/threatsmith/threatsmith/internal/infrastructure/scanner"
	"github.com/threatsmith/threatsmith/internal/interfaces/http/handlers"
	"github.com/threatsmith/threatsmith/internal/interfaces/http/router"
	"github.com/threatsmith/threatsmith/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	appLogger, err := monitoring.NewZapLogger(&cfg.Log)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLogger); err != nil {
		appLogger.Fatal(ctx, "Server exited with error", err)
	}
}

func run(ctx context.Context, cfg *config.Config, appLogger logger.Logger) error {
	shutdownTracing, err := monitoring.InitTracer(&cfg.Tracing, appLogger)
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	db, err := postgres.NewDBConnection(ctx, &cfg.Database, appLogger)
	if err != nil {
		return err
	}
	redisClient, err := redisinfra.NewRedisClient(ctx, &cfg.Redis, appLogger)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	metrics := monitoring.NewMetrics()

	// Repositories and stores.
	threatModelRepo := postgres.NewThreatModelRepository(db, appLogger)
	threatRepo := postgres.NewThreatRepository(db, appLogger)
	safeguardRepo := postgres.NewSafeguardRepository(db, appLogger)
	projectRepo := postgres.NewProjectRepository(db, appLogger)
	vulnRepo := postgres.NewVulnerabilityRepository(db, appLogger)
	settingRepo := postgres.NewSettingRepository(db)
	txManager := postgres.NewTxManager(db, appLogger)
	docStore := redisinfra.NewDocumentStore(redisClient, appLogger)

	// Domain services.
	extractor := domainservice.NewThreatExtractor()
	matcher := domainservice.NewSimilarityMatcher()
	scorer := domainservice.NewKeywordRiskScorer()

	var publisher audit.Publisher = audit.NoopPublisher{}
	if cfg.Kafka.Enabled {
		kafkaPublisher := audit.NewKafkaPublisher(&cfg.Kafka, appLogger)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	}

	// Application services.
	mergeService := appservice.NewMergeAppService(
		txManager, threatModelRepo, threatRepo, safeguardRepo, docStore,
		extractor, matcher, scorer, publisher, metrics, appLogger,
	)
	modelService := appservice.NewModelAppService(threatModelRepo, threatRepo, safeguardRepo, projectRepo, appLogger)
	projectService := appservice.NewProjectAppService(projectRepo, vulnRepo, appLogger)
	documentService := appservice.NewDocumentAppService(docStore, extractor, appLogger)
	settingsService := appservice.NewSettingsAppService(settingRepo, appLogger)

	engine := router.New(&cfg.Server, appLogger, router.Handlers{
		Health:    handlers.NewHealthHandler(db, redisClient),
		Projects:  handlers.NewProjectHandler(projectService),
		Models:    handlers.NewModelHandler(modelService),
		Documents: handlers.NewDocumentHandler(documentService),
		Merge:     handlers.NewMergeHandler(mergeService),
		Settings:  handlers.NewSettingsHandler(settingsService),
	})

	if cfg.Scanner.Enabled {
		poller := scanner.NewPoller(&cfg.Scanner, vulnRepo, metrics, appLogger)
		go func() {
			if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				appLogger.Error(ctx, "Scanner poller stopped", err)
			}
		}()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		appLogger.Info(ctx, "Server listening", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	appLogger.Info(context.Background(), "Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
