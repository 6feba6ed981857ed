package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/insights/internal/api"
	"github.com/timmy/insights/internal/config"
	"github.com/timmy/insights/internal/logger"
	"github.com/timmy/insights/internal/repository"
	"github.com/timmy/insights/internal/service"
	"github.com/timmy/insights/internal/source"
	"github.com/timmy/insights/internal/source/manifest"
	"github.com/timmy/insights/internal/storage"
	"github.com/timmy/insights/internal/store"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

func main() {
	appLogger := logger.NewDefault()
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Support CONFIG_PATH environment variable for production deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		appLogger.WithError(err).Fatal("Invalid config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	objectStorage, err := storage.NewStorage(&cfg.Storage)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize storage")
	}
	if b, ok := objectStorage.(interface{ EnsureBucket(context.Context) error }); ok {
		if err := b.EnsureBucket(ctx); err != nil {
			appLogger.WithError(err).Fatal("Failed to ensure storage bucket")
		}
	}

	var db *gorm.DB
	if cfg.Datasets.Source == "database" || cfg.Datasets.Mirror {
		db, err = repository.InitDB(&cfg.Database)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize database")
		}
	}

	fetcher, err := newFetcher(cfg, db)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize dataset source")
	}

	datasets := store.New(
		store.WithFetcher(fetcher),
		store.WithUploader(storage.NewDatasetUploader(objectStorage)),
		store.WithProcessor(service.NewQualityProcessor(cfg.Processing, objectStorage, uint64(time.Now().UnixNano()))),
		store.WithLogger(appLogger.WithField(logger.FieldComponent, "store")),
	)

	rules := service.NewRuleAssistant()
	var assistant service.Assistant = rules
	if cfg.Assistant.UsesLLM() {
		assistant = service.NewLLMAssistant(&service.LLMConfig{
			Model:   cfg.Assistant.Model,
			APIKey:  cfg.Assistant.APIKey,
			BaseURL: cfg.Assistant.BaseURL,
			Timeout: cfg.Assistant.Timeout,
		}, datasets.Snapshot)
		appLogger.WithField("model", cfg.Assistant.Model).Info("LLM assistant enabled")
	}

	router := api.SetupRouter(api.Deps{
		Store:    datasets,
		Analysis: service.NewAnalysisService(objectStorage),
		Chat:     service.NewChatService(assistant),
		Rules:    rules,
		Logger:   appLogger,
	}, cfg)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Datasets.Mirror {
		mirror := repository.NewMirror(repository.NewDatasetRepository(db))
		sub := datasets.Subscribe(mirror)
		defer sub.Cancel()
		g.Go(func() error { return mirror.Run(gctx) })
	}

	g.Go(func() error {
		appLogger.WithFields(logger.Fields{
			"port":   cfg.Server.Port,
			"mode":   cfg.Server.Mode,
			"source": cfg.Datasets.Source,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := datasets.Load(gctx); err != nil {
			// The server keeps running; clients can retry via POST /api/v1/datasets/load.
			appLogger.WithError(err).Warn("Initial dataset load failed")
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		appLogger.WithError(err).Error("Server stopped with error")
	}
	datasets.Close()
	appLogger.Info("Server exited")
}

func newFetcher(cfg *config.Config, db *gorm.DB) (store.Fetcher, error) {
	switch cfg.Datasets.Source {
	case "builtin":
		return source.NewBuiltin(500 * time.Millisecond), nil
	case "manifest":
		return manifest.NewAdapter(cfg.Datasets.ManifestPath), nil
	case "database":
		return repository.NewDatasetRepository(db), nil
	default:
		return nil, fmt.Errorf("unknown dataset source %q", cfg.Datasets.Source)
	}
}
