package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/timmy/insights/internal/config"
	"github.com/timmy/insights/internal/domain"
	"github.com/timmy/insights/internal/logger"
	"github.com/timmy/insights/internal/repository"
	"github.com/timmy/insights/internal/source"
	"github.com/timmy/insights/internal/source/manifest"
)

func main() {
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "insights-seed",
	})
	logger.SetDefaultLogger(appLogger)

	sourceType := flag.String("source", "builtin", "Data source to seed from (builtin, manifest)")
	manifestPath := flag.String("manifest", "", "Manifest path, defaults to datasets.manifest_path")
	exportPath := flag.String("export", "", "Write the stored datasets to this manifest instead of seeding")
	showID := flag.String("show", "", "Print the stored dataset with this id instead of seeding")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}
	datasetRepo := repository.NewDatasetRepository(db)

	if *exportPath != "" {
		if err := export(ctx, datasetRepo, *exportPath); err != nil {
			appLogger.WithError(err).Fatal("Export failed")
		}
		return
	}
	if *showID != "" {
		if err := show(ctx, datasetRepo, *showID); err != nil {
			appLogger.WithError(err).Fatal("Lookup failed")
		}
		return
	}

	var src source.Source
	switch *sourceType {
	case "builtin":
		src = source.NewBuiltin(0)
	case "manifest":
		path := *manifestPath
		if path == "" {
			path = cfg.Datasets.ManifestPath
		}
		src = manifest.NewAdapter(path)
	default:
		appLogger.WithField("source", *sourceType).Fatal("Unknown source type")
	}

	appLogger.WithFields(logger.Fields{
		logger.FieldSource: src.GetSourceID(),
		"name":             src.GetDisplayName(),
	}).Info("Starting seed")

	datasets, err := src.FetchAll(ctx)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to read source")
	}

	previous, err := datasetRepo.Count(ctx)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to count stored datasets")
	}

	runRepo := repository.NewSeedRunRepository(db)
	run, err := runRepo.Start(ctx, src.GetSourceID(), len(datasets))
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to record seed run")
	}

	written := 0
	seedErr := validate(datasets)
	if seedErr == nil {
		seedErr = datasetRepo.ReplaceAll(ctx, datasets)
	}
	if seedErr == nil {
		written = len(datasets)
	}
	if err := runRepo.Finish(context.WithoutCancel(ctx), run, written, seedErr); err != nil {
		appLogger.WithError(err).Error("Failed to finish seed run")
	}
	if seedErr != nil {
		appLogger.WithError(seedErr).Fatal("Seed failed")
	}

	appLogger.WithFields(logger.Fields{
		"run_id":          run.ID,
		"replaced":        previous,
		logger.FieldCount: written,
	}).Info("Seed completed")
}

func validate(datasets []domain.Dataset) error {
	seen := make(map[string]struct{}, len(datasets))
	for _, ds := range datasets {
		if err := ds.Validate(); err != nil {
			return err
		}
		if _, dup := seen[ds.ID]; dup {
			return fmt.Errorf("duplicate dataset id %q", ds.ID)
		}
		seen[ds.ID] = struct{}{}
	}
	return nil
}

func show(ctx context.Context, repo *repository.DatasetRepository, id string) error {
	ds, err := repo.GetByID(ctx, id)
	if repository.IsNotFound(err) {
		logger.With(logger.Fields{logger.FieldDatasetID: id}).Warn(ctx, "Dataset not found")
		return nil
	}
	if err != nil {
		return err
	}
	return manifest.Write(os.Stdout, []domain.Dataset{*ds})
}

func export(ctx context.Context, repo *repository.DatasetRepository, path string) error {
	datasets, err := repo.FetchAll(ctx)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := manifest.Write(f, datasets); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	logger.With(logger.Fields{"path": path}).WithCount(len(datasets)).Info(ctx, "Datasets exported")
	return nil
}
