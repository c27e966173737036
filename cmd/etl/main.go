package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/geomag-sv-etl/internal/adapter/csvout"
	"github.com/couchcryptid/geomag-sv-etl/internal/adapter/filesystem"
	httpadapter "github.com/couchcryptid/geomag-sv-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/geomag-sv-etl/internal/adapter/kafka"
	"github.com/couchcryptid/geomag-sv-etl/internal/adapter/objectstore"
	"github.com/couchcryptid/geomag-sv-etl/internal/adapter/parquetout"
	"github.com/couchcryptid/geomag-sv-etl/internal/config"
	"github.com/couchcryptid/geomag-sv-etl/internal/domain"
	"github.com/couchcryptid/geomag-sv-etl/internal/observability"
	"github.com/couchcryptid/geomag-sv-etl/internal/pipeline"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	jumps, err := filesystem.LoadBaselineJumps(cfg.BaselineFile)
	if err != nil {
		logger.Error("failed to load baseline jumps", "file", cfg.BaselineFile, "error", err)
		os.Exit(1)
	}
	if len(jumps) > 0 {
		logger.Info("baseline jumps loaded", "file", cfg.BaselineFile, "count", len(jumps))
	}

	exclusions, err := filesystem.LoadExclusions(cfg.ExcludeFile)
	if err != nil {
		logger.Error("failed to load exclusions", "file", cfg.ExcludeFile, "error", err)
		os.Exit(1)
	}
	var activity *domain.ActivityFilter
	if cfg.APFile != "" {
		index, err := filesystem.LoadActivityIndex(cfg.APFile)
		if err != nil {
			logger.Error("failed to load activity index", "file", cfg.APFile, "error", err)
			os.Exit(1)
		}
		activity = &domain.ActivityFilter{Index: index, Threshold: cfg.APThreshold}
		logger.Info("activity filter enabled", "file", cfg.APFile, "days", len(index), "threshold", cfg.APThreshold)
	}

	var loaders []pipeline.Loader
	if cfg.WritesCSV() {
		loaders = append(loaders, csvout.NewWriter(cfg.OutputDir, logger))
	}
	if cfg.WritesParquet() {
		loaders = append(loaders, parquetout.NewWriter(cfg.OutputDir, logger))
	}
	if cfg.UploadEnabled() {
		uploader, err := objectstore.NewUploader(context.Background(), cfg, logger)
		if err != nil {
			logger.Error("failed to create s3 uploader", "error", err)
			os.Exit(1)
		}
		loaders = append(loaders, uploader)
		logger.Info("s3 upload enabled", "bucket", cfg.S3Bucket, "prefix", cfg.S3Prefix)
	}
	var writer *kafkaadapter.Writer
	if cfg.PublishEnabled() {
		writer = kafkaadapter.NewWriter(cfg, logger, metrics)
		loaders = append(loaders, writer)
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaSinkTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("kafka publishing disabled")
	}

	opts := pipeline.DefaultOptions()
	opts.Workers = cfg.Workers
	opts.Products = domain.ProductOptions{
		Periods:    cfg.Periods,
		SVSpacing:  cfg.SVSpacing,
		Jumps:      jumps,
		Activity:   activity,
		Exclusions: exclusions,
	}

	source := filesystem.NewSource(cfg.InputDir, logger)
	transformer := pipeline.NewTransformer(cfg.AggregateOptions(), cfg.DateErrorPolicy, logger)
	p := pipeline.New(source, transformer, loaders, logger, metrics, opts)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start ETL pipeline. A single run ends the process once it completes.
	failed := make(chan bool, 1)
	go func() {
		if cfg.RunInterval > 0 {
			failed <- p.RunEvery(ctx, cfg.RunInterval) != nil
			return
		}
		summary, err := p.Run(ctx)
		if err != nil {
			logger.Error("pipeline error", "error", err)
		}
		if summary.FilesFailed > 0 {
			logger.Warn("some files failed", "failed", summary.FilesFailed, "total", summary.FilesTotal)
		}
		failed <- err != nil
		stop()
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	var exitCode int
	select {
	case f := <-failed:
		if f {
			exitCode = 1
		}
	case <-shutdownCtx.Done():
		logger.Error("pipeline did not stop before shutdown timeout")
		exitCode = 1
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
	if exitCode != 0 {
		cancel()
		os.Exit(exitCode)
	}
}
