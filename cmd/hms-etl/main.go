package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/hms-wildfire-etl/internal/adapter/archive"
	"github.com/couchcryptid/hms-wildfire-etl/internal/adapter/filesink"
	httpadapter "github.com/couchcryptid/hms-wildfire-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/hms-wildfire-etl/internal/adapter/kafka"
	"github.com/couchcryptid/hms-wildfire-etl/internal/config"
	"github.com/couchcryptid/hms-wildfire-etl/internal/domain"
	"github.com/couchcryptid/hms-wildfire-etl/internal/hms"
	"github.com/couchcryptid/hms-wildfire-etl/internal/observability"
	"github.com/couchcryptid/hms-wildfire-etl/internal/pipeline"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source := archive.NewCachedSource(
		archive.NewResolver(archive.LocalSource{}, archive.NewRemoteSource(cfg.FetchTimeout, logger)),
		cfg.ArchiveCacheSize,
		metrics,
	)
	fetcher := archive.NewFetcher(source, archive.Options{
		TempDir:           cfg.TempDir,
		DefaultSourceCRS:  domain.CRS(cfg.DefaultSourceCRS),
		MaxExtractedBytes: int64(cfg.MaxExtractMB) << 20,
	}, logger, metrics)

	handler, err := hms.NewHandler(ctx, hms.Options{
		StartDate:    cfg.StartDate,
		Span:         cfg.Span(),
		SmokeBaseURL: cfg.SmokeBaseURL,
		FireBaseURL:  cfg.FireBaseURL,
		BoundaryURL:  cfg.BoundaryURL,
		Concurrency:  cfg.FetchConcurrency,
		AllOrNothing: cfg.FetchAllOrNothing,
	}, fetcher, logger, metrics)
	if err != nil {
		logger.Error("failed to initialize handler", "error", err)
		os.Exit(1)
	}

	// Without a configured start date the window follows the wall clock.
	var src pipeline.Source = handler
	if cfg.StartDate.IsZero() {
		src = hms.Rolling(handler, clockwork.NewRealClock())
		logger.Info("rolling date window", "days", len(handler.Dates()))
	} else {
		logger.Info("fixed date window", "start", cfg.StartDate.Format(domain.DateLayout), "days", len(handler.Dates()))
	}

	store := httpadapter.NewRecordStore()
	loaders := []pipeline.Loader{store}

	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		loaders = append(loaders, writer)
		logger.Info("kafka sink enabled", "brokers", cfg.KafkaBrokers, "smoke_topic", cfg.KafkaSmokeTopic, "fire_topic", cfg.KafkaFireTopic)
	} else {
		logger.Info("kafka sink disabled")
	}
	if cfg.OutputDir != "" {
		loaders = append(loaders, filesink.NewWriter(cfg.OutputDir, logger))
		logger.Info("file sink enabled", "dir", cfg.OutputDir)
	}

	p := pipeline.New(src, loaders, logger, metrics, cfg.PollInterval)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, store, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// A zero poll interval runs one cycle and then shuts down.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	select {
	case <-ctx.Done():
	case <-done:
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
