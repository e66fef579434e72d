package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/space-weather-forecaster/internal/adapter/clickhouse"
	httpadapter "github.com/couchcryptid/space-weather-forecaster/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/space-weather-forecaster/internal/adapter/kafka"
	"github.com/couchcryptid/space-weather-forecaster/internal/adapter/noaa"
	"github.com/couchcryptid/space-weather-forecaster/internal/config"
	"github.com/couchcryptid/space-weather-forecaster/internal/observability"
	"github.com/couchcryptid/space-weather-forecaster/internal/pipeline"
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

	var deps pipeline.Deps

	// Real-time collection (feature-flagged via COLLECTOR_ENABLED).
	if cfg.CollectorEnabled {
		deps.Collector = noaa.NewClient(noaa.Config{
			ProductsURL: cfg.NOAAProductsURL,
			JSONURL:     cfg.NOAAJSONURL,
			DonkiURL:    cfg.NASADonkiURL,
			APIKey:      cfg.NASAAPIKey,
			Timeout:     cfg.CollectorTimeout,
		}, cfg.CollectorCacheSize, logger, metrics)
		metrics.CollectorEnabled.Set(1)
		logger.Info("real-time collection enabled", "cache_size", cfg.CollectorCacheSize, "timeout", cfg.CollectorTimeout)
	} else {
		logger.Info("real-time collection disabled")
	}

	var alertWriter *kafkaadapter.AlertWriter
	if cfg.KafkaEnabled {
		alertWriter = kafkaadapter.NewAlertWriter(cfg, logger)
		deps.Alerts = alertWriter
		logger.Info("kafka alert publishing enabled", "topic", cfg.KafkaAlertTopic)
	}

	var sink *clickhouse.PredictionSink
	if cfg.ClickHouseAddr != "" {
		sink, err = clickhouse.NewPredictionSink(ctx, cfg, logger)
		if err != nil {
			// The sink is optional; the run continues without it.
			logger.Error("clickhouse sink unavailable", "error", err)
		} else {
			deps.Predictions = sink
			logger.Info("clickhouse sink enabled", "addr", cfg.ClickHouseAddr, "table", cfg.ClickHouseTable)
		}
	}

	p := pipeline.New(pipeline.OptionsFromConfig(cfg), deps, logger, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	exitCode := 0
	if _, err := p.Run(ctx); err != nil {
		logger.Error("pipeline error", "error", err)
		exitCode = 1
	}

	if cfg.Serve && exitCode == 0 {
		logger.Info("serving results until shutdown", "addr", cfg.HTTPAddr)
		<-ctx.Done()
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if alertWriter != nil {
		if err := alertWriter.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if sink != nil {
		if err := sink.Close(); err != nil {
			logger.Error("clickhouse close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
	if exitCode != 0 {
		cancel()
		stop()
		os.Exit(exitCode)
	}
}
