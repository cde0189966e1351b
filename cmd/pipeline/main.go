// cmd/pipeline/main.go
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/delta-logistics/shipment-etl/pkg/audit"
	"github.com/delta-logistics/shipment-etl/pkg/config"
	"github.com/delta-logistics/shipment-etl/pkg/connector"
	"github.com/delta-logistics/shipment-etl/pkg/extract"
	"github.com/delta-logistics/shipment-etl/pkg/load"
	"github.com/delta-logistics/shipment-etl/pkg/pipeline"
)

func main() {
	// .env is optional; real environments configure via the environment
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(context.Background(), cfg, logger); err != nil {
		logger.Error("Pipeline run failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	fileSink, err := audit.NewFileSink(cfg.AuditLogDir)
	if err != nil {
		return err
	}
	sinks := []audit.Sink{fileSink}

	loaders := []load.Loader{load.NewCSVLoader(cfg.CleanedDataPath, logger)}

	// The relational store is optional; when configured, both the cleaned
	// dataset and the audit trail land there as well as on disk.
	if cfg.Postgres != nil {
		pg, err := connector.NewPostgresConnector(ctx, cfg.Postgres, logger)
		if err != nil {
			return err
		}
		defer pg.Close()

		if err := pg.Validate(); err != nil {
			return err
		}

		pgSink, err := audit.NewPostgresSink(pg.DB(), logger)
		if err != nil {
			return err
		}
		sinks = append(sinks, pgSink)

		pgLoader, err := load.NewPostgresLoader(pg.DB(), logger)
		if err != nil {
			return err
		}
		loaders = append(loaders, pgLoader)
	}

	extractor := extract.NewCSVExtractor(cfg.RawDataPath, logger)
	records, err := extractor.Extract(ctx)
	if err != nil {
		return err
	}

	auditLog := audit.NewLogger(pipeline.NewRunID(), logger, sinks...)
	p := pipeline.New(cfg, auditLog, load.NewMultiLoader(loaders...), logger)

	summary, _, err := p.Run(ctx, records)
	if err != nil {
		return err
	}

	for _, outcome := range summary.Stages {
		logger.Info("Stage summary",
			zap.String("stage", outcome.Stage),
			zap.Int("input", outcome.Input),
			zap.Int("retained", outcome.Retained),
			zap.Int("rejected", outcome.Rejected),
			zap.Int("auditEntries", outcome.AuditEntries))
	}

	logger.Info("Run summary",
		zap.String("runID", summary.RunID),
		zap.Int("input", summary.Input),
		zap.Int("retained", summary.Retained),
		zap.Int("rejected", summary.TotalRejected),
		zap.Strings("auditLocations", summary.AuditLocations),
		zap.Duration("duration", summary.Duration))

	return nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.LogFormat == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
