package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prasetya88/billing-pipeline/internal/catalog"
	"github.com/prasetya88/billing-pipeline/internal/config"
	"github.com/prasetya88/billing-pipeline/internal/domain"
	"github.com/prasetya88/billing-pipeline/internal/handler"
	"github.com/prasetya88/billing-pipeline/internal/intake"
	"github.com/prasetya88/billing-pipeline/internal/ledger"
	"github.com/prasetya88/billing-pipeline/internal/metrics"
	"github.com/prasetya88/billing-pipeline/internal/pipeline"
	"github.com/prasetya88/billing-pipeline/internal/server"
	"github.com/prasetya88/billing-pipeline/pkg/logger"
)

func main() {
	cfg := config.Load()

	log := logger.New(cfg.Logging.Level, cfg.Logging.File)
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info(ctx, "Starting bill processor")

	for _, dir := range []string{cfg.Paths.BillsDir, cfg.Paths.InvoicesDir, cfg.Paths.QuarantineDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatal(ctx, "Failed to create directory",
				"dir", dir,
				"error", err,
			)
		}
	}

	var store domain.Ledger
	switch cfg.Ledger.Driver {
	case "none", "":
		log.Info(ctx, "Ledger mirroring disabled")
	case "memory":
		store = ledger.NewMemory()
		log.Info(ctx, "In-memory ledger initialized")
	default:
		gormLedger, err := ledger.Open(cfg.Ledger.Driver, cfg.Ledger.DSN)
		if err != nil {
			log.Fatal(ctx, "Failed to open ledger",
				"driver", cfg.Ledger.Driver,
				"error", err,
			)
		}
		store = gormLedger
		log.Info(ctx, "Ledger initialized",
			"driver", cfg.Ledger.Driver,
		)
	}

	pipelineMetrics := metrics.NewPipeline()

	loader := catalog.NewLoader(cfg.Paths.ProductsFile, store, log)
	mover := intake.NewMover(cfg.Paths.QuarantineDir, log)
	scanner := intake.NewScanner(cfg.Paths.BillsDir, mover, log)
	calculator := pipeline.NewCalculator(store, log)
	writer := pipeline.NewWriter(cfg.Paths.InvoicesDir, log)

	proc := pipeline.New(loader, scanner, mover, calculator, writer, pipelineMetrics, log, pipeline.Options{
		PollInterval:       cfg.Pipeline.PollInterval,
		MaxComputeAttempts: cfg.Pipeline.MaxComputeAttempts,
	})

	var srv *server.Server
	if cfg.Server.Enabled {
		healthHandler := handler.NewHealthHandler()
		statsHandler := handler.NewStatsHandler(proc, log)
		srv = server.New(cfg, log, healthHandler, statsHandler, pipelineMetrics.Registry())

		go func() {
			if err := srv.Start(); err != nil && err != http.ErrServerClosed {
				log.Fatal(ctx, "Failed to start ops server",
					"error", err,
				)
			}
		}()
	}

	pipelineDone := make(chan struct{})
	go func() {
		defer close(pipelineDone)
		if err := proc.Run(ctx); err != nil && err != context.Canceled {
			log.Error(ctx, "Pipeline stopped with error",
				"error", err,
			)
		}
	}()

	log.Info(ctx, "Bill processor started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info(ctx, "Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Stop the polling loop first so no bill is picked up mid-shutdown,
	// then close the outer surfaces.
	cancel()
	select {
	case <-pipelineDone:
	case <-shutdownCtx.Done():
		log.Warn(shutdownCtx, "Pipeline shutdown timeout")
	}

	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error(shutdownCtx, "Ops server shutdown error",
				"error", err,
			)
		}
	}

	if store != nil {
		if err := store.Close(); err != nil {
			log.Error(shutdownCtx, "Ledger close error",
				"error", err,
			)
		}
	}

	log.Info(context.Background(), "Bill processor stopped gracefully")
}
