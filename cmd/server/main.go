// Package main is the entry point for the Quanta hybrid quantum-classical
// orchestration service. It wires the full pipeline: problem decomposition,
// circuit generation, the durable job queue with its worker pool, result
// interpretation, and the HTTP/WebSocket boundary.
package main

import (
	"context"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/quantalab/quanta/internal/config"
	"github.com/quantalab/quanta/internal/database"
	"github.com/quantalab/quanta/internal/events"
	"github.com/quantalab/quanta/internal/modules/circuit"
	"github.com/quantalab/quanta/internal/modules/decomposer"
	"github.com/quantalab/quanta/internal/modules/interpreter"
	"github.com/quantalab/quanta/internal/modules/orchestrator"
	hybridhandlers "github.com/quantalab/quanta/internal/modules/orchestrator/handlers"
	"github.com/quantalab/quanta/internal/queue"
	"github.com/quantalab/quanta/internal/reliability"
	"github.com/quantalab/quanta/internal/scheduler"
	"github.com/quantalab/quanta/internal/server"
	"github.com/quantalab/quanta/pkg/logger"
)

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})

	log.Info().Msg("Starting Quanta")

	// Jobs database: the durable backing store of the queue. Jobs submitted
	// before a crash are picked up again on the next start.
	jobsDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "jobs.db"),
		Profile: database.ProfileStandard,
		Name:    "jobs",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open jobs database")
	}
	defer jobsDB.Close()

	if err := jobsDB.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate jobs database")
	}

	// Event bus carries job status transitions and system events to the
	// SSE/WebSocket streams.
	eventBus := events.NewBus(log)
	eventManager := events.NewManager(eventBus, log)

	// Backend catalog: built-in defaults unless a YAML catalog is configured
	catalog := config.DefaultBackendCatalog()
	if cfg.BackendsFile != "" {
		catalog, err = config.LoadBackendCatalog(cfg.BackendsFile)
		if err != nil {
			log.Fatal().Err(err).Str("file", cfg.BackendsFile).Msg("Failed to load backend catalog")
		}
	}

	// Generator and simulator each get their own source: they lock their
	// own rng, so sharing one would race across goroutines.
	store := queue.NewStore(jobsDB, log)
	queueService := queue.NewService(
		store,
		queue.NewCatalogSelector(catalog),
		queue.NewLocalSimulator(rand.New(rand.NewSource(time.Now().UnixNano()))),
		eventManager,
		queue.Config{
			Workers:     cfg.WorkerCount,
			WaitTimeout: cfg.WaitTimeout,
		},
		log,
	)

	// Open resets jobs stranded mid-execution by a previous crash and
	// starts the worker pool.
	if err := queueService.Open(); err != nil {
		log.Fatal().Err(err).Msg("Failed to open job queue")
	}

	// Pipeline stages
	orch := orchestrator.New(
		decomposer.New(),
		circuit.New(rand.New(rand.NewSource(time.Now().UnixNano()+1))),
		queueService,
		interpreter.New(nil, log),
		eventManager,
		cfg.DefaultShots,
		log,
	)

	hybridHandler := hybridhandlers.NewHandler(orch, queueService, log)

	srv := server.New(server.Config{
		Log:           log,
		JobsDB:        jobsDB,
		Config:        cfg,
		Port:          cfg.Port,
		DevMode:       cfg.DevMode,
		EventBus:      eventBus,
		EventManager:  eventManager,
		QueueService:  queueService,
		HybridHandler: hybridHandler,
	})

	// Background maintenance: nightly database upkeep, plus either the
	// cold-storage archiver or the plain garbage collector for expired
	// terminal jobs.
	sched := scheduler.New(eventManager, log)

	maintenance := reliability.NewDailyMaintenanceJob(jobsDB, cfg.DataDir, log)
	if err := sched.AddJob("0 0 2 * * *", maintenance); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule daily maintenance")
	}

	if cfg.Archive.Enabled {
		s3Client, err := reliability.NewS3Client(cfg.Archive, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create archive client")
		}
		archiveService := reliability.NewArchiveService(s3Client, store, eventManager, log)
		archiveJob := reliability.NewArchiveJob(archiveService, cfg.JobRetention, log)
		if err := sched.AddJob("@hourly", archiveJob); err != nil {
			log.Fatal().Err(err).Msg("Failed to schedule archive job")
		}
		log.Info().Str("bucket", cfg.Archive.Bucket).Msg("Job archiving enabled")
	} else {
		gcJob := queue.NewGCJob(store, cfg.JobRetention, log)
		if err := sched.AddJob("@hourly", gcJob); err != nil {
			log.Fatal().Err(err).Msg("Failed to schedule job GC")
		}
		log.Info().Msg("Job archiving disabled, expired jobs will be garbage collected")
	}

	sched.Start()

	// Start server in goroutine so the main thread can wait on signals
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	// Stop accepting HTTP traffic first, then drain the queue workers.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	sched.Stop()
	queueService.Close()

	log.Info().Msg("Shutdown complete")
}
