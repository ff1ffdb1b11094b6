// Command engine is the residency scheduling engine's process
// entrypoint, generalizing the teacher's cmd/server/main.go (build
// collaborators, wire them together, start serving, wait on an
// OS signal, shut down) onto this module's pipelines instead of an
// Echo HTTP server: spec.md/SPEC_FULL.md §6 is explicit that the
// engine's request/response contract (internal/engineapi) carries no
// transport of its own, so this binary's job is to construct the
// store, the three pipelines, the event bus, and an Asynq worker that
// drains the job queue — not to expose a network API.
package main

import (
	"log"
	"os"

	"github.com/hibiken/asynq"

	"github.com/schedcu/residency-engine/internal/config"
	"github.com/schedcu/residency-engine/internal/event"
	"github.com/schedcu/residency-engine/internal/generator"
	"github.com/schedcu/residency-engine/internal/job"
	"github.com/schedcu/residency-engine/internal/logging"
	"github.com/schedcu/residency-engine/internal/resilience"
	"github.com/schedcu/residency-engine/internal/store"
	"github.com/schedcu/residency-engine/internal/store/memorystore"
	"github.com/schedcu/residency-engine/internal/store/pgstore"
	"github.com/schedcu/residency-engine/internal/swap"
)

func main() {
	cfg := config.FromEnv()

	logger, err := logging.New(os.Getenv("APP_ENV"))
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	st, closeStore := openStore(cfg, logger)
	defer closeStore()

	bus := event.NewBus(256)

	orchestrator := generator.NewOrchestrator(st, cfg)
	orchestrator.SetLogger(logger)
	orchestrator.SetEventBus(bus)

	swapEngine := swap.NewEngine(st, cfg)
	swapEngine.SetLogger(logger)
	swapEngine.SetEventBus(bus)

	evaluator := resilience.NewEvaluator(cfg)

	scheduler, err := job.NewScheduler(cfg.RedisAddr)
	if err != nil {
		logger.Fatalw("failed to connect scheduler to Redis", "error", err)
	}
	scheduler.SetLogger(logger)
	defer scheduler.Close()

	handlers := job.NewHandlers(orchestrator, swapEngine, evaluator, st, scheduler, cfg)
	handlers.SetLogger(logger)
	handlers.SetEventBus(bus)

	if err := scheduler.StartPeriodicSweeps("*/5 * * * *", "0 * * * *"); err != nil {
		logger.Fatalw("failed to start periodic sweeps", "error", err)
	}
	defer scheduler.Stop()

	mux := asynq.NewServeMux()
	handlers.RegisterHandlers(mux)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		asynq.Config{Concurrency: cfg.ResilienceWorkers},
	)

	logger.Infow("engine worker starting", "redis_addr", cfg.RedisAddr)
	// Run blocks and installs its own SIGINT/SIGTERM handling, shutting
	// the server down gracefully once one arrives.
	if err := srv.Run(mux); err != nil {
		logger.Fatalw("worker exited with an error", "error", err)
	}
}

// openStore builds the configured store.Store implementation: Postgres
// when RESIDENCY_POSTGRES_DSN is set, falling back to the in-memory
// store for local development, the way the teacher's main.go falls
// back to memory.NewScheduleRepository "for Phase 0".
func openStore(cfg config.Config, logger interface{ Infow(string, ...any) }) (store.Store, func()) {
	if cfg.PostgresDSN == "" {
		logger.Infow("no RESIDENCY_POSTGRES_DSN set, using the in-memory store")
		return memorystore.New(), func() {}
	}

	db, err := pgstore.New(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("failed to open Postgres store: %v", err)
	}
	logger.Infow("connected to Postgres store")
	return pgstore.NewPostgresStore(db), func() { db.Close() }
}
