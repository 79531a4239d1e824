package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/edupulse/edupulse-backend/internal/config"
	"github.com/edupulse/edupulse-backend/internal/database"
	"github.com/edupulse/edupulse-backend/internal/handler"
	"github.com/edupulse/edupulse-backend/internal/logger"
	"github.com/edupulse/edupulse-backend/internal/repository"
	"github.com/edupulse/edupulse-backend/internal/router"
	"github.com/edupulse/edupulse-backend/internal/service"
	"github.com/edupulse/edupulse-backend/internal/session"
	"github.com/edupulse/edupulse-backend/internal/validator"
	"github.com/edupulse/edupulse-backend/internal/worker"
)

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("PostgreSQL connection failed")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Redis connection failed")
	}
	defer rdb.Close()

	// Repositories
	examRepo := repository.NewExamRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	resultRepo := repository.NewResultRepository(pool)
	watchEventRepo := repository.NewWatchEventRepository(pool)

	// Services
	authService := service.NewAuthService(cfg)
	catalogService := service.NewCatalogService(examRepo, questionRepo, resultRepo, log)
	submissionService := service.NewSubmissionService(examRepo, questionRepo, resultRepo, log)
	telemetryService := service.NewTelemetryService(rdb, log)
	attemptStore := session.NewRedisStore(rdb)

	// Handlers
	handlers := router.Handlers{
		Exam:      handler.NewExamHandler(catalogService, submissionService, log),
		Result:    handler.NewResultHandler(submissionService, watchEventRepo, log),
		Telemetry: handler.NewTelemetryHandler(telemetryService, log),
		AttemptWS: handler.NewAttemptWSHandler(cfg, catalogService, submissionService, attemptStore, log),
		PlayerWS:  handler.NewPlayerWSHandler(cfg, submissionService, telemetryService, log),
	}

	// Background workers
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.NewTelemetryWorker(rdb, watchEventRepo, log).Run(workerCtx)
	}()

	engine := router.Setup(cfg, authService, handlers)
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: engine,
	}

	go func() {
		log.Info().Str("port", cfg.ServerPort).Msg("Server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	// Stop workers after the server so in-flight requests can still enqueue.
	stopWorkers()
	wg.Wait()

	log.Info().Msg("Shutdown complete")
}
