// Package main is the dispatch-evaluation control plane: an HTTP
// server exposing the core simulator (spec §1-§4) for submitting
// evaluation runs and fetching their results, plus health and
// Prometheus metrics endpoints.
//
//	Schemes: http
//	Host: localhost:8080
//	BasePath: /api/v1
//	Version: 1.0.0
//
//	Consumes:
//	- application/json
//
//	Produces:
//	- application/json
//
// swagger:meta
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dispatchsim/internal/config"
	"dispatchsim/internal/database"
	"dispatchsim/internal/distance"
	"dispatchsim/internal/eventlog"
	"dispatchsim/internal/httpapi"
	"dispatchsim/internal/logging"
	"dispatchsim/internal/telemetry"

	"github.com/jmoiron/sqlx"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.NewLogger(&cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	logger.WithFields(logging.Fields{
		"version": "1.0.0",
		"mode":    cfg.Server.Mode,
	}).Info("Starting dispatch-evaluation control plane")

	ctx := context.Background()

	tel, err := telemetry.New(ctx, &cfg.OpenTelemetry, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize telemetry")
	}

	var redisClient *database.RedisClient
	if cfg.DistanceCacheRedisEnabled() {
		redisClient, err = database.NewRedisConnection(&cfg.Redis, logger)
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, distance cache will run in-process only")
			redisClient = nil
		}
	}

	oracle := distance.NewFlatEuclideanOracle(cfg.Simulation.AvgSpeedMPH)
	cachedOracle := distance.NewCachingOracle(oracle, redisClient, cfg.Redis.TTL, logger)

	var sink eventlog.Sink = eventlog.NoopSink{}
	var pgDB *database.PostgresDB
	if cfg.EventSinkEnabled() {
		pgDB, err = database.NewPostgresConnection(&cfg.Database, logger)
		if err != nil {
			logger.WithError(err).Warn("Postgres unavailable, event log will stay in-memory only")
		} else {
			sink = eventlog.NewPostgresSink(sqlx.NewDb(pgDB.DB, "postgres"), "control-plane", 5*time.Second, logger)
		}
	}

	store := httpapi.NewRunStore()
	evalHandler := httpapi.NewEvaluationsHandler(&cfg.Simulation, cachedOracle, sink, logger, tel, store)

	engine := httpapi.SetupRouter(&httpapi.RouterConfig{
		Config:      cfg,
		Logger:      logger,
		Evaluations: evalHandler,
		Registry:    tel.Registry(),
	})

	server := &http.Server{
		Addr:           fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:        engine,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logger.WithFields(logging.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting HTTP server")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start HTTP server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down control plane...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("HTTP server forced to shutdown")
	}
	if err := tel.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Telemetry shutdown failed")
	}
	if closer, ok := sink.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.WithError(err).Error("Event sink shutdown failed")
		}
	}
	if pgDB != nil {
		if err := pgDB.Close(); err != nil {
			logger.WithError(err).Error("Database close failed")
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.WithError(err).Error("Redis close failed")
		}
	}

	logger.Info("Control plane shutdown complete")
}
