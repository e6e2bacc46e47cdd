package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"mlops-monitoring-service/internal/adapters/primary/http/handlers"
	"mlops-monitoring-service/internal/adapters/primary/http/middleware"
	"mlops-monitoring-service/internal/adapters/secondary/fsstore"
	"mlops-monitoring-service/internal/adapters/secondary/memory"
	"mlops-monitoring-service/internal/adapters/secondary/postgres"
	"mlops-monitoring-service/internal/adapters/secondary/promsink"
	"mlops-monitoring-service/internal/config"
	"mlops-monitoring-service/internal/core/ports/output"
	"mlops-monitoring-service/internal/core/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	initLogger(cfg)

	// Secondary Adapters (Output Ports)
	var (
		registryRepo ports.RegistryRepository
		lineageRepo  ports.LineageRepository
		pool         *pgxpool.Pool
	)
	switch cfg.Storage.Backend {
	case "memory":
		store := memory.NewRegistryStore()
		registryRepo = store
		lineageRepo = memory.NewLineageStore(store)
		log.Info("using in-memory storage backend")
	default:
		poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN())
		if err != nil {
			log.Fatalf("parse db config: %v", err)
		}
		poolCfg.MaxConns = int32(cfg.Database.MaxOpenConns)
		poolCfg.MinConns = int32(cfg.Database.MaxIdleConns)
		poolCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime

		pool, err = pgxpool.NewWithConfig(context.Background(), poolCfg)
		if err != nil {
			log.Fatalf("create db pool: %v", err)
		}
		defer pool.Close()

		if err := pool.Ping(context.Background()); err != nil {
			log.Fatalf("ping db: %v", err)
		}
		log.Info("database connection established")

		registryRepo = postgres.NewRegistryRepository(pool)
		lineageRepo = postgres.NewLineageRepository(pool)
	}

	artifacts, err := fsstore.New(cfg.Storage.ArtifactDir)
	if err != nil {
		log.Fatalf("init artifact store: %v", err)
	}

	var sink *promsink.Sink
	var metricsSink ports.MetricsSink
	if cfg.Metrics.Enabled {
		sink = promsink.New()
		metricsSink = sink
		log.Info("prometheus metrics sink initialized")
	} else {
		log.Info("metrics sink disabled")
	}

	// Core Services
	lineageSvc := services.NewLineageService(lineageRepo)
	baselineSvc := services.NewBaselineBuilder(artifacts, lineageSvc, cfg.Drift, cfg.Storage)
	scanner := services.NewAnomalyScanner(cfg.Drift)
	driftSvc := services.NewDriftDetector(scanner, artifacts, metricsSink, cfg.Drift, cfg.Storage)
	registrySvc := services.NewRegistryService(registryRepo, lineageSvc, artifacts, metricsSink, cfg.Registry)

	// Primary Adapter (HTTP)
	h := handlers.New(baselineSvc, driftSvc, registrySvc, lineageSvc)

	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logging(), gin.Recovery())

	api := router.Group("/api/v1")
	h.RegisterRoutes(api)

	router.GET("/healthz", func(c *gin.Context) {
		if pool != nil {
			if err := pool.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if sink != nil {
		router.GET("/metrics", gin.WrapH(sink.Handler()))
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Infof("starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced shutdown: %v", err)
	}

	log.Info("server stopped")
}

func initLogger(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Logger.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
