package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sifan077/shrtnr/config"
	apprepository "github.com/sifan077/shrtnr/internal/app/repository"
	appserver "github.com/sifan077/shrtnr/internal/app/server"
	"github.com/sifan077/shrtnr/internal/app/service"
	inthttp "github.com/sifan077/shrtnr/internal/http/handler"
	"github.com/sifan077/shrtnr/internal/infra/logger"
	infraNATS "github.com/sifan077/shrtnr/internal/infra/nats"
	infraPostgres "github.com/sifan077/shrtnr/internal/infra/postgres"
	infraPrometheus "github.com/sifan077/shrtnr/internal/infra/prometheus"
	infraRedis "github.com/sifan077/shrtnr/internal/infra/redis"
	"go.uber.org/zap"
)

const (
	shutdownTimeout = 10 * time.Second
	statsInterval   = 30 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logger.MustInit(logger.ConfigFromEnv("shrtnr"))
	defer func() { _ = logger.Sync() }()

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	log.Info("Configuration loaded successfully",
		zap.String("base_url", cfg.Server.BaseURL),
		zap.String("postgres_host", cfg.Postgres.Host),
		zap.String("postgres_db", cfg.Postgres.Database),
		zap.Bool("postgres_url", cfg.Postgres.URL != ""),
		zap.String("click_queue", cfg.Clicks.Queue),
		zap.Duration("store_timeout", cfg.Store.Timeout),
		zap.Bool("strict_delete", cfg.Links.StrictDelete),
	)

	gormDB, err := infraPostgres.NewGorm(cfg.Postgres, log)
	if err != nil {
		log.Fatal("Failed to open GORM connection", zap.Error(err))
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatal("Failed to access underlying SQL DB", zap.Error(err))
	}
	defer sqlDB.Close()

	if err := infraPostgres.AutoMigrate(ctx, gormDB); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}

	pool, err := infraPostgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to connect to Postgres", zap.Error(err))
	}
	defer pool.Close()
	log.Info("Connected to Postgres successfully")

	healthChecks := map[string]inthttp.HealthCheck{
		"postgres": pool.Ping,
	}

	var metrics service.Metrics = service.NopMetrics()
	var promMetrics *infraPrometheus.Metrics
	if cfg.Prometheus.Enabled {
		registry := infraPrometheus.NewRegistry()
		promMetrics = infraPrometheus.NewMetrics(registry)
		metrics = promMetrics

		promServer := infraPrometheus.NewServer(cfg.Prometheus, registry, log)
		go func() {
			log.Info("Starting Prometheus metrics server", zap.String("addr", promServer.Addr))
			if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Prometheus metrics server stopped unexpectedly", zap.Error(err))
			}
		}()
		defer func() {
			if err := promServer.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("Failed to close Prometheus server", zap.Error(err))
			}
		}()
	} else {
		log.Info("Prometheus metrics disabled")
	}

	linkRepo := apprepository.NewLinkRepository(gormDB, cfg.Store.Timeout)
	clickRepo := apprepository.NewClickRepository(gormDB, cfg.Store.Timeout)
	credRepo := apprepository.NewCredentialRepository(gormDB, cfg.Store.Timeout)

	arbiter := service.NewArbiter(linkRepo, service.NewRandomGenerator(), log, metrics)
	linkService := service.NewLinkService(linkRepo, clickRepo, arbiter, service.LinkServiceOptions{
		StrictDelete: cfg.Links.StrictDelete,
		Logger:       log,
		Metrics:      metrics,
	})
	analytics := service.NewAnalyticsService(linkService, linkRepo, clickRepo)
	credentials := service.NewCredentialService(credRepo)

	sink := service.NewStoreRecorder(clickRepo, log, metrics)
	var clicks service.ClickRecorder = sink

	switch cfg.Clicks.Queue {
	case config.ClickQueueNATS:
		natsConn, js, err := infraNATS.Connect(cfg.NATS, log)
		if err != nil {
			log.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		defer natsConn.Drain()
		log.Info("Connected to NATS successfully", zap.String("url", infraNATS.URL(cfg.NATS)))

		consumer := service.NewClickConsumer(js, log, sink)
		if err := consumer.Start(ctx); err != nil {
			log.Fatal("Failed to start click consumer", zap.Error(err))
		}
		defer consumer.Stop()

		clicks = service.NewClickPublisher(js, metrics)
		healthChecks["nats"] = infraNATS.HealthCheck(natsConn)

	case config.ClickQueueRedis:
		redisClient, err := infraRedis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		log.Info("Connected to Redis successfully", zap.String("addr", infraRedis.Addr(cfg.Redis)))

		consumer := service.NewRedisClickConsumer(redisClient, cfg.Clicks.RedisKey, cfg.Clicks.Workers, log, sink)
		consumer.Start(ctx)
		defer consumer.Stop()

		clicks = service.NewRedisClickQueue(redisClient, cfg.Clicks.RedisKey, metrics)
		healthChecks["redis"] = infraRedis.HealthCheck(redisClient)
	}

	if promMetrics != nil {
		refresher := service.NewStatsRefresher(log, analytics, promMetrics, statsInterval)
		refresher.Start()
		defer refresher.Stop()
	}

	deps := appserver.Dependencies{
		Logger:       log,
		Config:       cfg.Server,
		Links:        linkService,
		Analytics:    analytics,
		Credentials:  credentials,
		Clicks:       clicks,
		HealthChecks: healthChecks,
	}
	if promMetrics != nil {
		deps.Observer = promMetrics
	}
	server := appserver.New(deps)

	go func() {
		<-ctx.Done()
		log.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn("HTTP server shutdown failed", zap.Error(err))
		}
	}()

	log.Info("Starting HTTP server", zap.String("addr", cfg.Server.Addr()))
	if err := server.Listen(cfg.Server.Addr()); err != nil {
		log.Error("Fiber server exited", zap.Error(err))
	}
}
