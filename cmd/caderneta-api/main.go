package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/caderneta-api/internal/handler"
	"github.com/noah-isme/caderneta-api/internal/middleware"
	"github.com/noah-isme/caderneta-api/internal/repository"
	"github.com/noah-isme/caderneta-api/internal/service"
	"github.com/noah-isme/caderneta-api/pkg/cache"
	"github.com/noah-isme/caderneta-api/pkg/config"
	"github.com/noah-isme/caderneta-api/pkg/database"
	"github.com/noah-isme/caderneta-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/caderneta-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/caderneta-api/pkg/middleware/requestid"
)

type redisPinger struct{ client *redis.Client }

func (p redisPinger) PingContext(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	checks := map[string]handler.Pinger{"postgres": db}

	var redisClient *redis.Client
	if cfg.Reports.CacheEnabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("report cache disabled, redis unavailable", zap.Error(err))
		} else {
			checks["redis"] = redisPinger{client: redisClient}
		}
	}
	reportCache := repository.NewReportCacheRepository(redisClient)
	defer reportCache.Close()

	presets, err := config.LoadWeightPresets(cfg.Reports.WeightPresetsFile)
	if err != nil {
		logr.Fatal("failed to load weight presets", zap.Error(err), zap.String("path", cfg.Reports.WeightPresetsFile))
	}

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            "caderneta-api",
	})
	notebookSvc := service.NewNotebookService(
		repository.NewNotebookRepository(db),
		reportCache,
		presets,
		metricsSvc,
		validator.New(),
		logr,
		service.NotebookServiceConfig{
			CacheEnabled: redisClient != nil,
			CacheTTL:     cfg.Reports.CacheTTL,
			Filename:     cfg.Reports.Filename,
			Timeout:      cfg.Reports.GenerationTimeout,
		},
	)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	r.GET("/metrics/summary", metricsHandler.Summary)

	notebookHandler := handler.NewNotebookHandler(notebookSvc)
	api := r.Group(cfg.APIPrefix, middleware.JWT(authSvc))
	api.PUT("/notebooks/:id/finalize", notebookHandler.Finalize)
	api.POST("/notebooks/:id/summary", notebookHandler.Summary)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}
