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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/parking-permit-api/api/swagger"
	"github.com/noah-isme/parking-permit-api/internal/handler"
	"github.com/noah-isme/parking-permit-api/internal/middleware"
	"github.com/noah-isme/parking-permit-api/internal/models"
	"github.com/noah-isme/parking-permit-api/internal/repository"
	"github.com/noah-isme/parking-permit-api/internal/service"
	"github.com/noah-isme/parking-permit-api/pkg/cache"
	"github.com/noah-isme/parking-permit-api/pkg/config"
	"github.com/noah-isme/parking-permit-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/parking-permit-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/parking-permit-api/pkg/middleware/requestid"
)

const (
	shutdownTimeout = 10 * time.Second
	cacheKeyPrefix  = "permits"
)

// @title Parking Permit API
// @version 1.0.0
// @description Student parking-permit roster and lot assignment
// @BasePath /api/v1
// @schemes http

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsSvc := service.NewMetricsService()

	cacheRepo := openCache(ctx, cfg, logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.CacheEnabled && cacheRepo.Connected())

	store := repository.NewStore(models.DefaultLotLayout(), cfg.Activity.Limit)
	if cfg.Roster.SeedDemoData {
		n, err := repository.SeedDemo(ctx, store)
		if err != nil {
			logr.Fatal("failed to seed demo roster", zap.Error(err))
		}
		logr.Info("demo roster seeded", zap.Int("students", n))
	}

	studentRepo := repository.NewStudentRepository(store)
	spotRepo := repository.NewSpotRepository(store)
	activityRepo := repository.NewActivityRepository(store)
	metricsSvc.TrackSpotsOccupied(func() int {
		stats, err := spotRepo.Stats(context.Background())
		if err != nil {
			return 0
		}
		return stats.Occupied
	})

	validate := validator.New()
	studentSvc := service.NewStudentService(service.StudentServiceParams{
		Repo:      studentRepo,
		Activity:  activityRepo,
		Cache:     cacheSvc,
		Metrics:   metricsSvc,
		Validator: validate,
		Logger:    logr,
	})
	assignmentSvc := service.NewAssignmentService(service.AssignmentServiceParams{
		Spots:     spotRepo,
		Activity:  activityRepo,
		Cache:     cacheSvc,
		Metrics:   metricsSvc,
		Validator: validate,
		Logger:    logr,
	})
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Source: store,
		Cache:  cacheSvc,
		Logger: logr,
		Config: service.DashboardServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL},
	})
	exportSvc := service.NewExportService(studentRepo, spotRepo, logr)
	importSvc := service.NewImportService(studentSvc, logr)
	activitySvc := service.NewActivityService(activityRepo)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	if cfg.Metrics.Enabled {
		r.Use(middleware.Metrics(metricsSvc))
	}

	handler.Register(r, handler.Handlers{
		Students:  handler.NewStudentHandler(studentSvc),
		Lot:       handler.NewLotHandler(assignmentSvc),
		Dashboard: handler.NewDashboardHandler(dashboardSvc),
		Exports:   handler.NewExportHandler(exportSvc, importSvc, cfg.Roster.ImportMaxFileSize),
		Activity:  handler.NewActivityHandler(activitySvc),
		Metrics:   handler.NewMetricsHandler(metricsSvc, cacheSvc),
	}, handler.RouterOptions{
		APIPrefix:      cfg.APIPrefix,
		MetricsEnabled: cfg.Metrics.Enabled,
		Logger:         logr,
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "prefix", cfg.APIPrefix)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

// openCache connects to Redis when the dashboard cache is enabled. Without a reachable server the
// API keeps running and every cache read misses.
func openCache(ctx context.Context, cfg *config.Config, logr *zap.Logger) *repository.CacheRepository {
	if !cfg.Dashboard.CacheEnabled {
		return repository.NewCacheRepository(nil, cacheKeyPrefix, logr)
	}
	client, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, dashboard cache disabled", zap.String("addr", cache.Addr(cfg.Redis)), zap.Error(err))
		return repository.NewCacheRepository(nil, cacheKeyPrefix, logr)
	}
	logr.Info("redis connected", zap.String("addr", cache.Addr(cfg.Redis)))
	return repository.NewCacheRepository(client, cacheKeyPrefix, logr)
}
