package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dispatch-service/config"
	"dispatch-service/internal/geoip"
	"dispatch-service/internal/handler"
	"dispatch-service/internal/jwt"
	"dispatch-service/internal/maintenance"
	"dispatch-service/internal/metrics"
	"dispatch-service/internal/repository"
	"dispatch-service/internal/router"
	"dispatch-service/internal/service"
	"dispatch-service/internal/storage"
	"dispatch-service/pkg/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}
	defer logger.Sync()

	log := logger.L()
	cfg := config.Load(log)

	db := storage.ConnectDB(&cfg.DB, log)
	if db == nil {
		log.Fatal("failed to connect to database")
	}
	defer storage.CloseDB(db, log)
	storage.Migrate(db, log)

	rdb := storage.ConnectRedis(&cfg.Redis, log)

	metrics.Init()

	linkRepo := repository.NewLinkRepository(db)
	capRepo := repository.NewCapRepository(db)
	logRepo := repository.NewAccessLogRepository(db)
	alertRepo := repository.NewAlertRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	userRepo := repository.NewUserRepository(db)

	jwtManager := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	geo := geoip.NewProvider(&cfg.GeoIP)
	defer geo.Close()

	catalog := service.NewCatalogService(linkRepo, rdb, cfg.Dispatch.CacheTTL, log)
	accessLogs := service.NewAccessLogService(logRepo, cfg.Dispatch.LogBuffer, log)
	defer accessLogs.Close()
	stats := service.NewStatsService(logRepo, linkRepo, rdb, log)
	dispatch := service.NewDispatchService(catalog, capRepo, accessLogs, stats, cfg.Dispatch.RequestTimeout, log)
	monitor := service.NewMonitorService(db, rdb, alertRepo, logRepo, linkRepo, stats, cfg.Monitor, cfg.Kafka, log)
	templates := service.NewTemplateService(templateRepo, catalog, log)
	users := service.NewUserService(userRepo, jwtManager, log)
	limiter := service.NewRateLimiter(rdb, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go monitor.Start(ctx)

	scheduler := maintenance.NewScheduler(log, logRepo, cfg.Dispatch.LogRetentionDays)
	if err := scheduler.Start(ctx); err != nil {
		log.Fatal("failed to start maintenance scheduler", zap.Error(err))
	}

	handlers := &router.Handlers{
		Redirect: handler.NewRedirectHandler(dispatch, geo, log),
		Link:     handler.NewLinkHandler(catalog, log),
		Stats:    handler.NewStatsHandler(stats, accessLogs, catalog, log),
		Monitor:  handler.NewMonitorHandler(monitor, limiter, log),
		Template: handler.NewTemplateHandler(templates, log),
		User:     handler.NewUserHandler(users),
		Batch:    handler.NewBatchHandler(catalog, log),
	}

	r := router.Router(cfg, log, handlers, jwtManager, limiter)

	srv := &http.Server{
		Addr:    cfg.Port,
		Handler: r,
	}

	go func() {
		log.Info("server started", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}
