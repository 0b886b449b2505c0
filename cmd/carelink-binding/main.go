package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"carelink-binding/internal/auth"
	"carelink-binding/internal/config"
	"carelink-binding/internal/database"
	"carelink-binding/internal/docstore"
	"carelink-binding/internal/events"
	httpapi "carelink-binding/internal/http"
	applog "carelink-binding/internal/logger"
	"carelink-binding/internal/repository"
	"carelink-binding/internal/service"
	"carelink-binding/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logger, err := applog.NewLogger(cfg.Log.Level, cfg.Log.Format, "carelink-binding")
	if err != nil {
		logger = zap.NewNop()
	}
	defer logger.Sync()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// 文档存储：DB 就绪用 Postgres JSONB，否则回退内存后端（联测/本地开发）
	var db *sql.DB
	var docStore docstore.Store
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			pg := docstore.NewPostgres(d)
			if err := pg.EnsureSchema(context.Background()); err != nil {
				logger.Fatal("Failed to ensure docstore schema", zap.Error(err))
			}
			db = d
			docStore = pg
			logger.Info("DB enabled for carelink-binding")
		} else {
			logger.Warn("DB enabled but connection failed, falling back to memory docstore", zap.Error(err))
		}
	}
	if docStore == nil {
		docStore = docstore.NewMemory()
	}

	devicesRepo := repository.NewDocstoreDevicesRepo(docStore)
	eldersRepo := repository.NewDocstoreEldersRepo(docStore)
	mapUsersRepo := repository.NewDocstoreMapUsersRepo(docStore)
	activitiesRepo := repository.NewDocstoreActivitiesRepo(docStore)
	pointsRepo := repository.NewDocstoreNotificationPointsRepo(docStore)

	archiver := service.NewArchivalService(docStore, activitiesRepo, logger)
	resolver := service.NewInheritanceService(devicesRepo, pointsRepo, logger)

	var publisher events.Publisher
	if cfg.Events.Enabled {
		publisher = events.NewRedisPublisher(redisClient, cfg.Events.Stream)
	}

	binding := service.NewBindingService(
		docStore, devicesRepo, eldersRepo, mapUsersRepo,
		archiver, resolver, publisher, logger,
	)

	// 令牌校验：配置了外部认证服务则走远端 + Redis 缓存，否则开发模式静态校验器
	var verifier auth.TokenVerifier
	if cfg.Auth.VerifyURL != "" {
		verifier = auth.NewRemoteVerifier(cfg.Auth.VerifyURL, store.NewRedisKV(redisClient), cfg.Auth.CacheTTL, logger)
	} else {
		logger.Warn("AUTH_VERIFY_URL not set, using static dev verifier")
		verifier = &auth.StaticVerifier{Principal: auth.Principal{PrincipalID: "dev", Elevated: true}}
	}

	router := httpapi.NewRouter(logger)
	handler := httpapi.NewBindingHandler(binding, devicesRepo, logger)
	router.RegisterBindingRoutes(handler, httpapi.AuthMiddleware(verifier, logger))

	srv := service.NewServer(cfg.HTTP.Addr, router, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("HTTP server exited", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	_ = redisClient.Close()
	if db != nil {
		_ = db.Close()
	}
}
