package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/duongquang05/marathon-portal/internal/config"
	"github.com/duongquang05/marathon-portal/internal/handler"
	"github.com/duongquang05/marathon-portal/internal/lock"
	"github.com/duongquang05/marathon-portal/internal/middleware"
	"github.com/duongquang05/marathon-portal/internal/queue"
	"github.com/duongquang05/marathon-portal/internal/router"
	"github.com/duongquang05/marathon-portal/internal/service"
	"github.com/duongquang05/marathon-portal/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	level := log.INFO
	if cfg.Env != "prod" {
		level = log.DEBUG
	}
	log.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer func() {
		if err := stores.Close(); err != nil {
			log.Warnf("close storage: %v", err)
		}
	}()

	// Redis is optional: without it the accept lock is process local and
	// rate limiting and caching are off.
	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}

	var events service.EventPublisher = queue.Nop{}
	if cfg.RabbitMQURL != "" {
		pub := queue.NewPublisher(cfg.RabbitMQURL)
		defer pub.Close()
		events = pub
		go func() {
			if err := queue.StartConsumer(ctx, cfg.RabbitMQURL, cfg.EventLogDir); err != nil && !errors.Is(err, context.Canceled) {
				log.Errorf("participation-consumer: %v", err)
			}
		}()
	}

	locker := lock.Chain{lock.NewLocal(), lock.NewRedis(rdb, cfg.AcceptLockTTL)}

	accounts := service.NewParticipantService(stores, cfg.BcryptCost)
	marathons := service.NewMarathonService(stores)
	participations := service.NewParticipationService(stores, locker, events)
	points := service.NewPassingPointService(stores)

	cacheCfg := config.LoadCacheConfig()
	rlCfg := config.LoadRateLimitConfig()

	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(level)
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	// mounted per group; on authenticated groups it runs after JWTAuth
	limit := middleware.NewTokenBucket(rlCfg, rdb)

	router.RegisterRoutes(e, &handler.HealthHandler{Stores: stores, Driver: cfg.StorageDriver})
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, accounts, stores.Tokens), limit)
	router.RegisterParticipant(e, handler.NewParticipantHandler(accounts, marathons, participations), cfg.JWTSecret, limit)
	router.RegisterAdmin(e, handler.NewAdminHandler(accounts, marathons, participations, points), cfg.JWTSecret,
		[]echo.MiddlewareFunc{limit}, middleware.NewCacheInvalidator(cacheCfg, rdb))
	router.RegisterPublic(e, handler.NewPublicHandler(points), limit, middleware.NewRedisCache(cacheCfg, rdb))

	addr := ":" + cfg.Port
	go func() {
		log.Infof("listening on %s (env=%s, storage=%s)", addr, cfg.Env, cfg.StorageDriver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("server: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Warnf("shutdown: %v", err)
	}
	log.Info("server stopped")
}
