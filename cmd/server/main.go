package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/room-reservation/internal/config"
	"github.com/iliyamo/room-reservation/internal/database"
	"github.com/iliyamo/room-reservation/internal/handler"
	"github.com/iliyamo/room-reservation/internal/idempotency"
	"github.com/iliyamo/room-reservation/internal/logging"
	"github.com/iliyamo/room-reservation/internal/middleware"
	"github.com/iliyamo/room-reservation/internal/payment"
	"github.com/iliyamo/room-reservation/internal/queue"
	"github.com/iliyamo/room-reservation/internal/repository"
	"github.com/iliyamo/room-reservation/internal/router"
	"github.com/iliyamo/room-reservation/internal/service"
	"github.com/iliyamo/room-reservation/internal/service/ports"
	"github.com/iliyamo/room-reservation/internal/worker"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.IsProd())
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, database.Options{
		User: cfg.DBUser,
		Pass: cfg.DBPass,
		Host: cfg.DBHost,
		Port: cfg.DBPort,
		Name: cfg.DBName,
	})
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}
	defer db.Close()
	if cfg.DBMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			logger.Fatal("migrate database", zap.Error(err))
		}
	}

	// Redis is optional; without it rate limiting, caching and webhook
	// de-duplication are skipped.
	rdb, err := config.NewRedisClient(ctx, config.LoadRedisConfig())
	if err != nil {
		logger.Warn("redis unavailable, continuing without it", zap.Error(err))
	} else {
		defer rdb.Close()
	}

	store := repository.NewStore(db)
	holds := service.NewHoldManager(store, cfg.HoldTTL, nil)
	availability := service.NewAvailabilityCalculator(store, nil)

	gateway := payment.NewStripeGateway(cfg.StripeSecretKey, nil, payment.GatewayConfig{
		WebBase:    cfg.WebBase,
		Currency:   cfg.Currency,
		Locale:     cfg.CheckoutLocale,
		SessionTTL: cfg.CheckoutSessionTTL,
	})

	var publisher ports.EventPublisher
	if cfg.RabbitURL != "" {
		publisher = queue.NewPublisher(cfg.RabbitURL, logger.Named("queue"))
		if cfg.RabbitConsumer {
			consumer := queue.NewConsumer(cfg.RabbitURL, cfg.BookingLogPath, logger.Named("consumer"))
			go func() {
				if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("booking consumer stopped", zap.Error(err))
				}
			}()
		}
	}
	workflow := service.NewReservationWorkflow(store, holds, gateway, publisher, logger.Named("workflow"), nil)

	if cfg.SweepEnabled {
		keeper := service.NewHousekeeper(store, holds, cfg.AbandonAfter, logger.Named("housekeeping"), nil)
		go worker.NewSweeper(keeper, cfg.SweepInterval, logger.Named("sweeper")).Start(ctx)
	}

	var dedupe handler.Deduper
	if rdb != nil {
		dedupe = idempotency.NewStore(rdb, "idem", cfg.IdempotencyTTL)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(logger.Named("http")))
	e.Use(router.CORS(cfg.CORSOrigin))

	router.RegisterRoutes(e)
	router.RegisterPublic(e, router.Public{
		Availability: handler.NewAvailabilityHandler(availability, logger),
		Checkout:     handler.NewCheckoutHandler(workflow, logger),
		Webhook:      handler.NewWebhookHandler(payment.NewWebhookVerifier(cfg.StripeWebhookSecret), workflow, dedupe, logger),
		Store:        store,
		RateLimit:    middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger),
		Cache:        middleware.NewRedisCache(config.LoadCacheConfig(), rdb, logger),
	})
	router.RegisterAdmin(e, handler.NewAdminHandler(workflow, logger), cfg.JWTSecret)

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("http server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown", zap.Error(err))
	}
	logger.Info("stopped")
}
