package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/services/catalog-service-go/internal/auth"
	"github.com/andreasstove999/ecommerce-system/services/catalog-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/services/catalog-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/services/catalog-service-go/internal/config"
	"github.com/andreasstove999/ecommerce-system/services/catalog-service-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/services/catalog-service-go/internal/events"
	httpapi "github.com/andreasstove999/ecommerce-system/services/catalog-service-go/internal/http"
	"github.com/andreasstove999/ecommerce-system/services/catalog-service-go/internal/idempotency"
	"github.com/andreasstove999/ecommerce-system/services/catalog-service-go/internal/logging"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.IsDevelopment())
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- DB ---
	if cfg.RunMigrations {
		if err := db.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
			logger.Fatal("db migrate", zap.Error(err))
		}
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseDSN, cfg.DBMaxConns)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	if cfg.SeedCatalog {
		if err := db.Seed(ctx, pool, logger); err != nil {
			logger.Fatal("db seed", zap.Error(err))
		}
	}

	products := catalog.NewPostgresRepository(pool)
	carts := cart.NewPostgresRepository(pool)

	// --- events ---
	var cartEvents cart.Publisher
	pubOpts := events.PublisherOptions{Sequencer: events.NewSequenceRepository(pool)}

	switch cfg.EventBus {
	case config.EventBusRabbitMQ:
		conn, err := events.Dial(cfg.RabbitURL)
		if err != nil {
			logger.Fatal("rabbitmq connect", zap.Error(err))
		}
		defer closeRabbit(conn, logger)

		pub, err := events.NewRabbitPublisher(conn, pubOpts)
		if err != nil {
			logger.Fatal("rabbitmq publisher", zap.Error(err))
		}
		defer closePublisher(pub, logger)
		cartEvents = pub
	case config.EventBusKafka:
		pub := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, pubOpts)
		defer closePublisher(pub, logger)
		cartEvents = pub
	case config.EventBusNone:
	default:
		logger.Warn("unknown event bus, events disabled", zap.String("event_bus", cfg.EventBus))
	}
	logger.Info("event bus", zap.String("event_bus", cfg.EventBus))

	catalogSvc := catalog.NewService(products, logger.Named("catalog"))
	cartSvc := cart.NewService(carts, products, cartEvents, logger.Named("cart"))

	// --- HTTP ---
	opts := httpapi.RouterOptions{
		CORSAllowOrigins: cfg.CORSAllowOrigins,
		RequestTimeout:   cfg.RequestTimeout,
	}
	if cfg.AdminJWTSecret != "" {
		opts.AdminVerifier = auth.NewVerifier(cfg.AdminJWTSecret)
	} else {
		logger.Warn("ADMIN_JWT_SECRET not set, product administration disabled")
	}
	if cfg.RedisAddr != "" {
		rdb := idempotency.NewRedisClient(cfg.RedisAddr)
		defer func() { _ = rdb.Close() }()
		opts.Idempotency = idempotency.Middleware(
			idempotency.NewRedisStore(rdb),
			cfg.IdempotencyTTL,
			httpapi.CartAddIdempotencyKey,
			logger.Named("idempotency"),
		)
	}

	h := httpapi.NewHandler(catalogSvc, cartSvc, logger.Named("http"))
	r := httpapi.NewRouter(h, opts)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("http server failed", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown", zap.Error(err))
	}
	cancel()

	logger.Info("shutdown complete")
}

func closePublisher(pub *events.Publisher, logger *zap.Logger) {
	if err := pub.Close(); err != nil {
		logger.Warn("publisher close", zap.Error(err))
	}
}

func closeRabbit(conn *amqp.Connection, logger *zap.Logger) {
	if err := conn.Close(); err != nil {
		logger.Warn("rabbitmq close", zap.Error(err))
	}
}
