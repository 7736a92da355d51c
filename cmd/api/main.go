package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/kartly/storefront-backend/api/routes"
	"github.com/kartly/storefront-backend/internal/coupons"
	"github.com/kartly/storefront-backend/internal/notifications"
	"github.com/kartly/storefront-backend/internal/orders"
	"github.com/kartly/storefront-backend/internal/payments"
	"github.com/kartly/storefront-backend/internal/pricing"
	"github.com/kartly/storefront-backend/internal/products"
	"github.com/kartly/storefront-backend/internal/settlement"
	"github.com/kartly/storefront-backend/internal/users"
	"github.com/kartly/storefront-backend/pkg/config"
	"github.com/kartly/storefront-backend/pkg/db"
	"github.com/kartly/storefront-backend/pkg/instance"
	"github.com/kartly/storefront-backend/pkg/logger"
	"github.com/kartly/storefront-backend/pkg/metrics"
	"github.com/kartly/storefront-backend/pkg/migrate"
	"github.com/kartly/storefront-backend/pkg/outbox"
	"github.com/kartly/storefront-backend/pkg/razorpay"
	"github.com/kartly/storefront-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	// Money leaves the API as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	gateway, err := razorpay.NewClient(cfg.Razorpay, nil, logg)
	if err != nil {
		return err
	}

	settlementMetrics := metrics.NewSettlementMetrics(prometheus.DefaultRegisterer)
	httpMetrics := metrics.NewHTTPMetrics(prometheus.DefaultRegisterer)

	conn := dbClient.DB()
	productRepo := products.NewRepository(conn)
	couponRepo := coupons.NewRepository(conn)
	orderRepo := orders.NewRepository(conn)
	userRepo := users.NewRepository(conn)
	outboxSvc := outbox.NewService(outbox.NewRepository(conn), logg)

	resolver, err := pricing.NewResolver(productRepo, couponRepo, logg)
	if err != nil {
		return err
	}
	broker, err := payments.NewBroker(gateway, redisClient, cfg.Razorpay, cfg.Settlement, settlementMetrics, logg)
	if err != nil {
		return err
	}
	notifier, err := notifications.NewNotifier(dbClient, outboxSvc, userRepo)
	if err != nil {
		return err
	}
	ordersSvc, err := orders.NewService(orderRepo, dbClient, outboxSvc, notifier, logg)
	if err != nil {
		return err
	}
	membershipSvc, err := users.NewService(userRepo)
	if err != nil {
		return err
	}
	settlementSvc, err := settlement.NewService(settlement.Deps{
		Resolver:  resolver,
		Sessions:  broker,
		Verifier:  gateway,
		Locker:    redisClient,
		Tx:        dbClient,
		Orders:    orderRepo,
		Coupons:   couponRepo,
		Users:     userRepo,
		Outbox:    outboxSvc,
		Notifier:  notifier,
		Metrics:   settlementMetrics,
		Logger:    logg,
		Razorpay:  cfg.Razorpay,
		Config:    cfg.Settlement,
		Ownership: cfg.FeatureFlags.EnforceSessionOwnership,
	})
	if err != nil {
		return err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, prometheus.DefaultGatherer, httpMetrics,
			resolver, broker, settlementSvc, ordersSvc, membershipSvc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logg.Info(ctx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
