package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/kartly/storefront-backend/internal/notifications"
	"github.com/kartly/storefront-backend/pkg/config"
	"github.com/kartly/storefront-backend/pkg/instance"
	"github.com/kartly/storefront-backend/pkg/logger"
	"github.com/kartly/storefront-backend/pkg/outbox/idempotency"
	"github.com/kartly/storefront-backend/pkg/pubsub"
	"github.com/kartly/storefront-backend/pkg/redis"
)

const serviceKind = "notification-worker"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceKind})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceKind

	logg = logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": serviceKind,
		"instance":    instance.GetID(),
	})

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "notification worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "notification worker shutting down gracefully")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	if cfg.PubSub.NotificationSubscription == "" {
		return errors.New("KARTLY_PUBSUB_NOTIFICATION_SUBSCRIPTION is required")
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, pubsubClient.Close()) }()

	manager, err := idempotency.NewManager(redisClient, cfg.Outbox.ConsumerIdempotencyTTL)
	if err != nil {
		return err
	}

	consumer, err := notifications.NewConsumer(
		pubsubClient.NotificationSubscriber(),
		manager,
		notifications.NewLogSender(logg),
		logg,
	)
	if err != nil {
		return err
	}

	logg.Info(logg.WithField(ctx, "subscription", cfg.PubSub.NotificationSubscription), "starting notification worker")
	return consumer.Run(ctx)
}
