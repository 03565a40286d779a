package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/quantlab/marketlab/internal/blob/s3"
	"github.com/quantlab/marketlab/internal/cache/redis"
	"github.com/quantlab/marketlab/internal/config"
	"github.com/quantlab/marketlab/internal/domain"
	"github.com/quantlab/marketlab/internal/notify"
	"github.com/quantlab/marketlab/internal/store/postgres"
)

// Dependencies bundles the optional adapters the modes hand to the market
// service. Any field may be nil when its backend is disabled; the service
// degrades to in-memory operation.
type Dependencies struct {
	TradeStore domain.TradeStore
	Cache      domain.SnapshotCache
	Bus        domain.SignalBus
	Archiver   domain.SnapshotArchiver
	Notifier   *notify.Notifier
}

// Wire constructs the enabled adapters and returns them with a cleanup
// function that releases resources in reverse order.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		deps.TradeStore = postgres.NewTradeStore(pgClient.Pool())
		logger.InfoContext(ctx, "postgres trade store wired")
	}

	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.Cache = redis.NewSnapshotCache(redisClient)
		deps.Bus = redis.NewSignalBus(redisClient)
		logger.InfoContext(ctx, "redis cache and signal bus wired")
	}

	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		deps.Archiver = s3blob.NewArchiver(s3Client)
		logger.InfoContext(ctx, "s3 snapshot archiver wired")
	}

	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	if len(senders) > 0 {
		deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)
		logger.InfoContext(ctx, "notifier wired", slog.Int("senders", len(senders)))
	}

	return deps, cleanup, nil
}
