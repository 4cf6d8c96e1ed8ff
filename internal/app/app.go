// Package app wires configuration into the repositories, locks, publisher and
// billing service shared by the API server and the scheduler.
package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/segyhp/repayment-engine/internal/config"
	"github.com/segyhp/repayment-engine/internal/events"
	"github.com/segyhp/repayment-engine/internal/lock"
	"github.com/segyhp/repayment-engine/internal/metrics"
	"github.com/segyhp/repayment-engine/internal/repository"
	"github.com/segyhp/repayment-engine/internal/service"
)

const cachePrefix = "repayment:"

type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	DB        *sqlx.DB
	Redis     redis.UniversalClient
	Publisher events.Publisher
	Metrics   *metrics.Metrics
	Service   *service.BillingService
}

// New connects to postgres and redis, applies migrations when enabled and
// builds the billing service. Close releases everything New opened.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	db, err := initDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	if cfg.Database.AutoMigrate {
		if err := repository.Migrate(cfg.Database.DSN()); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		log.Info("database migrations applied")
	}

	rdb, err := initRedis(ctx, cfg)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize redis: %w", err)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if brokers := cfg.GetKafkaBrokers(); len(brokers) > 0 {
		publisher = events.NewKafkaPublisher(brokers, cfg.Events.KafkaTopic)
		log.Info("publishing events to kafka", zap.Strings("brokers", brokers), zap.String("topic", cfg.Events.KafkaTopic))
	}

	m := metrics.New()
	svc := service.NewBillingService(service.Dependencies{
		Loans:     repository.NewLoanRepository(db),
		Schedules: repository.NewScheduleRepository(db),
		Payments:  repository.NewPaymentRepository(db),
		Cache:     repository.NewRedisCache(rdb, cachePrefix),
		Locker:    lock.NewRedisLocker(rdb, cfg.Redis.LockTTL, cfg.Redis.LockTTL),
		Publisher: publisher,
		Metrics:   m,
		Logger:    log,
		Config:    cfg,
	})

	return &App{
		Config:    cfg,
		Logger:    log,
		DB:        db,
		Redis:     rdb,
		Publisher: publisher,
		Metrics:   m,
		Service:   svc,
	}, nil
}

func (a *App) Close() {
	if err := a.Publisher.Close(); err != nil {
		a.Logger.Warn("close publisher", zap.Error(err))
	}
	if err := a.Redis.Close(); err != nil {
		a.Logger.Warn("close redis", zap.Error(err))
	}
	if err := a.DB.Close(); err != nil {
		a.Logger.Warn("close database", zap.Error(err))
	}
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	return db, nil
}

func initRedis(ctx context.Context, cfg *config.Config) (redis.UniversalClient, error) {
	opts := &redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	if cfg.Redis.URL != "" {
		parsed, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		opts = parsed
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
