package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/kursadbilgin/hme-generator/internal/config"
	"github.com/kursadbilgin/hme-generator/internal/domain"
	"github.com/kursadbilgin/hme-generator/internal/infra/postgresql"
	"github.com/kursadbilgin/hme-generator/internal/infra/postgresql/migrations"
	infraredis "github.com/kursadbilgin/hme-generator/internal/infra/redis"
	"github.com/kursadbilgin/hme-generator/internal/observability"
	"github.com/kursadbilgin/hme-generator/internal/provider"
	"github.com/kursadbilgin/hme-generator/internal/queue"
	"github.com/kursadbilgin/hme-generator/internal/repository"
	"github.com/kursadbilgin/hme-generator/internal/sink"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// application owns the configuration, the logger and every backend opened for a
// command. close releases them in reverse order.
type application struct {
	cfg     *config.Config
	logger  *zap.Logger
	closers []func() error
}

func newApplication() (*application, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}

	var outputs []string
	if cfg.LogFile != "" {
		outputs = append(outputs, cfg.LogFile)
	}
	logger, err := observability.NewLogger(cfg.LogLevel, outputs...)
	if err != nil {
		return nil, err
	}

	a := &application{cfg: cfg, logger: logger}
	a.onClose(func() error {
		_ = logger.Sync()
		return nil
	})
	return a, nil
}

func (a *application) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("failed to release resource", zap.Error(err))
		}
	}
}

// addressService builds the iCloud client. A missing cookie file is only a
// warning: requests are still attempted and will likely be rejected.
func (a *application) addressService() (*provider.ICloudProvider, error) {
	cookie, err := provider.LoadCookie(a.cfg.CookieFile)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.logger.Warn("no cookie file found, generation might not work due to unauthorized access",
			zap.String("path", a.cfg.CookieFile),
		)
	case err != nil:
		return nil, err
	}

	clientID := a.cfg.ClientID
	if clientID == "" {
		clientID = uuid.NewString()
	}

	return provider.NewICloudProvider(provider.ICloudOptions{
		BaseURL:               a.cfg.BaseURL,
		Cookie:                cookie,
		ClientBuildNumber:     a.cfg.ClientBuildNumber,
		ClientMasteringNumber: a.cfg.ClientMasteringNumber,
		ClientID:              clientID,
		DSID:                  a.cfg.DSID,
		Label:                 a.cfg.Label,
		Note:                  a.cfg.Note,
		Timeout:               a.cfg.HTTPTimeout(),
	})
}

// windowLimiter connects the shared creation window when REDIS_URL is set.
func (a *application) windowLimiter(ctx context.Context) (*infraredis.RedisWindowLimiter, *redis.Client, error) {
	if a.cfg.RedisURL == "" {
		return nil, nil, nil
	}

	rdb, err := infraredis.NewRedis(ctx, a.cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("redis initialization failed: %w", err)
	}
	a.onClose(rdb.Close)

	limiter, err := infraredis.NewRedisWindowLimiter(rdb, a.cfg.RateLimitBatchSize, a.cfg.RateLimitWait())
	if err != nil {
		return nil, nil, err
	}
	return limiter, rdb, nil
}

// historyRepo opens the generation history database when DATABASE_DSN is set
// and applies pending migrations.
func (a *application) historyRepo(ctx context.Context) (*repository.GormHistoryRepo, *sql.DB, error) {
	if a.cfg.DatabaseDSN == "" {
		return nil, nil, nil
	}

	db, err := postgresql.NewPostgres(ctx, a.cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres initialization failed: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("postgres underlying db init failed: %w", err)
	}
	a.onClose(sqlDB.Close)

	if err := migrations.Migrate(db); err != nil {
		return nil, nil, fmt.Errorf("database migrations failed: %w", err)
	}
	return repository.NewGormHistoryRepo(db), sqlDB, nil
}

// historySink records persisted batches in Postgres when DATABASE_DSN is set.
func (a *application) historySink(ctx context.Context) (*sink.History, *sql.DB, error) {
	repo, sqlDB, err := a.historyRepo(ctx)
	if err != nil || repo == nil {
		return nil, nil, err
	}

	history, err := sink.NewHistory(repo)
	if err != nil {
		return nil, nil, err
	}
	return history, sqlDB, nil
}

// eventSink publishes generated addresses to RabbitMQ when RABBITMQ_URL is set.
func (a *application) eventSink(ctx context.Context) (*sink.Events, error) {
	if a.cfg.RabbitMQURL == "" {
		return nil, nil
	}

	mq, err := queue.NewRabbitMQ(ctx, a.cfg.RabbitMQURL)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq initialization failed: %w", err)
	}
	a.onClose(mq.Close)

	return sink.NewEvents(queue.NewRabbitMQPublisher(mq))
}
