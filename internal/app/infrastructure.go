package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prperemyshlev/school-auth-service/internal/config"
	"github.com/prperemyshlev/school-auth-service/internal/repository"
	"github.com/prperemyshlev/school-auth-service/internal/repository/memory"
	"github.com/prperemyshlev/school-auth-service/internal/repository/mongostore"
	"github.com/prperemyshlev/school-auth-service/migrations"
	"github.com/prperemyshlev/school-auth-service/pkg/database"
	"github.com/prperemyshlev/school-auth-service/pkg/observability"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

type Infrastructure interface {
	Repositories() *repository.Repositories
	Redis() *database.Redis
	Logger() *zap.Logger
	MetricsHandler() http.Handler
	MeterProvider() *metric.MeterProvider
	HealthChecks() []HealthCheck

	Shutdown(ctx context.Context) error
}

type infrastructure struct {
	repos          *repository.Repositories
	postgres       *database.Postgres
	mongo          *database.Mongo
	redis          *database.Redis
	logger         *zap.Logger
	metricsHandler http.Handler
	meterProvider  *metric.MeterProvider
}

var _ Infrastructure = &infrastructure{}

func NewInfrastructure(ctx context.Context, cfg config.Config) (_ *infrastructure, err error) {
	i := &infrastructure{}

	logger, err := observability.InitLogger(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	i.logger = logger

	defer func() {
		if err != nil {
			_ = i.closeStores()
		}
	}()

	if err := i.openStorage(ctx, cfg); err != nil {
		return nil, err
	}

	redis, err := database.NewRedis(cfg.Redis.Address(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	i.redis = redis

	meterProvider, metricsHandler, err := observability.InitTelemetry(serviceName)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	i.meterProvider = meterProvider
	i.metricsHandler = metricsHandler

	return i, nil
}

func (i *infrastructure) openStorage(ctx context.Context, cfg config.Config) error {
	switch cfg.Database.Driver {
	case config.DriverMongo:
		mongo, err := database.NewMongo(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.ConnectTimeout.Duration)
		if err != nil {
			return fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		i.mongo = mongo

		if err := mongostore.EnsureIndexes(ctx, mongo.DB); err != nil {
			return fmt.Errorf("failed to create MongoDB indexes: %w", err)
		}
		i.repos = mongostore.NewRepositories(mongo.DB)

	case config.DriverMemory:
		i.logger.Warn("Using in-memory storage, data is lost on restart")
		i.repos, _ = memory.NewRepositories()

	default:
		if cfg.Database.MigrateOnStart {
			if err := runMigrations(cfg.Postgres.DSN(), i.logger); err != nil {
				return err
			}
		}

		postgres, err := database.NewPostgres(cfg.Postgres.DSN())
		if err != nil {
			return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		i.postgres = postgres
		i.repos = repository.NewRepositories(postgres)
	}

	i.logger.Info("Storage ready", zap.String("driver", cfg.Database.Driver))
	return nil
}

func runMigrations(dsn string, logger *zap.Logger) error {
	migrator, err := database.NewMigrator(dsn, migrations.FS)
	if err != nil {
		return fmt.Errorf("failed to prepare migrations: %w", err)
	}
	defer migrator.Close()

	if err := migrator.Up(); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := migrator.Version()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	logger.Info("Schema migrated", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

func (i *infrastructure) Repositories() *repository.Repositories {
	return i.repos
}

func (i *infrastructure) Redis() *database.Redis {
	return i.redis
}

func (i *infrastructure) Logger() *zap.Logger {
	return i.logger
}

func (i *infrastructure) MetricsHandler() http.Handler {
	return i.metricsHandler
}

func (i *infrastructure) MeterProvider() *metric.MeterProvider {
	return i.meterProvider
}

func (i *infrastructure) HealthChecks() []HealthCheck {
	checks := []HealthCheck{{Name: "redis", Ping: i.redis.Ping}}
	if i.postgres != nil {
		checks = append(checks, HealthCheck{Name: "postgres", Ping: i.postgres.Ping})
	}
	if i.mongo != nil {
		checks = append(checks, HealthCheck{Name: "mongo", Ping: i.mongo.Ping})
	}
	return checks
}

func (i *infrastructure) closeStores() error {
	var errs []error
	if i.postgres != nil {
		errs = append(errs, i.postgres.Close())
	}
	if i.mongo != nil {
		errs = append(errs, i.mongo.Close())
	}
	if i.redis != nil {
		errs = append(errs, i.redis.Close())
	}
	return errors.Join(errs...)
}

func (i *infrastructure) Shutdown(ctx context.Context) error {
	errs := make(chan error, 2)

	go func() { errs <- i.closeStores() }()
	go func() { errs <- observability.Shutdown(ctx, i.meterProvider, i.logger) }()

	return errors.Join(<-errs, <-errs)
}
