package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bissquit/status24/internal/config"
	"github.com/bissquit/status24/internal/pkg/metrics"
	"github.com/bissquit/status24/internal/pkg/mongo"
	"github.com/bissquit/status24/internal/pkg/postgres"
	"github.com/bissquit/status24/internal/statuspage"
	"github.com/bissquit/status24/internal/statuspage/memory"
	statuspagemongo "github.com/bissquit/status24/internal/statuspage/mongo"
	statuspagepostgres "github.com/bissquit/status24/internal/statuspage/postgres"
	"github.com/bissquit/status24/migrations"
)

// store is the document store selected by database.driver together with the
// function releasing its connections.
type store struct {
	repo  statuspage.Repository
	close func(context.Context) error
}

func openStore(ctx, metricsCtx context.Context, cfg config.DatabaseConfig) (*store, error) {
	var (
		repo    statuspage.Repository
		closeFn = func(context.Context) error { return nil }
	)

	switch cfg.Driver {
	case config.DriverMongo:
		client, err := mongo.Connect(ctx, mongo.Config{
			URL:             cfg.URL,
			MaxPoolSize:     uint64(cfg.MaxOpenConns),
			MinPoolSize:     uint64(cfg.MaxIdleConns),
			ConnectAttempts: cfg.ConnectAttempts,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to mongodb: %w", err)
		}
		repo = statuspagemongo.NewRepository(client, client.Database(cfg.MongoDatabase))
		closeFn = client.Disconnect

	case config.DriverPostgres:
		pool, err := postgres.Connect(ctx, postgres.Config{
			URL:             cfg.URL,
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
			ConnectAttempts: cfg.ConnectAttempts,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := postgres.Migrate(migrations.FS, cfg.URL); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		go metrics.CollectDBPoolMetrics(metricsCtx, pool)
		repo = statuspagepostgres.NewRepository(pool)
		closeFn = func(context.Context) error {
			pool.Close()
			return nil
		}

	case config.DriverMemory:
		slog.Warn("using in-memory store: data is lost on restart")
		repo = memory.NewRepository()

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}

	return &store{
		repo:  statuspage.NewInstrumentedRepository(repo, cfg.Driver),
		close: closeFn,
	}, nil
}
