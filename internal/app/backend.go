package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/laocai-wudi/chunmpre.cn/internal/codec"
	"github.com/laocai-wudi/chunmpre.cn/internal/config"
	"github.com/laocai-wudi/chunmpre.cn/internal/featured"
	"github.com/laocai-wudi/chunmpre.cn/internal/repository"
	"github.com/laocai-wudi/chunmpre.cn/internal/repository/memory"
	"github.com/laocai-wudi/chunmpre.cn/internal/repository/postgres"
	"github.com/laocai-wudi/chunmpre.cn/migrations"
	"github.com/laocai-wudi/chunmpre.cn/pkg/database"
)

// Backend is an opened storage driver with its featured-slot allocator.
type Backend struct {
	Store repository.Store
	Slots *featured.Allocator

	// Pool is nil for the memory driver.
	Pool *pgxpool.Pool
}

// OpenBackend connects the configured storage driver. With migrate set, the
// embedded schema is applied before the repositories are built.
func OpenBackend(ctx context.Context, cfg *config.Config, migrate bool, logger *slog.Logger) (*Backend, error) {
	c := codec.New(logger)

	if cfg.StorageDriver == config.StorageMemory {
		db := memory.New(c)
		slots := featured.NewAllocator(db, cfg.FeaturedCap, logger)
		logger.Warn("using in-memory storage, data is lost on restart")
		return &Backend{Store: db.Store(slots), Slots: slots}, nil
	}

	pgCfg := cfg.PostgresConfig()
	pool, err := database.NewPostgresPoolWithLogger(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)

	if migrate {
		if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("database migrations completed")
	}

	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}

	slots := featured.NewAllocator(postgres.NewFeaturedStore(pool), cfg.FeaturedCap, logger)
	return &Backend{
		Store: postgres.NewStore(pool, slots, c),
		Slots: slots,
		Pool:  pool,
	}, nil
}

// Ping checks the storage connection.
func (b *Backend) Ping(ctx context.Context) error {
	if b.Pool == nil {
		return nil
	}
	return b.Pool.Ping(ctx)
}

// Close releases the connection pool.
func (b *Backend) Close() {
	if b.Pool != nil {
		b.Pool.Close()
	}
}
