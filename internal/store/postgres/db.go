package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

const openPingTimeout = 5 * time.Second

// PoolConfig carries the pool knobs from app config. Zero values leave the
// driver defaults in place. A non-nil QueryLog attaches a hook that logs
// every statement at debug and failures at error.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	QueryLog        *slog.Logger
}

// Open connects bun over the pgx stdlib driver and verifies the connection
// before handing the handle out.
func Open(databaseURL string, pool PoolConfig) (*bun.DB, error) {
	sqlDB, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	if pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}
	if pool.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(pool.ConnMaxIdleTime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), openPingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	db := bun.NewDB(sqlDB, pgdialect.New())
	if pool.QueryLog != nil {
		db.AddQueryHook(&queryLogger{
			log: pool.QueryLog.With(slog.String("component", "postgres")),
		})
	}
	return db, nil
}

func Close(db *bun.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}

type queryLogger struct {
	log *slog.Logger
}

func (h *queryLogger) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *queryLogger) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	elapsed := time.Since(event.StartTime)
	// sql.ErrNoRows is an ordinary miss, not an operator-relevant failure.
	if event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows) {
		h.log.Error(
			"query failed",
			slog.Any("err", event.Err),
			slog.String("operation", event.Operation()),
			slog.Duration("elapsed", elapsed),
		)
		return
	}
	h.log.Debug(
		"query",
		slog.String("operation", event.Operation()),
		slog.Duration("elapsed", elapsed),
	)
}
