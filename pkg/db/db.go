package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"roombooking/pkg/config"
)

func Open(ctx context.Context, cfg config.Config) (*pgxpool.Pool, error) {
	connString := runtimeConnString(cfg)

	// Poolers running PgBouncer in transaction mode do not support prepared statements.
	// Their DSN typically includes `pgbouncer=true`.
	pcfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, err
	}
	if strings.Contains(strings.ToLower(connString), "pgbouncer=true") {
		pcfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
		pcfg.ConnConfig.StatementCacheCapacity = 0
		pcfg.ConnConfig.DescriptionCacheCapacity = 0
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Retryable reports whether err means the transaction lost a race for a lock
// and can be run again from the start.
func Retryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", // serialization_failure
		"40P01", // deadlock_detected
		"55P03": // lock_not_available
		return true
	}
	return false
}

// WithTxRetry runs WithTx up to attempts times while the failure is Retryable,
// sleeping with linear backoff between attempts.
func WithTxRetry(ctx context.Context, pool *pgxpool.Pool, attempts int, fn func(tx pgx.Tx) error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		err = WithTx(ctx, pool, fn)
		if err == nil || !Retryable(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(i+1) * 25 * time.Millisecond):
		}
	}
	return fmt.Errorf("gave up after %d attempts: %w", attempts, err)
}

func runtimeConnString(cfg config.Config) string {
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		return cfg.DatabaseURL
	}
	return dsn(cfg.DB)
}

func migrationConnString(cfg config.Config) string {
	if strings.TrimSpace(cfg.DirectURL) != "" {
		return cfg.DirectURL
	}
	// Fall back to runtime conn string; works for local dev, but behind a pooler
	// migrations should use DIRECT_URL.
	return runtimeConnString(cfg)
}

func dsn(cfg config.DBConfig) string {
	sslmode := cfg.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name, sslmode,
	)
}
