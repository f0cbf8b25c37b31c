package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/howshous/analytics/internal/common/config"
	"github.com/howshous/analytics/internal/common/logger"
)

// DB wraps *sql.DB with transaction helpers shared by all repositories.
type DB struct {
	*sql.DB
	logger *logger.Logger
}

// Connect opens a Postgres connection pool and verifies it with a ping.
func Connect(cfg config.DatabaseConfig, log *logger.Logger) (*DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Infof("Connected to Postgres %s:%s/%s", cfg.Host, cfg.Port, cfg.DBName)
	return &DB{DB: sqlDB, logger: log}, nil
}

// Health verifies the database connection is alive.
func (d *DB) Health(ctx context.Context) error {
	return d.PingContext(ctx)
}

// WithTransaction runs fn inside a transaction, committing on nil error and
// rolling back otherwise.
func (d *DB) WithTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// maxTxAttempts bounds optimistic-concurrency retries before the conflict is
// surfaced to the caller as transient.
const maxTxAttempts = 5

// WithRetryableTransaction runs fn like WithTransaction but retries bounded
// times when Postgres reports a serialization failure or deadlock. Callers
// must make fn safe to re-run with the same inputs.
func (d *DB) WithRetryableTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	var lastErr error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		lastErr = d.WithTransaction(ctx, fn)
		if lastErr == nil || !IsRetryable(lastErr) {
			return lastErr
		}
		if attempt < maxTxAttempts {
			d.logger.Warnf("Transaction conflict (attempt %d/%d), retrying: %v", attempt, maxTxAttempts, lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 10 * time.Millisecond):
			}
		}
	}
	return fmt.Errorf("transaction did not commit after %d attempts: %w", maxTxAttempts, lastErr)
}

// IsRetryable reports whether err is a transient Postgres conflict
// (serialization failure or deadlock) worth retrying.
func IsRetryable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}
