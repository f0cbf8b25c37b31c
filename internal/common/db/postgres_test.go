package db

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/lib/pq"

	"github.com/howshous/analytics/internal/common/config"
	"github.com/howshous/analytics/internal/common/logger"
)

func testDatabaseConfig() config.DatabaseConfig {
	return config.DatabaseConfig{
		Host:            "localhost",
		Port:            "5432",
		User:            "postgres",
		Password:        "postgres",
		DBName:          "howshous_analytics_test",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

func TestConnect(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	log := logger.New("test")
	db, err := Connect(testDatabaseConfig(), log)
	if err != nil {
		t.Skipf("Cannot connect to database: %v", err)
		return
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.Health(ctx); err != nil {
		t.Errorf("Health check failed: %v", err)
	}
}

func TestWithTransaction(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	log := logger.New("test")
	db, err := Connect(testDatabaseConfig(), log)
	if err != nil {
		t.Skipf("Cannot connect to database: %v", err)
		return
	}
	defer db.Close()

	ctx := context.Background()

	err = db.WithTransaction(ctx, func(tx *sql.Tx) error {
		return nil
	})
	if err != nil {
		t.Errorf("Transaction failed: %v", err)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"serialization failure", &pq.Error{Code: "40001"}, true},
		{"deadlock detected", &pq.Error{Code: "40P01"}, true},
		{"unique violation", &pq.Error{Code: "23505"}, false},
		{"plain error", sql.ErrConnDone, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}
