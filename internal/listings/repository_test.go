package listings

import (
	"context"
	"testing"
	"time"

	"github.com/howshous/analytics/internal/common/apperr"
	"github.com/howshous/analytics/internal/common/config"
	"github.com/howshous/analytics/internal/common/db"
	"github.com/howshous/analytics/internal/common/logger"
)

func setupTestRepository(t *testing.T) *Repository {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	dbCfg := config.DatabaseConfig{
		Host:            "localhost",
		Port:            "5432",
		User:            "postgres",
		Password:        "postgres",
		DBName:          "howshous_analytics_test",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}

	log := logger.New("test")
	database, err := db.Connect(dbCfg, log)
	if err != nil {
		t.Skipf("Cannot connect to database: %v", err)
		return nil
	}
	t.Cleanup(func() { database.Close() })

	schema := `
	CREATE TABLE IF NOT EXISTS listings (
		id VARCHAR(64) PRIMARY KEY,
		landlord_id VARCHAR(64) NOT NULL,
		title VARCHAR(255) NOT NULL,
		price NUMERIC(14, 2) NOT NULL DEFAULT 0,
		deposit NUMERIC(14, 2) NOT NULL DEFAULT 0,
		location VARCHAR(255) NOT NULL DEFAULT '',
		created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	);

	TRUNCATE listings;

	INSERT INTO listings (id, landlord_id, title, price, deposit, location) VALUES
		('listing-1', 'landlord-1', 'Kost Melati', 1500000, 500000, 'Bandung'),
		('listing-2', 'landlord-1', 'Kost Anggrek', 1200000, 400000, 'Bandung'),
		('listing-3', 'landlord-2', 'Kost Mawar', 900000, 300000, 'Jakarta');
	`

	if _, err := database.Exec(schema); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return NewRepository(database)
}

func TestGetListing(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	listing, err := repo.GetListing(ctx, "listing-1")
	if err != nil {
		t.Fatalf("GetListing() error = %v", err)
	}
	if listing.LandlordID != "landlord-1" || listing.Title != "Kost Melati" {
		t.Errorf("unexpected listing: %+v", listing)
	}
	if listing.Price != 1500000 {
		t.Errorf("Price = %v, want 1500000", listing.Price)
	}

	_, err = repo.GetListing(ctx, "missing")
	if apperr.KindOf(err) != apperr.NotFound {
		t.Errorf("error kind = %v, want %v", apperr.KindOf(err), apperr.NotFound)
	}
}

func TestListByLandlord(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	owned, err := repo.ListByLandlord(ctx, "landlord-1")
	if err != nil {
		t.Fatalf("ListByLandlord() error = %v", err)
	}
	if len(owned) != 2 {
		t.Fatalf("listings count = %d, want 2", len(owned))
	}

	none, err := repo.ListByLandlord(ctx, "landlord-9")
	if err != nil {
		t.Fatalf("ListByLandlord() error = %v", err)
	}
	if len(none) != 0 {
		t.Errorf("listings count = %d, want 0", len(none))
	}
}
