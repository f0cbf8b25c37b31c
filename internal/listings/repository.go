package listings

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/howshous/analytics/internal/common/apperr"
	"github.com/howshous/analytics/internal/common/db"
)

// Reader is the view of listings the analytics and insights services need.
type Reader interface {
	GetListing(ctx context.Context, listingID string) (*Listing, error)
	ListByLandlord(ctx context.Context, landlordID string) ([]*Listing, error)
}

type Repository struct {
	db *db.DB
}

func NewRepository(database *db.DB) *Repository {
	return &Repository{db: database}
}

var _ Reader = (*Repository)(nil)

// GetListing retrieves a single listing by id.
func (r *Repository) GetListing(ctx context.Context, listingID string) (*Listing, error) {
	query := `
		SELECT id, landlord_id, title, price, deposit, location, created_at, updated_at
		FROM listings
		WHERE id = $1
	`

	listing := &Listing{}
	err := r.db.QueryRowContext(ctx, query, listingID).Scan(
		&listing.ID,
		&listing.LandlordID,
		&listing.Title,
		&listing.Price,
		&listing.Deposit,
		&listing.Location,
		&listing.CreatedAt,
		&listing.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.NotFound, "Listing not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}

	return listing, nil
}

// ListByLandlord retrieves all listings owned by a landlord.
func (r *Repository) ListByLandlord(ctx context.Context, landlordID string) ([]*Listing, error) {
	query := `
		SELECT id, landlord_id, title, price, deposit, location, created_at, updated_at
		FROM listings
		WHERE landlord_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query, landlordID)
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	defer rows.Close()

	var result []*Listing
	for rows.Next() {
		listing := &Listing{}
		err := rows.Scan(
			&listing.ID,
			&listing.LandlordID,
			&listing.Title,
			&listing.Price,
			&listing.Deposit,
			&listing.Location,
			&listing.CreatedAt,
			&listing.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		result = append(result, listing)
	}

	return result, rows.Err()
}
