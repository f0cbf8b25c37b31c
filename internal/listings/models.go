package listings

import "time"

// Listing is the denormalized read model of a marketplace listing. The
// marketplace owns the source of truth; this service only reads it for
// ownership checks, price snapshots, and the AI payload.
type Listing struct {
	ID         string    `json:"id" db:"id"`
	LandlordID string    `json:"landlord_id" db:"landlord_id"`
	Title      string    `json:"title" db:"title"`
	Price      float64   `json:"price" db:"price"`
	Deposit    float64   `json:"deposit" db:"deposit"`
	Location   string    `json:"location" db:"location"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}
