package analytics

import (
	"time"
)

// Analytics event types emitted by the marketplace clients.
const (
	EventListingView     = "LISTING_VIEW"
	EventListingSave     = "LISTING_SAVE"
	EventListingMessage  = "LISTING_MESSAGE"
	EventSearchPerformed = "SEARCH_PERFORMED"
)

// AnalyticsEvent is a single raw usage event. Events are immutable: producers
// create them once and the pipeline never mutates them, only the rollups
// derived from them.
type AnalyticsEvent struct {
	EventID    string     `json:"event_id,omitempty"`
	EventType  string     `json:"event_type"`
	ListingID  string     `json:"listing_id,omitempty"`
	LandlordID string     `json:"landlord_id,omitempty"`
	UserID     string     `json:"user_id,omitempty"`
	SessionID  string     `json:"session_id,omitempty"`
	ChatID     string     `json:"chat_id,omitempty"`
	FilterKeys []string   `json:"filter_keys,omitempty"`
	MinPrice   float64    `json:"min_price,omitempty"`
	MaxPrice   float64    `json:"max_price,omitempty"`
	Amenities  []string   `json:"amenities,omitempty"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`
}

// ListingMetrics holds cumulative, all-time counters for one listing. Counters
// are monotonically non-decreasing; each qualifying dedup key increments them
// exactly once.
type ListingMetrics struct {
	ListingID          string     `json:"listing_id" db:"listing_id"`
	UniqueSessionViews int64      `json:"unique_session_views" db:"unique_session_views"`
	TotalSaves         int64      `json:"total_saves" db:"total_saves"`
	FirstMessageCount  int64      `json:"first_message_count" db:"first_message_count"`
	LastViewedAt       *time.Time `json:"last_viewed_at,omitempty" db:"last_viewed_at"`
	LastViewedDate     string     `json:"last_viewed_date,omitempty" db:"last_viewed_date"`
	LastSavedAt        *time.Time `json:"last_saved_at,omitempty" db:"last_saved_at"`
	LastSavedDate      string     `json:"last_saved_date,omitempty" db:"last_saved_date"`
	LastMessageAt      *time.Time `json:"last_message_at,omitempty" db:"last_message_at"`
	LastMessageDate    string     `json:"last_message_date,omitempty" db:"last_message_date"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
}

// DailyStat is the per-listing, per-UTC-date rollup the windowed reader sums
// over. Daily views dedup per (listing, date, session) while cumulative views
// dedup per (listing, session) for all time; the two granularities are
// intentionally different and must not be conflated.
type DailyStat struct {
	ListingID      string     `json:"listing_id" db:"listing_id"`
	LandlordID     string     `json:"landlord_id" db:"landlord_id"`
	EventDate      string     `json:"event_date" db:"event_date"`
	Views          int64      `json:"views" db:"views"`
	UniqueSessions int64      `json:"unique_sessions" db:"unique_sessions"`
	Saves          int64      `json:"saves" db:"saves"`
	Messages       int64      `json:"messages" db:"messages"`
	LastViewedAt   *time.Time `json:"last_viewed_at,omitempty" db:"last_viewed_at"`
	LastSavedAt    *time.Time `json:"last_saved_at,omitempty" db:"last_saved_at"`
	LastMessageAt  *time.Time `json:"last_message_at,omitempty" db:"last_message_at"`
}

// SearchMetricsDay is the global per-date rollup of search filter usage.
// FilterUsage accumulates; amenities and price samples are last-write-wins.
type SearchMetricsDay struct {
	EventDate      string           `json:"event_date" db:"event_date"`
	FilterUsage    map[string]int64 `json:"filter_usage" db:"filter_usage"`
	AmenitiesUsed  []string         `json:"amenities_used" db:"amenities_used"`
	MinPriceSample float64          `json:"min_price_sample" db:"min_price_sample"`
	MaxPriceSample float64          `json:"max_price_sample" db:"max_price_sample"`
	LastUpdatedAt  time.Time        `json:"last_updated_at" db:"last_updated_at"`
}

// ViewApply is the dedup-keyed input for a LISTING_VIEW rollup.
type ViewApply struct {
	ListingID  string
	LandlordID string
	SessionID  string
	Timestamp  time.Time
	EventDate  string
}

// ViewOutcome reports which dedup levels counted the view.
type ViewOutcome struct {
	CountedUnique bool // all-time (listing, session) key was new
	CountedDaily  bool // (listing, date, session) key was new
}

// SaveApply is the dedup-keyed input for a LISTING_SAVE rollup.
type SaveApply struct {
	ListingID  string
	LandlordID string
	UserID     string
	Timestamp  time.Time
	EventDate  string
}

// MessageApply is the dedup-keyed input for a LISTING_MESSAGE rollup.
type MessageApply struct {
	ListingID  string
	LandlordID string
	ChatID     string
	Timestamp  time.Time
	EventDate  string
}

// SearchDayUpdate carries the whitelisted filter data applied to a search day.
type SearchDayUpdate struct {
	EventDate  string
	FilterKeys []string
	MinPrice   float64
	MaxPrice   float64
	Amenities  []string
	Timestamp  time.Time
}

// WindowedMetrics holds 7-day and 30-day sums over DailyStat rows. Windows are
// "most recent N calendar days", not exact 24h*N spans.
type WindowedMetrics struct {
	ListingID         string `json:"listing_id"`
	Views7d           int64  `json:"views_7d"`
	UniqueSessions7d  int64  `json:"unique_sessions_7d"`
	Saves7d           int64  `json:"saves_7d"`
	Messages7d        int64  `json:"messages_7d"`
	Views30d          int64  `json:"views_30d"`
	UniqueSessions30d int64  `json:"unique_sessions_30d"`
	Saves30d          int64  `json:"saves_30d"`
	Messages30d       int64  `json:"messages_30d"`
}

// MetricsBucket is one window's worth of counters in API responses.
type MetricsBucket struct {
	Views          int64 `json:"views"`
	UniqueSessions int64 `json:"unique_sessions"`
	Saves          int64 `json:"saves"`
	Messages       int64 `json:"messages"`
}

// ConversionRates are stage-to-stage funnel ratios; zero when the denominator
// is zero.
type ConversionRates struct {
	SavePerView    float64 `json:"save_per_view"`
	MessagePerView float64 `json:"message_per_view"`
	MessagePerSave float64 `json:"message_per_save"`
}

// Funnel is the view → save → message sequence over a window.
type Funnel struct {
	Views    int64 `json:"views"`
	Saves    int64 `json:"saves"`
	Messages int64 `json:"messages"`
}

// Funnel30d adds conversion rates to the 30-day funnel.
type Funnel30d struct {
	Views           int64           `json:"views"`
	Saves           int64           `json:"saves"`
	Messages        int64           `json:"messages"`
	ConversionRates ConversionRates `json:"conversion_rates"`
}

// ListingMetricsResponse is the API response for the listing metrics endpoint.
type ListingMetricsResponse struct {
	ListingID  string        `json:"listing_id"`
	LandlordID string        `json:"landlord_id"`
	Metrics7d  MetricsBucket `json:"metrics_7d"`
	Metrics30d MetricsBucket `json:"metrics_30d"`
	Funnel30d  Funnel30d     `json:"funnel_30d"`
}

// FilterCount is one entry of the global top-filters list.
type FilterCount struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// PriceSnapshot is the listing's current price context attached to summaries.
type PriceSnapshot struct {
	Price    float64 `json:"price"`
	Deposit  float64 `json:"deposit"`
	Location string  `json:"location"`
	Title    string  `json:"title"`
}

// ListingSummaryResponse is the AI-ready analytics summary for one listing.
type ListingSummaryResponse struct {
	ListingID     string        `json:"listing_id"`
	LandlordID    string        `json:"landlord_id"`
	WindowDays    int           `json:"window_days"`
	Metrics       MetricsBucket `json:"metrics"`
	Funnel        Funnel        `json:"funnel"`
	TopFilters    []FilterCount `json:"top_filters"`
	PriceSnapshot PriceSnapshot `json:"price_snapshot"`
}

// IngestResponse acknowledges an accepted event.
type IngestResponse struct {
	EventID string `json:"event_id"`
	Status  string `json:"status"`
}
