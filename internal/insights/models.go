package insights

import "time"

// LandlordSummary aggregates 30-day totals and rates across all of a
// landlord's listings. Rates are one-decimal percentage strings so the payload
// encodes byte-identically for identical inputs.
type LandlordSummary struct {
	TotalViews30d        int64  `json:"total_views_30d"`
	TotalSaves30d        int64  `json:"total_saves_30d"`
	TotalMessages30d     int64  `json:"total_messages_30d"`
	AvgSaveRatePct       string `json:"avg_save_rate_pct"`
	AvgMessageRatePct    string `json:"avg_message_rate_pct"`
	SaveToMessageRatePct string `json:"save_to_message_rate_pct"`
}

// ListingInsight is one listing's windowed metrics and conversion rates in
// the AI payload.
type ListingInsight struct {
	ListingID          string  `json:"listing_id"`
	Title              string  `json:"title"`
	Price              float64 `json:"price"`
	Views7d            int64   `json:"views_7d"`
	Views30d           int64   `json:"views_30d"`
	Saves7d            int64   `json:"saves_7d"`
	Saves30d           int64   `json:"saves_30d"`
	Messages7d         int64   `json:"messages_7d"`
	Messages30d        int64   `json:"messages_30d"`
	SaveRatePct        string  `json:"save_rate_pct"`
	MessageRatePct     string  `json:"message_rate_pct"`
	SavesToMessagesPct string  `json:"saves_to_messages_pct"`
}

// LandlordAnalyticsPayload is the deterministic context handed to the hosted
// model. It is a pure function of current rollup state; the gateway hashes its
// JSON encoding as the cache key.
type LandlordAnalyticsPayload struct {
	Summary  LandlordSummary  `json:"summary"`
	Listings []ListingInsight `json:"listings"`
}

// CachedInsight is the last good model reply for one landlord, keyed by the
// payload and message fingerprints it answered.
type CachedInsight struct {
	LastReply   string    `json:"last_reply"`
	ContextHash string    `json:"context_hash"`
	MessageHash string    `json:"message_hash"`
	GeneratedAt time.Time `json:"generated_at"`
}

// ChatRequest is the gateway request body.
type ChatRequest struct {
	Message string `json:"message"`
	Refresh bool   `json:"refresh,omitempty"`
}

// ChatResponse is the gateway reply. Fallback marks an explicitly degraded
// answer served from the stale cache.
type ChatResponse struct {
	Reply    string `json:"reply"`
	Cached   bool   `json:"cached"`
	Fallback bool   `json:"fallback,omitempty"`
}

// CachedInsightResponse surfaces the last cached reply, nulls when none.
type CachedInsightResponse struct {
	Reply       *string    `json:"reply"`
	GeneratedAt *time.Time `json:"generated_at"`
}
