package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/howshous/analytics/internal/common/config"
	"github.com/howshous/analytics/internal/common/db"
	"github.com/howshous/analytics/internal/common/logger"
)

func setupTestRepository(t *testing.T) Repository {
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
	CREATE TABLE IF NOT EXISTS listing_view_sessions (
		listing_id VARCHAR(64) NOT NULL,
		session_id VARCHAR(128) NOT NULL,
		first_view_at TIMESTAMP WITH TIME ZONE NOT NULL,
		event_date DATE NOT NULL,
		PRIMARY KEY (listing_id, session_id)
	);

	CREATE TABLE IF NOT EXISTS listing_daily_view_sessions (
		listing_id VARCHAR(64) NOT NULL,
		event_date DATE NOT NULL,
		session_id VARCHAR(128) NOT NULL,
		first_view_at TIMESTAMP WITH TIME ZONE NOT NULL,
		PRIMARY KEY (listing_id, event_date, session_id)
	);

	CREATE TABLE IF NOT EXISTS listing_metrics (
		listing_id VARCHAR(64) PRIMARY KEY,
		unique_session_views BIGINT NOT NULL DEFAULT 0,
		total_saves BIGINT NOT NULL DEFAULT 0,
		first_message_count BIGINT NOT NULL DEFAULT 0,
		last_viewed_at TIMESTAMP WITH TIME ZONE,
		last_viewed_date DATE,
		last_saved_at TIMESTAMP WITH TIME ZONE,
		last_saved_date DATE,
		last_message_at TIMESTAMP WITH TIME ZONE,
		last_message_date DATE,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS listing_daily_stats (
		listing_id VARCHAR(64) NOT NULL,
		event_date DATE NOT NULL,
		landlord_id VARCHAR(64),
		views BIGINT NOT NULL DEFAULT 0,
		unique_sessions BIGINT NOT NULL DEFAULT 0,
		saves BIGINT NOT NULL DEFAULT 0,
		messages BIGINT NOT NULL DEFAULT 0,
		last_viewed_at TIMESTAMP WITH TIME ZONE,
		last_saved_at TIMESTAMP WITH TIME ZONE,
		last_message_at TIMESTAMP WITH TIME ZONE,
		PRIMARY KEY (listing_id, event_date)
	);

	CREATE TABLE IF NOT EXISTS listing_saves (
		listing_id VARCHAR(64) NOT NULL,
		user_id VARCHAR(64) NOT NULL,
		first_saved_at TIMESTAMP WITH TIME ZONE NOT NULL,
		event_date DATE NOT NULL,
		PRIMARY KEY (listing_id, user_id)
	);

	CREATE TABLE IF NOT EXISTS listing_chats (
		listing_id VARCHAR(64) NOT NULL,
		chat_id VARCHAR(64) NOT NULL,
		first_message_at TIMESTAMP WITH TIME ZONE NOT NULL,
		event_date DATE NOT NULL,
		PRIMARY KEY (listing_id, chat_id)
	);

	CREATE TABLE IF NOT EXISTS processed_events (
		event_id VARCHAR(64) PRIMARY KEY,
		event_type VARCHAR(32) NOT NULL,
		processed_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS search_metrics_days (
		event_date DATE PRIMARY KEY,
		filter_usage JSONB NOT NULL DEFAULT '{}'::jsonb,
		amenities_used TEXT[] NOT NULL DEFAULT '{}',
		min_price_sample NUMERIC(14, 2) NOT NULL DEFAULT 0,
		max_price_sample NUMERIC(14, 2) NOT NULL DEFAULT 0,
		last_updated_at TIMESTAMP WITH TIME ZONE NOT NULL
	);

	TRUNCATE listing_view_sessions, listing_daily_view_sessions, listing_metrics,
		listing_daily_stats, listing_saves, listing_chats, processed_events, search_metrics_days;
	`

	if _, err := database.Exec(schema); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return NewRepository(database, log)
}

func TestRepositoryApplyListingView(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()
	ts := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	view := &ViewApply{
		ListingID:  "listing-1",
		LandlordID: "landlord-1",
		SessionID:  "sess-a",
		Timestamp:  ts,
		EventDate:  "2026-03-15",
	}

	outcome, err := repo.ApplyListingView(ctx, view)
	if err != nil {
		t.Fatalf("ApplyListingView() error = %v", err)
	}
	if !outcome.CountedUnique || !outcome.CountedDaily {
		t.Errorf("first view outcome = %+v, want both counted", outcome)
	}

	// Replay: both levels must dedup.
	outcome, err = repo.ApplyListingView(ctx, view)
	if err != nil {
		t.Fatalf("ApplyListingView() replay error = %v", err)
	}
	if outcome.CountedUnique || outcome.CountedDaily {
		t.Errorf("replay outcome = %+v, want neither counted", outcome)
	}

	// Same session on a new day counts daily but not cumulative.
	nextDay := *view
	nextDay.EventDate = "2026-03-16"
	nextDay.Timestamp = ts.Add(24 * time.Hour)
	outcome, err = repo.ApplyListingView(ctx, &nextDay)
	if err != nil {
		t.Fatalf("ApplyListingView() next day error = %v", err)
	}
	if outcome.CountedUnique {
		t.Error("revisit on a new day grew the all-time unique count")
	}
	if !outcome.CountedDaily {
		t.Error("revisit on a new day was not counted daily")
	}

	metrics, err := repo.GetListingMetrics(ctx, "listing-1")
	if err != nil {
		t.Fatalf("GetListingMetrics() error = %v", err)
	}
	if metrics.UniqueSessionViews != 1 {
		t.Errorf("UniqueSessionViews = %d, want 1", metrics.UniqueSessionViews)
	}
	if metrics.LastViewedDate != "2026-03-15" {
		t.Errorf("LastViewedDate = %q, want 2026-03-15", metrics.LastViewedDate)
	}
	if metrics.LastSavedDate != "" || metrics.LastMessageDate != "" {
		t.Errorf("save/message dates = %q/%q, want empty", metrics.LastSavedDate, metrics.LastMessageDate)
	}

	stats, err := repo.GetDailyStats(ctx, "listing-1", "2026-03-01")
	if err != nil {
		t.Fatalf("GetDailyStats() error = %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("daily stats count = %d, want 2", len(stats))
	}
	for _, s := range stats {
		if s.Views != 1 || s.UniqueSessions != 1 {
			t.Errorf("day %s views/unique = %d/%d, want 1/1", s.EventDate, s.Views, s.UniqueSessions)
		}
		if s.LandlordID != "landlord-1" {
			t.Errorf("day %s landlord_id = %q, want landlord-1", s.EventDate, s.LandlordID)
		}
	}
}

func TestRepositoryApplyListingViewBackfillsLandlord(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()
	ts := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	// First view of the day arrives without a landlord id.
	anon := &ViewApply{
		ListingID: "listing-2",
		SessionID: "sess-a",
		Timestamp: ts,
		EventDate: "2026-03-15",
	}
	if _, err := repo.ApplyListingView(ctx, anon); err != nil {
		t.Fatalf("ApplyListingView() error = %v", err)
	}

	// An already-counted replay carrying the landlord id fills it in on the
	// daily row.
	attributed := *anon
	attributed.LandlordID = "landlord-2"
	attributed.Timestamp = ts.Add(time.Minute)
	if _, err := repo.ApplyListingView(ctx, &attributed); err != nil {
		t.Fatalf("ApplyListingView() replay error = %v", err)
	}

	stats, err := repo.GetDailyStats(ctx, "listing-2", "2026-03-15")
	if err != nil {
		t.Fatalf("GetDailyStats() error = %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("daily stats count = %d, want 1", len(stats))
	}
	if stats[0].LandlordID != "landlord-2" {
		t.Errorf("landlord_id = %q, want landlord-2", stats[0].LandlordID)
	}
}

func TestRepositoryApplyListingSave(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()
	ts := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	save := &SaveApply{
		ListingID:  "listing-1",
		LandlordID: "landlord-1",
		UserID:     "user-1",
		Timestamp:  ts,
		EventDate:  "2026-03-15",
	}

	counted, err := repo.ApplyListingSave(ctx, save)
	if err != nil {
		t.Fatalf("ApplyListingSave() error = %v", err)
	}
	if !counted {
		t.Error("first save was not counted")
	}

	counted, err = repo.ApplyListingSave(ctx, save)
	if err != nil {
		t.Fatalf("ApplyListingSave() replay error = %v", err)
	}
	if counted {
		t.Error("replayed save was counted")
	}

	metrics, err := repo.GetListingMetrics(ctx, "listing-1")
	if err != nil {
		t.Fatalf("GetListingMetrics() error = %v", err)
	}
	if metrics.TotalSaves != 1 {
		t.Errorf("TotalSaves = %d, want 1", metrics.TotalSaves)
	}
	if metrics.LastSavedDate != "2026-03-15" {
		t.Errorf("LastSavedDate = %q, want 2026-03-15", metrics.LastSavedDate)
	}
}

func TestRepositoryApplyListingMessage(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()
	ts := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	msg := &MessageApply{
		ListingID:  "listing-1",
		LandlordID: "landlord-1",
		ChatID:     "chat-1",
		Timestamp:  ts,
		EventDate:  "2026-03-15",
	}

	counted, err := repo.ApplyListingMessage(ctx, msg)
	if err != nil {
		t.Fatalf("ApplyListingMessage() error = %v", err)
	}
	if !counted {
		t.Error("first message was not counted")
	}

	counted, err = repo.ApplyListingMessage(ctx, msg)
	if err != nil {
		t.Fatalf("ApplyListingMessage() replay error = %v", err)
	}
	if counted {
		t.Error("follow-up message in the same chat was counted")
	}
}

func TestRepositoryApplySearch(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()
	ts := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	upd := &SearchDayUpdate{
		EventDate:  "2026-03-15",
		FilterKeys: []string{"query", "amenity:WiFi"},
		MinPrice:   1000000,
		MaxPrice:   3000000,
		Amenities:  []string{"WiFi"},
		Timestamp:  ts,
	}

	applied, err := repo.ApplySearch(ctx, "evt-1", upd)
	if err != nil {
		t.Fatalf("ApplySearch() error = %v", err)
	}
	if !applied {
		t.Error("first search event was not applied")
	}

	// Redelivery of the same event id is a no-op.
	applied, err = repo.ApplySearch(ctx, "evt-1", upd)
	if err != nil {
		t.Fatalf("ApplySearch() replay error = %v", err)
	}
	if applied {
		t.Error("redelivered search event was applied twice")
	}

	// A second event accumulates filter usage and overwrites the samples.
	upd2 := &SearchDayUpdate{
		EventDate:  "2026-03-15",
		FilterKeys: []string{"query"},
		MinPrice:   500000,
		MaxPrice:   2000000,
		Amenities:  []string{"Laundry"},
		Timestamp:  ts.Add(time.Hour),
	}
	if _, err := repo.ApplySearch(ctx, "evt-2", upd2); err != nil {
		t.Fatalf("ApplySearch() second event error = %v", err)
	}

	days, err := repo.GetSearchDays(ctx, "2026-03-15", "2026-03-15")
	if err != nil {
		t.Fatalf("GetSearchDays() error = %v", err)
	}
	if len(days) != 1 {
		t.Fatalf("search days count = %d, want 1", len(days))
	}

	day := days[0]
	if got := day.FilterUsage["query"]; got != 2 {
		t.Errorf("filter_usage[query] = %d, want 2", got)
	}
	if got := day.FilterUsage["amenity:WiFi"]; got != 1 {
		t.Errorf("filter_usage[amenity:WiFi] = %d, want 1", got)
	}
	if day.MinPriceSample != 500000 {
		t.Errorf("min_price_sample = %v, want 500000 (last write wins)", day.MinPriceSample)
	}
	if len(day.AmenitiesUsed) != 1 || day.AmenitiesUsed[0] != "Laundry" {
		t.Errorf("amenities_used = %v, want [Laundry]", day.AmenitiesUsed)
	}
}

func TestRepositoryGetListingMetricsEmpty(t *testing.T) {
	repo := setupTestRepository(t)

	metrics, err := repo.GetListingMetrics(context.Background(), "never-seen")
	if err != nil {
		t.Fatalf("GetListingMetrics() error = %v", err)
	}
	if metrics.ListingID != "never-seen" {
		t.Errorf("ListingID = %q, want never-seen", metrics.ListingID)
	}
	if metrics.UniqueSessionViews != 0 || metrics.TotalSaves != 0 || metrics.FirstMessageCount != 0 {
		t.Errorf("expected zero counters, got %+v", metrics)
	}
}
