package analytics

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/howshous/analytics/internal/common/db"
	"github.com/howshous/analytics/internal/common/logger"
)

// Repository is the transactional store behind the aggregation pipeline. Each
// Apply* call is one atomic unit: the dedup record and every counter it gates
// commit together or not at all, and re-running with the same inputs is safe.
type Repository interface {
	ApplyListingView(ctx context.Context, view *ViewApply) (*ViewOutcome, error)
	ApplyListingSave(ctx context.Context, save *SaveApply) (bool, error)
	ApplyListingMessage(ctx context.Context, msg *MessageApply) (bool, error)
	ApplySearch(ctx context.Context, eventID string, upd *SearchDayUpdate) (bool, error)

	GetListingMetrics(ctx context.Context, listingID string) (*ListingMetrics, error)
	GetDailyStats(ctx context.Context, listingID, fromDate string) ([]*DailyStat, error)
	GetSearchDays(ctx context.Context, fromDate, toDate string) ([]*SearchMetricsDay, error)
}

type repository struct {
	db     *db.DB
	logger *logger.Logger
}

func NewRepository(database *db.DB, log *logger.Logger) Repository {
	return &repository{db: database, logger: log}
}

// ApplyListingView applies the two-level view dedup. The all-time
// (listing, session) record gates the cumulative unique-session counter; the
// (listing, date, session) record gates the daily views/unique_sessions
// counters. last_viewed_at on the daily row is refreshed unconditionally so
// "last activity" stays current even for already-counted sessions.
func (r *repository) ApplyListingView(ctx context.Context, view *ViewApply) (*ViewOutcome, error) {
	outcome := &ViewOutcome{}

	err := r.db.WithRetryableTransaction(ctx, func(tx *sql.Tx) error {
		outcome.CountedUnique = false
		outcome.CountedDaily = false

		res, err := tx.ExecContext(ctx, `
			INSERT INTO listing_view_sessions (listing_id, session_id, first_view_at, event_date)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (listing_id, session_id) DO NOTHING
		`, view.ListingID, view.SessionID, view.Timestamp, view.EventDate)
		if err != nil {
			return fmt.Errorf("failed to insert view session: %w", err)
		}

		inserted, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read rows affected: %w", err)
		}

		if inserted == 1 {
			outcome.CountedUnique = true
			_, err = tx.ExecContext(ctx, `
				INSERT INTO listing_metrics (listing_id, unique_session_views, last_viewed_at, last_viewed_date)
				VALUES ($1, 1, $2, $3)
				ON CONFLICT (listing_id) DO UPDATE SET
					unique_session_views = listing_metrics.unique_session_views + 1,
					last_viewed_at = EXCLUDED.last_viewed_at,
					last_viewed_date = EXCLUDED.last_viewed_date,
					updated_at = CURRENT_TIMESTAMP
			`, view.ListingID, view.Timestamp, view.EventDate)
			if err != nil {
				return fmt.Errorf("failed to increment unique session views: %w", err)
			}
		}

		res, err = tx.ExecContext(ctx, `
			INSERT INTO listing_daily_view_sessions (listing_id, event_date, session_id, first_view_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (listing_id, event_date, session_id) DO NOTHING
		`, view.ListingID, view.EventDate, view.SessionID, view.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to insert daily view session: %w", err)
		}

		inserted, err = res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read rows affected: %w", err)
		}

		if inserted == 1 {
			outcome.CountedDaily = true
			_, err = tx.ExecContext(ctx, `
				INSERT INTO listing_daily_stats (listing_id, event_date, landlord_id, views, unique_sessions, last_viewed_at)
				VALUES ($1, $2, $3, 1, 1, $4)
				ON CONFLICT (listing_id, event_date) DO UPDATE SET
					views = listing_daily_stats.views + 1,
					unique_sessions = listing_daily_stats.unique_sessions + 1,
					landlord_id = COALESCE(NULLIF(EXCLUDED.landlord_id, ''), listing_daily_stats.landlord_id),
					last_viewed_at = EXCLUDED.last_viewed_at
			`, view.ListingID, view.EventDate, view.LandlordID, view.Timestamp)
		} else {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO listing_daily_stats (listing_id, event_date, landlord_id, last_viewed_at)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (listing_id, event_date) DO UPDATE SET
					landlord_id = COALESCE(NULLIF(EXCLUDED.landlord_id, ''), listing_daily_stats.landlord_id),
					last_viewed_at = EXCLUDED.last_viewed_at
			`, view.ListingID, view.EventDate, view.LandlordID, view.Timestamp)
		}
		if err != nil {
			return fmt.Errorf("failed to update daily stats: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return outcome, nil
}

// ApplyListingSave counts a save once per (listing, user), forever. Returns
// whether this call performed the increment.
func (r *repository) ApplyListingSave(ctx context.Context, save *SaveApply) (bool, error) {
	counted := false

	err := r.db.WithRetryableTransaction(ctx, func(tx *sql.Tx) error {
		counted = false

		res, err := tx.ExecContext(ctx, `
			INSERT INTO listing_saves (listing_id, user_id, first_saved_at, event_date)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (listing_id, user_id) DO NOTHING
		`, save.ListingID, save.UserID, save.Timestamp, save.EventDate)
		if err != nil {
			return fmt.Errorf("failed to insert save record: %w", err)
		}

		inserted, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read rows affected: %w", err)
		}
		if inserted == 0 {
			return nil
		}
		counted = true

		_, err = tx.ExecContext(ctx, `
			INSERT INTO listing_metrics (listing_id, total_saves, last_saved_at, last_saved_date)
			VALUES ($1, 1, $2, $3)
			ON CONFLICT (listing_id) DO UPDATE SET
				total_saves = listing_metrics.total_saves + 1,
				last_saved_at = EXCLUDED.last_saved_at,
				last_saved_date = EXCLUDED.last_saved_date,
				updated_at = CURRENT_TIMESTAMP
		`, save.ListingID, save.Timestamp, save.EventDate)
		if err != nil {
			return fmt.Errorf("failed to increment total saves: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO listing_daily_stats (listing_id, event_date, landlord_id, saves, last_saved_at)
			VALUES ($1, $2, $3, 1, $4)
			ON CONFLICT (listing_id, event_date) DO UPDATE SET
				saves = listing_daily_stats.saves + 1,
				landlord_id = COALESCE(NULLIF(EXCLUDED.landlord_id, ''), listing_daily_stats.landlord_id),
				last_saved_at = EXCLUDED.last_saved_at
		`, save.ListingID, save.EventDate, save.LandlordID, save.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to update daily saves: %w", err)
		}

		return nil
	})
	if err != nil {
		return false, err
	}

	return counted, nil
}

// ApplyListingMessage counts the first message of each chat once per
// (listing, chat), forever. Returns whether this call performed the increment.
func (r *repository) ApplyListingMessage(ctx context.Context, msg *MessageApply) (bool, error) {
	counted := false

	err := r.db.WithRetryableTransaction(ctx, func(tx *sql.Tx) error {
		counted = false

		res, err := tx.ExecContext(ctx, `
			INSERT INTO listing_chats (listing_id, chat_id, first_message_at, event_date)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (listing_id, chat_id) DO NOTHING
		`, msg.ListingID, msg.ChatID, msg.Timestamp, msg.EventDate)
		if err != nil {
			return fmt.Errorf("failed to insert chat record: %w", err)
		}

		inserted, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read rows affected: %w", err)
		}
		if inserted == 0 {
			return nil
		}
		counted = true

		_, err = tx.ExecContext(ctx, `
			INSERT INTO listing_metrics (listing_id, first_message_count, last_message_at, last_message_date)
			VALUES ($1, 1, $2, $3)
			ON CONFLICT (listing_id) DO UPDATE SET
				first_message_count = listing_metrics.first_message_count + 1,
				last_message_at = EXCLUDED.last_message_at,
				last_message_date = EXCLUDED.last_message_date,
				updated_at = CURRENT_TIMESTAMP
		`, msg.ListingID, msg.Timestamp, msg.EventDate)
		if err != nil {
			return fmt.Errorf("failed to increment first message count: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO listing_daily_stats (listing_id, event_date, landlord_id, messages, last_message_at)
			VALUES ($1, $2, $3, 1, $4)
			ON CONFLICT (listing_id, event_date) DO UPDATE SET
				messages = listing_daily_stats.messages + 1,
				landlord_id = COALESCE(NULLIF(EXCLUDED.landlord_id, ''), listing_daily_stats.landlord_id),
				last_message_at = EXCLUDED.last_message_at
		`, msg.ListingID, msg.EventDate, msg.LandlordID, msg.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to update daily messages: %w", err)
		}

		return nil
	})
	if err != nil {
		return false, err
	}

	return counted, nil
}

// ApplySearch applies whitelisted filter usage to the global per-day search
// rollup. Search events carry no natural dedup key, so an event-id processing
// log inside the same transaction keeps redelivered events from counting
// twice. Returns whether the event was applied (false when already processed).
func (r *repository) ApplySearch(ctx context.Context, eventID string, upd *SearchDayUpdate) (bool, error) {
	applied := false

	err := r.db.WithRetryableTransaction(ctx, func(tx *sql.Tx) error {
		applied = false

		if eventID != "" {
			res, err := tx.ExecContext(ctx, `
				INSERT INTO processed_events (event_id, event_type)
				VALUES ($1, $2)
				ON CONFLICT (event_id) DO NOTHING
			`, eventID, EventSearchPerformed)
			if err != nil {
				return fmt.Errorf("failed to log processed event: %w", err)
			}
			inserted, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to read rows affected: %w", err)
			}
			if inserted == 0 {
				return nil
			}
		}
		applied = true

		for _, key := range upd.FilterKeys {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO search_metrics_days (event_date, filter_usage, last_updated_at)
				VALUES ($1, jsonb_build_object($2::text, 1), $3)
				ON CONFLICT (event_date) DO UPDATE SET
					filter_usage = jsonb_set(
						search_metrics_days.filter_usage,
						ARRAY[$2::text],
						to_jsonb(COALESCE((search_metrics_days.filter_usage->>$2::text)::bigint, 0) + 1)
					),
					last_updated_at = EXCLUDED.last_updated_at
			`, upd.EventDate, key, upd.Timestamp)
			if err != nil {
				return fmt.Errorf("failed to increment filter usage for %q: %w", key, err)
			}
		}

		// Price samples and the amenity set are last-write-wins by design.
		_, err := tx.ExecContext(ctx, `
			INSERT INTO search_metrics_days (event_date, amenities_used, min_price_sample, max_price_sample, last_updated_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (event_date) DO UPDATE SET
				amenities_used = EXCLUDED.amenities_used,
				min_price_sample = EXCLUDED.min_price_sample,
				max_price_sample = EXCLUDED.max_price_sample,
				last_updated_at = EXCLUDED.last_updated_at
		`, upd.EventDate, pq.Array(upd.Amenities), upd.MinPrice, upd.MaxPrice, upd.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to update search day samples: %w", err)
		}

		return nil
	})
	if err != nil {
		return false, err
	}

	return applied, nil
}

// GetListingMetrics retrieves cumulative counters for a listing. A listing
// with no recorded activity yields zero-valued metrics, not an error.
func (r *repository) GetListingMetrics(ctx context.Context, listingID string) (*ListingMetrics, error) {
	query := `
		SELECT listing_id, unique_session_views, total_saves, first_message_count,
			   last_viewed_at, COALESCE(last_viewed_date::text, ''),
			   last_saved_at, COALESCE(last_saved_date::text, ''),
			   last_message_at, COALESCE(last_message_date::text, ''),
			   updated_at
		FROM listing_metrics
		WHERE listing_id = $1
	`

	m := &ListingMetrics{}
	err := r.db.QueryRowContext(ctx, query, listingID).Scan(
		&m.ListingID, &m.UniqueSessionViews, &m.TotalSaves, &m.FirstMessageCount,
		&m.LastViewedAt, &m.LastViewedDate,
		&m.LastSavedAt, &m.LastSavedDate,
		&m.LastMessageAt, &m.LastMessageDate,
		&m.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return &ListingMetrics{ListingID: listingID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get listing metrics: %w", err)
	}

	return m, nil
}

// GetDailyStats retrieves daily rollups for a listing dated fromDate or later.
func (r *repository) GetDailyStats(ctx context.Context, listingID, fromDate string) ([]*DailyStat, error) {
	query := `
		SELECT listing_id, COALESCE(landlord_id, ''), event_date, views, unique_sessions, saves, messages,
			   last_viewed_at, last_saved_at, last_message_at
		FROM listing_daily_stats
		WHERE listing_id = $1 AND event_date >= $2
		ORDER BY event_date
	`

	rows, err := r.db.QueryContext(ctx, query, listingID, fromDate)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily stats: %w", err)
	}
	defer rows.Close()

	var stats []*DailyStat
	for rows.Next() {
		s := &DailyStat{}
		var eventDate time.Time
		err := rows.Scan(
			&s.ListingID, &s.LandlordID, &eventDate, &s.Views, &s.UniqueSessions, &s.Saves, &s.Messages,
			&s.LastViewedAt, &s.LastSavedAt, &s.LastMessageAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily stat: %w", err)
		}
		s.EventDate = eventDate.UTC().Format(dateKeyLayout)
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

// GetSearchDays retrieves the global search rollups for a date range,
// inclusive on both ends.
func (r *repository) GetSearchDays(ctx context.Context, fromDate, toDate string) ([]*SearchMetricsDay, error) {
	query := `
		SELECT event_date, filter_usage, amenities_used, min_price_sample, max_price_sample, last_updated_at
		FROM search_metrics_days
		WHERE event_date BETWEEN $1 AND $2
		ORDER BY event_date
	`

	rows, err := r.db.QueryContext(ctx, query, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("failed to get search days: %w", err)
	}
	defer rows.Close()

	var days []*SearchMetricsDay
	for rows.Next() {
		d := &SearchMetricsDay{}
		var eventDate time.Time
		var usage []byte
		err := rows.Scan(
			&eventDate, &usage, pq.Array(&d.AmenitiesUsed),
			&d.MinPriceSample, &d.MaxPriceSample, &d.LastUpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan search day: %w", err)
		}
		d.EventDate = eventDate.UTC().Format(dateKeyLayout)
		if len(usage) > 0 {
			if err := json.Unmarshal(usage, &d.FilterUsage); err != nil {
				return nil, fmt.Errorf("failed to unmarshal filter usage: %w", err)
			}
		}
		days = append(days, d)
	}

	return days, rows.Err()
}
