package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/howshous/analytics/internal/common/apperr"
	"github.com/howshous/analytics/internal/common/kafka"
	"github.com/howshous/analytics/internal/common/logger"
	"github.com/howshous/analytics/internal/common/metrics"
	"github.com/howshous/analytics/internal/common/redis"
	"github.com/howshous/analytics/internal/listings"
)

// EventsTopic is the Kafka topic carrying raw analytics events.
const EventsTopic = "analytics.events"

const (
	summaryWindowDays = 30
	topFiltersLimit   = 10
	summaryCacheTTL   = 5 * time.Minute
)

type Service interface {
	// Event processing
	ProcessEvent(ctx context.Context, event *AnalyticsEvent) error
	ProcessKafkaEvent(ctx context.Context, value []byte) error

	// Windowed metrics
	ComputeListingMetrics(ctx context.Context, listingID string, now time.Time) (*WindowedMetrics, error)

	// Landlord-facing reads
	GetListingMetrics(ctx context.Context, landlordID, listingID string) (*ListingMetricsResponse, error)
	GetListingAnalyticsSummary(ctx context.Context, landlordID, listingID string) (*ListingSummaryResponse, error)
}

type service struct {
	repo     Repository
	listings listings.Reader
	redis    *redis.Client
	logger   *logger.Logger
}

// NewService wires the aggregation pipeline. redisClient may be nil, which
// disables the summary read cache.
func NewService(repo Repository, listingReader listings.Reader, redisClient *redis.Client, log *logger.Logger) Service {
	return &service{
		repo:     repo,
		listings: listingReader,
		redis:    redisClient,
		logger:   log,
	}
}

// ProcessKafkaEvent decodes and processes one event from the events topic.
func (s *service) ProcessKafkaEvent(ctx context.Context, value []byte) error {
	var event AnalyticsEvent
	if err := kafka.UnmarshalEvent(value, &event); err != nil {
		// Undecodable payloads are dropped, not redelivered.
		metrics.EventsRejected.WithLabelValues("unknown").Inc()
		s.logger.Warnf("Dropping undecodable analytics event: %v", err)
		return nil
	}
	return s.ProcessEvent(ctx, &event)
}

// ProcessEvent validates and aggregates one event. Validation failures drop
// the event with no side effect; only transient store failures return an
// error, so a redelivering producer can retry safely.
func (s *service) ProcessEvent(ctx context.Context, event *AnalyticsEvent) error {
	if err := ValidateEvent(event); err != nil {
		eventType := "unknown"
		if event != nil && event.EventType != "" {
			eventType = event.EventType
		}
		metrics.EventsRejected.WithLabelValues(eventType).Inc()
		s.logger.Warnf("Dropping invalid analytics event: %v", err)
		return nil
	}

	timestamp, eventDate := NormalizeTimestamp(event, time.Now())

	switch event.EventType {
	case EventListingView:
		outcome, err := s.repo.ApplyListingView(ctx, &ViewApply{
			ListingID:  event.ListingID,
			LandlordID: event.LandlordID,
			SessionID:  event.SessionID,
			Timestamp:  timestamp,
			EventDate:  eventDate,
		})
		if err != nil {
			return fmt.Errorf("failed to apply listing view: %w", err)
		}
		s.recordOutcome(event.EventType, outcome.CountedUnique || outcome.CountedDaily)
		s.invalidateSummaryCache(ctx, event.ListingID)

	case EventListingSave:
		counted, err := s.repo.ApplyListingSave(ctx, &SaveApply{
			ListingID:  event.ListingID,
			LandlordID: event.LandlordID,
			UserID:     event.UserID,
			Timestamp:  timestamp,
			EventDate:  eventDate,
		})
		if err != nil {
			return fmt.Errorf("failed to apply listing save: %w", err)
		}
		s.recordOutcome(event.EventType, counted)
		s.invalidateSummaryCache(ctx, event.ListingID)

	case EventListingMessage:
		counted, err := s.repo.ApplyListingMessage(ctx, &MessageApply{
			ListingID:  event.ListingID,
			LandlordID: event.LandlordID,
			ChatID:     event.ChatID,
			Timestamp:  timestamp,
			EventDate:  eventDate,
		})
		if err != nil {
			return fmt.Errorf("failed to apply listing message: %w", err)
		}
		s.recordOutcome(event.EventType, counted)
		s.invalidateSummaryCache(ctx, event.ListingID)

	case EventSearchPerformed:
		applied, err := s.repo.ApplySearch(ctx, event.EventID, &SearchDayUpdate{
			EventDate:  eventDate,
			FilterKeys: SanitizeFilterKeys(event.FilterKeys),
			MinPrice:   event.MinPrice,
			MaxPrice:   event.MaxPrice,
			Amenities:  SanitizeAmenities(event.Amenities),
			Timestamp:  timestamp,
		})
		if err != nil {
			return fmt.Errorf("failed to apply search event: %w", err)
		}
		s.recordOutcome(event.EventType, applied)
	}

	return nil
}

func (s *service) recordOutcome(eventType string, counted bool) {
	if counted {
		metrics.EventsProcessed.WithLabelValues(eventType).Inc()
	} else {
		metrics.EventsDeduplicated.WithLabelValues(eventType).Inc()
	}
}

// ComputeListingMetrics sums daily rollups into 7-day and 30-day windows. The
// sums are always recomputed from current daily rows; daily rows are already
// pre-aggregated, so this never touches raw event history.
func (s *service) ComputeListingMetrics(ctx context.Context, listingID string, now time.Time) (*WindowedMetrics, error) {
	fromDate := DateKeyDaysAgo(summaryWindowDays, now)

	stats, err := s.repo.GetDailyStats(ctx, listingID, fromDate)
	if err != nil {
		return nil, fmt.Errorf("failed to load daily stats: %w", err)
	}

	wm := &WindowedMetrics{ListingID: listingID}
	for _, stat := range stats {
		if WithinLastNDays(stat.EventDate, 30, now) {
			wm.Views30d += stat.Views
			wm.UniqueSessions30d += stat.UniqueSessions
			wm.Saves30d += stat.Saves
			wm.Messages30d += stat.Messages
		}
		if WithinLastNDays(stat.EventDate, 7, now) {
			wm.Views7d += stat.Views
			wm.UniqueSessions7d += stat.UniqueSessions
			wm.Saves7d += stat.Saves
			wm.Messages7d += stat.Messages
		}
	}

	return wm, nil
}

// GetListingMetrics returns windowed metrics and the 30-day funnel for a
// listing the caller owns.
func (s *service) GetListingMetrics(ctx context.Context, landlordID, listingID string) (*ListingMetricsResponse, error) {
	listing, err := s.listings.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.LandlordID != landlordID {
		return nil, apperr.New(apperr.PermissionDenied, "Not allowed to view metrics for this listing.")
	}

	wm, err := s.ComputeListingMetrics(ctx, listingID, time.Now())
	if err != nil {
		return nil, err
	}

	return &ListingMetricsResponse{
		ListingID:  listingID,
		LandlordID: listing.LandlordID,
		Metrics7d: MetricsBucket{
			Views:          wm.Views7d,
			UniqueSessions: wm.UniqueSessions7d,
			Saves:          wm.Saves7d,
			Messages:       wm.Messages7d,
		},
		Metrics30d: MetricsBucket{
			Views:          wm.Views30d,
			UniqueSessions: wm.UniqueSessions30d,
			Saves:          wm.Saves30d,
			Messages:       wm.Messages30d,
		},
		Funnel30d: Funnel30d{
			Views:    wm.Views30d,
			Saves:    wm.Saves30d,
			Messages: wm.Messages30d,
			ConversionRates: ConversionRates{
				SavePerView:    ratio(wm.Saves30d, wm.Views30d),
				MessagePerView: ratio(wm.Messages30d, wm.Views30d),
				MessagePerSave: ratio(wm.Messages30d, wm.Saves30d),
			},
		},
	}, nil
}

// GetListingAnalyticsSummary returns the 30-day AI-ready summary: metrics,
// funnel, the global top search filters, and a price snapshot.
func (s *service) GetListingAnalyticsSummary(ctx context.Context, landlordID, listingID string) (*ListingSummaryResponse, error) {
	listing, err := s.listings.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.LandlordID != landlordID {
		return nil, apperr.New(apperr.PermissionDenied, "Not allowed to view metrics for this listing.")
	}

	if cached := s.cachedSummary(ctx, listingID); cached != nil {
		return cached, nil
	}

	now := time.Now()

	wm, err := s.ComputeListingMetrics(ctx, listingID, now)
	if err != nil {
		return nil, err
	}

	topFilters, err := s.topSearchFilters(ctx, now)
	if err != nil {
		return nil, err
	}

	summary := &ListingSummaryResponse{
		ListingID:  listingID,
		LandlordID: listing.LandlordID,
		WindowDays: summaryWindowDays,
		Metrics: MetricsBucket{
			Views:          wm.Views30d,
			UniqueSessions: wm.UniqueSessions30d,
			Saves:          wm.Saves30d,
			Messages:       wm.Messages30d,
		},
		Funnel: Funnel{
			Views:    wm.Views30d,
			Saves:    wm.Saves30d,
			Messages: wm.Messages30d,
		},
		TopFilters: topFilters,
		PriceSnapshot: PriceSnapshot{
			Price:    listing.Price,
			Deposit:  listing.Deposit,
			Location: listing.Location,
			Title:    listing.Title,
		},
	}

	s.cacheSummary(ctx, listingID, summary)
	return summary, nil
}

// topSearchFilters aggregates global filter usage over the last 30 days and
// returns the ten most used keys.
func (s *service) topSearchFilters(ctx context.Context, now time.Time) ([]FilterCount, error) {
	fromDate := DateKeyDaysAgo(summaryWindowDays, now)
	toDate := DateKey(now)

	days, err := s.repo.GetSearchDays(ctx, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("failed to load search days: %w", err)
	}

	aggregate := make(map[string]int64)
	for _, day := range days {
		for key, count := range day.FilterUsage {
			aggregate[key] += count
		}
	}

	filters := make([]FilterCount, 0, len(aggregate))
	for key, count := range aggregate {
		filters = append(filters, FilterCount{Key: key, Count: count})
	}
	sort.Slice(filters, func(i, j int) bool {
		if filters[i].Count != filters[j].Count {
			return filters[i].Count > filters[j].Count
		}
		return filters[i].Key < filters[j].Key
	})
	if len(filters) > topFiltersLimit {
		filters = filters[:topFiltersLimit]
	}

	return filters, nil
}

func summaryCacheKey(listingID string) string {
	return fmt.Sprintf("analytics:summary:%s", listingID)
}

func (s *service) cachedSummary(ctx context.Context, listingID string) *ListingSummaryResponse {
	if s.redis == nil {
		return nil
	}
	cached, err := s.redis.Get(ctx, summaryCacheKey(listingID)).Result()
	if err != nil {
		return nil
	}
	var summary ListingSummaryResponse
	if err := json.Unmarshal([]byte(cached), &summary); err != nil {
		return nil
	}
	return &summary
}

func (s *service) cacheSummary(ctx context.Context, listingID string, summary *ListingSummaryResponse) {
	if s.redis == nil {
		return
	}
	if data, err := json.Marshal(summary); err == nil {
		s.redis.Set(ctx, summaryCacheKey(listingID), data, summaryCacheTTL)
	}
}

// invalidateSummaryCache drops the cached summary for a listing after its
// rollups change. Failure here is not critical.
func (s *service) invalidateSummaryCache(ctx context.Context, listingID string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, summaryCacheKey(listingID)).Err(); err != nil {
		s.logger.Warnf("Failed to invalidate summary cache for %s: %v", listingID, err)
	}
}

func ratio(numerator, denominator int64) float64 {
	if denominator == 0 {
		return 0
	}
	return float64(numerator) / float64(denominator)
}
