package insights

import (
	"context"
	"fmt"
	"time"

	"github.com/howshous/analytics/internal/analytics"
)

// MetricsProvider computes windowed rollup sums for one listing.
// analytics.Service satisfies it.
type MetricsProvider interface {
	ComputeListingMetrics(ctx context.Context, listingID string, now time.Time) (*analytics.WindowedMetrics, error)
}

// BuildLandlordPayload packages a landlord's listings and windowed metrics
// into the deterministic model context. A landlord with zero listings gets an
// all-zero summary and an empty listings slice, not an error.
func (s *service) BuildLandlordPayload(ctx context.Context, landlordID string, now time.Time) (*LandlordAnalyticsPayload, error) {
	owned, err := s.listings.ListByLandlord(ctx, landlordID)
	if err != nil {
		return nil, fmt.Errorf("failed to load landlord listings: %w", err)
	}

	payload := &LandlordAnalyticsPayload{
		Summary: LandlordSummary{
			AvgSaveRatePct:       pct(0, 0),
			AvgMessageRatePct:    pct(0, 0),
			SaveToMessageRatePct: pct(0, 0),
		},
		Listings: make([]ListingInsight, 0, len(owned)),
	}

	var totalViews, totalSaves, totalMessages int64

	for _, listing := range owned {
		wm, err := s.metrics.ComputeListingMetrics(ctx, listing.ID, now)
		if err != nil {
			return nil, fmt.Errorf("failed to compute metrics for listing %s: %w", listing.ID, err)
		}

		totalViews += wm.Views30d
		totalSaves += wm.Saves30d
		totalMessages += wm.Messages30d

		payload.Listings = append(payload.Listings, ListingInsight{
			ListingID:          listing.ID,
			Title:              listing.Title,
			Price:              listing.Price,
			Views7d:            wm.Views7d,
			Views30d:           wm.Views30d,
			Saves7d:            wm.Saves7d,
			Saves30d:           wm.Saves30d,
			Messages7d:         wm.Messages7d,
			Messages30d:        wm.Messages30d,
			SaveRatePct:        pct(wm.Saves30d, wm.Views30d),
			MessageRatePct:     pct(wm.Messages30d, wm.Views30d),
			SavesToMessagesPct: pct(wm.Messages30d, wm.Saves30d),
		})
	}

	payload.Summary.TotalViews30d = totalViews
	payload.Summary.TotalSaves30d = totalSaves
	payload.Summary.TotalMessages30d = totalMessages
	payload.Summary.AvgSaveRatePct = pct(totalSaves, totalViews)
	payload.Summary.AvgMessageRatePct = pct(totalMessages, totalViews)
	payload.Summary.SaveToMessageRatePct = pct(totalMessages, totalSaves)

	return payload, nil
}

// pct renders numerator/denominator as a one-decimal percentage string,
// "0.0" when the denominator is zero.
func pct(numerator, denominator int64) string {
	if denominator == 0 {
		return "0.0"
	}
	return fmt.Sprintf("%.1f", float64(numerator)/float64(denominator)*100)
}
