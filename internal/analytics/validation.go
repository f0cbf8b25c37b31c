package analytics

import (
	"fmt"
	"strings"
	"time"
)

// AllowedAmenities is the fixed whitelist of amenity filter values. Anything
// outside it is silently dropped to keep filter cardinality bounded.
var AllowedAmenities = map[string]struct{}{
	"Free Parking":          {},
	"WiFi":                  {},
	"Air Conditioning":      {},
	"Pets Allowed":          {},
	"Kitchen Access":        {},
	"Laundry":               {},
	"Security":              {},
	"CCTV":                  {},
	"Furnished":             {},
	"Near Public Transport": {},
	"Gym Access":            {},
	"Swimming Pool":         {},
}

const amenityFilterPrefix = "amenity:"

// ValidateEvent checks the per-type required fields. An event failing
// validation is intrinsically invalid and must be dropped, never retried.
func ValidateEvent(event *AnalyticsEvent) error {
	if event == nil {
		return fmt.Errorf("event is nil")
	}

	switch event.EventType {
	case EventListingView:
		if event.ListingID == "" || event.SessionID == "" {
			return fmt.Errorf("%s requires listing_id and session_id", EventListingView)
		}
	case EventListingSave:
		if event.ListingID == "" || event.UserID == "" {
			return fmt.Errorf("%s requires listing_id and user_id", EventListingSave)
		}
	case EventListingMessage:
		if event.ListingID == "" || event.ChatID == "" {
			return fmt.Errorf("%s requires listing_id and chat_id", EventListingMessage)
		}
	case EventSearchPerformed:
		if event.UserID == "" && event.SessionID == "" {
			return fmt.Errorf("%s requires user_id or session_id", EventSearchPerformed)
		}
	case "":
		return fmt.Errorf("event_type is required")
	default:
		return fmt.Errorf("unknown event_type %q", event.EventType)
	}

	return nil
}

// NormalizeTimestamp stamps absent timestamps with the ingestion time and
// derives the UTC calendar date used for daily bucketing.
func NormalizeTimestamp(event *AnalyticsEvent, now time.Time) (time.Time, string) {
	ts := now
	if event.Timestamp != nil {
		ts = *event.Timestamp
	}
	return ts, DateKey(ts)
}

// SanitizeFilterKeys keeps only the recognized filter key shapes:
// query, minPrice, maxPrice, and amenity:<allowed-amenity>.
func SanitizeFilterKeys(keys []string) []string {
	var safe []string
	for _, key := range keys {
		switch {
		case key == "query" || key == "minPrice" || key == "maxPrice":
			safe = append(safe, key)
		case strings.HasPrefix(key, amenityFilterPrefix):
			label := key[len(amenityFilterPrefix):]
			if _, ok := AllowedAmenities[label]; ok {
				safe = append(safe, key)
			}
		}
	}
	return safe
}

// SanitizeAmenities keeps only whitelisted amenity values.
func SanitizeAmenities(amenities []string) []string {
	var safe []string
	for _, a := range amenities {
		if _, ok := AllowedAmenities[a]; ok {
			safe = append(safe, a)
		}
	}
	return safe
}
