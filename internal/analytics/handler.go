package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/howshous/analytics/internal/common/apperr"
	"github.com/howshous/analytics/internal/common/logger"
	"github.com/howshous/analytics/internal/common/metrics"
	"github.com/howshous/analytics/internal/common/middleware"
)

// EventPublisher hands accepted events to the aggregation pipeline.
// *kafka.Producer satisfies it.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, event interface{}) error
}

type Handler struct {
	service   Service
	publisher EventPublisher
	logger    *logger.Logger
}

func NewHandler(service Service, publisher EventPublisher, log *logger.Logger) *Handler {
	return &Handler{service: service, publisher: publisher, logger: log}
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Data    interface{} `json:"data"`
	Message string      `json:"message,omitempty"`
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response
func writeError(w http.ResponseWriter, status int, err string, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:   err,
		Message: message,
	})
}

// writeAppError maps a typed service error onto the response envelope.
func writeAppError(w http.ResponseWriter, err error) {
	writeError(w, apperr.HTTPStatus(err), string(apperr.KindOf(err)), apperr.MessageOf(err))
}

// IngestEvent handles POST /api/v1/events. Valid events are stamped with an
// event id and ingestion timestamp, then published to the events topic; the
// aggregation worker applies them. Invalid events are rejected outright.
func (h *Handler) IngestEvent(w http.ResponseWriter, r *http.Request) {
	var event AnalyticsEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "Request body must be a JSON analytics event")
		return
	}

	if err := ValidateEvent(&event); err != nil {
		eventType := event.EventType
		if eventType == "" {
			eventType = "unknown"
		}
		metrics.EventsRejected.WithLabelValues(eventType).Inc()
		writeError(w, http.StatusBadRequest, "invalid_event", err.Error())
		return
	}

	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}
	if event.Timestamp == nil {
		now := time.Now().UTC()
		event.Timestamp = &now
	}

	if err := h.publisher.PublishEvent(r.Context(), EventsTopic, partitionKey(&event), &event); err != nil {
		h.logger.Errorf("Failed to publish analytics event %s: %v", event.EventID, err)
		writeError(w, http.StatusServiceUnavailable, "publish_failed", "Event could not be accepted, retry later")
		return
	}

	writeJSON(w, http.StatusAccepted, IngestResponse{
		EventID: event.EventID,
		Status:  "accepted",
	})
}

// partitionKey keeps events for the same listing on one partition so their
// dedup transactions are ordered; search events key on the searcher instead.
func partitionKey(event *AnalyticsEvent) string {
	if event.ListingID != "" {
		return event.ListingID
	}
	if event.SessionID != "" {
		return event.SessionID
	}
	return event.UserID
}

// GetListingMetrics handles GET /api/v1/listings/{listing_id}/metrics
func (h *Handler) GetListingMetrics(w http.ResponseWriter, r *http.Request) {
	landlordID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "Authentication required")
		return
	}

	listingID := r.PathValue("listing_id")
	if listingID == "" {
		writeError(w, http.StatusBadRequest, "invalid_argument", "listing_id is required")
		return
	}

	resp, err := h.service.GetListingMetrics(r.Context(), landlordID, listingID)
	if err != nil {
		h.logger.Errorf("Failed to get listing metrics for %s: %v", listingID, err)
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SuccessResponse{Data: resp})
}

// GetListingAnalyticsSummary handles GET /api/v1/listings/{listing_id}/analytics-summary
func (h *Handler) GetListingAnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	landlordID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "Authentication required")
		return
	}

	listingID := r.PathValue("listing_id")
	if listingID == "" {
		writeError(w, http.StatusBadRequest, "invalid_argument", "listing_id is required")
		return
	}

	summary, err := h.service.GetListingAnalyticsSummary(r.Context(), landlordID, listingID)
	if err != nil {
		h.logger.Errorf("Failed to get analytics summary for %s: %v", listingID, err)
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SuccessResponse{Data: summary})
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"service":   "analytics",
		"timestamp": time.Now().UTC(),
	})
}

// ReadinessCheck handles GET /ready
func (h *Handler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ready",
		"service": "analytics",
	})
}
