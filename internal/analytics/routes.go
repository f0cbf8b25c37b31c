package analytics

import (
	"net/http"

	"github.com/howshous/analytics/internal/common/middleware"
)

func SetupRoutes(mux *http.ServeMux, handler *Handler, jwtSecret string) {
	// Health checks
	mux.HandleFunc("GET /health", handler.HealthCheck)
	mux.HandleFunc("GET /ready", handler.ReadinessCheck)

	// Event ingestion. Producers include anonymous tenant sessions, so this
	// route carries no JWT; validation and whitelisting gate what gets in.
	mux.HandleFunc("POST /api/v1/events", handler.IngestEvent)

	// Landlord metrics API
	protected := middleware.JWTAuth(jwtSecret)
	mux.Handle("GET /api/v1/listings/{listing_id}/metrics", protected(http.HandlerFunc(handler.GetListingMetrics)))
	mux.Handle("GET /api/v1/listings/{listing_id}/analytics-summary", protected(http.HandlerFunc(handler.GetListingAnalyticsSummary)))
}
