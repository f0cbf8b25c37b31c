package insights

import (
	"net/http"

	"github.com/howshous/analytics/internal/common/middleware"
)

func SetupRoutes(mux *http.ServeMux, handler *Handler, jwtSecret string) {
	// Every insights route acts on the authenticated landlord's own data.
	protected := middleware.JWTAuth(jwtSecret)
	mux.Handle("GET /api/v1/insights/input", protected(http.HandlerFunc(handler.GetInsightInput)))
	mux.Handle("POST /api/v1/insights/chat", protected(http.HandlerFunc(handler.Chat)))
	mux.Handle("GET /api/v1/insights/cached", protected(http.HandlerFunc(handler.GetCachedInsight)))
}
