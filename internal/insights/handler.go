package insights

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/howshous/analytics/internal/common/apperr"
	"github.com/howshous/analytics/internal/common/logger"
	"github.com/howshous/analytics/internal/common/middleware"
)

type Handler struct {
	service Service
	logger  *logger.Logger
}

func NewHandler(service Service, log *logger.Logger) *Handler {
	return &Handler{service: service, logger: log}
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

// GetInsightInput handles GET /api/v1/insights/input. It returns the exact
// portfolio payload the gateway would attach to a model call, so clients can
// render the same numbers the assistant reasons over.
func (h *Handler) GetInsightInput(w http.ResponseWriter, r *http.Request) {
	landlordID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "Authentication required")
		return
	}

	payload, err := h.service.BuildLandlordPayload(r.Context(), landlordID, time.Now())
	if err != nil {
		h.logger.Errorf("Failed to build insight payload for %s: %v", landlordID, err)
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SuccessResponse{Data: payload})
}

// Chat handles POST /api/v1/insights/chat
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	landlordID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "Authentication required")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "Request body must be a JSON chat request")
		return
	}

	resp, err := h.service.Chat(r.Context(), landlordID, req.Message, req.Refresh)
	if err != nil {
		h.logger.Errorf("Chat request failed for landlord %s: %v", landlordID, err)
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SuccessResponse{Data: resp})
}

// GetCachedInsight handles GET /api/v1/insights/cached
func (h *Handler) GetCachedInsight(w http.ResponseWriter, r *http.Request) {
	landlordID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "Authentication required")
		return
	}

	resp, err := h.service.GetCachedInsight(r.Context(), landlordID)
	if err != nil {
		h.logger.Errorf("Failed to read cached insight for %s: %v", landlordID, err)
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SuccessResponse{Data: resp})
}
