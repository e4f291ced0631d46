package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/weiawesome/wes-io-chat/pkg/log"
	"github.com/weiawesome/wes-io-chat/pkg/middleware"
	"github.com/weiawesome/wes-io-chat/presence-service/internal/domain"
	"github.com/weiawesome/wes-io-chat/presence-service/internal/service"
)

// HTTPHandler handles HTTP API requests for presence.
type HTTPHandler struct {
	service service.PresenceService
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(svc service.PresenceService) *HTTPHandler {
	return &HTTPHandler{
		service: svc,
	}
}

// Heartbeat handles POST /api/v1/presence/heartbeat for the calling user.
func (h *HTTPHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if err := h.service.Heartbeat(r.Context(), userID); err != nil {
		if errors.Is(err, domain.ErrUnauthenticated) {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to record heartbeat")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"online": true})
}

// GetPresence handles GET /api/v1/users/{user_id}/presence
func (h *HTTPHandler) GetPresence(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	status, err := h.service.Status(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidUserID) {
			writeError(w, http.StatusBadRequest, "user_id must be a UUID")
			return
		}
		l := log.Ctx(r.Context())
		l.Error().Err(err).Str(log.FieldUserID, userID).Msg("failed to load presence")
		writeError(w, http.StatusInternalServerError, "failed to get presence")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// BatchPresence handles POST /api/v1/presence/batch
func (h *HTTPHandler) BatchPresence(w http.ResponseWriter, r *http.Request) {
	var req domain.BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	online, err := h.service.BatchIsOnline(r.Context(), req.UserIDs)
	if err != nil {
		if errors.Is(err, domain.ErrBatchTooLarge) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get presence")
		return
	}
	writeJSON(w, http.StatusOK, domain.BatchResponse{Online: online})
}

// HealthCheck handles GET /health
func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// NewRouter registers the presence routes. ws may be nil.
func NewRouter(httpHandler *HTTPHandler, ws *WSHandler, auth *middleware.AuthMiddleware) *mux.Router {
	router := mux.NewRouter()

	if ws != nil {
		router.HandleFunc("/presence/ws", ws.HandleWebSocket)
	}

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(auth.RequireAuthHTTP)
	api.HandleFunc("/presence/heartbeat", httpHandler.Heartbeat).Methods(http.MethodPost)
	api.HandleFunc("/presence/batch", httpHandler.BatchPresence).Methods(http.MethodPost)
	api.HandleFunc("/users/{user_id}/presence", httpHandler.GetPresence).Methods(http.MethodGet)

	router.HandleFunc("/health", httpHandler.HealthCheck).Methods(http.MethodGet)
	return router
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
