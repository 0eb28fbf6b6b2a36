package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/larder/internal/interfaces"
	"github.com/ternarybob/larder/internal/models"
	"github.com/ternarybob/larder/internal/services/session"
)

const (
	sourceHandoff     = "handoff"
	clearReasonManual = "manual"
)

// AuthHandler receives captured sessions from larder-login and reports whether one is usable
type AuthHandler struct {
	store        interfaces.SessionStorage
	status       StatusProvider
	eventService interfaces.EventService
	metrics      interfaces.MetricsRecorder
	logger       arbor.ILogger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(
	store interfaces.SessionStorage,
	status StatusProvider,
	eventService interfaces.EventService,
	metrics interfaces.MetricsRecorder,
	logger arbor.ILogger,
) *AuthHandler {
	return &AuthHandler{
		store:        store,
		status:       status,
		eventService: eventService,
		metrics:      metrics,
		logger:       logger,
	}
}

// CookiesHandler routes /auth/cookies: POST replaces the session, DELETE removes it
func (h *AuthHandler) CookiesHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "POST":
		h.captureCookies(w, r)
	case "DELETE":
		h.clearCookies(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *AuthHandler) captureCookies(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	cookies, warnings, err := session.Parse(data)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Rejected session hand-off")
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	for _, warning := range warnings {
		h.logger.Warn().Str("warning", warning).Msg("Cookie record dropped")
	}
	if len(cookies) == 0 {
		WriteError(w, http.StatusBadRequest, "Payload contains no usable cookies")
		return
	}

	if err := h.store.Save(r.Context(), cookies); err != nil {
		h.logger.Error().Err(err).Str("path", h.store.Path()).Msg("Failed to store session")
		WriteError(w, http.StatusInternalServerError, "Failed to store session")
		return
	}

	h.metrics.RecordSessionSaved(len(cookies))
	h.logger.Info().
		Int("cookie_count", len(cookies)).
		Str("remote", r.RemoteAddr).
		Msg("Session received from login bridge")

	h.publish(r.Context(), interfaces.EventSessionCaptured, map[string]interface{}{
		"cookie_count": len(cookies),
		"source":       sourceHandoff,
	})

	if warnings == nil {
		warnings = []string{}
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "success",
		"message":      fmt.Sprintf("Session stored with %d cookies", len(cookies)),
		"cookie_count": len(cookies),
		"warnings":     warnings,
	})
}

func (h *AuthHandler) clearCookies(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Clear(r.Context()); err != nil {
		h.logger.Error().Err(err).Msg("Failed to clear session")
		WriteError(w, http.StatusInternalServerError, "Failed to clear session")
		return
	}

	h.metrics.RecordSessionCleared(clearReasonManual)
	h.logger.Info().Msg("Session cleared on request")

	h.publish(r.Context(), interfaces.EventSessionCleared, map[string]interface{}{
		"reason": clearReasonManual,
	})

	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Session cleared",
	})
}

// GetAuthStatusHandler returns whether a usable session is stored
func (h *AuthHandler) GetAuthStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	st := h.status.GetStatus(r.Context())
	response := map[string]interface{}{
		"authenticated": st.SessionPresent && st.State != models.SessionInvalid,
		"state":         st.State,
		"cookie_count":  st.CookieCount,
		"message":       st.Message,
	}
	if len(st.CookieNames) > 0 {
		response["cookie_names"] = st.CookieNames
	}
	if st.CapturedAt != nil {
		response["captured_at"] = st.CapturedAt
	}
	WriteJSON(w, http.StatusOK, response)
}

func (h *AuthHandler) publish(ctx context.Context, eventType interfaces.EventType, payload map[string]interface{}) {
	if h.eventService == nil {
		return
	}
	if err := h.eventService.Publish(ctx, interfaces.Event{Type: eventType, Payload: payload}); err != nil {
		h.logger.Warn().Err(err).Str("event", string(eventType)).Msg("Failed to publish event")
	}
}
