package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/larder/internal/interfaces"
	"github.com/ternarybob/larder/internal/models"
)

const defaultHistoryLimit = 20

// StatusHandler handles HTTP requests for the session status
type StatusHandler struct {
	status StatusProvider
	runner CheckRunner
	checks interfaces.CheckStorage
	logger arbor.ILogger
}

// NewStatusHandler creates a new StatusHandler. runner and checks may be nil.
func NewStatusHandler(status StatusProvider, runner CheckRunner, checks interfaces.CheckStorage, logger arbor.ILogger) *StatusHandler {
	return &StatusHandler{
		status: status,
		runner: runner,
		checks: checks,
		logger: logger,
	}
}

// GetStatusHandler handles GET /api/status. With ?refresh=true a liveness check runs first.
func (h *StatusHandler) GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	if r.URL.Query().Get("refresh") == "true" && h.runner != nil {
		check := h.runner.RunNow(r.Context())
		h.logger.Debug().Str("outcome", string(check.Outcome)).Msg("On-demand liveness check")
	}

	st := h.status.GetStatus(r.Context())
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":      st,
		"needs_login": st.NeedsLogin(),
	})
}

// GetHistoryHandler handles GET /api/status/history?limit=n
func (h *StatusHandler) GetHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	if h.checks == nil {
		WriteJSON(w, http.StatusOK, map[string]interface{}{"checks": []*models.SessionCheck{}, "total": 0})
		return
	}

	checks, err := h.checks.ListRecent(r.Context(), QueryInt(r, "limit", defaultHistoryLimit))
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list session checks")
		WriteError(w, http.StatusInternalServerError, "Failed to list session checks")
		return
	}
	if checks == nil {
		checks = []*models.SessionCheck{}
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"checks": checks,
		"total":  len(checks),
	})
}
