package handlers

import (
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/larder/internal/services/tools"
)

// ExecuteRequest is the body of POST /tools/execute
type ExecuteRequest struct {
	ToolName   string                 `json:"tool_name" validate:"required"`
	Parameters map[string]interface{} `json:"parameters"`
	Stream     bool                   `json:"stream"`
}

// ToolsHandler exposes the tool registry over HTTP
type ToolsHandler struct {
	registry *tools.Registry
	logger   arbor.ILogger
}

// NewToolsHandler creates a new tools handler
func NewToolsHandler(registry *tools.Registry, logger arbor.ILogger) *ToolsHandler {
	return &ToolsHandler{
		registry: registry,
		logger:   logger,
	}
}

// ListToolsHandler handles GET /tools?category=&search=&limit=
func (h *ToolsHandler) ListToolsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	query := r.URL.Query()
	defs := h.registry.List(tools.Filter{
		Category: query.Get("category"),
		Search:   query.Get("search"),
		Limit:    QueryInt(r, "limit", 100),
	})

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"tools": defs,
		"total": len(defs),
	})
}

// ExecuteToolHandler handles POST /tools/execute
func (h *ToolsHandler) ExecuteToolHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req ExecuteRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Stream {
		h.logger.Debug().Str("tool", req.ToolName).Msg("Streaming not supported, returning a single result")
	}

	result, err := h.registry.Execute(r.Context(), req.ToolName, req.Parameters)
	if errors.Is(err, tools.ErrUnknownTool) {
		WriteError(w, http.StatusNotFound, "Tool '"+req.ToolName+"' not found")
		return
	}
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"tool_name": req.ToolName,
		"result":    result,
	})
}
