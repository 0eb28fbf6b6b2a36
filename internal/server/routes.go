package server

import (
	"net/http"
)

// setupRoutes registers the list surface, the session hand-off and the operator endpoints
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	a := s.app

	mux.HandleFunc("/", a.APIHandler.RootHandler)

	// Shopping list
	mux.HandleFunc("/items/all", a.ItemHandler.AllItemsHandler)
	mux.HandleFunc("/items/incomplete", a.ItemHandler.IncompleteItemsHandler)
	mux.HandleFunc("/items/completed", a.ItemHandler.CompletedItemsHandler)
	mux.Handle("/items", MethodRouter{
		http.MethodPost:   a.ItemHandler.AddItemHandler,
		http.MethodDelete: a.ItemHandler.DeleteItemHandler,
	})
	mux.HandleFunc("/items/mark_completed", a.ItemHandler.MarkCompletedHandler)
	mux.HandleFunc("/items/mark_incomplete", a.ItemHandler.MarkIncompleteHandler)
	mux.HandleFunc("/lists", a.ItemHandler.ListsHandler)

	// Session hand-off from larder-login
	mux.HandleFunc("/auth/cookies", a.AuthHandler.CookiesHandler)
	mux.HandleFunc("/api/auth/status", a.AuthHandler.GetAuthStatusHandler)

	// Session status and liveness history
	mux.HandleFunc("/api/status", a.StatusHandler.GetStatusHandler)
	mux.HandleFunc("/api/status/history", a.StatusHandler.GetHistoryHandler)

	// Tool façade
	mux.HandleFunc("/tools", a.ToolsHandler.ListToolsHandler)
	mux.HandleFunc("/tools/execute", a.ToolsHandler.ExecuteToolHandler)

	// WebSocket event feed
	mux.HandleFunc("/ws", a.WSHandler.HandleWebSocket)

	// System
	mux.HandleFunc("/api/version", a.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", a.APIHandler.HealthHandler)
	if a.Prometheus != nil {
		mux.Handle(a.Config.Metrics.Path, a.Prometheus.Handler())
	}

	mux.HandleFunc("/api/", a.APIHandler.NotFoundHandler)

	return mux
}
