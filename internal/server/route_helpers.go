package server

import (
	"net/http"
	"sort"
	"strings"

	"github.com/ternarybob/larder/internal/handlers"
)

// MethodRouter maps HTTP methods to handlers for a single path
type MethodRouter map[string]http.HandlerFunc

// ServeHTTP dispatches on method; anything unlisted gets 405 with an Allow header
func (m MethodRouter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if handler, ok := m[r.Method]; ok {
		handler(w, r)
		return
	}

	allowed := make([]string, 0, len(m))
	for method := range m {
		allowed = append(allowed, method)
	}
	sort.Strings(allowed)
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	_ = handlers.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
}
