package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/ternarybob/larder/internal/models"
	"github.com/ternarybob/larder/internal/services/status"
)

const maxRequestBody = 1 << 20

var validate = validator.New()

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteMessage writes {"message": ...} with the given status.
func WriteMessage(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"message": message,
	})
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// WriteOperationError maps an error from the list or session layer onto a status code.
// Authentication failures carry the re-login hint.
func WriteOperationError(w http.ResponseWriter, err error) error {
	statusCode := StatusCodeFor(err)
	if statusCode == http.StatusUnauthorized {
		return WriteJSON(w, statusCode, map[string]string{
			"status": "error",
			"error":  err.Error(),
			"hint":   status.ReauthHint,
		})
	}
	return WriteError(w, statusCode, err.Error())
}

// StatusCodeFor returns the HTTP status for an error class
func StatusCodeFor(err error) int {
	switch {
	case errors.Is(err, models.ErrItemNotFound):
		return http.StatusNotFound
	case models.IsAuthFailure(err):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrTransient):
		return http.StatusServiceUnavailable
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// DecodeJSON reads a bounded JSON body into v and applies its validate tags.
func DecodeJSON(r *http.Request, v interface{}) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		return fmt.Errorf("%w: failed to read body: %v", models.ErrInvalidInput, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", models.ErrInvalidInput, err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}
	return nil
}

// QueryInt reads a positive integer query parameter, falling back to def.
func QueryInt(r *http.Request, name string, def int) int {
	if raw := r.URL.Query().Get(name); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return def
}
