package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ternarybob/concierge/internal/common"
)

// RequestIDHeader carries the request id between client, middleware and handlers
const RequestIDHeader = "X-Request-ID"

// ErrorResponse is the body of every non-2xx JSON response
type ErrorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// RequireMethod writes 405 and returns false unless r uses method
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	return false
}

// RequestID returns the id assigned by the middleware, or a fresh one when the
// handler is called directly
func RequestID(r *http.Request) string {
	if id := r.Header.Get(RequestIDHeader); id != "" {
		return id
	}
	return common.NewRequestID()
}

// WriteJSON encodes data with the given status code
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes an ErrorResponse
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, ErrorResponse{Status: "error", Error: message})
}

// GetLimitParam reads the "limit" query parameter. Missing or invalid values
// give def; values above max are clamped.
func GetLimitParam(r *http.Request, def, max int) int {
	limit := def
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	return min(limit, max)
}
