package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	apperrors "github.com/wallet-insights/internal/errors"
	"github.com/wallet-insights/internal/logging"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

// FieldError names one invalid request field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Codes used only at the HTTP boundary
const (
	ErrCodeRouteNotFound = "ROUTE_NOT_FOUND"
	ErrCodeInvalidBody   = "INVALID_BODY"
)

// respondError sends an error response.
func respondError(w http.ResponseWriter, statusCode int, code, message string, details interface{}) {
	respondJSON(w, statusCode, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondServiceError maps a service error to its status and public message.
// Server-side failures are logged with their cause and never leak it; an
// unavailable upstream keeps its own code since its message names no cause.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	catErr := apperrors.Categorize(err)

	if catErr.StatusCode >= 500 {
		logging.FromContext(r.Context()).
			WithError(err).
			WithField("code", catErr.Code).
			Error("Request failed")
		if catErr.Code == apperrors.CodeServiceUnavail {
			respondError(w, catErr.StatusCode, catErr.Code, catErr.Message, nil)
			return
		}
		respondError(w, catErr.StatusCode, apperrors.CodeInternal, apperrors.InternalMessage, nil)
		return
	}

	if catErr.StatusCode == http.StatusTooManyRequests {
		if secs, ok := catErr.Details["retryAfter"].(int); ok {
			w.Header().Set("Retry-After", fmt.Sprint(secs))
		}
	}

	respondError(w, catErr.StatusCode, catErr.Code, catErr.Message, nil)
}

// parseJSONBody parses JSON request body.
func parseJSONBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("decoding json payload: %w", err)
	}
	return nil
}
