package api

import (
	"encoding/json"
	"net/http"

	"github.com/demand-radar/internal/errors"
	"github.com/demand-radar/internal/types"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error types.ServiceError `json:"error"`
}

// respondError sends the JSON form of a categorized error with its status.
func respondError(w http.ResponseWriter, err error) {
	catErr := errors.Categorize(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(catErr.StatusCode)

	response := ErrorResponse{Error: *catErr.ToServiceError()}
	json.NewEncoder(w).Encode(response) // nolint:errcheck
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		json.NewEncoder(w).Encode(data) // nolint:errcheck
	}
}

// parseJSONBody parses JSON request body.
func parseJSONBody(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}
