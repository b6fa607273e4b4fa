package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/demand-radar/internal/errors"
	"github.com/demand-radar/internal/storage"
	"github.com/demand-radar/internal/types"
)

// handleListAlerts returns a user's alerts, newest first, optionally filtered
// by status, type, and limit.
func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	filter := storage.AlertFilter{}
	query := r.URL.Query()

	if status := query.Get("status"); status != "" {
		if !types.ValidStatus(types.AlertStatus(status)) {
			respondError(w, errors.NewInvalidParameterError("status", "must be new, read, or acted"))
			return
		}
		filter.Status = types.AlertStatus(status)
	}

	if alertType := query.Get("type"); alertType != "" {
		filter.Type = types.AlertType(alertType)
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			respondError(w, errors.NewInvalidParameterError("limit", "must be a positive integer"))
			return
		}
		filter.Limit = limit
	}

	alerts, err := s.alerts.ListByUser(r.Context(), userID, filter)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

type updateAlertStatusRequest struct {
	Status types.AlertStatus `json:"status"`
}

// handleUpdateAlertStatus moves an alert to read or acted. Alerts never go
// back to new.
func (s *Server) handleUpdateAlertStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req updateAlertStatusRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, errors.NewInvalidParameterError("body", "malformed JSON"))
		return
	}

	if req.Status != types.StatusRead && req.Status != types.StatusActed {
		respondError(w, errors.NewInvalidParameterError("status", "must be read or acted"))
		return
	}

	alert, err := s.alerts.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, alert)
}

// handleDeleteAlert deletes an alert.
func (s *Server) handleDeleteAlert(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := s.alerts.Delete(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
