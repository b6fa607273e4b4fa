package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/demand-radar/internal/errors"
	"github.com/demand-radar/internal/models"
)

// handleListKeywords returns a user's active tracked keywords.
func (s *Server) handleListKeywords(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	keywords, err := s.keywords.ListByUser(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"keywords": keywords,
		"count":    len(keywords),
	})
}

type createKeywordRequest struct {
	Keyword  string `json:"keyword"`
	Category string `json:"category,omitempty"`
}

// handleCreateKeyword starts tracking a keyword for a user.
func (s *Server) handleCreateKeyword(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	var req createKeywordRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, errors.NewInvalidParameterError("body", "malformed JSON"))
		return
	}

	keyword := strings.TrimSpace(strings.ToLower(req.Keyword))
	if keyword == "" {
		respondError(w, errors.NewInvalidParameterError("keyword", "must not be empty"))
		return
	}

	kw := &models.TrackedKeyword{
		UserID:   userID,
		Keyword:  keyword,
		Category: req.Category,
		IsActive: true,
	}

	if err := s.keywords.Create(r.Context(), kw); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, kw)
}

// handleDeleteKeyword stops tracking a keyword.
func (s *Server) handleDeleteKeyword(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := s.keywords.Delete(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
