package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/demand-radar/internal/errors"
	"github.com/demand-radar/internal/models"
	"github.com/demand-radar/internal/types"
)

type createUserRequest struct {
	Email            string                 `json:"email"`
	BusinessName     string                 `json:"businessName,omitempty"`
	MarketCategories []types.MarketCategory `json:"marketCategories,omitempty"`
	LocationCity     string                 `json:"locationCity,omitempty"`
	LocationState    string                 `json:"locationState,omitempty"`
	LocationCountry  string                 `json:"locationCountry,omitempty"`
}

// handleCreateUser registers a retailer account.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, errors.NewInvalidParameterError("body", "malformed JSON"))
		return
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		respondError(w, errors.NewInvalidParameterError("email", "must be a valid email address"))
		return
	}

	user := &models.User{
		Email:            email,
		BusinessName:     req.BusinessName,
		IsActive:         true,
		MarketCategories: req.MarketCategories,
		LocationCity:     strings.TrimSpace(req.LocationCity),
		LocationState:    strings.TrimSpace(req.LocationState),
		LocationCountry:  strings.ToUpper(strings.TrimSpace(req.LocationCountry)),
	}

	if err := s.users.Create(r.Context(), user); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, user)
}

// handleListUsers returns users with pagination.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	limit := 50
	offset := 0
	query := r.URL.Query()

	if limitStr := query.Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			respondError(w, errors.NewInvalidParameterError("limit", "must be a positive integer"))
			return
		}
		limit = parsed
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		parsed, err := strconv.Atoi(offsetStr)
		if err != nil || parsed < 0 {
			respondError(w, errors.NewInvalidParameterError("offset", "must be a non-negative integer"))
			return
		}
		offset = parsed
	}

	users, err := s.users.List(r.Context(), limit, offset)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"users": users,
		"count": len(users),
	})
}

// handleGetUser returns one user by ID.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	user, err := s.users.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}
