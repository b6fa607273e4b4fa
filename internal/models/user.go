// Package models defines the persisted entities for the demand radar.
package models

import (
	"strings"
	"time"

	"github.com/demand-radar/internal/types"
)

// User represents a retailer account. The evaluation engine treats users as
// read-only input; account management lives behind the API layer.
type User struct {
	ID               string                 `json:"id"`
	Email            string                 `json:"email"`
	BusinessName     string                 `json:"businessName,omitempty"`
	IsActive         bool                   `json:"isActive"`
	MarketCategories []types.MarketCategory `json:"marketCategories,omitempty"`
	LocationCity     string                 `json:"locationCity,omitempty"`
	LocationState    string                 `json:"locationState,omitempty"`
	LocationCountry  string                 `json:"locationCountry,omitempty"`
	CreatedAt        time.Time              `json:"createdAt"`
	UpdatedAt        time.Time              `json:"updatedAt"`
}

// HasLocation reports whether the user has a city for weather rules.
func (u *User) HasLocation() bool {
	return strings.TrimSpace(u.LocationCity) != ""
}

// HasCountry reports whether the user has a country for holiday rules.
func (u *User) HasCountry() bool {
	return strings.TrimSpace(u.LocationCountry) != ""
}

// TrackedKeyword is a keyword a user watches for demand signals.
// Unique per (user, keyword).
type TrackedKeyword struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Keyword   string    `json:"keyword"`
	Category  string    `json:"category,omitempty"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}
