package models

import (
	"time"

	"github.com/demand-radar/internal/types"
)

// Alert is a persisted opportunity notification. Alerts are created only by
// the synthesizer; the API layer owns status transitions and deletion.
type Alert struct {
	ID              string              `json:"id"`
	UserID          string              `json:"userId"`
	AlertType       types.AlertType     `json:"alertType"`
	Source          types.CandidateSource `json:"source"`
	Priority        types.AlertPriority `json:"priority"`
	Status          types.AlertStatus   `json:"status"`
	Title           string              `json:"title"`
	Message         string              `json:"message"`
	Keyword         string              `json:"keyword,omitempty"`
	Context         types.AlertContext  `json:"context,omitempty"`
	PredictedImpact float64             `json:"predictedImpact"` // currency units, >= 0
	Confidence      float64             `json:"confidence"`      // [0,1]
	CreatedAt       time.Time           `json:"createdAt"`
	ReadAt          *time.Time          `json:"readAt,omitempty"`
	ActedAt         *time.Time          `json:"actedAt,omitempty"`
}

// DedupKey returns the dedup invariant key: at most one status=new alert may
// exist per key at a time.
func (a *Alert) DedupKey() string {
	return a.UserID + ":" + string(a.AlertType) + ":" + a.Keyword
}
