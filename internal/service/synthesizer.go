package service

import (
	"context"
	"time"

	"github.com/demand-radar/internal/config"
	"github.com/demand-radar/internal/logging"
	"github.com/demand-radar/internal/models"
	"github.com/demand-radar/internal/types"
)

// AlertStore is the persistence surface the synthesizer needs.
type AlertStore interface {
	ListUnresolved(ctx context.Context, userID string, since time.Time) ([]*models.Alert, error)
	InsertBatch(ctx context.Context, alerts []*models.Alert) error
}

// AlertSynthesizer turns candidates into persisted alerts: it assigns
// priority, confidence, and predicted impact, deduplicates against open
// alerts, and persists survivors in one transaction. Running it twice with
// unchanged signals inserts nothing the second time.
type AlertSynthesizer struct {
	store  AlertStore
	cfg    *config.EvaluationConfig
	logger *logging.Logger
	now    func() time.Time
}

// NewAlertSynthesizer creates a new alert synthesizer
func NewAlertSynthesizer(store AlertStore, cfg *config.EvaluationConfig, logger *logging.Logger) *AlertSynthesizer {
	return &AlertSynthesizer{
		store:  store,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Synthesize persists the surviving alerts for a user and returns them.
// A persistence failure leaves the alert table untouched.
func (s *AlertSynthesizer) Synthesize(ctx context.Context, userID string, candidates []types.AlertCandidate) ([]*models.Alert, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	now := s.now()
	open, err := s.openKeys(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	// Collapse duplicate keys inside the batch first, keeping the higher raw
	// score, then drop keys that already have an open alert.
	best := make(map[string]*types.AlertCandidate)
	var order []string
	for i := range candidates {
		c := &candidates[i]
		key := c.DedupKey(userID)
		if open[key] {
			continue
		}
		if existing, ok := best[key]; ok {
			if c.RawScore > existing.RawScore {
				best[key] = c
			}
			continue
		}
		best[key] = c
		order = append(order, key)
	}

	alerts := make([]*models.Alert, 0, len(order))
	for _, key := range order {
		alerts = append(alerts, s.buildAlert(userID, best[key], now))
	}

	if len(alerts) == 0 {
		return nil, nil
	}

	if err := s.store.InsertBatch(ctx, alerts); err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id":    userID,
		"candidates": len(candidates),
		"created":    len(alerts),
	}).Info("Synthesized alerts")

	return alerts, nil
}

// openKeys returns the dedup keys with an open alert inside the dedup window.
// A zero window means any open alert suppresses, regardless of age.
func (s *AlertSynthesizer) openKeys(ctx context.Context, userID string, now time.Time) (map[string]bool, error) {
	var since time.Time
	if s.cfg.DedupWindow > 0 {
		since = now.Add(-s.cfg.DedupWindow)
	}

	existing, err := s.store.ListUnresolved(ctx, userID, since)
	if err != nil {
		return nil, err
	}

	open := make(map[string]bool, len(existing))
	for _, alert := range existing {
		open[alert.DedupKey()] = true
	}
	return open, nil
}

func (s *AlertSynthesizer) buildAlert(userID string, c *types.AlertCandidate, now time.Time) *models.Alert {
	score := clamp01(c.RawScore)
	priority := PriorityForScore(score)

	return &models.Alert{
		UserID:          userID,
		AlertType:       c.Type,
		Source:          c.Source,
		Priority:        priority,
		Status:          types.StatusNew,
		Title:           c.Title,
		Message:         c.Message,
		Keyword:         c.Keyword,
		Context:         c.Context,
		PredictedImpact: PredictedImpact(c.Type, priority),
		Confidence:      score,
		CreatedAt:       now,
	}
}

// PriorityForScore maps a raw score to a priority band.
func PriorityForScore(score float64) types.AlertPriority {
	switch {
	case score >= 0.8:
		return types.PriorityHigh
	case score >= 0.5:
		return types.PriorityMedium
	default:
		return types.PriorityLow
	}
}
