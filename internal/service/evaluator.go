package service

import (
	"context"
	"fmt"
	"time"

	"github.com/demand-radar/internal/errors"
	"github.com/demand-radar/internal/logging"
	"github.com/demand-radar/internal/models"
)

// UserResult is the per-user outcome of one evaluation pass.
type UserResult struct {
	UserID  string
	Created int
	Skipped bool
	Reason  string
}

// KeywordSource lists a user's active tracked keywords.
type KeywordSource interface {
	ListByUser(ctx context.Context, userID string) ([]*models.TrackedKeyword, error)
}

// Evaluator runs the full pipeline for one user: collect signals, run both
// rule engines, synthesize. A failure for one user never affects another.
type Evaluator struct {
	signals     *SignalService
	detector    *DemandDetector
	timing      *PromotionTimingEngine
	synthesizer *AlertSynthesizer
	keywords    KeywordSource
	logger      *logging.Logger
	now         func() time.Time
}

// NewEvaluator creates a new evaluator
func NewEvaluator(
	signals *SignalService,
	detector *DemandDetector,
	timing *PromotionTimingEngine,
	synthesizer *AlertSynthesizer,
	keywords KeywordSource,
	logger *logging.Logger,
) *Evaluator {
	return &Evaluator{
		signals:     signals,
		detector:    detector,
		timing:      timing,
		synthesizer: synthesizer,
		keywords:    keywords,
		logger:      logger,
		now:         time.Now,
	}
}

// EvaluateUser evaluates one user and reports the outcome. It never returns
// an error; any failure becomes a skip with a reason so the pass can carry on.
func (e *Evaluator) EvaluateUser(ctx context.Context, user *models.User) UserResult {
	if !user.IsActive {
		return UserResult{UserID: user.ID, Skipped: true, Reason: "user inactive"}
	}

	keywords, err := e.keywords.ListByUser(ctx, user.ID)
	if err != nil {
		e.logger.WithField("user_id", user.ID).WithError(err).Error("Failed to load tracked keywords")
		return UserResult{UserID: user.ID, Skipped: true, Reason: errors.Categorize(err).Message}
	}

	if !user.HasLocation() && !user.HasCountry() && len(keywords) == 0 {
		return UserResult{UserID: user.ID, Skipped: true, Reason: "profile has no location, country, or tracked keywords"}
	}

	profile := &Profile{User: user, Keywords: keywords}
	signals := e.signals.Collect(ctx, profile)

	if signals.FullyDegraded() {
		return UserResult{
			UserID:  user.ID,
			Skipped: true,
			Reason:  fmt.Sprintf("all signals unavailable: %s", signals.Degraded[0].Reason),
		}
	}

	now := e.now()
	candidates := e.detector.Detect(profile, signals, now)
	candidates = append(candidates, e.timing.Evaluate(profile, signals, now)...)

	created, err := e.synthesizer.Synthesize(ctx, user.ID, candidates)
	if err != nil {
		e.logger.WithField("user_id", user.ID).WithError(err).Error("Failed to persist alerts")
		return UserResult{UserID: user.ID, Skipped: true, Reason: errors.Categorize(err).Message}
	}

	return UserResult{UserID: user.ID, Created: len(created)}
}
