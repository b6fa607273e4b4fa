// Package service implements the evaluation engine: signal collection, the
// demand detector, the promotion timing engine, and the alert synthesizer.
package service

import (
	"context"
	"time"

	"github.com/demand-radar/internal/adapter"
	"github.com/demand-radar/internal/logging"
	"github.com/demand-radar/internal/models"
	"github.com/demand-radar/internal/storage"
	"github.com/demand-radar/internal/types"
)

// Profile is the per-user input to the rule engines.
type Profile struct {
	User     *models.User
	Keywords []*models.TrackedKeyword
}

// DegradedSignal records one signal kind that could not be collected for a
// user this pass. The rules depending on it are skipped; everything else runs.
type DegradedSignal struct {
	Kind   types.SignalKind
	Reason string
}

// SignalSet is the normalized signal snapshot for one user for one pass.
// It is transient; nothing here outlives the pass.
type SignalSet struct {
	Forecast  []types.ForecastPoint
	Trends    map[string]*types.TrendScore
	Holidays  []types.Holiday
	Stockouts []types.Stockout

	Attempted []types.SignalKind
	Degraded  []DegradedSignal
}

// FullyDegraded reports whether every signal kind attempted for this user
// failed. The pass records such users as skipped rather than succeeded.
func (s *SignalSet) FullyDegraded() bool {
	return len(s.Attempted) > 0 && len(s.Degraded) == len(s.Attempted)
}

// SignalHistoryRecorder appends signal observations for offline analysis.
type SignalHistoryRecorder interface {
	RecordBatch(ctx context.Context, observations []*storage.SignalObservation) error
}

// SignalService collects the signal snapshot for a user from the providers.
// Provider failures degrade the affected kind instead of failing collection.
type SignalService struct {
	weather   adapter.WeatherProvider
	trends    adapter.TrendProvider
	holidays  adapter.HolidayProvider
	stockouts adapter.StockoutProvider // optional
	history   SignalHistoryRecorder    // optional
	logger    *logging.Logger
	now       func() time.Time
}

// NewSignalService creates a new signal service. stockouts and history may be
// nil; the corresponding rules and recording then no-op.
func NewSignalService(
	weather adapter.WeatherProvider,
	trends adapter.TrendProvider,
	holidays adapter.HolidayProvider,
	stockouts adapter.StockoutProvider,
	history SignalHistoryRecorder,
	logger *logging.Logger,
) *SignalService {
	return &SignalService{
		weather:   weather,
		trends:    trends,
		holidays:  holidays,
		stockouts: stockouts,
		history:   history,
		logger:    logger,
		now:       time.Now,
	}
}

// Collect gathers the signal snapshot for a user. Only applicable kinds are
// attempted: weather needs a city, holidays need a country, trends and
// stockouts need tracked keywords.
func (s *SignalService) Collect(ctx context.Context, profile *Profile) *SignalSet {
	set := &SignalSet{Trends: make(map[string]*types.TrendScore)}
	user := profile.User

	if user.HasLocation() {
		set.Attempted = append(set.Attempted, types.SignalWeather)
		forecast, err := s.weather.Forecast(ctx, user.LocationCity)
		if err != nil {
			s.degrade(set, types.SignalWeather, user.ID, err)
		} else {
			set.Forecast = forecast
		}
	}

	if len(profile.Keywords) > 0 {
		set.Attempted = append(set.Attempted, types.SignalTrend)
		failed := 0
		var lastErr error
		for _, kw := range profile.Keywords {
			score, err := s.trends.Score(ctx, kw.Keyword)
			if err != nil {
				failed++
				lastErr = err
				continue
			}
			set.Trends[kw.Keyword] = score
		}
		if failed == len(profile.Keywords) {
			s.degrade(set, types.SignalTrend, user.ID, lastErr)
		}
	}

	if user.HasCountry() {
		set.Attempted = append(set.Attempted, types.SignalHoliday)
		holidays, err := s.holidays.Upcoming(ctx, user.LocationCountry)
		if err != nil {
			s.degrade(set, types.SignalHoliday, user.ID, err)
		} else {
			set.Holidays = holidays
		}
	}

	if s.stockouts != nil && len(profile.Keywords) > 0 {
		set.Attempted = append(set.Attempted, types.SignalStockout)
		failed := 0
		var lastErr error
		for _, kw := range profile.Keywords {
			stockouts, err := s.stockouts.Stockouts(ctx, kw.Keyword)
			if err != nil {
				failed++
				lastErr = err
				continue
			}
			set.Stockouts = append(set.Stockouts, stockouts...)
		}
		if failed == len(profile.Keywords) {
			s.degrade(set, types.SignalStockout, user.ID, lastErr)
		}
	}

	s.recordHistory(ctx, profile, set)
	return set
}

func (s *SignalService) degrade(set *SignalSet, kind types.SignalKind, userID string, err error) {
	set.Degraded = append(set.Degraded, DegradedSignal{Kind: kind, Reason: err.Error()})
	s.logger.WithFields(map[string]interface{}{
		"user_id": userID,
		"signal":  string(kind),
	}).WithError(err).Warn("Signal unavailable, skipping dependent rules")
}

// recordHistory appends the collected observations to ClickHouse. History is
// off the alert path; failures are logged and swallowed.
func (s *SignalService) recordHistory(ctx context.Context, profile *Profile, set *SignalSet) {
	if s.history == nil {
		return
	}

	var observations []*storage.SignalObservation
	for _, point := range set.Forecast {
		observations = append(observations, &storage.SignalObservation{
			Kind:       types.SignalWeather,
			Subject:    profile.User.LocationCity,
			Value:      point.RainProbability,
			ObservedAt: point.Timestamp,
		})
	}
	for keyword, score := range set.Trends {
		observations = append(observations, &storage.SignalObservation{
			Kind:       types.SignalTrend,
			Subject:    keyword,
			Value:      score.Value,
			ObservedAt: s.now(),
		})
	}
	for _, holiday := range set.Holidays {
		observations = append(observations, &storage.SignalObservation{
			Kind:       types.SignalHoliday,
			Subject:    holiday.Name,
			ObservedAt: holiday.Date,
		})
	}

	if len(observations) == 0 {
		return
	}
	if err := s.history.RecordBatch(ctx, observations); err != nil {
		s.logger.WithError(err).Warn("Failed to record signal history")
	}
}
