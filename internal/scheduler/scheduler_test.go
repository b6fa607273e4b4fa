package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/demand-radar/internal/config"
	"github.com/demand-radar/internal/errors"
	"github.com/demand-radar/internal/logging"
	"github.com/demand-radar/internal/models"
	"github.com/demand-radar/internal/service"
	"github.com/demand-radar/internal/types"
)

type fakeUserSource struct {
	users []*models.User
}

func (f *fakeUserSource) ListActive(context.Context) ([]*models.User, error) {
	return f.users, nil
}

type fakeKeywordSource struct {
	byUser map[string][]*models.TrackedKeyword
}

func (f *fakeKeywordSource) ListByUser(_ context.Context, userID string) ([]*models.TrackedKeyword, error) {
	return f.byUser[userID], nil
}

// fakeWeather fails for the cities in failFor and returns a rainy forecast
// otherwise.
type fakeWeather struct {
	failFor map[string]bool
}

func (f *fakeWeather) Forecast(_ context.Context, city string) ([]types.ForecastPoint, error) {
	if f.failFor[city] {
		return nil, errors.NewSignalUnavailableError("openweathermap", assert.AnError)
	}
	return []types.ForecastPoint{
		{HoursAhead: 4, RainProbability: 0.9, Temperature: 27},
	}, nil
}

type fakeTrends struct{}

func (fakeTrends) Score(context.Context, string) (*types.TrendScore, error) {
	return &types.TrendScore{Value: 40}, nil
}

type fakeHolidays struct{}

func (fakeHolidays) Upcoming(context.Context, string) ([]types.Holiday, error) {
	return nil, nil
}

type memoryAlertStore struct {
	alerts []*models.Alert
}

func (m *memoryAlertStore) ListUnresolved(_ context.Context, userID string, since time.Time) ([]*models.Alert, error) {
	var out []*models.Alert
	for _, a := range m.alerts {
		if a.UserID != userID || a.Status != types.StatusNew {
			continue
		}
		if !since.IsZero() && a.CreatedAt.Before(since) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *memoryAlertStore) InsertBatch(_ context.Context, alerts []*models.Alert) error {
	m.alerts = append(m.alerts, alerts...)
	return nil
}

func evalConfig() *config.EvaluationConfig {
	return &config.EvaluationConfig{
		RainThreshold:     0.70,
		RainMinHours:      3,
		RainMaxHours:      6,
		HeatThresholdC:    35,
		ColdThresholdC:    10,
		TempWindowHours:   12,
		TrendThreshold:    60,
		TrendHighScore:    80,
		TrendRiseDelta:    10,
		FestivalLookahead: 10,
		PrimingMinDays:    3,
		PrimingMaxDays:    7,
		FootfallWeekday:   []config.HourRange{{Start: 10, End: 12}},
		FootfallWeekend:   []config.HourRange{{Start: 10, End: 20}},
	}
}

func newTestScheduler(t *testing.T, users []*models.User, keywords map[string][]*models.TrackedKeyword, weather *fakeWeather) (*Scheduler, *memoryAlertStore) {
	t.Helper()

	logger := logging.NewLogger(logging.LevelError, logging.FormatText)
	cfg := evalConfig()
	store := &memoryAlertStore{}

	signals := service.NewSignalService(weather, fakeTrends{}, fakeHolidays{}, nil, nil, logger)
	evaluator := service.NewEvaluator(
		signals,
		service.NewDemandDetector(cfg),
		service.NewPromotionTimingEngine(cfg),
		service.NewAlertSynthesizer(store, cfg, logger),
		&fakeKeywordSource{byUser: keywords},
		logger,
	)

	sched, err := NewScheduler(&Config{
		Interval:    time.Minute,
		Concurrency: 2,
		Users:       &fakeUserSource{users: users},
		Evaluator:   evaluator,
		Logger:      logger,
	})
	require.NoError(t, err)
	return sched, store
}

func activeUser(id, city string) *models.User {
	return &models.User{ID: id, IsActive: true, LocationCity: city}
}

func TestRunPassPerUserIsolation(t *testing.T) {
	users := []*models.User{
		activeUser("user-a", "Pune"),
		activeUser("user-b", "Mumbai"),
	}
	keywords := map[string][]*models.TrackedKeyword{
		"user-b": {{ID: "k1", UserID: "user-b", Keyword: "umbrella", IsActive: true}},
	}
	weather := &fakeWeather{failFor: map[string]bool{"Pune": true}}

	sched, store := newTestScheduler(t, users, keywords, weather)

	summary, err := sched.RunPass(context.Background(), TriggerManual)
	require.NoError(t, err, "one user's provider failure must not fail the pass")

	assert.Equal(t, 2, summary.UsersTotal)
	assert.Equal(t, 1, summary.Succeeded)
	require.Len(t, summary.Skipped, 1)
	assert.Equal(t, "user-a", summary.Skipped[0].UserID)
	assert.Contains(t, summary.Skipped[0].Reason, "unavailable")

	assert.Greater(t, summary.AlertsCreated, 0, "the healthy user still gets alerts")
	for _, alert := range store.alerts {
		assert.Equal(t, "user-b", alert.UserID)
	}

	state, last := sched.Status()
	assert.Equal(t, StateIdle, state, "the scheduler returns to idle after a pass with failures")
	assert.Equal(t, summary, last)
}

func TestRunPassIdempotent(t *testing.T) {
	users := []*models.User{activeUser("user-b", "Mumbai")}
	keywords := map[string][]*models.TrackedKeyword{
		"user-b": {{ID: "k1", UserID: "user-b", Keyword: "umbrella", IsActive: true}},
	}

	sched, store := newTestScheduler(t, users, keywords, &fakeWeather{})

	first, err := sched.RunPass(context.Background(), TriggerManual)
	require.NoError(t, err)
	require.Greater(t, first.AlertsCreated, 0)
	created := len(store.alerts)

	second, err := sched.RunPass(context.Background(), TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, 0, second.AlertsCreated, "unchanged signals insert nothing on a re-run")
	assert.Len(t, store.alerts, created)
}

func TestRunPassSkipsInactiveProfile(t *testing.T) {
	users := []*models.User{
		{ID: "user-empty", IsActive: true},
	}

	sched, _ := newTestScheduler(t, users, nil, &fakeWeather{})

	summary, err := sched.RunPass(context.Background(), TriggerManual)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Succeeded)
	require.Len(t, summary.Skipped, 1)
	assert.Equal(t, "user-empty", summary.Skipped[0].UserID)
}

func TestSchedulerStartStop(t *testing.T) {
	sched, _ := newTestScheduler(t, nil, nil, &fakeWeather{})

	ctx := context.Background()
	require.NoError(t, sched.Start(ctx))
	assert.Error(t, sched.Start(ctx), "double start is rejected")

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, sched.Stop(stopCtx))

	state, _ := sched.Status()
	assert.Equal(t, StateStopped, state)

	assert.Error(t, sched.Stop(stopCtx), "double stop is rejected")
}

func TestNewSchedulerValidation(t *testing.T) {
	logger := logging.NewLogger(logging.LevelError, logging.FormatText)

	_, err := NewScheduler(&Config{Interval: time.Minute, Logger: logger})
	assert.Error(t, err, "missing user source")

	_, err = NewScheduler(&Config{
		Interval: 0,
		Users:    &fakeUserSource{},
		Evaluator: service.NewEvaluator(nil, nil, nil, nil,
			&fakeKeywordSource{}, logger),
		Logger: logger,
	})
	assert.Error(t, err, "non-positive interval")
}
