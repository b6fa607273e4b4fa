package service

import (
	"context"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/demand-radar/internal/errors"
	"github.com/demand-radar/internal/logging"
	"github.com/demand-radar/internal/models"
	"github.com/demand-radar/internal/types"
)

// memoryAlertStore is an in-memory AlertStore for synthesizer tests.
type memoryAlertStore struct {
	alerts  []*models.Alert
	failing bool
}

func (m *memoryAlertStore) ListUnresolved(_ context.Context, userID string, since time.Time) ([]*models.Alert, error) {
	if m.failing {
		return nil, errors.NewPersistenceFailureError("list unresolved alerts", assert.AnError)
	}

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
	if m.failing {
		return errors.NewPersistenceFailureError("insert alert", assert.AnError)
	}
	m.alerts = append(m.alerts, alerts...)
	return nil
}

func newTestSynthesizer(store AlertStore) *AlertSynthesizer {
	logger := logging.NewLogger(logging.LevelError, logging.FormatText)
	s := NewAlertSynthesizer(store, testEvalConfig(), logger)
	s.now = func() time.Time { return testNow }
	return s
}

func candidate(alertType types.AlertType, keyword string, score float64) types.AlertCandidate {
	return types.AlertCandidate{
		Type:     alertType,
		Source:   types.SourceDemand,
		Title:    "t",
		Message:  "m",
		Keyword:  keyword,
		RawScore: score,
	}
}

func TestSynthesizeAssignsPriorityAndImpact(t *testing.T) {
	store := &memoryAlertStore{}
	synth := newTestSynthesizer(store)

	created, err := synth.Synthesize(context.Background(), "user-1", []types.AlertCandidate{
		candidate(types.AlertWeatherOpportunity, "umbrella", 0.85),
		candidate(types.AlertSocialTrend, "sneakers", 0.65),
		candidate(types.AlertFootfallWindow, "pens", 0.45),
	})
	require.NoError(t, err)
	require.Len(t, created, 3)

	byKeyword := make(map[string]*models.Alert)
	for _, a := range created {
		byKeyword[a.Keyword] = a
	}

	assert.Equal(t, types.PriorityHigh, byKeyword["umbrella"].Priority)
	assert.Equal(t, types.PriorityMedium, byKeyword["sneakers"].Priority)
	assert.Equal(t, types.PriorityLow, byKeyword["pens"].Priority)

	assert.Equal(t, 0.85, byKeyword["umbrella"].Confidence)
	assert.Equal(t, PredictedImpact(types.AlertWeatherOpportunity, types.PriorityHigh), byKeyword["umbrella"].PredictedImpact)

	for _, a := range created {
		assert.Equal(t, types.StatusNew, a.Status)
		assert.Equal(t, testNow, a.CreatedAt)
	}
}

func TestSynthesizeIdempotent(t *testing.T) {
	store := &memoryAlertStore{}
	synth := newTestSynthesizer(store)

	candidates := []types.AlertCandidate{
		candidate(types.AlertWeatherOpportunity, "umbrella", 0.85),
		candidate(types.AlertSocialTrend, "sneakers", 0.65),
	}

	first, err := synth.Synthesize(context.Background(), "user-1", candidates)
	require.NoError(t, err)
	assert.Len(t, first, 2)

	second, err := synth.Synthesize(context.Background(), "user-1", candidates)
	require.NoError(t, err)
	assert.Empty(t, second, "an immediate re-run with unchanged signals inserts nothing")
	assert.Len(t, store.alerts, 2)
}

func TestSynthesizeDedupIsPerUser(t *testing.T) {
	store := &memoryAlertStore{}
	synth := newTestSynthesizer(store)

	candidates := []types.AlertCandidate{candidate(types.AlertWeatherOpportunity, "umbrella", 0.85)}

	_, err := synth.Synthesize(context.Background(), "user-1", candidates)
	require.NoError(t, err)

	created, err := synth.Synthesize(context.Background(), "user-2", candidates)
	require.NoError(t, err)
	assert.Len(t, created, 1, "another user's open alert must not suppress")
}

func TestSynthesizeResolvedAlertDoesNotSuppress(t *testing.T) {
	store := &memoryAlertStore{}
	synth := newTestSynthesizer(store)

	candidates := []types.AlertCandidate{candidate(types.AlertWeatherOpportunity, "umbrella", 0.85)}

	first, err := synth.Synthesize(context.Background(), "user-1", candidates)
	require.NoError(t, err)
	require.Len(t, first, 1)

	first[0].Status = types.StatusRead

	second, err := synth.Synthesize(context.Background(), "user-1", candidates)
	require.NoError(t, err)
	assert.Len(t, second, 1, "only open alerts suppress re-creation")
}

func TestSynthesizeCollapsesBatchDuplicates(t *testing.T) {
	store := &memoryAlertStore{}
	synth := newTestSynthesizer(store)

	created, err := synth.Synthesize(context.Background(), "user-1", []types.AlertCandidate{
		candidate(types.AlertWeatherOpportunity, "umbrella", 0.72),
		candidate(types.AlertWeatherOpportunity, "umbrella", 0.91),
	})
	require.NoError(t, err)

	require.Len(t, created, 1, "duplicate keys inside a batch collapse")
	assert.Equal(t, 0.91, created[0].Confidence, "the higher raw score wins")
}

func TestSynthesizeKeywordlessCandidatesShareAKey(t *testing.T) {
	store := &memoryAlertStore{}
	synth := newTestSynthesizer(store)

	created, err := synth.Synthesize(context.Background(), "user-1", []types.AlertCandidate{
		candidate(types.AlertWeatherOpportunity, "", 0.6),
		candidate(types.AlertWeatherOpportunity, "", 0.7),
		candidate(types.AlertFestivalBoost, "", 0.6),
	})
	require.NoError(t, err)
	assert.Len(t, created, 2, "empty keywords dedup within an alert type, not across types")
}

func TestSynthesizePersistenceFailure(t *testing.T) {
	store := &memoryAlertStore{failing: true}
	synth := newTestSynthesizer(store)

	_, err := synth.Synthesize(context.Background(), "user-1", []types.AlertCandidate{
		candidate(types.AlertWeatherOpportunity, "umbrella", 0.85),
	})
	require.Error(t, err)
	assert.True(t, errors.IsPersistenceFailure(err))
	assert.Empty(t, store.alerts)
}

func TestPriorityForScoreBoundaries(t *testing.T) {
	assert.Equal(t, types.PriorityLow, PriorityForScore(0))
	assert.Equal(t, types.PriorityLow, PriorityForScore(0.49))
	assert.Equal(t, types.PriorityMedium, PriorityForScore(0.5))
	assert.Equal(t, types.PriorityMedium, PriorityForScore(0.79))
	assert.Equal(t, types.PriorityHigh, PriorityForScore(0.8))
	assert.Equal(t, types.PriorityHigh, PriorityForScore(1))
}

func TestPriorityMonotonicProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("higher raw score never lowers priority", prop.ForAll(
		func(a, b float64) bool {
			if a > b {
				a, b = b, a
			}
			return PriorityForScore(a).Rank() <= PriorityForScore(b).Rank()
		},
		gen.Float64Range(0, 1),
		gen.Float64Range(0, 1),
	))

	properties.TestingRun(t)
}

func TestSynthesizeIdempotentProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	alertTypes := []types.AlertType{
		types.AlertWeatherOpportunity,
		types.AlertSocialTrend,
		types.AlertFestivalBoost,
		types.AlertPromotionTiming,
	}

	genCandidate := gopter.CombineGens(
		gen.IntRange(0, len(alertTypes)-1),
		gen.AlphaString(),
		gen.Float64Range(0, 1),
	).Map(func(values []interface{}) types.AlertCandidate {
		return candidate(alertTypes[values[0].(int)], values[1].(string), values[2].(float64))
	})

	properties.Property("re-running a batch inserts nothing new", prop.ForAll(
		func(candidates []types.AlertCandidate) bool {
			store := &memoryAlertStore{}
			synth := newTestSynthesizer(store)

			if _, err := synth.Synthesize(context.Background(), "user-1", candidates); err != nil {
				return false
			}
			inserted := len(store.alerts)

			second, err := synth.Synthesize(context.Background(), "user-1", candidates)
			if err != nil {
				return false
			}
			return len(second) == 0 && len(store.alerts) == inserted
		},
		gen.SliceOf(genCandidate),
	))

	properties.TestingRun(t)
}
