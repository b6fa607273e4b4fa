package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/demand-radar/internal/config"
	"github.com/demand-radar/internal/errors"
	"github.com/demand-radar/internal/types"
)

// fakeSignalCache records forecast/holiday writes and serves reads from maps.
type fakeSignalCache struct {
	forecasts map[string][]types.ForecastPoint
	holidays  map[string][]types.Holiday
	trends    map[string]float64
}

func newFakeSignalCache() *fakeSignalCache {
	return &fakeSignalCache{
		forecasts: map[string][]types.ForecastPoint{},
		holidays:  map[string][]types.Holiday{},
		trends:    map[string]float64{},
	}
}

func (f *fakeSignalCache) GetForecast(_ context.Context, city string) ([]types.ForecastPoint, bool) {
	points, ok := f.forecasts[city]
	return points, ok
}

func (f *fakeSignalCache) SetForecast(_ context.Context, city string, points []types.ForecastPoint, _ time.Duration) {
	f.forecasts[city] = points
}

func (f *fakeSignalCache) GetHolidays(_ context.Context, country string, year int) ([]types.Holiday, bool) {
	holidays, ok := f.holidays[fmt.Sprintf("%s:%d", country, year)]
	return holidays, ok
}

func (f *fakeSignalCache) SetHolidays(_ context.Context, country string, year int, holidays []types.Holiday, _ time.Duration) {
	f.holidays[fmt.Sprintf("%s:%d", country, year)] = holidays
}

func (f *fakeSignalCache) RecordTrendScore(_ context.Context, keyword string, score float64) (float64, bool) {
	prev, ok := f.trends[keyword]
	f.trends[keyword] = score
	return prev, ok
}

func providerConfig(baseURL string) *config.ProviderConfig {
	return &config.ProviderConfig{
		BaseURL: baseURL,
		APIKey:  "test-key",
		Timeout: 5 * time.Second,
		QPS:     1000,
	}
}

func TestOpenWeatherForecastNormalization(t *testing.T) {
	now := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forecast", r.URL.Path)
		assert.Equal(t, "Mumbai", r.URL.Query().Get("q"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))

		fmt.Fprintf(w, `{"list":[
			{"dt":%d,"main":{"temp":28.5},"weather":[{"id":500}],"rain":{"3h":2.4}},
			{"dt":%d,"main":{"temp":31.0},"weather":[{"id":800}]},
			{"dt":%d,"main":{"temp":27.0},"weather":[{"id":300}]}
		]}`, now.Add(4*time.Hour).Unix(), now.Add(7*time.Hour).Unix(), now.Add(-2*time.Hour).Unix())
	}))
	defer server.Close()

	client := NewOpenWeatherClient(providerConfig(server.URL), nil, 0)
	client.now = func() time.Time { return now }

	points, err := client.Forecast(context.Background(), "Mumbai")
	require.NoError(t, err)
	require.Len(t, points, 2, "points in the past are dropped")

	assert.Equal(t, 4, points[0].HoursAhead)
	assert.Equal(t, 28.5, points[0].Temperature)
	assert.Equal(t, 0.8, points[0].RainProbability, "2.4mm over 3h scales to 0.8")

	assert.Equal(t, 7, points[1].HoursAhead)
	assert.Equal(t, 0.0, points[1].RainProbability, "clear condition means no rain")
	assert.True(t, points[0].Timestamp.Before(points[1].Timestamp))
}

func TestOpenWeatherConditionCodeFallback(t *testing.T) {
	now := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"list":[{"dt":%d,"main":{"temp":25},"weather":[{"id":502}]}]}`,
			now.Add(3*time.Hour).Unix())
	}))
	defer server.Close()

	client := NewOpenWeatherClient(providerConfig(server.URL), nil, 0)
	client.now = func() time.Time { return now }

	points, err := client.Forecast(context.Background(), "Mumbai")
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, 0.5, points[0].RainProbability,
		"a precipitation condition without volume counts as 0.5")
}

func TestOpenWeatherForecastUsesCache(t *testing.T) {
	calls := 0
	now := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprintf(w, `{"list":[{"dt":%d,"main":{"temp":25},"weather":[{"id":800}]}]}`,
			now.Add(3*time.Hour).Unix())
	}))
	defer server.Close()

	cache := newFakeSignalCache()
	client := NewOpenWeatherClient(providerConfig(server.URL), cache, time.Hour)
	client.now = func() time.Time { return now }

	_, err := client.Forecast(context.Background(), "Mumbai")
	require.NoError(t, err)
	_, err = client.Forecast(context.Background(), "Mumbai")
	require.NoError(t, err)

	assert.Equal(t, 1, calls, "the second call is served from cache")
}

func TestOpenWeatherForecastProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewOpenWeatherClient(providerConfig(server.URL), nil, 0)

	_, err := client.Forecast(context.Background(), "Mumbai")
	require.Error(t, err)
	assert.True(t, errors.IsSignalUnavailable(err))
}

func TestTrendsScoreClampsAndRecordsPrevious(t *testing.T) {
	score := 140.0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/interest", r.URL.Path)
		assert.Equal(t, "umbrella", r.URL.Query().Get("keyword"))
		fmt.Fprintf(w, `{"keyword":"umbrella","score":%f}`, score)
	}))
	defer server.Close()

	cache := newFakeSignalCache()
	client := NewTrendsClient(providerConfig(server.URL), "IN", cache)

	first, err := client.Score(context.Background(), "umbrella")
	require.NoError(t, err)
	assert.Equal(t, 100.0, first.Value, "scores clamp to [0,100]")
	assert.Nil(t, first.PreviousValue, "no previous value on first observation")

	score = 55
	second, err := client.Score(context.Background(), "umbrella")
	require.NoError(t, err)
	assert.Equal(t, 55.0, second.Value)
	require.NotNil(t, second.PreviousValue)
	assert.Equal(t, 100.0, *second.PreviousValue)
}

func TestCalendarificUpcomingWindow(t *testing.T) {
	now := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/holidays", r.URL.Path)
		assert.Equal(t, "IN", r.URL.Query().Get("country"))
		fmt.Fprint(w, `{"response":{"holidays":[
			{"name":"Inside Window","date":{"iso":"2026-08-30"},"type":["National"]},
			{"name":"Too Far","date":{"iso":"2026-09-20"},"type":["National"]},
			{"name":"Already Past","date":{"iso":"2026-08-20"},"type":["National"]},
			{"name":"Bad Date","date":{"iso":"not-a-date"},"type":["National"]}
		]}}`)
	}))
	defer server.Close()

	client := NewCalendarificClient(providerConfig(server.URL), nil, 10)
	client.now = func() time.Time { return now }

	holidays, err := client.Upcoming(context.Background(), "IN")
	require.NoError(t, err)
	require.Len(t, holidays, 1, "only holidays inside the look-ahead survive")
	assert.Equal(t, "Inside Window", holidays[0].Name)
}

func TestCalendarificYearBoundary(t *testing.T) {
	now := time.Date(2026, 12, 28, 9, 0, 0, 0, time.UTC)
	yearsRequested := map[string]bool{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		year := r.URL.Query().Get("year")
		yearsRequested[year] = true
		if year == "2027" {
			fmt.Fprint(w, `{"response":{"holidays":[{"name":"New Year","date":{"iso":"2027-01-01"}}]}}`)
			return
		}
		fmt.Fprint(w, `{"response":{"holidays":[]}}`)
	}))
	defer server.Close()

	client := NewCalendarificClient(providerConfig(server.URL), nil, 10)
	client.now = func() time.Time { return now }

	holidays, err := client.Upcoming(context.Background(), "IN")
	require.NoError(t, err)

	assert.True(t, yearsRequested["2026"] && yearsRequested["2027"],
		"a window crossing the year boundary fetches both years")
	require.Len(t, holidays, 1)
	assert.Equal(t, "New Year", holidays[0].Name)
}
