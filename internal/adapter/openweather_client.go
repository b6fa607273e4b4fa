package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"github.com/demand-radar/internal/config"
	"github.com/demand-radar/internal/errors"
	"github.com/demand-radar/internal/retry"
	"github.com/demand-radar/internal/types"
)

// OpenWeatherClient fetches forecasts from the OpenWeatherMap 5-day/3-hour
// forecast API and normalizes them into ForecastPoints.
type OpenWeatherClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	cache      SignalCache
	cacheTTL   time.Duration
	now        func() time.Time
}

// NewOpenWeatherClient creates a new OpenWeatherMap client. cache may be nil.
func NewOpenWeatherClient(cfg *config.ProviderConfig, cache SignalCache, cacheTTL time.Duration) *OpenWeatherClient {
	return &OpenWeatherClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		limiter:    rate.NewLimiter(rate.Limit(cfg.QPS), 1),
		cache:      cache,
		cacheTTL:   cacheTTL,
		now:        time.Now,
	}
}

// owForecastEntry is one 3-hour bucket in the provider payload.
type owForecastEntry struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Weather []owCondition `json:"weather"`
	Rain    *owRainVolume `json:"rain"`
}

type owCondition struct {
	ID int `json:"id"`
}

type owRainVolume struct {
	ThreeHour float64 `json:"3h"`
}

type owForecastResponse struct {
	List []owForecastEntry `json:"list"`
}

// Forecast returns the normalized forecast for a city, ordered by timestamp.
func (c *OpenWeatherClient) Forecast(ctx context.Context, city string) ([]types.ForecastPoint, error) {
	if c.cache != nil {
		if points, ok := c.cache.GetForecast(ctx, city); ok {
			return points, nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.NewSignalUnavailableError("openweathermap", err)
	}

	params := url.Values{}
	params.Set("q", city)
	params.Set("appid", c.apiKey)
	params.Set("units", "metric")
	endpoint := fmt.Sprintf("%s/forecast?%s", c.baseURL, params.Encode())

	var payload owForecastResponse
	err := retry.WithRetry(ctx, func(ctx context.Context, attempt int) error {
		return c.getJSON(ctx, endpoint, &payload)
	})
	if err != nil {
		return nil, errors.NewSignalUnavailableError("openweathermap", err)
	}

	if len(payload.List) == 0 {
		return nil, errors.NewSignalUnavailableError("openweathermap",
			fmt.Errorf("empty forecast for city %q", city))
	}

	now := c.now()
	points := make([]types.ForecastPoint, 0, len(payload.List))
	for _, entry := range payload.List {
		ts := time.Unix(entry.Dt, 0).UTC()
		hoursAhead := int(ts.Sub(now).Hours())
		if hoursAhead < 0 {
			continue
		}

		points = append(points, types.ForecastPoint{
			Timestamp:       ts,
			HoursAhead:      hoursAhead,
			RainProbability: entry.rainProbability(),
			Temperature:     entry.Main.Temp,
		})
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Timestamp.Before(points[j].Timestamp) })

	if c.cache != nil {
		c.cache.SetForecast(ctx, city, points, c.cacheTTL)
	}
	return points, nil
}

// rainProbability derives a [0,1] rain probability from the bucket. The
// forecast endpoint reports rain volume, not probability: volume over the 3h
// bucket is scaled to [0,1]; otherwise a precipitation condition code
// (2xx-5xx) counts as 0.5.
func (e *owForecastEntry) rainProbability() float64 {
	if e.Rain != nil && e.Rain.ThreeHour > 0 {
		return types.ClampProbability(e.Rain.ThreeHour / 3.0)
	}
	for _, cond := range e.Weather {
		if cond.ID >= 200 && cond.ID < 600 {
			return 0.5
		}
	}
	return 0
}

func (c *OpenWeatherClient) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() // nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
