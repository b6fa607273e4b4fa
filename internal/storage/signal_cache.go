package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/demand-radar/internal/types"
)

// SignalCache is the Redis-backed cache behind the signal adapters: forecasts
// and holiday calendars are shared across users in the same city/country, and
// trend-score history supplies the previous observation for the sentiment
// rules. Cache failures degrade to a provider fetch, never to an error.
type SignalCache struct {
	cache *RedisCache
}

// NewSignalCache creates a new signal cache
func NewSignalCache(cache *RedisCache) *SignalCache {
	return &SignalCache{cache: cache}
}

func forecastKey(city string) string {
	return fmt.Sprintf("signal:forecast:%s", city)
}

func holidaysKey(country string, year int) string {
	return fmt.Sprintf("signal:holidays:%s:%d", country, year)
}

func trendKey(keyword string) string {
	return fmt.Sprintf("signal:trend:last:%s", keyword)
}

// GetForecast returns the cached forecast for a city, if present.
func (s *SignalCache) GetForecast(ctx context.Context, city string) ([]types.ForecastPoint, bool) {
	raw, err := s.cache.Get(ctx, forecastKey(city))
	if err != nil {
		return nil, false
	}

	var points []types.ForecastPoint
	if err := json.Unmarshal([]byte(raw), &points); err != nil {
		return nil, false
	}
	return points, true
}

// SetForecast caches the forecast for a city.
func (s *SignalCache) SetForecast(ctx context.Context, city string, points []types.ForecastPoint, ttl time.Duration) {
	data, err := json.Marshal(points)
	if err != nil {
		return
	}
	_ = s.cache.Set(ctx, forecastKey(city), data, ttl) // nolint:errcheck
}

// GetHolidays returns the cached holiday calendar for a country/year, if present.
func (s *SignalCache) GetHolidays(ctx context.Context, country string, year int) ([]types.Holiday, bool) {
	raw, err := s.cache.Get(ctx, holidaysKey(country, year))
	if err != nil {
		return nil, false
	}

	var holidays []types.Holiday
	if err := json.Unmarshal([]byte(raw), &holidays); err != nil {
		return nil, false
	}
	return holidays, true
}

// SetHolidays caches the holiday calendar for a country/year.
func (s *SignalCache) SetHolidays(ctx context.Context, country string, year int, holidays []types.Holiday, ttl time.Duration) {
	data, err := json.Marshal(holidays)
	if err != nil {
		return
	}
	_ = s.cache.Set(ctx, holidaysKey(country, year), data, ttl) // nolint:errcheck
}

// RecordTrendScore stores the latest score for a keyword and returns the
// previously recorded one. The second return is false on first sight or on
// cache trouble.
func (s *SignalCache) RecordTrendScore(ctx context.Context, keyword string, score float64) (float64, bool) {
	raw, err := s.cache.GetSet(ctx, trendKey(keyword), strconv.FormatFloat(score, 'f', -1, 64))
	if errors.Is(err, redis.Nil) {
		// First observation for this keyword.
		return 0, false
	}
	if err != nil {
		return 0, false
	}

	prev, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return prev, true
}
