// Package adapter provides the normalized signal provider contracts and the
// HTTP clients that implement them. The evaluation engine consumes only the
// interfaces here; provider payload quirks never leak past this package.
package adapter

import (
	"context"
	"time"

	"github.com/demand-radar/internal/types"
)

// WeatherProvider returns a forecast for a city, ordered by timestamp and
// covering at least the look-ahead window. Fails with a SIGNAL_UNAVAILABLE
// error on provider trouble; the caller skips weather rules for the user.
type WeatherProvider interface {
	Forecast(ctx context.Context, city string) ([]types.ForecastPoint, error)
}

// TrendProvider returns the current search-trend score for a keyword,
// with the previous observation when one exists.
type TrendProvider interface {
	Score(ctx context.Context, keyword string) (*types.TrendScore, error)
}

// HolidayProvider returns upcoming holidays for a country.
type HolidayProvider interface {
	Upcoming(ctx context.Context, country string) ([]types.Holiday, error)
}

// StockoutProvider reports competitor stockouts for a keyword. No production
// data source is wired by default; the competitor rules no-op without one.
type StockoutProvider interface {
	Stockouts(ctx context.Context, keyword string) ([]types.Stockout, error)
}

// SignalCache is the adapter-internal cache contract. Providers may cache
// normalized responses across users (many users share a city); the core never
// caches signals beyond one pass.
type SignalCache interface {
	GetForecast(ctx context.Context, city string) ([]types.ForecastPoint, bool)
	SetForecast(ctx context.Context, city string, points []types.ForecastPoint, ttl time.Duration)
	GetHolidays(ctx context.Context, country string, year int) ([]types.Holiday, bool)
	SetHolidays(ctx context.Context, country string, year int, holidays []types.Holiday, ttl time.Duration)
	// RecordTrendScore stores the latest score for a keyword and returns the
	// previously recorded one, if any.
	RecordTrendScore(ctx context.Context, keyword string, score float64) (float64, bool)
}
