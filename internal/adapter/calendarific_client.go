package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/demand-radar/internal/config"
	"github.com/demand-radar/internal/errors"
	"github.com/demand-radar/internal/retry"
	"github.com/demand-radar/internal/types"
)

// CalendarificClient fetches holiday calendars from the Calendarific API.
// Calendars change rarely, so they cache per (country, year) with a long TTL.
type CalendarificClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	cache      SignalCache
	cacheTTL   time.Duration
	lookahead  int // days
	now        func() time.Time
}

// NewCalendarificClient creates a new Calendarific client. cache may be nil.
func NewCalendarificClient(cfg *config.ProviderConfig, cache SignalCache, lookaheadDays int) *CalendarificClient {
	return &CalendarificClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		limiter:    rate.NewLimiter(rate.Limit(cfg.QPS), 1),
		cache:      cache,
		cacheTTL:   12 * time.Hour,
		lookahead:  lookaheadDays,
		now:        time.Now,
	}
}

type calendarificResponse struct {
	Response struct {
		Holidays []struct {
			Name string `json:"name"`
			Date struct {
				ISO string `json:"iso"`
			} `json:"date"`
			Type []string `json:"type"`
		} `json:"holidays"`
	} `json:"response"`
}

// Upcoming returns holidays within the look-ahead window for a country,
// sorted by date. A window that crosses a year boundary fetches both years.
func (c *CalendarificClient) Upcoming(ctx context.Context, country string) ([]types.Holiday, error) {
	today := c.now().UTC().Truncate(24 * time.Hour)
	end := today.AddDate(0, 0, c.lookahead)

	years := []int{today.Year()}
	if end.Year() != today.Year() {
		years = append(years, end.Year())
	}

	var all []types.Holiday
	for _, year := range years {
		holidays, err := c.holidaysForYear(ctx, country, year)
		if err != nil {
			return nil, err
		}
		all = append(all, holidays...)
	}

	var upcoming []types.Holiday
	for _, h := range all {
		if !h.Date.Before(today) && !h.Date.After(end) {
			upcoming = append(upcoming, h)
		}
	}

	sort.Slice(upcoming, func(i, j int) bool { return upcoming[i].Date.Before(upcoming[j].Date) })
	return upcoming, nil
}

func (c *CalendarificClient) holidaysForYear(ctx context.Context, country string, year int) ([]types.Holiday, error) {
	if c.cache != nil {
		if holidays, ok := c.cache.GetHolidays(ctx, country, year); ok {
			return holidays, nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.NewSignalUnavailableError("calendarific", err)
	}

	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("country", country)
	params.Set("year", fmt.Sprintf("%d", year))
	endpoint := fmt.Sprintf("%s/holidays?%s", c.baseURL, params.Encode())

	var payload calendarificResponse
	err := retry.WithRetry(ctx, func(ctx context.Context, attempt int) error {
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
		return json.NewDecoder(resp.Body).Decode(&payload)
	})
	if err != nil {
		return nil, errors.NewSignalUnavailableError("calendarific", err)
	}

	holidays := make([]types.Holiday, 0, len(payload.Response.Holidays))
	for _, h := range payload.Response.Holidays {
		date, err := parseISODate(h.Date.ISO)
		if err != nil {
			// Skip malformed entries rather than failing the whole calendar.
			continue
		}
		holidays = append(holidays, types.Holiday{
			Name:         h.Name,
			Date:         date,
			CategoryTags: h.Type,
		})
	}

	if c.cache != nil {
		c.cache.SetHolidays(ctx, country, year, holidays, c.cacheTTL)
	}
	return holidays, nil
}

// parseISODate handles both plain dates and full timestamps in the iso field.
func parseISODate(iso string) (time.Time, error) {
	if idx := strings.IndexByte(iso, 'T'); idx > 0 {
		iso = iso[:idx]
	}
	return time.Parse("2006-01-02", iso)
}
