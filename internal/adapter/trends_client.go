package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/time/rate"

	"github.com/demand-radar/internal/config"
	"github.com/demand-radar/internal/errors"
	"github.com/demand-radar/internal/retry"
	"github.com/demand-radar/internal/types"
)

// TrendsClient fetches search-trend interest scores for keywords. Scores are
// clamped to [0,100]; the previous observation comes from the signal cache so
// callers can distinguish rising momentum from static high interest.
type TrendsClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	geo        string
	limiter    *rate.Limiter
	cache      SignalCache
}

// NewTrendsClient creates a new trends client. cache may be nil, in which
// case PreviousValue is never reported.
func NewTrendsClient(cfg *config.ProviderConfig, geo string, cache SignalCache) *TrendsClient {
	return &TrendsClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		geo:        geo,
		limiter:    rate.NewLimiter(rate.Limit(cfg.QPS), 1),
		cache:      cache,
	}
}

type trendsResponse struct {
	Keyword string  `json:"keyword"`
	Score   float64 `json:"score"`
}

// Score returns the current trend score for a keyword.
func (c *TrendsClient) Score(ctx context.Context, keyword string) (*types.TrendScore, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.NewSignalUnavailableError("trends", err)
	}

	params := url.Values{}
	params.Set("keyword", keyword)
	params.Set("geo", c.geo)
	params.Set("timeframe", "today 3-m")
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}
	endpoint := fmt.Sprintf("%s/interest?%s", c.baseURL, params.Encode())

	var payload trendsResponse
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
		return nil, errors.NewSignalUnavailableError("trends", err)
	}

	score := &types.TrendScore{Value: types.ClampScore(payload.Score)}
	if c.cache != nil {
		if prev, ok := c.cache.RecordTrendScore(ctx, keyword, score.Value); ok {
			score.PreviousValue = &prev
		}
	}
	return score, nil
}
