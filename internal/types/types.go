// Package types defines the shared value objects for the demand radar:
// normalized external signals, alert candidates, and the enumerations used
// across detection, synthesis, and persistence.
package types

import (
	"fmt"
	"time"
)

// AlertType identifies the rule family that produced an alert.
type AlertType string

const (
	AlertWeatherOpportunity AlertType = "weather_opportunity"
	AlertSocialTrend        AlertType = "social_trend"
	AlertFestivalBoost      AlertType = "festival_boost"
	AlertCompetitorStockout AlertType = "competitor_stockout"
	AlertSentimentPeak      AlertType = "sentiment_peak"
	AlertPromotionTiming    AlertType = "promotion_timing"
	AlertFootfallWindow     AlertType = "footfall_window"
)

// AlertPriority represents alert priority levels.
type AlertPriority string

const (
	PriorityLow    AlertPriority = "low"
	PriorityMedium AlertPriority = "medium"
	PriorityHigh   AlertPriority = "high"
)

// Rank returns the ordering position of a priority, low to high.
func (p AlertPriority) Rank() int {
	switch p {
	case PriorityLow:
		return 0
	case PriorityMedium:
		return 1
	case PriorityHigh:
		return 2
	default:
		return -1
	}
}

// AlertStatus represents the lifecycle state of a persisted alert.
// An alert is born "new"; only the API layer moves it forward, and it is
// never reverted to "new".
type AlertStatus string

const (
	StatusNew   AlertStatus = "new"
	StatusRead  AlertStatus = "read"
	StatusActed AlertStatus = "acted"
)

// ValidStatus reports whether s is a known alert status.
func ValidStatus(s AlertStatus) bool {
	switch s {
	case StatusNew, StatusRead, StatusActed:
		return true
	default:
		return false
	}
}

// CandidateSource distinguishes demand-detection candidates from
// promotion-timing candidates. Both share the alert schema.
type CandidateSource string

const (
	SourceDemand CandidateSource = "demand"
	SourceTiming CandidateSource = "timing"
)

// MarketCategory is a retailer market segment.
type MarketCategory string

const (
	CategoryElectronics MarketCategory = "electronics"
	CategoryClothes     MarketCategory = "clothes"
	CategoryFood        MarketCategory = "food"
	CategoryBeauty      MarketCategory = "beauty"
	CategoryHome        MarketCategory = "home"
	CategorySports      MarketCategory = "sports"
	CategoryBooks       MarketCategory = "books"
	CategoryToys        MarketCategory = "toys"
	CategoryAutomotive  MarketCategory = "automotive"
	CategoryOther       MarketCategory = "other"
)

// SignalKind identifies one class of normalized external observation.
type SignalKind string

const (
	SignalWeather  SignalKind = "weather"
	SignalTrend    SignalKind = "trend"
	SignalHoliday  SignalKind = "holiday"
	SignalStockout SignalKind = "stockout"
)

// ForecastPoint is one normalized weather forecast observation.
// Points are ordered by timestamp and cover at least the look-ahead window.
type ForecastPoint struct {
	Timestamp       time.Time `json:"timestamp"`
	HoursAhead      int       `json:"hoursAhead"`
	RainProbability float64   `json:"rainProbability"` // [0,1]
	Temperature     float64   `json:"temperature"`     // Celsius
}

// TrendScore is a normalized search-trend observation for one keyword.
// PreviousValue is nil when no prior observation exists.
type TrendScore struct {
	Value         float64  `json:"value"` // [0,100]
	PreviousValue *float64 `json:"previousValue,omitempty"`
}

// Holiday is one normalized holiday-calendar entry.
type Holiday struct {
	Name         string    `json:"name"`
	Date         time.Time `json:"date"`
	CategoryTags []string  `json:"categoryTags,omitempty"`
}

// Stockout is a competitor stockout observation for a keyword.
type Stockout struct {
	Keyword    string    `json:"keyword"`
	Source     string    `json:"source"`
	ObservedAt time.Time `json:"observedAt"`
}

// AlertCandidate is a transient alert produced by the demand detector or the
// promotion timing engine. Candidates are never persisted directly; the
// synthesizer assigns priority/impact/confidence and deduplicates first.
type AlertCandidate struct {
	Type     AlertType
	Source   CandidateSource
	Title    string
	Message  string
	Keyword  string // empty for keyword-suggestion candidates
	Context  AlertContext
	RawScore float64 // [0,1]
}

// DedupKey returns the key the synthesizer deduplicates on for a user.
func (c *AlertCandidate) DedupKey(userID string) string {
	return fmt.Sprintf("%s:%s:%s", userID, c.Type, c.Keyword)
}

// ServiceError represents a structured error returned by service operations.
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ClampScore clamps a trend score to [0,100].
func ClampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// ClampProbability clamps a probability to [0,1].
func ClampProbability(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
