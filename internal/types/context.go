package types

import (
	"encoding/json"
	"fmt"
)

// AlertContext is the typed payload attached to an alert. Each alert type has
// its own variant with an explicit field set instead of a free-form map.
type AlertContext interface {
	ContextType() string
}

// RainContext is attached to rain-driven weather alerts.
type RainContext struct {
	RainProbability float64 `json:"rainProbability"`
	HoursAhead      int     `json:"hoursAhead"`
	City            string  `json:"city"`
	Suggestion      string  `json:"suggestion,omitempty"` // set on untracked-keyword variants
}

func (RainContext) ContextType() string { return "rain" }

// HeatContext is attached to temperature-driven weather alerts,
// both heat and cold spikes.
type HeatContext struct {
	Temperature float64 `json:"temperature"`
	HoursAhead  int     `json:"hoursAhead"`
	City        string  `json:"city"`
	Cold        bool    `json:"cold,omitempty"`
	Suggestion  string  `json:"suggestion,omitempty"`
}

func (HeatContext) ContextType() string { return "temperature" }

// TrendContext is attached to trend and sentiment-peak alerts. Score and
// status are carried verbatim from the trend signal for transparency.
type TrendContext struct {
	Score         float64  `json:"score"`
	PreviousScore *float64 `json:"previousScore,omitempty"`
	Status        string   `json:"status"` // "trending" or "rising"
}

func (TrendContext) ContextType() string { return "trend" }

// FestivalContext is attached to festival stocking alerts.
type FestivalContext struct {
	HolidayName string `json:"holidayName"`
	HolidayDate string `json:"holidayDate"`
	DaysUntil   int    `json:"daysUntil"`
}

func (FestivalContext) ContextType() string { return "festival" }

// PrimingContext is attached to festival priming-window alerts.
type PrimingContext struct {
	HolidayName string `json:"holidayName"`
	DaysUntil   int    `json:"daysUntil"`
	WindowDays  [2]int `json:"windowDays"`
}

func (PrimingContext) ContextType() string { return "priming" }

// FootfallContext is attached to high-footfall-hour alerts.
type FootfallContext struct {
	Hour    int  `json:"hour"`
	Weekend bool `json:"weekend"`
}

func (FootfallContext) ContextType() string { return "footfall" }

// StockoutContext is attached to competitor stockout alerts.
type StockoutContext struct {
	Source string `json:"source"`
}

func (StockoutContext) ContextType() string { return "stockout" }

// contextEnvelope is the stored wire form of an alert context.
type contextEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// EncodeContext serializes a context variant for storage.
// A nil context encodes as null.
func EncodeContext(ctx AlertContext) ([]byte, error) {
	if ctx == nil {
		return []byte("null"), nil
	}
	data, err := json.Marshal(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal context data: %w", err)
	}
	return json.Marshal(contextEnvelope{Type: ctx.ContextType(), Data: data})
}

// DecodeContext deserializes a stored context back into its typed variant.
func DecodeContext(raw []byte) (AlertContext, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var env contextEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal context envelope: %w", err)
	}

	var ctx AlertContext
	switch env.Type {
	case "rain":
		ctx = &RainContext{}
	case "temperature":
		ctx = &HeatContext{}
	case "trend":
		ctx = &TrendContext{}
	case "festival":
		ctx = &FestivalContext{}
	case "priming":
		ctx = &PrimingContext{}
	case "footfall":
		ctx = &FootfallContext{}
	case "stockout":
		ctx = &StockoutContext{}
	default:
		return nil, fmt.Errorf("unknown context type: %s", env.Type)
	}

	if err := json.Unmarshal(env.Data, ctx); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s context: %w", env.Type, err)
	}
	return ctx, nil
}
