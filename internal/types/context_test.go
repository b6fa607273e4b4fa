package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextRoundTrip(t *testing.T) {
	previous := 42.0

	tests := []struct {
		name string
		ctx  AlertContext
	}{
		{"rain", &RainContext{RainProbability: 0.85, HoursAhead: 4, City: "Mumbai", Suggestion: "umbrella"}},
		{"temperature", &HeatContext{Temperature: 38, HoursAhead: 6, City: "Delhi", Cold: false}},
		{"cold", &HeatContext{Temperature: 4, HoursAhead: 6, City: "Shimla", Cold: true}},
		{"trend", &TrendContext{Score: 85, PreviousScore: &previous, Status: "trending"}},
		{"festival", &FestivalContext{HolidayName: "Diwali", HolidayDate: "2026-11-08", DaysUntil: 8}},
		{"priming", &PrimingContext{HolidayName: "Eid", DaysUntil: 5, WindowDays: [2]int{3, 7}}},
		{"footfall", &FootfallContext{Hour: 11, Weekend: false}},
		{"stockout", &StockoutContext{Source: "marketplace-x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := EncodeContext(tt.ctx)
			require.NoError(t, err)

			decoded, err := DecodeContext(raw)
			require.NoError(t, err)
			assert.Equal(t, tt.ctx, decoded)
		})
	}
}

func TestEncodeContextNil(t *testing.T) {
	raw, err := EncodeContext(nil)
	require.NoError(t, err)
	assert.Equal(t, "null", string(raw))

	decoded, err := DecodeContext(raw)
	require.NoError(t, err)
	assert.Nil(t, decoded)
}

func TestDecodeContextUnknownType(t *testing.T) {
	_, err := DecodeContext([]byte(`{"type":"mystery","data":{}}`))
	assert.Error(t, err)
}

func TestCandidateDedupKey(t *testing.T) {
	withKeyword := &AlertCandidate{Type: AlertWeatherOpportunity, Keyword: "umbrella"}
	assert.Equal(t, "u1:weather_opportunity:umbrella", withKeyword.DedupKey("u1"))

	withoutKeyword := &AlertCandidate{Type: AlertWeatherOpportunity}
	assert.Equal(t, "u1:weather_opportunity:", withoutKeyword.DedupKey("u1"))
}

func TestClamping(t *testing.T) {
	assert.Equal(t, 0.0, ClampScore(-5))
	assert.Equal(t, 100.0, ClampScore(140))
	assert.Equal(t, 55.0, ClampScore(55))

	assert.Equal(t, 0.0, ClampProbability(-0.1))
	assert.Equal(t, 1.0, ClampProbability(1.7))
	assert.Equal(t, 0.7, ClampProbability(0.7))
}

func TestPriorityRank(t *testing.T) {
	assert.Less(t, PriorityLow.Rank(), PriorityMedium.Rank())
	assert.Less(t, PriorityMedium.Rank(), PriorityHigh.Rank())
	assert.Equal(t, -1, AlertPriority("bogus").Rank())
}
