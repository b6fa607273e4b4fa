package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/demand-radar/internal/config"
	"github.com/demand-radar/internal/models"
	"github.com/demand-radar/internal/types"
)

func testEvalConfig() *config.EvaluationConfig {
	return &config.EvaluationConfig{
		RainThreshold:     0.70,
		RainMinHours:      3,
		RainMaxHours:      6,
		HeatThresholdC:    35,
		ColdThresholdC:    10,
		TempWindowHours:   12,
		TrendThreshold:    60,
		TrendHighScore:    80,
		TrendRiseDelta:    10,
		FestivalLookahead: 10,
		PrimingMinDays:    3,
		PrimingMaxDays:    7,
		FootfallWeekday:   []config.HourRange{{Start: 10, End: 12}, {Start: 18, End: 21}},
		FootfallWeekend:   []config.HourRange{{Start: 10, End: 20}},
	}
}

func testProfile(keywords ...string) *Profile {
	user := &models.User{
		ID:              "user-1",
		IsActive:        true,
		LocationCity:    "Mumbai",
		LocationCountry: "IN",
	}

	tracked := make([]*models.TrackedKeyword, 0, len(keywords))
	for i, kw := range keywords {
		tracked = append(tracked, &models.TrackedKeyword{
			ID:       string(rune('a' + i)),
			UserID:   user.ID,
			Keyword:  kw,
			IsActive: true,
		})
	}
	return &Profile{User: user, Keywords: tracked}
}

var testNow = time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)

func rainForecast(hoursAhead int, probability float64) []types.ForecastPoint {
	return []types.ForecastPoint{{
		Timestamp:       testNow.Add(time.Duration(hoursAhead) * time.Hour),
		HoursAhead:      hoursAhead,
		RainProbability: probability,
		Temperature:     28,
	}}
}

func candidatesOfType(candidates []types.AlertCandidate, t types.AlertType) []types.AlertCandidate {
	var out []types.AlertCandidate
	for _, c := range candidates {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out
}

func TestRainRuleThresholdIsStrict(t *testing.T) {
	detector := NewDemandDetector(testEvalConfig())
	profile := testProfile("umbrella")

	atThreshold := detector.Detect(profile, &SignalSet{Forecast: rainForecast(4, 0.70)}, testNow)
	assert.Empty(t, candidatesOfType(atThreshold, types.AlertWeatherOpportunity),
		"probability equal to the threshold must not trigger")

	justAbove := detector.Detect(profile, &SignalSet{Forecast: rainForecast(4, 0.70001)}, testNow)
	assert.NotEmpty(t, candidatesOfType(justAbove, types.AlertWeatherOpportunity),
		"probability just above the threshold must trigger")
}

func TestRainRuleHoursWindow(t *testing.T) {
	detector := NewDemandDetector(testEvalConfig())
	profile := testProfile("umbrella")

	tests := []struct {
		hoursAhead int
		want       bool
	}{
		{2, false},
		{3, true},
		{6, true},
		{7, false},
	}

	for _, tt := range tests {
		got := detector.Detect(profile, &SignalSet{Forecast: rainForecast(tt.hoursAhead, 0.85)}, testNow)
		rain := candidatesOfType(got, types.AlertWeatherOpportunity)
		if tt.want {
			assert.NotEmpty(t, rain, "hours ahead %d should trigger", tt.hoursAhead)
		} else {
			assert.Empty(t, rain, "hours ahead %d should not trigger", tt.hoursAhead)
		}
	}
}

func TestRainRuleTrackedKeywords(t *testing.T) {
	detector := NewDemandDetector(testEvalConfig())
	profile := testProfile("umbrella", "kids raincoat", "notebooks")

	got := detector.Detect(profile, &SignalSet{Forecast: rainForecast(4, 0.85)}, testNow)
	rain := candidatesOfType(got, types.AlertWeatherOpportunity)

	require.Len(t, rain, 2, "one candidate per matching tracked keyword")
	keywords := []string{rain[0].Keyword, rain[1].Keyword}
	assert.Contains(t, keywords, "umbrella")
	assert.Contains(t, keywords, "kids raincoat")

	for _, c := range rain {
		assert.Equal(t, 0.85, c.RawScore)
		ctx, ok := c.Context.(*types.RainContext)
		require.True(t, ok)
		assert.Equal(t, "Mumbai", ctx.City)
		assert.Equal(t, 4, ctx.HoursAhead)
	}
}

func TestRainRuleUntrackedSuggestion(t *testing.T) {
	detector := NewDemandDetector(testEvalConfig())
	profile := testProfile("notebooks", "pens")

	got := detector.Detect(profile, &SignalSet{Forecast: rainForecast(4, 0.85)}, testNow)
	rain := candidatesOfType(got, types.AlertWeatherOpportunity)

	require.Len(t, rain, 1, "exactly one suggestion candidate")
	suggestion := rain[0]
	assert.Empty(t, suggestion.Keyword, "suggestion candidates carry no keyword")
	assert.Less(t, suggestion.RawScore, 0.85, "suggestions score below stocking candidates")

	ctx, ok := suggestion.Context.(*types.RainContext)
	require.True(t, ok)
	assert.Equal(t, "umbrella", ctx.Suggestion)
	assert.Contains(t, suggestion.Message, "umbrella")
}

func TestRainRuleClampsProbability(t *testing.T) {
	detector := NewDemandDetector(testEvalConfig())
	profile := testProfile("umbrella")

	got := detector.Detect(profile, &SignalSet{Forecast: rainForecast(4, 1.7)}, testNow)
	rain := candidatesOfType(got, types.AlertWeatherOpportunity)

	require.Len(t, rain, 1)
	assert.Equal(t, 1.0, rain[0].RawScore)
}

func TestTemperatureRule(t *testing.T) {
	detector := NewDemandDetector(testEvalConfig())

	forecast := []types.ForecastPoint{{HoursAhead: 6, Temperature: 38}}

	tracked := detector.Detect(testProfile("ice cream", "umbrella"), &SignalSet{Forecast: forecast}, testNow)
	heat := candidatesOfType(tracked, types.AlertWeatherOpportunity)
	require.Len(t, heat, 1)
	assert.Equal(t, "ice cream", heat[0].Keyword)

	ctx, ok := heat[0].Context.(*types.HeatContext)
	require.True(t, ok)
	assert.Equal(t, 38.0, ctx.Temperature)
	assert.False(t, ctx.Cold)

	atThreshold := detector.Detect(testProfile("ice cream"), &SignalSet{
		Forecast: []types.ForecastPoint{{HoursAhead: 6, Temperature: 35}},
	}, testNow)
	assert.Empty(t, candidatesOfType(atThreshold, types.AlertWeatherOpportunity),
		"temperature equal to the threshold must not trigger")

	outsideWindow := detector.Detect(testProfile("ice cream"), &SignalSet{
		Forecast: []types.ForecastPoint{{HoursAhead: 15, Temperature: 40}},
	}, testNow)
	assert.Empty(t, candidatesOfType(outsideWindow, types.AlertWeatherOpportunity))
}

func TestColdRule(t *testing.T) {
	detector := NewDemandDetector(testEvalConfig())

	got := detector.Detect(testProfile("wool sweater"), &SignalSet{
		Forecast: []types.ForecastPoint{{HoursAhead: 6, Temperature: 4}},
	}, testNow)
	cold := candidatesOfType(got, types.AlertWeatherOpportunity)

	require.Len(t, cold, 1)
	assert.Equal(t, "wool sweater", cold[0].Keyword)

	ctx, ok := cold[0].Context.(*types.HeatContext)
	require.True(t, ok)
	assert.True(t, ctx.Cold)
}

func TestTrendRule(t *testing.T) {
	detector := NewDemandDetector(testEvalConfig())
	profile := testProfile("sneakers", "vinyl records")

	signals := &SignalSet{Trends: map[string]*types.TrendScore{
		"sneakers":      {Value: 85},
		"vinyl records": {Value: 60},
	}}

	got := detector.Detect(profile, signals, testNow)
	trend := candidatesOfType(got, types.AlertSocialTrend)

	require.Len(t, trend, 1, "score equal to the threshold must not trigger")
	assert.Equal(t, "sneakers", trend[0].Keyword)
	assert.Equal(t, 0.85, trend[0].RawScore)

	ctx, ok := trend[0].Context.(*types.TrendContext)
	require.True(t, ok)
	assert.Equal(t, 85.0, ctx.Score)
	assert.Equal(t, "trending", ctx.Status)
}

func TestTrendRuleRisingStatus(t *testing.T) {
	detector := NewDemandDetector(testEvalConfig())
	profile := testProfile("sneakers")

	got := detector.Detect(profile, &SignalSet{Trends: map[string]*types.TrendScore{
		"sneakers": {Value: 65},
	}}, testNow)
	trend := candidatesOfType(got, types.AlertSocialTrend)

	require.Len(t, trend, 1)
	ctx := trend[0].Context.(*types.TrendContext)
	assert.Equal(t, "rising", ctx.Status, "below the high threshold the status is rising")
}

func TestTrendRuleClampsScore(t *testing.T) {
	detector := NewDemandDetector(testEvalConfig())
	profile := testProfile("sneakers")

	got := detector.Detect(profile, &SignalSet{Trends: map[string]*types.TrendScore{
		"sneakers": {Value: 140},
	}}, testNow)
	trend := candidatesOfType(got, types.AlertSocialTrend)

	require.Len(t, trend, 1)
	assert.Equal(t, 1.0, trend[0].RawScore)
	assert.Equal(t, 100.0, trend[0].Context.(*types.TrendContext).Score)
}

func TestFestivalRule(t *testing.T) {
	detector := NewDemandDetector(testEvalConfig())

	profile := testProfile("fairy lights", "gifts")
	profile.User.MarketCategories = nil

	signals := &SignalSet{Holidays: []types.Holiday{
		{Name: "Diwali", Date: testNow.AddDate(0, 0, 8)},
	}}

	got := detector.Detect(profile, signals, testNow)
	festival := candidatesOfType(got, types.AlertFestivalBoost)

	require.Len(t, festival, 1, "generic set matches the tracked gifts keyword")
	assert.Equal(t, "gifts", festival[0].Keyword)

	ctx, ok := festival[0].Context.(*types.FestivalContext)
	require.True(t, ok)
	assert.Equal(t, "Diwali", ctx.HolidayName)
	assert.Equal(t, 8, ctx.DaysUntil)
}

func TestFestivalRuleGenericFallback(t *testing.T) {
	detector := NewDemandDetector(testEvalConfig())

	profile := testProfile("notebooks")
	profile.User.MarketCategories = nil

	got := detector.Detect(profile, &SignalSet{Holidays: []types.Holiday{
		{Name: "Some Local Fair", Date: testNow.AddDate(0, 0, 5)},
	}}, testNow)
	festival := candidatesOfType(got, types.AlertFestivalBoost)

	require.Len(t, festival, 1)
	assert.Empty(t, festival[0].Keyword)
	for _, generic := range []string{"gifts", "sweets", "clothes", "decorations"} {
		assert.Contains(t, festival[0].Message, generic)
	}
}

func TestFestivalRuleLookahead(t *testing.T) {
	detector := NewDemandDetector(testEvalConfig())
	profile := testProfile("gifts")

	outside := detector.Detect(profile, &SignalSet{Holidays: []types.Holiday{
		{Name: "Christmas", Date: testNow.AddDate(0, 0, 11)},
	}}, testNow)
	assert.Empty(t, candidatesOfType(outside, types.AlertFestivalBoost),
		"holidays beyond the look-ahead must not trigger")

	past := detector.Detect(profile, &SignalSet{Holidays: []types.Holiday{
		{Name: "Christmas", Date: testNow.AddDate(0, 0, -1)},
	}}, testNow)
	assert.Empty(t, candidatesOfType(past, types.AlertFestivalBoost))
}

func TestFestivalRuleCategoryFilter(t *testing.T) {
	detector := NewDemandDetector(testEvalConfig())

	profile := testProfile("clothes", "fairy lights")
	profile.User.MarketCategories = []types.MarketCategory{types.CategoryClothes}

	got := detector.Detect(profile, &SignalSet{Holidays: []types.Holiday{
		{Name: "Diwali Festival", Date: testNow.AddDate(0, 0, 9)},
	}}, testNow)
	festival := candidatesOfType(got, types.AlertFestivalBoost)

	require.Len(t, festival, 1, "category filter narrows the stocking set")
	assert.Equal(t, "clothes", festival[0].Keyword)
}

func TestStockoutRule(t *testing.T) {
	detector := NewDemandDetector(testEvalConfig())
	profile := testProfile("umbrella")

	signals := &SignalSet{Stockouts: []types.Stockout{
		{Keyword: "umbrella", Source: "marketplace-x"},
		{Keyword: "sneakers", Source: "marketplace-x"},
	}}

	got := detector.Detect(profile, signals, testNow)
	stockout := candidatesOfType(got, types.AlertCompetitorStockout)

	require.Len(t, stockout, 1, "untracked stockouts are ignored")
	assert.Equal(t, "umbrella", stockout[0].Keyword)
	assert.Equal(t, "marketplace-x", stockout[0].Context.(*types.StockoutContext).Source)
}

func TestDetectEmptySignals(t *testing.T) {
	detector := NewDemandDetector(testEvalConfig())
	got := detector.Detect(testProfile("umbrella"), &SignalSet{}, testNow)
	assert.Empty(t, got)
}
