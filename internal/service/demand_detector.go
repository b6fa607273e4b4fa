package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/demand-radar/internal/config"
	"github.com/demand-radar/internal/models"
	"github.com/demand-radar/internal/types"
)

// Keyword families for the weather rules. A tracked keyword matches when it
// contains one of these as a substring, case-insensitive.
var (
	rainKeywords = []string{"umbrella", "raincoat", "rain", "waterproof", "boots"}
	heatKeywords = []string{"cold drink", "ice cream", "fan", "ac", "cooler", "summer"}
	coldKeywords = []string{"heater", "jacket", "sweater", "blanket"}
)

// Festival stocking keywords keyed by a substring of the holiday name.
var festivalKeywords = map[string][]string{
	"diwali":    {"lights", "candles", "sweets", "gifts", "clothes", "electronics"},
	"holi":      {"colors", "water guns", "clothes", "sweets"},
	"eid":       {"clothes", "food", "gifts"},
	"christmas": {"gifts", "decorations", "clothes", "toys"},
	"new year":  {"party", "clothes", "gifts", "decorations"},
}

// genericFestivalKeywords covers holidays with no entry above and users with
// no market categories.
var genericFestivalKeywords = []string{"gifts", "sweets", "clothes", "decorations"}

// DemandDetector turns a user's signal snapshot into demand-side alert
// candidates. It is a pure function of its inputs; all thresholds come from
// configuration.
type DemandDetector struct {
	cfg *config.EvaluationConfig
}

// NewDemandDetector creates a new demand detector
func NewDemandDetector(cfg *config.EvaluationConfig) *DemandDetector {
	return &DemandDetector{cfg: cfg}
}

// Detect runs all demand rules and returns the candidates.
func (d *DemandDetector) Detect(profile *Profile, signals *SignalSet, now time.Time) []types.AlertCandidate {
	var candidates []types.AlertCandidate

	candidates = append(candidates, d.rainRule(profile, signals)...)
	candidates = append(candidates, d.temperatureRule(profile, signals)...)
	candidates = append(candidates, d.trendRule(profile, signals)...)
	candidates = append(candidates, d.festivalRule(profile, signals, now)...)
	candidates = append(candidates, d.stockoutRule(profile, signals)...)

	return candidates
}

// rainRule fires on the first forecast point inside the look-ahead window
// whose rain probability strictly exceeds the threshold. Tracked rain keywords
// each get a stocking candidate; with none tracked, exactly one suggestion
// candidate is emitted instead.
func (d *DemandDetector) rainRule(profile *Profile, signals *SignalSet) []types.AlertCandidate {
	point := firstPoint(signals.Forecast, func(p types.ForecastPoint) bool {
		return p.HoursAhead >= d.cfg.RainMinHours &&
			p.HoursAhead <= d.cfg.RainMaxHours &&
			types.ClampProbability(p.RainProbability) > d.cfg.RainThreshold
	})
	if point == nil {
		return nil
	}

	probability := types.ClampProbability(point.RainProbability)
	city := profile.User.LocationCity
	matched := matchKeywords(profile.Keywords, rainKeywords)

	if len(matched) == 0 {
		suggestion := rainKeywords[0]
		return []types.AlertCandidate{{
			Type:    types.AlertWeatherOpportunity,
			Source:  types.SourceDemand,
			Title:   "Rain expected soon",
			Message: fmt.Sprintf("Rain likely in %s within %d hours. Consider stocking %s.", city, point.HoursAhead, suggestion),
			Context: &types.RainContext{
				RainProbability: probability,
				HoursAhead:      point.HoursAhead,
				City:            city,
				Suggestion:      suggestion,
			},
			RawScore: probability * 0.8,
		}}
	}

	candidates := make([]types.AlertCandidate, 0, len(matched))
	for _, keyword := range matched {
		candidates = append(candidates, types.AlertCandidate{
			Type:    types.AlertWeatherOpportunity,
			Source:  types.SourceDemand,
			Title:   fmt.Sprintf("Rain expected: stock up on %s", keyword),
			Message: fmt.Sprintf("Rain likely in %s within %d hours. Demand for %s tends to spike.", city, point.HoursAhead, keyword),
			Keyword: keyword,
			Context: &types.RainContext{
				RainProbability: probability,
				HoursAhead:      point.HoursAhead,
				City:            city,
			},
			RawScore: probability,
		})
	}
	return candidates
}

// temperatureRule fires on heat above or cold below the configured thresholds
// within the temperature window. Branching mirrors the rain rule.
func (d *DemandDetector) temperatureRule(profile *Profile, signals *SignalSet) []types.AlertCandidate {
	var candidates []types.AlertCandidate

	hot := firstPoint(signals.Forecast, func(p types.ForecastPoint) bool {
		return p.HoursAhead <= d.cfg.TempWindowHours && p.Temperature > d.cfg.HeatThresholdC
	})
	if hot != nil {
		score := clamp01(0.5 + (hot.Temperature-d.cfg.HeatThresholdC)/20)
		candidates = append(candidates, d.temperatureCandidates(profile, hot, heatKeywords, false, score)...)
	}

	cold := firstPoint(signals.Forecast, func(p types.ForecastPoint) bool {
		return p.HoursAhead <= d.cfg.TempWindowHours && p.Temperature < d.cfg.ColdThresholdC
	})
	if cold != nil {
		score := clamp01(0.5 + (d.cfg.ColdThresholdC-cold.Temperature)/20)
		candidates = append(candidates, d.temperatureCandidates(profile, cold, coldKeywords, true, score)...)
	}

	return candidates
}

func (d *DemandDetector) temperatureCandidates(profile *Profile, point *types.ForecastPoint, family []string, cold bool, score float64) []types.AlertCandidate {
	city := profile.User.LocationCity
	kind := "Heat"
	if cold {
		kind = "Cold"
	}

	matched := matchKeywords(profile.Keywords, family)
	if len(matched) == 0 {
		suggestion := family[0]
		return []types.AlertCandidate{{
			Type:    types.AlertWeatherOpportunity,
			Source:  types.SourceDemand,
			Title:   fmt.Sprintf("%s spike expected", kind),
			Message: fmt.Sprintf("%.0f°C expected in %s within %d hours. Consider stocking %s.", point.Temperature, city, point.HoursAhead, suggestion),
			Context: &types.HeatContext{
				Temperature: point.Temperature,
				HoursAhead:  point.HoursAhead,
				City:        city,
				Cold:        cold,
				Suggestion:  suggestion,
			},
			RawScore: score * 0.8,
		}}
	}

	candidates := make([]types.AlertCandidate, 0, len(matched))
	for _, keyword := range matched {
		candidates = append(candidates, types.AlertCandidate{
			Type:    types.AlertWeatherOpportunity,
			Source:  types.SourceDemand,
			Title:   fmt.Sprintf("%s spike: stock up on %s", kind, keyword),
			Message: fmt.Sprintf("%.0f°C expected in %s within %d hours. Demand for %s tends to spike.", point.Temperature, city, point.HoursAhead, keyword),
			Keyword: keyword,
			Context: &types.HeatContext{
				Temperature: point.Temperature,
				HoursAhead:  point.HoursAhead,
				City:        city,
				Cold:        cold,
			},
			RawScore: score,
		})
	}
	return candidates
}

// trendRule fires per tracked keyword whose clamped score strictly exceeds
// the threshold. The context carries the score and status verbatim.
func (d *DemandDetector) trendRule(profile *Profile, signals *SignalSet) []types.AlertCandidate {
	var candidates []types.AlertCandidate

	for _, kw := range profile.Keywords {
		trend, ok := signals.Trends[kw.Keyword]
		if !ok {
			continue
		}

		score := types.ClampScore(trend.Value)
		if score <= d.cfg.TrendThreshold {
			continue
		}

		status := "rising"
		if score >= d.cfg.TrendHighScore {
			status = "trending"
		}

		candidates = append(candidates, types.AlertCandidate{
			Type:    types.AlertSocialTrend,
			Source:  types.SourceDemand,
			Title:   fmt.Sprintf("%q is %s in search", kw.Keyword, status),
			Message: fmt.Sprintf("Search interest for %q scored %.0f/100. Consider increasing stock and visibility.", kw.Keyword, score),
			Keyword: kw.Keyword,
			Context: &types.TrendContext{
				Score:         score,
				PreviousScore: trend.PreviousValue,
				Status:        status,
			},
			RawScore: score / 100,
		})
	}
	return candidates
}

// festivalRule fires per holiday inside the look-ahead window. Stocking
// keywords come from the festival table; users with no market categories get
// the generic set. The raw score decays with days until the holiday.
func (d *DemandDetector) festivalRule(profile *Profile, signals *SignalSet, now time.Time) []types.AlertCandidate {
	var candidates []types.AlertCandidate

	for _, holiday := range signals.Holidays {
		daysUntil := daysBetween(now, holiday.Date)
		if daysUntil < 0 || daysUntil > d.cfg.FestivalLookahead {
			continue
		}

		stockingSet := stockingKeywordsFor(holiday.Name, profile.User.MarketCategories)
		score := clamp01(0.9 - float64(daysUntil)*0.05)
		dateStr := holiday.Date.Format("2006-01-02")

		matched := matchKeywords(profile.Keywords, stockingSet)
		if len(matched) == 0 {
			candidates = append(candidates, types.AlertCandidate{
				Type:    types.AlertFestivalBoost,
				Source:  types.SourceDemand,
				Title:   fmt.Sprintf("%s is coming up", holiday.Name),
				Message: fmt.Sprintf("%s is in %d days. Consider stocking %s.", holiday.Name, daysUntil, strings.Join(stockingSet, ", ")),
				Context: &types.FestivalContext{
					HolidayName: holiday.Name,
					HolidayDate: dateStr,
					DaysUntil:   daysUntil,
				},
				RawScore: score * 0.8,
			})
			continue
		}

		for _, keyword := range matched {
			candidates = append(candidates, types.AlertCandidate{
				Type:    types.AlertFestivalBoost,
				Source:  types.SourceDemand,
				Title:   fmt.Sprintf("%s boost: stock up on %s", holiday.Name, keyword),
				Message: fmt.Sprintf("%s is in %d days. Demand for %s rises ahead of it.", holiday.Name, daysUntil, keyword),
				Keyword: keyword,
				Context: &types.FestivalContext{
					HolidayName: holiday.Name,
					HolidayDate: dateStr,
					DaysUntil:   daysUntil,
				},
				RawScore: score,
			})
		}
	}
	return candidates
}

// stockoutRule fires per reported competitor stockout on a tracked keyword.
// Without a stockout provider the signal set is empty and nothing fires.
func (d *DemandDetector) stockoutRule(profile *Profile, signals *SignalSet) []types.AlertCandidate {
	tracked := make(map[string]bool, len(profile.Keywords))
	for _, kw := range profile.Keywords {
		tracked[strings.ToLower(kw.Keyword)] = true
	}

	var candidates []types.AlertCandidate
	for _, stockout := range signals.Stockouts {
		if !tracked[strings.ToLower(stockout.Keyword)] {
			continue
		}
		candidates = append(candidates, types.AlertCandidate{
			Type:     types.AlertCompetitorStockout,
			Source:   types.SourceDemand,
			Title:    fmt.Sprintf("Competitor out of stock: %s", stockout.Keyword),
			Message:  fmt.Sprintf("A competitor is out of stock on %s. Window to capture demand.", stockout.Keyword),
			Keyword:  stockout.Keyword,
			Context:  &types.StockoutContext{Source: stockout.Source},
			RawScore: 0.7,
		})
	}
	return candidates
}

// stockingKeywordsFor resolves the stocking set for a holiday. With market
// categories set, the set is filtered to category-relevant entries when any
// match.
func stockingKeywordsFor(holidayName string, categories []types.MarketCategory) []string {
	if len(categories) == 0 {
		return genericFestivalKeywords
	}

	name := strings.ToLower(holidayName)
	base := genericFestivalKeywords
	for key, set := range festivalKeywords {
		if strings.Contains(name, key) {
			base = set
			break
		}
	}

	categorySet := make(map[string]bool, len(categories))
	for _, c := range categories {
		categorySet[string(c)] = true
	}

	var filtered []string
	for _, keyword := range base {
		if categorySet[keyword] {
			filtered = append(filtered, keyword)
		}
	}
	if len(filtered) > 0 {
		return filtered
	}
	return base
}

// matchKeywords returns the tracked keywords containing any family member as
// a substring, case-insensitive, in tracked order without duplicates.
func matchKeywords(tracked []*models.TrackedKeyword, family []string) []string {
	var matched []string
	seen := make(map[string]bool)

	for _, kw := range tracked {
		lower := strings.ToLower(kw.Keyword)
		for _, member := range family {
			if strings.Contains(lower, member) && !seen[kw.Keyword] {
				matched = append(matched, kw.Keyword)
				seen[kw.Keyword] = true
				break
			}
		}
	}
	return matched
}

func firstPoint(points []types.ForecastPoint, match func(types.ForecastPoint) bool) *types.ForecastPoint {
	for i := range points {
		if match(points[i]) {
			return &points[i]
		}
	}
	return nil
}

// daysBetween returns whole calendar days from now to date, by date not by
// 24-hour spans.
func daysBetween(now, date time.Time) int {
	nowDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	targetDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return int(targetDay.Sub(nowDay).Hours() / 24)
}

func clamp01(v float64) float64 {
	return types.ClampProbability(v)
}
