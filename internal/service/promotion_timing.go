package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/demand-radar/internal/config"
	"github.com/demand-radar/internal/types"
)

// PromotionTimingEngine produces timing-side candidates: when to launch a
// promotion, as opposed to what demand to stock for. Its rules are disjoint
// from the demand detector's and share no alert types with it.
type PromotionTimingEngine struct {
	cfg *config.EvaluationConfig
}

// NewPromotionTimingEngine creates a new promotion timing engine
func NewPromotionTimingEngine(cfg *config.EvaluationConfig) *PromotionTimingEngine {
	return &PromotionTimingEngine{cfg: cfg}
}

// Evaluate runs all timing rules and returns the candidates.
func (e *PromotionTimingEngine) Evaluate(profile *Profile, signals *SignalSet, now time.Time) []types.AlertCandidate {
	var candidates []types.AlertCandidate

	candidates = append(candidates, e.sentimentPeakRule(profile, signals)...)
	candidates = append(candidates, e.festivalPrimingRule(profile, signals, now)...)
	candidates = append(candidates, e.footfallRule(profile, now)...)

	return candidates
}

// sentimentPeakRule fires on momentum, not level: the current trend score must
// exceed the previous observation by the rise delta. First observations have
// no previous value and never fire.
func (e *PromotionTimingEngine) sentimentPeakRule(profile *Profile, signals *SignalSet) []types.AlertCandidate {
	var candidates []types.AlertCandidate

	for _, kw := range profile.Keywords {
		trend, ok := signals.Trends[kw.Keyword]
		if !ok || trend.PreviousValue == nil {
			continue
		}

		current := types.ClampScore(trend.Value)
		previous := types.ClampScore(*trend.PreviousValue)
		if current <= previous+e.cfg.TrendRiseDelta {
			continue
		}

		candidates = append(candidates, types.AlertCandidate{
			Type:    types.AlertSentimentPeak,
			Source:  types.SourceTiming,
			Title:   fmt.Sprintf("Interest in %q is surging", kw.Keyword),
			Message: fmt.Sprintf("Search interest for %q jumped from %.0f to %.0f. Launch a promotion while momentum holds.", kw.Keyword, previous, current),
			Keyword: kw.Keyword,
			Context: &types.TrendContext{
				Score:         current,
				PreviousScore: &previous,
				Status:        "rising",
			},
			RawScore: clamp01(0.4 + (current-previous)/50),
		})
	}
	return candidates
}

// festivalPrimingRule fires when a holiday sits inside the priming window,
// inclusive on both ends. Shoppers buy ahead; promotions that start inside
// the window catch that wave.
func (e *PromotionTimingEngine) festivalPrimingRule(profile *Profile, signals *SignalSet, now time.Time) []types.AlertCandidate {
	var candidates []types.AlertCandidate
	window := [2]int{e.cfg.PrimingMinDays, e.cfg.PrimingMaxDays}

	for _, holiday := range signals.Holidays {
		daysUntil := daysBetween(now, holiday.Date)
		if daysUntil < e.cfg.PrimingMinDays || daysUntil > e.cfg.PrimingMaxDays {
			continue
		}

		stockingSet := stockingKeywordsFor(holiday.Name, profile.User.MarketCategories)
		matched := matchKeywords(profile.Keywords, stockingSet)

		if len(matched) == 0 {
			candidates = append(candidates, types.AlertCandidate{
				Type:    types.AlertPromotionTiming,
				Source:  types.SourceTiming,
				Title:   fmt.Sprintf("Start %s promotions now", holiday.Name),
				Message: fmt.Sprintf("%s is in %d days. Shoppers start buying %s ahead of it.", holiday.Name, daysUntil, strings.Join(stockingSet, ", ")),
				Context: &types.PrimingContext{
					HolidayName: holiday.Name,
					DaysUntil:   daysUntil,
					WindowDays:  window,
				},
				RawScore: 0.7,
			})
			continue
		}

		for _, keyword := range matched {
			candidates = append(candidates, types.AlertCandidate{
				Type:    types.AlertPromotionTiming,
				Source:  types.SourceTiming,
				Title:   fmt.Sprintf("Promote %s for %s now", keyword, holiday.Name),
				Message: fmt.Sprintf("%s is in %d days. Promotions on %s perform best inside this window.", holiday.Name, daysUntil, keyword),
				Keyword: keyword,
				Context: &types.PrimingContext{
					HolidayName: holiday.Name,
					DaysUntil:   daysUntil,
					WindowDays:  window,
				},
				RawScore: 0.7,
			})
		}
	}
	return candidates
}

// footfallRule fires while the local time sits inside a high-footfall window,
// one candidate per tracked keyword. Repetition across passes is bounded by
// the dedup invariant, not by this rule.
func (e *PromotionTimingEngine) footfallRule(profile *Profile, now time.Time) []types.AlertCandidate {
	weekday := now.Weekday()
	weekend := weekday == time.Saturday || weekday == time.Sunday

	windows := e.cfg.FootfallWeekday
	if weekend {
		windows = e.cfg.FootfallWeekend
	}

	hour := now.Hour()
	inWindow := false
	for _, w := range windows {
		if w.Contains(hour) {
			inWindow = true
			break
		}
	}
	if !inWindow {
		return nil
	}

	candidates := make([]types.AlertCandidate, 0, len(profile.Keywords))
	for _, kw := range profile.Keywords {
		candidates = append(candidates, types.AlertCandidate{
			Type:    types.AlertFootfallWindow,
			Source:  types.SourceTiming,
			Title:   fmt.Sprintf("High footfall window: push %s", kw.Keyword),
			Message: fmt.Sprintf("Store traffic peaks around this hour. Feature %s prominently now.", kw.Keyword),
			Keyword: kw.Keyword,
			Context: &types.FootfallContext{
				Hour:    hour,
				Weekend: weekend,
			},
			RawScore: 0.45,
		})
	}
	return candidates
}
