package service

import "github.com/demand-radar/internal/types"

// Predicted impact is a constant lookup, not a forecast: a per-priority base
// in currency units scaled by a per-alert-type multiplier. The table is the
// single place these numbers live.
var impactBase = map[types.AlertPriority]float64{
	types.PriorityHigh:   60,
	types.PriorityMedium: 30,
	types.PriorityLow:    12,
}

var impactMultiplier = map[types.AlertType]float64{
	types.AlertWeatherOpportunity: 1.25,
	types.AlertSocialTrend:        1.0,
	types.AlertFestivalBoost:      1.5,
	types.AlertCompetitorStockout: 1.0,
	types.AlertSentimentPeak:      1.0,
	types.AlertPromotionTiming:    1.2,
	types.AlertFootfallWindow:     0.8,
}

// PredictedImpact returns the impact estimate for an alert type at a priority.
// Unknown combinations fall back to the low base with no scaling.
func PredictedImpact(alertType types.AlertType, priority types.AlertPriority) float64 {
	base, ok := impactBase[priority]
	if !ok {
		base = impactBase[types.PriorityLow]
	}

	multiplier, ok := impactMultiplier[alertType]
	if !ok {
		multiplier = 1.0
	}

	return base * multiplier
}
