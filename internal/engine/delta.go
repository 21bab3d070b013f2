package engine

import (
	"math"

	"github.com/brandsignal/compass/internal/models"
)

// Direction labels the sign of a rounded period-over-period delta
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionFlat Direction = "flat"
)

// Delta is a period-over-period change. Percent is rounded to two decimals
// and Direction is derived from that rounded value only, so a +0.0001% raw
// change reads as flat instead of flapping between labels.
type Delta struct {
	Percent   float64   `json:"percent"`
	Direction Direction `json:"direction"`
	HasData   bool      `json:"has_data"`
}

// ChangePercent computes (current - previous) / previous * 100. A previous
// value at or below epsilon yields 0 rather than a blow-up toward infinity;
// that is the documented policy for "no prior period", not a fallback bug.
func ChangePercent(current, previous float64) float64 {
	if previous <= epsilon {
		return 0
	}
	return (current - previous) / math.Max(previous, epsilon) * 100
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// NewDelta builds a Delta from two scalar observations
func NewDelta(current, previous float64) Delta {
	pct := round2(ChangePercent(current, previous))
	d := Delta{Percent: pct, HasData: true}
	switch {
	case pct > 0:
		d.Direction = DirectionUp
	case pct < 0:
		d.Direction = DirectionDown
	default:
		d.Direction = DirectionFlat
	}
	return d
}

// GrowthReport holds the comparative deltas between two social snapshots
type GrowthReport struct {
	Followers   Delta `json:"followers"`
	Impressions Delta `json:"impressions"`
	Engagement  Delta `json:"engagement"`
}

// CompareSnapshots computes the growth report for current vs previous.
// A nil previous snapshot degrades every delta to the no-data state.
func CompareSnapshots(current models.SocialMetrics, previous *models.SocialMetrics) GrowthReport {
	if previous == nil {
		return GrowthReport{}
	}
	return GrowthReport{
		Followers:   NewDelta(float64(current.Followers), float64(previous.Followers)),
		Impressions: NewDelta(float64(current.WeeklyImpressions), float64(previous.WeeklyImpressions)),
		Engagement:  NewDelta(current.EngagementRate, previous.EngagementRate),
	}
}

// PeakEngagement returns the highest-rate point in the history, or false
// when the history is empty. On equal rates the earlier point wins.
func PeakEngagement(history []models.EngagementPoint) (models.EngagementPoint, bool) {
	if len(history) == 0 {
		return models.EngagementPoint{}, false
	}
	peak := history[0]
	for _, p := range history[1:] {
		if p.Rate > peak.Rate {
			peak = p
		}
	}
	return peak, true
}

// EngagementTrend compares the newest history point against the oldest.
// Requires at least two points; anything less degrades to no data.
func EngagementTrend(history []models.EngagementPoint) (Delta, bool) {
	if len(history) < 2 {
		return Delta{}, false
	}
	first := history[0]
	last := history[len(history)-1]
	return NewDelta(last.Rate, first.Rate), true
}
