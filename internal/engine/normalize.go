package engine

import (
	"math"

	"github.com/brandsignal/compass/internal/models"
)

// Rate is a percentage metric with an explicit presence flag. HasData false
// means the inputs could not support the calculation; the value is then an
// explicit zero so the caller can render "no data" instead of "0%".
type Rate struct {
	Value   float64 `json:"value"`
	HasData bool    `json:"has_data"`
}

// clampPct forces a percentage into [0, +inf) and flattens NaN/Inf to zero
func clampPct(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// EngagementRate computes engaged actions as a percentage of impressions
// across the given posts. Missing impressions degrade to Rate{0, false}.
func EngagementRate(posts []models.SocialPost) Rate {
	var engagement, impressions int64
	for _, p := range posts {
		engagement += p.Engagement()
		impressions += p.Impressions
	}
	if impressions <= 0 {
		return Rate{}
	}
	return Rate{Value: clampPct(float64(engagement) / float64(impressions) * 100), HasData: true}
}

// ReachRate computes impressions as a percentage of followers. Organic
// overlap can push this above 100%, so no upper cap is enforced.
func ReachRate(impressions, followers int64) Rate {
	if followers <= 0 {
		return Rate{}
	}
	return Rate{Value: clampPct(float64(impressions) / float64(followers) * 100), HasData: true}
}

// RetentionRate computes the percentage of acquired wallets still active,
// rounded to one decimal. Churned counts wallets acquired but inactive since.
func RetentionRate(active, churned int) Rate {
	total := active + churned
	if total <= 0 {
		return Rate{}
	}
	pct := clampPct(float64(active) / float64(total) * 100)
	return Rate{Value: math.Round(pct*10) / 10, HasData: true}
}
