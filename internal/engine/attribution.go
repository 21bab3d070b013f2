package engine

import (
	"math"
	"sort"
	"time"

	"github.com/brandsignal/compass/internal/models"
)

// Baseline carries the pre-campaign reference metrics for a brand
type Baseline struct {
	// Volume is the attributable volume observed before any campaign ran
	Volume float64 `json:"volume"`
	// WalletRate is the organic new-wallet rate before any campaign ran
	WalletRate float64 `json:"wallet_rate"`
}

// ScoreCampaign computes the attribution entry for one campaign from the
// wallets and volume attributable to its date window. Campaigns with no
// attributable wallets produce an all-zero entry, never an omission, so
// absence from the final list always means "no log exists".
func ScoreCampaign(log models.CampaignLog, wallets []models.WalletActivity, base Baseline, th Thresholds) models.CampaignPerformance {
	perf := models.CampaignPerformance{
		CampaignID:   log.ID,
		CampaignName: log.Name,
		Channel:      log.Channel,
		Budget:       log.Budget,
	}

	var windowVolume float64
	for _, w := range wallets {
		if !inWindow(w.FirstActive, log.StartDate, log.EndDate) {
			continue
		}
		perf.NetNewWallets++
		windowVolume += w.Volume
		if w.Volume > th.WhaleVolume {
			perf.WhalesAcquired++
		}
	}

	// Lift against the pre-campaign baseline. No baseline means no effect
	// claim: the epsilon guard degrades the ratio to zero instead of
	// letting it blow up toward infinity.
	if base.Volume > epsilon {
		perf.Lift = windowVolume / math.Max(base.Volume, epsilon)
	}

	// Wallet lift compares acquisition velocity, not volume: the window's
	// daily new-wallet rate against the organic pre-campaign rate. Windows
	// shorter than a day count as one day so the rate stays finite.
	if base.WalletRate > epsilon {
		days := log.EndDate.Sub(log.StartDate).Hours() / 24
		if days < 1 {
			days = 1
		}
		perf.WalletLift = (float64(perf.NetNewWallets) / days) / base.WalletRate
	}

	// Zero-budget campaigns have undefined economics: lift only.
	if log.Budget <= 0 {
		return perf
	}
	perf.RankedEconomics = true

	// Worst-case CPA when nothing was acquired is the full budget, so the
	// CPA column stays orderable.
	perf.CPA = log.Budget / math.Max(float64(perf.NetNewWallets), 1)
	perf.ROI = (windowVolume - log.Budget) / math.Max(log.Budget, epsilon)

	return perf
}

// ComputeOnChain builds the full on-chain rollup for one analysis run. The
// result replaces the previous rollup wholesale.
func ComputeOnChain(logs []models.CampaignLog, wallets []models.WalletActivity, base Baseline, now time.Time, th Thresholds) models.ComputedMetrics {
	cm := models.ComputedMetrics{ComputedAt: now}

	acquiredSince := now.Add(-th.AcquisitionWindow)
	activeSince := now.Add(-th.ActivityWindow)

	var churned int
	for _, w := range wallets {
		cm.TotalVolume += w.Volume
		active := !w.LastActive.Before(activeSince)
		if active {
			cm.ActiveWallets++
		}
		if !w.FirstActive.Before(acquiredSince) {
			cm.NetNewWallets++
			if !active {
				churned++
			}
		}
	}
	cm.RetentionRate = RetentionRate(cm.ActiveWallets, churned).Value

	for _, log := range logs {
		cm.Campaigns = append(cm.Campaigns, ScoreCampaign(log, wallets, base, th))
	}

	return cm
}

// RankByROI returns the economics ranking, best ROI first. Zero-budget
// campaigns are excluded entirely: their CPA and ROI are undefined.
func RankByROI(perfs []models.CampaignPerformance) []models.CampaignPerformance {
	ranked := make([]models.CampaignPerformance, 0, len(perfs))
	for _, p := range perfs {
		if p.RankedEconomics {
			ranked = append(ranked, p)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].ROI > ranked[j].ROI
	})
	return ranked
}

// RankByLift returns every campaign ordered by lift, best first
func RankByLift(perfs []models.CampaignPerformance) []models.CampaignPerformance {
	ranked := make([]models.CampaignPerformance, len(perfs))
	copy(ranked, perfs)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Lift > ranked[j].Lift
	})
	return ranked
}

func inWindow(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}
