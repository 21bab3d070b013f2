package engine

import (
	"fmt"
	"math"

	"github.com/brandsignal/compass/internal/models"
)

// SessionState tracks which downstream computations have completed at least
// once for the current brand session. Readiness flags in the summary are
// derived from these booleans only, never from guesses about content.
type SessionState struct {
	TasksGenerated  bool
	GrowthComputed  bool
	CampaignsScored bool
	BriefGenerated  bool
	LastAnalysis    *models.ComputedMetrics
	Insights        []string
}

// SummaryInputs is the snapshot the composer rolls up
type SummaryInputs struct {
	BrandID  string
	Calendar []models.CalendarItem
	Mentions int
	Trends   []models.TrendSignal
	// Knowledge holds knowledge-base signals. No collaborator feeds it
	// yet, so its coverage row reports pending until one does.
	Knowledge   []string
	RecentPosts []models.SocialPost
	Session     SessionState
}

// ComposeSummary rolls all engine inputs and outputs into one read-only
// coverage/readiness snapshot for display.
func ComposeSummary(in SummaryInputs) models.DecisionSummary {
	inputs := []models.InputCoverage{
		coverage("recent_posts", len(in.RecentPosts), true),
		coverage("trend_signals", len(in.Trends), true),
		coverage("calendar_items", len(in.Calendar), false),
		coverage("mentions", in.Mentions, false),
		coverage("knowledge_signals", len(in.Knowledge), false),
	}

	summary := models.DecisionSummary{
		BrandID:           in.BrandID,
		Inputs:            inputs,
		Insights:          in.Session.Insights,
		TasksReady:        in.Session.TasksGenerated,
		GrowthReportReady: in.Session.GrowthComputed,
		CampaignsReady:    in.Session.CampaignsScored,
		BriefReady:        in.Session.BriefGenerated,
	}
	for _, ic := range inputs {
		if ic.Status == models.InputReady {
			summary.WiredInputs++
		}
	}
	if in.Session.LastAnalysis != nil {
		at := in.Session.LastAnalysis.ComputedAt
		summary.LastAnalysisAt = &at
	}
	return summary
}

// InsightInputs gathers everything the insight builder reads from one run
type InsightInputs struct {
	Metrics *models.ComputedMetrics
	Growth  GrowthReport
	Trends  []models.TrendSignal
	History []models.EngagementPoint
}

// BuildInsights derives the agent insight list from computed metrics. These
// replace the hardcoded display figures of earlier UI iterations with
// numbers the engine actually computed.
func BuildInsights(in InsightInputs, th Thresholds) []string {
	var insights []string

	cm := in.Metrics
	growth := in.Growth
	if cm != nil {
		if cm.RetentionRate >= th.HealthyRetentionPct {
			insights = append(insights, fmt.Sprintf("Wallet retention is healthy at %.1f%%.", cm.RetentionRate))
		} else {
			insights = append(insights, fmt.Sprintf("Wallet retention at %.1f%% is below the %.0f%% health line.",
				cm.RetentionRate, th.HealthyRetentionPct))
		}
		ranked := RankByROI(cm.Campaigns)
		if len(ranked) > 0 {
			best := ranked[0]
			insights = append(insights, fmt.Sprintf("Best campaign by ROI: %s (%.2fx, CPA $%.2f).",
				best.CampaignName, best.ROI, best.CPA))
		}
	}

	if growth.Engagement.HasData && growth.Engagement.Direction != DirectionFlat {
		insights = append(insights, fmt.Sprintf("Engagement rate is %s %.2f%% period over period.",
			growth.Engagement.Direction, growth.Engagement.Percent))
	}
	if growth.Followers.HasData && growth.Followers.Direction == DirectionDown {
		insights = append(insights, fmt.Sprintf("Follower count is down %.2f%%; review recent cadence.",
			-growth.Followers.Percent))
	}

	var priority int
	var leading models.TrendSignal
	for _, sig := range in.Trends {
		if sig.RelevanceScore < th.HighRelevance {
			continue
		}
		priority++
		if priority == 1 || sig.RelevanceScore > leading.RelevanceScore {
			leading = sig
		}
	}
	if priority > 0 {
		insights = append(insights, fmt.Sprintf("%d signal(s) clear the priority relevance floor of %d; leading narrative: %s.",
			priority, th.HighRelevance, leading.Title))
	}

	if trend, ok := EngagementTrend(in.History); ok && trend.Direction != DirectionFlat {
		if peak, ok := PeakEngagement(in.History); ok {
			insights = append(insights, fmt.Sprintf("Daily engagement is trending %s %.2f%% across the history window; peak %.2f%% on %s.",
				trend.Direction, math.Abs(trend.Percent), peak.Rate, peak.Date.Format("Jan 2")))
		}
	}

	return insights
}

func coverage(name string, count int, required bool) models.InputCoverage {
	ic := models.InputCoverage{Name: name, Count: count, Required: required}
	switch {
	case count > 0:
		ic.Status = models.InputReady
	case required:
		ic.Status = models.InputMissing
	default:
		ic.Status = models.InputPending
	}
	return ic
}
