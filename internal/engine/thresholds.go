package engine

import "time"

// epsilon guards every ratio in the engine whose denominator can be zero
const epsilon = 1e-9

// Thresholds is the single named table of tuning constants consumed by the
// scorers. Tests target this table directly instead of re-deriving numbers
// from rendered output.
type Thresholds struct {
	// HealthyRetentionPct is the retention rate at or above which the
	// wallet base is considered healthy.
	HealthyRetentionPct float64

	// HypeEngagement is the per-post engagement count above which a post
	// counts as a hype moment worth doubling down on.
	HypeEngagement int64

	// WhaleVolume is the activity value above which a newly acquired
	// wallet counts as a whale.
	WhaleVolume float64

	// HighRelevance is the relevance score floor for a signal to be
	// considered a priority narrative.
	HighRelevance int

	// RecencyWindow is how fresh a signal must be to earn the recency
	// bonus in task scoring.
	RecencyWindow time.Duration

	// CoverageWindow is the topic window around "now" searched for
	// existing calendar coverage of a signal's topic.
	CoverageWindow time.Duration

	// GapHorizonDays is how far ahead the calendar is scanned for
	// coverage gaps.
	GapHorizonDays int

	// AcquisitionWindow bounds which wallets count as newly acquired in
	// the on-chain rollup.
	AcquisitionWindow time.Duration

	// ActivityWindow bounds which wallets count as still active.
	ActivityWindow time.Duration
}

// DefaultThresholds returns the production threshold table
func DefaultThresholds() Thresholds {
	return Thresholds{
		HealthyRetentionPct: 30,
		HypeEngagement:      500,
		WhaleVolume:         10000,
		HighRelevance:       70,
		RecencyWindow:       24 * time.Hour,
		CoverageWindow:      7 * 24 * time.Hour,
		GapHorizonDays:      7,
		AcquisitionWindow:   30 * 24 * time.Hour,
		ActivityWindow:      30 * 24 * time.Hour,
	}
}
