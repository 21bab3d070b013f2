package models

import "time"

// SocialPost represents one published unit of brand content
type SocialPost struct {
	ID             string    `json:"id"`
	Content        string    `json:"content"`
	Date           time.Time `json:"date"`
	Likes          int64     `json:"likes"`
	Retweets       int64     `json:"retweets"`
	Comments       int64     `json:"comments"`
	Impressions    int64     `json:"impressions"`
	EngagementRate float64   `json:"engagement_rate"`
	URL            string    `json:"url,omitempty"`
	MediaURL       string    `json:"media_url,omitempty"`
}

// Engagement returns the total engaged actions for the post. Always computed
// from its parts, never stored alongside them, so the two cannot drift.
func (p SocialPost) Engagement() int64 {
	return p.Likes + p.Retweets + p.Comments
}

// EngagementPoint is one sample in a time-ordered engagement-rate series
type EngagementPoint struct {
	Date time.Time `json:"date"`
	Rate float64   `json:"rate"`
}

// SocialMetrics is a point-in-time snapshot of a brand's social account.
// EngagementHistory is chronologically ordered; consumers must treat an
// empty history as "no data", not as zero.
type SocialMetrics struct {
	Followers         int64             `json:"followers"`
	WeeklyImpressions int64             `json:"weekly_impressions"`
	EngagementRate    float64           `json:"engagement_rate"`
	Mentions          int               `json:"mentions"`
	RecentPosts       []SocialPost      `json:"recent_posts"`
	EngagementHistory []EngagementPoint `json:"engagement_history"`
	CapturedAt        time.Time         `json:"captured_at"`
}

// CampaignLog describes one paid campaign. Immutable once created;
// attribution scoring reads it but never writes it.
type CampaignLog struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Budget    float64   `json:"budget"`
	Channel   string    `json:"channel"`
	CreatedAt time.Time `json:"created_at"`
}

// WalletActivity is one on-chain wallet's activity attributable to the brand
type WalletActivity struct {
	Address     string    `json:"address"`
	FirstActive time.Time `json:"first_active"`
	LastActive  time.Time `json:"last_active"`
	Volume      float64   `json:"volume"`
}

// CampaignPerformance is the attribution result for a single campaign
type CampaignPerformance struct {
	CampaignID     string  `json:"campaign_id"`
	CampaignName   string  `json:"campaign_name"`
	Channel        string  `json:"channel"`
	Lift           float64 `json:"lift"`
	// WalletLift compares the window's daily wallet acquisition rate to the
	// pre-campaign organic rate. Zero when no baseline rate exists.
	WalletLift     float64 `json:"wallet_lift"`
	CPA            float64 `json:"cpa"`
	ROI            float64 `json:"roi"`
	WhalesAcquired int     `json:"whales_acquired"`
	NetNewWallets  int     `json:"net_new_wallets"`
	Budget         float64 `json:"budget"`
	// RankedEconomics is false for zero-budget campaigns, whose CPA and ROI
	// are undefined and excluded from economic rankings.
	RankedEconomics bool `json:"ranked_economics"`
}

// ComputedMetrics is the derived on-chain rollup for one analysis run.
// It is computed fresh each run and replaced wholesale, never patched.
type ComputedMetrics struct {
	TotalVolume   float64               `json:"total_volume"`
	NetNewWallets int                   `json:"net_new_wallets"`
	ActiveWallets int                   `json:"active_wallets"`
	RetentionRate float64               `json:"retention_rate"`
	Campaigns     []CampaignPerformance `json:"campaigns"`
	ComputedAt    time.Time             `json:"computed_at"`
}

// TaskCategory classifies a recommended strategic action
type TaskCategory string

const (
	TaskGapFill      TaskCategory = "gap-fill"
	TaskTrendJack    TaskCategory = "trend-jack"
	TaskCampaignIdea TaskCategory = "campaign-idea"
	TaskCommunity    TaskCategory = "community"
	TaskReaction     TaskCategory = "reaction"
	TaskReply        TaskCategory = "reply"
	TaskEvergreen    TaskCategory = "evergreen"
)

// TaskStatus tracks the user-feedback state of a strategy task
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskApproved  TaskStatus = "approved"
	TaskDismissed TaskStatus = "dismissed"
)

// StrategyTask is a recommended action produced by the signal-to-task scorer
type StrategyTask struct {
	ID              string       `json:"id"`
	Category        TaskCategory `json:"category"`
	Title           string       `json:"title"`
	Description     string       `json:"description"`
	Reasoning       string       `json:"reasoning"`
	ImpactScore     int          `json:"impact_score"`
	SuggestedDate   *time.Time   `json:"suggested_date,omitempty"`
	ExecutionPrompt string       `json:"execution_prompt"`
	SourceSignals   []string     `json:"source_signals,omitempty"`
	Status          TaskStatus   `json:"status"`
	CreatedAt       time.Time    `json:"created_at"`
}

// TrendSignal is one external market signal (news item, narrative, trend)
type TrendSignal struct {
	ID             string    `json:"id"`
	Topic          string    `json:"topic"`
	Title          string    `json:"title"`
	Source         string    `json:"source"`
	RelevanceScore int       `json:"relevance_score"` // 1-100
	Sentiment      float64   `json:"sentiment"`       // -1..1
	Interactions   int64     `json:"interactions"`
	ObservedAt     time.Time `json:"observed_at"`
}

// CalendarItem is one scheduled entry in the brand's content calendar
type CalendarItem struct {
	ID           string    `json:"id"`
	Topic        string    `json:"topic"`
	Title        string    `json:"title"`
	ScheduledFor time.Time `json:"scheduled_for"`
	Status       string    `json:"status"`
}

// ContentRow is the ranker's normalized view of any content item, live or
// historical. Heterogeneous sources are mapped into this shape before any
// merge/dedupe/sort logic runs.
type ContentRow struct {
	ID          string     `json:"id"`
	Content     string     `json:"content"`
	Platform    string     `json:"platform"`
	Impressions int64      `json:"impressions"`
	Engagement  int64      `json:"engagement"`
	Rate        float64    `json:"rate"`
	Date        *time.Time `json:"date,omitempty"`
	Likes       int64      `json:"likes,omitempty"`
	Retweets    int64      `json:"retweets,omitempty"`
	Comments    int64      `json:"comments,omitempty"`
	URL         string     `json:"url,omitempty"`
	MediaURL    string     `json:"media_url,omitempty"`
}

// ContentRowFromPost maps a SocialPost into the ranker's row shape
func ContentRowFromPost(p SocialPost, platform string) ContentRow {
	date := p.Date
	return ContentRow{
		ID:          p.ID,
		Content:     p.Content,
		Platform:    platform,
		Impressions: p.Impressions,
		Engagement:  p.Engagement(),
		Rate:        p.EngagementRate,
		Date:        &date,
		Likes:       p.Likes,
		Retweets:    p.Retweets,
		Comments:    p.Comments,
		URL:         p.URL,
		MediaURL:    p.MediaURL,
	}
}

// InputStatus describes the readiness of one named engine input
type InputStatus string

const (
	InputReady   InputStatus = "ready"
	InputPending InputStatus = "pending"
	InputMissing InputStatus = "missing"
)

// InputCoverage reports how populated one named input is
type InputCoverage struct {
	Name     string      `json:"name"`
	Count    int         `json:"count"`
	Required bool        `json:"required"`
	Status   InputStatus `json:"status"`
}

// DecisionSummary is the read-only coverage/readiness rollup for a brand
// session. Output flags reflect whether each computation has completed at
// least once this session, never guesses about content quality.
type DecisionSummary struct {
	BrandID           string          `json:"brand_id"`
	Inputs            []InputCoverage `json:"inputs"`
	WiredInputs       int             `json:"wired_inputs"`
	Insights          []string        `json:"insights,omitempty"`
	LastAnalysisAt    *time.Time      `json:"last_analysis_at,omitempty"`
	TasksReady        bool            `json:"tasks_ready"`
	GrowthReportReady bool            `json:"growth_report_ready"`
	CampaignsReady    bool            `json:"campaigns_ready"`
	BriefReady        bool            `json:"brief_ready"`
}

// BriefRecord is one generated daily brief
type BriefRecord struct {
	ID        string    `json:"id"`
	BrandID   string    `json:"brand_id"`
	Context   string    `json:"context"`
	Text      string    `json:"text"`
	Model     string    `json:"model,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
