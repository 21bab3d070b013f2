package analysis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/brandsignal/compass/internal/engine"
	"github.com/brandsignal/compass/internal/logging"
	"github.com/brandsignal/compass/internal/metrics"
	"github.com/brandsignal/compass/internal/models"
	"github.com/brandsignal/compass/internal/store"
)

// TrendSource fetches external market signals for a category feed
type TrendSource interface {
	CategoryNews(ctx context.Context, category string, limit int) ([]models.TrendSignal, error)
}

// Config wires the runner's collaborators
type Config struct {
	Store      *store.Store
	ContentLog *store.ContentLog
	Trends     TrendSource
	Logger     logging.Logger
	Metrics    *metrics.Metrics
	Thresholds engine.Thresholds

	// TrendCategory is the feed category polled for this deployment
	TrendCategory string
	TrendLimit    int
}

// RunResult is everything one analysis pass produced for a brand
type RunResult struct {
	Metrics models.ComputedMetrics
	Growth  engine.GrowthReport
	Tasks   []models.StrategyTask
	Trends  []models.TrendSignal
	Social  models.SocialMetrics
}

// session is the per-brand state the summary composer reads. Replaced
// wholesale by each run, like everything else downstream of the engine.
type session struct {
	state    engine.SessionState
	calendar []models.CalendarItem
	trends   []models.TrendSignal
	social   models.SocialMetrics
	growth   engine.GrowthReport
	tasks    []models.StrategyTask
}

// Runner executes the full analysis pipeline for a brand: concurrent input
// fetch, engine computation, wholesale persistence, session bookkeeping.
type Runner struct {
	cfg Config

	mu       sync.Mutex
	sessions map[string]*session
}

func NewRunner(cfg Config) *Runner {
	if cfg.TrendCategory == "" {
		cfg.TrendCategory = "cryptocurrencies"
	}
	if cfg.TrendLimit <= 0 {
		cfg.TrendLimit = 20
	}
	return &Runner{cfg: cfg, sessions: make(map[string]*session)}
}

// Run executes one analysis pass. Store-backed inputs are mandatory; a trend
// feed failure degrades to an empty signal list so on-chain and growth
// results still land.
func (r *Runner) Run(ctx context.Context, brandID string) (RunResult, error) {
	start := time.Now()
	status := "error"
	defer func() {
		if r.cfg.Metrics != nil {
			r.cfg.Metrics.AnalysisRuns.WithLabelValues(status).Inc()
			r.cfg.Metrics.AnalysisDuration.WithLabelValues(brandID).Observe(time.Since(start).Seconds())
		}
	}()

	in, err := r.fetchInputs(ctx, brandID)
	if err != nil {
		return RunResult{}, err
	}

	now := time.Now().UTC()
	th := r.cfg.Thresholds

	social := in.social
	social.RecentPosts = postsFromRows(in.history)
	social.EngagementHistory = in.engagement
	if social.CapturedAt.IsZero() {
		social.CapturedAt = now
	}

	base := baselineFrom(in.campaigns, in.wallets, th)
	computed := engine.ComputeOnChain(in.campaigns, in.wallets, base, now, th)

	tasks := engine.BuildTasks(engine.TaskInputs{
		Signals:     in.trends,
		Calendar:    in.calendar,
		RecentPosts: social.RecentPosts,
		Now:         now,
	}, th)

	if err := r.cfg.Store.SaveMetricSnapshot(ctx, brandID, computed, social); err != nil {
		return RunResult{}, fmt.Errorf("persist snapshot: %w", err)
	}
	if err := r.cfg.Store.ReplaceTasks(ctx, brandID, tasks); err != nil {
		return RunResult{}, fmt.Errorf("persist tasks: %w", err)
	}
	if r.cfg.Metrics != nil {
		r.cfg.Metrics.TasksGenerated.WithLabelValues(brandID).Add(float64(len(tasks)))
	}

	growth := r.growthReport(ctx, brandID, social)
	insights := engine.BuildInsights(engine.InsightInputs{
		Metrics: &computed,
		Growth:  growth,
		Trends:  in.trends,
		History: in.engagement,
	}, th)

	r.mu.Lock()
	sess := r.session(brandID)
	briefDone := sess.state.BriefGenerated
	sess.state = engine.SessionState{
		TasksGenerated:  true,
		GrowthComputed:  true,
		CampaignsScored: true,
		BriefGenerated:  briefDone,
		LastAnalysis:    &computed,
		Insights:        insights,
	}
	sess.calendar = in.calendar
	sess.trends = in.trends
	sess.social = social
	sess.growth = growth
	sess.tasks = tasks
	r.mu.Unlock()

	r.cfg.Logger.WithFields(logging.Fields{
		"brand_id": brandID,
		"tasks":    len(tasks),
		"signals":  len(in.trends),
		"wallets":  len(in.wallets),
		"duration": time.Since(start).String(),
	}).Info("Analysis run complete")

	status = "success"
	return RunResult{
		Metrics: computed,
		Growth:  growth,
		Tasks:   tasks,
		Trends:  in.trends,
		Social:  social,
	}, nil
}

// Summary composes the brand's coverage/readiness rollup from the last run's
// session. Before any run it reports empty inputs and no readiness.
func (r *Runner) Summary(brandID string) models.DecisionSummary {
	r.mu.Lock()
	sess := r.session(brandID)
	in := engine.SummaryInputs{
		BrandID:     brandID,
		Calendar:    sess.calendar,
		Mentions:    sess.social.Mentions,
		Trends:      sess.trends,
		RecentPosts: sess.social.RecentPosts,
		Session:     sess.state,
	}
	r.mu.Unlock()
	return engine.ComposeSummary(in)
}

// Last returns the brand's most recent run outputs held in memory
func (r *Runner) Last(brandID string) RunResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess := r.session(brandID)
	result := RunResult{
		Growth: sess.growth,
		Tasks:  sess.tasks,
		Trends: sess.trends,
		Social: sess.social,
	}
	if sess.state.LastAnalysis != nil {
		result.Metrics = *sess.state.LastAnalysis
	}
	return result
}

// Insights returns the last computed insight strings for a brand
func (r *Runner) Insights(brandID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session(brandID).state.Insights
}

// MarkBriefGenerated flips the session's brief readiness flag
func (r *Runner) MarkBriefGenerated(brandID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session(brandID).state.BriefGenerated = true
}

// session returns the brand's session, creating it if needed. Callers must
// hold r.mu.
func (r *Runner) session(brandID string) *session {
	sess, ok := r.sessions[brandID]
	if !ok {
		sess = &session{}
		r.sessions[brandID] = sess
	}
	return sess
}

type inputs struct {
	campaigns  []models.CampaignLog
	calendar   []models.CalendarItem
	wallets    []models.WalletActivity
	history    []models.ContentRow
	engagement []models.EngagementPoint
	social     models.SocialMetrics
	trends     []models.TrendSignal
}

func (r *Runner) fetchInputs(ctx context.Context, brandID string) (inputs, error) {
	var in inputs
	since := time.Now().UTC().Add(-365 * 24 * time.Hour)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		in.campaigns, err = r.cfg.Store.ListCampaignLogs(gctx, brandID)
		return err
	})
	g.Go(func() error {
		var err error
		in.calendar, err = r.cfg.Store.ListCalendarItems(gctx, brandID)
		return err
	})
	g.Go(func() error {
		var err error
		in.wallets, err = r.cfg.ContentLog.WalletActivity(gctx, brandID, since)
		return err
	})
	g.Go(func() error {
		var err error
		in.history, err = r.cfg.ContentLog.History(gctx, brandID, 0)
		return err
	})
	g.Go(func() error {
		var err error
		in.engagement, err = r.cfg.ContentLog.EngagementHistory(gctx, brandID, 30)
		return err
	})
	g.Go(func() error {
		var err error
		in.social, err = r.cfg.ContentLog.AccountSnapshot(gctx, brandID)
		return err
	})
	if err := g.Wait(); err != nil {
		return inputs{}, fmt.Errorf("fetch analysis inputs: %w", err)
	}

	if r.cfg.Trends != nil {
		trends, err := r.cfg.Trends.CategoryNews(ctx, r.cfg.TrendCategory, r.cfg.TrendLimit)
		if err != nil {
			r.cfg.Logger.WithError(err).WithField("brand_id", brandID).Warn("Trend feed unavailable, continuing without signals")
			if r.cfg.Metrics != nil {
				r.cfg.Metrics.TrendFetches.WithLabelValues("error").Inc()
			}
		} else {
			in.trends = trends
			if r.cfg.Metrics != nil {
				r.cfg.Metrics.TrendFetches.WithLabelValues("success").Inc()
			}
		}
	}

	return in, nil
}

// growthReport compares the just-saved snapshot against the one before it
func (r *Runner) growthReport(ctx context.Context, brandID string, current models.SocialMetrics) engine.GrowthReport {
	snapshots, err := r.cfg.Store.LatestSnapshots(ctx, brandID, 2)
	if err != nil {
		r.cfg.Logger.WithError(err).WithField("brand_id", brandID).Warn("Could not load previous snapshot for growth report")
		return engine.CompareSnapshots(current, nil)
	}
	// snapshots[0] is the run we just saved; the previous one is the baseline
	if len(snapshots) < 2 {
		return engine.CompareSnapshots(current, nil)
	}
	previous := snapshots[1].Social
	return engine.CompareSnapshots(current, &previous)
}

// baselineFrom derives the pre-campaign reference from wallets that were
// already active before the earliest campaign started. No campaigns or no
// prior wallets means no baseline, and lift degrades to zero downstream.
func baselineFrom(logs []models.CampaignLog, wallets []models.WalletActivity, th engine.Thresholds) engine.Baseline {
	var base engine.Baseline
	if len(logs) == 0 {
		return base
	}
	earliest := logs[0].StartDate
	for _, log := range logs[1:] {
		if log.StartDate.Before(earliest) {
			earliest = log.StartDate
		}
	}

	var count int
	for _, w := range wallets {
		if w.FirstActive.Before(earliest) {
			base.Volume += w.Volume
			count++
		}
	}
	days := th.AcquisitionWindow.Hours() / 24
	if days > 0 {
		base.WalletRate = float64(count) / days
	}
	return base
}

func postsFromRows(rows []models.ContentRow) []models.SocialPost {
	posts := make([]models.SocialPost, 0, len(rows))
	for _, row := range rows {
		post := models.SocialPost{
			ID:             row.ID,
			Content:        row.Content,
			Likes:          row.Likes,
			Retweets:       row.Retweets,
			Comments:       row.Comments,
			Impressions:    row.Impressions,
			EngagementRate: row.Rate,
			URL:            row.URL,
			MediaURL:       row.MediaURL,
		}
		if row.Date != nil {
			post.Date = *row.Date
		}
		posts = append(posts, post)
	}
	return posts
}
