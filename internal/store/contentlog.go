package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/brandsignal/compass/internal/metrics"
	"github.com/brandsignal/compass/internal/models"
)

// ContentLog reads the raw content and wallet-activity history out of
// ClickHouse. The tables are written by the external scraper pipeline;
// this service only queries them.
type ContentLog struct {
	db      *sql.DB
	metrics *metrics.Metrics
}

func NewContentLog(db *sql.DB) *ContentLog {
	return &ContentLog{db: db}
}

// WithMetrics enables per-query instrumentation and returns the reader
func (c *ContentLog) WithMetrics(m *metrics.Metrics) *ContentLog {
	c.metrics = m
	return c
}

// observe records one query against the named table. With no metrics wired
// it is a no-op.
func (c *ContentLog) observe(table string, start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.ClickHouseQueries.WithLabelValues(table, status).Inc()
	c.metrics.DBDuration.WithLabelValues("clickhouse").Observe(time.Since(start).Seconds())
}

// History returns historical content rows for a brand, newest first,
// already normalized into the ranker's row shape.
func (c *ContentLog) History(ctx context.Context, brandID string, limit int) (_ []models.ContentRow, err error) {
	defer func(start time.Time) { c.observe("content_log", start, err) }(time.Now())
	if limit <= 0 {
		limit = 200
	}
	rows, err := c.db.QueryContext(ctx, `
		SELECT post_id, content, platform, impressions, likes, retweets, comments,
		       engagement_rate, posted_at, url, media_url
		FROM content_log
		WHERE brand_id = ?
		ORDER BY posted_at DESC
		LIMIT ?
	`, brandID, limit)
	if err != nil {
		return nil, fmt.Errorf("query content log: %w", err)
	}
	defer rows.Close()

	var out []models.ContentRow
	for rows.Next() {
		var row models.ContentRow
		var postedAt time.Time
		if err := rows.Scan(&row.ID, &row.Content, &row.Platform, &row.Impressions,
			&row.Likes, &row.Retweets, &row.Comments, &row.Rate, &postedAt,
			&row.URL, &row.MediaURL); err != nil {
			return nil, fmt.Errorf("scan content row: %w", err)
		}
		row.Engagement = row.Likes + row.Retweets + row.Comments
		row.Date = &postedAt
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate content log: %w", err)
	}
	return out, nil
}

// AccountSnapshot returns the newest account-level metrics row for a brand.
// RecentPosts and EngagementHistory are filled by separate queries; a brand
// with no rows yet yields a zero snapshot, not an error.
func (c *ContentLog) AccountSnapshot(ctx context.Context, brandID string) (_ models.SocialMetrics, err error) {
	defer func(start time.Time) { c.observe("account_metrics", start, err) }(time.Now())
	var sm models.SocialMetrics
	err = c.db.QueryRowContext(ctx, `
		SELECT followers, weekly_impressions, engagement_rate, mentions, captured_at
		FROM account_metrics
		WHERE brand_id = ?
		ORDER BY captured_at DESC
		LIMIT 1
	`, brandID).Scan(&sm.Followers, &sm.WeeklyImpressions, &sm.EngagementRate, &sm.Mentions, &sm.CapturedAt)
	if err == sql.ErrNoRows {
		return models.SocialMetrics{}, nil
	}
	if err != nil {
		return models.SocialMetrics{}, fmt.Errorf("query account snapshot: %w", err)
	}
	return sm, nil
}

// EngagementHistory returns the brand's daily engagement-rate series over
// the last n days, oldest first
func (c *ContentLog) EngagementHistory(ctx context.Context, brandID string, days int) (_ []models.EngagementPoint, err error) {
	defer func(start time.Time) { c.observe("account_metrics", start, err) }(time.Now())
	if days <= 0 {
		days = 30
	}
	rows, err := c.db.QueryContext(ctx, `
		SELECT toDate(captured_at) AS day, avg(engagement_rate) AS rate
		FROM account_metrics
		WHERE brand_id = ? AND captured_at >= now() - INTERVAL ? DAY
		GROUP BY day
		ORDER BY day ASC
	`, brandID, days)
	if err != nil {
		return nil, fmt.Errorf("query engagement history: %w", err)
	}
	defer rows.Close()

	var out []models.EngagementPoint
	for rows.Next() {
		var p models.EngagementPoint
		if err := rows.Scan(&p.Date, &p.Rate); err != nil {
			return nil, fmt.Errorf("scan engagement point: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate engagement history: %w", err)
	}
	return out, nil
}

// WalletActivity returns per-wallet activity rollups for a brand since the
// given time
func (c *ContentLog) WalletActivity(ctx context.Context, brandID string, since time.Time) (_ []models.WalletActivity, err error) {
	defer func(start time.Time) { c.observe("wallet_activity", start, err) }(time.Now())
	rows, err := c.db.QueryContext(ctx, `
		SELECT address, min(active_at) AS first_active, max(active_at) AS last_active,
		       sum(volume) AS volume
		FROM wallet_activity
		WHERE brand_id = ? AND active_at >= ?
		GROUP BY address
	`, brandID, since)
	if err != nil {
		return nil, fmt.Errorf("query wallet activity: %w", err)
	}
	defer rows.Close()

	var out []models.WalletActivity
	for rows.Next() {
		var w models.WalletActivity
		if err := rows.Scan(&w.Address, &w.FirstActive, &w.LastActive, &w.Volume); err != nil {
			return nil, fmt.Errorf("scan wallet activity: %w", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallet activity: %w", err)
	}
	return out, nil
}
