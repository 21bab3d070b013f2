package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/brandsignal/compass/internal/metrics"
	"github.com/brandsignal/compass/internal/models"
)

// ErrNotFound is returned when a lookup matches no rows
var ErrNotFound = errors.New("not found")

// Store is the Postgres-backed persistence adapter for campaign logs,
// strategy tasks, metric snapshots and briefs. The engine never touches it;
// the analysis runner and handlers do.
type Store struct {
	db      *sql.DB
	metrics *metrics.Metrics
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// WithMetrics enables per-query instrumentation and returns the store
func (s *Store) WithMetrics(m *metrics.Metrics) *Store {
	s.metrics = m
	return s
}

// observe records one query against the named table. With no metrics wired
// it is a no-op.
func (s *Store) observe(table string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.PostgresQueries.WithLabelValues(table, status).Inc()
	s.metrics.DBDuration.WithLabelValues("postgres").Observe(time.Since(start).Seconds())
}

// ListCampaignLogs returns every campaign log for a brand, oldest first.
// Logs are immutable once created; there is no update path.
func (s *Store) ListCampaignLogs(ctx context.Context, brandID string) (_ []models.CampaignLog, err error) {
	defer func(start time.Time) { s.observe("campaign_logs", start, err) }(time.Now())
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, start_date, end_date, budget, channel, created_at
		FROM compass.campaign_logs
		WHERE brand_id = $1
		ORDER BY start_date ASC
	`, brandID)
	if err != nil {
		return nil, fmt.Errorf("list campaign logs: %w", err)
	}
	defer rows.Close()

	var logs []models.CampaignLog
	for rows.Next() {
		var log models.CampaignLog
		if err := rows.Scan(&log.ID, &log.Name, &log.StartDate, &log.EndDate,
			&log.Budget, &log.Channel, &log.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan campaign log: %w", err)
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate campaign logs: %w", err)
	}
	return logs, nil
}

// ListCalendarItems returns the brand's content calendar, soonest first.
// The calendar is written by the planning UI; gap detection only reads it.
func (s *Store) ListCalendarItems(ctx context.Context, brandID string) (_ []models.CalendarItem, err error) {
	defer func(start time.Time) { s.observe("calendar_items", start, err) }(time.Now())
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, topic, title, scheduled_for, status
		FROM compass.calendar_items
		WHERE brand_id = $1
		ORDER BY scheduled_for ASC
	`, brandID)
	if err != nil {
		return nil, fmt.Errorf("list calendar items: %w", err)
	}
	defer rows.Close()

	var items []models.CalendarItem
	for rows.Next() {
		var item models.CalendarItem
		if err := rows.Scan(&item.ID, &item.Topic, &item.Title, &item.ScheduledFor, &item.Status); err != nil {
			return nil, fmt.Errorf("scan calendar item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calendar items: %w", err)
	}
	return items, nil
}

// CreateCampaignLog inserts a new immutable campaign log
func (s *Store) CreateCampaignLog(ctx context.Context, brandID string, log models.CampaignLog) (_ models.CampaignLog, err error) {
	defer func(start time.Time) { s.observe("campaign_logs", start, err) }(time.Now())
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO compass.campaign_logs (brand_id, name, start_date, end_date, budget, channel)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, brandID, log.Name, log.StartDate, log.EndDate, log.Budget, log.Channel).
		Scan(&log.ID, &log.CreatedAt)
	if err != nil {
		return models.CampaignLog{}, fmt.Errorf("insert campaign log: %w", err)
	}
	return log, nil
}

// ReplaceTasks swaps the brand's task list wholesale inside one
// transaction. Regeneration is the only way tasks leave terminal states.
func (s *Store) ReplaceTasks(ctx context.Context, brandID string, tasks []models.StrategyTask) (err error) {
	defer func(start time.Time) { s.observe("strategy_tasks", start, err) }(time.Now())
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin task replacement: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM compass.strategy_tasks WHERE brand_id = $1`, brandID); err != nil {
		return fmt.Errorf("clear tasks: %w", err)
	}

	for i, task := range tasks {
		signals, err := json.Marshal(task.SourceSignals)
		if err != nil {
			return fmt.Errorf("encode source signals: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO compass.strategy_tasks (
				id, brand_id, category, title, description, reasoning,
				impact_score, suggested_date, execution_prompt, source_signals,
				status, position
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`, task.ID, brandID, string(task.Category), task.Title, task.Description,
			task.Reasoning, task.ImpactScore, task.SuggestedDate, task.ExecutionPrompt,
			signals, string(task.Status), i); err != nil {
			return fmt.Errorf("insert task %s: %w", task.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit task replacement: %w", err)
	}
	return nil
}

// ListTasks returns the brand's tasks in their generated priority order
func (s *Store) ListTasks(ctx context.Context, brandID string) (_ []models.StrategyTask, err error) {
	defer func(start time.Time) { s.observe("strategy_tasks", start, err) }(time.Now())
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, category, title, description, reasoning, impact_score,
		       suggested_date, execution_prompt, source_signals, status, created_at
		FROM compass.strategy_tasks
		WHERE brand_id = $1
		ORDER BY position ASC
	`, brandID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.StrategyTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}

// GetTask fetches one task by id within a brand
func (s *Store) GetTask(ctx context.Context, brandID, taskID string) (_ models.StrategyTask, err error) {
	defer func(start time.Time) { s.observe("strategy_tasks", start, err) }(time.Now())
	row := s.db.QueryRowContext(ctx, `
		SELECT id, category, title, description, reasoning, impact_score,
		       suggested_date, execution_prompt, source_signals, status, created_at
		FROM compass.strategy_tasks
		WHERE brand_id = $1 AND id = $2
	`, brandID, taskID)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.StrategyTask{}, ErrNotFound
	}
	if err != nil {
		return models.StrategyTask{}, err
	}
	return task, nil
}

// UpdateTaskStatus persists a state transition already validated by the engine
func (s *Store) UpdateTaskStatus(ctx context.Context, brandID, taskID string, status models.TaskStatus) (err error) {
	defer func(start time.Time) { s.observe("strategy_tasks", start, err) }(time.Now())
	res, err := s.db.ExecContext(ctx, `
		UPDATE compass.strategy_tasks SET status = $1 WHERE brand_id = $2 AND id = $3
	`, string(status), brandID, taskID)
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveMetricSnapshot stores a full analysis result. Each run appends a new
// snapshot; the previous one is kept for period-over-period comparison.
func (s *Store) SaveMetricSnapshot(ctx context.Context, brandID string, cm models.ComputedMetrics, social models.SocialMetrics) (err error) {
	defer func(start time.Time) { s.observe("metric_snapshots", start, err) }(time.Now())
	onchain, err := json.Marshal(cm)
	if err != nil {
		return fmt.Errorf("encode computed metrics: %w", err)
	}
	socialJSON, err := json.Marshal(social)
	if err != nil {
		return fmt.Errorf("encode social metrics: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO compass.metric_snapshots (brand_id, onchain, social, computed_at)
		VALUES ($1, $2, $3, $4)
	`, brandID, onchain, socialJSON, cm.ComputedAt); err != nil {
		return fmt.Errorf("insert metric snapshot: %w", err)
	}
	return nil
}

// MetricSnapshot pairs the on-chain rollup with the social snapshot that
// fed the same analysis run
type MetricSnapshot struct {
	OnChain    models.ComputedMetrics
	Social     models.SocialMetrics
	ComputedAt time.Time
}

// LatestSnapshots returns up to n most recent snapshots, newest first
func (s *Store) LatestSnapshots(ctx context.Context, brandID string, n int) (_ []MetricSnapshot, err error) {
	defer func(start time.Time) { s.observe("metric_snapshots", start, err) }(time.Now())
	if n <= 0 {
		n = 2
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT onchain, social, computed_at
		FROM compass.metric_snapshots
		WHERE brand_id = $1
		ORDER BY computed_at DESC
		LIMIT $2
	`, brandID, n)
	if err != nil {
		return nil, fmt.Errorf("list metric snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []MetricSnapshot
	for rows.Next() {
		var snap MetricSnapshot
		var onchain, social []byte
		if err := rows.Scan(&onchain, &social, &snap.ComputedAt); err != nil {
			return nil, fmt.Errorf("scan metric snapshot: %w", err)
		}
		if err := json.Unmarshal(onchain, &snap.OnChain); err != nil {
			return nil, fmt.Errorf("decode computed metrics: %w", err)
		}
		if err := json.Unmarshal(social, &snap.Social); err != nil {
			return nil, fmt.Errorf("decode social metrics: %w", err)
		}
		snapshots = append(snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metric snapshots: %w", err)
	}
	return snapshots, nil
}

// SaveBrief stores a generated daily brief
func (s *Store) SaveBrief(ctx context.Context, brief models.BriefRecord) (_ models.BriefRecord, err error) {
	defer func(start time.Time) { s.observe("briefs", start, err) }(time.Now())
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO compass.briefs (brand_id, context, text, model)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, brief.BrandID, brief.Context, brief.Text, brief.Model).
		Scan(&brief.ID, &brief.CreatedAt)
	if err != nil {
		return models.BriefRecord{}, fmt.Errorf("insert brief: %w", err)
	}
	return brief, nil
}

// LatestBrief returns the most recent brief for a brand
func (s *Store) LatestBrief(ctx context.Context, brandID string) (_ models.BriefRecord, err error) {
	defer func(start time.Time) { s.observe("briefs", start, err) }(time.Now())
	var brief models.BriefRecord
	var model sql.NullString
	err = s.db.QueryRowContext(ctx, `
		SELECT id, brand_id, context, text, model, created_at
		FROM compass.briefs
		WHERE brand_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, brandID).Scan(&brief.ID, &brief.BrandID, &brief.Context, &brief.Text, &model, &brief.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.BriefRecord{}, ErrNotFound
	}
	if err != nil {
		return models.BriefRecord{}, fmt.Errorf("get latest brief: %w", err)
	}
	if model.Valid {
		brief.Model = model.String
	}
	return brief, nil
}

type taskScanner interface {
	Scan(dest ...any) error
}

func scanTask(sc taskScanner) (models.StrategyTask, error) {
	var task models.StrategyTask
	var category, status string
	var suggested sql.NullTime
	var signals []byte
	if err := sc.Scan(&task.ID, &category, &task.Title, &task.Description,
		&task.Reasoning, &task.ImpactScore, &suggested, &task.ExecutionPrompt,
		&signals, &status, &task.CreatedAt); err != nil {
		return models.StrategyTask{}, err
	}
	task.Category = models.TaskCategory(category)
	task.Status = models.TaskStatus(status)
	if suggested.Valid {
		t := suggested.Time
		task.SuggestedDate = &t
	}
	if len(signals) > 0 {
		if err := json.Unmarshal(signals, &task.SourceSignals); err != nil {
			return models.StrategyTask{}, fmt.Errorf("decode source signals: %w", err)
		}
	}
	return task, nil
}
