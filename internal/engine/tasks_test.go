package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandsignal/compass/internal/models"
)

var taskNow = time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

// fullCalendar schedules one item per day across the gap horizon so gap
// tasks do not leak into signal-focused tests
func fullCalendar(topic string) []models.CalendarItem {
	items := make([]models.CalendarItem, 0, 8)
	for i := 0; i < 8; i++ {
		items = append(items, models.CalendarItem{
			ID:           "cal-" + string(rune('a'+i)),
			Topic:        topic,
			ScheduledFor: taskNow.AddDate(0, 0, i),
		})
	}
	return items
}

func TestBuildTasks_HighRelevanceRecentUncovered(t *testing.T) {
	in := TaskInputs{
		Signals: []models.TrendSignal{{
			ID:             "s1",
			Topic:          "restaking",
			Title:          "Restaking narrative heats up",
			RelevanceScore: 95,
			ObservedAt:     taskNow.Add(-2 * time.Hour),
		}},
		Calendar: fullCalendar("memes"),
		Now:      taskNow,
	}

	tasks := BuildTasks(in, DefaultThresholds())
	require.Len(t, tasks, 1)

	// 9.5 rounds to 10, +1 recency, +1 no coverage, clamped to 10.
	assert.Equal(t, 10, tasks[0].ImpactScore)
	assert.Equal(t, models.TaskTrendJack, tasks[0].Category)
	assert.Equal(t, models.TaskPending, tasks[0].Status)
	assert.NotEmpty(t, tasks[0].ExecutionPrompt)
}

func TestBuildTasks_CoverageSuppressesBonus(t *testing.T) {
	signal := models.TrendSignal{
		ID:             "s1",
		Topic:          "restaking",
		Title:          "Restaking narrative",
		RelevanceScore: 60,
		ObservedAt:     taskNow.Add(-48 * time.Hour), // stale: no recency bonus
	}

	covered := BuildTasks(TaskInputs{
		Signals:  []models.TrendSignal{signal},
		Calendar: fullCalendar("restaking"),
		Now:      taskNow,
	}, DefaultThresholds())
	require.Len(t, covered, 1)
	assert.Equal(t, 6, covered[0].ImpactScore)

	uncovered := BuildTasks(TaskInputs{
		Signals:  []models.TrendSignal{signal},
		Calendar: fullCalendar("memes"),
		Now:      taskNow,
	}, DefaultThresholds())
	require.Len(t, uncovered, 1)
	assert.Equal(t, 7, uncovered[0].ImpactScore)
}

func TestBuildTasks_ScoreClampedToFloor(t *testing.T) {
	in := TaskInputs{
		Signals: []models.TrendSignal{{
			ID:             "s1",
			Topic:          "noise",
			Title:          "Barely relevant",
			RelevanceScore: 1,
			ObservedAt:     taskNow.AddDate(0, 0, -5),
		}},
		Calendar: fullCalendar("noise"),
		Now:      taskNow,
	}

	tasks := BuildTasks(in, DefaultThresholds())
	require.Len(t, tasks, 1)
	assert.Equal(t, 1, tasks[0].ImpactScore)
}

func TestBuildTasks_OrderingAndTieBreak(t *testing.T) {
	in := TaskInputs{
		Signals: []models.TrendSignal{
			{ID: "older", Topic: "a", Title: "A", RelevanceScore: 80, ObservedAt: taskNow.Add(-3 * time.Hour)},
			{ID: "low", Topic: "b", Title: "B", RelevanceScore: 20, ObservedAt: taskNow.Add(-1 * time.Hour)},
			{ID: "newer", Topic: "c", Title: "C", RelevanceScore: 80, ObservedAt: taskNow.Add(-2 * time.Hour)},
		},
		Calendar: fullCalendar("unrelated"),
		Now:      taskNow,
	}

	tasks := BuildTasks(in, DefaultThresholds())
	require.Len(t, tasks, 3)
	assert.Equal(t, "task-signal-newer", tasks[0].ID) // tie broken by most recent signal
	assert.Equal(t, "task-signal-older", tasks[1].ID)
	assert.Equal(t, "task-signal-low", tasks[2].ID)
}

func TestBuildTasks_Deterministic(t *testing.T) {
	in := TaskInputs{
		Signals: []models.TrendSignal{
			{ID: "s1", Topic: "defi", Title: "DeFi summer", RelevanceScore: 75, Sentiment: 0.4, ObservedAt: taskNow.Add(-5 * time.Hour)},
			{ID: "s2", Topic: "security", Title: "Bridge exploit", RelevanceScore: 88, Sentiment: -0.6, ObservedAt: taskNow.Add(-1 * time.Hour)},
		},
		Calendar:    []models.CalendarItem{{ID: "c1", Topic: "defi", ScheduledFor: taskNow.AddDate(0, 0, 2)}},
		RecentPosts: []models.SocialPost{{ID: "p1", Content: "our best post yet", Likes: 700, Date: taskNow.Add(-6 * time.Hour)}},
		Now:         taskNow,
	}

	first := BuildTasks(in, DefaultThresholds())
	second := BuildTasks(in, DefaultThresholds())
	assert.Equal(t, first, second)
}

func TestBuildTasks_NegativeSentimentBecomesReaction(t *testing.T) {
	in := TaskInputs{
		Signals: []models.TrendSignal{{
			ID:             "s1",
			Topic:          "security",
			Title:          "Exploit rumors",
			RelevanceScore: 90,
			Sentiment:      -0.7,
			ObservedAt:     taskNow.Add(-1 * time.Hour),
		}},
		Calendar: fullCalendar("security"),
		Now:      taskNow,
	}

	tasks := BuildTasks(in, DefaultThresholds())
	require.Len(t, tasks, 1)
	assert.Equal(t, models.TaskReaction, tasks[0].Category)
}

func TestBuildTasks_CalendarGapProducesGapFill(t *testing.T) {
	// Only day 0 is scheduled; days 1-6 are a six-day gap.
	in := TaskInputs{
		Calendar: []models.CalendarItem{{ID: "c1", Topic: "launch", ScheduledFor: taskNow}},
		Now:      taskNow,
	}

	tasks := BuildTasks(in, DefaultThresholds())
	require.Len(t, tasks, 1)
	assert.Equal(t, models.TaskGapFill, tasks[0].Category)
	require.NotNil(t, tasks[0].SuggestedDate)
	assert.Equal(t, taskNow.UTC().Truncate(24*time.Hour).AddDate(0, 0, 1), *tasks[0].SuggestedDate)
}

func TestBuildTasks_HypePostBecomesCampaignIdea(t *testing.T) {
	in := TaskInputs{
		Calendar: fullCalendar("anything"),
		RecentPosts: []models.SocialPost{
			{ID: "p1", Content: "quiet post", Likes: 100, Date: taskNow},
			{ID: "p2", Content: "banger", Likes: 900, Retweets: 200, Date: taskNow},
		},
		Now: taskNow,
	}

	tasks := BuildTasks(in, DefaultThresholds())
	require.Len(t, tasks, 1)
	assert.Equal(t, models.TaskCampaignIdea, tasks[0].Category)
	assert.Equal(t, "task-hype-p2", tasks[0].ID)
}

func TestTransition(t *testing.T) {
	task := models.StrategyTask{ID: "t1", Status: models.TaskPending}

	approved, err := Transition(task, models.TaskApproved)
	require.NoError(t, err)
	assert.Equal(t, models.TaskApproved, approved.Status)

	_, err = Transition(approved, models.TaskDismissed)
	assert.ErrorIs(t, err, ErrTerminalTask)

	_, err = Transition(task, models.TaskPending)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	dismissed, err := Transition(task, models.TaskDismissed)
	require.NoError(t, err)
	assert.Equal(t, models.TaskDismissed, dismissed.Status)
}
