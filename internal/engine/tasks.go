package engine

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/brandsignal/compass/internal/models"
)

// ErrTerminalTask is returned when a transition is attempted on a task
// already in a terminal state. Terminal tasks only change via a full
// regeneration pass that replaces the task list wholesale.
var ErrTerminalTask = errors.New("task is in a terminal state")

// ErrInvalidTransition is returned for transitions outside the
// pending -> approved|dismissed state machine.
var ErrInvalidTransition = errors.New("invalid task transition")

// TaskInputs is the snapshot of market signals the scorer turns into tasks
type TaskInputs struct {
	Signals     []models.TrendSignal
	Calendar    []models.CalendarItem
	RecentPosts []models.SocialPost
	Now         time.Time
}

// BuildTasks converts market signals into a prioritized StrategyTask list.
// Scoring is deterministic: base = round(relevance/10), +1 for signals
// fresher than the recency window, +1 for signals with no calendar coverage
// in the same topic window, clamped to [1,10]. Tasks are ordered by impact
// descending with ties broken by most-recent signal first. The returned
// list replaces any previous generation wholesale.
func BuildTasks(in TaskInputs, th Thresholds) []models.StrategyTask {
	type scored struct {
		task       models.StrategyTask
		signalTime time.Time
	}
	var out []scored

	for _, sig := range in.Signals {
		covered := topicCovered(sig.Topic, in.Calendar, in.Now, th.CoverageWindow)
		score := int(roundHalfUp(float64(sig.RelevanceScore) / 10))
		if in.Now.Sub(sig.ObservedAt) < th.RecencyWindow {
			score++
		}
		if !covered {
			score++
		}
		score = clampScore(score)

		task := signalTask(sig, covered, score, th)
		out = append(out, scored{task: task, signalTime: sig.ObservedAt})
	}

	for _, gap := range calendarGaps(in.Calendar, in.Now, th.GapHorizonDays) {
		task := gapTask(gap, in.Now)
		out = append(out, scored{task: task, signalTime: in.Now})
	}

	for _, post := range in.RecentPosts {
		if post.Engagement() <= th.HypeEngagement {
			continue
		}
		task := hypeTask(post, th)
		out = append(out, scored{task: task, signalTime: post.Date})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].task.ImpactScore != out[j].task.ImpactScore {
			return out[i].task.ImpactScore > out[j].task.ImpactScore
		}
		return out[i].signalTime.After(out[j].signalTime)
	})

	tasks := make([]models.StrategyTask, 0, len(out))
	for _, s := range out {
		tasks = append(tasks, s.task)
	}
	return tasks
}

// Transition applies user feedback to a task. Only pending tasks move, and
// only to approved or dismissed.
func Transition(task models.StrategyTask, to models.TaskStatus) (models.StrategyTask, error) {
	if task.Status != models.TaskPending {
		return task, ErrTerminalTask
	}
	if to != models.TaskApproved && to != models.TaskDismissed {
		return task, ErrInvalidTransition
	}
	task.Status = to
	return task, nil
}

func signalTask(sig models.TrendSignal, covered bool, score int, th Thresholds) models.StrategyTask {
	category := models.TaskCommunity
	switch {
	case sig.Sentiment < -0.2:
		category = models.TaskReaction
	case !covered:
		category = models.TaskTrendJack
	case sig.Interactions > th.HypeEngagement:
		category = models.TaskReply
	}

	reasoning := fmt.Sprintf("Relevance %d/100, sentiment %.2f, observed %s.",
		sig.RelevanceScore, sig.Sentiment, sig.ObservedAt.Format(time.RFC3339))
	if !covered {
		reasoning += " No calendar coverage on this topic."
	}

	return models.StrategyTask{
		ID:              "task-signal-" + sig.ID,
		Category:        category,
		Title:           fmt.Sprintf("%s: %s", categoryVerb(category), sig.Title),
		Description:     fmt.Sprintf("Respond to the %q narrative reported by %s.", sig.Topic, sig.Source),
		Reasoning:       reasoning,
		ImpactScore:     score,
		ExecutionPrompt: executionPrompt(category, sig.Topic, sig.Title),
		SourceSignals:   []string{sig.ID},
		Status:          models.TaskPending,
	}
}

type gap struct {
	start time.Time
	days  int
}

// calendarGaps scans the horizon for runs of days with nothing scheduled
func calendarGaps(calendar []models.CalendarItem, now time.Time, horizonDays int) []gap {
	scheduled := make(map[string]bool, len(calendar))
	for _, item := range calendar {
		scheduled[item.ScheduledFor.UTC().Format("2006-01-02")] = true
	}

	var gaps []gap
	var current *gap
	day := now.UTC().Truncate(24 * time.Hour)
	for i := 0; i < horizonDays; i++ {
		d := day.AddDate(0, 0, i)
		if scheduled[d.Format("2006-01-02")] {
			if current != nil {
				gaps = append(gaps, *current)
				current = nil
			}
			continue
		}
		if current == nil {
			current = &gap{start: d}
		}
		current.days++
	}
	if current != nil {
		gaps = append(gaps, *current)
	}
	return gaps
}

func gapTask(g gap, now time.Time) models.StrategyTask {
	// Gaps are scored through the same formula as signals, with a
	// synthetic relevance that grows with gap length and the no-coverage
	// bonus applied by construction.
	relevance := 40 + 10*g.days
	if relevance > 100 {
		relevance = 100
	}
	score := clampScore(int(roundHalfUp(float64(relevance)/10)) + 1)

	suggested := g.start
	return models.StrategyTask{
		ID:          "task-gap-" + g.start.Format("2006-01-02"),
		Category:    models.TaskGapFill,
		Title:       fmt.Sprintf("Fill %d-day calendar gap starting %s", g.days, g.start.Format("Jan 2")),
		Description: fmt.Sprintf("No content is scheduled for %d day(s) from %s.", g.days, g.start.Format("2006-01-02")),
		Reasoning: fmt.Sprintf("Calendar scan at %s found no scheduled items in this window.",
			now.UTC().Format(time.RFC3339)),
		ImpactScore:     score,
		SuggestedDate:   &suggested,
		ExecutionPrompt: executionPrompt(models.TaskGapFill, "calendar gap", g.start.Format("2006-01-02")),
		Status:          models.TaskPending,
	}
}

func hypeTask(post models.SocialPost, th Thresholds) models.StrategyTask {
	// Hype posts map onto the relevance scale via engagement multiples of
	// the hype threshold, so a 2x-threshold post scores higher than one
	// barely over the line.
	relevance := int(float64(post.Engagement()) / float64(th.HypeEngagement) * 50)
	if relevance > 100 {
		relevance = 100
	}
	score := clampScore(int(roundHalfUp(float64(relevance) / 10)))

	return models.StrategyTask{
		ID:          "task-hype-" + post.ID,
		Category:    models.TaskCampaignIdea,
		Title:       "Double down on high-performing post",
		Description: fmt.Sprintf("Post %s pulled %d engagements; turn it into a campaign angle.", post.ID, post.Engagement()),
		Reasoning: fmt.Sprintf("Engagement %d exceeds the hype threshold of %d.",
			post.Engagement(), th.HypeEngagement),
		ImpactScore:     score,
		ExecutionPrompt: executionPrompt(models.TaskCampaignIdea, "winning post", firstWords(post.Content, 12)),
		SourceSignals:   []string{post.ID},
		Status:          models.TaskPending,
	}
}

// executionPrompt is fully determined by category and source signal, so
// identical inputs always produce the identical task list.
func executionPrompt(category models.TaskCategory, topic, subject string) string {
	switch category {
	case models.TaskGapFill:
		return fmt.Sprintf("Draft an on-brand post to fill the open calendar slot on %s.", subject)
	case models.TaskTrendJack:
		return fmt.Sprintf("Draft a timely post connecting our brand to the %q narrative: %s.", topic, subject)
	case models.TaskReaction:
		return fmt.Sprintf("Draft a measured response addressing the negative sentiment around %q: %s.", topic, subject)
	case models.TaskReply:
		return fmt.Sprintf("Draft a reply joining the high-traffic conversation about %q: %s.", topic, subject)
	case models.TaskCampaignIdea:
		return fmt.Sprintf("Outline a campaign concept built on the %s: %q.", topic, subject)
	case models.TaskCommunity:
		return fmt.Sprintf("Draft a community post engaging the %q discussion: %s.", topic, subject)
	default:
		return fmt.Sprintf("Draft an evergreen post about %q.", topic)
	}
}

func categoryVerb(category models.TaskCategory) string {
	switch category {
	case models.TaskTrendJack:
		return "Ride trend"
	case models.TaskReaction:
		return "Respond to"
	case models.TaskReply:
		return "Join conversation"
	default:
		return "Engage"
	}
}

// topicCovered reports whether the calendar already has an item on the same
// topic scheduled within the coverage window around now
func topicCovered(topic string, calendar []models.CalendarItem, now time.Time, window time.Duration) bool {
	want := normalizeContent(topic)
	if want == "" {
		return false
	}
	for _, item := range calendar {
		if normalizeContent(item.Topic) != want {
			continue
		}
		diff := item.ScheduledFor.Sub(now)
		if diff < 0 {
			diff = -diff
		}
		if diff <= window {
			return true
		}
	}
	return false
}

func clampScore(score int) int {
	if score < 1 {
		return 1
	}
	if score > 10 {
		return 10
	}
	return score
}

// roundHalfUp rounds half away from zero, matching how the relevance scale
// is documented (9.5 -> 10)
func roundHalfUp(v float64) float64 {
	if v < 0 {
		return -roundHalfUp(-v)
	}
	return float64(int(v + 0.5))
}

func firstWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + "..."
}
