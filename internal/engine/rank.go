package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/brandsignal/compass/internal/models"
)

// SortField selects the key the content ranker orders by
type SortField string

const (
	SortByEngagement  SortField = "engagement"
	SortByImpressions SortField = "impressions"
	SortByRate        SortField = "rate"
	SortByDate        SortField = "date"
)

// ParseSortField validates a caller-supplied sort field name
func ParseSortField(s string) (SortField, error) {
	switch SortField(s) {
	case SortByEngagement, SortByImpressions, SortByRate, SortByDate:
		return SortField(s), nil
	case "":
		return SortByEngagement, nil
	}
	return "", fmt.Errorf("unknown sort field %q", s)
}

// RankContent runs the full pipeline: merge -> dedupe -> sort -> cap.
// Sources are merged in argument order, so callers must pass the live feed
// before the historical log to prefer live data on conflict. limit <= 0
// means no cap.
func RankContent(field SortField, ascending bool, limit int, sources ...[]models.ContentRow) []models.ContentRow {
	merged := MergeRows(sources...)
	deduped := DedupeRows(merged)
	sorted := SortRows(deduped, field, ascending)
	return CapRows(sorted, limit)
}

// MergeRows concatenates sources into a new slice, preserving order
func MergeRows(sources ...[]models.ContentRow) []models.ContentRow {
	var total int
	for _, s := range sources {
		total += len(s)
	}
	merged := make([]models.ContentRow, 0, total)
	for _, s := range sources {
		merged = append(merged, s...)
	}
	return merged
}

// DedupeRows removes duplicates by a two-key rule: same ID or same
// normalized content text. The first occurrence wins, which makes source
// order the precedence rule for conflicting duplicates.
func DedupeRows(rows []models.ContentRow) []models.ContentRow {
	seenID := make(map[string]bool, len(rows))
	seenContent := make(map[string]bool, len(rows))
	out := make([]models.ContentRow, 0, len(rows))
	for _, row := range rows {
		key := normalizeContent(row.Content)
		if row.ID != "" && seenID[row.ID] {
			continue
		}
		if key != "" && seenContent[key] {
			continue
		}
		if row.ID != "" {
			seenID[row.ID] = true
		}
		if key != "" {
			seenContent[key] = true
		}
		out = append(out, row)
	}
	return out
}

// SortRows returns a new slice ordered by the given field, descending by
// default. Ascending flips the comparator only; ties keep their input order
// in both modes.
func SortRows(rows []models.ContentRow, field SortField, ascending bool) []models.ContentRow {
	sorted := make([]models.ContentRow, len(rows))
	copy(sorted, rows)
	key := sortKey(field)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := key(sorted[i]), key(sorted[j])
		if ascending {
			return a < b
		}
		return a > b
	})
	return sorted
}

// CapRows truncates to the first limit rows; limit <= 0 means no cap
func CapRows(rows []models.ContentRow, limit int) []models.ContentRow {
	if limit <= 0 || len(rows) <= limit {
		return rows
	}
	return rows[:limit]
}

func sortKey(field SortField) func(models.ContentRow) float64 {
	switch field {
	case SortByImpressions:
		return func(r models.ContentRow) float64 { return float64(r.Impressions) }
	case SortByRate:
		return func(r models.ContentRow) float64 { return r.Rate }
	case SortByDate:
		return func(r models.ContentRow) float64 {
			if r.Date == nil {
				return float64(time.Time{}.UnixNano())
			}
			return float64(r.Date.UnixNano())
		}
	default:
		return func(r models.ContentRow) float64 { return float64(r.Engagement) }
	}
}

// normalizeContent collapses case and whitespace so trivially reformatted
// copies of the same text match during dedupe
func normalizeContent(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
