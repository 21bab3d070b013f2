package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandsignal/compass/internal/models"
)

func TestDedupeRows_ContentMatchFirstWins(t *testing.T) {
	sourceA := []models.ContentRow{{ID: "1", Content: "x"}}
	sourceB := []models.ContentRow{{ID: "2", Content: "x"}}

	out := DedupeRows(MergeRows(sourceA, sourceB))
	require.Len(t, out, 1)
	assert.Equal(t, "1", out[0].ID)
}

func TestDedupeRows_IDMatch(t *testing.T) {
	rows := []models.ContentRow{
		{ID: "1", Content: "live copy", Engagement: 10},
		{ID: "1", Content: "stale copy", Engagement: 3},
		{ID: "2", Content: "other"},
	}

	out := DedupeRows(rows)
	require.Len(t, out, 2)
	assert.Equal(t, "live copy", out[0].Content)
}

func TestDedupeRows_NormalizedContent(t *testing.T) {
	rows := []models.ContentRow{
		{ID: "1", Content: "GM  frens"},
		{ID: "2", Content: "gm frens"},
	}

	out := DedupeRows(rows)
	require.Len(t, out, 1)
	assert.Equal(t, "1", out[0].ID)
}

func TestDedupeRows_Idempotent(t *testing.T) {
	rows := []models.ContentRow{
		{ID: "1", Content: "a"},
		{ID: "2", Content: "b"},
		{ID: "3", Content: "a"},
		{ID: "2", Content: "c"},
	}

	once := DedupeRows(rows)
	twice := DedupeRows(once)
	assert.Equal(t, once, twice)
}

func TestSortRows_StableTies(t *testing.T) {
	rows := []models.ContentRow{
		{ID: "a", Engagement: 100},
		{ID: "b", Engagement: 100},
		{ID: "c", Engagement: 200},
		{ID: "d", Engagement: 100},
	}

	desc := SortRows(rows, SortByEngagement, false)
	assert.Equal(t, []string{"c", "a", "b", "d"}, rowIDs(desc))

	// Ascending flips the comparator only; equal keys keep input order.
	asc := SortRows(rows, SortByEngagement, true)
	assert.Equal(t, []string{"a", "b", "d", "c"}, rowIDs(asc))
}

func TestSortRows_ByDateNilLast(t *testing.T) {
	d1 := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)
	rows := []models.ContentRow{
		{ID: "old", Date: &d1},
		{ID: "undated"},
		{ID: "new", Date: &d2},
	}

	out := SortRows(rows, SortByDate, false)
	assert.Equal(t, []string{"new", "old", "undated"}, rowIDs(out))
}

func TestSortRows_DoesNotMutateInput(t *testing.T) {
	rows := []models.ContentRow{{ID: "b", Rate: 1}, {ID: "a", Rate: 2}}
	_ = SortRows(rows, SortByRate, false)
	assert.Equal(t, "b", rows[0].ID)
}

func TestRankContent_Pipeline(t *testing.T) {
	live := []models.ContentRow{
		{ID: "1", Content: "alpha", Engagement: 50},
		{ID: "2", Content: "beta", Engagement: 300},
	}
	history := []models.ContentRow{
		{ID: "9", Content: "Alpha", Engagement: 40}, // duplicate of live "1" by content
		{ID: "3", Content: "gamma", Engagement: 100},
	}

	out := RankContent(SortByEngagement, false, 2, live, history)
	assert.Equal(t, []string{"2", "3"}, rowIDs(out))
}

func TestRankContent_EmptyInput(t *testing.T) {
	assert.Empty(t, RankContent(SortByEngagement, false, 10))
	assert.Empty(t, RankContent(SortByDate, true, 0, nil, nil))
}

func TestParseSortField(t *testing.T) {
	field, err := ParseSortField("")
	require.NoError(t, err)
	assert.Equal(t, SortByEngagement, field)

	_, err = ParseSortField("likes")
	assert.Error(t, err)
}

func rowIDs(rows []models.ContentRow) []string {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids
}
