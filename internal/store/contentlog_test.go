package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentLogHistory(t *testing.T) {
	db, mock := setupMockDB(t)
	c := NewContentLog(db)

	postedAt := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"post_id", "content", "platform", "impressions", "likes", "retweets",
		"comments", "engagement_rate", "posted_at", "url", "media_url",
	}).AddRow("p1", "gm frens", "twitter", int64(5000), int64(90), int64(40), int64(20), 3.0, postedAt, "", "")
	mock.ExpectQuery("SELECT post_id, content, platform").
		WithArgs("brand-1", 200).
		WillReturnRows(rows)

	out, err := c.History(context.Background(), "brand-1", 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, int64(150), out[0].Engagement) // likes + retweets + comments
	require.NotNil(t, out[0].Date)
	assert.Equal(t, postedAt, *out[0].Date)
}

func TestContentLogRecordsQueryMetrics(t *testing.T) {
	db, mock := setupMockDB(t)
	m := testMetrics()
	c := NewContentLog(db).WithMetrics(m)

	mock.ExpectQuery("SELECT post_id, content, platform").
		WithArgs("brand-1", 200).
		WillReturnRows(sqlmock.NewRows([]string{
			"post_id", "content", "platform", "impressions", "likes", "retweets",
			"comments", "engagement_rate", "posted_at", "url", "media_url",
		}))
	_, err := c.History(context.Background(), "brand-1", 0)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, testutil.ToFloat64(m.ClickHouseQueries.WithLabelValues("content_log", "success")), 1e-9)
	assert.Equal(t, 1, testutil.CollectAndCount(m.DBDuration)) // one series: database="clickhouse"
}

func TestContentLogWalletActivity(t *testing.T) {
	db, mock := setupMockDB(t)
	c := NewContentLog(db)

	since := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"address", "first_active", "last_active", "volume"}).
		AddRow("0xa", since.AddDate(0, 0, 3), since.AddDate(0, 0, 20), 15000.0)
	mock.ExpectQuery("SELECT address, min").
		WithArgs("brand-1", since).
		WillReturnRows(rows)

	out, err := c.WalletActivity(context.Background(), "brand-1", since)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "0xa", out[0].Address)
	assert.InDelta(t, 15000.0, out[0].Volume, 1e-9)
}
