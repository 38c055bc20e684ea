package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, now time.Time) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	s.now = func() time.Time { return now }
	return s
}

func TestStore_VisitorStats(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	s := openTestStore(t, now)

	require.NoError(t, s.RecordVisit(ctx, "aaaa", "curl", "/"))
	require.NoError(t, s.RecordVisit(ctx, "aaaa", "curl", "/work-content"))
	require.NoError(t, s.RecordVisit(ctx, "bbbb", "firefox", "/"))

	s.now = func() time.Time { return now.Add(-3 * 24 * time.Hour) }
	require.NoError(t, s.RecordVisit(ctx, "cccc", "safari", "/"))
	s.now = func() time.Time { return now.Add(-30 * 24 * time.Hour) }
	require.NoError(t, s.RecordVisit(ctx, "cccc", "safari", "/"))
	s.now = func() time.Time { return now }

	stats, err := s.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(5), stats.TotalVisitors)
	assert.Equal(t, int64(3), stats.UniqueVisitors)
	assert.Equal(t, int64(3), stats.VisitorsToday)
	assert.Equal(t, int64(4), stats.VisitorsThisWeek)
	require.Len(t, stats.RecentVisitors, 5)
	assert.Equal(t, "bbbb", stats.RecentVisitors[0].HashedIP)
	assert.True(t, now.Equal(stats.RecentVisitors[0].Timestamp))
}

func TestStore_ExchangeStats(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC))

	require.NoError(t, s.RecordExchange(ctx, Exchange{Provider: "mock", Outcome: OutcomeAnswered, StatusCode: 200, Latency: 100 * time.Millisecond, QuestionLen: 12}))
	require.NoError(t, s.RecordExchange(ctx, Exchange{Provider: "mock", Outcome: OutcomeAnswered, StatusCode: 200, Latency: 300 * time.Millisecond, QuestionLen: 5}))
	require.NoError(t, s.RecordExchange(ctx, Exchange{Provider: "mock", Outcome: OutcomeFailed, StatusCode: 502, Latency: time.Second}))
	require.NoError(t, s.RecordExchange(ctx, Exchange{Provider: "mock", Outcome: OutcomeRejected, StatusCode: 400}))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(4), stats.TotalExchanges)
	assert.Equal(t, int64(1), stats.FailedExchanges)
	assert.Equal(t, int64(1), stats.RejectedExchanges)
	assert.InDelta(t, 200.0, stats.AvgLatencyMs, 0.001)
	require.Len(t, stats.RecentExchanges, 4)
	assert.Equal(t, OutcomeRejected, stats.RecentExchanges[0].Outcome)
	assert.Equal(t, 12, stats.RecentExchanges[3].QuestionLen)
	assert.Equal(t, 100*time.Millisecond, stats.RecentExchanges[3].Latency)
}

func TestExchange_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(Exchange{ID: 7, Provider: "mock", Outcome: OutcomeAnswered, StatusCode: 200, Latency: 1500 * time.Millisecond})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, float64(1500), got["latency_ms"])
	assert.NotContains(t, got, "latency")
	assert.Equal(t, "answered", got["outcome"])
	assert.Equal(t, float64(7), got["id"])
}

func TestStore_CleanupOldVisitors(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	s := openTestStore(t, now.Add(-400*24*time.Hour))
	require.NoError(t, s.RecordVisit(ctx, "old", "", "/"))

	s.now = func() time.Time { return now }
	require.NoError(t, s.RecordVisit(ctx, "new", "", "/"))

	deleted, err := s.CleanupOldVisitors(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	visitors, err := s.RecentVisitors(ctx, 10)
	require.NoError(t, err)
	require.Len(t, visitors, 1)
	assert.Equal(t, "new", visitors[0].HashedIP)
}

func TestStore_EmptyStats(t *testing.T) {
	s := openTestStore(t, time.Now())
	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalExchanges)
	assert.Zero(t, stats.AvgLatencyMs)
	assert.Empty(t, stats.RecentVisitors)
}
