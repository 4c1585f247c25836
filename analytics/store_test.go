package analytics

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "analytics", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreSettings(t *testing.T) {
	s := newTestStore(t)

	v, err := s.GetSetting("missing")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, s.SetSetting("k", "one"))
	require.NoError(t, s.SetSetting("k", "two"))
	v, err = s.GetSetting("k")
	require.NoError(t, err)
	assert.Equal(t, "two", v)

	v, err = s.GetSetting("schema_version")
	require.NoError(t, err)
	assert.Equal(t, "1", v)
}

func TestStoreRejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s.SetSetting("schema_version", "99"))
	require.NoError(t, s.Close())

	_, err = NewStore(path)
	assert.Error(t, err)
}

func TestStoreStats(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()

	visits := []Visit{
		{VisitorID: "a", Browser: "Firefox", Path: "/blog/", Referrer: "Direct", Status: 200, Timestamp: now},
		{VisitorID: "a", Browser: "Firefox", Path: "/blog/hello/", Referrer: "Direct", Status: 200, Timestamp: now},
		{VisitorID: "b", Browser: "Chrome", Path: "/blog/hello/", Referrer: "Google", Status: 200, Timestamp: now},
		{VisitorID: "c", Browser: "Chrome", Path: "/blog/missing/", Referrer: "Direct", Status: 404, Timestamp: now},
		{VisitorID: "d", Browser: "Chrome", Path: "/blog/old/", Referrer: "Direct", Status: 200, Timestamp: now.AddDate(0, 0, -30)},
	}
	for i := range visits {
		require.NoError(t, s.SaveVisit(&visits[i]))
	}
	require.NoError(t, s.SaveBotVisit(&BotVisit{BotName: "Googlebot", Path: "/blog/", Timestamp: now}))

	stats, err := s.GetStats(now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalViews)
	assert.Equal(t, 2, stats.UniqueVisitors)
	assert.Equal(t, 1, stats.NotFoundViews)
	assert.Equal(t, 1, stats.BotVisits)
	require.NotEmpty(t, stats.TopPages)
	assert.Equal(t, PageStat{Path: "/blog/hello/", Views: 2}, stats.TopPages[0])
	assert.Equal(t, []DimensionStat{{Name: "Firefox", Count: 2}, {Name: "Chrome", Count: 1}}, stats.BrowserStats)
	assert.Equal(t, []DimensionStat{{Name: "Googlebot", Count: 1}}, stats.TopBots)
	require.Len(t, stats.DailyViews, 1)
	assert.Equal(t, 3, stats.DailyViews[0].Views)

	n, err := s.GetRealtimeVisitors()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestStoreCleanupOldVisits(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()

	require.NoError(t, s.SaveVisit(&Visit{VisitorID: "old", Path: "/blog/", Status: 200, Timestamp: now.AddDate(-2, 0, 0)}))
	require.NoError(t, s.SaveVisit(&Visit{VisitorID: "new", Path: "/blog/", Status: 200, Timestamp: now}))
	require.NoError(t, s.SaveBotVisit(&BotVisit{BotName: "Bingbot", Path: "/", Timestamp: now.AddDate(-2, 0, 0)}))

	require.NoError(t, s.CleanupOldVisits(365))

	stats, err := s.GetStats(now.AddDate(-3, 0, 0), now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalViews)
	assert.Zero(t, stats.BotVisits)
}

func TestStorePragmasOnEveryConnection(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	conns := make([]*sql.Conn, 3)
	for i := range conns {
		conn, err := s.db.Conn(ctx)
		require.NoError(t, err)
		t.Cleanup(func() { conn.Close() })
		conns[i] = conn
	}

	for i, conn := range conns {
		var timeout int
		require.NoError(t, conn.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout))
		assert.Equal(t, 5000, timeout, "connection %d", i)

		var mode string
		require.NoError(t, conn.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode))
		assert.Equal(t, "wal", mode, "connection %d", i)
	}
}
