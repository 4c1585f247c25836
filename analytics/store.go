package analytics

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"
)

// tsLayout is how timestamps are stored; it sorts lexically and works with
// SQLite's date() function.
const tsLayout = "2006-01-02 15:04:05"

// Store provides database operations for analytics.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the analytics database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create analytics dir: %w", err)
	}
	// Pragmas in the DSN are applied to every pooled connection.
	db, err := sql.Open("sqlite", "file:"+dbPath+
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("open analytics db: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure analytics db: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS visits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			visitor_id TEXT NOT NULL,
			ip_hash TEXT NOT NULL,
			browser TEXT NOT NULL,
			os TEXT NOT NULL,
			device TEXT NOT NULL,
			path TEXT NOT NULL,
			referrer TEXT NOT NULL DEFAULT '',
			status INTEGER NOT NULL DEFAULT 200,
			timestamp TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS bot_visits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			bot_name TEXT NOT NULL,
			ip_hash TEXT NOT NULL,
			user_agent TEXT NOT NULL,
			path TEXT NOT NULL,
			timestamp TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_visits_timestamp ON visits(timestamp);
		CREATE INDEX IF NOT EXISTS idx_visits_visitor_id ON visits(visitor_id);
		CREATE INDEX IF NOT EXISTS idx_visits_path ON visits(path);
		CREATE INDEX IF NOT EXISTS idx_bot_visits_timestamp ON bot_visits(timestamp);

		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	return err
}

// currentSchemaVersion is the latest schema version. Increment when adding migrations.
const currentSchemaVersion = 1

// migrate applies incremental schema migrations based on a version stored in the settings table.
func (s *Store) migrate() error {
	verStr, err := s.GetSetting("schema_version")
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	version := 0
	if verStr != "" {
		version, err = strconv.Atoi(verStr)
		if err != nil {
			return fmt.Errorf("parse schema version %q: %w", verStr, err)
		}
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("schema version %d is newer than supported %d", version, currentSchemaVersion)
	}

	return s.SetSetting("schema_version", strconv.Itoa(currentSchemaVersion))
}

// GetSetting retrieves a setting value by key. Returns empty string if not found.
func (s *Store) GetSetting(key string) (string, error) {
	var val string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return val, err
}

// SetSetting stores a setting value by key (upsert).
func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(`INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// SaveVisit stores a new visit in the database.
func (s *Store) SaveVisit(v *Visit) error {
	_, err := s.db.Exec(`INSERT INTO visits (visitor_id, ip_hash, browser, os, device, path, referrer, status, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.VisitorID, v.IPHash, v.Browser, v.OS, v.Device, v.Path, v.Referrer, v.Status, v.Timestamp.UTC().Format(tsLayout))
	return err
}

// SaveBotVisit stores a new bot visit in the database.
func (s *Store) SaveBotVisit(bv *BotVisit) error {
	_, err := s.db.Exec(`INSERT INTO bot_visits (bot_name, ip_hash, user_agent, path, timestamp) VALUES (?, ?, ?, ?, ?)`,
		bv.BotName, bv.IPHash, bv.UserAgent, bv.Path, bv.Timestamp.UTC().Format(tsLayout))
	return err
}

// GetStats returns aggregated statistics for visits in [from, to).
func (s *Store) GetStats(from, to time.Time) (*Stats, error) {
	f, t := from.UTC().Format(tsLayout), to.UTC().Format(tsLayout)
	stats := &Stats{
		Period:        from.Format("2006-01-02") + " to " + to.Format("2006-01-02"),
		TopPages:      []PageStat{},
		BrowserStats:  []DimensionStat{},
		ReferrerStats: []DimensionStat{},
		DailyViews:    []DailyView{},
		TopBots:       []DimensionStat{},
	}

	if err := s.db.QueryRow(`SELECT COUNT(*), COUNT(DISTINCT visitor_id) FROM visits
		WHERE timestamp >= ? AND timestamp < ? AND status < 400`, f, t).
		Scan(&stats.TotalViews, &stats.UniqueVisitors); err != nil {
		return nil, fmt.Errorf("count views: %w", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM visits
		WHERE timestamp >= ? AND timestamp < ? AND status = 404`, f, t).
		Scan(&stats.NotFoundViews); err != nil {
		return nil, fmt.Errorf("count not found: %w", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM bot_visits
		WHERE timestamp >= ? AND timestamp < ?`, f, t).
		Scan(&stats.BotVisits); err != nil {
		return nil, fmt.Errorf("count bot visits: %w", err)
	}

	rows, err := s.db.Query(`SELECT path, COUNT(*) AS views FROM visits
		WHERE timestamp >= ? AND timestamp < ? AND status < 400
		GROUP BY path ORDER BY views DESC, path LIMIT 10`, f, t)
	if err != nil {
		return nil, fmt.Errorf("top pages: %w", err)
	}
	for rows.Next() {
		var p PageStat
		if err := rows.Scan(&p.Path, &p.Views); err != nil {
			rows.Close()
			return nil, fmt.Errorf("top pages: %w", err)
		}
		stats.TopPages = append(stats.TopPages, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("top pages: %w", err)
	}

	if stats.BrowserStats, err = s.dimension(`SELECT browser, COUNT(*) AS n FROM visits
		WHERE timestamp >= ? AND timestamp < ? AND status < 400
		GROUP BY browser ORDER BY n DESC, browser`, f, t); err != nil {
		return nil, fmt.Errorf("browsers: %w", err)
	}
	if stats.ReferrerStats, err = s.dimension(`SELECT referrer, COUNT(*) AS n FROM visits
		WHERE timestamp >= ? AND timestamp < ? AND status < 400
		GROUP BY referrer ORDER BY n DESC, referrer LIMIT 10`, f, t); err != nil {
		return nil, fmt.Errorf("referrers: %w", err)
	}
	if stats.TopBots, err = s.dimension(`SELECT bot_name, COUNT(*) AS n FROM bot_visits
		WHERE timestamp >= ? AND timestamp < ?
		GROUP BY bot_name ORDER BY n DESC, bot_name LIMIT 10`, f, t); err != nil {
		return nil, fmt.Errorf("top bots: %w", err)
	}

	rows, err = s.db.Query(`SELECT date(timestamp) AS day, COUNT(*) FROM visits
		WHERE timestamp >= ? AND timestamp < ? AND status < 400
		GROUP BY day ORDER BY day`, f, t)
	if err != nil {
		return nil, fmt.Errorf("daily views: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var d DailyView
		if err := rows.Scan(&d.Date, &d.Views); err != nil {
			return nil, fmt.Errorf("daily views: %w", err)
		}
		stats.DailyViews = append(stats.DailyViews, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("daily views: %w", err)
	}

	return stats, nil
}

func (s *Store) dimension(query string, args ...any) ([]DimensionStat, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []DimensionStat{}
	for rows.Next() {
		var d DimensionStat
		if err := rows.Scan(&d.Name, &d.Count); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// CleanupOldVisits removes visits and bot visits older than the retention period.
func (s *Store) CleanupOldVisits(retentionDays int) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).Format(tsLayout)
	if _, err := s.db.Exec(`DELETE FROM visits WHERE timestamp < ?`, cutoff); err != nil {
		return fmt.Errorf("cleanup visits: %w", err)
	}
	if _, err := s.db.Exec(`DELETE FROM bot_visits WHERE timestamp < ?`, cutoff); err != nil {
		return fmt.Errorf("cleanup bot_visits: %w", err)
	}
	return nil
}

// StartCleanupScheduler runs periodic cleanup of old data. Returns a stop function.
func (s *Store) StartCleanupScheduler(retentionDays int, interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := s.CleanupOldVisits(retentionDays); err != nil {
					log.Printf("analytics: cleanup error: %v", err)
				}
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	return func() { close(done) }
}

// GetRealtimeVisitors returns the number of unique visitors in the last 5 minutes.
func (s *Store) GetRealtimeVisitors() (int, error) {
	cutoff := time.Now().UTC().Add(-5 * time.Minute).Format(tsLayout)
	var n int
	err := s.db.QueryRow(`SELECT COUNT(DISTINCT visitor_id) FROM visits WHERE timestamp >= ?`, cutoff).Scan(&n)
	return n, err
}
