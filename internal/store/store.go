// Package store keeps privacy-conscious site metrics in sqlite: hashed
// visitor hits and aggregate chat exchange outcomes. It never stores the
// text of questions or answers.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const timeLayout = "2006-01-02 15:04:05"

// VisitorRetention is how long visitor rows are kept.
const VisitorRetention = 365 * 24 * time.Hour

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// VisitorMetric is one tracked page view.
type VisitorMetric struct {
	ID        int64     `json:"id"`
	HashedIP  string    `json:"hashed_ip"`
	UserAgent string    `json:"user_agent"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

// Outcome of a chat exchange as seen by the server.
type Outcome string

const (
	OutcomeAnswered Outcome = "answered"
	OutcomeFailed   Outcome = "failed"
	OutcomeRejected Outcome = "rejected"
)

// Exchange is the aggregate record of one /api/ask call.
type Exchange struct {
	ID          int64         `json:"id"`
	Provider    string        `json:"provider"`
	Model       string        `json:"model"`
	Outcome     Outcome       `json:"outcome"`
	StatusCode  int           `json:"status_code"`
	Latency     time.Duration `json:"-"`
	QuestionLen int           `json:"question_len"`
	CreatedAt   time.Time     `json:"created_at"`
}

// MarshalJSON reports latency in milliseconds, like the latency_ms column.
func (e Exchange) MarshalJSON() ([]byte, error) {
	type exchange Exchange
	return json.Marshal(struct {
		exchange
		LatencyMs int64 `json:"latency_ms"`
	}{exchange(e), e.Latency.Milliseconds()})
}

type Stats struct {
	TotalVisitors    int64 `json:"total_visitors"`
	UniqueVisitors   int64 `json:"unique_visitors"`
	VisitorsToday    int64 `json:"visitors_today"`
	VisitorsThisWeek int64 `json:"visitors_this_week"`
	TotalExchanges   int64 `json:"total_exchanges"`
	// FailedExchanges counts provider failures; RejectedExchanges counts
	// questions refused before reaching the provider (bad input, rate limit).
	FailedExchanges   int64           `json:"failed_exchanges"`
	RejectedExchanges int64           `json:"rejected_exchanges"`
	AvgLatencyMs      float64         `json:"avg_latency_ms"`
	RecentVisitors    []VisitorMetric `json:"recent_visitors"`
	RecentExchanges   []Exchange      `json:"recent_exchanges"`
}

// Open opens (creating if needed) the sqlite database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS visitors (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			hashed_ip TEXT NOT NULL,
			user_agent TEXT,
			path TEXT,
			timestamp TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_visitors_timestamp ON visitors(timestamp)`,
		`CREATE TABLE IF NOT EXISTS exchanges (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			provider TEXT NOT NULL,
			model TEXT,
			outcome TEXT NOT NULL,
			status_code INTEGER NOT NULL,
			latency_ms INTEGER NOT NULL,
			question_len INTEGER NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_exchanges_created_at ON exchanges(created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) stamp(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func (s *Store) RecordVisit(ctx context.Context, hashedIP, userAgent, path string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO visitors (hashed_ip, user_agent, path, timestamp) VALUES (?, ?, ?, ?)`,
		hashedIP, userAgent, path, s.stamp(s.now()))
	if err != nil {
		return fmt.Errorf("record visit: %w", err)
	}
	return nil
}

func (s *Store) RecordExchange(ctx context.Context, e Exchange) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO exchanges (provider, model, outcome, status_code, latency_ms, question_len, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Provider, e.Model, string(e.Outcome), e.StatusCode, e.Latency.Milliseconds(), e.QuestionLen, s.stamp(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("record exchange: %w", err)
	}
	return nil
}

// CleanupOldVisitors deletes visitor rows older than VisitorRetention.
func (s *Store) CleanupOldVisitors(ctx context.Context) (int64, error) {
	cutoff := s.stamp(s.now().Add(-VisitorRetention))
	result, err := s.db.ExecContext(ctx, `DELETE FROM visitors WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup visitors: %w", err)
	}
	return result.RowsAffected()
}

// Stats gathers the admin dashboard numbers.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	now := s.now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	counts := []struct {
		dst   *int64
		query string
		args  []any
	}{
		{&stats.TotalVisitors, `SELECT COUNT(*) FROM visitors`, nil},
		{&stats.UniqueVisitors, `SELECT COUNT(DISTINCT hashed_ip) FROM visitors`, nil},
		{&stats.VisitorsToday, `SELECT COUNT(*) FROM visitors WHERE timestamp >= ?`, []any{s.stamp(midnight)}},
		{&stats.VisitorsThisWeek, `SELECT COUNT(*) FROM visitors WHERE timestamp >= ?`, []any{s.stamp(now.Add(-7 * 24 * time.Hour))}},
		{&stats.TotalExchanges, `SELECT COUNT(*) FROM exchanges`, nil},
		{&stats.FailedExchanges, `SELECT COUNT(*) FROM exchanges WHERE outcome = ?`, []any{string(OutcomeFailed)}},
		{&stats.RejectedExchanges, `SELECT COUNT(*) FROM exchanges WHERE outcome = ?`, []any{string(OutcomeRejected)}},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query, c.args...).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("stats: %w", err)
		}
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(AVG(latency_ms), 0) FROM exchanges WHERE outcome = ?`, string(OutcomeAnswered),
	).Scan(&stats.AvgLatencyMs); err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}

	var err error
	if stats.RecentVisitors, err = s.RecentVisitors(ctx, 50); err != nil {
		return nil, err
	}
	if stats.RecentExchanges, err = s.RecentExchanges(ctx, 50); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Store) RecentVisitors(ctx context.Context, limit int) ([]VisitorMetric, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, hashed_ip, COALESCE(user_agent, ''), COALESCE(path, ''), timestamp
		FROM visitors
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent visitors: %w", err)
	}
	defer rows.Close()

	var visitors []VisitorMetric
	for rows.Next() {
		var (
			v  VisitorMetric
			ts string
		)
		if err := rows.Scan(&v.ID, &v.HashedIP, &v.UserAgent, &v.Path, &ts); err != nil {
			return nil, fmt.Errorf("scan visitor: %w", err)
		}
		v.Timestamp, _ = time.Parse(timeLayout, ts)
		visitors = append(visitors, v)
	}
	return visitors, rows.Err()
}

func (s *Store) RecentExchanges(ctx context.Context, limit int) ([]Exchange, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, provider, COALESCE(model, ''), outcome, status_code, latency_ms, question_len, created_at
		FROM exchanges
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent exchanges: %w", err)
	}
	defer rows.Close()

	var exchanges []Exchange
	for rows.Next() {
		var (
			e         Exchange
			outcome   string
			latencyMs int64
			ts        string
		)
		if err := rows.Scan(&e.ID, &e.Provider, &e.Model, &outcome, &e.StatusCode, &latencyMs, &e.QuestionLen, &ts); err != nil {
			return nil, fmt.Errorf("scan exchange: %w", err)
		}
		e.Outcome = Outcome(outcome)
		e.Latency = time.Duration(latencyMs) * time.Millisecond
		e.CreatedAt, _ = time.Parse(timeLayout, ts)
		exchanges = append(exchanges, e)
	}
	return exchanges, rows.Err()
}
