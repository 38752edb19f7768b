package recorder

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists run history to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *zap.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger *zap.Logger) (*SQLiteRecorder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets dashboards read while the service writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS refresh_runs (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			trig        TEXT,
			candidates  INTEGER,
			row_count   INTEGER,
			dropped     INTEGER,
			duration_ms INTEGER,
			generation  INTEGER,
			error       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_refresh_ts ON refresh_runs(timestamp)`,

		`CREATE TABLE IF NOT EXISTS filter_runs (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp    INTEGER NOT NULL,
			condition_id INTEGER,
			rsi_floor    REAL,
			monthly_min  INTEGER,
			matched      INTEGER,
			generation   INTEGER,
			error        TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_filter_ts ON filter_runs(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordRefresh(run *RefreshRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO refresh_runs
		(timestamp, trig, candidates, row_count, dropped, duration_ms, generation, error)
		VALUES (?,?,?,?,?,?,?,?)`,
		unixOrNow(run.StartedAt), run.Trigger, run.Candidates, run.Rows, run.Dropped,
		run.Duration.Milliseconds(), int64(run.Generation), run.Err,
	)
	return err
}

func (r *SQLiteRecorder) RecordFilter(run *FilterRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO filter_runs
		(timestamp, condition_id, rsi_floor, monthly_min, matched, generation, error)
		VALUES (?,?,?,?,?,?,?)`,
		unixOrNow(run.At), run.ConditionID, run.RSIFloor, run.MonthlyMin,
		run.Matched, int64(run.Generation), run.Err,
	)
	return err
}

// RecentRefreshes returns the latest refresh runs, newest first.
func (r *SQLiteRecorder) RecentRefreshes(limit int) ([]RefreshRun, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.Query(`SELECT timestamp, trig, candidates, row_count, dropped, duration_ms, generation, error
		FROM refresh_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RefreshRun
	for rows.Next() {
		var (
			ts, durMs, gen int64
			run            RefreshRun
		)
		if err := rows.Scan(&ts, &run.Trigger, &run.Candidates, &run.Rows, &run.Dropped, &durMs, &gen, &run.Err); err != nil {
			return nil, err
		}
		run.StartedAt = time.Unix(ts, 0)
		run.Duration = time.Duration(durMs) * time.Millisecond
		run.Generation = uint64(gen)
		out = append(out, run)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info("closing sqlite recorder")
	return r.db.Close()
}

func unixOrNow(t time.Time) int64 {
	if t.IsZero() {
		return time.Now().Unix()
	}
	return t.Unix()
}
