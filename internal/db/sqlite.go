package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// localSchema mirrors the authoritative store's two tables on-device.
// JSON-valued columns (laps, pomodoro_settings, metadata) are stored as TEXT.
const localSchema = `
CREATE TABLE IF NOT EXISTS timers (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	timer_type TEXT NOT NULL DEFAULT 'stopwatch',
	is_running INTEGER NOT NULL DEFAULT 0,
	elapsed_time INTEGER NOT NULL DEFAULT 0,
	duration INTEGER NOT NULL DEFAULT 0,
	laps TEXT NOT NULL DEFAULT '[]',
	user_id TEXT NOT NULL,
	show_total INTEGER NOT NULL DEFAULT 0,
	first_start_time INTEGER NOT NULL DEFAULT 0,
	start_time INTEGER NOT NULL DEFAULT 0,
	pomodoro_settings TEXT,
	pomodoro_phase TEXT NOT NULL DEFAULT '',
	pomodoro_session_count INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_timers_user ON timers(user_id);

CREATE TABLE IF NOT EXISTS activity_logs (
	id TEXT PRIMARY KEY,
	timer_id TEXT NOT NULL,
	timer_name TEXT NOT NULL DEFAULT '',
	user_id TEXT NOT NULL,
	event_type TEXT NOT NULL,
	timestamp INTEGER NOT NULL,
	elapsed_at_event INTEGER NOT NULL DEFAULT 0,
	session_duration INTEGER,
	previous_value INTEGER,
	new_value INTEGER,
	metadata TEXT
);
CREATE INDEX IF NOT EXISTS idx_activity_user_ts ON activity_logs(user_id, timestamp);
`

// OpenLocal opens (creating if needed) the on-device SQLite mirror. The
// returned handle is meant to be exclusively owned by one adapter instance.
func OpenLocal(path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("%s?_foreign_keys=on&_busy_timeout=8000", path)
	database, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	database.SetMaxOpenConns(1)
	database.SetMaxIdleConns(1)

	if err := database.Ping(); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := database.Exec(localSchema); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("apply local schema: %w", err)
	}

	return database, nil
}
