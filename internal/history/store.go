// Package history keeps a SQLite audit log of tasks that reached a terminal
// state. It does not restore in-memory task state after a restart.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"ytdl-server/internal/models"

	_ "modernc.org/sqlite"
)

const DefaultLimit = 50

type Store struct {
	db *sql.DB
}

// Open creates the database file and its table if needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	// Enable WAL mode and set busy timeout for concurrent job writers
	if _, err := db.Exec(`
		PRAGMA busy_timeout = 5000;
		PRAGMA journal_mode = WAL;
	`); err != nil {
		log.Printf(">>> ⚠️ History: pragma setup failed: %v", err)
	}

	s := &Store{db: db}
	if err := s.initTable(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history table: %w", err)
	}
	return s, nil
}

func (s *Store) initTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS task_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id TEXT NOT NULL,
		url TEXT NOT NULL,
		format TEXT,
		quality TEXT,
		status TEXT NOT NULL,
		download_link TEXT,
		error TEXT,
		duration_ms INTEGER,
		finished_time DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_task_history_finished ON task_history(finished_time);
	`
	_, err := s.db.Exec(query)
	return err
}

func (s *Store) Record(ctx context.Context, e models.HistoryEntry) error {
	query := `INSERT INTO task_history (task_id, url, format, quality, status, download_link, error, duration_ms, finished_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		e.TaskID, e.URL, e.Format, e.Quality, string(e.Status),
		e.DownloadLink, e.Error, e.Duration.Milliseconds(), e.FinishedAt.UTC())
	return err
}

// Recent returns the newest entries first. A non-positive limit means DefaultLimit.
func (s *Store) Recent(ctx context.Context, limit int) ([]models.HistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	query := `SELECT task_id, url, format, quality, status, download_link, error, duration_ms, finished_time
		FROM task_history ORDER BY finished_time DESC, id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.HistoryEntry{}
	for rows.Next() {
		var (
			e          models.HistoryEntry
			status     string
			format     sql.NullString
			quality    sql.NullString
			link       sql.NullString
			errMsg     sql.NullString
			durationMS sql.NullInt64
		)
		if err := rows.Scan(&e.TaskID, &e.URL, &format, &quality, &status, &link, &errMsg, &durationMS, &e.FinishedAt); err != nil {
			return nil, err
		}
		e.Format = format.String
		e.Quality = quality.String
		e.Status = models.Status(status)
		e.DownloadLink = link.String
		e.Error = errMsg.String
		e.Duration = time.Duration(durationMS.Int64) * time.Millisecond
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
