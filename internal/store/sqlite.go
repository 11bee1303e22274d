package store

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/atikulmunna/dlcount/internal/model"
)

// SQLite keeps events and counts in a single sqlite database file.
type SQLite struct {
	path string
	db   *sql.DB
}

// NewSQLite creates a backend for the database at path. The file is created
// on the first Save.
func NewSQLite(path string) *SQLite {
	return &SQLite{path: path}
}

func (s *SQLite) conn() (*sql.DB, error) {
	if s.db != nil {
		return s.db, nil
	}
	db, err := sql.Open("sqlite3", dsn(s.path))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	s.db = db
	return db, nil
}

// dsn builds a sqlite URI for path. The path is escaped so that '?', '#' and
// '%' in file names are not read as URI syntax.
func dsn(path string) string {
	query := url.Values{"_busy_timeout": {"5000"}}
	return "file:" + (&url.URL{Path: path}).EscapedPath() + "?" + query.Encode()
}

func (s *SQLite) exists() error {
	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", s.path, ErrStorageMissing)
		}
		return fmt.Errorf("stat %s: %w", s.path, err)
	}
	return nil
}

func (s *SQLite) Load() (model.EventStore, error) {
	if err := s.exists(); err != nil {
		return nil, err
	}
	db, err := s.conn()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}

	rows, err := db.Query(`SELECT time, ip, path, bytes, user_agent, status FROM events ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := model.NewEventStore()
	for rows.Next() {
		var (
			ts string
			ev model.LogEvent
		)
		if err := rows.Scan(&ts, &ev.IP, &ev.Path, &ev.Bytes, &ev.UserAgent, &ev.Status); err != nil {
			return nil, err
		}
		if ev.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("event time %q: %w", ts, err)
		}
		events.Put(ev)
	}
	return events, rows.Err()
}

// Save upserts every event in one transaction. Rows are never deleted.
func (s *SQLite) Save(events model.EventStore) error {
	db, err := s.conn()
	if err != nil {
		return writeErr("open", s.path, err)
	}
	return s.inTx(db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`INSERT INTO events(key, time, ip, path, bytes, user_agent, status)
			VALUES(?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET
				time=excluded.time, ip=excluded.ip, path=excluded.path, bytes=excluded.bytes,
				user_agent=excluded.user_agent, status=excluded.status`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, key := range events.Keys() {
			ev := events[key]
			ts := ev.Timestamp.UTC().Format(time.RFC3339Nano)
			if _, err := stmt.Exec(key, ts, ev.IP, ev.Path, ev.Bytes, ev.UserAgent, ev.Status); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLite) LoadCounts() (*model.CountTable, error) {
	if err := s.exists(); err != nil {
		return nil, err
	}
	db, err := s.conn()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}

	rows, err := db.Query(`SELECT name, count FROM counts ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query counts: %w", err)
	}
	defer rows.Close()

	var entries []model.RankedCount
	for rows.Next() {
		var rc model.RankedCount
		if err := rows.Scan(&rc.Name, &rc.Count); err != nil {
			return nil, err
		}
		entries = append(entries, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return model.CountTableFrom(entries), nil
}

// SaveCounts replaces the count table in one transaction.
func (s *SQLite) SaveCounts(counts *model.CountTable) error {
	db, err := s.conn()
	if err != nil {
		return writeErr("open", s.path, err)
	}
	return s.inTx(db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM counts`); err != nil {
			return err
		}
		for i, rc := range counts.Entries() {
			if _, err := tx.Exec(`INSERT INTO counts(position, name, count) VALUES(?, ?, ?)`, i, rc.Name, rc.Count); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLite) CountsLocation() string { return s.path }

func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLite) inTx(db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return writeErr("begin", s.path, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return writeErr("write", s.path, err)
	}
	if err := tx.Commit(); err != nil {
		return writeErr("commit", s.path, err)
	}
	return nil
}

// Migrate ensures the schema exists.
func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS events (
			key TEXT PRIMARY KEY,
			time TEXT NOT NULL,
			ip TEXT NOT NULL,
			path TEXT NOT NULL,
			bytes INTEGER NOT NULL,
			user_agent TEXT NOT NULL,
			status INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS counts (
			position INTEGER PRIMARY KEY,
			name TEXT UNIQUE NOT NULL,
			count INTEGER NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}
