package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"eodd/internal/common/fsutil"
)

const schema = `CREATE TABLE IF NOT EXISTS prefs (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// SQLite is a file-backed Store.
type SQLite struct {
	db   *sql.DB
	path string
	log  zerolog.Logger
}

// OpenSQLite opens (creating if needed) the preference database at path.
// A leading "~" is expanded.
func OpenSQLite(path string, log zerolog.Logger) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("empty prefs path")
	}
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	if err := fsutil.EnsureParentDir(p); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", p)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLite{db: db, path: p, log: log.With().Str("component", "kv").Str("path", p).Logger()}, nil
}

func (s *SQLite) Get(ctx context.Context, key string) (string, bool) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM prefs WHERE key = ?`, key).Scan(&v)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.log.Warn().Err(err).Str("key", key).Msg("get failed, treating as not found")
		}
		return "", false
	}
	return v, true
}

func (s *SQLite) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO prefs (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// Path returns the database file path.
func (s *SQLite) Path() string { return s.path }

func (s *SQLite) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
