// Package sqlite implements the SQLite storage backend for plant diaries.
//
// A Backend owns one *sql.DB limited to a single connection, so writes from
// concurrent HTTP handlers are serialized by the pool and the busy timeout.
// The schema is versioned with PRAGMA user_version and migrated on Open.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mesh-intelligence/plantdiaries/pkg/types"
)

// pragmas are applied to every connection through the DSN.
var pragmas = []string{
	"foreign_keys(1)",
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
}

// Backend implements types.Diary on top of SQLite.
type Backend struct {
	mu     sync.RWMutex
	closed bool
	db     *sql.DB
	path   string

	users      *userTable
	plants     *plantTable
	events     *eventTable
	photos     *photoTable
	tags       *tagTable
	eventTypes *eventTypeTable
}

var _ types.Diary = (*Backend)(nil)

// Open opens (creating if needed) the database at path, migrates the schema
// to the latest version and seeds the built-in event types.
func Open(ctx context.Context, path string) (*Backend, error) {
	if path == "" {
		return nil, fmt.Errorf("opening database: empty path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	if err := seedEventTypes(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	b := &Backend{db: db, path: path}
	b.users = &userTable{b: b}
	b.plants = &plantTable{b: b}
	b.events = &eventTable{b: b}
	b.photos = &photoTable{b: b}
	b.tags = &tagTable{b: b}
	b.eventTypes = &eventTypeTable{b: b}
	return b, nil
}

func dsn(path string) string {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	return "file:" + path + "?" + q.Encode()
}

// Users returns the accounts table.
func (b *Backend) Users() types.UserTable { return b.users }

// Plants returns the plants table.
func (b *Backend) Plants() types.PlantTable { return b.plants }

// Events returns the plant events table.
func (b *Backend) Events() types.EventTable { return b.events }

// Photos returns the plant photos table.
func (b *Backend) Photos() types.PhotoTable { return b.photos }

// Tags returns the tags table.
func (b *Backend) Tags() types.TagTable { return b.tags }

// EventTypes returns the event types table.
func (b *Backend) EventTypes() types.EventTypeTable { return b.eventTypes }

// Path returns the database file path.
func (b *Backend) Path() string { return b.path }

// Close closes the database. Close is idempotent.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	return b.db.Close()
}

// conn returns the database handle, or ErrDiaryClosed after Close.
func (b *Backend) conn() (*sql.DB, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, types.ErrDiaryClosed
	}
	return b.db, nil
}

// Ping reports whether the database still answers queries.
func (b *Backend) Ping(ctx context.Context) error {
	db, err := b.conn()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// now returns the current time truncated to the stored precision.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := types.ParseTimestamp(ns.String)
	if err != nil {
		return nil, fmt.Errorf("parsing timestamp %q: %w", ns.String, err)
	}
	return &t, nil
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func floatPtr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	f := nf.Float64
	return &f
}

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY
// constraint failure.
func isUniqueViolation(err error) bool {
	var se *msqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}

// affected maps a zero-row update or delete to ErrNotFound.
func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}
	if n == 0 {
		return types.ErrNotFound
	}
	return nil
}
