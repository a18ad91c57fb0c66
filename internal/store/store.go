// Package store provides the SQL-facing half of the filesystem adapter: it
// opens the Joplin SQLite database, verifies it has the shape this adapter
// depends on, and keeps the performance indexes the Path Resolver and
// Directory Lister rely on.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// requiredColumns lists, for each table this adapter touches, the columns it
// reads or writes directly. Any other column is passed through untouched by
// relying on the table's own defaults.
var requiredColumns = map[string][]string{
	"notes":   {"id", "parent_id", "title", "body", "created_time", "updated_time", "user_updated_time", "deleted_time"},
	"folders": {"id", "parent_id", "title", "created_time", "updated_time", "user_updated_time", "deleted_time"},
}

// Store owns the database handle backing a single mount.
type Store struct {
	DB *sql.DB
}

// Open opens the SQLite file at path, tunes it for single-process FUSE
// access, and verifies it has the notes/folders schema this adapter
// requires. It does not create the notes/folders tables themselves: a
// database lacking them is not a fresh store to initialize, it is the wrong
// file to have mounted.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// All kernel callbacks are already serialized by the file system's own
	// mutex (see internal/fs); a single connection avoids SQLite having to
	// arbitrate between goroutines that will never actually run concurrently,
	// and keeps WAL/busy-timeout pragmas attached to the one connection that
	// matters.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy_timeout: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = OFF`); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting foreign_keys pragma: %w", err)
	}

	s := &Store{DB: db}
	if err := s.verifySchema(); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.ensureIndexes(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.DB.Close()
}

// verifySchema fails fast with a descriptive error if the database does not
// look like a Joplin note store, rather than letting the first lookup fail
// with an opaque SQL error.
func (s *Store) verifySchema() error {
	for table, cols := range requiredColumns {
		have, err := s.tableColumns(table)
		if err != nil {
			return fmt.Errorf("inspecting table %q: %w", table, err)
		}
		if have == nil {
			return fmt.Errorf("database is missing required table %q; is this a Joplin SQLite database?", table)
		}
		for _, col := range cols {
			if !have[col] {
				return fmt.Errorf("table %q is missing required column %q; is this a Joplin SQLite database?", table, col)
			}
		}
	}
	return nil
}

func (s *Store) tableColumns(table string) (map[string]bool, error) {
	rows, err := s.DB.Query(fmt.Sprintf(`PRAGMA table_info(%q)`, table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make(map[string]bool)
	found := false
	for rows.Next() {
		found = true
		var (
			cid        int
			name       string
			ctype      string
			notnull    int
			dfltValue  any
			primaryKey int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &primaryKey); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return cols, nil
}

// ensureIndexes creates the indexes the Path Resolver and Directory Lister
// depend on for non-quadratic traversal, if they are not already present.
// Index creation is idempotent (CREATE INDEX IF NOT EXISTS).
func (s *Store) ensureIndexes() error {
	stmts := []string{
		`CREATE INDEX IF NOT EXISTS joplinfs_folders_parent_title ON folders(parent_id, title)`,
		`CREATE INDEX IF NOT EXISTS joplinfs_notes_parent_title ON notes(parent_id, title)`,
		`CREATE INDEX IF NOT EXISTS joplinfs_notes_id ON notes(id)`,
		`CREATE INDEX IF NOT EXISTS joplinfs_folders_id ON folders(id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.DB.Exec(stmt); err != nil {
			return fmt.Errorf("ensuring index (%s): %w", stmt, err)
		}
	}
	return nil
}

// NowMillis returns the given time as Joplin-style epoch milliseconds.
func NowMillis(t time.Time) int64 {
	return t.UnixNano() / int64(time.Millisecond)
}
