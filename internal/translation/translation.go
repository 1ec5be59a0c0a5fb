// Package translation keeps the local table mapping human bead names to
// kinds. Names are unique; a kind may be known under several names.
package translation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
)

// Memory opens a private in-memory table.
const Memory = ":memory:"

// schemaVersion is stored in SQLite's user_version pragma.
const schemaVersion = 1

const sqliteBusyTimeout = 5000 // milliseconds

var (
	ErrNameTaken   = errors.New("name already taken")
	ErrUnknownName = errors.New("unknown name")
	ErrSchema      = errors.New("unsupported translation table")
)

// Table is an open translation table.
type Table struct {
	db *sql.DB
}

// Open opens or creates the table at path.
func Open(ctx context.Context, path string) (*Table, error) {
	if path == "" {
		return nil, errors.New("open translations: path is empty")
	}

	if path != Memory {
		mkdirErr := os.MkdirAll(filepath.Dir(path), 0o750)
		if mkdirErr != nil {
			return nil, fmt.Errorf("open translations: %w", mkdirErr)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open translations: %w", err)
	}

	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)

	err = db.PingContext(ctx)
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping translations: %w", err)
	}

	err = migrate(ctx, db)
	if err != nil {
		_ = db.Close()

		return nil, err
	}

	return &Table{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout = %d", sqliteBusyTimeout))
	if err != nil {
		return fmt.Errorf("apply pragmas: %w", err)
	}

	var version int

	err = db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	switch {
	case version == schemaVersion:
		return nil
	case version > schemaVersion:
		return fmt.Errorf("%w: schema version %d is newer than %d", ErrSchema, version, schemaVersion)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS translations (
			name TEXT PRIMARY KEY,
			kind TEXT NOT NULL
		) WITHOUT ROWID`,
		"CREATE INDEX IF NOT EXISTS idx_kind ON translations(kind)",
		fmt.Sprintf("PRAGMA user_version = %d", schemaVersion),
	}

	for i, stmt := range statements {
		_, err = tx.ExecContext(ctx, stmt)
		if err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}

	return nil
}

// Close closes the database.
func (t *Table) Close() error {
	return t.db.Close()
}

// Add records that name means kind. A name can be added only once.
func (t *Table) Add(ctx context.Context, name, kind string) error {
	if name == "" || kind == "" {
		return errors.New("add translation: name and kind are required")
	}

	res, err := t.db.ExecContext(ctx, `
		INSERT INTO translations (name, kind) VALUES (?, ?)
		ON CONFLICT(name) DO NOTHING`, name, kind)
	if err != nil {
		return fmt.Errorf("add translation %s: %w", name, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("add translation %s: %w", name, err)
	}

	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrNameTaken, name)
	}

	return nil
}

// Kind returns the kind registered for name.
func (t *Table) Kind(ctx context.Context, name string) (string, error) {
	var kind string

	err := t.db.QueryRowContext(ctx, "SELECT kind FROM translations WHERE name = ?", name).Scan(&kind)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrUnknownName, name)
	}

	if err != nil {
		return "", fmt.Errorf("lookup %s: %w", name, err)
	}

	return kind, nil
}

// Names returns every name known for kind, sorted.
func (t *Table) Names(ctx context.Context, kind string) ([]string, error) {
	rows, err := t.db.QueryContext(ctx, "SELECT name FROM translations WHERE kind = ? ORDER BY name", kind)
	if err != nil {
		return nil, fmt.Errorf("names of %s: %w", kind, err)
	}

	defer func() { _ = rows.Close() }()

	var names []string

	for rows.Next() {
		var name string

		scanErr := rows.Scan(&name)
		if scanErr != nil {
			return nil, fmt.Errorf("scan: %w", scanErr)
		}

		names = append(names, name)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return names, nil
}
