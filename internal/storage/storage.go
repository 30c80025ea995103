// Package storage persists planning sessions in a local sqlite database so
// that a checklist survives between invocations of the CLI.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ginjaninja78/mercado/internal/checklist"
	"github.com/ginjaninja78/mercado/internal/planner"
	"github.com/ginjaninja78/mercado/internal/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	_ "modernc.org/sqlite"
)

// ErrSessionNotFound is returned when no session matches an id or name.
var ErrSessionNotFound = errors.New("session not found")

// DefaultSessionName is used when the user does not name a session.
const DefaultSessionName = "default"

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
  id          TEXT PRIMARY KEY,
  name        TEXT NOT NULL UNIQUE,
  created_at  TEXT NOT NULL,
  updated_at  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS session_categories (
  session_id  TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
  position    INTEGER NOT NULL,
  category    TEXT NOT NULL,
  PRIMARY KEY (session_id, position)
);
CREATE TABLE IF NOT EXISTS checklist_entries (
  session_id  TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
  key         TEXT NOT NULL,
  checked     INTEGER NOT NULL CHECK (checked IN (0,1)),
  PRIMARY KEY (session_id, key)
);
CREATE TABLE IF NOT EXISTS manual_entries (
  session_id  TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
  position    INTEGER NOT NULL,
  unit        TEXT NOT NULL,
  product     TEXT NOT NULL,
  quantity    TEXT NOT NULL,
  PRIMARY KEY (session_id, position)
);
`

// DB is a handle on the session database.
type DB struct {
	sql *sql.DB
}

// SessionInfo summarizes a stored session.
type SessionInfo struct {
	ID         string
	Name       string
	Categories int
	Items      int
	Checked    int
	Manual     int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Open opens (and creates if needed) the database at path.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &DB{sql: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// CreateSession stores a new empty session with a random id.
func (d *DB) CreateSession(ctx context.Context, name string) (*planner.Session, error) {
	if name == "" {
		name = DefaultSessionName
	}
	s := planner.NewSession(uuid.NewString(), name)
	if err := d.SaveSession(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadOrCreate loads the session named or identified by ref, creating it
// under that name when it does not exist.
func (d *DB) LoadOrCreate(ctx context.Context, ref string) (*planner.Session, bool, error) {
	if ref == "" {
		ref = DefaultSessionName
	}
	s, err := d.LoadSession(ctx, ref)
	if err == nil {
		return s, false, nil
	}
	if !errors.Is(err, ErrSessionNotFound) {
		return nil, false, err
	}
	s, err = d.CreateSession(ctx, ref)
	return s, true, err
}

// LoadSession loads a session by id or by name.
func (d *DB) LoadSession(ctx context.Context, ref string) (*planner.Session, error) {
	var (
		s                    planner.Session
		createdAt, updatedAt string
	)
	err := d.sql.QueryRowContext(ctx,
		"SELECT id, name, created_at, updated_at FROM sessions WHERE id = ? OR name = ? ORDER BY id = ? DESC LIMIT 1",
		ref, ref, ref).Scan(&s.ID, &s.Name, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrSessionNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	s.CreatedAt = parseTime(createdAt)
	s.UpdatedAt = parseTime(updatedAt)

	if s.Selection, err = d.loadCategories(ctx, s.ID); err != nil {
		return nil, err
	}
	entries, err := d.loadChecklist(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	s.Checklist = checklist.FromEntries(entries)
	if s.Manual, err = d.loadManual(ctx, s.ID); err != nil {
		return nil, err
	}
	return &s, nil
}

func (d *DB) loadCategories(ctx context.Context, id string) (types.Selection, error) {
	rows, err := d.sql.QueryContext(ctx, "SELECT category FROM session_categories WHERE session_id = ? ORDER BY position", id)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	defer rows.Close()

	var out types.Selection
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to load categories: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (d *DB) loadChecklist(ctx context.Context, id string) (map[string]bool, error) {
	rows, err := d.sql.QueryContext(ctx, "SELECT key, checked FROM checklist_entries WHERE session_id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("failed to load checklist: %w", err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var (
			key     string
			checked int
		)
		if err := rows.Scan(&key, &checked); err != nil {
			return nil, fmt.Errorf("failed to load checklist: %w", err)
		}
		out[key] = checked == 1
	}
	return out, rows.Err()
}

func (d *DB) loadManual(ctx context.Context, id string) ([]types.PurchaseLine, error) {
	rows, err := d.sql.QueryContext(ctx, "SELECT unit, product, quantity FROM manual_entries WHERE session_id = ? ORDER BY position", id)
	if err != nil {
		return nil, fmt.Errorf("failed to load manual entries: %w", err)
	}
	defer rows.Close()

	var out []types.PurchaseLine
	for rows.Next() {
		var unit, product, qty string
		if err := rows.Scan(&unit, &product, &qty); err != nil {
			return nil, fmt.Errorf("failed to load manual entries: %w", err)
		}
		q, err := decimal.NewFromString(qty)
		if err != nil {
			return nil, fmt.Errorf("corrupt quantity %q for %q: %w", qty, product, err)
		}
		out = append(out, types.PurchaseLine{Category: planner.ManualCategory, Unit: unit, Product: product, Quantity: q})
	}
	return out, rows.Err()
}

// SaveSession writes the whole session in one transaction, replacing the
// stored selection, checklist and manual entries.
func (d *DB) SaveSession(ctx context.Context, s *planner.Session) (err error) {
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now().UTC()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = s.UpdatedAt
	}

	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `INSERT INTO sessions(id, name, created_at, updated_at) VALUES(?,?,?,?)
ON CONFLICT(id) DO UPDATE SET name = excluded.name, updated_at = excluded.updated_at`,
		s.ID, s.Name, formatTime(s.CreatedAt), formatTime(s.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	for _, table := range []string{"session_categories", "checklist_entries", "manual_entries"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE session_id = ?", s.ID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for i, c := range s.Selection {
		if _, err = tx.ExecContext(ctx, "INSERT INTO session_categories(session_id, position, category) VALUES(?,?,?)", s.ID, i, c); err != nil {
			return fmt.Errorf("failed to save categories: %w", err)
		}
	}
	if s.Checklist != nil {
		for key, checked := range s.Checklist.Entries() {
			if _, err = tx.ExecContext(ctx, "INSERT INTO checklist_entries(session_id, key, checked) VALUES(?,?,?)", s.ID, key, boolToInt(checked)); err != nil {
				return fmt.Errorf("failed to save checklist: %w", err)
			}
		}
	}
	for i, l := range s.Manual {
		if _, err = tx.ExecContext(ctx, "INSERT INTO manual_entries(session_id, position, unit, product, quantity) VALUES(?,?,?,?,?)", s.ID, i, l.Unit, l.Product, l.Quantity.String()); err != nil {
			return fmt.Errorf("failed to save manual entries: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session: %w", err)
	}
	return nil
}

// ListSessions returns every stored session, most recently updated first.
func (d *DB) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	rows, err := d.sql.QueryContext(ctx, `
SELECT s.id, s.name, s.created_at, s.updated_at,
  (SELECT COUNT(*) FROM session_categories c WHERE c.session_id = s.id),
  (SELECT COUNT(*) FROM checklist_entries e WHERE e.session_id = s.id),
  (SELECT COUNT(*) FROM checklist_entries e WHERE e.session_id = s.id AND e.checked = 1),
  (SELECT COUNT(*) FROM manual_entries m WHERE m.session_id = s.id)
FROM sessions s
ORDER BY s.updated_at DESC, s.name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionInfo
	for rows.Next() {
		var (
			info                 SessionInfo
			createdAt, updatedAt string
		)
		if err := rows.Scan(&info.ID, &info.Name, &createdAt, &updatedAt, &info.Categories, &info.Items, &info.Checked, &info.Manual); err != nil {
			return nil, fmt.Errorf("failed to list sessions: %w", err)
		}
		info.CreatedAt = parseTime(createdAt)
		info.UpdatedAt = parseTime(updatedAt)
		out = append(out, info)
	}
	return out, rows.Err()
}

// DeleteSession removes a session and everything stored with it.
func (d *DB) DeleteSession(ctx context.Context, ref string) error {
	s, err := d.LoadSession(ctx, ref)
	if err != nil {
		return err
	}
	if _, err := d.sql.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", s.ID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
