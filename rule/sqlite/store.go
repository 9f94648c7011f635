// Package sqlite provides a SQLite-backed rule store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	_ "modernc.org/sqlite"

	"github.com/c360studio/dqagent/rule"
)

// Store implements rule.Store on a local SQLite database. The UNIQUE
// primary key on name makes Create's duplicate detection race-free
// across concurrent sessions.
type Store struct {
	db    *sql.DB
	clock clockwork.Clock
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for record timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(s *Store) {
		s.clock = c
	}
}

// New opens (creating if needed) a SQLite-backed store at dbPath.
func New(dbPath string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL mode for concurrent readers across sessions.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db, clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS dq_rules (
		name TEXT PRIMARY KEY,
		description TEXT NOT NULL,
		sql_text TEXT NOT NULL,
		dataset_id TEXT NOT NULL,
		project_id TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Create persists a new rule. A plain INSERT against the primary key
// keeps duplicate detection atomic; conflicts map to ErrDuplicateName.
func (s *Store) Create(ctx context.Context, r rule.Rule) (*rule.Rule, error) {
	now := s.clock.Now()
	r.CreatedAt = now
	r.UpdatedAt = now

	query := `
	INSERT INTO dq_rules (name, description, sql_text, dataset_id, project_id, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		r.Name, r.Description, r.SQL, r.DatasetID, r.ProjectID,
		r.CreatedAt.Unix(), r.UpdatedAt.Unix(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("create rule %q: %w", r.Name, rule.ErrDuplicateName)
		}
		return nil, fmt.Errorf("create rule %q: %w", r.Name, err)
	}

	stored := r
	return &stored, nil
}

// Search returns rules matching the filter. The SQL narrows by name
// substring where possible; keyword matching falls back to a full scan
// with Filter.Matches since description search shares the same shape.
func (s *Store) Search(ctx context.Context, f rule.Filter) ([]rule.Rule, error) {
	query := `
		SELECT name, description, sql_text, dataset_id, project_id, created_at, updated_at
		FROM dq_rules`
	var args []any

	if !f.All && f.Name != "" && f.Keyword == "" {
		query += ` WHERE name LIKE ?`
		args = append(args, "%"+f.Name+"%")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	var out []rule.Rule
	for rows.Next() {
		var r rule.Rule
		var createdAt, updatedAt int64
		if err := rows.Scan(&r.Name, &r.Description, &r.SQL, &r.DatasetID, &r.ProjectID, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan rule row: %w", err)
		}
		r.CreatedAt = time.Unix(createdAt, 0)
		r.UpdatedAt = time.Unix(updatedAt, 0)
		if f.Matches(r) {
			out = append(out, r)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rules: %w", err)
	}
	return out, nil
}

// Update replaces the description of an existing rule. Name and SQL are
// never touched.
func (s *Store) Update(ctx context.Context, name, description string) (*rule.Rule, error) {
	query := `UPDATE dq_rules SET description = ?, updated_at = ? WHERE name = ?`
	result, err := s.db.ExecContext(ctx, query, description, s.clock.Now().Unix(), name)
	if err != nil {
		return nil, fmt.Errorf("update rule %q: %w", name, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update rule %q rows affected: %w", name, err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("update rule %q: %w", name, rule.ErrNotFound)
	}

	return s.get(ctx, name)
}

// Delete removes a rule by exact name.
func (s *Store) Delete(ctx context.Context, name string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM dq_rules WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete rule %q: %w", name, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete rule %q rows affected: %w", name, err)
	}
	if affected == 0 {
		return fmt.Errorf("delete rule %q: %w", name, rule.ErrNotFound)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, name string) (*rule.Rule, error) {
	query := `
		SELECT name, description, sql_text, dataset_id, project_id, created_at, updated_at
		FROM dq_rules WHERE name = ?`

	var r rule.Rule
	var createdAt, updatedAt int64
	err := s.db.QueryRowContext(ctx, query, name).Scan(
		&r.Name, &r.Description, &r.SQL, &r.DatasetID, &r.ProjectID, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get rule %q: %w", name, rule.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get rule %q: %w", name, err)
	}
	r.CreatedAt = time.Unix(createdAt, 0)
	r.UpdatedAt = time.Unix(updatedAt, 0)
	return &r, nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint
// failure. modernc.org/sqlite surfaces these as string-coded errors.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "SQLITE_CONSTRAINT")
}
