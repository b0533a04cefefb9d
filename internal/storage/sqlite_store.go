// Package storage keeps the last known habit list and today's completions on
// disk so the TUI can render immediately on start, before the backend answers.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/habitrack/internal/logger"
	"github.com/julianstephens/habitrack/internal/migration"
	"github.com/julianstephens/habitrack/internal/models"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// ErrNoSnapshot is returned by LoadSnapshot when nothing has been saved yet.
var ErrNoSnapshot = errors.New("no snapshot saved")

type SQLiteStore struct {
	path string
	db   *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Path() string {
	return s.path
}

// Init opens the database, creating its directory, and applies pending
// migrations.
func (s *SQLiteStore) Init(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("failed to open cache database: %w", err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY between
	// concurrent snapshot saves.
	db.SetMaxOpenConns(1)

	runner, err := newRunner(db)
	if err != nil {
		db.Close()
		return err
	}
	n, err := runner.Apply(ctx)
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to migrate cache database: %w", err)
	}
	if n > 0 {
		logger.Debug("Applied cache migrations", "count", n, "path", s.path)
	}

	s.db = db
	return nil
}

func newRunner(db *sql.DB) (*migration.Runner, error) {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return nil, err
	}
	return migration.NewRunner(db, sub), nil
}

// SchemaStatus reports the applied cache schema version and the latest one
// this build knows about.
func (s *SQLiteStore) SchemaStatus(ctx context.Context) (current, latest int, err error) {
	if err := s.ready(); err != nil {
		return 0, 0, err
	}
	runner, err := newRunner(s.db)
	if err != nil {
		return 0, 0, err
	}
	if current, err = runner.CurrentVersion(ctx); err != nil {
		return 0, 0, err
	}
	migrations, err := runner.Migrations()
	if err != nil {
		return 0, 0, err
	}
	if n := len(migrations); n > 0 {
		latest = migrations[n-1].Version
	}
	return current, latest, nil
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) ready() error {
	if s.db == nil {
		return errors.New("cache not initialized")
	}
	return nil
}

// SaveSnapshot replaces the stored snapshot.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap models.Snapshot) error {
	if err := s.ready(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{`DELETE FROM habits`, `DELETE FROM today_completions`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	for i, h := range snap.Habits {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO habits (id, position, name, description, current_streak, longest_streak) VALUES (?, ?, ?, ?, ?, ?)`,
			h.ID, i, h.Name, nullString(h.Description), nullInt(h.CurrentStreak), nullInt(h.LongestStreak))
		if err != nil {
			return fmt.Errorf("failed to save habit %d: %w", h.ID, err)
		}
	}
	for _, id := range snap.Today {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO today_completions (habit_id) VALUES (?)`, id); err != nil {
			return fmt.Errorf("failed to save completion for habit %d: %w", id, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO snapshot_meta (id, today_date, saved_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET today_date = excluded.today_date, saved_at = excluded.saved_at`,
		snap.TodayDate, snap.SavedAt)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// LoadSnapshot returns the stored snapshot or ErrNoSnapshot.
func (s *SQLiteStore) LoadSnapshot(ctx context.Context) (models.Snapshot, error) {
	var snap models.Snapshot
	if err := s.ready(); err != nil {
		return snap, err
	}

	err := s.db.QueryRowContext(ctx, `SELECT today_date, saved_at FROM snapshot_meta WHERE id = 1`).
		Scan(&snap.TodayDate, &snap.SavedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return snap, ErrNoSnapshot
	}
	if err != nil {
		return snap, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, current_streak, longest_streak FROM habits ORDER BY position`)
	if err != nil {
		return snap, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			h                models.Habit
			desc             sql.NullString
			current, longest sql.NullInt64
		)
		if err := rows.Scan(&h.ID, &h.Name, &desc, &current, &longest); err != nil {
			return snap, err
		}
		if desc.Valid {
			h.Description = &desc.String
		}
		h.CurrentStreak = intPtr(current)
		h.LongestStreak = intPtr(longest)
		snap.Habits = append(snap.Habits, h)
	}
	if err := rows.Err(); err != nil {
		return snap, err
	}

	idRows, err := s.db.QueryContext(ctx, `SELECT habit_id FROM today_completions ORDER BY habit_id`)
	if err != nil {
		return snap, err
	}
	defer idRows.Close()
	for idRows.Next() {
		var id int64
		if err := idRows.Scan(&id); err != nil {
			return snap, err
		}
		snap.Today = append(snap.Today, id)
	}
	return snap, idRows.Err()
}

// Clear drops the stored snapshot, used on logout.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}
	for _, stmt := range []string{`DELETE FROM habits`, `DELETE FROM today_completions`, `DELETE FROM snapshot_meta`} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
