package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/lzhou/workdesk/internal/model"
)

// SQLiteStore persists the last fetched working set in a local SQLite
// database, one snapshot per scope.
type SQLiteStore struct {
	db *sqlx.DB
}

var _ Snapshotter = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// SaveSnapshot replaces the stored snapshot for a scope with the given
// todos in a single transaction.
func (s *SQLiteStore) SaveSnapshot(
	ctx context.Context,
	scope Scope,
	todos []model.Todo,
	fetchedAt time.Time,
) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM todos WHERE scope = ?", string(scope)); err != nil {
		return fmt.Errorf("clearing snapshot for scope %s: %w", scope, err)
	}

	const query = `
		INSERT INTO todos (
			scope, id, assignee_user_id, creator_user_id,
			assignee_name, creator_name, title, description,
			status, priority, action_type, source_type, source_id,
			start_at, due_at, done_at,
			blocked_reason, dismiss_reason, review_comment,
			created_at, updated_at
		) VALUES (
			?, ?, ?, ?,
			?, ?, ?, ?,
			?, ?, ?, ?, ?,
			?, ?, ?,
			?, ?, ?,
			?, ?
		)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing snapshot insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range todos {
		_, err = stmt.ExecContext(ctx,
			string(scope), t.ID, t.AssigneeUserID, t.CreatorUserID,
			t.AssigneeName, t.CreatorName, t.Title, t.Description,
			t.Status, t.Priority, t.ActionType, t.SourceType, t.SourceID,
			utcOrNil(t.StartAt), utcOrNil(t.DueAt), utcOrNil(t.DoneAt),
			t.BlockedReason, t.DismissReason, t.ReviewComment,
			t.CreatedAt.UTC(), t.UpdatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("inserting snapshot todo %s: %w", t.ID, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO snapshots (scope, fetched_at) VALUES (?, ?)",
		string(scope), fetchedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording snapshot time: %w", err)
	}

	return tx.Commit()
}

// LoadSnapshot returns the stored todos for a scope and the time they
// were fetched. A missing snapshot returns an empty slice and zero time.
func (s *SQLiteStore) LoadSnapshot(
	ctx context.Context,
	scope Scope,
) ([]model.Todo, time.Time, error) {
	var fetchedAt time.Time
	err := s.db.GetContext(ctx, &fetchedAt,
		"SELECT fetched_at FROM snapshots WHERE scope = ?", string(scope))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("reading snapshot time: %w", err)
	}

	rows, err := s.db.QueryxContext(ctx, `
		SELECT id, assignee_user_id, creator_user_id,
			assignee_name, creator_name, title, description,
			status, priority, action_type, source_type, source_id,
			start_at, due_at, done_at,
			blocked_reason, dismiss_reason, review_comment,
			created_at, updated_at
		FROM todos WHERE scope = ? ORDER BY updated_at DESC`,
		string(scope))
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("querying snapshot todos: %w", err)
	}
	defer rows.Close()

	var todos []model.Todo
	for rows.Next() {
		var t model.Todo
		if err := rows.StructScan(&t); err != nil {
			return nil, time.Time{}, fmt.Errorf("scanning snapshot todo: %w", err)
		}
		todos = append(todos, t)
	}

	return todos, fetchedAt, rows.Err()
}

// SaveSubordinates replaces the cached direct reports.
func (s *SQLiteStore) SaveSubordinates(ctx context.Context, users []model.User) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM subordinates"); err != nil {
		return fmt.Errorf("clearing subordinates: %w", err)
	}

	for _, u := range users {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO subordinates (user_id, display_name) VALUES (?, ?)",
			u.ID, u.DisplayName,
		)
		if err != nil {
			return fmt.Errorf("inserting subordinate %s: %w", u.ID, err)
		}
	}

	return tx.Commit()
}

// LoadSubordinates returns the cached direct reports.
func (s *SQLiteStore) LoadSubordinates(ctx context.Context) ([]model.User, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT user_id, display_name FROM subordinates ORDER BY display_name")
	if err != nil {
		return nil, fmt.Errorf("querying subordinates: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.DisplayName); err != nil {
			return nil, fmt.Errorf("scanning subordinate: %w", err)
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

// utcOrNil normalizes an optional timestamp for storage.
func utcOrNil(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}
