package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"
)

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct{ db *sql.DB }

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Reasonable pooling for SQLite; it's a single-writer engine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

// applyPragmas configures the SQLite connection for durability and concurrency.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// IsModerator reports whether the user is in the moderator registry.
func (r *SQLiteRepo) IsModerator(ctx context.Context, userID int64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM moderators WHERE user_id = ?`, userID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// AddModerator registers a user. Adding an existing moderator is a no-op
// and reports false.
func (r *SQLiteRepo) AddModerator(ctx context.Context, userID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO moderators (user_id, added_at)
		VALUES (?, ?)
		ON CONFLICT(user_id) DO NOTHING`,
		userID, time.Now().UTC().Unix(),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RemoveModerator unregisters a user; removing an absent one reports false.
func (r *SQLiteRepo) RemoveModerator(ctx context.Context, userID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM moderators WHERE user_id = ?`, userID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListModerators returns all registered moderator IDs in insertion order.
func (r *SQLiteRepo) ListModerators(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id FROM moderators ORDER BY added_at ASC, user_id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		res = append(res, id)
	}
	return res, rows.Err()
}

// AddPoints adds delta to a user's balance in a single upsert and returns
// the resulting total.
func (r *SQLiteRepo) AddPoints(ctx context.Context, userID int64, delta int64) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO points (user_id, total)
		VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			total = total + excluded.total
		RETURNING total`,
		userID, delta,
	).Scan(&total)
	return total, err
}

// GetPoints returns a user's balance, 0 if there is no ledger entry.
func (r *SQLiteRepo) GetPoints(ctx context.Context, userID int64) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx,
		`SELECT total FROM points WHERE user_id = ?`, userID,
	).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return total, nil
}

// ResetPoints deletes every ledger entry.
func (r *SQLiteRepo) ResetPoints(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM points`)
	return err
}
