package store

import "context"

// Repo defines durable storage for the moderator registry and the points ledger.
type Repo interface {
	IsModerator(ctx context.Context, userID int64) (bool, error)
	// AddModerator reports false if the user was already registered.
	AddModerator(ctx context.Context, userID int64) (bool, error)
	// RemoveModerator reports false if the user was not registered.
	RemoveModerator(ctx context.Context, userID int64) (bool, error)
	ListModerators(ctx context.Context) ([]int64, error)

	// AddPoints atomically adds delta to a user's balance and returns the new total.
	AddPoints(ctx context.Context, userID int64, delta int64) (int64, error)
	// GetPoints returns 0 for users with no ledger entry.
	GetPoints(ctx context.Context, userID int64) (int64, error)
	// ResetPoints removes every ledger entry. Idempotent.
	ResetPoints(ctx context.Context) error

	Close() error
}
