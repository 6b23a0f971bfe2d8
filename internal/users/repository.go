// internal/users/repository.go

package users

import (
	"context"
	"time"
)

// Repository is the persistence contract for accounts
type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	IsEmailTaken(ctx context.Context, email string) (bool, error)
	IsUsernameTaken(ctx context.Context, username string) (bool, error)

	Update(ctx context.Context, user *User) error
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
	Confirm(ctx context.Context, userID int64) error
	TouchLastSeen(ctx context.Context, userID int64, at time.Time) error

	// GetSummariesByIDs resolves ids to their public shapes preserving
	// the input order; unknown ids are skipped.
	GetSummariesByIDs(ctx context.Context, ids []int64, private bool) ([]Summary, error)

	// Search matches the query against usernames and display names
	Search(ctx context.Context, query string, limit int) ([]Summary, error)

	// DeleteCascade removes the account together with its relationship
	// edges and detaches it from its conversations, dropping any
	// conversation left with no participants.
	DeleteCascade(ctx context.Context, userID int64) error
}
