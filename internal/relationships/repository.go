// internal/relationships/repository.go

package relationships

import (
	"context"

	"github.com/ojpierre/mutuals-backend/internal/users"
)

type Repository interface {
	// ListBetween returns every edge between the two users, in either
	// direction.
	ListBetween(ctx context.Context, a, b int64) ([]Relationship, error)

	// ListFriendEdges returns every FRIEND edge touching the user.
	ListFriendEdges(ctx context.Context, userID int64) ([]Relationship, error)

	// Create inserts a new directed edge.
	Create(ctx context.Context, rel *Relationship) error

	// DeleteBetween removes every edge between the two users in both
	// directions.
	DeleteBetween(ctx context.Context, a, b int64) error

	// ReplaceWithBlock atomically removes every edge between the two
	// users and inserts a requester->addressee BLOCK edge.
	ReplaceWithBlock(ctx context.Context, requesterID, addresseeID int64) error
}

// Directory resolves usernames and summaries; backed by the users
// repository.
type Directory interface {
	GetByUsername(ctx context.Context, username string) (*users.User, error)
	GetSummariesByIDs(ctx context.Context, ids []int64, private bool) ([]users.Summary, error)
}

// ConversationPeers lists the ids of everyone the user shares a
// conversation with; backed by the conversations repository.
type ConversationPeers interface {
	PeerIDs(ctx context.Context, userID int64) ([]int64, error)
}
