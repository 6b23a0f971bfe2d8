// internal/conversations/repository.go

package conversations

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	// Conversations
	//
	// CreateWithFirstMessage inserts the conversation and its first
	// message in one transaction. A concurrent writer losing the
	// unordered-pair uniqueness race gets ErrConversationExists.
	CreateWithFirstMessage(ctx context.Context, conv *Conversation, msg *Message) error
	GetConversation(ctx context.Context, id uuid.UUID) (*Conversation, error)
	ListForUser(ctx context.Context, userID int64) ([]*Conversation, error)
	PairExists(ctx context.Context, a, b int64) (bool, error)
	// DeleteCascade removes the conversation's messages and then the
	// conversation itself in one transaction.
	DeleteCascade(ctx context.Context, id uuid.UUID) error
	// PeerIDs lists the counterpart ids of every conversation the
	// user participates in.
	PeerIDs(ctx context.Context, userID int64) ([]int64, error)

	// Messages
	CreateMessage(ctx context.Context, msg *Message) error
	GetMessagesByIDs(ctx context.Context, ids []uuid.UUID) ([]Message, error)
	// ListMessages returns up to limit messages newest-first,
	// excluding those soft-deleted by the requester. A non-nil before
	// restricts to messages created strictly earlier.
	ListMessages(ctx context.Context, convID uuid.UUID, requesterID int64, limit int, before *time.Time) ([]Message, error)
	CountMessages(ctx context.Context, convID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, ids []uuid.UUID, readAt time.Time) error
	// ApplyDeletions runs both phases of a delete batch in one
	// transaction: markIDs get deleted_by stamped, destroyIDs are
	// removed outright.
	ApplyDeletions(ctx context.Context, userID int64, markIDs, destroyIDs []uuid.UUID) error
}
