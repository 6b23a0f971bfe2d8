// internal/conversations/models.go

package conversations

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is the single channel between two users. A side may be
// nulled when the account behind it is deleted; the row survives
// until both sides are null.
type Conversation struct {
	ID          uuid.UUID `json:"id" db:"id"`
	SenderID    *int64    `json:"senderId" db:"sender_id"`
	RecipientID *int64    `json:"recipientId" db:"recipient_id"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`

	// Computed fields
	Messages []Message `json:"messages,omitempty"`
}

// Message is one message in a conversation. DeletedBy tracks the
// first phase of the two-phase soft delete; the row disappears when
// the second participant deletes too.
type Message struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	ConversationID uuid.UUID  `json:"conversationId" db:"conversation_id"`
	SenderID       *int64     `json:"senderId" db:"sender_id"`
	Body           string     `json:"body" db:"body"`
	Read           *time.Time `json:"read" db:"read"`
	CreatedAt      time.Time  `json:"createdAt" db:"created_at"`
	DeletedBy      *int64     `json:"-" db:"deleted_by"`
}

// Counterpart returns the other participant's id, or nil when the
// other side's account is gone.
func (c *Conversation) Counterpart(userID int64) *int64 {
	if c.SenderID != nil && *c.SenderID == userID {
		return c.RecipientID
	}
	return c.SenderID
}

// IsParticipant reports whether the user is one of the two sides
func (c *Conversation) IsParticipant(userID int64) bool {
	if c.SenderID != nil && *c.SenderID == userID {
		return true
	}
	return c.RecipientID != nil && *c.RecipientID == userID
}

// Request DTOs

type CreateConversationRequest struct {
	RecipientID int64  `json:"recipientId" validate:"required,gt=0"`
	MessageBody string `json:"messageBody" validate:"required,max=4000"`
}

type SendMessageRequest struct {
	Body string `json:"body" validate:"required,max=4000"`
}

type MessageIDsRequest struct {
	IDs []uuid.UUID `json:"ids" validate:"required,min=1"`
}
