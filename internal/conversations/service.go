// internal/conversations/service.go

package conversations

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ojpierre/mutuals-backend/internal/realtime"
	"github.com/ojpierre/mutuals-backend/internal/relationships"
)

// DefaultPageSize is the initial message page size before adaptive
// widening kicks in
const DefaultPageSize = 10

var (
	ErrConversationExists   = errors.New("conversation already exists")
	ErrConversationNotFound = errors.New("conversation does not exist")
	ErrNotFriends           = errors.New("you cannot message this user as you are not friends")
	ErrNotAllowed           = errors.New("you do not have permission to modify this conversation")
	ErrMessagesNotFound     = errors.New("messages do not exist")
	ErrMessagesDeleted      = errors.New("messages are already deleted")
	ErrMessagesRead         = errors.New("messages are already read")
)

// FriendChecker derives the friend state for a user pair; satisfied
// by the relationships service.
type FriendChecker interface {
	State(ctx context.Context, a, b int64) (relationships.FriendState, error)
}

type Service interface {
	// Conversations
	Create(ctx context.Context, senderID int64, req *CreateConversationRequest) (*Conversation, error)
	Get(ctx context.Context, convID uuid.UUID, requesterID int64, limit int, before *time.Time) (*Conversation, error)
	ListForUser(ctx context.Context, userID int64) ([]*Conversation, error)
	DeleteConversation(ctx context.Context, convID uuid.UUID, requesterID int64) error

	// Messages
	SendMessage(ctx context.Context, convID uuid.UUID, senderID int64, body string) (*Message, error)
	GetMessages(ctx context.Context, convID uuid.UUID, requesterID int64, limit int, before *time.Time) ([]Message, error)
	DeleteMessages(ctx context.Context, requesterID int64, ids []uuid.UUID) error
	MarkRead(ctx context.Context, requesterID int64, ids []uuid.UUID) error
}

type service struct {
	repo     Repository
	friends  FriendChecker
	notifier realtime.Notifier
}

func NewService(repo Repository, friends FriendChecker, notifier realtime.Notifier) Service {
	return &service{
		repo:     repo,
		friends:  friends,
		notifier: notifier,
	}
}

// Create opens the single conversation between sender and recipient
// and appends its first message. The pair must be accepted friends;
// the unordered-pair unique index resolves concurrent creators, the
// loser surfacing ErrConversationExists.
func (s *service) Create(ctx context.Context, senderID int64, req *CreateConversationRequest) (*Conversation, error) {
	exists, err := s.repo.PairExists(ctx, senderID, req.RecipientID)
	if err != nil {
		return nil, fmt.Errorf("checking conversation pair: %w", err)
	}
	if exists {
		return nil, ErrConversationExists
	}

	state, err := s.friends.State(ctx, senderID, req.RecipientID)
	if err != nil {
		return nil, fmt.Errorf("deriving friend state: %w", err)
	}
	if state != relationships.StateAccepted {
		return nil, ErrNotFriends
	}

	recipientID := req.RecipientID
	conv := &Conversation{
		ID:          uuid.New(),
		SenderID:    &senderID,
		RecipientID: &recipientID,
	}
	msg := &Message{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		SenderID:       &senderID,
		Body:           req.MessageBody,
	}

	if err := s.repo.CreateWithFirstMessage(ctx, conv, msg); err != nil {
		if errors.Is(err, ErrConversationExists) {
			return nil, ErrConversationExists
		}
		return nil, fmt.Errorf("creating conversation: %w", err)
	}

	conversationsCreated.Inc()
	messagesSent.Inc()
	conv.Messages = []Message{*msg}

	s.notify(conv.Counterpart(senderID), realtime.Event{
		ID:   conv.ID.String(),
		Kind: realtime.KindNew,
		Name: realtime.NameConversation,
	})

	return conv, nil
}

func (s *service) Get(ctx context.Context, convID uuid.UUID, requesterID int64, limit int, before *time.Time) (*Conversation, error) {
	conv, err := s.repo.GetConversation(ctx, convID)
	if err != nil {
		return nil, err
	}

	conv.Messages, err = s.GetMessages(ctx, convID, requesterID, limit, before)
	if err != nil {
		return nil, err
	}

	return conv, nil
}

func (s *service) ListForUser(ctx context.Context, userID int64) ([]*Conversation, error) {
	convs, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}

	for _, conv := range convs {
		conv.Messages, err = s.GetMessages(ctx, conv.ID, userID, DefaultPageSize, nil)
		if err != nil {
			return nil, err
		}
	}

	return convs, nil
}

func (s *service) DeleteConversation(ctx context.Context, convID uuid.UUID, requesterID int64) error {
	conv, err := s.repo.GetConversation(ctx, convID)
	if err != nil {
		return err
	}

	if !conv.IsParticipant(requesterID) {
		return ErrNotAllowed
	}

	if err := s.repo.DeleteCascade(ctx, convID); err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}

	s.notify(conv.Counterpart(requesterID), realtime.Event{
		ID:   convID.String(),
		Kind: realtime.KindDelete,
		Name: realtime.NameConversation,
	})

	return nil
}

func (s *service) SendMessage(ctx context.Context, convID uuid.UUID, senderID int64, body string) (*Message, error) {
	conv, err := s.repo.GetConversation(ctx, convID)
	if err != nil {
		return nil, err
	}

	if !conv.IsParticipant(senderID) {
		return nil, ErrNotAllowed
	}

	counterpart := conv.Counterpart(senderID)
	if counterpart == nil {
		return nil, ErrNotFriends
	}

	state, err := s.friends.State(ctx, senderID, *counterpart)
	if err != nil {
		return nil, fmt.Errorf("deriving friend state: %w", err)
	}
	if state != relationships.StateAccepted {
		return nil, ErrNotFriends
	}

	msg := &Message{
		ID:             uuid.New(),
		ConversationID: convID,
		SenderID:       &senderID,
		Body:           body,
	}

	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}

	messagesSent.Inc()

	s.notify(counterpart, realtime.Event{
		ID:   convID.String(),
		Kind: realtime.KindUpdate,
		Name: realtime.NameConversation,
	})

	return msg, nil
}

// GetMessages returns a page of messages in chronological order.
//
// With a before cursor the fetch is a single shot. The initial page
// instead widens adaptively: while the page has not covered the whole
// conversation and every counterpart message on it is still unread,
// the limit doubles and the page is refetched. This surfaces at least
// one already-read message when one exists instead of truncating an
// all-unread tail.
func (s *service) GetMessages(ctx context.Context, convID uuid.UUID, requesterID int64, limit int, before *time.Time) ([]Message, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}

	if before != nil {
		msgs, err := s.repo.ListMessages(ctx, convID, requesterID, limit, before)
		if err != nil {
			return nil, fmt.Errorf("listing messages: %w", err)
		}
		return sortChronological(msgs), nil
	}

	total, err := s.repo.CountMessages(ctx, convID)
	if err != nil {
		return nil, fmt.Errorf("counting messages: %w", err)
	}

	msgs, err := s.repo.ListMessages(ctx, convID, requesterID, limit, nil)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}

	for limit < total && allCounterpartUnread(msgs, requesterID) {
		limit *= 2
		if limit > total {
			// Clamp: doubling past the total fetches the same rows again
			limit = total
		}

		msgs, err = s.repo.ListMessages(ctx, convID, requesterID, limit, nil)
		if err != nil {
			return nil, fmt.Errorf("listing messages: %w", err)
		}
	}

	return sortChronological(msgs), nil
}

// DeleteMessages applies the two-phase soft delete to the batch. The
// whole batch is validated first: one unknown or already-deleted id
// fails everything and nothing is applied.
func (s *service) DeleteMessages(ctx context.Context, requesterID int64, ids []uuid.UUID) error {
	found, err := s.repo.GetMessagesByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("loading messages: %w", err)
	}

	byID := make(map[uuid.UUID]*Message, len(found))
	for i := range found {
		byID[found[i].ID] = &found[i]
	}

	var missing, deleted []uuid.UUID
	var markIDs, destroyIDs []uuid.UUID

	for _, id := range ids {
		msg, ok := byID[id]
		switch {
		case !ok:
			missing = append(missing, id)
		case msg.DeletedBy != nil && *msg.DeletedBy == requesterID:
			deleted = append(deleted, id)
		case msg.DeletedBy != nil:
			// Other participant already soft-deleted: second phase
			destroyIDs = append(destroyIDs, id)
		default:
			markIDs = append(markIDs, id)
		}
	}

	if len(missing) > 0 {
		return batchError(ErrMessagesNotFound, missing)
	}
	if len(deleted) > 0 {
		return batchError(ErrMessagesDeleted, deleted)
	}

	if err := s.repo.ApplyDeletions(ctx, requesterID, markIDs, destroyIDs); err != nil {
		return fmt.Errorf("deleting messages: %w", err)
	}

	messagesDeleted.Add(float64(len(ids)))
	return nil
}

// MarkRead stamps the batch with the current time. Like delete, the
// batch is all-or-nothing: any unknown or already-read id rejects the
// whole request.
//
// Senders are not excluded from marking their own messages read; the
// upstream behavior is preserved as-is.
func (s *service) MarkRead(ctx context.Context, requesterID int64, ids []uuid.UUID) error {
	found, err := s.repo.GetMessagesByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("loading messages: %w", err)
	}

	byID := make(map[uuid.UUID]*Message, len(found))
	for i := range found {
		byID[found[i].ID] = &found[i]
	}

	var missing, read []uuid.UUID
	for _, id := range ids {
		msg, ok := byID[id]
		switch {
		case !ok:
			missing = append(missing, id)
		case msg.Read != nil:
			read = append(read, id)
		}
	}

	if len(missing) > 0 {
		return batchError(ErrMessagesNotFound, missing)
	}
	if len(read) > 0 {
		return batchError(ErrMessagesRead, read)
	}

	if err := s.repo.MarkRead(ctx, ids, time.Now().UTC()); err != nil {
		return fmt.Errorf("marking messages read: %w", err)
	}

	messagesRead.Add(float64(len(ids)))
	return nil
}

func (s *service) notify(userID *int64, event realtime.Event) {
	if s.notifier == nil || userID == nil {
		return
	}
	s.notifier.Notify(*userID, event)
}

// allCounterpartUnread reports whether every message on the page sent
// by someone other than the requester is still unread. Vacuously true
// for a page with no counterpart messages.
func allCounterpartUnread(msgs []Message, requesterID int64) bool {
	for _, m := range msgs {
		if m.SenderID != nil && *m.SenderID == requesterID {
			continue
		}
		if m.Read != nil {
			return false
		}
	}
	return true
}

func sortChronological(msgs []Message) []Message {
	sort.Slice(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
	return msgs
}

// batchError attaches the full violating id set to a sentinel
func batchError(sentinel error, ids []uuid.UUID) error {
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = id.String()
	}
	return fmt.Errorf("%w: %s", sentinel, strings.Join(strs, ","))
}
