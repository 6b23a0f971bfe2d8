// internal/conversations/service_test.go

package conversations

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ojpierre/mutuals-backend/internal/realtime"
	"github.com/ojpierre/mutuals-backend/internal/relationships"
)

type fakeRepo struct {
	convs    map[uuid.UUID]*Conversation
	messages map[uuid.UUID]*Message

	listCalls int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		convs:    make(map[uuid.UUID]*Conversation),
		messages: make(map[uuid.UUID]*Message),
	}
}

func (f *fakeRepo) pairTaken(a, b *int64) bool {
	for _, c := range f.convs {
		if samePair(c.SenderID, c.RecipientID, a, b) {
			return true
		}
	}
	return false
}

func samePair(s1, r1, s2, r2 *int64) bool {
	eq := func(x, y *int64) bool {
		return x != nil && y != nil && *x == *y
	}
	return (eq(s1, s2) && eq(r1, r2)) || (eq(s1, r2) && eq(r1, s2))
}

func (f *fakeRepo) CreateWithFirstMessage(ctx context.Context, conv *Conversation, msg *Message) error {
	if f.pairTaken(conv.SenderID, conv.RecipientID) {
		return ErrConversationExists
	}
	conv.CreatedAt = time.Now()
	msg.CreatedAt = time.Now()
	f.convs[conv.ID] = conv
	f.messages[msg.ID] = msg
	return nil
}

func (f *fakeRepo) GetConversation(ctx context.Context, id uuid.UUID) (*Conversation, error) {
	conv, ok := f.convs[id]
	if !ok {
		return nil, ErrConversationNotFound
	}
	cp := *conv
	cp.Messages = nil
	return &cp, nil
}

func (f *fakeRepo) ListForUser(ctx context.Context, userID int64) ([]*Conversation, error) {
	var out []*Conversation
	for _, c := range f.convs {
		if c.IsParticipant(userID) {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeRepo) PairExists(ctx context.Context, a, b int64) (bool, error) {
	return f.pairTaken(&a, &b), nil
}

func (f *fakeRepo) DeleteCascade(ctx context.Context, id uuid.UUID) error {
	delete(f.convs, id)
	for mid, m := range f.messages {
		if m.ConversationID == id {
			delete(f.messages, mid)
		}
	}
	return nil
}

func (f *fakeRepo) PeerIDs(ctx context.Context, userID int64) ([]int64, error) {
	var out []int64
	for _, c := range f.convs {
		if !c.IsParticipant(userID) {
			continue
		}
		if peer := c.Counterpart(userID); peer != nil {
			out = append(out, *peer)
		}
	}
	return out, nil
}

func (f *fakeRepo) CreateMessage(ctx context.Context, msg *Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	f.messages[msg.ID] = msg
	return nil
}

func (f *fakeRepo) GetMessagesByIDs(ctx context.Context, ids []uuid.UUID) ([]Message, error) {
	var out []Message
	for _, id := range ids {
		if m, ok := f.messages[id]; ok {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListMessages(ctx context.Context, convID uuid.UUID, requesterID int64, limit int, before *time.Time) ([]Message, error) {
	f.listCalls++

	var out []Message
	for _, m := range f.messages {
		if m.ConversationID != convID {
			continue
		}
		if m.DeletedBy != nil && *m.DeletedBy == requesterID {
			continue
		}
		if before != nil && !m.CreatedAt.Before(*before) {
			continue
		}
		out = append(out, *m)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRepo) CountMessages(ctx context.Context, convID uuid.UUID) (int, error) {
	n := 0
	for _, m := range f.messages {
		if m.ConversationID == convID {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) MarkRead(ctx context.Context, ids []uuid.UUID, readAt time.Time) error {
	for _, id := range ids {
		if m, ok := f.messages[id]; ok {
			at := readAt
			m.Read = &at
		}
	}
	return nil
}

func (f *fakeRepo) ApplyDeletions(ctx context.Context, userID int64, markIDs, destroyIDs []uuid.UUID) error {
	for _, id := range markIDs {
		if m, ok := f.messages[id]; ok {
			uid := userID
			m.DeletedBy = &uid
		}
	}
	for _, id := range destroyIDs {
		delete(f.messages, id)
	}
	return nil
}

type fakeFriends struct {
	state relationships.FriendState
}

func (f *fakeFriends) State(ctx context.Context, a, b int64) (relationships.FriendState, error) {
	return f.state, nil
}

type captureNotifier struct {
	notified []int64
	events   []realtime.Event
}

func (c *captureNotifier) Notify(userID int64, event realtime.Event) {
	c.notified = append(c.notified, userID)
	c.events = append(c.events, event)
}

func newTestService(t *testing.T) (Service, *fakeRepo, *captureNotifier) {
	t.Helper()
	repo := newFakeRepo()
	notifier := &captureNotifier{}
	svc := NewService(repo, &fakeFriends{state: relationships.StateAccepted}, notifier)
	return svc, repo, notifier
}

// seedConversation inserts a conversation between a and b directly
// into the fake store.
func seedConversation(repo *fakeRepo, a, b int64) *Conversation {
	conv := &Conversation{ID: uuid.New(), SenderID: &a, RecipientID: &b, CreatedAt: time.Now()}
	repo.convs[conv.ID] = conv
	return conv
}

// seedMessage inserts a message with a distinct timestamp offset so
// ordering is deterministic.
func seedMessage(repo *fakeRepo, conv *Conversation, sender int64, offset int, read bool) *Message {
	msg := &Message{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		SenderID:       &sender,
		Body:           "hello",
		CreatedAt:      time.Unix(1_700_000_000, 0).Add(time.Duration(offset) * time.Second),
	}
	if read {
		at := msg.CreatedAt.Add(time.Minute)
		msg.Read = &at
	}
	repo.messages[msg.ID] = msg
	return msg
}

func TestCreateConversation(t *testing.T) {
	svc, repo, notifier := newTestService(t)

	conv, err := svc.Create(context.Background(), 1, &CreateConversationRequest{
		RecipientID: 2,
		MessageBody: "hey there",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), *conv.SenderID)
	assert.Equal(t, int64(2), *conv.RecipientID)
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, "hey there", conv.Messages[0].Body)
	assert.Len(t, repo.convs, 1)

	// Recipient hears about it, sender does not
	require.Equal(t, []int64{2}, notifier.notified)
	assert.Equal(t, realtime.KindNew, notifier.events[0].Kind)
	assert.Equal(t, realtime.NameConversation, notifier.events[0].Name)
	assert.Equal(t, conv.ID.String(), notifier.events[0].ID)
}

func TestCreateConversationPairIsUnique(t *testing.T) {
	svc, repo, _ := newTestService(t)
	seedConversation(repo, 1, 2)

	_, err := svc.Create(context.Background(), 1, &CreateConversationRequest{RecipientID: 2, MessageBody: "again"})
	assert.ErrorIs(t, err, ErrConversationExists)

	// Same pair seen from the other side
	_, err = svc.Create(context.Background(), 2, &CreateConversationRequest{RecipientID: 1, MessageBody: "me too"})
	assert.ErrorIs(t, err, ErrConversationExists)

	assert.Len(t, repo.convs, 1)
}

func TestCreateConversationRequiresFriendship(t *testing.T) {
	repo := newFakeRepo()

	for _, state := range []relationships.FriendState{
		relationships.StateNone,
		relationships.StateRequested,
		relationships.StateRequestee,
		relationships.StateBlocked,
	} {
		svc := NewService(repo, &fakeFriends{state: state}, nil)
		_, err := svc.Create(context.Background(), 1, &CreateConversationRequest{RecipientID: 2, MessageBody: "hi"})
		assert.ErrorIs(t, err, ErrNotFriends, "state %q should refuse", state)
	}

	assert.Empty(t, repo.convs)
}

func TestSendMessage(t *testing.T) {
	svc, repo, notifier := newTestService(t)
	conv := seedConversation(repo, 1, 2)

	msg, err := svc.SendMessage(context.Background(), conv.ID, 1, "how are you")
	require.NoError(t, err)
	assert.Equal(t, conv.ID, msg.ConversationID)

	require.Equal(t, []int64{2}, notifier.notified)
	assert.Equal(t, realtime.KindUpdate, notifier.events[0].Kind)
	assert.Equal(t, conv.ID.String(), notifier.events[0].ID)
}

func TestSendMessageNonParticipant(t *testing.T) {
	svc, repo, _ := newTestService(t)
	conv := seedConversation(repo, 1, 2)

	_, err := svc.SendMessage(context.Background(), conv.ID, 3, "intruding")
	assert.ErrorIs(t, err, ErrNotAllowed)
}

func TestSendMessageAfterFriendshipEnds(t *testing.T) {
	repo := newFakeRepo()
	conv := seedConversation(repo, 1, 2)

	svc := NewService(repo, &fakeFriends{state: relationships.StateBlocked}, nil)

	_, err := svc.SendMessage(context.Background(), conv.ID, 1, "still there?")
	assert.ErrorIs(t, err, ErrNotFriends)
}

func TestSendMessageUnknownConversation(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.SendMessage(context.Background(), uuid.New(), 1, "hello?")
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestGetMessagesSmallConversation(t *testing.T) {
	svc, repo, _ := newTestService(t)
	conv := seedConversation(repo, 1, 2)

	// Three unread from the counterpart; fewer than one page, so no
	// widening is needed or possible
	for i := 0; i < 3; i++ {
		seedMessage(repo, conv, 2, i, false)
	}

	msgs, err := svc.GetMessages(context.Background(), conv.ID, 1, DefaultPageSize, nil)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, 1, repo.listCalls)

	// Chronological order
	assert.True(t, msgs[0].CreatedAt.Before(msgs[1].CreatedAt))
	assert.True(t, msgs[1].CreatedAt.Before(msgs[2].CreatedAt))
}

func TestGetMessagesWidensOverUnreadRun(t *testing.T) {
	svc, repo, _ := newTestService(t)
	conv := seedConversation(repo, 1, 2)

	// Oldest message is read, the following 19 are not. The first page
	// of 10 is all unread, so the window doubles and picks it up.
	seedMessage(repo, conv, 2, 0, true)
	for i := 1; i < 20; i++ {
		seedMessage(repo, conv, 2, i, false)
	}

	msgs, err := svc.GetMessages(context.Background(), conv.ID, 1, DefaultPageSize, nil)
	require.NoError(t, err)

	assert.Len(t, msgs, 20)
	assert.Equal(t, 2, repo.listCalls)
	assert.NotNil(t, msgs[0].Read)
}

func TestGetMessagesWideningClampsToTotal(t *testing.T) {
	svc, repo, _ := newTestService(t)
	conv := seedConversation(repo, 1, 2)

	// 15 messages, every one unread: doubling 10 would overshoot, the
	// window clamps to 15 and the loop terminates
	for i := 0; i < 15; i++ {
		seedMessage(repo, conv, 2, i, false)
	}

	msgs, err := svc.GetMessages(context.Background(), conv.ID, 1, DefaultPageSize, nil)
	require.NoError(t, err)

	assert.Len(t, msgs, 15)
	assert.Equal(t, 2, repo.listCalls)
}

func TestGetMessagesBeforeCursorIsOneShot(t *testing.T) {
	svc, repo, _ := newTestService(t)
	conv := seedConversation(repo, 1, 2)

	for i := 0; i < 20; i++ {
		seedMessage(repo, conv, 2, i, false)
	}

	cutoff := time.Unix(1_700_000_000, 0).Add(10 * time.Second)
	msgs, err := svc.GetMessages(context.Background(), conv.ID, 1, 5, &cutoff)
	require.NoError(t, err)

	// No widening with an explicit cursor, unread or not
	assert.Len(t, msgs, 5)
	assert.Equal(t, 1, repo.listCalls)
	for _, m := range msgs {
		assert.True(t, m.CreatedAt.Before(cutoff))
	}
}

func TestGetMessagesExcludesOwnDeletions(t *testing.T) {
	svc, repo, _ := newTestService(t)
	conv := seedConversation(repo, 1, 2)

	visible := seedMessage(repo, conv, 2, 0, true)
	hidden := seedMessage(repo, conv, 2, 1, true)
	requester := int64(1)
	hidden.DeletedBy = &requester

	msgs, err := svc.GetMessages(context.Background(), conv.ID, 1, DefaultPageSize, nil)
	require.NoError(t, err)

	require.Len(t, msgs, 1)
	assert.Equal(t, visible.ID, msgs[0].ID)
}

func TestDeleteMessagesFirstPhaseMarks(t *testing.T) {
	svc, repo, _ := newTestService(t)
	conv := seedConversation(repo, 1, 2)
	msg := seedMessage(repo, conv, 2, 0, true)

	err := svc.DeleteMessages(context.Background(), 1, []uuid.UUID{msg.ID})
	require.NoError(t, err)

	// Still stored, hidden only from the deleter
	stored := repo.messages[msg.ID]
	require.NotNil(t, stored)
	require.NotNil(t, stored.DeletedBy)
	assert.Equal(t, int64(1), *stored.DeletedBy)
}

func TestDeleteMessagesSecondPhaseDestroys(t *testing.T) {
	svc, repo, _ := newTestService(t)
	conv := seedConversation(repo, 1, 2)
	msg := seedMessage(repo, conv, 2, 0, true)
	other := int64(2)
	msg.DeletedBy = &other

	err := svc.DeleteMessages(context.Background(), 1, []uuid.UUID{msg.ID})
	require.NoError(t, err)

	_, exists := repo.messages[msg.ID]
	assert.False(t, exists)
}

func TestDeleteMessagesTwiceBySameUser(t *testing.T) {
	svc, repo, _ := newTestService(t)
	conv := seedConversation(repo, 1, 2)
	msg := seedMessage(repo, conv, 2, 0, true)
	self := int64(1)
	msg.DeletedBy = &self

	err := svc.DeleteMessages(context.Background(), 1, []uuid.UUID{msg.ID})
	assert.ErrorIs(t, err, ErrMessagesDeleted)
	assert.Contains(t, err.Error(), msg.ID.String())
}

func TestDeleteMessagesBatchIsAtomic(t *testing.T) {
	svc, repo, _ := newTestService(t)
	conv := seedConversation(repo, 1, 2)
	good := seedMessage(repo, conv, 2, 0, true)
	missing := uuid.New()

	err := svc.DeleteMessages(context.Background(), 1, []uuid.UUID{good.ID, missing})
	assert.ErrorIs(t, err, ErrMessagesNotFound)
	assert.Contains(t, err.Error(), missing.String())

	// The valid half of the batch was not applied
	assert.Nil(t, repo.messages[good.ID].DeletedBy)
}

func TestMarkRead(t *testing.T) {
	svc, repo, _ := newTestService(t)
	conv := seedConversation(repo, 1, 2)
	m1 := seedMessage(repo, conv, 2, 0, false)
	m2 := seedMessage(repo, conv, 2, 1, false)

	err := svc.MarkRead(context.Background(), 1, []uuid.UUID{m1.ID, m2.ID})
	require.NoError(t, err)

	assert.NotNil(t, repo.messages[m1.ID].Read)
	assert.NotNil(t, repo.messages[m2.ID].Read)
}

func TestMarkReadRejectsAlreadyRead(t *testing.T) {
	svc, repo, _ := newTestService(t)
	conv := seedConversation(repo, 1, 2)
	read := seedMessage(repo, conv, 2, 0, true)
	unread := seedMessage(repo, conv, 2, 1, false)

	err := svc.MarkRead(context.Background(), 1, []uuid.UUID{read.ID, unread.ID})
	assert.ErrorIs(t, err, ErrMessagesRead)

	// Nothing applied
	assert.Nil(t, repo.messages[unread.ID].Read)
}

func TestMarkReadUnknownID(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.MarkRead(context.Background(), 1, []uuid.UUID{uuid.New()})
	assert.ErrorIs(t, err, ErrMessagesNotFound)
}

func TestDeleteConversation(t *testing.T) {
	svc, repo, notifier := newTestService(t)
	conv := seedConversation(repo, 1, 2)
	seedMessage(repo, conv, 1, 0, false)
	seedMessage(repo, conv, 2, 1, false)

	err := svc.DeleteConversation(context.Background(), conv.ID, 1)
	require.NoError(t, err)

	assert.Empty(t, repo.convs)
	assert.Empty(t, repo.messages)

	require.Equal(t, []int64{2}, notifier.notified)
	assert.Equal(t, realtime.KindDelete, notifier.events[0].Kind)
	assert.Equal(t, conv.ID.String(), notifier.events[0].ID)
}

func TestDeleteConversationNonParticipant(t *testing.T) {
	svc, repo, _ := newTestService(t)
	conv := seedConversation(repo, 1, 2)

	err := svc.DeleteConversation(context.Background(), conv.ID, 3)
	assert.ErrorIs(t, err, ErrNotAllowed)
	assert.Len(t, repo.convs, 1)
}

func TestDeleteConversationDetachedCounterpart(t *testing.T) {
	svc, repo, notifier := newTestService(t)

	// Counterpart side already removed; deletion succeeds silently
	one := int64(1)
	conv := &Conversation{ID: uuid.New(), SenderID: &one, RecipientID: nil}
	repo.convs[conv.ID] = conv

	err := svc.DeleteConversation(context.Background(), conv.ID, 1)
	require.NoError(t, err)
	assert.Empty(t, notifier.notified)
}

func TestListForUser(t *testing.T) {
	svc, repo, _ := newTestService(t)
	conv := seedConversation(repo, 1, 2)
	seedConversation(repo, 3, 4)
	seedMessage(repo, conv, 2, 0, true)

	convs, err := svc.ListForUser(context.Background(), 1)
	require.NoError(t, err)

	require.Len(t, convs, 1)
	assert.Equal(t, conv.ID, convs[0].ID)
	assert.Len(t, convs[0].Messages, 1)
}
