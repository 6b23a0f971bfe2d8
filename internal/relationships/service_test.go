// internal/relationships/service_test.go

package relationships

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ojpierre/mutuals-backend/internal/realtime"
	"github.com/ojpierre/mutuals-backend/internal/users"
)

type fakeRepo struct {
	edges []Relationship
}

func (f *fakeRepo) ListBetween(ctx context.Context, a, b int64) ([]Relationship, error) {
	var out []Relationship
	for _, e := range f.edges {
		if (e.RequesterID == a && e.AddresseeID == b) || (e.RequesterID == b && e.AddresseeID == a) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListFriendEdges(ctx context.Context, userID int64) ([]Relationship, error) {
	var out []Relationship
	for _, e := range f.edges {
		if e.Type == TypeFriend && (e.RequesterID == userID || e.AddresseeID == userID) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeRepo) Create(ctx context.Context, rel *Relationship) error {
	f.edges = append(f.edges, *rel)
	return nil
}

func (f *fakeRepo) DeleteBetween(ctx context.Context, a, b int64) error {
	var kept []Relationship
	for _, e := range f.edges {
		if (e.RequesterID == a && e.AddresseeID == b) || (e.RequesterID == b && e.AddresseeID == a) {
			continue
		}
		kept = append(kept, e)
	}
	f.edges = kept
	return nil
}

func (f *fakeRepo) ReplaceWithBlock(ctx context.Context, requesterID, addresseeID int64) error {
	if err := f.DeleteBetween(ctx, requesterID, addresseeID); err != nil {
		return err
	}
	f.edges = append(f.edges, Relationship{RequesterID: requesterID, AddresseeID: addresseeID, Type: TypeBlock})
	return nil
}

type fakeDirectory struct {
	byUsername map[string]*users.User
}

func (f *fakeDirectory) GetByUsername(ctx context.Context, username string) (*users.User, error) {
	u, ok := f.byUsername[username]
	if !ok {
		return nil, users.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeDirectory) GetSummariesByIDs(ctx context.Context, ids []int64, private bool) ([]users.Summary, error) {
	summaries := make([]users.Summary, 0, len(ids))
	for _, id := range ids {
		summaries = append(summaries, users.Summary{ID: id})
	}
	return summaries, nil
}

type fakePeers struct {
	ids []int64
}

func (f *fakePeers) PeerIDs(ctx context.Context, userID int64) ([]int64, error) {
	return f.ids, nil
}

type fakeNotifier struct {
	notified []int64
	events   []realtime.Event
}

func (f *fakeNotifier) Notify(userID int64, event realtime.Event) {
	f.notified = append(f.notified, userID)
	f.events = append(f.events, event)
}

func newTestService(t *testing.T, edges []Relationship) (Service, *fakeRepo, *fakeNotifier) {
	t.Helper()

	repo := &fakeRepo{edges: edges}
	dir := &fakeDirectory{byUsername: map[string]*users.User{
		"alice": {ID: 1, Username: "alice"},
		"bob":   {ID: 2, Username: "bob"},
		"carol": {ID: 3, Username: "carol"},
	}}
	notifier := &fakeNotifier{}

	svc := NewService(repo, dir, &fakePeers{}, notifier)
	return svc, repo, notifier
}

func TestAddFriend(t *testing.T) {
	svc, repo, notifier := newTestService(t, nil)

	err := svc.AddFriend(context.Background(), 1, "bob")
	require.NoError(t, err)

	require.Len(t, repo.edges, 1)
	assert.Equal(t, int64(1), repo.edges[0].RequesterID)
	assert.Equal(t, int64(2), repo.edges[0].AddresseeID)
	assert.Equal(t, TypeFriend, repo.edges[0].Type)

	// Only the addressee is told
	assert.Equal(t, []int64{2}, notifier.notified)
	assert.Equal(t, realtime.KindUpdate, notifier.events[0].Kind)
	assert.Equal(t, realtime.NameRelationship, notifier.events[0].Name)
}

func TestAddFriendSelf(t *testing.T) {
	svc, _, _ := newTestService(t, nil)

	err := svc.AddFriend(context.Background(), 1, "alice")
	assert.ErrorIs(t, err, ErrSelfAction)
}

func TestAddFriendUnknownUser(t *testing.T) {
	svc, _, _ := newTestService(t, nil)

	err := svc.AddFriend(context.Background(), 1, "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAddFriendTwice(t *testing.T) {
	svc, repo, _ := newTestService(t, []Relationship{friendEdge(1, 2)})

	err := svc.AddFriend(context.Background(), 1, "bob")
	assert.ErrorIs(t, err, ErrAlreadyAdded)
	assert.Len(t, repo.edges, 1)
}

func TestAddFriendBlockedByTarget(t *testing.T) {
	// The counterpart's block must win regardless of edge order
	svc, repo, notifier := newTestService(t, []Relationship{
		friendEdge(1, 2),
		blockEdge(2, 1),
	})

	err := svc.AddFriend(context.Background(), 1, "bob")
	assert.ErrorIs(t, err, ErrBlockedByUser)
	assert.Len(t, repo.edges, 2)
	assert.Empty(t, notifier.notified)
}

func TestAddFriendOwnBlock(t *testing.T) {
	svc, _, _ := newTestService(t, []Relationship{blockEdge(1, 2)})

	err := svc.AddFriend(context.Background(), 1, "bob")
	assert.ErrorIs(t, err, ErrUserBlocked)
}

func TestBlockReplacesFriendship(t *testing.T) {
	svc, repo, notifier := newTestService(t, []Relationship{
		friendEdge(1, 2),
		friendEdge(2, 1),
	})

	err := svc.Block(context.Background(), 1, "bob")
	require.NoError(t, err)

	require.Len(t, repo.edges, 1)
	assert.Equal(t, TypeBlock, repo.edges[0].Type)
	assert.Equal(t, int64(1), repo.edges[0].RequesterID)
	assert.Equal(t, []int64{2}, notifier.notified)
}

func TestBlockWhileBlockedDoesNotMutate(t *testing.T) {
	svc, repo, notifier := newTestService(t, []Relationship{
		friendEdge(1, 2),
		blockEdge(2, 1),
	})

	err := svc.Block(context.Background(), 1, "bob")
	assert.ErrorIs(t, err, ErrBlockedByUser)

	// The blocker's edge survives untouched
	assert.Len(t, repo.edges, 2)
	assert.Empty(t, notifier.notified)
}

func TestUnblockOnlyByBlocker(t *testing.T) {
	svc, repo, _ := newTestService(t, []Relationship{blockEdge(2, 1)})

	err := svc.Unblock(context.Background(), 1, "bob")
	assert.ErrorIs(t, err, ErrBlockedByUser)
	assert.Len(t, repo.edges, 1)

	svc2, repo2, _ := newTestService(t, []Relationship{blockEdge(1, 2)})
	err = svc2.Unblock(context.Background(), 1, "bob")
	require.NoError(t, err)
	assert.Empty(t, repo2.edges)
}

func TestRemoveFriend(t *testing.T) {
	svc, repo, notifier := newTestService(t, []Relationship{
		friendEdge(1, 2),
		friendEdge(2, 1),
		friendEdge(1, 3),
	})

	err := svc.RemoveFriend(context.Background(), 1, "bob")
	require.NoError(t, err)

	// Both directions removed, unrelated edge kept
	require.Len(t, repo.edges, 1)
	assert.Equal(t, int64(3), repo.edges[0].AddresseeID)
	assert.Equal(t, []int64{2}, notifier.notified)
}

func TestRemoveFriendWhileBlockedDoesNotMutate(t *testing.T) {
	svc, repo, _ := newTestService(t, []Relationship{
		friendEdge(1, 2),
		blockEdge(2, 1),
	})

	err := svc.RemoveFriend(context.Background(), 1, "bob")
	assert.ErrorIs(t, err, ErrBlockedByUser)
	assert.Len(t, repo.edges, 2)
}

func TestState(t *testing.T) {
	svc, _, _ := newTestService(t, []Relationship{
		friendEdge(1, 2),
		friendEdge(2, 1),
	})

	state, err := svc.State(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, StateAccepted, state)
}

func TestListFriends(t *testing.T) {
	repo := &fakeRepo{edges: []Relationship{
		friendEdge(1, 2),
		friendEdge(2, 1),
		friendEdge(3, 1),
	}}
	dir := &fakeDirectory{byUsername: map[string]*users.User{}}
	// 2 is a friend, 9 is a conversation counterpart who is not
	peers := &fakePeers{ids: []int64{2, 9}}

	svc := NewService(repo, dir, peers, nil)

	resp, err := svc.ListFriends(context.Background(), 1, true)
	require.NoError(t, err)

	require.Len(t, resp.Friends, 1)
	assert.Equal(t, int64(2), resp.Friends[0].ID)

	require.Len(t, resp.FriendRequests, 1)
	assert.Equal(t, int64(3), resp.FriendRequests[0].ID)

	require.Len(t, resp.Others, 1)
	assert.Equal(t, int64(9), resp.Others[0].ID)
}

func TestListFriendsWithoutRequests(t *testing.T) {
	repo := &fakeRepo{edges: []Relationship{
		friendEdge(1, 2),
		friendEdge(2, 1),
		friendEdge(3, 1),
	}}
	svc := NewService(repo, &fakeDirectory{}, &fakePeers{ids: []int64{9}}, nil)

	resp, err := svc.ListFriends(context.Background(), 1, false)
	require.NoError(t, err)

	assert.Len(t, resp.Friends, 1)
	assert.Empty(t, resp.FriendRequests)
	assert.Empty(t, resp.Others)
}
