// internal/relationships/service.go

package relationships

import (
	"context"
	"errors"
	"fmt"

	"github.com/ojpierre/mutuals-backend/internal/realtime"
	"github.com/ojpierre/mutuals-backend/internal/users"
)

var (
	ErrSelfAction   = errors.New("cannot perform this action on yourself")
	ErrUserNotFound = errors.New("user not found")
	ErrAlreadyAdded = errors.New("user already added")
	// ErrUserBlocked: the actor has a live BLOCK edge toward the target
	ErrUserBlocked = errors.New("user blocked")
	// ErrBlockedByUser: the target has blocked the actor. Deliberately
	// indistinguishable from an unknown user on the wire.
	ErrBlockedByUser = errors.New("user not found")
)

type Service interface {
	// State derives the friend state of the pair as seen from a.
	State(ctx context.Context, a, b int64) (FriendState, error)

	ListFriends(ctx context.Context, userID int64, includeRequests bool) (*FriendsResponse, error)
	AddFriend(ctx context.Context, requesterID int64, username string) error
	Block(ctx context.Context, requesterID int64, username string) error
	Unblock(ctx context.Context, requesterID int64, username string) error
	RemoveFriend(ctx context.Context, requesterID int64, username string) error
}

type service struct {
	repo      Repository
	directory Directory
	peers     ConversationPeers
	notifier  realtime.Notifier
	locks     *pairLock
}

func NewService(repo Repository, directory Directory, peers ConversationPeers, notifier realtime.Notifier) Service {
	return &service{
		repo:      repo,
		directory: directory,
		peers:     peers,
		notifier:  notifier,
		locks:     newPairLock(),
	}
}

func (s *service) State(ctx context.Context, a, b int64) (FriendState, error) {
	edges, err := s.repo.ListBetween(ctx, a, b)
	if err != nil {
		return StateNone, fmt.Errorf("listing edges: %w", err)
	}
	return DeriveState(edges, a, b), nil
}

func (s *service) ListFriends(ctx context.Context, userID int64, includeRequests bool) (*FriendsResponse, error) {
	edges, err := s.repo.ListFriendEdges(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing friend edges: %w", err)
	}

	friendIDs, requestIDs := Partition(edges, userID)

	resp := &FriendsResponse{Friends: []users.Summary{}}

	resp.Friends, err = s.directory.GetSummariesByIDs(ctx, friendIDs, true)
	if err != nil {
		return nil, fmt.Errorf("loading friends: %w", err)
	}

	if !includeRequests {
		return resp, nil
	}

	resp.FriendRequests, err = s.directory.GetSummariesByIDs(ctx, requestIDs, false)
	if err != nil {
		return nil, fmt.Errorf("loading friend requests: %w", err)
	}

	// Conversation counterparts who are not friends still show up so
	// the client can render their old conversations.
	peerIDs, err := s.peers.PeerIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading conversation peers: %w", err)
	}

	isFriend := make(map[int64]bool, len(friendIDs))
	for _, id := range friendIDs {
		isFriend[id] = true
	}

	var otherIDs []int64
	for _, id := range peerIDs {
		if !isFriend[id] {
			otherIDs = append(otherIDs, id)
		}
	}

	resp.Others, err = s.directory.GetSummariesByIDs(ctx, otherIDs, false)
	if err != nil {
		return nil, fmt.Errorf("loading conversation counterparts: %w", err)
	}

	return resp, nil
}

func (s *service) AddFriend(ctx context.Context, requesterID int64, username string) error {
	target, err := s.lookupOther(ctx, requesterID, username)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(requesterID, target.ID)
	defer unlock()

	edges, err := s.repo.ListBetween(ctx, requesterID, target.ID)
	if err != nil {
		return fmt.Errorf("listing edges: %w", err)
	}

	for _, e := range edges {
		if e.RequesterID == target.ID && e.Type == TypeBlock {
			return ErrBlockedByUser
		}
	}
	for _, e := range edges {
		if e.RequesterID == requesterID {
			if e.Type == TypeBlock {
				return ErrUserBlocked
			}
			return ErrAlreadyAdded
		}
	}

	rel := &Relationship{
		RequesterID: requesterID,
		AddresseeID: target.ID,
		Type:        TypeFriend,
	}
	if err := s.repo.Create(ctx, rel); err != nil {
		return fmt.Errorf("creating friend edge: %w", err)
	}

	s.notifyRelationship(target.ID)
	return nil
}

func (s *service) Block(ctx context.Context, requesterID int64, username string) error {
	target, err := s.lookupOther(ctx, requesterID, username)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(requesterID, target.ID)
	defer unlock()

	// The scan aborts before any mutation: a party that is already
	// blocked never removes the blocker's edges.
	if err := s.checkBlockEdges(ctx, requesterID, target.ID); err != nil {
		return err
	}

	if err := s.repo.ReplaceWithBlock(ctx, requesterID, target.ID); err != nil {
		return fmt.Errorf("blocking user: %w", err)
	}

	s.notifyRelationship(target.ID)
	return nil
}

func (s *service) Unblock(ctx context.Context, requesterID int64, username string) error {
	target, err := s.lookupOther(ctx, requesterID, username)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(requesterID, target.ID)
	defer unlock()

	edges, err := s.repo.ListBetween(ctx, requesterID, target.ID)
	if err != nil {
		return fmt.Errorf("listing edges: %w", err)
	}

	// Asymmetric: only the blocker may unblock
	for _, e := range edges {
		if e.Type == TypeBlock && e.RequesterID == target.ID {
			return ErrBlockedByUser
		}
	}

	if err := s.repo.DeleteBetween(ctx, requesterID, target.ID); err != nil {
		return fmt.Errorf("removing edges: %w", err)
	}

	s.notifyRelationship(target.ID)
	return nil
}

func (s *service) RemoveFriend(ctx context.Context, requesterID int64, username string) error {
	target, err := s.lookupOther(ctx, requesterID, username)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(requesterID, target.ID)
	defer unlock()

	if err := s.checkBlockEdges(ctx, requesterID, target.ID); err != nil {
		return err
	}

	if err := s.repo.DeleteBetween(ctx, requesterID, target.ID); err != nil {
		return fmt.Errorf("removing edges: %w", err)
	}

	s.notifyRelationship(target.ID)
	return nil
}

// checkBlockEdges enforces the tie-break rule shared by block and
// remove: abort without mutating the moment a BLOCK edge is found.
func (s *service) checkBlockEdges(ctx context.Context, requesterID, targetID int64) error {
	edges, err := s.repo.ListBetween(ctx, requesterID, targetID)
	if err != nil {
		return fmt.Errorf("listing edges: %w", err)
	}

	for _, e := range edges {
		if e.Type != TypeBlock {
			continue
		}
		if e.RequesterID == targetID {
			return ErrBlockedByUser
		}
		return ErrUserBlocked
	}
	return nil
}

func (s *service) lookupOther(ctx context.Context, requesterID int64, username string) (*users.User, error) {
	target, err := s.directory.GetByUsername(ctx, username)
	if err != nil {
		return nil, ErrUserNotFound
	}
	if target.ID == requesterID {
		return nil, ErrSelfAction
	}
	return target, nil
}

// notifyRelationship tells the counterpart their relationship view
// changed. The actor is never notified.
func (s *service) notifyRelationship(userID int64) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(userID, realtime.Event{
		Kind: realtime.KindUpdate,
		Name: realtime.NameRelationship,
	})
}
