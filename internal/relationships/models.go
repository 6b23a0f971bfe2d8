// internal/relationships/models.go

package relationships

import (
	"time"

	"github.com/ojpierre/mutuals-backend/internal/users"
)

// Type is the kind of a directed relationship edge
type Type string

const (
	TypeFriend Type = "FRIEND"
	TypeBlock  Type = "BLOCK"
)

// FriendState is the derived state of a user pair, seen from one side
type FriendState string

const (
	// StateRequested: I sent a friend request, no reply yet
	StateRequested FriendState = "REQUESTED"
	// StateRequestee: they sent a request I have not answered
	StateRequestee FriendState = "REQUESTEE"
	// StateAccepted: friend edges exist in both directions
	StateAccepted FriendState = "ACCEPTED"
	// StateBlocked: a block edge exists in either direction
	StateBlocked FriendState = "BLOCKED"
	// StateNone: no edges between the pair
	StateNone FriendState = ""
)

// Relationship is a directed edge between two users. At most one edge
// exists per ordered pair; the reverse pair may hold a different edge.
type Relationship struct {
	RequesterID int64     `json:"requesterId" db:"requester_id"`
	AddresseeID int64     `json:"addresseeId" db:"addressee_id"`
	Type        Type      `json:"type" db:"relationship_type"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// FriendsResponse partitions everyone relevant to the requester:
// accepted friends, incoming requests awaiting a reply, and
// conversation counterparts who are not (or no longer) friends.
type FriendsResponse struct {
	Friends        []users.Summary `json:"friends"`
	FriendRequests []users.Summary `json:"friendRequests,omitempty"`
	Others         []users.Summary `json:"others,omitempty"`
}
