// internal/relationships/state_test.go

package relationships

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func friendEdge(from, to int64) Relationship {
	return Relationship{RequesterID: from, AddresseeID: to, Type: TypeFriend}
}

func blockEdge(from, to int64) Relationship {
	return Relationship{RequesterID: from, AddresseeID: to, Type: TypeBlock}
}

func TestDeriveState(t *testing.T) {
	tests := []struct {
		name  string
		edges []Relationship
		want  FriendState
	}{
		{"no edges", nil, StateNone},
		{"outgoing request", []Relationship{friendEdge(1, 2)}, StateRequested},
		{"incoming request", []Relationship{friendEdge(2, 1)}, StateRequestee},
		{"mutual edges", []Relationship{friendEdge(1, 2), friendEdge(2, 1)}, StateAccepted},
		{"own block", []Relationship{blockEdge(1, 2)}, StateBlocked},
		{"counterpart block", []Relationship{blockEdge(2, 1)}, StateBlocked},
		{"block wins over friendship", []Relationship{friendEdge(1, 2), blockEdge(2, 1)}, StateBlocked},
		{"unrelated edges ignored", []Relationship{friendEdge(3, 4), friendEdge(1, 2)}, StateRequested},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveState(tt.edges, 1, 2))
		})
	}
}

func TestDeriveStateBlockedIsSymmetric(t *testing.T) {
	edges := []Relationship{friendEdge(1, 2), friendEdge(2, 1), blockEdge(1, 2)}

	assert.Equal(t, StateBlocked, DeriveState(edges, 1, 2))
	assert.Equal(t, StateBlocked, DeriveState(edges, 2, 1))
}

func TestPartition(t *testing.T) {
	edges := []Relationship{
		// 2 is a mutual friend
		friendEdge(1, 2),
		friendEdge(2, 1),
		// 3 sent a request that 1 has not answered
		friendEdge(3, 1),
		// 4 only received a request from 1
		friendEdge(1, 4),
	}

	friends, requests := Partition(edges, 1)

	assert.ElementsMatch(t, []int64{2}, friends)
	assert.ElementsMatch(t, []int64{3}, requests)
}

func TestPartitionIgnoresBlockEdges(t *testing.T) {
	edges := []Relationship{
		friendEdge(1, 2),
		friendEdge(2, 1),
		blockEdge(3, 1),
	}

	friends, requests := Partition(edges, 1)

	assert.ElementsMatch(t, []int64{2}, friends)
	assert.Empty(t, requests)
}

func TestPartitionEmpty(t *testing.T) {
	friends, requests := Partition(nil, 1)
	assert.Empty(t, friends)
	assert.Empty(t, requests)
}
