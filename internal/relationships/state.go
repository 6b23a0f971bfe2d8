// internal/relationships/state.go
// Pure derivation of per-pair friend state from directed edges

package relationships

// DeriveState inspects the edges between a and b and derives the
// state of the pair as seen from a. Block edges win over friend edges
// regardless of direction.
func DeriveState(edges []Relationship, a, b int64) FriendState {
	var aToB, bToA *Relationship

	for i := range edges {
		e := &edges[i]
		switch {
		case e.RequesterID == a && e.AddresseeID == b:
			aToB = e
		case e.RequesterID == b && e.AddresseeID == a:
			bToA = e
		}
	}

	// A block in either direction supersedes any friendship
	if (aToB != nil && aToB.Type == TypeBlock) || (bToA != nil && bToA.Type == TypeBlock) {
		return StateBlocked
	}

	switch {
	case aToB != nil && bToA != nil:
		return StateAccepted
	case aToB != nil:
		return StateRequested
	case bToA != nil:
		return StateRequestee
	default:
		return StateNone
	}
}

// Partition classifies every counterpart in the user's friend edges:
// counterparts with edges in both directions are friends, counterparts
// who only sent an edge are incoming requests. Outgoing unreciprocated
// requests appear in neither list. Only FRIEND edges belong here.
func Partition(edges []Relationship, userID int64) (friends, requests []int64) {
	states := make(map[int64]FriendState)

	for _, e := range edges {
		if e.Type != TypeFriend {
			continue
		}
		if e.RequesterID == userID {
			if _, seen := states[e.AddresseeID]; seen {
				states[e.AddresseeID] = StateAccepted
			} else {
				states[e.AddresseeID] = StateRequested
			}
		} else if e.AddresseeID == userID {
			if _, seen := states[e.RequesterID]; seen {
				states[e.RequesterID] = StateAccepted
			} else {
				states[e.RequesterID] = StateRequestee
			}
		}
	}

	for id, state := range states {
		switch state {
		case StateAccepted:
			friends = append(friends, id)
		case StateRequestee:
			requests = append(requests, id)
		}
	}

	return friends, requests
}
