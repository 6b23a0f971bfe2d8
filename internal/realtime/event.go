// internal/realtime/event.go

package realtime

// Event kinds
const (
	KindNew    = "NEW"
	KindUpdate = "UPDATE"
	KindDelete = "DELETE"
)

// Event names
const (
	NameConversation = "conversation"
	NameRelationship = "relationship"
)

// Event is the payload pushed to a live client when state it cares
// about changes. Clients reconcile details over REST; the event only
// says what changed.
type Event struct {
	ID   string `json:"id,omitempty"`
	Kind string `json:"kind,omitempty"`
	Name string `json:"name"`
}

// Notifier delivers an event to a user's live connection, if any.
// Delivery is best effort: offline users miss the event.
type Notifier interface {
	Notify(userID int64, event Event)
}

// envelope is the wire frame sent over the websocket.
type envelope struct {
	Data Event `json:"data"`
}
