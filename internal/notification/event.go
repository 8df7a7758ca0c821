package notification

import (
	"github.com/google/uuid"
)

// Realtime event names.
const (
	EventVisitRequest  = "getVisitRequest"
	EventVisitResponse = "getVisitResponse"
	EventMessage       = "getMessage"
)

// Event is addressed to one user. Data goes to the user's live connection;
// Push, when set, also goes to the user's browser push subscriptions.
type Event struct {
	UserID uuid.UUID
	Name   string
	Data   any
	Push   *Push
}

// Push is the web push payload of an event.
type Push struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
}

// Sink accepts events for best-effort delivery. Notify must not block.
type Sink interface {
	Notify(ev Event)
}

// Relay forwards an event to a user's live connection and reports whether
// the user was connected.
type Relay interface {
	Send(userID uuid.UUID, name string, data any) bool
}

// Discard drops every event.
type Discard struct{}

func (Discard) Notify(Event) {}
