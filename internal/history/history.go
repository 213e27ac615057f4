package history

import (
	"context"
	"time"

	"github.com/loykin/graphdev/internal/subgraph"
)

// EventType defines the kind of task event.
type EventType string

const (
	EventSpawn    EventType = "spawn"
	EventDiscover EventType = "discover"
	EventKill     EventType = "kill"
)

// Event is one append-only audit record of what a runner did.
type Event struct {
	Type       EventType         `json:"type"`
	Session    string            `json:"session"`
	Subgraph   subgraph.Name     `json:"subgraph"`
	PID        int               `json:"pid"`
	Command    string            `json:"command,omitempty"`
	Endpoint   subgraph.Endpoint `json:"endpoint,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Sink is a destination for history events.
// Implementations must be safe for concurrent use.
type Sink interface {
	Send(ctx context.Context, e Event) error
}
