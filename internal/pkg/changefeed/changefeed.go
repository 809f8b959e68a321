package changefeed

import (
	"context"
	"encoding/json"
)

// EventType classifies a row change.
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// Event is one observed row change on a topic. Rows travel as raw JSON so
// consumers decode only the tables they care about.
type Event struct {
	Table string          `json:"table"`
	Type  EventType       `json:"event_type"`
	New   json.RawMessage `json:"new_row,omitempty"`
	Old   json.RawMessage `json:"old_row,omitempty"`
}

// NewEvent marshals the row payloads into an Event. Marshal failures produce
// an event without the offending payload; callers publish best-effort and
// never depend on the feed for ledger correctness.
func NewEvent(table string, eventType EventType, newRow, oldRow interface{}) Event {
	ev := Event{Table: table, Type: eventType}
	if newRow != nil {
		if data, err := json.Marshal(newRow); err == nil {
			ev.New = data
		}
	}
	if oldRow != nil {
		if data, err := json.Marshal(oldRow); err == nil {
			ev.Old = data
		}
	}
	return ev
}

// Handler consumes events for one subscription. Handlers across topics run
// independently; no ordering is guaranteed between topics.
type Handler func(ctx context.Context, ev Event)

// CancelFunc tears down a subscription. Safe to call more than once.
type CancelFunc func()

// Feed is a push channel for row-change notifications.
type Feed interface {
	Publish(ctx context.Context, topic string, ev Event) error
	Subscribe(topic string, h Handler) (CancelFunc, error)
	Close() error
}
