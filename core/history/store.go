package history

import (
	"context"
	"time"
)

// Kind classifies a recorded door event.
type Kind string

const (
	KindCommand Kind = "command"
	KindStatus  Kind = "status"
	KindIgnored Kind = "ignored"
	KindCycle   Kind = "cycle"
)

// Event captures one occurrence on the bridge: an accepted command, a
// published status, a dropped payload or a completed cycle.
type Event struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	Command    string    `json:"command,omitempty"`
	Status     string    `json:"status,omitempty"`
	Payload    string    `json:"payload,omitempty"`
	CycleID    string    `json:"cycle_id,omitempty"`
	DurationMS int64     `json:"duration_ms,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Query defines filters for retrieving events.
type Query struct {
	Start   time.Time
	End     time.Time
	Kind    Kind
	Command string
}

// Matches reports whether ev passes the query filters.
func (q Query) Matches(ev Event) bool {
	if !q.Start.IsZero() && ev.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && ev.Timestamp.After(q.End) {
		return false
	}
	if q.Kind != "" && ev.Kind != q.Kind {
		return false
	}
	if q.Command != "" && ev.Command != q.Command {
		return false
	}
	return true
}

// Store persists Events and supports querying.
type Store interface {
	Append(ctx context.Context, ev Event) error
	Query(ctx context.Context, q Query) ([]Event, error)
	Close() error
}
