// Package provenance records the lifecycle of boundary entities as an
// append-only event log. Events are never updated or deleted; corrections
// are expressed as new remediation events.
package provenance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EventType categorizes a lifecycle event.
type EventType string

const (
	// EventDiscovered marks the first time an entity was seen in any source.
	EventDiscovered EventType = "discovered"
	// EventValidated marks an entity passing claim validation.
	EventValidated EventType = "validated"
	// EventQuarantined marks an entity excluded from a build pending review.
	EventQuarantined EventType = "quarantined"
	// EventRemediated marks a human resolution of a quarantined entity.
	EventRemediated EventType = "remediated"
	// EventMetadataUpdated marks a non-geometric metadata change.
	EventMetadataUpdated EventType = "metadata-updated"
)

// EventTypes returns all lifecycle event types.
func EventTypes() []EventType {
	return []EventType{
		EventDiscovered,
		EventValidated,
		EventQuarantined,
		EventRemediated,
		EventMetadataUpdated,
	}
}

// Valid reports whether the event type is known.
func (t EventType) Valid() bool {
	switch t {
	case EventDiscovered, EventValidated, EventQuarantined, EventRemediated, EventMetadataUpdated:
		return true
	default:
		return false
	}
}

// Event is one immutable lifecycle record for an entity.
type Event struct {
	EventID   string    `json:"event_id" yaml:"event_id"`
	Type      EventType `json:"type" yaml:"type"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`

	// Actor is the system stage or human operator that produced the event.
	Actor string `json:"actor" yaml:"actor"`

	EntityID string `json:"entity_id" yaml:"entity_id"`

	// Reason explains quarantines and rejections in operator-readable form.
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`

	// Remediation describes how a quarantined entity was resolved.
	Remediation string `json:"remediation,omitempty" yaml:"remediation,omitempty"`
}

// NewEvent creates an event with a fresh ID and the current UTC time.
func NewEvent(eventType EventType, entityID, actor, reason string) Event {
	return Event{
		EventID:   uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Actor:     actor,
		EntityID:  entityID,
		Reason:    reason,
	}
}

// String returns a one-line log form of the event.
func (e Event) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s entity=%s actor=%s", e.Timestamp.Format(time.RFC3339), e.Type, e.EntityID, e.Actor)
	if e.Reason != "" {
		fmt.Fprintf(&b, " reason=%q", e.Reason)
	}
	if e.Remediation != "" {
		fmt.Fprintf(&b, " remediation=%q", e.Remediation)
	}
	return b.String()
}

// Store is an append-only event log. Implementations expose no update or
// delete operations.
type Store interface {
	// Append records one event.
	Append(ctx context.Context, event Event) error

	// ByEntity returns an entity's events in chronological order.
	ByEntity(ctx context.Context, entityID string) ([]Event, error)

	// ByType returns all events of one type in chronological order.
	ByType(ctx context.Context, eventType EventType) ([]Event, error)

	// Between returns all events in [from, to) in chronological order.
	Between(ctx context.Context, from, to time.Time) ([]Event, error)

	// Close releases store resources.
	Close() error
}
