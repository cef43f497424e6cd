// Package audit records who did what to reservations and rooms.
//
// Publishing is best effort: callers log publish failures and carry on.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// Actions recorded by the reservation workflow.
const (
	ActionSubmit  = "submit"
	ActionApprove = "approve"
	ActionDeny    = "deny"
)

// Actions recorded by the room catalog.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Entities that events refer to.
const (
	EntityReservation     = "reservation"
	EntityReservationItem = "reservation_item"
	EntityRoom            = "room"
)

// Event is a single audit log entry.
type Event struct {
	ID        string    `json:"id"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Entity    string    `json:"entity"`
	EntityID  string    `json:"entity_id"`
	Comment   string    `json:"comment,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	// Before and After hold JSON snapshots of the entity around a change.
	Before json.RawMessage `json:"before,omitempty"`
	After  json.RawMessage `json:"after,omitempty"`
}

// Publisher delivers audit events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// LogPublisher writes events to a structured logger.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher returns a publisher logging to logger, or slog.Default when nil.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger.With("component", "audit")}
}

// Publish logs event at info level.
func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	attrs := []any{
		"event_id", event.ID,
		"actor", event.Actor,
		"action", event.Action,
		"entity", event.Entity,
		"entity_id", event.EntityID,
		"comment", event.Comment,
		"timestamp", event.Timestamp,
	}
	if len(event.Before) > 0 {
		attrs = append(attrs, "before", string(event.Before))
	}
	if len(event.After) > 0 {
		attrs = append(attrs, "after", string(event.After))
	}
	p.logger.InfoContext(ctx, "audit event", attrs...)
	return nil
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
