// Package event defines domain events written to the transactional outbox.
package event

import (
	"context"

	"stockledger/internal/core/id"
)

// Aggregate types.
const (
	AggregateMovement = "StockMovement"
	AggregateAudit    = "InventoryAudit"
	AggregateVariant  = "ProductVariant"
)

// Event types.
const (
	MovementPosted   = "MovementPosted"
	MovementUnposted = "MovementUnposted"
	AuditCompleted   = "AuditCompleted"
	AuditCancelled   = "AuditCancelled"
	VariantCreated   = "VariantCreated"
)

// Event is a fact about an aggregate, published in the same transaction as
// the state change it describes.
type Event struct {
	AggregateType string
	AggregateID   id.ID
	Type          string
	Payload       any
}

// Publisher writes events to the outbox.
// Publish must be called inside a transaction; the event is discarded if
// the transaction rolls back.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, e Event) error

// Publish implements Publisher.
func (f PublisherFunc) Publish(ctx context.Context, e Event) error {
	return f(ctx, e)
}

// Discard is a Publisher that drops every event.
var Discard Publisher = PublisherFunc(func(context.Context, Event) error { return nil })
