package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"stockledger/internal/core/event"
	"stockledger/internal/core/id"
)

// OutboxMessage is an event accepted by the memory outbox.
type OutboxMessage struct {
	ID            id.ID
	AggregateType string
	AggregateID   id.ID
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
}

// Outbox implements event.Publisher on top of the store.
type Outbox struct {
	s *Store
}

// Outbox returns the event publisher of the store.
func (s *Store) Outbox() *Outbox {
	return &Outbox{s: s}
}

var _ event.Publisher = (*Outbox)(nil)

// Publish appends e to the outbox. MUST be called inside a transaction.
func (o *Outbox) Publish(ctx context.Context, e event.Event) error {
	if !inTx(ctx) {
		return errNoTx("outbox publish")
	}

	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	return o.s.do(ctx, func(st *txState) error {
		n := len(o.s.outbox)
		o.s.outbox = append(o.s.outbox, OutboxMessage{
			ID:            id.New(),
			AggregateType: e.AggregateType,
			AggregateID:   e.AggregateID,
			EventType:     e.Type,
			Payload:       payload,
			CreatedAt:     time.Now().UTC(),
		})
		st.onRollback(func() { o.s.outbox = o.s.outbox[:n] })
		return nil
	})
}

// Messages returns a copy of every accepted message in publish order.
func (o *Outbox) Messages() []OutboxMessage {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	return append([]OutboxMessage(nil), o.s.outbox...)
}
