package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"

	"stockledger/internal/core/event"
	"stockledger/internal/core/id"
	"stockledger/pkg/logger"
)

// OutboxStatus represents the state of an outbox message.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusPublished OutboxStatus = "published"
)

// MaxOutboxAttempts is the number of failed deliveries after which a
// message is moved to sys_outbox_dlq.
const MaxOutboxAttempts = 5

// OutboxMessage represents a message in the transactional outbox.
type OutboxMessage struct {
	ID            id.ID           `db:"id"`
	AggregateType string          `db:"aggregate_type"`
	AggregateID   id.ID           `db:"aggregate_id"`
	EventType     string          `db:"event_type"`
	Payload       []byte          `db:"payload"`
	Compression   CompressionAlgo `db:"compression"`
	Status        OutboxStatus    `db:"status"`
	RetryCount    int             `db:"retry_count"`
	LastError     *string         `db:"last_error"`
	NextRetryAt   *time.Time      `db:"next_retry_at"`
	CreatedAt     time.Time       `db:"created_at"`
	PublishedAt   *time.Time      `db:"published_at"`
}

// OutboxPublisher writes events to sys_outbox.
type OutboxPublisher struct {
	txManager *TxManager
	codec     *PayloadCodec
}

var _ event.Publisher = (*OutboxPublisher)(nil)

// NewOutboxPublisher creates a new outbox publisher.
func NewOutboxPublisher(txManager *TxManager, codec *PayloadCodec) *OutboxPublisher {
	return &OutboxPublisher{txManager: txManager, codec: codec}
}

// Publish writes an event to the outbox within the current transaction.
// MUST be called inside a transaction context.
func (p *OutboxPublisher) Publish(ctx context.Context, e event.Event) error {
	tx := p.txManager.GetTx(ctx)
	if tx == nil {
		return fmt.Errorf("outbox publish requires transaction context")
	}

	raw, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	payload, algo := p.codec.Encode(raw)

	_, err = tx.Exec(ctx, `
		INSERT INTO sys_outbox (id, aggregate_type, aggregate_id, event_type, payload, compression, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, id.New(), e.AggregateType, e.AggregateID, e.Type, payload, algo, OutboxStatusPending, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert outbox message: %w", err)
	}
	return nil
}

// OutboxHandler processes outbox messages. Payload is already decompressed.
type OutboxHandler interface {
	Handle(ctx context.Context, msg *OutboxMessage) error
}

// OutboxHandlerFunc adapts a function to OutboxHandler.
type OutboxHandlerFunc func(ctx context.Context, msg *OutboxMessage) error

// Handle implements OutboxHandler.
func (f OutboxHandlerFunc) Handle(ctx context.Context, msg *OutboxMessage) error {
	return f(ctx, msg)
}

// OutboxRelay reads pending messages and hands them to a handler.
// Several relays may run at once; rows are claimed with SKIP LOCKED.
type OutboxRelay struct {
	txManager *TxManager
	codec     *PayloadCodec
	batchSize int
	backoff   time.Duration
	handler   OutboxHandler
}

// NewOutboxRelay creates a new outbox relay.
func NewOutboxRelay(txManager *TxManager, codec *PayloadCodec, batchSize int, handler OutboxHandler) *OutboxRelay {
	return &OutboxRelay{
		txManager: txManager,
		codec:     codec,
		batchSize: batchSize,
		backoff:   time.Minute,
		handler:   handler,
	}
}

// ProcessBatch fetches and processes one batch of pending messages.
// Returns the number of delivered messages.
func (r *OutboxRelay) ProcessBatch(ctx context.Context) (int, error) {
	delivered := 0
	err := r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		q := r.txManager.GetQuerier(ctx)

		var messages []*OutboxMessage
		err := pgxscan.Select(ctx, q, &messages, `
			SELECT id, aggregate_type, aggregate_id, event_type, payload, compression, status,
			       retry_count, last_error, next_retry_at, created_at, published_at
			FROM sys_outbox
			WHERE status = $1
			  AND (next_retry_at IS NULL OR next_retry_at <= NOW())
			ORDER BY created_at, id
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		`, OutboxStatusPending, r.batchSize)
		if err != nil {
			return fmt.Errorf("fetch outbox messages: %w", err)
		}

		for _, msg := range messages {
			if err := r.processMessage(ctx, msg); err != nil {
				return err
			}
			if msg.Status == OutboxStatusPublished {
				delivered++
			}
		}
		return nil
	})
	return delivered, err
}

// processMessage delivers one message and records the outcome.
// Only bookkeeping failures are returned; handler failures are recorded.
func (r *OutboxRelay) processMessage(ctx context.Context, msg *OutboxMessage) error {
	q := r.txManager.GetQuerier(ctx)

	payload, err := r.codec.Decode(msg.Payload, msg.Compression)
	if err == nil {
		delivery := *msg
		delivery.Payload = payload
		delivery.Compression = CompressionNone
		err = r.handler.Handle(ctx, &delivery)
	}

	if err == nil {
		now := time.Now().UTC()
		if _, err := q.Exec(ctx, `
			UPDATE sys_outbox SET status = $1, published_at = $2 WHERE id = $3
		`, OutboxStatusPublished, now, msg.ID); err != nil {
			return fmt.Errorf("mark outbox message published: %w", err)
		}
		msg.Status = OutboxStatusPublished
		msg.PublishedAt = &now
		return nil
	}

	attempts := msg.RetryCount + 1
	errStr := err.Error()
	logger.Warn(ctx, "outbox delivery failed",
		"message_id", msg.ID, "event_type", msg.EventType, "attempt", attempts, "error", err)

	if attempts >= MaxOutboxAttempts {
		_, dlqErr := q.Exec(ctx, `
			WITH moved AS (
				DELETE FROM sys_outbox WHERE id = $1
				RETURNING id, aggregate_type, aggregate_id, event_type, payload, compression, created_at
			)
			INSERT INTO sys_outbox_dlq (id, aggregate_type, aggregate_id, event_type, payload, compression, created_at, attempts, failure_reason, failed_at)
			SELECT id, aggregate_type, aggregate_id, event_type, payload, compression, created_at, $2, $3, NOW() FROM moved
		`, msg.ID, attempts, errStr)
		if dlqErr != nil {
			return fmt.Errorf("move outbox message to DLQ: %w", dlqErr)
		}
		logger.Error(ctx, "outbox message dead-lettered", "message_id", msg.ID, "event_type", msg.EventType)
		return nil
	}

	nextRetry := time.Now().UTC().Add(time.Duration(attempts) * r.backoff)
	if _, updErr := q.Exec(ctx, `
		UPDATE sys_outbox
		SET retry_count = $1, last_error = $2, next_retry_at = $3
		WHERE id = $4
	`, attempts, errStr, nextRetry, msg.ID); updErr != nil {
		return fmt.Errorf("update failed message: %w", updErr)
	}
	return nil
}
