// Package tx provides transaction management abstractions.
// Domain services depend on these interfaces; the implementations live in
// infrastructure/storage/postgres and infrastructure/storage/memory.
package tx

import (
	"context"
)

// Manager defines the contract for transaction management.
// Implementations handle BEGIN, COMMIT, ROLLBACK, and nested transaction support.
type Manager interface {
	// RunInTransaction executes fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn succeeds, the transaction is committed.
	//
	// Nested calls reuse the existing transaction from context, so an upstream
	// producer can record and post movements inside its own unit of work.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// RunInSnapshot executes fn in a transaction whose reads all observe the
	// same point in time (REPEATABLE READ on PostgreSQL).
	RunInSnapshot(ctx context.Context, fn func(ctx context.Context) error) error
}
