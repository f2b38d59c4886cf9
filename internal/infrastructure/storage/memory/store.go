// Package memory provides an in-process backend for the ledger and audit
// repositories. It backs tests and the STORAGE_DRIVER=memory demo mode.
//
// A single store-wide lock is held for the whole of each transaction, so
// transactions are serial. Writes register undo steps that run in reverse
// order on rollback.
package memory

import (
	"context"
	"fmt"
	"sync"

	"stockledger/internal/core/id"
	"stockledger/internal/core/tx"
	"stockledger/internal/domain/catalog/variant"
	"stockledger/internal/domain/inventory"
	"stockledger/internal/domain/ledger"
)

// Store holds all tables.
type Store struct {
	mu sync.Mutex

	variants  map[id.ID]variant.Variant
	skus      map[string]id.ID
	movements map[id.ID]ledger.Movement
	audits    map[id.ID]inventory.Audit
	lines     map[id.ID][]inventory.Line
	outbox    []OutboxMessage
	sequences map[string]int64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		variants:  make(map[id.ID]variant.Variant),
		skus:      make(map[string]id.ID),
		movements: make(map[id.ID]ledger.Movement),
		audits:    make(map[id.ID]inventory.Audit),
		lines:     make(map[id.ID][]inventory.Line),
		sequences: make(map[string]int64),
	}
}

var _ tx.Manager = (*Store)(nil)

type txKey struct{}

// txState is the undo log of a running transaction.
type txState struct {
	undo []func()
}

func (t *txState) onRollback(fn func()) {
	if t != nil {
		t.undo = append(t.undo, fn)
	}
}

func (t *txState) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

// RunInTransaction executes fn holding the store lock. Nested calls reuse
// the running transaction.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*txState); ok {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st := &txState{}
	defer func() {
		if p := recover(); p != nil {
			st.rollback()
			panic(p)
		}
		if err != nil {
			st.rollback()
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, st))
}

// RunInSnapshot is RunInTransaction: the store lock already gives a
// point-in-time view.
func (s *Store) RunInSnapshot(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.RunInTransaction(ctx, fn)
}

// do runs fn inside the caller's transaction, or as its own autocommit
// step when ctx carries none. st is nil in autocommit mode.
func (s *Store) do(ctx context.Context, fn func(st *txState) error) error {
	if st, ok := ctx.Value(txKey{}).(*txState); ok {
		return fn(st)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(nil)
}

// inTx reports whether ctx carries a memory transaction.
func inTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*txState)
	return ok
}

// Reset drops all data. Tests only.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.variants = make(map[id.ID]variant.Variant)
	s.skus = make(map[string]id.ID)
	s.movements = make(map[id.ID]ledger.Movement)
	s.audits = make(map[id.ID]inventory.Audit)
	s.lines = make(map[id.ID][]inventory.Line)
	s.outbox = nil
	s.sequences = make(map[string]int64)
}

// Stats reports row counts per table.
func (s *Store) Stats() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := 0
	for _, ls := range s.lines {
		lines += len(ls)
	}
	return map[string]int{
		"variants":  len(s.variants),
		"movements": len(s.movements),
		"audits":    len(s.audits),
		"lines":     lines,
		"outbox":    len(s.outbox),
	}
}

func errNoTx(op string) error {
	return fmt.Errorf("%s requires transaction context", op)
}
