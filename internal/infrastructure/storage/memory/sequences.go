package memory

import (
	"context"
	"time"

	"stockledger/internal/core/numerator"
)

// Sequences implements numerator.Generator. Both strategies behave as strict.
type Sequences struct {
	s *Store
}

// Sequences returns the number generator of the store.
func (s *Store) Sequences() *Sequences {
	return &Sequences{s: s}
}

var _ numerator.Generator = (*Sequences)(nil)

func (q *Sequences) GetNextNumber(ctx context.Context, cfg numerator.Config, _ *numerator.Options, period time.Time) (string, error) {
	key := numerator.SequenceKey(cfg, period)
	var n int64
	err := q.s.do(ctx, func(st *txState) error {
		prev, existed := q.s.sequences[key]
		n = prev + 1
		q.s.sequences[key] = n
		st.onRollback(func() {
			if !existed {
				delete(q.s.sequences, key)
				return
			}
			q.s.sequences[key] = prev
		})
		return nil
	})
	if err != nil {
		return "", err
	}
	return numerator.Format(cfg, period, n), nil
}

func (q *Sequences) SetNextNumber(ctx context.Context, cfg numerator.Config, period time.Time, value int64) error {
	key := numerator.SequenceKey(cfg, period)
	return q.s.do(ctx, func(st *txState) error {
		prev, existed := q.s.sequences[key]
		q.s.sequences[key] = value
		st.onRollback(func() {
			if !existed {
				delete(q.s.sequences, key)
				return
			}
			q.s.sequences[key] = prev
		})
		return nil
	})
}
