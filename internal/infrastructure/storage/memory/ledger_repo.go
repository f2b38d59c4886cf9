package memory

import (
	"context"
	"sort"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain"
	"stockledger/internal/domain/ledger"
)

// LedgerRepo implements ledger.Repository.
type LedgerRepo struct {
	s *Store
}

// Movements returns the movement repository of the store.
func (s *Store) Movements() *LedgerRepo {
	return &LedgerRepo{s: s}
}

var _ ledger.Repository = (*LedgerRepo)(nil)

func (r *LedgerRepo) Create(ctx context.Context, m *ledger.Movement) error {
	return r.s.do(ctx, func(st *txState) error {
		if _, ok := r.s.variants[m.VariantID]; !ok {
			return apperror.NewNotFound("variant", m.VariantID)
		}
		r.s.movements[m.ID] = *m
		st.onRollback(func() { delete(r.s.movements, m.ID) })
		return nil
	})
}

func (r *LedgerRepo) GetByID(ctx context.Context, movementID id.ID) (*ledger.Movement, error) {
	var out *ledger.Movement
	err := r.s.do(ctx, func(*txState) error {
		m, ok := r.s.movements[movementID]
		if !ok {
			return apperror.NewNotFound("movement", movementID)
		}
		out = &m
		return nil
	})
	return out, err
}

func (r *LedgerRepo) GetForUpdate(ctx context.Context, movementID id.ID) (*ledger.Movement, error) {
	if !inTx(ctx) {
		return nil, errNoTx("movement GetForUpdate")
	}
	return r.GetByID(ctx, movementID)
}

func (r *LedgerRepo) UpdateLifecycle(ctx context.Context, m *ledger.Movement) error {
	return r.s.do(ctx, func(st *txState) error {
		prev, ok := r.s.movements[m.ID]
		if !ok {
			return apperror.NewNotFound("movement", m.ID)
		}
		next := prev
		next.Status = m.Status
		next.StockBefore, next.StockAfter = m.StockBefore, m.StockAfter
		next.CostBefore, next.CostAfter = m.CostBefore, m.CostAfter
		next.PostingSeq = m.PostingSeq
		next.PostedAt, next.PostedBy = m.PostedAt, m.PostedBy
		next.UnpostedAt, next.UnpostedBy = m.UnpostedAt, m.UnpostedBy
		r.s.movements[m.ID] = next
		st.onRollback(func() { r.s.movements[m.ID] = prev })
		return nil
	})
}

func (r *LedgerRepo) Delete(ctx context.Context, movementID id.ID) error {
	return r.s.do(ctx, func(st *txState) error {
		prev, ok := r.s.movements[movementID]
		if !ok {
			return apperror.NewNotFound("movement", movementID)
		}
		if prev.Status != ledger.StatusDraft {
			return apperror.NewInvalidState("movement", prev.Status, "only draft movements can be deleted")
		}
		delete(r.s.movements, movementID)
		st.onRollback(func() { r.s.movements[movementID] = prev })
		return nil
	})
}

func (r *LedgerRepo) List(ctx context.Context, filter ledger.Filter, page domain.Page) (domain.ListResult[*ledger.Movement], error) {
	var items []*ledger.Movement
	err := r.s.do(ctx, func(*txState) error {
		for _, m := range r.s.movements {
			if filter.Matches(&m) {
				items = append(items, &m)
			}
		}
		return nil
	})
	if err != nil {
		return domain.ListResult[*ledger.Movement]{}, err
	}

	// UUIDv7 ids break ties in creation order.
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID.String() > items[j].ID.String()
	})
	return domain.Window(items, page), nil
}

func (r *LedgerRepo) LatestPosted(ctx context.Context, variantID id.ID) (*ledger.Movement, error) {
	posted, err := r.ListPosted(ctx, variantID)
	if err != nil || len(posted) == 0 {
		return nil, err
	}
	return posted[len(posted)-1], nil
}

func (r *LedgerRepo) ListPosted(ctx context.Context, variantID id.ID) ([]*ledger.Movement, error) {
	var out []*ledger.Movement
	err := r.s.do(ctx, func(*txState) error {
		for _, m := range r.s.movements {
			if m.VariantID == variantID && m.Status == ledger.StatusPosted {
				out = append(out, &m)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return *out[i].PostingSeq < *out[j].PostingSeq })
	return out, err
}
