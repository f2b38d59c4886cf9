package memory

import (
	"context"
	"sort"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain"
	"stockledger/internal/domain/inventory"
)

// InventoryRepo implements inventory.Repository.
type InventoryRepo struct {
	s *Store
}

// Audits returns the audit repository of the store.
func (s *Store) Audits() *InventoryRepo {
	return &InventoryRepo{s: s}
}

var _ inventory.Repository = (*InventoryRepo)(nil)

func (r *InventoryRepo) Create(ctx context.Context, a *inventory.Audit) error {
	return r.s.do(ctx, func(st *txState) error {
		r.s.audits[a.ID] = *a
		st.onRollback(func() { delete(r.s.audits, a.ID) })
		return nil
	})
}

func (r *InventoryRepo) CreateLines(ctx context.Context, lines []*inventory.Line) error {
	if len(lines) == 0 {
		return nil
	}
	return r.s.do(ctx, func(st *txState) error {
		auditID := lines[0].AuditID
		if _, ok := r.s.audits[auditID]; !ok {
			return apperror.NewNotFound("audit", auditID)
		}
		prev := r.s.lines[auditID]
		next := append([]inventory.Line(nil), prev...)
		for _, l := range lines {
			next = append(next, *l)
		}
		sort.Slice(next, func(i, j int) bool { return next[i].LineNo < next[j].LineNo })
		r.s.lines[auditID] = next
		st.onRollback(func() {
			if prev == nil {
				delete(r.s.lines, auditID)
				return
			}
			r.s.lines[auditID] = prev
		})
		return nil
	})
}

func (r *InventoryRepo) GetByID(ctx context.Context, auditID id.ID) (*inventory.Audit, error) {
	var out *inventory.Audit
	err := r.s.do(ctx, func(*txState) error {
		a, ok := r.s.audits[auditID]
		if !ok {
			return apperror.NewNotFound("audit", auditID)
		}
		out = &a
		return nil
	})
	return out, err
}

func (r *InventoryRepo) GetForUpdate(ctx context.Context, auditID id.ID) (*inventory.Audit, error) {
	if !inTx(ctx) {
		return nil, errNoTx("audit GetForUpdate")
	}
	return r.GetByID(ctx, auditID)
}

func (r *InventoryRepo) Update(ctx context.Context, a *inventory.Audit) error {
	return r.s.do(ctx, func(st *txState) error {
		prev, ok := r.s.audits[a.ID]
		if !ok {
			return apperror.NewNotFound("audit", a.ID)
		}
		if prev.Version != a.Version {
			return apperror.NewInvalidState("audit", prev.Status, "audit was modified concurrently").
				WithDetail("version", prev.Version)
		}
		a.Version++
		r.s.audits[a.ID] = *a
		st.onRollback(func() { r.s.audits[a.ID] = prev })
		return nil
	})
}

func (r *InventoryRepo) List(ctx context.Context, filter inventory.Filter, page domain.Page) (domain.ListResult[*inventory.Audit], error) {
	var items []*inventory.Audit
	err := r.s.do(ctx, func(*txState) error {
		for _, a := range r.s.audits {
			if filter.Status == nil || a.Status == *filter.Status {
				items = append(items, &a)
			}
		}
		return nil
	})
	if err != nil {
		return domain.ListResult[*inventory.Audit]{}, err
	}

	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID.String() > items[j].ID.String()
	})
	return domain.Window(items, page), nil
}

func (r *InventoryRepo) GetLines(ctx context.Context, auditID id.ID) ([]*inventory.Line, error) {
	var out []*inventory.Line
	err := r.s.do(ctx, func(*txState) error {
		stored := r.s.lines[auditID]
		out = make([]*inventory.Line, 0, len(stored))
		for _, l := range stored {
			out = append(out, &l)
		}
		return nil
	})
	return out, err
}

func (r *InventoryRepo) GetLine(ctx context.Context, auditID, lineID id.ID) (*inventory.Line, error) {
	var out *inventory.Line
	err := r.s.do(ctx, func(*txState) error {
		for _, l := range r.s.lines[auditID] {
			if l.ID == lineID {
				out = &l
				return nil
			}
		}
		return apperror.NewNotFound("audit line", lineID).WithDetail("audit_id", auditID)
	})
	return out, err
}

func (r *InventoryRepo) UpdateLine(ctx context.Context, l *inventory.Line) error {
	return r.s.do(ctx, func(st *txState) error {
		stored := r.s.lines[l.AuditID]
		for i := range stored {
			if stored[i].ID != l.ID {
				continue
			}
			prev := stored[i]
			next := prev
			next.CountedStock = l.CountedStock
			next.IsCounted = l.IsCounted
			next.CountedBy = l.CountedBy
			next.CountedAt = l.CountedAt
			next.AdjustmentMovementID = l.AdjustmentMovementID
			stored[i] = next
			st.onRollback(func() { stored[i] = prev })
			return nil
		}
		return apperror.NewNotFound("audit line", l.ID)
	})
}
