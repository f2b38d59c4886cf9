package memory

import (
	"context"
	"sort"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain"
	"stockledger/internal/domain/catalog/variant"
)

// VariantRepo implements variant.Repository.
type VariantRepo struct {
	s *Store
}

// Variants returns the variant repository of the store.
func (s *Store) Variants() *VariantRepo {
	return &VariantRepo{s: s}
}

var _ variant.Repository = (*VariantRepo)(nil)

func (r *VariantRepo) Create(ctx context.Context, v *variant.Variant) error {
	return r.s.do(ctx, func(st *txState) error {
		if _, dup := r.s.skus[v.SKU]; dup {
			return variant.ErrDuplicateSKU(v.SKU)
		}
		r.s.variants[v.ID] = *v
		r.s.skus[v.SKU] = v.ID
		st.onRollback(func() {
			delete(r.s.variants, v.ID)
			delete(r.s.skus, v.SKU)
		})
		return nil
	})
}

func (r *VariantRepo) GetByID(ctx context.Context, variantID id.ID) (*variant.Variant, error) {
	var out *variant.Variant
	err := r.s.do(ctx, func(*txState) error {
		v, ok := r.s.variants[variantID]
		if !ok {
			return apperror.NewNotFound("variant", variantID)
		}
		out = &v
		return nil
	})
	return out, err
}

// GetForUpdate is GetByID: the store lock is held by the caller's transaction.
func (r *VariantRepo) GetForUpdate(ctx context.Context, variantID id.ID) (*variant.Variant, error) {
	if !inTx(ctx) {
		return nil, errNoTx("variant GetForUpdate")
	}
	return r.GetByID(ctx, variantID)
}

func (r *VariantRepo) UpdateState(ctx context.Context, v *variant.Variant) error {
	return r.s.do(ctx, func(st *txState) error {
		prev, ok := r.s.variants[v.ID]
		if !ok {
			return apperror.NewNotFound("variant", v.ID)
		}
		next := prev
		next.StockQuantity = v.StockQuantity
		next.AverageCost = v.AverageCost
		next.PostingSeq = v.PostingSeq
		next.UpdatedAt = v.UpdatedAt
		r.s.variants[v.ID] = next
		st.onRollback(func() { r.s.variants[v.ID] = prev })
		return nil
	})
}

func (r *VariantRepo) List(ctx context.Context, filter variant.Filter, page domain.Page) (domain.ListResult[*variant.Variant], error) {
	items, err := r.FindAll(ctx, filter)
	if err != nil {
		return domain.ListResult[*variant.Variant]{}, err
	}
	return domain.Window(items, page), nil
}

func (r *VariantRepo) FindAll(ctx context.Context, filter variant.Filter) ([]*variant.Variant, error) {
	var out []*variant.Variant
	err := r.s.do(ctx, func(*txState) error {
		out = make([]*variant.Variant, 0, len(r.s.variants))
		for _, v := range r.s.variants {
			if filter.Matches(&v) {
				out = append(out, &v)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, err
}
