// Package catalog_repo provides the PostgreSQL variant catalog repository.
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain"
	"stockledger/internal/domain/catalog/variant"
	"stockledger/internal/infrastructure/storage/postgres"
)

const variantTable = "variants"

// VariantRepo implements variant.Repository.
type VariantRepo struct {
	txm  *postgres.TxManager
	cols []string
}

var _ variant.Repository = (*VariantRepo)(nil)

// NewVariantRepo creates a new variant repository.
func NewVariantRepo(txm *postgres.TxManager) *VariantRepo {
	return &VariantRepo{txm: txm, cols: postgres.Columns[variant.Variant]()}
}

func (r *VariantRepo) Create(ctx context.Context, v *variant.Variant) error {
	sql, args, err := postgres.Builder().
		Insert(variantTable).
		SetMap(postgres.StructToMap(v)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err, "variants_sku_key") {
			return variant.ErrDuplicateSKU(v.SKU)
		}
		return fmt.Errorf("insert variant: %w", err)
	}
	return nil
}

func (r *VariantRepo) GetByID(ctx context.Context, variantID id.ID) (*variant.Variant, error) {
	return r.get(ctx, variantID, false)
}

func (r *VariantRepo) GetForUpdate(ctx context.Context, variantID id.ID) (*variant.Variant, error) {
	if r.txm.GetTx(ctx) == nil {
		return nil, fmt.Errorf("variant GetForUpdate requires transaction context")
	}
	return r.get(ctx, variantID, true)
}

func (r *VariantRepo) get(ctx context.Context, variantID id.ID, lock bool) (*variant.Variant, error) {
	q := r.baseSelect().Where(squirrel.Eq{"id": variantID})
	if lock {
		q = q.Suffix("FOR UPDATE")
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var v variant.Variant
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &v, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("variant", variantID)
		}
		return nil, fmt.Errorf("get variant: %w", err)
	}
	return &v, nil
}

// UpdateState persists the ledger-owned fields. UpdatedAt is written as set
// by the caller so it matches the posting timestamp.
func (r *VariantRepo) UpdateState(ctx context.Context, v *variant.Variant) error {
	sql, args, err := updateStateQuery(v).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update variant state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("variant", v.ID)
	}
	return nil
}

func updateStateQuery(v *variant.Variant) squirrel.UpdateBuilder {
	return postgres.Builder().
		Update(variantTable).
		Set("stock_quantity", v.StockQuantity).
		Set("average_cost", v.AverageCost).
		Set("posting_seq", v.PostingSeq).
		Set("updated_at", v.UpdatedAt).
		Where(squirrel.Eq{"id": v.ID})
}

func (r *VariantRepo) List(ctx context.Context, filter variant.Filter, page domain.Page) (domain.ListResult[*variant.Variant], error) {
	page = page.Normalize()
	res := domain.ListResult[*variant.Variant]{Limit: page.Limit, Offset: page.Offset, Items: []*variant.Variant{}}

	countSQL, countArgs, err := applyVariantFilter(postgres.Builder().Select("COUNT(*)").From(variantTable), filter).ToSql()
	if err != nil {
		return res, fmt.Errorf("build count: %w", err)
	}
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&res.TotalCount); err != nil {
		return res, fmt.Errorf("count variants: %w", err)
	}

	sql, args, err := applyVariantFilter(r.baseSelect(), filter).
		OrderBy("sku").
		Limit(uint64(page.Limit)).
		Offset(uint64(page.Offset)).
		ToSql()
	if err != nil {
		return res, fmt.Errorf("build list: %w", err)
	}
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &res.Items, sql, args...); err != nil {
		return res, fmt.Errorf("list variants: %w", err)
	}
	return res, nil
}

func (r *VariantRepo) FindAll(ctx context.Context, filter variant.Filter) ([]*variant.Variant, error) {
	sql, args, err := applyVariantFilter(r.baseSelect(), filter).OrderBy("sku").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var items []*variant.Variant
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("find variants: %w", err)
	}
	return items, nil
}

func (r *VariantRepo) baseSelect() squirrel.SelectBuilder {
	return postgres.Builder().Select(r.cols...).From(variantTable)
}

// applyVariantFilter adds the WHERE clauses of f.
func applyVariantFilter(q squirrel.SelectBuilder, f variant.Filter) squirrel.SelectBuilder {
	if f.CategoryID != nil {
		q = q.Where(squirrel.Eq{"category_id": *f.CategoryID})
	}
	if f.LocationID != nil {
		q = q.Where(squirrel.Eq{"location_id": *f.LocationID})
	}
	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"sku": pattern},
			squirrel.ILike{"name": pattern},
		})
	}
	return q
}
