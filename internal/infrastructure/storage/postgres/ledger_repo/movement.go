// Package ledger_repo provides the PostgreSQL stock movement repository.
package ledger_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/infrastructure/storage/postgres"
)

const movementTable = "stock_movements"

// MovementRepo implements ledger.Repository.
type MovementRepo struct {
	txm  *postgres.TxManager
	cols []string
}

var _ ledger.Repository = (*MovementRepo)(nil)

// NewMovementRepo creates a new movement repository.
func NewMovementRepo(txm *postgres.TxManager) *MovementRepo {
	return &MovementRepo{txm: txm, cols: postgres.Columns[ledger.Movement]()}
}

func (r *MovementRepo) Create(ctx context.Context, m *ledger.Movement) error {
	sql, args, err := postgres.Builder().
		Insert(movementTable).
		SetMap(postgres.StructToMap(m)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return apperror.NewNotFound("variant", m.VariantID)
		}
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

func (r *MovementRepo) GetByID(ctx context.Context, movementID id.ID) (*ledger.Movement, error) {
	return r.getOne(ctx, r.baseSelect().Where(squirrel.Eq{"id": movementID}), movementID)
}

func (r *MovementRepo) GetForUpdate(ctx context.Context, movementID id.ID) (*ledger.Movement, error) {
	if r.txm.GetTx(ctx) == nil {
		return nil, fmt.Errorf("movement GetForUpdate requires transaction context")
	}
	return r.getOne(ctx, r.baseSelect().Where(squirrel.Eq{"id": movementID}).Suffix("FOR UPDATE"), movementID)
}

func (r *MovementRepo) getOne(ctx context.Context, q squirrel.SelectBuilder, movementID id.ID) (*ledger.Movement, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var m ledger.Movement
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &m, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("movement", movementID)
		}
		return nil, fmt.Errorf("get movement: %w", err)
	}
	return &m, nil
}

func (r *MovementRepo) UpdateLifecycle(ctx context.Context, m *ledger.Movement) error {
	sql, args, err := postgres.Builder().
		Update(movementTable).
		Set("status", m.Status).
		Set("stock_before", m.StockBefore).
		Set("stock_after", m.StockAfter).
		Set("cost_before", m.CostBefore).
		Set("cost_after", m.CostAfter).
		Set("posting_seq", m.PostingSeq).
		Set("posted_at", m.PostedAt).
		Set("posted_by", m.PostedBy).
		Set("unposted_at", m.UnpostedAt).
		Set("unposted_by", m.UnpostedBy).
		Where(squirrel.Eq{"id": m.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update movement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("movement", m.ID)
	}
	return nil
}

func (r *MovementRepo) Delete(ctx context.Context, movementID id.ID) error {
	q := r.txm.GetQuerier(ctx)
	tag, err := q.Exec(ctx,
		`DELETE FROM stock_movements WHERE id = $1 AND status = $2`, movementID, ledger.StatusDraft)
	if err != nil {
		return fmt.Errorf("delete movement: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	m, err := r.GetByID(ctx, movementID)
	if err != nil {
		return err
	}
	return apperror.NewInvalidState("movement", m.Status, "only draft movements can be deleted")
}

func (r *MovementRepo) List(ctx context.Context, filter ledger.Filter, page domain.Page) (domain.ListResult[*ledger.Movement], error) {
	page = page.Normalize()
	res := domain.ListResult[*ledger.Movement]{Limit: page.Limit, Offset: page.Offset, Items: []*ledger.Movement{}}

	countSQL, countArgs, err := applyMovementFilter(postgres.Builder().Select("COUNT(*)").From(movementTable), filter).ToSql()
	if err != nil {
		return res, fmt.Errorf("build count: %w", err)
	}
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&res.TotalCount); err != nil {
		return res, fmt.Errorf("count movements: %w", err)
	}

	sql, args, err := applyMovementFilter(r.baseSelect(), filter).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(page.Limit)).
		Offset(uint64(page.Offset)).
		ToSql()
	if err != nil {
		return res, fmt.Errorf("build list: %w", err)
	}
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &res.Items, sql, args...); err != nil {
		return res, fmt.Errorf("list movements: %w", err)
	}
	return res, nil
}

func (r *MovementRepo) LatestPosted(ctx context.Context, variantID id.ID) (*ledger.Movement, error) {
	sql, args, err := r.postedSelect(variantID).OrderBy("posting_seq DESC").Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var m ledger.Movement
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &m, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("latest posted movement: %w", err)
	}
	return &m, nil
}

func (r *MovementRepo) ListPosted(ctx context.Context, variantID id.ID) ([]*ledger.Movement, error) {
	sql, args, err := r.postedSelect(variantID).OrderBy("posting_seq").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var items []*ledger.Movement
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list posted movements: %w", err)
	}
	return items, nil
}

func (r *MovementRepo) baseSelect() squirrel.SelectBuilder {
	return postgres.Builder().Select(r.cols...).From(movementTable)
}

func (r *MovementRepo) postedSelect(variantID id.ID) squirrel.SelectBuilder {
	return r.baseSelect().Where(squirrel.Eq{"variant_id": variantID, "status": ledger.StatusPosted})
}

// applyMovementFilter adds the WHERE clauses of f. From is inclusive, To exclusive.
func applyMovementFilter(q squirrel.SelectBuilder, f ledger.Filter) squirrel.SelectBuilder {
	if f.From != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *f.From})
	}
	if f.To != nil {
		q = q.Where(squirrel.Lt{"created_at": *f.To})
	}
	if f.VariantID != nil {
		q = q.Where(squirrel.Eq{"variant_id": *f.VariantID})
	}
	if f.Type != nil {
		q = q.Where(squirrel.Eq{"movement_type": *f.Type})
	}
	if f.Status != nil {
		q = q.Where(squirrel.Eq{"status": *f.Status})
	}
	if f.Reference != "" {
		q = q.Where(squirrel.Eq{"reference": f.Reference})
	}
	return q
}
