// Package inventory_repo provides the PostgreSQL audit and audit line repository.
package inventory_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain"
	"stockledger/internal/domain/inventory"
	"stockledger/internal/infrastructure/storage/postgres"
)

const (
	auditTable = "inventory_audits"
	lineTable  = "inventory_audit_lines"
)

// AuditRepo implements inventory.Repository.
type AuditRepo struct {
	txm       *postgres.TxManager
	inserter  *postgres.BatchInserter
	auditCols []string
	lineCols  []string
}

var _ inventory.Repository = (*AuditRepo)(nil)

// NewAuditRepo creates a new audit repository.
func NewAuditRepo(txm *postgres.TxManager) *AuditRepo {
	return &AuditRepo{
		txm:       txm,
		inserter:  postgres.NewBatchInserter(txm),
		auditCols: postgres.Columns[inventory.Audit](),
		lineCols:  postgres.Columns[inventory.Line](),
	}
}

func (r *AuditRepo) Create(ctx context.Context, a *inventory.Audit) error {
	sql, args, err := postgres.Builder().
		Insert(auditTable).
		SetMap(postgres.StructToMap(a)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err, "inventory_audits_number_key") {
			return apperror.NewValidation("audit number already exists").WithDetail("number", a.Number)
		}
		return fmt.Errorf("insert audit: %w", err)
	}
	return nil
}

// CreateLines writes the snapshot with COPY.
func (r *AuditRepo) CreateLines(ctx context.Context, lines []*inventory.Line) error {
	rows := make([][]any, len(lines))
	for i, l := range lines {
		rows[i] = lineRow(l, r.lineCols)
	}
	if _, err := r.inserter.CopyFromSlice(ctx, lineTable, r.lineCols, rows); err != nil {
		return fmt.Errorf("insert audit lines: %w", err)
	}
	return nil
}

// lineRow returns the COPY values of l. COPY uses the binary format, so
// decimals are passed as pgtype.Numeric.
func lineRow(l *inventory.Line, cols []string) []any {
	row := postgres.RowValues(l, cols)
	for i, c := range cols {
		if c == "unit_cost" {
			row[i] = numeric(l.UnitCost)
		}
	}
	return row
}

func numeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func (r *AuditRepo) GetByID(ctx context.Context, auditID id.ID) (*inventory.Audit, error) {
	return r.get(ctx, auditID, false)
}

func (r *AuditRepo) GetForUpdate(ctx context.Context, auditID id.ID) (*inventory.Audit, error) {
	if r.txm.GetTx(ctx) == nil {
		return nil, fmt.Errorf("audit GetForUpdate requires transaction context")
	}
	return r.get(ctx, auditID, true)
}

func (r *AuditRepo) get(ctx context.Context, auditID id.ID, lock bool) (*inventory.Audit, error) {
	q := r.auditSelect().Where(squirrel.Eq{"id": auditID})
	if lock {
		q = q.Suffix("FOR UPDATE")
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var a inventory.Audit
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &a, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("audit", auditID)
		}
		return nil, fmt.Errorf("get audit: %w", err)
	}
	return &a, nil
}

// Update persists mutable fields with optimistic locking on version.
func (r *AuditRepo) Update(ctx context.Context, a *inventory.Audit) error {
	sql, args, err := postgres.Builder().
		Update(auditTable).
		Set("status", a.Status).
		Set("started_at", a.StartedAt).
		Set("completed_at", a.CompletedAt).
		Set("completed_by", a.CompletedBy).
		Set("cancelled_at", a.CancelledAt).
		Set("notes", a.Notes).
		Set("auto_posted", a.AutoPosted).
		Set("counted_variants", a.CountedVariants).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": a.ID, "version": a.Version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update audit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		current, getErr := r.GetByID(ctx, a.ID)
		if getErr != nil {
			return getErr
		}
		return apperror.NewInvalidState("audit", current.Status, "audit was modified concurrently").
			WithDetail("version", current.Version)
	}
	a.Version++
	return nil
}

func (r *AuditRepo) List(ctx context.Context, filter inventory.Filter, page domain.Page) (domain.ListResult[*inventory.Audit], error) {
	page = page.Normalize()
	res := domain.ListResult[*inventory.Audit]{Limit: page.Limit, Offset: page.Offset, Items: []*inventory.Audit{}}

	countSQL, countArgs, err := applyAuditFilter(postgres.Builder().Select("COUNT(*)").From(auditTable), filter).ToSql()
	if err != nil {
		return res, fmt.Errorf("build count: %w", err)
	}
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&res.TotalCount); err != nil {
		return res, fmt.Errorf("count audits: %w", err)
	}

	sql, args, err := applyAuditFilter(r.auditSelect(), filter).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(page.Limit)).
		Offset(uint64(page.Offset)).
		ToSql()
	if err != nil {
		return res, fmt.Errorf("build list: %w", err)
	}
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &res.Items, sql, args...); err != nil {
		return res, fmt.Errorf("list audits: %w", err)
	}
	return res, nil
}

func (r *AuditRepo) GetLines(ctx context.Context, auditID id.ID) ([]*inventory.Line, error) {
	sql, args, err := r.lineSelect().
		Where(squirrel.Eq{"audit_id": auditID}).
		OrderBy("line_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	lines := []*inventory.Line{}
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get audit lines: %w", err)
	}
	return lines, nil
}

func (r *AuditRepo) GetLine(ctx context.Context, auditID, lineID id.ID) (*inventory.Line, error) {
	sql, args, err := r.lineSelect().
		Where(squirrel.Eq{"audit_id": auditID, "id": lineID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var l inventory.Line
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &l, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("audit line", lineID).WithDetail("audit_id", auditID)
		}
		return nil, fmt.Errorf("get audit line: %w", err)
	}
	return &l, nil
}

func (r *AuditRepo) UpdateLine(ctx context.Context, l *inventory.Line) error {
	sql, args, err := postgres.Builder().
		Update(lineTable).
		Set("counted_stock", l.CountedStock).
		Set("is_counted", l.IsCounted).
		Set("counted_by", l.CountedBy).
		Set("counted_at", l.CountedAt).
		Set("adjustment_movement_id", l.AdjustmentMovementID).
		Where(squirrel.Eq{"id": l.ID, "audit_id": l.AuditID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update audit line: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("audit line", l.ID)
	}
	return nil
}

func (r *AuditRepo) auditSelect() squirrel.SelectBuilder {
	return postgres.Builder().Select(r.auditCols...).From(auditTable)
}

func (r *AuditRepo) lineSelect() squirrel.SelectBuilder {
	return postgres.Builder().Select(r.lineCols...).From(lineTable)
}

func applyAuditFilter(q squirrel.SelectBuilder, f inventory.Filter) squirrel.SelectBuilder {
	if f.Status != nil {
		q = q.Where(squirrel.Eq{"status": *f.Status})
	}
	return q
}
