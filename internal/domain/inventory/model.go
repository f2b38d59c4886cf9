// Package inventory provides physical stock audits: a frozen snapshot of
// theoretical stock, blind counting against it, and reconciliation through
// Adjustment movements in the ledger.
package inventory

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

// Status represents the lifecycle state of an audit.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ScopeKind selects which variants an audit covers.
type ScopeKind string

const (
	ScopeAll      ScopeKind = "all"
	ScopeCategory ScopeKind = "category"
	ScopeLocation ScopeKind = "location"
)

// Scope describes the variant subset of an audit.
type Scope struct {
	Kind  ScopeKind `json:"kind"`
	Value string    `json:"value,omitempty"`
}

// Validate checks that category and location scopes carry a value.
func (s Scope) Validate() error {
	switch s.Kind {
	case ScopeAll:
		if s.Value != "" {
			return apperror.NewValidation("scope 'all' takes no value").WithDetail("field", "scope.value")
		}
	case ScopeCategory, ScopeLocation:
		if strings.TrimSpace(s.Value) == "" {
			return apperror.NewValidation("scope '" + string(s.Kind) + "' requires a value").
				WithDetail("field", "scope.value")
		}
	default:
		return apperror.NewValidation("unknown scope kind").
			WithDetail("field", "scope.kind").
			WithDetail("value", string(s.Kind))
	}
	return nil
}

// Audit is a physical inventory count.
type Audit struct {
	ID              id.ID     `db:"id"`
	Number          string    `db:"number"`
	Name            string    `db:"name"`
	ScopeKind       ScopeKind `db:"scope_kind"`
	ScopeValue      string    `db:"scope_value"`
	Status          Status    `db:"status"`
	SnapshotTakenAt time.Time `db:"snapshot_taken_at"`

	CreatedAt   time.Time  `db:"created_at"`
	CreatedBy   string     `db:"created_by"`
	StartedAt   *time.Time `db:"started_at"`
	CompletedAt *time.Time `db:"completed_at"`
	CompletedBy *string    `db:"completed_by"`
	CancelledAt *time.Time `db:"cancelled_at"`
	Notes       string     `db:"notes"`
	AutoPosted  bool       `db:"auto_posted"`

	TotalVariants   int `db:"total_variants"`
	CountedVariants int `db:"counted_variants"`

	// Version is bumped by every update.
	Version int `db:"version"`
}

// Scope returns the scope descriptor.
func (a *Audit) Scope() Scope {
	return Scope{Kind: a.ScopeKind, Value: a.ScopeValue}
}

// Progress is CountedVariants/TotalVariants, or 0 for an empty audit.
func (a *Audit) Progress() float64 {
	if a.TotalVariants == 0 {
		return 0
	}
	return float64(a.CountedVariants) / float64(a.TotalVariants)
}

// Start transitions Draft -> InProgress.
func (a *Audit) Start(now time.Time) error {
	if a.Status != StatusDraft {
		return apperror.NewInvalidState("audit", a.Status, "only draft audits can be started")
	}
	a.Status = StatusInProgress
	a.StartedAt = &now
	return nil
}

// Cancel transitions Draft|InProgress -> Cancelled.
func (a *Audit) Cancel(now time.Time) error {
	if a.Status.IsTerminal() {
		return apperror.NewInvalidState("audit", a.Status, "completed or cancelled audits cannot be cancelled")
	}
	a.Status = StatusCancelled
	a.CancelledAt = &now
	return nil
}

// CanCount checks that counts are accepted.
func (a *Audit) CanCount() error {
	if a.Status != StatusInProgress {
		return apperror.NewInvalidState("audit", a.Status, "counts are accepted only while the audit is in progress")
	}
	return nil
}

// complete transitions InProgress -> Completed.
func (a *Audit) complete(actor, notes string, autoPosted bool, now time.Time) {
	a.Status = StatusCompleted
	a.CompletedAt = &now
	a.CompletedBy = &actor
	a.Notes = notes
	a.AutoPosted = autoPosted
}

// Line is one variant of an audit. TheoreticalStock and UnitCost are frozen
// at snapshot time.
type Line struct {
	ID          id.ID  `db:"id"`
	AuditID     id.ID  `db:"audit_id"`
	LineNo      int    `db:"line_no"`
	VariantID   id.ID  `db:"variant_id"`
	SKU         string `db:"sku"`
	VariantName string `db:"variant_name"`

	TheoreticalStock int64           `db:"theoretical_stock"`
	UnitCost         decimal.Decimal `db:"unit_cost"`

	CountedStock *int64     `db:"counted_stock"`
	IsCounted    bool       `db:"is_counted"`
	CountedBy    *string    `db:"counted_by"`
	CountedAt    *time.Time `db:"counted_at"`

	AdjustmentMovementID *id.ID `db:"adjustment_movement_id"`
}

// Variance is counted minus theoretical stock, or nil until counted.
func (l *Line) Variance() *int64 {
	if !l.IsCounted || l.CountedStock == nil {
		return nil
	}
	v := *l.CountedStock - l.TheoreticalStock
	return &v
}

// VarianceValue is Variance priced at the snapshot unit cost, or nil until counted.
func (l *Line) VarianceValue() *decimal.Decimal {
	v := l.Variance()
	if v == nil {
		return nil
	}
	value := types.Units(*v).Mul(l.UnitCost)
	return &value
}

// record stores a count. It reports whether this is the line's first count.
func (l *Line) record(counted int64, actor string, now time.Time) bool {
	first := !l.IsCounted
	l.CountedStock = &counted
	l.IsCounted = true
	l.CountedBy = &actor
	l.CountedAt = &now
	return first
}

// BlindLine is the counter's view of a line: no theoretical stock, no variance.
type BlindLine struct {
	ID           id.ID      `json:"id"`
	LineNo       int        `json:"lineNo"`
	VariantID    id.ID      `json:"variantId"`
	SKU          string     `json:"sku"`
	VariantName  string     `json:"variantName"`
	CountedStock *int64     `json:"countedStock,omitempty"`
	IsCounted    bool       `json:"isCounted"`
	CountedBy    *string    `json:"countedBy,omitempty"`
	CountedAt    *time.Time `json:"countedAt,omitempty"`
}

// Blind projects l for counters.
func (l *Line) Blind() BlindLine {
	return BlindLine{
		ID:           l.ID,
		LineNo:       l.LineNo,
		VariantID:    l.VariantID,
		SKU:          l.SKU,
		VariantName:  l.VariantName,
		CountedStock: l.CountedStock,
		IsCounted:    l.IsCounted,
		CountedBy:    l.CountedBy,
		CountedAt:    l.CountedAt,
	}
}

// Progress is the counter-facing progress of an audit.
type Progress struct {
	Total       int     `json:"total"`
	Counted     int     `json:"counted"`
	Progress    float64 `json:"progress"`
	CountedByMe int     `json:"countedByMe"`
}

// Summary aggregates variance over counted lines.
type Summary struct {
	AuditID               id.ID           `json:"auditId"`
	Status                Status          `json:"status"`
	TotalItems            int             `json:"totalItems"`
	CountedItems          int             `json:"countedItems"`
	ItemsWithVariance     int             `json:"itemsWithVariance"`
	TotalPositiveVariance int64           `json:"totalPositiveVariance"`
	TotalNegativeVariance int64           `json:"totalNegativeVariance"`
	TotalPositiveValue    decimal.Decimal `json:"totalPositiveValue"`
	TotalNegativeValue    decimal.Decimal `json:"totalNegativeValue"`
	NetVarianceValue      decimal.Decimal `json:"netVarianceValue"`
}

// Filter selects audits for listing.
type Filter struct {
	Status *Status
}

// CreateInput describes a new audit.
type CreateInput struct {
	Name  string
	Scope Scope
}

// CompleteInput controls audit completion.
type CompleteInput struct {
	AutoPostAdjustments bool
	Notes               string
}
