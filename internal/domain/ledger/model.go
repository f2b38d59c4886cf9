// Package ledger provides the stock ledger: movements recorded as drafts,
// posted onto a variant's stock and weighted-average cost, and reversed in
// strict LIFO order.
package ledger

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
)

// MovementType is the closed set of stock-affecting events.
type MovementType string

const (
	TypeInitialStock     MovementType = "InitialStock"
	TypePurchase         MovementType = "Purchase"
	TypeSale             MovementType = "Sale"
	TypeReturn           MovementType = "Return"
	TypeAdjustment       MovementType = "Adjustment"
	TypeLoss             MovementType = "Loss"
	TypeTransfer         MovementType = "Transfer"
	TypeSaleCancellation MovementType = "SaleCancellation"
)

// Sign constrains the sign of a movement's quantity.
type Sign int

const (
	SignEither Sign = iota
	SignPositive
	SignNegative
)

// TypeRule holds the per-type constraints.
type TypeRule struct {
	Sign Sign
	// CostRequired demands a strictly positive unit cost.
	CostRequired bool
	// Costed types may carry a unit cost that feeds the weighted average.
	Costed bool
	// Reversible is false for system-generated movements that must never be
	// unposted manually.
	Reversible bool
}

var typeRules = map[MovementType]TypeRule{
	TypeInitialStock:     {Sign: SignPositive, Costed: true, Reversible: true},
	TypePurchase:         {Sign: SignPositive, CostRequired: true, Costed: true, Reversible: true},
	TypeSale:             {Sign: SignNegative, Reversible: false},
	TypeReturn:           {Sign: SignPositive, Costed: true, Reversible: true},
	TypeAdjustment:       {Sign: SignEither, Reversible: true},
	TypeLoss:             {Sign: SignNegative, Reversible: true},
	TypeTransfer:         {Sign: SignEither, Reversible: true},
	TypeSaleCancellation: {Sign: SignPositive, Reversible: false},
}

// Rule returns the constraints of t.
func (t MovementType) Rule() (TypeRule, bool) {
	r, ok := typeRules[t]
	return r, ok
}

// IsValid reports whether t is a known movement type.
func (t MovementType) IsValid() bool {
	_, ok := typeRules[t]
	return ok
}

// Reversible reports whether a posted movement of type t may be unposted.
func (t MovementType) Reversible() bool {
	return typeRules[t].Reversible
}

// Costed reports whether a unit cost on type t moves the average cost.
func (t MovementType) Costed() bool {
	return typeRules[t].Costed
}

// ParseMovementType resolves a type name, case-insensitively.
func ParseMovementType(s string) (MovementType, bool) {
	for t := range typeRules {
		if strings.EqualFold(string(t), s) {
			return t, true
		}
	}
	return "", false
}

// Status is the lifecycle state of a movement.
type Status string

const (
	StatusDraft  Status = "draft"
	StatusPosted Status = "posted"
	// StatusReversed is terminal: the movement was posted and then unposted.
	StatusReversed Status = "reversed"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusPosted, StatusReversed:
		return true
	}
	return false
}

// Movement is a ledger entry. Everything except the lifecycle fields is
// immutable after Record.
type Movement struct {
	ID        id.ID            `db:"id"`
	VariantID id.ID            `db:"variant_id"`
	Type      MovementType     `db:"movement_type"`
	Quantity  int64            `db:"quantity"`
	UnitCost  *decimal.Decimal `db:"unit_cost"`
	Status    Status           `db:"status"`

	// Captured when posted; kept after reversal for the audit trail.
	StockBefore *int64           `db:"stock_before"`
	StockAfter  *int64           `db:"stock_after"`
	CostBefore  *decimal.Decimal `db:"cost_before"`
	CostAfter   *decimal.Decimal `db:"cost_after"`
	PostingSeq  *int64           `db:"posting_seq"`

	Reference string `db:"reference"`
	Notes     string `db:"notes"`

	CreatedAt  time.Time  `db:"created_at"`
	CreatedBy  string     `db:"created_by"`
	PostedAt   *time.Time `db:"posted_at"`
	PostedBy   *string    `db:"posted_by"`
	UnpostedAt *time.Time `db:"unposted_at"`
	UnpostedBy *string    `db:"unposted_by"`
}

// IsPosted reports whether the movement currently affects variant state.
func (m *Movement) IsPosted() bool {
	return m.Status == StatusPosted
}

// RecordInput describes a new draft movement.
type RecordInput struct {
	VariantID id.ID
	Type      MovementType
	Quantity  int64
	UnitCost  *decimal.Decimal
	Reference string
	Notes     string
}

// Validate applies the type rules to the input.
func (in RecordInput) Validate() error {
	rule, ok := in.Type.Rule()
	if !ok {
		return apperror.NewValidation("unknown movement type").
			WithDetail("field", "movementType").
			WithDetail("value", string(in.Type))
	}
	if id.IsNil(in.VariantID) {
		return apperror.NewValidation("variant id is required").WithDetail("field", "variantId")
	}
	if in.Quantity == 0 {
		return apperror.NewValidation("quantity cannot be zero").WithDetail("field", "quantity")
	}
	switch rule.Sign {
	case SignPositive:
		if in.Quantity < 0 {
			return apperror.NewValidation(string(in.Type) + " quantity must be positive").
				WithDetail("field", "quantity")
		}
	case SignNegative:
		if in.Quantity > 0 {
			return apperror.NewValidation(string(in.Type) + " quantity must be negative").
				WithDetail("field", "quantity")
		}
	}
	if in.UnitCost != nil && !rule.Costed {
		return apperror.NewValidation(string(in.Type) + " does not take a unit cost").
			WithDetail("field", "unitCost")
	}
	if in.UnitCost != nil && in.UnitCost.IsNegative() {
		return apperror.NewValidation("unit cost cannot be negative").WithDetail("field", "unitCost")
	}
	if rule.CostRequired && (in.UnitCost == nil || !in.UnitCost.IsPositive()) {
		return apperror.NewValidation(string(in.Type) + " requires a positive unit cost").
			WithDetail("field", "unitCost")
	}
	if len(in.Reference) > 255 {
		return apperror.NewValidation("reference must be at most 255 characters").
			WithDetail("field", "reference")
	}
	return nil
}

// NewMovement builds a draft from validated input.
func NewMovement(in RecordInput, actor string, now time.Time) *Movement {
	return &Movement{
		ID:        id.New(),
		VariantID: in.VariantID,
		Type:      in.Type,
		Quantity:  in.Quantity,
		UnitCost:  in.UnitCost,
		Status:    StatusDraft,
		Reference: strings.TrimSpace(in.Reference),
		Notes:     in.Notes,
		CreatedAt: now,
		CreatedBy: actor,
	}
}

// markPosted records the snapshots of a successful post.
func (m *Movement) markPosted(before, after State, seq int64, actor string, now time.Time) {
	m.Status = StatusPosted
	m.StockBefore = &before.Stock
	m.StockAfter = &after.Stock
	m.CostBefore = &before.AverageCost
	m.CostAfter = &after.AverageCost
	m.PostingSeq = &seq
	m.PostedAt = &now
	m.PostedBy = &actor
}

// markReversed flips a posted movement to its terminal state.
func (m *Movement) markReversed(actor string, now time.Time) {
	m.Status = StatusReversed
	m.UnpostedAt = &now
	m.UnpostedBy = &actor
}

// Filter selects movements for listing.
type Filter struct {
	From      *time.Time
	To        *time.Time
	VariantID *id.ID
	Type      *MovementType
	Status    *Status
	Reference string
}

// Matches reports whether m passes the filter. From is inclusive, To exclusive.
func (f Filter) Matches(m *Movement) bool {
	if f.From != nil && m.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && !m.CreatedAt.Before(*f.To) {
		return false
	}
	if f.VariantID != nil && m.VariantID != *f.VariantID {
		return false
	}
	if f.Type != nil && m.Type != *f.Type {
		return false
	}
	if f.Status != nil && m.Status != *f.Status {
		return false
	}
	if f.Reference != "" && m.Reference != f.Reference {
		return false
	}
	return true
}
