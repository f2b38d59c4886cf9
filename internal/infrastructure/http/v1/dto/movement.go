package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/domain/ledger"
)

// --- Request DTOs ---

// CreateMovementRequest records a draft movement.
type CreateMovementRequest struct {
	VariantID    string           `json:"variantId" binding:"required"`
	MovementType string           `json:"movementType" binding:"required"`
	Quantity     int64            `json:"quantity"`
	UnitCost     *decimal.Decimal `json:"unitCost,omitempty"`
	Reference    string           `json:"reference,omitempty"`
	Notes        string           `json:"notes,omitempty"`
}

// ToInput converts the request to ledger input. Type names are
// case-insensitive.
func (r *CreateMovementRequest) ToInput() (ledger.RecordInput, error) {
	variantID, err := id.Parse(r.VariantID)
	if err != nil {
		return ledger.RecordInput{}, apperror.NewValidation("invalid variant id").WithDetail("field", "variantId")
	}
	typ, ok := ledger.ParseMovementType(r.MovementType)
	if !ok {
		return ledger.RecordInput{}, apperror.NewValidation("unknown movement type").
			WithDetail("field", "movementType").
			WithDetail("value", r.MovementType)
	}
	return ledger.RecordInput{
		VariantID: variantID,
		Type:      typ,
		Quantity:  r.Quantity,
		UnitCost:  r.UnitCost,
		Reference: r.Reference,
		Notes:     r.Notes,
	}, nil
}

// ListMovementsQuery filters the movement listing.
// from/to are RFC 3339 timestamps; from is inclusive, to exclusive.
type ListMovementsQuery struct {
	PageQuery
	From      string `form:"from"`
	To        string `form:"to"`
	VariantID string `form:"variantId"`
	Type      string `form:"type"`
	Status    string `form:"status"`
	Reference string `form:"reference"`
}

// ToFilter validates and converts the query.
func (q *ListMovementsQuery) ToFilter() (ledger.Filter, error) {
	var f ledger.Filter
	var err error
	if f.From, err = parseTime("from", q.From); err != nil {
		return f, err
	}
	if f.To, err = parseTime("to", q.To); err != nil {
		return f, err
	}
	if q.VariantID != "" {
		v, err := id.Parse(q.VariantID)
		if err != nil {
			return f, apperror.NewValidation("invalid variant id").WithDetail("field", "variantId")
		}
		f.VariantID = &v
	}
	if q.Type != "" {
		t, ok := ledger.ParseMovementType(q.Type)
		if !ok {
			return f, apperror.NewValidation("unknown movement type").WithDetail("field", "type")
		}
		f.Type = &t
	}
	if q.Status != "" {
		s := ledger.Status(q.Status)
		if !s.IsValid() {
			return f, apperror.NewValidation("unknown status").WithDetail("field", "status")
		}
		f.Status = &s
	}
	f.Reference = q.Reference
	return f, nil
}

func parseTime(field, v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, apperror.NewValidation("invalid timestamp, expected RFC 3339").WithDetail("field", field)
	}
	return &t, nil
}

// --- Response DTOs ---

// MovementResponse is the API view of a movement.
type MovementResponse struct {
	ID           string           `json:"id"`
	VariantID    string           `json:"variantId"`
	MovementType string           `json:"movementType"`
	Quantity     int64            `json:"quantity"`
	UnitCost     *decimal.Decimal `json:"unitCost,omitempty"`
	Status       string           `json:"status"`
	StockBefore  *int64           `json:"stockBefore,omitempty"`
	StockAfter   *int64           `json:"stockAfter,omitempty"`
	CostBefore   *decimal.Decimal `json:"costBefore,omitempty"`
	CostAfter    *decimal.Decimal `json:"costAfter,omitempty"`
	PostingSeq   *int64           `json:"postingSeq,omitempty"`
	Reference    string           `json:"reference,omitempty"`
	Notes        string           `json:"notes,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
	CreatedBy    string           `json:"createdBy"`
	PostedAt     *time.Time       `json:"postedAt,omitempty"`
	PostedBy     *string          `json:"postedBy,omitempty"`
	UnpostedAt   *time.Time       `json:"unpostedAt,omitempty"`
	UnpostedBy   *string          `json:"unpostedBy,omitempty"`
}

// FromMovement creates MovementResponse from a movement.
func FromMovement(m *ledger.Movement) MovementResponse {
	return MovementResponse{
		ID:           m.ID.String(),
		VariantID:    m.VariantID.String(),
		MovementType: string(m.Type),
		Quantity:     m.Quantity,
		UnitCost:     m.UnitCost,
		Status:       string(m.Status),
		StockBefore:  m.StockBefore,
		StockAfter:   m.StockAfter,
		CostBefore:   m.CostBefore,
		CostAfter:    m.CostAfter,
		PostingSeq:   m.PostingSeq,
		Reference:    m.Reference,
		Notes:        m.Notes,
		CreatedAt:    m.CreatedAt,
		CreatedBy:    m.CreatedBy,
		PostedAt:     m.PostedAt,
		PostedBy:     m.PostedBy,
		UnpostedAt:   m.UnpostedAt,
		UnpostedBy:   m.UnpostedBy,
	}
}
