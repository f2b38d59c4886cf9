package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"stockledger/internal/core/apperror"
	"stockledger/internal/domain/inventory"
)

// --- Request DTOs ---

// ScopeRequest selects the variants of an audit.
type ScopeRequest struct {
	Kind  string `json:"kind" binding:"required"`
	Value string `json:"value,omitempty"`
}

// CreateAuditRequest snapshots a new audit.
type CreateAuditRequest struct {
	Name  string       `json:"name" binding:"required"`
	Scope ScopeRequest `json:"scope"`
}

// ToInput converts the request to service input.
func (r *CreateAuditRequest) ToInput() inventory.CreateInput {
	return inventory.CreateInput{
		Name:  r.Name,
		Scope: inventory.Scope{Kind: inventory.ScopeKind(r.Scope.Kind), Value: r.Scope.Value},
	}
}

// SubmitCountRequest records a physical count.
type SubmitCountRequest struct {
	CountedStock *int64 `json:"countedStock" binding:"required"`
}

// CompleteAuditRequest completes an audit.
type CompleteAuditRequest struct {
	AutoPostAdjustments bool   `json:"autoPostAdjustments"`
	Notes               string `json:"notes,omitempty"`
}

// ToInput converts the request to service input.
func (r *CompleteAuditRequest) ToInput() inventory.CompleteInput {
	return inventory.CompleteInput{AutoPostAdjustments: r.AutoPostAdjustments, Notes: r.Notes}
}

// ListAuditsQuery filters the audit listing.
type ListAuditsQuery struct {
	PageQuery
	Status string `form:"status"`
}

// ToFilter validates and converts the query.
func (q *ListAuditsQuery) ToFilter() (inventory.Filter, error) {
	var f inventory.Filter
	if q.Status != "" {
		s := inventory.Status(q.Status)
		if !s.IsValid() {
			return f, apperror.NewValidation("unknown status").WithDetail("field", "status")
		}
		f.Status = &s
	}
	return f, nil
}

// --- Response DTOs ---

// AuditResponse is the API view of an audit header.
type AuditResponse struct {
	ID              string          `json:"id"`
	Number          string          `json:"number"`
	Name            string          `json:"name"`
	Scope           inventory.Scope `json:"scope"`
	Status          string          `json:"status"`
	SnapshotTakenAt time.Time       `json:"snapshotTakenAt"`
	CreatedAt       time.Time       `json:"createdAt"`
	CreatedBy       string          `json:"createdBy"`
	StartedAt       *time.Time      `json:"startedAt,omitempty"`
	CompletedAt     *time.Time      `json:"completedAt,omitempty"`
	CompletedBy     *string         `json:"completedBy,omitempty"`
	CancelledAt     *time.Time      `json:"cancelledAt,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	AutoPosted      bool            `json:"autoPosted"`
	TotalVariants   int             `json:"totalVariants"`
	CountedVariants int             `json:"countedVariants"`
	Progress        float64         `json:"progress"`
}

// FromAudit creates AuditResponse from an audit.
func FromAudit(a *inventory.Audit) AuditResponse {
	return AuditResponse{
		ID:              a.ID.String(),
		Number:          a.Number,
		Name:            a.Name,
		Scope:           a.Scope(),
		Status:          string(a.Status),
		SnapshotTakenAt: a.SnapshotTakenAt,
		CreatedAt:       a.CreatedAt,
		CreatedBy:       a.CreatedBy,
		StartedAt:       a.StartedAt,
		CompletedAt:     a.CompletedAt,
		CompletedBy:     a.CompletedBy,
		CancelledAt:     a.CancelledAt,
		Notes:           a.Notes,
		AutoPosted:      a.AutoPosted,
		TotalVariants:   a.TotalVariants,
		CountedVariants: a.CountedVariants,
		Progress:        a.Progress(),
	}
}

// AuditLineResponse is the reviewer's view of a line, with variance.
type AuditLineResponse struct {
	ID                   string           `json:"id"`
	LineNo               int              `json:"lineNo"`
	VariantID            string           `json:"variantId"`
	SKU                  string           `json:"sku"`
	VariantName          string           `json:"variantName"`
	TheoreticalStock     int64            `json:"theoreticalStock"`
	UnitCost             decimal.Decimal  `json:"unitCost"`
	CountedStock         *int64           `json:"countedStock,omitempty"`
	IsCounted            bool             `json:"isCounted"`
	CountedBy            *string          `json:"countedBy,omitempty"`
	CountedAt            *time.Time       `json:"countedAt,omitempty"`
	Variance             *int64           `json:"variance,omitempty"`
	VarianceValue        *decimal.Decimal `json:"varianceValue,omitempty"`
	AdjustmentMovementID *string          `json:"adjustmentMovementId,omitempty"`
}

// FromAuditLine creates AuditLineResponse from a line.
func FromAuditLine(l *inventory.Line) AuditLineResponse {
	resp := AuditLineResponse{
		ID:               l.ID.String(),
		LineNo:           l.LineNo,
		VariantID:        l.VariantID.String(),
		SKU:              l.SKU,
		VariantName:      l.VariantName,
		TheoreticalStock: l.TheoreticalStock,
		UnitCost:         l.UnitCost,
		CountedStock:     l.CountedStock,
		IsCounted:        l.IsCounted,
		CountedBy:        l.CountedBy,
		CountedAt:        l.CountedAt,
		Variance:         l.Variance(),
		VarianceValue:    l.VarianceValue(),
	}
	if l.AdjustmentMovementID != nil {
		s := l.AdjustmentMovementID.String()
		resp.AdjustmentMovementID = &s
	}
	return resp
}

// FromAuditLines converts lines in order.
func FromAuditLines(lines []*inventory.Line) []AuditLineResponse {
	out := make([]AuditLineResponse, len(lines))
	for i, l := range lines {
		out[i] = FromAuditLine(l)
	}
	return out
}
