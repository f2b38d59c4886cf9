package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"stockledger/internal/domain/catalog/variant"
	"stockledger/internal/domain/ledger"
)

// CreateVariantRequest registers a variant with zero stock.
type CreateVariantRequest struct {
	SKU        string  `json:"sku" binding:"required"`
	Name       string  `json:"name" binding:"required"`
	CategoryID *string `json:"categoryId,omitempty"`
	LocationID *string `json:"locationId,omitempty"`
}

// ToInput converts the request to service input.
func (r *CreateVariantRequest) ToInput() variant.CreateInput {
	return variant.CreateInput{SKU: r.SKU, Name: r.Name, CategoryID: r.CategoryID, LocationID: r.LocationID}
}

// ListVariantsQuery filters the variant listing.
type ListVariantsQuery struct {
	PageQuery
	Search     string `form:"search"`
	CategoryID string `form:"categoryId"`
	LocationID string `form:"locationId"`
}

// ToFilter converts the query.
func (q *ListVariantsQuery) ToFilter() variant.Filter {
	f := variant.Filter{Search: q.Search}
	if q.CategoryID != "" {
		f.CategoryID = &q.CategoryID
	}
	if q.LocationID != "" {
		f.LocationID = &q.LocationID
	}
	return f
}

// VariantResponse is the API view of a variant.
type VariantResponse struct {
	ID            string          `json:"id"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	CategoryID    *string         `json:"categoryId,omitempty"`
	LocationID    *string         `json:"locationId,omitempty"`
	StockQuantity int64           `json:"stockQuantity"`
	AverageCost   decimal.Decimal `json:"averageCost"`
	StockValue    decimal.Decimal `json:"stockValue"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// FromVariant creates VariantResponse from a variant.
func FromVariant(v *variant.Variant) VariantResponse {
	return VariantResponse{
		ID:            v.ID.String(),
		SKU:           v.SKU,
		Name:          v.Name,
		CategoryID:    v.CategoryID,
		LocationID:    v.LocationID,
		StockQuantity: v.StockQuantity,
		AverageCost:   v.AverageCost,
		StockValue:    v.AverageCost.Mul(decimal.NewFromInt(v.StockQuantity)),
		CreatedAt:     v.CreatedAt,
		UpdatedAt:     v.UpdatedAt,
	}
}

// VerificationResponse reports a ledger replay of one variant.
type VerificationResponse struct {
	VariantID     string          `json:"variantId"`
	Consistent    bool            `json:"consistent"`
	PostedCount   int             `json:"postedCount"`
	StoredStock   int64           `json:"storedStock"`
	StoredCost    decimal.Decimal `json:"storedCost"`
	ReplayedStock int64           `json:"replayedStock"`
	ReplayedCost  decimal.Decimal `json:"replayedCost"`
}

// FromVerification creates VerificationResponse.
func FromVerification(v *ledger.Verification) VerificationResponse {
	return VerificationResponse{
		VariantID:     v.VariantID.String(),
		Consistent:    v.Consistent,
		PostedCount:   v.PostedCount,
		StoredStock:   v.Stored.Stock,
		StoredCost:    v.Stored.AverageCost,
		ReplayedStock: v.Replayed.Stock,
		ReplayedCost:  v.Replayed.AverageCost,
	}
}
