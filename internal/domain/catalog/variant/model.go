// Package variant provides the product variant catalog: the SKUs whose stock
// and weighted-average cost the ledger maintains.
package variant

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

// Variant is a concrete purchasable SKU.
//
// StockQuantity, AverageCost and PostingSeq are owned by the ledger: they
// change only when a movement is posted or unposted.
type Variant struct {
	ID   id.ID  `db:"id" json:"id"`
	SKU  string `db:"sku" json:"sku"`
	Name string `db:"name" json:"name"`

	// CategoryID and LocationID are opaque references used for audit scoping.
	CategoryID *string `db:"category_id" json:"categoryId,omitempty"`
	LocationID *string `db:"location_id" json:"locationId,omitempty"`

	// StockQuantity may go negative until reconciled by an audit.
	StockQuantity int64           `db:"stock_quantity" json:"stockQuantity"`
	AverageCost   decimal.Decimal `db:"average_cost" json:"averageCost"`

	// PostingSeq counts posts ever applied to the variant. Each posted
	// movement stores the value it was assigned.
	PostingSeq int64 `db:"posting_seq" json:"postingSeq"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewVariant creates a variant with zero stock and cost.
func NewVariant(sku, name string) *Variant {
	now := time.Now().UTC()
	return &Variant{
		ID:          id.New(),
		SKU:         strings.TrimSpace(sku),
		Name:        strings.TrimSpace(name),
		AverageCost: types.Zero(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Validate checks catalog fields.
func (v *Variant) Validate() error {
	if v.SKU == "" {
		return apperror.NewValidation("sku is required").WithDetail("field", "sku")
	}
	if len(v.SKU) > 64 {
		return apperror.NewValidation("sku must be at most 64 characters").WithDetail("field", "sku")
	}
	if v.Name == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	if v.AverageCost.IsNegative() {
		return apperror.NewValidation("average cost cannot be negative").WithDetail("field", "averageCost")
	}
	return nil
}

// Filter selects variants for listing and audit scoping.
type Filter struct {
	// Search matches SKU or name, case-insensitive.
	Search     string
	CategoryID *string
	LocationID *string
}

// Matches reports whether v passes the filter.
func (f Filter) Matches(v *Variant) bool {
	if f.CategoryID != nil && (v.CategoryID == nil || *v.CategoryID != *f.CategoryID) {
		return false
	}
	if f.LocationID != nil && (v.LocationID == nil || *v.LocationID != *f.LocationID) {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(v.SKU), q) && !strings.Contains(strings.ToLower(v.Name), q) {
			return false
		}
	}
	return true
}
