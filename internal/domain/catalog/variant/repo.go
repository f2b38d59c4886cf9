package variant

import (
	"context"

	"stockledger/internal/core/id"
	"stockledger/internal/domain"
)

// Repository defines the interface for Variant persistence.
type Repository interface {
	// Create inserts a new variant. A duplicate SKU is a validation error.
	Create(ctx context.Context, v *Variant) error

	// GetByID retrieves a variant.
	GetByID(ctx context.Context, id id.ID) (*Variant, error)

	// GetForUpdate retrieves a variant with a row lock held until the
	// surrounding transaction ends.
	GetForUpdate(ctx context.Context, id id.ID) (*Variant, error)

	// UpdateState persists StockQuantity, AverageCost and PostingSeq.
	UpdateState(ctx context.Context, v *Variant) error

	// List returns a page of variants ordered by SKU.
	List(ctx context.Context, filter Filter, page domain.Page) (domain.ListResult[*Variant], error)

	// FindAll returns every variant matching filter ordered by SKU.
	FindAll(ctx context.Context, filter Filter) ([]*Variant, error)
}
