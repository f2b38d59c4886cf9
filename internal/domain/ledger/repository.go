package ledger

import (
	"context"

	"stockledger/internal/core/id"
	"stockledger/internal/domain"
)

// Repository defines persistence of movements.
type Repository interface {
	// Create inserts a draft movement.
	Create(ctx context.Context, m *Movement) error

	// GetByID retrieves a movement.
	GetByID(ctx context.Context, id id.ID) (*Movement, error)

	// GetForUpdate retrieves a movement with a row lock.
	GetForUpdate(ctx context.Context, id id.ID) (*Movement, error)

	// UpdateLifecycle persists status, snapshots and posting/unposting fields.
	UpdateLifecycle(ctx context.Context, m *Movement) error

	// Delete removes a draft movement. Posted and reversed rows are never deleted.
	Delete(ctx context.Context, id id.ID) error

	// List returns a page of movements, newest first.
	List(ctx context.Context, filter Filter, page domain.Page) (domain.ListResult[*Movement], error)

	// LatestPosted returns the currently posted movement of the variant with
	// the highest posting sequence, or nil if none is posted.
	LatestPosted(ctx context.Context, variantID id.ID) (*Movement, error)

	// ListPosted returns the currently posted movements of the variant in
	// posting order.
	ListPosted(ctx context.Context, variantID id.ID) ([]*Movement, error)
}
