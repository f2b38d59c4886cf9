package inventory

import (
	"context"

	"stockledger/internal/core/id"
	"stockledger/internal/domain"
)

// Repository defines persistence of audits and their lines.
type Repository interface {
	// Create inserts an audit header.
	Create(ctx context.Context, a *Audit) error

	// CreateLines bulk-inserts the snapshot lines of a new audit.
	CreateLines(ctx context.Context, lines []*Line) error

	// GetByID retrieves an audit.
	GetByID(ctx context.Context, id id.ID) (*Audit, error)

	// GetForUpdate retrieves an audit with a row lock. Every mutation of the
	// audit or its lines takes this lock first.
	GetForUpdate(ctx context.Context, id id.ID) (*Audit, error)

	// Update persists status, counters and completion fields, bumping Version.
	Update(ctx context.Context, a *Audit) error

	// List returns a page of audits, newest first.
	List(ctx context.Context, filter Filter, page domain.Page) (domain.ListResult[*Audit], error)

	// GetLines returns the lines of an audit ordered by line number.
	GetLines(ctx context.Context, auditID id.ID) ([]*Line, error)

	// GetLine returns one line of an audit; NotFound if it belongs elsewhere.
	GetLine(ctx context.Context, auditID, lineID id.ID) (*Line, error)

	// UpdateLine persists the count fields and adjustment reference of a line.
	UpdateLine(ctx context.Context, l *Line) error
}
