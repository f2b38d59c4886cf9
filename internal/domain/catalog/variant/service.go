package variant

import (
	"context"
	"strings"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
	"stockledger/internal/core/tx"
	"stockledger/internal/domain"
	"stockledger/pkg/logger"
)

// CreateInput holds catalog fields of a new variant.
type CreateInput struct {
	SKU        string
	Name       string
	CategoryID *string
	LocationID *string
}

// Service provides the catalog surface of variants. Stock and cost are not
// writable here; use the ledger.
type Service struct {
	repo  Repository
	txm   tx.Manager
	hooks *domain.HookRegistry[*Variant]
}

// NewService creates a new variant service.
func NewService(repo Repository, txm tx.Manager) *Service {
	return &Service{
		repo:  repo,
		txm:   txm,
		hooks: domain.NewHookRegistry[*Variant](),
	}
}

// Hooks returns the hook registry for external registration.
func (s *Service) Hooks() *domain.HookRegistry[*Variant] {
	return s.hooks
}

// Create registers a variant with zero stock.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Variant, error) {
	v := NewVariant(in.SKU, in.Name)
	v.CategoryID = trimmed(in.CategoryID)
	v.LocationID = trimmed(in.LocationID)

	if err := v.Validate(); err != nil {
		return nil, err
	}

	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.hooks.Run(ctx, domain.BeforeCreate, v); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, v); err != nil {
			return err
		}
		return s.hooks.Run(ctx, domain.AfterCreate, v)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "variant created", "id", v.ID, "sku", v.SKU)
	return v, nil
}

// Get retrieves a variant.
func (s *Service) Get(ctx context.Context, variantID id.ID) (*Variant, error) {
	return s.repo.GetByID(ctx, variantID)
}

// List returns a page of variants.
func (s *Service) List(ctx context.Context, filter Filter, page domain.Page) (domain.ListResult[*Variant], error) {
	return s.repo.List(ctx, filter, page.Normalize())
}

// ErrDuplicateSKU builds the error returned by repositories on SKU conflicts.
func ErrDuplicateSKU(sku string) *apperror.AppError {
	return apperror.NewValidation("variant with this sku already exists").WithDetail("sku", sku)
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
