package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stockledger/internal/core/apperror"
	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/event"
	"stockledger/internal/core/id"
	"stockledger/internal/core/numerator"
	"stockledger/internal/core/tx"
	"stockledger/internal/domain"
	"stockledger/internal/domain/catalog/variant"
	"stockledger/internal/domain/ledger"
	"stockledger/pkg/logger"
)

// NumberPrefix prefixes audit numbers (AUD-2026-00001).
const NumberPrefix = "AUD"

// Ledger is the part of the ledger service reconciliation writes through.
type Ledger interface {
	Record(ctx context.Context, in ledger.RecordInput) (*ledger.Movement, error)
	Post(ctx context.Context, movementID id.ID) (*ledger.Movement, error)
}

// Service runs the audit lifecycle: snapshot, blind counting and
// reconciliation.
type Service struct {
	repo      Repository
	variants  variant.Repository
	ledger    Ledger
	numerator numerator.Generator
	txManager tx.Manager
	events    event.Publisher
	now       func() time.Time
}

// NewService creates a new audit service.
func NewService(
	repo Repository,
	variants variant.Repository,
	movements Ledger,
	numbers numerator.Generator,
	txManager tx.Manager,
	events event.Publisher,
) *Service {
	if events == nil {
		events = event.Discard
	}
	return &Service{
		repo:      repo,
		variants:  variants,
		ledger:    movements,
		numerator: numbers,
		txManager: txManager,
		events:    events,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateAudit snapshots theoretical stock of every in-scope variant into a
// new draft audit.
func (s *Service) CreateAudit(ctx context.Context, in CreateInput) (*Audit, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	if len(name) > 200 {
		return nil, apperror.NewValidation("name must be at most 200 characters").WithDetail("field", "name")
	}
	scope := Scope{Kind: in.Scope.Kind, Value: strings.TrimSpace(in.Scope.Value)}
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	// Numbers are issued outside the snapshot transaction; a failed
	// snapshot leaves a gap.
	number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig(NumberPrefix), nil, s.now())
	if err != nil {
		return nil, fmt.Errorf("generate number: %w", err)
	}

	now := s.now()
	a := &Audit{
		ID:         id.New(),
		Number:     number,
		Name:       name,
		ScopeKind:  scope.Kind,
		ScopeValue: scope.Value,
		Status:     StatusDraft,
		CreatedAt:  now,
		CreatedBy:  appctx.Actor(ctx),
		Version:    1,
	}

	err = s.txManager.RunInSnapshot(ctx, func(ctx context.Context) error {
		variants, err := s.variants.FindAll(ctx, scopeFilter(scope))
		if err != nil {
			return fmt.Errorf("resolve scope: %w", err)
		}
		if len(variants) == 0 {
			return apperror.NewValidation("scope matches no variants").
				WithDetail("scope", string(scope.Kind)).
				WithDetail("value", scope.Value)
		}

		a.SnapshotTakenAt = s.now()
		a.TotalVariants = len(variants)

		lines := make([]*Line, 0, len(variants))
		for i, v := range variants {
			lines = append(lines, &Line{
				ID:               id.New(),
				AuditID:          a.ID,
				LineNo:           i + 1,
				VariantID:        v.ID,
				SKU:              v.SKU,
				VariantName:      v.Name,
				TheoreticalStock: v.StockQuantity,
				UnitCost:         v.AverageCost,
			})
		}

		if err := s.repo.Create(ctx, a); err != nil {
			return fmt.Errorf("create audit: %w", err)
		}
		if err := s.repo.CreateLines(ctx, lines); err != nil {
			return fmt.Errorf("create audit lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "audit created",
		"id", a.ID, "number", a.Number, "scope", a.ScopeKind, "variants", a.TotalVariants)
	return a, nil
}

// Start opens a draft audit for counting.
func (s *Service) Start(ctx context.Context, auditID id.ID) (*Audit, error) {
	a, err := s.transition(ctx, auditID, func(a *Audit, now time.Time) error {
		return a.Start(now)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "audit started", "id", a.ID, "number", a.Number)
	return a, nil
}

// Cancel closes an audit without ledger effects. Lines and counts are kept
// but never reconciled.
func (s *Service) Cancel(ctx context.Context, auditID id.ID) (*Audit, error) {
	a, err := s.transition(ctx, auditID, func(a *Audit, now time.Time) error {
		return a.Cancel(now)
	}, func(ctx context.Context, a *Audit) error {
		return s.events.Publish(ctx, auditEvent(event.AuditCancelled, a, nil))
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "audit cancelled", "id", a.ID, "number", a.Number, "counted", a.CountedVariants)
	return a, nil
}

// transition applies a status change under the audit lock.
func (s *Service) transition(
	ctx context.Context,
	auditID id.ID,
	apply func(a *Audit, now time.Time) error,
	after ...func(ctx context.Context, a *Audit) error,
) (*Audit, error) {
	var a *Audit
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		a, err = s.repo.GetForUpdate(ctx, auditID)
		if err != nil {
			return err
		}
		if err := apply(a, s.now()); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, a); err != nil {
			return fmt.Errorf("update audit: %w", err)
		}
		for _, fn := range after {
			if err := fn(ctx, a); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Get retrieves an audit.
func (s *Service) Get(ctx context.Context, auditID id.ID) (*Audit, error) {
	return s.repo.GetByID(ctx, auditID)
}

// List returns a page of audits, newest first.
func (s *Service) List(ctx context.Context, filter Filter, page domain.Page) (domain.ListResult[*Audit], error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return domain.ListResult[*Audit]{}, apperror.NewValidation("unknown audit status").
			WithDetail("value", string(*filter.Status))
	}
	return s.repo.List(ctx, filter, page.Normalize())
}

func scopeFilter(scope Scope) variant.Filter {
	var f variant.Filter
	switch scope.Kind {
	case ScopeCategory:
		f.CategoryID = &scope.Value
	case ScopeLocation:
		f.LocationID = &scope.Value
	}
	return f
}

// AuditEvent is the outbox payload of audit events.
type AuditEvent struct {
	AuditID         id.ID   `json:"auditId"`
	Number          string  `json:"number"`
	Status          Status  `json:"status"`
	TotalVariants   int     `json:"totalVariants"`
	CountedVariants int     `json:"countedVariants"`
	AutoPosted      bool    `json:"autoPosted"`
	MovementIDs     []id.ID `json:"movementIds,omitempty"`
}

func auditEvent(eventType string, a *Audit, movementIDs []id.ID) event.Event {
	return event.Event{
		AggregateType: event.AggregateAudit,
		AggregateID:   a.ID,
		Type:          eventType,
		Payload: AuditEvent{
			AuditID:         a.ID,
			Number:          a.Number,
			Status:          a.Status,
			TotalVariants:   a.TotalVariants,
			CountedVariants: a.CountedVariants,
			AutoPosted:      a.AutoPosted,
			MovementIDs:     movementIDs,
		},
	}
}
