package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"stockledger/internal/core/apperror"
	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/event"
	"stockledger/internal/core/id"
	"stockledger/internal/core/tx"
	"stockledger/internal/domain"
	"stockledger/internal/domain/catalog/variant"
	"stockledger/pkg/logger"
)

// Service records, posts and unposts movements.
//
// Every method accepts a ctx that may carry an outer transaction; nested
// calls join it, so producers can record and post within their own unit
// of work.
type Service struct {
	repo      Repository
	variants  variant.Repository
	txManager tx.Manager
	events    event.Publisher
	now       func() time.Time
}

// NewService creates a new ledger service.
func NewService(repo Repository, variants variant.Repository, txManager tx.Manager, events event.Publisher) *Service {
	if events == nil {
		events = event.Discard
	}
	return &Service{
		repo:      repo,
		variants:  variants,
		txManager: txManager,
		events:    events,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Record creates a draft movement. Drafts do not affect variant state.
func (s *Service) Record(ctx context.Context, in RecordInput) (*Movement, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	m := NewMovement(in, appctx.Actor(ctx), s.now())

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.variants.GetByID(ctx, in.VariantID); err != nil {
			return err
		}
		return s.repo.Create(ctx, m)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "movement recorded",
		"id", m.ID, "variant_id", m.VariantID, "type", m.Type, "quantity", m.Quantity)
	return m, nil
}

// Get retrieves a movement.
func (s *Service) Get(ctx context.Context, movementID id.ID) (*Movement, error) {
	return s.repo.GetByID(ctx, movementID)
}

// List returns a page of movements, newest first.
func (s *Service) List(ctx context.Context, filter Filter, page domain.Page) (domain.ListResult[*Movement], error) {
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return domain.ListResult[*Movement]{}, apperror.NewValidation("'to' must not be before 'from'")
	}
	return s.repo.List(ctx, filter, page.Normalize())
}

// Discard deletes a draft that was never posted.
func (s *Service) Discard(ctx context.Context, movementID id.ID) error {
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		m, err := s.repo.GetForUpdate(ctx, movementID)
		if err != nil {
			return err
		}
		if m.Status != StatusDraft {
			return apperror.NewInvalidState("movement", m.Status, "only draft movements can be discarded")
		}
		return s.repo.Delete(ctx, movementID)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "movement discarded", "id", movementID)
	return nil
}

// Post applies a draft movement to its variant.
func (s *Service) Post(ctx context.Context, movementID id.ID) (*Movement, error) {
	var m *Movement

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		m, err = s.repo.GetForUpdate(ctx, movementID)
		if err != nil {
			return err
		}
		if m.Status != StatusDraft {
			return apperror.NewInvalidState("movement", m.Status, "only draft movements can be posted")
		}

		v, err := s.variants.GetForUpdate(ctx, m.VariantID)
		if err != nil {
			return err
		}

		before := State{Stock: v.StockQuantity, AverageCost: v.AverageCost}
		after := ApplyMovement(before, m.Type, m.Quantity, m.UnitCost)
		now := s.now()

		v.StockQuantity = after.Stock
		v.AverageCost = after.AverageCost
		v.PostingSeq++
		v.UpdatedAt = now
		if err := s.variants.UpdateState(ctx, v); err != nil {
			return fmt.Errorf("update variant state: %w", err)
		}

		m.markPosted(before, after, v.PostingSeq, appctx.Actor(ctx), now)
		if err := s.repo.UpdateLifecycle(ctx, m); err != nil {
			return fmt.Errorf("update movement: %w", err)
		}

		return s.events.Publish(ctx, movementEvent(event.MovementPosted, m))
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "movement posted",
		"id", m.ID, "variant_id", m.VariantID, "posting_seq", *m.PostingSeq,
		"stock_after", *m.StockAfter, "cost_after", m.CostAfter.String())
	return m, nil
}

// Unpost reverses the latest posted movement of a variant, restoring the
// variant to the movement's before-snapshot. The movement becomes reversed.
func (s *Service) Unpost(ctx context.Context, movementID id.ID) (*Movement, error) {
	var m *Movement

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		m, err = s.repo.GetForUpdate(ctx, movementID)
		if err != nil {
			return err
		}
		if m.Status != StatusPosted {
			return apperror.NewInvalidState("movement", m.Status, "only posted movements can be unposted")
		}
		if !m.Type.Reversible() {
			return apperror.NewImmutableMovement(m.ID, string(m.Type))
		}

		v, err := s.variants.GetForUpdate(ctx, m.VariantID)
		if err != nil {
			return err
		}

		latest, err := s.repo.LatestPosted(ctx, m.VariantID)
		if err != nil {
			return fmt.Errorf("find latest posted movement: %w", err)
		}
		if latest == nil || latest.ID != m.ID {
			var latestID any
			if latest != nil {
				latestID = latest.ID
			}
			return apperror.NewReversalOrder(m.ID, latestID)
		}

		restored, err := ReverseMovement(State{Stock: v.StockQuantity, AverageCost: v.AverageCost}, m)
		if err != nil {
			return err
		}
		now := s.now()

		v.StockQuantity = restored.Stock
		v.AverageCost = restored.AverageCost
		v.UpdatedAt = now
		if err := s.variants.UpdateState(ctx, v); err != nil {
			return fmt.Errorf("update variant state: %w", err)
		}

		m.markReversed(appctx.Actor(ctx), now)
		if err := s.repo.UpdateLifecycle(ctx, m); err != nil {
			return fmt.Errorf("update movement: %w", err)
		}

		return s.events.Publish(ctx, movementEvent(event.MovementUnposted, m))
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "movement unposted",
		"id", m.ID, "variant_id", m.VariantID, "stock_restored", *m.StockBefore)
	return m, nil
}

// Verification compares a variant's stored state with the fold of its
// posted movements.
type Verification struct {
	VariantID   id.ID
	Stored      State
	Replayed    State
	PostedCount int
	Consistent  bool
}

// VerifyVariant replays the variant's posted movements.
func (s *Service) VerifyVariant(ctx context.Context, variantID id.ID) (*Verification, error) {
	res := &Verification{VariantID: variantID}

	err := s.txManager.RunInSnapshot(ctx, func(ctx context.Context) error {
		v, err := s.variants.GetByID(ctx, variantID)
		if err != nil {
			return err
		}
		posted, err := s.repo.ListPosted(ctx, variantID)
		if err != nil {
			return fmt.Errorf("list posted movements: %w", err)
		}

		res.Stored = State{Stock: v.StockQuantity, AverageCost: v.AverageCost}
		res.Replayed = Replay(posted)
		res.PostedCount = len(posted)
		res.Consistent = res.Stored.Equal(res.Replayed)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !res.Consistent {
		logger.Warn(ctx, "ledger fold mismatch",
			"variant_id", variantID, "stored", res.Stored.String(), "replayed", res.Replayed.String())
	}
	return res, nil
}

// MovementEvent is the outbox payload of posting events.
type MovementEvent struct {
	MovementID  id.ID           `json:"movementId"`
	VariantID   id.ID           `json:"variantId"`
	Type        MovementType    `json:"movementType"`
	Quantity    int64           `json:"quantity"`
	StockBefore int64           `json:"stockBefore"`
	StockAfter  int64           `json:"stockAfter"`
	CostBefore  decimal.Decimal `json:"costBefore"`
	CostAfter   decimal.Decimal `json:"costAfter"`
	PostingSeq  int64           `json:"postingSeq"`
	Reference   string          `json:"reference,omitempty"`
	Actor       string          `json:"actor"`
}

func movementEvent(eventType string, m *Movement) event.Event {
	payload := MovementEvent{
		MovementID:  m.ID,
		VariantID:   m.VariantID,
		Type:        m.Type,
		Quantity:    m.Quantity,
		StockBefore: *m.StockBefore,
		StockAfter:  *m.StockAfter,
		CostBefore:  *m.CostBefore,
		CostAfter:   *m.CostAfter,
		PostingSeq:  *m.PostingSeq,
		Reference:   m.Reference,
	}
	if m.UnpostedBy != nil && eventType == event.MovementUnposted {
		payload.Actor = *m.UnpostedBy
	} else if m.PostedBy != nil {
		payload.Actor = *m.PostedBy
	}
	return event.Event{
		AggregateType: event.AggregateMovement,
		AggregateID:   m.ID,
		Type:          eventType,
		Payload:       payload,
	}
}
