package inventory

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"stockledger/internal/core/apperror"
	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/event"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/ledger"
	"stockledger/pkg/logger"
)

// Summary computes variance totals over the lines counted so far.
// It is recomputed on every call.
func (s *Service) Summary(ctx context.Context, auditID id.ID) (*Summary, error) {
	var sum *Summary

	err := s.txManager.RunInSnapshot(ctx, func(ctx context.Context) error {
		a, err := s.repo.GetByID(ctx, auditID)
		if err != nil {
			return err
		}
		if a.Status == StatusDraft || a.Status == StatusCancelled {
			return apperror.NewInvalidState("audit", a.Status, "summary is available once the audit has started")
		}

		lines, err := s.repo.GetLines(ctx, auditID)
		if err != nil {
			return fmt.Errorf("get lines: %w", err)
		}

		sum = Summarize(a, lines)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sum, nil
}

// Summarize folds counted lines into a Summary.
func Summarize(a *Audit, lines []*Line) *Summary {
	sum := &Summary{
		AuditID:            a.ID,
		Status:             a.Status,
		TotalItems:         len(lines),
		TotalPositiveValue: decimal.Zero,
		TotalNegativeValue: decimal.Zero,
		NetVarianceValue:   decimal.Zero,
	}

	for _, l := range lines {
		variance := l.Variance()
		if variance == nil {
			continue
		}
		sum.CountedItems++
		if *variance == 0 {
			continue
		}

		sum.ItemsWithVariance++
		value := *l.VarianceValue()
		sum.NetVarianceValue = sum.NetVarianceValue.Add(value)
		if *variance > 0 {
			sum.TotalPositiveVariance += *variance
			sum.TotalPositiveValue = sum.TotalPositiveValue.Add(value)
		} else {
			sum.TotalNegativeVariance += types.AbsInt64(*variance)
			sum.TotalNegativeValue = sum.TotalNegativeValue.Add(value.Abs())
		}
	}
	return sum
}

// ListItems returns the lines of an audit with full detail.
func (s *Service) ListItems(ctx context.Context, auditID id.ID) ([]*Line, error) {
	return s.lines(ctx, auditID)
}

// Complete reconciles a fully counted audit. One Adjustment movement is
// recorded per line with non-zero variance and, when requested, posted.
// Either every adjustment is written and the audit completes, or nothing is.
func (s *Service) Complete(ctx context.Context, auditID id.ID, in CompleteInput) (*Audit, error) {
	var (
		a           *Audit
		movementIDs []id.ID
	)

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		a, err = s.repo.GetForUpdate(ctx, auditID)
		if err != nil {
			return err
		}
		if a.Status != StatusInProgress {
			return apperror.NewInvalidState("audit", a.Status, "only in-progress audits can be completed")
		}

		lines, err := s.repo.GetLines(ctx, auditID)
		if err != nil {
			return fmt.Errorf("get lines: %w", err)
		}

		uncounted := 0
		for _, l := range lines {
			if !l.IsCounted {
				uncounted++
			}
		}
		if uncounted > 0 {
			return apperror.NewIncompleteCount(a.ID, uncounted)
		}

		for _, l := range lines {
			variance := *l.Variance()
			if variance == 0 {
				continue
			}

			m, err := s.ledger.Record(ctx, ledger.RecordInput{
				VariantID: l.VariantID,
				Type:      ledger.TypeAdjustment,
				Quantity:  variance,
				Reference: "audit:" + a.Number,
				Notes: fmt.Sprintf("Audit %s line %d (%s): counted %d, expected %d",
					a.Number, l.LineNo, l.SKU, *l.CountedStock, l.TheoreticalStock),
			})
			if err != nil {
				return fmt.Errorf("record adjustment for line %d: %w", l.LineNo, err)
			}
			if in.AutoPostAdjustments {
				if _, err := s.ledger.Post(ctx, m.ID); err != nil {
					return fmt.Errorf("post adjustment for line %d: %w", l.LineNo, err)
				}
			}

			l.AdjustmentMovementID = &m.ID
			if err := s.repo.UpdateLine(ctx, l); err != nil {
				return fmt.Errorf("link adjustment to line %d: %w", l.LineNo, err)
			}
			movementIDs = append(movementIDs, m.ID)
		}

		a.complete(appctx.Actor(ctx), in.Notes, in.AutoPostAdjustments, s.now())
		if err := s.repo.Update(ctx, a); err != nil {
			return fmt.Errorf("update audit: %w", err)
		}

		return s.events.Publish(ctx, auditEvent(event.AuditCompleted, a, movementIDs))
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "audit completed",
		"id", a.ID, "number", a.Number, "adjustments", len(movementIDs), "auto_posted", in.AutoPostAdjustments)
	return a, nil
}
