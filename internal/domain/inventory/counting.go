package inventory

import (
	"context"
	"fmt"

	"stockledger/internal/core/apperror"
	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/id"
	"stockledger/pkg/logger"
)

// SubmitCount records the physical count of a line. Re-submission
// overwrites the previous count. The response never reveals theoretical
// stock.
func (s *Service) SubmitCount(ctx context.Context, auditID, lineID id.ID, counted int64) (BlindLine, error) {
	if counted < 0 {
		return BlindLine{}, apperror.NewValidation("counted stock cannot be negative").
			WithDetail("field", "countedStock")
	}

	actor := appctx.Actor(ctx)
	var (
		line  *Line
		first bool
	)

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		a, err := s.repo.GetForUpdate(ctx, auditID)
		if err != nil {
			return err
		}
		if err := a.CanCount(); err != nil {
			return err
		}

		line, err = s.repo.GetLine(ctx, auditID, lineID)
		if err != nil {
			return err
		}

		first = line.record(counted, actor, s.now())
		if err := s.repo.UpdateLine(ctx, line); err != nil {
			return fmt.Errorf("update line: %w", err)
		}

		if first {
			a.CountedVariants++
			if err := s.repo.Update(ctx, a); err != nil {
				return fmt.Errorf("update audit counters: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return BlindLine{}, err
	}

	logger.Debug(ctx, "count submitted",
		"audit_id", auditID, "line_id", lineID, "counted", counted, "recount", !first)
	return line.Blind(), nil
}

// ListBlindItems returns the lines of an audit without theoretical stock.
func (s *Service) ListBlindItems(ctx context.Context, auditID id.ID) ([]BlindLine, error) {
	lines, err := s.lines(ctx, auditID)
	if err != nil {
		return nil, err
	}

	items := make([]BlindLine, 0, len(lines))
	for _, l := range lines {
		items = append(items, l.Blind())
	}
	return items, nil
}

// CountProgress reports counted lines overall and by the calling actor.
func (s *Service) CountProgress(ctx context.Context, auditID id.ID) (Progress, error) {
	lines, err := s.lines(ctx, auditID)
	if err != nil {
		return Progress{}, err
	}

	actor := appctx.Actor(ctx)
	p := Progress{Total: len(lines)}
	for _, l := range lines {
		if !l.IsCounted {
			continue
		}
		p.Counted++
		if l.CountedBy != nil && *l.CountedBy == actor {
			p.CountedByMe++
		}
	}
	if p.Total > 0 {
		p.Progress = float64(p.Counted) / float64(p.Total)
	}
	return p, nil
}

// lines loads the lines of an existing audit.
func (s *Service) lines(ctx context.Context, auditID id.ID) ([]*Line, error) {
	if _, err := s.repo.GetByID(ctx, auditID); err != nil {
		return nil, err
	}
	lines, err := s.repo.GetLines(ctx, auditID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	return lines, nil
}
