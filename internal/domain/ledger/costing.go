package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/types"
)

// State is the part of a variant the ledger owns.
type State struct {
	Stock       int64
	AverageCost decimal.Decimal
}

// Equal compares stock and cost numerically.
func (s State) Equal(o State) bool {
	return s.Stock == o.Stock && s.AverageCost.Equal(o.AverageCost)
}

func (s State) String() string {
	return fmt.Sprintf("stock=%d cost=%s", s.Stock, s.AverageCost.String())
}

// ApplyMovement returns the state after posting quantity q of type typ with
// an optional unit cost onto s.
//
// Only an increase of a costed type carrying a unit cost moves the average:
//
//	new = (s0*c0 + q*c) / (s0+q), rounded to types.CostScale
//
// When nothing valued is on hand (s0 <= 0) the new average is c. When the
// result is zero stock the previous average is kept.
func ApplyMovement(s State, typ MovementType, q int64, unitCost *decimal.Decimal) State {
	next := State{Stock: s.Stock + q, AverageCost: s.AverageCost}

	if q <= 0 || unitCost == nil || !typ.Costed() || next.Stock == 0 {
		return next
	}

	if s.Stock <= 0 {
		next.AverageCost = types.RoundCost(*unitCost)
		return next
	}

	total := types.Units(s.Stock).Mul(s.AverageCost).Add(types.Units(q).Mul(*unitCost))
	next.AverageCost = total.DivRound(types.Units(next.Stock), types.CostScale)
	return next
}

// ReverseMovement returns the state before m was posted.
//
// current must equal m's after-snapshot: LIFO reversal guarantees it, so a
// mismatch means the stored ledger and variant disagree.
func ReverseMovement(current State, m *Movement) (State, error) {
	if m.StockBefore == nil || m.StockAfter == nil || m.CostBefore == nil || m.CostAfter == nil {
		return State{}, apperror.NewConsistency(fmt.Errorf("movement %s has no posting snapshot", m.ID))
	}

	after := State{Stock: *m.StockAfter, AverageCost: *m.CostAfter}
	if !current.Equal(after) {
		return State{}, apperror.NewConsistency(
			fmt.Errorf("variant %s is at %s, movement %s left it at %s", m.VariantID, current, m.ID, after),
		)
	}

	return State{Stock: *m.StockBefore, AverageCost: *m.CostBefore}, nil
}

// Replay folds posted movements, in posting order, from an empty variant.
func Replay(movements []*Movement) State {
	s := State{AverageCost: decimal.Zero}
	for _, m := range movements {
		s = ApplyMovement(s, m.Type, m.Quantity, m.UnitCost)
	}
	return s
}
