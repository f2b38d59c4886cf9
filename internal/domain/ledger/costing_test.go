package ledger

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/id"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func cost(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestApplyMovement(t *testing.T) {
	tests := []struct {
		name      string
		before    State
		typ       MovementType
		qty       int64
		unitCost  *decimal.Decimal
		wantStock int64
		wantCost  string
	}{
		{"weighted average", State{10, dec("5")}, TypePurchase, 10, cost("7"), 20, "6"},
		{"empty variant takes purchase cost", State{0, dec("0")}, TypePurchase, 10, cost("5"), 10, "5"},
		{"negative stock takes purchase cost", State{-3, dec("4")}, TypePurchase, 5, cost("6"), 2, "6"},
		{"negative stock ignores prior cost", State{-5, dec("4")}, TypePurchase, 10, cost("6"), 5, "6"},
		{"back to zero keeps prior cost", State{-5, dec("4")}, TypePurchase, 5, cost("9"), 0, "4"},
		{"return averages", State{10, dec("5")}, TypeReturn, 10, cost("3"), 20, "4"},
		{"initial stock takes cost", State{0, dec("0")}, TypeInitialStock, 4, cost("2.5"), 4, "2.5"},
		{"decrease keeps cost", State{20, dec("6")}, TypeSale, -5, nil, 15, "6"},
		{"decrease ignores unit cost", State{20, dec("6")}, TypeLoss, -5, cost("100"), 15, "6"},
		{"increase without cost keeps cost", State{20, dec("6")}, TypeReturn, 3, nil, 23, "6"},
		{"adjustment ignores unit cost", State{10, dec("5")}, TypeAdjustment, 10, cost("15"), 20, "5"},
		{"transfer ignores unit cost", State{10, dec("5")}, TypeTransfer, 10, cost("15"), 20, "5"},
		{"sale cancellation ignores unit cost", State{20, dec("5")}, TypeSaleCancellation, 20, cost("100"), 40, "5"},
		{"rounds to four digits", State{2, dec("1")}, TypePurchase, 1, cost("0"), 3, "0.6667"},
		{"exact quarter", State{3, dec("1")}, TypePurchase, 1, cost("2"), 4, "1.25"},
		{"sold out retains cost on decrease", State{4, dec("2.5")}, TypeSale, -4, nil, 0, "2.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyMovement(tt.before, tt.typ, tt.qty, tt.unitCost)
			assert.Equal(t, tt.wantStock, got.Stock)
			assert.True(t, dec(tt.wantCost).Equal(got.AverageCost),
				"cost: want %s, got %s", tt.wantCost, got.AverageCost)
		})
	}
}

func TestReplay_UncostedIncreasesKeepAverage(t *testing.T) {
	movements := []*Movement{
		{Type: TypePurchase, Quantity: 10, UnitCost: cost("5")},
		{Type: TypeAdjustment, Quantity: 10, UnitCost: cost("15")},
		{Type: TypeSaleCancellation, Quantity: 20, UnitCost: cost("100")},
	}

	got := Replay(movements)
	assert.Equal(t, int64(40), got.Stock)
	assert.True(t, dec("5").Equal(got.AverageCost), "cost: got %s", got.AverageCost)
}

func TestApplyMovement_FormulaToTwoDigits(t *testing.T) {
	s0, c0 := int64(37), dec("12.40")
	q, c := int64(13), dec("15.95")

	got := ApplyMovement(State{s0, c0}, TypePurchase, q, &c)

	want := dec("37").Mul(c0).Add(dec("13").Mul(c)).Div(dec("50"))
	assert.Equal(t, want.StringFixed(2), got.AverageCost.StringFixed(2))
}

func postedMovement(before, after State, qty int64) *Movement {
	m := &Movement{ID: id.New(), VariantID: id.New(), Quantity: qty, Status: StatusPosted}
	m.markPosted(before, after, 1, "tester", m.CreatedAt)
	return m
}

func TestReverseMovement(t *testing.T) {
	before := State{10, dec("5")}
	after := ApplyMovement(before, TypePurchase, 10, cost("7"))
	m := postedMovement(before, after, 10)

	restored, err := ReverseMovement(after, m)
	require.NoError(t, err)
	assert.True(t, restored.Equal(before))
}

func TestReverseMovement_StateMismatch(t *testing.T) {
	before := State{10, dec("5")}
	after := ApplyMovement(before, TypePurchase, 10, cost("7"))
	m := postedMovement(before, after, 10)

	_, err := ReverseMovement(State{19, after.AverageCost}, m)
	require.Error(t, err)
	assert.True(t, apperror.Retryable(err))
	assert.True(t, apperror.HasCode(err, apperror.CodeConsistency))
}

func TestReverseMovement_NoSnapshot(t *testing.T) {
	_, err := ReverseMovement(State{}, &Movement{ID: id.New()})
	assert.True(t, apperror.HasCode(err, apperror.CodeConsistency))
}

// Posting a random sequence and unposting it in LIFO order must walk back
// through exactly the same states.
func TestRoundTrip_LIFO(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 50; run++ {
		state := State{AverageCost: decimal.Zero}
		var history []State
		var stack []*Movement

		for i := 0; i < 30; i++ {
			qty := int64(rng.Intn(40) - 15)
			if qty == 0 {
				qty = 1
			}
			var unitCost *decimal.Decimal
			if rng.Intn(3) > 0 {
				unitCost = cost(decimal.NewFromInt(int64(rng.Intn(10_000))).Shift(-2).String())
			}
			typ := TypeAdjustment
			if qty > 0 {
				typ = []MovementType{TypePurchase, TypeReturn, TypeAdjustment, TypeSaleCancellation}[rng.Intn(4)]
			}

			after := ApplyMovement(state, typ, qty, unitCost)
			m := &Movement{ID: id.New(), Type: typ, Quantity: qty, UnitCost: unitCost}
			m.markPosted(state, after, int64(i+1), "tester", m.CreatedAt)

			history = append(history, state)
			stack = append(stack, m)
			state = after
		}

		assert.True(t, Replay(stack).Equal(state), "fold consistency on run %d", run)

		for i := len(stack) - 1; i >= 0; i-- {
			prev, err := ReverseMovement(state, stack[i])
			require.NoError(t, err)
			require.True(t, prev.Equal(history[i]), "run %d step %d: want %s got %s", run, i, history[i], prev)
			state = prev
		}
		assert.True(t, state.Equal(State{AverageCost: decimal.Zero}))
	}
}

func TestRecordInput_Validate(t *testing.T) {
	variantID := id.New()

	tests := []struct {
		name    string
		in      RecordInput
		wantErr bool
	}{
		{"purchase ok", RecordInput{VariantID: variantID, Type: TypePurchase, Quantity: 5, UnitCost: cost("2")}, false},
		{"purchase without cost", RecordInput{VariantID: variantID, Type: TypePurchase, Quantity: 5}, true},
		{"purchase zero cost", RecordInput{VariantID: variantID, Type: TypePurchase, Quantity: 5, UnitCost: cost("0")}, true},
		{"zero quantity", RecordInput{VariantID: variantID, Type: TypeAdjustment, Quantity: 0}, true},
		{"sale must be negative", RecordInput{VariantID: variantID, Type: TypeSale, Quantity: 3}, true},
		{"sale ok", RecordInput{VariantID: variantID, Type: TypeSale, Quantity: -3}, false},
		{"loss must be negative", RecordInput{VariantID: variantID, Type: TypeLoss, Quantity: 1}, true},
		{"cancellation must be positive", RecordInput{VariantID: variantID, Type: TypeSaleCancellation, Quantity: -1}, true},
		{"adjustment either sign", RecordInput{VariantID: variantID, Type: TypeAdjustment, Quantity: -7}, false},
		{"transfer either sign", RecordInput{VariantID: variantID, Type: TypeTransfer, Quantity: 7}, false},
		{"initial stock zero cost", RecordInput{VariantID: variantID, Type: TypeInitialStock, Quantity: 7, UnitCost: cost("0")}, false},
		{"adjustment with cost", RecordInput{VariantID: variantID, Type: TypeAdjustment, Quantity: 10, UnitCost: cost("15")}, true},
		{"sale cancellation with cost", RecordInput{VariantID: variantID, Type: TypeSaleCancellation, Quantity: 2, UnitCost: cost("100")}, true},
		{"return with cost", RecordInput{VariantID: variantID, Type: TypeReturn, Quantity: 2, UnitCost: cost("3")}, false},
		{"negative cost", RecordInput{VariantID: variantID, Type: TypeReturn, Quantity: 1, UnitCost: cost("-1")}, true},
		{"unknown type", RecordInput{VariantID: variantID, Type: "Theft", Quantity: -1}, true},
		{"missing variant", RecordInput{Type: TypeAdjustment, Quantity: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
		})
	}
}

func TestMovementType_Rules(t *testing.T) {
	assert.False(t, TypeSale.Reversible())
	assert.False(t, TypeSaleCancellation.Reversible())
	for _, mt := range []MovementType{TypeInitialStock, TypePurchase, TypeReturn, TypeAdjustment, TypeLoss, TypeTransfer} {
		assert.True(t, mt.Reversible(), mt)
	}

	for _, mt := range []MovementType{TypeInitialStock, TypePurchase, TypeReturn} {
		assert.True(t, mt.Costed(), mt)
	}
	for _, mt := range []MovementType{TypeSale, TypeAdjustment, TypeLoss, TypeTransfer, TypeSaleCancellation} {
		assert.False(t, mt.Costed(), mt)
	}

	mt, ok := ParseMovementType("purchase")
	assert.True(t, ok)
	assert.Equal(t, TypePurchase, mt)

	_, ok = ParseMovementType("gift")
	assert.False(t, ok)
}
