package inventory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/event"
	"stockledger/internal/core/id"
	"stockledger/internal/core/numerator"
	"stockledger/internal/domain"
	"stockledger/internal/domain/catalog/variant"
	"stockledger/internal/domain/inventory"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/infrastructure/storage/memory"
)

type fixture struct {
	store    *memory.Store
	variants *variant.Service
	ledger   *ledger.Service
	audits   *inventory.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	led := ledger.NewService(store.Movements(), store.Variants(), store, store.Outbox())
	return &fixture{
		store:    store,
		variants: variant.NewService(store.Variants(), store),
		ledger:   led,
		audits:   inventory.NewService(store.Audits(), store.Variants(), led, store.Sequences(), store, store.Outbox()),
	}
}

func ptr[T any](v T) *T { return &v }

// stocked creates a variant holding qty units at the given cost.
func (f *fixture) stocked(t *testing.T, sku string, qty int64, cost string, category *string) *variant.Variant {
	t.Helper()
	ctx := context.Background()
	v, err := f.variants.Create(ctx, variant.CreateInput{SKU: sku, Name: "Variant " + sku, CategoryID: category})
	require.NoError(t, err)
	if qty > 0 {
		m, err := f.ledger.Record(ctx, ledger.RecordInput{
			VariantID: v.ID, Type: ledger.TypePurchase, Quantity: qty, UnitCost: ptr(decimal.RequireFromString(cost)),
		})
		require.NoError(t, err)
		_, err = f.ledger.Post(ctx, m.ID)
		require.NoError(t, err)
	}
	return v
}

func (f *fixture) startedAudit(t *testing.T, scope inventory.Scope) (*inventory.Audit, []*inventory.Line) {
	t.Helper()
	ctx := context.Background()
	a, err := f.audits.CreateAudit(ctx, inventory.CreateInput{Name: "Quarterly count", Scope: scope})
	require.NoError(t, err)
	a, err = f.audits.Start(ctx, a.ID)
	require.NoError(t, err)
	lines, err := f.audits.ListItems(ctx, a.ID)
	require.NoError(t, err)
	return a, lines
}

func (f *fixture) stock(t *testing.T, variantID id.ID) int64 {
	t.Helper()
	v, err := f.variants.Get(context.Background(), variantID)
	require.NoError(t, err)
	return v.StockQuantity
}

func TestCountShortage_AutoPostAdjustsStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.stocked(t, "SKU-1", 10, "4", nil)

	a, lines := f.startedAudit(t, inventory.Scope{Kind: inventory.ScopeAll})
	require.Len(t, lines, 1)
	assert.Equal(t, int64(10), lines[0].TheoreticalStock)

	_, err := f.audits.SubmitCount(ctx, a.ID, lines[0].ID, 7)
	require.NoError(t, err)

	sum, err := f.audits.Summary(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.CountedItems)
	assert.Equal(t, 1, sum.ItemsWithVariance)
	assert.Equal(t, int64(3), sum.TotalNegativeVariance)
	assert.Equal(t, int64(0), sum.TotalPositiveVariance)
	assert.Equal(t, "12", sum.TotalNegativeValue.String())
	assert.Equal(t, "-12", sum.NetVarianceValue.String())

	items, err := f.audits.ListItems(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(-3), *items[0].Variance())

	done, err := f.audits.Complete(ctx, a.ID, inventory.CompleteInput{AutoPostAdjustments: true, Notes: "ok"})
	require.NoError(t, err)
	assert.Equal(t, inventory.StatusCompleted, done.Status)
	assert.True(t, done.AutoPosted)
	assert.Equal(t, "ok", done.Notes)

	adj := ledger.TypeAdjustment
	moves, err := f.ledger.List(ctx, ledger.Filter{Type: &adj}, domain.Page{})
	require.NoError(t, err)
	require.Len(t, moves.Items, 1)
	m := moves.Items[0]
	assert.Equal(t, int64(-3), m.Quantity)
	assert.True(t, m.IsPosted())
	assert.Nil(t, m.UnitCost)
	assert.Equal(t, "audit:"+a.Number, m.Reference)

	assert.Equal(t, int64(7), f.stock(t, v.ID))

	items, err = f.audits.ListItems(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, items[0].AdjustmentMovementID)
	assert.Equal(t, m.ID, *items[0].AdjustmentMovementID)
}

func TestComplete_IncompleteCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stocked(t, "SKU-1", 10, "1", nil)
	f.stocked(t, "SKU-2", 5, "1", nil)

	a, lines := f.startedAudit(t, inventory.Scope{Kind: inventory.ScopeAll})
	require.Len(t, lines, 2)

	_, err := f.audits.SubmitCount(ctx, a.ID, lines[0].ID, 9)
	require.NoError(t, err)

	before, err := f.ledger.List(ctx, ledger.Filter{}, domain.Page{})
	require.NoError(t, err)

	_, err = f.audits.Complete(ctx, a.ID, inventory.CompleteInput{AutoPostAdjustments: true})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeIncompleteCount))

	after, err := f.ledger.List(ctx, ledger.Filter{}, domain.Page{})
	require.NoError(t, err)
	assert.Equal(t, before.TotalCount, after.TotalCount)

	got, err := f.audits.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, inventory.StatusInProgress, got.Status)
}

func TestTheoreticalStock_IsFrozen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.stocked(t, "SKU-1", 10, "2", nil)

	a, err := f.audits.CreateAudit(ctx, inventory.CreateInput{Name: "Spot check", Scope: inventory.Scope{Kind: inventory.ScopeAll}})
	require.NoError(t, err)

	m, err := f.ledger.Record(ctx, ledger.RecordInput{VariantID: v.ID, Type: ledger.TypeLoss, Quantity: -4})
	require.NoError(t, err)
	_, err = f.ledger.Post(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, int64(6), f.stock(t, v.ID))

	lines, err := f.audits.ListItems(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), lines[0].TheoreticalStock)
	assert.True(t, decimal.NewFromInt(2).Equal(lines[0].UnitCost))
}

func TestComplete_DraftAdjustments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	short := f.stocked(t, "A", 10, "1", nil)
	over := f.stocked(t, "B", 2, "3", nil)
	exact := f.stocked(t, "C", 4, "1", nil)

	a, lines := f.startedAudit(t, inventory.Scope{Kind: inventory.ScopeAll})
	counts := map[id.ID]int64{short.ID: 8, over.ID: 5, exact.ID: 4}
	for _, l := range lines {
		_, err := f.audits.SubmitCount(ctx, a.ID, l.ID, counts[l.VariantID])
		require.NoError(t, err)
	}

	sum, err := f.audits.Summary(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.ItemsWithVariance)
	assert.Equal(t, int64(3), sum.TotalPositiveVariance)
	assert.Equal(t, int64(2), sum.TotalNegativeVariance)
	assert.Equal(t, "9", sum.TotalPositiveValue.String())
	assert.Equal(t, "2", sum.TotalNegativeValue.String())
	assert.Equal(t, "7", sum.NetVarianceValue.String())

	_, err = f.audits.Complete(ctx, a.ID, inventory.CompleteInput{})
	require.NoError(t, err)

	draft := ledger.StatusDraft
	moves, err := f.ledger.List(ctx, ledger.Filter{Status: &draft}, domain.Page{})
	require.NoError(t, err)
	assert.Len(t, moves.Items, 2)

	assert.Equal(t, int64(10), f.stock(t, short.ID), "drafts do not move stock")

	msgs := f.store.Outbox().Messages()
	assert.Equal(t, event.AuditCompleted, msgs[len(msgs)-1].EventType)
}

func TestSubmitCount_Rules(t *testing.T) {
	f := newFixture(t)
	ctx := appctx.WithActor(context.Background(), "counter-1")
	f.stocked(t, "SKU-1", 3, "1", nil)
	f.stocked(t, "SKU-2", 3, "1", nil)

	a, err := f.audits.CreateAudit(ctx, inventory.CreateInput{Name: "Count", Scope: inventory.Scope{Kind: inventory.ScopeAll}})
	require.NoError(t, err)
	lines, err := f.audits.ListItems(ctx, a.ID)
	require.NoError(t, err)

	_, err = f.audits.SubmitCount(ctx, a.ID, lines[0].ID, 1)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidState), "draft audit")

	_, err = f.audits.Start(ctx, a.ID)
	require.NoError(t, err)

	_, err = f.audits.SubmitCount(ctx, a.ID, lines[0].ID, -1)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = f.audits.SubmitCount(ctx, a.ID, id.New(), 1)
	assert.True(t, apperror.IsNotFound(err))

	blind, err := f.audits.SubmitCount(ctx, a.ID, lines[0].ID, 2)
	require.NoError(t, err)
	assert.True(t, blind.IsCounted)
	assert.Equal(t, int64(2), *blind.CountedStock)
	assert.Equal(t, "counter-1", *blind.CountedBy)

	// Recount overwrites without double-counting progress.
	_, err = f.audits.SubmitCount(ctx, a.ID, lines[0].ID, 3)
	require.NoError(t, err)

	got, err := f.audits.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CountedVariants)
	assert.InDelta(t, 0.5, got.Progress(), 1e-9)

	other := appctx.WithActor(context.Background(), "counter-2")
	_, err = f.audits.SubmitCount(other, a.ID, lines[1].ID, 3)
	require.NoError(t, err)

	p, err := f.audits.CountProgress(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, inventory.Progress{Total: 2, Counted: 2, Progress: 1, CountedByMe: 1}, p)

	items, err := f.audits.ListBlindItems(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(3), *items[0].CountedStock)
}

func TestLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stocked(t, "SKU-1", 1, "1", nil)

	a, err := f.audits.CreateAudit(ctx, inventory.CreateInput{Name: "Count", Scope: inventory.Scope{Kind: inventory.ScopeAll}})
	require.NoError(t, err)
	assert.Equal(t, inventory.StatusDraft, a.Status)
	assert.Regexp(t, `^AUD-\d{4}-00001$`, a.Number)
	assert.WithinDuration(t, time.Now(), a.SnapshotTakenAt, time.Minute)

	_, err = f.audits.Summary(ctx, a.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidState), "summary of draft")

	_, err = f.audits.Complete(ctx, a.ID, inventory.CompleteInput{})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidState), "complete draft")

	_, err = f.audits.Start(ctx, a.ID)
	require.NoError(t, err)
	_, err = f.audits.Start(ctx, a.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidState), "start twice")

	cancelled, err := f.audits.Cancel(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, inventory.StatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)

	_, err = f.audits.Cancel(ctx, a.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidState), "cancel twice")

	_, err = f.audits.Summary(ctx, a.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidState), "summary of cancelled")

	second, err := f.audits.CreateAudit(ctx, inventory.CreateInput{Name: "Recount", Scope: inventory.Scope{Kind: inventory.ScopeAll}})
	require.NoError(t, err)
	assert.Regexp(t, `^AUD-\d{4}-00002$`, second.Number)

	cancelledStatus := inventory.StatusCancelled
	list, err := f.audits.List(ctx, inventory.Filter{Status: &cancelledStatus}, domain.Page{})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, a.ID, list.Items[0].ID)
}

func TestCreateAudit_Scope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	shoes := "shoes"
	f.stocked(t, "SHOE-1", 2, "10", &shoes)
	f.stocked(t, "SHOE-2", 0, "", &shoes)
	f.stocked(t, "HAT-1", 4, "5", ptr("hats"))

	a, err := f.audits.CreateAudit(ctx, inventory.CreateInput{
		Name:  "Shoes",
		Scope: inventory.Scope{Kind: inventory.ScopeCategory, Value: "shoes"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, a.TotalVariants)

	lines, err := f.audits.ListItems(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "SHOE-1", lines[0].SKU)
	assert.Equal(t, 1, lines[0].LineNo)
	assert.Equal(t, int64(0), lines[1].TheoreticalStock)

	_, err = f.audits.CreateAudit(ctx, inventory.CreateInput{
		Name:  "Nothing",
		Scope: inventory.Scope{Kind: inventory.ScopeLocation, Value: "warehouse-9"},
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation), "empty scope")

	_, err = f.audits.CreateAudit(ctx, inventory.CreateInput{Name: "x", Scope: inventory.Scope{Kind: inventory.ScopeCategory}})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation), "missing value")

	_, err = f.audits.CreateAudit(ctx, inventory.CreateInput{Name: " ", Scope: inventory.Scope{Kind: inventory.ScopeAll}})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation), "missing name")
}

func TestCreateAudit_Numbering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stocked(t, "SKU-1", 3, "2", nil)

	numbers := &numerator.StubGenerator{}
	audits := inventory.NewService(f.store.Audits(), f.store.Variants(), f.ledger, numbers, f.store, f.store.Outbox())
	cfg := numerator.DefaultConfig(inventory.NumberPrefix)
	now := time.Now().UTC()
	require.NoError(t, numbers.SetNextNumber(ctx, cfg, now, 41))

	a, err := audits.CreateAudit(ctx, inventory.CreateInput{Name: "Spot check", Scope: inventory.Scope{Kind: inventory.ScopeAll}})
	require.NoError(t, err)
	assert.Equal(t, numerator.Format(cfg, now, 42), a.Number)

	numbers.Err = errors.New("sequence table locked")
	_, err = audits.CreateAudit(ctx, inventory.CreateInput{Name: "Second", Scope: inventory.Scope{Kind: inventory.ScopeAll}})
	require.ErrorIs(t, err, numbers.Err)

	assert.Equal(t, 1, f.store.Stats()["audits"])
	assert.Equal(t, []string{a.Number}, numbers.Issued())
	list, err := audits.List(ctx, inventory.Filter{}, domain.Page{})
	require.NoError(t, err)
	assert.Len(t, list.Items, 1)
}

func TestComplete_RollsBackOnLedgerFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.stocked(t, "SKU-1", 10, "1", nil)

	a, lines := f.startedAudit(t, inventory.Scope{Kind: inventory.ScopeAll})
	_, err := f.audits.SubmitCount(ctx, a.ID, lines[0].ID, 6)
	require.NoError(t, err)

	failing := inventory.NewService(f.store.Audits(), f.store.Variants(), failingLedger{f.ledger}, f.store.Sequences(), f.store, f.store.Outbox())
	_, err = failing.Complete(ctx, a.ID, inventory.CompleteInput{AutoPostAdjustments: true})
	require.Error(t, err)
	assert.True(t, apperror.Retryable(err))

	got, err := f.audits.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, inventory.StatusInProgress, got.Status)
	assert.Equal(t, int64(10), f.stock(t, v.ID))

	all, err := f.ledger.List(ctx, ledger.Filter{Reference: "audit:" + a.Number}, domain.Page{})
	require.NoError(t, err)
	assert.Zero(t, all.TotalCount)

	items, err := f.audits.ListItems(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, items[0].AdjustmentMovementID)
}

// failingLedger records normally but refuses to post.
type failingLedger struct {
	*ledger.Service
}

func (failingLedger) Post(context.Context, id.ID) (*ledger.Movement, error) {
	return nil, apperror.NewConsistency(assert.AnError)
}

func TestSummarize(t *testing.T) {
	a := &inventory.Audit{ID: id.New(), Status: inventory.StatusInProgress}
	lines := []*inventory.Line{
		{TheoreticalStock: 5, UnitCost: decimal.RequireFromString("1.5"), IsCounted: true, CountedStock: ptr(int64(7))},
		{TheoreticalStock: 5, UnitCost: decimal.RequireFromString("2"), IsCounted: true, CountedStock: ptr(int64(5))},
		{TheoreticalStock: 9, UnitCost: decimal.RequireFromString("0.25"), IsCounted: true, CountedStock: ptr(int64(1))},
		{TheoreticalStock: 3, UnitCost: decimal.RequireFromString("100")},
	}

	sum := inventory.Summarize(a, lines)
	assert.Equal(t, 4, sum.TotalItems)
	assert.Equal(t, 3, sum.CountedItems)
	assert.Equal(t, 2, sum.ItemsWithVariance)
	assert.Equal(t, int64(2), sum.TotalPositiveVariance)
	assert.Equal(t, int64(8), sum.TotalNegativeVariance)
	assert.Equal(t, "3", sum.TotalPositiveValue.String())
	assert.Equal(t, "2", sum.TotalNegativeValue.String())
	assert.Equal(t, "1", sum.NetVarianceValue.String())
}
