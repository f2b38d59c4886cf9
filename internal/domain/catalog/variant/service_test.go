package variant_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/event"
	"stockledger/internal/domain"
	"stockledger/internal/domain/catalog/variant"
	"stockledger/internal/infrastructure/storage/memory"
)

func newService() (*variant.Service, *memory.Store) {
	store := memory.NewStore()
	return variant.NewService(store.Variants(), store), store
}

func TestCreate(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	tools := " tools "

	v, err := svc.Create(ctx, variant.CreateInput{SKU: " SKU-1 ", Name: "Hammer", CategoryID: &tools})
	require.NoError(t, err)
	assert.Equal(t, "SKU-1", v.SKU)
	require.NotNil(t, v.CategoryID)
	assert.Equal(t, "tools", *v.CategoryID)
	assert.Zero(t, v.StockQuantity)
	assert.True(t, v.AverageCost.IsZero())

	got, err := svc.Get(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, v.ID, got.ID)
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newService()

	tests := []struct {
		name string
		in   variant.CreateInput
	}{
		{"missing sku", variant.CreateInput{Name: "Hammer"}},
		{"missing name", variant.CreateInput{SKU: "SKU-1"}},
		{"long sku", variant.CreateInput{SKU: strings.Repeat("S", 65), Name: "Hammer"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.in)
			assert.True(t, apperror.HasCode(err, apperror.CodeValidation), "got %v", err)
		})
	}
}

func TestCreateDuplicateSKU(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()

	_, err := svc.Create(ctx, variant.CreateInput{SKU: "SKU-1", Name: "Hammer"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, variant.CreateInput{SKU: "SKU-1", Name: "Other"})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	assert.Equal(t, 1, store.Stats()["variants"])
}

func TestCreateHookRollsBack(t *testing.T) {
	svc, store := newService()
	svc.Hooks().On(domain.AfterCreate, func(ctx context.Context, v *variant.Variant) error {
		return errors.New("rejected")
	})

	_, err := svc.Create(context.Background(), variant.CreateInput{SKU: "SKU-1", Name: "Hammer"})
	require.Error(t, err)
	assert.Zero(t, store.Stats()["variants"])
}

func TestCreatePublishesEvent(t *testing.T) {
	svc, store := newService()
	svc.Hooks().On(domain.AfterCreate, variant.PublishCreated(store.Outbox()))
	ctx := appctx.WithActor(context.Background(), "alice")

	v, err := svc.Create(ctx, variant.CreateInput{SKU: "SKU-1", Name: "Hammer"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, variant.CreateInput{SKU: "SKU-1", Name: "Duplicate"})
	require.Error(t, err)

	msgs := store.Outbox().Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, event.VariantCreated, msgs[0].EventType)
	assert.Equal(t, event.AggregateVariant, msgs[0].AggregateType)
	assert.Equal(t, v.ID, msgs[0].AggregateID)

	var payload variant.CreatedEvent
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &payload))
	assert.Equal(t, "SKU-1", payload.SKU)
	assert.Equal(t, "alice", payload.Actor)
}

func TestList(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	tools, food := "tools", "food"

	for _, in := range []variant.CreateInput{
		{SKU: "HAM-1", Name: "Hammer", CategoryID: &tools},
		{SKU: "SAW-1", Name: "Saw", CategoryID: &tools},
		{SKU: "APL-1", Name: "Apple", CategoryID: &food},
	} {
		_, err := svc.Create(ctx, in)
		require.NoError(t, err)
	}

	res, err := svc.List(ctx, variant.Filter{CategoryID: &tools}, domain.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.TotalCount)

	res, err = svc.List(ctx, variant.Filter{Search: "ham"}, domain.Page{})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "HAM-1", res.Items[0].SKU)

	res, err = svc.List(ctx, variant.Filter{}, domain.Page{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)
	assert.EqualValues(t, 3, res.TotalCount)
}
