package variant

import (
	"context"

	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/event"
	"stockledger/internal/core/id"
	"stockledger/internal/domain"
)

// CreatedEvent is the outbox payload of VariantCreated.
type CreatedEvent struct {
	VariantID  id.ID   `json:"variantId"`
	SKU        string  `json:"sku"`
	Name       string  `json:"name"`
	CategoryID *string `json:"categoryId,omitempty"`
	LocationID *string `json:"locationId,omitempty"`
	Actor      string  `json:"actor"`
}

// PublishCreated returns an AfterCreate hook that writes VariantCreated to
// events inside the creating transaction.
func PublishCreated(events event.Publisher) domain.Hook[*Variant] {
	return func(ctx context.Context, v *Variant) error {
		return events.Publish(ctx, event.Event{
			AggregateType: event.AggregateVariant,
			AggregateID:   v.ID,
			Type:          event.VariantCreated,
			Payload: CreatedEvent{
				VariantID:  v.ID,
				SKU:        v.SKU,
				Name:       v.Name,
				CategoryID: v.CategoryID,
				LocationID: v.LocationID,
				Actor:      appctx.Actor(ctx),
			},
		})
	}
}
