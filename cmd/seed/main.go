// Package main provides a CLI tool for seeding the ledger with demo
// variants and opening stock.
package main

import (
	"context"
	"fmt"
	"os"

	"stockledger/internal/app"
	"stockledger/internal/config"
	"stockledger/internal/core/apperror"
	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/catalog/variant"
	"stockledger/internal/domain/ledger"
	"stockledger/pkg/logger"
)

// seedActor is recorded as creator and poster of seeded movements.
const seedActor = "seed"

type demoVariant struct {
	sku      string
	name     string
	category string
	location string
	opening  int64
	cost     string

	// purchase is posted after the opening stock when non-zero.
	purchase     int64
	purchaseCost string
}

var demoVariants = []demoVariant{
	{"HAM-16OZ", "Claw hammer 16oz", "tools", "A1", 40, "8.50", 20, "9.10"},
	{"SCR-PH2", "Screwdriver PH2", "tools", "A1", 120, "2.25", 0, ""},
	{"DRL-18V", "Cordless drill 18V", "power-tools", "B2", 12, "64.00", 6, "61.50"},
	{"GLV-L", "Work gloves L", "safety", "C1", 200, "1.40", 100, "1.35"},
	{"TAP-50", "Measuring tape 5m", "tools", "A2", 0, "", 30, "4.80"},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	ctx := appctx.WithActor(context.Background(), seedActor)

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatalw("failed to initialize application", "error", err)
	}
	defer application.Close()

	created, err := seedDemoData(ctx, application, log)
	if err != nil {
		log.Fatalw("failed to seed demo data", "error", err)
	}

	log.Infow("seeding completed successfully", "variants", created)
}

// seedDemoData creates the demo variants and posts their opening stock.
// Variants whose SKU already exists are skipped, so reruns are safe.
func seedDemoData(ctx context.Context, a *app.App, log *logger.Logger) (int, error) {
	created := 0
	for _, d := range demoVariants {
		category, location := d.category, d.location
		v, err := a.Variants.Create(ctx, variant.CreateInput{
			SKU:        d.sku,
			Name:       d.name,
			CategoryID: &category,
			LocationID: &location,
		})
		if err != nil {
			if appErr, ok := apperror.AsAppError(err); ok && appErr.Code == apperror.CodeValidation && appErr.Details["sku"] != nil {
				log.Infow("variant already exists, skipping", "sku", d.sku)
				continue
			}
			return created, fmt.Errorf("create variant %s: %w", d.sku, err)
		}
		created++

		if d.opening > 0 {
			if err := recordAndPost(ctx, a.Ledger, v, ledger.TypeInitialStock, d.opening, d.cost); err != nil {
				return created, err
			}
		}
		if d.purchase > 0 {
			if err := recordAndPost(ctx, a.Ledger, v, ledger.TypePurchase, d.purchase, d.purchaseCost); err != nil {
				return created, err
			}
		}
		log.Infow("seeded variant", "sku", d.sku)
	}
	return created, nil
}

func recordAndPost(ctx context.Context, svc *ledger.Service, v *variant.Variant, typ ledger.MovementType, qty int64, cost string) error {
	unitCost, err := types.NewMoneyFromString(cost)
	if err != nil {
		return err
	}
	m, err := svc.Record(ctx, ledger.RecordInput{
		VariantID: v.ID,
		Type:      typ,
		Quantity:  qty,
		UnitCost:  &unitCost,
		Reference: "seed",
	})
	if err != nil {
		return fmt.Errorf("record %s for %s: %w", typ, v.SKU, err)
	}
	if _, err := svc.Post(ctx, m.ID); err != nil {
		return fmt.Errorf("post %s for %s: %w", typ, v.SKU, err)
	}
	return nil
}
