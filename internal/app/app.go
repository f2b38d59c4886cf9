// Package app wires storage, services and the HTTP router from Config.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"stockledger/internal/config"
	"stockledger/internal/core/event"
	"stockledger/internal/core/idempotency"
	"stockledger/internal/core/numerator"
	"stockledger/internal/core/tx"
	"stockledger/internal/domain"
	"stockledger/internal/domain/catalog/variant"
	"stockledger/internal/domain/inventory"
	"stockledger/internal/domain/ledger"
	v1 "stockledger/internal/infrastructure/http/v1"
	pgnumerator "stockledger/internal/infrastructure/numerator"
	"stockledger/internal/infrastructure/storage/memory"
	"stockledger/internal/infrastructure/storage/postgres"
	"stockledger/internal/infrastructure/storage/postgres/catalog_repo"
	"stockledger/internal/infrastructure/storage/postgres/inventory_repo"
	"stockledger/internal/infrastructure/storage/postgres/ledger_repo"
	"stockledger/pkg/logger"
)

// App holds the wired services of one process.
type App struct {
	Config config.Config
	Log    *logger.Logger

	Variants *variant.Service
	Ledger   *ledger.Service
	Audits   *inventory.Service

	Idempotency idempotency.Store

	// Postgres backend only.
	Pool      *postgres.Pool
	TxManager *postgres.TxManager

	// Memory backend only.
	Store *memory.Store
}

// New connects the configured backend and builds the services.
func New(ctx context.Context, cfg config.Config, log *logger.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log}

	var (
		variants  variant.Repository
		movements ledger.Repository
		audits    inventory.Repository
		numbers   numerator.Generator
		txm       tx.Manager
		events    event.Publisher
	)

	switch cfg.Storage.Driver {
	case config.DriverMemory:
		store := memory.NewStore()
		a.Store = store
		variants, movements, audits = store.Variants(), store.Movements(), store.Audits()
		numbers, txm, events = store.Sequences(), store, store.Outbox()
		a.Idempotency = memory.NewIdempotencyStore(cfg.Idempotency.TTL)

	case config.DriverPostgres:
		poolCfg := postgres.DefaultPoolConfig(cfg.Storage.DatabaseURL)
		poolCfg.MaxConns = cfg.Storage.MaxConns
		poolCfg.MinConns = cfg.Storage.MinConns
		pool, err := postgres.NewPool(ctx, poolCfg)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		a.Pool = pool
		a.TxManager = postgres.NewTxManager(pool)

		if cfg.Storage.AutoMigrate {
			if err := postgres.Migrate(ctx, a.TxManager); err != nil {
				pool.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
			log.Info("schema migrated")
		}

		codec, err := postgres.NewPayloadCodec(postgres.DefaultCompressThreshold)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("outbox codec: %w", err)
		}

		variants = catalog_repo.NewVariantRepo(a.TxManager)
		movements = ledger_repo.NewMovementRepo(a.TxManager)
		audits = inventory_repo.NewAuditRepo(a.TxManager)
		numbers = pgnumerator.New(a.TxManager)
		txm = a.TxManager
		events = postgres.NewOutboxPublisher(a.TxManager, codec)
		a.Idempotency = postgres.NewIdempotencyStore(a.TxManager, cfg.Idempotency.TTL)

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	a.Variants = variant.NewService(variants, txm)
	a.Variants.Hooks().On(domain.AfterCreate, variant.PublishCreated(events))
	a.Ledger = ledger.NewService(movements, variants, txm, events)
	a.Audits = inventory.NewService(audits, variants, a.Ledger, numbers, txm, events)

	log.Infow("services initialized", "storage", cfg.Storage.Driver)
	return a, nil
}

// Router builds the HTTP API.
func (a *App) Router() (*gin.Engine, error) {
	rc := v1.RouterConfig{
		Logger:      a.Log,
		Variants:    a.Variants,
		Ledger:      a.Ledger,
		Audits:      a.Audits,
		CORSOrigins: a.Config.CORS.AllowedOrigins,
		RateLimit:   a.Config.RateLimit,
		Development: a.Config.Development(),
	}
	if a.Config.Idempotency.Enabled {
		rc.Idempotency = a.Idempotency
	}
	if a.TxManager != nil {
		rc.DB = a.TxManager
	}
	return v1.NewRouter(rc)
}

// Close releases the backend.
func (a *App) Close() {
	if a.Pool != nil {
		a.Pool.Close()
	}
}
