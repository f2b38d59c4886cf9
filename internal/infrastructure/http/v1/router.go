// Package v1 provides HTTP API version 1.
package v1

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"stockledger/internal/core/idempotency"
	"stockledger/internal/domain/catalog/variant"
	"stockledger/internal/domain/inventory"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/infrastructure/http/v1/handlers"
	"stockledger/internal/infrastructure/http/v1/middleware"
	"stockledger/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	Logger *logger.Logger

	Variants *variant.Service
	Ledger   *ledger.Service
	Audits   *inventory.Service

	// Idempotency enables X-Idempotency-Key handling when non-nil.
	Idempotency idempotency.Store

	// DB is pinged by the readiness probe; nil for the memory backend.
	DB handlers.Pinger

	CORSOrigins []string

	// RateLimit in limiter format ("300-M"); empty disables limiting.
	RateLimit string

	Development bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	if cfg.Development {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	router := gin.New()

	// ErrorHandler wraps Recovery so recovered panics are rendered.
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Recovery())
	if len(cfg.CORSOrigins) > 0 {
		router.Use(middleware.CORS(cfg.CORSOrigins))
	}

	healthHandler := handlers.NewHealthHandler(cfg.DB)
	health := router.Group("/health")
	health.GET("/live", healthHandler.Live)
	health.GET("/ready", healthHandler.Ready)

	api := router.Group("/api/v1")
	if cfg.RateLimit != "" {
		limit, err := middleware.RateLimit(cfg.RateLimit)
		if err != nil {
			return nil, fmt.Errorf("rate limit middleware: %w", err)
		}
		api.Use(limit)
	}
	api.Use(middleware.Actor())
	if cfg.Idempotency != nil {
		api.Use(middleware.Idempotency(cfg.Idempotency))
	}

	base := handlers.NewBaseHandler()
	RegisterMovementRoutes(api.Group("/movements"), handlers.NewMovementHandler(base, cfg.Ledger))
	RegisterVariantRoutes(api.Group("/variants"), handlers.NewVariantHandler(base, cfg.Variants, cfg.Ledger))
	RegisterAuditRoutes(api.Group("/audits"), handlers.NewAuditHandler(base, cfg.Audits))

	return router, nil
}
