package v1

import (
	"github.com/gin-gonic/gin"

	"stockledger/internal/infrastructure/http/v1/handlers"
)

// RegisterMovementRoutes registers the ledger routes.
func RegisterMovementRoutes(group *gin.RouterGroup, h *handlers.MovementHandler) {
	group.GET("", h.List)
	group.POST("", h.Create)
	group.GET("/:id", h.Get)
	group.DELETE("/:id", h.Discard)
	group.POST("/:id/post", h.Post)
	group.POST("/:id/unpost", h.Unpost)
}

// RegisterVariantRoutes registers the variant catalog routes.
func RegisterVariantRoutes(group *gin.RouterGroup, h *handlers.VariantHandler) {
	group.GET("", h.List)
	group.POST("", h.Create)
	group.GET("/:id", h.Get)
	group.GET("/:id/verify", h.Verify)
}

// RegisterAuditRoutes registers the physical audit routes.
// Counter-facing routes never expose theoretical stock.
func RegisterAuditRoutes(group *gin.RouterGroup, h *handlers.AuditHandler) {
	group.GET("", h.List)
	group.POST("", h.Create)
	group.GET("/:id", h.Get)
	group.POST("/:id/start", h.Start)
	group.POST("/:id/cancel", h.Cancel)
	group.POST("/:id/complete", h.Complete)

	// counters
	group.GET("/:id/blind-items", h.BlindItems)
	group.GET("/:id/progress", h.Progress)
	group.PUT("/:id/lines/:lineId/count", h.SubmitCount)

	// reviewers
	group.GET("/:id/items", h.Items)
	group.GET("/:id/summary", h.Summary)
}
