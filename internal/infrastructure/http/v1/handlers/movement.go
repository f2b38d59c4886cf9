package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// MovementHandler handles HTTP requests for stock movements.
type MovementHandler struct {
	*BaseHandler
	service *ledger.Service
}

// NewMovementHandler creates a new movement handler.
func NewMovementHandler(base *BaseHandler, service *ledger.Service) *MovementHandler {
	return &MovementHandler{BaseHandler: base, service: service}
}

// Create handles POST /movements.
func (h *MovementHandler) Create(c *gin.Context) {
	var req dto.CreateMovementRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	m, err := h.service.Record(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromMovement(m))
}

// Get handles GET /movements/:id.
func (h *MovementHandler) Get(c *gin.Context) {
	movementID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	m, err := h.service.Get(c.Request.Context(), movementID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromMovement(m))
}

// List handles GET /movements.
func (h *MovementHandler) List(c *gin.Context) {
	var q dto.ListMovementsQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	res, err := h.service.List(c.Request.Context(), filter, q.Page())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.MapList(res, dto.FromMovement))
}

// Post handles POST /movements/:id/post.
func (h *MovementHandler) Post(c *gin.Context) {
	h.lifecycle(c, h.service.Post)
}

// Unpost handles POST /movements/:id/unpost.
func (h *MovementHandler) Unpost(c *gin.Context) {
	h.lifecycle(c, h.service.Unpost)
}

// Discard handles DELETE /movements/:id.
func (h *MovementHandler) Discard(c *gin.Context) {
	movementID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Discard(c.Request.Context(), movementID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

func (h *MovementHandler) lifecycle(c *gin.Context, op func(ctx context.Context, movementID id.ID) (*ledger.Movement, error)) {
	movementID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	m, err := op(c.Request.Context(), movementID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromMovement(m))
}
