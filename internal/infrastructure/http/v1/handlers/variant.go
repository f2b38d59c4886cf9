package handlers

import (
	"github.com/gin-gonic/gin"

	"stockledger/internal/domain/catalog/variant"
	"stockledger/internal/domain/ledger"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// VariantHandler handles HTTP requests for variants.
type VariantHandler struct {
	*BaseHandler
	service *variant.Service
	ledger  *ledger.Service
}

// NewVariantHandler creates a new variant handler.
func NewVariantHandler(base *BaseHandler, service *variant.Service, ledgerService *ledger.Service) *VariantHandler {
	return &VariantHandler{BaseHandler: base, service: service, ledger: ledgerService}
}

// Create handles POST /variants.
func (h *VariantHandler) Create(c *gin.Context) {
	var req dto.CreateVariantRequest
	if !h.BindJSON(c, &req) {
		return
	}
	v, err := h.service.Create(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromVariant(v))
}

// Get handles GET /variants/:id.
func (h *VariantHandler) Get(c *gin.Context) {
	variantID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	v, err := h.service.Get(c.Request.Context(), variantID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromVariant(v))
}

// List handles GET /variants.
func (h *VariantHandler) List(c *gin.Context) {
	var q dto.ListVariantsQuery
	if !h.BindQuery(c, &q) {
		return
	}
	res, err := h.service.List(c.Request.Context(), q.ToFilter(), q.Page())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.MapList(res, dto.FromVariant))
}

// Verify handles GET /variants/:id/verify.
func (h *VariantHandler) Verify(c *gin.Context) {
	variantID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	res, err := h.ledger.VerifyVariant(c.Request.Context(), variantID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromVerification(res))
}
