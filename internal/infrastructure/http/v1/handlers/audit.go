package handlers

import (
	"github.com/gin-gonic/gin"

	"stockledger/internal/domain/inventory"
	"stockledger/internal/infrastructure/http/v1/dto"
)

// AuditHandler handles HTTP requests for physical inventory audits.
type AuditHandler struct {
	*BaseHandler
	service *inventory.Service
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(base *BaseHandler, service *inventory.Service) *AuditHandler {
	return &AuditHandler{BaseHandler: base, service: service}
}

// Create handles POST /audits.
func (h *AuditHandler) Create(c *gin.Context) {
	var req dto.CreateAuditRequest
	if !h.BindJSON(c, &req) {
		return
	}
	a, err := h.service.CreateAudit(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromAudit(a))
}

// Get handles GET /audits/:id.
func (h *AuditHandler) Get(c *gin.Context) {
	auditID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	a, err := h.service.Get(c.Request.Context(), auditID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromAudit(a))
}

// List handles GET /audits.
func (h *AuditHandler) List(c *gin.Context) {
	var q dto.ListAuditsQuery
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
	h.OK(c, dto.MapList(res, dto.FromAudit))
}

// Start handles POST /audits/:id/start.
func (h *AuditHandler) Start(c *gin.Context) {
	auditID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	a, err := h.service.Start(c.Request.Context(), auditID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromAudit(a))
}

// Cancel handles POST /audits/:id/cancel.
func (h *AuditHandler) Cancel(c *gin.Context) {
	auditID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	a, err := h.service.Cancel(c.Request.Context(), auditID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromAudit(a))
}

// BlindItems handles GET /audits/:id/blind-items.
func (h *AuditHandler) BlindItems(c *gin.Context) {
	auditID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	items, err := h.service.ListBlindItems(c.Request.Context(), auditID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": items})
}

// Progress handles GET /audits/:id/progress.
func (h *AuditHandler) Progress(c *gin.Context) {
	auditID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	p, err := h.service.CountProgress(c.Request.Context(), auditID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, p)
}

// SubmitCount handles PUT /audits/:id/lines/:lineId/count.
func (h *AuditHandler) SubmitCount(c *gin.Context) {
	auditID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	lineID, ok := h.ParamID(c, "lineId")
	if !ok {
		return
	}
	var req dto.SubmitCountRequest
	if !h.BindJSON(c, &req) {
		return
	}

	line, err := h.service.SubmitCount(c.Request.Context(), auditID, lineID, *req.CountedStock)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, line)
}

// Items handles GET /audits/:id/items.
func (h *AuditHandler) Items(c *gin.Context) {
	auditID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	lines, err := h.service.ListItems(c.Request.Context(), auditID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": dto.FromAuditLines(lines)})
}

// Summary handles GET /audits/:id/summary.
func (h *AuditHandler) Summary(c *gin.Context) {
	auditID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	s, err := h.service.Summary(c.Request.Context(), auditID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, s)
}

// Complete handles POST /audits/:id/complete.
func (h *AuditHandler) Complete(c *gin.Context) {
	auditID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req dto.CompleteAuditRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}
	a, err := h.service.Complete(c.Request.Context(), auditID, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromAudit(a))
}
