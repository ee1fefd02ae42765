package handlers

import (
	"github.com/gin-gonic/gin"

	"serialgen/internal/domain/numbering"
	"serialgen/internal/infrastructure/http/v1/dto"
)

// PrefixConfigHandler manages prefix rules.
type PrefixConfigHandler struct {
	*BaseHandler
	service *numbering.Service
}

// NewPrefixConfigHandler creates a new prefix config handler.
func NewPrefixConfigHandler(base *BaseHandler, service *numbering.Service) *PrefixConfigHandler {
	return &PrefixConfigHandler{BaseHandler: base, service: service}
}

// Register stores the rule for a prefix.
// PUT /api/v1/prefix-configs/:prefixKey
func (h *PrefixConfigHandler) Register(c *gin.Context) {
	var req dto.PrefixConfigRequest
	if !h.BindJSON(c, &req) {
		return
	}

	rule := req.ToRule(c.Param("prefixKey"))
	if err := h.service.RegisterRule(c.Request.Context(), rule); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromPrefixRule(&rule))
}

// Get returns the rule of a prefix.
// GET /api/v1/prefix-configs/:prefixKey
func (h *PrefixConfigHandler) Get(c *gin.Context) {
	rule, err := h.service.GetRule(c.Request.Context(), c.Param("prefixKey"))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromPrefixRule(rule))
}
