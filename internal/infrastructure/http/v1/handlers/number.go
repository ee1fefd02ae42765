package handlers

import (
	"github.com/gin-gonic/gin"

	"serialgen/internal/domain/numbering"
	"serialgen/internal/infrastructure/http/v1/dto"
)

// NumberHandler issues numbers.
type NumberHandler struct {
	*BaseHandler
	service *numbering.Service
}

// NewNumberHandler creates a new number handler.
func NewNumberHandler(base *BaseHandler, service *numbering.Service) *NumberHandler {
	return &NumberHandler{BaseHandler: base, service: service}
}

// Generate issues one number, or a batch when ?count is given.
// POST /api/v1/numbers/:prefixKey
// GET  /api/v1/numbers/:prefixKey
func (h *NumberHandler) Generate(c *gin.Context) {
	ctx := c.Request.Context()
	prefix := c.Param("prefixKey")

	count, batch, err := h.IntQuery(c, "count")
	if err != nil {
		h.Error(c, err)
		return
	}

	if batch {
		numbers, err := h.service.GenerateBatch(ctx, prefix, count)
		if err != nil {
			h.Error(c, err)
			return
		}
		h.OK(c, dto.NumbersResponse{Numbers: numbers})
		return
	}

	number, err := h.service.Generate(ctx, prefix)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NumberResponse{Number: number})
}
