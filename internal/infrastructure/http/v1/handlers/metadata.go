package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"adminnext/internal/core/apperror"
	"adminnext/internal/infrastructure/http/v1/dto"
)

// Schema returns the full descriptor of a model: columns, types, enumerations and relations.
// GET /admin/:model/schema
func (h *AdminHandler) Schema(c *gin.Context) {
	table, err := h.service.Schema(c.Param("model"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, table)
}

// History returns the audit entries of one row, newest first.
// GET /admin/:model/:id/history?limit=50
func (h *AdminHandler) History(c *gin.Context) {
	sess, ok := h.Session(c)
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.Error(c, apperror.NewValidation("limit must be a positive integer").WithDetail("limit", raw))
			return
		}
		limit = n
	}

	model, id := c.Param("model"), c.Param("id")
	entries, err := h.service.History(c.Request.Context(), sess, model, id, limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewHistoryResponse(model, id, entries))
}
