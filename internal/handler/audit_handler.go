package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-scheduling-core/internal/models"
	"github.com/noah-isme/sma-scheduling-core/pkg/response"
)

type auditLister interface {
	List(ctx context.Context, filter models.AuditFilter) ([]models.AuditRecord, error)
}

// AuditHandler serves the assignment history.
type AuditHandler struct {
	service auditLister
}

// NewAuditHandler constructs the handler.
func NewAuditHandler(service auditLister) *AuditHandler {
	return &AuditHandler{service: service}
}

// List returns audit records oldest first, optionally for one assignment.
func (h *AuditHandler) List(c *gin.Context) {
	filter := models.AuditFilter{AssignmentID: queryParam(c, "assignmentId", "assignment_id")}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(c.Query("offset")); err == nil && offset > 0 {
		filter.Offset = offset
	}

	records, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil, map[string]interface{}{"count": len(records)})
}
