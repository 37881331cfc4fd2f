package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-scheduling-core/internal/models"
	"github.com/noah-isme/sma-scheduling-core/pkg/response"
)

type consistencyService interface {
	ListConflicts(ctx context.Context, quarterID string) ([]*models.ConflictError, error)
	RunAudit(ctx context.Context, quarterID string, reconcile bool) (*models.ConsistencyReport, error)
}

// ConsistencyHandler exposes the stored-data consistency checks.
type ConsistencyHandler struct {
	service consistencyService
}

// NewConsistencyHandler constructs the handler.
func NewConsistencyHandler(service consistencyService) *ConsistencyHandler {
	return &ConsistencyHandler{service: service}
}

// Conflicts lists every invariant violation found in a quarter's stored assignments.
func (h *ConsistencyHandler) Conflicts(c *gin.Context) {
	conflicts, err := h.service.ListConflicts(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, conflicts)
}

// Audit runs the full audit for a quarter; ?reconcile=true also repairs ledger drift.
func (h *ConsistencyHandler) Audit(c *gin.Context) {
	reconcile, _ := strconv.ParseBool(c.DefaultQuery("reconcile", "false"))
	report, err := h.service.RunAudit(c.Request.Context(), c.Param("id"), reconcile)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}
