package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-scheduling-core/internal/models"
	"github.com/noah-isme/sma-scheduling-core/pkg/response"
)

type workloadService interface {
	GetInstructorWorkload(ctx context.Context, instructorID string) (*models.InstructorWorkload, error)
}

// WorkloadHandler serves instructor hour summaries.
type WorkloadHandler struct {
	service workloadService
}

// NewWorkloadHandler constructs the handler.
func NewWorkloadHandler(service workloadService) *WorkloadHandler {
	return &WorkloadHandler{service: service}
}

// Get godoc
// @Summary Instructor workload
// @Tags Workload
// @Produce json
// @Param id path string true "Instructor ID"
// @Success 200 {object} response.Envelope
// @Router /instructors/{id}/workload [get]
func (h *WorkloadHandler) Get(c *gin.Context) {
	workload, err := h.service.GetInstructorWorkload(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, workload)
}
