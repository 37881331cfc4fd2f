package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-scheduling-core/internal/dto"
	"github.com/noah-isme/sma-scheduling-core/internal/models"
	"github.com/noah-isme/sma-scheduling-core/internal/service"
	appErrors "github.com/noah-isme/sma-scheduling-core/pkg/errors"
	"github.com/noah-isme/sma-scheduling-core/pkg/export"
	"github.com/noah-isme/sma-scheduling-core/pkg/response"
)

type assignmentService interface {
	Create(ctx context.Context, req dto.CreateAssignmentRequest) (*models.Assignment, error)
	Update(ctx context.Context, id string, req dto.UpdateAssignmentRequest) (*models.Assignment, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*models.Assignment, error)
	List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, *models.Pagination, error)
	Preview(ctx context.Context, req dto.CreateAssignmentRequest) (*models.ValidationReport, error)
	PreviewUpdate(ctx context.Context, id string, req dto.UpdateAssignmentRequest) (*models.ValidationReport, error)
	ListByInstructor(ctx context.Context, instructorID, quarterID string) ([]models.AssignmentPlacement, error)
	ListByClassroom(ctx context.Context, classroomID, quarterID string) ([]models.AssignmentPlacement, error)
	ListByGroup(ctx context.Context, groupID, quarterID string) ([]models.AssignmentPlacement, error)
	ExportTimetable(ctx context.Context, resource, id, quarterID string, format export.Format) ([]byte, error)
}

// AssignmentHandler exposes assignment endpoints.
type AssignmentHandler struct {
	service assignmentService
}

// NewAssignmentHandler constructs the handler.
func NewAssignmentHandler(service assignmentService) *AssignmentHandler {
	return &AssignmentHandler{service: service}
}

// Create godoc
// @Summary Create assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body dto.CreateAssignmentRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /assignments [post]
func (h *AssignmentHandler) Create(c *gin.Context) {
	var req dto.CreateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}
	assignment, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// Validate reports every conflict the proposed assignment would cause without storing it.
func (h *AssignmentHandler) Validate(c *gin.Context) {
	var req dto.CreateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}
	report, err := h.service.Preview(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}

// ValidateUpdate reports every conflict a partial update would cause.
func (h *AssignmentHandler) ValidateUpdate(c *gin.Context) {
	var req dto.UpdateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}
	report, err := h.service.PreviewUpdate(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}

// List godoc
// @Summary List assignments
// @Tags Assignments
// @Produce json
// @Param quarterId query string false "Quarter ID"
// @Param instructorId query string false "Instructor ID"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /assignments [get]
func (h *AssignmentHandler) List(c *gin.Context) {
	filter := models.AssignmentFilter{
		QuarterID:    queryParam(c, "quarterId", "quarter_id"),
		DaySlotID:    queryParam(c, "daySlotId", "day_slot_id"),
		GroupID:      queryParam(c, "groupId", "group_id"),
		InstructorID: queryParam(c, "instructorId", "instructor_id"),
		ClassroomID:  queryParam(c, "classroomId", "classroom_id"),
		Subject:      c.Query("subject"),
		SortBy:       c.Query("sort"),
		SortOrder:    c.Query("order"),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	assignments, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, pagination)
}

// Get returns one assignment.
func (h *AssignmentHandler) Get(c *gin.Context) {
	assignment, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, assignment)
}

// Update godoc
// @Summary Update assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body dto.UpdateAssignmentRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id} [patch]
func (h *AssignmentHandler) Update(c *gin.Context) {
	var req dto.UpdateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}
	assignment, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, assignment)
}

// Delete removes an assignment.
func (h *AssignmentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// InstructorTimetable lists an instructor's week for ?quarterId=. ?format=csv|pdf downloads it.
func (h *AssignmentHandler) InstructorTimetable(c *gin.Context) {
	h.timetable(c, service.TimetableInstructor, h.service.ListByInstructor)
}

// ClassroomTimetable lists a classroom's week for ?quarterId=.
func (h *AssignmentHandler) ClassroomTimetable(c *gin.Context) {
	h.timetable(c, service.TimetableClassroom, h.service.ListByClassroom)
}

// GroupTimetable lists a student group's week for ?quarterId=.
func (h *AssignmentHandler) GroupTimetable(c *gin.Context) {
	h.timetable(c, service.TimetableGroup, h.service.ListByGroup)
}

func (h *AssignmentHandler) timetable(c *gin.Context, resource string, load func(ctx context.Context, id, quarterID string) ([]models.AssignmentPlacement, error)) {
	quarterID := queryParam(c, "quarterId", "quarter_id")
	if quarterID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "quarterId is required"))
		return
	}
	id := c.Param("id")
	if raw := c.Query("format"); raw != "" && raw != "json" {
		h.download(c, resource, id, quarterID, raw)
		return
	}
	entries, err := load(c.Request.Context(), id, quarterID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.TimetableResponse{QuarterID: quarterID, Resource: resource, ID: id, Entries: entries})
}

func (h *AssignmentHandler) download(c *gin.Context, resource, id, quarterID, rawFormat string) {
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "format must be json, csv or pdf"))
		return
	}
	body, err := h.service.ExportTimetable(c.Request.Context(), resource, id, quarterID, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("timetable-%s-%s-%s.%s", resource, id, quarterID, format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, format.ContentType(), body)
}

// queryParam returns the first non-blank value among the given query keys.
func queryParam(c *gin.Context, keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(c.Query(key)); v != "" {
			return v
		}
	}
	return ""
}
