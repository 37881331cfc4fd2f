package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-scheduling-core/internal/dto"
	"github.com/noah-isme/sma-scheduling-core/internal/models"
	appErrors "github.com/noah-isme/sma-scheduling-core/pkg/errors"
	"github.com/noah-isme/sma-scheduling-core/pkg/response"
)

type catalogService interface {
	CreateCampus(ctx context.Context, req dto.CreateCampusRequest) (*models.Campus, error)
	CreateDepartment(ctx context.Context, req dto.CreateDepartmentRequest) (*models.Department, error)
	CreateContract(ctx context.Context, req dto.CreateContractRequest) (*models.Contract, error)
	CreateTimeBlock(ctx context.Context, req dto.CreateTimeBlockRequest) (*models.TimeBlock, error)
	CreateDay(ctx context.Context, req dto.CreateDayRequest) (*models.Day, error)
	CreateDaySlot(ctx context.Context, req dto.CreateDaySlotRequest) (*models.DaySlot, error)
	ListDaySlots(ctx context.Context) ([]models.DaySlot, error)
	CreateQuarter(ctx context.Context, req dto.CreateQuarterRequest) (*models.Quarter, error)
	GetQuarter(ctx context.Context, id string) (*models.Quarter, error)
	ListQuarters(ctx context.Context) ([]models.Quarter, error)
	CreateClassroom(ctx context.Context, req dto.CreateClassroomRequest) (*models.Classroom, error)
	UpdateClassroomCapacity(ctx context.Context, id string, req dto.UpdateClassroomCapacityRequest) error
	CreateProgram(ctx context.Context, req dto.CreateProgramRequest) (*models.Program, error)
	CreateStudentGroup(ctx context.Context, req dto.CreateStudentGroupRequest) (*models.StudentGroup, error)
	SetStudentGroupActive(ctx context.Context, id string, active bool) error
	CreateInstructor(ctx context.Context, req dto.CreateInstructorRequest) (*models.Instructor, error)
	GetInstructor(ctx context.Context, id string) (*models.Instructor, error)
	ListInstructors(ctx context.Context) ([]models.Instructor, error)
	SetInstructorActive(ctx context.Context, id string, active bool) error
}

// CatalogHandler maintains reference data.
type CatalogHandler struct {
	service catalogService
}

// NewCatalogHandler constructs the handler.
func NewCatalogHandler(service catalogService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

type activeRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// create binds the JSON body into req and responds 201 with whatever fn returns.
func create[Req any, Res any](c *gin.Context, what string, fn func(context.Context, Req) (Res, error)) {
	var req Req
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid "+what+" payload"))
		return
	}
	created, err := fn(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

func (h *CatalogHandler) CreateCampus(c *gin.Context) {
	create(c, "campus", h.service.CreateCampus)
}

func (h *CatalogHandler) CreateDepartment(c *gin.Context) {
	create(c, "department", h.service.CreateDepartment)
}

func (h *CatalogHandler) CreateContract(c *gin.Context) {
	create(c, "contract", h.service.CreateContract)
}

func (h *CatalogHandler) CreateTimeBlock(c *gin.Context) {
	create(c, "time block", h.service.CreateTimeBlock)
}

func (h *CatalogHandler) CreateDay(c *gin.Context) {
	create(c, "day", h.service.CreateDay)
}

func (h *CatalogHandler) CreateDaySlot(c *gin.Context) {
	create(c, "day slot", h.service.CreateDaySlot)
}

func (h *CatalogHandler) CreateQuarter(c *gin.Context) {
	create(c, "quarter", h.service.CreateQuarter)
}

func (h *CatalogHandler) CreateClassroom(c *gin.Context) {
	create(c, "classroom", h.service.CreateClassroom)
}

func (h *CatalogHandler) CreateProgram(c *gin.Context) {
	create(c, "program", h.service.CreateProgram)
}

func (h *CatalogHandler) CreateStudentGroup(c *gin.Context) {
	create(c, "student group", h.service.CreateStudentGroup)
}

func (h *CatalogHandler) CreateInstructor(c *gin.Context) {
	create(c, "instructor", h.service.CreateInstructor)
}

// ListDaySlots returns the weekly grid.
func (h *CatalogHandler) ListDaySlots(c *gin.Context) {
	slots, err := h.service.ListDaySlots(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, slots)
}

// ListQuarters returns every quarter.
func (h *CatalogHandler) ListQuarters(c *gin.Context) {
	quarters, err := h.service.ListQuarters(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, quarters)
}

// GetQuarter returns one quarter.
func (h *CatalogHandler) GetQuarter(c *gin.Context) {
	quarter, err := h.service.GetQuarter(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, quarter)
}

// ListInstructors returns every instructor.
func (h *CatalogHandler) ListInstructors(c *gin.Context) {
	instructors, err := h.service.ListInstructors(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, instructors)
}

// GetInstructor returns one instructor.
func (h *CatalogHandler) GetInstructor(c *gin.Context) {
	instructor, err := h.service.GetInstructor(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, instructor)
}

// UpdateClassroomCapacity changes a classroom's capacity.
func (h *CatalogHandler) UpdateClassroomCapacity(c *gin.Context) {
	var req dto.UpdateClassroomCapacityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid classroom payload"))
		return
	}
	if err := h.service.UpdateClassroomCapacity(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SetInstructorActive toggles an instructor.
func (h *CatalogHandler) SetInstructorActive(c *gin.Context) {
	h.setActive(c, h.service.SetInstructorActive)
}

// SetStudentGroupActive toggles a student group.
func (h *CatalogHandler) SetStudentGroupActive(c *gin.Context) {
	h.setActive(c, h.service.SetStudentGroupActive)
}

func (h *CatalogHandler) setActive(c *gin.Context, fn func(ctx context.Context, id string, active bool) error) {
	var req activeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "active is required"))
		return
	}
	if err := fn(c.Request.Context(), c.Param("id"), *req.Active); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
