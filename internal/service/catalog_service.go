package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-scheduling-core/internal/dto"
	"github.com/noah-isme/sma-scheduling-core/internal/models"
	"github.com/noah-isme/sma-scheduling-core/internal/repository"
	appErrors "github.com/noah-isme/sma-scheduling-core/pkg/errors"
)

type catalogStore interface {
	CreateCampus(ctx context.Context, campus *models.Campus) error
	CreateDepartment(ctx context.Context, department *models.Department) error
	CreateContract(ctx context.Context, contract *models.Contract) error
	CreateTimeBlock(ctx context.Context, block *models.TimeBlock) error
	FindOverlappingTimeBlocks(ctx context.Context, start, end models.ClockTime) ([]models.TimeBlock, error)
	CreateDay(ctx context.Context, day *models.Day) error
	CreateDaySlot(ctx context.Context, slot *models.DaySlot) error
	FindDaySlotByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.DaySlot, error)
	ListDaySlots(ctx context.Context) ([]models.DaySlot, error)
	CreateQuarter(ctx context.Context, quarter *models.Quarter) error
	FindQuarterByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Quarter, error)
	ListQuarters(ctx context.Context) ([]models.Quarter, error)
	FindOverlappingQuarters(ctx context.Context, start, end time.Time) ([]models.Quarter, error)
	CreateClassroom(ctx context.Context, classroom *models.Classroom) error
	UpdateClassroomCapacity(ctx context.Context, id string, capacity int) error
	CreateProgram(ctx context.Context, program *models.Program) error
	CreateStudentGroup(ctx context.Context, group *models.StudentGroup) error
	SetStudentGroupActive(ctx context.Context, id string, active bool) error
}

type instructorStore interface {
	Create(ctx context.Context, instructor *models.Instructor) error
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Instructor, error)
	List(ctx context.Context) ([]models.Instructor, error)
	SetActive(ctx context.Context, id string, active bool) error
}

// CatalogService maintains the reference data assignments point at.
type CatalogService struct {
	store       catalogStore
	instructors instructorStore
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(store catalogStore, instructors instructorStore, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{store: store, instructors: instructors, validator: validate, logger: logger}
}

func (s *CatalogService) check(req interface{}, what string) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("invalid %s payload", what))
	}
	return nil
}

// CreateCampus registers a campus.
func (s *CatalogService) CreateCampus(ctx context.Context, req dto.CreateCampusRequest) (*models.Campus, error) {
	if err := s.check(req, "campus"); err != nil {
		return nil, err
	}
	campus := &models.Campus{Address: req.Address, PhoneNumber: req.PhoneNumber, Email: req.Email}
	if err := s.store.CreateCampus(ctx, campus); err != nil {
		return nil, storeError(err, "campus")
	}
	return campus, nil
}

// CreateDepartment registers a department.
func (s *CatalogService) CreateDepartment(ctx context.Context, req dto.CreateDepartmentRequest) (*models.Department, error) {
	if err := s.check(req, "department"); err != nil {
		return nil, err
	}
	department := &models.Department{Name: req.Name, PhoneNumber: req.PhoneNumber, Email: req.Email}
	if err := s.store.CreateDepartment(ctx, department); err != nil {
		return nil, storeError(err, "department")
	}
	return department, nil
}

// CreateContract registers a contract.
func (s *CatalogService) CreateContract(ctx context.Context, req dto.CreateContractRequest) (*models.Contract, error) {
	if err := s.check(req, "contract"); err != nil {
		return nil, err
	}
	contract := &models.Contract{ContractType: req.ContractType, HourLimit: req.HourLimit}
	if err := s.store.CreateContract(ctx, contract); err != nil {
		return nil, storeError(err, "contract")
	}
	return contract, nil
}

// CreateTimeBlock registers a time block. Blocks may not overlap one another.
func (s *CatalogService) CreateTimeBlock(ctx context.Context, req dto.CreateTimeBlockRequest) (*models.TimeBlock, error) {
	if err := s.check(req, "time block"); err != nil {
		return nil, err
	}
	start, err := models.ParseClockTime(req.StartTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid startTime")
	}
	end, err := models.ParseClockTime(req.EndTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid endTime")
	}
	if end.Minutes() <= start.Minutes() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end time must be after start time")
	}

	overlapping, err := s.store.FindOverlappingTimeBlocks(ctx, start, end)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check time blocks")
	}
	if len(overlapping) > 0 {
		labels := make([]string, 0, len(overlapping))
		for _, block := range overlapping {
			labels = append(labels, block.StartTime.String()+"-"+block.EndTime.String())
		}
		return nil, appErrors.Clone(appErrors.ErrConflict, "time block overlaps with: "+strings.Join(labels, ", "))
	}

	block := &models.TimeBlock{StartTime: start, EndTime: end}
	if err := s.store.CreateTimeBlock(ctx, block); err != nil {
		return nil, storeError(err, "time block")
	}
	return block, nil
}

// CreateDay registers a day of the week.
func (s *CatalogService) CreateDay(ctx context.Context, req dto.CreateDayRequest) (*models.Day, error) {
	if err := s.check(req, "day"); err != nil {
		return nil, err
	}
	day := &models.Day{Name: req.Name, Position: req.Position}
	if err := s.store.CreateDay(ctx, day); err != nil {
		return nil, storeError(err, "day")
	}
	return day, nil
}

// CreateDaySlot pairs a day with a time block; each pairing exists once.
func (s *CatalogService) CreateDaySlot(ctx context.Context, req dto.CreateDaySlotRequest) (*models.DaySlot, error) {
	if err := s.check(req, "day slot"); err != nil {
		return nil, err
	}
	slot := &models.DaySlot{DayID: req.DayID, TimeBlockID: req.TimeBlockID}
	if err := s.store.CreateDaySlot(ctx, slot); err != nil {
		return nil, storeError(err, "day slot")
	}
	stored, err := s.store.FindDaySlotByID(ctx, nil, slot.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load day slot")
	}
	return stored, nil
}

// ListDaySlots returns every day slot in weekly order.
func (s *CatalogService) ListDaySlots(ctx context.Context) ([]models.DaySlot, error) {
	slots, err := s.store.ListDaySlots(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list day slots")
	}
	return slots, nil
}

// CreateQuarter registers a quarter named after its start date. Quarters may not overlap.
func (s *CatalogService) CreateQuarter(ctx context.Context, req dto.CreateQuarterRequest) (*models.Quarter, error) {
	if err := s.check(req, "quarter"); err != nil {
		return nil, err
	}
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid startDate")
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid endDate")
	}
	if !end.After(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date must be after start date")
	}

	overlapping, err := s.store.FindOverlappingQuarters(ctx, start, end)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check quarters")
	}
	if len(overlapping) > 0 {
		names := make([]string, 0, len(overlapping))
		for _, q := range overlapping {
			names = append(names, q.Name)
		}
		return nil, appErrors.Clone(appErrors.ErrConflict, "quarter overlaps with: "+strings.Join(names, ", "))
	}

	quarter := &models.Quarter{Name: models.QuarterName(start), StartDate: start, EndDate: end}
	if err := s.store.CreateQuarter(ctx, quarter); err != nil {
		return nil, storeError(err, "quarter")
	}
	return quarter, nil
}

// GetQuarter loads a quarter.
func (s *CatalogService) GetQuarter(ctx context.Context, id string) (*models.Quarter, error) {
	quarter, err := s.store.FindQuarterByID(ctx, nil, id)
	if err != nil {
		return nil, lookupError(err, "quarter", id)
	}
	return quarter, nil
}

// ListQuarters returns all quarters by start date.
func (s *CatalogService) ListQuarters(ctx context.Context) ([]models.Quarter, error) {
	quarters, err := s.store.ListQuarters(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list quarters")
	}
	return quarters, nil
}

// CreateClassroom registers a classroom.
func (s *CatalogService) CreateClassroom(ctx context.Context, req dto.CreateClassroomRequest) (*models.Classroom, error) {
	if err := s.check(req, "classroom"); err != nil {
		return nil, err
	}
	classroom := &models.Classroom{RoomNumber: req.RoomNumber, Capacity: req.Capacity, CampusID: req.CampusID, ClassroomType: req.ClassroomType}
	if err := s.store.CreateClassroom(ctx, classroom); err != nil {
		return nil, storeError(err, "classroom")
	}
	return classroom, nil
}

// UpdateClassroomCapacity changes a classroom's capacity. Assignments already stored are
// not re-checked; only later placements see the new value.
func (s *CatalogService) UpdateClassroomCapacity(ctx context.Context, id string, req dto.UpdateClassroomCapacityRequest) error {
	if err := s.check(req, "classroom capacity"); err != nil {
		return err
	}
	if err := s.store.UpdateClassroomCapacity(ctx, id, req.Capacity); err != nil {
		return lookupError(err, "classroom", id)
	}
	s.logger.Info("classroom capacity updated", zap.String("classroom_id", id), zap.Int("capacity", req.Capacity))
	return nil
}

// CreateProgram registers a program.
func (s *CatalogService) CreateProgram(ctx context.Context, req dto.CreateProgramRequest) (*models.Program, error) {
	if err := s.check(req, "program"); err != nil {
		return nil, err
	}
	program := &models.Program{Name: req.Name, DepartmentID: req.DepartmentID}
	if err := s.store.CreateProgram(ctx, program); err != nil {
		return nil, storeError(err, "program")
	}
	return program, nil
}

// CreateStudentGroup registers an active student group.
func (s *CatalogService) CreateStudentGroup(ctx context.Context, req dto.CreateStudentGroupRequest) (*models.StudentGroup, error) {
	if err := s.check(req, "student group"); err != nil {
		return nil, err
	}
	group := &models.StudentGroup{GroupNumber: req.GroupNumber, ProgramID: req.ProgramID, Capacity: req.Capacity, Active: true}
	if err := s.store.CreateStudentGroup(ctx, group); err != nil {
		return nil, storeError(err, "student group")
	}
	return group, nil
}

// SetStudentGroupActive activates or deactivates a group.
func (s *CatalogService) SetStudentGroupActive(ctx context.Context, id string, active bool) error {
	if err := s.store.SetStudentGroupActive(ctx, id, active); err != nil {
		return lookupError(err, "student group", id)
	}
	return nil
}

// CreateInstructor registers an active instructor with no assigned hours.
func (s *CatalogService) CreateInstructor(ctx context.Context, req dto.CreateInstructorRequest) (*models.Instructor, error) {
	if err := s.check(req, "instructor"); err != nil {
		return nil, err
	}
	instructor := &models.Instructor{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        strings.ToLower(req.Email),
		ContractID:   req.ContractID,
		DepartmentID: req.DepartmentID,
		Active:       true,
	}
	if err := s.instructors.Create(ctx, instructor); err != nil {
		return nil, storeError(err, "instructor")
	}
	return instructor, nil
}

// GetInstructor loads an instructor with the contract limit.
func (s *CatalogService) GetInstructor(ctx context.Context, id string) (*models.Instructor, error) {
	instructor, err := s.instructors.FindByID(ctx, nil, id)
	if err != nil {
		return nil, lookupError(err, "instructor", id)
	}
	return instructor, nil
}

// ListInstructors returns every instructor.
func (s *CatalogService) ListInstructors(ctx context.Context) ([]models.Instructor, error) {
	instructors, err := s.instructors.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list instructors")
	}
	return instructors, nil
}

// SetInstructorActive activates or deactivates an instructor.
func (s *CatalogService) SetInstructorActive(ctx context.Context, id string, active bool) error {
	if err := s.instructors.SetActive(ctx, id, active); err != nil {
		return lookupError(err, "instructor", id)
	}
	return nil
}

func storeError(err error, entity string) error {
	if repository.IsUniqueViolation(err) {
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, entity+" already exists")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create "+entity)
}

func lookupError(err error, entity, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s %s not found", entity, id))
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load "+entity)
}
