package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-scheduling-core/internal/models"
	appErrors "github.com/noah-isme/sma-scheduling-core/pkg/errors"
)

type validatorCatalog interface {
	FindQuarterByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Quarter, error)
	FindDaySlotByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.DaySlot, error)
	FindStudentGroupByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.StudentGroup, error)
	FindClassroomByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Classroom, error)
}

type validatorInstructors interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Instructor, error)
}

type bookingFinder interface {
	FindInstructorBooking(ctx context.Context, exec sqlx.ExtContext, instructorID, daySlotID, quarterID, excludeID string) (string, error)
	FindGroupBooking(ctx context.Context, exec sqlx.ExtContext, groupID, daySlotID, quarterID, excludeID string) (string, error)
	FindClassroomBooking(ctx context.Context, exec sqlx.ExtContext, classroomID, daySlotID, quarterID, excludeID string) (string, error)
}

// ConflictValidator decides whether a proposed assignment may be stored. It only reads.
type ConflictValidator struct {
	catalog     validatorCatalog
	instructors validatorInstructors
	bookings    bookingFinder
	logger      *zap.Logger
}

// NewConflictValidator constructs a ConflictValidator.
func NewConflictValidator(catalog validatorCatalog, instructors validatorInstructors, bookings bookingFinder, logger *zap.Logger) *ConflictValidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictValidator{catalog: catalog, instructors: instructors, bookings: bookings, logger: logger}
}

// placement bundles the resolved references of a proposed assignment.
type placement struct {
	slot       *models.DaySlot
	group      *models.StudentGroup
	classroom  *models.Classroom
	instructor *models.Instructor
	// replacedMinutes is the duration released by the assignment being replaced
	// when it belongs to the same instructor.
	replacedMinutes int
}

// Validate checks proposed against every invariant and returns the first violation as a
// typed *errors.Error whose Details hold a *models.ConflictError. previous is the stored
// assignment being replaced (nil on create); it is excluded from the booking lookups.
// Checks run in order: instructor, group, classroom, capacity, hour limit.
func (v *ConflictValidator) Validate(ctx context.Context, exec sqlx.ExtContext, proposed models.Assignment, previous *models.Assignment) error {
	conflicts, err := v.evaluate(ctx, exec, proposed, previous, true)
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		return conflictToError(conflicts[0])
	}
	return nil
}

// Inspect runs every check without stopping at the first violation.
func (v *ConflictValidator) Inspect(ctx context.Context, exec sqlx.ExtContext, proposed models.Assignment, previous *models.Assignment) (*models.ValidationReport, error) {
	conflicts, err := v.evaluate(ctx, exec, proposed, previous, false)
	if err != nil {
		return nil, err
	}
	if conflicts == nil {
		conflicts = []*models.ConflictError{}
	}
	return &models.ValidationReport{Valid: len(conflicts) == 0, Conflicts: conflicts}, nil
}

func (v *ConflictValidator) evaluate(ctx context.Context, exec sqlx.ExtContext, proposed models.Assignment, previous *models.Assignment, firstOnly bool) ([]*models.ConflictError, error) {
	p, err := v.resolve(ctx, exec, proposed, previous)
	if err != nil {
		return nil, err
	}

	excludeID := ""
	if previous != nil {
		excludeID = previous.ID
	}

	var conflicts []*models.ConflictError
	add := func(c *models.ConflictError) bool {
		conflicts = append(conflicts, c)
		return firstOnly
	}

	existing, err := v.bookings.FindInstructorBooking(ctx, exec, proposed.InstructorID, proposed.DaySlotID, proposed.QuarterID, excludeID)
	if err != nil {
		return nil, internalError(err, "failed to check instructor availability")
	}
	if existing != "" && add(models.NewInstructorConflict(proposed.InstructorID, proposed.DaySlotID, proposed.QuarterID, existing)) {
		return conflicts, nil
	}

	existing, err = v.bookings.FindGroupBooking(ctx, exec, proposed.GroupID, proposed.DaySlotID, proposed.QuarterID, excludeID)
	if err != nil {
		return nil, internalError(err, "failed to check group availability")
	}
	if existing != "" && add(models.NewGroupConflict(proposed.GroupID, proposed.DaySlotID, proposed.QuarterID, existing)) {
		return conflicts, nil
	}

	existing, err = v.bookings.FindClassroomBooking(ctx, exec, proposed.ClassroomID, proposed.DaySlotID, proposed.QuarterID, excludeID)
	if err != nil {
		return nil, internalError(err, "failed to check classroom availability")
	}
	if existing != "" && add(models.NewClassroomConflict(proposed.ClassroomID, proposed.DaySlotID, proposed.QuarterID, existing)) {
		return conflicts, nil
	}

	if p.group.Capacity > p.classroom.Capacity &&
		add(models.NewCapacityExceeded(p.classroom.ID, p.group.ID, p.classroom.Capacity, p.group.Capacity)) {
		return conflicts, nil
	}

	if limit := p.instructor.HourLimit; limit != nil {
		current := p.instructor.AssignedMinutes - p.replacedMinutes
		if current < 0 {
			current = 0
		}
		delta := p.slot.DurationMinutes()
		if current+delta > *limit*60 {
			add(models.NewHourLimitExceeded(p.instructor.ID, models.MinutesToHours(current), *limit, models.MinutesToHours(delta)))
		}
	}

	return conflicts, nil
}

// resolve loads every referenced entity. Unknown references are validation errors;
// inactive instructors or groups fail the precondition unless they already held the
// replaced assignment.
func (v *ConflictValidator) resolve(ctx context.Context, exec sqlx.ExtContext, proposed models.Assignment, previous *models.Assignment) (*placement, error) {
	if _, err := v.catalog.FindQuarterByID(ctx, exec, proposed.QuarterID); err != nil {
		return nil, referenceError(err, "quarter", proposed.QuarterID)
	}
	slot, err := v.catalog.FindDaySlotByID(ctx, exec, proposed.DaySlotID)
	if err != nil {
		return nil, referenceError(err, "day slot", proposed.DaySlotID)
	}
	group, err := v.catalog.FindStudentGroupByID(ctx, exec, proposed.GroupID)
	if err != nil {
		return nil, referenceError(err, "student group", proposed.GroupID)
	}
	instructor, err := v.instructors.FindByID(ctx, exec, proposed.InstructorID)
	if err != nil {
		return nil, referenceError(err, "instructor", proposed.InstructorID)
	}
	classroom, err := v.catalog.FindClassroomByID(ctx, exec, proposed.ClassroomID)
	if err != nil {
		return nil, referenceError(err, "classroom", proposed.ClassroomID)
	}

	if !instructor.Active && (previous == nil || previous.InstructorID != instructor.ID) {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("instructor %s is inactive", instructor.ID))
	}
	if !group.Active && (previous == nil || previous.GroupID != group.ID) {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("student group %s is inactive", group.ID))
	}

	p := &placement{slot: slot, group: group, classroom: classroom, instructor: instructor}
	if previous != nil && previous.InstructorID == proposed.InstructorID {
		prevSlot := slot
		if previous.DaySlotID != proposed.DaySlotID {
			prevSlot, err = v.catalog.FindDaySlotByID(ctx, exec, previous.DaySlotID)
			if err != nil {
				return nil, internalError(err, "failed to load replaced day slot")
			}
		}
		p.replacedMinutes = prevSlot.DurationMinutes()
	}
	return p, nil
}

func referenceError(err error, entity, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s %s does not exist", entity, id))
	}
	return internalError(err, fmt.Sprintf("failed to load %s", entity))
}

func internalError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

// conflictToError maps a conflict onto its predefined HTTP-aware error.
func conflictToError(conflict *models.ConflictError) error {
	var base *appErrors.Error
	switch conflict.Kind {
	case models.ConflictInstructor:
		base = appErrors.ErrInstructorConflict
	case models.ConflictGroup:
		base = appErrors.ErrGroupConflict
	case models.ConflictClassroom:
		base = appErrors.ErrClassroomConflict
	case models.ConflictCapacity:
		base = appErrors.ErrCapacityExceeded
	case models.ConflictHourLimit:
		base = appErrors.ErrHourLimitExceeded
	default:
		base = appErrors.ErrConflict
	}
	return appErrors.WithDetails(base, "", conflict)
}

// AsConflict extracts the typed conflict carried by err, if any.
func AsConflict(err error) (*models.ConflictError, bool) {
	var conflict *models.ConflictError
	if errors.As(err, &conflict) {
		return conflict, true
	}
	return nil, false
}
