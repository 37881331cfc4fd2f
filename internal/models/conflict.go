package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ConflictKind names the invariant a proposed assignment violates.
type ConflictKind string

const (
	ConflictInstructor ConflictKind = "INSTRUCTOR_CONFLICT"
	ConflictGroup      ConflictKind = "GROUP_CONFLICT"
	ConflictClassroom  ConflictKind = "CLASSROOM_CONFLICT"
	ConflictCapacity   ConflictKind = "CAPACITY_EXCEEDED"
	ConflictHourLimit  ConflictKind = "HOUR_LIMIT_EXCEEDED"
)

// ConflictError carries the identifiers callers need to render a precise rejection.
// Only the fields relevant to Kind are populated.
type ConflictError struct {
	Kind    ConflictKind `json:"kind"`
	Message string       `json:"message"`

	ExistingAssignmentID string `json:"existing_assignment_id,omitempty"`
	InstructorID         string `json:"instructor_id,omitempty"`
	GroupID              string `json:"group_id,omitempty"`
	ClassroomID          string `json:"classroom_id,omitempty"`
	DaySlotID            string `json:"day_slot_id,omitempty"`
	QuarterID            string `json:"quarter_id,omitempty"`

	ClassroomCapacity int `json:"classroom_capacity,omitempty"`
	GroupCapacity     int `json:"group_capacity,omitempty"`

	CurrentHours *decimal.Decimal `json:"current_hours,omitempty"`
	HourLimit    *int             `json:"hour_limit,omitempty"`
	DeltaHours   *decimal.Decimal `json:"delta_hours,omitempty"`
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

// NewInstructorConflict reports an instructor already booked in the slot.
func NewInstructorConflict(instructorID, daySlotID, quarterID, existingID string) *ConflictError {
	return &ConflictError{
		Kind:                 ConflictInstructor,
		Message:              fmt.Sprintf("instructor %s already has assignment %s in day slot %s for quarter %s", instructorID, existingID, daySlotID, quarterID),
		ExistingAssignmentID: existingID,
		InstructorID:         instructorID,
		DaySlotID:            daySlotID,
		QuarterID:            quarterID,
	}
}

// NewGroupConflict reports a group already booked in the slot.
func NewGroupConflict(groupID, daySlotID, quarterID, existingID string) *ConflictError {
	return &ConflictError{
		Kind:                 ConflictGroup,
		Message:              fmt.Sprintf("group %s already has assignment %s in day slot %s for quarter %s", groupID, existingID, daySlotID, quarterID),
		ExistingAssignmentID: existingID,
		GroupID:              groupID,
		DaySlotID:            daySlotID,
		QuarterID:            quarterID,
	}
}

// NewClassroomConflict reports a classroom already booked in the slot.
func NewClassroomConflict(classroomID, daySlotID, quarterID, existingID string) *ConflictError {
	return &ConflictError{
		Kind:                 ConflictClassroom,
		Message:              fmt.Sprintf("classroom %s already has assignment %s in day slot %s for quarter %s", classroomID, existingID, daySlotID, quarterID),
		ExistingAssignmentID: existingID,
		ClassroomID:          classroomID,
		DaySlotID:            daySlotID,
		QuarterID:            quarterID,
	}
}

// NewCapacityExceeded reports a group larger than the classroom.
func NewCapacityExceeded(classroomID, groupID string, classroomCapacity, groupCapacity int) *ConflictError {
	return &ConflictError{
		Kind:              ConflictCapacity,
		Message:           fmt.Sprintf("classroom capacity (%d) is less than group size (%d)", classroomCapacity, groupCapacity),
		ClassroomID:       classroomID,
		GroupID:           groupID,
		ClassroomCapacity: classroomCapacity,
		GroupCapacity:     groupCapacity,
	}
}

// NewHourLimitExceeded reports an assignment that would push an instructor past the contract limit.
func NewHourLimitExceeded(instructorID string, current decimal.Decimal, limit int, delta decimal.Decimal) *ConflictError {
	l := limit
	return &ConflictError{
		Kind:         ConflictHourLimit,
		Message:      fmt.Sprintf("instructor %s would exceed hour limit (%s + %s > %d hours)", instructorID, current.StringFixed(1), delta.StringFixed(1), limit),
		InstructorID: instructorID,
		CurrentHours: &current,
		HourLimit:    &l,
		DeltaHours:   &delta,
	}
}

// ValidationReport lists every conflict a proposed assignment would cause.
type ValidationReport struct {
	Valid     bool             `json:"valid"`
	Conflicts []*ConflictError `json:"conflicts"`
}
