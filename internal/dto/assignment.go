package dto

import "github.com/noah-isme/sma-scheduling-core/internal/models"

// CreateAssignmentRequest proposes a new assignment.
type CreateAssignmentRequest struct {
	Subject      string `json:"subject" validate:"required,max=100"`
	QuarterID    string `json:"quarterId" validate:"required"`
	DaySlotID    string `json:"daySlotId" validate:"required"`
	GroupID      string `json:"groupId" validate:"required"`
	InstructorID string `json:"instructorId" validate:"required"`
	ClassroomID  string `json:"classroomId" validate:"required"`
}

// Assignment converts the request into an unsaved assignment.
func (r CreateAssignmentRequest) Assignment() models.Assignment {
	return models.Assignment{
		Subject:      r.Subject,
		QuarterID:    r.QuarterID,
		DaySlotID:    r.DaySlotID,
		GroupID:      r.GroupID,
		InstructorID: r.InstructorID,
		ClassroomID:  r.ClassroomID,
	}
}

// UpdateAssignmentRequest carries a partial update; omitted fields stay unchanged.
type UpdateAssignmentRequest struct {
	Subject      *string `json:"subject" validate:"omitnil,min=1,max=100"`
	QuarterID    *string `json:"quarterId" validate:"omitnil,min=1"`
	DaySlotID    *string `json:"daySlotId" validate:"omitnil,min=1"`
	GroupID      *string `json:"groupId" validate:"omitnil,min=1"`
	InstructorID *string `json:"instructorId" validate:"omitnil,min=1"`
	ClassroomID  *string `json:"classroomId" validate:"omitnil,min=1"`
}

// Patch converts the request into a model patch.
func (r UpdateAssignmentRequest) Patch() models.AssignmentPatch {
	return models.AssignmentPatch{
		Subject:      r.Subject,
		QuarterID:    r.QuarterID,
		DaySlotID:    r.DaySlotID,
		GroupID:      r.GroupID,
		InstructorID: r.InstructorID,
		ClassroomID:  r.ClassroomID,
	}
}

// TimetableResponse lists one resource's assignments for a quarter in weekly order.
type TimetableResponse struct {
	QuarterID string                       `json:"quarterId"`
	Resource  string                       `json:"resource"`
	ID        string                       `json:"id"`
	Entries   []models.AssignmentPlacement `json:"entries"`
}
