package models

import "time"

// AuditAction tags an assignment mutation.
type AuditAction string

const (
	AuditActionCreate AuditAction = "CREATE"
	AuditActionUpdate AuditAction = "UPDATE"
	AuditActionDelete AuditAction = "DELETE"
)

// AuditRecord is an immutable history entry for one assignment mutation.
type AuditRecord struct {
	ID              string      `db:"id" json:"id"`
	AssignmentID    string      `db:"assignment_id" json:"assignment_id"`
	Action          AuditAction `db:"action" json:"action"`
	OldSubject      *string     `db:"old_subject" json:"old_subject,omitempty"`
	NewSubject      *string     `db:"new_subject" json:"new_subject,omitempty"`
	OldInstructorID *string     `db:"old_instructor_id" json:"old_instructor_id,omitempty"`
	NewInstructorID *string     `db:"new_instructor_id" json:"new_instructor_id,omitempty"`
	OldClassroomID  *string     `db:"old_classroom_id" json:"old_classroom_id,omitempty"`
	NewClassroomID  *string     `db:"new_classroom_id" json:"new_classroom_id,omitempty"`
	OldQuarterID    *string     `db:"old_quarter_id" json:"old_quarter_id,omitempty"`
	NewQuarterID    *string     `db:"new_quarter_id" json:"new_quarter_id,omitempty"`
	OldDaySlotID    *string     `db:"old_day_slot_id" json:"old_day_slot_id,omitempty"`
	NewDaySlotID    *string     `db:"new_day_slot_id" json:"new_day_slot_id,omitempty"`
	OldGroupID      *string     `db:"old_group_id" json:"old_group_id,omitempty"`
	NewGroupID      *string     `db:"new_group_id" json:"new_group_id,omitempty"`
	Actor           string      `db:"actor" json:"actor"`
	CreatedAt       time.Time   `db:"created_at" json:"created_at"`
	Seq             int64       `db:"seq" json:"seq"`
}

// AuditFilter narrows audit listings.
type AuditFilter struct {
	AssignmentID string
	Limit        int
	Offset       int
}
