package models

import "time"

// Assignment is one scheduled teaching session.
type Assignment struct {
	ID           string    `db:"id" json:"id"`
	Subject      string    `db:"subject" json:"subject"`
	QuarterID    string    `db:"quarter_id" json:"quarter_id"`
	DaySlotID    string    `db:"day_slot_id" json:"day_slot_id"`
	GroupID      string    `db:"group_id" json:"group_id"`
	InstructorID string    `db:"instructor_id" json:"instructor_id"`
	ClassroomID  string    `db:"classroom_id" json:"classroom_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// SamePlacement reports whether two assignments occupy the same slot with the same resources.
func (a Assignment) SamePlacement(other Assignment) bool {
	return a.QuarterID == other.QuarterID &&
		a.DaySlotID == other.DaySlotID &&
		a.GroupID == other.GroupID &&
		a.InstructorID == other.InstructorID &&
		a.ClassroomID == other.ClassroomID
}

// AssignmentPatch carries the fields of a partial update; nil means unchanged.
type AssignmentPatch struct {
	Subject      *string `json:"subject,omitempty"`
	QuarterID    *string `json:"quarter_id,omitempty"`
	DaySlotID    *string `json:"day_slot_id,omitempty"`
	GroupID      *string `json:"group_id,omitempty"`
	InstructorID *string `json:"instructor_id,omitempty"`
	ClassroomID  *string `json:"classroom_id,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p AssignmentPatch) Empty() bool {
	return p.Subject == nil && p.QuarterID == nil && p.DaySlotID == nil &&
		p.GroupID == nil && p.InstructorID == nil && p.ClassroomID == nil
}

// Apply returns a copy of a with the patch merged in.
func (p AssignmentPatch) Apply(a Assignment) Assignment {
	merged := a
	if p.Subject != nil {
		merged.Subject = *p.Subject
	}
	if p.QuarterID != nil {
		merged.QuarterID = *p.QuarterID
	}
	if p.DaySlotID != nil {
		merged.DaySlotID = *p.DaySlotID
	}
	if p.GroupID != nil {
		merged.GroupID = *p.GroupID
	}
	if p.InstructorID != nil {
		merged.InstructorID = *p.InstructorID
	}
	if p.ClassroomID != nil {
		merged.ClassroomID = *p.ClassroomID
	}
	return merged
}

// AssignmentFilter describes list query params.
type AssignmentFilter struct {
	QuarterID    string
	DaySlotID    string
	GroupID      string
	InstructorID string
	ClassroomID  string
	Subject      string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

// AssignmentPlacement is an assignment joined with the catalog data the consistency checks
// and timetables need.
type AssignmentPlacement struct {
	Assignment
	DayName           string    `db:"day_name" json:"day_name"`
	DayPosition       int       `db:"day_position" json:"day_position"`
	StartTime         ClockTime `db:"start_time" json:"start_time"`
	EndTime           ClockTime `db:"end_time" json:"end_time"`
	GroupCapacity     int       `db:"group_capacity" json:"group_capacity"`
	ClassroomCapacity int       `db:"classroom_capacity" json:"classroom_capacity"`
	AssignedMinutes   int       `db:"assigned_minutes" json:"-"`
	HourLimit         *int      `db:"hour_limit" json:"hour_limit,omitempty"`
}

// DurationMinutes returns the length of the booked time block.
func (p AssignmentPlacement) DurationMinutes() int {
	return p.EndTime.Minutes() - p.StartTime.Minutes()
}

// PlacementFilter narrows placement listings to one quarter and optionally one resource.
type PlacementFilter struct {
	QuarterID    string
	InstructorID string
	GroupID      string
	ClassroomID  string
}
