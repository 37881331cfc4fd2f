package service

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-scheduling-core/internal/models"
)

type fakeCatalog struct {
	quarters   map[string]*models.Quarter
	slots      map[string]*models.DaySlot
	groups     map[string]*models.StudentGroup
	classrooms map[string]*models.Classroom

	lockedGroups     [][]string
	lockedClassrooms [][]string
}

func (f *fakeCatalog) FindQuarterByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Quarter, error) {
	if q, ok := f.quarters[id]; ok {
		cp := *q
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeCatalog) ListQuarters(ctx context.Context) ([]models.Quarter, error) {
	out := make([]models.Quarter, 0, len(f.quarters))
	for _, q := range f.quarters {
		out = append(out, *q)
	}
	return out, nil
}

func (f *fakeCatalog) FindDaySlotByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.DaySlot, error) {
	if s, ok := f.slots[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeCatalog) FindStudentGroupByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.StudentGroup, error) {
	if g, ok := f.groups[id]; ok {
		cp := *g
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeCatalog) FindClassroomByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Classroom, error) {
	if c, ok := f.classrooms[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeCatalog) LockStudentGroups(ctx context.Context, exec sqlx.ExtContext, ids []string) error {
	f.lockedGroups = append(f.lockedGroups, ids)
	return nil
}

func (f *fakeCatalog) LockClassrooms(ctx context.Context, exec sqlx.ExtContext, ids []string) error {
	f.lockedClassrooms = append(f.lockedClassrooms, ids)
	return nil
}

type fakeInstructors struct {
	items  map[string]*models.Instructor
	locked [][]string
	finds  int
}

func (f *fakeInstructors) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Instructor, error) {
	f.finds++
	if i, ok := f.items[id]; ok {
		cp := *i
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeInstructors) LockInstructors(ctx context.Context, exec sqlx.ExtContext, ids []string) error {
	f.locked = append(f.locked, ids)
	return nil
}

// fakeBookings answers slot lookups from a fixed set of stored assignments.
type fakeBookings struct {
	rows []models.Assignment
}

func (f *fakeBookings) find(match func(models.Assignment) bool, daySlotID, quarterID, excludeID string) string {
	for _, row := range f.rows {
		if row.DaySlotID == daySlotID && row.QuarterID == quarterID && row.ID != excludeID && match(row) {
			return row.ID
		}
	}
	return ""
}

func (f *fakeBookings) FindInstructorBooking(ctx context.Context, exec sqlx.ExtContext, instructorID, daySlotID, quarterID, excludeID string) (string, error) {
	return f.find(func(a models.Assignment) bool { return a.InstructorID == instructorID }, daySlotID, quarterID, excludeID), nil
}

func (f *fakeBookings) FindGroupBooking(ctx context.Context, exec sqlx.ExtContext, groupID, daySlotID, quarterID, excludeID string) (string, error) {
	return f.find(func(a models.Assignment) bool { return a.GroupID == groupID }, daySlotID, quarterID, excludeID), nil
}

func (f *fakeBookings) FindClassroomBooking(ctx context.Context, exec sqlx.ExtContext, classroomID, daySlotID, quarterID, excludeID string) (string, error) {
	return f.find(func(a models.Assignment) bool { return a.ClassroomID == classroomID }, daySlotID, quarterID, excludeID), nil
}

func intPtr(v int) *int { return &v }

// schedulingFixture is a small school: one quarter, two Monday slots, three groups,
// two rooms and four instructors.
func schedulingFixture() (*fakeCatalog, *fakeInstructors, *fakeBookings) {
	catalog := &fakeCatalog{
		quarters: map[string]*models.Quarter{"q1": {ID: "q1", Name: "2025-Q1"}},
		slots: map[string]*models.DaySlot{
			"mon-08": {ID: "mon-08", DayName: "Monday", StartTime: models.MustClockTime("08:00"), EndTime: models.MustClockTime("10:00")},
			"mon-10": {ID: "mon-10", DayName: "Monday", StartTime: models.MustClockTime("10:00"), EndTime: models.MustClockTime("11:30")},
		},
		groups: map[string]*models.StudentGroup{
			"g1": {ID: "g1", Capacity: 25, Active: true},
			"g2": {ID: "g2", Capacity: 30, Active: true},
			"g3": {ID: "g3", Capacity: 20, Active: false},
		},
		classrooms: map[string]*models.Classroom{
			"r1": {ID: "r1", Capacity: 25},
			"r2": {ID: "r2", Capacity: 40},
		},
	}
	instructors := &fakeInstructors{items: map[string]*models.Instructor{
		"i1": {ID: "i1", FirstName: "Ada", LastName: "Byron", Active: true},
		"i2": {ID: "i2", FirstName: "Alan", LastName: "Turing", Active: true, AssignedMinutes: 19 * 60, HourLimit: intPtr(20)},
		"i3": {ID: "i3", FirstName: "Grace", LastName: "Hopper", Active: true},
		"i4": {ID: "i4", FirstName: "Inactive", LastName: "Person", Active: false},
	}}
	return catalog, instructors, &fakeBookings{}
}

func proposal(id, slot, group, instructor, classroom string) models.Assignment {
	return models.Assignment{
		ID:           id,
		Subject:      "Mathematics",
		QuarterID:    "q1",
		DaySlotID:    slot,
		GroupID:      group,
		InstructorID: instructor,
		ClassroomID:  classroom,
	}
}
