package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Campus is a physical location hosting classrooms.
type Campus struct {
	ID          string    `db:"id" json:"id"`
	Address     string    `db:"address" json:"address"`
	PhoneNumber *string   `db:"phone_number" json:"phone_number,omitempty"`
	Email       *string   `db:"email" json:"email,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Department groups programs and instructors.
type Department struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	PhoneNumber *string   `db:"phone_number" json:"phone_number,omitempty"`
	Email       *string   `db:"email" json:"email,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Contract defines an instructor's contractual hour limit. A nil HourLimit means unlimited.
type Contract struct {
	ID           string    `db:"id" json:"id"`
	ContractType string    `db:"contract_type" json:"contract_type"`
	HourLimit    *int      `db:"hour_limit" json:"hour_limit,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// TimeBlock is a start/end window within a day.
type TimeBlock struct {
	ID        string    `db:"id" json:"id"`
	StartTime ClockTime `db:"start_time" json:"start_time"`
	EndTime   ClockTime `db:"end_time" json:"end_time"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// DurationMinutes returns end - start.
func (b TimeBlock) DurationMinutes() int {
	return b.EndTime.Minutes() - b.StartTime.Minutes()
}

// Day is a day of the week.
type Day struct {
	ID       string `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Position int    `db:"position" json:"position"`
}

// DaySlot is a recurring weekly period: one day combined with one time block.
type DaySlot struct {
	ID          string    `db:"id" json:"id"`
	DayID       string    `db:"day_id" json:"day_id"`
	TimeBlockID string    `db:"time_block_id" json:"time_block_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`

	DayName   string    `db:"day_name" json:"day_name"`
	StartTime ClockTime `db:"start_time" json:"start_time"`
	EndTime   ClockTime `db:"end_time" json:"end_time"`
}

// DurationMinutes returns the duration of the underlying time block.
func (s DaySlot) DurationMinutes() int {
	return s.EndTime.Minutes() - s.StartTime.Minutes()
}

// Label renders e.g. "Monday 08:00-10:00".
func (s DaySlot) Label() string {
	return fmt.Sprintf("%s %s-%s", s.DayName, s.StartTime, s.EndTime)
}

// Quarter is the academic period within which slot exclusivity is enforced.
type Quarter struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// QuarterName derives the display name from a start date, e.g. "2025-Q1".
func QuarterName(start time.Time) string {
	return fmt.Sprintf("%d-Q%d", start.Year(), (int(start.Month())-1)/3+1)
}

// Classroom is a bookable room.
type Classroom struct {
	ID            string    `db:"id" json:"id"`
	RoomNumber    string    `db:"room_number" json:"room_number"`
	Capacity      int       `db:"capacity" json:"capacity"`
	CampusID      string    `db:"campus_id" json:"campus_id"`
	ClassroomType string    `db:"classroom_type" json:"classroom_type"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Program is an academic program owned by a department.
type Program struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	DepartmentID *string   `db:"department_id" json:"department_id,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// StudentGroup is a cohort of students attending sessions together.
type StudentGroup struct {
	ID          string    `db:"id" json:"id"`
	GroupNumber int       `db:"group_number" json:"group_number"`
	ProgramID   *string   `db:"program_id" json:"program_id,omitempty"`
	Capacity    int       `db:"capacity" json:"capacity"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Instructor teaches assignments. AssignedMinutes is maintained exclusively by the hour ledger.
type Instructor struct {
	ID              string    `db:"id" json:"id"`
	FirstName       string    `db:"first_name" json:"first_name"`
	LastName        string    `db:"last_name" json:"last_name"`
	Email           string    `db:"email" json:"email"`
	ContractID      *string   `db:"contract_id" json:"contract_id,omitempty"`
	DepartmentID    *string   `db:"department_id" json:"department_id,omitempty"`
	Active          bool      `db:"active" json:"active"`
	AssignedMinutes int       `db:"assigned_minutes" json:"-"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`

	// HourLimit is joined from the contract when loaded with it.
	HourLimit *int `db:"hour_limit" json:"hour_limit,omitempty"`
}

// FullName joins first and last name.
func (i Instructor) FullName() string {
	return i.FirstName + " " + i.LastName
}

// HourCount is the cached total of assigned hours.
func (i Instructor) HourCount() decimal.Decimal {
	return MinutesToHours(i.AssignedMinutes)
}

// MinutesToHours converts minutes to hours rounded to two decimals.
func MinutesToHours(minutes int) decimal.Decimal {
	return decimal.NewFromInt(int64(minutes)).Div(decimal.NewFromInt(60)).Round(2)
}
