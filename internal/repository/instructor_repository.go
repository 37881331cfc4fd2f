package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-scheduling-core/internal/models"
)

const instructorSelect = `
SELECT i.id, i.first_name, i.last_name, i.email, i.contract_id, i.department_id, i.active, i.assigned_minutes, i.created_at, i.updated_at, c.hour_limit
FROM instructors i
LEFT JOIN contracts c ON c.id = i.contract_id`

const instructorSlotsQuery = `
SELECT a.instructor_id, tb.start_time, tb.end_time
FROM assignments a
JOIN day_slots ds ON ds.id = a.day_slot_id
JOIN time_blocks tb ON tb.id = ds.time_block_id`

// InstructorRepository manages instructors and their cached assigned minutes.
type InstructorRepository struct {
	db *sqlx.DB
}

// NewInstructorRepository constructs an InstructorRepository.
func NewInstructorRepository(db *sqlx.DB) *InstructorRepository {
	return &InstructorRepository{db: db}
}

func (r *InstructorRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts an instructor with zero assigned minutes.
func (r *InstructorRepository) Create(ctx context.Context, instructor *models.Instructor) error {
	newID(&instructor.ID)
	stamp(&instructor.CreatedAt)
	instructor.UpdatedAt = instructor.CreatedAt
	instructor.AssignedMinutes = 0

	const query = `INSERT INTO instructors (id, first_name, last_name, email, contract_id, department_id, active, assigned_minutes, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $9)`
	if _, err := r.db.ExecContext(ctx, query,
		instructor.ID,
		instructor.FirstName,
		instructor.LastName,
		instructor.Email,
		instructor.ContractID,
		instructor.DepartmentID,
		instructor.Active,
		instructor.CreatedAt,
		instructor.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert instructor: %w", err)
	}
	return nil
}

// FindByID loads an instructor together with the contract hour limit.
func (r *InstructorRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Instructor, error) {
	var instructor models.Instructor
	if err := sqlx.GetContext(ctx, r.exec(exec), &instructor, instructorSelect+" WHERE i.id = $1", id); err != nil {
		return nil, err
	}
	return &instructor, nil
}

// List returns all instructors ordered by name.
func (r *InstructorRepository) List(ctx context.Context) ([]models.Instructor, error) {
	var instructors []models.Instructor
	if err := r.db.SelectContext(ctx, &instructors, instructorSelect+" ORDER BY i.last_name, i.first_name, i.id"); err != nil {
		return nil, fmt.Errorf("list instructors: %w", err)
	}
	return instructors, nil
}

// SetActive toggles whether an instructor may receive new assignments.
func (r *InstructorRepository) SetActive(ctx context.Context, id string, active bool) error {
	const query = `UPDATE instructors SET active = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, active, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update instructor status: %w", err)
	}
	return expectAffected(result, "instructor")
}

// LockInstructors takes row locks on the given instructors in id order.
func (r *InstructorRepository) LockInstructors(ctx context.Context, exec sqlx.ExtContext, ids []string) error {
	return lockRows(ctx, r.db, r.exec(exec), "instructors", ids)
}

// GetAssignedMinutes reads the cached minute total.
func (r *InstructorRepository) GetAssignedMinutes(ctx context.Context, exec sqlx.ExtContext, id string) (int, error) {
	const query = `SELECT assigned_minutes FROM instructors WHERE id = $1`
	var minutes int
	if err := sqlx.GetContext(ctx, r.exec(exec), &minutes, query, id); err != nil {
		return 0, err
	}
	return minutes, nil
}

// SetAssignedMinutes overwrites the cached minute total.
func (r *InstructorRepository) SetAssignedMinutes(ctx context.Context, exec sqlx.ExtContext, id string, minutes int) error {
	const query = `UPDATE instructors SET assigned_minutes = $1, updated_at = $2 WHERE id = $3`
	result, err := r.exec(exec).ExecContext(ctx, query, minutes, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update instructor minutes: %w", err)
	}
	return expectAffected(result, "instructor")
}

type instructorSlot struct {
	InstructorID string           `db:"instructor_id"`
	StartTime    models.ClockTime `db:"start_time"`
	EndTime      models.ClockTime `db:"end_time"`
}

// ComputedMinutes sums the durations of the instructor's live assignments.
func (r *InstructorRepository) ComputedMinutes(ctx context.Context, exec sqlx.ExtContext, id string) (int, error) {
	var slots []instructorSlot
	if err := sqlx.SelectContext(ctx, r.exec(exec), &slots, instructorSlotsQuery+" WHERE a.instructor_id = $1", id); err != nil {
		return 0, fmt.Errorf("list instructor slots: %w", err)
	}
	total := 0
	for _, slot := range slots {
		total += slot.EndTime.Minutes() - slot.StartTime.Minutes()
	}
	return total, nil
}

// Drift lists instructors whose cached minutes differ from the sum over their assignments.
func (r *InstructorRepository) Drift(ctx context.Context) ([]models.LedgerDrift, error) {
	type stored struct {
		ID              string `db:"id"`
		AssignedMinutes int    `db:"assigned_minutes"`
	}
	var instructors []stored
	if err := r.db.SelectContext(ctx, &instructors, `SELECT id, assigned_minutes FROM instructors`); err != nil {
		return nil, fmt.Errorf("list instructor minutes: %w", err)
	}
	var slots []instructorSlot
	if err := r.db.SelectContext(ctx, &slots, instructorSlotsQuery); err != nil {
		return nil, fmt.Errorf("list instructor slots: %w", err)
	}

	computed := make(map[string]int, len(instructors))
	for _, slot := range slots {
		computed[slot.InstructorID] += slot.EndTime.Minutes() - slot.StartTime.Minutes()
	}

	var drift []models.LedgerDrift
	for _, instructor := range instructors {
		if sum := computed[instructor.ID]; sum != instructor.AssignedMinutes {
			drift = append(drift, models.LedgerDrift{
				InstructorID:    instructor.ID,
				StoredMinutes:   instructor.AssignedMinutes,
				ComputedMinutes: sum,
			})
		}
	}
	sort.Slice(drift, func(i, j int) bool { return drift[i].InstructorID < drift[j].InstructorID })
	return drift, nil
}
