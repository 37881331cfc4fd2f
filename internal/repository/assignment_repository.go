package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-scheduling-core/internal/models"
)

const assignmentColumns = "id, subject, quarter_id, day_slot_id, group_id, instructor_id, classroom_id, created_at, updated_at"

const placementSelect = `
SELECT a.id, a.subject, a.quarter_id, a.day_slot_id, a.group_id, a.instructor_id, a.classroom_id, a.created_at, a.updated_at,
       d.name AS day_name, d.position AS day_position, tb.start_time, tb.end_time,
       g.capacity AS group_capacity, c.capacity AS classroom_capacity,
       i.assigned_minutes, ct.hour_limit
FROM assignments a
JOIN day_slots ds ON ds.id = a.day_slot_id
JOIN days d ON d.id = ds.day_id
JOIN time_blocks tb ON tb.id = ds.time_block_id
JOIN student_groups g ON g.id = a.group_id
JOIN classrooms c ON c.id = a.classroom_id
JOIN instructors i ON i.id = a.instructor_id
LEFT JOIN contracts ct ON ct.id = i.contract_id`

// AssignmentRepository persists scheduled teaching sessions.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs an AssignmentRepository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

func (r *AssignmentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a new assignment, assigning an ID and timestamps when absent.
func (r *AssignmentRepository) Create(ctx context.Context, exec sqlx.ExtContext, assignment *models.Assignment) error {
	if assignment == nil {
		return fmt.Errorf("assignment payload is nil")
	}
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = now
	}
	assignment.UpdatedAt = now

	const query = `INSERT INTO assignments (id, subject, quarter_id, day_slot_id, group_id, instructor_id, classroom_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := r.exec(exec).ExecContext(ctx, query,
		assignment.ID,
		assignment.Subject,
		assignment.QuarterID,
		assignment.DaySlotID,
		assignment.GroupID,
		assignment.InstructorID,
		assignment.ClassroomID,
		assignment.CreatedAt,
		assignment.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}
	return nil
}

// Update overwrites every mutable column of an existing assignment.
func (r *AssignmentRepository) Update(ctx context.Context, exec sqlx.ExtContext, assignment *models.Assignment) error {
	if assignment == nil {
		return fmt.Errorf("assignment payload is nil")
	}
	assignment.UpdatedAt = time.Now().UTC()

	const query = `UPDATE assignments SET subject = $1, quarter_id = $2, day_slot_id = $3, group_id = $4, instructor_id = $5, classroom_id = $6, updated_at = $7 WHERE id = $8`
	result, err := r.exec(exec).ExecContext(ctx, query,
		assignment.Subject,
		assignment.QuarterID,
		assignment.DaySlotID,
		assignment.GroupID,
		assignment.InstructorID,
		assignment.ClassroomID,
		assignment.UpdatedAt,
		assignment.ID,
	)
	if err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("assignment rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes an assignment.
func (r *AssignmentRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	const query = `DELETE FROM assignments WHERE id = $1`
	result, err := r.exec(exec).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("assignment rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// FindByID loads an assignment by its identifier.
func (r *AssignmentRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Assignment, error) {
	query := "SELECT " + assignmentColumns + " FROM assignments WHERE id = $1"
	var assignment models.Assignment
	if err := sqlx.GetContext(ctx, r.exec(exec), &assignment, query, id); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// LockByID loads an assignment and, where supported, holds its row lock until the transaction ends.
func (r *AssignmentRepository) LockByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Assignment, error) {
	query := "SELECT " + assignmentColumns + " FROM assignments WHERE id = $1"
	if supportsRowLocks(r.db) {
		query += " FOR UPDATE"
	}
	var assignment models.Assignment
	if err := sqlx.GetContext(ctx, r.exec(exec), &assignment, query, id); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// FindInstructorBooking returns the ID of an assignment occupying the instructor in the slot, or "".
func (r *AssignmentRepository) FindInstructorBooking(ctx context.Context, exec sqlx.ExtContext, instructorID, daySlotID, quarterID, excludeID string) (string, error) {
	return r.findBooking(ctx, exec, "instructor_id", instructorID, daySlotID, quarterID, excludeID)
}

// FindGroupBooking returns the ID of an assignment occupying the group in the slot, or "".
func (r *AssignmentRepository) FindGroupBooking(ctx context.Context, exec sqlx.ExtContext, groupID, daySlotID, quarterID, excludeID string) (string, error) {
	return r.findBooking(ctx, exec, "group_id", groupID, daySlotID, quarterID, excludeID)
}

// FindClassroomBooking returns the ID of an assignment occupying the classroom in the slot, or "".
func (r *AssignmentRepository) FindClassroomBooking(ctx context.Context, exec sqlx.ExtContext, classroomID, daySlotID, quarterID, excludeID string) (string, error) {
	return r.findBooking(ctx, exec, "classroom_id", classroomID, daySlotID, quarterID, excludeID)
}

func (r *AssignmentRepository) findBooking(ctx context.Context, exec sqlx.ExtContext, column, resourceID, daySlotID, quarterID, excludeID string) (string, error) {
	query := fmt.Sprintf("SELECT id FROM assignments WHERE day_slot_id = $1 AND quarter_id = $2 AND %s = $3", column)
	args := []interface{}{daySlotID, quarterID, resourceID}
	if excludeID != "" {
		query += " AND id <> $4"
		args = append(args, excludeID)
	}
	var id string
	if err := sqlx.GetContext(ctx, r.exec(exec), &id, query+" LIMIT 1", args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("find %s booking: %w", strings.TrimSuffix(column, "_id"), err)
	}
	return id, nil
}

// List returns assignments matching filters along with the total count.
func (r *AssignmentRepository) List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, int, error) {
	base := "FROM assignments WHERE 1=1"
	var conditions []string
	var args []interface{}

	addEq := func(column, value string) {
		if value == "" {
			return
		}
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)+1))
		args = append(args, value)
	}
	addEq("quarter_id", filter.QuarterID)
	addEq("day_slot_id", filter.DaySlotID)
	addEq("group_id", filter.GroupID)
	addEq("instructor_id", filter.InstructorID)
	addEq("classroom_id", filter.ClassroomID)
	if filter.Subject != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(subject) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Subject)+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"subject":    "subject",
		"created_at": "created_at",
		"updated_at": "updated_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s, id ASC LIMIT %d OFFSET %d", assignmentColumns, base, column, order, size, offset)
	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list assignments: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count assignments: %w", err)
	}
	return assignments, total, nil
}

// ListPlacements returns the assignments of a quarter joined with slot, capacity and contract data,
// ordered by day and start time.
func (r *AssignmentRepository) ListPlacements(ctx context.Context, filter models.PlacementFilter) ([]models.AssignmentPlacement, error) {
	if filter.QuarterID == "" {
		return nil, fmt.Errorf("quarter_id is required")
	}
	query := placementSelect + " WHERE a.quarter_id = $1"
	args := []interface{}{filter.QuarterID}
	if filter.InstructorID != "" {
		args = append(args, filter.InstructorID)
		query += fmt.Sprintf(" AND a.instructor_id = $%d", len(args))
	}
	if filter.GroupID != "" {
		args = append(args, filter.GroupID)
		query += fmt.Sprintf(" AND a.group_id = $%d", len(args))
	}
	if filter.ClassroomID != "" {
		args = append(args, filter.ClassroomID)
		query += fmt.Sprintf(" AND a.classroom_id = $%d", len(args))
	}
	query += " ORDER BY d.position, tb.start_time, a.id"

	var placements []models.AssignmentPlacement
	if err := r.db.SelectContext(ctx, &placements, query, args...); err != nil {
		return nil, fmt.Errorf("list assignment placements: %w", err)
	}
	return placements, nil
}
