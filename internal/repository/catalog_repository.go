package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-scheduling-core/internal/models"
)

const daySlotSelect = `
SELECT ds.id, ds.day_id, ds.time_block_id, ds.created_at, d.name AS day_name, tb.start_time, tb.end_time
FROM day_slots ds
JOIN days d ON d.id = ds.day_id
JOIN time_blocks tb ON tb.id = ds.time_block_id`

// CatalogRepository persists the reference entities assignments point at.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository constructs a CatalogRepository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

func newID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func stamp(t *time.Time) {
	if t.IsZero() {
		*t = time.Now().UTC()
	}
}

// CreateCampus inserts a campus.
func (r *CatalogRepository) CreateCampus(ctx context.Context, campus *models.Campus) error {
	newID(&campus.ID)
	stamp(&campus.CreatedAt)
	const query = `INSERT INTO campuses (id, address, phone_number, email, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query, campus.ID, campus.Address, campus.PhoneNumber, campus.Email, campus.CreatedAt); err != nil {
		return fmt.Errorf("insert campus: %w", err)
	}
	return nil
}

// CreateDepartment inserts a department.
func (r *CatalogRepository) CreateDepartment(ctx context.Context, department *models.Department) error {
	newID(&department.ID)
	stamp(&department.CreatedAt)
	const query = `INSERT INTO departments (id, name, phone_number, email, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query, department.ID, department.Name, department.PhoneNumber, department.Email, department.CreatedAt); err != nil {
		return fmt.Errorf("insert department: %w", err)
	}
	return nil
}

// CreateContract inserts a contract.
func (r *CatalogRepository) CreateContract(ctx context.Context, contract *models.Contract) error {
	newID(&contract.ID)
	stamp(&contract.CreatedAt)
	const query = `INSERT INTO contracts (id, contract_type, hour_limit, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, query, contract.ID, contract.ContractType, contract.HourLimit, contract.CreatedAt); err != nil {
		return fmt.Errorf("insert contract: %w", err)
	}
	return nil
}

// FindContractByID loads a contract.
func (r *CatalogRepository) FindContractByID(ctx context.Context, id string) (*models.Contract, error) {
	const query = `SELECT id, contract_type, hour_limit, created_at FROM contracts WHERE id = $1`
	var contract models.Contract
	if err := r.db.GetContext(ctx, &contract, query, id); err != nil {
		return nil, err
	}
	return &contract, nil
}

// CreateTimeBlock inserts a time block.
func (r *CatalogRepository) CreateTimeBlock(ctx context.Context, block *models.TimeBlock) error {
	newID(&block.ID)
	stamp(&block.CreatedAt)
	const query = `INSERT INTO time_blocks (id, start_time, end_time, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, query, block.ID, block.StartTime, block.EndTime, block.CreatedAt); err != nil {
		return fmt.Errorf("insert time block: %w", err)
	}
	return nil
}

// FindOverlappingTimeBlocks returns blocks sharing any minute with [start, end).
func (r *CatalogRepository) FindOverlappingTimeBlocks(ctx context.Context, start, end models.ClockTime) ([]models.TimeBlock, error) {
	const query = `SELECT id, start_time, end_time, created_at FROM time_blocks WHERE start_time < $1 AND end_time > $2 ORDER BY start_time`
	var blocks []models.TimeBlock
	if err := r.db.SelectContext(ctx, &blocks, query, end, start); err != nil {
		return nil, fmt.Errorf("find overlapping time blocks: %w", err)
	}
	return blocks, nil
}

// CreateDay inserts a day of the week.
func (r *CatalogRepository) CreateDay(ctx context.Context, day *models.Day) error {
	newID(&day.ID)
	const query = `INSERT INTO days (id, name, position) VALUES ($1, $2, $3)`
	if _, err := r.db.ExecContext(ctx, query, day.ID, day.Name, day.Position); err != nil {
		return fmt.Errorf("insert day: %w", err)
	}
	return nil
}

// CreateDaySlot inserts a day/time-block pairing.
func (r *CatalogRepository) CreateDaySlot(ctx context.Context, slot *models.DaySlot) error {
	newID(&slot.ID)
	stamp(&slot.CreatedAt)
	const query = `INSERT INTO day_slots (id, day_id, time_block_id, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, query, slot.ID, slot.DayID, slot.TimeBlockID, slot.CreatedAt); err != nil {
		return fmt.Errorf("insert day slot: %w", err)
	}
	return nil
}

// FindDaySlotByID loads a day slot joined with its day name and time block.
func (r *CatalogRepository) FindDaySlotByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.DaySlot, error) {
	var slot models.DaySlot
	if err := sqlx.GetContext(ctx, r.exec(exec), &slot, daySlotSelect+" WHERE ds.id = $1", id); err != nil {
		return nil, err
	}
	return &slot, nil
}

// ListDaySlots returns every day slot in weekly order.
func (r *CatalogRepository) ListDaySlots(ctx context.Context) ([]models.DaySlot, error) {
	var slots []models.DaySlot
	if err := r.db.SelectContext(ctx, &slots, daySlotSelect+" ORDER BY d.position, tb.start_time"); err != nil {
		return nil, fmt.Errorf("list day slots: %w", err)
	}
	return slots, nil
}

// CreateQuarter inserts a quarter.
func (r *CatalogRepository) CreateQuarter(ctx context.Context, quarter *models.Quarter) error {
	newID(&quarter.ID)
	stamp(&quarter.CreatedAt)
	const query = `INSERT INTO quarters (id, name, start_date, end_date, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query, quarter.ID, quarter.Name, quarter.StartDate, quarter.EndDate, quarter.CreatedAt); err != nil {
		return fmt.Errorf("insert quarter: %w", err)
	}
	return nil
}

// FindQuarterByID loads a quarter.
func (r *CatalogRepository) FindQuarterByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Quarter, error) {
	const query = `SELECT id, name, start_date, end_date, created_at FROM quarters WHERE id = $1`
	var quarter models.Quarter
	if err := sqlx.GetContext(ctx, r.exec(exec), &quarter, query, id); err != nil {
		return nil, err
	}
	return &quarter, nil
}

// ListQuarters returns all quarters ordered by start date.
func (r *CatalogRepository) ListQuarters(ctx context.Context) ([]models.Quarter, error) {
	const query = `SELECT id, name, start_date, end_date, created_at FROM quarters ORDER BY start_date`
	var quarters []models.Quarter
	if err := r.db.SelectContext(ctx, &quarters, query); err != nil {
		return nil, fmt.Errorf("list quarters: %w", err)
	}
	return quarters, nil
}

// FindOverlappingQuarters returns quarters whose date range intersects (start, end).
func (r *CatalogRepository) FindOverlappingQuarters(ctx context.Context, start, end time.Time) ([]models.Quarter, error) {
	const query = `SELECT id, name, start_date, end_date, created_at FROM quarters WHERE start_date < $1 AND end_date > $2 ORDER BY start_date`
	var quarters []models.Quarter
	if err := r.db.SelectContext(ctx, &quarters, query, end, start); err != nil {
		return nil, fmt.Errorf("find overlapping quarters: %w", err)
	}
	return quarters, nil
}

// CreateClassroom inserts a classroom.
func (r *CatalogRepository) CreateClassroom(ctx context.Context, classroom *models.Classroom) error {
	newID(&classroom.ID)
	if classroom.ClassroomType == "" {
		classroom.ClassroomType = "Standard"
	}
	stamp(&classroom.CreatedAt)
	classroom.UpdatedAt = classroom.CreatedAt
	const query = `INSERT INTO classrooms (id, room_number, capacity, campus_id, classroom_type, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(ctx, query, classroom.ID, classroom.RoomNumber, classroom.Capacity, classroom.CampusID, classroom.ClassroomType, classroom.CreatedAt, classroom.UpdatedAt); err != nil {
		return fmt.Errorf("insert classroom: %w", err)
	}
	return nil
}

// FindClassroomByID loads a classroom.
func (r *CatalogRepository) FindClassroomByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Classroom, error) {
	const query = `SELECT id, room_number, capacity, campus_id, classroom_type, created_at, updated_at FROM classrooms WHERE id = $1`
	var classroom models.Classroom
	if err := sqlx.GetContext(ctx, r.exec(exec), &classroom, query, id); err != nil {
		return nil, err
	}
	return &classroom, nil
}

// UpdateClassroomCapacity changes a classroom's capacity. Existing assignments are left untouched.
func (r *CatalogRepository) UpdateClassroomCapacity(ctx context.Context, id string, capacity int) error {
	const query = `UPDATE classrooms SET capacity = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, capacity, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update classroom capacity: %w", err)
	}
	return expectAffected(result, "classroom")
}

// CreateProgram inserts a program.
func (r *CatalogRepository) CreateProgram(ctx context.Context, program *models.Program) error {
	newID(&program.ID)
	stamp(&program.CreatedAt)
	const query = `INSERT INTO programs (id, name, department_id, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, query, program.ID, program.Name, program.DepartmentID, program.CreatedAt); err != nil {
		return fmt.Errorf("insert program: %w", err)
	}
	return nil
}

// CreateStudentGroup inserts a student group.
func (r *CatalogRepository) CreateStudentGroup(ctx context.Context, group *models.StudentGroup) error {
	newID(&group.ID)
	stamp(&group.CreatedAt)
	group.UpdatedAt = group.CreatedAt
	const query = `INSERT INTO student_groups (id, group_number, program_id, capacity, active, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(ctx, query, group.ID, group.GroupNumber, group.ProgramID, group.Capacity, group.Active, group.CreatedAt, group.UpdatedAt); err != nil {
		return fmt.Errorf("insert student group: %w", err)
	}
	return nil
}

// FindStudentGroupByID loads a student group.
func (r *CatalogRepository) FindStudentGroupByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.StudentGroup, error) {
	const query = `SELECT id, group_number, program_id, capacity, active, created_at, updated_at FROM student_groups WHERE id = $1`
	var group models.StudentGroup
	if err := sqlx.GetContext(ctx, r.exec(exec), &group, query, id); err != nil {
		return nil, err
	}
	return &group, nil
}

// SetStudentGroupActive toggles whether a group may receive new assignments.
func (r *CatalogRepository) SetStudentGroupActive(ctx context.Context, id string, active bool) error {
	const query = `UPDATE student_groups SET active = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, active, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update student group status: %w", err)
	}
	return expectAffected(result, "student group")
}

// LockStudentGroups takes row locks on the given groups in id order.
func (r *CatalogRepository) LockStudentGroups(ctx context.Context, exec sqlx.ExtContext, ids []string) error {
	return lockRows(ctx, r.db, r.exec(exec), "student_groups", ids)
}

// LockClassrooms takes row locks on the given classrooms in id order.
func (r *CatalogRepository) LockClassrooms(ctx context.Context, exec sqlx.ExtContext, ids []string) error {
	return lockRows(ctx, r.db, r.exec(exec), "classrooms", ids)
}

// lockRows issues SELECT ... FOR UPDATE over sorted, de-duplicated ids so that
// concurrent lockers always acquire rows in the same order.
func lockRows(ctx context.Context, db *sqlx.DB, exec sqlx.ExtContext, table string, ids []string) error {
	if !supportsRowLocks(db) {
		return nil
	}
	ordered := uniqueSorted(ids)
	if len(ordered) == 0 {
		return nil
	}
	args := make([]interface{}, len(ordered))
	for i, id := range ordered {
		args[i] = id
	}
	query := fmt.Sprintf("SELECT id FROM %s WHERE id IN (%s) ORDER BY id FOR UPDATE", table, placeholders(1, len(ordered)))
	var locked []string
	if err := sqlx.SelectContext(ctx, exec, &locked, query, args...); err != nil {
		return fmt.Errorf("lock %s: %w", table, err)
	}
	return nil
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
