package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-scheduling-core/internal/models"
)

const auditColumns = `id, assignment_id, action, old_subject, new_subject, old_instructor_id, new_instructor_id,
old_classroom_id, new_classroom_id, old_quarter_id, new_quarter_id, old_day_slot_id, new_day_slot_id,
old_group_id, new_group_id, actor, created_at`

// nextAuditSeq numbers records per assignment inside the inserting transaction. Mutations of
// one assignment hold its row lock, so the sequence strictly increases in write order.
const nextAuditSeq = "(SELECT COALESCE(MAX(seq), 0) + 1 FROM assignment_audit WHERE assignment_id = $2)"

// AuditRepository appends and reads assignment history.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs an AuditRepository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Insert appends one audit record using exec, which is normally the mutation's transaction,
// and stores the assigned sequence number on record.
func (r *AuditRepository) Insert(ctx context.Context, exec sqlx.ExtContext, record *models.AuditRecord) error {
	if record == nil {
		return fmt.Errorf("audit record is nil")
	}
	newID(&record.ID)
	stamp(&record.CreatedAt)
	if exec == nil {
		exec = r.db
	}

	query := "INSERT INTO assignment_audit (" + auditColumns + `, seq)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, ` + nextAuditSeq + `)
RETURNING seq`
	if err := exec.QueryRowxContext(ctx, query,
		record.ID,
		record.AssignmentID,
		string(record.Action),
		record.OldSubject,
		record.NewSubject,
		record.OldInstructorID,
		record.NewInstructorID,
		record.OldClassroomID,
		record.NewClassroomID,
		record.OldQuarterID,
		record.NewQuarterID,
		record.OldDaySlotID,
		record.NewDaySlotID,
		record.OldGroupID,
		record.NewGroupID,
		record.Actor,
		record.CreatedAt,
	).Scan(&record.Seq); err != nil {
		return fmt.Errorf("insert assignment audit: %w", err)
	}
	return nil
}

// List returns audit records in write order. One assignment's history is ordered by its
// sequence number; the unfiltered log is ordered by time with the sequence breaking ties.
func (r *AuditRepository) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditRecord, error) {
	query := "SELECT " + auditColumns + ", seq FROM assignment_audit"
	var args []interface{}
	if filter.AssignmentID != "" {
		query += " WHERE assignment_id = $1 ORDER BY seq ASC"
		args = append(args, filter.AssignmentID)
	} else {
		query += " ORDER BY created_at ASC, seq ASC, id ASC"
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	var records []models.AuditRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list assignment audit: %w", err)
	}
	return records, nil
}
