package service

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-scheduling-core/internal/models"
	"github.com/noah-isme/sma-scheduling-core/pkg/actor"
	appErrors "github.com/noah-isme/sma-scheduling-core/pkg/errors"
)

type auditStore interface {
	Insert(ctx context.Context, exec sqlx.ExtContext, record *models.AuditRecord) error
	List(ctx context.Context, filter models.AuditFilter) ([]models.AuditRecord, error)
}

// AuditRecorder appends one history entry per assignment mutation.
type AuditRecorder struct {
	store  auditStore
	logger *zap.Logger
}

// NewAuditRecorder constructs an AuditRecorder.
func NewAuditRecorder(store auditStore, logger *zap.Logger) *AuditRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditRecorder{store: store, logger: logger}
}

// Record writes the before/after snapshot of a mutation through exec. CREATE needs after,
// DELETE needs before and UPDATE needs both. The actor comes from ctx.
func (r *AuditRecorder) Record(ctx context.Context, exec sqlx.ExtContext, action models.AuditAction, before, after *models.Assignment) error {
	record := &models.AuditRecord{Action: action, Actor: actor.FromContext(ctx)}

	switch action {
	case models.AuditActionCreate:
		if after == nil {
			return fmt.Errorf("audit %s requires the new assignment", action)
		}
	case models.AuditActionDelete:
		if before == nil {
			return fmt.Errorf("audit %s requires the removed assignment", action)
		}
	case models.AuditActionUpdate:
		if before == nil || after == nil {
			return fmt.Errorf("audit %s requires both assignment states", action)
		}
	default:
		return fmt.Errorf("unknown audit action %q", action)
	}

	if before != nil {
		record.AssignmentID = before.ID
		record.OldSubject = strPtr(before.Subject)
		record.OldInstructorID = strPtr(before.InstructorID)
		record.OldClassroomID = strPtr(before.ClassroomID)
		record.OldQuarterID = strPtr(before.QuarterID)
		record.OldDaySlotID = strPtr(before.DaySlotID)
		record.OldGroupID = strPtr(before.GroupID)
	}
	if after != nil {
		record.AssignmentID = after.ID
		record.NewSubject = strPtr(after.Subject)
		record.NewInstructorID = strPtr(after.InstructorID)
		record.NewClassroomID = strPtr(after.ClassroomID)
		record.NewQuarterID = strPtr(after.QuarterID)
		record.NewDaySlotID = strPtr(after.DaySlotID)
		record.NewGroupID = strPtr(after.GroupID)
	}

	if err := r.store.Insert(ctx, exec, record); err != nil {
		return fmt.Errorf("record %s audit for %s: %w", action, record.AssignmentID, err)
	}
	r.logger.Debug("assignment audited",
		zap.String("assignment_id", record.AssignmentID),
		zap.String("action", string(action)),
		zap.String("actor", record.Actor),
	)
	return nil
}

// List returns audit records in chronological order.
func (r *AuditRecorder) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditRecord, error) {
	records, err := r.store.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit records")
	}
	if records == nil {
		records = []models.AuditRecord{}
	}
	return records, nil
}

func strPtr(v string) *string {
	return &v
}
