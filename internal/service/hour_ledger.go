package service

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-scheduling-core/internal/models"
)

type ledgerStore interface {
	GetAssignedMinutes(ctx context.Context, exec sqlx.ExtContext, id string) (int, error)
	SetAssignedMinutes(ctx context.Context, exec sqlx.ExtContext, id string, minutes int) error
	ComputedMinutes(ctx context.Context, exec sqlx.ExtContext, id string) (int, error)
	Drift(ctx context.Context) ([]models.LedgerDrift, error)
}

type clampRecorder interface {
	RecordLedgerClamp()
}

// HourLedger is the only writer of instructors.assigned_minutes.
type HourLedger struct {
	store   ledgerStore
	metrics clampRecorder
	logger  *zap.Logger
}

// NewHourLedger constructs an HourLedger. metrics may be nil.
func NewHourLedger(store ledgerStore, metrics clampRecorder, logger *zap.Logger) *HourLedger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HourLedger{store: store, metrics: metrics, logger: logger}
}

// Apply adds deltaMinutes to the instructor's total inside exec. A result below zero is
// clamped to zero, logged with the drift amount and counted.
func (l *HourLedger) Apply(ctx context.Context, exec sqlx.ExtContext, instructorID string, deltaMinutes int) error {
	if deltaMinutes == 0 {
		return nil
	}
	current, err := l.store.GetAssignedMinutes(ctx, exec, instructorID)
	if err != nil {
		return fmt.Errorf("read assigned minutes for %s: %w", instructorID, err)
	}

	next := current + deltaMinutes
	if next < 0 {
		l.logger.Warn("hour ledger clamped at zero",
			zap.String("instructor_id", instructorID),
			zap.Int("current_minutes", current),
			zap.Int("delta_minutes", deltaMinutes),
			zap.Int("drift_minutes", -next),
		)
		if l.metrics != nil {
			l.metrics.RecordLedgerClamp()
		}
		next = 0
	}

	if err := l.store.SetAssignedMinutes(ctx, exec, instructorID, next); err != nil {
		return fmt.Errorf("write assigned minutes for %s: %w", instructorID, err)
	}
	return nil
}

// ApplyMove records that an assignment of oldMinutes held by oldInstructor became one of
// newMinutes held by newInstructor. Either side may be empty for create and delete.
func (l *HourLedger) ApplyMove(ctx context.Context, exec sqlx.ExtContext, oldInstructor string, oldMinutes int, newInstructor string, newMinutes int) error {
	if oldInstructor != "" && oldInstructor == newInstructor {
		return l.Apply(ctx, exec, newInstructor, newMinutes-oldMinutes)
	}
	if oldInstructor != "" {
		if err := l.Apply(ctx, exec, oldInstructor, -oldMinutes); err != nil {
			return err
		}
	}
	if newInstructor != "" {
		if err := l.Apply(ctx, exec, newInstructor, newMinutes); err != nil {
			return err
		}
	}
	return nil
}

// Drift lists instructors whose stored total differs from their live assignments.
func (l *HourLedger) Drift(ctx context.Context) ([]models.LedgerDrift, error) {
	drift, err := l.store.Drift(ctx)
	if err != nil {
		return nil, fmt.Errorf("compute ledger drift: %w", err)
	}
	return drift, nil
}

// Reconcile resets the instructor's stored total to the recomputed sum and returns both values.
func (l *HourLedger) Reconcile(ctx context.Context, exec sqlx.ExtContext, instructorID string) (before, after int, err error) {
	before, err = l.store.GetAssignedMinutes(ctx, exec, instructorID)
	if err != nil {
		return 0, 0, fmt.Errorf("read assigned minutes for %s: %w", instructorID, err)
	}
	after, err = l.store.ComputedMinutes(ctx, exec, instructorID)
	if err != nil {
		return 0, 0, fmt.Errorf("recompute minutes for %s: %w", instructorID, err)
	}
	if before == after {
		return before, after, nil
	}
	if err := l.store.SetAssignedMinutes(ctx, exec, instructorID, after); err != nil {
		return 0, 0, fmt.Errorf("write assigned minutes for %s: %w", instructorID, err)
	}
	l.logger.Info("hour ledger reconciled",
		zap.String("instructor_id", instructorID),
		zap.Int("stored_minutes", before),
		zap.Int("computed_minutes", after),
	)
	return before, after, nil
}
