package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-scheduling-core/internal/models"
	"github.com/noah-isme/sma-scheduling-core/pkg/jobs"
	appErrors "github.com/noah-isme/sma-scheduling-core/pkg/errors"
)

// ConsistencyJobType identifies audit jobs on the queue.
const ConsistencyJobType = "consistency_audit"

type consistencyQuarters interface {
	FindQuarterByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Quarter, error)
	ListQuarters(ctx context.Context) ([]models.Quarter, error)
}

type placementLister interface {
	ListPlacements(ctx context.Context, filter models.PlacementFilter) ([]models.AssignmentPlacement, error)
}

type driftLedger interface {
	Drift(ctx context.Context) ([]models.LedgerDrift, error)
	Reconcile(ctx context.Context, exec sqlx.ExtContext, instructorID string) (before, after int, err error)
}

type consistencyMetrics interface {
	SetConsistencyFindings(quarter string, counts map[string]int)
	SetLedgerDrift(count int)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// ConsistencyServiceConfig controls the periodic audit.
type ConsistencyServiceConfig struct {
	Interval time.Duration
}

// ConsistencyService re-checks stored assignments against the scheduling invariants.
type ConsistencyService struct {
	tx          txProvider
	quarters    consistencyQuarters
	placements  placementLister
	ledger      driftLedger
	instructors instructorLocker
	workloads   workloadInvalidator
	metrics     consistencyMetrics
	queue       jobEnqueuer
	logger      *zap.Logger
	cfg         ConsistencyServiceConfig
}

// NewConsistencyService constructs a ConsistencyService. queue and metrics may be nil.
func NewConsistencyService(
	tx txProvider,
	quarters consistencyQuarters,
	placements placementLister,
	ledger driftLedger,
	instructors instructorLocker,
	workloads workloadInvalidator,
	metrics consistencyMetrics,
	logger *zap.Logger,
	cfg ConsistencyServiceConfig,
) *ConsistencyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsistencyService{
		tx:          tx,
		quarters:    quarters,
		placements:  placements,
		ledger:      ledger,
		instructors: instructors,
		workloads:   workloads,
		metrics:     metrics,
		logger:      logger,
		cfg:         cfg,
	}
}

// SetQueue attaches the queue scheduled audits are pushed onto.
func (s *ConsistencyService) SetQueue(queue jobEnqueuer) {
	s.queue = queue
}

// ListConflicts scans a quarter's stored assignments for double bookings, groups that do
// not fit their classroom and instructors above their contract limit. Duplicate bookings
// point at the earliest assignment holding the slot.
func (s *ConsistencyService) ListConflicts(ctx context.Context, quarterID string) ([]*models.ConflictError, error) {
	if _, err := s.loadQuarter(ctx, quarterID); err != nil {
		return nil, err
	}
	placements, err := s.placements.ListPlacements(ctx, models.PlacementFilter{QuarterID: quarterID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load quarter assignments")
	}
	return detectConflicts(quarterID, placements), nil
}

func (s *ConsistencyService) loadQuarter(ctx context.Context, quarterID string) (*models.Quarter, error) {
	quarter, err := s.quarters.FindQuarterByID(ctx, nil, quarterID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("quarter %s not found", quarterID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load quarter")
	}
	return quarter, nil
}

type slotKey struct {
	daySlotID  string
	resourceID string
}

func detectConflicts(quarterID string, placements []models.AssignmentPlacement) []*models.ConflictError {
	conflicts := []*models.ConflictError{}
	instructors := map[slotKey]string{}
	groups := map[slotKey]string{}
	classrooms := map[slotKey]string{}
	overLimit := map[string]bool{}

	for _, p := range placements {
		key := slotKey{daySlotID: p.DaySlotID, resourceID: p.InstructorID}
		if first, ok := instructors[key]; ok {
			conflicts = append(conflicts, models.NewInstructorConflict(p.InstructorID, p.DaySlotID, quarterID, first))
		} else {
			instructors[key] = p.ID
		}

		key = slotKey{daySlotID: p.DaySlotID, resourceID: p.GroupID}
		if first, ok := groups[key]; ok {
			conflicts = append(conflicts, models.NewGroupConflict(p.GroupID, p.DaySlotID, quarterID, first))
		} else {
			groups[key] = p.ID
		}

		key = slotKey{daySlotID: p.DaySlotID, resourceID: p.ClassroomID}
		if first, ok := classrooms[key]; ok {
			conflicts = append(conflicts, models.NewClassroomConflict(p.ClassroomID, p.DaySlotID, quarterID, first))
		} else {
			classrooms[key] = p.ID
		}

		if p.GroupCapacity > p.ClassroomCapacity {
			capacity := models.NewCapacityExceeded(p.ClassroomID, p.GroupID, p.ClassroomCapacity, p.GroupCapacity)
			capacity.ExistingAssignmentID = p.ID
			capacity.QuarterID = quarterID
			capacity.DaySlotID = p.DaySlotID
			conflicts = append(conflicts, capacity)
		}

		if p.HourLimit != nil && !overLimit[p.InstructorID] && p.AssignedMinutes > *p.HourLimit*60 {
			overLimit[p.InstructorID] = true
			conflicts = append(conflicts, models.NewHourLimitExceeded(p.InstructorID, models.MinutesToHours(p.AssignedMinutes), *p.HourLimit, decimal.Zero))
		}
	}
	return conflicts
}

// RunAudit checks one quarter plus the hour ledger, publishes the findings as metrics and,
// when configured, resets drifting ledger totals.
func (s *ConsistencyService) RunAudit(ctx context.Context, quarterID string, reconcile bool) (*models.ConsistencyReport, error) {
	quarter, err := s.loadQuarter(ctx, quarterID)
	if err != nil {
		return nil, err
	}
	conflicts, err := s.ListConflicts(ctx, quarterID)
	if err != nil {
		return nil, err
	}
	drift, err := s.ledger.Drift(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check hour ledger")
	}
	if drift == nil {
		drift = []models.LedgerDrift{}
	}

	report := &models.ConsistencyReport{
		QuarterID:   quarter.ID,
		QuarterName: quarter.Name,
		Conflicts:   conflicts,
		Drift:       drift,
		CheckedAt:   time.Now().UTC(),
	}

	if reconcile && len(drift) > 0 {
		reconciled, err := s.reconcile(ctx, drift)
		if err != nil {
			return nil, err
		}
		report.Reconciled = reconciled
	}

	if s.metrics != nil {
		s.metrics.SetConsistencyFindings(quarter.Name, report.CountByKind())
		s.metrics.SetLedgerDrift(len(drift) - report.Reconciled)
	}

	fields := []zap.Field{
		zap.String("quarter", quarter.Name),
		zap.Int("conflicts", len(conflicts)),
		zap.Int("drifting_instructors", len(drift)),
		zap.Int("reconciled", report.Reconciled),
	}
	if len(conflicts) > 0 || len(drift) > report.Reconciled {
		s.logger.Warn("consistency audit found problems", fields...)
	} else {
		s.logger.Info("consistency audit clean", fields...)
	}
	return report, nil
}

func (s *ConsistencyService) reconcile(ctx context.Context, drift []models.LedgerDrift) (int, error) {
	ids := make([]string, 0, len(drift))
	for _, d := range drift {
		ids = append(ids, d.InstructorID)
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin reconcile")
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.instructors.LockInstructors(ctx, tx, ids); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock instructors")
	}
	reconciled := 0
	for _, id := range ids {
		before, after, err := s.ledger.Reconcile(ctx, tx, id)
		if err != nil {
			return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reconcile hour ledger")
		}
		if before != after {
			reconciled++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit reconcile")
	}

	if s.workloads != nil {
		s.workloads.Invalidate(ctx, ids...)
	}
	return reconciled, nil
}

// ScheduleAll enqueues one audit job per quarter.
func (s *ConsistencyService) ScheduleAll(ctx context.Context) (int, error) {
	if s.queue == nil {
		return 0, errors.New("consistency queue not configured")
	}
	quarters, err := s.quarters.ListQuarters(ctx)
	if err != nil {
		return 0, fmt.Errorf("list quarters: %w", err)
	}
	enqueued := 0
	for _, quarter := range quarters {
		if err := s.queue.Enqueue(jobs.Job{ID: quarter.ID, Type: ConsistencyJobType}); err != nil {
			s.logger.Sugar().Warnw("failed to enqueue consistency audit", "quarter_id", quarter.ID, "error", err)
			continue
		}
		enqueued++
	}
	return enqueued, nil
}

// StartSchedule boots a goroutine that enqueues audits every configured interval.
func (s *ConsistencyService) StartSchedule(ctx context.Context) {
	if s.cfg.Interval <= 0 || s.queue == nil {
		return
	}
	ticker := time.NewTicker(s.cfg.Interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.ScheduleAll(ctx); err != nil {
					s.logger.Sugar().Warnw("failed to schedule consistency audits", "error", err)
				}
			}
		}
	}()
}

// ConsistencyWorker executes queued audit jobs.
type ConsistencyWorker struct {
	service   *ConsistencyService
	reconcile bool
}

// NewConsistencyWorker constructs the queue handler.
func NewConsistencyWorker(service *ConsistencyService, reconcile bool) *ConsistencyWorker {
	return &ConsistencyWorker{service: service, reconcile: reconcile}
}

// Handle runs the audit for the quarter named by job.ID. A quarter deleted since the job
// was queued is skipped.
func (w *ConsistencyWorker) Handle(ctx context.Context, job jobs.Job) error {
	if job.Type != ConsistencyJobType {
		return fmt.Errorf("unexpected job type %q", job.Type)
	}
	_, err := w.service.RunAudit(ctx, job.ID, w.reconcile)
	if errors.Is(err, appErrors.ErrNotFound) {
		return nil
	}
	return err
}
