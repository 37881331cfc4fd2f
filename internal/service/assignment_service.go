package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-scheduling-core/internal/dto"
	"github.com/noah-isme/sma-scheduling-core/internal/models"
	"github.com/noah-isme/sma-scheduling-core/internal/repository"
	"github.com/noah-isme/sma-scheduling-core/pkg/actor"
	appErrors "github.com/noah-isme/sma-scheduling-core/pkg/errors"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type assignmentStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, assignment *models.Assignment) error
	Update(ctx context.Context, exec sqlx.ExtContext, assignment *models.Assignment) error
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Assignment, error)
	LockByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Assignment, error)
	List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, int, error)
	ListPlacements(ctx context.Context, filter models.PlacementFilter) ([]models.AssignmentPlacement, error)
}

type placementValidator interface {
	Validate(ctx context.Context, exec sqlx.ExtContext, proposed models.Assignment, previous *models.Assignment) error
	Inspect(ctx context.Context, exec sqlx.ExtContext, proposed models.Assignment, previous *models.Assignment) (*models.ValidationReport, error)
}

type minuteLedger interface {
	ApplyMove(ctx context.Context, exec sqlx.ExtContext, oldInstructor string, oldMinutes int, newInstructor string, newMinutes int) error
}

type auditWriter interface {
	Record(ctx context.Context, exec sqlx.ExtContext, action models.AuditAction, before, after *models.Assignment) error
}

type assignmentCatalog interface {
	FindDaySlotByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.DaySlot, error)
	LockStudentGroups(ctx context.Context, exec sqlx.ExtContext, ids []string) error
	LockClassrooms(ctx context.Context, exec sqlx.ExtContext, ids []string) error
}

type instructorLocker interface {
	LockInstructors(ctx context.Context, exec sqlx.ExtContext, ids []string) error
}

type workloadInvalidator interface {
	Invalidate(ctx context.Context, instructorIDs ...string)
}

// AssignmentServiceConfig tunes transaction retries.
type AssignmentServiceConfig struct {
	MaxRetries     int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
}

// AssignmentService creates, moves and removes assignments. Every mutation validates,
// writes, updates the hour ledger and appends an audit record inside one transaction.
type AssignmentService struct {
	tx          txProvider
	store       assignmentStore
	validator   placementValidator
	ledger      minuteLedger
	audit       auditWriter
	catalog     assignmentCatalog
	instructors instructorLocker
	workloads   workloadInvalidator
	metrics     *MetricsService
	validate    *validator.Validate
	logger      *zap.Logger
	cfg         AssignmentServiceConfig
}

// NewAssignmentService wires the assignment engine.
func NewAssignmentService(
	tx txProvider,
	store assignmentStore,
	placements placementValidator,
	ledger minuteLedger,
	audit auditWriter,
	catalog assignmentCatalog,
	instructors instructorLocker,
	workloads workloadInvalidator,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg AssignmentServiceConfig,
) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 20 * time.Millisecond
	}
	if cfg.RetryMaxDelay < cfg.RetryBaseDelay {
		cfg.RetryMaxDelay = cfg.RetryBaseDelay
	}
	return &AssignmentService{
		tx:          tx,
		store:       store,
		validator:   placements,
		ledger:      ledger,
		audit:       audit,
		catalog:     catalog,
		instructors: instructors,
		workloads:   workloads,
		metrics:     metrics,
		validate:    validate,
		logger:      logger,
		cfg:         cfg,
	}
}

// Create validates and stores a new assignment.
func (s *AssignmentService) Create(ctx context.Context, req dto.CreateAssignmentRequest) (*models.Assignment, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	proposed := req.Assignment()

	var created models.Assignment
	err := s.mutate(ctx, "create", func(tx *sqlx.Tx) error {
		if err := s.lockResources(ctx, tx, proposed); err != nil {
			return err
		}
		if err := s.validator.Validate(ctx, tx, proposed, nil); err != nil {
			return err
		}
		slot, err := s.catalog.FindDaySlotByID(ctx, tx, proposed.DaySlotID)
		if err != nil {
			return fmt.Errorf("load day slot %s: %w", proposed.DaySlotID, err)
		}

		created = proposed
		if err := s.store.Create(ctx, tx, &created); err != nil {
			return err
		}
		if err := s.ledger.ApplyMove(ctx, tx, "", 0, created.InstructorID, slot.DurationMinutes()); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, models.AuditActionCreate, nil, &created)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateWorkloads(ctx, created.InstructorID)
	s.logger.Info("assignment created",
		zap.String("assignment_id", created.ID),
		zap.String("instructor_id", created.InstructorID),
		zap.String("day_slot_id", created.DaySlotID),
		zap.String("actor", actor.FromContext(ctx)),
	)
	return &created, nil
}

// Update merges a partial update into an existing assignment. Placement changes are
// re-validated with the assignment itself excluded; subject-only edits are not.
func (s *AssignmentService) Update(ctx context.Context, id string, req dto.UpdateAssignmentRequest) (*models.Assignment, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	patch := req.Patch()

	var before, after models.Assignment
	changed := false
	err := s.mutate(ctx, "update", func(tx *sqlx.Tx) error {
		current, err := s.store.LockByID(ctx, tx, id)
		if err != nil {
			return notFoundOr(err, id)
		}
		before = *current
		after = patch.Apply(before)
		if after == before {
			changed = false
			return nil
		}
		changed = true

		moved := !after.SamePlacement(before)
		if moved {
			if err := s.lockResources(ctx, tx, before, after); err != nil {
				return err
			}
			if err := s.validator.Validate(ctx, tx, after, &before); err != nil {
				return err
			}
		}

		if err := s.store.Update(ctx, tx, &after); err != nil {
			return notFoundOr(err, id)
		}

		if moved {
			oldSlot, err := s.catalog.FindDaySlotByID(ctx, tx, before.DaySlotID)
			if err != nil {
				return fmt.Errorf("load day slot %s: %w", before.DaySlotID, err)
			}
			newSlot := oldSlot
			if after.DaySlotID != before.DaySlotID {
				if newSlot, err = s.catalog.FindDaySlotByID(ctx, tx, after.DaySlotID); err != nil {
					return fmt.Errorf("load day slot %s: %w", after.DaySlotID, err)
				}
			}
			if err := s.ledger.ApplyMove(ctx, tx, before.InstructorID, oldSlot.DurationMinutes(), after.InstructorID, newSlot.DurationMinutes()); err != nil {
				return err
			}
		}
		return s.audit.Record(ctx, tx, models.AuditActionUpdate, &before, &after)
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return &before, nil
	}

	s.invalidateWorkloads(ctx, before.InstructorID, after.InstructorID)
	s.logger.Info("assignment updated",
		zap.String("assignment_id", after.ID),
		zap.Bool("placement_changed", !after.SamePlacement(before)),
		zap.String("actor", actor.FromContext(ctx)),
	)
	return &after, nil
}

// Delete removes an assignment and releases its hours.
func (s *AssignmentService) Delete(ctx context.Context, id string) error {
	var removed models.Assignment
	err := s.mutate(ctx, "delete", func(tx *sqlx.Tx) error {
		current, err := s.store.LockByID(ctx, tx, id)
		if err != nil {
			return notFoundOr(err, id)
		}
		removed = *current
		if err := s.lockResources(ctx, tx, removed); err != nil {
			return err
		}
		slot, err := s.catalog.FindDaySlotByID(ctx, tx, removed.DaySlotID)
		if err != nil {
			return fmt.Errorf("load day slot %s: %w", removed.DaySlotID, err)
		}
		if err := s.store.Delete(ctx, tx, id); err != nil {
			return notFoundOr(err, id)
		}
		if err := s.ledger.ApplyMove(ctx, tx, removed.InstructorID, slot.DurationMinutes(), "", 0); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, models.AuditActionDelete, &removed, nil)
	})
	if err != nil {
		return err
	}

	s.invalidateWorkloads(ctx, removed.InstructorID)
	s.logger.Info("assignment deleted",
		zap.String("assignment_id", removed.ID),
		zap.String("actor", actor.FromContext(ctx)),
	)
	return nil
}

// Get returns one assignment.
func (s *AssignmentService) Get(ctx context.Context, id string) (*models.Assignment, error) {
	assignment, err := s.store.FindByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, assignmentNotFound(id)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	return assignment, nil
}

// List returns a page of assignments.
func (s *AssignmentService) List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, *models.Pagination, error) {
	assignments, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	if assignments == nil {
		assignments = []models.Assignment{}
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return assignments, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Preview reports every conflict a new assignment would cause without storing anything.
func (s *AssignmentService) Preview(ctx context.Context, req dto.CreateAssignmentRequest) (*models.ValidationReport, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	return s.validator.Inspect(ctx, nil, req.Assignment(), nil)
}

// PreviewUpdate reports every conflict a partial update would cause.
func (s *AssignmentService) PreviewUpdate(ctx context.Context, id string, req dto.UpdateAssignmentRequest) (*models.ValidationReport, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	merged := req.Patch().Apply(*current)
	if merged.SamePlacement(*current) {
		return &models.ValidationReport{Valid: true, Conflicts: []*models.ConflictError{}}, nil
	}
	return s.validator.Inspect(ctx, nil, merged, current)
}

// ListByInstructor returns the instructor's timetable for a quarter.
func (s *AssignmentService) ListByInstructor(ctx context.Context, instructorID, quarterID string) ([]models.AssignmentPlacement, error) {
	return s.timetable(ctx, models.PlacementFilter{QuarterID: quarterID, InstructorID: instructorID})
}

// ListByClassroom returns the classroom's timetable for a quarter.
func (s *AssignmentService) ListByClassroom(ctx context.Context, classroomID, quarterID string) ([]models.AssignmentPlacement, error) {
	return s.timetable(ctx, models.PlacementFilter{QuarterID: quarterID, ClassroomID: classroomID})
}

// ListByGroup returns the group's timetable for a quarter.
func (s *AssignmentService) ListByGroup(ctx context.Context, groupID, quarterID string) ([]models.AssignmentPlacement, error) {
	return s.timetable(ctx, models.PlacementFilter{QuarterID: quarterID, GroupID: groupID})
}

func (s *AssignmentService) timetable(ctx context.Context, filter models.PlacementFilter) ([]models.AssignmentPlacement, error) {
	if filter.QuarterID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "quarterId is required")
	}
	placements, err := s.store.ListPlacements(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	if placements == nil {
		placements = []models.AssignmentPlacement{}
	}
	return placements, nil
}

// lockResources row-locks every instructor, group and classroom touched by the given
// assignments. Instructors are locked first, then groups, then classrooms.
func (s *AssignmentService) lockResources(ctx context.Context, tx *sqlx.Tx, assignments ...models.Assignment) error {
	var instructors, groups, classrooms []string
	for _, a := range assignments {
		instructors = append(instructors, a.InstructorID)
		groups = append(groups, a.GroupID)
		classrooms = append(classrooms, a.ClassroomID)
	}
	if err := s.instructors.LockInstructors(ctx, tx, instructors); err != nil {
		return err
	}
	if err := s.catalog.LockStudentGroups(ctx, tx, groups); err != nil {
		return err
	}
	return s.catalog.LockClassrooms(ctx, tx, classrooms)
}

// mutate runs fn in a fresh transaction, retrying transient storage failures with
// exponential backoff. Business errors end the loop immediately.
func (s *AssignmentService) mutate(ctx context.Context, action string, fn func(tx *sqlx.Tx) error) error {
	if s.tx == nil {
		return appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	start := time.Now()
	attempt := 0

	operation := func() error {
		attempt++
		err := s.inTransaction(ctx, fn)
		if err == nil {
			return nil
		}
		if !repository.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		if attempt <= s.cfg.MaxRetries {
			s.metrics.RecordTxRetry(action)
			s.logger.Warn("assignment transaction failed, retrying",
				zap.String("action", action),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		}
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.cfg.RetryBaseDelay
	policy.MaxInterval = s.cfg.RetryMaxDelay
	policy.MaxElapsedTime = 0

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(s.cfg.MaxRetries)), ctx))
	s.metrics.ObserveMutation(action, mutationOutcome(err), time.Since(start))
	if err == nil {
		return nil
	}

	var appErr *appErrors.Error
	switch {
	case repository.IsRetryable(err):
		return appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status,
			fmt.Sprintf("assignment %s did not complete after %d attempts", action, attempt))
	case errors.As(err, &appErr) && appErr.Code != appErrors.ErrInternal.Code:
		return err
	case errors.As(err, &appErr):
		s.logger.Error("assignment mutation failed", zap.String("action", action), zap.Error(err))
		return err
	default:
		s.logger.Error("assignment mutation failed", zap.String("action", action), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to %s assignment", action))
	}
}

func (s *AssignmentService) inTransaction(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin assignment transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit assignment transaction: %w", err)
	}
	return nil
}

func mutationOutcome(err error) string {
	if err == nil {
		return "committed"
	}
	if _, ok := AsConflict(err); ok {
		return "rejected"
	}
	return "failed"
}

func notFoundOr(err error, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return assignmentNotFound(id)
	}
	return err
}

func assignmentNotFound(id string) error {
	return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("assignment %s not found", id))
}

func (s *AssignmentService) invalidateWorkloads(ctx context.Context, instructorIDs ...string) {
	if s.workloads != nil {
		s.workloads.Invalidate(ctx, instructorIDs...)
	}
}
