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
	appErrors "github.com/noah-isme/sma-scheduling-core/pkg/errors"
)

const workloadCachePrefix = "workload:instructor:"

type workloadInstructors interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Instructor, error)
}

// WorkloadService reports instructor hour usage, cached per instructor.
type WorkloadService struct {
	instructors workloadInstructors
	cache       *CacheService
	ttl         time.Duration
	logger      *zap.Logger
}

// NewWorkloadService constructs a WorkloadService. cache may be nil.
func NewWorkloadService(instructors workloadInstructors, cache *CacheService, ttl time.Duration, logger *zap.Logger) *WorkloadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkloadService{instructors: instructors, cache: cache, ttl: ttl, logger: logger}
}

// GetInstructorWorkload returns hour count, limit, availability and utilisation.
func (s *WorkloadService) GetInstructorWorkload(ctx context.Context, instructorID string) (*models.InstructorWorkload, error) {
	key := workloadCacheKey(instructorID)
	var cached models.InstructorWorkload
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	instructor, err := s.instructors.FindByID(ctx, nil, instructorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("instructor %s not found", instructorID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructor")
	}

	workload := BuildWorkload(instructor)
	s.cache.Set(ctx, key, workload, s.ttl)
	return workload, nil
}

// Invalidate drops cached workloads for the given instructors.
func (s *WorkloadService) Invalidate(ctx context.Context, instructorIDs ...string) {
	if s == nil {
		return
	}
	keys := make([]string, 0, len(instructorIDs))
	for _, id := range instructorIDs {
		if id != "" {
			keys = append(keys, workloadCacheKey(id))
		}
	}
	s.cache.Invalidate(ctx, keys...)
}

// InvalidateAll drops every cached workload.
func (s *WorkloadService) InvalidateAll(ctx context.Context) {
	if s == nil {
		return
	}
	s.cache.InvalidatePattern(ctx, workloadCachePrefix+"*")
}

// BuildWorkload derives the workload summary from an instructor joined with its contract.
func BuildWorkload(instructor *models.Instructor) *models.InstructorWorkload {
	hours := instructor.HourCount()
	workload := &models.InstructorWorkload{
		InstructorID: instructor.ID,
		FullName:     instructor.FullName(),
		HourCount:    hours,
		HourLimit:    instructor.HourLimit,
	}
	if instructor.HourLimit == nil {
		return workload
	}

	limit := decimal.NewFromInt(int64(*instructor.HourLimit))
	available := limit.Sub(hours)
	if available.IsNegative() {
		available = decimal.Zero
	}
	workload.AvailableHours = &available
	if limit.IsPositive() {
		percent := hours.Div(limit).Mul(decimal.NewFromInt(100)).Round(2)
		workload.PercentUsed = &percent
	}
	return workload
}

func workloadCacheKey(instructorID string) string {
	return workloadCachePrefix + instructorID
}
