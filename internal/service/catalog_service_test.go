package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-scheduling-core/internal/dto"
	"github.com/noah-isme/sma-scheduling-core/internal/models"
	appErrors "github.com/noah-isme/sma-scheduling-core/pkg/errors"
)

// catalogStoreStub overrides the calls under test; anything else panics on the nil interface.
type catalogStoreStub struct {
	catalogStore

	blocks      []models.TimeBlock
	quarters    []models.Quarter
	createErr   error
	capacityErr error
}

func (s *catalogStoreStub) FindOverlappingTimeBlocks(ctx context.Context, start, end models.ClockTime) ([]models.TimeBlock, error) {
	var out []models.TimeBlock
	for _, b := range s.blocks {
		if b.StartTime.Minutes() < end.Minutes() && start.Minutes() < b.EndTime.Minutes() {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *catalogStoreStub) CreateTimeBlock(ctx context.Context, block *models.TimeBlock) error {
	block.ID = "tb-1"
	s.blocks = append(s.blocks, *block)
	return nil
}

func (s *catalogStoreStub) FindOverlappingQuarters(ctx context.Context, start, end time.Time) ([]models.Quarter, error) {
	var out []models.Quarter
	for _, q := range s.quarters {
		if !q.StartDate.After(end) && !start.After(q.EndDate) {
			out = append(out, q)
		}
	}
	return out, nil
}

func (s *catalogStoreStub) CreateQuarter(ctx context.Context, quarter *models.Quarter) error {
	quarter.ID = "q-new"
	s.quarters = append(s.quarters, *quarter)
	return nil
}

func (s *catalogStoreStub) CreateCampus(ctx context.Context, campus *models.Campus) error {
	return s.createErr
}

func (s *catalogStoreStub) UpdateClassroomCapacity(ctx context.Context, id string, capacity int) error {
	return s.capacityErr
}

type instructorStoreStub struct {
	instructorStore
	created []models.Instructor
}

func (s *instructorStoreStub) Create(ctx context.Context, instructor *models.Instructor) error {
	instructor.ID = "i-new"
	s.created = append(s.created, *instructor)
	return nil
}

func TestCatalogServiceCreateTimeBlock(t *testing.T) {
	store := &catalogStoreStub{}
	svc := NewCatalogService(store, &instructorStoreStub{}, nil, nil)
	ctx := context.Background()

	block, err := svc.CreateTimeBlock(ctx, dto.CreateTimeBlockRequest{StartTime: "08:00", EndTime: "10:00"})
	require.NoError(t, err)
	assert.Equal(t, 120, block.DurationMinutes())

	_, err = svc.CreateTimeBlock(ctx, dto.CreateTimeBlockRequest{StartTime: "09:00", EndTime: "11:00"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
	assert.Contains(t, err.Error(), "08:00-10:00")

	_, err = svc.CreateTimeBlock(ctx, dto.CreateTimeBlockRequest{StartTime: "10:00", EndTime: "10:00"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.CreateTimeBlock(ctx, dto.CreateTimeBlockRequest{StartTime: "ten", EndTime: "11:00"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.CreateTimeBlock(ctx, dto.CreateTimeBlockRequest{StartTime: "10:00", EndTime: "11:30"})
	require.NoError(t, err)
}

func TestCatalogServiceCreateQuarter(t *testing.T) {
	store := &catalogStoreStub{}
	svc := NewCatalogService(store, &instructorStoreStub{}, nil, nil)
	ctx := context.Background()

	quarter, err := svc.CreateQuarter(ctx, dto.CreateQuarterRequest{StartDate: "2025-04-01", EndDate: "2025-06-30"})
	require.NoError(t, err)
	assert.Equal(t, "2025-Q2", quarter.Name)

	_, err = svc.CreateQuarter(ctx, dto.CreateQuarterRequest{StartDate: "2025-06-01", EndDate: "2025-08-31"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
	assert.Contains(t, err.Error(), "2025-Q2")

	_, err = svc.CreateQuarter(ctx, dto.CreateQuarterRequest{StartDate: "2025-10-01", EndDate: "2025-09-01"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.CreateQuarter(ctx, dto.CreateQuarterRequest{StartDate: "01/10/2025", EndDate: "2025-12-31"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestCatalogServiceDuplicateIsConflict(t *testing.T) {
	store := &catalogStoreStub{createErr: &pq.Error{Code: "23505"}}
	svc := NewCatalogService(store, &instructorStoreStub{}, nil, nil)

	_, err := svc.CreateCampus(context.Background(), dto.CreateCampusRequest{Address: "Jl. Merdeka 1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	store.createErr = errors.New("connection reset")
	_, err = svc.CreateCampus(context.Background(), dto.CreateCampusRequest{Address: "Jl. Merdeka 1"})
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
}

func TestCatalogServiceUpdateClassroomCapacity(t *testing.T) {
	store := &catalogStoreStub{capacityErr: sql.ErrNoRows}
	svc := NewCatalogService(store, &instructorStoreStub{}, nil, nil)

	err := svc.UpdateClassroomCapacity(context.Background(), "r9", dto.UpdateClassroomCapacityRequest{Capacity: 30})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	err = svc.UpdateClassroomCapacity(context.Background(), "r9", dto.UpdateClassroomCapacityRequest{Capacity: 0})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	store.capacityErr = nil
	require.NoError(t, svc.UpdateClassroomCapacity(context.Background(), "r1", dto.UpdateClassroomCapacityRequest{Capacity: 30}))
}

func TestCatalogServiceCreateInstructor(t *testing.T) {
	instructors := &instructorStoreStub{}
	svc := NewCatalogService(&catalogStoreStub{}, instructors, nil, nil)

	created, err := svc.CreateInstructor(context.Background(), dto.CreateInstructorRequest{
		FirstName: "Grace",
		LastName:  "Hopper",
		Email:     "Grace.Hopper@School.Example",
	})
	require.NoError(t, err)
	assert.Equal(t, "grace.hopper@school.example", created.Email)
	assert.True(t, created.Active)
	assert.Zero(t, created.AssignedMinutes)

	_, err = svc.CreateInstructor(context.Background(), dto.CreateInstructorRequest{FirstName: "No", LastName: "Mail", Email: "nope"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
