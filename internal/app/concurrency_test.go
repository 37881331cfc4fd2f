package app

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-scheduling-core/internal/dto"
	"github.com/noah-isme/sma-scheduling-core/internal/models"
	"github.com/noah-isme/sma-scheduling-core/internal/service"
)

func TestConcurrentCreatesForOneInstructorSlot(t *testing.T) {
	const writers = 6

	a := newTestAppAt(t, filepath.Join(t.TempDir(), "scheduling.db"), 5)
	s := seedSchool(t, a)
	ctx := context.Background()
	instructorID := s.instructor["I1"]

	requests := make([]dto.CreateAssignmentRequest, writers)
	for i := range requests {
		group, err := a.Catalog.CreateStudentGroup(ctx, dto.CreateStudentGroupRequest{GroupNumber: 100 + i, Capacity: 20})
		require.NoError(t, err)
		room, err := a.Catalog.CreateClassroom(ctx, dto.CreateClassroomRequest{RoomNumber: fmt.Sprintf("3%02d", i), Capacity: 40, CampusID: s.campusID})
		require.NoError(t, err)
		requests[i] = assignmentBody(s, group.ID, instructorID, room.ID)
	}

	var (
		wg      sync.WaitGroup
		start   = make(chan struct{})
		created = make([]*models.Assignment, writers)
		errs    = make([]error, writers)
	)
	for i := range requests {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			created[i], errs[i] = a.Assignments.Create(ctx, requests[i])
		}(i)
	}
	close(start)
	wg.Wait()

	var winner *models.Assignment
	for i, err := range errs {
		if err == nil {
			require.Nil(t, winner, "more than one writer stored an assignment")
			winner = created[i]
			continue
		}
		conflict, ok := service.AsConflict(err)
		require.True(t, ok, "writer %d: %v", i, err)
		assert.Equal(t, models.ConflictInstructor, conflict.Kind)
	}
	require.NotNil(t, winner)

	for i, err := range errs {
		if err != nil {
			conflict, _ := service.AsConflict(err)
			assert.Equal(t, winner.ID, conflict.ExistingAssignmentID, "writer %d", i)
		}
	}

	stored, _, err := a.Assignments.List(ctx, models.AssignmentFilter{QuarterID: s.quarterID})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, winner.ID, stored[0].ID)

	workload, err := a.Workloads.GetInstructorWorkload(ctx, instructorID)
	require.NoError(t, err)
	assert.True(t, workload.HourCount.Equal(decimal.NewFromInt(2)), workload.HourCount.String())

	trail, err := a.Audit.List(ctx, models.AuditFilter{})
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, models.AuditActionCreate, trail[0].Action)
}
