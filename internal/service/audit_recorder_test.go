package service

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-scheduling-core/internal/models"
	"github.com/noah-isme/sma-scheduling-core/pkg/actor"
)

type auditStoreStub struct {
	records []models.AuditRecord
}

func (s *auditStoreStub) Insert(ctx context.Context, exec sqlx.ExtContext, record *models.AuditRecord) error {
	s.records = append(s.records, *record)
	return nil
}

func (s *auditStoreStub) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditRecord, error) {
	var out []models.AuditRecord
	for _, r := range s.records {
		if filter.AssignmentID == "" || r.AssignmentID == filter.AssignmentID {
			out = append(out, r)
		}
	}
	return out, nil
}

func TestAuditRecorderUpdateSnapshot(t *testing.T) {
	store := &auditStoreStub{}
	recorder := NewAuditRecorder(store, nil)
	ctx := actor.WithActor(context.Background(), "registrar")

	before := proposal("a-1", "mon-08", "g1", "i1", "r1")
	after := before
	after.InstructorID = "i3"

	require.NoError(t, recorder.Record(ctx, nil, models.AuditActionUpdate, &before, &after))
	require.Len(t, store.records, 1)

	rec := store.records[0]
	assert.Equal(t, "a-1", rec.AssignmentID)
	assert.Equal(t, "registrar", rec.Actor)
	assert.Equal(t, "i1", *rec.OldInstructorID)
	assert.Equal(t, "i3", *rec.NewInstructorID)
	assert.Equal(t, "r1", *rec.NewClassroomID)
}

func TestAuditRecorderDeleteLeavesNewSideEmpty(t *testing.T) {
	store := &auditStoreStub{}
	recorder := NewAuditRecorder(store, nil)
	before := proposal("a-1", "mon-08", "g1", "i1", "r1")

	require.NoError(t, recorder.Record(context.Background(), nil, models.AuditActionDelete, &before, nil))
	rec := store.records[0]
	assert.Equal(t, models.AuditActionDelete, rec.Action)
	assert.Equal(t, "i1", *rec.OldInstructorID)
	assert.Nil(t, rec.NewInstructorID)
	assert.Equal(t, actor.Default, rec.Actor)
}

func TestAuditRecorderRejectsIncompleteSnapshots(t *testing.T) {
	recorder := NewAuditRecorder(&auditStoreStub{}, nil)
	a := proposal("a-1", "mon-08", "g1", "i1", "r1")

	assert.Error(t, recorder.Record(context.Background(), nil, models.AuditActionCreate, &a, nil))
	assert.Error(t, recorder.Record(context.Background(), nil, models.AuditActionDelete, nil, &a))
	assert.Error(t, recorder.Record(context.Background(), nil, models.AuditActionUpdate, &a, nil))
	assert.Error(t, recorder.Record(context.Background(), nil, models.AuditAction("PURGE"), &a, &a))
}

func TestAuditRecorderListNeverNil(t *testing.T) {
	recorder := NewAuditRecorder(&auditStoreStub{}, nil)
	records, err := recorder.List(context.Background(), models.AuditFilter{AssignmentID: "missing"})
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}
