package repository

import (
	"context"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-scheduling-core/internal/models"
	"github.com/noah-isme/sma-scheduling-core/pkg/database"
)

func TestAuditRepositoryInsert(t *testing.T) {
	db, mock := newRepoMock(t, "sqlmock")
	repo := NewAuditRepository(db)

	subject := "Calculus"
	instructor := "i-1"
	mock.ExpectQuery(`(?s)^INSERT INTO assignment_audit .*` + regexp.QuoteMeta("(SELECT COALESCE(MAX(seq), 0) + 1 FROM assignment_audit WHERE assignment_id = $2))") + `\s+RETURNING seq$`).
		WithArgs(sqlmock.AnyArg(), "a-1", "CREATE", nil, subject, nil, instructor, nil, nil, nil, nil, nil, nil, nil, nil, "registrar", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"seq"}).AddRow(7))

	record := &models.AuditRecord{AssignmentID: "a-1", Action: models.AuditActionCreate, NewSubject: &subject, NewInstructorID: &instructor, Actor: "registrar"}
	require.NoError(t, repo.Insert(context.Background(), nil, record))
	assert.NotEmpty(t, record.ID)
	assert.Equal(t, int64(7), record.Seq)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepositoryListByAssignment(t *testing.T) {
	db, mock := newRepoMock(t, "sqlmock")
	repo := NewAuditRepository(db)

	cols := []string{"id", "assignment_id", "action", "old_subject", "new_subject", "old_instructor_id", "new_instructor_id",
		"old_classroom_id", "new_classroom_id", "old_quarter_id", "new_quarter_id", "old_day_slot_id", "new_day_slot_id",
		"old_group_id", "new_group_id", "actor", "created_at", "seq"}
	rows := sqlmock.NewRows(cols).
		AddRow("au-1", "a-1", "CREATE", nil, "Calculus", nil, "i-1", nil, "c-1", nil, "q-1", nil, "ds-1", nil, "g-1", "system", time.Now(), 1).
		AddRow("au-2", "a-1", "DELETE", "Calculus", nil, "i-1", nil, "c-1", nil, "q-1", nil, "ds-1", nil, "g-1", nil, "system", time.Now(), 2)

	mock.ExpectQuery(regexp.QuoteMeta("FROM assignment_audit WHERE assignment_id = $1 ORDER BY seq ASC LIMIT 100 OFFSET 0")).
		WithArgs("a-1").
		WillReturnRows(rows)

	records, err := repo.List(context.Background(), models.AuditFilter{AssignmentID: "a-1"})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, models.AuditActionCreate, records[0].Action)
	assert.Equal(t, models.AuditActionDelete, records[1].Action)
	require.NotNil(t, records[1].OldSubject)
	assert.Equal(t, "Calculus", *records[1].OldSubject)
	assert.Nil(t, records[1].NewSubject)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepositoryKeepsWriteOrderOnTimestampTies(t *testing.T) {
	db, err := database.NewSQLite(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	ctx := context.Background()
	require.NoError(t, database.Migrate(ctx, db))
	repo := NewAuditRepository(db)

	at := time.Date(2025, 1, 6, 8, 0, 0, 0, time.UTC)
	// ids sort opposite to write order
	for _, rec := range []models.AuditRecord{
		{ID: "z-create", Action: models.AuditActionCreate},
		{ID: "m-update", Action: models.AuditActionUpdate},
		{ID: "a-delete", Action: models.AuditActionDelete},
	} {
		rec.AssignmentID = "a-1"
		rec.Actor = "system"
		rec.CreatedAt = at
		require.NoError(t, repo.Insert(ctx, nil, &rec))
	}

	records, err := repo.List(ctx, models.AuditFilter{AssignmentID: "a-1"})
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []models.AuditAction{models.AuditActionCreate, models.AuditActionUpdate, models.AuditActionDelete},
		[]models.AuditAction{records[0].Action, records[1].Action, records[2].Action})
	assert.Equal(t, []int64{1, 2, 3}, []int64{records[0].Seq, records[1].Seq, records[2].Seq})

	other := models.AuditRecord{ID: "0-other", AssignmentID: "a-2", Action: models.AuditActionCreate, Actor: "system", CreatedAt: at}
	require.NoError(t, repo.Insert(ctx, nil, &other))
	assert.Equal(t, int64(1), other.Seq)

	all, err := repo.List(ctx, models.AuditFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, []string{"0-other", "z-create", "m-update", "a-delete"},
		[]string{all[0].ID, all[1].ID, all[2].ID, all[3].ID})
}
