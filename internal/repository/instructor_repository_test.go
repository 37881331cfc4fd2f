package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-scheduling-core/internal/models"
)

func TestInstructorRepositoryFindByIDJoinsContract(t *testing.T) {
	db, mock := newRepoMock(t, "sqlmock")
	repo := NewInstructorRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "first_name", "last_name", "email", "contract_id", "department_id", "active", "assigned_minutes", "created_at", "updated_at", "hour_limit"}).
		AddRow("i-1", "Ada", "Lovelace", "ada@school.test", "ct-1", nil, true, 150, now, now, 20)
	mock.ExpectQuery(regexp.QuoteMeta("LEFT JOIN contracts c ON c.id = i.contract_id WHERE i.id = $1")).
		WithArgs("i-1").
		WillReturnRows(rows)

	instructor, err := repo.FindByID(context.Background(), nil, "i-1")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", instructor.FullName())
	assert.Equal(t, "2.5", instructor.HourCount().String())
	require.NotNil(t, instructor.HourLimit)
	assert.Equal(t, 20, *instructor.HourLimit)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInstructorRepositoryCreateStartsAtZero(t *testing.T) {
	db, mock := newRepoMock(t, "sqlmock")
	repo := NewInstructorRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO instructors")).
		WithArgs(sqlmock.AnyArg(), "Ada", "Lovelace", "ada@school.test", nil, nil, true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	instructor := &models.Instructor{FirstName: "Ada", LastName: "Lovelace", Email: "ada@school.test", Active: true, AssignedMinutes: 500}
	require.NoError(t, repo.Create(context.Background(), instructor))
	assert.Zero(t, instructor.AssignedMinutes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInstructorRepositorySetAssignedMinutes(t *testing.T) {
	db, mock := newRepoMock(t, "sqlmock")
	repo := NewInstructorRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE instructors SET assigned_minutes = $1, updated_at = $2 WHERE id = $3")).
		WithArgs(90, sqlmock.AnyArg(), "i-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetAssignedMinutes(context.Background(), nil, "i-1", 90))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInstructorRepositoryDrift(t *testing.T) {
	db, mock := newRepoMock(t, "sqlmock")
	repo := NewInstructorRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, assigned_minutes FROM instructors")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "assigned_minutes"}).
			AddRow("i-1", 120).
			AddRow("i-2", 30).
			AddRow("i-3", 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT a.instructor_id, tb.start_time, tb.end_time")).
		WillReturnRows(sqlmock.NewRows([]string{"instructor_id", "start_time", "end_time"}).
			AddRow("i-1", "08:00:00", "09:00:00").
			AddRow("i-1", "10:00:00", "11:00:00").
			AddRow("i-2", "08:00:00", "09:30:00"))

	drift, err := repo.Drift(context.Background())
	require.NoError(t, err)
	require.Len(t, drift, 1)
	assert.Equal(t, models.LedgerDrift{InstructorID: "i-2", StoredMinutes: 30, ComputedMinutes: 90}, drift[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInstructorRepositoryComputedMinutes(t *testing.T) {
	db, mock := newRepoMock(t, "sqlmock")
	repo := NewInstructorRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE a.instructor_id = $1")).
		WithArgs("i-1").
		WillReturnRows(sqlmock.NewRows([]string{"instructor_id", "start_time", "end_time"}).
			AddRow("i-1", "08:00:00", "09:45:00"))

	minutes, err := repo.ComputedMinutes(context.Background(), nil, "i-1")
	require.NoError(t, err)
	assert.Equal(t, 105, minutes)
	assert.NoError(t, mock.ExpectationsWereMet())
}
