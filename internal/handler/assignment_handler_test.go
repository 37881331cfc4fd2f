package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-scheduling-core/internal/dto"
	"github.com/noah-isme/sma-scheduling-core/internal/models"
	appErrors "github.com/noah-isme/sma-scheduling-core/pkg/errors"
	"github.com/noah-isme/sma-scheduling-core/pkg/export"
)

type assignmentServiceMock struct {
	created     *dto.CreateAssignmentRequest
	createErr   error
	deleted     string
	exported    export.Format
	placements  []models.AssignmentPlacement
	lastQuarter string
}

func (m *assignmentServiceMock) Create(ctx context.Context, req dto.CreateAssignmentRequest) (*models.Assignment, error) {
	m.created = &req
	if m.createErr != nil {
		return nil, m.createErr
	}
	a := req.Assignment()
	a.ID = "a-1"
	return &a, nil
}

func (m *assignmentServiceMock) Update(ctx context.Context, id string, req dto.UpdateAssignmentRequest) (*models.Assignment, error) {
	return &models.Assignment{ID: id}, nil
}

func (m *assignmentServiceMock) Delete(ctx context.Context, id string) error {
	m.deleted = id
	return nil
}

func (m *assignmentServiceMock) Get(ctx context.Context, id string) (*models.Assignment, error) {
	return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment "+id+" not found")
}

func (m *assignmentServiceMock) List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, *models.Pagination, error) {
	return nil, nil, nil
}

func (m *assignmentServiceMock) Preview(ctx context.Context, req dto.CreateAssignmentRequest) (*models.ValidationReport, error) {
	return &models.ValidationReport{Valid: true}, nil
}

func (m *assignmentServiceMock) PreviewUpdate(ctx context.Context, id string, req dto.UpdateAssignmentRequest) (*models.ValidationReport, error) {
	return &models.ValidationReport{Valid: true}, nil
}

func (m *assignmentServiceMock) ListByInstructor(ctx context.Context, instructorID, quarterID string) ([]models.AssignmentPlacement, error) {
	m.lastQuarter = quarterID
	return m.placements, nil
}

func (m *assignmentServiceMock) ListByClassroom(ctx context.Context, classroomID, quarterID string) ([]models.AssignmentPlacement, error) {
	return m.placements, nil
}

func (m *assignmentServiceMock) ListByGroup(ctx context.Context, groupID, quarterID string) ([]models.AssignmentPlacement, error) {
	return m.placements, nil
}

func (m *assignmentServiceMock) ExportTimetable(ctx context.Context, resource, id, quarterID string, format export.Format) ([]byte, error) {
	m.exported = format
	return []byte("Day,Start\n"), nil
}

func newTestContext(method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	req, _ := http.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	return c, w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body struct {
		Error map[string]interface{} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	return body.Error
}

func TestAssignmentHandlerCreateRejectsMalformedJSON(t *testing.T) {
	svc := &assignmentServiceMock{}
	h := NewAssignmentHandler(svc)
	c, w := newTestContext(http.MethodPost, "/assignments", []byte(`{"subject":`))

	h.Create(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, w)["code"])
	assert.Nil(t, svc.created)
}

func TestAssignmentHandlerCreateSuccess(t *testing.T) {
	svc := &assignmentServiceMock{}
	h := NewAssignmentHandler(svc)
	payload := []byte(`{"subject":"Mathematics","quarterId":"q1","daySlotId":"s1","groupId":"g1","instructorId":"i1","classroomId":"r1"}`)
	c, w := newTestContext(http.MethodPost, "/assignments", payload)

	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, svc.created)
	assert.Equal(t, "i1", svc.created.InstructorID)
	assert.Contains(t, w.Body.String(), `"id":"a-1"`)
}

func TestAssignmentHandlerCreateConflictCarriesDetails(t *testing.T) {
	conflict := &models.ConflictError{Kind: models.ConflictInstructor, InstructorID: "i1", ExistingAssignmentID: "a-9"}
	svc := &assignmentServiceMock{createErr: appErrors.WithDetails(appErrors.ErrInstructorConflict, conflict.Error(), conflict)}
	h := NewAssignmentHandler(svc)
	payload := []byte(`{"subject":"Mathematics","quarterId":"q1","daySlotId":"s1","groupId":"g1","instructorId":"i1","classroomId":"r1"}`)
	c, w := newTestContext(http.MethodPost, "/assignments", payload)

	h.Create(c)

	require.Equal(t, http.StatusConflict, w.Code)
	errBody := decodeError(t, w)
	assert.Equal(t, "INSTRUCTOR_CONFLICT", errBody["code"])
	details, ok := errBody["details"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "a-9", details["existing_assignment_id"])
}

func TestAssignmentHandlerGetNotFound(t *testing.T) {
	h := NewAssignmentHandler(&assignmentServiceMock{})
	c, w := newTestContext(http.MethodGet, "/assignments/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	h.Get(c)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, w)["code"])
}

func TestAssignmentHandlerDelete(t *testing.T) {
	svc := &assignmentServiceMock{}
	h := NewAssignmentHandler(svc)
	c, w := newTestContext(http.MethodDelete, "/assignments/a-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "a-1"}}

	h.Delete(c)

	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Empty(t, w.Body.String())
	assert.Equal(t, "a-1", svc.deleted)
}

func TestAssignmentHandlerTimetableRequiresQuarter(t *testing.T) {
	h := NewAssignmentHandler(&assignmentServiceMock{})
	c, w := newTestContext(http.MethodGet, "/instructors/i1/timetable", nil)
	c.Params = gin.Params{{Key: "id", Value: "i1"}}

	h.InstructorTimetable(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAssignmentHandlerTimetableJSON(t *testing.T) {
	svc := &assignmentServiceMock{placements: []models.AssignmentPlacement{}}
	h := NewAssignmentHandler(svc)
	c, w := newTestContext(http.MethodGet, "/instructors/i1/timetable?quarter_id=q1", nil)
	c.Params = gin.Params{{Key: "id", Value: "i1"}}

	h.InstructorTimetable(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "q1", svc.lastQuarter)
	assert.Contains(t, w.Body.String(), `"resource":"instructor"`)
}

func TestAssignmentHandlerTimetableDownload(t *testing.T) {
	svc := &assignmentServiceMock{}
	h := NewAssignmentHandler(svc)
	c, w := newTestContext(http.MethodGet, "/groups/g1/timetable?quarterId=q1&format=CSV", nil)
	c.Params = gin.Params{{Key: "id", Value: "g1"}}

	h.GroupTimetable(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.FormatCSV, svc.exported)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="timetable-group-g1-q1.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "Day,Start\n", w.Body.String())
}

func TestAssignmentHandlerTimetableRejectsUnknownFormat(t *testing.T) {
	svc := &assignmentServiceMock{}
	h := NewAssignmentHandler(svc)
	c, w := newTestContext(http.MethodGet, "/classrooms/r1/timetable?quarterId=q1&format=xlsx", nil)
	c.Params = gin.Params{{Key: "id", Value: "r1"}}

	h.ClassroomTimetable(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.exported)
}
