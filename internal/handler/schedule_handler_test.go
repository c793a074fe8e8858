package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/school-timetable-api/internal/models"
	"github.com/noah-isme/school-timetable-api/internal/service"
)

type scheduleRepoMock struct {
	bySlot []models.ClassSchedule
	byID   map[string]*models.ClassSchedule
}

func (m *scheduleRepoMock) List(ctx context.Context, filter models.ClassScheduleFilter) ([]models.ClassSchedule, int, error) {
	return m.bySlot, len(m.bySlot), nil
}

func (m *scheduleRepoMock) FindByID(ctx context.Context, id string) (*models.ClassSchedule, error) {
	if schedule, ok := m.byID[id]; ok {
		return schedule, nil
	}
	return nil, sql.ErrNoRows
}

func (m *scheduleRepoMock) FindBySlot(ctx context.Context, termID, timeSlotID string) ([]models.ClassSchedule, error) {
	return m.bySlot, nil
}

func (m *scheduleRepoMock) Create(ctx context.Context, schedule *models.ClassSchedule) error {
	return nil
}
func (m *scheduleRepoMock) Update(ctx context.Context, schedule *models.ClassSchedule) error {
	return nil
}
func (m *scheduleRepoMock) Delete(ctx context.Context, id string) error { return nil }

type availabilityMock struct{}

func (availabilityMock) FindByTeacherAndSlot(ctx context.Context, teacherID, timeSlotID string) (*models.TeacherAvailability, error) {
	return &models.TeacherAvailability{TeacherID: teacherID, TimeSlotID: timeSlotID, IsAvailable: true}, nil
}

type refsMock struct{}

func (refsMock) TermExists(ctx context.Context, id string) error       { return nil }
func (refsMock) TeacherExists(ctx context.Context, id string) error    { return nil }
func (refsMock) RoomExists(ctx context.Context, id string) error       { return nil }
func (refsMock) ClassGroupExists(ctx context.Context, id string) error { return nil }
func (refsMock) TimeSlotExists(ctx context.Context, id string) error   { return nil }

func newScheduleHandler(repo *scheduleRepoMock) *ScheduleHandler {
	svc := service.NewScheduleService(repo, availabilityMock{}, refsMock{}, nil, nil, nil, zap.NewNop())
	return NewScheduleHandler(svc)
}

func schedulePayload() []byte {
	payload, _ := json.Marshal(map[string]interface{}{
		"term_id":        "term-1",
		"class_group_id": "group-1",
		"subject_id":     "subject-1",
		"teacher_id":     "teacher-1",
		"time_slot_id":   "slot-1",
		"room_id":        "room-1",
		"is_recurring":   true,
	})
	return payload
}

func postJSON(c *gin.Context, target string, body []byte) {
	req, _ := http.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
}

func TestScheduleHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newScheduleHandler(&scheduleRepoMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	postJSON(c, "/schedules", schedulePayload())

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestScheduleHandlerCreateRendersAllConflicts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &scheduleRepoMock{bySlot: []models.ClassSchedule{
		{ID: "sched-1", TermID: "term-1", TeacherID: "teacher-1", RoomID: "room-1", ClassGroupID: "group-9", TimeSlotID: "slot-1"},
	}}
	handler := newScheduleHandler(repo)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	postJSON(c, "/schedules", schedulePayload())

	handler.Create(c)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
		Meta struct {
			Conflicts []models.ConflictDescriptor `json:"conflicts"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "CONFLICT", body.Error.Code)
	require.Len(t, body.Meta.Conflicts, 2)
	assert.Equal(t, models.ConflictTeacherDoubleBooked, body.Meta.Conflicts[0].Kind)
	assert.Equal(t, models.ConflictRoomDoubleBooked, body.Meta.Conflicts[1].Kind)
}

func TestScheduleHandlerCheckConflictsPreview(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &scheduleRepoMock{bySlot: []models.ClassSchedule{
		{ID: "sched-1", TermID: "term-1", TeacherID: "teacher-1", RoomID: "room-9", ClassGroupID: "group-9", TimeSlotID: "slot-1"},
	}}
	handler := newScheduleHandler(repo)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	postJSON(c, "/schedules/check-conflicts", schedulePayload())

	handler.CheckConflicts(c)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data struct {
			Valid     bool                        `json:"valid"`
			Conflicts []models.ConflictDescriptor `json:"conflicts"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Data.Valid)
	require.Len(t, body.Data.Conflicts, 1)
}

func TestScheduleHandlerCheckConflictsClear(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newScheduleHandler(&scheduleRepoMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	postJSON(c, "/schedules/check-conflicts", schedulePayload())

	handler.CheckConflicts(c)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data struct {
			Valid     bool                        `json:"valid"`
			Conflicts []models.ConflictDescriptor `json:"conflicts"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Data.Valid)
	assert.NotNil(t, body.Data.Conflicts)
	assert.Empty(t, body.Data.Conflicts)
}

func TestScheduleHandlerCreateInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newScheduleHandler(&scheduleRepoMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	postJSON(c, "/schedules", []byte(`{"term_id":`))

	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
