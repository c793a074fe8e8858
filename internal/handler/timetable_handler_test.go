package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/school-timetable-api/internal/middleware"
	"github.com/noah-isme/school-timetable-api/internal/models"
	"github.com/noah-isme/school-timetable-api/internal/service"
	appErrors "github.com/noah-isme/school-timetable-api/pkg/errors"
)

type timetableReaderMock struct {
	teacherIDs []string
	groupIDs   []string
	termHits   int
}

func (m *timetableReaderMock) RowsForTerm(ctx context.Context, termID string) ([]models.TimetableRow, error) {
	m.termHits++
	return nil, nil
}

func (m *timetableReaderMock) RowsForTeacher(ctx context.Context, termID, teacherID string) ([]models.TimetableRow, error) {
	m.teacherIDs = append(m.teacherIDs, teacherID)
	return nil, nil
}

func (m *timetableReaderMock) RowsForClassGroup(ctx context.Context, termID, classGroupID string) ([]models.TimetableRow, error) {
	m.groupIDs = append(m.groupIDs, classGroupID)
	return nil, nil
}

type noopCacheMock struct{}

func (noopCacheMock) Get(ctx context.Context, key string, dest interface{}) error {
	return appErrors.ErrCacheMiss
}

func (noopCacheMock) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return nil
}

func (noopCacheMock) DeleteByPattern(ctx context.Context, pattern string) error { return nil }

func newTimetableHandler(reader *timetableReaderMock) *TimetableHandler {
	svc := service.NewTimetableService(reader, noopCacheMock{}, refsMock{}, nil, 0, zap.NewNop())
	return NewTimetableHandler(svc, nil)
}

func mineRequest(t *testing.T, claims *models.JWTClaims) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/timetables/terms/term-1/me", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "termID", Value: "term-1"}}
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return w, c
}

func TestTimetableHandlerMineTeacherScope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reader := &timetableReaderMock{}
	handler := newTimetableHandler(reader)

	w, c := mineRequest(t, &models.JWTClaims{UserID: "u1", Role: models.RoleTeacher, TeacherID: "teacher-1"})
	handler.Mine(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"teacher-1"}, reader.teacherIDs)
}

func TestTimetableHandlerMineStudentScope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reader := &timetableReaderMock{}
	handler := newTimetableHandler(reader)

	w, c := mineRequest(t, &models.JWTClaims{UserID: "u1", Role: models.RoleStudent, ClassGroupID: "group-1"})
	handler.Mine(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"group-1"}, reader.groupIDs)
}

func TestTimetableHandlerMineAdminScope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reader := &timetableReaderMock{}
	handler := newTimetableHandler(reader)

	w, c := mineRequest(t, &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin})
	handler.Mine(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, reader.termHits)
}

func TestTimetableHandlerMineUnlinkedAccount(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTimetableHandler(&timetableReaderMock{})

	// A teacher account with no teacher record linked has no scope to serve.
	w, c := mineRequest(t, &models.JWTClaims{UserID: "u1", Role: models.RoleTeacher})
	handler.Mine(c)

	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestTimetableHandlerMineMissingClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTimetableHandler(&timetableReaderMock{})

	w, c := mineRequest(t, nil)
	handler.Mine(c)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTimetableHandlerTerm(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reader := &timetableReaderMock{}
	handler := newTimetableHandler(reader)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/timetables/terms/term-1", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "termID", Value: "term-1"}}

	handler.Term(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, reader.termHits)
}
