package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/school-timetable-api/internal/models"
	appErrors "github.com/noah-isme/school-timetable-api/pkg/errors"
)

type timetableReaderStub struct {
	rows      []models.TimetableRow
	termCalls int
}

func (s *timetableReaderStub) RowsForTerm(ctx context.Context, termID string) ([]models.TimetableRow, error) {
	s.termCalls++
	return s.rows, nil
}

func (s *timetableReaderStub) RowsForTeacher(ctx context.Context, termID, teacherID string) ([]models.TimetableRow, error) {
	return s.rows, nil
}

func (s *timetableReaderStub) RowsForClassGroup(ctx context.Context, termID, classGroupID string) ([]models.TimetableRow, error) {
	return s.rows, nil
}

type cacheStub struct {
	store    map[string]*models.WeeklyTimetable
	patterns []string
	getErr   error
	setErr   error
	delErr   error
}

func newCacheStub() *cacheStub {
	return &cacheStub{store: map[string]*models.WeeklyTimetable{}}
}

func (c *cacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	if c.getErr != nil {
		return c.getErr
	}
	cached, ok := c.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	out, ok := dest.(*models.WeeklyTimetable)
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*out = *cached
	return nil
}

func (c *cacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.setErr != nil {
		return c.setErr
	}
	if timetable, ok := value.(*models.WeeklyTimetable); ok {
		c.store[key] = timetable
	}
	return nil
}

func (c *cacheStub) DeleteByPattern(ctx context.Context, pattern string) error {
	if c.delErr != nil {
		return c.delErr
	}
	c.patterns = append(c.patterns, pattern)
	return nil
}

func sampleRows() []models.TimetableRow {
	return []models.TimetableRow{
		{ScheduleID: "sched-2", DayOfWeek: models.Wednesday, StartTime: "10:00", EndTime: "10:45", SubjectName: "Physics", TeacherName: "R. Feynman", GroupName: "10-A", RoomName: "Lab 2"},
		{ScheduleID: "sched-1", DayOfWeek: models.Monday, StartTime: "08:00", EndTime: "08:45", SubjectName: "Mathematics", TeacherName: "A. Noether", GroupName: "10-A", RoomName: "201"},
	}
}

func TestTimetableServiceForTermBuildsWeekGrid(t *testing.T) {
	reader := &timetableReaderStub{rows: sampleRows()}
	svc := NewTimetableService(reader, newCacheStub(), refsStub{}, nil, 0, zap.NewNop())

	timetable, err := svc.ForTerm(context.Background(), "term-1")
	require.NoError(t, err)
	assert.Equal(t, "term-1", timetable.TermID)
	assert.Equal(t, "term", timetable.Scope)

	// Every teaching day is present in calendar order, lesson free days included.
	require.Len(t, timetable.Days, len(models.Days))
	assert.Equal(t, models.Monday, timetable.Days[0].Day)
	require.Len(t, timetable.Days[0].Lessons, 1)
	assert.Equal(t, "Mathematics", timetable.Days[0].Lessons[0].Subject)
	require.Len(t, timetable.Days[2].Lessons, 1)
	assert.Equal(t, "Physics", timetable.Days[2].Lessons[0].Subject)
	assert.NotNil(t, timetable.Days[1].Lessons)
	assert.Empty(t, timetable.Days[1].Lessons)
}

func TestTimetableServiceServesFromCache(t *testing.T) {
	reader := &timetableReaderStub{rows: sampleRows()}
	cache := newCacheStub()
	svc := NewTimetableService(reader, cache, refsStub{}, nil, 0, zap.NewNop())

	_, err := svc.ForTerm(context.Background(), "term-1")
	require.NoError(t, err)
	_, err = svc.ForTerm(context.Background(), "term-1")
	require.NoError(t, err)

	assert.Equal(t, 1, reader.termCalls, "second read must hit the cache")
}

func TestTimetableServiceFallsBackOnCacheFailure(t *testing.T) {
	reader := &timetableReaderStub{rows: sampleRows()}
	cache := newCacheStub()
	cache.getErr = assert.AnError
	cache.setErr = assert.AnError
	svc := NewTimetableService(reader, cache, refsStub{}, nil, 0, zap.NewNop())

	timetable, err := svc.ForTerm(context.Background(), "term-1")
	require.NoError(t, err)
	require.Len(t, timetable.Days, len(models.Days))
	assert.Equal(t, 1, reader.termCalls)
}

func TestTimetableServiceScopedKeys(t *testing.T) {
	reader := &timetableReaderStub{rows: sampleRows()}
	cache := newCacheStub()
	svc := NewTimetableService(reader, cache, refsStub{}, nil, 0, zap.NewNop())

	_, err := svc.ForTeacher(context.Background(), "term-1", "teacher-1")
	require.NoError(t, err)
	_, err = svc.ForClassGroup(context.Background(), "term-1", "group-1")
	require.NoError(t, err)

	assert.Contains(t, cache.store, "timetable:term-1:teacher:teacher-1")
	assert.Contains(t, cache.store, "timetable:term-1:group:group-1")
}

func TestTimetableServiceInvalidateTerm(t *testing.T) {
	cache := newCacheStub()
	svc := NewTimetableService(&timetableReaderStub{}, cache, refsStub{}, nil, 0, zap.NewNop())

	svc.InvalidateTerm(context.Background(), "term-1")
	assert.Equal(t, []string{"timetable:term-1:*"}, cache.patterns)
}

func TestTimetableServiceInvalidateTermSwallowsFailure(t *testing.T) {
	cache := newCacheStub()
	cache.delErr = assert.AnError
	svc := NewTimetableService(&timetableReaderStub{}, cache, refsStub{}, nil, 0, zap.NewNop())

	// Must not panic and must not surface the error.
	svc.InvalidateTerm(context.Background(), "term-1")
}

func TestTimetableServiceRejectsUnknownTerm(t *testing.T) {
	refs := refsStub{missing: map[string]bool{"term/term-9": true}}
	svc := NewTimetableService(&timetableReaderStub{}, newCacheStub(), refs, nil, 0, zap.NewNop())

	_, err := svc.ForTerm(context.Background(), "term-9")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
