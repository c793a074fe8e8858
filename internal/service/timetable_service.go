package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/school-timetable-api/internal/models"
	appErrors "github.com/noah-isme/school-timetable-api/pkg/errors"
)

type timetableReader interface {
	RowsForTerm(ctx context.Context, termID string) ([]models.TimetableRow, error)
	RowsForTeacher(ctx context.Context, termID, teacherID string) ([]models.TimetableRow, error)
	RowsForClassGroup(ctx context.Context, termID, classGroupID string) ([]models.TimetableRow, error)
}

type timetableCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type timetableRefs interface {
	TermExists(ctx context.Context, id string) error
	TeacherExists(ctx context.Context, id string) error
	ClassGroupExists(ctx context.Context, id string) error
}

// TimetableService builds the cached weekly timetable projections. Schedules
// stay the source of truth; every projection is rebuilt from joined rows on a
// cache miss and the whole term is invalidated on any schedule write.
type TimetableService struct {
	rows    timetableReader
	cache   timetableCache
	refs    timetableRefs
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
}

// NewTimetableService constructs a TimetableService. metrics may be nil.
func NewTimetableService(rows timetableReader, cache timetableCache, refs timetableRefs, metrics *MetricsService, ttl time.Duration, logger *zap.Logger) *TimetableService {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{rows: rows, cache: cache, refs: refs, metrics: metrics, ttl: ttl, logger: logger}
}

// ForTerm returns the full timetable of a term.
func (s *TimetableService) ForTerm(ctx context.Context, termID string) (*models.WeeklyTimetable, error) {
	if err := s.refs.TermExists(ctx, termID); err != nil {
		return nil, err
	}
	return s.projection(ctx, termID, "term", func(ctx context.Context) ([]models.TimetableRow, error) {
		return s.rows.RowsForTerm(ctx, termID)
	})
}

// ForTeacher returns the timetable restricted to one teacher's lessons.
func (s *TimetableService) ForTeacher(ctx context.Context, termID, teacherID string) (*models.WeeklyTimetable, error) {
	if err := s.refs.TermExists(ctx, termID); err != nil {
		return nil, err
	}
	if err := s.refs.TeacherExists(ctx, teacherID); err != nil {
		return nil, err
	}
	scope := "teacher:" + teacherID
	return s.projection(ctx, termID, scope, func(ctx context.Context) ([]models.TimetableRow, error) {
		return s.rows.RowsForTeacher(ctx, termID, teacherID)
	})
}

// ForClassGroup returns the timetable restricted to one class group's lessons.
func (s *TimetableService) ForClassGroup(ctx context.Context, termID, classGroupID string) (*models.WeeklyTimetable, error) {
	if err := s.refs.TermExists(ctx, termID); err != nil {
		return nil, err
	}
	if err := s.refs.ClassGroupExists(ctx, classGroupID); err != nil {
		return nil, err
	}
	scope := "group:" + classGroupID
	return s.projection(ctx, termID, scope, func(ctx context.Context) ([]models.TimetableRow, error) {
		return s.rows.RowsForClassGroup(ctx, termID, classGroupID)
	})
}

// InvalidateTerm drops every cached projection for the term. Failures are
// logged, not propagated; stale entries age out through the TTL anyway.
func (s *TimetableService) InvalidateTerm(ctx context.Context, termID string) {
	pattern := fmt.Sprintf("timetable:%s:*", termID)
	if err := s.cache.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("timetable cache invalidation failed", zap.String("term_id", termID), zap.Error(err))
	}
}

func (s *TimetableService) projection(ctx context.Context, termID, scope string, load func(context.Context) ([]models.TimetableRow, error)) (*models.WeeklyTimetable, error) {
	key := fmt.Sprintf("timetable:%s:%s", termID, scope)

	var cached models.WeeklyTimetable
	err := s.cache.Get(ctx, key, &cached)
	if err == nil {
		s.metrics.RecordCacheLookup(true)
		return &cached, nil
	}
	s.metrics.RecordCacheLookup(false)
	if !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("timetable cache read failed", zap.String("key", key), zap.Error(err))
	}

	rows, err := load(ctx)
	if err != nil {
		return nil, err
	}

	timetable := buildWeeklyTimetable(termID, scope, rows)

	if err := s.cache.Set(ctx, key, timetable, s.ttl); err != nil {
		s.logger.Warn("timetable cache write failed", zap.String("key", key), zap.Error(err))
	}

	return timetable, nil
}

// buildWeeklyTimetable groups joined rows into per-day lists. Days come out in
// calendar order regardless of the row order, and days without lessons are
// included so clients render a stable week grid.
func buildWeeklyTimetable(termID, scope string, rows []models.TimetableRow) *models.WeeklyTimetable {
	byDay := make(map[models.DayOfWeek][]models.TimetableLesson, len(models.Days))
	for _, row := range rows {
		byDay[row.DayOfWeek] = append(byDay[row.DayOfWeek], models.TimetableLesson{
			ScheduleID: row.ScheduleID,
			Subject:    row.SubjectName,
			Teacher:    row.TeacherName,
			ClassGroup: row.GroupName,
			Room:       row.RoomName,
			StartTime:  row.StartTime,
			EndTime:    row.EndTime,
		})
	}

	timetable := &models.WeeklyTimetable{
		TermID: termID,
		Scope:  scope,
		Days:   make([]models.TimetableDay, 0, len(models.Days)),
	}
	for _, day := range models.Days {
		lessons := byDay[day]
		if lessons == nil {
			lessons = []models.TimetableLesson{}
		}
		timetable.Days = append(timetable.Days, models.TimetableDay{Day: day, Lessons: lessons})
	}
	return timetable
}
