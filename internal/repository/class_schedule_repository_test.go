package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-timetable-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	cleanup := func() {
		_ = sqlxDB.Close()
		db.Close()
	}
	return sqlxDB, mock, cleanup
}

func scheduleRows() *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{"id", "term_id", "class_group_id", "subject_id", "teacher_id", "time_slot_id", "room_id", "is_recurring", "created_at", "updated_at"}).
		AddRow("sched-1", "term-1", "group-1", "subject-1", "teacher-1", "slot-1", "room-1", true, now, now)
}

func TestClassScheduleRepositoryFindBySlot(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassScheduleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM class_schedules WHERE term_id = $1 AND time_slot_id = $2 ORDER BY id ASC")).
		WithArgs("term-1", "slot-1").
		WillReturnRows(scheduleRows())

	schedules, err := repo.FindBySlot(context.Background(), "term-1", "slot-1")
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	assert.Equal(t, "sched-1", schedules[0].ID)
	assert.Equal(t, "teacher-1", schedules[0].TeacherID)
}

func TestClassScheduleRepositoryListFiltersByTerm(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassScheduleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM class_schedules WHERE 1=1 AND term_id = $1")).
		WithArgs("term-1").
		WillReturnRows(scheduleRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM class_schedules WHERE 1=1 AND term_id = $1")).
		WithArgs("term-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	schedules, total, err := repo.List(context.Background(), models.ClassScheduleFilter{TermID: "term-1"})
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	assert.Equal(t, 1, total)
}

func TestClassScheduleRepositoryCreateTranslatesUniqueViolation(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassScheduleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO class_schedules")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: ConstraintTeacherSlot})

	err := repo.Create(context.Background(), &models.ClassSchedule{
		TermID: "term-1", ClassGroupID: "group-1", SubjectID: "subject-1",
		TeacherID: "teacher-1", TimeSlotID: "slot-1", RoomID: "room-1",
	})
	require.Error(t, err)

	var uv *UniqueViolationError
	require.True(t, errors.As(err, &uv))
	assert.Equal(t, ConstraintTeacherSlot, uv.Constraint)
}

func TestClassScheduleRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassScheduleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO class_schedules")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	schedule := &models.ClassSchedule{
		TermID: "term-1", ClassGroupID: "group-1", SubjectID: "subject-1",
		TeacherID: "teacher-1", TimeSlotID: "slot-1", RoomID: "room-1",
	}
	require.NoError(t, repo.Create(context.Background(), schedule))
	assert.NotEmpty(t, schedule.ID)
	assert.False(t, schedule.CreatedAt.IsZero())
}

func TestClassScheduleRepositoryFindByIDNoRows(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassScheduleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM class_schedules WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestClassScheduleRepositoryListByTeacherInActiveTerms(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewClassScheduleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("JOIN terms t ON t.id = cs.term_id")).
		WithArgs("teacher-1").
		WillReturnRows(scheduleRows())

	schedules, err := repo.ListByTeacherInActiveTerms(context.Background(), "teacher-1")
	require.NoError(t, err)
	require.Len(t, schedules, 1)
}
