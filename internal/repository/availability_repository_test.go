package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-timetable-api/internal/models"
)

func availabilityRows() *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{"id", "teacher_id", "time_slot_id", "is_available", "reason", "created_at", "updated_at"}).
		AddRow("avail-1", "teacher-1", "slot-1", false, "staff meeting", now, now)
}

func TestAvailabilityRepositoryFindByTeacherAndSlot(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM teacher_availabilities WHERE teacher_id = $1 AND time_slot_id = $2")).
		WithArgs("teacher-1", "slot-1").
		WillReturnRows(availabilityRows())

	availability, err := repo.FindByTeacherAndSlot(context.Background(), "teacher-1", "slot-1")
	require.NoError(t, err)
	assert.False(t, availability.IsAvailable)
	assert.Equal(t, "staff meeting", availability.Reason)
}

func TestAvailabilityRepositoryFindByTeacherAndSlotNoRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM teacher_availabilities")).
		WithArgs("teacher-1", "slot-9").
		WillReturnError(sql.ErrNoRows)

	// The raw ErrNoRows must pass through; callers decide it means unavailable.
	_, err := repo.FindByTeacherAndSlot(context.Background(), "teacher-1", "slot-9")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestAvailabilityRepositoryListByTeacherOrdersBySlot(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY s.day_of_week ASC, s.start_time ASC")).
		WithArgs("teacher-1").
		WillReturnRows(availabilityRows())

	rows, err := repo.ListByTeacher(context.Background(), "teacher-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestAvailabilityRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (teacher_id, time_slot_id) DO UPDATE")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	availability := &models.TeacherAvailability{
		TeacherID:   "teacher-1",
		TimeSlotID:  "slot-1",
		IsAvailable: false,
		Reason:      "training",
	}
	require.NoError(t, repo.Upsert(context.Background(), availability))
	assert.NotEmpty(t, availability.ID)
	assert.False(t, availability.UpdatedAt.IsZero())
}
