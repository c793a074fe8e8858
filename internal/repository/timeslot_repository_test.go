package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-timetable-api/internal/models"
)

func timeSlotRows() *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{"id", "day_of_week", "start_time", "end_time", "created_at", "updated_at"}).
		AddRow("slot-1", "MONDAY", "08:00", "08:45", now, now)
}

func TestTimeSlotRepositoryListOrdersByWeekIndex(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimeSlotRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY CASE day_of_week WHEN 'MONDAY' THEN 0")).
		WillReturnRows(timeSlotRows())

	slots, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, slots, 1)
}

func TestTimeSlotRepositoryListByDay(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimeSlotRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM time_slots WHERE day_of_week = $1 ORDER BY start_time ASC")).
		WithArgs(models.Monday).
		WillReturnRows(timeSlotRows())

	slots, err := repo.ListByDay(context.Background(), models.Monday)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, models.Monday, slots[0].DayOfWeek)
	assert.Equal(t, "08:00", slots[0].StartTime)
}

func TestTimeSlotRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimeSlotRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO time_slots")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	slot := &models.TimeSlot{DayOfWeek: models.Monday, StartTime: "08:00", EndTime: "08:45"}
	require.NoError(t, repo.Create(context.Background(), slot))
	assert.NotEmpty(t, slot.ID)
}

func TestTimeSlotRepositoryCountReferences(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimeSlotRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM class_schedules WHERE time_slot_id = $1")).
		WithArgs("slot-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountReferences(context.Background(), "slot-1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
