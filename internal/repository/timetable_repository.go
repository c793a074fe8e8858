package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-timetable-api/internal/models"
)

// TimetableRepository reads the joined lesson rows the weekly projection is
// built from. Read-only; class schedules remain the source of truth.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository creates a new timetable repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

const timetableSelect = `SELECT cs.id AS schedule_id,
	sub.name AS subject_name,
	t.full_name AS teacher_name,
	g.name AS group_name,
	rm.name AS room_name,
	ts.day_of_week,
	ts.start_time,
	ts.end_time
FROM class_schedules cs
JOIN subjects sub ON sub.id = cs.subject_id
JOIN teachers t ON t.id = cs.teacher_id
JOIN class_groups g ON g.id = cs.class_group_id
JOIN rooms rm ON rm.id = cs.room_id
JOIN time_slots ts ON ts.id = cs.time_slot_id`

const timetableOrder = ` ORDER BY ts.day_of_week ASC, ts.start_time ASC, cs.id ASC`

// RowsForTerm returns every lesson in a term.
func (r *TimetableRepository) RowsForTerm(ctx context.Context, termID string) ([]models.TimetableRow, error) {
	query := timetableSelect + ` WHERE cs.term_id = $1` + timetableOrder
	var rows []models.TimetableRow
	if err := r.db.SelectContext(ctx, &rows, query, termID); err != nil {
		return nil, fmt.Errorf("timetable rows for term: %w", err)
	}
	return rows, nil
}

// RowsForTeacher returns a teacher's lessons in a term.
func (r *TimetableRepository) RowsForTeacher(ctx context.Context, termID, teacherID string) ([]models.TimetableRow, error) {
	query := timetableSelect + ` WHERE cs.term_id = $1 AND cs.teacher_id = $2` + timetableOrder
	var rows []models.TimetableRow
	if err := r.db.SelectContext(ctx, &rows, query, termID, teacherID); err != nil {
		return nil, fmt.Errorf("timetable rows for teacher: %w", err)
	}
	return rows, nil
}

// RowsForClassGroup returns a class group's lessons in a term.
func (r *TimetableRepository) RowsForClassGroup(ctx context.Context, termID, classGroupID string) ([]models.TimetableRow, error) {
	query := timetableSelect + ` WHERE cs.term_id = $1 AND cs.class_group_id = $2` + timetableOrder
	var rows []models.TimetableRow
	if err := r.db.SelectContext(ctx, &rows, query, termID, classGroupID); err != nil {
		return nil, fmt.Errorf("timetable rows for class group: %w", err)
	}
	return rows, nil
}
