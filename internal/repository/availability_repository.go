package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-timetable-api/internal/models"
)

// AvailabilityRepository persists teacher availability rows.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository constructs the repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

const availabilityColumns = "id, teacher_id, time_slot_id, is_available, reason, created_at, updated_at"

// FindByTeacherAndSlot returns the single row for a (teacher, slot) pair.
// sql.ErrNoRows means no row exists, which callers treat as unavailable.
func (r *AvailabilityRepository) FindByTeacherAndSlot(ctx context.Context, teacherID, timeSlotID string) (*models.TeacherAvailability, error) {
	query := fmt.Sprintf(`SELECT %s FROM teacher_availabilities WHERE teacher_id = $1 AND time_slot_id = $2`, availabilityColumns)
	var availability models.TeacherAvailability
	if err := r.db.GetContext(ctx, &availability, query, teacherID, timeSlotID); err != nil {
		return nil, err
	}
	return &availability, nil
}

// ListByTeacher returns all availability rows for a teacher ordered by slot.
func (r *AvailabilityRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.TeacherAvailability, error) {
	const query = `SELECT a.id, a.teacher_id, a.time_slot_id, a.is_available, a.reason, a.created_at, a.updated_at
FROM teacher_availabilities a
JOIN time_slots s ON s.id = a.time_slot_id
WHERE a.teacher_id = $1
ORDER BY s.day_of_week ASC, s.start_time ASC`
	var availabilities []models.TeacherAvailability
	if err := r.db.SelectContext(ctx, &availabilities, query, teacherID); err != nil {
		return nil, fmt.Errorf("list availabilities by teacher: %w", err)
	}
	return availabilities, nil
}

// Upsert creates or overwrites the (teacher, slot) row. Last write wins;
// history is not retained.
func (r *AvailabilityRepository) Upsert(ctx context.Context, availability *models.TeacherAvailability) error {
	if availability.ID == "" {
		availability.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if availability.CreatedAt.IsZero() {
		availability.CreatedAt = now
	}
	availability.UpdatedAt = now

	const query = `INSERT INTO teacher_availabilities (id, teacher_id, time_slot_id, is_available, reason, created_at, updated_at)
		VALUES (:id, :teacher_id, :time_slot_id, :is_available, :reason, :created_at, :updated_at)
		ON CONFLICT (teacher_id, time_slot_id) DO UPDATE
		SET is_available = EXCLUDED.is_available,
		    reason = EXCLUDED.reason,
		    updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, availability); err != nil {
		return fmt.Errorf("upsert availability: %w", err)
	}
	return nil
}
