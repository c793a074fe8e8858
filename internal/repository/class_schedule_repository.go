package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/school-timetable-api/internal/models"
)

// Unique constraints backing the three-way uniqueness invariant. The insert
// path relies on these to close the check-then-act race: of two concurrent
// proposals for the same (term, slot) pair at most one can commit.
const (
	ConstraintTeacherSlot = "uq_class_schedules_term_slot_teacher"
	ConstraintRoomSlot    = "uq_class_schedules_term_slot_room"
	ConstraintGroupSlot   = "uq_class_schedules_term_slot_group"
)

// UniqueViolationError reports which schedule constraint rejected a write.
type UniqueViolationError struct {
	Constraint string
}

func (e *UniqueViolationError) Error() string {
	return fmt.Sprintf("unique constraint %s violated", e.Constraint)
}

// ClassScheduleRepository provides persistence for class schedules.
type ClassScheduleRepository struct {
	db *sqlx.DB
}

// NewClassScheduleRepository creates a new class schedule repository.
func NewClassScheduleRepository(db *sqlx.DB) *ClassScheduleRepository {
	return &ClassScheduleRepository{db: db}
}

const classScheduleColumns = "id, term_id, class_group_id, subject_id, teacher_id, time_slot_id, room_id, is_recurring, created_at, updated_at"

// List returns schedules with optional filtering and pagination.
func (r *ClassScheduleRepository) List(ctx context.Context, filter models.ClassScheduleFilter) ([]models.ClassSchedule, int, error) {
	base := "FROM class_schedules WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.TermID != "" {
		conditions = append(conditions, fmt.Sprintf("term_id = $%d", len(args)+1))
		args = append(args, filter.TermID)
	}
	if filter.ClassGroupID != "" {
		conditions = append(conditions, fmt.Sprintf("class_group_id = $%d", len(args)+1))
		args = append(args, filter.ClassGroupID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.TimeSlotID != "" {
		conditions = append(conditions, fmt.Sprintf("time_slot_id = $%d", len(args)+1))
		args = append(args, filter.TimeSlotID)
	}
	if filter.RoomID != "" {
		conditions = append(conditions, fmt.Sprintf("room_id = $%d", len(args)+1))
		args = append(args, filter.RoomID)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at ASC LIMIT %d OFFSET %d", classScheduleColumns, base, size, offset)
	var schedules []models.ClassSchedule
	if err := r.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list class schedules: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count class schedules: %w", err)
	}

	return schedules, total, nil
}

// FindByID loads a schedule by id.
func (r *ClassScheduleRepository) FindByID(ctx context.Context, id string) (*models.ClassSchedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM class_schedules WHERE id = $1`, classScheduleColumns)
	var schedule models.ClassSchedule
	if err := r.db.GetContext(ctx, &schedule, query, id); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// FindBySlot returns all schedules sharing a (term, time_slot) pair, ordered
// by id so conflict scans are deterministic.
func (r *ClassScheduleRepository) FindBySlot(ctx context.Context, termID, timeSlotID string) ([]models.ClassSchedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM class_schedules WHERE term_id = $1 AND time_slot_id = $2 ORDER BY id ASC`, classScheduleColumns)
	var schedules []models.ClassSchedule
	if err := r.db.SelectContext(ctx, &schedules, query, termID, timeSlotID); err != nil {
		return nil, fmt.Errorf("find schedules by slot: %w", err)
	}
	return schedules, nil
}

// ListByTeacherInActiveTerms returns a teacher's schedules in active terms,
// used by the availability reconciliation pass.
func (r *ClassScheduleRepository) ListByTeacherInActiveTerms(ctx context.Context, teacherID string) ([]models.ClassSchedule, error) {
	const query = `SELECT cs.id, cs.term_id, cs.class_group_id, cs.subject_id, cs.teacher_id, cs.time_slot_id, cs.room_id, cs.is_recurring, cs.created_at, cs.updated_at
FROM class_schedules cs
JOIN terms t ON t.id = cs.term_id
WHERE cs.teacher_id = $1 AND t.is_active = TRUE
ORDER BY cs.id ASC`
	var schedules []models.ClassSchedule
	if err := r.db.SelectContext(ctx, &schedules, query, teacherID); err != nil {
		return nil, fmt.Errorf("list schedules by teacher in active terms: %w", err)
	}
	return schedules, nil
}

// Create stores a new schedule record. A storage-level unique violation is
// surfaced as *UniqueViolationError, never a raw driver error.
func (r *ClassScheduleRepository) Create(ctx context.Context, schedule *models.ClassSchedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = now
	}
	schedule.UpdatedAt = now

	const query = `INSERT INTO class_schedules (id, term_id, class_group_id, subject_id, teacher_id, time_slot_id, room_id, is_recurring, created_at, updated_at) VALUES (:id, :term_id, :class_group_id, :subject_id, :teacher_id, :time_slot_id, :room_id, :is_recurring, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, schedule); err != nil {
		if uv := uniqueViolation(err); uv != nil {
			return uv
		}
		return fmt.Errorf("create class schedule: %w", err)
	}
	return nil
}

// Update modifies a schedule record with the same constraint translation as Create.
func (r *ClassScheduleRepository) Update(ctx context.Context, schedule *models.ClassSchedule) error {
	schedule.UpdatedAt = time.Now().UTC()
	const query = `UPDATE class_schedules SET term_id = :term_id, class_group_id = :class_group_id, subject_id = :subject_id, teacher_id = :teacher_id, time_slot_id = :time_slot_id, room_id = :room_id, is_recurring = :is_recurring, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, schedule); err != nil {
		if uv := uniqueViolation(err); uv != nil {
			return uv
		}
		return fmt.Errorf("update class schedule: %w", err)
	}
	return nil
}

// Delete removes a schedule by id.
func (r *ClassScheduleRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM class_schedules WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete class schedule: %w", err)
	}
	return nil
}

func uniqueViolation(err error) *UniqueViolationError {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return &UniqueViolationError{Constraint: pqErr.Constraint}
	}
	return nil
}
