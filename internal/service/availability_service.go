package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/school-timetable-api/internal/models"
	appErrors "github.com/noah-isme/school-timetable-api/pkg/errors"
	"github.com/noah-isme/school-timetable-api/pkg/jobs"
)

type availabilityRepository interface {
	FindByTeacherAndSlot(ctx context.Context, teacherID, timeSlotID string) (*models.TeacherAvailability, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.TeacherAvailability, error)
	Upsert(ctx context.Context, availability *models.TeacherAvailability) error
}

type availabilityRefs interface {
	TeacherExists(ctx context.Context, id string) error
	TimeSlotExists(ctx context.Context, id string) error
}

// ReconcileQueue accepts reconciliation jobs. Satisfied by jobs.Queue.
type ReconcileQueue interface {
	Enqueue(job jobs.Job) error
}

// SetAvailabilityRequest describes payload for an availability upsert.
type SetAvailabilityRequest struct {
	TimeSlotID  string `json:"time_slot_id" validate:"required"`
	IsAvailable bool   `json:"is_available"`
	Reason      string `json:"reason"`
}

// JobTypeReconcileTeacher labels reconciliation jobs on the queue.
const JobTypeReconcileTeacher = "reconcile_teacher_schedules"

// ReconcilePayload identifies the teacher whose schedules need re-checking.
type ReconcilePayload struct {
	TeacherID string
}

// AvailabilityService maintains the per-teacher, per-slot availability ledger.
type AvailabilityService struct {
	repo      availabilityRepository
	refs      availabilityRefs
	queue     ReconcileQueue
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAvailabilityService instantiates AvailabilityService. queue may be nil
// when background reconciliation is disabled.
func NewAvailabilityService(repo availabilityRepository, refs availabilityRefs, queue ReconcileQueue, validate *validator.Validate, logger *zap.Logger) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{repo: repo, refs: refs, queue: queue, validator: validate, logger: logger}
}

// ListByTeacher returns the teacher's availability rows in week order.
func (s *AvailabilityService) ListByTeacher(ctx context.Context, teacherID string) ([]models.TeacherAvailability, error) {
	if err := s.refs.TeacherExists(ctx, teacherID); err != nil {
		return nil, err
	}
	availabilities, err := s.repo.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list availabilities")
	}
	return availabilities, nil
}

// Set upserts the (teacher, slot) row. Availability changes are accepted even
// when they retroactively break an existing assignment; surfacing that
// breakage is the reconciliation pass's job, not this write path's.
func (s *AvailabilityService) Set(ctx context.Context, teacherID string, req SetAvailabilityRequest) (*models.TeacherAvailability, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}

	reason := strings.TrimSpace(req.Reason)
	if !req.IsAvailable && reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "reason required when marking a slot unavailable")
	}

	if err := s.refs.TeacherExists(ctx, teacherID); err != nil {
		return nil, err
	}
	if err := s.refs.TimeSlotExists(ctx, req.TimeSlotID); err != nil {
		return nil, err
	}

	availability := &models.TeacherAvailability{
		TeacherID:   teacherID,
		TimeSlotID:  req.TimeSlotID,
		IsAvailable: req.IsAvailable,
		Reason:      reason,
	}
	if err := s.repo.Upsert(ctx, availability); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save availability")
	}

	s.enqueueReconcile(teacherID)
	return availability, nil
}

func (s *AvailabilityService) enqueueReconcile(teacherID string) {
	if s.queue == nil {
		return
	}
	err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    JobTypeReconcileTeacher,
		Payload: ReconcilePayload{TeacherID: teacherID},
	})
	if err != nil {
		s.logger.Warn("failed to enqueue reconciliation job",
			zap.String("teacher_id", teacherID),
			zap.Error(err),
		)
	}
}
