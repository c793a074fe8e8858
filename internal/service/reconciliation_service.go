package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/school-timetable-api/internal/models"
	"github.com/noah-isme/school-timetable-api/pkg/jobs"
)

type teacherScheduleLister interface {
	ListByTeacherInActiveTerms(ctx context.Context, teacherID string) ([]models.ClassSchedule, error)
}

type conflictChecker interface {
	CheckConflicts(ctx context.Context, req CheckConflictsRequest) ([]models.ConflictDescriptor, error)
}

// ReconciliationService re-validates a teacher's existing schedules after an
// availability change. The conflict engine itself never reconciles on write;
// this pass runs behind the job queue and surfaces newly invalid assignments
// through logs for administrators to resolve.
type ReconciliationService struct {
	schedules teacherScheduleLister
	checker   conflictChecker
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewReconciliationService constructs a ReconciliationService. metrics may be nil.
func NewReconciliationService(schedules teacherScheduleLister, checker conflictChecker, metrics *MetricsService, logger *zap.Logger) *ReconciliationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconciliationService{schedules: schedules, checker: checker, metrics: metrics, logger: logger}
}

// HandleJob is the queue handler for reconciliation jobs.
func (s *ReconciliationService) HandleJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(ReconcilePayload)
	if !ok {
		return fmt.Errorf("unexpected payload type %T for job %s", job.Payload, job.ID)
	}
	if err := s.ReconcileTeacher(ctx, payload.TeacherID); err != nil {
		s.metrics.RecordReconcileJob("error")
		return err
	}
	s.metrics.RecordReconcileJob("ok")
	return nil
}

// ReconcileTeacher re-runs the conflict check over every schedule the teacher
// holds in active terms, excluding each schedule's own row from its scan.
func (s *ReconciliationService) ReconcileTeacher(ctx context.Context, teacherID string) error {
	schedules, err := s.schedules.ListByTeacherInActiveTerms(ctx, teacherID)
	if err != nil {
		return fmt.Errorf("list schedules for reconciliation: %w", err)
	}

	var invalid int
	for _, schedule := range schedules {
		conflicts, err := s.checker.CheckConflicts(ctx, CheckConflictsRequest{
			ProposeScheduleRequest: ProposeScheduleRequest{
				TermID:       schedule.TermID,
				ClassGroupID: schedule.ClassGroupID,
				SubjectID:    schedule.SubjectID,
				TeacherID:    schedule.TeacherID,
				TimeSlotID:   schedule.TimeSlotID,
				RoomID:       schedule.RoomID,
				IsRecurring:  schedule.IsRecurring,
			},
			ExcludeID: schedule.ID,
		})
		if err != nil {
			return fmt.Errorf("re-check schedule %s: %w", schedule.ID, err)
		}
		if len(conflicts) == 0 {
			continue
		}
		invalid++
		for _, conflict := range conflicts {
			s.logger.Warn("existing schedule no longer valid",
				zap.String("schedule_id", schedule.ID),
				zap.String("teacher_id", teacherID),
				zap.String("term_id", schedule.TermID),
				zap.String("kind", string(conflict.Kind)),
				zap.String("detail", conflict.Message),
			)
		}
	}

	s.logger.Info("reconciliation pass finished",
		zap.String("teacher_id", teacherID),
		zap.Int("checked", len(schedules)),
		zap.Int("invalid", invalid),
	)
	return nil
}
