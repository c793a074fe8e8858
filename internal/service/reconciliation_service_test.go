package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/school-timetable-api/internal/models"
	"github.com/noah-isme/school-timetable-api/pkg/jobs"
)

type scheduleListerStub struct {
	schedules []models.ClassSchedule
	err       error
}

func (s scheduleListerStub) ListByTeacherInActiveTerms(ctx context.Context, teacherID string) ([]models.ClassSchedule, error) {
	return s.schedules, s.err
}

type conflictCheckerStub struct {
	byExclude map[string][]models.ConflictDescriptor
	requests  []CheckConflictsRequest
	err       error
}

func (s *conflictCheckerStub) CheckConflicts(ctx context.Context, req CheckConflictsRequest) ([]models.ConflictDescriptor, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	return s.byExclude[req.ExcludeID], nil
}

func TestReconciliationServiceExcludesOwnRows(t *testing.T) {
	lister := scheduleListerStub{schedules: []models.ClassSchedule{
		{ID: "sched-1", TermID: "term-1", TeacherID: "teacher-1", TimeSlotID: "slot-1", RoomID: "room-1", ClassGroupID: "group-1", SubjectID: "subject-1"},
		{ID: "sched-2", TermID: "term-1", TeacherID: "teacher-1", TimeSlotID: "slot-2", RoomID: "room-1", ClassGroupID: "group-1", SubjectID: "subject-1"},
	}}
	checker := &conflictCheckerStub{}
	svc := NewReconciliationService(lister, checker, nil, zap.NewNop())

	require.NoError(t, svc.ReconcileTeacher(context.Background(), "teacher-1"))
	require.Len(t, checker.requests, 2)
	assert.Equal(t, "sched-1", checker.requests[0].ExcludeID)
	assert.Equal(t, "sched-2", checker.requests[1].ExcludeID)
	assert.Equal(t, "slot-2", checker.requests[1].TimeSlotID)
}

func TestReconciliationServiceSurvivesInvalidSchedules(t *testing.T) {
	lister := scheduleListerStub{schedules: []models.ClassSchedule{
		{ID: "sched-1", TermID: "term-1", TeacherID: "teacher-1", TimeSlotID: "slot-1", RoomID: "room-1", ClassGroupID: "group-1", SubjectID: "subject-1"},
	}}
	checker := &conflictCheckerStub{byExclude: map[string][]models.ConflictDescriptor{
		"sched-1": {{Kind: models.ConflictTeacherUnavailable, Message: "teacher is not available during this time slot"}},
	}}
	svc := NewReconciliationService(lister, checker, nil, zap.NewNop())

	// Conflicts are reported, never acted on. The pass still succeeds.
	require.NoError(t, svc.ReconcileTeacher(context.Background(), "teacher-1"))
}

func TestReconciliationServiceHandleJob(t *testing.T) {
	checker := &conflictCheckerStub{}
	svc := NewReconciliationService(scheduleListerStub{}, checker, nil, zap.NewNop())

	err := svc.HandleJob(context.Background(), jobs.Job{
		ID:      "job-1",
		Type:    JobTypeReconcileTeacher,
		Payload: ReconcilePayload{TeacherID: "teacher-1"},
	})
	require.NoError(t, err)
}

func TestReconciliationServiceHandleJobRejectsForeignPayload(t *testing.T) {
	svc := NewReconciliationService(scheduleListerStub{}, &conflictCheckerStub{}, nil, zap.NewNop())

	err := svc.HandleJob(context.Background(), jobs.Job{ID: "job-1", Payload: "not a payload"})
	require.Error(t, err)
}

func TestReconciliationServicePropagatesCheckerFailure(t *testing.T) {
	lister := scheduleListerStub{schedules: []models.ClassSchedule{
		{ID: "sched-1", TermID: "term-1", TeacherID: "teacher-1", TimeSlotID: "slot-1", RoomID: "room-1", ClassGroupID: "group-1", SubjectID: "subject-1"},
	}}
	checker := &conflictCheckerStub{err: assert.AnError}
	svc := NewReconciliationService(lister, checker, nil, zap.NewNop())

	require.Error(t, svc.ReconcileTeacher(context.Background(), "teacher-1"))
}
