package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/school-timetable-api/internal/models"
	"github.com/noah-isme/school-timetable-api/internal/repository"
	appErrors "github.com/noah-isme/school-timetable-api/pkg/errors"
)

type scheduleRepoStub struct {
	bySlot    []models.ClassSchedule
	byID      map[string]*models.ClassSchedule
	createErr error
	updateErr error
	created   []*models.ClassSchedule
	updated   []*models.ClassSchedule
	deleted   []string
}

func (s *scheduleRepoStub) List(ctx context.Context, filter models.ClassScheduleFilter) ([]models.ClassSchedule, int, error) {
	return s.bySlot, len(s.bySlot), nil
}

func (s *scheduleRepoStub) FindByID(ctx context.Context, id string) (*models.ClassSchedule, error) {
	if schedule, ok := s.byID[id]; ok {
		return schedule, nil
	}
	return nil, sql.ErrNoRows
}

func (s *scheduleRepoStub) FindBySlot(ctx context.Context, termID, timeSlotID string) ([]models.ClassSchedule, error) {
	return s.bySlot, nil
}

func (s *scheduleRepoStub) Create(ctx context.Context, schedule *models.ClassSchedule) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, schedule)
	return nil
}

func (s *scheduleRepoStub) Update(ctx context.Context, schedule *models.ClassSchedule) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updated = append(s.updated, schedule)
	return nil
}

func (s *scheduleRepoStub) Delete(ctx context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

type availabilityStub struct {
	rows map[string]*models.TeacherAvailability
	err  error
}

func availabilityKey(teacherID, slotID string) string {
	return teacherID + "/" + slotID
}

func (s availabilityStub) FindByTeacherAndSlot(ctx context.Context, teacherID, timeSlotID string) (*models.TeacherAvailability, error) {
	if s.err != nil {
		return nil, s.err
	}
	if row, ok := s.rows[availabilityKey(teacherID, timeSlotID)]; ok {
		return row, nil
	}
	return nil, sql.ErrNoRows
}

type refsStub struct {
	missing map[string]bool
}

func (s refsStub) check(kind, id string) error {
	if s.missing[kind+"/"+id] {
		return appErrors.Clone(appErrors.ErrNotFound, kind+" not found")
	}
	return nil
}

func (s refsStub) TermExists(ctx context.Context, id string) error       { return s.check("term", id) }
func (s refsStub) TeacherExists(ctx context.Context, id string) error    { return s.check("teacher", id) }
func (s refsStub) RoomExists(ctx context.Context, id string) error       { return s.check("room", id) }
func (s refsStub) ClassGroupExists(ctx context.Context, id string) error { return s.check("group", id) }
func (s refsStub) TimeSlotExists(ctx context.Context, id string) error   { return s.check("slot", id) }

type invalidatorStub struct {
	terms []string
}

func (s *invalidatorStub) InvalidateTerm(ctx context.Context, termID string) {
	s.terms = append(s.terms, termID)
}

func availableEverywhere() availabilityStub {
	return availabilityStub{rows: map[string]*models.TeacherAvailability{
		availabilityKey("teacher-1", "slot-1"): {TeacherID: "teacher-1", TimeSlotID: "slot-1", IsAvailable: true},
	}}
}

func proposal() ProposeScheduleRequest {
	return ProposeScheduleRequest{
		TermID:       "term-1",
		ClassGroupID: "group-1",
		SubjectID:    "subject-1",
		TeacherID:    "teacher-1",
		TimeSlotID:   "slot-1",
		RoomID:       "room-1",
		IsRecurring:  true,
	}
}

func newScheduleService(repo *scheduleRepoStub, availability availabilityStub, invalidator *invalidatorStub) *ScheduleService {
	return NewScheduleService(repo, availability, refsStub{}, invalidator, nil, nil, zap.NewNop())
}

func conflictsFromError(t *testing.T, err error) []models.ConflictDescriptor {
	t.Helper()
	var conflictErr *models.ScheduleConflictError
	require.True(t, errors.As(err, &conflictErr), "expected a conflict error, got %v", err)
	return conflictErr.Conflicts
}

func TestScheduleServiceCreateSucceeds(t *testing.T) {
	repo := &scheduleRepoStub{}
	invalidator := &invalidatorStub{}
	svc := newScheduleService(repo, availableEverywhere(), invalidator)

	schedule, err := svc.Create(context.Background(), proposal())
	require.NoError(t, err)
	assert.Equal(t, "term-1", schedule.TermID)
	assert.True(t, schedule.IsRecurring)
	require.Len(t, repo.created, 1)
	assert.Equal(t, []string{"term-1"}, invalidator.terms)
}

func TestScheduleServiceCreateFailsClosedWithoutAvailabilityRow(t *testing.T) {
	repo := &scheduleRepoStub{}
	svc := newScheduleService(repo, availabilityStub{}, &invalidatorStub{})

	_, err := svc.Create(context.Background(), proposal())
	conflicts := conflictsFromError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.ConflictTeacherUnavailable, conflicts[0].Kind)
	assert.Empty(t, repo.created, "nothing may be persisted on conflict")
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceCreateReportsUnavailabilityReason(t *testing.T) {
	availability := availabilityStub{rows: map[string]*models.TeacherAvailability{
		availabilityKey("teacher-1", "slot-1"): {IsAvailable: false, Reason: "medical leave"},
	}}
	svc := newScheduleService(&scheduleRepoStub{}, availability, &invalidatorStub{})

	_, err := svc.Create(context.Background(), proposal())
	conflicts := conflictsFromError(t, err)
	require.Len(t, conflicts, 1)
	assert.Contains(t, conflicts[0].Message, "medical leave")
}

func TestScheduleServiceCollectsAllConflictsInOrder(t *testing.T) {
	// One existing row clashes on room and class group, another on teacher,
	// and the teacher has no availability row. All four must be reported,
	// ordered by kind then by schedule ID.
	repo := &scheduleRepoStub{bySlot: []models.ClassSchedule{
		{ID: "sched-b", TermID: "term-1", TeacherID: "teacher-9", RoomID: "room-1", ClassGroupID: "group-1", TimeSlotID: "slot-1"},
		{ID: "sched-a", TermID: "term-1", TeacherID: "teacher-1", RoomID: "room-9", ClassGroupID: "group-9", TimeSlotID: "slot-1"},
	}}
	svc := newScheduleService(repo, availabilityStub{}, &invalidatorStub{})

	_, err := svc.Create(context.Background(), proposal())
	conflicts := conflictsFromError(t, err)
	require.Len(t, conflicts, 4)
	assert.Equal(t, models.ConflictTeacherUnavailable, conflicts[0].Kind)
	assert.Equal(t, models.ConflictTeacherDoubleBooked, conflicts[1].Kind)
	assert.Equal(t, "sched-a", conflicts[1].ConflictingScheduleID)
	assert.Equal(t, models.ConflictRoomDoubleBooked, conflicts[2].Kind)
	assert.Equal(t, "sched-b", conflicts[2].ConflictingScheduleID)
	assert.Equal(t, models.ConflictClassGroupDoubleBooked, conflicts[3].Kind)
	assert.Equal(t, "sched-b", conflicts[3].ConflictingScheduleID)
}

func TestScheduleServiceCheckConflictsIsPure(t *testing.T) {
	repo := &scheduleRepoStub{bySlot: []models.ClassSchedule{
		{ID: "sched-1", TermID: "term-1", TeacherID: "teacher-1", RoomID: "room-9", ClassGroupID: "group-9", TimeSlotID: "slot-1"},
	}}
	svc := newScheduleService(repo, availableEverywhere(), &invalidatorStub{})

	conflicts, err := svc.CheckConflicts(context.Background(), CheckConflictsRequest{ProposeScheduleRequest: proposal()})
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.ConflictTeacherDoubleBooked, conflicts[0].Kind)
	assert.Empty(t, repo.created)
	assert.Empty(t, repo.updated)
}

func TestScheduleServiceUpdateExcludesOwnRow(t *testing.T) {
	existing := &models.ClassSchedule{
		ID: "sched-1", TermID: "term-1", TeacherID: "teacher-1",
		RoomID: "room-1", ClassGroupID: "group-1", TimeSlotID: "slot-1", SubjectID: "subject-1",
	}
	repo := &scheduleRepoStub{
		byID:   map[string]*models.ClassSchedule{"sched-1": existing},
		bySlot: []models.ClassSchedule{*existing},
	}
	invalidator := &invalidatorStub{}
	svc := newScheduleService(repo, availableEverywhere(), invalidator)

	updated, err := svc.Update(context.Background(), "sched-1", proposal())
	require.NoError(t, err)
	assert.Equal(t, "sched-1", updated.ID)
	require.Len(t, repo.updated, 1)
	assert.Equal(t, []string{"term-1"}, invalidator.terms)
}

func TestScheduleServiceUpdateNotFound(t *testing.T) {
	svc := newScheduleService(&scheduleRepoStub{}, availableEverywhere(), &invalidatorStub{})
	_, err := svc.Update(context.Background(), "missing", proposal())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceCreateTranslatesConstraintRace(t *testing.T) {
	// The scan sees a clear slot but the insert loses a unique-constraint race.
	// The error must come back as a conflict, not an internal failure.
	repo := &scheduleRepoStub{
		createErr: &repository.UniqueViolationError{Constraint: repository.ConstraintRoomSlot},
	}
	svc := newScheduleService(repo, availableEverywhere(), &invalidatorStub{})

	_, err := svc.Create(context.Background(), proposal())
	conflicts := conflictsFromError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.ConflictRoomDoubleBooked, conflicts[0].Kind)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceCreateRejectsUnknownReferences(t *testing.T) {
	refs := refsStub{missing: map[string]bool{"room/room-1": true}}
	svc := NewScheduleService(&scheduleRepoStub{}, availableEverywhere(), refs, &invalidatorStub{}, nil, nil, zap.NewNop())

	_, err := svc.Create(context.Background(), proposal())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceCreateValidatesPayload(t *testing.T) {
	svc := newScheduleService(&scheduleRepoStub{}, availableEverywhere(), &invalidatorStub{})
	_, err := svc.Create(context.Background(), ProposeScheduleRequest{TermID: "term-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceDeleteInvalidatesTerm(t *testing.T) {
	repo := &scheduleRepoStub{byID: map[string]*models.ClassSchedule{
		"sched-1": {ID: "sched-1", TermID: "term-1"},
	}}
	invalidator := &invalidatorStub{}
	svc := newScheduleService(repo, availableEverywhere(), invalidator)

	require.NoError(t, svc.Delete(context.Background(), "sched-1"))
	assert.Equal(t, []string{"sched-1"}, repo.deleted)
	assert.Equal(t, []string{"term-1"}, invalidator.terms)
}
