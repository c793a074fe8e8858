package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-timetable-api/internal/models"
	"github.com/noah-isme/school-timetable-api/internal/repository"
	appErrors "github.com/noah-isme/school-timetable-api/pkg/errors"
)

type classScheduleRepository interface {
	List(ctx context.Context, filter models.ClassScheduleFilter) ([]models.ClassSchedule, int, error)
	FindByID(ctx context.Context, id string) (*models.ClassSchedule, error)
	FindBySlot(ctx context.Context, termID, timeSlotID string) ([]models.ClassSchedule, error)
	Create(ctx context.Context, schedule *models.ClassSchedule) error
	Update(ctx context.Context, schedule *models.ClassSchedule) error
	Delete(ctx context.Context, id string) error
}

type availabilityReader interface {
	FindByTeacherAndSlot(ctx context.Context, teacherID, timeSlotID string) (*models.TeacherAvailability, error)
}

// scheduleRefs resolves the entities a proposal references. The engine never
// inspects a current user; callers pass already-authorized references.
type scheduleRefs interface {
	TermExists(ctx context.Context, id string) error
	TeacherExists(ctx context.Context, id string) error
	RoomExists(ctx context.Context, id string) error
	ClassGroupExists(ctx context.Context, id string) error
	TimeSlotExists(ctx context.Context, id string) error
}

type timetableInvalidator interface {
	InvalidateTerm(ctx context.Context, termID string)
}

// ProposeScheduleRequest describes a prospective assignment.
type ProposeScheduleRequest struct {
	TermID       string `json:"term_id" validate:"required"`
	ClassGroupID string `json:"class_group_id" validate:"required"`
	SubjectID    string `json:"subject_id" validate:"required"`
	TeacherID    string `json:"teacher_id" validate:"required"`
	TimeSlotID   string `json:"time_slot_id" validate:"required"`
	RoomID       string `json:"room_id" validate:"required"`
	IsRecurring  bool   `json:"is_recurring"`
}

// CheckConflictsRequest is the preview variant; ExcludeID allows re-validating
// an update against everything but itself.
type CheckConflictsRequest struct {
	ProposeScheduleRequest
	ExcludeID string `json:"exclude_id"`
}

// ScheduleService validates and commits class schedule assignments.
type ScheduleService struct {
	repo         classScheduleRepository
	availability availabilityReader
	refs         scheduleRefs
	timetables   timetableInvalidator
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewScheduleService instantiates ScheduleService. metrics may be nil.
func NewScheduleService(repo classScheduleRepository, availability availabilityReader, refs scheduleRefs, timetables timetableInvalidator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{
		repo:         repo,
		availability: availability,
		refs:         refs,
		timetables:   timetables,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
	}
}

// List returns schedules with pagination metadata.
func (s *ScheduleService) List(ctx context.Context, filter models.ClassScheduleFilter) ([]models.ClassSchedule, *models.Pagination, error) {
	schedules, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return schedules, pagination, nil
}

// Get returns a single schedule by id.
func (s *ScheduleService) Get(ctx context.Context, id string) (*models.ClassSchedule, error) {
	schedule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	return schedule, nil
}

// CheckConflicts is the pure preview path. It resolves references, then
// collects every applicable conflict without committing anything. The
// committing path runs the exact same collection, so preview and commit can
// only diverge through concurrent mutation between the two calls.
func (s *ScheduleService) CheckConflicts(ctx context.Context, req CheckConflictsRequest) ([]models.ConflictDescriptor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid conflict check payload")
	}
	if err := s.resolveRefs(ctx, req.ProposeScheduleRequest); err != nil {
		return nil, err
	}
	return s.collectConflicts(ctx, req.ProposeScheduleRequest, req.ExcludeID)
}

// Create commits a new assignment after a full conflict collection. Nothing is
// persisted when any conflict exists.
func (s *ScheduleService) Create(ctx context.Context, req ProposeScheduleRequest) (*models.ClassSchedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	if err := s.resolveRefs(ctx, req); err != nil {
		return nil, err
	}

	conflicts, err := s.collectConflicts(ctx, req, "")
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return nil, s.conflictError(conflicts)
	}

	schedule := s.toSchedule(req)
	if err := s.repo.Create(ctx, &schedule); err != nil {
		return nil, s.translateWriteError(ctx, req, "", err, "failed to create schedule")
	}

	s.invalidate(ctx, schedule.TermID)
	return &schedule, nil
}

// Update re-validates an assignment in full, excluding its own current row
// from the conflict scan.
func (s *ScheduleService) Update(ctx context.Context, id string, req ProposeScheduleRequest) (*models.ClassSchedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}

	if err := s.resolveRefs(ctx, req); err != nil {
		return nil, err
	}

	conflicts, err := s.collectConflicts(ctx, req, existing.ID)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return nil, s.conflictError(conflicts)
	}

	updated := s.toSchedule(req)
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt
	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, s.translateWriteError(ctx, req, existing.ID, err, "failed to update schedule")
	}

	s.invalidate(ctx, updated.TermID)
	if updated.TermID != existing.TermID {
		s.invalidate(ctx, existing.TermID)
	}
	return &updated, nil
}

// Delete removes a schedule entry.
func (s *ScheduleService) Delete(ctx context.Context, id string) error {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule")
	}

	s.invalidate(ctx, existing.TermID)
	return nil
}

// collectConflicts gathers every violated invariant in one pass. No
// short-circuiting: the caller gets the complete diagnostic list.
func (s *ScheduleService) collectConflicts(ctx context.Context, req ProposeScheduleRequest, excludeID string) ([]models.ConflictDescriptor, error) {
	var conflicts []models.ConflictDescriptor

	availability, err := s.availability.FindByTeacherAndSlot(ctx, req.TeacherID, req.TimeSlotID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// No row means unavailable. Fail closed.
		conflicts = append(conflicts, models.ConflictDescriptor{
			Kind:    models.ConflictTeacherUnavailable,
			Message: "teacher has no recorded availability for this time slot",
		})
	case err != nil:
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher availability")
	case !availability.IsAvailable:
		msg := "teacher is not available during this time slot"
		if availability.Reason != "" {
			msg = fmt.Sprintf("%s: %s", msg, availability.Reason)
		}
		conflicts = append(conflicts, models.ConflictDescriptor{
			Kind:    models.ConflictTeacherUnavailable,
			Message: msg,
		})
	}

	existing, err := s.repo.FindBySlot(ctx, req.TermID, req.TimeSlotID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to scan existing schedules")
	}

	for _, item := range existing {
		if item.ID == excludeID {
			continue
		}
		// One row can violate several invariants at once; report all of them.
		if item.TeacherID == req.TeacherID {
			conflicts = append(conflicts, models.ConflictDescriptor{
				Kind:                  models.ConflictTeacherDoubleBooked,
				Message:               fmt.Sprintf("teacher already teaches subject %s to group %s in this slot", item.SubjectID, item.ClassGroupID),
				ConflictingScheduleID: item.ID,
			})
		}
		if item.RoomID == req.RoomID {
			conflicts = append(conflicts, models.ConflictDescriptor{
				Kind:                  models.ConflictRoomDoubleBooked,
				Message:               "room is already booked in this slot",
				ConflictingScheduleID: item.ID,
			})
		}
		if item.ClassGroupID == req.ClassGroupID {
			conflicts = append(conflicts, models.ConflictDescriptor{
				Kind:                  models.ConflictClassGroupDoubleBooked,
				Message:               "class group already has a lesson in this slot",
				ConflictingScheduleID: item.ID,
			})
		}
	}

	models.SortConflicts(conflicts)
	s.recordScan(conflicts)
	return conflicts, nil
}

func (s *ScheduleService) recordScan(conflicts []models.ConflictDescriptor) {
	outcome := "clear"
	var kinds []string
	if len(conflicts) > 0 {
		outcome = "conflict"
		kinds = make([]string, len(conflicts))
		for i, c := range conflicts {
			kinds[i] = string(c.Kind)
		}
	}
	s.metrics.RecordConflictCheck(outcome, kinds)
}

func (s *ScheduleService) resolveRefs(ctx context.Context, req ProposeScheduleRequest) error {
	if err := s.refs.TermExists(ctx, req.TermID); err != nil {
		return err
	}
	if err := s.refs.TimeSlotExists(ctx, req.TimeSlotID); err != nil {
		return err
	}
	if err := s.refs.TeacherExists(ctx, req.TeacherID); err != nil {
		return err
	}
	if err := s.refs.RoomExists(ctx, req.RoomID); err != nil {
		return err
	}
	return s.refs.ClassGroupExists(ctx, req.ClassGroupID)
}

func (s *ScheduleService) toSchedule(req ProposeScheduleRequest) models.ClassSchedule {
	return models.ClassSchedule{
		TermID:       req.TermID,
		ClassGroupID: req.ClassGroupID,
		SubjectID:    req.SubjectID,
		TeacherID:    req.TeacherID,
		TimeSlotID:   req.TimeSlotID,
		RoomID:       req.RoomID,
		IsRecurring:  req.IsRecurring,
	}
}

// translateWriteError maps a storage-level unique violation back into the
// conflict-descriptor shape. The constraints exist to close the race between
// the scan and the insert; losing that race must look like any other conflict.
func (s *ScheduleService) translateWriteError(ctx context.Context, req ProposeScheduleRequest, excludeID string, err error, fallbackMsg string) error {
	var uv *repository.UniqueViolationError
	if !errors.As(err, &uv) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fallbackMsg)
	}

	s.logger.Info("schedule write lost constraint race",
		zap.String("constraint", uv.Constraint),
		zap.String("term_id", req.TermID),
		zap.String("time_slot_id", req.TimeSlotID),
	)

	conflicts, collectErr := s.collectConflicts(ctx, req, excludeID)
	if collectErr == nil && len(conflicts) > 0 {
		return s.conflictError(conflicts)
	}

	// The winning row may already be gone again; fall back to the constraint name.
	kind := models.ConflictTeacherDoubleBooked
	switch uv.Constraint {
	case repository.ConstraintRoomSlot:
		kind = models.ConflictRoomDoubleBooked
	case repository.ConstraintGroupSlot:
		kind = models.ConflictClassGroupDoubleBooked
	}
	return s.conflictError([]models.ConflictDescriptor{{
		Kind:    kind,
		Message: "a concurrent assignment claimed this slot first",
	}})
}

func (s *ScheduleService) conflictError(conflicts []models.ConflictDescriptor) error {
	domainErr := &models.ScheduleConflictError{
		Message:   "schedule conflicts detected",
		Conflicts: conflicts,
	}
	return appErrors.Wrap(domainErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, domainErr.Message)
}

func (s *ScheduleService) invalidate(ctx context.Context, termID string) {
	if s.timetables == nil {
		return
	}
	s.timetables.InvalidateTerm(ctx, termID)
}
