package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/noah-isme/school-timetable-api/internal/models"
	appErrors "github.com/noah-isme/school-timetable-api/pkg/errors"
)

type termReader interface {
	FindByID(ctx context.Context, id string) (*models.Term, error)
}

type teacherReader interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type roomReader interface {
	FindByID(ctx context.Context, id string) (*models.Room, error)
}

type classGroupReader interface {
	FindByID(ctx context.Context, id string) (*models.ClassGroup, error)
}

type timeSlotReader interface {
	FindByID(ctx context.Context, id string) (*models.TimeSlot, error)
}

// ReferenceService resolves the opaque entity references a schedule proposal
// carries, turning missing rows into NOT_FOUND errors naming the entity.
type ReferenceService struct {
	terms    termReader
	teachers teacherReader
	rooms    roomReader
	groups   classGroupReader
	slots    timeSlotReader
}

// NewReferenceService constructs a ReferenceService.
func NewReferenceService(terms termReader, teachers teacherReader, rooms roomReader, groups classGroupReader, slots timeSlotReader) *ReferenceService {
	return &ReferenceService{terms: terms, teachers: teachers, rooms: rooms, groups: groups, slots: slots}
}

func (s *ReferenceService) TermExists(ctx context.Context, id string) error {
	_, err := s.terms.FindByID(ctx, id)
	return s.translate(err, "term not found")
}

func (s *ReferenceService) TeacherExists(ctx context.Context, id string) error {
	_, err := s.teachers.FindByID(ctx, id)
	return s.translate(err, "teacher not found")
}

func (s *ReferenceService) RoomExists(ctx context.Context, id string) error {
	_, err := s.rooms.FindByID(ctx, id)
	return s.translate(err, "room not found")
}

func (s *ReferenceService) ClassGroupExists(ctx context.Context, id string) error {
	_, err := s.groups.FindByID(ctx, id)
	return s.translate(err, "class group not found")
}

func (s *ReferenceService) TimeSlotExists(ctx context.Context, id string) error {
	_, err := s.slots.FindByID(ctx, id)
	return s.translate(err, "time slot not found")
}

func (s *ReferenceService) translate(err error, message string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, message)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve reference")
}
