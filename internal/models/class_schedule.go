package models

import (
	"sort"
	"time"
)

// ClassSchedule binds a teacher, subject, class group and room to a time slot
// within a term. Within one (term, time_slot) pair the teacher, the room and
// the class group must each be unique across rows.
type ClassSchedule struct {
	ID           string    `db:"id" json:"id"`
	TermID       string    `db:"term_id" json:"term_id"`
	ClassGroupID string    `db:"class_group_id" json:"class_group_id"`
	SubjectID    string    `db:"subject_id" json:"subject_id"`
	TeacherID    string    `db:"teacher_id" json:"teacher_id"`
	TimeSlotID   string    `db:"time_slot_id" json:"time_slot_id"`
	RoomID       string    `db:"room_id" json:"room_id"`
	IsRecurring  bool      `db:"is_recurring" json:"is_recurring"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ClassScheduleFilter narrows schedule listings.
type ClassScheduleFilter struct {
	TermID       string
	ClassGroupID string
	TeacherID    string
	TimeSlotID   string
	RoomID       string
	Page         int
	PageSize     int
}

// ConflictKind names the invariant a proposed assignment violates.
type ConflictKind string

const (
	ConflictTeacherUnavailable     ConflictKind = "teacher_unavailable"
	ConflictTeacherDoubleBooked    ConflictKind = "teacher_double_booked"
	ConflictRoomDoubleBooked       ConflictKind = "room_double_booked"
	ConflictClassGroupDoubleBooked ConflictKind = "class_group_double_booked"
)

var conflictKindOrder = map[ConflictKind]int{
	ConflictTeacherUnavailable:     0,
	ConflictTeacherDoubleBooked:    1,
	ConflictRoomDoubleBooked:       2,
	ConflictClassGroupDoubleBooked: 3,
}

// ConflictDescriptor is a structured record naming a violated invariant and,
// when applicable, the existing schedule it clashes with.
type ConflictDescriptor struct {
	Kind                  ConflictKind `json:"kind"`
	Message               string       `json:"message"`
	ConflictingScheduleID string       `json:"conflicting_schedule_id,omitempty"`
}

// SortConflicts orders descriptors by kind (availability first, then teacher,
// room, class group) and by conflicting schedule ID ascending within a kind,
// so that repeated checks over the same state yield identical output.
func SortConflicts(conflicts []ConflictDescriptor) {
	sort.SliceStable(conflicts, func(i, j int) bool {
		ki, kj := conflictKindOrder[conflicts[i].Kind], conflictKindOrder[conflicts[j].Kind]
		if ki != kj {
			return ki < kj
		}
		return conflicts[i].ConflictingScheduleID < conflicts[j].ConflictingScheduleID
	})
}

// ScheduleConflictError carries the full conflict list for a rejected proposal.
type ScheduleConflictError struct {
	Message   string               `json:"message"`
	Conflicts []ConflictDescriptor `json:"conflicts"`
}

// Error implements the error interface for conflict errors.
func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
