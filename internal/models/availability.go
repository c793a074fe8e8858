package models

import "time"

// TeacherAvailability records whether a teacher can be scheduled for a slot.
// At most one row exists per (teacher, time_slot) pair; writes upsert.
// A missing row means unavailable.
type TeacherAvailability struct {
	ID          string    `db:"id" json:"id"`
	TeacherID   string    `db:"teacher_id" json:"teacher_id"`
	TimeSlotID  string    `db:"time_slot_id" json:"time_slot_id"`
	IsAvailable bool      `db:"is_available" json:"is_available"`
	Reason      string    `db:"reason" json:"reason,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
