package models

import (
	"fmt"
	"strings"
	"time"
)

// DayOfWeek names a teaching day on the weekly grid.
type DayOfWeek string

const (
	Monday    DayOfWeek = "MONDAY"
	Tuesday   DayOfWeek = "TUESDAY"
	Wednesday DayOfWeek = "WEDNESDAY"
	Thursday  DayOfWeek = "THURSDAY"
	Friday    DayOfWeek = "FRIDAY"
	Saturday  DayOfWeek = "SATURDAY"
)

// Days lists teaching days in week order.
var Days = []DayOfWeek{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

var dayIndex = map[DayOfWeek]int{
	Monday:    0,
	Tuesday:   1,
	Wednesday: 2,
	Thursday:  3,
	Friday:    4,
	Saturday:  5,
}

// Index returns the day's position in the week, Monday being 0.
// Unknown days sort last.
func (d DayOfWeek) Index() int {
	if idx, ok := dayIndex[d]; ok {
		return idx
	}
	return len(dayIndex)
}

// Valid reports whether d names a teaching day.
func (d DayOfWeek) Valid() bool {
	_, ok := dayIndex[d]
	return ok
}

// ParseDay normalises user input into a DayOfWeek.
func ParseDay(raw string) (DayOfWeek, error) {
	day := DayOfWeek(strings.ToUpper(strings.TrimSpace(raw)))
	if !day.Valid() {
		return "", fmt.Errorf("unknown day of week %q", raw)
	}
	return day, nil
}

// TimeSlot is a fixed weekly grid cell. Times are school-local wall clock
// in "HH:MM" form; there is no timezone component.
type TimeSlot struct {
	ID        string    `db:"id" json:"id"`
	DayOfWeek DayOfWeek `db:"day_of_week" json:"day_of_week"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ParseClock converts an "HH:MM" wall-clock string into minutes since midnight.
func ParseClock(raw string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", raw)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock renders minutes since midnight as a zero-padded "HH:MM" string.
// Stored times must be canonical so that lexicographic ordering on the text
// column matches chronological order.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Overlaps reports whether two [start,end) intervals on the same day intersect.
// Slots on different days never overlap.
func (s TimeSlot) Overlaps(other TimeSlot) bool {
	if s.DayOfWeek != other.DayOfWeek {
		return false
	}
	aStart, err := ParseClock(s.StartTime)
	if err != nil {
		return false
	}
	aEnd, err := ParseClock(s.EndTime)
	if err != nil {
		return false
	}
	bStart, err := ParseClock(other.StartTime)
	if err != nil {
		return false
	}
	bEnd, err := ParseClock(other.EndTime)
	if err != nil {
		return false
	}
	return bStart < aEnd && bEnd > aStart
}
