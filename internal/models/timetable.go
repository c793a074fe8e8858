package models

// TimetableLesson is one cell of the weekly timetable projection.
type TimetableLesson struct {
	ScheduleID string `json:"schedule_id"`
	Subject    string `json:"subject"`
	Teacher    string `json:"teacher"`
	ClassGroup string `json:"class_group"`
	Room       string `json:"room"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
}

// TimetableDay groups a day's lessons ordered by start time.
type TimetableDay struct {
	Day     DayOfWeek         `json:"day"`
	Lessons []TimetableLesson `json:"lessons"`
}

// WeeklyTimetable is the derived, cacheable weekly view for one user and term.
// It is a projection over ClassSchedule rows, never a source of truth.
type WeeklyTimetable struct {
	TermID string         `json:"term_id"`
	Scope  string         `json:"scope"`
	Days   []TimetableDay `json:"days"`
}

// TimetableRow is the joined read-model a timetable query returns per lesson.
type TimetableRow struct {
	ScheduleID  string    `db:"schedule_id"`
	SubjectName string    `db:"subject_name"`
	TeacherName string    `db:"teacher_name"`
	GroupName   string    `db:"group_name"`
	RoomName    string    `db:"room_name"`
	DayOfWeek   DayOfWeek `db:"day_of_week"`
	StartTime   string    `db:"start_time"`
	EndTime     string    `db:"end_time"`
}
