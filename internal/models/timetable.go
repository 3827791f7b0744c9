package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
)

// TimetableStatus represents lifecycle phases for a timetable.
type TimetableStatus string

const (
	TimetableStatusDraft     TimetableStatus = "DRAFT"
	TimetableStatusPublished TimetableStatus = "PUBLISHED"
	TimetableStatusArchived  TimetableStatus = "ARCHIVED"
)

// Timetable is a versioned weekly schedule. Only one timetable is published at a time.
type Timetable struct {
	ID          string          `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Status      TimetableStatus `db:"status" json:"status"`
	PublishedAt *time.Time      `db:"published_at" json:"published_at,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// Period maps a period number onto wall clock times ("HH:MM").
type Period struct {
	Number    int    `db:"number" json:"number"`
	StartTime string `db:"start_time" json:"start_time"`
	EndTime   string `db:"end_time" json:"end_time"`
}

// Window returns the period bounds in minutes since midnight.
func (p Period) Window() (ClockWindow, error) {
	return NewClockWindow(p.StartTime, p.EndTime)
}

// Hours returns the period length in hours, zero when the times are unparsable.
func (p Period) Hours() float64 {
	w, err := p.Window()
	if err != nil {
		return 0
	}
	return float64(w.End-w.Start) / 60
}

// ScheduledLesson is one weekly lesson occurrence within a timetable.
type ScheduledLesson struct {
	ID          string         `db:"id" json:"id"`
	TimetableID string         `db:"timetable_id" json:"timetable_id"`
	DayOfWeek   int            `db:"day_of_week" json:"day_of_week"`
	Period      int            `db:"period" json:"period"`
	TeacherIDs  pq.StringArray `db:"teacher_ids" json:"teacher_ids"`
	SubjectIDs  pq.StringArray `db:"subject_ids" json:"subject_ids"`
	ClassIDs    pq.StringArray `db:"class_ids" json:"class_ids"`
	RoomIDs     pq.StringArray `db:"room_ids" json:"room_ids"`
	Label       string         `db:"label" json:"label"`
}

// TaughtBy reports whether the teacher is one of the lesson's teachers.
func (l ScheduledLesson) TaughtBy(teacherID string) bool {
	for _, id := range l.TeacherIDs {
		if id == teacherID {
			return true
		}
	}
	return false
}

// BreakSupervisionDuty is a recurring supervision slot (e.g. yard duty).
type BreakSupervisionDuty struct {
	ID          string  `db:"id" json:"id"`
	TimetableID string  `db:"timetable_id" json:"timetable_id"`
	Room        string  `db:"room" json:"room"`
	DayOfWeek   int     `db:"day_of_week" json:"day_of_week"`
	Period      int     `db:"period" json:"period"`
	TeacherID   *string `db:"teacher_id" json:"teacher_id,omitempty"`
	Active      bool    `db:"active" json:"active"`
}

// ClockWindow is a half-open [Start, End) range in minutes since midnight.
type ClockWindow struct {
	Start int
	End   int
}

// NewClockWindow parses both bounds and rejects inverted or empty ranges.
func NewClockWindow(start, end string) (ClockWindow, error) {
	s, err := ParseClock(start)
	if err != nil {
		return ClockWindow{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return ClockWindow{}, err
	}
	if e <= s {
		return ClockWindow{}, fmt.Errorf("end %s must be after start %s", end, start)
	}
	return ClockWindow{Start: s, End: e}, nil
}

// Overlaps uses open-interval overlap: a.start < b.end && a.end > b.start.
func (w ClockWindow) Overlaps(other ClockWindow) bool {
	return w.Start < other.End && w.End > other.Start
}

// ParseClock converts "HH:MM" or "HH:MM:SS" into minutes since midnight.
func ParseClock(raw string) (int, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid clock time %q", raw)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 24 {
		return 0, fmt.Errorf("invalid clock time %q", raw)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 || (hours == 24 && minutes > 0) {
		return 0, fmt.Errorf("invalid clock time %q", raw)
	}
	return hours*60 + minutes, nil
}

// ISODayOfWeek returns 1 for Monday through 7 for Sunday.
func ISODayOfWeek(t time.Time) int {
	day := int(t.Weekday())
	if day == 0 {
		return 7
	}
	return day
}

// ISOWeekBounds returns the Monday 00:00 and the following Monday of the ISO week containing t.
func ISOWeekBounds(t time.Time) (time.Time, time.Time) {
	date := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	start := date.AddDate(0, 0, -(ISODayOfWeek(date) - 1))
	return start, start.AddDate(0, 0, 7)
}
