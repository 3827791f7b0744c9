package models

import "time"

// AbsenceType enumerates why a teacher is absent.
type AbsenceType string

const (
	AbsenceTypeSick               AbsenceType = "SICK"
	AbsenceTypePersonal           AbsenceType = "PERSONAL"
	AbsenceTypeProfessional       AbsenceType = "PROFESSIONAL"
	AbsenceTypeMeeting            AbsenceType = "MEETING"
	AbsenceTypeEmergency          AbsenceType = "EMERGENCY"
	AbsenceTypeVacation           AbsenceType = "VACATION"
	AbsenceTypeAdministrativeDuty AbsenceType = "ADMINISTRATIVE_DUTY"
	AbsenceTypeOther              AbsenceType = "OTHER"
)

// Valid reports whether the type is one of the known values.
func (t AbsenceType) Valid() bool {
	switch t {
	case AbsenceTypeSick, AbsenceTypePersonal, AbsenceTypeProfessional, AbsenceTypeMeeting,
		AbsenceTypeEmergency, AbsenceTypeVacation, AbsenceTypeAdministrativeDuty, AbsenceTypeOther:
		return true
	default:
		return false
	}
}

// AbsenceStatus tracks reporting and coverage progress.
type AbsenceStatus string

const (
	AbsenceStatusReported         AbsenceStatus = "REPORTED"
	AbsenceStatusConfirmed        AbsenceStatus = "CONFIRMED"
	AbsenceStatusBeingCovered     AbsenceStatus = "BEING_COVERED"
	AbsenceStatusCovered          AbsenceStatus = "COVERED"
	AbsenceStatusPartiallyCovered AbsenceStatus = "PARTIALLY_COVERED"
	AbsenceStatusNotCovered       AbsenceStatus = "NOT_COVERED"
)

// Absence is a reported interval during which a teacher cannot fulfil scheduled duties.
// StartTime and EndTime are both nil for a full-day absence.
type Absence struct {
	ID         string        `db:"id" json:"id"`
	TeacherID  string        `db:"teacher_id" json:"teacher_id"`
	Date       time.Time     `db:"date" json:"date"`
	StartTime  *string       `db:"start_time" json:"start_time,omitempty"`
	EndTime    *string       `db:"end_time" json:"end_time,omitempty"`
	Type       AbsenceType   `db:"type" json:"type"`
	Status     AbsenceStatus `db:"status" json:"status"`
	TotalHours float64       `db:"total_hours" json:"total_hours"`
	Notes      *string       `db:"notes" json:"notes,omitempty"`
	ReportedBy *string       `db:"reported_by" json:"reported_by,omitempty"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updated_at"`
}

// IsPartialDay reports whether both time bounds are set.
func (a Absence) IsPartialDay() bool {
	return a.StartTime != nil && a.EndTime != nil
}

// Window returns the absence clock window for partial-day absences.
func (a Absence) Window() (ClockWindow, bool, error) {
	if !a.IsPartialDay() {
		return ClockWindow{}, false, nil
	}
	w, err := NewClockWindow(*a.StartTime, *a.EndTime)
	if err != nil {
		return ClockWindow{}, true, err
	}
	return w, true, nil
}

// DayOfWeek returns the ISO day of the absence date.
func (a Absence) DayOfWeek() int {
	return ISODayOfWeek(a.Date)
}

// AbsenceFilter describes query params for listing absences.
type AbsenceFilter struct {
	Date      *time.Time
	TeacherID string
	Status    AbsenceStatus
	Page      int
	PageSize  int
}
