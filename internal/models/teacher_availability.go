package models

// Importance bounds for teacher time preferences.
const (
	MinAvailabilityImportance = -3
	MaxAvailabilityImportance = 3
)

// TeacherAvailability stores a soft per day/period preference. Negative values mean the teacher
// prefers to avoid the slot, positive values mean the slot is preferred.
type TeacherAvailability struct {
	ID         string  `db:"id" json:"id"`
	TeacherID  string  `db:"teacher_id" json:"teacher_id"`
	DayOfWeek  int     `db:"day_of_week" json:"day_of_week"`
	Period     int     `db:"period" json:"period"`
	Importance int     `db:"importance" json:"importance"`
	Reason     *string `db:"reason" json:"reason,omitempty"`
}

// ClampedImportance returns the importance limited to the -3..+3 scale.
func (a TeacherAvailability) ClampedImportance() int {
	switch {
	case a.Importance < MinAvailabilityImportance:
		return MinAvailabilityImportance
	case a.Importance > MaxAvailabilityImportance:
		return MaxAvailabilityImportance
	default:
		return a.Importance
	}
}

// TeacherSubject marks a teacher qualification for a subject.
type TeacherSubject struct {
	TeacherID string `db:"teacher_id" json:"teacher_id"`
	SubjectID string `db:"subject_id" json:"subject_id"`
	Qualified bool   `db:"qualified" json:"qualified"`
}
