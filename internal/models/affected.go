package models

// AffectedLesson is a lesson the absent teacher can no longer hold.
type AffectedLesson struct {
	Lesson         ScheduledLesson `json:"lesson"`
	StartTime      string          `json:"start_time,omitempty"`
	EndTime        string          `json:"end_time,omitempty"`
	Covered        bool            `json:"covered"`
	SubstitutionID *string         `json:"substitution_id,omitempty"`
}

// AffectedDuty is a supervision duty the absent teacher can no longer hold.
type AffectedDuty struct {
	Duty           BreakSupervisionDuty `json:"duty"`
	Covered        bool                 `json:"covered"`
	SubstitutionID *string              `json:"substitution_id,omitempty"`
}

// AffectedItems groups the items invalidated by one absence, each ordered by period.
// TimetableMissing is set when no timetable is published; both lists are then empty.
type AffectedItems struct {
	AbsenceID        string           `json:"absence_id"`
	TimetableID      string           `json:"timetable_id,omitempty"`
	TimetableMissing bool             `json:"timetable_missing"`
	Lessons          []AffectedLesson `json:"lessons"`
	Duties           []AffectedDuty   `json:"duties"`
}

// CoveredLessons counts lessons that already have a substitution.
func (a AffectedItems) CoveredLessons() int {
	n := 0
	for _, l := range a.Lessons {
		if l.Covered {
			n++
		}
	}
	return n
}

// AbsenceCoverage is the absence together with every recorded substitution.
type AbsenceCoverage struct {
	Absence                  Absence                        `json:"absence"`
	Substitutions            []Substitution                 `json:"substitutions"`
	SupervisionSubstitutions []BreakSupervisionSubstitution `json:"supervision_substitutions"`
}

// AutoAssignResult summarises one greedy assignment run.
type AutoAssignResult struct {
	AbsenceID     string         `json:"absence_id"`
	MinimumScore  int            `json:"minimum_score"`
	AssignedCount int            `json:"assigned_count"`
	FailedCount   int            `json:"failed_count"`
	Skipped       int            `json:"already_assigned"`
	Assignments   []Substitution `json:"assignments"`
	Status        AbsenceStatus  `json:"status"`
}
