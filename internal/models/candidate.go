package models

// SubstituteCandidate is the ranked view of one teacher for an affected lesson.
type SubstituteCandidate struct {
	TeacherID               string   `json:"teacher_id"`
	FullName                string   `json:"full_name"`
	Email                   string   `json:"email,omitempty"`
	Score                   int      `json:"score"`
	IsQualified             bool     `json:"is_qualified"`
	IsBusy                  bool     `json:"is_busy"`
	SubstitutionsThisWeek   int      `json:"substitutions_this_week"`
	IsSameDepartment        bool     `json:"is_same_department"`
	IsOnSubstitutionReserve bool     `json:"is_on_substitution_reserve"`
	AvailabilityImportance  *int     `json:"availability_importance,omitempty"`
	AvailabilityReason      *string  `json:"availability_reason,omitempty"`
	AvailabilityAdjustment  int      `json:"availability_adjustment"`
	MatchReasons            []string `json:"match_reasons"`
}

// ThresholdScore is the score without the availability adjustment. Availability reorders
// candidates but never lifts or drops one across an auto-assign threshold.
func (c SubstituteCandidate) ThresholdScore() int {
	return c.Score - c.AvailabilityAdjustment
}

// SupervisionCandidate is the ranked view of one teacher for an affected supervision duty.
type SupervisionCandidate struct {
	TeacherID                string   `json:"teacher_id"`
	FullName                 string   `json:"full_name"`
	Email                    string   `json:"email,omitempty"`
	Score                    int      `json:"score"`
	HasLessonThisPeriod      bool     `json:"has_lesson_this_period"`
	HasSupervisionThisPeriod bool     `json:"has_supervision_this_period"`
	SupervisionsThisWeek     int      `json:"supervisions_this_week"`
	IsSameDepartment         bool     `json:"is_same_department"`
	MatchReasons             []string `json:"match_reasons"`
}
