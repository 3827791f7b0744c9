package dto

// ReportAbsenceRequest records a new absence. StartTime and EndTime ("HH:MM") are set together
// for a partial-day absence and omitted for a full day.
type ReportAbsenceRequest struct {
	TeacherID string  `json:"teacherId" validate:"required"`
	Date      string  `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime *string `json:"startTime,omitempty" validate:"omitempty,datetime=15:04"`
	EndTime   *string `json:"endTime,omitempty" validate:"omitempty,datetime=15:04"`
	Type      string  `json:"type" validate:"required"`
	Notes     *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// AssignSubstituteRequest covers one affected lesson.
type AssignSubstituteRequest struct {
	ScheduledLessonID   string  `json:"scheduledLessonId" validate:"required"`
	SubstituteTeacherID *string `json:"substituteTeacherId,omitempty"`
	CoverageType        string  `json:"coverageType" validate:"required"`
	Notes               *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// AssignSupervisionSubstituteRequest covers one affected break supervision duty.
type AssignSupervisionSubstituteRequest struct {
	DutyID              string  `json:"dutyId" validate:"required"`
	SubstituteTeacherID *string `json:"substituteTeacherId,omitempty"`
	CoverageType        string  `json:"coverageType" validate:"required"`
	Notes               *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// AutoAssignRequest tunes a greedy assignment run. A nil MinimumScore uses the configured default.
type AutoAssignRequest struct {
	MinimumScore *int `json:"minimumScore,omitempty"`
}

// AbsenceQuery captures list filters from the query string.
type AbsenceQuery struct {
	Date      string `form:"date"`
	TeacherID string `form:"teacherId"`
	Status    string `form:"status"`
	Page      int    `form:"page"`
	PageSize  int    `form:"pageSize"`
}
