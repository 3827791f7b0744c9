package models

import "time"

// CoverageType describes how an affected lesson is handled.
type CoverageType string

const (
	CoverageTeacherSubstitute CoverageType = "TEACHER_SUBSTITUTE"
	CoverageClassMerger       CoverageType = "CLASS_MERGER"
	CoverageSelfStudy         CoverageType = "SELF_STUDY"
	CoverageCancelled         CoverageType = "CANCELLED"
	CoverageRoomChange        CoverageType = "ROOM_CHANGE"
	CoverageRescheduled       CoverageType = "RESCHEDULED"
)

// ValidForLesson reports whether the coverage type applies to lessons.
func (c CoverageType) ValidForLesson() bool {
	switch c {
	case CoverageTeacherSubstitute, CoverageClassMerger, CoverageSelfStudy,
		CoverageCancelled, CoverageRoomChange, CoverageRescheduled:
		return true
	default:
		return false
	}
}

// SupervisionCoverageType describes how an affected supervision duty is handled.
type SupervisionCoverageType string

const (
	SupervisionTeacherSubstitute SupervisionCoverageType = "TEACHER_SUBSTITUTE"
	SupervisionCancelled         SupervisionCoverageType = "CANCELLED"
	SupervisionCombinedArea      SupervisionCoverageType = "COMBINED_AREA"
)

// Valid reports whether the supervision coverage type is known.
func (c SupervisionCoverageType) Valid() bool {
	switch c {
	case SupervisionTeacherSubstitute, SupervisionCancelled, SupervisionCombinedArea:
		return true
	default:
		return false
	}
}

// Substitution covers one lesson occurrence during one absence.
// A nil SubstituteTeacherID means the lesson is handled without a teacher.
type Substitution struct {
	ID                  string       `db:"id" json:"id"`
	AbsenceID           string       `db:"absence_id" json:"absence_id"`
	ScheduledLessonID   string       `db:"scheduled_lesson_id" json:"scheduled_lesson_id"`
	SubstituteTeacherID *string      `db:"substitute_teacher_id" json:"substitute_teacher_id,omitempty"`
	CoverageType        CoverageType `db:"coverage_type" json:"coverage_type"`
	AssignedAt          time.Time    `db:"assigned_at" json:"assigned_at"`
	AssignedBy          *string      `db:"assigned_by" json:"assigned_by,omitempty"`
	EmailSent           bool         `db:"email_sent" json:"email_sent"`
	EmailSentAt         *time.Time   `db:"email_sent_at" json:"email_sent_at,omitempty"`
	HoursWorked         float64      `db:"hours_worked" json:"hours_worked"`
	PayRate             float64      `db:"pay_rate" json:"pay_rate"`
	ComputedPay         float64      `db:"computed_pay" json:"computed_pay"`
	Notes               *string      `db:"notes" json:"notes,omitempty"`
}

// BreakSupervisionSubstitution covers one supervision duty during one absence.
type BreakSupervisionSubstitution struct {
	ID                     string                  `db:"id" json:"id"`
	AbsenceID              string                  `db:"absence_id" json:"absence_id"`
	BreakSupervisionDutyID string                  `db:"break_supervision_duty_id" json:"break_supervision_duty_id"`
	SubstituteTeacherID    *string                 `db:"substitute_teacher_id" json:"substitute_teacher_id,omitempty"`
	CoverageType           SupervisionCoverageType `db:"coverage_type" json:"coverage_type"`
	AssignedAt             time.Time               `db:"assigned_at" json:"assigned_at"`
	AssignedBy             *string                 `db:"assigned_by" json:"assigned_by,omitempty"`
	EmailSent              bool                    `db:"email_sent" json:"email_sent"`
	EmailSentAt            *time.Time              `db:"email_sent_at" json:"email_sent_at,omitempty"`
	Notes                  *string                 `db:"notes" json:"notes,omitempty"`
}

// PlanEntry is one row of the daily substitution plan.
type PlanEntry struct {
	Kind              string  `db:"kind" json:"kind"`
	Period            int     `db:"period" json:"period"`
	Label             string  `db:"label" json:"label"`
	AbsentTeacherName string  `db:"absent_teacher_name" json:"absent_teacher_name"`
	SubstituteName    *string `db:"substitute_name" json:"substitute_name,omitempty"`
	CoverageType      string  `db:"coverage_type" json:"coverage_type"`
	Notes             *string `db:"notes" json:"notes,omitempty"`
}
