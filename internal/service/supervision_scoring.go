package service

import (
	"fmt"
	"sort"

	"github.com/noah-isme/sma-substitution-api/internal/models"
)

const (
	freePeriodBonus      = 100
	noSupervisionsBonus  = 30
	lowWorkloadBonus     = 15
	lowWorkloadThreshold = 2
	supervisionDeptBonus = 20
)

// SupervisionCandidateFacts is the snapshot a supervision candidate is scored from.
type SupervisionCandidateFacts struct {
	Teacher                  models.Teacher
	HasLessonThisPeriod      bool
	HasSupervisionThisPeriod bool
	SupervisionsThisWeek     int
	IsSameDepartment         bool
}

// ScoreSupervisionCandidate applies the fixed supervision tiers.
func ScoreSupervisionCandidate(f SupervisionCandidateFacts) models.SupervisionCandidate {
	c := models.SupervisionCandidate{
		TeacherID:                f.Teacher.ID,
		FullName:                 f.Teacher.FullName,
		Email:                    f.Teacher.Email,
		HasLessonThisPeriod:      f.HasLessonThisPeriod,
		HasSupervisionThisPeriod: f.HasSupervisionThisPeriod,
		SupervisionsThisWeek:     f.SupervisionsThisWeek,
		IsSameDepartment:         f.IsSameDepartment,
		MatchReasons:             []string{},
	}

	switch {
	case !f.HasLessonThisPeriod && !f.HasSupervisionThisPeriod:
		c.Score += freePeriodBonus
		c.MatchReasons = append(c.MatchReasons, "Free this period")
	case f.HasLessonThisPeriod && f.HasSupervisionThisPeriod:
		c.MatchReasons = append(c.MatchReasons, "Teaching and supervising this period")
	case f.HasLessonThisPeriod:
		c.MatchReasons = append(c.MatchReasons, "Teaching this period")
	default:
		c.MatchReasons = append(c.MatchReasons, "Already supervising this period")
	}

	switch {
	case f.SupervisionsThisWeek == 0:
		c.Score += noSupervisionsBonus
		c.MatchReasons = append(c.MatchReasons, "No other supervisions")
	case f.SupervisionsThisWeek <= lowWorkloadThreshold:
		c.Score += lowWorkloadBonus
		c.MatchReasons = append(c.MatchReasons, fmt.Sprintf("Low workload (%d)", f.SupervisionsThisWeek))
	}

	if f.IsSameDepartment {
		c.Score += supervisionDeptBonus
		c.MatchReasons = append(c.MatchReasons, "Same department")
	}
	return c
}

// SortSupervisionCandidates orders by score desc, weekly supervisions asc, then name.
func SortSupervisionCandidates(candidates []models.SupervisionCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.SupervisionsThisWeek != b.SupervisionsThisWeek {
			return a.SupervisionsThisWeek < b.SupervisionsThisWeek
		}
		return byNameThenID(a.FullName, a.TeacherID, b.FullName, b.TeacherID)
	})
}
