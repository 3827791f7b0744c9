package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/noah-isme/sma-substitution-api/internal/models"
	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
)

// Lesson scoring weights. Qualification outweighs the sum of every other bonus, and the busy
// penalty outweighs qualification.
const (
	qualifiedWeight        = 100
	busyPenalty            = 150
	workloadBonusBase      = 20
	workloadBonusStep      = 5
	sameDepartmentBonus    = 15
	reserveBonus           = 10
	availabilityWeightStep = 10
)

// SortKey selects the ordering of a lesson candidate list.
type SortKey string

// Supported sort keys.
const (
	SortByScore     SortKey = "score"
	SortByWorkload  SortKey = "workload"
	SortByQualified SortKey = "qualified"
	SortByReserve   SortKey = "reserve"
	SortByName      SortKey = "name"
)

// ParseSortKey maps a query value onto a SortKey. Empty selects score.
func ParseSortKey(raw string) (SortKey, error) {
	switch key := SortKey(strings.ToLower(strings.TrimSpace(raw))); key {
	case "":
		return SortByScore, nil
	case SortByScore, SortByWorkload, SortByQualified, SortByReserve, SortByName:
		return key, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported sort key %q", raw))
	}
}

// LessonCandidateFacts is the snapshot a lesson candidate is scored from.
type LessonCandidateFacts struct {
	Teacher               models.Teacher
	IsQualified           bool
	BusyReason            string
	SubstitutionsThisWeek int
	IsSameDepartment      bool
	Availability          *models.TeacherAvailability
}

// ScoreLessonCandidate computes the additive score and reasons for one candidate.
func ScoreLessonCandidate(f LessonCandidateFacts) models.SubstituteCandidate {
	c := models.SubstituteCandidate{
		TeacherID:               f.Teacher.ID,
		FullName:                f.Teacher.FullName,
		Email:                   f.Teacher.Email,
		IsQualified:             f.IsQualified,
		IsBusy:                  f.BusyReason != "",
		SubstitutionsThisWeek:   f.SubstitutionsThisWeek,
		IsSameDepartment:        f.IsSameDepartment,
		IsOnSubstitutionReserve: f.Teacher.AvailableForSubstitution,
		MatchReasons:            []string{},
	}

	if c.IsQualified {
		c.Score += qualifiedWeight
		c.MatchReasons = append(c.MatchReasons, "Qualified for subject")
	}
	if c.IsBusy {
		c.Score -= busyPenalty
		c.MatchReasons = append(c.MatchReasons, "Busy: "+f.BusyReason)
	}
	if bonus := workloadBonusBase - workloadBonusStep*f.SubstitutionsThisWeek; bonus > 0 {
		c.Score += bonus
		c.MatchReasons = append(c.MatchReasons, fmt.Sprintf("Low substitution load (%d this week)", f.SubstitutionsThisWeek))
	}
	if c.IsSameDepartment {
		c.Score += sameDepartmentBonus
		c.MatchReasons = append(c.MatchReasons, "Same department")
	}
	if c.IsOnSubstitutionReserve {
		c.Score += reserveBonus
		c.MatchReasons = append(c.MatchReasons, "On substitution reserve")
	}
	if f.Availability != nil {
		importance := f.Availability.ClampedImportance()
		c.AvailabilityImportance = &importance
		c.AvailabilityReason = f.Availability.Reason
		c.AvailabilityAdjustment = importance * availabilityWeightStep
		c.Score += c.AvailabilityAdjustment
		switch {
		case importance > 0:
			c.MatchReasons = append(c.MatchReasons, fmt.Sprintf("Prefers this slot (+%d)", importance))
		case importance < 0:
			c.MatchReasons = append(c.MatchReasons, fmt.Sprintf("Prefers to avoid this slot (%d)", importance))
		}
	}
	return c
}

// SortLessonCandidates orders candidates in place. Every key falls back to name then id.
func SortLessonCandidates(candidates []models.SubstituteCandidate, key SortKey) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		switch key {
		case SortByWorkload:
			if a.SubstitutionsThisWeek != b.SubstitutionsThisWeek {
				return a.SubstitutionsThisWeek < b.SubstitutionsThisWeek
			}
		case SortByQualified:
			if a.IsQualified != b.IsQualified {
				return a.IsQualified
			}
		case SortByReserve:
			if a.IsOnSubstitutionReserve != b.IsOnSubstitutionReserve {
				return a.IsOnSubstitutionReserve
			}
		case SortByName:
		default:
			if a.Score != b.Score {
				return a.Score > b.Score
			}
			if a.SubstitutionsThisWeek != b.SubstitutionsThisWeek {
				return a.SubstitutionsThisWeek < b.SubstitutionsThisWeek
			}
		}
		return byNameThenID(a.FullName, a.TeacherID, b.FullName, b.TeacherID)
	})
}

func byNameThenID(nameA, idA, nameB, idB string) bool {
	la, lb := strings.ToLower(nameA), strings.ToLower(nameB)
	if la != lb {
		return la < lb
	}
	return idA < idB
}
