package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-substitution-api/internal/models"
	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
)

func TestScoreLessonCandidateQualifiedBeatsUnqualified(t *testing.T) {
	base := models.Teacher{ID: "a", FullName: "Anna"}
	qualified := ScoreLessonCandidate(LessonCandidateFacts{Teacher: base, IsQualified: true})
	unqualified := ScoreLessonCandidate(LessonCandidateFacts{Teacher: base})

	assert.Equal(t, 120, qualified.Score)
	assert.Equal(t, 20, unqualified.Score)
	assert.Contains(t, qualified.MatchReasons, "Qualified for subject")
}

func TestScoreLessonCandidateBusyQualifiedBelowFreeUnqualified(t *testing.T) {
	busy := ScoreLessonCandidate(LessonCandidateFacts{
		Teacher:     models.Teacher{ID: "a", FullName: "Anna"},
		IsQualified: true,
		BusyReason:  "teaching 9a",
	})
	free := ScoreLessonCandidate(LessonCandidateFacts{Teacher: models.Teacher{ID: "b", FullName: "Ben"}})

	assert.True(t, busy.IsBusy)
	assert.Contains(t, busy.MatchReasons, "Busy: teaching 9a")
	assert.Less(t, busy.Score, free.Score)
}

func TestScoreLessonCandidateUnqualifiedCeiling(t *testing.T) {
	avail := models.TeacherAvailability{Importance: 9}
	best := ScoreLessonCandidate(LessonCandidateFacts{
		Teacher:          models.Teacher{ID: "a", AvailableForSubstitution: true},
		IsSameDepartment: true,
		Availability:     &avail,
	})

	assert.Equal(t, 20+15+10+30, best.Score)
	assert.Less(t, best.Score, qualifiedWeight)
	require.NotNil(t, best.AvailabilityImportance)
	assert.Equal(t, 3, *best.AvailabilityImportance)
}

func TestScoreLessonCandidateWorkloadBonusFades(t *testing.T) {
	cases := map[int]int{0: 20, 1: 15, 3: 5, 4: 0, 7: 0}
	for count, want := range cases {
		c := ScoreLessonCandidate(LessonCandidateFacts{Teacher: models.Teacher{ID: "a"}, SubstitutionsThisWeek: count})
		assert.Equal(t, want, c.Score, "count %d", count)
	}
}

func TestScoreLessonCandidateAvoidedSlotStaysInList(t *testing.T) {
	reason := "school run"
	avail := models.TeacherAvailability{Importance: -2, Reason: &reason}
	c := ScoreLessonCandidate(LessonCandidateFacts{Teacher: models.Teacher{ID: "a"}, IsQualified: true, Availability: &avail})

	assert.Equal(t, 100, c.Score)
	assert.Contains(t, c.MatchReasons, "Prefers to avoid this slot (-2)")
	assert.Equal(t, -20, c.AvailabilityAdjustment)
	assert.Equal(t, 120, c.ThresholdScore())
	assert.Equal(t, &reason, c.AvailabilityReason)
}

func TestSortLessonCandidatesTieBreaks(t *testing.T) {
	candidates := []models.SubstituteCandidate{
		{TeacherID: "3", FullName: "carl", Score: 50, SubstitutionsThisWeek: 1},
		{TeacherID: "2", FullName: "Bea", Score: 50, SubstitutionsThisWeek: 1},
		{TeacherID: "1", FullName: "Bea", Score: 50, SubstitutionsThisWeek: 1},
		{TeacherID: "4", FullName: "Dan", Score: 50, SubstitutionsThisWeek: 0},
		{TeacherID: "5", FullName: "Eve", Score: 90, SubstitutionsThisWeek: 3},
	}

	SortLessonCandidates(candidates, SortByScore)

	var ids []string
	for _, c := range candidates {
		ids = append(ids, c.TeacherID)
	}
	assert.Equal(t, []string{"5", "4", "1", "2", "3"}, ids)
}

func TestSortLessonCandidatesByKey(t *testing.T) {
	fresh := func() []models.SubstituteCandidate {
		return []models.SubstituteCandidate{
			{TeacherID: "a", FullName: "Zoe", Score: 10, SubstitutionsThisWeek: 0, IsQualified: true},
			{TeacherID: "b", FullName: "Yan", Score: 90, SubstitutionsThisWeek: 2, IsOnSubstitutionReserve: true},
			{TeacherID: "c", FullName: "Abe", Score: 40, SubstitutionsThisWeek: 1},
		}
	}
	cases := map[SortKey]string{
		SortByScore:     "b",
		SortByWorkload:  "a",
		SortByQualified: "a",
		SortByReserve:   "b",
		SortByName:      "c",
	}
	for key, head := range cases {
		list := fresh()
		SortLessonCandidates(list, key)
		assert.Equal(t, head, list[0].TeacherID, "key %s", key)
	}
}

func TestParseSortKey(t *testing.T) {
	key, err := ParseSortKey("")
	require.NoError(t, err)
	assert.Equal(t, SortByScore, key)

	key, err = ParseSortKey(" Workload ")
	require.NoError(t, err)
	assert.Equal(t, SortByWorkload, key)

	_, err = ParseSortKey("seniority")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}
