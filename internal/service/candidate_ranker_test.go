package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-substitution-api/internal/models"
	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
)

type memoryRankingCache struct {
	entries     map[string][]byte
	gets        int
	sets        int
	invalidated []string
}

func newMemoryRankingCache() *memoryRankingCache {
	return &memoryRankingCache{entries: map[string][]byte{}}
}

func (c *memoryRankingCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	c.gets++
	raw, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *memoryRankingCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.sets++
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

func (c *memoryRankingCache) Invalidate(ctx context.Context, pattern string) error {
	c.invalidated = append(c.invalidated, pattern)
	c.entries = map[string][]byte{}
	return nil
}

func rankerDeps(s *school) RankerDeps {
	return RankerDeps{
		Absences:      fakeAbsences{s},
		Calendar:      fakeAbsences{s},
		Teachers:      fakeTeachers{s},
		Timetables:    fakeTimetables{s},
		Lessons:       fakeLessons{s},
		Duties:        fakeDuties{s},
		Availability:  fakeAvailability{s},
		Substitutions: fakeSubstitutions{s},
		Supervisions:  fakeSupervisionSubs{s},
	}
}

func candidateByID(list []models.SubstituteCandidate, id string) models.SubstituteCandidate {
	for _, c := range list {
		if c.TeacherID == id {
			return c
		}
	}
	return models.SubstituteCandidate{}
}

func TestCandidateRankerExcludesAbsentTeacher(t *testing.T) {
	s := mondaySchool()
	ranker := NewCandidateRanker(rankerDeps(s))

	list, err := ranker.RankSubstitutes(context.Background(), "T", "l1", monday, "")
	require.NoError(t, err)
	require.Len(t, list, 3)
	for _, c := range list {
		assert.NotEqual(t, "T", c.TeacherID)
	}
	assert.Equal(t, "U", list[0].TeacherID)
	assert.Equal(t, 120, list[0].Score)
	assert.Equal(t, "W", list[1].TeacherID)
	assert.Equal(t, 35, list[1].Score)
	assert.Equal(t, "V", list[2].TeacherID)
	assert.Equal(t, 30, list[2].Score)
}

func TestCandidateRankerFlagsTeacherTeachingInSlot(t *testing.T) {
	s := mondaySchool()
	ranker := NewCandidateRanker(rankerDeps(s))

	list, err := ranker.RankSubstitutes(context.Background(), "T", "l3", monday, "score")
	require.NoError(t, err)

	u := candidateByID(list, "U")
	assert.True(t, u.IsBusy)
	assert.False(t, u.IsQualified)
	assert.Contains(t, u.MatchReasons, "Busy: teaching Math 9a")
	assert.Equal(t, "W", list[0].TeacherID)
}

func TestCandidateRankerFlagsCoTeacherOfTargetLesson(t *testing.T) {
	s := mondaySchool()
	s.lessons[0].TeacherIDs = []string{"T", "W"}
	s.qualifications["math"] = []string{"U", "W"}
	ranker := NewCandidateRanker(rankerDeps(s))

	list, err := ranker.RankSubstitutes(context.Background(), "T", "l1", monday, "")
	require.NoError(t, err)

	w := candidateByID(list, "W")
	assert.True(t, w.IsBusy)
	assert.True(t, w.IsQualified)
	assert.Contains(t, w.MatchReasons, "Busy: co-teaching Math 5a")
	assert.Equal(t, "U", list[0].TeacherID)
	assert.False(t, list[0].IsBusy)
}

func TestCandidateRankerFlagsOtherAbsencesAndSubstitutions(t *testing.T) {
	s := mondaySchool()
	s.addAbsence("a2", "W", monday, strPtr("07:30"), strPtr("09:00"))
	s.addAbsence("a3", "V", monday, strPtr("11:00"), strPtr("12:00"))
	s.addLesson("w1", 1, 1, "X", "art", "Art 8a")
	s.subs = append(s.subs, models.Substitution{ID: "s0", AbsenceID: "a2", ScheduledLessonID: "w1", SubstituteTeacherID: strPtr("U"), CoverageType: models.CoverageTeacherSubstitute})
	ranker := NewCandidateRanker(rankerDeps(s))

	list, err := ranker.RankSubstitutes(context.Background(), "T", "l1", monday, "")
	require.NoError(t, err)

	assert.Contains(t, candidateByID(list, "W").MatchReasons, "Busy: absent")
	assert.Contains(t, candidateByID(list, "U").MatchReasons, "Busy: already substituting this period")
	assert.False(t, candidateByID(list, "V").IsBusy)
	assert.Equal(t, 1, candidateByID(list, "U").SubstitutionsThisWeek)
}

func TestCandidateRankerAvailabilityReorders(t *testing.T) {
	s := mondaySchool()
	s.availability = append(s.availability,
		models.TeacherAvailability{TeacherID: "V", DayOfWeek: 1, Period: 1, Importance: 2},
		models.TeacherAvailability{TeacherID: "W", DayOfWeek: 1, Period: 1, Importance: -3},
	)
	ranker := NewCandidateRanker(rankerDeps(s))

	list, err := ranker.RankSubstitutes(context.Background(), "T", "l1", monday, "")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"U", "V", "W"}, []string{list[0].TeacherID, list[1].TeacherID, list[2].TeacherID})
	assert.Equal(t, 50, list[1].Score)
	assert.Equal(t, 5, list[2].Score)
}

func TestCandidateRankerDeterministic(t *testing.T) {
	s := mondaySchool()
	ranker := NewCandidateRanker(rankerDeps(s))

	first, err := ranker.RankSubstitutes(context.Background(), "T", "l5", monday, "name")
	require.NoError(t, err)
	second, err := ranker.RankSubstitutes(context.Background(), "T", "l5", monday, "name")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, "Uma Qualified", first[0].FullName)
}

func TestCandidateRankerEmptyPool(t *testing.T) {
	s := newSchool()
	s.addTeacher("T", "Tom", nil, false)
	s.addLesson("l1", 1, 1, "T", "math", "Math")
	ranker := NewCandidateRanker(rankerDeps(s))

	list, err := ranker.RankSubstitutes(context.Background(), "T", "l1", monday, "")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCandidateRankerErrors(t *testing.T) {
	s := mondaySchool()
	ranker := NewCandidateRanker(rankerDeps(s))

	_, err := ranker.RankSubstitutes(context.Background(), "T", "missing", monday, "")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	_, err = ranker.RankSubstitutes(context.Background(), "T", "l1", monday, "age")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = ranker.RankForAbsence(context.Background(), "nope", "l1", "")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestCandidateRankerUsesCache(t *testing.T) {
	s := mondaySchool()
	cache := newMemoryRankingCache()
	deps := rankerDeps(s)
	deps.Cache = cache
	ranker := NewCandidateRanker(deps)

	_, err := ranker.RankForAbsence(context.Background(), "a1", "l1", "")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)

	byName, err := ranker.RankForAbsence(context.Background(), "a1", "l1", "name")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)
	assert.Equal(t, "Uma Qualified", byName[0].FullName)

	_, err = ranker.RankFresh(context.Background(), "T", "l1", monday)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)
	assert.Equal(t, 2, cache.gets)
}

func TestSupervisionCandidateRanker(t *testing.T) {
	s := mondaySchool()
	ranker := NewSupervisionCandidateRanker(rankerDeps(s))

	list, err := ranker.RankForAbsence(context.Background(), "a1", "d3")
	require.NoError(t, err)
	require.Len(t, list, 3)

	assert.Equal(t, "W", list[0].TeacherID)
	assert.Equal(t, 150, list[0].Score)
	assert.Equal(t, "V", list[1].TeacherID)
	assert.Equal(t, 130, list[1].Score)
	assert.Equal(t, "U", list[2].TeacherID)
	assert.Equal(t, 30, list[2].Score)
	assert.True(t, list[2].HasLessonThisPeriod)
}

func TestSupervisionCandidateRankerOtherDutyInSlot(t *testing.T) {
	s := mondaySchool()
	s.duties = append(s.duties, models.BreakSupervisionDuty{ID: "d4", TimetableID: "tt1", Room: "Hof2", DayOfWeek: 1, Period: 3, TeacherID: strPtr("V"), Active: true})
	ranker := NewSupervisionCandidateRanker(rankerDeps(s))

	list, err := ranker.RankSupervisionSubstitutes(context.Background(), "T", "d3")
	require.NoError(t, err)

	var v models.SupervisionCandidate
	for _, c := range list {
		if c.TeacherID == "V" {
			v = c
		}
	}
	assert.True(t, v.HasSupervisionThisPeriod)
	assert.Equal(t, 15, v.Score)

	_, err = ranker.RankSupervisionSubstitutes(context.Background(), "T", "missing")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestSupervisionCandidateRankerUsesCache(t *testing.T) {
	s := mondaySchool()
	cache := newMemoryRankingCache()
	deps := rankerDeps(s)
	deps.Cache = cache
	ranker := NewSupervisionCandidateRanker(deps)

	first, err := ranker.RankSupervisionSubstitutes(context.Background(), "T", "d3")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)
	assert.Contains(t, cache.entries, "ranking:duty:d3:T")

	second, err := ranker.RankSupervisionSubstitutes(context.Background(), "T", "d3")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)
	assert.Equal(t, 2, cache.gets)
	assert.Equal(t, first, second)

	require.NoError(t, cache.Invalidate(context.Background(), rankingCachePattern))
	_, err = ranker.RankSupervisionSubstitutes(context.Background(), "T", "d3")
	require.NoError(t, err)
	assert.Equal(t, 2, cache.sets)
}
