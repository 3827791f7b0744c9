package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-substitution-api/internal/models"
	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
)

func newResolver(s *school) *AffectedItemResolver {
	return NewAffectedItemResolver(fakeAbsences{s}, fakeTimetables{s}, fakeLessons{s}, fakeDuties{s}, fakeSubstitutions{s}, fakeSupervisionSubs{s}, nil)
}

func TestResolveFullDayOrderedByPeriod(t *testing.T) {
	s := mondaySchool()
	s.addLesson("l0", 1, 2, "T", "math", "Math 5b")
	s.addLesson("tue", 2, 1, "T", "math", "Math 5a")

	items, err := newResolver(s).Resolve(context.Background(), "a1")
	require.NoError(t, err)

	var ids []string
	for _, l := range items.Lessons {
		ids = append(ids, l.Lesson.ID)
	}
	assert.Equal(t, []string{"l1", "l0", "l3", "l5"}, ids)
	require.Len(t, items.Duties, 1)
	assert.Equal(t, "d3", items.Duties[0].Duty.ID)
	assert.Equal(t, "tt1", items.TimetableID)
	assert.Equal(t, "08:00", items.Lessons[0].StartTime)
}

func TestResolvePartialDayUsesOpenOverlap(t *testing.T) {
	s := newSchool()
	s.addTeacher("P", "Pia", nil, false)
	s.addLesson("p2", 1, 2, "P", "math", "Math")
	s.addLesson("p3", 1, 3, "P", "math", "Math")
	s.duties = append(s.duties,
		models.BreakSupervisionDuty{ID: "dp2", TimetableID: "tt1", DayOfWeek: 1, Period: 2, TeacherID: strPtr("P"), Active: true},
		models.BreakSupervisionDuty{ID: "dp3", TimetableID: "tt1", DayOfWeek: 1, Period: 3, TeacherID: strPtr("P"), Active: true},
	)
	s.addAbsence("a", "P", monday, strPtr("10:00"), strPtr("11:00"))

	items, err := newResolver(s).Resolve(context.Background(), "a")
	require.NoError(t, err)
	require.Len(t, items.Lessons, 1)
	assert.Equal(t, "p3", items.Lessons[0].Lesson.ID)
	require.Len(t, items.Duties, 1)
	assert.Equal(t, "dp3", items.Duties[0].Duty.ID)
}

func TestResolveFlagsCoveredItems(t *testing.T) {
	s := mondaySchool()
	s.subs = append(s.subs, models.Substitution{ID: "s1", AbsenceID: "a1", ScheduledLessonID: "l3", CoverageType: models.CoverageSelfStudy})
	s.supSubs = append(s.supSubs, models.BreakSupervisionSubstitution{ID: "ss1", AbsenceID: "a1", BreakSupervisionDutyID: "d3", CoverageType: models.SupervisionCancelled})

	items, err := newResolver(s).Resolve(context.Background(), "a1")
	require.NoError(t, err)

	assert.False(t, items.Lessons[0].Covered)
	assert.True(t, items.Lessons[1].Covered)
	require.NotNil(t, items.Lessons[1].SubstitutionID)
	assert.Equal(t, "s1", *items.Lessons[1].SubstitutionID)
	assert.Equal(t, 1, items.CoveredLessons())
	assert.True(t, items.Duties[0].Covered)
}

func TestResolveWithoutPublishedTimetable(t *testing.T) {
	s := mondaySchool()
	s.timetable = nil

	items, err := newResolver(s).Resolve(context.Background(), "a1")
	require.NoError(t, err)
	assert.True(t, items.TimetableMissing)
	assert.Empty(t, items.Lessons)
	assert.Empty(t, items.Duties)
}

func TestResolveErrors(t *testing.T) {
	s := mondaySchool()
	s.addAbsence("bad", "T", monday, strPtr("11:00"), strPtr("10:00"))
	resolver := newResolver(s)

	_, err := resolver.Resolve(context.Background(), "missing")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	_, err = resolver.Resolve(context.Background(), "bad")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestAffectedHours(t *testing.T) {
	items := &models.AffectedItems{Lessons: []models.AffectedLesson{
		{StartTime: "08:00", EndTime: "08:45"},
		{StartTime: "09:00", EndTime: "10:00"},
		{},
	}}
	assert.InDelta(t, 1.75, affectedHours(items), 0.0001)
}
