package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-substitution-api/internal/dto"
	"github.com/noah-isme/sma-substitution-api/internal/models"
	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
)

func TestAbsenceServiceReportComputesHours(t *testing.T) {
	s := mondaySchool()
	cache := newMemoryRankingCache()
	svc := NewAbsenceService(fakeAbsences{s}, fakeTeachers{s}, newResolver(s), cache, nil, nil)

	absence, err := svc.Report(context.Background(), dto.ReportAbsenceRequest{
		TeacherID: "T",
		Date:      "2024-09-09",
		Type:      "sick",
	}, "admin")
	require.NoError(t, err)

	assert.NotEmpty(t, absence.ID)
	assert.Equal(t, models.AbsenceStatusReported, absence.Status)
	assert.Equal(t, models.AbsenceTypeSick, absence.Type)
	assert.InDelta(t, 0.75+1+0.75, absence.TotalHours, 0.0001)
	assert.Equal(t, []string{rankingCachePattern}, cache.invalidated)
}

func TestAbsenceServiceReportPartialDay(t *testing.T) {
	s := mondaySchool()
	svc := NewAbsenceService(fakeAbsences{s}, fakeTeachers{s}, newResolver(s), nil, nil, nil)

	absence, err := svc.Report(context.Background(), dto.ReportAbsenceRequest{
		TeacherID: "T",
		Date:      "2024-09-09",
		StartTime: strPtr("10:00"),
		EndTime:   strPtr("11:00"),
		Type:      "MEETING",
	}, "admin")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, absence.TotalHours, 0.0001)
	assert.True(t, absence.IsPartialDay())
}

func TestAbsenceServiceReportValidation(t *testing.T) {
	s := mondaySchool()
	svc := NewAbsenceService(fakeAbsences{s}, fakeTeachers{s}, newResolver(s), nil, nil, nil)
	ctx := context.Background()

	cases := map[string]dto.ReportAbsenceRequest{
		"unknown type":   {TeacherID: "T", Date: "2024-09-09", Type: "holiday"},
		"bad date":       {TeacherID: "T", Date: "09/09/2024", Type: "SICK"},
		"one sided":      {TeacherID: "T", Date: "2024-09-09", Type: "SICK", StartTime: strPtr("10:00")},
		"inverted":       {TeacherID: "T", Date: "2024-09-09", Type: "SICK", StartTime: strPtr("11:00"), EndTime: strPtr("10:00")},
		"unknown person": {TeacherID: "nobody", Date: "2024-09-09", Type: "SICK"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Report(ctx, req, "admin")
			require.Error(t, err)
			assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
		})
	}
	assert.Len(t, s.absences, 1)
}

func TestAbsenceServiceConfirm(t *testing.T) {
	s := mondaySchool()
	s.absences["a1"].Status = models.AbsenceStatusReported
	svc := NewAbsenceService(fakeAbsences{s}, fakeTeachers{s}, newResolver(s), nil, nil, nil)

	absence, err := svc.Confirm(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, models.AbsenceStatusConfirmed, absence.Status)

	_, err = svc.Confirm(context.Background(), "a1")
	assert.True(t, appErrors.Is(err, appErrors.ErrPreconditionFailed))

	_, err = svc.Confirm(context.Background(), "missing")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestAbsenceServiceListDefaults(t *testing.T) {
	s := mondaySchool()
	svc := NewAbsenceService(fakeAbsences{s}, fakeTeachers{s}, newResolver(s), nil, nil, nil)

	absences, pagination, err := svc.List(context.Background(), dto.AbsenceQuery{TeacherID: "T", PageSize: 500})
	require.NoError(t, err)
	assert.Len(t, absences, 1)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 1, pagination.TotalCount)

	_, _, err = svc.List(context.Background(), dto.AbsenceQuery{Date: "yesterday"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestAbsenceServiceDelete(t *testing.T) {
	s := mondaySchool()
	svc := NewAbsenceService(fakeAbsences{s}, fakeTeachers{s}, newResolver(s), nil, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), "a1"))
	assert.True(t, appErrors.Is(svc.Delete(context.Background(), "a1"), appErrors.ErrNotFound))
}
