package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-substitution-api/internal/models"
	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
)

type planSourceStub struct {
	entries []models.PlanEntry
	date    time.Time
}

func (p *planSourceStub) ListPlanEntries(ctx context.Context, date time.Time) ([]models.PlanEntry, error) {
	p.date = date
	return p.entries, nil
}

func samplePlan() *planSourceStub {
	sub := "Uma Qualified"
	return &planSourceStub{entries: []models.PlanEntry{
		{Kind: NotificationLesson, Period: 1, Label: "Math 5a", AbsentTeacherName: "Tom Absent", SubstituteName: &sub, CoverageType: "TEACHER_SUBSTITUTE"},
		{Kind: NotificationSupervision, Period: 3, Label: "Hof1", AbsentTeacherName: "Tom Absent", CoverageType: "CANCELLED"},
	}}
}

func TestSubstitutionPlanServiceCSV(t *testing.T) {
	source := samplePlan()
	svc := NewSubstitutionPlanService(source, nil, nil, nil)

	doc, err := svc.Export(context.Background(), "2024-09-02", "CSV")
	require.NoError(t, err)
	assert.Equal(t, monday, source.date)
	assert.Equal(t, "text/csv", doc.ContentType)
	assert.Equal(t, "substitution-plan-2024-09-02.csv", doc.Filename)

	lines := bytes.Split(bytes.TrimSpace(doc.Body), []byte("\n"))
	require.Len(t, lines, 3)
	assert.Equal(t, "Period,Kind,Lesson / Area,Absent,Substitute,Coverage,Notes", string(lines[0]))
	assert.Equal(t, "1,lesson,Math 5a,Tom Absent,Uma Qualified,TEACHER_SUBSTITUTE,", string(lines[1]))
	assert.Equal(t, "3,supervision,Hof1,Tom Absent,-,CANCELLED,", string(lines[2]))
}

func TestSubstitutionPlanServicePDF(t *testing.T) {
	svc := NewSubstitutionPlanService(samplePlan(), nil, nil, nil)

	doc, err := svc.Export(context.Background(), "2024-09-02", "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.True(t, bytes.HasPrefix(doc.Body, []byte("%PDF")))
}

func TestSubstitutionPlanServiceJSONAndErrors(t *testing.T) {
	svc := NewSubstitutionPlanService(&planSourceStub{}, nil, nil, nil)

	doc, err := svc.Export(context.Background(), "2024-09-02", "")
	require.NoError(t, err)
	assert.Empty(t, doc.Body)
	assert.NotNil(t, doc.Entries)

	_, err = svc.Export(context.Background(), "2024-9-2", "csv")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.Export(context.Background(), "2024-09-02", "xlsx")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}
