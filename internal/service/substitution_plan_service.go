package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-substitution-api/internal/models"
	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
	"github.com/noah-isme/sma-substitution-api/pkg/export"
)

// Plan formats.
const (
	PlanFormatJSON = "json"
	PlanFormatCSV  = "csv"
	PlanFormatPDF  = "pdf"
)

type planSource interface {
	ListPlanEntries(ctx context.Context, date time.Time) ([]models.PlanEntry, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// PlanDocument is a rendered daily plan.
type PlanDocument struct {
	Filename    string
	ContentType string
	Body        []byte
	Entries     []models.PlanEntry
}

// SubstitutionPlanService builds the daily substitution plan.
type SubstitutionPlanService struct {
	source planSource
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
}

// NewSubstitutionPlanService constructs the service.
func NewSubstitutionPlanService(source planSource, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *SubstitutionPlanService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubstitutionPlanService{source: source, csv: csv, pdf: pdf, logger: logger}
}

// Export renders the plan for the date ("2006-01-02") in the requested format. JSON leaves Body empty.
func (s *SubstitutionPlanService) Export(ctx context.Context, rawDate, format string) (*PlanDocument, error) {
	date, err := time.Parse("2006-01-02", rawDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "date must be YYYY-MM-DD")
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = PlanFormatJSON
	}

	entries, err := s.source.ListPlanEntries(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load substitution plan")
	}
	if entries == nil {
		entries = []models.PlanEntry{}
	}

	doc := &PlanDocument{Entries: entries}
	base := "substitution-plan-" + date.Format("2006-01-02")
	switch format {
	case PlanFormatJSON:
		doc.ContentType = "application/json"
		return doc, nil
	case PlanFormatCSV:
		doc.Body, err = s.csv.Render(planDataset(date, entries))
		doc.ContentType = "text/csv"
		doc.Filename = base + ".csv"
	case PlanFormatPDF:
		doc.Body, err = s.pdf.Render(planDataset(date, entries))
		doc.ContentType = "application/pdf"
		doc.Filename = base + ".pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render substitution plan")
	}
	s.logger.Debug("substitution plan rendered", zap.String("format", format), zap.Int("entries", len(entries)))
	return doc, nil
}

func planDataset(date time.Time, entries []models.PlanEntry) export.Dataset {
	data := export.Dataset{
		Title:    "Substitution plan",
		Subtitle: date.Format("Monday, 2006-01-02"),
		Headers:  []string{"Period", "Kind", "Lesson / Area", "Absent", "Substitute", "Coverage", "Notes"},
		Widths:   []float64{1, 1.5, 3, 2.5, 2.5, 2, 3},
		Rows:     make([][]string, 0, len(entries)),
	}
	for _, e := range entries {
		data.Rows = append(data.Rows, []string{
			strconv.Itoa(e.Period),
			e.Kind,
			e.Label,
			e.AbsentTeacherName,
			derefOr(e.SubstituteName, "-"),
			e.CoverageType,
			derefOr(e.Notes, ""),
		})
	}
	return data
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
