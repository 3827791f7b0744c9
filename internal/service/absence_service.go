package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-substitution-api/internal/dto"
	"github.com/noah-isme/sma-substitution-api/internal/models"
	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
)

type absenceStore interface {
	Create(ctx context.Context, absence *models.Absence) error
	FindByID(ctx context.Context, id string) (*models.Absence, error)
	List(ctx context.Context, filter models.AbsenceFilter) ([]models.Absence, int, error)
	UpdateStatus(ctx context.Context, id string, status models.AbsenceStatus) error
	Delete(ctx context.Context, id string) error
}

type absenceResolver interface {
	PublishedTimetable(ctx context.Context) (*models.Timetable, error)
	ResolveFor(ctx context.Context, absence *models.Absence, timetable *models.Timetable) (*models.AffectedItems, error)
	Resolve(ctx context.Context, absenceID string) (*models.AffectedItems, error)
}

// AbsenceService manages the absence lifecycle around the coverage engine.
type AbsenceService struct {
	absences  absenceStore
	teachers  teacherReader
	resolver  absenceResolver
	cache     rankingCache
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAbsenceService constructs the service.
func NewAbsenceService(absences absenceStore, teachers teacherReader, resolver absenceResolver, cache rankingCache, validate *validator.Validate, logger *zap.Logger) *AbsenceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AbsenceService{absences: absences, teachers: teachers, resolver: resolver, cache: cache, validator: validate, logger: logger}
}

// Report validates and stores a new absence with status REPORTED. Total hours are derived from
// the affected lessons of the published timetable.
func (s *AbsenceService) Report(ctx context.Context, req dto.ReportAbsenceRequest, actorID string) (*models.Absence, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid absence payload")
	}
	absenceType := models.AbsenceType(strings.ToUpper(req.Type))
	if !absenceType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported absence type %q", req.Type))
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid absence date")
	}

	absence := &models.Absence{
		TeacherID:  req.TeacherID,
		Date:       date,
		StartTime:  normaliseID(req.StartTime),
		EndTime:    normaliseID(req.EndTime),
		Type:       absenceType,
		Status:     models.AbsenceStatusReported,
		Notes:      req.Notes,
		ReportedBy: normaliseID(&actorID),
	}
	if (absence.StartTime == nil) != (absence.EndTime == nil) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start and end time must be given together")
	}
	if _, _, err := absence.Window(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "absence end must be after start")
	}

	if _, err := s.teachers.FindByID(ctx, absence.TeacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "teacher does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	timetable, err := s.resolver.PublishedTimetable(ctx)
	if err != nil {
		return nil, err
	}
	items, err := s.resolver.ResolveFor(ctx, absence, timetable)
	if err != nil {
		return nil, err
	}
	absence.TotalHours = affectedHours(items)

	if err := s.absences.Create(ctx, absence); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store absence")
	}
	s.invalidate(ctx)
	s.logger.Info("absence reported",
		zap.String("absence_id", absence.ID),
		zap.String("teacher_id", absence.TeacherID),
		zap.Int("affected_lessons", len(items.Lessons)))
	return absence, nil
}

// Get returns one absence.
func (s *AbsenceService) Get(ctx context.Context, id string) (*models.Absence, error) {
	return loadAbsence(ctx, s.absences, id)
}

// List returns absences matching the query and pagination metadata.
func (s *AbsenceService) List(ctx context.Context, q dto.AbsenceQuery) ([]models.Absence, *models.Pagination, error) {
	filter := models.AbsenceFilter{
		TeacherID: q.TeacherID,
		Status:    models.AbsenceStatus(strings.ToUpper(q.Status)),
		Page:      q.Page,
		PageSize:  q.PageSize,
	}
	if q.Date != "" {
		date, err := time.Parse("2006-01-02", q.Date)
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid date filter")
		}
		filter.Date = &date
	}
	filter.Page, filter.PageSize = models.NormalizePage(filter.Page, filter.PageSize)

	absences, total, err := s.absences.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list absences")
	}
	if absences == nil {
		absences = []models.Absence{}
	}
	return absences, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Confirm moves a reported absence to CONFIRMED.
func (s *AbsenceService) Confirm(ctx context.Context, id string) (*models.Absence, error) {
	absence, err := loadAbsence(ctx, s.absences, id)
	if err != nil {
		return nil, err
	}
	if absence.Status != models.AbsenceStatusReported {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("absence is %s, only REPORTED absences can be confirmed", absence.Status))
	}
	if err := s.absences.UpdateStatus(ctx, id, models.AbsenceStatusConfirmed); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to confirm absence")
	}
	absence.Status = models.AbsenceStatusConfirmed
	return absence, nil
}

// Delete removes the absence together with its substitutions.
func (s *AbsenceService) Delete(ctx context.Context, id string) error {
	if err := s.absences.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "absence not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete absence")
	}
	s.invalidate(ctx)
	return nil
}

// Affected resolves the lessons and duties invalidated by an absence.
func (s *AbsenceService) Affected(ctx context.Context, id string) (*models.AffectedItems, error) {
	return s.resolver.Resolve(ctx, id)
}

func (s *AbsenceService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, rankingCachePattern); err != nil {
		s.logger.Warn("failed to invalidate ranking cache", zap.Error(err))
	}
}
