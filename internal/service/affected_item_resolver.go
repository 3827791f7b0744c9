package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-substitution-api/internal/models"
	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
)

type absenceReader interface {
	FindByID(ctx context.Context, id string) (*models.Absence, error)
}

type timetableReader interface {
	FindPublished(ctx context.Context) (*models.Timetable, error)
	ListPeriods(ctx context.Context) ([]models.Period, error)
}

type lessonReader interface {
	FindByID(ctx context.Context, id string) (*models.ScheduledLesson, error)
	ListByTeacherDay(ctx context.Context, timetableID, teacherID string, dayOfWeek int) ([]models.ScheduledLesson, error)
	ListBySlot(ctx context.Context, timetableID string, dayOfWeek, period int) ([]models.ScheduledLesson, error)
}

type dutyReader interface {
	FindByID(ctx context.Context, id string) (*models.BreakSupervisionDuty, error)
	ListByTeacherDay(ctx context.Context, timetableID, teacherID string, dayOfWeek int) ([]models.BreakSupervisionDuty, error)
	ListBySlot(ctx context.Context, timetableID string, dayOfWeek, period int) ([]models.BreakSupervisionDuty, error)
	CountActiveByTeacher(ctx context.Context, timetableID string) (map[string]int, error)
}

type substitutionLister interface {
	ListByAbsence(ctx context.Context, absenceID string) ([]models.Substitution, error)
}

type supervisionSubstitutionLister interface {
	ListByAbsence(ctx context.Context, absenceID string) ([]models.BreakSupervisionSubstitution, error)
}

// AffectedItemResolver determines which lessons and duties an absence invalidates.
type AffectedItemResolver struct {
	absences      absenceReader
	timetables    timetableReader
	lessons       lessonReader
	duties        dutyReader
	substitutions substitutionLister
	supervisions  supervisionSubstitutionLister
	logger        *zap.Logger
}

// NewAffectedItemResolver constructs the resolver.
func NewAffectedItemResolver(absences absenceReader, timetables timetableReader, lessons lessonReader, duties dutyReader, substitutions substitutionLister, supervisions supervisionSubstitutionLister, logger *zap.Logger) *AffectedItemResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AffectedItemResolver{
		absences:      absences,
		timetables:    timetables,
		lessons:       lessons,
		duties:        duties,
		substitutions: substitutions,
		supervisions:  supervisions,
		logger:        logger,
	}
}

// Resolve loads the absence and resolves it against the published timetable.
func (r *AffectedItemResolver) Resolve(ctx context.Context, absenceID string) (*models.AffectedItems, error) {
	absence, err := loadAbsence(ctx, r.absences, absenceID)
	if err != nil {
		return nil, err
	}
	timetable, err := r.PublishedTimetable(ctx)
	if err != nil {
		return nil, err
	}
	return r.ResolveFor(ctx, absence, timetable)
}

// PublishedTimetable returns the published timetable or nil when none exists.
func (r *AffectedItemResolver) PublishedTimetable(ctx context.Context) (*models.Timetable, error) {
	timetable, err := r.timetables.FindPublished(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load published timetable")
	}
	return timetable, nil
}

// ResolveFor computes the affected items of an absence against the given timetable.
// A nil timetable yields an empty result flagged TimetableMissing.
func (r *AffectedItemResolver) ResolveFor(ctx context.Context, absence *models.Absence, timetable *models.Timetable) (*models.AffectedItems, error) {
	result := &models.AffectedItems{
		AbsenceID: absence.ID,
		Lessons:   []models.AffectedLesson{},
		Duties:    []models.AffectedDuty{},
	}
	if timetable == nil {
		result.TimetableMissing = true
		r.logger.Warn("no published timetable, affected set is empty", zap.String("absence_id", absence.ID))
		return result, nil
	}
	result.TimetableID = timetable.ID

	window, partial, err := absence.Window()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid absence time bounds")
	}

	periods, err := r.periodIndex(ctx)
	if err != nil {
		return nil, err
	}

	day := absence.DayOfWeek()
	lessons, err := r.lessons.ListByTeacherDay(ctx, timetable.ID, absence.TeacherID, day)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lessons")
	}
	duties, err := r.duties.ListByTeacherDay(ctx, timetable.ID, absence.TeacherID, day)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load supervision duties")
	}

	covered, err := r.coveredLessons(ctx, absence.ID)
	if err != nil {
		return nil, err
	}
	coveredDuties, err := r.coveredDuties(ctx, absence.ID)
	if err != nil {
		return nil, err
	}

	for _, lesson := range lessons {
		period, known := periods[lesson.Period]
		if partial && known && !overlapsPeriod(period, window) {
			continue
		}
		item := models.AffectedLesson{Lesson: lesson}
		if known {
			item.StartTime, item.EndTime = period.StartTime, period.EndTime
		}
		if id, ok := covered[lesson.ID]; ok {
			item.Covered = true
			item.SubstitutionID = &id
		}
		result.Lessons = append(result.Lessons, item)
	}

	for _, duty := range duties {
		if partial {
			if period, known := periods[duty.Period]; known && !overlapsPeriod(period, window) {
				continue
			}
		}
		item := models.AffectedDuty{Duty: duty}
		if id, ok := coveredDuties[duty.ID]; ok {
			item.Covered = true
			item.SubstitutionID = &id
		}
		result.Duties = append(result.Duties, item)
	}

	sort.SliceStable(result.Lessons, func(i, j int) bool {
		return result.Lessons[i].Lesson.Period < result.Lessons[j].Lesson.Period
	})
	sort.SliceStable(result.Duties, func(i, j int) bool {
		return result.Duties[i].Duty.Period < result.Duties[j].Duty.Period
	})
	return result, nil
}

func (r *AffectedItemResolver) periodIndex(ctx context.Context) (map[int]models.Period, error) {
	periods, err := r.timetables.ListPeriods(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load periods")
	}
	index := make(map[int]models.Period, len(periods))
	for _, p := range periods {
		index[p.Number] = p
	}
	return index, nil
}

func (r *AffectedItemResolver) coveredLessons(ctx context.Context, absenceID string) (map[string]string, error) {
	subs, err := r.substitutions.ListByAbsence(ctx, absenceID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load substitutions")
	}
	covered := make(map[string]string, len(subs))
	for _, s := range subs {
		covered[s.ScheduledLessonID] = s.ID
	}
	return covered, nil
}

func (r *AffectedItemResolver) coveredDuties(ctx context.Context, absenceID string) (map[string]string, error) {
	subs, err := r.supervisions.ListByAbsence(ctx, absenceID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load supervision substitutions")
	}
	covered := make(map[string]string, len(subs))
	for _, s := range subs {
		covered[s.BreakSupervisionDutyID] = s.ID
	}
	return covered, nil
}

// overlapsPeriod reports whether the period intersects the absence window. Periods without a
// parsable time range are kept.
func overlapsPeriod(period models.Period, window models.ClockWindow) bool {
	pw, err := period.Window()
	if err != nil {
		return true
	}
	return pw.Overlaps(window)
}

// affectedHours sums the period durations of the affected lessons.
func affectedHours(items *models.AffectedItems) float64 {
	var total float64
	for _, l := range items.Lessons {
		if l.StartTime == "" {
			continue
		}
		total += models.Period{StartTime: l.StartTime, EndTime: l.EndTime}.Hours()
	}
	return total
}
