package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-substitution-api/internal/models"
	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
)

const rankingCachePattern = "ranking:*"

type teacherReader interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	ListActive(ctx context.Context) ([]models.Teacher, error)
}

type availabilityReader interface {
	ListBySlot(ctx context.Context, dayOfWeek, period int) ([]models.TeacherAvailability, error)
	ListQualifiedTeacherIDs(ctx context.Context, subjectIDs []string) ([]string, error)
}

type substitutionWorkload interface {
	CountByTeacherBetween(ctx context.Context, from, to time.Time) (map[string]int, error)
	ListBusyTeachersAt(ctx context.Context, date time.Time, period int) ([]string, error)
}

type supervisionWorkload interface {
	ListBusyTeachersAt(ctx context.Context, date time.Time, period int) ([]string, error)
}

type absenceCalendar interface {
	ListByDate(ctx context.Context, date time.Time) ([]models.Absence, error)
}

type rankingCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
}

// RankerDeps groups the read models both rankers share.
type RankerDeps struct {
	Absences      absenceReader
	Calendar      absenceCalendar
	Teachers      teacherReader
	Timetables    timetableReader
	Lessons       lessonReader
	Duties        dutyReader
	Availability  availabilityReader
	Substitutions substitutionWorkload
	Supervisions  supervisionWorkload
	Cache         rankingCache
	CacheTTL      time.Duration
	Logger        *zap.Logger
}

// CandidateRanker scores active teachers as substitutes for one affected lesson.
type CandidateRanker struct {
	deps RankerDeps
}

// NewCandidateRanker constructs the lesson ranker.
func NewCandidateRanker(deps RankerDeps) *CandidateRanker {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &CandidateRanker{deps: deps}
}

// RankForAbsence ranks candidates for a lesson of the given absence.
func (r *CandidateRanker) RankForAbsence(ctx context.Context, absenceID, lessonID, sortKey string) ([]models.SubstituteCandidate, error) {
	key, err := ParseSortKey(sortKey)
	if err != nil {
		return nil, err
	}
	absence, err := loadAbsence(ctx, r.deps.Absences, absenceID)
	if err != nil {
		return nil, err
	}
	return r.rank(ctx, absence.TeacherID, lessonID, absence.Date, key, true)
}

// RankSubstitutes ranks every active teacher except the absent one. The date bounds the ISO week
// used for workload counts and the day used for busy detection.
func (r *CandidateRanker) RankSubstitutes(ctx context.Context, absentTeacherID, lessonID string, date time.Time, sortKey string) ([]models.SubstituteCandidate, error) {
	key, err := ParseSortKey(sortKey)
	if err != nil {
		return nil, err
	}
	return r.rank(ctx, absentTeacherID, lessonID, date, key, true)
}

// RankFresh scores candidates without the cache, ordered by score. Auto-assign uses it so each
// pick sees the assignments made earlier in the same run.
func (r *CandidateRanker) RankFresh(ctx context.Context, absentTeacherID, lessonID string, date time.Time) ([]models.SubstituteCandidate, error) {
	return r.rank(ctx, absentTeacherID, lessonID, date, SortByScore, false)
}

func (r *CandidateRanker) rank(ctx context.Context, absentTeacherID, lessonID string, date time.Time, key SortKey, useCache bool) ([]models.SubstituteCandidate, error) {
	cacheKey := fmt.Sprintf("ranking:lesson:%s:%s:%s", lessonID, date.Format("2006-01-02"), absentTeacherID)
	if useCache && r.deps.Cache != nil {
		var cached []models.SubstituteCandidate
		if hit, err := r.deps.Cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			SortLessonCandidates(cached, key)
			return cached, nil
		}
	}

	candidates, err := r.score(ctx, absentTeacherID, lessonID, date)
	if err != nil {
		return nil, err
	}

	if useCache && r.deps.Cache != nil {
		if err := r.deps.Cache.Set(ctx, cacheKey, candidates, r.deps.CacheTTL); err != nil {
			r.deps.Logger.Warn("failed to cache ranking", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	SortLessonCandidates(candidates, key)
	return candidates, nil
}

func (r *CandidateRanker) score(ctx context.Context, absentTeacherID, lessonID string, date time.Time) ([]models.SubstituteCandidate, error) {
	absent, err := loadTeacher(ctx, r.deps.Teachers, absentTeacherID)
	if err != nil {
		return nil, err
	}
	lesson, err := r.deps.Lessons.FindByID(ctx, lessonID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "scheduled lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scheduled lesson")
	}

	pool, err := r.deps.Teachers.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}

	qualifiedIDs, err := r.deps.Availability.ListQualifiedTeacherIDs(ctx, lesson.SubjectIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load qualifications")
	}
	qualified := toSet(qualifiedIDs)

	availability, err := r.deps.Availability.ListBySlot(ctx, lesson.DayOfWeek, lesson.Period)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availabilities")
	}
	prefs := make(map[string]models.TeacherAvailability, len(availability))
	for _, a := range availability {
		prefs[a.TeacherID] = a
	}

	weekStart, weekEnd := models.ISOWeekBounds(date)
	workload, err := r.deps.Substitutions.CountByTeacherBetween(ctx, weekStart, weekEnd)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count substitutions")
	}

	busy, err := r.busyAt(ctx, absent.ID, lesson, date)
	if err != nil {
		return nil, err
	}

	candidates := make([]models.SubstituteCandidate, 0, len(pool))
	for _, teacher := range pool {
		if teacher.ID == absent.ID {
			continue
		}
		facts := LessonCandidateFacts{
			Teacher:               teacher,
			IsQualified:           qualified[teacher.ID],
			BusyReason:            busy[teacher.ID],
			SubstitutionsThisWeek: workload[teacher.ID],
			IsSameDepartment:      teacher.SharesDepartment(*absent),
		}
		if pref, ok := prefs[teacher.ID]; ok {
			pref := pref
			facts.Availability = &pref
		}
		candidates = append(candidates, ScoreLessonCandidate(facts))
	}
	return candidates, nil
}

// busyAt maps teacher ids to the reason they cannot take the lesson's slot on the date.
// The first matching reason wins.
func (r *CandidateRanker) busyAt(ctx context.Context, absentTeacherID string, lesson *models.ScheduledLesson, date time.Time) (map[string]string, error) {
	busy := map[string]string{}
	mark := func(id, reason string) {
		if _, ok := busy[id]; !ok {
			busy[id] = reason
		}
	}

	absences, err := r.deps.Calendar.ListByDate(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load absences")
	}
	if len(absences) > 0 {
		window, known, err := r.periodWindow(ctx, lesson.Period)
		if err != nil {
			return nil, err
		}
		for _, a := range absences {
			aw, partial, err := a.Window()
			if err != nil || !partial || !known || aw.Overlaps(window) {
				mark(a.TeacherID, "absent")
			}
		}
	}

	for _, id := range lesson.TeacherIDs {
		if id != absentTeacherID {
			mark(id, "co-teaching "+lesson.Label)
		}
	}

	slotLessons, err := r.deps.Lessons.ListBySlot(ctx, lesson.TimetableID, lesson.DayOfWeek, lesson.Period)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lessons in slot")
	}
	for _, other := range slotLessons {
		if other.ID == lesson.ID {
			continue
		}
		for _, id := range other.TeacherIDs {
			mark(id, "teaching "+other.Label)
		}
	}

	subs, err := r.deps.Substitutions.ListBusyTeachersAt(ctx, date, lesson.Period)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load substitutions in slot")
	}
	for _, id := range subs {
		mark(id, "already substituting this period")
	}

	duties, err := r.deps.Duties.ListBySlot(ctx, lesson.TimetableID, lesson.DayOfWeek, lesson.Period)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load duties in slot")
	}
	for _, d := range duties {
		if d.TeacherID != nil {
			mark(*d.TeacherID, "supervising "+d.Room)
		}
	}

	supervising, err := r.deps.Supervisions.ListBusyTeachersAt(ctx, date, lesson.Period)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load supervision substitutions in slot")
	}
	for _, id := range supervising {
		mark(id, "already supervising this period")
	}
	return busy, nil
}

func (r *CandidateRanker) periodWindow(ctx context.Context, number int) (models.ClockWindow, bool, error) {
	periods, err := r.deps.Timetables.ListPeriods(ctx)
	if err != nil {
		return models.ClockWindow{}, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load periods")
	}
	for _, p := range periods {
		if p.Number != number {
			continue
		}
		w, err := p.Window()
		if err != nil {
			return models.ClockWindow{}, false, nil
		}
		return w, true, nil
	}
	return models.ClockWindow{}, false, nil
}

func loadAbsence(ctx context.Context, repo absenceReader, id string) (*models.Absence, error) {
	absence, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "absence not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load absence")
	}
	return absence, nil
}

func loadTeacher(ctx context.Context, repo teacherReader, id string) (*models.Teacher, error) {
	teacher, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return teacher, nil
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
