package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-substitution-api/internal/models"
	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
)

// SupervisionCandidateRanker scores active teachers for one break supervision duty.
type SupervisionCandidateRanker struct {
	deps RankerDeps
}

// NewSupervisionCandidateRanker constructs the supervision ranker.
func NewSupervisionCandidateRanker(deps RankerDeps) *SupervisionCandidateRanker {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &SupervisionCandidateRanker{deps: deps}
}

// RankForAbsence ranks candidates for a duty held by the absent teacher of the given absence.
func (r *SupervisionCandidateRanker) RankForAbsence(ctx context.Context, absenceID, dutyID string) ([]models.SupervisionCandidate, error) {
	absence, err := loadAbsence(ctx, r.deps.Absences, absenceID)
	if err != nil {
		return nil, err
	}
	return r.RankSupervisionSubstitutes(ctx, absence.TeacherID, dutyID)
}

// RankSupervisionSubstitutes scores every active teacher except the absent one.
func (r *SupervisionCandidateRanker) RankSupervisionSubstitutes(ctx context.Context, absentTeacherID, dutyID string) ([]models.SupervisionCandidate, error) {
	cacheKey := fmt.Sprintf("ranking:duty:%s:%s", dutyID, absentTeacherID)
	if r.deps.Cache != nil {
		var cached []models.SupervisionCandidate
		if hit, err := r.deps.Cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return cached, nil
		}
	}

	candidates, err := r.score(ctx, absentTeacherID, dutyID)
	if err != nil {
		return nil, err
	}

	if r.deps.Cache != nil {
		if err := r.deps.Cache.Set(ctx, cacheKey, candidates, r.deps.CacheTTL); err != nil {
			r.deps.Logger.Warn("failed to cache supervision ranking", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return candidates, nil
}

func (r *SupervisionCandidateRanker) score(ctx context.Context, absentTeacherID, dutyID string) ([]models.SupervisionCandidate, error) {
	absent, err := loadTeacher(ctx, r.deps.Teachers, absentTeacherID)
	if err != nil {
		return nil, err
	}
	duty, err := r.deps.Duties.FindByID(ctx, dutyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "supervision duty not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load supervision duty")
	}

	pool, err := r.deps.Teachers.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}

	lessons, err := r.deps.Lessons.ListBySlot(ctx, duty.TimetableID, duty.DayOfWeek, duty.Period)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lessons in slot")
	}
	teaching := map[string]bool{}
	for _, l := range lessons {
		for _, id := range l.TeacherIDs {
			teaching[id] = true
		}
	}

	duties, err := r.deps.Duties.ListBySlot(ctx, duty.TimetableID, duty.DayOfWeek, duty.Period)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load duties in slot")
	}
	supervising := map[string]bool{}
	for _, d := range duties {
		if d.ID != duty.ID && d.TeacherID != nil {
			supervising[*d.TeacherID] = true
		}
	}

	weekly, err := r.deps.Duties.CountActiveByTeacher(ctx, duty.TimetableID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count supervision duties")
	}

	candidates := make([]models.SupervisionCandidate, 0, len(pool))
	for _, teacher := range pool {
		if teacher.ID == absent.ID {
			continue
		}
		candidates = append(candidates, ScoreSupervisionCandidate(SupervisionCandidateFacts{
			Teacher:                  teacher,
			HasLessonThisPeriod:      teaching[teacher.ID],
			HasSupervisionThisPeriod: supervising[teacher.ID],
			SupervisionsThisWeek:     weekly[teacher.ID],
			IsSameDepartment:         teacher.SharesDepartment(*absent),
		}))
	}
	SortSupervisionCandidates(candidates)
	return candidates, nil
}
