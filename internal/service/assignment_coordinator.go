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
	"github.com/noah-isme/sma-substitution-api/internal/repository"
	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
)

type substitutionStore interface {
	Create(ctx context.Context, sub *models.Substitution) error
	FindByID(ctx context.Context, id string) (*models.Substitution, error)
	FindByAbsenceAndLesson(ctx context.Context, absenceID, lessonID string) (*models.Substitution, error)
	ListByAbsence(ctx context.Context, absenceID string) ([]models.Substitution, error)
	Delete(ctx context.Context, id string) error
}

type supervisionSubstitutionStore interface {
	Create(ctx context.Context, sub *models.BreakSupervisionSubstitution) error
	FindByID(ctx context.Context, id string) (*models.BreakSupervisionSubstitution, error)
	FindByAbsenceAndDuty(ctx context.Context, absenceID, dutyID string) (*models.BreakSupervisionSubstitution, error)
	ListByAbsence(ctx context.Context, absenceID string) ([]models.BreakSupervisionSubstitution, error)
	Delete(ctx context.Context, id string) error
}

type distributedLock interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, error)
}

type substituteNotifier interface {
	NotifyLesson(ctx context.Context, sub *models.Substitution, substitute *models.Teacher, lesson *models.ScheduledLesson, absence *models.Absence)
	NotifySupervision(ctx context.Context, sub *models.BreakSupervisionSubstitution, substitute *models.Teacher, duty *models.BreakSupervisionDuty, absence *models.Absence)
}

type coverageTracker interface {
	Recompute(ctx context.Context, absenceID string) (models.AbsenceStatus, error)
	MarkBeingCovered(ctx context.Context, absenceID string) error
}

type freshRanker interface {
	RankFresh(ctx context.Context, absentTeacherID, lessonID string, date time.Time) ([]models.SubstituteCandidate, error)
}

type affectedSource interface {
	Resolve(ctx context.Context, absenceID string) (*models.AffectedItems, error)
}

// CoordinatorConfig holds assignment tunables.
type CoordinatorConfig struct {
	DefaultMinScore int
	LockTTL         time.Duration
	PayRate         float64
}

// CoordinatorDeps wires the collaborators of the AssignmentCoordinator.
type CoordinatorDeps struct {
	Absences      absenceReader
	Teachers      teacherReader
	Timetables    timetableReader
	Lessons       lessonReader
	Duties        dutyReader
	Substitutions substitutionStore
	Supervisions  supervisionSubstitutionStore
	Resolver      affectedSource
	Ranker        freshRanker
	Tracker       coverageTracker
	Notifier      substituteNotifier
	Lock          distributedLock
	Cache         rankingCache
	Metrics       *MetricsService
	Validator     *validator.Validate
	Logger        *zap.Logger
}

// AssignmentCoordinator records substitutions manually or through a greedy auto-assign pass.
type AssignmentCoordinator struct {
	deps CoordinatorDeps
	cfg  CoordinatorConfig
}

// NewAssignmentCoordinator constructs the coordinator.
func NewAssignmentCoordinator(deps CoordinatorDeps, cfg CoordinatorConfig) *AssignmentCoordinator {
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * time.Minute
	}
	return &AssignmentCoordinator{deps: deps, cfg: cfg}
}

// AssignSubstitute records the coverage of one lesson for an absence.
func (c *AssignmentCoordinator) AssignSubstitute(ctx context.Context, absenceID string, req dto.AssignSubstituteRequest, actorID string) (*models.Substitution, error) {
	if err := c.deps.Validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid substitution payload")
	}
	coverage := models.CoverageType(strings.ToUpper(req.CoverageType))
	if !coverage.ValidForLesson() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported coverage type %q", req.CoverageType))
	}

	absence, err := loadAbsence(ctx, c.deps.Absences, absenceID)
	if err != nil {
		return nil, err
	}
	sub, err := c.assignLesson(ctx, absence, req.ScheduledLessonID, normaliseID(req.SubstituteTeacherID), coverage, actorID, req.Notes, "manual")
	if err != nil {
		return nil, err
	}
	c.afterChange(ctx, absence.ID)
	return sub, nil
}

// AssignSupervisionSubstitute records the coverage of one supervision duty for an absence.
func (c *AssignmentCoordinator) AssignSupervisionSubstitute(ctx context.Context, absenceID string, req dto.AssignSupervisionSubstituteRequest, actorID string) (*models.BreakSupervisionSubstitution, error) {
	if err := c.deps.Validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid supervision payload")
	}
	coverage := models.SupervisionCoverageType(strings.ToUpper(req.CoverageType))
	if !coverage.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported coverage type %q", req.CoverageType))
	}
	substituteID := normaliseID(req.SubstituteTeacherID)
	if coverage == models.SupervisionTeacherSubstitute && substituteID == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher substitute coverage requires a substitute teacher")
	}

	absence, err := loadAbsence(ctx, c.deps.Absences, absenceID)
	if err != nil {
		return nil, err
	}
	duty, err := c.deps.Duties.FindByID(ctx, req.DutyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "supervision duty not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load supervision duty")
	}

	if _, err := c.deps.Supervisions.FindByAbsenceAndDuty(ctx, absence.ID, duty.ID); err == nil {
		return nil, appErrors.ErrAlreadyAssigned
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing supervision substitution")
	}

	substitute, err := c.substitute(ctx, substituteID)
	if err != nil {
		return nil, err
	}

	sub := &models.BreakSupervisionSubstitution{
		AbsenceID:              absence.ID,
		BreakSupervisionDutyID: duty.ID,
		SubstituteTeacherID:    substituteID,
		CoverageType:           coverage,
		AssignedAt:             time.Now().UTC(),
		AssignedBy:             normaliseID(&actorID),
		Notes:                  req.Notes,
	}
	if err := c.deps.Supervisions.Create(ctx, sub); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.ErrAlreadyAssigned
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store supervision substitution")
	}
	c.deps.Metrics.RecordAssignment(NotificationSupervision, string(coverage), "manual")

	if coverage == models.SupervisionTeacherSubstitute && c.deps.Notifier != nil {
		c.deps.Notifier.NotifySupervision(ctx, sub, substitute, duty, absence)
	}
	c.afterChange(ctx, absence.ID)
	return sub, nil
}

// AutoAssignAll covers every uncovered affected lesson with its best candidate scoring at least
// minimumScore. Lessons without such a candidate are counted as failed. A nil minimumScore uses
// the configured default.
func (c *AssignmentCoordinator) AutoAssignAll(ctx context.Context, absenceID, actorID string, minimumScore *int) (*models.AutoAssignResult, error) {
	started := time.Now()
	threshold := c.cfg.DefaultMinScore
	if minimumScore != nil {
		threshold = *minimumScore
	}

	absence, err := loadAbsence(ctx, c.deps.Absences, absenceID)
	if err != nil {
		return nil, err
	}

	release, err := c.acquire(ctx, absence.ID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := release(context.Background()); err != nil {
			c.deps.Logger.Warn("failed to release auto-assign lock", zap.String("absence_id", absence.ID), zap.Error(err))
		}
	}()

	items, err := c.deps.Resolver.Resolve(ctx, absence.ID)
	if err != nil {
		return nil, err
	}
	if err := c.deps.Tracker.MarkBeingCovered(ctx, absence.ID); err != nil {
		return nil, err
	}

	result := &models.AutoAssignResult{AbsenceID: absence.ID, MinimumScore: threshold, Assignments: []models.Substitution{}}
	for _, item := range items.Lessons {
		if item.Covered {
			result.Skipped++
			continue
		}
		candidates, err := c.deps.Ranker.RankFresh(ctx, absence.TeacherID, item.Lesson.ID, absence.Date)
		if err != nil {
			c.finishAutoAssign(ctx, result, started, "error")
			return nil, err
		}
		best := pickCandidate(candidates, threshold)
		if best == nil {
			result.FailedCount++
			c.deps.Logger.Info("no candidate above threshold",
				zap.String("absence_id", absence.ID),
				zap.String("lesson_id", item.Lesson.ID),
				zap.Int("minimum_score", threshold))
			continue
		}
		teacherID := best.TeacherID
		sub, err := c.assignLesson(ctx, absence, item.Lesson.ID, &teacherID, models.CoverageTeacherSubstitute, actorID, nil, "auto")
		if err != nil {
			if appErrors.Is(err, appErrors.ErrConflict) {
				result.FailedCount++
				continue
			}
			c.finishAutoAssign(ctx, result, started, "error")
			return nil, err
		}
		result.AssignedCount++
		result.Assignments = append(result.Assignments, *sub)
	}

	c.finishAutoAssign(ctx, result, started, "ok")
	c.deps.Logger.Info("auto-assign finished",
		zap.String("absence_id", absence.ID),
		zap.Int("assigned", result.AssignedCount),
		zap.Int("failed", result.FailedCount),
		zap.Int("already_assigned", result.Skipped),
		zap.String("status", string(result.Status)))
	return result, nil
}

// RemoveSubstitution deletes a lesson substitution and recomputes the absence status.
func (c *AssignmentCoordinator) RemoveSubstitution(ctx context.Context, id string) error {
	sub, err := c.deps.Substitutions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "substitution not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load substitution")
	}
	if err := c.deps.Substitutions.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "substitution not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete substitution")
	}
	c.deps.Metrics.RecordRemoval(NotificationLesson)
	c.afterChange(ctx, sub.AbsenceID)
	return nil
}

// RemoveSupervisionSubstitution deletes a supervision substitution and recomputes the absence status.
func (c *AssignmentCoordinator) RemoveSupervisionSubstitution(ctx context.Context, id string) error {
	sub, err := c.deps.Supervisions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "supervision substitution not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load supervision substitution")
	}
	if err := c.deps.Supervisions.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "supervision substitution not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete supervision substitution")
	}
	c.deps.Metrics.RecordRemoval(NotificationSupervision)
	c.afterChange(ctx, sub.AbsenceID)
	return nil
}

// ListSubstitutions returns the absence together with every recorded substitution.
func (c *AssignmentCoordinator) ListSubstitutions(ctx context.Context, absenceID string) (*models.AbsenceCoverage, error) {
	absence, err := loadAbsence(ctx, c.deps.Absences, absenceID)
	if err != nil {
		return nil, err
	}
	lessons, err := c.deps.Substitutions.ListByAbsence(ctx, absence.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load substitutions")
	}
	duties, err := c.deps.Supervisions.ListByAbsence(ctx, absence.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load supervision substitutions")
	}
	if lessons == nil {
		lessons = []models.Substitution{}
	}
	if duties == nil {
		duties = []models.BreakSupervisionSubstitution{}
	}
	return &models.AbsenceCoverage{Absence: *absence, Substitutions: lessons, SupervisionSubstitutions: duties}, nil
}

// assignLesson runs the checks and insert shared by manual and automatic assignment.
func (c *AssignmentCoordinator) assignLesson(ctx context.Context, absence *models.Absence, lessonID string, substituteID *string, coverage models.CoverageType, actorID string, notes *string, origin string) (*models.Substitution, error) {
	if coverage == models.CoverageTeacherSubstitute && substituteID == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher substitute coverage requires a substitute teacher")
	}
	lesson, err := c.deps.Lessons.FindByID(ctx, lessonID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "scheduled lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scheduled lesson")
	}

	// The unique index decides; this lookup only avoids a failing insert.
	if _, err := c.deps.Substitutions.FindByAbsenceAndLesson(ctx, absence.ID, lesson.ID); err == nil {
		return nil, appErrors.ErrAlreadyAssigned
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing substitution")
	}

	substitute, err := c.substitute(ctx, substituteID)
	if err != nil {
		return nil, err
	}

	sub := &models.Substitution{
		AbsenceID:           absence.ID,
		ScheduledLessonID:   lesson.ID,
		SubstituteTeacherID: substituteID,
		CoverageType:        coverage,
		AssignedAt:          time.Now().UTC(),
		AssignedBy:          normaliseID(&actorID),
		Notes:               notes,
	}
	if coverage == models.CoverageTeacherSubstitute {
		sub.HoursWorked = c.periodHours(ctx, lesson.Period)
		sub.PayRate = c.cfg.PayRate
		sub.ComputedPay = sub.HoursWorked * sub.PayRate
	}

	if err := c.deps.Substitutions.Create(ctx, sub); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.ErrAlreadyAssigned
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store substitution")
	}
	c.deps.Metrics.RecordAssignment(NotificationLesson, string(coverage), origin)

	if coverage == models.CoverageTeacherSubstitute && c.deps.Notifier != nil {
		c.deps.Notifier.NotifyLesson(ctx, sub, substitute, lesson, absence)
	}
	return sub, nil
}

func (c *AssignmentCoordinator) substitute(ctx context.Context, id *string) (*models.Teacher, error) {
	if id == nil {
		return nil, nil
	}
	teacher, err := c.deps.Teachers.FindByID(ctx, *id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "substitute teacher does not exist")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load substitute teacher")
	}
	return teacher, nil
}

func (c *AssignmentCoordinator) periodHours(ctx context.Context, number int) float64 {
	periods, err := c.deps.Timetables.ListPeriods(ctx)
	if err != nil {
		c.deps.Logger.Warn("failed to load periods for pay bookkeeping", zap.Error(err))
		return 0
	}
	for _, p := range periods {
		if p.Number == number {
			return p.Hours()
		}
	}
	return 0
}

func (c *AssignmentCoordinator) acquire(ctx context.Context, absenceID string) (func(context.Context) error, error) {
	if c.deps.Lock == nil {
		return func(context.Context) error { return nil }, nil
	}
	release, err := c.deps.Lock.Acquire(ctx, "autoassign:"+absenceID, c.cfg.LockTTL)
	if err != nil {
		if errors.Is(err, repository.ErrLocked) {
			return nil, appErrors.ErrAutoAssignRunning
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire auto-assign lock")
	}
	return release, nil
}

// afterChange refreshes derived state once a substitution was written or removed. The write has
// already succeeded, so failures here are logged only.
func (c *AssignmentCoordinator) afterChange(ctx context.Context, absenceID string) {
	c.invalidateRankings(ctx)
	if _, err := c.deps.Tracker.Recompute(ctx, absenceID); err != nil {
		c.deps.Logger.Warn("failed to recompute coverage status", zap.String("absence_id", absenceID), zap.Error(err))
	}
}

func (c *AssignmentCoordinator) finishAutoAssign(ctx context.Context, result *models.AutoAssignResult, started time.Time, outcome string) {
	c.invalidateRankings(ctx)
	status, err := c.deps.Tracker.Recompute(ctx, result.AbsenceID)
	if err != nil {
		c.deps.Logger.Warn("failed to recompute coverage status", zap.String("absence_id", result.AbsenceID), zap.Error(err))
	}
	result.Status = status
	c.deps.Metrics.ObserveAutoAssign(outcome, result.AssignedCount, result.FailedCount, time.Since(started))
}

func (c *AssignmentCoordinator) invalidateRankings(ctx context.Context) {
	if c.deps.Cache == nil {
		return
	}
	if err := c.deps.Cache.Invalidate(ctx, rankingCachePattern); err != nil {
		c.deps.Logger.Warn("failed to invalidate ranking cache", zap.Error(err))
	}
}

// pickCandidate walks a score-ordered list and returns the first candidate whose
// threshold score clears the minimum.
func pickCandidate(candidates []models.SubstituteCandidate, threshold int) *models.SubstituteCandidate {
	for i := range candidates {
		if !candidates[i].IsBusy && candidates[i].ThresholdScore() >= threshold {
			return &candidates[i]
		}
	}
	return nil
}

func normaliseID(id *string) *string {
	if id == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*id)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
