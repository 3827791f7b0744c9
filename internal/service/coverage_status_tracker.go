package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-substitution-api/internal/models"
	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
)

type absenceStatusWriter interface {
	UpdateStatus(ctx context.Context, id string, status models.AbsenceStatus) error
}

type affectedResolver interface {
	Resolve(ctx context.Context, absenceID string) (*models.AffectedItems, error)
}

// DeriveCoverageStatus maps lesson coverage counts onto the terminal coverage states.
// An absence without affected lessons has nothing left to cover.
func DeriveCoverageStatus(affected, covered int) models.AbsenceStatus {
	switch {
	case covered >= affected:
		return models.AbsenceStatusCovered
	case covered == 0:
		return models.AbsenceStatusNotCovered
	default:
		return models.AbsenceStatusPartiallyCovered
	}
}

// CoverageStatusTracker keeps Absence.Status in line with recorded substitutions.
type CoverageStatusTracker struct {
	absences absenceStatusWriter
	resolver affectedResolver
	logger   *zap.Logger
}

// NewCoverageStatusTracker constructs the tracker.
func NewCoverageStatusTracker(absences absenceStatusWriter, resolver affectedResolver, logger *zap.Logger) *CoverageStatusTracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CoverageStatusTracker{absences: absences, resolver: resolver, logger: logger}
}

// Recompute derives and stores the coverage status. Without a published timetable the stored
// status is left untouched and returned as empty.
func (t *CoverageStatusTracker) Recompute(ctx context.Context, absenceID string) (models.AbsenceStatus, error) {
	items, err := t.resolver.Resolve(ctx, absenceID)
	if err != nil {
		return "", err
	}
	if items.TimetableMissing {
		return "", nil
	}
	status := DeriveCoverageStatus(len(items.Lessons), items.CoveredLessons())
	if err := t.store(ctx, absenceID, status); err != nil {
		return "", err
	}
	t.logger.Debug("coverage status recomputed",
		zap.String("absence_id", absenceID),
		zap.String("status", string(status)),
		zap.Int("affected", len(items.Lessons)),
		zap.Int("covered", items.CoveredLessons()))
	return status, nil
}

// MarkBeingCovered flags an absence while an assignment run is in progress.
func (t *CoverageStatusTracker) MarkBeingCovered(ctx context.Context, absenceID string) error {
	return t.store(ctx, absenceID, models.AbsenceStatusBeingCovered)
}

func (t *CoverageStatusTracker) store(ctx context.Context, absenceID string, status models.AbsenceStatus) error {
	if err := t.absences.UpdateStatus(ctx, absenceID, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "absence not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update absence status")
	}
	return nil
}
