package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-substitution-api/internal/models"
)

// TeacherAvailabilityRepository reads soft time preferences and subject qualifications.
type TeacherAvailabilityRepository struct {
	db *sqlx.DB
}

// NewTeacherAvailabilityRepository constructs the repository.
func NewTeacherAvailabilityRepository(db *sqlx.DB) *TeacherAvailabilityRepository {
	return &TeacherAvailabilityRepository{db: db}
}

// ListBySlot returns every stated preference for a weekday/period.
func (r *TeacherAvailabilityRepository) ListBySlot(ctx context.Context, dayOfWeek, period int) ([]models.TeacherAvailability, error) {
	const query = `SELECT id, teacher_id, day_of_week, period, importance, reason FROM teacher_availabilities WHERE day_of_week = $1 AND period = $2`
	var rows []models.TeacherAvailability
	if err := r.db.SelectContext(ctx, &rows, query, dayOfWeek, period); err != nil {
		return nil, fmt.Errorf("list availabilities by slot: %w", err)
	}
	return rows, nil
}

// ListQualifiedTeacherIDs returns teachers qualified for at least one of the given subjects.
func (r *TeacherAvailabilityRepository) ListQualifiedTeacherIDs(ctx context.Context, subjectIDs []string) ([]string, error) {
	if len(subjectIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT DISTINCT teacher_id FROM teacher_subjects WHERE qualified = TRUE AND subject_id = ANY($1) ORDER BY teacher_id`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, pq.Array(subjectIDs)); err != nil {
		return nil, fmt.Errorf("list qualified teachers: %w", err)
	}
	return ids, nil
}
