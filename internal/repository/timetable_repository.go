package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-substitution-api/internal/models"
)

// TimetableRepository reads published timetables and the period grid.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs the repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

// FindPublished returns the currently published timetable or sql.ErrNoRows.
func (r *TimetableRepository) FindPublished(ctx context.Context) (*models.Timetable, error) {
	const query = `SELECT id, name, status, published_at, created_at FROM timetables WHERE status = $1 ORDER BY published_at DESC NULLS LAST LIMIT 1`
	var timetable models.Timetable
	if err := r.db.GetContext(ctx, &timetable, query, models.TimetableStatusPublished); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find published timetable: %w", err)
	}
	return &timetable, nil
}

// ListPeriods returns the period grid ordered by number.
func (r *TimetableRepository) ListPeriods(ctx context.Context) ([]models.Period, error) {
	const query = `SELECT number, to_char(start_time, 'HH24:MI') AS start_time, to_char(end_time, 'HH24:MI') AS end_time FROM periods ORDER BY number ASC`
	var periods []models.Period
	if err := r.db.SelectContext(ctx, &periods, query); err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	return periods, nil
}
