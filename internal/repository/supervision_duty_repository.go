package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-substitution-api/internal/models"
)

const dutyColumns = `id, timetable_id, room, day_of_week, period, teacher_id, active`

// SupervisionDutyRepository reads break supervision duties.
type SupervisionDutyRepository struct {
	db *sqlx.DB
}

// NewSupervisionDutyRepository constructs the repository.
func NewSupervisionDutyRepository(db *sqlx.DB) *SupervisionDutyRepository {
	return &SupervisionDutyRepository{db: db}
}

// FindByID loads a duty by id.
func (r *SupervisionDutyRepository) FindByID(ctx context.Context, id string) (*models.BreakSupervisionDuty, error) {
	query := `SELECT ` + dutyColumns + ` FROM break_supervision_duties WHERE id = $1`
	var duty models.BreakSupervisionDuty
	if err := r.db.GetContext(ctx, &duty, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find supervision duty: %w", err)
	}
	return &duty, nil
}

// ListByTeacherDay returns the active duties a teacher holds on a weekday.
func (r *SupervisionDutyRepository) ListByTeacherDay(ctx context.Context, timetableID, teacherID string, dayOfWeek int) ([]models.BreakSupervisionDuty, error) {
	query := `SELECT ` + dutyColumns + ` FROM break_supervision_duties WHERE timetable_id = $1 AND teacher_id = $2 AND day_of_week = $3 AND active = TRUE ORDER BY period ASC, id ASC`
	var duties []models.BreakSupervisionDuty
	if err := r.db.SelectContext(ctx, &duties, query, timetableID, teacherID, dayOfWeek); err != nil {
		return nil, fmt.Errorf("list duties by teacher day: %w", err)
	}
	return duties, nil
}

// ListBySlot returns the active duties held at a weekday/period.
func (r *SupervisionDutyRepository) ListBySlot(ctx context.Context, timetableID string, dayOfWeek, period int) ([]models.BreakSupervisionDuty, error) {
	query := `SELECT ` + dutyColumns + ` FROM break_supervision_duties WHERE timetable_id = $1 AND day_of_week = $2 AND period = $3 AND active = TRUE ORDER BY id ASC`
	var duties []models.BreakSupervisionDuty
	if err := r.db.SelectContext(ctx, &duties, query, timetableID, dayOfWeek, period); err != nil {
		return nil, fmt.Errorf("list duties by slot: %w", err)
	}
	return duties, nil
}

type teacherCount struct {
	TeacherID string `db:"teacher_id"`
	Total     int    `db:"total"`
}

// CountActiveByTeacher returns the weekly number of active duties per teacher.
func (r *SupervisionDutyRepository) CountActiveByTeacher(ctx context.Context, timetableID string) (map[string]int, error) {
	const query = `SELECT teacher_id, COUNT(*) AS total FROM break_supervision_duties WHERE timetable_id = $1 AND active = TRUE AND teacher_id IS NOT NULL GROUP BY teacher_id`
	var rows []teacherCount
	if err := r.db.SelectContext(ctx, &rows, query, timetableID); err != nil {
		return nil, fmt.Errorf("count duties by teacher: %w", err)
	}
	return countsToMap(rows), nil
}

func countsToMap(rows []teacherCount) map[string]int {
	result := make(map[string]int, len(rows))
	for _, row := range rows {
		result[row.TeacherID] = row.Total
	}
	return result
}
