package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-substitution-api/internal/models"
)

const substitutionColumns = `id, absence_id, scheduled_lesson_id, substitute_teacher_id, coverage_type, assigned_at, assigned_by, email_sent, email_sent_at, hours_worked, pay_rate, computed_pay, notes`

// SubstitutionRepository persists lesson substitutions.
type SubstitutionRepository struct {
	db *sqlx.DB
}

// NewSubstitutionRepository constructs a SubstitutionRepository.
func NewSubstitutionRepository(db *sqlx.DB) *SubstitutionRepository {
	return &SubstitutionRepository{db: db}
}

// Create inserts a substitution. A second row for the same absence and lesson yields ErrDuplicate.
func (r *SubstitutionRepository) Create(ctx context.Context, sub *models.Substitution) error {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.AssignedAt.IsZero() {
		sub.AssignedAt = time.Now().UTC()
	}

	const query = `INSERT INTO substitutions (` + substitutionColumns + `)
		VALUES (:id, :absence_id, :scheduled_lesson_id, :substitute_teacher_id, :coverage_type, :assigned_at, :assigned_by, :email_sent, :email_sent_at, :hours_worked, :pay_rate, :computed_pay, :notes)`
	if _, err := r.db.NamedExecContext(ctx, query, sub); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create substitution: %w", err)
	}
	return nil
}

// FindByID fetches a substitution by ID.
func (r *SubstitutionRepository) FindByID(ctx context.Context, id string) (*models.Substitution, error) {
	const query = `SELECT ` + substitutionColumns + ` FROM substitutions WHERE id = $1`
	var sub models.Substitution
	if err := r.db.GetContext(ctx, &sub, query, id); err != nil {
		return nil, err
	}
	return &sub, nil
}

// FindByAbsenceAndLesson returns the substitution covering a lesson for an absence.
func (r *SubstitutionRepository) FindByAbsenceAndLesson(ctx context.Context, absenceID, lessonID string) (*models.Substitution, error) {
	const query = `SELECT ` + substitutionColumns + ` FROM substitutions WHERE absence_id = $1 AND scheduled_lesson_id = $2`
	var sub models.Substitution
	if err := r.db.GetContext(ctx, &sub, query, absenceID, lessonID); err != nil {
		return nil, err
	}
	return &sub, nil
}

// ListByAbsence returns all substitutions recorded for an absence.
func (r *SubstitutionRepository) ListByAbsence(ctx context.Context, absenceID string) ([]models.Substitution, error) {
	const query = `SELECT ` + substitutionColumns + ` FROM substitutions WHERE absence_id = $1 ORDER BY assigned_at ASC, id ASC`
	var subs []models.Substitution
	if err := r.db.SelectContext(ctx, &subs, query, absenceID); err != nil {
		return nil, fmt.Errorf("list substitutions: %w", err)
	}
	return subs, nil
}

// Delete removes a substitution.
func (r *SubstitutionRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM substitutions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete substitution: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountByTeacherBetween counts substitutions per substitute for absences dated in [from, to).
func (r *SubstitutionRepository) CountByTeacherBetween(ctx context.Context, from, to time.Time) (map[string]int, error) {
	const query = `SELECT s.substitute_teacher_id AS teacher_id, COUNT(*) AS total
		FROM substitutions s JOIN absences a ON a.id = s.absence_id
		WHERE s.substitute_teacher_id IS NOT NULL AND a.date >= $1 AND a.date < $2
		GROUP BY s.substitute_teacher_id`
	var rows []teacherCount
	if err := r.db.SelectContext(ctx, &rows, query, from.Format("2006-01-02"), to.Format("2006-01-02")); err != nil {
		return nil, fmt.Errorf("count substitutions by teacher: %w", err)
	}
	return countsToMap(rows), nil
}

// ListBusyTeachersAt returns substitutes already covering a lesson at the given date and period.
func (r *SubstitutionRepository) ListBusyTeachersAt(ctx context.Context, date time.Time, period int) ([]string, error) {
	const query = `SELECT DISTINCT s.substitute_teacher_id
		FROM substitutions s
		JOIN absences a ON a.id = s.absence_id
		JOIN scheduled_lessons l ON l.id = s.scheduled_lesson_id
		WHERE s.substitute_teacher_id IS NOT NULL AND a.date = $1 AND l.period = $2`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, date.Format("2006-01-02"), period); err != nil {
		return nil, fmt.Errorf("list busy substitutes: %w", err)
	}
	return ids, nil
}

// MarkEmailSent records a delivered notification.
func (r *SubstitutionRepository) MarkEmailSent(ctx context.Context, id string, sentAt time.Time) error {
	const query = `UPDATE substitutions SET email_sent = TRUE, email_sent_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, sentAt); err != nil {
		return fmt.Errorf("mark substitution email sent: %w", err)
	}
	return nil
}

// ListPlanEntries returns lesson and supervision substitutions of a date, ordered by period.
func (r *SubstitutionRepository) ListPlanEntries(ctx context.Context, date time.Time) ([]models.PlanEntry, error) {
	const query = `SELECT kind, period, label, absent_teacher_name, substitute_name, coverage_type, notes FROM (
		SELECT 'LESSON' AS kind, l.period, l.label, t.full_name AS absent_teacher_name, st.full_name AS substitute_name, s.coverage_type, s.notes
		FROM substitutions s
		JOIN absences a ON a.id = s.absence_id
		JOIN teachers t ON t.id = a.teacher_id
		JOIN scheduled_lessons l ON l.id = s.scheduled_lesson_id
		LEFT JOIN teachers st ON st.id = s.substitute_teacher_id
		WHERE a.date = $1
		UNION ALL
		SELECT 'SUPERVISION' AS kind, d.period, d.room AS label, t.full_name AS absent_teacher_name, st.full_name AS substitute_name, bs.coverage_type, bs.notes
		FROM break_supervision_substitutions bs
		JOIN absences a ON a.id = bs.absence_id
		JOIN teachers t ON t.id = a.teacher_id
		JOIN break_supervision_duties d ON d.id = bs.break_supervision_duty_id
		LEFT JOIN teachers st ON st.id = bs.substitute_teacher_id
		WHERE a.date = $1
	) plan ORDER BY period ASC, kind ASC, label ASC`
	var entries []models.PlanEntry
	if err := r.db.SelectContext(ctx, &entries, query, date.Format("2006-01-02")); err != nil {
		return nil, fmt.Errorf("list plan entries: %w", err)
	}
	return entries, nil
}
