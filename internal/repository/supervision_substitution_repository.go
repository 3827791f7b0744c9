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

const supervisionSubstitutionColumns = `id, absence_id, break_supervision_duty_id, substitute_teacher_id, coverage_type, assigned_at, assigned_by, email_sent, email_sent_at, notes`

// SupervisionSubstitutionRepository persists break supervision substitutions.
type SupervisionSubstitutionRepository struct {
	db *sqlx.DB
}

// NewSupervisionSubstitutionRepository constructs the repository.
func NewSupervisionSubstitutionRepository(db *sqlx.DB) *SupervisionSubstitutionRepository {
	return &SupervisionSubstitutionRepository{db: db}
}

// Create inserts a supervision substitution, returning ErrDuplicate when the duty is already covered.
func (r *SupervisionSubstitutionRepository) Create(ctx context.Context, sub *models.BreakSupervisionSubstitution) error {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.AssignedAt.IsZero() {
		sub.AssignedAt = time.Now().UTC()
	}

	const query = `INSERT INTO break_supervision_substitutions (` + supervisionSubstitutionColumns + `)
		VALUES (:id, :absence_id, :break_supervision_duty_id, :substitute_teacher_id, :coverage_type, :assigned_at, :assigned_by, :email_sent, :email_sent_at, :notes)`
	if _, err := r.db.NamedExecContext(ctx, query, sub); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create supervision substitution: %w", err)
	}
	return nil
}

// FindByID fetches a supervision substitution by ID.
func (r *SupervisionSubstitutionRepository) FindByID(ctx context.Context, id string) (*models.BreakSupervisionSubstitution, error) {
	const query = `SELECT ` + supervisionSubstitutionColumns + ` FROM break_supervision_substitutions WHERE id = $1`
	var sub models.BreakSupervisionSubstitution
	if err := r.db.GetContext(ctx, &sub, query, id); err != nil {
		return nil, err
	}
	return &sub, nil
}

// FindByAbsenceAndDuty returns the substitution covering a duty for an absence.
func (r *SupervisionSubstitutionRepository) FindByAbsenceAndDuty(ctx context.Context, absenceID, dutyID string) (*models.BreakSupervisionSubstitution, error) {
	const query = `SELECT ` + supervisionSubstitutionColumns + ` FROM break_supervision_substitutions WHERE absence_id = $1 AND break_supervision_duty_id = $2`
	var sub models.BreakSupervisionSubstitution
	if err := r.db.GetContext(ctx, &sub, query, absenceID, dutyID); err != nil {
		return nil, err
	}
	return &sub, nil
}

// ListByAbsence returns all supervision substitutions of an absence.
func (r *SupervisionSubstitutionRepository) ListByAbsence(ctx context.Context, absenceID string) ([]models.BreakSupervisionSubstitution, error) {
	const query = `SELECT ` + supervisionSubstitutionColumns + ` FROM break_supervision_substitutions WHERE absence_id = $1 ORDER BY assigned_at ASC, id ASC`
	var subs []models.BreakSupervisionSubstitution
	if err := r.db.SelectContext(ctx, &subs, query, absenceID); err != nil {
		return nil, fmt.Errorf("list supervision substitutions: %w", err)
	}
	return subs, nil
}

// Delete removes a supervision substitution.
func (r *SupervisionSubstitutionRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM break_supervision_substitutions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete supervision substitution: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListBusyTeachersAt returns substitutes already supervising at the given date and period.
func (r *SupervisionSubstitutionRepository) ListBusyTeachersAt(ctx context.Context, date time.Time, period int) ([]string, error) {
	const query = `SELECT DISTINCT bs.substitute_teacher_id
		FROM break_supervision_substitutions bs
		JOIN absences a ON a.id = bs.absence_id
		JOIN break_supervision_duties d ON d.id = bs.break_supervision_duty_id
		WHERE bs.substitute_teacher_id IS NOT NULL AND a.date = $1 AND d.period = $2`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, date.Format("2006-01-02"), period); err != nil {
		return nil, fmt.Errorf("list busy supervisors: %w", err)
	}
	return ids, nil
}

// MarkEmailSent records a delivered notification.
func (r *SupervisionSubstitutionRepository) MarkEmailSent(ctx context.Context, id string, sentAt time.Time) error {
	const query = `UPDATE break_supervision_substitutions SET email_sent = TRUE, email_sent_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, sentAt); err != nil {
		return fmt.Errorf("mark supervision email sent: %w", err)
	}
	return nil
}
