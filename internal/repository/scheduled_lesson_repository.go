package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-substitution-api/internal/models"
)

const lessonColumns = `id, timetable_id, day_of_week, period, teacher_ids, subject_ids, class_ids, room_ids, label`

// ScheduledLessonRepository reads lesson occurrences of a timetable.
type ScheduledLessonRepository struct {
	db *sqlx.DB
}

// NewScheduledLessonRepository constructs the repository.
func NewScheduledLessonRepository(db *sqlx.DB) *ScheduledLessonRepository {
	return &ScheduledLessonRepository{db: db}
}

// FindByID loads a lesson by id.
func (r *ScheduledLessonRepository) FindByID(ctx context.Context, id string) (*models.ScheduledLesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM scheduled_lessons WHERE id = $1`
	var lesson models.ScheduledLesson
	if err := r.db.GetContext(ctx, &lesson, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find scheduled lesson: %w", err)
	}
	return &lesson, nil
}

// ListByTeacherDay returns the lessons a teacher holds on a weekday, ordered by period.
func (r *ScheduledLessonRepository) ListByTeacherDay(ctx context.Context, timetableID, teacherID string, dayOfWeek int) ([]models.ScheduledLesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM scheduled_lessons WHERE timetable_id = $1 AND day_of_week = $2 AND $3 = ANY(teacher_ids) ORDER BY period ASC, id ASC`
	var lessons []models.ScheduledLesson
	if err := r.db.SelectContext(ctx, &lessons, query, timetableID, dayOfWeek, teacherID); err != nil {
		return nil, fmt.Errorf("list lessons by teacher day: %w", err)
	}
	return lessons, nil
}

// ListBySlot returns every lesson held at a weekday/period.
func (r *ScheduledLessonRepository) ListBySlot(ctx context.Context, timetableID string, dayOfWeek, period int) ([]models.ScheduledLesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM scheduled_lessons WHERE timetable_id = $1 AND day_of_week = $2 AND period = $3 ORDER BY id ASC`
	var lessons []models.ScheduledLesson
	if err := r.db.SelectContext(ctx, &lessons, query, timetableID, dayOfWeek, period); err != nil {
		return nil, fmt.Errorf("list lessons by slot: %w", err)
	}
	return lessons, nil
}
