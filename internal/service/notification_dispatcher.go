package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-substitution-api/internal/models"
	"github.com/noah-isme/sma-substitution-api/pkg/jobs"
	"github.com/noah-isme/sma-substitution-api/pkg/mail"
)

// Notification kinds.
const (
	NotificationLesson      = "lesson"
	NotificationSupervision = "supervision"
)

const notificationJobType = "substitution.notify"

type mailSender interface {
	Send(ctx context.Context, msg mail.Message) error
}

type emailMarker interface {
	MarkEmailSent(ctx context.Context, id string, sentAt time.Time) error
}

type jobQueue interface {
	Enqueue(job jobs.Job) error
}

// Notification is the payload handed to the delivery worker.
type Notification struct {
	Kind     string
	RecordID string
	Message  mail.Message
}

// NotificationDispatcher tells substitutes about new assignments. Delivery never fails the caller.
type NotificationDispatcher struct {
	mailer       mailSender
	lessons      emailMarker
	supervisions emailMarker
	queue        jobQueue
	metrics      *MetricsService
	logger       *zap.Logger
	now          func() time.Time
}

// NewNotificationDispatcher constructs the dispatcher. Without a queue, delivery runs inline.
func NewNotificationDispatcher(mailer mailSender, lessons, supervisions emailMarker, metrics *MetricsService, logger *zap.Logger) *NotificationDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationDispatcher{
		mailer:       mailer,
		lessons:      lessons,
		supervisions: supervisions,
		metrics:      metrics,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// UseQueue routes deliveries through a background queue.
func (d *NotificationDispatcher) UseQueue(queue jobQueue) {
	d.queue = queue
}

// NotifyLesson announces a lesson substitution to the substitute.
func (d *NotificationDispatcher) NotifyLesson(ctx context.Context, sub *models.Substitution, substitute *models.Teacher, lesson *models.ScheduledLesson, absence *models.Absence) {
	if substitute == nil || strings.TrimSpace(substitute.Email) == "" {
		return
	}
	location := strings.Join(lesson.RoomIDs, ", ")
	body := fmt.Sprintf("Hello %s,\n\nyou have been assigned to cover %s on %s, period %d.\nLocation: %s\n",
		substitute.FullName, lessonDescription(lesson), absence.Date.Format("Monday, 2006-01-02"), lesson.Period, orDash(location))
	d.dispatch(ctx, Notification{
		Kind:     NotificationLesson,
		RecordID: sub.ID,
		Message: mail.Message{
			To:      substitute.Email,
			Subject: fmt.Sprintf("Substitution %s period %d", absence.Date.Format("2006-01-02"), lesson.Period),
			Body:    body,
		},
	})
}

// NotifySupervision announces a supervision substitution to the substitute.
func (d *NotificationDispatcher) NotifySupervision(ctx context.Context, sub *models.BreakSupervisionSubstitution, substitute *models.Teacher, duty *models.BreakSupervisionDuty, absence *models.Absence) {
	if substitute == nil || strings.TrimSpace(substitute.Email) == "" {
		return
	}
	body := fmt.Sprintf("Hello %s,\n\nyou have been assigned to the break supervision on %s, period %d.\nLocation: %s\n",
		substitute.FullName, absence.Date.Format("Monday, 2006-01-02"), duty.Period, orDash(duty.Room))
	d.dispatch(ctx, Notification{
		Kind:     NotificationSupervision,
		RecordID: sub.ID,
		Message: mail.Message{
			To:      substitute.Email,
			Subject: fmt.Sprintf("Break supervision %s period %d", absence.Date.Format("2006-01-02"), duty.Period),
			Body:    body,
		},
	})
}

func (d *NotificationDispatcher) dispatch(ctx context.Context, n Notification) {
	if d.queue == nil {
		if err := d.Deliver(ctx, jobs.Job{ID: n.RecordID, Type: notificationJobType, Payload: n}); err != nil {
			d.logger.Warn("notification failed", zap.String("kind", n.Kind), zap.String("record_id", n.RecordID), zap.Error(err))
		}
		return
	}
	if err := d.queue.Enqueue(jobs.Job{ID: n.RecordID, Type: notificationJobType, Payload: n}); err != nil {
		d.metrics.RecordNotification(n.Kind, "dropped")
		d.logger.Warn("notification dropped", zap.String("kind", n.Kind), zap.String("record_id", n.RecordID), zap.Error(err))
	}
}

// Deliver sends one notification and records the email bookkeeping. It is the queue handler.
func (d *NotificationDispatcher) Deliver(ctx context.Context, job jobs.Job) error {
	n, ok := job.Payload.(Notification)
	if !ok {
		d.logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
		return nil
	}
	if d.mailer == nil {
		return nil
	}
	if err := d.mailer.Send(ctx, n.Message); err != nil {
		d.metrics.RecordNotification(n.Kind, "failed")
		return fmt.Errorf("send %s notification: %w", n.Kind, err)
	}
	d.metrics.RecordNotification(n.Kind, "sent")

	marker := d.lessons
	if n.Kind == NotificationSupervision {
		marker = d.supervisions
	}
	if marker != nil {
		if err := marker.MarkEmailSent(ctx, n.RecordID, d.now()); err != nil {
			d.logger.Warn("failed to mark email sent", zap.String("record_id", n.RecordID), zap.Error(err))
		}
	}
	return nil
}

func lessonDescription(lesson *models.ScheduledLesson) string {
	if lesson.Label != "" {
		return lesson.Label
	}
	return "lesson " + lesson.ID
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
