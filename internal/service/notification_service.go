package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/rchan-moderation-api/pkg/jobs"
	"github.com/noah-isme/rchan-moderation-api/pkg/mailer"
)

// NotificationKind selects the email sent by SendCode.
type NotificationKind string

const (
	NotifyVerification   NotificationKind = "VERIFICATION"
	NotifyPasswordReset  NotificationKind = "PASSWORD_RESET"
	NotifyAccountDeleted NotificationKind = "ACCOUNT_DELETED"
)

type jobQueue interface {
	Enqueue(job jobs.Job) error
}

// NotificationService emails codes and account notices through a background queue.
type NotificationService struct {
	sender     mailer.Sender
	queue      jobQueue
	metrics    *MetricsService
	codeExpiry time.Duration
	logger     *zap.Logger
}

// NewNotificationService constructs the notifier. Without a queue messages are sent inline.
func NewNotificationService(sender mailer.Sender, metrics *MetricsService, codeExpiry time.Duration, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{sender: sender, metrics: metrics, codeExpiry: codeExpiry, logger: logger}
}

// UseQueue routes deliveries through q.
func (s *NotificationService) UseQueue(q jobQueue) {
	s.queue = q
}

// SendCode queues an email of the given kind. For ACCOUNT_DELETED, code carries the username.
func (s *NotificationService) SendCode(ctx context.Context, to string, kind NotificationKind, code string) error {
	msg, err := s.compose(to, kind, code)
	if err != nil {
		return err
	}
	if s.queue != nil {
		err := s.queue.Enqueue(jobs.Job{Type: string(kind), Payload: msg})
		if err == nil {
			return nil
		}
		s.logger.Warn("notification queue unavailable, sending inline", zap.String("kind", string(kind)), zap.Error(err))
	}
	return s.deliver(ctx, string(kind), msg)
}

// Handle is the queue handler for notification jobs.
func (s *NotificationService) Handle(ctx context.Context, job jobs.Job) error {
	msg, ok := job.Payload.(mailer.Message)
	if !ok {
		return fmt.Errorf("unexpected notification payload %T", job.Payload)
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		return err
	}
	s.metrics.RecordNotification(job.Type, true)
	return nil
}

// Dropped is called by the queue once a job has exhausted its retries.
func (s *NotificationService) Dropped(job jobs.Job, err error) {
	s.metrics.RecordNotification(job.Type, false)
	s.logger.Error("notification dropped", zap.String("kind", job.Type), zap.String("job_id", job.ID), zap.Error(err))
}

func (s *NotificationService) deliver(ctx context.Context, kind string, msg mailer.Message) error {
	if err := s.sender.Send(ctx, msg); err != nil {
		s.metrics.RecordNotification(kind, false)
		return fmt.Errorf("send %s email: %w", kind, err)
	}
	s.metrics.RecordNotification(kind, true)
	return nil
}

func (s *NotificationService) compose(to string, kind NotificationKind, code string) (mailer.Message, error) {
	minutes := int(s.codeExpiry / time.Minute)
	switch kind {
	case NotifyVerification:
		return mailer.Message{
			To:      to,
			Subject: "Verify your r-chan moderator account",
			Body:    fmt.Sprintf("Your verification code is %s.\nIt expires in %d minutes.\n", code, minutes),
		}, nil
	case NotifyPasswordReset:
		return mailer.Message{
			To:      to,
			Subject: "r-chan password reset",
			Body:    fmt.Sprintf("Your password reset code is %s.\nIt expires in %d minutes. If you did not ask for a reset, ignore this email.\n", code, minutes),
		}, nil
	case NotifyAccountDeleted:
		return mailer.Message{
			To:      to,
			Subject: "Your r-chan account was deleted",
			Body:    fmt.Sprintf("The moderator account %s has been deleted by an administrator.\n", code),
		}, nil
	default:
		return mailer.Message{}, fmt.Errorf("unknown notification kind %q", kind)
	}
}
