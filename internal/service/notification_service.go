package service

import (
	"context"
	"fmt"
	netmail "net/mail"

	"go.uber.org/zap"

	"github.com/noah-isme/coursepass-api/internal/models"
	"github.com/noah-isme/coursepass-api/pkg/jobs"
	"github.com/noah-isme/coursepass-api/pkg/mail"
)

const (
	jobPaymentLink      = "mail.payment_link"
	jobPaymentConfirmed = "mail.payment_confirmed"
)

// NotificationConfig sizes the mail worker pool.
type NotificationConfig struct {
	Workers int
	Retries int
}

// NotificationService sends student mails through a background queue so that
// request handlers never wait on the mail provider.
type NotificationService struct {
	sender  mail.Sender
	queue   *jobs.Queue
	metrics *MetricsService
	logger  *zap.Logger
}

// NewNotificationService wires the sender behind a worker queue. Call Start
// before enqueuing and Stop on shutdown.
func NewNotificationService(sender mail.Sender, cfg NotificationConfig, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{sender: sender, metrics: metrics, logger: logger}
	s.queue = jobs.NewQueue("mail", s.deliver, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.Retries,
		Logger:     logger,
	})
	return s
}

// Start launches the mail workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains queued mails until ctx expires.
func (s *NotificationService) Stop(ctx context.Context) error {
	return s.queue.Stop(ctx)
}

// PaymentLinkIssued mails the checkout link to the student.
func (s *NotificationService) PaymentLinkIssued(_ context.Context, student *models.Student) {
	if student == nil || student.Email == "" || student.PaymentLink == "" {
		return
	}
	s.enqueue(jobPaymentLink, mail.Message{
		To:      netmail.Address{Name: student.ID, Address: student.Email},
		Subject: "Complete your course access payment",
		Text: fmt.Sprintf("Hello %s,\n\nYour course access is waiting for payment. Complete it here:\n%s\n\nAccess is valid for 12 months after payment.\n",
			student.ID, student.PaymentLink),
	})
}

// PaymentConfirmed mails a receipt once the provider confirmed the payment.
func (s *NotificationService) PaymentConfirmed(_ context.Context, student *models.Student) {
	if student == nil || student.Email == "" {
		return
	}
	s.enqueue(jobPaymentConfirmed, mail.Message{
		To:      netmail.Address{Name: student.ID, Address: student.Email},
		Subject: "Payment received",
		Text:    fmt.Sprintf("Hello %s,\n\nWe received your payment. Your course access is now active.\n", student.ID),
	})
}

func (s *NotificationService) enqueue(jobType string, msg mail.Message) {
	if err := s.queue.Enqueue(jobs.Job{Type: jobType, Payload: msg}); err != nil {
		s.metrics.RecordMail(OutcomeFailure)
		s.logger.Warn("failed to enqueue mail", zap.String("type", jobType), zap.String("to", msg.To.Address), zap.Error(err))
	}
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	msg, ok := job.Payload.(mail.Message)
	if !ok {
		s.logger.Error("unexpected mail payload", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		s.metrics.RecordMail(OutcomeFailure)
		return err
	}
	s.metrics.RecordMail(OutcomeSuccess)
	return nil
}
