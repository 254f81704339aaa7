package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/coursepass-api/internal/dto"
	"github.com/noah-isme/coursepass-api/internal/models"
	appErrors "github.com/noah-isme/coursepass-api/pkg/errors"
	"github.com/noah-isme/coursepass-api/pkg/payment"
)

const (
	webhookDedupePrefix = "webhook:stripe:"
	webhookDedupeTTL    = 48 * time.Hour
)

type paymentStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	UpdatePaymentState(ctx context.Context, student *models.Student) error
	UpdatePaymentLink(ctx context.Context, id, link string) error
}

// PaymentService creates checkout sessions and reconciles provider webhooks
// with student payment state.
type PaymentService struct {
	gateway  PaymentGateway
	students paymentStudentRepository
	cache    *CacheService
	notifier notifier
	audit    auditLogger
	metrics  *MetricsService
	logger   *zap.Logger
	now      func() time.Time
}

// NewPaymentService constructs a PaymentService. cache and notifier may be nil.
func NewPaymentService(gateway PaymentGateway, students paymentStudentRepository, cache *CacheService, notifier notifier, audit auditLogger, metrics *MetricsService, logger *zap.Logger) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{
		gateway:  gateway,
		students: students,
		cache:    cache,
		notifier: notifier,
		audit:    audit,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateCheckoutSession opens a new hosted checkout for the student and
// stores it as the student's payment link.
func (s *PaymentService) CreateCheckoutSession(ctx context.Context, studentID string) (*dto.CheckoutSessionResponse, error) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "studentId is required")
	}
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	url, err := s.gateway.CreateCheckoutSession(ctx, studentID)
	if err != nil {
		s.metrics.RecordCheckoutSession(OutcomeFailure)
		return nil, appErrors.Wrap(err, appErrors.ErrPaymentProvider.Code, appErrors.ErrPaymentProvider.Status, "failed to create checkout session")
	}
	s.metrics.RecordCheckoutSession(OutcomeSuccess)

	if err := s.students.UpdatePaymentLink(ctx, studentID, url); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store payment link")
	}
	return &dto.CheckoutSessionResponse{CheckoutURL: url}, nil
}

// HandleWebhook verifies a provider delivery and confirms the payment of the
// referenced student. Deliveries that cannot be applied are acknowledged so
// the provider stops retrying them.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*dto.WebhookResult, error) {
	evt, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		s.metrics.RecordWebhookEvent("unknown", OutcomeDenied)
		if errors.Is(err, payment.ErrInvalidSignature) {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid webhook signature")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid webhook payload")
	}

	result := &dto.WebhookResult{Received: true, EventType: evt.Type}
	log := s.logger.With(zap.String("event_id", evt.ID), zap.String("event_type", evt.Type))

	if !evt.Completed() {
		s.metrics.RecordWebhookEvent(evt.Type, OutcomeSuccess)
		return result, nil
	}

	dedupeKey := webhookDedupePrefix + evt.ID
	if evt.ID != "" && !s.cache.FirstSeen(ctx, dedupeKey, webhookDedupeTTL) {
		log.Info("duplicate webhook delivery ignored")
		s.metrics.RecordWebhookEvent(evt.Type, OutcomeSuccess)
		result.Duplicate = true
		return result, nil
	}

	if evt.StudentID == "" {
		log.Warn("checkout completed without a student reference", zap.String("session_id", evt.SessionID))
		s.metrics.RecordWebhookEvent(evt.Type, OutcomeFailure)
		return result, nil
	}
	student, err := s.students.FindByID(ctx, evt.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Warn("checkout completed for unknown student", zap.String("student_id", evt.StudentID))
			s.metrics.RecordWebhookEvent(evt.Type, OutcomeFailure)
			return result, nil
		}
		s.cache.Invalidate(ctx, dedupeKey)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	student.ConfirmPayment(s.now().UTC())
	if err := s.students.UpdatePaymentState(ctx, student); err != nil {
		s.cache.Invalidate(ctx, dedupeKey)
		s.metrics.RecordWebhookEvent(evt.Type, OutcomeFailure)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to confirm payment")
	}

	s.metrics.RecordWebhookEvent(evt.Type, OutcomeSuccess)
	s.metrics.RecordPaymentConfirmed()
	if s.notifier != nil {
		s.notifier.PaymentConfirmed(ctx, student)
	}
	recordAudit(ctx, s.audit, s.logger, "stripe", models.AuditActionPaymentConfirm, "students", student.ID,
		map[string]interface{}{"eventId": evt.ID, "sessionId": evt.SessionID})
	log.Info("payment confirmed", zap.String("student_id", student.ID))

	result.Applied = true
	return result, nil
}
