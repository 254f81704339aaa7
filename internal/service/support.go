package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/coursepass-api/internal/models"
	appErrors "github.com/noah-isme/coursepass-api/pkg/errors"
	"github.com/noah-isme/coursepass-api/pkg/payment"
)

// bcryptCost is lowered by tests.
var bcryptCost = bcrypt.DefaultCost

// maxPasswordBytes is the longest input bcrypt accepts.
const maxPasswordBytes = 72

var errPasswordTooLong = errors.New("password exceeds 72 bytes")

// PaymentGateway creates checkout sessions and verifies provider webhooks.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, studentID string) (string, error)
	ParseWebhook(payload []byte, signature string) (*payment.Event, error)
}

type tokenIssuer interface {
	Issue(subject string, role models.Role) (string, time.Time, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// notifier delivers student facing notifications asynchronously.
type notifier interface {
	PaymentLinkIssued(ctx context.Context, student *models.Student)
	PaymentConfirmed(ctx context.Context, student *models.Student)
}

type requestMetaKey struct{}

// RequestMeta describes the HTTP origin of a call for audit purposes.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// WithRequestMeta attaches request metadata to ctx.
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// RequestMetaFrom returns the metadata attached by WithRequestMeta.
func RequestMetaFrom(ctx context.Context) RequestMeta {
	meta, _ := ctx.Value(requestMetaKey{}).(RequestMeta)
	return meta
}

// recordAudit writes an audit entry; failures are logged, never returned.
func recordAudit(ctx context.Context, audit auditLogger, logger *zap.Logger, actor, action, resource, resourceID string, values map[string]interface{}) {
	if audit == nil {
		return
	}
	var payload []byte
	if values != nil {
		var err error
		if payload, err = json.Marshal(values); err != nil {
			logger.Warn("failed to encode audit values", zap.String("action", action), zap.String("resource_id", resourceID), zap.Error(err))
		}
	}
	meta := RequestMetaFrom(ctx)
	if err := audit.CreateAuditLog(ctx, &models.AuditLog{
		Actor:      actor,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		NewValues:  payload,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}); err != nil {
		logger.Warn("failed to record audit log", zap.String("action", action), zap.String("resource_id", resourceID), zap.Error(err))
	}
}

func hashPassword(password string) (string, error) {
	if len(password) > maxPasswordBytes {
		return "", errPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// hashFailure maps a hashPassword error onto the API error it surfaces as.
func hashFailure(err error) error {
	if errors.Is(err, errPasswordTooLong) {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "password must not exceed 72 bytes")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
}

func passwordMatches(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// generatePassword returns a random URL-safe password of 16 characters.
func generatePassword() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
