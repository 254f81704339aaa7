package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/noah-isme/coursepass-api/pkg/config"
)

const (
	// MetadataStudentID is the checkout session metadata key carrying the student id.
	MetadataStudentID = "studentId"
	// EventCheckoutCompleted is the event type that confirms a payment.
	EventCheckoutCompleted = string(stripe.EventTypeCheckoutSessionCompleted)
)

var (
	// ErrInvalidSignature indicates a webhook payload that failed verification.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrNotConfigured is returned when no provider secret key is set.
	ErrNotConfigured = errors.New("payment provider not configured")
)

// Event is the provider-neutral view of a webhook delivery.
type Event struct {
	ID        string
	Type      string
	SessionID string
	// StudentID is empty when no student reference could be recovered.
	StudentID string
}

// Completed reports whether the event confirms a checkout.
func (e *Event) Completed() bool {
	return e != nil && e.Type == EventCheckoutCompleted
}

// StripeGateway creates hosted checkout sessions and verifies webhooks.
type StripeGateway struct {
	cfg      config.StripeConfig
	sessions *session.Client
}

// Option customises the gateway.
type Option func(*StripeGateway)

// WithBackend overrides the Stripe API backend, mainly for tests.
func WithBackend(b stripe.Backend) Option {
	return func(g *StripeGateway) {
		g.sessions.B = b
	}
}

// NewStripeGateway builds a gateway from cfg using the default Stripe backend.
func NewStripeGateway(cfg config.StripeConfig, opts ...Option) *StripeGateway {
	g := &StripeGateway{
		cfg: cfg,
		sessions: &session.Client{
			B:   stripe.GetBackend(stripe.APIBackend),
			Key: cfg.SecretKey,
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CreateCheckoutSession returns the hosted checkout URL for a one-time
// course access payment by studentID.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, studentID string) (string, error) {
	if g.cfg.SecretKey == "" {
		return "", ErrNotConfigured
	}
	successURL, err := withStudentID(g.cfg.SuccessURL, studentID)
	if err != nil {
		return "", fmt.Errorf("build success url: %w", err)
	}

	productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
		Name: stripe.String(g.cfg.ProductName),
	}
	if g.cfg.ProductDescription != "" {
		productData.Description = stripe.String(g.cfg.ProductDescription)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(successURL),
		CancelURL:         stripe.String(g.cfg.CancelURL),
		ClientReferenceID: stripe.String(studentID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:    stripe.String(g.cfg.Currency),
					UnitAmount:  stripe.Int64(g.cfg.UnitAmount),
					ProductData: productData,
				},
			},
		},
	}
	params.AddMetadata(MetadataStudentID, studentID)
	params.Context = ctx

	s, err := g.sessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	if s.URL == "" {
		return "", fmt.Errorf("checkout session %s has no url", s.ID)
	}
	return s.URL, nil
}

// ParseWebhook verifies signature against the endpoint secret and extracts
// the student reference from checkout session events.
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*Event, error) {
	evt, err := webhook.ConstructEventWithOptions(payload, signature, g.cfg.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &Event{ID: evt.ID, Type: string(evt.Type)}
	if !strings.HasPrefix(out.Type, "checkout.session.") || evt.Data == nil {
		return out, nil
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(evt.Data.Raw, &cs); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	out.SessionID = cs.ID
	out.StudentID = studentIDFromSession(&cs)
	return out, nil
}

// studentIDFromSession tries metadata, then the client reference id, then
// the studentId query parameter of the success url.
func studentIDFromSession(cs *stripe.CheckoutSession) string {
	if id := strings.TrimSpace(cs.Metadata[MetadataStudentID]); id != "" {
		return id
	}
	if id := strings.TrimSpace(cs.ClientReferenceID); id != "" {
		return id
	}
	if cs.SuccessURL == "" {
		return ""
	}
	u, err := url.Parse(cs.SuccessURL)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(u.Query().Get(MetadataStudentID))
}

func withStudentID(raw, studentID string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set(MetadataStudentID, studentID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
