package payment

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/noah-isme/coursepass-api/pkg/config"
)

const webhookSecret = "whsec_test"

func testConfig() config.StripeConfig {
	return config.StripeConfig{
		SecretKey:          "sk_test_123",
		WebhookSecret:      webhookSecret,
		SuccessURL:         "https://app.example.com/paid",
		CancelURL:          "https://app.example.com/cancel",
		Currency:           "usd",
		UnitAmount:         3500,
		ProductName:        "Course Access Fee",
		ProductDescription: "One-time payment for 12 months of course access",
	}
}

func sign(payload []byte) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    webhookSecret,
		Timestamp: time.Now(),
	}).Header
}

func sessionEvent(session string) []byte {
	return []byte(fmt.Sprintf(`{"id":"evt_1","object":"event","api_version":%q,"type":"checkout.session.completed","data":{"object":%s}}`, stripe.APIVersion, session))
}

func TestParseWebhookPrefersMetadata(t *testing.T) {
	g := NewStripeGateway(testConfig())
	payload := sessionEvent(`{"id":"cs_1","object":"checkout.session","metadata":{"studentId":"alice"},"client_reference_id":"bob"}`)

	evt, err := g.ParseWebhook(payload, sign(payload))
	require.NoError(t, err)
	assert.True(t, evt.Completed())
	assert.Equal(t, "evt_1", evt.ID)
	assert.Equal(t, "cs_1", evt.SessionID)
	assert.Equal(t, "alice", evt.StudentID)
}

func TestParseWebhookFallsBackToClientReferenceAndSuccessURL(t *testing.T) {
	g := NewStripeGateway(testConfig())

	payload := sessionEvent(`{"id":"cs_2","object":"checkout.session","client_reference_id":"bob"}`)
	evt, err := g.ParseWebhook(payload, sign(payload))
	require.NoError(t, err)
	assert.Equal(t, "bob", evt.StudentID)

	payload = sessionEvent(`{"id":"cs_3","object":"checkout.session","success_url":"https://app.example.com/paid?studentId=carol"}`)
	evt, err = g.ParseWebhook(payload, sign(payload))
	require.NoError(t, err)
	assert.Equal(t, "carol", evt.StudentID)

	payload = sessionEvent(`{"id":"cs_4","object":"checkout.session"}`)
	evt, err = g.ParseWebhook(payload, sign(payload))
	require.NoError(t, err)
	assert.Empty(t, evt.StudentID)
}

func TestParseWebhookRejectsBadSignature(t *testing.T) {
	g := NewStripeGateway(testConfig())
	payload := sessionEvent(`{"id":"cs_1","object":"checkout.session"}`)

	_, err := g.ParseWebhook(payload, "t=1,v1=deadbeef")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	foreign := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    "whsec_other",
		Timestamp: time.Now(),
	})
	_, err = g.ParseWebhook(payload, foreign.Header)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	stale := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    webhookSecret,
		Timestamp: time.Now().Add(-time.Hour),
	})
	_, err = g.ParseWebhook(payload, stale.Header)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestCreateCheckoutSession(t *testing.T) {
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		form, _ = url.ParseQuery(string(body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test"}`))
	}))
	defer srv.Close()

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		MaxNetworkRetries: stripe.Int64(0),
	})
	g := NewStripeGateway(testConfig(), WithBackend(backend))

	link, err := g.CreateCheckoutSession(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test", link)

	assert.Equal(t, "payment", form.Get("mode"))
	assert.Equal(t, "alice", form.Get("client_reference_id"))
	assert.Equal(t, "alice", form.Get("metadata[studentId]"))
	assert.Equal(t, "https://app.example.com/paid?studentId=alice", form.Get("success_url"))
	assert.Equal(t, "3500", form.Get("line_items[0][price_data][unit_amount]"))
	assert.Equal(t, "usd", form.Get("line_items[0][price_data][currency]"))
}

func TestCreateCheckoutSessionRequiresKey(t *testing.T) {
	cfg := testConfig()
	cfg.SecretKey = ""
	_, err := NewStripeGateway(cfg).CreateCheckoutSession(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
