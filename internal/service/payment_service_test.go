package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coursepass-api/internal/dto"
	"github.com/noah-isme/coursepass-api/internal/models"
	"github.com/noah-isme/coursepass-api/internal/testutil"
	appErrors "github.com/noah-isme/coursepass-api/pkg/errors"
)

func TestCreateCheckoutSessionStoresLink(t *testing.T) {
	f := newFixture(t)
	f.seedStudent(t, "s1", "secret1", false, false, nil)
	ctx := context.Background()

	res, err := f.payments.CreateCheckoutSession(ctx, "s1")
	require.NoError(t, err)
	assert.Contains(t, res.CheckoutURL, "studentId=s1")

	stored, _ := f.store.Student("s1")
	assert.Equal(t, res.CheckoutURL, stored.PaymentLink)

	_, err = f.payments.CreateCheckoutSession(ctx, "ghost")
	requireAppError(t, err, http.StatusNotFound)
	_, err = f.payments.CreateCheckoutSession(ctx, " ")
	requireAppError(t, err, http.StatusBadRequest)

	f.gateway.Fail = errors.New("stripe down")
	_, err = f.payments.CreateCheckoutSession(ctx, "s1")
	appErr := requireAppError(t, err, http.StatusInternalServerError)
	assert.Equal(t, appErrors.ErrPaymentProvider.Code, appErr.Code)
}

func TestWebhookConfirmsPaymentOnce(t *testing.T) {
	f := newFixture(t)
	f.seedStudent(t, "s1", "secret1", false, false, nil)
	ctx := context.Background()
	payload := testutil.CompletedEvent("evt_1", "s1")

	res, err := f.payments.HandleWebhook(ctx, payload, "valid")
	require.NoError(t, err)
	assert.True(t, res.Applied)

	stored, _ := f.store.Student("s1")
	assert.True(t, stored.Paid)
	assert.True(t, stored.Active)
	require.NotNil(t, stored.PaymentDate)
	assert.Equal(t, f.clock, *stored.PaymentDate)
	assert.Equal(t, []string{"s1"}, f.notifier.Confirmed)
	assert.Contains(t, f.store.AuditActions(), models.AuditActionPaymentConfirm)

	res, err = f.payments.HandleWebhook(ctx, payload, "valid")
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	assert.False(t, res.Applied)
	assert.Len(t, f.notifier.Confirmed, 1)
}

func TestWebhookRejectsInvalidSignature(t *testing.T) {
	f := newFixture(t)
	_, err := f.payments.HandleWebhook(context.Background(), testutil.CompletedEvent("evt_1", "s1"), "forged")
	requireAppError(t, err, http.StatusBadRequest)
}

func TestWebhookAcknowledgesUnknownStudentAndOtherEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.payments.HandleWebhook(ctx, testutil.CompletedEvent("evt_1", "ghost"), "valid")
	require.NoError(t, err)
	assert.True(t, res.Received)
	assert.False(t, res.Applied)

	res, err = f.payments.HandleWebhook(ctx, testutil.CompletedEvent("evt_2", ""), "valid")
	require.NoError(t, err)
	assert.False(t, res.Applied)

	res, err = f.payments.HandleWebhook(ctx, []byte(`{"ID":"evt_3","Type":"payment_intent.created"}`), "valid")
	require.NoError(t, err)
	assert.Equal(t, "payment_intent.created", res.EventType)
	assert.False(t, res.Applied)
}

func TestPaymentUnlocksStudentLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.students.Create(ctx, alice, createReq("s1", "cs101", "2026S"))
	require.NoError(t, err)

	_, err = f.students.Validate(ctx, dto.ValidateStudentRequest{ID: "s1", Password: "secret1"})
	appErr := requireAppError(t, err, http.StatusForbidden)
	assert.NotEmpty(t, appErr.Details["paymentLink"])

	_, err = f.payments.HandleWebhook(ctx, testutil.CompletedEvent("evt_1", "s1"), "valid")
	require.NoError(t, err)

	res, err := f.students.Validate(ctx, dto.ValidateStudentRequest{ID: "s1", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	require.Len(t, res.Enrollments, 1)
	assert.Equal(t, "cs101", res.Enrollments[0].Course)
}
