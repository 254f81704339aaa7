package mail

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	netmail "net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/coursepass-api/pkg/config"
)

func TestSendGridSenderPostsMessage(t *testing.T) {
	var captured map[string]interface{}
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, endpoint, r.URL.Path)
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sender := NewSendGridSender(config.MailConfig{SendGridAPIKey: "SG.key", FromName: "CoursePass", FromAddress: "no-reply@example.com"}, srv.URL)
	err := sender.Send(context.Background(), Message{
		To:      netmail.Address{Name: "alice", Address: "alice@example.com"},
		Subject: "Complete your payment",
		Text:    "pay here",
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer SG.key", auth)
	personalizations := captured["personalizations"].([]interface{})
	require.Len(t, personalizations, 1)
	assert.Equal(t, "[CoursePass] Complete your payment", personalizations[0].(map[string]interface{})["subject"])
}

func TestSendGridSenderReportsFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
	}))
	defer srv.Close()

	sender := NewSendGridSender(config.MailConfig{SendGridAPIKey: "bad", FromAddress: "x@example.com"}, srv.URL)
	err := sender.Send(context.Background(), Message{To: netmail.Address{Address: "a@example.com"}, Subject: "s", Text: "t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestNewFallsBackToLogSender(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sender := New(config.MailConfig{}, zap.New(core))

	_, ok := sender.(*LogSender)
	require.True(t, ok)
	require.NoError(t, sender.Send(context.Background(), Message{
		To:      netmail.Address{Address: "a@example.com"},
		Subject: "hello",
		Text:    "pay at https://checkout.test/session/1",
	}))
	require.Equal(t, 1, logs.Len())

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "hello", fields["subject"])
	assert.NotContains(t, fields, "body")
	for _, v := range fields {
		assert.NotContains(t, v, "checkout.test")
	}
}
