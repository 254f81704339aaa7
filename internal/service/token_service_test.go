package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coursepass-api/internal/models"
)

func newTestTokenService(t *testing.T, now time.Time) *TokenService {
	t.Helper()
	svc, err := NewTokenService(TokenConfig{Secret: "secret", Expiration: time.Hour, Issuer: "coursepass-test"})
	require.NoError(t, err)
	return svc.WithClock(func() time.Time { return now })
}

func tokenReason(t *testing.T, err error) TokenErrorReason {
	t.Helper()
	var tokenErr *TokenError
	require.True(t, errors.As(err, &tokenErr), "expected TokenError, got %v", err)
	return tokenErr.Reason
}

func TestTokenIssueExtractRoundTrip(t *testing.T) {
	svc := newTestTokenService(t, time.Now())

	token, expiresAt, err := svc.Issue("alice", models.RoleStudent)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	subject, err := svc.ExtractSubject(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", subject)

	role, err := svc.ExtractRole(token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, role)
	assert.True(t, svc.Validate(token))
}

func TestTokenExpires(t *testing.T) {
	issuedAt := time.Now()
	svc := newTestTokenService(t, issuedAt)
	token, _, err := svc.Issue("alice", models.RoleStudent)
	require.NoError(t, err)

	svc.WithClock(func() time.Time { return issuedAt.Add(2 * time.Hour) })
	assert.False(t, svc.Validate(token))
	_, err = svc.Parse(token)
	assert.Equal(t, TokenExpired, tokenReason(t, err))
}

func TestTokenWrongSecret(t *testing.T) {
	svc := newTestTokenService(t, time.Now())
	other, err := NewTokenService(TokenConfig{Secret: "other", Expiration: time.Hour, Issuer: "coursepass-test"})
	require.NoError(t, err)

	token, _, err := other.Issue("alice", models.RoleAdmin)
	require.NoError(t, err)

	_, err = svc.Parse(token)
	assert.Equal(t, TokenSignature, tokenReason(t, err))
}

func TestTokenMalformed(t *testing.T) {
	svc := newTestTokenService(t, time.Now())
	_, err := svc.Parse("not-a-token")
	assert.Equal(t, TokenMalformed, tokenReason(t, err))
	_, err = svc.Parse("")
	assert.Equal(t, TokenMalformed, tokenReason(t, err))
}

func TestTokenUnknownRoleRejected(t *testing.T) {
	now := time.Now()
	svc := newTestTokenService(t, now)
	claims := models.TokenClaims{
		Role: "TEACHER",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "mallory",
			Issuer:    "coursepass-test",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = svc.Parse(token)
	assert.Equal(t, TokenClaims, tokenReason(t, err))
}

func TestTokenIssueRejectsInvalidInput(t *testing.T) {
	svc := newTestTokenService(t, time.Now())
	_, _, err := svc.Issue("", models.RoleAdmin)
	assert.Error(t, err)
	_, _, err = svc.Issue("alice", models.Role("ROOT"))
	assert.Error(t, err)

	_, err = NewTokenService(TokenConfig{})
	assert.Error(t, err)
}
