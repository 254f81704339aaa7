package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/coursepass-api/internal/models"
)

// TokenErrorReason classifies why a token was rejected.
type TokenErrorReason string

const (
	TokenMalformed TokenErrorReason = "MALFORMED"
	TokenSignature TokenErrorReason = "SIGNATURE"
	TokenExpired   TokenErrorReason = "EXPIRED"
	TokenClaims    TokenErrorReason = "CLAIMS"
)

// TokenError is returned for every token that cannot be trusted.
type TokenError struct {
	Reason TokenErrorReason
	Err    error
}

func (e *TokenError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("token rejected: %s", e.Reason)
	}
	return fmt.Sprintf("token rejected: %s: %v", e.Reason, e.Err)
}

func (e *TokenError) Unwrap() error {
	return e.Err
}

// TokenConfig configures token signing.
type TokenConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

// TokenService issues and verifies HS256 bearer tokens. Tokens are not
// refreshed, rotated or revoked.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewTokenService validates cfg and returns a token service.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, errors.New("token secret must not be empty")
	}
	if cfg.Expiration <= 0 {
		cfg.Expiration = 24 * time.Hour
	}
	return &TokenService{
		secret: []byte(cfg.Secret),
		ttl:    cfg.Expiration,
		issuer: cfg.Issuer,
		now:    time.Now,
	}, nil
}

// WithClock replaces the time source, for tests.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// Issue signs a token for subject with role.
func (s *TokenService) Issue(subject string, role models.Role) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, errors.New("token subject must not be empty")
	}
	if _, err := models.ParseRole(string(role)); err != nil {
		return "", time.Time{}, err
	}

	now := s.now().UTC()
	expiresAt := now.Add(s.ttl)
	claims := models.TokenClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse verifies signature, expiry and claims and returns them.
func (s *TokenService) Parse(tokenString string) (*models.TokenClaims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, &TokenError{Reason: TokenMalformed, Err: errors.New("empty token")}
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	claims := &models.TokenClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, classifyTokenError(err)
	}

	if claims.Subject == "" {
		return nil, &TokenError{Reason: TokenClaims, Err: errors.New("missing subject")}
	}
	role, err := models.ParseRole(string(claims.Role))
	if err != nil {
		return nil, &TokenError{Reason: TokenClaims, Err: err}
	}
	claims.Role = role
	return claims, nil
}

// Validate reports whether the token is currently acceptable.
func (s *TokenService) Validate(tokenString string) bool {
	_, err := s.Parse(tokenString)
	return err == nil
}

// ExtractSubject returns the user id carried by a valid token.
func (s *TokenService) ExtractSubject(tokenString string) (string, error) {
	claims, err := s.Parse(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ExtractRole returns the role carried by a valid token.
func (s *TokenService) ExtractRole(tokenString string) (models.Role, error) {
	claims, err := s.Parse(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Role, nil
}

func classifyTokenError(err error) *TokenError {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenNotValidYet):
		return &TokenError{Reason: TokenExpired, Err: err}
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return &TokenError{Reason: TokenSignature, Err: err}
	case errors.Is(err, jwt.ErrTokenMalformed):
		return &TokenError{Reason: TokenMalformed, Err: err}
	default:
		return &TokenError{Reason: TokenClaims, Err: err}
	}
}
