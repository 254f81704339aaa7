package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coursepass-api/internal/models"
	"github.com/noah-isme/coursepass-api/pkg/logger"
)

const (
	// ContextPrincipalKey is the gin context key storing the request principal.
	ContextPrincipalKey = "principal"
	// ContextTokenErrorKey keeps the reason a presented token was rejected.
	ContextTokenErrorKey = "principal.tokenError"
)

type tokenParser interface {
	Parse(token string) (*models.TokenClaims, error)
}

// Authenticate decodes the bearer token, when present, into a principal.
// It never aborts: requests without a usable token carry
// models.Unauthenticated and are judged by Authorize.
func Authenticate(tokens tokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := models.Unauthenticated
		if raw, ok := bearerToken(c.GetHeader("Authorization")); ok {
			claims, err := tokens.Parse(raw)
			if err != nil {
				c.Set(ContextTokenErrorKey, err)
			} else {
				principal = models.NewPrincipal(claims.Subject, claims.Role)
				c.Set(logger.SubjectKey, principal.Subject)
				c.Set(logger.RoleKey, string(principal.Role))
			}
		}
		c.Set(ContextPrincipalKey, principal)
		c.Next()
	}
}

// PrincipalFrom returns the principal stored by Authenticate.
func PrincipalFrom(c *gin.Context) models.Principal {
	if v, ok := c.Get(ContextPrincipalKey); ok {
		if p, ok := v.(models.Principal); ok {
			return p
		}
	}
	return models.Unauthenticated
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
