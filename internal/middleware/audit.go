package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coursepass-api/internal/service"
)

// RequestMeta attaches the client address and user agent to the request
// context so services can stamp audit entries.
func RequestMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := service.WithRequestMeta(c.Request.Context(), service.RequestMeta{
			IP:        c.ClientIP(),
			UserAgent: c.GetHeader("User-Agent"),
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
