package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coursepass-api/internal/middleware"
	"github.com/noah-isme/coursepass-api/internal/models"
)

func principalFromContext(c *gin.Context) models.Principal {
	return middleware.PrincipalFrom(c)
}
