package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coursepass-api/internal/dto"
	"github.com/noah-isme/coursepass-api/internal/middleware"
	"github.com/noah-isme/coursepass-api/pkg/response"
)

// RolesHandler documents the access policy table.
type RolesHandler struct {
	entries []dto.RoleEntry
}

// NewRolesHandler renders table once; prefix is prepended to every path.
func NewRolesHandler(table middleware.PolicyTable, prefix string) *RolesHandler {
	rows := table.Entries()
	entries := make([]dto.RoleEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, dto.RoleEntry{
			Endpoint:    prefix + row.Route.Path,
			Method:      row.Route.Method,
			Access:      row.Policy.Access(),
			Description: row.Policy.Description,
		})
	}
	return &RolesHandler{entries: entries}
}

// List godoc
// @Summary Endpoint access rules
// @Tags Meta
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /roles [get]
func (h *RolesHandler) List(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.entries, nil)
}
