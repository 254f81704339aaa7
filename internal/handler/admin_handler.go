package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coursepass-api/internal/dto"
	"github.com/noah-isme/coursepass-api/internal/service"
	appErrors "github.com/noah-isme/coursepass-api/pkg/errors"
	"github.com/noah-isme/coursepass-api/pkg/response"
)

// AdminHandler exposes admin account endpoints.
type AdminHandler struct {
	service *service.AdminService
}

// NewAdminHandler constructs an admin handler.
func NewAdminHandler(svc *service.AdminService) *AdminHandler {
	return &AdminHandler{service: svc}
}

// Validate godoc
// @Summary Authenticate admin
// @Tags Admins
// @Accept json
// @Produce json
// @Param payload body dto.AdminCredentialsRequest true "Admin credentials"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /admins/validate [post]
func (h *AdminHandler) Validate(c *gin.Context) {
	var req dto.AdminCredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}
	res, err := h.service.Validate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Add godoc
// @Summary Create admin
// @Tags Admins
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateAdminRequest true "Admin payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admins/add [post]
func (h *AdminHandler) Add(c *gin.Context) {
	var req dto.CreateAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid admin payload"))
		return
	}
	res, err := h.service.Add(c.Request.Context(), principalFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// Remove godoc
// @Summary Remove admin
// @Description Admins cannot remove their own account.
// @Tags Admins
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.AdminNameRequest true "Admin name"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admins/remove [delete]
func (h *AdminHandler) Remove(c *gin.Context) {
	var req dto.AdminNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid admin payload"))
		return
	}
	if err := h.service.Remove(c.Request.Context(), principalFromContext(c), req); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "admin removed")
}

// List godoc
// @Summary List admins
// @Tags Admins
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admins [get]
func (h *AdminHandler) List(c *gin.Context) {
	res, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Contains godoc
// @Summary Check admin existence
// @Tags Admins
// @Accept json
// @Produce json
// @Param payload body dto.AdminNameRequest true "Admin name"
// @Success 200 {object} response.Envelope
// @Router /admins/contains [post]
func (h *AdminHandler) Contains(c *gin.Context) {
	var req dto.AdminNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid admin payload"))
		return
	}
	res, err := h.service.Contains(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// UpdatePassword godoc
// @Summary Change admin or student password
// @Description ADMIN callers may change only their own admin password or the password of students they enrolled.
// @Tags Admins
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.UpdatePasswordRequest true "Password payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /admins/updatePassword [post]
func (h *AdminHandler) UpdatePassword(c *gin.Context) {
	var req dto.UpdatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid password payload"))
		return
	}
	if err := h.service.UpdatePassword(c.Request.Context(), principalFromContext(c), req); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "password updated")
}

// UpdateStudentPassword godoc
// @Summary Reset a managed student's password
// @Tags Admins
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.UpdateStudentPasswordRequest true "Password payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admins/update-student-password [post]
func (h *AdminHandler) UpdateStudentPassword(c *gin.Context) {
	var req dto.UpdateStudentPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid password payload"))
		return
	}
	if err := h.service.UpdateStudentPassword(c.Request.Context(), principalFromContext(c), req); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "password updated")
}
