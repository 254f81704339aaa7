package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coursepass-api/internal/dto"
	"github.com/noah-isme/coursepass-api/internal/service"
	appErrors "github.com/noah-isme/coursepass-api/pkg/errors"
	"github.com/noah-isme/coursepass-api/pkg/response"
)

// StudentHandler exposes student lifecycle endpoints.
type StudentHandler struct {
	service *service.StudentService
}

// NewStudentHandler constructs a student handler.
func NewStudentHandler(svc *service.StudentService) *StudentHandler {
	return &StudentHandler{service: svc}
}

// Add godoc
// @Summary Create student or enroll existing student
// @Description Creates the student with a payment link and first enrollment. Known ids are only enrolled; enrolling in a new semester of the same course replaces the previous one.
// @Tags Students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Router /students/add [post]
func (h *StudentHandler) Add(c *gin.Context) {
	var req dto.CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid student payload"))
		return
	}
	res, err := h.service.Create(c.Request.Context(), principalFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if res.Created {
		response.Created(c, res)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Remove godoc
// @Summary Remove enrollment
// @Tags Students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.RemoveEnrollmentRequest true "Enrollment"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/remove [delete]
func (h *StudentHandler) Remove(c *gin.Context) {
	var req dto.RemoveEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid enrollment payload"))
		return
	}
	if err := h.service.RemoveEnrollment(c.Request.Context(), principalFromContext(c), req); err != nil {
		response.Error(c, err)
		return
	}
	response.Message(c, http.StatusOK, "enrollment removed")
}

// Validate godoc
// @Summary Authenticate student
// @Description Unpaid or expired students receive 403 with error.details.paymentLink.
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body dto.ValidateStudentRequest true "Student credentials"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /students/validate [post]
func (h *StudentHandler) Validate(c *gin.Context) {
	var req dto.ValidateStudentRequest
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

// WhoAmI godoc
// @Summary Current identity
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /students/whoami [get]
func (h *StudentHandler) WhoAmI(c *gin.Context) {
	p := principalFromContext(c)
	response.JSON(c, http.StatusOK, dto.WhoAmIResponse{User: p.Subject, Role: string(p.Role)}, nil)
}

// Activate godoc
// @Summary Activate student
// @Tags Students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.StudentIDRequest true "Student"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/activate [post]
func (h *StudentHandler) Activate(c *gin.Context) {
	var req dto.StudentIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid student payload"))
		return
	}
	res, err := h.service.Activate(c.Request.Context(), principalFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Approve godoc
// @Summary Approve student payment
// @Tags Students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.StudentIDRequest true "Student"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/approve [post]
func (h *StudentHandler) Approve(c *gin.Context) {
	var req dto.StudentIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid student payload"))
		return
	}
	res, err := h.service.Approve(c.Request.Context(), principalFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// List godoc
// @Summary List students with enrollments
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Param admin query string false "Admin scope (SUPERADMIN only)"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	res, err := h.service.List(c.Request.Context(), principalFromContext(c), c.Query("admin"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}
