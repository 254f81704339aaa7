package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coursepass-api/internal/dto"
	"github.com/noah-isme/coursepass-api/internal/service"
	appErrors "github.com/noah-isme/coursepass-api/pkg/errors"
	"github.com/noah-isme/coursepass-api/pkg/response"
)

// GradeHandler exposes grade submission, listing and export.
type GradeHandler struct {
	service *service.GradeService
}

// NewGradeHandler constructs a grade handler.
func NewGradeHandler(svc *service.GradeService) *GradeHandler {
	return &GradeHandler{service: svc}
}

// List godoc
// @Summary List grades
// @Tags Grades
// @Produce json
// @Param studentId query string false "Student"
// @Param course query string false "Course"
// @Param assignment query string false "Assignment"
// @Param admin query string false "Admin"
// @Param semesterId query string false "Semester"
// @Success 200 {object} response.Envelope
// @Router /grades [get]
func (h *GradeHandler) List(c *gin.Context) {
	var query dto.GradeListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	grades, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grades, nil)
}

// Submit godoc
// @Summary Submit own grade
// @Description The token subject must match studentId and the student must be paid and active.
// @Tags Grades
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.SubmitGradeRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /grades [post]
func (h *GradeHandler) Submit(c *gin.Context) {
	var req dto.SubmitGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid grade payload"))
		return
	}
	grade, err := h.service.Submit(c.Request.Context(), principalFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grade, nil)
}

// Export godoc
// @Summary Export grades
// @Tags Grades
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv or pdf"
// @Param admin query string false "Admin scope (SUPERADMIN only)"
// @Param course query string false "Course"
// @Param semesterId query string false "Semester"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /grades/export [get]
func (h *GradeHandler) Export(c *gin.Context) {
	var query dto.GradeExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	doc, err := h.service.Export(c.Request.Context(), principalFromContext(c), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, doc.ContentType, doc.Content)
}
