package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/service"
	"github.com/noah-isme/school-portal-api/pkg/response"
)

// ExaminationHandler exposes examinations.
type ExaminationHandler struct {
	exams *service.ExaminationService
}

func NewExaminationHandler(exams *service.ExaminationService) *ExaminationHandler {
	return &ExaminationHandler{exams: exams}
}

// List godoc
// @Summary List examinations
// @Tags Examinations
// @Produce json
// @Param academic_year_id query string false "Academic year"
// @Param exam_type query string false "Exam type"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /examinations [get]
func (h *ExaminationHandler) List(c *gin.Context) {
	filter := models.ExaminationFilter{
		SchoolID:       schoolScope(c),
		AcademicYearID: c.Query("academic_year_id"),
	}
	if raw := strings.TrimSpace(c.Query("exam_type")); raw != "" {
		t := models.ExamType(strings.ToUpper(raw))
		filter.ExamType = &t
	}
	exams, err := h.exams.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exams, nil)
}

// Get godoc
// @Summary Get examination
// @Tags Examinations
// @Produce json
// @Param id path string true "Examination ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /examinations/{id} [get]
func (h *ExaminationHandler) Get(c *gin.Context) {
	exam, err := h.exams.Get(c.Request.Context(), schoolScope(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exam, nil)
}

// Create godoc
// @Summary Create examination
// @Tags Examinations
// @Accept json
// @Produce json
// @Param payload body service.CreateExaminationRequest true "Examination"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /examinations [post]
func (h *ExaminationHandler) Create(c *gin.Context) {
	var req service.CreateExaminationRequest
	if !bindJSON(c, &req, "invalid examination payload") {
		return
	}
	exam, err := h.exams.Create(c.Request.Context(), schoolScope(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, exam)
}

// Update godoc
// @Summary Update examination
// @Tags Examinations
// @Accept json
// @Produce json
// @Param id path string true "Examination ID"
// @Param payload body service.UpdateExaminationRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /examinations/{id} [put]
func (h *ExaminationHandler) Update(c *gin.Context) {
	var req service.UpdateExaminationRequest
	if !bindJSON(c, &req, "invalid examination payload") {
		return
	}
	exam, err := h.exams.Update(c.Request.Context(), schoolScope(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exam, nil)
}

// Delete godoc
// @Summary Delete examination and its marksheets
// @Tags Examinations
// @Param id path string true "Examination ID"
// @Success 204
// @Security BearerAuth
// @Router /examinations/{id} [delete]
func (h *ExaminationHandler) Delete(c *gin.Context) {
	if err := h.exams.Delete(c.Request.Context(), schoolScope(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
