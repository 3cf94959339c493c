package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/service"
	"github.com/noah-isme/school-portal-api/pkg/response"
)

type marksheetService interface {
	Save(ctx context.Context, actor service.Actor, req service.SaveMarksheetRequest) (*models.MarksheetDetail, error)
	Update(ctx context.Context, schoolID, id string, req service.UpdateMarksheetRequest) (*models.MarksheetDetail, error)
	Get(ctx context.Context, schoolID, id string) (*models.MarksheetDetail, error)
	List(ctx context.Context, filter models.MarksheetFilter) ([]models.MarksheetDetail, *models.Pagination, error)
	Delete(ctx context.Context, schoolID, id string) error
	PDF(ctx context.Context, schoolID, id string) (*service.ExportFile, error)
	Final(ctx context.Context, schoolID, studentID, academicYearID string) (*models.FinalMarksheet, error)
}

// MarksheetHandler exposes exam marksheets and the final yearly result.
type MarksheetHandler struct {
	marksheets marksheetService
}

func NewMarksheetHandler(marksheets marksheetService) *MarksheetHandler {
	return &MarksheetHandler{marksheets: marksheets}
}

// List godoc
// @Summary List marksheets
// @Tags Marksheets
// @Produce json
// @Param examination_id query string false "Examination"
// @Param class_id query string false "Class"
// @Param student_id query string false "Student"
// @Param academic_year_id query string false "Academic year"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /marksheets [get]
func (h *MarksheetHandler) List(c *gin.Context) {
	page, size := pageParams(c)
	items, pagination, err := h.marksheets.List(c.Request.Context(), models.MarksheetFilter{
		SchoolID:       schoolScope(c),
		ExaminationID:  c.Query("examination_id"),
		ClassID:        c.Query("class_id"),
		StudentID:      c.Query("student_id"),
		AcademicYearID: c.Query("academic_year_id"),
		Page:           page,
		PageSize:       size,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get marksheet
// @Tags Marksheets
// @Produce json
// @Param id path string true "Marksheet ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /marksheets/{id} [get]
func (h *MarksheetHandler) Get(c *gin.Context) {
	sheet, err := h.marksheets.Get(c.Request.Context(), schoolScope(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sheet, nil)
}

// Save godoc
// @Summary Create or replace a student's marksheet for an exam
// @Tags Marksheets
// @Accept json
// @Produce json
// @Param payload body service.SaveMarksheetRequest true "Marks"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /marksheets [post]
func (h *MarksheetHandler) Save(c *gin.Context) {
	var req service.SaveMarksheetRequest
	if !bindJSON(c, &req, "invalid marksheet payload") {
		return
	}
	sheet, err := h.marksheets.Save(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sheet, nil)
}

// Update godoc
// @Summary Update marksheet
// @Tags Marksheets
// @Accept json
// @Produce json
// @Param id path string true "Marksheet ID"
// @Param payload body service.UpdateMarksheetRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /marksheets/{id} [put]
func (h *MarksheetHandler) Update(c *gin.Context) {
	var req service.UpdateMarksheetRequest
	if !bindJSON(c, &req, "invalid marksheet payload") {
		return
	}
	sheet, err := h.marksheets.Update(c.Request.Context(), schoolScope(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sheet, nil)
}

// Delete godoc
// @Summary Delete marksheet
// @Tags Marksheets
// @Param id path string true "Marksheet ID"
// @Success 204
// @Security BearerAuth
// @Router /marksheets/{id} [delete]
func (h *MarksheetHandler) Delete(c *gin.Context) {
	if err := h.marksheets.Delete(c.Request.Context(), schoolScope(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// PDF godoc
// @Summary Download marksheet as PDF
// @Tags Marksheets
// @Produce application/pdf
// @Param id path string true "Marksheet ID"
// @Success 200 {file} file
// @Security BearerAuth
// @Router /marksheets/{id}/pdf [get]
func (h *MarksheetHandler) PDF(c *gin.Context) {
	file, err := h.marksheets.PDF(c.Request.Context(), schoolScope(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	sendFile(c, file)
}

// Final godoc
// @Summary Final yearly result of a student
// @Tags Marksheets
// @Produce json
// @Param student_id query string true "Student"
// @Param academic_year_id query string true "Academic year"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /marksheets/final [get]
func (h *MarksheetHandler) Final(c *gin.Context) {
	result, err := h.marksheets.Final(c.Request.Context(), schoolScope(c), c.Query("student_id"), c.Query("academic_year_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
