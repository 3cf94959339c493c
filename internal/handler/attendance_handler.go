package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/service"
	"github.com/noah-isme/school-portal-api/pkg/response"
)

type attendanceService interface {
	BulkMark(ctx context.Context, actor service.Actor, req service.BulkAttendanceRequest) (*service.BulkAttendanceResult, error)
	Sheet(ctx context.Context, schoolID, classID, day string) ([]models.AttendanceSheetRow, error)
	Summary(ctx context.Context, schoolID, studentID, from, to string) (*models.AttendanceSummary, error)
	MonthlyReport(ctx context.Context, schoolID, classID, month string) ([]models.AttendanceReportRow, error)
}

// AttendanceHandler exposes daily attendance.
type AttendanceHandler struct {
	attendance attendanceService
}

func NewAttendanceHandler(attendance attendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// Bulk godoc
// @Summary Mark attendance for a class
// @Description Upserts every record of one class and day in a single transaction
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.BulkAttendanceRequest true "Attendance sheet"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/bulk [post]
func (h *AttendanceHandler) Bulk(c *gin.Context) {
	var req service.BulkAttendanceRequest
	if !bindJSON(c, &req, "invalid attendance payload") {
		return
	}
	result, err := h.attendance.BulkMark(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Sheet godoc
// @Summary Attendance sheet of a class
// @Tags Attendance
// @Produce json
// @Param class_id query string true "Class ID"
// @Param date query string false "YYYY-MM-DD, defaults to today"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance [get]
func (h *AttendanceHandler) Sheet(c *gin.Context) {
	rows, err := h.attendance.Sheet(c.Request.Context(), schoolScope(c), c.Query("class_id"), c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// Summary godoc
// @Summary Attendance summary of a student
// @Description Present and late both count as attended
// @Tags Attendance
// @Produce json
// @Param id path string true "Student ID"
// @Param from query string false "YYYY-MM-DD, defaults to the first of the month"
// @Param to query string false "YYYY-MM-DD, defaults to today"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/students/{id}/summary [get]
func (h *AttendanceHandler) Summary(c *gin.Context) {
	summary, err := h.attendance.Summary(c.Request.Context(), schoolScope(c), c.Param("id"), c.Query("from"), c.Query("to"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Report godoc
// @Summary Monthly attendance report of a class
// @Tags Attendance
// @Produce json
// @Param class_id query string true "Class ID"
// @Param month query string true "YYYY-MM"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/report [get]
func (h *AttendanceHandler) Report(c *gin.Context) {
	rows, err := h.attendance.MonthlyReport(c.Request.Context(), schoolScope(c), c.Query("class_id"), c.Query("month"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}
