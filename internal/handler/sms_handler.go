package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/service"
	"github.com/noah-isme/school-portal-api/pkg/response"
)

type smsService interface {
	ListTemplates(ctx context.Context, schoolID, category string) ([]models.SmsTemplate, error)
	GetTemplate(ctx context.Context, schoolID, id string) (*models.SmsTemplate, error)
	CreateTemplate(ctx context.Context, actor service.Actor, req service.SmsTemplateRequest) (*models.SmsTemplate, error)
	UpdateTemplate(ctx context.Context, actor service.Actor, id string, req service.UpdateSmsTemplateRequest) (*models.SmsTemplate, error)
	DeleteTemplate(ctx context.Context, schoolID, id string) error
	Send(ctx context.Context, actor service.Actor, req service.SendSmsRequest) (*service.SendSmsResult, error)
	Logs(ctx context.Context, filter models.SmsLogFilter) ([]models.SmsLog, *models.Pagination, error)
}

// SmsHandler exposes SMS templates, bulk sends and the delivery log.
type SmsHandler struct {
	sms smsService
}

func NewSmsHandler(sms smsService) *SmsHandler {
	return &SmsHandler{sms: sms}
}

// ListTemplates godoc
// @Summary List SMS templates
// @Tags SMS
// @Produce json
// @Param category query string false "Category"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /sms-templates [get]
func (h *SmsHandler) ListTemplates(c *gin.Context) {
	templates, err := h.sms.ListTemplates(c.Request.Context(), schoolScope(c), c.Query("category"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, templates, nil)
}

// GetTemplate godoc
// @Summary Get SMS template
// @Tags SMS
// @Produce json
// @Param id path string true "Template ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /sms-templates/{id} [get]
func (h *SmsHandler) GetTemplate(c *gin.Context) {
	tpl, err := h.sms.GetTemplate(c.Request.Context(), schoolScope(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tpl, nil)
}

// CreateTemplate godoc
// @Summary Create SMS template
// @Tags SMS
// @Accept json
// @Produce json
// @Param payload body service.SmsTemplateRequest true "Template"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /sms-templates [post]
func (h *SmsHandler) CreateTemplate(c *gin.Context) {
	var req service.SmsTemplateRequest
	if !bindJSON(c, &req, "invalid sms template payload") {
		return
	}
	tpl, err := h.sms.CreateTemplate(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, tpl)
}

// UpdateTemplate godoc
// @Summary Update SMS template
// @Tags SMS
// @Accept json
// @Produce json
// @Param id path string true "Template ID"
// @Param payload body service.UpdateSmsTemplateRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /sms-templates/{id} [put]
func (h *SmsHandler) UpdateTemplate(c *gin.Context) {
	var req service.UpdateSmsTemplateRequest
	if !bindJSON(c, &req, "invalid sms template payload") {
		return
	}
	tpl, err := h.sms.UpdateTemplate(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tpl, nil)
}

// DeleteTemplate godoc
// @Summary Delete SMS template
// @Tags SMS
// @Param id path string true "Template ID"
// @Success 204
// @Security BearerAuth
// @Router /sms-templates/{id} [delete]
func (h *SmsHandler) DeleteTemplate(c *gin.Context) {
	if err := h.sms.DeleteTemplate(c.Request.Context(), schoolScope(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Send godoc
// @Summary Send SMS to parents
// @Description Renders a template or message per student and queues delivery
// @Tags SMS
// @Accept json
// @Produce json
// @Param payload body service.SendSmsRequest true "Send request"
// @Success 202 {object} response.Envelope
// @Security BearerAuth
// @Router /sms/send [post]
func (h *SmsHandler) Send(c *gin.Context) {
	var req service.SendSmsRequest
	if !bindJSON(c, &req, "invalid sms payload") {
		return
	}
	result, err := h.sms.Send(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, result, nil)
}

// Logs godoc
// @Summary SMS delivery log
// @Tags SMS
// @Produce json
// @Param student_id query string false "Student"
// @Param status query string false "Status"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /sms/logs [get]
func (h *SmsHandler) Logs(c *gin.Context) {
	page, size := pageParams(c)
	filter := models.SmsLogFilter{SchoolID: schoolScope(c), StudentID: c.Query("student_id"), Page: page, PageSize: size}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := models.SmsStatus(strings.ToUpper(raw))
		filter.Status = &status
	}
	logs, pagination, err := h.sms.Logs(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, pagination)
}
