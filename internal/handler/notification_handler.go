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

type notificationService interface {
	Create(ctx context.Context, actor service.Actor, req service.CreateNotificationRequest) (*models.Notification, error)
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, *models.Pagination, error)
	Get(ctx context.Context, schoolID, id string) (*models.Notification, error)
	Delete(ctx context.Context, schoolID, id string) error
	Inbox(ctx context.Context, userID string, unreadOnly bool, page, pageSize int) ([]models.InboxItem, *models.Pagination, error)
	MarkRead(ctx context.Context, userID, id string) error
}

// NotificationHandler exposes notifications and the caller's inbox.
type NotificationHandler struct {
	notifications notificationService
}

func NewNotificationHandler(notifications notificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// Create godoc
// @Summary Queue a notification
// @Description Stored as QUEUED and delivered asynchronously
// @Tags Notifications
// @Accept json
// @Produce json
// @Param payload body service.CreateNotificationRequest true "Notification"
// @Success 202 {object} response.Envelope
// @Security BearerAuth
// @Router /notifications [post]
func (h *NotificationHandler) Create(c *gin.Context) {
	var req service.CreateNotificationRequest
	if !bindJSON(c, &req, "invalid notification payload") {
		return
	}
	n, err := h.notifications.Create(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, n, nil)
}

// List godoc
// @Summary List notifications
// @Tags Notifications
// @Produce json
// @Param audience query string false "Audience"
// @Param status query string false "Status"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	page, size := pageParams(c)
	filter := models.NotificationFilter{SchoolID: schoolScope(c), Page: page, PageSize: size}
	if raw := strings.TrimSpace(c.Query("audience")); raw != "" {
		audience := models.NotificationAudience(strings.ToUpper(raw))
		filter.Audience = &audience
	}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := models.NotificationStatus(strings.ToUpper(raw))
		filter.Status = &status
	}
	items, pagination, err := h.notifications.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get notification with its delivery report
// @Tags Notifications
// @Produce json
// @Param id path string true "Notification ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /notifications/{id} [get]
func (h *NotificationHandler) Get(c *gin.Context) {
	n, err := h.notifications.Get(c.Request.Context(), schoolScope(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, n, nil)
}

// Delete godoc
// @Summary Delete notification
// @Tags Notifications
// @Param id path string true "Notification ID"
// @Success 204
// @Security BearerAuth
// @Router /notifications/{id} [delete]
func (h *NotificationHandler) Delete(c *gin.Context) {
	if err := h.notifications.Delete(c.Request.Context(), schoolScope(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Inbox godoc
// @Summary Notifications delivered to the caller
// @Tags Notifications
// @Produce json
// @Param unread query bool false "Only unread"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /notifications/me [get]
func (h *NotificationHandler) Inbox(c *gin.Context) {
	page, size := pageParams(c)
	unread := false
	if v := boolQuery(c, "unread"); v != nil {
		unread = *v
	}
	items, pagination, err := h.notifications.Inbox(c.Request.Context(), actorFromContext(c).UserID, unread, page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// MarkRead godoc
// @Summary Mark an inbox notification read
// @Tags Notifications
// @Param id path string true "Inbox item ID"
// @Success 204
// @Security BearerAuth
// @Router /notifications/me/{id}/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if err := h.notifications.MarkRead(c.Request.Context(), actorFromContext(c).UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
