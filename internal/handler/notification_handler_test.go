package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/service"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

type notificationServiceMock struct {
	lastActor  service.Actor
	lastCreate service.CreateNotificationRequest
	lastFilter models.NotificationFilter
	inboxUser  string
	unreadOnly bool
	readID     string
	readErr    error
}

func (m *notificationServiceMock) Create(ctx context.Context, actor service.Actor, req service.CreateNotificationRequest) (*models.Notification, error) {
	m.lastActor, m.lastCreate = actor, req
	return &models.Notification{ID: "n-1", SchoolID: actor.SchoolID, Title: req.Title, Status: models.NotificationQueued}, nil
}

func (m *notificationServiceMock) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, *models.Pagination, error) {
	m.lastFilter = filter
	return []models.Notification{}, models.NewPagination(filter.Page, filter.PageSize, 0), nil
}

func (m *notificationServiceMock) Get(ctx context.Context, schoolID, id string) (*models.Notification, error) {
	return &models.Notification{ID: id, SchoolID: schoolID}, nil
}

func (m *notificationServiceMock) Delete(ctx context.Context, schoolID, id string) error {
	return nil
}

func (m *notificationServiceMock) Inbox(ctx context.Context, userID string, unreadOnly bool, page, pageSize int) ([]models.InboxItem, *models.Pagination, error) {
	m.inboxUser, m.unreadOnly = userID, unreadOnly
	return []models.InboxItem{{ID: "inbox-1", Title: "Exam week"}}, models.NewPagination(page, pageSize, 1), nil
}

func (m *notificationServiceMock) MarkRead(ctx context.Context, userID, id string) error {
	m.readID = id
	return m.readErr
}

func TestNotificationCreateIsAccepted(t *testing.T) {
	mock := &notificationServiceMock{}
	r := newTestRouter(Handlers{Notifications: NewNotificationHandler(mock)})

	w := call(r, http.MethodPost, "/api/notifications", "admin-1", map[string]interface{}{
		"title": "Exam week", "message": "Starts Monday", "audience": "ALL", "channels": []string{"PUSH"},
	})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.Equal(t, "school-1", mock.lastActor.SchoolID)
	assert.Equal(t, "user-1", mock.lastActor.UserID)
	assert.Equal(t, []string{"PUSH"}, mock.lastCreate.Channels)
	assert.Contains(t, w.Body.String(), `"status":"QUEUED"`)

	assert.Equal(t, http.StatusForbidden, call(r, http.MethodPost, "/api/notifications", "teacher", map[string]interface{}{}).Code)
}

func TestNotificationListParsesFilters(t *testing.T) {
	mock := &notificationServiceMock{}
	r := newTestRouter(Handlers{Notifications: NewNotificationHandler(mock)})

	w := call(r, http.MethodGet, "/api/notifications?audience=class&status=sent&page=2&page_size=5", "admin-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mock.lastFilter.Audience)
	assert.Equal(t, models.AudienceClass, *mock.lastFilter.Audience)
	require.NotNil(t, mock.lastFilter.Status)
	assert.Equal(t, models.NotificationSent, *mock.lastFilter.Status)
	assert.Equal(t, 2, mock.lastFilter.Page)
	assert.Equal(t, 5, mock.lastFilter.PageSize)
}

func TestNotificationInboxIsOpenToEveryRole(t *testing.T) {
	mock := &notificationServiceMock{}
	r := newTestRouter(Handlers{Notifications: NewNotificationHandler(mock)})

	w := call(r, http.MethodGet, "/api/notifications/me?unread=true", "teacher", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-3", mock.inboxUser)
	assert.True(t, mock.unreadOnly)

	assert.Equal(t, http.StatusNoContent, call(r, http.MethodPost, "/api/notifications/me/inbox-1/read", "teacher", nil).Code)
	assert.Equal(t, "inbox-1", mock.readID)

	mock.readErr = appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	assert.Equal(t, http.StatusNotFound, call(r, http.MethodPost, "/api/notifications/me/other/read", "teacher", nil).Code)
}
