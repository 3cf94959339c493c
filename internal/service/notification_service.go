package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
	"github.com/noah-isme/school-portal-api/pkg/jobs"
	"github.com/noah-isme/school-portal-api/pkg/validation"
)

// Job types handled by NotificationDispatcher.
const (
	JobDispatchNotification = "notification.dispatch"
	JobSendSMS              = "sms.send"
)

type notificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error)
	FindByID(ctx context.Context, schoolID, id string) (*models.Notification, error)
	Delete(ctx context.Context, schoolID, id string) (bool, error)
	SetStatus(ctx context.Context, id string, status models.NotificationStatus) error
	Inbox(ctx context.Context, userID string, unreadOnly bool, page, pageSize int) ([]models.InboxItem, int, error)
	MarkRead(ctx context.Context, userID, id string) (bool, error)
}

type enqueuer interface {
	Enqueue(job jobs.Job) error
}

// NotificationJob is the payload of a dispatch job.
type NotificationJob struct {
	NotificationID string
	SchoolID       string
}

// CreateNotificationRequest announces a message to an audience.
type CreateNotificationRequest struct {
	Title    string   `json:"title" validate:"required,max=200"`
	Message  string   `json:"message" validate:"required,max=2000"`
	Audience string   `json:"audience" validate:"required,oneof=ALL TEACHERS STUDENTS PARENTS CLASS"`
	ClassID  *string  `json:"class_id" validate:"omitempty,uuid"`
	Channels []string `json:"channels" validate:"required,min=1,dive,oneof=PUSH SMS EMAIL"`
}

// NotificationService stores notifications and hands them to the dispatch queue.
type NotificationService struct {
	repo      notificationRepository
	classes   classLookup
	queue     enqueuer
	validator *validation.Validator
	logger    *zap.Logger
}

func NewNotificationService(repo notificationRepository, classes classLookup, queue enqueuer, validate *validation.Validator, logger *zap.Logger) *NotificationService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{repo: repo, classes: classes, queue: queue, validator: validate, logger: logger}
}

// Create persists the notification as QUEUED and enqueues its dispatch.
func (s *NotificationService) Create(ctx context.Context, actor Actor, req CreateNotificationRequest) (*models.Notification, error) {
	schoolID, err := requireSchool(actor)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Check(req, "invalid notification payload"); err != nil {
		return nil, err
	}

	audience := models.NotificationAudience(req.Audience)
	classID := blankToNil(req.ClassID)
	if audience == models.AudienceClass {
		if classID == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid notification payload").
				WithDetails(map[string]string{"class_id": "class_id is required for the CLASS audience"})
		}
		if _, err := s.classes.FindByID(ctx, schoolID, *classID); err != nil {
			return nil, referenceError(err, "class_id", "class not found", "failed to load class")
		}
	} else {
		classID = nil
	}

	channels := make([]string, 0, len(req.Channels))
	for _, ch := range uniqueStrings(req.Channels) {
		channels = append(channels, strings.ToUpper(ch))
	}

	n := &models.Notification{
		SchoolID:  schoolID,
		Title:     strings.TrimSpace(req.Title),
		Message:   strings.TrimSpace(req.Message),
		Audience:  audience,
		ClassID:   classID,
		Channels:  channels,
		Status:    models.NotificationQueued,
		CreatedBy: actor.userID(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create notification")
	}

	job := jobs.Job{ID: n.ID, Type: JobDispatchNotification, Payload: NotificationJob{NotificationID: n.ID, SchoolID: schoolID}}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Error("failed to enqueue notification", zap.String("notification_id", n.ID), zap.Error(err))
		if serr := s.repo.SetStatus(ctx, n.ID, models.NotificationFailed); serr != nil {
			s.logger.Warn("failed to mark notification failed", zap.String("notification_id", n.ID), zap.Error(serr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "notification could not be queued")
	}
	s.logger.Info("notification queued",
		zap.String("notification_id", n.ID),
		zap.String("audience", string(n.Audience)),
		zap.Strings("channels", channels),
	)
	return n, nil
}

func (s *NotificationService) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, *models.Pagination, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	if items == nil {
		items = []models.Notification{}
	}
	return items, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

func (s *NotificationService) Get(ctx context.Context, schoolID, id string) (*models.Notification, error) {
	n, err := s.repo.FindByID(ctx, schoolID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notification")
	}
	return n, nil
}

func (s *NotificationService) Delete(ctx context.Context, schoolID, id string) error {
	deleted, err := s.repo.Delete(ctx, schoolID, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete notification")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	}
	return nil
}

// Inbox lists the caller's push notifications.
func (s *NotificationService) Inbox(ctx context.Context, userID string, unreadOnly bool, page, pageSize int) ([]models.InboxItem, *models.Pagination, error) {
	items, total, err := s.repo.Inbox(ctx, userID, unreadOnly, page, pageSize)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load inbox")
	}
	if items == nil {
		items = []models.InboxItem{}
	}
	return items, models.NewPagination(page, pageSize, total), nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	ok, err := s.repo.MarkRead(ctx, userID, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	}
	return nil
}
