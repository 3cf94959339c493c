package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/school-portal-api/internal/models"
)

const notificationColumns = `id, school_id, title, message, audience, class_id, channels, status, total_recipients, delivered_count,
        failed_count, created_by, created_at, updated_at`

// NotificationRepository stores notifications and the per-user push inbox.
type NotificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	n.CreatedAt = now
	n.UpdatedAt = now
	if n.Status == "" {
		n.Status = models.NotificationQueued
	}
	const query = `INSERT INTO notifications (id, school_id, title, message, audience, class_id, channels, status, total_recipients,
        delivered_count, failed_count, created_by, created_at, updated_at)
        VALUES (:id, :school_id, :title, :message, :audience, :class_id, :channels, :status, :total_recipients,
        :delivered_count, :failed_count, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func (r *NotificationRepository) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	var where whereBuilder
	where.add("school_id = %s", filter.SchoolID)
	if filter.Audience != nil {
		where.add("audience = %s", *filter.Audience)
	}
	if filter.Status != nil {
		where.add("status = %s", *filter.Status)
	}
	_, size, offset := pageBounds(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s FROM notifications %s ORDER BY created_at DESC LIMIT %d OFFSET %d", notificationColumns, where.clause(), size, offset)
	var items []models.Notification
	if err := r.db.SelectContext(ctx, &items, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM notifications "+where.clause(), where.args...); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}
	return items, total, nil
}

func (r *NotificationRepository) FindByID(ctx context.Context, schoolID, id string) (*models.Notification, error) {
	var n models.Notification
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1 AND school_id = $2`
	if err := r.db.GetContext(ctx, &n, query, id, schoolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find notification: %w", err)
	}
	return &n, nil
}

// Delete removes the notification and its inbox rows. It reports false when nothing matched.
func (r *NotificationRepository) Delete(ctx context.Context, schoolID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1 AND school_id = $2`, id, schoolID)
	if err != nil {
		return false, fmt.Errorf("delete notification: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete notification rows: %w", err)
	}
	return affected > 0, nil
}

func (r *NotificationRepository) SetStatus(ctx context.Context, id string, status models.NotificationStatus) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE notifications SET status = $1, updated_at = $2 WHERE id = $3`, status, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("set notification status: %w", err)
	}
	return nil
}

// Complete stores the delivery counters and the derived final status.
func (r *NotificationRepository) Complete(ctx context.Context, id string, report models.DeliveryReport) error {
	const query = `UPDATE notifications SET status = $1, total_recipients = $2, delivered_count = $3, failed_count = $4, updated_at = $5 WHERE id = $6`
	if _, err := r.db.ExecContext(ctx, query, report.Status(), report.Total, report.Delivered, report.Failed, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("complete notification: %w", err)
	}
	return nil
}

// AddRecipients writes inbox rows, ignoring users that already have one.
func (r *NotificationRepository) AddRecipients(ctx context.Context, notificationID string, userIDs []string) (int, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	ids := make([]string, len(userIDs))
	for i := range userIDs {
		ids[i] = uuid.NewString()
	}
	const query = `INSERT INTO notification_recipients (id, notification_id, user_id, created_at)
        SELECT UNNEST($1::uuid[]), $2, UNNEST($3::uuid[]), $4
        ON CONFLICT (notification_id, user_id) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, pq.Array(ids), notificationID, pq.Array(userIDs), time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("add notification recipients: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("add notification recipients rows: %w", err)
	}
	return int(affected), nil
}

// Inbox lists a user's push notifications, newest first.
func (r *NotificationRepository) Inbox(ctx context.Context, userID string, unreadOnly bool, page, pageSize int) ([]models.InboxItem, int, error) {
	var where whereBuilder
	where.add("nr.user_id = %s", userID)
	if unreadOnly {
		where.conditions = append(where.conditions, "nr.read_at IS NULL")
	}
	_, size, offset := pageBounds(page, pageSize)

	query := fmt.Sprintf(`SELECT nr.id, nr.notification_id, n.title, n.message, nr.read_at, nr.created_at
        FROM notification_recipients nr JOIN notifications n ON n.id = nr.notification_id
        %s ORDER BY nr.created_at DESC LIMIT %d OFFSET %d`, where.clause(), size, offset)
	var items []models.InboxItem
	if err := r.db.SelectContext(ctx, &items, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list inbox: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM notification_recipients nr "+where.clause(), where.args...); err != nil {
		return nil, 0, fmt.Errorf("count inbox: %w", err)
	}
	return items, total, nil
}

// MarkRead stamps read_at on the user's inbox row. It reports false when the row does not belong to the user.
func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE notification_recipients SET read_at = COALESCE(read_at, $1) WHERE id = $2 AND user_id = $3`,
		time.Now().UTC(), id, userID)
	if err != nil {
		return false, fmt.Errorf("mark notification read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark notification read rows: %w", err)
	}
	return affected > 0, nil
}
