package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-portal-api/internal/models"
)

const (
	smsTemplateColumns = `id, school_id, name, category, body, created_at, updated_at`
	smsLogColumns      = `id, school_id, notification_id, student_id, phone, body, status, provider_message_id, error, created_at, updated_at`
)

// SmsRepository persists SMS templates and delivery logs.
type SmsRepository struct {
	db *sqlx.DB
}

func NewSmsRepository(db *sqlx.DB) *SmsRepository {
	return &SmsRepository{db: db}
}

func (r *SmsRepository) ListTemplates(ctx context.Context, schoolID, category string) ([]models.SmsTemplate, error) {
	var where whereBuilder
	where.add("school_id = %s", schoolID)
	if category != "" {
		where.add("category = %s", category)
	}
	var templates []models.SmsTemplate
	query := fmt.Sprintf("SELECT %s FROM sms_templates %s ORDER BY name", smsTemplateColumns, where.clause())
	if err := r.db.SelectContext(ctx, &templates, query, where.args...); err != nil {
		return nil, fmt.Errorf("list sms templates: %w", err)
	}
	return templates, nil
}

func (r *SmsRepository) FindTemplate(ctx context.Context, schoolID, id string) (*models.SmsTemplate, error) {
	var template models.SmsTemplate
	query := `SELECT ` + smsTemplateColumns + ` FROM sms_templates WHERE id = $1 AND school_id = $2`
	if err := r.db.GetContext(ctx, &template, query, id, schoolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find sms template: %w", err)
	}
	return &template, nil
}

func (r *SmsRepository) TemplateNameExists(ctx context.Context, schoolID, name, excludeID string) (bool, error) {
	query := `SELECT 1 FROM sms_templates WHERE school_id = $1 AND LOWER(name) = LOWER($2)`
	args := []interface{}{schoolID, name}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check sms template name: %w", err)
	}
	return true, nil
}

func (r *SmsRepository) CreateTemplate(ctx context.Context, template *models.SmsTemplate) error {
	if template.ID == "" {
		template.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	template.CreatedAt = now
	template.UpdatedAt = now
	const query = `INSERT INTO sms_templates (id, school_id, name, category, body, created_at, updated_at)
        VALUES (:id, :school_id, :name, :category, :body, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, template); err != nil {
		return fmt.Errorf("create sms template: %w", err)
	}
	return nil
}

func (r *SmsRepository) UpdateTemplate(ctx context.Context, template *models.SmsTemplate) error {
	template.UpdatedAt = time.Now().UTC()
	const query = `UPDATE sms_templates SET name = :name, category = :category, body = :body, updated_at = :updated_at
        WHERE id = :id AND school_id = :school_id`
	if _, err := r.db.NamedExecContext(ctx, query, template); err != nil {
		return fmt.Errorf("update sms template: %w", err)
	}
	return nil
}

func (r *SmsRepository) DeleteTemplate(ctx context.Context, schoolID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sms_templates WHERE id = $1 AND school_id = $2`, id, schoolID)
	if err != nil {
		return false, fmt.Errorf("delete sms template: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete sms template rows: %w", err)
	}
	return affected > 0, nil
}

// CreateLog records a queued SMS.
func (r *SmsRepository) CreateLog(ctx context.Context, log *models.SmsLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	log.CreatedAt = now
	log.UpdatedAt = now
	if log.Status == "" {
		log.Status = models.SmsQueued
	}
	const query = `INSERT INTO sms_logs (id, school_id, notification_id, student_id, phone, body, status, provider_message_id, error, created_at, updated_at)
        VALUES (:id, :school_id, :notification_id, :student_id, :phone, :body, :status, :provider_message_id, :error, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create sms log: %w", err)
	}
	return nil
}

// MarkLog stores the provider outcome of a delivery attempt.
func (r *SmsRepository) MarkLog(ctx context.Context, id string, status models.SmsStatus, providerID, errMsg string) error {
	const query = `UPDATE sms_logs SET status = $1, provider_message_id = $2, error = $3, updated_at = $4 WHERE id = $5`
	if _, err := r.db.ExecContext(ctx, query, status, providerID, errMsg, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("mark sms log: %w", err)
	}
	return nil
}

func (r *SmsRepository) ListLogs(ctx context.Context, filter models.SmsLogFilter) ([]models.SmsLog, int, error) {
	var where whereBuilder
	where.add("school_id = %s", filter.SchoolID)
	if filter.StudentID != "" {
		where.add("student_id = %s", filter.StudentID)
	}
	if filter.Status != nil {
		where.add("status = %s", *filter.Status)
	}
	_, size, offset := pageBounds(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s FROM sms_logs %s ORDER BY created_at DESC LIMIT %d OFFSET %d", smsLogColumns, where.clause(), size, offset)
	var logs []models.SmsLog
	if err := r.db.SelectContext(ctx, &logs, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list sms logs: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM sms_logs "+where.clause(), where.args...); err != nil {
		return nil, 0, fmt.Errorf("count sms logs: %w", err)
	}
	return logs, total, nil
}
