package models

import "time"

// SmsTemplate is a reusable SMS body with {{placeholder}} variables.
type SmsTemplate struct {
	ID        string    `db:"id" json:"id"`
	SchoolID  string    `db:"school_id" json:"school_id"`
	Name      string    `db:"name" json:"name"`
	Category  string    `db:"category" json:"category"`
	Body      string    `db:"body" json:"body"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type SmsStatus string

const (
	SmsQueued SmsStatus = "QUEUED"
	SmsSent   SmsStatus = "SENT"
	SmsFailed SmsStatus = "FAILED"
)

// SmsLog records one SMS delivery attempt.
type SmsLog struct {
	ID                string    `db:"id" json:"id"`
	SchoolID          string    `db:"school_id" json:"school_id"`
	NotificationID    *string   `db:"notification_id" json:"notification_id,omitempty"`
	StudentID         *string   `db:"student_id" json:"student_id,omitempty"`
	Phone             string    `db:"phone" json:"phone"`
	Body              string    `db:"body" json:"body"`
	Status            SmsStatus `db:"status" json:"status"`
	ProviderMessageID string    `db:"provider_message_id" json:"provider_message_id"`
	Error             string    `db:"error" json:"error,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

type SmsLogFilter struct {
	SchoolID  string
	StudentID string
	Status    *SmsStatus
	Page      int
	PageSize  int
}
