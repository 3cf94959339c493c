package models

import (
	"time"

	"github.com/lib/pq"
)

type NotificationAudience string

const (
	AudienceAll      NotificationAudience = "ALL"
	AudienceTeachers NotificationAudience = "TEACHERS"
	AudienceStudents NotificationAudience = "STUDENTS"
	AudienceParents  NotificationAudience = "PARENTS"
	AudienceClass    NotificationAudience = "CLASS"
)

type NotificationChannel string

const (
	ChannelPush  NotificationChannel = "PUSH"
	ChannelSMS   NotificationChannel = "SMS"
	ChannelEmail NotificationChannel = "EMAIL"
)

type NotificationStatus string

const (
	NotificationQueued  NotificationStatus = "QUEUED"
	NotificationSending NotificationStatus = "SENDING"
	NotificationSent    NotificationStatus = "SENT"
	NotificationPartial NotificationStatus = "PARTIAL"
	NotificationFailed  NotificationStatus = "FAILED"
)

// Notification is an announcement fanned out over one or more channels.
type Notification struct {
	ID              string               `db:"id" json:"id"`
	SchoolID        string               `db:"school_id" json:"school_id"`
	Title           string               `db:"title" json:"title"`
	Message         string               `db:"message" json:"message"`
	Audience        NotificationAudience `db:"audience" json:"audience"`
	ClassID         *string              `db:"class_id" json:"class_id,omitempty"`
	Channels        pq.StringArray       `db:"channels" json:"channels"`
	Status          NotificationStatus   `db:"status" json:"status"`
	TotalRecipients int                  `db:"total_recipients" json:"total_recipients"`
	DeliveredCount  int                  `db:"delivered_count" json:"delivered_count"`
	FailedCount     int                  `db:"failed_count" json:"failed_count"`
	CreatedBy       *string              `db:"created_by" json:"created_by,omitempty"`
	CreatedAt       time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time            `db:"updated_at" json:"updated_at"`
}

// HasChannel reports whether ch is one of the notification's channels.
func (n Notification) HasChannel(ch NotificationChannel) bool {
	for _, c := range n.Channels {
		if c == string(ch) {
			return true
		}
	}
	return false
}

type NotificationFilter struct {
	SchoolID string
	Audience *NotificationAudience
	Status   *NotificationStatus
	Page     int
	PageSize int
}

// InboxItem is a push notification as seen by one user.
type InboxItem struct {
	ID             string     `db:"id" json:"id"`
	NotificationID string     `db:"notification_id" json:"notification_id"`
	Title          string     `db:"title" json:"title"`
	Message        string     `db:"message" json:"message"`
	ReadAt         *time.Time `db:"read_at" json:"read_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// Recipient is a resolved delivery target for a notification.
type Recipient struct {
	UserID    *string `db:"user_id"`
	StudentID *string `db:"student_id"`
	Name      string  `db:"name"`
	Email     string  `db:"email"`
	Phone     string  `db:"phone"`
}

// DeliveryReport summarises one dispatch run.
type DeliveryReport struct {
	Total     int `json:"total"`
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
}

// Status derives the notification status from the report.
func (r DeliveryReport) Status() NotificationStatus {
	switch {
	case r.Total == 0 || r.Failed == 0:
		return NotificationSent
	case r.Delivered == 0:
		return NotificationFailed
	default:
		return NotificationPartial
	}
}
