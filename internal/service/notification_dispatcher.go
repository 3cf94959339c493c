package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/pkg/jobs"
	"github.com/noah-isme/school-portal-api/pkg/mailer"
	"github.com/noah-isme/school-portal-api/pkg/sms"
)

type notificationStore interface {
	FindByID(ctx context.Context, schoolID, id string) (*models.Notification, error)
	SetStatus(ctx context.Context, id string, status models.NotificationStatus) error
	Complete(ctx context.Context, id string, report models.DeliveryReport) error
	AddRecipients(ctx context.Context, notificationID string, userIDs []string) (int, error)
}

type userDirectory interface {
	ListContacts(ctx context.Context, schoolID string, roles []models.UserRole) ([]models.Recipient, error)
}

type smsLogStore interface {
	CreateLog(ctx context.Context, log *models.SmsLog) error
	MarkLog(ctx context.Context, id string, status models.SmsStatus, providerID, errMsg string) error
}

// SmsDelivery is one rendered message waiting for the provider.
type SmsDelivery struct {
	LogID string
	Phone string
	Body  string
}

// SmsJob is the payload of a bulk SMS job.
type SmsJob struct {
	SchoolID   string
	Deliveries []SmsDelivery
}

// NotificationDispatcher runs queued notification and SMS jobs.
type NotificationDispatcher struct {
	notifications notificationStore
	users         userDirectory
	students      studentContactLookup
	smsLogs       smsLogStore
	smsSender     sms.Sender
	mail          mailer.Sender
	metrics       *MetricsService
	logger        *zap.Logger
}

func NewNotificationDispatcher(notifications notificationStore, users userDirectory, students studentContactLookup, smsLogs smsLogStore, smsSender sms.Sender, mail mailer.Sender, metrics *MetricsService, logger *zap.Logger) *NotificationDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationDispatcher{
		notifications: notifications,
		users:         users,
		students:      students,
		smsLogs:       smsLogs,
		smsSender:     smsSender,
		mail:          mail,
		metrics:       metrics,
		logger:        logger,
	}
}

// Handle is the queue handler. Errors are only returned for failures that
// happen before anything was delivered, so a retry never double-sends.
func (d *NotificationDispatcher) Handle(ctx context.Context, job jobs.Job) error {
	switch job.Type {
	case JobDispatchNotification:
		payload, ok := job.Payload.(NotificationJob)
		if !ok {
			d.logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
			return nil
		}
		return d.dispatch(ctx, payload)
	case JobSendSMS:
		payload, ok := job.Payload.(SmsJob)
		if !ok {
			d.logger.Error("unexpected sms payload", zap.String("job_id", job.ID))
			return nil
		}
		d.sendSMS(ctx, payload.Deliveries)
		return nil
	default:
		d.logger.Warn("unknown job type", zap.String("type", job.Type))
		return nil
	}
}

// GiveUp marks the work of an abandoned job as failed.
func (d *NotificationDispatcher) GiveUp(ctx context.Context, job jobs.Job, cause error) {
	switch payload := job.Payload.(type) {
	case NotificationJob:
		if err := d.notifications.SetStatus(ctx, payload.NotificationID, models.NotificationFailed); err != nil {
			d.logger.Error("failed to mark notification failed", zap.String("notification_id", payload.NotificationID), zap.Error(err))
		}
	case SmsJob:
		reason := "delivery abandoned"
		if cause != nil {
			reason = cause.Error()
		}
		for _, m := range payload.Deliveries {
			if err := d.smsLogs.MarkLog(ctx, m.LogID, models.SmsFailed, "", reason); err != nil {
				d.logger.Error("failed to mark sms failed", zap.String("log_id", m.LogID), zap.Error(err))
			}
		}
	}
}

func (d *NotificationDispatcher) dispatch(ctx context.Context, job NotificationJob) error {
	n, err := d.notifications.FindByID(ctx, job.SchoolID, job.NotificationID)
	if err != nil {
		return fmt.Errorf("load notification %s: %w", job.NotificationID, err)
	}
	users, contacts, err := d.resolve(ctx, n)
	if err != nil {
		return err
	}
	if err := d.notifications.SetStatus(ctx, n.ID, models.NotificationSending); err != nil {
		return fmt.Errorf("mark notification sending: %w", err)
	}

	everyone := make([]models.Recipient, 0, len(users)+len(contacts))
	everyone = append(append(everyone, users...), contacts...)

	var report models.DeliveryReport
	if n.HasChannel(models.ChannelPush) {
		d.push(ctx, n, users, &report)
	}
	if n.HasChannel(models.ChannelSMS) {
		d.sms(ctx, n, everyone, &report)
	}
	if n.HasChannel(models.ChannelEmail) {
		d.email(ctx, n, everyone, &report)
	}

	if err := d.notifications.Complete(ctx, n.ID, report); err != nil {
		d.logger.Error("failed to record delivery report", zap.String("notification_id", n.ID), zap.Error(err))
	}
	d.logger.Info("notification dispatched",
		zap.String("notification_id", n.ID),
		zap.Int("total", report.Total),
		zap.Int("delivered", report.Delivered),
		zap.Int("failed", report.Failed),
	)
	return nil
}

// resolve returns user accounts and non-user contacts (students, parents)
// matching the audience.
func (d *NotificationDispatcher) resolve(ctx context.Context, n *models.Notification) ([]models.Recipient, []models.Recipient, error) {
	var roles []models.UserRole
	includeStudents, includeParents := false, false
	classID := ""
	switch n.Audience {
	case models.AudienceTeachers:
		roles = []models.UserRole{models.RoleTeacher}
	case models.AudienceStudents:
		roles = []models.UserRole{models.RoleStudent}
		includeStudents = true
	case models.AudienceParents:
		includeParents = true
	case models.AudienceClass:
		includeStudents, includeParents = true, true
		if n.ClassID != nil {
			classID = *n.ClassID
		}
	default:
		roles = []models.UserRole{models.RoleSchoolAdmin, models.RoleTeacher, models.RoleStudent}
		includeParents = true
	}

	var users []models.Recipient
	if len(roles) > 0 {
		found, err := d.users.ListContacts(ctx, n.SchoolID, roles)
		if err != nil {
			return nil, nil, fmt.Errorf("resolve users: %w", err)
		}
		users = found
	}

	var contacts []models.Recipient
	if includeStudents || includeParents {
		students, err := d.students.Contacts(ctx, n.SchoolID, classID, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("resolve students: %w", err)
		}
		for _, st := range students {
			id := st.ID
			if includeStudents {
				contacts = append(contacts, models.Recipient{StudentID: &id, Name: st.FullName(), Email: st.Email, Phone: st.Phone})
			}
			if includeParents {
				contacts = append(contacts, models.Recipient{StudentID: &id, Name: st.Parent.PrimaryName(), Email: st.Parent.Email, Phone: st.Parent.PrimaryPhone()})
			}
		}
	}
	return users, contacts, nil
}

func (d *NotificationDispatcher) push(ctx context.Context, n *models.Notification, users []models.Recipient, report *models.DeliveryReport) {
	ids := make([]string, 0, len(users))
	for _, u := range users {
		if u.UserID != nil {
			ids = append(ids, *u.UserID)
		}
	}
	ids = uniqueStrings(ids)
	if len(ids) == 0 {
		return
	}
	added, err := d.notifications.AddRecipients(ctx, n.ID, ids)
	report.Total += len(ids)
	if err != nil {
		d.logger.Error("failed to store inbox rows", zap.String("notification_id", n.ID), zap.Error(err))
		report.Failed += len(ids)
		d.metrics.RecordDelivery(string(models.ChannelPush), "failed", len(ids))
		return
	}
	report.Delivered += len(ids)
	d.metrics.RecordDelivery(string(models.ChannelPush), "delivered", added)
}

func (d *NotificationDispatcher) sms(ctx context.Context, n *models.Notification, recipients []models.Recipient, report *models.DeliveryReport) {
	seen := map[string]struct{}{}
	deliveries := make([]SmsDelivery, 0, len(recipients))
	body := n.Title + ": " + n.Message
	notificationID := n.ID
	for _, r := range recipients {
		phone := strings.TrimSpace(r.Phone)
		if phone == "" {
			continue
		}
		if _, dup := seen[phone]; dup {
			continue
		}
		seen[phone] = struct{}{}
		log := &models.SmsLog{SchoolID: n.SchoolID, NotificationID: &notificationID, StudentID: r.StudentID, Phone: phone, Body: body}
		if err := d.smsLogs.CreateLog(ctx, log); err != nil {
			d.logger.Error("failed to create sms log", zap.String("notification_id", n.ID), zap.Error(err))
			report.Total++
			report.Failed++
			d.metrics.RecordDelivery(string(models.ChannelSMS), "failed", 1)
			continue
		}
		deliveries = append(deliveries, SmsDelivery{LogID: log.ID, Phone: phone, Body: body})
	}
	sent, failed := d.sendSMS(ctx, deliveries)
	report.Total += sent + failed
	report.Delivered += sent
	report.Failed += failed
}

// sendSMS delivers each message and records the outcome on its log row.
func (d *NotificationDispatcher) sendSMS(ctx context.Context, deliveries []SmsDelivery) (sent, failed int) {
	for _, m := range deliveries {
		providerID, err := d.smsSender.Send(ctx, m.Phone, m.Body)
		status, errMsg := models.SmsSent, ""
		if err != nil {
			status, errMsg = models.SmsFailed, err.Error()
			failed++
			d.logger.Warn("sms delivery failed", zap.String("log_id", m.LogID), zap.Error(err))
			d.metrics.RecordDelivery(string(models.ChannelSMS), "failed", 1)
		} else {
			sent++
			d.metrics.RecordDelivery(string(models.ChannelSMS), "delivered", 1)
		}
		if err := d.smsLogs.MarkLog(ctx, m.LogID, status, providerID, errMsg); err != nil {
			d.logger.Error("failed to update sms log", zap.String("log_id", m.LogID), zap.Error(err))
		}
	}
	return sent, failed
}

func (d *NotificationDispatcher) email(ctx context.Context, n *models.Notification, recipients []models.Recipient, report *models.DeliveryReport) {
	seen := map[string]struct{}{}
	for _, r := range recipients {
		addr := strings.ToLower(strings.TrimSpace(r.Email))
		if addr == "" {
			continue
		}
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		report.Total++
		_, err := d.mail.Send(ctx, mailer.Message{ToName: r.Name, ToEmail: addr, Subject: n.Title, Text: n.Message})
		if err != nil {
			report.Failed++
			d.logger.Warn("email delivery failed", zap.String("notification_id", n.ID), zap.Error(err))
			d.metrics.RecordDelivery(string(models.ChannelEmail), "failed", 1)
			continue
		}
		report.Delivered++
		d.metrics.RecordDelivery(string(models.ChannelEmail), "delivered", 1)
	}
}
