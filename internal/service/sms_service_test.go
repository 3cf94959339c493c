package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
	"github.com/noah-isme/school-portal-api/pkg/jobs"
)

const smsReminderTemplate = "0b6c7a10-0000-4000-8000-000000000501"

type fakeSmsRepo struct {
	fakeSmsLogs
	templates map[string]*models.SmsTemplate
}

func (f *fakeSmsRepo) ListTemplates(ctx context.Context, schoolID, category string) ([]models.SmsTemplate, error) {
	out := []models.SmsTemplate{}
	for _, t := range f.templates {
		if t.SchoolID == schoolID && (category == "" || t.Category == category) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeSmsRepo) FindTemplate(ctx context.Context, schoolID, id string) (*models.SmsTemplate, error) {
	if t, ok := f.templates[id]; ok && t.SchoolID == schoolID {
		copied := *t
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeSmsRepo) TemplateNameExists(ctx context.Context, schoolID, name, excludeID string) (bool, error) {
	for id, t := range f.templates {
		if id != excludeID && t.SchoolID == schoolID && strings.EqualFold(t.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSmsRepo) CreateTemplate(ctx context.Context, template *models.SmsTemplate) error {
	template.ID = "tpl-new"
	copied := *template
	f.templates[template.ID] = &copied
	return nil
}

func (f *fakeSmsRepo) UpdateTemplate(ctx context.Context, template *models.SmsTemplate) error {
	copied := *template
	f.templates[template.ID] = &copied
	return nil
}

func (f *fakeSmsRepo) DeleteTemplate(ctx context.Context, schoolID, id string) (bool, error) {
	if t, ok := f.templates[id]; ok && t.SchoolID == schoolID {
		delete(f.templates, id)
		return true, nil
	}
	return false, nil
}

func (f *fakeSmsRepo) ListLogs(ctx context.Context, filter models.SmsLogFilter) ([]models.SmsLog, int, error) {
	return nil, 0, nil
}

type stubSchools map[string]models.School

func (s stubSchools) FindByID(ctx context.Context, id string) (*models.School, error) {
	if school, ok := s[id]; ok {
		return &school, nil
	}
	return nil, sql.ErrNoRows
}

func newSmsFixture() (*SmsService, *fakeSmsRepo, *fakeQueue) {
	repo := &fakeSmsRepo{templates: map[string]*models.SmsTemplate{
		smsReminderTemplate: {
			ID: smsReminderTemplate, SchoolID: "school-1", Name: "Fee reminder", Category: "fees",
			Body: "Dear {{parent_name}}, fees for {{student_name}} ({{class_name}}) are due {{due_date}}. - {{school_name}}",
		},
	}}
	queue := &fakeQueue{}
	schools := stubSchools{"school-1": {ID: "school-1", Name: "SMA Harapan"}}
	return NewSmsService(repo, schools, rosterFixture(), queue, nil, nil), repo, queue
}

func TestSmsSendRendersTemplatePerStudent(t *testing.T) {
	svc, repo, queue := newSmsFixture()

	result, err := svc.Send(context.Background(), schoolAdminActor, SendSmsRequest{
		TemplateID: strPtr(smsReminderTemplate),
		ClassID:    strPtr(classSeven),
		Variables:  map[string]string{"due_date": "10 April", "student_name": "ignored"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Queued)
	assert.Empty(t, result.Skipped)

	require.Len(t, repo.logs, 2)
	assert.Equal(t, "Dear Budi, fees for Ayu Lestari (VII-A) are due 10 April. - SMA Harapan", repo.logs[0].Body)
	assert.Equal(t, "+6281100001", repo.logs[0].Phone)
	assert.Equal(t, pupilOne, *repo.logs[0].StudentID)

	require.Len(t, queue.jobs, 1)
	assert.Equal(t, JobSendSMS, queue.jobs[0].Type)
	payload := queue.jobs[0].Payload.(SmsJob)
	assert.Len(t, payload.Deliveries, 2)
	assert.Equal(t, repo.logs[1].ID, payload.Deliveries[1].LogID)
}

func TestSmsSendToStudentsReportsSkipped(t *testing.T) {
	svc, _, queue := newSmsFixture()
	unknown := "0b6c7a10-0000-4000-8000-000000000999"

	result, err := svc.Send(context.Background(), schoolAdminActor, SendSmsRequest{
		Message:    "Hello {{student_name}}",
		StudentIDs: []string{pupilTwo, pupilThree, unknown},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Queued)
	assert.ElementsMatch(t, []SkippedRecipient{
		{StudentID: pupilThree, Reason: "no parent phone"},
		{StudentID: unknown, Reason: "student not found"},
	}, result.Skipped)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, "Hello Dimas", queue.jobs[0].Payload.(SmsJob).Deliveries[0].Body)
}

func TestSmsSendRequiresExactlyOneSourceAndTarget(t *testing.T) {
	svc, _, _ := newSmsFixture()

	_, err := svc.Send(context.Background(), schoolAdminActor, SendSmsRequest{
		TemplateID: strPtr(smsReminderTemplate),
		Message:    "both",
	})
	details := appErrors.FromError(err).Details
	assert.Contains(t, details, "template_id")
	assert.Contains(t, details, "class_id")

	_, err = svc.Send(context.Background(), schoolAdminActor, SendSmsRequest{
		TemplateID: strPtr("0b6c7a10-0000-4000-8000-000000000777"),
		ClassID:    strPtr(classSeven),
	})
	assert.Contains(t, appErrors.FromError(err).Details, "template_id")
}

func TestSmsSendMarksLogsFailedWhenQueueRejects(t *testing.T) {
	svc, repo, queue := newSmsFixture()
	queue.err = jobs.ErrQueueFull

	_, err := svc.Send(context.Background(), schoolAdminActor, SendSmsRequest{Message: "hi", ClassID: strPtr(classSeven)})
	require.Error(t, err)
	for _, log := range repo.logs {
		assert.Equal(t, models.SmsFailed, repo.marked[log.ID])
	}
}

func TestSmsTemplateNamesAreUnique(t *testing.T) {
	svc, _, _ := newSmsFixture()

	_, err := svc.CreateTemplate(context.Background(), schoolAdminActor, SmsTemplateRequest{Name: "fee REMINDER", Body: "x"})
	assert.Equal(t, appErrors.ErrDuplicate.Code, appErrors.FromError(err).Code)

	tpl, err := svc.CreateTemplate(context.Background(), schoolAdminActor, SmsTemplateRequest{Name: "Absence", Body: "{{student_name}} was absent"})
	require.NoError(t, err)

	_, err = svc.UpdateTemplate(context.Background(), schoolAdminActor, tpl.ID, UpdateSmsTemplateRequest{Name: strPtr("Fee reminder")})
	assert.Equal(t, appErrors.ErrDuplicate.Code, appErrors.FromError(err).Code)

	updated, err := svc.UpdateTemplate(context.Background(), schoolAdminActor, tpl.ID, UpdateSmsTemplateRequest{Body: strPtr("Absent today")})
	require.NoError(t, err)
	assert.Equal(t, "Absent today", updated.Body)

	require.NoError(t, svc.DeleteTemplate(context.Background(), "school-1", tpl.ID))
	err = svc.DeleteTemplate(context.Background(), "school-1", tpl.ID)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSmsQueuedJobIsDeliveredByDispatcher(t *testing.T) {
	svc, repo, queue := newSmsFixture()
	_, err := svc.Send(context.Background(), schoolAdminActor, SendSmsRequest{Message: "Reminder", ClassID: strPtr(classSeven)})
	require.NoError(t, err)

	sender := &recordingSMS{}
	d := NewNotificationDispatcher(newFakeNotificationRepo(), stubDirectory{}, fakeRoster{}, repo, sender, &recordingMail{}, nil, nil)
	require.NoError(t, d.Handle(context.Background(), queue.jobs[0]))
	assert.Len(t, sender.sent, 2)
	for _, log := range repo.logs {
		assert.Equal(t, models.SmsSent, repo.marked[log.ID])
	}
}
