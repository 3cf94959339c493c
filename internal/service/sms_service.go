package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/repository"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
	"github.com/noah-isme/school-portal-api/pkg/jobs"
	"github.com/noah-isme/school-portal-api/pkg/sms"
	"github.com/noah-isme/school-portal-api/pkg/validation"
)

type smsRepository interface {
	ListTemplates(ctx context.Context, schoolID, category string) ([]models.SmsTemplate, error)
	FindTemplate(ctx context.Context, schoolID, id string) (*models.SmsTemplate, error)
	TemplateNameExists(ctx context.Context, schoolID, name, excludeID string) (bool, error)
	CreateTemplate(ctx context.Context, template *models.SmsTemplate) error
	UpdateTemplate(ctx context.Context, template *models.SmsTemplate) error
	DeleteTemplate(ctx context.Context, schoolID, id string) (bool, error)
	CreateLog(ctx context.Context, log *models.SmsLog) error
	MarkLog(ctx context.Context, id string, status models.SmsStatus, providerID, errMsg string) error
	ListLogs(ctx context.Context, filter models.SmsLogFilter) ([]models.SmsLog, int, error)
}

type schoolLookup interface {
	FindByID(ctx context.Context, id string) (*models.School, error)
}

// SmsTemplateRequest creates a template.
type SmsTemplateRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Category string `json:"category" validate:"max=50"`
	Body     string `json:"body" validate:"required,max=1000"`
}

// UpdateSmsTemplateRequest patches a template.
type UpdateSmsTemplateRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=100"`
	Category *string `json:"category" validate:"omitempty,max=50"`
	Body     *string `json:"body" validate:"omitempty,min=1,max=1000"`
}

// SendSmsRequest targets either a class or explicit students with either a
// stored template or an inline message.
type SendSmsRequest struct {
	TemplateID *string           `json:"template_id" validate:"omitempty,uuid"`
	Message    string            `json:"message" validate:"max=1000"`
	ClassID    *string           `json:"class_id" validate:"omitempty,uuid"`
	StudentIDs []string          `json:"student_ids" validate:"max=1000,dive,uuid"`
	Variables  map[string]string `json:"variables"`
}

// SkippedRecipient explains why a student got no message.
type SkippedRecipient struct {
	StudentID string `json:"student_id"`
	Reason    string `json:"reason"`
}

// SendSmsResult reports what was queued.
type SendSmsResult struct {
	Queued  int                `json:"queued"`
	LogIDs  []string           `json:"log_ids"`
	Skipped []SkippedRecipient `json:"skipped"`
}

// SmsService manages SMS templates and bulk sends to parents.
type SmsService struct {
	repo      smsRepository
	schools   schoolLookup
	students  studentContactLookup
	queue     enqueuer
	validator *validation.Validator
	logger    *zap.Logger
}

func NewSmsService(repo smsRepository, schools schoolLookup, students studentContactLookup, queue enqueuer, validate *validation.Validator, logger *zap.Logger) *SmsService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SmsService{repo: repo, schools: schools, students: students, queue: queue, validator: validate, logger: logger}
}

func (s *SmsService) ListTemplates(ctx context.Context, schoolID, category string) ([]models.SmsTemplate, error) {
	items, err := s.repo.ListTemplates(ctx, schoolID, strings.TrimSpace(category))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sms templates")
	}
	if items == nil {
		items = []models.SmsTemplate{}
	}
	return items, nil
}

func (s *SmsService) GetTemplate(ctx context.Context, schoolID, id string) (*models.SmsTemplate, error) {
	tpl, err := s.repo.FindTemplate(ctx, schoolID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "sms template not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sms template")
	}
	return tpl, nil
}

func (s *SmsService) CreateTemplate(ctx context.Context, actor Actor, req SmsTemplateRequest) (*models.SmsTemplate, error) {
	schoolID, err := requireSchool(actor)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Check(req, "invalid sms template"); err != nil {
		return nil, err
	}
	tpl := &models.SmsTemplate{
		SchoolID: schoolID,
		Name:     strings.TrimSpace(req.Name),
		Category: strings.TrimSpace(req.Category),
		Body:     strings.TrimSpace(req.Body),
	}
	if err := s.ensureUniqueName(ctx, schoolID, tpl.Name, ""); err != nil {
		return nil, err
	}
	if err := s.repo.CreateTemplate(ctx, tpl); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrDuplicate, "template name already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create sms template")
	}
	return tpl, nil
}

func (s *SmsService) UpdateTemplate(ctx context.Context, actor Actor, id string, req UpdateSmsTemplateRequest) (*models.SmsTemplate, error) {
	schoolID, err := requireSchool(actor)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Check(req, "invalid sms template"); err != nil {
		return nil, err
	}
	tpl, err := s.GetTemplate(ctx, schoolID, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if !strings.EqualFold(name, tpl.Name) {
			if err := s.ensureUniqueName(ctx, schoolID, name, tpl.ID); err != nil {
				return nil, err
			}
		}
		tpl.Name = name
	}
	if req.Category != nil {
		tpl.Category = strings.TrimSpace(*req.Category)
	}
	if req.Body != nil {
		tpl.Body = strings.TrimSpace(*req.Body)
	}
	if err := s.repo.UpdateTemplate(ctx, tpl); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrDuplicate, "template name already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update sms template")
	}
	return tpl, nil
}

func (s *SmsService) DeleteTemplate(ctx context.Context, schoolID, id string) error {
	deleted, err := s.repo.DeleteTemplate(ctx, schoolID, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete sms template")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "sms template not found")
	}
	return nil
}

// Send renders the message for each student and queues one SMS per parent
// phone. Built-in variables win over caller-supplied ones.
func (s *SmsService) Send(ctx context.Context, actor Actor, req SendSmsRequest) (*SendSmsResult, error) {
	schoolID, err := requireSchool(actor)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Check(req, "invalid sms request"); err != nil {
		return nil, err
	}
	templateID := blankToNil(req.TemplateID)
	classID := blankToNil(req.ClassID)
	message := strings.TrimSpace(req.Message)
	details := map[string]string{}
	if (templateID == nil) == (message == "") {
		details["template_id"] = "provide exactly one of template_id or message"
	}
	if (classID == nil) == (len(req.StudentIDs) == 0) {
		details["class_id"] = "provide exactly one of class_id or student_ids"
	}
	if len(details) > 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid sms request").WithDetails(details)
	}

	body := message
	if templateID != nil {
		tpl, err := s.repo.FindTemplate(ctx, schoolID, *templateID)
		if err != nil {
			return nil, referenceError(err, "template_id", "sms template not found", "failed to load sms template")
		}
		body = tpl.Body
	}
	school, err := s.schools.FindByID(ctx, schoolID)
	if err != nil {
		return nil, referenceError(err, "school_id", "school not found", "failed to load school")
	}

	filterClass := ""
	if classID != nil {
		filterClass = *classID
	}
	wanted := uniqueStrings(req.StudentIDs)
	contacts, err := s.students.Contacts(ctx, schoolID, filterClass, wanted)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}

	result := &SendSmsResult{LogIDs: []string{}, Skipped: []SkippedRecipient{}}
	found := make(map[string]struct{}, len(contacts))
	deliveries := make([]SmsDelivery, 0, len(contacts))
	for _, c := range contacts {
		found[c.ID] = struct{}{}
		phone := strings.TrimSpace(c.Parent.PrimaryPhone())
		if phone == "" {
			result.Skipped = append(result.Skipped, SkippedRecipient{StudentID: c.ID, Reason: "no parent phone"})
			continue
		}
		text := sms.Render(body, studentVariables(req.Variables, c, school.Name))
		studentID := c.ID
		log := &models.SmsLog{SchoolID: schoolID, StudentID: &studentID, Phone: phone, Body: text}
		if err := s.repo.CreateLog(ctx, log); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record sms")
		}
		deliveries = append(deliveries, SmsDelivery{LogID: log.ID, Phone: phone, Body: text})
		result.LogIDs = append(result.LogIDs, log.ID)
	}
	for _, id := range wanted {
		if _, ok := found[id]; !ok {
			result.Skipped = append(result.Skipped, SkippedRecipient{StudentID: id, Reason: "student not found"})
		}
	}
	if len(deliveries) == 0 {
		return result, nil
	}

	job := jobs.Job{ID: uuid.NewString(), Type: JobSendSMS, Payload: SmsJob{SchoolID: schoolID, Deliveries: deliveries}}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Error("failed to enqueue sms", zap.String("school_id", schoolID), zap.Error(err))
		for _, d := range deliveries {
			if merr := s.repo.MarkLog(ctx, d.LogID, models.SmsFailed, "", "queue unavailable"); merr != nil {
				s.logger.Warn("failed to mark sms failed", zap.String("log_id", d.LogID), zap.Error(merr))
			}
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "sms could not be queued")
	}
	result.Queued = len(deliveries)
	s.logger.Info("sms queued", zap.String("school_id", schoolID), zap.Int("count", result.Queued), zap.Int("skipped", len(result.Skipped)))
	return result, nil
}

func (s *SmsService) Logs(ctx context.Context, filter models.SmsLogFilter) ([]models.SmsLog, *models.Pagination, error) {
	items, total, err := s.repo.ListLogs(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sms logs")
	}
	if items == nil {
		items = []models.SmsLog{}
	}
	return items, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

func (s *SmsService) ensureUniqueName(ctx context.Context, schoolID, name, excludeID string) error {
	exists, err := s.repo.TemplateNameExists(ctx, schoolID, name, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check template name")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrDuplicate, "template name already exists")
	}
	return nil
}

func studentVariables(custom map[string]string, c models.StudentContact, schoolName string) map[string]string {
	vars := make(map[string]string, len(custom)+4)
	for k, v := range custom {
		vars[k] = v
	}
	vars["student_name"] = c.FullName()
	vars["parent_name"] = c.Parent.PrimaryName()
	vars["school_name"] = schoolName
	vars["class_name"] = ""
	if c.ClassName != nil {
		vars["class_name"] = *c.ClassName
	}
	return vars
}
