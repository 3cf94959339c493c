package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
	"github.com/noah-isme/school-portal-api/pkg/grading"
	"github.com/noah-isme/school-portal-api/pkg/validation"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	ListAll(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, error)
	FindByID(ctx context.Context, schoolID, id string) (*models.StudentDetail, error)
	ExistsByAdmissionNo(ctx context.Context, schoolID, admissionNo, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Deactivate(ctx context.Context, schoolID, id string) error
	CountByClass(ctx context.Context, classID string) (int, error)
}

type classLookup interface {
	FindByID(ctx context.Context, schoolID, id string) (*models.ClassDetail, error)
}

type transportFeeLookup interface {
	FindByID(ctx context.Context, schoolID, id string) (*models.TransportFee, error)
}

// CreateStudentRequest holds payload for admitting a student.
type CreateStudentRequest struct {
	AdmissionNo      string                  `json:"admission_no" validate:"required,max=50"`
	RollNo           string                  `json:"roll_no" validate:"max=20"`
	FirstName        string                  `json:"first_name" validate:"required,max=100"`
	LastName         string                  `json:"last_name" validate:"max=100"`
	Gender           string                  `json:"gender" validate:"omitempty,oneof=MALE FEMALE OTHER"`
	DateOfBirth      string                  `json:"date_of_birth" validate:"omitempty,isodate"`
	BloodGroup       string                  `json:"blood_group" validate:"max=5"`
	Email            string                  `json:"email" validate:"omitempty,email"`
	Phone            string                  `json:"phone" validate:"omitempty,phone"`
	PhotoURL         string                  `json:"photo_url"`
	ClassID          *string                 `json:"class_id" validate:"omitempty,uuid"`
	AcademicYearID   *string                 `json:"academic_year_id" validate:"omitempty,uuid"`
	TransportFeeID   *string                 `json:"transport_fee_id" validate:"omitempty,uuid"`
	Address          models.Address          `json:"address"`
	Parent           models.ParentInfo       `json:"parent"`
	EmergencyContact models.EmergencyContact `json:"emergency_contact"`
	Fees             models.FeeStructure     `json:"fees"`
}

// UpdateStudentRequest merges the fields present in the body. Nested
// objects merge key by key.
type UpdateStudentRequest struct {
	AdmissionNo      *string                    `json:"admission_no" validate:"omitempty,min=1,max=50"`
	RollNo           *string                    `json:"roll_no" validate:"omitempty,max=20"`
	FirstName        *string                    `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName         *string                    `json:"last_name" validate:"omitempty,max=100"`
	Gender           *string                    `json:"gender" validate:"omitempty,oneof=MALE FEMALE OTHER"`
	DateOfBirth      *string                    `json:"date_of_birth" validate:"omitempty,isodate"`
	BloodGroup       *string                    `json:"blood_group" validate:"omitempty,max=5"`
	Email            *string                    `json:"email" validate:"omitempty,email"`
	Phone            *string                    `json:"phone" validate:"omitempty,phone"`
	PhotoURL         *string                    `json:"photo_url"`
	ClassID          *string                    `json:"class_id" validate:"omitempty,uuid"`
	AcademicYearID   *string                    `json:"academic_year_id" validate:"omitempty,uuid"`
	TransportFeeID   *string                    `json:"transport_fee_id" validate:"omitempty,uuid"`
	Status           *models.StudentStatus      `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE GRADUATED TRANSFERRED"`
	Address          *dto.AddressPatch          `json:"address"`
	Parent           *dto.ParentPatch           `json:"parent"`
	EmergencyContact *dto.EmergencyContactPatch `json:"emergency_contact"`
	Fees             *dto.FeesPatch             `json:"fees"`
}

// StudentService handles student use-cases.
type StudentService struct {
	repo      studentRepository
	classes   classLookup
	transport transportFeeLookup
	exporter  *ExportService
	validator *validation.Validator
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, classes classLookup, transport transportFeeLookup, exporter *ExportService, validate *validation.Validator, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if exporter == nil {
		exporter = NewExportService(nil, nil, logger)
	}
	return &StudentService{repo: repo, classes: classes, transport: transport, exporter: exporter, validator: validate, logger: logger}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	if students == nil {
		students = []models.StudentDetail{}
	}
	return students, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a student with class and year names.
func (s *StudentService) Get(ctx context.Context, schoolID, id string) (*models.StudentDetail, error) {
	student, err := s.repo.FindByID(ctx, schoolID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create admits a student. The admission number is unique per school.
func (s *StudentService) Create(ctx context.Context, schoolID string, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Check(req, "invalid student payload"); err != nil {
		return nil, err
	}
	admissionNo := strings.TrimSpace(req.AdmissionNo)
	if err := s.ensureUniqueAdmission(ctx, schoolID, admissionNo, ""); err != nil {
		return nil, err
	}

	student := &models.Student{
		SchoolID:         schoolID,
		AdmissionNo:      admissionNo,
		RollNo:           strings.TrimSpace(req.RollNo),
		FirstName:        strings.TrimSpace(req.FirstName),
		LastName:         strings.TrimSpace(req.LastName),
		Gender:           req.Gender,
		DateOfBirth:      parseDatePtr(req.DateOfBirth),
		BloodGroup:       req.BloodGroup,
		Email:            strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:            req.Phone,
		PhotoURL:         req.PhotoURL,
		ClassID:          blankToNil(req.ClassID),
		AcademicYearID:   blankToNil(req.AcademicYearID),
		TransportFeeID:   blankToNil(req.TransportFeeID),
		Status:           models.StudentStatusActive,
		Address:          req.Address,
		Parent:           req.Parent,
		EmergencyContact: req.EmergencyContact,
		Fees:             req.Fees,
	}

	if student.ClassID != nil {
		if err := s.checkClass(ctx, schoolID, *student.ClassID); err != nil {
			return nil, err
		}
	}
	if student.TransportFeeID != nil {
		if err := s.applyTransportFee(ctx, student, req.Fees.Transport == 0); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	return student, nil
}

// Update merges the present fields into the stored student.
func (s *StudentService) Update(ctx context.Context, schoolID, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Check(req, "invalid student payload"); err != nil {
		return nil, err
	}
	detail, err := s.Get(ctx, schoolID, id)
	if err != nil {
		return nil, err
	}
	student := detail.Student

	if req.AdmissionNo != nil {
		admissionNo := strings.TrimSpace(*req.AdmissionNo)
		if admissionNo != student.AdmissionNo {
			if err := s.ensureUniqueAdmission(ctx, schoolID, admissionNo, id); err != nil {
				return nil, err
			}
			student.AdmissionNo = admissionNo
		}
	}
	if req.RollNo != nil {
		student.RollNo = strings.TrimSpace(*req.RollNo)
	}
	if req.FirstName != nil {
		student.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		student.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Gender != nil {
		student.Gender = *req.Gender
	}
	if req.DateOfBirth != nil {
		student.DateOfBirth = parseDatePtr(*req.DateOfBirth)
	}
	if req.BloodGroup != nil {
		student.BloodGroup = *req.BloodGroup
	}
	if req.Email != nil {
		student.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Phone != nil {
		student.Phone = *req.Phone
	}
	if req.PhotoURL != nil {
		student.PhotoURL = *req.PhotoURL
	}
	if req.AcademicYearID != nil {
		student.AcademicYearID = blankToNil(req.AcademicYearID)
	}
	if req.Status != nil {
		student.Status = *req.Status
	}
	if req.ClassID != nil {
		classID := blankToNil(req.ClassID)
		if classID != nil && (student.ClassID == nil || *student.ClassID != *classID) {
			if err := s.checkClass(ctx, schoolID, *classID); err != nil {
				return nil, err
			}
		}
		student.ClassID = classID
	}
	if req.Address != nil {
		req.Address.ApplyTo(&student.Address)
	}
	if req.Parent != nil {
		req.Parent.ApplyTo(&student.Parent)
	}
	if req.EmergencyContact != nil {
		req.EmergencyContact.ApplyTo(&student.EmergencyContact)
	}
	if req.Fees != nil {
		req.Fees.ApplyTo(&student.Fees)
	}
	if req.TransportFeeID != nil {
		student.TransportFeeID = blankToNil(req.TransportFeeID)
		explicit := req.Fees != nil && req.Fees.Transport != nil
		if student.TransportFeeID == nil {
			if !explicit {
				student.Fees.Transport = 0
			}
		} else if err := s.applyTransportFee(ctx, &student, !explicit); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, &student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return &student, nil
}

// Delete marks the student INACTIVE; the record is kept.
func (s *StudentService) Delete(ctx context.Context, schoolID, id string) error {
	if _, err := s.Get(ctx, schoolID, id); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, schoolID, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	return nil
}

// FeeSummary computes gross and outstanding fees.
func (s *StudentService) FeeSummary(ctx context.Context, schoolID, id string) (*models.FeeSummary, error) {
	student, err := s.Get(ctx, schoolID, id)
	if err != nil {
		return nil, err
	}
	return &models.FeeSummary{
		StudentID:   student.ID,
		Components:  student.Fees,
		Gross:       grading.Round2(student.Fees.Gross()),
		PaidAmount:  grading.Round2(student.Fees.PaidAmount),
		Total:       grading.Round2(student.Fees.Total()),
		TransportID: student.TransportFeeID,
	}, nil
}

// RecordPDF renders a single student profile.
func (s *StudentService) RecordPDF(ctx context.Context, schoolID, id string) (*ExportFile, error) {
	student, err := s.Get(ctx, schoolID, id)
	if err != nil {
		return nil, err
	}
	return s.exporter.StudentRecord(student)
}

// Export renders every student matching filter, without pagination.
func (s *StudentService) Export(ctx context.Context, filter models.StudentFilter, format ExportFormat) (*ExportFile, error) {
	students, err := s.repo.ListAll(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	title := "Students"
	if filter.ClassID != "" && len(students) > 0 && students[0].ClassName != nil {
		title = "Students of " + *students[0].ClassName
	}
	return s.exporter.Roster(title, students, format)
}

func (s *StudentService) ensureUniqueAdmission(ctx context.Context, schoolID, admissionNo, excludeID string) error {
	exists, err := s.repo.ExistsByAdmissionNo(ctx, schoolID, admissionNo, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check admission number")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrDuplicate, "admission number already exists")
	}
	return nil
}

// checkClass verifies the class belongs to the school and has a free seat.
func (s *StudentService) checkClass(ctx context.Context, schoolID, classID string) error {
	if s.classes == nil {
		return nil
	}
	class, err := s.classes.FindByID(ctx, schoolID, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "class not found").WithDetails(map[string]string{"class_id": "class_id does not exist"})
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate class")
	}
	if class.Capacity <= 0 {
		return nil
	}
	count, err := s.repo.CountByClass(ctx, classID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class capacity")
	}
	if count >= class.Capacity {
		return appErrors.Clone(appErrors.ErrConflict, "class is full")
	}
	return nil
}

// applyTransportFee validates the route and, when fill is set, copies its
// annual fee into the transport component.
func (s *StudentService) applyTransportFee(ctx context.Context, student *models.Student, fill bool) error {
	if s.transport == nil {
		return nil
	}
	fee, err := s.transport.FindByID(ctx, student.SchoolID, *student.TransportFeeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "transport fee not found").WithDetails(map[string]string{"transport_fee_id": "transport_fee_id does not exist"})
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate transport fee")
	}
	if !fee.IsActive {
		return appErrors.Clone(appErrors.ErrValidation, "transport fee is inactive").WithDetails(map[string]string{"transport_fee_id": "transport_fee_id is inactive"})
	}
	if fill {
		student.Fees.Transport = fee.AnnualFee
	}
	return nil
}
