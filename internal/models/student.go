package models

import (
	"database/sql/driver"
	"strings"
	"time"
)

// StudentStatus tracks a student's enrolment lifecycle.
type StudentStatus string

const (
	StudentStatusActive      StudentStatus = "ACTIVE"
	StudentStatusInactive    StudentStatus = "INACTIVE"
	StudentStatusGraduated   StudentStatus = "GRADUATED"
	StudentStatusTransferred StudentStatus = "TRANSFERRED"
)

// Address is stored as JSONB on the student row.
type Address struct {
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

func (a Address) Value() (driver.Value, error) { return jsonValue("address", a) }
func (a *Address) Scan(value interface{}) error {
	*a = Address{}
	return jsonScan("address", value, a)
}

// String renders the address on one line, skipping blanks.
func (a Address) String() string {
	parts := make([]string, 0, 5)
	for _, p := range []string{a.Street, a.City, a.State, a.PostalCode, a.Country} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// ParentInfo holds guardian contact details.
type ParentInfo struct {
	FatherName       string `json:"father_name,omitempty"`
	FatherPhone      string `json:"father_phone,omitempty"`
	FatherOccupation string `json:"father_occupation,omitempty"`
	MotherName       string `json:"mother_name,omitempty"`
	MotherPhone      string `json:"mother_phone,omitempty"`
	GuardianName     string `json:"guardian_name,omitempty"`
	GuardianPhone    string `json:"guardian_phone,omitempty"`
	Email            string `json:"email,omitempty" validate:"omitempty,email"`
}

func (p ParentInfo) Value() (driver.Value, error) { return jsonValue("parent", p) }
func (p *ParentInfo) Scan(value interface{}) error {
	*p = ParentInfo{}
	return jsonScan("parent", value, p)
}

// PrimaryName picks the first named guardian: father, mother, then guardian.
func (p ParentInfo) PrimaryName() string {
	for _, n := range []string{p.FatherName, p.MotherName, p.GuardianName} {
		if n != "" {
			return n
		}
	}
	return ""
}

// PrimaryPhone picks the first available guardian phone in the same order.
func (p ParentInfo) PrimaryPhone() string {
	for _, n := range []string{p.FatherPhone, p.MotherPhone, p.GuardianPhone} {
		if n != "" {
			return n
		}
	}
	return ""
}

type EmergencyContact struct {
	Name     string `json:"name,omitempty"`
	Relation string `json:"relation,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

func (e EmergencyContact) Value() (driver.Value, error) { return jsonValue("emergency contact", e) }
func (e *EmergencyContact) Scan(value interface{}) error {
	*e = EmergencyContact{}
	return jsonScan("emergency contact", value, e)
}

// FeeStructure lists a student's fee components and the amount already paid.
type FeeStructure struct {
	Tuition    float64 `json:"tuition" validate:"gte=0"`
	Admission  float64 `json:"admission" validate:"gte=0"`
	Exam       float64 `json:"exam" validate:"gte=0"`
	Transport  float64 `json:"transport" validate:"gte=0"`
	Library    float64 `json:"library" validate:"gte=0"`
	Sports     float64 `json:"sports" validate:"gte=0"`
	Other      float64 `json:"other" validate:"gte=0"`
	PaidAmount float64 `json:"paid_amount" validate:"gte=0"`
}

func (f FeeStructure) Value() (driver.Value, error) { return jsonValue("fees", f) }
func (f *FeeStructure) Scan(value interface{}) error {
	*f = FeeStructure{}
	return jsonScan("fees", value, f)
}

// Gross is the sum of every component.
func (f FeeStructure) Gross() float64 {
	return f.Tuition + f.Admission + f.Exam + f.Transport + f.Library + f.Sports + f.Other
}

// Total is what remains to be paid: gross minus paid amount.
func (f FeeStructure) Total() float64 {
	return f.Gross() - f.PaidAmount
}

// Student represents a learner registered in a school.
type Student struct {
	ID               string           `db:"id" json:"id"`
	SchoolID         string           `db:"school_id" json:"school_id"`
	AdmissionNo      string           `db:"admission_no" json:"admission_no"`
	RollNo           string           `db:"roll_no" json:"roll_no"`
	FirstName        string           `db:"first_name" json:"first_name"`
	LastName         string           `db:"last_name" json:"last_name"`
	Gender           string           `db:"gender" json:"gender"`
	DateOfBirth      *time.Time       `db:"date_of_birth" json:"date_of_birth,omitempty"`
	BloodGroup       string           `db:"blood_group" json:"blood_group"`
	Email            string           `db:"email" json:"email"`
	Phone            string           `db:"phone" json:"phone"`
	PhotoURL         string           `db:"photo_url" json:"photo_url"`
	ClassID          *string          `db:"class_id" json:"class_id,omitempty"`
	AcademicYearID   *string          `db:"academic_year_id" json:"academic_year_id,omitempty"`
	TransportFeeID   *string          `db:"transport_fee_id" json:"transport_fee_id,omitempty"`
	Status           StudentStatus    `db:"status" json:"status"`
	Address          Address          `db:"address" json:"address"`
	Parent           ParentInfo       `db:"parent" json:"parent"`
	EmergencyContact EmergencyContact `db:"emergency_contact" json:"emergency_contact"`
	Fees             FeeStructure     `db:"fees" json:"fees"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}

// FullName joins first and last name.
func (s Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// StudentDetail adds class and year names for display.
type StudentDetail struct {
	Student
	ClassName        *string `db:"class_name" json:"class_name,omitempty"`
	AcademicYearName *string `db:"academic_year_name" json:"academic_year_name,omitempty"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	SchoolID       string
	Search         string
	ClassID        string
	AcademicYearID string
	Status         *StudentStatus
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}

// FeeSummary is the server-side fee computation for one student.
type FeeSummary struct {
	StudentID   string       `json:"student_id"`
	Components  FeeStructure `json:"components"`
	Gross       float64      `json:"gross"`
	PaidAmount  float64      `json:"paid_amount"`
	Total       float64      `json:"total"`
	TransportID *string      `json:"transport_fee_id,omitempty"`
}

// StudentContact is the minimum a notification needs about a student.
type StudentContact struct {
	ID        string     `db:"id"`
	FirstName string     `db:"first_name"`
	LastName  string     `db:"last_name"`
	Email     string     `db:"email"`
	Phone     string     `db:"phone"`
	ClassName *string    `db:"class_name"`
	Parent    ParentInfo `db:"parent"`
}

func (c StudentContact) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}
