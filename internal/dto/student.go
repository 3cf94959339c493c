package dto

import "github.com/noah-isme/school-portal-api/internal/models"

type AddressPatch struct {
	Street     *string `json:"street"`
	City       *string `json:"city"`
	State      *string `json:"state"`
	PostalCode *string `json:"postal_code"`
	Country    *string `json:"country"`
}

func (p AddressPatch) ApplyTo(a *models.Address) {
	assign(&a.Street, p.Street)
	assign(&a.City, p.City)
	assign(&a.State, p.State)
	assign(&a.PostalCode, p.PostalCode)
	assign(&a.Country, p.Country)
}

type ParentPatch struct {
	FatherName       *string `json:"father_name"`
	FatherPhone      *string `json:"father_phone" validate:"omitempty,phone"`
	FatherOccupation *string `json:"father_occupation"`
	MotherName       *string `json:"mother_name"`
	MotherPhone      *string `json:"mother_phone" validate:"omitempty,phone"`
	GuardianName     *string `json:"guardian_name"`
	GuardianPhone    *string `json:"guardian_phone" validate:"omitempty,phone"`
	Email            *string `json:"email" validate:"omitempty,email"`
}

func (p ParentPatch) ApplyTo(pi *models.ParentInfo) {
	assign(&pi.FatherName, p.FatherName)
	assign(&pi.FatherPhone, p.FatherPhone)
	assign(&pi.FatherOccupation, p.FatherOccupation)
	assign(&pi.MotherName, p.MotherName)
	assign(&pi.MotherPhone, p.MotherPhone)
	assign(&pi.GuardianName, p.GuardianName)
	assign(&pi.GuardianPhone, p.GuardianPhone)
	assign(&pi.Email, p.Email)
}

type EmergencyContactPatch struct {
	Name     *string `json:"name"`
	Relation *string `json:"relation"`
	Phone    *string `json:"phone" validate:"omitempty,phone"`
}

func (p EmergencyContactPatch) ApplyTo(e *models.EmergencyContact) {
	assign(&e.Name, p.Name)
	assign(&e.Relation, p.Relation)
	assign(&e.Phone, p.Phone)
}

// FeesPatch updates individual fee components; absent components keep their value.
type FeesPatch struct {
	Tuition    *float64 `json:"tuition" validate:"omitempty,gte=0"`
	Admission  *float64 `json:"admission" validate:"omitempty,gte=0"`
	Exam       *float64 `json:"exam" validate:"omitempty,gte=0"`
	Transport  *float64 `json:"transport" validate:"omitempty,gte=0"`
	Library    *float64 `json:"library" validate:"omitempty,gte=0"`
	Sports     *float64 `json:"sports" validate:"omitempty,gte=0"`
	Other      *float64 `json:"other" validate:"omitempty,gte=0"`
	PaidAmount *float64 `json:"paid_amount" validate:"omitempty,gte=0"`
}

func (p FeesPatch) ApplyTo(f *models.FeeStructure) {
	assign(&f.Tuition, p.Tuition)
	assign(&f.Admission, p.Admission)
	assign(&f.Exam, p.Exam)
	assign(&f.Transport, p.Transport)
	assign(&f.Library, p.Library)
	assign(&f.Sports, p.Sports)
	assign(&f.Other, p.Other)
	assign(&f.PaidAmount, p.PaidAmount)
}
