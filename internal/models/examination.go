package models

import "time"

type ExamType string

const (
	ExamTypeUnitTest ExamType = "UNIT_TEST"
	ExamTypeMidterm  ExamType = "MIDTERM"
	ExamTypeFinal    ExamType = "FINAL"
	ExamTypeOther    ExamType = "OTHER"
)

// Examination is an exam sitting within an academic year.
type Examination struct {
	ID             string     `db:"id" json:"id"`
	SchoolID       string     `db:"school_id" json:"school_id"`
	AcademicYearID string     `db:"academic_year_id" json:"academic_year_id"`
	Name           string     `db:"name" json:"name"`
	ExamType       ExamType   `db:"exam_type" json:"exam_type"`
	StartDate      *time.Time `db:"start_date" json:"start_date,omitempty"`
	EndDate        *time.Time `db:"end_date" json:"end_date,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

type ExaminationFilter struct {
	SchoolID       string
	AcademicYearID string
	ExamType       *ExamType
}
