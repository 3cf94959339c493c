package models

import "time"

type MarksheetResult string

const (
	ResultPass MarksheetResult = "PASS"
	ResultFail MarksheetResult = "FAIL"
)

// Marksheet is a student's marks for one examination with derived totals.
type Marksheet struct {
	ID             string             `db:"id" json:"id"`
	SchoolID       string             `db:"school_id" json:"school_id"`
	StudentID      string             `db:"student_id" json:"student_id"`
	ExaminationID  string             `db:"examination_id" json:"examination_id"`
	ClassID        *string            `db:"class_id" json:"class_id,omitempty"`
	AcademicYearID *string            `db:"academic_year_id" json:"academic_year_id,omitempty"`
	TotalMax       float64            `db:"total_max" json:"total_max"`
	TotalObtained  float64            `db:"total_obtained" json:"total_obtained"`
	Percentage     float64            `db:"percentage" json:"percentage"`
	Grade          string             `db:"grade" json:"grade"`
	Result         MarksheetResult    `db:"result" json:"result"`
	Remarks        string             `db:"remarks" json:"remarks"`
	CreatedBy      *string            `db:"created_by" json:"created_by,omitempty"`
	CreatedAt      time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `db:"updated_at" json:"updated_at"`
	Subjects       []MarksheetSubject `db:"-" json:"subjects"`
}

// MarksheetSubject is one subject line of a marksheet.
type MarksheetSubject struct {
	ID            string  `db:"id" json:"id"`
	MarksheetID   string  `db:"marksheet_id" json:"-"`
	Subject       string  `db:"subject" json:"subject"`
	MaxMarks      float64 `db:"max_marks" json:"max_marks"`
	ObtainedMarks float64 `db:"obtained_marks" json:"obtained_marks"`
	PassMarks     float64 `db:"pass_marks" json:"pass_marks"`
	Position      int     `db:"position" json:"-"`
	Percentage    float64 `db:"-" json:"percentage"`
	Grade         string  `db:"-" json:"grade"`
	Passed        bool    `db:"-" json:"passed"`
}

// MarksheetDetail adds names used by listings and PDFs.
type MarksheetDetail struct {
	Marksheet
	StudentName     string  `db:"student_name" json:"student_name"`
	AdmissionNo     string  `db:"admission_no" json:"admission_no"`
	ExaminationName string  `db:"examination_name" json:"examination_name"`
	ExamType        string  `db:"exam_type" json:"exam_type"`
	ClassName       *string `db:"class_name" json:"class_name,omitempty"`
}

type MarksheetFilter struct {
	SchoolID       string
	ExaminationID  string
	ClassID        string
	StudentID      string
	AcademicYearID string
	Page           int
	PageSize       int
}

// FinalSubject is a subject averaged across every exam of the year.
type FinalSubject struct {
	Subject           string  `json:"subject"`
	Exams             int     `json:"exams"`
	TotalMax          float64 `json:"total_max"`
	TotalObtained     float64 `json:"total_obtained"`
	AveragePercentage float64 `json:"average_percentage"`
	Grade             string  `json:"grade"`
}

// FinalExam is the per-exam line of a final marksheet.
type FinalExam struct {
	ExaminationID   string          `json:"examination_id"`
	ExaminationName string          `json:"examination_name"`
	Percentage      float64         `json:"percentage"`
	Grade           string          `json:"grade"`
	Result          MarksheetResult `json:"result"`
}

// FinalMarksheet aggregates a student's marksheets for a year.
type FinalMarksheet struct {
	StudentID      string          `json:"student_id"`
	StudentName    string          `json:"student_name"`
	AcademicYearID string          `json:"academic_year_id"`
	Exams          []FinalExam     `json:"exams"`
	Subjects       []FinalSubject  `json:"subjects"`
	Percentage     float64         `json:"percentage"`
	Grade          string          `json:"grade"`
	Result         MarksheetResult `json:"result"`
}
