package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
	"github.com/noah-isme/school-portal-api/pkg/export"
)

// ExportFormat selects the rendering of a tabular export.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
	RenderDocument(doc export.Document) ([]byte, error)
	ContentType() string
}

// ExportService turns student and marksheet records into CSV and PDF files.
type ExportService struct {
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService constructs an ExportService with the gofpdf and CSV renderers by default.
func NewExportService(csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{csv: csv, pdf: pdf, logger: logger, now: time.Now}
}

var rosterHeaders = []string{"Admission No", "Roll No", "Name", "Gender", "Class", "Status", "Phone", "Parent", "Parent Phone"}

// Roster renders a student list.
func (s *ExportService) Roster(title string, students []models.StudentDetail, format ExportFormat) (*ExportFile, error) {
	dataset := export.Dataset{Headers: rosterHeaders, Rows: make([]map[string]string, 0, len(students))}
	for _, st := range students {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Admission No": st.AdmissionNo,
			"Roll No":      st.RollNo,
			"Name":         st.FullName(),
			"Gender":       st.Gender,
			"Class":        deref(st.ClassName),
			"Status":       string(st.Status),
			"Phone":        st.Phone,
			"Parent":       st.Parent.PrimaryName(),
			"Parent Phone": st.Parent.PrimaryPhone(),
		})
	}

	base := "students-" + s.now().UTC().Format("20060102")
	switch format {
	case ExportCSV, "":
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
		}
		return &ExportFile{Filename: base + ".csv", ContentType: s.csv.ContentType(), Data: data}, nil
	case ExportPDF:
		data, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
		}
		return &ExportFile{Filename: base + ".pdf", ContentType: s.pdf.ContentType(), Data: data}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf").WithDetails(map[string]string{"format": "format must be one of [csv pdf]"})
	}
}

// StudentRecord renders a single student profile.
func (s *ExportService) StudentRecord(student *models.StudentDetail) (*ExportFile, error) {
	fees := student.Fees
	doc := export.Document{
		Title:    "Student Record",
		Subtitle: student.FullName() + " (" + student.AdmissionNo + ")",
		Sections: []export.Section{
			{Heading: "Personal Information", Fields: []export.Field{
				{Label: "Admission No", Value: student.AdmissionNo},
				{Label: "Roll No", Value: student.RollNo},
				{Label: "Name", Value: student.FullName()},
				{Label: "Gender", Value: student.Gender},
				{Label: "Date of Birth", Value: formatDate(student.DateOfBirth)},
				{Label: "Blood Group", Value: student.BloodGroup},
				{Label: "Email", Value: student.Email},
				{Label: "Phone", Value: student.Phone},
				{Label: "Address", Value: student.Address.String()},
			}},
			{Heading: "Academic", Fields: []export.Field{
				{Label: "Class", Value: deref(student.ClassName)},
				{Label: "Academic Year", Value: deref(student.AcademicYearName)},
				{Label: "Status", Value: string(student.Status)},
			}},
			{Heading: "Parent / Guardian", Fields: []export.Field{
				{Label: "Father", Value: joinNonEmpty(student.Parent.FatherName, student.Parent.FatherPhone)},
				{Label: "Father Occupation", Value: student.Parent.FatherOccupation},
				{Label: "Mother", Value: joinNonEmpty(student.Parent.MotherName, student.Parent.MotherPhone)},
				{Label: "Guardian", Value: joinNonEmpty(student.Parent.GuardianName, student.Parent.GuardianPhone)},
				{Label: "Email", Value: student.Parent.Email},
			}},
			{Heading: "Emergency Contact", Fields: []export.Field{
				{Label: "Name", Value: student.EmergencyContact.Name},
				{Label: "Relation", Value: student.EmergencyContact.Relation},
				{Label: "Phone", Value: student.EmergencyContact.Phone},
			}},
			{Heading: "Fees", Table: &export.Dataset{
				Headers: []string{"Component", "Amount"},
				Rows: []map[string]string{
					feeRow("Tuition", fees.Tuition),
					feeRow("Admission", fees.Admission),
					feeRow("Exam", fees.Exam),
					feeRow("Transport", fees.Transport),
					feeRow("Library", fees.Library),
					feeRow("Sports", fees.Sports),
					feeRow("Other", fees.Other),
					feeRow("Gross", fees.Gross()),
					feeRow("Paid", fees.PaidAmount),
					feeRow("Total Due", fees.Total()),
				},
			}},
		},
	}
	data, err := s.pdf.RenderDocument(doc)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render student record")
	}
	return &ExportFile{Filename: "student-" + safeFilename(student.AdmissionNo) + ".pdf", ContentType: s.pdf.ContentType(), Data: data}, nil
}

// Marksheet renders one examination marksheet.
func (s *ExportService) Marksheet(sheet *models.MarksheetDetail) (*ExportFile, error) {
	rows := make([]map[string]string, 0, len(sheet.Subjects))
	for _, sub := range sheet.Subjects {
		passed := "PASS"
		if !sub.Passed {
			passed = "FAIL"
		}
		rows = append(rows, map[string]string{
			"Subject":  sub.Subject,
			"Max":      formatAmount(sub.MaxMarks),
			"Pass":     formatAmount(sub.PassMarks),
			"Obtained": formatAmount(sub.ObtainedMarks),
			"%":        formatAmount(sub.Percentage),
			"Grade":    sub.Grade,
			"Result":   passed,
		})
	}
	doc := export.Document{
		Title:    "Marksheet",
		Subtitle: sheet.ExaminationName,
		Sections: []export.Section{
			{Heading: "Student", Fields: []export.Field{
				{Label: "Name", Value: sheet.StudentName},
				{Label: "Admission No", Value: sheet.AdmissionNo},
				{Label: "Class", Value: deref(sheet.ClassName)},
			}},
			{Heading: "Marks", Table: &export.Dataset{
				Headers: []string{"Subject", "Max", "Pass", "Obtained", "%", "Grade", "Result"},
				Rows:    rows,
			}},
			{Heading: "Summary", Fields: []export.Field{
				{Label: "Total", Value: formatAmount(sheet.TotalObtained) + " / " + formatAmount(sheet.TotalMax)},
				{Label: "Percentage", Value: formatAmount(sheet.Percentage) + "%"},
				{Label: "Grade", Value: sheet.Grade},
				{Label: "Result", Value: string(sheet.Result)},
				{Label: "Remarks", Value: sheet.Remarks},
			}},
		},
	}
	data, err := s.pdf.RenderDocument(doc)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render marksheet")
	}
	name := fmt.Sprintf("marksheet-%s-%s.pdf", safeFilename(sheet.AdmissionNo), safeFilename(sheet.ExaminationName))
	return &ExportFile{Filename: name, ContentType: s.pdf.ContentType(), Data: data}, nil
}

func feeRow(label string, amount float64) map[string]string {
	return map[string]string{"Component": label, "Amount": formatAmount(amount)}
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("02 Jan 2006")
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func joinNonEmpty(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " / ")
}

// safeFilename keeps letters, digits and dashes.
func safeFilename(v string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(v)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		case r == ' ', r == '_', r == '/':
			b.WriteRune('-')
		}
	}
	if b.Len() == 0 {
		return "record"
	}
	return b.String()
}
