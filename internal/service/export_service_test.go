package service

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

func sampleStudent() models.StudentDetail {
	className := "VII-A"
	dob := time.Date(2012, 5, 17, 0, 0, 0, 0, time.UTC)
	return models.StudentDetail{
		Student: models.Student{
			ID:          "student-1",
			AdmissionNo: "ADM 001",
			RollNo:      "7",
			FirstName:   "Adi",
			LastName:    "Putra",
			Gender:      "MALE",
			DateOfBirth: &dob,
			Status:      models.StudentStatusActive,
			Parent:      models.ParentInfo{MotherName: "Rahma", MotherPhone: "+62811"},
			Fees:        models.FeeStructure{Tuition: 1000, Transport: 200, PaidAmount: 300},
		},
		ClassName: &className,
	}
}

func TestExportRosterCSV(t *testing.T) {
	svc := NewExportService(nil, nil, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC) }

	file, err := svc.Roster("Students", []models.StudentDetail{sampleStudent()}, ExportCSV)
	require.NoError(t, err)
	assert.Equal(t, "students-20260102.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)

	lines := strings.Split(strings.TrimSpace(string(file.Data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "ADM 001,7,Adi Putra,MALE,VII-A,ACTIVE,,Rahma,+62811", lines[1])
}

func TestExportRosterPDFAndUnknownFormat(t *testing.T) {
	svc := NewExportService(nil, nil, nil)

	file, err := svc.Roster("Students", []models.StudentDetail{sampleStudent()}, ExportPDF)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(file.Data, []byte("%PDF")))

	_, err = svc.Roster("Students", nil, ExportFormat("xlsx"))
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportStudentRecord(t *testing.T) {
	student := sampleStudent()
	file, err := NewExportService(nil, nil, nil).StudentRecord(&student)
	require.NoError(t, err)
	assert.Equal(t, "student-adm-001.pdf", file.Filename)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Data, []byte("%PDF")))
}

func TestExportMarksheet(t *testing.T) {
	sheet := &models.MarksheetDetail{
		Marksheet: models.Marksheet{
			TotalMax: 100, TotalObtained: 72, Percentage: 72, Grade: "B+", Result: models.ResultPass,
			Subjects: []models.MarksheetSubject{{Subject: "Math", MaxMarks: 100, ObtainedMarks: 72, PassMarks: 33, Percentage: 72, Grade: "B+", Passed: true}},
		},
		StudentName:     "Adi Putra",
		AdmissionNo:     "ADM-001",
		ExaminationName: "Midterm 2026",
	}
	file, err := NewExportService(nil, nil, nil).Marksheet(sheet)
	require.NoError(t, err)
	assert.Equal(t, "marksheet-adm-001-midterm-2026.pdf", file.Filename)
	assert.True(t, bytes.HasPrefix(file.Data, []byte("%PDF")))
}
