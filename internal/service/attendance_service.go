package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
	"github.com/noah-isme/school-portal-api/pkg/grading"
	"github.com/noah-isme/school-portal-api/pkg/validation"
)

type attendanceRepository interface {
	BulkUpsert(ctx context.Context, records []models.Attendance) error
	Sheet(ctx context.Context, schoolID, classID string, date time.Time) ([]models.AttendanceSheetRow, error)
	Counts(ctx context.Context, schoolID, studentID string, from, to time.Time) (models.AttendanceCounts, error)
	Report(ctx context.Context, schoolID, classID string, from, to time.Time) ([]models.AttendanceReportRow, error)
}

type studentContactLookup interface {
	Contacts(ctx context.Context, schoolID, classID string, ids []string) ([]models.StudentContact, error)
}

// AttendanceEntry is one student's mark inside a bulk request.
type AttendanceEntry struct {
	StudentID string                  `json:"student_id" validate:"required,uuid"`
	Status    models.AttendanceStatus `json:"status" validate:"required,oneof=PRESENT ABSENT LATE LEAVE"`
	Remarks   string                  `json:"remarks" validate:"max=255"`
}

// BulkAttendanceRequest marks a whole class for one day.
type BulkAttendanceRequest struct {
	ClassID string            `json:"class_id" validate:"required,uuid"`
	Date    string            `json:"date" validate:"required,isodate"`
	Records []AttendanceEntry `json:"records" validate:"required,min=1,max=500,dive"`
}

// BulkAttendanceResult reports what a bulk mark stored.
type BulkAttendanceResult struct {
	ClassID string                  `json:"class_id"`
	Date    string                  `json:"date"`
	Saved   int                     `json:"saved"`
	Counts  models.AttendanceCounts `json:"counts"`
}

// AttendanceService records and summarises daily attendance.
type AttendanceService struct {
	repo      attendanceRepository
	classes   classLookup
	students  studentContactLookup
	validator *validation.Validator
	logger    *zap.Logger
	now       func() time.Time
}

func NewAttendanceService(repo attendanceRepository, classes classLookup, students studentContactLookup, validate *validation.Validator, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{repo: repo, classes: classes, students: students, validator: validate, logger: logger, now: time.Now}
}

// BulkMark upserts the marks of every listed student in one transaction.
// Every student must be an ACTIVE member of the class.
func (s *AttendanceService) BulkMark(ctx context.Context, actor Actor, req BulkAttendanceRequest) (*BulkAttendanceResult, error) {
	schoolID, err := requireSchool(actor)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Check(req, "invalid attendance payload"); err != nil {
		return nil, err
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		return nil, err
	}
	if date.After(s.today()) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid attendance payload").
			WithDetails(map[string]string{"date": "date cannot be in the future"})
	}
	if err := s.checkClass(ctx, schoolID, req.ClassID); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(req.Records))
	seen := make(map[string]int, len(req.Records))
	for i, rec := range req.Records {
		if first, ok := seen[rec.StudentID]; ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid attendance payload").
				WithDetails(map[string]string{fmt.Sprintf("records[%d].student_id", i): fmt.Sprintf("duplicates records[%d]", first)})
		}
		seen[rec.StudentID] = i
		ids = append(ids, rec.StudentID)
	}

	members, err := s.students.Contacts(ctx, schoolID, req.ClassID, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class students")
	}
	if len(members) != len(ids) {
		found := make(map[string]struct{}, len(members))
		for _, m := range members {
			found[m.ID] = struct{}{}
		}
		details := map[string]string{}
		for i, id := range ids {
			if _, ok := found[id]; !ok {
				details[fmt.Sprintf("records[%d].student_id", i)] = "student is not an active member of the class"
			}
		}
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid attendance payload").WithDetails(details)
	}

	records := make([]models.Attendance, 0, len(req.Records))
	result := &BulkAttendanceResult{ClassID: req.ClassID, Date: date.Format(dateLayout)}
	for _, rec := range req.Records {
		records = append(records, models.Attendance{
			SchoolID:  schoolID,
			StudentID: rec.StudentID,
			ClassID:   req.ClassID,
			Date:      date,
			Status:    rec.Status,
			Remarks:   strings.TrimSpace(rec.Remarks),
			MarkedBy:  actor.userID(),
		})
		switch rec.Status {
		case models.AttendanceStatusPresent:
			result.Counts.Present++
		case models.AttendanceStatusAbsent:
			result.Counts.Absent++
		case models.AttendanceStatusLate:
			result.Counts.Late++
		case models.AttendanceStatusLeave:
			result.Counts.Leave++
		}
	}

	if err := s.repo.BulkUpsert(ctx, records); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save attendance")
	}
	result.Saved = len(records)
	s.logger.Info("attendance marked",
		zap.String("school_id", schoolID),
		zap.String("class_id", req.ClassID),
		zap.String("date", result.Date),
		zap.Int("records", result.Saved),
	)
	return result, nil
}

// Sheet returns the class roster with the marks of one day.
func (s *AttendanceService) Sheet(ctx context.Context, schoolID, classID, day string) ([]models.AttendanceSheetRow, error) {
	date, err := parseDate("date", day)
	if err != nil {
		return nil, err
	}
	if err := s.checkClass(ctx, schoolID, classID); err != nil {
		return nil, err
	}
	rows, err := s.repo.Sheet(ctx, schoolID, classID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance sheet")
	}
	if rows == nil {
		rows = []models.AttendanceSheetRow{}
	}
	return rows, nil
}

// Summary counts a student's marks between from and to inclusive. PRESENT
// and LATE count as attended.
func (s *AttendanceService) Summary(ctx context.Context, schoolID, studentID, from, to string) (*models.AttendanceSummary, error) {
	start, end, err := s.period(from, to)
	if err != nil {
		return nil, err
	}
	counts, err := s.repo.Counts(ctx, schoolID, studentID, start, end)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarise attendance")
	}
	return &models.AttendanceSummary{
		StudentID:        studentID,
		From:             start,
		To:               end,
		AttendanceCounts: counts,
		Total:            counts.Marked(),
		Percent:          attendancePercent(counts),
	}, nil
}

// MonthlyReport summarises every ACTIVE student of a class for month (YYYY-MM).
func (s *AttendanceService) MonthlyReport(ctx context.Context, schoolID, classID, month string) ([]models.AttendanceReportRow, error) {
	start, err := time.Parse("2006-01", strings.TrimSpace(month))
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid month").
			WithDetails(map[string]string{"month": "month must be formatted YYYY-MM"})
	}
	end := start.AddDate(0, 1, -1)
	if err := s.checkClass(ctx, schoolID, classID); err != nil {
		return nil, err
	}

	rows, err := s.repo.Report(ctx, schoolID, classID, start, end)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build attendance report")
	}
	for i := range rows {
		rows[i].Total = rows[i].Marked()
		rows[i].Percent = attendancePercent(rows[i].AttendanceCounts)
	}
	if rows == nil {
		rows = []models.AttendanceReportRow{}
	}
	return rows, nil
}

func (s *AttendanceService) checkClass(ctx context.Context, schoolID, classID string) error {
	if _, err := s.classes.FindByID(ctx, schoolID, classID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return nil
}

// period defaults to the current month up to today.
func (s *AttendanceService) period(from, to string) (time.Time, time.Time, error) {
	today := s.today()
	start := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := today
	var err error
	if strings.TrimSpace(from) != "" {
		if start, err = parseDate("from", from); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if strings.TrimSpace(to) != "" {
		if end, err = parseDate("to", to); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "invalid period").
			WithDetails(map[string]string{"to": "to must not be before from"})
	}
	return start, end, nil
}

func (s *AttendanceService) today() time.Time {
	now := s.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func attendancePercent(c models.AttendanceCounts) float64 {
	return grading.Percentage(float64(c.Present+c.Late), float64(c.Marked()))
}
