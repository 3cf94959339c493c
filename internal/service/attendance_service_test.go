package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

type fakeAttendanceRepo struct {
	saved     []models.Attendance
	counts    models.AttendanceCounts
	from, to  time.Time
	report    []models.AttendanceReportRow
	sheetDate time.Time
}

func (f *fakeAttendanceRepo) BulkUpsert(ctx context.Context, records []models.Attendance) error {
	f.saved = append(f.saved, records...)
	return nil
}

func (f *fakeAttendanceRepo) Sheet(ctx context.Context, schoolID, classID string, date time.Time) ([]models.AttendanceSheetRow, error) {
	f.sheetDate = date
	return nil, nil
}

func (f *fakeAttendanceRepo) Counts(ctx context.Context, schoolID, studentID string, from, to time.Time) (models.AttendanceCounts, error) {
	f.from, f.to = from, to
	return f.counts, nil
}

func (f *fakeAttendanceRepo) Report(ctx context.Context, schoolID, classID string, from, to time.Time) ([]models.AttendanceReportRow, error) {
	f.from, f.to = from, to
	return f.report, nil
}

type stubContacts map[string]models.StudentContact

func (s stubContacts) Contacts(ctx context.Context, schoolID, classID string, ids []string) ([]models.StudentContact, error) {
	out := []models.StudentContact{}
	for _, id := range ids {
		if c, ok := s[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

const (
	pupilTwo   = "0b6c7a10-0000-4000-8000-000000000102"
	pupilThree = "0b6c7a10-0000-4000-8000-000000000103"
)

func newAttendanceFixture() (*AttendanceService, *fakeAttendanceRepo) {
	repo := &fakeAttendanceRepo{}
	classes := stubClassLookup{classSeven: {Class: models.Class{ID: classSeven, SchoolID: "school-1", Name: "VII"}}}
	members := stubContacts{pupilOne: {ID: pupilOne}, pupilTwo: {ID: pupilTwo}}
	svc := NewAttendanceService(repo, classes, members, nil, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 18, 9, 30, 0, 0, time.UTC) }
	return svc, repo
}

func TestBulkMarkStoresEveryRecord(t *testing.T) {
	svc, repo := newAttendanceFixture()

	result, err := svc.BulkMark(context.Background(), schoolAdminActor, BulkAttendanceRequest{
		ClassID: classSeven,
		Date:    "2026-03-18",
		Records: []AttendanceEntry{
			{StudentID: pupilOne, Status: models.AttendanceStatusPresent},
			{StudentID: pupilTwo, Status: models.AttendanceStatusLate, Remarks: " bus delay "},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Saved)
	assert.Equal(t, models.AttendanceCounts{Present: 1, Late: 1}, result.Counts)

	require.Len(t, repo.saved, 2)
	assert.Equal(t, "bus delay", repo.saved[1].Remarks)
	assert.Equal(t, "school-1", repo.saved[0].SchoolID)
	require.NotNil(t, repo.saved[0].MarkedBy)
	assert.Equal(t, "admin-1", *repo.saved[0].MarkedBy)
}

func TestBulkMarkRejectsBadInput(t *testing.T) {
	svc, repo := newAttendanceFixture()
	ctx := context.Background()

	_, err := svc.BulkMark(ctx, schoolAdminActor, BulkAttendanceRequest{
		ClassID: classSeven, Date: "2026-03-19",
		Records: []AttendanceEntry{{StudentID: pupilOne, Status: models.AttendanceStatusPresent}},
	})
	assert.Contains(t, appErrors.FromError(err).Details, "date")

	_, err = svc.BulkMark(ctx, schoolAdminActor, BulkAttendanceRequest{
		ClassID: classSeven, Date: "2026-03-18",
		Records: []AttendanceEntry{
			{StudentID: pupilOne, Status: models.AttendanceStatusPresent},
			{StudentID: pupilOne, Status: models.AttendanceStatusAbsent},
		},
	})
	assert.Contains(t, appErrors.FromError(err).Details, "records[1].student_id")

	_, err = svc.BulkMark(ctx, schoolAdminActor, BulkAttendanceRequest{
		ClassID: classSeven, Date: "2026-03-18",
		Records: []AttendanceEntry{
			{StudentID: pupilOne, Status: models.AttendanceStatusPresent},
			{StudentID: pupilThree, Status: models.AttendanceStatusPresent},
		},
	})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Details, "records[1].student_id")

	_, err = svc.BulkMark(ctx, schoolAdminActor, BulkAttendanceRequest{
		ClassID: classSeven, Date: "2026-03-18",
		Records: []AttendanceEntry{{StudentID: pupilOne, Status: "SICK"}},
	})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.BulkMark(ctx, schoolAdminActor, BulkAttendanceRequest{
		ClassID: classEight, Date: "2026-03-18",
		Records: []AttendanceEntry{{StudentID: pupilOne, Status: models.AttendanceStatusPresent}},
	})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	assert.Empty(t, repo.saved)
}

func TestAttendanceSummaryCountsLateAsAttended(t *testing.T) {
	svc, repo := newAttendanceFixture()
	repo.counts = models.AttendanceCounts{Present: 15, Late: 2, Absent: 2, Leave: 1}

	summary, err := svc.Summary(context.Background(), "school-1", pupilOne, "", "")
	require.NoError(t, err)
	assert.Equal(t, 20, summary.Total)
	assert.Equal(t, 85.0, summary.Percent)
	assert.Equal(t, "2026-03-01", repo.from.Format(dateLayout))
	assert.Equal(t, "2026-03-18", repo.to.Format(dateLayout))

	repo.counts = models.AttendanceCounts{}
	summary, err = svc.Summary(context.Background(), "school-1", pupilOne, "2026-01-01", "2026-01-31")
	require.NoError(t, err)
	assert.Zero(t, summary.Percent)

	_, err = svc.Summary(context.Background(), "school-1", pupilOne, "2026-02-10", "2026-02-01")
	assert.Contains(t, appErrors.FromError(err).Details, "to")
}

func TestMonthlyReportFillsTotals(t *testing.T) {
	svc, repo := newAttendanceFixture()
	repo.report = []models.AttendanceReportRow{
		{StudentID: pupilOne, AttendanceCounts: models.AttendanceCounts{Present: 18, Absent: 2}},
		{StudentID: pupilTwo},
	}

	rows, err := svc.MonthlyReport(context.Background(), "school-1", classSeven, "2026-02")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 20, rows[0].Total)
	assert.Equal(t, 90.0, rows[0].Percent)
	assert.Zero(t, rows[1].Percent)
	assert.Equal(t, "2026-02-28", repo.to.Format(dateLayout))

	_, err = svc.MonthlyReport(context.Background(), "school-1", classSeven, "02/2026")
	assert.Contains(t, appErrors.FromError(err).Details, "month")
}
