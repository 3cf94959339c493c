package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-portal-api/internal/models"
)

// AttendanceRepository stores daily attendance marks.
type AttendanceRepository struct {
	db *sqlx.DB
}

func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// BulkUpsert writes every record in one transaction. An existing mark for the
// same student and day is overwritten.
func (r *AttendanceRepository) BulkUpsert(ctx context.Context, records []models.Attendance) (err error) {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin attendance tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO attendance (id, school_id, student_id, class_id, date, status, remarks, marked_by, created_at, updated_at)
        VALUES (:id, :school_id, :student_id, :class_id, :date, :status, :remarks, :marked_by, :created_at, :updated_at)
        ON CONFLICT (student_id, date) DO UPDATE SET class_id = EXCLUDED.class_id, status = EXCLUDED.status,
        remarks = EXCLUDED.remarks, marked_by = EXCLUDED.marked_by, updated_at = EXCLUDED.updated_at`

	now := time.Now().UTC()
	for i := range records {
		if records[i].ID == "" {
			records[i].ID = uuid.NewString()
		}
		records[i].CreatedAt = now
		records[i].UpdatedAt = now
		if _, err = tx.NamedExecContext(ctx, query, records[i]); err != nil {
			return fmt.Errorf("upsert attendance: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit attendance tx: %w", err)
	}
	return nil
}

// Sheet returns the class roster of ACTIVE students joined with the marks of date.
func (r *AttendanceRepository) Sheet(ctx context.Context, schoolID, classID string, date time.Time) ([]models.AttendanceSheetRow, error) {
	const query = `SELECT s.id AS student_id, s.admission_no, s.roll_no, CONCAT_WS(' ', s.first_name, NULLIF(s.last_name, '')) AS student_name,
        a.id AS attendance_id, a.status, a.remarks
        FROM students s
        LEFT JOIN attendance a ON a.student_id = s.id AND a.date = $3
        WHERE s.school_id = $1 AND s.class_id = $2 AND s.status = 'ACTIVE'
        ORDER BY s.roll_no, s.first_name`
	var rows []models.AttendanceSheetRow
	if err := r.db.SelectContext(ctx, &rows, query, schoolID, classID, date); err != nil {
		return nil, fmt.Errorf("load attendance sheet: %w", err)
	}
	return rows, nil
}

const countColumns = `COUNT(*) FILTER (WHERE a.status = 'PRESENT') AS present,
        COUNT(*) FILTER (WHERE a.status = 'ABSENT') AS absent,
        COUNT(*) FILTER (WHERE a.status = 'LATE') AS late,
        COUNT(*) FILTER (WHERE a.status = 'LEAVE') AS leave`

// Counts aggregates a student's marks between from and to inclusive.
func (r *AttendanceRepository) Counts(ctx context.Context, schoolID, studentID string, from, to time.Time) (models.AttendanceCounts, error) {
	query := `SELECT ` + countColumns + ` FROM attendance a WHERE a.school_id = $1 AND a.student_id = $2 AND a.date BETWEEN $3 AND $4`
	var counts models.AttendanceCounts
	if err := r.db.GetContext(ctx, &counts, query, schoolID, studentID, from, to); err != nil {
		return models.AttendanceCounts{}, fmt.Errorf("count attendance: %w", err)
	}
	return counts, nil
}

// Report returns per-student counts for a class over a period.
func (r *AttendanceRepository) Report(ctx context.Context, schoolID, classID string, from, to time.Time) ([]models.AttendanceReportRow, error) {
	query := `SELECT s.id AS student_id, CONCAT_WS(' ', s.first_name, NULLIF(s.last_name, '')) AS student_name, s.roll_no,
        ` + countColumns + `
        FROM students s
        LEFT JOIN attendance a ON a.student_id = s.id AND a.date BETWEEN $3 AND $4
        WHERE s.school_id = $1 AND s.class_id = $2 AND s.status = 'ACTIVE'
        GROUP BY s.id, s.first_name, s.last_name, s.roll_no
        ORDER BY s.roll_no, s.first_name`
	var rows []models.AttendanceReportRow
	if err := r.db.SelectContext(ctx, &rows, query, schoolID, classID, from, to); err != nil {
		return nil, fmt.Errorf("attendance report: %w", err)
	}
	return rows, nil
}
