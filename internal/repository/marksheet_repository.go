package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-portal-api/internal/models"
)

const marksheetDetailSelect = `SELECT m.id, m.school_id, m.student_id, m.examination_id, m.class_id, m.academic_year_id,
        m.total_max, m.total_obtained, m.percentage, m.grade, m.result, m.remarks, m.created_by, m.created_at, m.updated_at,
        CONCAT_WS(' ', s.first_name, NULLIF(s.last_name, '')) AS student_name, s.admission_no,
        e.name AS examination_name, e.exam_type,
        CASE WHEN c.id IS NULL THEN NULL ELSE CONCAT_WS('-', c.name, NULLIF(c.section, '')) END AS class_name
        FROM marksheets m
        JOIN students s ON s.id = m.student_id
        JOIN examinations e ON e.id = m.examination_id
        LEFT JOIN classes c ON c.id = m.class_id`

// MarksheetRepository persists marksheets with their subject rows.
type MarksheetRepository struct {
	db *sqlx.DB
}

func NewMarksheetRepository(db *sqlx.DB) *MarksheetRepository {
	return &MarksheetRepository{db: db}
}

// Upsert creates the marksheet for (student, examination) or replaces the
// existing one, subjects included, in one transaction.
func (r *MarksheetRepository) Upsert(ctx context.Context, sheet *models.Marksheet) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin marksheet tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if sheet.ID == "" {
		sheet.ID = uuid.NewString()
	}
	sheet.CreatedAt = now
	sheet.UpdatedAt = now

	const query = `INSERT INTO marksheets (id, school_id, student_id, examination_id, class_id, academic_year_id, total_max, total_obtained,
        percentage, grade, result, remarks, created_by, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
        ON CONFLICT (student_id, examination_id) DO UPDATE SET class_id = EXCLUDED.class_id, academic_year_id = EXCLUDED.academic_year_id,
        total_max = EXCLUDED.total_max, total_obtained = EXCLUDED.total_obtained, percentage = EXCLUDED.percentage,
        grade = EXCLUDED.grade, result = EXCLUDED.result, remarks = EXCLUDED.remarks, updated_at = EXCLUDED.updated_at
        RETURNING id, created_at`
	row := tx.QueryRowxContext(ctx, query, sheet.ID, sheet.SchoolID, sheet.StudentID, sheet.ExaminationID, sheet.ClassID, sheet.AcademicYearID,
		sheet.TotalMax, sheet.TotalObtained, sheet.Percentage, sheet.Grade, sheet.Result, sheet.Remarks, sheet.CreatedBy, sheet.CreatedAt, sheet.UpdatedAt)
	if err = row.Scan(&sheet.ID, &sheet.CreatedAt); err != nil {
		return fmt.Errorf("upsert marksheet: %w", err)
	}

	if err = replaceSubjects(ctx, tx, sheet); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit marksheet tx: %w", err)
	}
	return nil
}

// Update rewrites an existing marksheet and its subjects.
func (r *MarksheetRepository) Update(ctx context.Context, sheet *models.Marksheet) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin marksheet tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	sheet.UpdatedAt = time.Now().UTC()
	const query = `UPDATE marksheets SET total_max = :total_max, total_obtained = :total_obtained, percentage = :percentage, grade = :grade,
        result = :result, remarks = :remarks, updated_at = :updated_at WHERE id = :id AND school_id = :school_id`
	if _, err = tx.NamedExecContext(ctx, query, sheet); err != nil {
		return fmt.Errorf("update marksheet: %w", err)
	}
	if err = replaceSubjects(ctx, tx, sheet); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit marksheet tx: %w", err)
	}
	return nil
}

func replaceSubjects(ctx context.Context, tx *sqlx.Tx, sheet *models.Marksheet) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM marksheet_subjects WHERE marksheet_id = $1`, sheet.ID); err != nil {
		return fmt.Errorf("clear marksheet subjects: %w", err)
	}
	const insert = `INSERT INTO marksheet_subjects (id, marksheet_id, subject, max_marks, obtained_marks, pass_marks, position)
        VALUES (:id, :marksheet_id, :subject, :max_marks, :obtained_marks, :pass_marks, :position)`
	for i := range sheet.Subjects {
		subject := &sheet.Subjects[i]
		subject.ID = uuid.NewString()
		subject.MarksheetID = sheet.ID
		subject.Position = i
		if _, err := tx.NamedExecContext(ctx, insert, subject); err != nil {
			return fmt.Errorf("insert marksheet subject: %w", err)
		}
	}
	return nil
}

func (r *MarksheetRepository) FindByID(ctx context.Context, schoolID, id string) (*models.MarksheetDetail, error) {
	var sheet models.MarksheetDetail
	if err := r.db.GetContext(ctx, &sheet, marksheetDetailSelect+" WHERE m.id = $1 AND m.school_id = $2", id, schoolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find marksheet: %w", err)
	}
	sheets := []models.MarksheetDetail{sheet}
	if err := r.attachSubjects(ctx, sheets); err != nil {
		return nil, err
	}
	return &sheets[0], nil
}

func (r *MarksheetRepository) List(ctx context.Context, filter models.MarksheetFilter) ([]models.MarksheetDetail, int, error) {
	var where whereBuilder
	where.add("m.school_id = %s", filter.SchoolID)
	if filter.ExaminationID != "" {
		where.add("m.examination_id = %s", filter.ExaminationID)
	}
	if filter.ClassID != "" {
		where.add("m.class_id = %s", filter.ClassID)
	}
	if filter.StudentID != "" {
		where.add("m.student_id = %s", filter.StudentID)
	}
	if filter.AcademicYearID != "" {
		where.add("m.academic_year_id = %s", filter.AcademicYearID)
	}
	_, size, offset := pageBounds(filter.Page, filter.PageSize)

	query := fmt.Sprintf("%s %s ORDER BY e.start_date NULLS LAST, s.roll_no, s.first_name LIMIT %d OFFSET %d", marksheetDetailSelect, where.clause(), size, offset)
	var sheets []models.MarksheetDetail
	if err := r.db.SelectContext(ctx, &sheets, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list marksheets: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM marksheets m "+where.clause(), where.args...); err != nil {
		return nil, 0, fmt.Errorf("count marksheets: %w", err)
	}
	if err := r.attachSubjects(ctx, sheets); err != nil {
		return nil, 0, err
	}
	return sheets, total, nil
}

// ListForStudentYear returns every marksheet of a student in an academic year, subjects included.
func (r *MarksheetRepository) ListForStudentYear(ctx context.Context, schoolID, studentID, academicYearID string) ([]models.MarksheetDetail, error) {
	query := marksheetDetailSelect + ` WHERE m.school_id = $1 AND m.student_id = $2 AND e.academic_year_id = $3
        ORDER BY e.start_date NULLS LAST, e.name`
	var sheets []models.MarksheetDetail
	if err := r.db.SelectContext(ctx, &sheets, query, schoolID, studentID, academicYearID); err != nil {
		return nil, fmt.Errorf("list student marksheets: %w", err)
	}
	if err := r.attachSubjects(ctx, sheets); err != nil {
		return nil, err
	}
	return sheets, nil
}

func (r *MarksheetRepository) attachSubjects(ctx context.Context, sheets []models.MarksheetDetail) error {
	if len(sheets) == 0 {
		return nil
	}
	ids := make([]string, len(sheets))
	index := make(map[string]int, len(sheets))
	for i, sheet := range sheets {
		ids[i] = sheet.ID
		index[sheet.ID] = i
		sheets[i].Subjects = []models.MarksheetSubject{}
	}

	query, args, err := sqlx.In(`SELECT id, marksheet_id, subject, max_marks, obtained_marks, pass_marks, position
        FROM marksheet_subjects WHERE marksheet_id IN (?) ORDER BY marksheet_id, position`, ids)
	if err != nil {
		return fmt.Errorf("build subjects query: %w", err)
	}
	var subjects []models.MarksheetSubject
	if err := r.db.SelectContext(ctx, &subjects, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("load marksheet subjects: %w", err)
	}
	for _, subject := range subjects {
		i := index[subject.MarksheetID]
		sheets[i].Subjects = append(sheets[i].Subjects, subject)
	}
	return nil
}

func (r *MarksheetRepository) Delete(ctx context.Context, schoolID, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM marksheets WHERE id = $1 AND school_id = $2`, id, schoolID); err != nil {
		return fmt.Errorf("delete marksheet: %w", err)
	}
	return nil
}
