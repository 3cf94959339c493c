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

const examinationColumns = `id, school_id, academic_year_id, name, exam_type, start_date, end_date, created_at, updated_at`

type ExaminationRepository struct {
	db *sqlx.DB
}

func NewExaminationRepository(db *sqlx.DB) *ExaminationRepository {
	return &ExaminationRepository{db: db}
}

func (r *ExaminationRepository) List(ctx context.Context, filter models.ExaminationFilter) ([]models.Examination, error) {
	var where whereBuilder
	where.add("school_id = %s", filter.SchoolID)
	if filter.AcademicYearID != "" {
		where.add("academic_year_id = %s", filter.AcademicYearID)
	}
	if filter.ExamType != nil {
		where.add("exam_type = %s", *filter.ExamType)
	}
	query := fmt.Sprintf("SELECT %s FROM examinations %s ORDER BY start_date NULLS LAST, name", examinationColumns, where.clause())
	var exams []models.Examination
	if err := r.db.SelectContext(ctx, &exams, query, where.args...); err != nil {
		return nil, fmt.Errorf("list examinations: %w", err)
	}
	return exams, nil
}

func (r *ExaminationRepository) FindByID(ctx context.Context, schoolID, id string) (*models.Examination, error) {
	var exam models.Examination
	query := `SELECT ` + examinationColumns + ` FROM examinations WHERE id = $1 AND school_id = $2`
	if err := r.db.GetContext(ctx, &exam, query, id, schoolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find examination: %w", err)
	}
	return &exam, nil
}

func (r *ExaminationRepository) Create(ctx context.Context, exam *models.Examination) error {
	if exam.ID == "" {
		exam.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	exam.CreatedAt = now
	exam.UpdatedAt = now
	const query = `INSERT INTO examinations (id, school_id, academic_year_id, name, exam_type, start_date, end_date, created_at, updated_at)
        VALUES (:id, :school_id, :academic_year_id, :name, :exam_type, :start_date, :end_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, exam); err != nil {
		return fmt.Errorf("create examination: %w", err)
	}
	return nil
}

func (r *ExaminationRepository) Update(ctx context.Context, exam *models.Examination) error {
	exam.UpdatedAt = time.Now().UTC()
	const query = `UPDATE examinations SET academic_year_id = :academic_year_id, name = :name, exam_type = :exam_type,
        start_date = :start_date, end_date = :end_date, updated_at = :updated_at WHERE id = :id AND school_id = :school_id`
	if _, err := r.db.NamedExecContext(ctx, query, exam); err != nil {
		return fmt.Errorf("update examination: %w", err)
	}
	return nil
}

// Delete removes an examination; its marksheets cascade.
func (r *ExaminationRepository) Delete(ctx context.Context, schoolID, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM examinations WHERE id = $1 AND school_id = $2`, id, schoolID); err != nil {
		return fmt.Errorf("delete examination: %w", err)
	}
	return nil
}
