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

const teacherColumns = `id, school_id, user_id, employee_code, full_name, email, phone, subjects, qualification, joining_date, active, created_at, updated_at`

// TeacherRepository handles persistence for teachers.
type TeacherRepository struct {
	db *sqlx.DB
}

func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

func (r *TeacherRepository) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	var where whereBuilder
	where.add("school_id = %s", filter.SchoolID)
	if filter.Active != nil {
		where.add("active = %s", *filter.Active)
	}
	if filter.Subject != "" {
		where.add("%s = ANY(subjects)", filter.Subject)
	}
	if filter.Search != "" {
		where.add("(LOWER(full_name) LIKE %s OR LOWER(email) LIKE %s OR LOWER(employee_code) LIKE %s)", likePattern(filter.Search))
	}
	order := orderBy(filter.SortBy, filter.SortOrder, map[string]string{
		"full_name":     "full_name",
		"employee_code": "employee_code",
		"created_at":    "created_at",
	}, "created_at")
	_, size, offset := pageBounds(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s FROM teachers %s ORDER BY %s LIMIT %d OFFSET %d", teacherColumns, where.clause(), order, size, offset)
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list teachers: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM teachers "+where.clause(), where.args...); err != nil {
		return nil, 0, fmt.Errorf("count teachers: %w", err)
	}
	return teachers, total, nil
}

func (r *TeacherRepository) FindByID(ctx context.Context, schoolID, id string) (*models.Teacher, error) {
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, `SELECT `+teacherColumns+` FROM teachers WHERE id = $1 AND school_id = $2`, id, schoolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find teacher: %w", err)
	}
	return &teacher, nil
}

// ExistsByEmployeeCode checks per-school employee code uniqueness.
func (r *TeacherRepository) ExistsByEmployeeCode(ctx context.Context, schoolID, code, excludeID string) (bool, error) {
	query := "SELECT 1 FROM teachers WHERE school_id = $1 AND LOWER(employee_code) = LOWER($2)"
	args := []interface{}{schoolID, code}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check employee code: %w", err)
	}
	return true, nil
}

func (r *TeacherRepository) Create(ctx context.Context, teacher *models.Teacher) error {
	if teacher.ID == "" {
		teacher.ID = uuid.NewString()
	}
	if teacher.Subjects == nil {
		teacher.Subjects = []string{}
	}
	now := time.Now().UTC()
	teacher.CreatedAt = now
	teacher.UpdatedAt = now
	const query = `INSERT INTO teachers (id, school_id, user_id, employee_code, full_name, email, phone, subjects, qualification, joining_date, active, created_at, updated_at)
        VALUES (:id, :school_id, :user_id, :employee_code, :full_name, :email, :phone, :subjects, :qualification, :joining_date, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, teacher); err != nil {
		return fmt.Errorf("create teacher: %w", err)
	}
	return nil
}

func (r *TeacherRepository) Update(ctx context.Context, teacher *models.Teacher) error {
	teacher.UpdatedAt = time.Now().UTC()
	if teacher.Subjects == nil {
		teacher.Subjects = []string{}
	}
	const query = `UPDATE teachers SET user_id = :user_id, employee_code = :employee_code, full_name = :full_name, email = :email,
        phone = :phone, subjects = :subjects, qualification = :qualification, joining_date = :joining_date, active = :active,
        updated_at = :updated_at WHERE id = :id AND school_id = :school_id`
	if _, err := r.db.NamedExecContext(ctx, query, teacher); err != nil {
		return fmt.Errorf("update teacher: %w", err)
	}
	return nil
}

// Deactivate soft deletes a teacher.
func (r *TeacherRepository) Deactivate(ctx context.Context, schoolID, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE teachers SET active = FALSE, updated_at = $3 WHERE id = $1 AND school_id = $2`, id, schoolID, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate teacher: %w", err)
	}
	return nil
}
