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

const classDetailSelect = `SELECT c.id, c.school_id, c.academic_year_id, c.class_teacher_id, c.name, c.section, c.capacity, c.created_at, c.updated_at,
        t.full_name AS class_teacher_name,
        (SELECT COUNT(*) FROM students s WHERE s.class_id = c.id AND s.status = 'ACTIVE') AS student_count
        FROM classes c LEFT JOIN teachers t ON t.id = c.class_teacher_id`

// ClassRepository manages classes.
type ClassRepository struct {
	db *sqlx.DB
}

func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

func (r *ClassRepository) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error) {
	var where whereBuilder
	where.add("c.school_id = %s", filter.SchoolID)
	if filter.AcademicYearID != "" {
		where.add("c.academic_year_id = %s", filter.AcademicYearID)
	}
	if filter.Search != "" {
		where.add("LOWER(c.name) LIKE %s", likePattern(filter.Search))
	}
	order := orderBy(filter.SortBy, filter.SortOrder, map[string]string{
		"name":       "c.name",
		"created_at": "c.created_at",
	}, "name")
	if filter.SortOrder == "" {
		order = "c.name ASC, c.section ASC"
	}
	_, size, offset := pageBounds(filter.Page, filter.PageSize)

	query := fmt.Sprintf("%s %s ORDER BY %s LIMIT %d OFFSET %d", classDetailSelect, where.clause(), order, size, offset)
	var classes []models.ClassDetail
	if err := r.db.SelectContext(ctx, &classes, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list classes: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM classes c "+where.clause(), where.args...); err != nil {
		return nil, 0, fmt.Errorf("count classes: %w", err)
	}
	return classes, total, nil
}

func (r *ClassRepository) FindByID(ctx context.Context, schoolID, id string) (*models.ClassDetail, error) {
	var class models.ClassDetail
	if err := r.db.GetContext(ctx, &class, classDetailSelect+" WHERE c.id = $1 AND c.school_id = $2", id, schoolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find class: %w", err)
	}
	return &class, nil
}

// ExistsByName checks uniqueness of name+section within a school year.
func (r *ClassRepository) ExistsByName(ctx context.Context, c models.Class, excludeID string) (bool, error) {
	query := `SELECT 1 FROM classes WHERE school_id = $1 AND LOWER(name) = LOWER($2) AND section = $3
        AND academic_year_id IS NOT DISTINCT FROM $4`
	args := []interface{}{c.SchoolID, c.Name, c.Section, c.AcademicYearID}
	if excludeID != "" {
		query += " AND id <> $5"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check class name: %w", err)
	}
	return true, nil
}

func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	class.CreatedAt = now
	class.UpdatedAt = now
	const query = `INSERT INTO classes (id, school_id, academic_year_id, class_teacher_id, name, section, capacity, created_at, updated_at)
        VALUES (:id, :school_id, :academic_year_id, :class_teacher_id, :name, :section, :capacity, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

func (r *ClassRepository) Update(ctx context.Context, class *models.Class) error {
	class.UpdatedAt = time.Now().UTC()
	const query = `UPDATE classes SET academic_year_id = :academic_year_id, class_teacher_id = :class_teacher_id, name = :name,
        section = :section, capacity = :capacity, updated_at = :updated_at WHERE id = :id AND school_id = :school_id`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	return nil
}

// CountStudents counts every student row referencing the class, any status.
func (r *ClassRepository) CountStudents(ctx context.Context, id string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM students WHERE class_id = $1`, id); err != nil {
		return 0, fmt.Errorf("count class students: %w", err)
	}
	return count, nil
}

func (r *ClassRepository) Delete(ctx context.Context, schoolID, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM classes WHERE id = $1 AND school_id = $2`, id, schoolID); err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	return nil
}
