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

const studentColumns = `s.id, s.school_id, s.admission_no, s.roll_no, s.first_name, s.last_name, s.gender, s.date_of_birth, s.blood_group,
        s.email, s.phone, s.photo_url, s.class_id, s.academic_year_id, s.transport_fee_id, s.status, s.address, s.parent,
        s.emergency_contact, s.fees, s.created_at, s.updated_at`

const studentDetailFrom = `FROM students s
        LEFT JOIN classes c ON c.id = s.class_id
        LEFT JOIN academic_years ay ON ay.id = s.academic_year_id`

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	where := studentWhere(filter)
	order := orderBy(filter.SortBy, filter.SortOrder, map[string]string{
		"first_name":   "s.first_name",
		"admission_no": "s.admission_no",
		"roll_no":      "s.roll_no",
		"created_at":   "s.created_at",
	}, "created_at")
	_, size, offset := pageBounds(filter.Page, filter.PageSize)

	query := fmt.Sprintf(`SELECT %s, NULLIF(CONCAT_WS('-', c.name, NULLIF(c.section, '')), '') AS class_name, ay.name AS academic_year_name
        %s %s ORDER BY %s LIMIT %d OFFSET %d`, studentColumns, studentDetailFrom, where.clause(), order, size, offset)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, where.args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM students s "+where.clause(), where.args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// ListAll returns every student matching filter without pagination, for exports.
func (r *StudentRepository) ListAll(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, error) {
	where := studentWhere(filter)
	query := fmt.Sprintf(`SELECT %s, NULLIF(CONCAT_WS('-', c.name, NULLIF(c.section, '')), '') AS class_name, ay.name AS academic_year_name
        %s %s ORDER BY c.name, s.roll_no, s.first_name`, studentColumns, studentDetailFrom, where.clause())
	students := []models.StudentDetail{}
	if err := r.db.SelectContext(ctx, &students, query, where.args...); err != nil {
		return nil, fmt.Errorf("list students for export: %w", err)
	}
	return students, nil
}

func studentWhere(filter models.StudentFilter) *whereBuilder {
	where := &whereBuilder{}
	where.add("s.school_id = %s", filter.SchoolID)
	if filter.ClassID != "" {
		where.add("s.class_id = %s", filter.ClassID)
	}
	if filter.AcademicYearID != "" {
		where.add("s.academic_year_id = %s", filter.AcademicYearID)
	}
	if filter.Status != nil {
		where.add("s.status = %s", *filter.Status)
	}
	if filter.Search != "" {
		where.add("(LOWER(s.first_name || ' ' || s.last_name) LIKE %s OR LOWER(s.admission_no) LIKE %s)", likePattern(filter.Search))
	}
	return where
}

// FindByID fetches a student detail scoped to a school.
func (r *StudentRepository) FindByID(ctx context.Context, schoolID, id string) (*models.StudentDetail, error) {
	query := fmt.Sprintf(`SELECT %s, NULLIF(CONCAT_WS('-', c.name, NULLIF(c.section, '')), '') AS class_name, ay.name AS academic_year_name
        %s WHERE s.id = $1 AND s.school_id = $2`, studentColumns, studentDetailFrom)
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, query, id, schoolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &detail, nil
}

// ExistsByAdmissionNo checks per-school admission number uniqueness.
func (r *StudentRepository) ExistsByAdmissionNo(ctx context.Context, schoolID, admissionNo, excludeID string) (bool, error) {
	query := "SELECT 1 FROM students WHERE school_id = $1 AND admission_no = $2"
	args := []interface{}{schoolID, admissionNo}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check admission number: %w", err)
	}
	return true, nil
}

func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, school_id, admission_no, roll_no, first_name, last_name, gender, date_of_birth, blood_group,
        email, phone, photo_url, class_id, academic_year_id, transport_fee_id, status, address, parent, emergency_contact, fees, created_at, updated_at)
        VALUES (:id, :school_id, :admission_no, :roll_no, :first_name, :last_name, :gender, :date_of_birth, :blood_group,
        :email, :phone, :photo_url, :class_id, :academic_year_id, :transport_fee_id, :status, :address, :parent, :emergency_contact, :fees, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET admission_no = :admission_no, roll_no = :roll_no, first_name = :first_name, last_name = :last_name,
        gender = :gender, date_of_birth = :date_of_birth, blood_group = :blood_group, email = :email, phone = :phone, photo_url = :photo_url,
        class_id = :class_id, academic_year_id = :academic_year_id, transport_fee_id = :transport_fee_id, status = :status,
        address = :address, parent = :parent, emergency_contact = :emergency_contact, fees = :fees, updated_at = :updated_at
        WHERE id = :id AND school_id = :school_id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// Deactivate marks a student as INACTIVE.
func (r *StudentRepository) Deactivate(ctx context.Context, schoolID, id string) error {
	const query = `UPDATE students SET status = $3, updated_at = $4 WHERE id = $1 AND school_id = $2`
	if _, err := r.db.ExecContext(ctx, query, id, schoolID, models.StudentStatusInactive, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate student: %w", err)
	}
	return nil
}

// CountByClass counts students currently assigned to a class.
func (r *StudentRepository) CountByClass(ctx context.Context, classID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM students WHERE class_id = $1 AND status = $2`, classID, models.StudentStatusActive); err != nil {
		return 0, fmt.Errorf("count class students: %w", err)
	}
	return count, nil
}

// Contacts returns notification contact data for active students of a
// school, optionally limited to a class or an explicit id list.
func (r *StudentRepository) Contacts(ctx context.Context, schoolID, classID string, ids []string) ([]models.StudentContact, error) {
	base := `SELECT s.id, s.first_name, s.last_name, s.email, s.phone, s.parent,
        NULLIF(CONCAT_WS('-', c.name, NULLIF(c.section, '')), '') AS class_name
        FROM students s LEFT JOIN classes c ON c.id = s.class_id
        WHERE s.school_id = ? AND s.status = ?`
	args := []interface{}{schoolID, models.StudentStatusActive}
	if classID != "" {
		base += " AND s.class_id = ?"
		args = append(args, classID)
	}
	if len(ids) > 0 {
		base += " AND s.id IN (?)"
		args = append(args, ids)
	}
	query, args, err := sqlx.In(base+" ORDER BY s.first_name", args...)
	if err != nil {
		return nil, fmt.Errorf("build contacts query: %w", err)
	}
	contacts := []models.StudentContact{}
	if err := r.db.SelectContext(ctx, &contacts, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list student contacts: %w", err)
	}
	return contacts, nil
}
