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

// ErrClassFull is returned when a promotion would take a class over its capacity.
var ErrClassFull = errors.New("class is full")

const academicYearColumns = `id, school_id, name, start_date, end_date, is_current, created_at, updated_at`

// AcademicYearRepository persists academic years and runs promotions.
type AcademicYearRepository struct {
	db *sqlx.DB
}

func NewAcademicYearRepository(db *sqlx.DB) *AcademicYearRepository {
	return &AcademicYearRepository{db: db}
}

func (r *AcademicYearRepository) List(ctx context.Context, schoolID string) ([]models.AcademicYear, error) {
	var years []models.AcademicYear
	query := `SELECT ` + academicYearColumns + ` FROM academic_years WHERE school_id = $1 ORDER BY start_date DESC`
	if err := r.db.SelectContext(ctx, &years, query, schoolID); err != nil {
		return nil, fmt.Errorf("list academic years: %w", err)
	}
	return years, nil
}

func (r *AcademicYearRepository) FindByID(ctx context.Context, schoolID, id string) (*models.AcademicYear, error) {
	var year models.AcademicYear
	query := `SELECT ` + academicYearColumns + ` FROM academic_years WHERE id = $1 AND school_id = $2`
	if err := r.db.GetContext(ctx, &year, query, id, schoolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find academic year: %w", err)
	}
	return &year, nil
}

// FindCurrent returns the school's current year.
func (r *AcademicYearRepository) FindCurrent(ctx context.Context, schoolID string) (*models.AcademicYear, error) {
	var year models.AcademicYear
	query := `SELECT ` + academicYearColumns + ` FROM academic_years WHERE school_id = $1 AND is_current = TRUE`
	if err := r.db.GetContext(ctx, &year, query, schoolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find current academic year: %w", err)
	}
	return &year, nil
}

func (r *AcademicYearRepository) ExistsByName(ctx context.Context, schoolID, name, excludeID string) (bool, error) {
	query := `SELECT 1 FROM academic_years WHERE school_id = $1 AND LOWER(name) = LOWER($2)`
	args := []interface{}{schoolID, name}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check academic year name: %w", err)
	}
	return true, nil
}

func (r *AcademicYearRepository) Create(ctx context.Context, year *models.AcademicYear) error {
	if year.ID == "" {
		year.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	year.CreatedAt = now
	year.UpdatedAt = now
	year.IsCurrent = false
	const query = `INSERT INTO academic_years (id, school_id, name, start_date, end_date, is_current, created_at, updated_at)
        VALUES (:id, :school_id, :name, :start_date, :end_date, :is_current, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, year); err != nil {
		return fmt.Errorf("create academic year: %w", err)
	}
	return nil
}

func (r *AcademicYearRepository) Update(ctx context.Context, year *models.AcademicYear) error {
	year.UpdatedAt = time.Now().UTC()
	const query = `UPDATE academic_years SET name = :name, start_date = :start_date, end_date = :end_date, updated_at = :updated_at
        WHERE id = :id AND school_id = :school_id`
	if _, err := r.db.NamedExecContext(ctx, query, year); err != nil {
		return fmt.Errorf("update academic year: %w", err)
	}
	return nil
}

// SetCurrent marks a year as current and clears the flag on every other year of the school.
func (r *AcademicYearRepository) SetCurrent(ctx context.Context, schoolID, id string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set current tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx, `UPDATE academic_years SET is_current = FALSE, updated_at = $1 WHERE school_id = $2 AND is_current = TRUE AND id <> $3`, now, schoolID, id); err != nil {
		return fmt.Errorf("clear current academic year: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `UPDATE academic_years SET is_current = TRUE, updated_at = $1 WHERE id = $2 AND school_id = $3`, now, id, schoolID); err != nil {
		return fmt.Errorf("set current academic year: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit set current tx: %w", err)
	}
	return nil
}

// CountReferences counts classes and examinations pointing at the year.
func (r *AcademicYearRepository) CountReferences(ctx context.Context, id string) (int, error) {
	var count int
	const query = `SELECT (SELECT COUNT(*) FROM classes WHERE academic_year_id = $1) + (SELECT COUNT(*) FROM examinations WHERE academic_year_id = $1)`
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, fmt.Errorf("count academic year references: %w", err)
	}
	return count, nil
}

func (r *AcademicYearRepository) Delete(ctx context.Context, schoolID, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM academic_years WHERE id = $1 AND school_id = $2`, id, schoolID); err != nil {
		return fmt.Errorf("delete academic year: %w", err)
	}
	return nil
}

type promotionCandidate struct {
	ID             string  `db:"id"`
	AcademicYearID *string `db:"academic_year_id"`
}

// Promote moves the ACTIVE students of plan.FromClassID in one transaction.
// Students named in plan.StudentIDs that are not ACTIVE members of the class are skipped.
func (r *AcademicYearRepository) Promote(ctx context.Context, plan models.PromotionPlan) (result *models.PromotionResult, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin promotion tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	query := `SELECT id, academic_year_id FROM students WHERE school_id = ? AND class_id = ? AND status = 'ACTIVE'`
	args := []interface{}{plan.SchoolID, plan.FromClassID}
	if len(plan.StudentIDs) > 0 {
		query += " AND id IN (?)"
		args = append(args, plan.StudentIDs)
	}
	query += " ORDER BY roll_no, id FOR UPDATE"
	query, args, err = sqlx.In(query, args...)
	if err != nil {
		return nil, fmt.Errorf("build promotion query: %w", err)
	}

	var candidates []promotionCandidate
	if err = tx.SelectContext(ctx, &candidates, tx.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("select promotion candidates: %w", err)
	}

	if !plan.Graduate && plan.ToClassID != nil && len(candidates) > 0 {
		if err = checkSeats(ctx, tx, plan.SchoolID, *plan.ToClassID, len(candidates)); err != nil {
			return nil, err
		}
	}

	result = &models.PromotionResult{StudentIDs: make([]string, 0, len(candidates))}
	if len(plan.StudentIDs) > len(candidates) {
		result.Skipped = len(plan.StudentIDs) - len(candidates)
	}

	now := time.Now().UTC()
	fromClass := plan.FromClassID
	for _, candidate := range candidates {
		outcome := models.PromotionOutcomePromoted
		if plan.Graduate {
			outcome = models.PromotionOutcomeGraduated
			if _, err = tx.ExecContext(ctx, `UPDATE students SET status = 'GRADUATED', updated_at = $1 WHERE id = $2`, now, candidate.ID); err != nil {
				return nil, fmt.Errorf("graduate student: %w", err)
			}
			result.Graduated++
		} else {
			if _, err = tx.ExecContext(ctx, `UPDATE students SET class_id = $1, academic_year_id = $2, updated_at = $3 WHERE id = $4`,
				plan.ToClassID, plan.ToAcademicYearID, now, candidate.ID); err != nil {
				return nil, fmt.Errorf("promote student: %w", err)
			}
			result.Promoted++
		}

		history := models.StudentPromotion{
			ID:                 uuid.NewString(),
			SchoolID:           plan.SchoolID,
			StudentID:          candidate.ID,
			FromClassID:        &fromClass,
			ToClassID:          plan.ToClassID,
			FromAcademicYearID: candidate.AcademicYearID,
			ToAcademicYearID:   plan.ToAcademicYearID,
			Outcome:            outcome,
			PromotedBy:         plan.PromotedBy,
			CreatedAt:          now,
		}
		const insert = `INSERT INTO student_promotions (id, school_id, student_id, from_class_id, to_class_id, from_academic_year_id, to_academic_year_id, outcome, promoted_by, created_at)
            VALUES (:id, :school_id, :student_id, :from_class_id, :to_class_id, :from_academic_year_id, :to_academic_year_id, :outcome, :promoted_by, :created_at)`
		if _, err = tx.NamedExecContext(ctx, insert, history); err != nil {
			return nil, fmt.Errorf("record promotion: %w", err)
		}
		result.StudentIDs = append(result.StudentIDs, candidate.ID)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit promotion tx: %w", err)
	}
	return result, nil
}

// checkSeats locks the target class and verifies it can take incoming more
// active students. A capacity of zero means unlimited.
func checkSeats(ctx context.Context, tx *sqlx.Tx, schoolID, classID string, incoming int) error {
	var capacity int
	if err := tx.GetContext(ctx, &capacity, `SELECT capacity FROM classes WHERE id = $1 AND school_id = $2 FOR UPDATE`, classID, schoolID); err != nil {
		return fmt.Errorf("lock target class: %w", err)
	}
	if capacity <= 0 {
		return nil
	}
	var enrolled int
	if err := tx.GetContext(ctx, &enrolled, `SELECT COUNT(*) FROM students WHERE class_id = $1 AND status = 'ACTIVE'`, classID); err != nil {
		return fmt.Errorf("count target class students: %w", err)
	}
	if enrolled+incoming > capacity {
		return fmt.Errorf("%w: %d enrolled, %d incoming, capacity %d", ErrClassFull, enrolled, incoming, capacity)
	}
	return nil
}

// History lists promotion rows for a student, newest first.
func (r *AcademicYearRepository) History(ctx context.Context, schoolID, studentID string) ([]models.StudentPromotion, error) {
	var rows []models.StudentPromotion
	const query = `SELECT id, school_id, student_id, from_class_id, to_class_id, from_academic_year_id, to_academic_year_id, outcome, promoted_by, created_at
        FROM student_promotions WHERE school_id = $1 AND student_id = $2 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &rows, query, schoolID, studentID); err != nil {
		return nil, fmt.Errorf("list promotion history: %w", err)
	}
	return rows, nil
}
