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

const transportFeeColumns = `id, school_id, location_name, monthly_fee, annual_fee, description, is_active, created_at, updated_at`

// TransportFeeRepository persists per-location bus fees.
type TransportFeeRepository struct {
	db *sqlx.DB
}

func NewTransportFeeRepository(db *sqlx.DB) *TransportFeeRepository {
	return &TransportFeeRepository{db: db}
}

// List returns the school's fees ordered by location name.
func (r *TransportFeeRepository) List(ctx context.Context, filter models.TransportFeeFilter) ([]models.TransportFee, error) {
	var where whereBuilder
	where.add("school_id = %s", filter.SchoolID)
	if filter.Active != nil {
		where.add("is_active = %s", *filter.Active)
	}
	if filter.Search != "" {
		where.add("LOWER(location_name) LIKE %s", likePattern(filter.Search))
	}
	query := fmt.Sprintf("SELECT %s FROM transport_fees %s ORDER BY location_name ASC", transportFeeColumns, where.clause())
	fees := []models.TransportFee{}
	if err := r.db.SelectContext(ctx, &fees, query, where.args...); err != nil {
		return nil, fmt.Errorf("list transport fees: %w", err)
	}
	return fees, nil
}

// FindByID returns sql.ErrNoRows when the fee does not exist in the school.
func (r *TransportFeeRepository) FindByID(ctx context.Context, schoolID, id string) (*models.TransportFee, error) {
	query := `SELECT ` + transportFeeColumns + ` FROM transport_fees WHERE id = $1 AND school_id = $2`
	var fee models.TransportFee
	if err := r.db.GetContext(ctx, &fee, query, id, schoolID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find transport fee: %w", err)
	}
	return &fee, nil
}

// ExistsByLocation checks the (school, location_name) uniqueness rule.
func (r *TransportFeeRepository) ExistsByLocation(ctx context.Context, schoolID, location, excludeID string) (bool, error) {
	query := "SELECT 1 FROM transport_fees WHERE school_id = $1 AND LOWER(location_name) = LOWER($2)"
	args := []interface{}{schoolID, location}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check transport location: %w", err)
	}
	return true, nil
}

func (r *TransportFeeRepository) Create(ctx context.Context, fee *models.TransportFee) error {
	if fee.ID == "" {
		fee.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	fee.CreatedAt = now
	fee.UpdatedAt = now
	const query = `INSERT INTO transport_fees (id, school_id, location_name, monthly_fee, annual_fee, description, is_active, created_at, updated_at)
        VALUES (:id, :school_id, :location_name, :monthly_fee, :annual_fee, :description, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, fee); err != nil {
		return fmt.Errorf("create transport fee: %w", err)
	}
	return nil
}

func (r *TransportFeeRepository) Update(ctx context.Context, fee *models.TransportFee) error {
	fee.UpdatedAt = time.Now().UTC()
	const query = `UPDATE transport_fees SET location_name = :location_name, monthly_fee = :monthly_fee, annual_fee = :annual_fee,
        description = :description, is_active = :is_active, updated_at = :updated_at WHERE id = :id AND school_id = :school_id`
	if _, err := r.db.NamedExecContext(ctx, query, fee); err != nil {
		return fmt.Errorf("update transport fee: %w", err)
	}
	return nil
}

// Toggle flips is_active and returns the updated row.
func (r *TransportFeeRepository) Toggle(ctx context.Context, schoolID, id string) (*models.TransportFee, error) {
	query := `UPDATE transport_fees SET is_active = NOT is_active, updated_at = $3 WHERE id = $1 AND school_id = $2 RETURNING ` + transportFeeColumns
	var fee models.TransportFee
	if err := r.db.GetContext(ctx, &fee, query, id, schoolID, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("toggle transport fee: %w", err)
	}
	return &fee, nil
}

// Delete removes the row and reports whether it existed.
func (r *TransportFeeRepository) Delete(ctx context.Context, schoolID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transport_fees WHERE id = $1 AND school_id = $2`, id, schoolID)
	if err != nil {
		return false, fmt.Errorf("delete transport fee: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete transport fee: %w", err)
	}
	return affected > 0, nil
}
