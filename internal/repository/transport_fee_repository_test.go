package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/models"
)

var transportFeeRowColumns = []string{"id", "school_id", "location_name", "monthly_fee", "annual_fee", "description", "is_active", "created_at", "updated_at"}

func TestTransportFeeRepositoryListFiltersActive(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTransportFeeRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(transportFeeRowColumns).
		AddRow("f1", "school-1", "Downtown", 100.0, 1200.0, "", true, now, now)
	mock.ExpectQuery(`FROM transport_fees WHERE school_id = \$1 AND is_active = \$2 ORDER BY location_name ASC`).
		WithArgs("school-1", true).
		WillReturnRows(rows)

	active := true
	fees, err := repo.List(context.Background(), models.TransportFeeFilter{SchoolID: "school-1", Active: &active})
	require.NoError(t, err)
	require.Len(t, fees, 1)
	assert.Equal(t, 1200.0, fees[0].AnnualFee)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransportFeeRepositoryExistsByLocation(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTransportFeeRepository(db)

	mock.ExpectQuery(`SELECT 1 FROM transport_fees WHERE school_id = \$1 AND LOWER\(location_name\) = LOWER\(\$2\) LIMIT 1`).
		WithArgs("school-1", "Downtown").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(1))
	mock.ExpectQuery(`AND id <> \$3 LIMIT 1`).
		WithArgs("school-1", "Downtown", "f1").
		WillReturnError(sql.ErrNoRows)

	exists, err := repo.ExistsByLocation(context.Background(), "school-1", "Downtown", "")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByLocation(context.Background(), "school-1", "Downtown", "f1")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransportFeeRepositoryToggle(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTransportFeeRepository(db)

	now := time.Now()
	mock.ExpectQuery(`UPDATE transport_fees SET is_active = NOT is_active`).
		WithArgs("f1", "school-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(transportFeeRowColumns).AddRow("f1", "school-1", "Downtown", 100.0, 1200.0, "", false, now, now))
	mock.ExpectQuery(`UPDATE transport_fees SET is_active = NOT is_active`).
		WithArgs("missing", "school-1", sqlmock.AnyArg()).
		WillReturnError(sql.ErrNoRows)

	fee, err := repo.Toggle(context.Background(), "school-1", "f1")
	require.NoError(t, err)
	assert.False(t, fee.IsActive)

	_, err = repo.Toggle(context.Background(), "school-1", "missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransportFeeRepositoryDeleteReportsMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTransportFeeRepository(db)

	mock.ExpectExec(`DELETE FROM transport_fees WHERE id = \$1 AND school_id = \$2`).
		WithArgs("f1", "school-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := repo.Delete(context.Background(), "school-1", "f1")
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransportFeeRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTransportFeeRepository(db)

	mock.ExpectExec("INSERT INTO transport_fees").
		WillReturnResult(sqlmock.NewResult(1, 1))

	fee := &models.TransportFee{SchoolID: "school-1", LocationName: "Uptown", MonthlyFee: 50, AnnualFee: 600, IsActive: true}
	require.NoError(t, repo.Create(context.Background(), fee))
	assert.NotEmpty(t, fee.ID)
	assert.False(t, fee.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}
