package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/models"
)

func TestNotificationAddRecipients(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec(`INSERT INTO notification_recipients .* ON CONFLICT \(notification_id, user_id\) DO NOTHING`).
		WithArgs(sqlmock.AnyArg(), "n1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	added, err := repo.AddRecipients(context.Background(), "n1", []string{"u1", "u2"})
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationAddRecipientsEmpty(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()

	added, err := NewNotificationRepository(db).AddRecipients(context.Background(), "n1", nil)
	require.NoError(t, err)
	assert.Zero(t, added)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationCompleteStoresDerivedStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec(`UPDATE notifications SET status = \$1, total_recipients = \$2`).
		WithArgs(models.NotificationPartial, 3, 2, 1, sqlmock.AnyArg(), "n1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Complete(context.Background(), "n1", models.DeliveryReport{Total: 3, Delivered: 2, Failed: 1}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationMarkReadForeignRow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec(`UPDATE notification_recipients SET read_at = COALESCE\(read_at, \$1\) WHERE id = \$2 AND user_id = \$3`).
		WithArgs(sqlmock.AnyArg(), "r1", "u9").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.MarkRead(context.Background(), "u9", "r1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
