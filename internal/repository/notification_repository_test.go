package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/tenderspro/backend/internal/model"
)

func TestNotificationRepository_CreateMatch(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	repo := NewNotificationRepository(db)

	n := &model.TenderNotification{
		UserID:   uuid.New(),
		AlertID:  uuid.New(),
		TenderID: uuid.New(),
	}

	rows := sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now())
	mock.ExpectQuery(`INSERT INTO tender_notifications`).
		WithArgs(sqlmock.AnyArg(), n.UserID, n.AlertID, n.TenderID).
		WillReturnRows(rows)

	err := repo.CreateMatch(context.Background(), n)

	assert.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, n.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepository_EmailAlreadySent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		sent bool
	}{
		{name: "already sent", sent: true},
		{name: "not yet", sent: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			db, mock := newMockDB(t)
			repo := NewNotificationRepository(db)

			alertID, tenderID, userID := uuid.New(), uuid.New(), uuid.New()
			rows := sqlmock.NewRows([]string{"exists"}).AddRow(tt.sent)
			mock.ExpectQuery(`SELECT EXISTS`).
				WithArgs(alertID, tenderID, userID).
				WillReturnRows(rows)

			got, err := repo.EmailAlreadySent(context.Background(), alertID, tenderID, userID)

			assert.NoError(t, err)
			assert.Equal(t, tt.sent, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestNotificationRepository_RecordEmailSent_DefaultStatus(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	repo := NewNotificationRepository(db)

	n := &model.AlertEmailNotification{
		AlertID:  uuid.New(),
		TenderID: uuid.New(),
		UserID:   uuid.New(),
	}

	rows := sqlmock.NewRows([]string{"sent_at"}).AddRow(time.Now())
	mock.ExpectQuery(`INSERT INTO alert_email_notifications`).
		WithArgs(sqlmock.AnyArg(), n.AlertID, n.TenderID, n.UserID, "sent").
		WillReturnRows(rows)

	err := repo.RecordEmailSent(context.Background(), n)

	assert.NoError(t, err)
	assert.Equal(t, "sent", n.EmailStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepository_MarkProcessed(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	repo := NewNotificationRepository(db)

	alertID, tenderID, userID := uuid.New(), uuid.New(), uuid.New()
	mock.ExpectExec(`UPDATE tender_notifications`).
		WithArgs(alertID, tenderID, userID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkProcessed(context.Background(), alertID, tenderID, userID)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "duplicate key", err: &pq.Error{Code: "23505"}, want: true},
		{name: "wrapped duplicate key", err: fmt.Errorf("insert: %w", &pq.Error{Code: "23505"}), want: true},
		{name: "other pq error", err: &pq.Error{Code: "23503"}, want: false},
		{name: "plain error", err: errors.New("boom"), want: false},
		{name: "nil", err: nil, want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsUniqueViolation(tt.err))
		})
	}
}
