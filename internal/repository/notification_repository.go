package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/tenderspro/backend/internal/model"
)

type NotificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// CreateMatch records one alert-tender match. The insert fires the
// notification trigger that feeds the dispatcher.
func (r *NotificationRepository) CreateMatch(ctx context.Context, n *model.TenderNotification) error {
	query := `
		INSERT INTO tender_notifications (id, user_id, alert_id, tender_id, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING created_at`

	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return r.db.QueryRowxContext(ctx, query,
		n.ID, n.UserID, n.AlertID, n.TenderID,
	).Scan(&n.CreatedAt)
}

func (r *NotificationRepository) ListUnprocessed(ctx context.Context, limit int) ([]model.TenderNotification, error) {
	var out []model.TenderNotification
	query := `
		SELECT * FROM tender_notifications
		WHERE processed_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1`
	err := r.db.SelectContext(ctx, &out, query, limit)
	return out, err
}

func (r *NotificationRepository) MarkProcessed(ctx context.Context, alertID, tenderID, userID uuid.UUID) error {
	query := `
		UPDATE tender_notifications
		SET processed_at = NOW()
		WHERE alert_id = $1 AND tender_id = $2 AND user_id = $3 AND processed_at IS NULL`
	_, err := r.db.ExecContext(ctx, query, alertID, tenderID, userID)
	return err
}

// EmailAlreadySent reports whether an email for this (alert, tender,
// user) triple has gone out before.
func (r *NotificationRepository) EmailAlreadySent(ctx context.Context, alertID, tenderID, userID uuid.UUID) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM alert_email_notifications
			WHERE alert_id = $1 AND tender_id = $2 AND user_id = $3
		)`
	err := r.db.GetContext(ctx, &exists, query, alertID, tenderID, userID)
	return exists, err
}

// RecordEmailSent logs the send. The unique constraint on the triple
// backs the dedupe; a concurrent duplicate surfaces as a conflict.
func (r *NotificationRepository) RecordEmailSent(ctx context.Context, n *model.AlertEmailNotification) error {
	query := `
		INSERT INTO alert_email_notifications (id, alert_id, tender_id, user_id, email_status, sent_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING sent_at`

	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.EmailStatus == "" {
		n.EmailStatus = "sent"
	}
	return r.db.QueryRowxContext(ctx, query,
		n.ID, n.AlertID, n.TenderID, n.UserID, n.EmailStatus,
	).Scan(&n.SentAt)
}

// IsUniqueViolation reports whether err is the duplicate-key error from
// Postgres.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
