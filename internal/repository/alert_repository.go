package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tenderspro/backend/internal/model"
)

var ErrAlertNotFound = errors.New("alert not found")

type AlertRepository struct {
	db *sqlx.DB
}

func NewAlertRepository(db *sqlx.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

func (r *AlertRepository) Create(ctx context.Context, alert *model.Alert) error {
	query := `
		INSERT INTO alerts (id, user_id, name, wilaya, tender_type, category, notification_preferences, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING created_at, updated_at`

	if alert.ID == uuid.Nil {
		alert.ID = uuid.New()
	}
	return r.db.QueryRowxContext(ctx, query,
		alert.ID, alert.UserID, alert.Name, alert.Wilaya, alert.TenderType,
		alert.Category, alert.NotificationPreferences,
	).Scan(&alert.CreatedAt, &alert.UpdatedAt)
}

func (r *AlertRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Alert, error) {
	var alert model.Alert
	query := `SELECT * FROM alerts WHERE id = $1`
	err := r.db.GetContext(ctx, &alert, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAlertNotFound
	}
	return &alert, err
}

func (r *AlertRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Alert, error) {
	var alerts []model.Alert
	query := `SELECT * FROM alerts WHERE user_id = $1 ORDER BY created_at DESC`
	err := r.db.SelectContext(ctx, &alerts, query, userID)
	return alerts, err
}

func (r *AlertRepository) Update(ctx context.Context, alert *model.Alert) error {
	query := `
		UPDATE alerts
		SET name = $2, wilaya = $3, tender_type = $4, category = $5,
		    notification_preferences = $6, updated_at = NOW()
		WHERE id = $1 AND user_id = $7
		RETURNING updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		alert.ID, alert.Name, alert.Wilaya, alert.TenderType, alert.Category,
		alert.NotificationPreferences, alert.UserID,
	).Scan(&alert.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrAlertNotFound
	}
	return err
}

func (r *AlertRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	query := `DELETE FROM alerts WHERE id = $1 AND user_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAlertNotFound
	}
	return nil
}

// MatchTender returns the alerts whose filters match the tender's
// wilaya, type, and category. Filter columns hold delimited value
// lists; NULL matches everything.
func (r *AlertRepository) MatchTender(ctx context.Context, t *model.Tender) ([]model.Alert, error) {
	var alerts []model.Alert
	query := `
		SELECT * FROM alerts
		WHERE (wilaya IS NULL OR wilaya = '' OR $1 = ANY(string_to_array(wilaya, ',')))
		  AND (tender_type IS NULL OR tender_type = '' OR COALESCE($2, '') = ANY(string_to_array(tender_type, ',')))
		  AND (category IS NULL OR category = '' OR COALESCE($3, '') = ANY(string_to_array(category, '|||')))`

	err := r.db.SelectContext(ctx, &alerts, query, t.Wilaya, t.Type, t.Category)
	return alerts, err
}
