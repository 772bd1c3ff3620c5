package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tenderspro/backend/internal/model"
)

var ErrSubscriptionNotFound = errors.New("subscription not found")

type SubscriptionRepository struct {
	db *sqlx.DB
}

func NewSubscriptionRepository(db *sqlx.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Activate deactivates any live subscriptions and inserts the new one
// in a single transaction, so a user never holds two active rows.
func (r *SubscriptionRepository) Activate(ctx context.Context, sub *model.Subscription) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	deactivate := `
		UPDATE subscriptions
		SET status = $2
		WHERE user_id = $1 AND status IN ($3, $4)`
	if _, err := tx.ExecContext(ctx, deactivate,
		sub.UserID, model.SubscriptionInactive, model.SubscriptionActive, model.SubscriptionTrial,
	); err != nil {
		return err
	}

	insert := `
		INSERT INTO subscriptions (id, user_id, plan, status, billing_interval, current_period_start, current_period_end, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING created_at`

	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	if err := tx.QueryRowxContext(ctx, insert,
		sub.ID, sub.UserID, sub.Plan, sub.Status, sub.BillingInterval,
		sub.CurrentPeriodStart, sub.CurrentPeriodEnd,
	).Scan(&sub.CreatedAt); err != nil {
		return err
	}

	return tx.Commit()
}

// GetActive returns the user's live subscription, trial included.
func (r *SubscriptionRepository) GetActive(ctx context.Context, userID uuid.UUID) (*model.Subscription, error) {
	var sub model.Subscription
	query := `
		SELECT * FROM subscriptions
		WHERE user_id = $1 AND status IN ($2, $3) AND current_period_end > NOW()
		ORDER BY created_at DESC
		LIMIT 1`
	err := r.db.GetContext(ctx, &sub, query, userID, model.SubscriptionActive, model.SubscriptionTrial)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubscriptionNotFound
	}
	return &sub, err
}

func (r *SubscriptionRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Subscription, error) {
	var subs []model.Subscription
	query := `SELECT * FROM subscriptions WHERE user_id = $1 ORDER BY created_at DESC`
	err := r.db.SelectContext(ctx, &subs, query, userID)
	return subs, err
}

func (r *SubscriptionRepository) Cancel(ctx context.Context, userID uuid.UUID) error {
	query := `
		UPDATE subscriptions
		SET status = $2
		WHERE user_id = $1 AND status IN ($3, $4)`
	res, err := r.db.ExecContext(ctx, query,
		userID, model.SubscriptionCancelled, model.SubscriptionActive, model.SubscriptionTrial)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}
