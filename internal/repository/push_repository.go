package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tenderspro/backend/internal/model"
)

type PushRepository struct {
	db *sqlx.DB
}

func NewPushRepository(db *sqlx.DB) *PushRepository {
	return &PushRepository{db: db}
}

// UpsertToken registers a native device token, refreshing the device
// type on re-registration instead of duplicating the row.
func (r *PushRepository) UpsertToken(ctx context.Context, token *model.PushToken) error {
	query := `
		INSERT INTO user_push_tokens (id, user_id, push_token, device_type, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id, push_token) DO UPDATE
		SET device_type = EXCLUDED.device_type,
		    updated_at = NOW()
		RETURNING id, updated_at`

	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	return r.db.QueryRowxContext(ctx, query,
		token.ID, token.UserID, token.PushToken, token.DeviceType,
	).Scan(&token.ID, &token.UpdatedAt)
}

func (r *PushRepository) ListTokensByUserID(ctx context.Context, userID uuid.UUID) ([]model.PushToken, error) {
	var tokens []model.PushToken
	query := `SELECT * FROM user_push_tokens WHERE user_id = $1 ORDER BY updated_at DESC`
	err := r.db.SelectContext(ctx, &tokens, query, userID)
	return tokens, err
}

// DeleteToken removes a token the push gateway reported dead.
func (r *PushRepository) DeleteToken(ctx context.Context, userID uuid.UUID, token string) error {
	query := `DELETE FROM user_push_tokens WHERE user_id = $1 AND push_token = $2`
	_, err := r.db.ExecContext(ctx, query, userID, token)
	return err
}

// UpsertSubscription stores a browser push subscription, refreshing the
// keys when the browser rotates them for an existing endpoint.
func (r *PushRepository) UpsertSubscription(ctx context.Context, sub *model.WebPushSubscription) error {
	query := `
		INSERT INTO web_push_subscriptions (id, user_id, endpoint, p256dh, auth, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (user_id, endpoint) DO UPDATE
		SET p256dh = EXCLUDED.p256dh,
		    auth = EXCLUDED.auth
		RETURNING id, created_at`

	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	return r.db.QueryRowxContext(ctx, query,
		sub.ID, sub.UserID, sub.Endpoint, sub.P256dh, sub.Auth,
	).Scan(&sub.ID, &sub.CreatedAt)
}

func (r *PushRepository) ListSubscriptionsByUserID(ctx context.Context, userID uuid.UUID) ([]model.WebPushSubscription, error) {
	var subs []model.WebPushSubscription
	query := `SELECT * FROM web_push_subscriptions WHERE user_id = $1 ORDER BY created_at DESC`
	err := r.db.SelectContext(ctx, &subs, query, userID)
	return subs, err
}

// DeleteSubscriptionByEndpoint prunes a subscription after the push
// service answered 404 or 410 for its endpoint.
func (r *PushRepository) DeleteSubscriptionByEndpoint(ctx context.Context, endpoint string) error {
	query := `DELETE FROM web_push_subscriptions WHERE endpoint = $1`
	_, err := r.db.ExecContext(ctx, query, endpoint)
	return err
}

func (r *PushRepository) DeleteSubscription(ctx context.Context, userID uuid.UUID, endpoint string) error {
	query := `DELETE FROM web_push_subscriptions WHERE user_id = $1 AND endpoint = $2`
	_, err := r.db.ExecContext(ctx, query, userID, endpoint)
	return err
}
