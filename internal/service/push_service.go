package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/tenderspro/backend/internal/apperror"
	"github.com/tenderspro/backend/internal/model"
)

type PushRegistrationStore interface {
	UpsertToken(ctx context.Context, token *model.PushToken) error
	DeleteToken(ctx context.Context, userID uuid.UUID, token string) error
	UpsertSubscription(ctx context.Context, sub *model.WebPushSubscription) error
	DeleteSubscription(ctx context.Context, userID uuid.UUID, endpoint string) error
}

type VAPIDKeySource interface {
	PublicKey() (string, error)
}

// PushService manages device token and browser subscription
// registration.
type PushService struct {
	store PushRegistrationStore
	keys  VAPIDKeySource
}

func NewPushService(store PushRegistrationStore, keys VAPIDKeySource) *PushService {
	return &PushService{store: store, keys: keys}
}

func (s *PushService) RegisterToken(ctx context.Context, userID uuid.UUID, token, deviceType string) (*model.PushToken, error) {
	if token == "" {
		return nil, apperror.ValidationError("pushToken", "push token is required")
	}
	switch deviceType {
	case "android", "ios":
	case "":
		deviceType = "android"
	default:
		return nil, apperror.ValidationError("deviceType", "device type must be android or ios")
	}

	record := &model.PushToken{
		UserID:     userID,
		PushToken:  token,
		DeviceType: deviceType,
	}
	if err := s.store.UpsertToken(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *PushService) UnregisterToken(ctx context.Context, userID uuid.UUID, token string) error {
	return s.store.DeleteToken(ctx, userID, token)
}

func (s *PushService) Subscribe(ctx context.Context, userID uuid.UUID, endpoint, p256dh, auth string) (*model.WebPushSubscription, error) {
	if endpoint == "" || p256dh == "" || auth == "" {
		return nil, apperror.ValidationError("subscription", "endpoint, p256dh and auth are required")
	}

	sub := &model.WebPushSubscription{
		UserID:   userID,
		Endpoint: endpoint,
		P256dh:   p256dh,
		Auth:     auth,
	}
	if err := s.store.UpsertSubscription(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *PushService) Unsubscribe(ctx context.Context, userID uuid.UUID, endpoint string) error {
	return s.store.DeleteSubscription(ctx, userID, endpoint)
}

// VAPIDPublicKey returns the key browsers need to subscribe.
func (s *PushService) VAPIDPublicKey() (string, error) {
	return s.keys.PublicKey()
}
