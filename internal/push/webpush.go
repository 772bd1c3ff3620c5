package push

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"

	"github.com/tenderspro/backend/internal/model"
)

// WebPushSender delivers notifications to browser subscriptions using
// VAPID-signed Web Push.
type WebPushSender struct {
	subject    string
	publicKey  string
	privateKey string
}

// NewWebPushSender creates a sender from VAPID configuration.
func NewWebPushSender(subject, publicKey, privateKey string) *WebPushSender {
	return &WebPushSender{
		subject:    subject,
		publicKey:  publicKey,
		privateKey: privateKey,
	}
}

// Enabled reports whether VAPID keys are configured.
func (s *WebPushSender) Enabled() bool {
	return s.publicKey != "" && s.privateKey != ""
}

// PublicKey returns the VAPID public key clients subscribe with.
func (s *WebPushSender) PublicKey() (string, error) {
	if !s.Enabled() {
		return "", ErrNotConfigured
	}
	return s.publicKey, nil
}

// Send delivers one notification to one browser subscription. A 404 or
// 410 from the push service returns ErrTokenGone so the caller can
// drop the subscription.
func (s *WebPushSender) Send(ctx context.Context, sub *model.WebPushSubscription, n Notification) error {
	if !s.Enabled() {
		return ErrNotConfigured
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		Subscriber:      s.subject,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		TTL:             86400,
	})
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		return ErrTokenGone
	}
	return nil
}
