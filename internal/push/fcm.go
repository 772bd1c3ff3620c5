// Package push delivers alert notifications to native devices (FCM)
// and browsers (Web Push).
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrNotConfigured means the relevant server key is missing.
var ErrNotConfigured = errors.New("push sender not configured")

// Notification is a title/body pair with deep-link data.
type Notification struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// FCMSender delivers notifications through the FCM legacy HTTP API.
type FCMSender struct {
	client    *http.Client
	endpoint  string
	serverKey string
}

// NewFCMSender creates an FCM sender.
func NewFCMSender(endpoint, serverKey string) *FCMSender {
	return &FCMSender{
		client:    &http.Client{Timeout: 15 * time.Second},
		endpoint:  endpoint,
		serverKey: serverKey,
	}
}

// Enabled reports whether a server key is configured.
func (s *FCMSender) Enabled() bool {
	return s.serverKey != ""
}

type fcmMessage struct {
	To           string       `json:"to"`
	Notification Notification `json:"notification"`
}

type fcmResponse struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
	Results []struct {
		Error string `json:"error"`
	} `json:"results"`
}

// Send delivers one notification to one device token. It returns
// errInvalidToken-wrapped errors for tokens the gateway reports dead so
// callers can prune them.
func (s *FCMSender) Send(ctx context.Context, token string, n Notification) error {
	if !s.Enabled() {
		return ErrNotConfigured
	}

	body, err := json.Marshal(fcmMessage{To: token, Notification: n})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "key="+s.serverKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("fcm request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("fcm status %d: %s", resp.StatusCode, msg)
	}

	var out fcmResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		// Delivery succeeded at the HTTP level; a malformed body is
		// not worth failing the dispatch over.
		return nil
	}
	if out.Failure > 0 && len(out.Results) > 0 {
		gwErr := out.Results[0].Error
		if gwErr == "NotRegistered" || gwErr == "InvalidRegistration" {
			return fmt.Errorf("token rejected: %w", ErrTokenGone)
		}
		return fmt.Errorf("fcm delivery failed: %s", gwErr)
	}
	return nil
}

// ErrTokenGone marks a device token the gateway no longer accepts.
// Callers should delete the registration.
var ErrTokenGone = errors.New("push token no longer valid")
