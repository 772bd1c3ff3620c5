package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFCMSend(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key=server-key", r.Header.Get("Authorization"))

		var msg fcmMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		assert.Equal(t, "device-token", msg.To)
		assert.Equal(t, "New Tender Match!", msg.Notification.Title)

		_, _ = w.Write([]byte(`{"success":1,"failure":0,"results":[{}]}`))
	}))
	t.Cleanup(srv.Close)

	s := NewFCMSender(srv.URL, "server-key")
	err := s.Send(context.Background(), "device-token", Notification{
		Title: "New Tender Match!",
		Body:  "A new tender matching your alert",
	})
	require.NoError(t, err)
}

func TestFCMSendDeadToken(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":0,"failure":1,"results":[{"error":"NotRegistered"}]}`))
	}))
	t.Cleanup(srv.Close)

	s := NewFCMSender(srv.URL, "k")
	err := s.Send(context.Background(), "stale", Notification{Title: "t"})
	assert.ErrorIs(t, err, ErrTokenGone)
}

func TestFCMSendGatewayError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	s := NewFCMSender(srv.URL, "bad-key")
	err := s.Send(context.Background(), "tok", Notification{Title: "t"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTokenGone)
}

func TestFCMSendNotConfigured(t *testing.T) {
	t.Parallel()

	s := NewFCMSender("https://fcm.googleapis.com/fcm/send", "")
	assert.False(t, s.Enabled())
	err := s.Send(context.Background(), "tok", Notification{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestWebPushNotConfigured(t *testing.T) {
	t.Parallel()

	s := NewWebPushSender("mailto:ops@tenderspro.co", "", "")
	assert.False(t, s.Enabled())
	_, err := s.PublicKey()
	assert.ErrorIs(t, err, ErrNotConfigured)
}
