package imageproc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noSleep(_ context.Context, _ time.Duration) error { return nil }

func TestFetcherDirectSuccess(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla")
		_, _ = w.Write([]byte("image-bytes"))
	}))
	t.Cleanup(srv.Close)

	f := NewFetcher(nil, time.Second, "")
	f.sleep = noSleep

	data, err := f.Fetch(context.Background(), srv.URL+"/scan.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("image-bytes"), data)
}

func TestFetcherFallsBackToProxy(t *testing.T) {
	t.Parallel()

	var directHits, proxyHits atomic.Int32

	direct := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		directHits.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(direct.Close)

	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		proxyHits.Add(1)
		assert.Equal(t, direct.URL+"/scan.jpg", r.URL.Query().Get("quest"))
		_, _ = w.Write([]byte("proxied-bytes"))
	}))
	t.Cleanup(proxy.Close)

	f := NewFetcher([]string{proxy.URL + "/?quest="}, time.Second, "")
	f.sleep = noSleep

	data, err := f.Fetch(context.Background(), direct.URL+"/scan.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("proxied-bytes"), data)
	assert.Equal(t, int32(1), directHits.Load(), "direct is tried exactly once before falling back")
	assert.Equal(t, int32(1), proxyHits.Load())
}

func TestFetcherExhaustsAttempts(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	f := NewFetcher(nil, time.Second, "")
	f.sleep = noSleep

	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, int32(3), hits.Load(), "exactly three attempts")
}

func TestFetcherCancelledDuringBackoff(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewFetcher(nil, time.Second, "")
	_, err := f.Fetch(ctx, srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetcherRejectsEmptyBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	f := NewFetcher(nil, time.Second, "")
	f.sleep = noSleep

	_, err := f.Fetch(context.Background(), srv.URL)
	assert.Error(t, err)
}
