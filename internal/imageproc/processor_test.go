package imageproc

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenderspro/backend/internal/model"
)

type fakeImageStore struct {
	mu          sync.Mutex
	tenders     map[uuid.UUID]*model.Tender
	locked      map[uuid.UUID]bool
	denyLock    map[uuid.UUID]bool
	unprocessed []model.Tender

	watermarked map[uuid.UUID]string
	processed   map[uuid.UUID]string
	pngs        map[uuid.UUID]string
	imageErrors map[uuid.UUID]string
}

func newFakeImageStore() *fakeImageStore {
	return &fakeImageStore{
		tenders:     map[uuid.UUID]*model.Tender{},
		locked:      map[uuid.UUID]bool{},
		denyLock:    map[uuid.UUID]bool{},
		watermarked: map[uuid.UUID]string{},
		processed:   map[uuid.UUID]string{},
		pngs:        map[uuid.UUID]string{},
		imageErrors: map[uuid.UUID]string{},
	}
}

func (f *fakeImageStore) addTender(imageURL string) uuid.UUID {
	id := uuid.New()
	t := &model.Tender{ID: id, TenderID: id.String()}
	if imageURL != "" {
		t.ImageURL = &imageURL
	}
	f.tenders[id] = t
	f.unprocessed = append(f.unprocessed, *t)
	return id
}

func (f *fakeImageStore) GetByID(_ context.Context, id uuid.UUID) (*model.Tender, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tenders[id]
	if !ok {
		return nil, fmt.Errorf("tender %s not found", id)
	}
	cp := *t
	return &cp, nil
}

func (f *fakeImageStore) ListUnprocessed(_ context.Context, limit int) ([]model.Tender, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.unprocessed) > limit {
		return append([]model.Tender(nil), f.unprocessed[:limit]...), nil
	}
	return append([]model.Tender(nil), f.unprocessed...), nil
}

func (f *fakeImageStore) TryLockProcessing(_ context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.denyLock[id] || f.locked[id] {
		return false, nil
	}
	f.locked[id] = true
	return true, nil
}

func (f *fakeImageStore) UnlockProcessing(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.locked, id)
	return nil
}

func (f *fakeImageStore) SetOriginalImageURL(_ context.Context, id uuid.UUID, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tenders[id].OriginalImageURL = &url
	return nil
}

func (f *fakeImageStore) SetPNGImageURL(_ context.Context, id uuid.UUID, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pngs[id] = url
	f.tenders[id].PNGImageURL = &url
	return nil
}

func (f *fakeImageStore) SetProcessedImageURL(_ context.Context, id uuid.UUID, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processed[id] = url
	f.tenders[id].ProcessedImageURL = &url
	return nil
}

func (f *fakeImageStore) SetWatermarkedImageURL(_ context.Context, id uuid.UUID, url string, processedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.watermarked[id] = url
	f.tenders[id].WatermarkedImageURL = &url
	f.tenders[id].ProcessedAt = &processedAt
	return nil
}

func (f *fakeImageStore) SetImageError(_ context.Context, id uuid.UUID, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imageErrors[id] = message
	return nil
}

type fakeUploader struct {
	mu      sync.Mutex
	uploads []string
}

func (f *fakeUploader) Upload(_ context.Context, filename, _ string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(data) == 0 {
		return "", fmt.Errorf("empty upload")
	}
	f.uploads = append(f.uploads, filename)
	return "https://storage.example.com/" + filename, nil
}

func imageServer(t *testing.T) *httptest.Server {
	t.Helper()
	body := pngBytes(t, 64, 64)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testProcessor(store *fakeImageStore, remover *Remover, uploader *fakeUploader) *Processor {
	f := NewFetcher(nil, time.Second, "")
	f.sleep = noSleep
	return NewProcessor(store, f, remover, uploader, "TENDERSPRO.CO", "https://static.example.com", slog.Default())
}

func TestBrand(t *testing.T) {
	t.Parallel()

	srv := imageServer(t)
	store := newFakeImageStore()
	id := store.addTender(srv.URL + "/scan.png")
	uploader := &fakeUploader{}

	url, err := testProcessor(store, nil, uploader).Brand(context.Background(), id)
	require.NoError(t, err)

	assert.Contains(t, url, id.String())
	assert.Contains(t, url, "-processed-")
	assert.Equal(t, url, store.watermarked[id])
	require.NotNil(t, store.tenders[id].ProcessedAt)
	assert.Contains(t, uploader.uploads[0], ".jpg")

	assert.False(t, store.locked[id], "lock is released after the run")
	require.NotNil(t, store.tenders[id].OriginalImageURL, "original url is backfilled")
}

func TestBrandNoImage(t *testing.T) {
	t.Parallel()

	store := newFakeImageStore()
	id := store.addTender("")

	_, err := testProcessor(store, nil, &fakeUploader{}).Brand(context.Background(), id)
	assert.ErrorIs(t, err, ErrNoImage)
}

func TestBrandAlreadyProcessing(t *testing.T) {
	t.Parallel()

	srv := imageServer(t)
	store := newFakeImageStore()
	id := store.addTender(srv.URL + "/scan.png")
	store.denyLock[id] = true

	_, err := testProcessor(store, nil, &fakeUploader{}).Brand(context.Background(), id)
	assert.ErrorIs(t, err, ErrAlreadyProcessing)
	assert.Empty(t, store.watermarked, "no work happens without the lock")
}

func TestBrandUnlocksOnFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not an image"))
	}))
	t.Cleanup(srv.Close)

	store := newFakeImageStore()
	id := store.addTender(srv.URL + "/scan.png")

	_, err := testProcessor(store, nil, &fakeUploader{}).Brand(context.Background(), id)
	require.Error(t, err)
	assert.False(t, store.locked[id], "lock is released even when processing fails")
}

func TestConvertPNGSkipsConverted(t *testing.T) {
	t.Parallel()

	store := newFakeImageStore()
	id := store.addTender("https://example.com/scan.gif")
	existing := "https://storage.example.com/already.png"
	store.tenders[id].PNGImageURL = &existing

	url, err := testProcessor(store, nil, &fakeUploader{}).ConvertPNG(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, existing, url, "converted tender returns the stored url untouched")
}

func TestConvertPNG(t *testing.T) {
	t.Parallel()

	body := gifBytes(t, 10, 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)

	store := newFakeImageStore()
	id := store.addTender(srv.URL + "/scan.gif")
	uploader := &fakeUploader{}

	url, err := testProcessor(store, nil, uploader).ConvertPNG(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, url, store.pngs[id])
	assert.Contains(t, uploader.uploads[0], ".png")
}

func TestCleanAndBrand(t *testing.T) {
	t.Parallel()

	cleaned := pngBytes(t, 32, 32)
	vendor := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(cleaned)
	}))
	t.Cleanup(vendor.Close)

	store := newFakeImageStore()
	id := store.addTender("https://example.com/scan.jpg")
	uploader := &fakeUploader{}

	p := testProcessor(store, NewRemover(vendor.URL, "key"), uploader)
	url, err := p.CleanAndBrand(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, url, store.watermarked[id])
	assert.NotEmpty(t, store.processed[id], "the cleaned copy is stored too")
	assert.Len(t, uploader.uploads, 2)
}

func TestRunBatchQuotaCircuitBreaker(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	cleaned := pngBytes(t, 16, 16)
	vendor := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) >= 3 {
			w.WriteHeader(http.StatusPaymentRequired)
			return
		}
		_, _ = w.Write(cleaned)
	}))
	t.Cleanup(vendor.Close)

	store := newFakeImageStore()
	for i := 0; i < 5; i++ {
		store.addTender(fmt.Sprintf("https://example.com/scan-%d.jpg", i))
	}

	p := testProcessor(store, NewRemover(vendor.URL, "key"), &fakeUploader{})
	summary, err := p.RunBatch(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Processed, "two tenders complete before the quota fires")
	assert.True(t, summary.Stopped)
	assert.Len(t, summary.Results, 3, "tenders after the breaker are untouched")
	assert.Equal(t, int32(3), calls.Load(), "no vendor calls after the quota signal")
	assert.Len(t, store.watermarked, 2)
}

func TestRunBatchRecordsPerTenderErrors(t *testing.T) {
	t.Parallel()

	srv := imageServer(t)
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("broken"))
	}))
	t.Cleanup(bad.Close)

	store := newFakeImageStore()
	okID := store.addTender(srv.URL + "/ok.png")
	badID := store.addTender(bad.URL + "/bad.png")

	p := testProcessor(store, nil, &fakeUploader{})
	summary, err := p.RunBatch(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Errors)
	assert.False(t, summary.Stopped)
	assert.NotEmpty(t, store.watermarked[okID])
	assert.NotEmpty(t, store.imageErrors[badID], "failure is recorded on the row")
}

func TestRunBatchHonorsLimit(t *testing.T) {
	t.Parallel()

	srv := imageServer(t)
	store := newFakeImageStore()
	for i := 0; i < 4; i++ {
		store.addTender(srv.URL + "/scan.png")
	}

	p := testProcessor(store, nil, &fakeUploader{})
	summary, err := p.RunBatch(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Processed)
}
