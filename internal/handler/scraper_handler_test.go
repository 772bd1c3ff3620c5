package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenderspro/backend/internal/ingest"
)

type fakeIngestService struct {
	startPage int
	startErr  error
	stopped   bool
	state     ingest.State
	checked   int
	checkErr  error
}

func (f *fakeIngestService) StartIngestion(startPage int) error {
	f.startPage = startPage
	return f.startErr
}

func (f *fakeIngestService) StopIngestion() { f.stopped = true }

func (f *fakeIngestService) Status() ingest.State { return f.state }

func (f *fakeIngestService) CheckNew(context.Context) (int, error) {
	return f.checked, f.checkErr
}

func TestScraperHandler_Run(t *testing.T) {
	t.Parallel()

	t.Run("starts from requested page", func(t *testing.T) {
		t.Parallel()

		svc := &fakeIngestService{}
		h := NewScraperHandler(svc)

		body := bytes.NewBufferString(`{"page": 7}`)
		req := httptest.NewRequest(http.MethodPost, "/api/scraper/run", body)
		w := httptest.NewRecorder()

		h.Run(w, req)

		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.Equal(t, 7, svc.startPage)
	})

	t.Run("defaults to page one", func(t *testing.T) {
		t.Parallel()

		svc := &fakeIngestService{}
		h := NewScraperHandler(svc)

		req := httptest.NewRequest(http.MethodPost, "/api/scraper/run", nil)
		w := httptest.NewRecorder()

		h.Run(w, req)

		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.Equal(t, 1, svc.startPage)
	})

	t.Run("conflict while running", func(t *testing.T) {
		t.Parallel()

		svc := &fakeIngestService{startErr: ingest.ErrAlreadyRunning}
		h := NewScraperHandler(svc)

		req := httptest.NewRequest(http.MethodPost, "/api/scraper/run", nil)
		w := httptest.NewRecorder()

		h.Run(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		t.Parallel()

		svc := &fakeIngestService{}
		h := NewScraperHandler(svc)

		req := httptest.NewRequest(http.MethodPost, "/api/scraper/run", bytes.NewBufferString("{"))
		w := httptest.NewRecorder()

		h.Run(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestScraperHandler_Status(t *testing.T) {
	t.Parallel()

	state, err := ingest.Idle().Start(3)
	require.NoError(t, err)
	svc := &fakeIngestService{state: state}
	h := NewScraperHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/scraper/status", nil)
	w := httptest.NewRecorder()

	h.Status(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var got ingest.State
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, ingest.PhaseRunning, got.Phase)
	assert.Equal(t, 3, got.Page)
}

func TestScraperHandler_Check(t *testing.T) {
	t.Parallel()

	svc := &fakeIngestService{checked: 5}
	h := NewScraperHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/scraper/check", nil)
	w := httptest.NewRecorder()

	h.Check(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"stored": 5}`, w.Body.String())
}

func TestScraperHandler_Stop(t *testing.T) {
	t.Parallel()

	svc := &fakeIngestService{}
	h := NewScraperHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/scraper/stop", nil)
	w := httptest.NewRecorder()

	h.Stop(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.stopped)
}
