package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tenderspro/backend/internal/ingest"
)

type IngestServiceInterface interface {
	StartIngestion(startPage int) error
	StopIngestion()
	Status() ingest.State
	CheckNew(ctx context.Context) (int, error)
}

// ScraperHandler exposes the ingestion pipeline over HTTP.
type ScraperHandler struct {
	service IngestServiceInterface
}

func NewScraperHandler(service IngestServiceInterface) *ScraperHandler {
	return &ScraperHandler{service: service}
}

type runRequest struct {
	Page int `json:"page"`
}

// Run starts a full ingestion pass. The optional page field resumes
// from a previous run's last page.
func (h *ScraperHandler) Run(w http.ResponseWriter, r *http.Request) {
	req := runRequest{Page: 1}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if req.Page < 1 {
		req.Page = 1
	}

	if err := h.service.StartIngestion(req.Page); err != nil {
		if errors.Is(err, ingest.ErrAlreadyRunning) {
			respondError(w, http.StatusConflict, "an ingestion run is already in progress")
			return
		}
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, h.service.Status())
}

// Stop cancels the in-flight ingestion run.
func (h *ScraperHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.service.StopIngestion()
	respondJSON(w, http.StatusOK, h.service.Status())
}

// Status reports the current pipeline snapshot.
func (h *ScraperHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.service.Status())
}

// Check runs one incremental pass for tenders newer than the stored
// watermark.
func (h *ScraperHandler) Check(w http.ResponseWriter, r *http.Request) {
	stored, err := h.service.CheckNew(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"stored": stored})
}
