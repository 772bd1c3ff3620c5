package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/tenderspro/backend/internal/imageproc"
)

type ImageServiceInterface interface {
	Process(ctx context.Context, tenderID uuid.UUID) (string, error)
	Watermark(ctx context.Context, tenderID uuid.UUID) (string, error)
	ConvertPNG(ctx context.Context, tenderID uuid.UUID) (string, error)
	Reprocess(ctx context.Context, tenderID uuid.UUID) (string, error)
	ProcessAll(ctx context.Context, limit int) (*imageproc.BatchSummary, error)
}

// ImageHandler exposes the image pipeline over HTTP.
type ImageHandler struct {
	service ImageServiceInterface
}

func NewImageHandler(service ImageServiceInterface) *ImageHandler {
	return &ImageHandler{service: service}
}

type imageRequest struct {
	TenderID uuid.UUID `json:"tenderId"`
}

type imageResponse struct {
	TenderID uuid.UUID `json:"tenderId"`
	URL      string    `json:"url"`
}

func decodeImageRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	var req imageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return uuid.Nil, false
	}
	if req.TenderID == uuid.Nil {
		respondError(w, http.StatusBadRequest, "tenderId is required")
		return uuid.Nil, false
	}
	return req.TenderID, true
}

func (h *ImageHandler) respondOutcome(w http.ResponseWriter, tenderID uuid.UUID, url string, err error) {
	if err != nil {
		switch {
		case errors.Is(err, imageproc.ErrAlreadyProcessing):
			respondError(w, http.StatusConflict, "image is already being processed")
		case errors.Is(err, imageproc.ErrNoImage):
			respondError(w, http.StatusUnprocessableEntity, "tender has no source image")
		case errors.Is(err, imageproc.ErrQuotaExceeded):
			respondError(w, http.StatusServiceUnavailable, "image cleanup quota exhausted")
		default:
			respondServiceError(w, err)
		}
		return
	}
	respondJSON(w, http.StatusOK, imageResponse{TenderID: tenderID, URL: url})
}

// Process runs the full pipeline on one tender.
func (h *ImageHandler) Process(w http.ResponseWriter, r *http.Request) {
	tenderID, ok := decodeImageRequest(w, r)
	if !ok {
		return
	}
	url, err := h.service.Process(r.Context(), tenderID)
	h.respondOutcome(w, tenderID, url, err)
}

// Watermark brands the source image without the cleanup step.
func (h *ImageHandler) Watermark(w http.ResponseWriter, r *http.Request) {
	tenderID, ok := decodeImageRequest(w, r)
	if !ok {
		return
	}
	url, err := h.service.Watermark(r.Context(), tenderID)
	h.respondOutcome(w, tenderID, url, err)
}

// ConvertPNG produces the PNG working copy.
func (h *ImageHandler) ConvertPNG(w http.ResponseWriter, r *http.Request) {
	tenderID, ok := decodeImageRequest(w, r)
	if !ok {
		return
	}
	url, err := h.service.ConvertPNG(r.Context(), tenderID)
	h.respondOutcome(w, tenderID, url, err)
}

// Reprocess clears a previous failure and runs the pipeline again.
func (h *ImageHandler) Reprocess(w http.ResponseWriter, r *http.Request) {
	tenderID, ok := decodeImageRequest(w, r)
	if !ok {
		return
	}
	url, err := h.service.Reprocess(r.Context(), tenderID)
	h.respondOutcome(w, tenderID, url, err)
}

type processAllRequest struct {
	Limit int `json:"limit"`
}

// ProcessAll runs the pipeline over the unprocessed backlog.
func (h *ImageHandler) ProcessAll(w http.ResponseWriter, r *http.Request) {
	var req processAllRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	summary, err := h.service.ProcessAll(r.Context(), req.Limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}
