package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tenderspro/backend/internal/model"
)

type TenderServiceInterface interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Tender, error)
	List(ctx context.Context, limit, offset int) ([]model.Tender, error)
}

// TenderHandler serves stored tenders.
type TenderHandler struct {
	service TenderServiceInterface
}

func NewTenderHandler(service TenderServiceInterface) *TenderHandler {
	return &TenderHandler{service: service}
}

func (h *TenderHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	tenders, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if tenders == nil {
		tenders = []model.Tender{}
	}
	respondJSON(w, http.StatusOK, tenders)
}

func (h *TenderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid tender id")
		return
	}

	tender, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tender)
}
