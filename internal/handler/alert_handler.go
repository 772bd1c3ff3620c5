package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tenderspro/backend/internal/model"
	"github.com/tenderspro/backend/internal/service"
)

type AlertServiceInterface interface {
	Create(ctx context.Context, userID uuid.UUID, input service.AlertInput) (*model.Alert, error)
	List(ctx context.Context, userID uuid.UUID) ([]model.Alert, error)
	Update(ctx context.Context, userID, alertID uuid.UUID, input service.AlertInput) (*model.Alert, error)
	Delete(ctx context.Context, userID, alertID uuid.UUID) error
}

// AlertHandler exposes saved-alert CRUD.
type AlertHandler struct {
	service AlertServiceInterface
}

func NewAlertHandler(service AlertServiceInterface) *AlertHandler {
	return &AlertHandler{service: service}
}

// alertView is the API shape of an alert: filters decoded into lists.
type alertView struct {
	ID                      uuid.UUID                     `json:"id"`
	Name                    string                        `json:"name"`
	Wilayas                 []string                      `json:"wilayas"`
	TenderTypes             []string                      `json:"tenderTypes"`
	Categories              []string                      `json:"categories"`
	NotificationPreferences model.NotificationPreferences `json:"notificationPreferences"`
}

func toAlertView(alert *model.Alert) (alertView, error) {
	filters, err := alert.DecodeFilters()
	if err != nil {
		return alertView{}, err
	}
	return alertView{
		ID:                      alert.ID,
		Name:                    alert.Name,
		Wilayas:                 filters.Wilayas,
		TenderTypes:             filters.TenderTypes,
		Categories:              filters.Categories,
		NotificationPreferences: filters.Preferences,
	}, nil
}

func (h *AlertHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var input service.AlertInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	alert, err := h.service.Create(r.Context(), userID, input)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	view, err := toAlertView(alert)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, view)
}

func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	alerts, err := h.service.List(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	views := make([]alertView, 0, len(alerts))
	for i := range alerts {
		view, err := toAlertView(&alerts[i])
		if err != nil {
			respondServiceError(w, err)
			return
		}
		views = append(views, view)
	}
	respondJSON(w, http.StatusOK, views)
}

func (h *AlertHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	alertID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid alert id")
		return
	}

	var input service.AlertInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	alert, err := h.service.Update(r.Context(), userID, alertID, input)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	view, err := toAlertView(alert)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *AlertHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	alertID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid alert id")
		return
	}

	if err := h.service.Delete(r.Context(), userID, alertID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
