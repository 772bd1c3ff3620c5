package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/tenderspro/backend/internal/apperror"
	"github.com/tenderspro/backend/internal/model"
)

const maxAlertsPerUser = 20

type AlertStore interface {
	Create(ctx context.Context, alert *model.Alert) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Alert, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Alert, error)
	Update(ctx context.Context, alert *model.Alert) error
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

// AlertInput is the decoded alert payload from the API.
type AlertInput struct {
	Name        string                        `json:"name"`
	Wilayas     []string                      `json:"wilayas"`
	TenderTypes []string                      `json:"tenderTypes"`
	Categories  []string                      `json:"categories"`
	Preferences model.NotificationPreferences `json:"notificationPreferences"`
}

// AlertService owns saved-alert CRUD and its validation rules.
type AlertService struct {
	alerts AlertStore
}

func NewAlertService(alerts AlertStore) *AlertService {
	return &AlertService{alerts: alerts}
}

func (s *AlertService) Create(ctx context.Context, userID uuid.UUID, input AlertInput) (*model.Alert, error) {
	if err := validateAlertInput(&input); err != nil {
		return nil, err
	}

	existing, err := s.alerts.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(existing) >= maxAlertsPerUser {
		return nil, apperror.BadRequest("alert limit reached")
	}

	alert := &model.Alert{UserID: userID, Name: input.Name}
	if err := alert.EncodeFilters(filtersFromInput(input)); err != nil {
		return nil, err
	}
	if err := s.alerts.Create(ctx, alert); err != nil {
		return nil, err
	}
	return alert, nil
}

func (s *AlertService) List(ctx context.Context, userID uuid.UUID) ([]model.Alert, error) {
	return s.alerts.ListByUserID(ctx, userID)
}

func (s *AlertService) Update(ctx context.Context, userID, alertID uuid.UUID, input AlertInput) (*model.Alert, error) {
	if err := validateAlertInput(&input); err != nil {
		return nil, err
	}

	alert := &model.Alert{ID: alertID, UserID: userID, Name: input.Name}
	if err := alert.EncodeFilters(filtersFromInput(input)); err != nil {
		return nil, err
	}
	if err := s.alerts.Update(ctx, alert); err != nil {
		return nil, err
	}
	return alert, nil
}

func (s *AlertService) Delete(ctx context.Context, userID, alertID uuid.UUID) error {
	return s.alerts.Delete(ctx, alertID, userID)
}

func validateAlertInput(input *AlertInput) error {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return apperror.ValidationError("name", "name is required")
	}
	for _, c := range input.Categories {
		if strings.Contains(c, model.CategoryDelimiter) {
			return apperror.ValidationError("categories", "category contains a reserved sequence")
		}
	}
	return nil
}

func filtersFromInput(input AlertInput) model.AlertFilters {
	return model.AlertFilters{
		Wilayas:     input.Wilayas,
		TenderTypes: input.TenderTypes,
		Categories:  input.Categories,
		Preferences: input.Preferences,
	}
}
