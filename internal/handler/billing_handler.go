package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/tenderspro/backend/internal/model"
	"github.com/tenderspro/backend/internal/service"
)

// maxWebhookBody bounds the webhook payload read.
const maxWebhookBody = 64 << 10

type BillingServiceInterface interface {
	CreateCheckout(ctx context.Context, req service.CheckoutRequest) (string, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
	StartTrial(ctx context.Context, userID uuid.UUID) (*model.Subscription, error)
	GetSubscription(ctx context.Context, userID uuid.UUID) (*model.Subscription, error)
}

// BillingHandler exposes checkout, trial, and the payment webhook.
type BillingHandler struct {
	service BillingServiceInterface
}

func NewBillingHandler(service BillingServiceInterface) *BillingHandler {
	return &BillingHandler{service: service}
}

type checkoutRequest struct {
	Plan            string   `json:"plan"`
	BillingInterval string   `json:"billingInterval"`
	Categories      []string `json:"categories"`
}

// Checkout opens a hosted payment page and returns its URL.
func (h *BillingHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	interval := model.BillingInterval(req.BillingInterval)
	if interval != model.BillingAnnual {
		interval = model.BillingMonthly
	}

	url, err := h.service.CreateCheckout(r.Context(), service.CheckoutRequest{
		UserID:          userID,
		Plan:            req.Plan,
		BillingInterval: interval,
		Categories:      req.Categories,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownPlan):
			respondError(w, http.StatusBadRequest, "unknown plan")
		case errors.Is(err, service.ErrBillingNotConfigured):
			respondError(w, http.StatusServiceUnavailable, "billing not configured")
		default:
			respondServiceError(w, err)
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"checkoutUrl": url})
}

// Trial opens the introductory trial for the authenticated user.
func (h *BillingHandler) Trial(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	sub, err := h.service.StartTrial(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, sub)
}

// Subscription returns the authenticated user's live subscription.
func (h *BillingHandler) Subscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	sub, err := h.service.GetSubscription(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sub)
}

// Webhook receives payment events from the provider. Events that are
// not payment confirmations are acknowledged and dropped.
func (h *BillingHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "unreadable payload")
		return
	}

	signature := r.Header.Get("Signature")
	if err := h.service.HandleWebhook(r.Context(), payload, signature); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidSignature):
			respondError(w, http.StatusUnauthorized, "invalid signature")
		case errors.Is(err, service.ErrInvalidWebhook), errors.Is(err, service.ErrUnknownPlan):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			respondServiceError(w, err)
		}
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
