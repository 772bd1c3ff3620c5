package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tenderspro/backend/internal/config"
	"github.com/tenderspro/backend/internal/model"
	"github.com/tenderspro/backend/internal/repository"
)

var (
	ErrBillingNotConfigured = errors.New("billing provider not configured")
	ErrUnknownPlan          = errors.New("unknown plan")
	ErrInvalidSignature     = errors.New("invalid webhook signature")
	ErrInvalidWebhook       = errors.New("webhook payload missing user or plan")
)

const trialDays = 7

type SubscriptionStore interface {
	Activate(ctx context.Context, sub *model.Subscription) error
	GetActive(ctx context.Context, userID uuid.UUID) (*model.Subscription, error)
	Cancel(ctx context.Context, userID uuid.UUID) error
}

type ProfileStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Profile, error)
	SetSelectedCategories(ctx context.Context, id uuid.UUID, categories string) error
}

type AlertCreator interface {
	Create(ctx context.Context, alert *model.Alert) error
}

// BillingService drives checkout sessions and webhook processing
// against the Chargily payment API.
type BillingService struct {
	client      *http.Client
	cfg         config.BillingConfig
	frontendURL string
	subs        SubscriptionStore
	profiles    ProfileStore
	alerts      AlertCreator
	logger      *slog.Logger
	now         func() time.Time
}

func NewBillingService(
	cfg config.BillingConfig,
	frontendURL string,
	subs SubscriptionStore,
	profiles ProfileStore,
	alerts AlertCreator,
	logger *slog.Logger,
) *BillingService {
	return &BillingService{
		client:      &http.Client{Timeout: 30 * time.Second},
		cfg:         cfg,
		frontendURL: frontendURL,
		subs:        subs,
		profiles:    profiles,
		alerts:      alerts,
		logger:      logger,
		now:         time.Now,
	}
}

// CheckoutRequest describes one checkout session to open.
type CheckoutRequest struct {
	UserID          uuid.UUID
	Plan            string
	BillingInterval model.BillingInterval
	Categories      []string
}

type checkoutPayload struct {
	Amount          int64             `json:"amount"`
	Currency        string            `json:"currency"`
	SuccessURL      string            `json:"success_url"`
	FailureURL      string            `json:"failure_url"`
	WebhookEndpoint string            `json:"webhook_endpoint,omitempty"`
	Metadata        map[string]string `json:"metadata"`
}

type checkoutResponse struct {
	ID          string `json:"id"`
	CheckoutURL string `json:"checkout_url"`
}

// CreateCheckout opens a hosted payment page and returns its URL. The
// category choices are stored on the profile before redirecting so the
// post-payment webhook can build the user's alert from them.
func (s *BillingService) CreateCheckout(ctx context.Context, req CheckoutRequest) (string, error) {
	if s.cfg.SecretKey == "" {
		return "", ErrBillingNotConfigured
	}

	plan := model.PlanByName(req.Plan)
	if plan == nil {
		return "", ErrUnknownPlan
	}

	amount := plan.MonthlyPrice
	if req.BillingInterval == model.BillingAnnual {
		amount = plan.DiscountedAnnualPrice()
	}

	if len(req.Categories) > 0 {
		joined := strings.Join(req.Categories, model.CategoryDelimiter)
		if err := s.profiles.SetSelectedCategories(ctx, req.UserID, joined); err != nil {
			return "", fmt.Errorf("store category selection: %w", err)
		}
	}

	payload := checkoutPayload{
		Amount:          amount,
		Currency:        "dzd",
		SuccessURL:      s.frontendURL + "/subscription/success",
		FailureURL:      s.frontendURL + "/subscription/failure",
		WebhookEndpoint: s.cfg.WebhookURL,
		Metadata: map[string]string{
			"user_id":          req.UserID.String(),
			"plan":             plan.Name,
			"billing_interval": string(req.BillingInterval),
			"categories":       strings.Join(req.Categories, model.CategoryDelimiter),
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.cfg.APIURL+"/checkouts", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.cfg.SecretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("checkout request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("checkout rejected: status %d: %s", resp.StatusCode, msg)
	}

	var out checkoutResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode checkout response: %w", err)
	}
	if out.CheckoutURL == "" {
		return "", errors.New("checkout response missing url")
	}
	return out.CheckoutURL, nil
}

// VerifySignature checks the webhook HMAC. When no webhook secret is
// configured verification is disabled and every payload is accepted.
func (s *BillingService) VerifySignature(payload []byte, signature string) bool {
	if s.cfg.WebhookSecret == "" {
		return true
	}
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(s.cfg.WebhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

type webhookEvent struct {
	Type string `json:"type"`
	Data struct {
		Status   string            `json:"status"`
		Metadata map[string]string `json:"metadata"`
	} `json:"data"`
}

// HandleWebhook processes one payment event. Events whose status is
// not "paid" are acknowledged and dropped.
func (s *BillingService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if !s.VerifySignature(payload, signature) {
		return ErrInvalidSignature
	}

	var event webhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidWebhook, err)
	}

	if event.Data.Status != "paid" {
		s.logger.Info("ignoring payment event", "type", event.Type, "status", event.Data.Status)
		return nil
	}

	rawUserID := event.Data.Metadata["user_id"]
	planName := event.Data.Metadata["plan"]
	if rawUserID == "" || planName == "" {
		return ErrInvalidWebhook
	}
	userID, err := uuid.Parse(rawUserID)
	if err != nil {
		return fmt.Errorf("%w: bad user id", ErrInvalidWebhook)
	}
	if model.PlanByName(planName) == nil {
		return fmt.Errorf("%w: %s", ErrUnknownPlan, planName)
	}

	interval := model.BillingInterval(event.Data.Metadata["billing_interval"])
	if interval != model.BillingAnnual {
		interval = model.BillingMonthly
	}

	start := s.now()
	end := start.AddDate(0, 1, 0)
	if interval == model.BillingAnnual {
		end = start.AddDate(1, 0, 0)
	}

	sub := &model.Subscription{
		UserID:             userID,
		Plan:               planName,
		Status:             model.SubscriptionActive,
		BillingInterval:    interval,
		CurrentPeriodStart: start,
		CurrentPeriodEnd:   end,
	}
	if err := s.subs.Activate(ctx, sub); err != nil {
		return fmt.Errorf("activate subscription: %w", err)
	}
	s.logger.Info("subscription activated",
		"user_id", userID, "plan", planName, "interval", string(interval))

	if categories := event.Data.Metadata["categories"]; categories != "" {
		s.createCategoryAlert(ctx, userID, categories)
	}
	return nil
}

// StartTrial opens the 7-day Professional trial for a new user. A user
// with a live subscription keeps it.
func (s *BillingService) StartTrial(ctx context.Context, userID uuid.UUID) (*model.Subscription, error) {
	existing, err := s.subs.GetActive(ctx, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrSubscriptionNotFound) {
		return nil, err
	}

	start := s.now()
	sub := &model.Subscription{
		UserID:             userID,
		Plan:               "Professional",
		Status:             model.SubscriptionTrial,
		BillingInterval:    model.BillingMonthly,
		CurrentPeriodStart: start,
		CurrentPeriodEnd:   start.AddDate(0, 0, trialDays),
	}
	if err := s.subs.Activate(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// GetSubscription returns the user's live subscription.
func (s *BillingService) GetSubscription(ctx context.Context, userID uuid.UUID) (*model.Subscription, error) {
	return s.subs.GetActive(ctx, userID)
}

// createCategoryAlert builds the default alert from the categories
// chosen at checkout.
func (s *BillingService) createCategoryAlert(ctx context.Context, userID uuid.UUID, categories string) {
	alert := &model.Alert{
		UserID: userID,
		Name:   "My categories",
	}
	err := alert.EncodeFilters(model.AlertFilters{
		Categories:  strings.Split(categories, model.CategoryDelimiter),
		Preferences: model.NotificationPreferences{Email: true, InApp: true},
	})
	if err != nil {
		s.logger.Error("category alert encode failed", "user_id", userID, "error", err)
		return
	}
	if err := s.alerts.Create(ctx, alert); err != nil {
		s.logger.Error("category alert create failed", "user_id", userID, "error", err)
	}
}
