package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tenderspro/backend/internal/feed"
	"github.com/tenderspro/backend/internal/mailer"
	"github.com/tenderspro/backend/internal/model"
	"github.com/tenderspro/backend/internal/push"
	"github.com/tenderspro/backend/internal/repository"
)

const backlogBatchSize = 50

const pushTitle = "New Tender Match!"

type TenderReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Tender, error)
}

type AlertReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Alert, error)
	MatchTender(ctx context.Context, t *model.Tender) ([]model.Alert, error)
}

type NotificationStore interface {
	CreateMatch(ctx context.Context, n *model.TenderNotification) error
	ListUnprocessed(ctx context.Context, limit int) ([]model.TenderNotification, error)
	MarkProcessed(ctx context.Context, alertID, tenderID, userID uuid.UUID) error
	EmailAlreadySent(ctx context.Context, alertID, tenderID, userID uuid.UUID) (bool, error)
	RecordEmailSent(ctx context.Context, n *model.AlertEmailNotification) error
}

type PushTargetStore interface {
	ListTokensByUserID(ctx context.Context, userID uuid.UUID) ([]model.PushToken, error)
	DeleteToken(ctx context.Context, userID uuid.UUID, token string) error
	ListSubscriptionsByUserID(ctx context.Context, userID uuid.UUID) ([]model.WebPushSubscription, error)
	DeleteSubscriptionByEndpoint(ctx context.Context, endpoint string) error
}

type ProfileReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Profile, error)
}

type NativePushSender interface {
	Enabled() bool
	Send(ctx context.Context, token string, n push.Notification) error
}

type BrowserPushSender interface {
	Enabled() bool
	Send(ctx context.Context, sub *model.WebPushSubscription, n push.Notification) error
}

// NotificationService matches tenders against saved alerts and fans
// each match out over email and push. It implements feed.Dispatcher.
type NotificationService struct {
	notifications NotificationStore
	alerts        AlertReader
	tenders       TenderReader
	profiles      ProfileReader
	pushTargets   PushTargetStore
	mail          mailer.Sender
	fcm           NativePushSender
	webPush       BrowserPushSender
	logger        *slog.Logger
	frontendURL   string
}

func NewNotificationService(
	notifications NotificationStore,
	alerts AlertReader,
	tenders TenderReader,
	profiles ProfileReader,
	pushTargets PushTargetStore,
	mail mailer.Sender,
	fcm NativePushSender,
	webPush BrowserPushSender,
	logger *slog.Logger,
	frontendURL string,
) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		alerts:        alerts,
		tenders:       tenders,
		profiles:      profiles,
		pushTargets:   pushTargets,
		mail:          mail,
		fcm:           fcm,
		webPush:       webPush,
		logger:        logger,
		frontendURL:   frontendURL,
	}
}

var _ feed.Dispatcher = (*NotificationService)(nil)

// MatchAndNotify records a match row for every alert the tender hits.
// Each insert fires the database trigger that feeds the dispatch loop.
func (s *NotificationService) MatchAndNotify(ctx context.Context, tender *model.Tender) (int, error) {
	alerts, err := s.alerts.MatchTender(ctx, tender)
	if err != nil {
		return 0, err
	}

	matched := 0
	for i := range alerts {
		alert := &alerts[i]
		n := &model.TenderNotification{
			UserID:   alert.UserID,
			AlertID:  alert.ID,
			TenderID: tender.ID,
		}
		if err := s.notifications.CreateMatch(ctx, n); err != nil {
			if repository.IsUniqueViolation(err) {
				continue
			}
			s.logger.Error("match record failed",
				"alert_id", alert.ID,
				"tender_id", tender.ID,
				"error", err)
			continue
		}
		matched++
	}
	return matched, nil
}

// Dispatch delivers one match event and marks it processed. Channel
// failures are logged per target; the event is only left unprocessed
// when the alert or tender cannot be loaded.
func (s *NotificationService) Dispatch(ctx context.Context, ev feed.Event) error {
	tender, err := s.tenders.GetByID(ctx, ev.TenderID)
	if err != nil {
		return err
	}
	alert, err := s.alerts.GetByID(ctx, ev.AlertID)
	if err != nil {
		if errors.Is(err, repository.ErrAlertNotFound) {
			// Alert deleted after the match was recorded.
			return s.notifications.MarkProcessed(ctx, ev.AlertID, ev.TenderID, ev.UserID)
		}
		return err
	}

	filters, err := alert.DecodeFilters()
	if err != nil {
		s.logger.Error("alert preferences unreadable", "alert_id", alert.ID, "error", err)
		filters.Preferences = model.NotificationPreferences{InApp: true}
	}

	if filters.Preferences.Email {
		s.sendEmail(ctx, alert, tender, ev.UserID)
	}
	if filters.Preferences.InApp {
		s.sendPush(ctx, ev.UserID, tender)
	}

	return s.notifications.MarkProcessed(ctx, ev.AlertID, ev.TenderID, ev.UserID)
}

// DispatchBacklog delivers unprocessed match rows, covering events
// recorded while no listener was connected.
func (s *NotificationService) DispatchBacklog(ctx context.Context) error {
	pending, err := s.notifications.ListUnprocessed(ctx, backlogBatchSize)
	if err != nil {
		return err
	}
	for i := range pending {
		n := &pending[i]
		ev := feed.Event{
			ID:       n.ID,
			UserID:   n.UserID,
			AlertID:  n.AlertID,
			TenderID: n.TenderID,
		}
		if err := s.Dispatch(ctx, ev); err != nil {
			s.logger.Error("backlog dispatch failed",
				"notification_id", n.ID,
				"error", err)
		}
	}
	return nil
}

// sendEmail sends at most one email per (alert, tender, user) triple.
func (s *NotificationService) sendEmail(ctx context.Context, alert *model.Alert, tender *model.Tender, userID uuid.UUID) {
	if !s.mail.Enabled() {
		return
	}

	sent, err := s.notifications.EmailAlreadySent(ctx, alert.ID, tender.ID, userID)
	if err != nil {
		s.logger.Error("email dedupe check failed", "alert_id", alert.ID, "error", err)
		return
	}
	if sent {
		return
	}

	profile, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		s.logger.Warn("no profile for email recipient", "user_id", userID, "error", err)
		return
	}

	body, err := mailer.RenderAlertEmail(alert, tender, s.frontendURL)
	if err != nil {
		s.logger.Error("alert email render failed", "alert_id", alert.ID, "error", err)
		return
	}
	if err := s.mail.Send(ctx, profile.Email, mailer.AlertSubject(alert.Name), body); err != nil {
		s.logger.Error("alert email send failed", "alert_id", alert.ID, "error", err)
		return
	}

	record := &model.AlertEmailNotification{
		AlertID:  alert.ID,
		TenderID: tender.ID,
		UserID:   userID,
	}
	if err := s.notifications.RecordEmailSent(ctx, record); err != nil && !repository.IsUniqueViolation(err) {
		s.logger.Error("email send record failed", "alert_id", alert.ID, "error", err)
	}
}

// sendPush fans out to every registered device and browser, pruning
// targets the gateway reports dead.
func (s *NotificationService) sendPush(ctx context.Context, userID uuid.UUID, tender *model.Tender) {
	n := push.Notification{
		Title: pushTitle,
		Body:  tender.Title,
		Data: map[string]string{
			"tender_id": tender.ID.String(),
			"url":       s.frontendURL + "/tenders/" + tender.ID.String(),
		},
	}
	if img := tender.DisplayImageURL(); img != "" {
		n.Data["image"] = img
	}

	if s.fcm.Enabled() {
		tokens, err := s.pushTargets.ListTokensByUserID(ctx, userID)
		if err != nil {
			s.logger.Error("push token lookup failed", "user_id", userID, "error", err)
		}
		for _, token := range tokens {
			err := s.fcm.Send(ctx, token.PushToken, n)
			if errors.Is(err, push.ErrTokenGone) {
				if err := s.pushTargets.DeleteToken(ctx, userID, token.PushToken); err != nil {
					s.logger.Error("dead token prune failed", "user_id", userID, "error", err)
				}
				continue
			}
			if err != nil {
				s.logger.Error("device push failed", "user_id", userID, "error", err)
			}
		}
	}

	if s.webPush.Enabled() {
		subs, err := s.pushTargets.ListSubscriptionsByUserID(ctx, userID)
		if err != nil {
			s.logger.Error("push subscription lookup failed", "user_id", userID, "error", err)
		}
		for i := range subs {
			sub := &subs[i]
			err := s.webPush.Send(ctx, sub, n)
			if errors.Is(err, push.ErrTokenGone) {
				if err := s.pushTargets.DeleteSubscriptionByEndpoint(ctx, sub.Endpoint); err != nil {
					s.logger.Error("dead subscription prune failed", "user_id", userID, "error", err)
				}
				continue
			}
			if err != nil {
				s.logger.Error("browser push failed", "user_id", userID, "error", err)
			}
		}
	}
}
