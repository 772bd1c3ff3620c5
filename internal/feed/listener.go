// Package feed consumes the Postgres notification channel fed by the
// tender_notifications insert trigger and hands each event to the
// dispatcher. A periodic backlog sweep covers events published while
// the listener was disconnected.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Channel is the pg_notify channel name used by the insert trigger.
const Channel = "tender_notifications"

const (
	minReconnectInterval = 10 * time.Second
	maxReconnectInterval = time.Minute
	backlogInterval      = 90 * time.Second
)

// Event is the JSON payload published by the trigger.
type Event struct {
	ID       uuid.UUID `json:"id"`
	UserID   uuid.UUID `json:"user_id"`
	AlertID  uuid.UUID `json:"alert_id"`
	TenderID uuid.UUID `json:"tender_id"`
}

// Dispatcher delivers a match event to its user. DispatchBacklog
// handles rows whose notification was missed.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev Event) error
	DispatchBacklog(ctx context.Context) error
}

type Listener struct {
	databaseURL string
	dispatcher  Dispatcher
	logger      *slog.Logger
}

func NewListener(databaseURL string, dispatcher Dispatcher, logger *slog.Logger) *Listener {
	return &Listener{
		databaseURL: databaseURL,
		dispatcher:  dispatcher,
		logger:      logger,
	}
}

// Run listens until ctx is cancelled. Connection drops are retried by
// the underlying pq listener; a backlog sweep runs on every reconnect
// and on a timer.
func (l *Listener) Run(ctx context.Context) error {
	pqListener := pq.NewListener(l.databaseURL, minReconnectInterval, maxReconnectInterval,
		func(event pq.ListenerEventType, err error) {
			if err != nil {
				l.logger.Warn("notification listener event", "event", int(event), "error", err)
			}
		})
	defer func() { _ = pqListener.Close() }()

	if err := pqListener.Listen(Channel); err != nil {
		return fmt.Errorf("listen on %s: %w", Channel, err)
	}
	l.logger.Info("notification listener started", "channel", Channel)

	// Sweep first so anything inserted before the listener came up is
	// delivered.
	l.sweepBacklog(ctx)

	ticker := time.NewTicker(backlogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n := <-pqListener.Notify:
			if n == nil {
				// Reconnected. Events published during the gap are in
				// the backlog.
				l.sweepBacklog(ctx)
				continue
			}
			l.handle(ctx, n.Extra)
		case <-ticker.C:
			if err := pqListener.Ping(); err != nil {
				l.logger.Warn("notification listener ping failed", "error", err)
			}
			l.sweepBacklog(ctx)
		}
	}
}

func (l *Listener) handle(ctx context.Context, payload string) {
	ev, err := ParseEvent(payload)
	if err != nil {
		l.logger.Error("invalid notification payload", "payload", payload, "error", err)
		return
	}
	if err := l.dispatcher.Dispatch(ctx, ev); err != nil {
		l.logger.Error("dispatch failed",
			"notification_id", ev.ID,
			"user_id", ev.UserID,
			"error", err)
	}
}

func (l *Listener) sweepBacklog(ctx context.Context) {
	if err := l.dispatcher.DispatchBacklog(ctx); err != nil {
		l.logger.Error("backlog sweep failed", "error", err)
	}
}

// ParseEvent decodes a trigger payload.
func ParseEvent(payload string) (Event, error) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return Event{}, fmt.Errorf("decode notification payload: %w", err)
	}
	if ev.ID == uuid.Nil || ev.UserID == uuid.Nil {
		return Event{}, fmt.Errorf("notification payload missing ids")
	}
	return ev, nil
}
