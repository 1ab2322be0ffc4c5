// Package events publishes domain events over valkey pub/sub. The
// notification collaborator consumes them out of process; the core only
// produces.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"spruce/config"
	"spruce/internal/logger"

	"github.com/google/uuid"
	"github.com/valkey-io/valkey-go"
)

type Channel string

func (c Channel) String() string {
	return string(c)
}

const (
	APPOINTMENTS_CHANNEL Channel = "appointments"
	PAYMENTS_CHANNEL     Channel = "payments"
	SCHEDULES_CHANNEL    Channel = "schedules"
)

type EventType string

const (
	APPOINTMENT_CREATED   EventType = "appointment_created"
	APPOINTMENT_CANCELLED EventType = "appointment_cancelled"
	SCHEDULE_PAUSED       EventType = "schedule_paused"
	SCHEDULE_DEACTIVATED  EventType = "schedule_deactivated"
	GENERATION_COMPLETED  EventType = "generation_completed"
	PAYMENT_CAPTURED      EventType = "payment_captured"
	PAYMENT_REFUNDED      EventType = "payment_refunded"
	PAYMENT_FAILED        EventType = "payment_failed"
	JOB_COMPLETED         EventType = "job_completed"
	PAYOUT_RELEASED       EventType = "payout_released"
)

type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Channel   Channel        `json:"channel"`
	UserID    *uuid.UUID     `json:"userId,omitempty"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}

type EventBus struct {
	client valkey.Client
	logger logger.Logger
	config config.Config
	mutex  sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	closed bool
}

func New(client valkey.Client, config config.Config) *EventBus {
	ctx, cancel := context.WithCancel(context.Background())

	return &EventBus{
		client: client,
		logger: logger.New("EventBus"),
		config: config,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Publish sends an event on a channel. Publishing is best-effort: callers log
// the returned error but never fail a domain operation over it.
func (eb *EventBus) Publish(channel Channel, event Event) error {
	log := eb.logger.Function("Publish")

	if eb.client == nil {
		return nil
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if event.Channel == "" {
		event.Channel = channel
	}

	eventData, err := json.Marshal(event)
	if err != nil {
		return log.Err("failed to marshal event", err, "eventID", event.ID)
	}

	ctx, cancelCtx := context.WithTimeout(eb.ctx, 5*time.Second)
	defer cancelCtx()

	cmd := eb.client.B().Publish().Channel(channel.String()).Message(string(eventData)).Build()
	if err := eb.client.Do(ctx, cmd).Error(); err != nil {
		return log.Err("failed to publish event", err, "eventID", event.ID, "channel", channel)
	}

	log.Debug("Published event", "eventID", event.ID, "type", event.Type, "channel", channel)
	return nil
}

func (eb *EventBus) Close() error {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	if eb.closed {
		return nil
	}

	eb.cancel()
	eb.closed = true
	return nil
}
