package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tersedak-care/apiserver/config"
	"github.com/tersedak-care/apiserver/internal/logger"
)

const (
	BackendRabbitMQ = "rabbitmq"
	BackendPubSub   = "pubsub"

	defaultPublishTimeout = 5 * time.Second
)

// Event types published by the API. Each type is also the channel name.
const (
	EventUserRegistered  = "user.registered"
	EventModuleCompleted = "module.completed"
)

// Backend defines the broker-agnostic operations used by the app.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Close() error
}

// Event is the envelope written to the broker.
type Event struct {
	Type       string         `json:"type"`
	UserID     int            `json:"user_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data,omitempty"`
}

// MQ publishes domain events. A nil backend disables publishing.
type MQ struct {
	backend Backend
	log     *logger.Logger
	timeout time.Duration
	now     func() time.Time
}

// New constructs an MQ wrapper for the provided backend.
func New(backend Backend, log *logger.Logger) *MQ {
	if log == nil {
		log = logger.Nop()
	}
	return &MQ{
		backend: backend,
		log:     log.With("component", "mq"),
		timeout: defaultPublishTimeout,
		now:     time.Now,
	}
}

// NewFromConfig dials the configured broker. With MQ_BACKEND empty the
// returned MQ drops every event.
func NewFromConfig(ctx context.Context, cfg config.MQConfig, log *logger.Logger) (*MQ, error) {
	var (
		backend Backend
		err     error
	)
	switch cfg.Backend {
	case "":
	case BackendRabbitMQ:
		backend, err = NewRabbitMQClient(cfg.RabbitMQ)
	case BackendPubSub:
		backend, err = NewPubSubClient(ctx, cfg.PubSub)
	default:
		return nil, fmt.Errorf("unsupported mq backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	return New(backend, log), nil
}

// Enabled reports whether events reach a broker.
func (m *MQ) Enabled() bool {
	return m != nil && m.backend != nil
}

// Publish sends the event once. Failures are logged and never returned,
// so a broker outage cannot fail the request that produced the event.
func (m *MQ) Publish(ctx context.Context, event Event) {
	if !m.Enabled() {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = m.now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		m.log.Error("encode event failed", "type", event.Type, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
	defer cancel()

	id, err := m.backend.Publish(ctx, event.Type, data, map[string]string{
		"event_type": event.Type,
	})
	if err != nil {
		m.log.Warn("publish event failed", "type", event.Type, "user_id", event.UserID, "error", err)
		return
	}
	m.log.Debug("event published", "type", event.Type, "message_id", id)
}

// Close closes the underlying backend.
func (m *MQ) Close() error {
	if !m.Enabled() {
		return nil
	}
	return m.backend.Close()
}

var errChannelRequired = errors.New("channel is required")
