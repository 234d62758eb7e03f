package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/adnankarim/resume-search-shortlist-engine/internal/config"
	"github.com/adnankarim/resume-search-shortlist-engine/internal/logger"
)

// MessageQueue is the narrow publish surface the outbox relay depends on.
type MessageQueue interface {
	PublishMessage(ctx context.Context, exchangeName, routingKey string, message []byte, persistent bool) error
	PublishJSON(ctx context.Context, exchangeName, routingKey string, data interface{}, persistent bool) error
	EnsureExchange(exchangeName, exchangeType string, durable bool) error
	Close() error
}

var _ MessageQueue = (*RabbitMQ)(nil)

// RabbitMQ is a thin amqp091-go wrapper with a pooled-channel publish path,
// following the teacher's RabbitMQ adapter (internal/storage/rabbitmq.go) —
// trimmed to publish-only since the search engine only emits deletion
// events, it never consumes a queue.
type RabbitMQ struct {
	conn         *amqp.Connection
	channelPool  sync.Pool
	exchangeMap  map[string]bool
	publishMutex sync.Mutex
	cfg          *config.RabbitMQConfig
}

func NewRabbitMQ(cfg *config.RabbitMQConfig) (*RabbitMQ, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, fmt.Errorf("rabbitmq: url not configured")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: dial %s: %w", cfg.URL, err)
	}

	mq := &RabbitMQ{
		conn:        conn,
		exchangeMap: make(map[string]bool),
		cfg:         cfg,
	}
	mq.channelPool = sync.Pool{
		New: func() interface{} {
			ch, errPool := conn.Channel()
			if errPool != nil {
				logger.Error().Err(errPool).Msg("rabbitmq: open channel failed")
				return nil
			}
			return ch
		},
	}

	testCh := mq.getChannel()
	if testCh == nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq: no channel available")
	}
	mq.putChannel(testCh)

	logger.Info().Str("url", cfg.URL).Msg("rabbitmq connected")
	return mq, nil
}

func (r *RabbitMQ) getChannel() *amqp.Channel {
	ch := r.channelPool.Get()
	if ch == nil {
		newCh, err := r.conn.Channel()
		if err != nil {
			logger.Error().Err(err).Msg("rabbitmq: open channel failed")
			return nil
		}
		return newCh
	}
	return ch.(*amqp.Channel)
}

func (r *RabbitMQ) putChannel(ch *amqp.Channel) {
	if ch != nil {
		r.channelPool.Put(ch)
	}
}

func (r *RabbitMQ) Close() error {
	return r.conn.Close()
}

// EnsureExchange declares exchangeName if it hasn't been declared by this
// process yet.
func (r *RabbitMQ) EnsureExchange(exchangeName, exchangeType string, durable bool) error {
	if exchangeName == "" {
		return fmt.Errorf("rabbitmq: exchange name required")
	}
	if _, exists := r.exchangeMap[exchangeName]; exists {
		return nil
	}

	ch := r.getChannel()
	if ch == nil {
		return fmt.Errorf("rabbitmq: no channel available")
	}
	defer r.putChannel(ch)

	if err := ch.ExchangeDeclare(exchangeName, exchangeType, durable, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq: declare exchange %s: %w", exchangeName, err)
	}
	r.exchangeMap[exchangeName] = true
	return nil
}

// PublishMessage publishes message to exchangeName/routingKey.
func (r *RabbitMQ) PublishMessage(ctx context.Context, exchangeName, routingKey string, message []byte, persistent bool) error {
	r.publishMutex.Lock()
	defer r.publishMutex.Unlock()

	ch := r.getChannel()
	if ch == nil {
		return fmt.Errorf("rabbitmq: no channel available")
	}
	defer r.putChannel(ch)

	deliveryMode := uint8(1)
	if persistent {
		deliveryMode = 2
	}

	return ch.PublishWithContext(ctx, exchangeName, routingKey, false, false, amqp.Publishing{
		DeliveryMode: deliveryMode,
		ContentType:  "application/json",
		Body:         message,
		Timestamp:    time.Now(),
	})
}

// PublishJSON marshals data and publishes it.
func (r *RabbitMQ) PublishJSON(ctx context.Context, exchangeName, routingKey string, data interface{}, persistent bool) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("rabbitmq: marshal payload: %w", err)
	}
	return r.PublishMessage(ctx, exchangeName, routingKey, payload, persistent)
}
