package publisher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	amqp "github.com/rabbitmq/amqp091-go"

	apperrors "github.com/echocipher/carrier/internal/errors"
)

// AMQPConfig configures the AMQP publisher.
type AMQPConfig struct {
	URL      string
	Exchange string
	// MaxTries bounds the dial attempts. Zero means five.
	MaxTries uint
}

// AMQPPublisher publishes events as persistent JSON messages on a durable topic
// exchange. The routing key is the event type.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	logger   *slog.Logger
}

// NewAMQPPublisher dials the broker with exponential backoff and declares the exchange.
func NewAMQPPublisher(ctx context.Context, cfg AMQPConfig, logger *slog.Logger) (*AMQPPublisher, error) {
	maxTries := cfg.MaxTries
	if maxTries == 0 {
		maxTries = 5
	}

	operation := func() (*amqp.Connection, error) {
		conn, err := amqp.Dial(cfg.URL)
		if err != nil {
			logger.Warn("failed to connect to amqp broker, retrying", slog.Any("error", err))
			return nil, err
		}
		return conn, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = 10 * time.Second
	conn, err := backoff.Retry(ctx, operation, backoff.WithBackOff(bo), backoff.WithMaxTries(maxTries))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to connect to amqp broker")
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, apperrors.Wrap(err, "failed to open amqp channel")
	}

	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, apperrors.Wrap(err, "failed to declare amqp exchange")
	}

	logger.Info("connected to amqp broker", slog.String("exchange", cfg.Exchange))

	return &AMQPPublisher{
		conn:     conn,
		channel:  ch,
		exchange: cfg.Exchange,
		logger:   logger,
	}, nil
}

// Publish sends one event. Channels are not safe for concurrent use, so
// publishes are serialized.
func (p *AMQPPublisher) Publish(ctx context.Context, eventType string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.channel.PublishWithContext(
		ctx,
		p.exchange,
		eventType,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Type:         eventType,
		},
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to publish event")
	}
	return nil
}

// Close closes the channel and the connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	chErr := p.channel.Close()
	connErr := p.conn.Close()
	return apperrors.Join(chErr, connErr)
}
