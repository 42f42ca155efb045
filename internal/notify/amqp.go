package notify

import (
	"context"
	"sync"

	"github.com/streadway/amqp"

	"scriptflow/internal/config"
	"scriptflow/internal/services"
)

// AMQPService publishes events to a durable fanout exchange.
type AMQPService struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// NewService connects to the broker configured in cfg. An empty URL yields a
// no-op service so the pipeline runs unchanged without a broker.
func NewService(cfg *config.Config) (Service, error) {
	if cfg == nil || cfg.AMQP.URL == "" {
		return NewNoop(), nil
	}
	return Dial(cfg.AMQP.URL, cfg.AMQP.Exchange)
}

// Dial connects to the broker and declares the exchange.
func Dial(url, exchange string) (*AMQPService, error) {
	if exchange == "" {
		return nil, services.Wrap(services.ErrConfiguration, "notify", "dial", "exchange name is required", nil)
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "notify", "dial", "connect to broker", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, services.Wrap(services.ErrTransient, "notify", "dial", "open channel", err)
	}
	if err := channel.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil); err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, services.Wrap(services.ErrTransient, "notify", "dial", "declare exchange", err)
	}
	return &AMQPService{conn: conn, channel: channel, exchange: exchange}, nil
}

func (s *AMQPService) Publish(ctx context.Context, event Event, payload Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := encodeEnvelope(event, payload)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	err = s.channel.Publish(s.exchange, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		return services.Wrapf(services.ErrTransient, "notify", "publish", err, "event %s", event)
	}
	return nil
}

func (s *AMQPService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.channel != nil {
		_ = s.channel.Close()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
