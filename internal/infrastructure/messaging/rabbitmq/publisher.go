package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/baechuer/user-service/internal/application/auth"
)

const (
	DefaultExchange = "user.events"

	RoutingVerifyEmail   = "user.email.verify.requested"
	RoutingPasswordReset = "user.password.reset.requested"

	producer = "user-service"

	// Window to wait for Return / Confirm.
	publishWait = 2 * time.Second
)

// Envelope wraps every published payload.
type Envelope[T any] struct {
	Version    int       `json:"version"`
	Producer   string    `json:"producer"`
	MessageID  string    `json:"message_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    T         `json:"payload"`
}

type amqpConn interface {
	IsClosed() bool
	Close() error
}

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends auth e-mail events to a topic exchange using publisher
// confirms and mandatory routing.
type Publisher struct {
	url      string
	exchange string
	log      zerolog.Logger
	now      func() time.Time

	mu sync.Mutex

	conn amqpConn
	ch   amqpChannel

	confirmCh <-chan amqp.Confirmation
	returnCh  <-chan amqp.Return

	dial func() error
}

func NewPublisher(url, exchange string, lg zerolog.Logger) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	p := &Publisher{
		url:      url,
		exchange: exchange,
		log:      lg.With().Str("component", "rabbitmq_publisher").Logger(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	p.dial = p.connect
	if err := p.dial(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetConn()
	return nil
}

// ---- auth.EventPublisher ----

func (p *Publisher) PublishVerifyEmail(ctx context.Context, evt auth.VerifyEmailEvent) error {
	return publishJSON(ctx, p, RoutingVerifyEmail, evt)
}

func (p *Publisher) PublishPasswordReset(ctx context.Context, evt auth.PasswordResetEvent) error {
	return publishJSON(ctx, p, RoutingPasswordReset, evt)
}

// ---- internal ----

func (p *Publisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		p.exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false,
		false,
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("exchange declare: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("confirm mode: %w", err)
	}

	p.confirmCh = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	p.returnCh = ch.NotifyReturn(make(chan amqp.Return, 1))

	p.conn = conn
	p.ch = ch
	p.log.Info().Str("exchange", p.exchange).Msg("rabbitmq connected")
	return nil
}

func (p *Publisher) ensureConnected() error {
	if p.conn != nil && !p.conn.IsClosed() && p.ch != nil {
		return nil
	}
	return p.dial()
}

func publishJSON[T any](ctx context.Context, p *Publisher, routingKey string, payload T) error {
	env := Envelope[T]{
		Version:    1,
		Producer:   producer,
		MessageID:  uuid.NewString(),
		OccurredAt: p.now(),
		Payload:    payload,
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, publishWait)
		defer cancel()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureConnected(); err != nil {
		return err
	}

	// Drain stale confirms/returns so results are not mixed up.
drain:
	for {
		select {
		case <-p.confirmCh:
		case <-p.returnCh:
		default:
			break drain
		}
	}

	if err := p.ch.PublishWithContext(
		ctx,
		p.exchange,
		routingKey,
		true,  // mandatory
		false, // immediate
		amqp.Publishing{
			MessageId:    env.MessageID,
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    env.OccurredAt,
			Body:         body,
		},
	); err != nil {
		p.resetConn()
		return fmt.Errorf("publish failed: %w", err)
	}

	// A Return for a mandatory publish always precedes its Ack.
	select {
	case ret := <-p.returnCh:
		return fmt.Errorf("rabbitmq unroutable: key=%s code=%d text=%s", routingKey, ret.ReplyCode, ret.ReplyText)
	case conf := <-p.confirmCh:
		select {
		case ret := <-p.returnCh:
			return fmt.Errorf("rabbitmq unroutable: key=%s code=%d text=%s", routingKey, ret.ReplyCode, ret.ReplyText)
		default:
		}
		if !conf.Ack {
			return fmt.Errorf("rabbitmq nack: key=%s deliveryTag=%d", routingKey, conf.DeliveryTag)
		}
		p.log.Debug().Str("routing_key", routingKey).Str("message_id", env.MessageID).Msg("event published")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("rabbitmq publish timeout: key=%s: %w", routingKey, ctx.Err())
	}
}

func (p *Publisher) resetConn() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}
