// Package broker publishes domain events to RabbitMQ.
package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"movie-reviews/pkg/utils"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

var (
	ErrBufferFull      = errors.New("event buffer full, event dropped")
	ErrPublisherClosed = errors.New("publisher closed")
)

const (
	defaultBufferSize     = 256
	defaultDialTimeout    = 5 * time.Second
	defaultPublishTimeout = 5 * time.Second

	minReconnectDelay = 500 * time.Millisecond
	maxReconnectDelay = 30 * time.Second
)

// Publisher sends a JSON payload under a routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
	Close() error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }
func (NopPublisher) Close() error                                { return nil }

type outgoing struct {
	routingKey string
	body       []byte
	at         time.Time
}

// publishChannel is the part of *amqp.Channel used for delivery.
type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// RabbitPublisher queues events in memory and delivers them from a single
// background goroutine that owns the connection. Publish never touches the
// network: when the queue is full the event is dropped.
type RabbitPublisher struct {
	url            string
	exchange       string
	dialTimeout    time.Duration
	publishTimeout time.Duration
	log            *zap.Logger

	events    chan outgoing
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewRabbitPublisher starts the delivery loop. The first connection is
// made in the background, so a broker that is down at boot only delays
// delivery.
func NewRabbitPublisher(config utils.BrokerConfig, log *zap.Logger) *RabbitPublisher {
	p := &RabbitPublisher{
		url:            config.URL,
		exchange:       config.Exchange,
		dialTimeout:    config.DialTimeout,
		publishTimeout: config.PublishTimeout,
		log:            log.With(zap.String("component", "broker"), zap.String("exchange", config.Exchange)),
		done:           make(chan struct{}),
	}
	if p.dialTimeout <= 0 {
		p.dialTimeout = defaultDialTimeout
	}
	if p.publishTimeout <= 0 {
		p.publishTimeout = defaultPublishTimeout
	}
	size := config.BufferSize
	if size <= 0 {
		size = defaultBufferSize
	}
	p.events = make(chan outgoing, size)

	p.wg.Add(1)
	go p.run()
	return p
}

// Publish enqueues the event and returns immediately.
func (p *RabbitPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-p.done:
		return ErrPublisherClosed
	default:
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	select {
	case p.events <- outgoing{routingKey: routingKey, body: body, at: time.Now().UTC()}:
		return nil
	default:
		return fmt.Errorf("%s: %w", routingKey, ErrBufferFull)
	}
}

// Close stops the delivery loop after flushing what is queued, if connected.
func (p *RabbitPublisher) Close() error {
	p.closeOnce.Do(func() { close(p.done) })
	p.wg.Wait()
	return nil
}

func (p *RabbitPublisher) run() {
	defer p.wg.Done()

	delay := minReconnectDelay
	for {
		conn, ch, err := p.connect()
		if err != nil {
			p.log.Warn("RabbitMQ unavailable, retrying",
				zap.Error(err),
				zap.Duration("retry_in", delay),
				zap.Int("queued", len(p.events)),
			)
			if !p.wait(delay) {
				return
			}
			delay = min(delay*2, maxReconnectDelay)
			continue
		}
		delay = minReconnectDelay
		p.log.Info("RabbitMQ connected")

		stop := p.deliverUntilClosed(ch,
			conn.NotifyClose(make(chan *amqp.Error, 1)),
			ch.NotifyClose(make(chan *amqp.Error, 1)),
		)
		_ = ch.Close()
		_ = conn.Close()
		if stop {
			return
		}
	}
}

// connect dials with a bounded handshake and declares the exchange.
func (p *RabbitPublisher) connect() (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(p.dialTimeout),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("rabbitmq declare exchange %s: %w", p.exchange, err)
	}

	return conn, ch, nil
}

// deliverUntilClosed drains the queue into ch. It reports true when the
// publisher was closed and false when the connection dropped.
func (p *RabbitPublisher) deliverUntilClosed(ch publishChannel, connClosed, chClosed <-chan *amqp.Error) bool {
	for {
		select {
		case <-p.done:
			p.flush(ch)
			return true
		case err := <-connClosed:
			p.log.Warn("RabbitMQ connection lost, reconnecting", zap.Error(err))
			return false
		case err := <-chClosed:
			p.log.Warn("RabbitMQ channel closed, reconnecting", zap.Error(err))
			return false
		case msg := <-p.events:
			p.send(ch, msg)
		}
	}
}

func (p *RabbitPublisher) flush(ch publishChannel) {
	for {
		select {
		case msg := <-p.events:
			p.send(ch, msg)
		default:
			return
		}
	}
}

func (p *RabbitPublisher) send(ch publishChannel, msg outgoing) {
	if err := p.deliver(ch, msg); err != nil {
		p.log.Warn("Failed to publish event", zap.Error(err), zap.String("routing_key", msg.routingKey))
		return
	}
	p.log.Debug("Event published", zap.String("routing_key", msg.routingKey))
}

func (p *RabbitPublisher) deliver(ch publishChannel, msg outgoing) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.publishTimeout)
	defer cancel()

	err := ch.PublishWithContext(ctx, p.exchange, msg.routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    msg.at,
		Body:         msg.body,
	})
	if err != nil {
		return fmt.Errorf("rabbitmq publish %s: %w", msg.routingKey, err)
	}
	return nil
}

func (p *RabbitPublisher) wait(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-p.done:
		return false
	case <-t.C:
		return true
	}
}
