package broker

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"movie-reviews/pkg/utils"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ==================== FIXTURES ====================

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	mu   sync.Mutex
	sent []published
	err  error
}

func (c *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, published{exchange: exchange, key: key, msg: msg})
	return nil
}

// newIdlePublisher builds a publisher without a delivery loop so tests
// drive delivery by hand.
func newIdlePublisher(buffer int) *RabbitPublisher {
	return &RabbitPublisher{
		exchange:       "reviews",
		publishTimeout: time.Second,
		log:            zap.NewNop(),
		events:         make(chan outgoing, buffer),
		done:           make(chan struct{}),
	}
}

// silentBroker accepts TCP connections and never answers the handshake.
func silentBroker(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	var mu sync.Mutex
	var conns []net.Conn
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()

	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})
	return "amqp://guest:guest@" + ln.Addr().String() + "/"
}

// ==================== TESTS ====================

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	if err := p.Publish(context.Background(), "review.created", map[string]string{"id": "x"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestRabbitPublisher_StalledBrokerDoesNotBlock(t *testing.T) {
	p := NewRabbitPublisher(utils.BrokerConfig{
		URL:         silentBroker(t),
		Exchange:    "reviews",
		BufferSize:  1,
		DialTimeout: 300 * time.Millisecond,
	}, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := p.Publish(ctx, "review.created", map[string]string{"reviewId": "a"}); err != nil {
		t.Fatalf("first publish: %v", err)
	}
	err := p.Publish(ctx, "review.updated", map[string]string{"reviewId": "a"})
	if !errors.Is(err, ErrBufferFull) {
		t.Fatalf("expected ErrBufferFull, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("publish blocked for %v", elapsed)
	}

	start = time.Now()
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("close took %v", elapsed)
	}

	if err := p.Publish(context.Background(), "review.deleted", nil); !errors.Is(err, ErrPublisherClosed) {
		t.Fatalf("expected ErrPublisherClosed, got %v", err)
	}
}

func TestRabbitPublisher_DeliveryContract(t *testing.T) {
	p := newIdlePublisher(4)
	ch := &fakeChannel{}

	payload := map[string]any{"type": "review.created", "reviewId": "507f1f77bcf86cd799439011"}
	if err := p.Publish(context.Background(), "review.created", payload); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := p.Publish(context.Background(), "review.reacted", payload); err != nil {
		t.Fatalf("publish: %v", err)
	}

	close(p.done)
	if stopped := p.deliverUntilClosed(ch, nil, nil); !stopped {
		t.Fatal("expected the loop to stop on close")
	}

	if len(ch.sent) != 2 {
		t.Fatalf("got %d deliveries, want 2", len(ch.sent))
	}
	for i, key := range []string{"review.created", "review.reacted"} {
		got := ch.sent[i]
		if got.exchange != "reviews" || got.key != key {
			t.Fatalf("delivery %d: exchange %q key %q", i, got.exchange, got.key)
		}
		if got.msg.ContentType != "application/json" || got.msg.DeliveryMode != amqp.Persistent {
			t.Fatalf("delivery %d: unexpected properties %+v", i, got.msg)
		}
		var body map[string]any
		if err := json.Unmarshal(got.msg.Body, &body); err != nil {
			t.Fatalf("delivery %d: body: %v", i, err)
		}
		if body["reviewId"] != "507f1f77bcf86cd799439011" {
			t.Fatalf("delivery %d: body %v", i, body)
		}
	}
}

func TestRabbitPublisher_ConnectionLossKeepsQueue(t *testing.T) {
	p := newIdlePublisher(4)
	connClosed := make(chan *amqp.Error, 1)
	connClosed <- &amqp.Error{Code: amqp.ConnectionForced, Reason: "broker restart"}

	if stopped := p.deliverUntilClosed(&fakeChannel{}, connClosed, nil); stopped {
		t.Fatal("connection loss should ask for a reconnect")
	}

	if err := p.Publish(context.Background(), "review.created", nil); err != nil {
		t.Fatalf("publish after loss: %v", err)
	}
	if len(p.events) != 1 {
		t.Fatalf("queued event lost, queue has %d", len(p.events))
	}
}

func TestRabbitPublisher_FailedDeliveryContinues(t *testing.T) {
	p := newIdlePublisher(4)
	ch := &fakeChannel{err: errors.New("channel closed")}

	for _, key := range []string{"review.created", "review.deleted"} {
		if err := p.Publish(context.Background(), key, nil); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	close(p.done)
	p.deliverUntilClosed(ch, nil, nil)

	if len(p.events) != 0 {
		t.Fatalf("queue not drained, %d left", len(p.events))
	}
}

func TestRabbitPublisher_CanceledContext(t *testing.T) {
	p := newIdlePublisher(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := p.Publish(ctx, "review.created", nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
