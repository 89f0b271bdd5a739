package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MaxDialDelay caps the backoff between dial attempts.
const MaxDialDelay = 60 * time.Second

// Options configures a Client.
type Options struct {
	URL    string
	Dial   DialFunc // defaults to Dial
	Logger *slog.Logger
}

// Message is one payload to publish. MessageID defaults to a fresh UUID.
type Message struct {
	Body          []byte
	MessageID     string
	CorrelationID string
}

// Client manages one connection and one channel. All methods are safe for
// concurrent use; publishes on the shared channel are serialized, which
// preserves publish order per destination.
type Client struct {
	url  string
	dial DialFunc
	log  *slog.Logger

	mu       sync.Mutex
	conn     Connection
	ch       Channel
	confirms <-chan amqp.Confirmation
}

func NewClient(opts Options) *Client {
	dial := opts.Dial
	if dial == nil {
		dial = Dial
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		url:  opts.URL,
		dial: dial,
		log:  log,
	}
}

// Connect establishes the connection and channel if none is active.
// Repeated calls while connected are no-ops.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked()
}

func (c *Client) connectLocked() error {
	if c.conn != nil && !c.conn.IsClosed() && c.ch != nil && !c.ch.IsClosed() {
		return nil
	}

	if c.conn == nil || c.conn.IsClosed() {
		conn, err := c.dial(c.url)
		if err != nil {
			return fmt.Errorf("dial %s: %w", c.url, err)
		}
		c.conn = conn
		c.log.Info("broker connected", slog.String("url", c.url))
	}

	ch, err := c.conn.Channel()
	if err != nil {
		_ = c.conn.Close()
		c.conn = nil
		return fmt.Errorf("open channel: %w", err)
	}
	// Confirm mode: publishes return only after the broker acks them.
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = c.conn.Close()
		c.conn = nil
		return fmt.Errorf("confirm mode: %w", err)
	}
	c.ch = ch
	c.confirms = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	return nil
}

// ConnectWithRetry dials with exponential backoff until it succeeds, the
// attempts are exhausted, or ctx is cancelled.
func (c *Client) ConnectWithRetry(ctx context.Context, attempts int, delay time.Duration) error {
	var lastErr error

	for i := 1; i <= attempts; i++ {
		if err := c.Connect(); err == nil {
			if i > 1 {
				c.log.Info("broker connected", slog.Int("attempt", i))
			}
			return nil
		} else {
			lastErr = err
		}

		sleep := delay * time.Duration(math.Pow(2, float64(i-1)))
		if sleep > MaxDialDelay {
			sleep = MaxDialDelay
		}

		c.log.Warn("broker dial failed",
			slog.Int("attempt", i),
			slog.Duration("sleep", sleep),
			slog.Any("error", lastErr),
		)

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.New("dial cancelled: " + ctx.Err().Error())
		case <-timer.C:
		}
	}

	return fmt.Errorf("failed to connect after %d attempts: %w", attempts, lastErr)
}

// DeclareQueue declares a durable queue. Idempotent.
func (c *Client) DeclareQueue(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.connectLocked(); err != nil {
		return err
	}
	_, err := c.ch.QueueDeclare(name, true, false, false, false, nil)
	return err
}

// DeclareExchange declares a durable topic exchange. Idempotent.
func (c *Client) DeclareExchange(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.connectLocked(); err != nil {
		return err
	}
	return c.ch.ExchangeDeclare(name, "topic", true, false, false, false, nil)
}

// BindQueue binds a queue to a topic exchange under the given pattern.
func (c *Client) BindQueue(queue, pattern, exchange string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.connectLocked(); err != nil {
		return err
	}
	return c.ch.QueueBind(queue, pattern, exchange, false, nil)
}

// Publish sends body as a persistent message and returns once the broker
// confirms it. An empty exchange publishes directly to the queue named by
// key. On failure it reconnects and retries exactly once; a second failure
// surfaces as a PublishError.
func (c *Client) Publish(ctx context.Context, exchange, key string, body []byte) error {
	return c.PublishMsg(ctx, exchange, key, Message{Body: body})
}

// PublishMsg is Publish with explicit message metadata.
func (c *Client) PublishMsg(ctx context.Context, exchange, key string, msg Message) error {
	err := c.tryPublish(ctx, exchange, key, msg)
	if err == nil {
		return nil
	}

	c.log.Warn("publish failed, reconnecting",
		slog.String("exchange", exchange),
		slog.String("key", key),
		slog.Any("error", err),
	)

	c.mu.Lock()
	c.closeLocked()
	rerr := c.connectLocked()
	c.mu.Unlock()
	if rerr != nil {
		return &PublishError{Exchange: exchange, Key: key, Err: rerr}
	}

	if err := c.tryPublish(ctx, exchange, key, msg); err != nil {
		return &PublishError{Exchange: exchange, Key: key, Err: err}
	}
	return nil
}

func (c *Client) tryPublish(ctx context.Context, exchange, key string, msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.connectLocked(); err != nil {
		return err
	}

	msgID := msg.MessageID
	if msgID == "" {
		msgID = uuid.NewString()
	}

	err := c.ch.PublishWithContext(ctx, exchange, key, false, false, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     msgID,
		CorrelationId: msg.CorrelationID,
		Timestamp:     time.Now(),
		Body:          msg.Body,
	})
	if err != nil {
		return err
	}

	// Publishes on the shared channel are serialized under c.mu, so the next
	// confirmation belongs to this publish. A closed confirmation channel
	// means the AMQP channel died before the broker acked.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case conf, ok := <-c.confirms:
		if !ok {
			return errors.New("channel closed before publish confirmation")
		}
		if !conf.Ack {
			return fmt.Errorf("broker refused publish (delivery tag %d)", conf.DeliveryTag)
		}
	}
	return nil
}

// Channel hands out the live channel for consume loops. The caller must not
// close it; Close owns teardown.
func (c *Client) Channel() (Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.connectLocked(); err != nil {
		return nil, err
	}
	return c.ch, nil
}

// NotifyClose registers for connection-level close notifications.
func (c *Client) NotifyClose() (<-chan *amqp.Error, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.connectLocked(); err != nil {
		return nil, err
	}
	return c.conn.NotifyClose(make(chan *amqp.Error, 1)), nil
}

// Close releases the channel and connection. Safe when never connected.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	return nil
}

func (c *Client) closeLocked() {
	if c.ch != nil {
		_ = c.ch.Close()
		c.ch = nil
		c.confirms = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}
