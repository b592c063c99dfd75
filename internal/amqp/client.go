// Package amqp carries rate refresh requests and refreshed events over a
// RabbitMQ direct exchange.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"moneytracker/internal/currency"
	"moneytracker/internal/log"
)

// Circuit breaker states.
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	maxBackoff     = 30 * time.Second
	publishTimeout = 5 * time.Second
)

var ErrClosed = errors.New("amqp client closed")

type Client struct {
	url          string
	exchangeName string
	queueName    string
	eventsQueue  string
	logger       *log.Logger

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
	closed  bool

	state        int32
	failureCount int64
	lastFailure  time.Time
}

// NewClient dials the broker and declares the exchange and both queues.
// eventsQueue may be empty when nothing consumes refreshed events.
func NewClient(url, exchangeName, queueName, eventsQueue string, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.Nop()
	}
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
		eventsQueue:  eventsQueue,
		logger:       logger.WithComponent(log.ComponentAMQP),
	}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) log() *log.Logger {
	if c.logger == nil {
		return log.Nop()
	}
	return c.logger
}

func (c *Client) connect() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := c.setup(channel); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queues: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.channel = channel
	c.mu.Unlock()
	return nil
}

func (c *Client) setup(ch *amqp091.Channel) error {
	err := ch.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	for _, queue := range []string{c.queueName, c.eventsQueue} {
		if queue == "" {
			continue
		}
		if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", queue, err)
		}
		// Routing key is the queue name.
		if err := ch.QueueBind(queue, queue, c.exchangeName, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", queue, err)
		}
	}
	return nil
}

// reconnect retries connect with exponential backoff until it succeeds or
// ctx ends.
func (c *Client) reconnect(ctx context.Context) error {
	c.dropConnection()
	for attempt := 0; ; attempt++ {
		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return ErrClosed
		}

		err := c.connect()
		if err == nil {
			c.log().InfoContext(ctx, "Reconnected to AMQP broker", "attempt", attempt+1)
			return nil
		}

		wait := exponentialBackoff(attempt)
		c.log().WarnContext(ctx, "AMQP reconnect failed", "attempt", attempt+1, "retry_in", wait, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (c *Client) dropConnection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func exponentialBackoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe", "channel/connection is not open"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	if time.Since(c.lastFailure) > openTimeout {
		atomic.StoreInt32(&c.state, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	c.lastFailure = time.Now()
	if atomic.AddInt64(&c.failureCount, 1) >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

func (c *Client) publish(ctx context.Context, routingKey, messageID string, body []byte) error {
	if c.isCircuitOpen() {
		return fmt.Errorf("circuit breaker is open, not publishing to %s", routingKey)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()
	if ch == nil {
		if err := c.connect(); err != nil {
			c.recordFailure()
			return err
		}
		c.mu.Lock()
		ch = c.channel
		c.mu.Unlock()
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err := ch.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		routingKey,     // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    messageID,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		c.recordFailure()
		if isConnectionError(err) {
			c.dropConnection()
		}
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()
	return nil
}

// PublishRefreshRequest queues a refresh request and returns its id.
func (c *Client) PublishRefreshRequest(ctx context.Context, reason string) (string, error) {
	msg := NewRefreshRequest(reason)
	body, err := msg.ToJSON()
	if err != nil {
		return "", fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, c.queueName, msg.ID, body); err != nil {
		return "", err
	}
	c.log().InfoContext(ctx, "Published rates refresh request",
		"id", msg.ID,
		"reason", reason,
		"exchange", c.exchangeName,
		"queue", c.queueName)
	return msg.ID, nil
}

// PublishRatesRefreshed announces a refreshed table. It is a no-op when no
// events queue is configured.
func (c *Client) PublishRatesRefreshed(ctx context.Context, msg *RatesRefreshed) error {
	if c.eventsQueue == "" {
		return nil
	}
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, c.eventsQueue, msg.ID, body); err != nil {
		return err
	}
	c.log().InfoContext(ctx, "Published rates refreshed event",
		"id", msg.ID,
		log.FieldRateCount, len(msg.Rates),
		"queue", c.eventsQueue)
	return nil
}

// PublishRefreshed wraps rates in a RatesRefreshed event and publishes it.
func (c *Client) PublishRefreshed(ctx context.Context, requestID string, rates currency.Rates) error {
	return c.PublishRatesRefreshed(ctx, NewRatesRefreshed(requestID, rates))
}

// ConsumeRefreshRequests blocks handling refresh requests until ctx ends.
// Malformed messages are dropped, handler failures are requeued, and a lost
// connection is re-established with backoff.
func (c *Client) ConsumeRefreshRequests(ctx context.Context, handler func(context.Context, *RefreshRequest) error) error {
	for {
		err := c.consumeOnce(ctx, handler)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log().WarnContext(ctx, "AMQP consumer interrupted", "error", err)
		if err := c.reconnect(ctx); err != nil {
			return err
		}
	}
}

func (c *Client) consumeOnce(ctx context.Context, handler func(context.Context, *RefreshRequest) error) error {
	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()
	if ch == nil {
		return fmt.Errorf("channel not open")
	}

	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	msgs, err := ch.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	c.log().InfoContext(ctx, "Started consuming rates refresh requests", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			c.log().InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}

			msg, err := RefreshRequestFromJSON(delivery.Body)
			if err != nil {
				c.log().ErrorContext(ctx, "Failed to unmarshal message", "error", err)
				delivery.Nack(false, false)
				continue
			}

			if err := handler(ctx, msg); err != nil {
				c.log().ErrorContext(ctx, "Failed to handle refresh request", "id", msg.ID, "error", err)
				// Redelivered messages are dropped to avoid a hot loop.
				delivery.Nack(false, !delivery.Redelivered)
				continue
			}

			delivery.Ack(false)
			c.log().InfoContext(ctx, "Processed rates refresh request", "id", msg.ID, "reason", msg.Reason)
		}
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}
