// Package amqp carries match requests between the ingestion side and the
// reconciler over a durable RabbitMQ queue.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"piggyback/internal/logger"
)

// ErrDrop marks a handler failure that redelivery cannot fix. Such messages
// are rejected without requeue.
var ErrDrop = errors.New("drop message")

// Handler processes one match request.
type Handler func(ctx context.Context, msg *MatchRequestMessage) error

const maxBackoff = 30 * time.Second

// Client publishes and consumes match requests.
type Client struct {
	url          string
	exchangeName string
	queueName    string

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

// NewClient dials the broker and declares the exchange, queue and binding.
func NewClient(url, exchangeName, queueName string) (*Client, error) {
	client := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
	}
	if err := client.connect(); err != nil {
		return nil, err
	}
	return client, nil
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

	if err := setup(channel, c.exchangeName, c.queueName); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}

	c.mu.Lock()
	var stale []io.Closer
	if c.channel != nil {
		stale = append(stale, c.channel)
	}
	if c.conn != nil {
		stale = append(stale, c.conn)
	}
	closeStale(stale...)
	c.conn = conn
	c.channel = channel
	c.mu.Unlock()
	return nil
}

// closeStale closes a replaced channel and connection in order. After a
// broker drop they are usually closed already, so ErrClosed is not logged.
func closeStale(closers ...io.Closer) {
	for _, cl := range closers {
		if err := cl.Close(); err != nil && !errors.Is(err, amqp091.ErrClosed) {
			logger.Named("amqp").Warnw("failed to close stale broker handle", "error", err)
		}
	}
}

func setup(channel *amqp091.Channel, exchangeName, queueName string) error {
	err := channel.ExchangeDeclare(
		exchangeName, // name
		"direct",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = channel.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key is the queue name on the direct exchange.
	if err := channel.QueueBind(queueName, queueName, exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	// One unacked message at a time per consumer.
	if err := channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	return nil
}

func (c *Client) currentChannel() *amqp091.Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel
}

// PublishMatchRequest publishes a persistent match request.
func (c *Client) PublishMatchRequest(ctx context.Context, msg *MatchRequestMessage) error {
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = c.currentChannel().PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	logger.Named("amqp").Debugw("published match request",
		"transaction_id", msg.TransactionID,
		"expense_id", msg.ExpenseID,
		"queue", c.queueName,
	)
	return nil
}

// ConsumeMatchRequests delivers match requests to handler until ctx is
// cancelled, reconnecting with exponential backoff when the broker drops
// the connection.
func (c *Client) ConsumeMatchRequests(ctx context.Context, handler Handler) error {
	log := logger.Named("amqp")
	attempt := 0

	for {
		err := c.consume(ctx, handler)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !isConnectionError(err) {
			return err
		}

		wait := exponentialBackoff(attempt)
		attempt++
		log.Warnw("lost broker connection, reconnecting", "error", err, "attempt", attempt, "wait", wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		if err := c.connect(); err != nil {
			log.Warnw("reconnect failed", "error", err)
			continue
		}
		attempt = 0
	}
}

func (c *Client) consume(ctx context.Context, handler Handler) error {
	log := logger.Named("amqp")

	msgs, err := c.currentChannel().Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	log.Infow("started consuming match requests", "queue", c.queueName)

	// Consecutive requeues; drives the delay before the next one.
	failures := 0
	for {
		select {
		case <-ctx.Done():
			log.Infow("stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errors.New("message channel closed")
			}
			if process(ctx, delivery.Body, delivery, handler, exponentialBackoff(failures)) {
				failures++
			} else {
				failures = 0
			}
		}
	}
}

// acknowledger is the part of amqp091.Delivery used to settle a message.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// process decodes one delivery, runs handler and settles the delivery:
// ack on success, reject on undecodable bodies and ErrDrop, requeue on
// anything else. A requeue waits retryDelay first, since the broker
// redelivers at once. It reports whether the delivery was requeued.
func process(ctx context.Context, body []byte, ack acknowledger, handler Handler, retryDelay time.Duration) bool {
	log := logger.Named("amqp")

	msg, err := MatchRequestMessageFromJSON(body)
	if err != nil {
		log.Errorw("failed to unmarshal message", "error", err)
		_ = ack.Nack(false, false)
		return false
	}

	if err := handler(ctx, msg); err != nil {
		requeue := !errors.Is(err, ErrDrop)
		log.Errorw("failed to handle match request",
			"error", err,
			"transaction_id", msg.TransactionID,
			"expense_id", msg.ExpenseID,
			"requeue", requeue,
		)
		if requeue {
			select {
			case <-ctx.Done():
			case <-time.After(retryDelay):
			}
		}
		_ = ack.Nack(false, requeue)
		return requeue
	}

	_ = ack.Ack(false)
	return false
}

// exponentialBackoff returns 1s, 2s, 4s, ... capped at 30s.
func exponentialBackoff(attempt int) time.Duration {
	if attempt > 5 {
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
	msg := err.Error()
	for _, s := range []string{"connection refused", "connection closed", "channel closed", "EOF", "broken pipe", "use of closed network connection"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// Close closes the channel and connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
