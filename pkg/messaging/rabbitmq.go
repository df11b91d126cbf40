// pkg/messaging/rabbitmq.go
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const reconnectDelay = 5 * time.Second

var ErrClosed = errors.New("rabbitmq client is closed")

// Binding routes messages published to the exchange with a matching key into a queue.
type Binding struct {
	Queue      string
	RoutingKey string
}

// channel is the part of *amqp.Channel the client uses.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

var _ channel = (*amqp.Channel)(nil)

// dialer opens a connection and a channel on it. closed yields once the connection drops.
type dialer func(uri string) (conn io.Closer, ch channel, closed <-chan *amqp.Error, err error)

func dialAMQP(uri string) (io.Closer, channel, <-chan *amqp.Error, error) {
	conn, err := amqp.Dial(uri)
	if err != nil {
		return nil, nil, nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, nil, err
	}

	return conn, ch, conn.NotifyClose(make(chan *amqp.Error, 1)), nil
}

type subscription struct {
	queue   string
	handler func([]byte) error
}

type RabbitMQClient struct {
	mu        sync.RWMutex
	conn      io.Closer
	ch        channel
	uri       string
	dial      dialer
	connRetry chan struct{}
	done      chan struct{}
	closed    bool
	logger    *slog.Logger

	// remembered so a reconnect can restore topology and consumers
	exchange      string
	bindings      []Binding
	subscriptions []subscription
}

func NewRabbitMQClient(uri string, logger *slog.Logger) (*RabbitMQClient, error) {
	return newClient(uri, dialAMQP, logger)
}

func newClient(uri string, dial dialer, logger *slog.Logger) (*RabbitMQClient, error) {
	client := &RabbitMQClient{
		uri:       uri,
		dial:      dial,
		connRetry: make(chan struct{}, 1),
		done:      make(chan struct{}),
		logger:    logger,
	}

	if err := client.connect(); err != nil {
		return nil, err
	}

	go client.reconnectMonitor()

	return client, nil
}

func (c *RabbitMQClient) connect() error {
	conn, ch, closed, err := c.dial(c.uri)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.ch = ch
	c.mu.Unlock()

	// wait for the connection to drop and ask for a reconnect unless we closed it ourselves
	go func() {
		<-closed
		c.mu.RLock()
		shutdown := c.closed
		c.mu.RUnlock()
		if !shutdown {
			select {
			case c.connRetry <- struct{}{}:
			default:
			}
		}
	}()

	return nil
}

// In case of lost connections - attempts to reconnect to RabbitMQ every reconnectDelay
func (c *RabbitMQClient) reconnectMonitor() {
	for {
		select {
		case <-c.done:
			return
		case <-c.connRetry:
			c.logger.Warn("RabbitMQ connection lost, attempting to reconnect")

			for {
				err := c.connect()
				if err == nil {
					break
				}
				c.logger.Error("failed to reconnect to RabbitMQ", "error", err, "retry_in", reconnectDelay)
				select {
				case <-c.done:
					return
				case <-time.After(reconnectDelay):
				}
			}

			if err := c.restore(); err != nil {
				c.logger.Error("failed to restore RabbitMQ topology", "error", err)
				continue
			}
			c.logger.Info("reconnected to RabbitMQ")
		}
	}
}

// restore re-declares the topology and re-attaches consumers on a fresh channel.
func (c *RabbitMQClient) restore() error {
	if err := c.declare(); err != nil {
		return err
	}

	c.mu.RLock()
	subs := append([]subscription(nil), c.subscriptions...)
	c.mu.RUnlock()

	for _, s := range subs {
		if err := c.consume(s); err != nil {
			return fmt.Errorf("resubscribe %s: %w", s.queue, err)
		}
	}
	return nil
}

// SetupInfrastructure declares a durable topic exchange and binds durable queues to it.
func (c *RabbitMQClient) SetupInfrastructure(exchange string, bindings []Binding) error {
	c.mu.Lock()
	c.exchange = exchange
	c.bindings = bindings
	c.mu.Unlock()

	return c.declare()
}

func (c *RabbitMQClient) declare() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.exchange == "" {
		return nil
	}

	// name, type, durable, auto-delete, internal, no-wait, args
	if err := c.ch.ExchangeDeclare(c.exchange, "topic", true, false, false, false, nil); err != nil {
		return err
	}

	for _, b := range c.bindings {
		// name, durable, delete when unused, exclusive, no-wait, args
		if _, err := c.ch.QueueDeclare(b.Queue, true, false, false, false, nil); err != nil {
			return err
		}
		if err := c.ch.QueueBind(b.Queue, b.RoutingKey, c.exchange, false, nil); err != nil {
			return err
		}
	}
	return nil
}

// PublishEvent publishes event as persistent JSON to exchange with routingKey.
func (c *RabbitMQClient) PublishEvent(ctx context.Context, exchange, routingKey string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}

	// exchange name, routing key, mandatory, immediate, publishing
	return c.ch.PublishWithContext(ctx,
		exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
}

// Subscribe consumes queue and acks each message the handler accepts.
// Messages the handler rejects are requeued. The consumer is re-attached after a reconnect.
func (c *RabbitMQClient) Subscribe(queue string, handler func([]byte) error) error {
	s := subscription{queue: queue, handler: handler}
	if err := c.consume(s); err != nil {
		return err
	}

	c.mu.Lock()
	c.subscriptions = append(c.subscriptions, s)
	c.mu.Unlock()
	return nil
}

func (c *RabbitMQClient) consume(s subscription) error {
	c.mu.RLock()
	ch, closed := c.ch, c.closed
	c.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	// queue name, consumer tag, auto-ack, exclusive, no-local, no-wait, args
	msgs, err := ch.Consume(s.queue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	// msgs is closed when the channel goes away; restore starts a new loop
	go func() {
		for msg := range msgs {
			if err := s.handler(msg.Body); err != nil {
				c.logger.Error("error handling message", "queue", s.queue, "error", err)
				msg.Nack(false, true)
				continue
			}
			msg.Ack(false)
		}
	}()

	return nil
}

func (c *RabbitMQClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	close(c.done)

	if c.ch != nil {
		c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
