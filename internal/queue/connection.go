package queue

import (
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Connection owns the AMQP connection. Publisher and consumer each open
// their own channel on it; a dropped connection is redialled on the next
// OpenChannel.
type Connection struct {
	url    string
	logger logrus.FieldLogger

	mu   sync.Mutex
	conn *amqp.Connection
}

// NewConnection dials RabbitMQ
func NewConnection(url string, logger logrus.FieldLogger) (*Connection, error) {
	if url == "" {
		return nil, errors.New("rabbitmq url cannot be empty")
	}

	c := &Connection{url: url, logger: logger}
	if err := c.dial(); err != nil {
		return nil, err
	}

	logger.Info("connected to rabbitmq")
	return c, nil
}

func (c *Connection) dial() error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	c.conn = conn
	return nil
}

// OpenChannel opens a new channel, redialling first if the connection dropped
func (c *Connection) OpenChannel() (*amqp.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || c.conn.IsClosed() {
		c.logger.Warn("rabbitmq connection is closed, reconnecting")
		if err := c.dial(); err != nil {
			return nil, err
		}
		c.logger.Info("reconnected to rabbitmq")
	}

	ch, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	return ch, nil
}

// Close closes the connection and every channel opened on it
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	if err != nil && !errors.Is(err, amqp.ErrClosed) {
		return fmt.Errorf("failed to close rabbitmq connection: %w", err)
	}

	c.logger.Info("rabbitmq connection closed")
	return nil
}

// IsConnected reports whether the connection is open
func (c *Connection) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && !c.conn.IsClosed()
}
