package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"campaignhub/internal/models"
)

// JobHandler processes one dispatch job. A nil return acks the delivery;
// any error nacks it without requeue.
type JobHandler func(ctx context.Context, job *models.DispatchJob) error

// Consumer consumes dispatch jobs from a RabbitMQ queue on its own channel
type Consumer struct {
	conn      *Connection
	queueName string
	handler   JobHandler
	logger    logrus.FieldLogger
	ch        *amqp.Channel
	cancel    context.CancelFunc
	doneChan  chan struct{}
}

// NewConsumer creates a new consumer instance
func NewConsumer(conn *Connection, queueName string, handler JobHandler, logger logrus.FieldLogger) (*Consumer, error) {
	if conn == nil {
		return nil, errors.New("connection cannot be nil")
	}
	if queueName == "" {
		return nil, errors.New("queue name cannot be empty")
	}
	if handler == nil {
		return nil, errors.New("handler cannot be nil")
	}

	return &Consumer{
		conn:      conn,
		queueName: queueName,
		handler:   handler,
		logger:    logger.WithField("queue", queueName),
		doneChan:  make(chan struct{}),
	}, nil
}

// Start starts consuming jobs until ctx is cancelled or Stop is called
func (c *Consumer) Start(ctx context.Context) error {
	ch, err := c.conn.OpenChannel()
	if err != nil {
		return err
	}

	if err := declareQueue(ch, c.queueName); err != nil {
		ch.Close()
		return err
	}

	// One campaign at a time; each dispatch already fans out internally
	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := ch.Consume(
		c.queueName,
		"",    // consumer tag (auto-generated)
		false, // auto-ack (manual acknowledgement)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		ch.Close()
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.ch = ch
	ctx, c.cancel = context.WithCancel(ctx)

	go func() {
		defer close(c.doneChan)

		for {
			select {
			case <-ctx.Done():
				c.logger.Info("consumer stopping")
				return
			case d, ok := <-msgs:
				if !ok {
					c.logger.Warn("delivery channel closed by broker")
					return
				}
				c.handleDelivery(ctx, d)
			}
		}
	}()

	c.logger.Info("consumer started")
	return nil
}

// Done is closed when the consume loop exits, including when the broker
// closes the channel.
func (c *Consumer) Done() <-chan struct{} {
	return c.doneChan
}

// Stop stops consuming, waits for the in-flight job and closes the channel
func (c *Consumer) Stop() error {
	if c.cancel == nil {
		return nil
	}
	c.cancel()
	<-c.doneChan

	var err error
	if !c.ch.IsClosed() {
		err = c.ch.Close()
	}

	c.logger.Info("consumer stopped")
	return err
}

// handleDelivery runs one delivery through the handler and settles it.
// Failed jobs are never requeued: a dispatch that failed part way may have
// messaged recipients already.
func (c *Consumer) handleDelivery(ctx context.Context, d amqp.Delivery) {
	logger := c.logger.WithField("delivery_tag", d.DeliveryTag)

	job, err := decodeJob(d.Body)
	if err != nil {
		logger.WithError(err).Error("dropping malformed dispatch job")
		if nackErr := d.Nack(false, false); nackErr != nil {
			logger.WithError(nackErr).Error("failed to nack delivery")
		}
		return
	}
	logger = logger.WithField("campaign_id", job.CampaignID).WithField("request_id", job.RequestID)

	if err := c.handler(ctx, job); err != nil {
		logger.WithError(err).Error("dispatch job failed, not requeueing")
		if nackErr := d.Nack(false, false); nackErr != nil {
			logger.WithError(nackErr).Error("failed to nack delivery")
		}
		return
	}

	if err := d.Ack(false); err != nil {
		logger.WithError(err).Error("failed to ack delivery")
	}
}

func decodeJob(body []byte) (*models.DispatchJob, error) {
	var job models.DispatchJob
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dispatch job: %w", err)
	}
	if job.CampaignID == "" {
		return nil, errors.New("dispatch job has no campaign id")
	}
	return &job, nil
}
