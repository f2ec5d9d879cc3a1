package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"campaignhub/internal/models"
)

// ErrPublishNacked is returned when the broker refuses a dispatch job
var ErrPublishNacked = errors.New("broker did not confirm dispatch job")

// Publisher publishes dispatch jobs on a confirm-mode channel, so a job is
// only reported queued once the broker has taken responsibility for it.
type Publisher struct {
	conn      *Connection
	queueName string

	mu sync.Mutex
	ch *amqp.Channel
}

// NewPublisher opens the publishing channel and declares the queue
func NewPublisher(conn *Connection, queueName string) (*Publisher, error) {
	if conn == nil {
		return nil, errors.New("connection cannot be nil")
	}
	if queueName == "" {
		return nil, errors.New("queue name cannot be empty")
	}

	p := &Publisher{conn: conn, queueName: queueName}
	if _, err := p.channel(); err != nil {
		return nil, err
	}
	return p, nil
}

// channel returns the publishing channel, reopening it after a close.
// Callers hold p.mu.
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}

	ch, err := p.conn.OpenChannel()
	if err != nil {
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}
	if err := declareQueue(ch, p.queueName); err != nil {
		ch.Close()
		return nil, err
	}

	p.ch = ch
	return ch, nil
}

// PublishDispatch publishes a dispatch job and waits for the broker's confirm
func (p *Publisher) PublishDispatch(ctx context.Context, job *models.DispatchJob) error {
	msg, err := encodeJob(job)
	if err != nil {
		return err
	}

	p.mu.Lock()
	ch, err := p.channel()
	if err != nil {
		p.mu.Unlock()
		return err
	}
	confirm, err := ch.PublishWithDeferredConfirmWithContext(ctx,
		"",          // exchange (default)
		p.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		msg,
	)
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to publish dispatch job: %w", err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("failed waiting for publish confirm: %w", err)
	}
	if !acked {
		return ErrPublishNacked
	}
	return nil
}

// Close closes the publishing channel
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil || p.ch.IsClosed() {
		return nil
	}
	return p.ch.Close()
}

func encodeJob(job *models.DispatchJob) (amqp.Publishing, error) {
	if job == nil || job.CampaignID == "" {
		return amqp.Publishing{}, errors.New("dispatch job needs a campaign id")
	}

	body, err := json.Marshal(job)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal dispatch job: %w", err)
	}

	return amqp.Publishing{
		DeliveryMode:  amqp.Persistent,
		ContentType:   "application/json",
		MessageId:     job.RequestID,
		CorrelationId: job.CampaignID,
		Timestamp:     job.RequestedAt,
		Body:          body,
	}, nil
}

// declareQueue declares the durable queue shared by publisher and consumer
func declareQueue(ch *amqp.Channel, queueName string) error {
	_, err := ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	return nil
}
