package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"llmcouncil/internal/model"
)

// CompletionPublisher pushes debate completion records to a durable queue for
// downstream consumers, the trending worker among them.
type CompletionPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewCompletionPublisher(conn *amqp.Connection, queueName string) *CompletionPublisher {
	return &CompletionPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *CompletionPublisher) PublishDebateCompleted(ctx context.Context, record model.CompletionRecord) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	_, err = ch.QueueDeclare(
		p.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue failed: %w", err)
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal completion record failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	); err != nil {
		return fmt.Errorf("publish completion record failed: %w", err)
	}
	return nil
}
