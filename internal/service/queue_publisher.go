// Package queue_publisher provides functions to publish domain events to
// RabbitMQ. Errors are logged and returned to allow callers to ignore
// failures without interrupting the main request flow.
package queue_publisher

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	q "github.com/mechworks/workshop-api/internal/queue"
)

// PublishTicketCreated publishes a TicketCreatedEvent to the
// "ticket.created" queue. Messages are marked as persistent.
func PublishTicketCreated(ctx context.Context, event q.TicketCreatedEvent) error {
	return publish(ctx, q.TicketCreatedQueue, event)
}

// PublishTicketPartsAdded publishes a TicketPartsAddedEvent to the
// "ticket.parts_added" queue.
func PublishTicketPartsAdded(ctx context.Context, event q.TicketPartsAddedEvent) error {
	return publish(ctx, q.TicketPartsAddedQueue, event)
}

// publish opens a short-lived connection, declares the target queue
// (idempotent, durable so messages survive broker restarts), and sends a
// single persistent JSON message. Any error is logged and returned so the
// caller can choose to ignore it.
func publish(ctx context.Context, queueName string, event any) error {
	conn, err := amqp.Dial(q.BrokerURL())
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx,
		"",        // default exchange
		queueName, // routing key = queue name
		false,     // mandatory
		false,     // immediate
		pub,
	); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}

	return nil
}
