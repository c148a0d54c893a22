// Package queue_publisher provides functions to publish domain events to RabbitMQ.
// Errors are logged and returned to allow callers to ignore failures without
// interrupting the main request flow.
package queue_publisher

import (
    "context"
    "encoding/json"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"

    q "github.com/iliyamo/wild-series/internal/queue"
)

// Publisher opens a short-lived connection per event.  Program creation is
// rare enough that a pooled channel is not worth its reconnect logic.
type Publisher struct {
    url string
    log *logrus.Entry
}

func New(url string, log *logrus.Entry) *Publisher {
    return &Publisher{url: url, log: log.WithField("component", "publisher")}
}

// PublishProgramPublished publishes a ProgramPublishedEvent to the
// "program.published" queue.  Messages are marked as persistent.
func (p *Publisher) PublishProgramPublished(ctx context.Context, event q.ProgramPublishedEvent) error {
    conn, err := amqp.Dial(p.url)
    if err != nil {
        p.log.WithError(err).Warn("rabbitmq: dial failed")
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        p.log.WithError(err).Warn("rabbitmq: channel open failed")
        return err
    }
    defer func() { _ = ch.Close() }()

    // Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(q.ProgramPublishedQueue, true, false, false, false, nil); err != nil {
        p.log.WithError(err).Warn("rabbitmq: queue declare failed")
        return err
    }

    body, err := json.Marshal(event)
    if err != nil {
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        MessageId:    event.EventID,
        DeliveryMode: amqp.Persistent,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", q.ProgramPublishedQueue, false, false, pub); err != nil {
        p.log.WithError(err).Warn("rabbitmq: publish failed")
        return err
    }
    return nil
}
