// Package queue contains the background consumer that listens to the
// program.published queue and appends one line per event to an audit log.
package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "os"
    "path/filepath"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"
)

// StartProgramConsumer connects to RabbitMQ, declares the program.published
// queue (durable) and consumes it until ctx is cancelled.  Each message is
// appended to logPath.  Broker failures trigger a reconnect with
// exponential backoff capped at 30s; malformed messages are rejected
// without requeue so they cannot loop.
func StartProgramConsumer(ctx context.Context, url, logPath string, log *logrus.Entry) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(url)
        if err != nil {
            log.WithError(err).Warnf("program-consumer: dial failed; retrying in %s", backoff)
            select {
            case <-ctx.Done():
                return ctx.Err()
            case <-time.After(backoff):
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = consumeLoop(ctx, conn, logPath, log)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        log.WithError(err).Warn("program-consumer: consume loop ended; reconnecting")
        select {
        case <-ctx.Done():
            return ctx.Err()
        case <-time.After(2 * time.Second):
        }
    }
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, logPath string, log *logrus.Entry) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        log.WithError(err).Warn("program-consumer: set QoS failed")
    }
    if _, err := ch.QueueDeclare(ProgramPublishedQueue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.ConsumeWithContext(ctx, ProgramPublishedQueue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for d := range msgs {
        if err := appendEvent(logPath, d.Body); err != nil {
            log.WithError(err).Error("program-consumer: handle message failed")
            _ = d.Nack(false, false)
            continue
        }
        _ = d.Ack(false)
    }
    return errors.New("deliveries channel closed")
}

func appendEvent(logPath string, body []byte) error {
    var ev ProgramPublishedEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()
    return writeEvent(f, ev)
}

func writeEvent(w io.Writer, ev ProgramPublishedEvent) error {
    _, err := fmt.Fprintf(w, "[%s] Program published | program_id=%d | title=%q | slug=%s | category=%q | owner_id=%d\n",
        ev.PublishedAt, ev.ProgramID, ev.Title, ev.Slug, ev.Category, ev.OwnerID)
    if err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}
