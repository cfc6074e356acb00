package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Queue names used by the booking log consumer.
const (
	BookingLogQueue = "booking.log"
	BookingLogDLQ   = "booking.log.dlq"
)

// BookingLogger consumes booking notifications and appends one line per
// notification to a log file.
type BookingLogger struct {
	URL     string
	LogPath string

	mu sync.Mutex
}

func NewBookingLogger(url, logPath string) *BookingLogger {
	if logPath == "" {
		logPath = filepath.Join("logs", "booking.log")
	}
	return &BookingLogger{URL: url, LogPath: logPath}
}

// Run connects to the broker and consumes until ctx is cancelled.  Lost
// connections are redialled with exponential backoff.
func (b *BookingLogger) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(b.URL)
		if err != nil {
			log.Printf("booking-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = b.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("booking-consumer: consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (b *BookingLogger) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.ExchangeDeclare(ExchangeName, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	if _, err := ch.QueueDeclare(BookingLogDLQ, true, false, false, false, nil); err != nil {
		return fmt.Errorf("dlq declare: %w", err)
	}
	args := amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": BookingLogDLQ,
	}
	if _, err := ch.QueueDeclare(BookingLogQueue, true, false, false, false, args); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	if err := ch.QueueBind(BookingLogQueue, "booking.*", ExchangeName, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}
	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("booking-consumer: set QoS failed: %v", err)
	}

	msgs, err := ch.Consume(BookingLogQueue, "booking-logger", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := b.Handle(d.Body); err != nil {
				log.Printf("booking-consumer: handle message failed: %v correlation_id=%s", err, d.CorrelationId)
				_ = d.Nack(false, false) // dead-lettered, not requeued
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle appends one line for a BookingEvent body.
func (b *BookingLogger) Handle(body []byte) error {
	var ev BookingEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.MeetupID == "" || ev.UserID == "" {
		return errors.New("booking event without meetup or user id")
	}
	line := fmt.Sprintf("[%s] Booking %s | event_id=%s | user_id=%s | meetup_id=%s | meetup=%q | remaining=%d/%d | correlation_id=%s\n",
		ev.OccurredAt.UTC().Format(time.RFC3339), ev.Kind, ev.EventID, ev.UserID, ev.MeetupID, ev.MeetupName,
		ev.Remaining, ev.Capacity, ev.CorrelationID)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(b.LogPath), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(b.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
