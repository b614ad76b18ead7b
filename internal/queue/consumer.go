package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"
)

// LogFileName is the journal the consumer appends to inside its log dir.
const LogFileName = "participation.log"

// StartConsumer connects to url, declares QueueName and appends one line
// per event to <logDir>/participation.log. It reconnects with exponential
// backoff and returns only when ctx is cancelled.
func StartConsumer(ctx context.Context, url, logDir string) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warnf("participation-consumer: dial failed: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, logDir)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warnf("participation-consumer: consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, logDir string) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warnf("participation-consumer: set QoS failed: %v", err)
	}
	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(QueueName, "", false, false, false, false, nil)
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
			if err := HandleMessage(logDir, d.Body); err != nil {
				log.Errorf("participation-consumer: handle message failed: %v", err)
				_ = d.Nack(false, false) // poison messages are dropped, not requeued
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// HandleMessage decodes one delivery body and appends it to the journal.
func HandleMessage(logDir string, body []byte) error {
	var ev ParticipationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" {
		return errors.New("event type is empty")
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", logDir, err)
	}
	f, err := os.OpenFile(filepath.Join(logDir, LogFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatLine renders ev as a single journal line ending in a newline.
func FormatLine(ev ParticipationEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s | marathon_id=%d | user_id=%d | actor_id=%d",
		ev.OccurredAt, ev.Type, ev.MarathonID, ev.UserID, ev.ActorID)
	if ev.RaceName != "" {
		fmt.Fprintf(&b, " | race=%q", ev.RaceName)
	}
	if ev.EntryNumber > 0 {
		fmt.Fprintf(&b, " | entry_number=%d", ev.EntryNumber)
	}
	if ev.TimeRecord != nil {
		fmt.Fprintf(&b, " | time=%s", *ev.TimeRecord)
	}
	if ev.Standings != nil {
		fmt.Fprintf(&b, " | standings=%d", *ev.Standings)
	}
	b.WriteByte('\n')
	return b.String()
}
