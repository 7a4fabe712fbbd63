package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/travel-lottery/internal/config"
)

// AuditFile is the name of the audit log inside the configured directory.
const AuditFile = "lottery.log"

// Consumer reads lottery events from RabbitMQ and appends one line per
// event to the audit log.
type Consumer struct {
	cfg config.AMQPConfig
	log logrus.FieldLogger
}

// NewConsumer returns a consumer for the configured queues.
func NewConsumer(cfg config.AMQPConfig, log logrus.FieldLogger) *Consumer {
	return &Consumer{cfg: cfg, log: log.WithField("component", "audit-consumer")}
}

// Run connects to the broker and consumes until ctx is cancelled.  Dial
// failures and dropped connections are retried with exponential backoff
// capped at 30s.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.cfg.URL)
		if err != nil {
			c.log.WithError(err).Warnf("dial broker failed; retrying in %s", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.WithError(err).Warn("consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.WithError(err).Warn("set QoS failed")
	}

	sources := make(map[string]<-chan amqp.Delivery, 2)
	for _, q := range []string{c.cfg.TicketQueue, c.cfg.DrawQueue} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", q, err)
		}
		msgs, err := ch.Consume(q, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", q, err)
		}
		sources[q] = msgs
	}
	return c.drain(ctx, sources)
}

// drain handles deliveries from every source until ctx ends or one source
// closes.  It returns only after all of its forwarders have exited.
func (c *Consumer) drain(ctx context.Context, sources map[string]<-chan amqp.Delivery) error {
	var wg sync.WaitGroup
	defer wg.Wait()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	deliveries := make(chan amqp.Delivery)
	done := make(chan error, len(sources))
	for q, msgs := range sources {
		wg.Add(1)
		go func(q string, msgs <-chan amqp.Delivery) {
			defer wg.Done()
			done <- forward(ctx, q, msgs, deliveries)
		}(q, msgs)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-done:
			return err
		case d := <-deliveries:
			if err := HandleMessage(c.cfg.AuditLogDir, d.Body); err != nil {
				c.log.WithError(err).WithField("queue", d.RoutingKey).Error("handle message failed")
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// forward relays msgs into out until msgs closes or ctx ends.  A delivery
// it could not hand over is requeued.
func forward(ctx context.Context, q string, msgs <-chan amqp.Delivery, out chan<- amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("deliveries for %s closed", q)
			}
			select {
			case out <- d:
			case <-ctx.Done():
				_ = d.Nack(false, true)
				return ctx.Err()
			}
		}
	}
}

// HandleMessage decodes one event and appends its audit line to
// dir/lottery.log.
func HandleMessage(dir string, body []byte) error {
	line, err := FormatAuditLine(body)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	f, err := os.OpenFile(filepath.Join(dir, AuditFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// FormatAuditLine renders an event payload as a single log line.
func FormatAuditLine(body []byte) (string, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(body, &head); err != nil {
		return "", fmt.Errorf("unmarshal: %w", err)
	}
	switch head.Type {
	case TypeTicketPurchased:
		var ev TicketPurchasedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal %s: %w", head.Type, err)
		}
		return fmt.Sprintf("[%s] Ticket purchased | ticket=%s | lottery=%s | user_id=%d | numbers=%s | price=%d | sold=%d\n",
			ev.PurchasedAt, ev.TicketCode, ev.LotteryCode, ev.UserID, joinInts(ev.Numbers), ev.PricePaid, ev.SoldTickets), nil
	case TypeDrawExecuted:
		var ev DrawExecutedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal %s: %w", head.Type, err)
		}
		return fmt.Sprintf("[%s] Draw executed | draw=%s | lottery=%s | winning_ticket_id=%d | winner_id=%d | numbers=%s | sold=%d | by=%q | hash=%s\n",
			ev.DrawnAt, ev.DrawCode, ev.LotteryCode, ev.WinningTicketID, ev.WinnerID, joinInts(ev.WinningNumbers), ev.TotalTicketsSold, ev.ExecutedBy, ev.VerificationHash), nil
	case "":
		return "", errors.New("event type missing")
	}
	return "", fmt.Errorf("unknown event type %q", head.Type)
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = fmt.Sprint(n)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
