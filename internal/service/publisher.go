package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/travel-lottery/internal/config"
	"github.com/iliyamo/travel-lottery/internal/metrics"
	"github.com/iliyamo/travel-lottery/internal/model"
	"github.com/iliyamo/travel-lottery/internal/queue"
)

// ErrPublishBufferFull is returned when an event arrives while the send
// buffer is full.  The event is dropped.
var ErrPublishBufferFull = errors.New("rabbitmq: publish buffer full")

const defaultPublishTimeout = 3 * time.Second

type outbound struct {
	queue string
	body  []byte
}

// AMQPPublisher publishes lottery events to durable RabbitMQ queues.
// TicketPurchased and DrawExecuted only enqueue; Run owns the broker
// connection and sends in the background, so callers never wait on the
// network.
type AMQPPublisher struct {
	cfg     config.AMQPConfig
	log     logrus.FieldLogger
	events  chan outbound
	conn    *amqp.Connection
	ch      *amqp.Channel
	queues  map[string]bool
	timeout time.Duration
}

// NewAMQPPublisher returns a publisher for the configured broker.  Nothing
// is sent until Run is started.
func NewAMQPPublisher(cfg config.AMQPConfig, log logrus.FieldLogger) *AMQPPublisher {
	size := cfg.PublishBuffer
	if size <= 0 {
		size = 256
	}
	timeout := cfg.PublishTimeout
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	return &AMQPPublisher{
		cfg:     cfg,
		log:     log.WithField("component", "event-publisher"),
		events:  make(chan outbound, size),
		queues:  make(map[string]bool, 2),
		timeout: timeout,
	}
}

// TicketPurchased queues a ticket event.
func (p *AMQPPublisher) TicketPurchased(_ context.Context, l model.Lottery, t model.Ticket) error {
	return p.enqueue(p.cfg.TicketQueue, queue.NewTicketPurchased(l, t))
}

// DrawExecuted queues a draw event.
func (p *AMQPPublisher) DrawExecuted(_ context.Context, l model.Lottery, d model.Draw) error {
	return p.enqueue(p.cfg.DrawQueue, queue.NewDrawExecuted(l, d))
}

func (p *AMQPPublisher) enqueue(name string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("rabbitmq: marshal event: %w", err)
	}
	select {
	case p.events <- outbound{queue: name, body: body}:
		return nil
	default:
		metrics.RecordEvent(name, "dropped")
		return ErrPublishBufferFull
	}
}

// Run sends queued events until ctx is cancelled.  A failed send drops the
// event and the connection; the next event dials again.
func (p *AMQPPublisher) Run(ctx context.Context) error {
	defer p.reset()
	for {
		select {
		case <-ctx.Done():
			if n := len(p.events); n > 0 {
				p.log.WithField("pending", n).Warn("publisher stopped with unsent events")
			}
			return ctx.Err()
		case ev := <-p.events:
			if err := p.send(ctx, ev); err != nil {
				metrics.RecordEvent(ev.queue, "failed")
				p.log.WithError(err).WithField("queue", ev.queue).Warn("publish failed; event dropped")
				p.reset()
				continue
			}
			metrics.RecordEvent(ev.queue, "sent")
		}
	}
}

func (p *AMQPPublisher) send(ctx context.Context, ev outbound) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.connect(); err != nil {
		return err
	}
	if !p.queues[ev.queue] {
		if _, err := p.ch.QueueDeclare(ev.queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("rabbitmq: queue declare %s: %w", ev.queue, err)
		}
		p.queues[ev.queue] = true
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         ev.body,
	}
	if err := p.ch.PublishWithContext(ctx, "", ev.queue, false, false, pub); err != nil {
		return fmt.Errorf("rabbitmq: publish %s: %w", ev.queue, err)
	}
	return nil
}

// connect dials lazily.  The dial and the AMQP handshake share the publish
// timeout, so a silent broker fails fast instead of hanging.
func (p *AMQPPublisher) connect() error {
	if p.conn != nil && !p.conn.IsClosed() && p.ch != nil && !p.ch.IsClosed() {
		return nil
	}
	p.reset()
	conn, err := amqp.DialConfig(p.cfg.URL, amqp.Config{
		Dial:      amqp.DefaultDial(p.timeout),
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
	})
	if err != nil {
		return fmt.Errorf("rabbitmq: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq: channel open: %w", err)
	}
	p.conn, p.ch = conn, ch
	return nil
}

func (p *AMQPPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
	p.queues = make(map[string]bool, 2)
}
