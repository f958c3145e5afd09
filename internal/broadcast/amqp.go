// Package broadcast forwards table events to a RabbitMQ topic exchange so
// services outside the table server can follow play.
package broadcast

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/lox/holdemtable/internal/game"
	"github.com/lox/holdemtable/internal/protocol"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

// ExchangeKind is the AMQP exchange type used for notifications
const ExchangeKind = "topic"

// QueueSize is how many events may wait for the broker before new ones are dropped
const QueueSize = 1024

// Channel is the part of *amqp.Channel the publisher uses
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher publishes every table event it receives as a JSON notification
// with routing key holdem.<table>.<event>. Events are queued and sent by a
// single worker, so a slow broker never holds up the table.
type Publisher struct {
	exchange string
	channel  Channel
	conn     *amqp.Connection
	logger   zerolog.Logger

	queue     chan game.GameEvent
	done      chan struct{}
	sendMu    sync.Mutex
	closeOnce sync.Once
	closeErr  error

	mu        sync.Mutex
	closing   bool
	published uint64
	failed    uint64
}

// Dial connects to the broker at url and declares the exchange
func Dial(url, exchange string, logger zerolog.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	p, err := NewPublisher(ch, exchange, logger)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

// NewPublisher declares a durable topic exchange on ch and starts the send worker
func NewPublisher(ch Channel, exchange string, logger zerolog.Logger) (*Publisher, error) {
	return newPublisher(ch, exchange, logger, QueueSize)
}

func newPublisher(ch Channel, exchange string, logger zerolog.Logger, queueSize int) (*Publisher, error) {
	if exchange == "" {
		return nil, fmt.Errorf("exchange name is required")
	}
	if err := ch.ExchangeDeclare(exchange, ExchangeKind, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	p := &Publisher{
		exchange: exchange,
		channel:  ch,
		logger:   logger.With().Str("component", "broadcast").Logger(),
		queue:    make(chan game.GameEvent, queueSize),
		done:     make(chan struct{}),
	}
	go p.run()
	return p, nil
}

func (p *Publisher) run() {
	defer close(p.done)
	for e := range p.queue {
		if err := p.Publish(e); err != nil {
			p.logger.Warn().Err(err).Str("table", e.TableID()).Stringer("event", e.EventType()).Msg("Failed to publish event")
		}
	}
}

// RoutingKey returns the topic for an event. Dots in table names are
// replaced so the key always has three words.
func RoutingKey(e game.GameEvent) string {
	table := strings.ReplaceAll(e.TableID(), ".", "_")
	return "holdem." + table + "." + e.EventType().String()
}

// OnEvent implements game.EventSubscriber. It only queues the event; send
// failures and drops are logged and counted and never reach the table.
func (p *Publisher) OnEvent(e game.GameEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closing {
		p.failed++
		return
	}
	select {
	case p.queue <- e:
	default:
		p.failed++
		p.logger.Warn().Str("table", e.TableID()).Stringer("event", e.EventType()).Msg("Publish queue full, dropping event")
	}
}

// Publish sends one event to the exchange and waits for the channel to accept it
func (p *Publisher) Publish(e game.GameEvent) error {
	body, err := json.Marshal(protocol.NewEvent(e))
	if err != nil {
		p.count(err)
		return err
	}

	headers := amqp.Table{
		"table": e.TableID(),
		"event": e.EventType().String(),
	}
	if h, ok := e.(interface{ HandID() string }); ok && h.HandID() != "" {
		headers["hand"] = h.HandID()
	}

	p.sendMu.Lock()
	err = p.channel.Publish(
		p.exchange,    // exchange
		RoutingKey(e), // routing key
		false,         // mandatory
		false,         // immediate
		amqp.Publishing{
			Headers:         headers,
			ContentType:     "application/json",
			ContentEncoding: "utf-8",
			MessageId:       uuid.NewString(),
			Body:            body,
			DeliveryMode:    amqp.Persistent,
			Timestamp:       e.Timestamp(),
		},
	)
	p.sendMu.Unlock()
	p.count(err)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

func (p *Publisher) count(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.failed++
	} else {
		p.published++
	}
}

// Stats returns how many events were published and how many failed
func (p *Publisher) Stats() (published, failed uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.published, p.failed
}

// Close sends whatever is still queued, then closes the channel and, when the
// publisher dialled it, the connection. Events arriving afterwards are counted
// as failed.
func (p *Publisher) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closing = true
		close(p.queue)
		p.mu.Unlock()
		<-p.done

		p.closeErr = p.channel.Close()
		if p.conn != nil {
			if err := p.conn.Close(); p.closeErr == nil {
				p.closeErr = err
			}
		}
	})
	return p.closeErr
}
