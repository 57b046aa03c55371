package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

var ErrQueueFull = errors.New("event queue is full")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher queues events in memory and writes them from a background
// loop, so a slow or absent broker never stalls a checkout.
type KafkaPublisher struct {
	writer       messageWriter
	queue        chan kafka.Message
	writeTimeout time.Duration
	log          *slog.Logger
	wg           sync.WaitGroup
	closeOnce    sync.Once
}

func NewKafkaPublisher(topic string, log *slog.Logger, brokers ...string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return newPublisher(w, 256, log)
}

func newPublisher(w messageWriter, size int, log *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer:       w,
		queue:        make(chan kafka.Message, size),
		writeTimeout: 5 * time.Second,
		log:          log,
	}
}

// Publish enqueues e. It never blocks on the broker.
func (p *KafkaPublisher) Publish(_ context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(e.OrderID), // per-order ordering
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Type)},
		},
	}

	select {
	case p.queue <- msg:
		return nil
	default:
		p.log.Warn("dropping event, queue full", "event_type", e.Type, "order_id", e.OrderID)
		return ErrQueueFull
	}
}

// Start writes queued events in the background until ctx is done, then
// flushes what is left. Close waits for that flush.
func (p *KafkaPublisher) Start(ctx context.Context) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.run(ctx)
	}()
}

func (p *KafkaPublisher) run(ctx context.Context) {
	for {
		select {
		case msg := <-p.queue:
			p.write(msg)
		case <-ctx.Done():
			p.drain()
			return
		}
	}
}

func (p *KafkaPublisher) drain() {
	for {
		select {
		case msg := <-p.queue:
			p.write(msg)
		default:
			return
		}
	}
}

func (p *KafkaPublisher) write(msg kafka.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), p.writeTimeout)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Error("failed to publish event", "key", string(msg.Key), "error", err)
	}
}

// Close waits for the Start loop to return and closes the writer.
func (p *KafkaPublisher) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.wg.Wait()
		err = p.writer.Close()
	})
	return err
}
