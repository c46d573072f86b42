// Package consumer bridges delivery events published on Kafka by the order and dispatch services
// into the delivery broadcaster.
package consumer

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"laundry-ops/backend/internal/delivery/domain"
	"laundry-ops/backend/internal/realtime"
)

// Reader is the part of *kafka.Reader the consumer uses.
type Reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Publisher sends a decoded event to subscribers.
type Publisher interface {
	Publish(ctx context.Context, ev domain.Event) (realtime.Delivery, error)
}

// Consumer reads delivery events and publishes them. Malformed events are logged and skipped.
type Consumer struct {
	reader    Reader
	publisher Publisher
	backoff   time.Duration
}

// NewKafkaReader returns a group reader for topic. Returns nil when brokers or topic is empty.
func NewKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        time.Second,
		CommitInterval: time.Second,
	})
}

// New returns a Consumer reading from reader.
func New(reader Reader, publisher Publisher) *Consumer {
	return &Consumer{reader: reader, publisher: publisher, backoff: time.Second}
}

// Run consumes until ctx is done, then closes the reader. Read errors are retried after a short pause.
func (c *Consumer) Run(ctx context.Context) error {
	defer func() {
		if err := c.reader.Close(); err != nil {
			log.Printf("delivery: consumer close: %v", err)
		}
	}()
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			log.Printf("delivery: consumer read: %v", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.backoff):
			}
			continue
		}
		c.handle(ctx, msg)
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	ev, err := domain.DecodeEvent(msg.Value)
	if err != nil {
		log.Printf("delivery: skip event at %s/%d offset %d: %v", msg.Topic, msg.Partition, msg.Offset, err)
		return
	}
	if _, err := c.publisher.Publish(ctx, ev); err != nil {
		log.Printf("delivery: publish %s for order %s: %v", ev.Type(), ev.Order(), err)
	}
}
