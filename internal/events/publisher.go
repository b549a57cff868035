// Package events publishes invoice and settlement lifecycle events for
// downstream consumers.
package events

import (
	"context"

	"github.com/segmentio/kafka-go"
)

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(writer *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

// Publish writes one message; keys follow the "<event>-<orderID>" convention,
// e.g. "invoice-created-450789469" or "order-settled-450789469".
func (p *KafkaPublisher) Publish(ctx context.Context, key string, value []byte) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	})
}
