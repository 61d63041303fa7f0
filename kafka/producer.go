package kafka

import (
	"checkout-service/models"
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
)

// OrderEventProducer publishes order lifecycle events, keyed by checkout
// token so all events of one checkout land in the same partition.
type OrderEventProducer struct {
	writer *kafka.Writer
}

func NewOrderEventProducer(brokers []string, topic string) *OrderEventProducer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}

	return &OrderEventProducer{writer: writer}
}

func (p *OrderEventProducer) PublishOrderCreated(ctx context.Context, event models.OrderCreatedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.CheckoutToken),
		Value: data,
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *OrderEventProducer) Close() {
	_ = p.writer.Close()
}
