package events

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	kafka "github.com/segmentio/kafka-go"
)

type KafkaProducer struct {
	writer *kafka.Writer
}

func NewKafkaProducer(brokers string, topic string) *KafkaProducer {
	if topic == "" {
		topic = "billquick-events"
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(brokers, ",")...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}
	return &KafkaProducer{writer: writer}
}

func (p *KafkaProducer) PublishBillCreated(ctx context.Context, event BillCreatedEvent) error {
	return p.publish(ctx, event.EventID, event)
}

func (p *KafkaProducer) PublishStockAdjusted(ctx context.Context, event StockAdjustedEvent) error {
	return p.publish(ctx, event.EventID, event)
}

func (p *KafkaProducer) PublishProductCreated(ctx context.Context, event ProductCreatedEvent) error {
	return p.publish(ctx, event.EventID, event)
}

func (p *KafkaProducer) publish(ctx context.Context, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := p.writer.WriteMessages(writeCtx, kafka.Message{
		Key:   []byte(key),
		Value: payload,
	}); err != nil {
		log.Printf("[events] publish failed key=%s: %v", key, err)
		return err
	}
	return nil
}

func (p *KafkaProducer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
