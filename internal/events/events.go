package events

import (
	"context"
	"time"
)

type BillItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
}

type BillCreatedEvent struct {
	EventID    string     `json:"event_id"`
	BillID     string     `json:"bill_id"`
	AccountID  string     `json:"account_id"`
	TotalCents int64      `json:"total_cents"`
	Items      []BillItem `json:"items"`
	Partial    bool       `json:"partial"`
	Timestamp  time.Time  `json:"timestamp"`
}

type StockAdjustedEvent struct {
	EventID   string    `json:"event_id"`
	AccountID string    `json:"account_id"`
	ProductID string    `json:"product_id"`
	Delta     int       `json:"delta"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

type ProductCreatedEvent struct {
	EventID    string    `json:"event_id"`
	AccountID  string    `json:"account_id"`
	ProductID  string    `json:"product_id"`
	Name       string    `json:"name"`
	PriceCents int64     `json:"price_cents"`
	Quantity   int       `json:"quantity"`
	Timestamp  time.Time `json:"timestamp"`
}

// Producer publishes domain events. Publishing is best-effort: callers log
// failures but never fail a request over them.
type Producer interface {
	PublishBillCreated(ctx context.Context, event BillCreatedEvent) error
	PublishStockAdjusted(ctx context.Context, event StockAdjustedEvent) error
	PublishProductCreated(ctx context.Context, event ProductCreatedEvent) error
	Close() error
}

type NoopProducer struct{}

func (NoopProducer) PublishBillCreated(_ context.Context, _ BillCreatedEvent) error { return nil }

func (NoopProducer) PublishStockAdjusted(_ context.Context, _ StockAdjustedEvent) error { return nil }

func (NoopProducer) PublishProductCreated(_ context.Context, _ ProductCreatedEvent) error {
	return nil
}

func (NoopProducer) Close() error { return nil }
