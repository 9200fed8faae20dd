package insights

import (
	"context"
	"fmt"
	"time"

	"billquick/backend/internal/cache"
	"billquick/backend/internal/domain"
)

// BillRecord is the JSON shape handed to an Analyzer: a recent bill with a
// human-readable creation date.
type BillRecord struct {
	CustomerName string       `json:"customer_name"`
	Items        []LineRecord `json:"items"`
	Total        string       `json:"total"`
	CreatedAt    string       `json:"created_at"`
}

type LineRecord struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
}

// Analyzer is the black-box sales-analysis boundary: recent bills in,
// insights out. One attempt, no retry.
type Analyzer interface {
	Analyze(ctx context.Context, bills []BillRecord) (domain.Insights, error)
}

type Engine struct {
	analyzer Analyzer
	cache    cache.InsightsCache
	cacheTTL time.Duration
}

func NewEngine(analyzer Analyzer, cacheStore cache.InsightsCache, cacheTTL time.Duration) *Engine {
	if cacheStore == nil {
		cacheStore = cache.NoopInsightsCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &Engine{
		analyzer: analyzer,
		cache:    cacheStore,
		cacheTTL: cacheTTL,
	}
}

// Generate analyzes the account's recent bills, serving from the TTL cache
// when a fresh result exists. Analyzer failures surface as a single generic
// error; there is no retry or backoff.
func (e *Engine) Generate(ctx context.Context, accountID string, bills []domain.Bill) (domain.Insights, error) {
	key := "insights:" + accountID
	if cached, ok, err := e.cache.Get(ctx, key); err == nil && ok {
		return *cached, nil
	}

	result, err := e.analyzer.Analyze(ctx, toRecords(bills))
	if err != nil {
		return domain.Insights{}, fmt.Errorf("analyze sales data: %w", err)
	}
	if len(result.TopSellingItems) > 5 {
		result.TopSellingItems = result.TopSellingItems[:5]
	}

	_ = e.cache.Set(ctx, key, &result, e.cacheTTL)
	return result, nil
}

func toRecords(bills []domain.Bill) []BillRecord {
	records := make([]BillRecord, 0, len(bills))
	for _, bill := range bills {
		lines := make([]LineRecord, 0, len(bill.Items))
		for _, item := range bill.Items {
			lines = append(lines, LineRecord{
				Name:     item.Name,
				Quantity: item.Quantity,
				Price:    formatCents(item.PriceCents),
			})
		}
		records = append(records, BillRecord{
			CustomerName: bill.CustomerName,
			Items:        lines,
			Total:        formatCents(bill.TotalCents),
			CreatedAt:    bill.CreatedAt.Format("Mon, 02 Jan 2006 15:04"),
		})
	}
	return records
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
