package billing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"billquick/backend/internal/domain"
	"billquick/backend/internal/inventory"
)

var (
	// ErrInvalidItems is a structural validation failure. No store access
	// has occurred when it is returned.
	ErrInvalidItems = errors.New("all items need a selected product and a positive quantity")
	ErrNoAccount    = errors.New("account id required")
)

// InsufficientStockError names the first offending product, in cart order,
// with its last-known availability. It is raised from the cached snapshot
// before any store-mutating call is issued.
type InsufficientStockError struct {
	ProductName string
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for %s (available: %d)", e.ProductName, e.Available)
}

type ItemFailure struct {
	ProductID string
	Quantity  int
	Err       error
}

// PartialInventoryError reports a bill that was durably persisted while one
// or more inventory decrements failed. Callers must not treat it as "nothing
// happened": the sale is recorded and resubmitting would double-count.
type PartialInventoryError struct {
	Bill     domain.Bill
	Failures []ItemFailure
}

func (e *PartialInventoryError) Error() string {
	ids := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		ids = append(ids, f.ProductID)
	}
	return fmt.Sprintf("bill %s persisted but %d inventory decrement(s) failed: %s",
		e.Bill.ID, len(e.Failures), strings.Join(ids, ", "))
}

// InventoryStore is the slice of the persistence boundary the workflow
// needs: the durable bill write plus the atomic relative adjustment.
type InventoryStore interface {
	CreateBill(ctx context.Context, bill domain.Bill) (*domain.Bill, error)
	AdjustProductQuantity(ctx context.Context, accountID string, productID string, delta int) error
}

// CacheProvider hands out the session inventory snapshot per account.
type CacheProvider interface {
	For(accountID string) *inventory.Cache
}

// Workflow is the bill transaction: the only multi-step, ordered,
// partial-failure-sensitive operation in the system.
type Workflow struct {
	repo   InventoryStore
	caches CacheProvider
}

func NewWorkflow(repo InventoryStore, caches CacheProvider) *Workflow {
	return &Workflow{repo: repo, caches: caches}
}

// Submit validates a candidate bill against the cached inventory, persists
// it, and applies the per-item stock decrements.
//
// The sequence is strict: structural validation, then a point-in-time stock
// check against the cache (a best-effort guard, not a guarantee), then total
// computation from cached prices, then the durable CreateBill write, then
// per-item decrements dispatched concurrently. All decrements are issued and
// awaited regardless of sibling failures. CreateBill is the durability
// boundary: once it succeeds the sale stays recorded no matter what happens
// to the decrements, and any decrement failure is surfaced as a distinct
// *PartialInventoryError rather than a generic failure.
//
// There is no locking across submissions: two concurrent bills can both pass
// the stock check against the same stale snapshot and drive a quantity
// negative. That is an accepted gap, not a guarantee.
func (w *Workflow) Submit(ctx context.Context, accountID string, customerName string, selections []domain.BillItemSelection) (*domain.Bill, error) {
	if accountID == "" {
		return nil, ErrNoAccount
	}
	if len(selections) == 0 {
		return nil, ErrInvalidItems
	}
	for _, sel := range selections {
		if sel.ProductID == "" || sel.Quantity <= 0 {
			return nil, ErrInvalidItems
		}
	}

	cache := w.caches.For(accountID)
	if err := cache.Load(ctx, accountID); err != nil {
		return nil, fmt.Errorf("hydrate inventory: %w", err)
	}

	items := make([]domain.BillItem, 0, len(selections))
	total := int64(0)
	for _, sel := range selections {
		product, ok := cache.Get(sel.ProductID)
		if !ok {
			return nil, &InsufficientStockError{ProductName: sel.ProductID, Available: 0}
		}
		if product.Quantity < sel.Quantity {
			return nil, &InsufficientStockError{ProductName: product.Name, Available: product.Quantity}
		}
		items = append(items, domain.BillItem{
			ProductID:  product.ID,
			Name:       product.Name,
			PriceCents: product.PriceCents,
			Quantity:   sel.Quantity,
		})
		total += product.PriceCents * int64(sel.Quantity)
	}

	customerName = strings.TrimSpace(customerName)
	if customerName == "" {
		customerName = domain.DefaultCustomerName
	}

	created, err := w.repo.CreateBill(ctx, domain.Bill{
		AccountID:    accountID,
		CustomerName: customerName,
		Items:        items,
		TotalCents:   total,
	})
	if err != nil {
		return nil, fmt.Errorf("persist bill: %w", err)
	}

	// Durability point passed. Decrement every item: the local snapshot
	// synchronously, the store concurrently. Siblings are never cancelled;
	// the workflow settles all decrements before declaring the outcome.
	var wg sync.WaitGroup
	var mu sync.Mutex
	var failures []ItemFailure
	for _, item := range created.Items {
		cache.ApplyQuantityDelta(item.ProductID, -item.Quantity)
		wg.Add(1)
		go func(item domain.BillItem) {
			defer wg.Done()
			if err := w.repo.AdjustProductQuantity(ctx, accountID, item.ProductID, -item.Quantity); err != nil {
				mu.Lock()
				failures = append(failures, ItemFailure{ProductID: item.ProductID, Quantity: item.Quantity, Err: err})
				mu.Unlock()
			}
		}(item)
	}
	wg.Wait()

	if len(failures) > 0 {
		sort.Slice(failures, func(i, j int) bool { return failures[i].ProductID < failures[j].ProductID })
		return created, &PartialInventoryError{Bill: *created, Failures: failures}
	}
	return created, nil
}
