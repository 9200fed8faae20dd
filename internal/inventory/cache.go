package inventory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"billquick/backend/internal/domain"
)

// FetchFunc hydrates a cache from the authoritative store.
type FetchFunc func(ctx context.Context, accountID string) ([]domain.Product, error)

type State int

const (
	StateEmpty State = iota
	StateLoading
	StateReady
)

// Cache mirrors one account's inventory for instant reads. It is the
// display-authoritative snapshot: after any successful store mutation the
// caller applies the same logical change here in the same logical step, so
// cache and store never observably diverge within a session. Concurrent
// writers from other sessions are not reconciled except by a full reload.
type Cache struct {
	mu        sync.Mutex
	fetch     FetchFunc
	state     State
	accountID string
	products  []domain.Product
	lastErr   error
}

func NewCache(fetch FetchFunc) *Cache {
	return &Cache{fetch: fetch}
}

// Load hydrates the cache for accountID. It is a no-op when the cache is
// already Ready or Loading for the same account; switching accounts resets
// the snapshot first. A failed load leaves the cache Empty and retryable.
func (c *Cache) Load(ctx context.Context, accountID string) error {
	if accountID == "" {
		return domainErrNoAccount
	}

	c.mu.Lock()
	if c.accountID != accountID {
		c.reset()
		c.accountID = accountID
	}
	if c.state == StateReady || c.state == StateLoading {
		c.mu.Unlock()
		return nil
	}
	c.state = StateLoading
	c.lastErr = nil
	c.mu.Unlock()

	products, err := c.fetch(ctx, accountID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.accountID != accountID {
		// Account switched while the fetch was in flight; drop the result.
		return nil
	}
	if err != nil {
		c.state = StateEmpty
		c.lastErr = err
		return err
	}
	c.products = make([]domain.Product, len(products))
	copy(c.products, products)
	c.sortLocked()
	c.state = StateReady
	return nil
}

func (c *Cache) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Cache) LastErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Products returns a name-ordered copy of the snapshot.
func (c *Cache) Products() []domain.Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Product, len(c.products))
	copy(out, c.products)
	return out
}

func (c *Cache) Get(productID string) (domain.Product, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.products {
		if p.ID == productID {
			return p, true
		}
	}
	return domain.Product{}, false
}

func (c *Cache) Insert(product domain.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products = append(c.products, product)
	c.sortLocked()
}

func (c *Cache) Replace(product domain.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.products {
		if c.products[i].ID == product.ID {
			c.products[i] = product
			break
		}
	}
	c.sortLocked()
}

func (c *Cache) Remove(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.products[:0]
	for _, p := range c.products {
		if p.ID != productID {
			kept = append(kept, p)
		}
	}
	c.products = kept
}

// ApplyQuantityDelta mirrors a store-side quantity adjustment locally.
// It never calls the store itself.
func (c *Cache) ApplyQuantityDelta(productID string, delta int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.products {
		if c.products[i].ID == productID {
			c.products[i].Quantity += delta
			return
		}
	}
}

// Clear drops the snapshot on sign-out so one account's inventory view
// never leaks into another session.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
	c.accountID = ""
}

func (c *Cache) reset() {
	c.state = StateEmpty
	c.products = nil
	c.lastErr = nil
}

func (c *Cache) sortLocked() {
	slices.SortStableFunc(c.products, func(a, b domain.Product) int {
		return strings.Compare(a.Name, b.Name)
	})
}
