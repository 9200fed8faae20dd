package inventory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"billquick/backend/internal/domain"
)

func fixedFetch(products []domain.Product) FetchFunc {
	return func(context.Context, string) ([]domain.Product, error) {
		return products, nil
	}
}

func TestLoadTransitionsEmptyToReady(t *testing.T) {
	cache := NewCache(fixedFetch([]domain.Product{
		{ID: "p-2", AccountID: "acct-1", Name: "Zebra Biscuits", Quantity: 4},
		{ID: "p-1", AccountID: "acct-1", Name: "Apple Juice", Quantity: 7},
	}))

	if cache.State() != StateEmpty {
		t.Fatalf("expected fresh cache to be empty")
	}
	if err := cache.Load(context.Background(), "acct-1"); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cache.State() != StateReady {
		t.Fatalf("expected Ready after load, got %d", cache.State())
	}

	products := cache.Products()
	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}
	if products[0].Name != "Apple Juice" {
		t.Fatalf("expected name-sorted snapshot, got %s first", products[0].Name)
	}
}

func TestLoadIsNoOpWhenAlreadyReady(t *testing.T) {
	var calls int32
	cache := NewCache(func(context.Context, string) ([]domain.Product, error) {
		atomic.AddInt32(&calls, 1)
		return []domain.Product{{ID: "p-1", Name: "Item", Quantity: 1}}, nil
	})

	for i := 0; i < 3; i++ {
		if err := cache.Load(context.Background(), "acct-1"); err != nil {
			t.Fatalf("load %d: %v", i+1, err)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected a single fetch, got %d", got)
	}
}

func TestLoadRequiresAccount(t *testing.T) {
	cache := NewCache(fixedFetch(nil))
	if err := cache.Load(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty account id")
	}
}

func TestFailedLoadLeavesCacheRetryable(t *testing.T) {
	fetchErr := errors.New("store offline")
	failing := true
	cache := NewCache(func(context.Context, string) ([]domain.Product, error) {
		if failing {
			return nil, fetchErr
		}
		return []domain.Product{{ID: "p-1", Name: "Item", Quantity: 1}}, nil
	})

	if err := cache.Load(context.Background(), "acct-1"); !errors.Is(err, fetchErr) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if cache.State() != StateEmpty {
		t.Fatalf("expected Empty after failed load, got %d", cache.State())
	}
	if !errors.Is(cache.LastErr(), fetchErr) {
		t.Fatalf("expected last error retained, got %v", cache.LastErr())
	}

	failing = false
	if err := cache.Load(context.Background(), "acct-1"); err != nil {
		t.Fatalf("retry load: %v", err)
	}
	if cache.State() != StateReady {
		t.Fatalf("expected Ready after retry, got %d", cache.State())
	}
	if cache.LastErr() != nil {
		t.Fatalf("expected last error cleared on retry, got %v", cache.LastErr())
	}
}

func TestLoadForDifferentAccountResetsSnapshot(t *testing.T) {
	cache := NewCache(func(_ context.Context, accountID string) ([]domain.Product, error) {
		return []domain.Product{{ID: "p-" + accountID, AccountID: accountID, Name: "Item", Quantity: 1}}, nil
	})

	if err := cache.Load(context.Background(), "acct-1"); err != nil {
		t.Fatalf("load acct-1: %v", err)
	}
	if err := cache.Load(context.Background(), "acct-2"); err != nil {
		t.Fatalf("load acct-2: %v", err)
	}

	if _, ok := cache.Get("p-acct-1"); ok {
		t.Fatalf("expected first account's products to be dropped")
	}
	if _, ok := cache.Get("p-acct-2"); !ok {
		t.Fatalf("expected second account's products to be present")
	}
}

func TestInsertReplaceRemoveKeepNameOrder(t *testing.T) {
	cache := NewCache(fixedFetch([]domain.Product{
		{ID: "p-1", Name: "Mango", Quantity: 1},
	}))
	if err := cache.Load(context.Background(), "acct-1"); err != nil {
		t.Fatalf("load: %v", err)
	}

	cache.Insert(domain.Product{ID: "p-2", Name: "Apple", Quantity: 2})
	products := cache.Products()
	if products[0].Name != "Apple" || products[1].Name != "Mango" {
		t.Fatalf("expected sorted order after insert, got %+v", products)
	}

	cache.Replace(domain.Product{ID: "p-2", Name: "Zucchini", Quantity: 2})
	products = cache.Products()
	if products[len(products)-1].Name != "Zucchini" {
		t.Fatalf("expected re-sort after rename, got %+v", products)
	}

	cache.Remove("p-1")
	if _, ok := cache.Get("p-1"); ok {
		t.Fatalf("expected p-1 removed")
	}
	if len(cache.Products()) != 1 {
		t.Fatalf("expected 1 product after remove, got %d", len(cache.Products()))
	}
}

func TestApplyQuantityDeltaIsLocalAndUnclamped(t *testing.T) {
	cache := NewCache(fixedFetch([]domain.Product{
		{ID: "p-1", Name: "Item", Quantity: 2},
	}))
	if err := cache.Load(context.Background(), "acct-1"); err != nil {
		t.Fatalf("load: %v", err)
	}

	cache.ApplyQuantityDelta("p-1", -5)
	got, ok := cache.Get("p-1")
	if !ok {
		t.Fatalf("expected product present")
	}
	if got.Quantity != -3 {
		t.Fatalf("expected unclamped quantity -3, got %d", got.Quantity)
	}

	// Unknown ids are ignored.
	cache.ApplyQuantityDelta("ghost", -1)
}

func TestClearDropsSnapshotAndAccount(t *testing.T) {
	cache := NewCache(fixedFetch([]domain.Product{
		{ID: "p-1", Name: "Item", Quantity: 2},
	}))
	if err := cache.Load(context.Background(), "acct-1"); err != nil {
		t.Fatalf("load: %v", err)
	}

	cache.Clear()
	if cache.State() != StateEmpty {
		t.Fatalf("expected Empty after clear, got %d", cache.State())
	}
	if len(cache.Products()) != 0 {
		t.Fatalf("expected no products after clear")
	}
}

func TestRegistryKeepsCachesIsolatedPerAccount(t *testing.T) {
	registry := NewRegistry(func(_ context.Context, accountID string) ([]domain.Product, error) {
		return []domain.Product{{ID: "p-" + accountID, AccountID: accountID, Name: "Item", Quantity: 1}}, nil
	})

	one := registry.For("acct-1")
	two := registry.For("acct-2")
	if one == two {
		t.Fatalf("expected distinct caches per account")
	}
	if registry.For("acct-1") != one {
		t.Fatalf("expected stable cache instance per account")
	}

	if err := one.Load(context.Background(), "acct-1"); err != nil {
		t.Fatalf("load: %v", err)
	}
	registry.Evict("acct-1")
	if registry.For("acct-1") == one {
		t.Fatalf("expected a fresh cache after evict")
	}
}
