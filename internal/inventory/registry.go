package inventory

import (
	"errors"
	"sync"
)

var domainErrNoAccount = errors.New("account id required")

// Registry hands out one Cache per account so concurrent sessions for
// different accounts never share a snapshot.
type Registry struct {
	mu     sync.Mutex
	fetch  FetchFunc
	caches map[string]*Cache
}

func NewRegistry(fetch FetchFunc) *Registry {
	return &Registry{
		fetch:  fetch,
		caches: make(map[string]*Cache),
	}
}

func (r *Registry) For(accountID string) *Cache {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.caches[accountID]
	if !ok {
		c = NewCache(r.fetch)
		r.caches[accountID] = c
	}
	return c
}

// Evict clears and forgets the account's cache. Called on logout.
func (r *Registry) Evict(accountID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.caches[accountID]; ok {
		c.Clear()
		delete(r.caches, accountID)
	}
}
