// Package registry keeps exactly one sequence allocator per account address
// within the process. Two allocators over the same account would issue
// conflicting numbers, so all lookups funnel through here.
package registry

import (
	"sort"
	"sync"

	"tessera-ledger/go-client/internal/sequence"
)

type Factory func(address string) (*sequence.Allocator, error)

type Registry struct {
	factory Factory

	mu        sync.Mutex
	byAddress map[string]*sequence.Allocator
}

func New(factory Factory) *Registry {
	return &Registry{
		factory:   factory,
		byAddress: make(map[string]*sequence.Allocator),
	}
}

// Get returns the allocator for address, constructing it on first use.
// Concurrent calls for the same address observe the same instance.
func (r *Registry) Get(address string) (*sequence.Allocator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.byAddress[address]; ok {
		return a, nil
	}
	a, err := r.factory(address)
	if err != nil {
		return nil, err
	}
	r.byAddress[address] = a
	return a, nil
}

// Addresses lists the accounts with a live allocator, sorted for stable
// status output.
func (r *Registry) Addresses() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.byAddress))
	for address := range r.byAddress {
		out = append(out, address)
	}
	sort.Strings(out)
	return out
}
