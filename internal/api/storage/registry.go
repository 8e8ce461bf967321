package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cuongbtq/job-tracker/internal/api/domain"
)

// Factory returns a provider scoped to ownerID. An empty ownerID means the
// caller is anonymous.
type Factory func(ctx context.Context, ownerID string) (Provider, error)

// Registry resolves provider names to concrete providers
type Registry struct {
	mu        sync.RWMutex
	factories map[Name]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[Name]Factory)}
}

// Register adds or replaces the factory for name
func (r *Registry) Register(name Name, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Has reports whether a factory is registered for name
func (r *Registry) Has(name Name) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// Names lists the registered providers in a stable order
func (r *Registry) Names() []Name {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]Name, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Resolve builds the provider for name. The hosted backend requires an owner.
func (r *Registry) Resolve(ctx context.Context, name Name, ownerID string) (Provider, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: provider %q", domain.ErrNotConfigured, name)
	}
	if name == NameHosted && ownerID == "" {
		return nil, domain.ErrAuthRequired
	}
	return factory(ctx, ownerID)
}

// Shared wraps a single process-wide provider instance as a Factory
func Shared(p Provider) Factory {
	return func(context.Context, string) (Provider, error) {
		return p, nil
	}
}
