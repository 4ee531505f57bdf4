package entity

import (
	"context"
	"sort"
	"time"
)

// Store gives the attendance core access to one entity collection. Each
// implementation is bound to a single entity type at construction; the core
// never resolves collections dynamically by name.
type Store interface {
	// GetByID retrieves an entity with tenant isolation.
	GetByID(ctx context.Context, tenantID, entityID string) (Entity, error)

	// UpdateSession replaces the cached current-session projection.
	UpdateSession(ctx context.Context, tenantID, entityID string, session CurrentSession) error

	// UpdateStats replaces the cached engagement snapshot.
	UpdateStats(ctx context.Context, tenantID, entityID string, stats Stats) error

	// ListActiveSessions returns entities whose projection is active and
	// whose expected check-out time is before the cutoff.
	ListActiveSessions(ctx context.Context, tenantID string, cutoff time.Time) ([]Entity, error)
}

// Registry maps entity-type tags to their stores. It is populated once at
// startup; a type outside the registry is not an allowed attendance target.
type Registry struct {
	stores map[string]Store
}

func NewRegistry() *Registry {
	return &Registry{stores: make(map[string]Store)}
}

// Register binds an entity type tag to its store.
func (r *Registry) Register(entityType string, store Store) {
	r.stores[entityType] = store
}

// Resolve returns the store for an entity type, or ErrTypeNotAllowed.
func (r *Registry) Resolve(entityType string) (Store, error) {
	store, ok := r.stores[entityType]
	if !ok {
		return nil, ErrTypeNotAllowed
	}
	return store, nil
}

// Types returns the registered entity type tags in stable order.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.stores))
	for t := range r.stores {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
