package ecs

// Removable is implemented by every index that can reference an entity
// (collision buckets, group chains, ...), so killing an entity can purge it
// from all of them at once.
type Removable interface {
	Remove(idx Index)
}

// Registry tracks all entity indices and supports bulk purge on kill.
type Registry struct {
	stores []Removable
}

func NewRegistry() *Registry {
	return &Registry{
		stores: make([]Removable, 0, 4),
	}
}

// Register adds an index to the registry.
func (r *Registry) Register(store Removable) {
	r.stores = append(r.stores, store)
}

// RemoveAll clears the given entity from every registered index.
func (r *Registry) RemoveAll(idx Index) {
	for _, s := range r.stores {
		s.Remove(idx)
	}
}
