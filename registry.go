package resourcecache

import "sync"

type slotID uint64

// Registry maps runtime handles to the Cache that owns each runtime. It
// does not own the caches: handles point at slots, and unregistering
// invalidates the slot so a concurrent lookup can never observe a cache
// that has started closing.
type Registry struct {
	mu       sync.Mutex
	next     slotID
	byHandle map[Handle]slotID
	slots    map[slotID]*Cache
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byHandle: make(map[Handle]slotID),
		slots:    make(map[slotID]*Cache),
	}
}

// Register binds h to c. A handle that already has a live cache is
// rejected with CodeAlreadyRegistered.
func (r *Registry) Register(h Handle, c *Cache) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byHandle[h]; ok {
		return WithMetadata(CodeAlreadyRegistered, "runtime already has a resource cache", map[string]string{
			"runtime": string(h),
		})
	}
	r.next++
	r.byHandle[h] = r.next
	r.slots[r.next] = c
	return nil
}

// Lookup returns the cache registered for h.
func (r *Registry) Lookup(h Handle) (*Cache, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byHandle[h]
	if !ok {
		return nil, false
	}
	c, ok := r.slots[id]
	return c, ok
}

// Unregister removes the entry for h if present.
func (r *Registry) Unregister(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byHandle[h]
	if !ok {
		return
	}
	delete(r.slots, id)
	delete(r.byHandle, h)
}

// Len returns the number of registered caches.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byHandle)
}
