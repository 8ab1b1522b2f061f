package locator

import (
	"sort"
	"sync"
	"time"
)

// Registry holds one Controller per map instance. Instances are keyed by
// page and role, so separate visitors never share a controller.
type Registry struct {
	mu       sync.Mutex
	ctrls    map[string]*Controller
	lastUsed map[string]time.Time
	build    func(id string) *Controller
	now      func() time.Time
}

// NewRegistry creates controllers lazily with build.
func NewRegistry(build func(id string) *Controller) *Registry {
	return &Registry{
		ctrls:    make(map[string]*Controller),
		lastUsed: make(map[string]time.Time),
		build:    build,
		now:      time.Now,
	}
}

// Get returns the controller for id, creating it on first use.
func (r *Registry) Get(id string) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastUsed[id] = r.now()
	if c, ok := r.ctrls[id]; ok {
		return c
	}
	c := r.build(id)
	r.ctrls[id] = c
	return c
}

// Lookup returns an existing controller.
func (r *Registry) Lookup(id string) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.ctrls[id]
	if ok {
		r.lastUsed[id] = r.now()
	}
	return c, ok
}

// Drop closes and forgets the controller for id.
func (r *Registry) Drop(id string) {
	r.mu.Lock()
	c, ok := r.ctrls[id]
	delete(r.ctrls, id)
	delete(r.lastUsed, id)
	r.mu.Unlock()
	if ok {
		c.Close()
	}
}

// Sweep closes controllers unused for longer than idle and returns how
// many were dropped.
func (r *Registry) Sweep(idle time.Duration) int {
	r.mu.Lock()
	cutoff := r.now().Add(-idle)
	var stale []*Controller
	for id, c := range r.ctrls {
		if r.lastUsed[id].Before(cutoff) {
			stale = append(stale, c)
			delete(r.ctrls, id)
			delete(r.lastUsed, id)
		}
	}
	r.mu.Unlock()

	for _, c := range stale {
		c.Close()
	}
	return len(stale)
}

// Len returns the number of live instances.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ctrls)
}

// IDs lists the live instances.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.ctrls))
	for id := range r.ctrls {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
