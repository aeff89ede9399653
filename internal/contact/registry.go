package contact

import (
	"context"
	"sync"
	"time"
)

// Registry keeps one Controller per visitor session and closes forms that
// have not been touched for longer than the idle TTL.
type Registry struct {
	factory func() *Controller
	ttl     time.Duration
	now     func() time.Time

	mu    sync.Mutex
	forms map[string]*registryEntry
}

type registryEntry struct {
	controller *Controller
	lastSeen   time.Time
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithClock overrides the time source used for idle tracking.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRegistry builds a registry creating controllers with factory.
func NewRegistry(factory func() *Controller, ttl time.Duration, opts ...RegistryOption) *Registry {
	r := &Registry{
		factory: factory,
		ttl:     ttl,
		now:     time.Now,
		forms:   make(map[string]*registryEntry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the session's controller, creating it on first use or after
// the previous one was closed.
func (r *Registry) Get(sessionID string) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.forms[sessionID]
	if !ok || entry.controller.Closed() {
		entry = &registryEntry{controller: r.factory()}
		r.forms[sessionID] = entry
	}
	entry.lastSeen = r.now()
	return entry.controller
}

// Release closes and forgets the session's controller.
func (r *Registry) Release(sessionID string) {
	r.mu.Lock()
	entry, ok := r.forms[sessionID]
	delete(r.forms, sessionID)
	r.mu.Unlock()
	if ok {
		entry.controller.Close()
	}
}

// Len returns the number of live forms.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.forms)
}

// Sweep closes forms idle longer than the TTL and returns how many were
// removed. Forms with a submission in flight are kept.
func (r *Registry) Sweep() int {
	if r.ttl <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.ttl)
	var stale []*Controller

	r.mu.Lock()
	for id, entry := range r.forms {
		if entry.lastSeen.After(cutoff) || entry.controller.Status() == StatusSubmitting {
			continue
		}
		stale = append(stale, entry.controller)
		delete(r.forms, id)
	}
	r.mu.Unlock()

	for _, c := range stale {
		c.Close()
	}
	return len(stale)
}

// Run sweeps every interval until ctx is done, then closes every form.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.closeAll()
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

func (r *Registry) closeAll() {
	r.mu.Lock()
	forms := r.forms
	r.forms = make(map[string]*registryEntry)
	r.mu.Unlock()
	for _, entry := range forms {
		entry.controller.Close()
	}
}
