package knowledge

import (
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"hexowl/internal/logging"
	"hexowl/internal/metrics"
)

// OpenFunc builds a context for an absolute location.
type OpenFunc func(location string) (*Context, error)

type registryEntry struct {
	ctx *Context
	err error
}

// Registry hands out one Context per store location for the lifetime of the
// registry. Construction of different locations runs concurrently; concurrent
// requests for the same new location share one construction. Failures are
// remembered and returned to every later caller.
type Registry struct {
	open OpenFunc

	mu      sync.RWMutex
	entries map[string]registryEntry
	group   singleflight.Group
	closed  bool
}

// NewRegistry returns a registry that opens contexts with opts.
func NewRegistry(opts Options) *Registry {
	return NewRegistryWith(func(location string) (*Context, error) {
		return Open(location, opts)
	})
}

// NewRegistryWith returns a registry using a custom constructor.
func NewRegistryWith(open OpenFunc) *Registry {
	return &Registry{open: open, entries: make(map[string]registryEntry)}
}

// Get returns the context for location, creating it on first use.
func (r *Registry) Get(location string) (*Context, error) {
	key, err := filepath.Abs(location)
	if err != nil {
		key = location
	}

	r.mu.RLock()
	e, ok := r.entries[key]
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	if ok {
		return e.ctx, e.err
	}

	v, _, _ := r.group.Do(key, func() (interface{}, error) {
		r.mu.RLock()
		e, ok := r.entries[key]
		r.mu.RUnlock()
		if ok {
			return e, nil
		}

		logging.RegistryDebug("creating store context for %s", key)
		ctx, err := r.open(key)
		e = registryEntry{ctx: ctx, err: err}
		if err != nil {
			logging.Get(logging.CategoryRegistry).Error("store context %s failed: %v", key, err)
		} else {
			metrics.ContextOpened()
			logging.Audit().ContextEvent(key, true)
			logging.Registry("store context %s ready", key)
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		if r.closed {
			if ctx != nil {
				ctx.Teardown()
				metrics.ContextClosed()
			}
			return registryEntry{err: ErrClosed}, nil
		}
		r.entries[key] = e
		return e, nil
	})
	e = v.(registryEntry)
	return e.ctx, e.err
}

// Tag returns the content tag of the context at location.
func (r *Registry) Tag(location string) (string, error) {
	ctx, err := r.Get(location)
	if err != nil {
		return "", err
	}
	return ctx.Tag(), nil
}

// Locations returns the keys of every cached entry, failed ones included.
func (r *Registry) Locations() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.entries))
	for k := range r.entries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Close tears down every context. Later Get calls return ErrClosed.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	for key, e := range r.entries {
		if e.ctx != nil {
			e.ctx.Teardown()
			metrics.ContextClosed()
			logging.Audit().ContextEvent(key, false)
		}
		delete(r.entries, key)
	}
	logging.Registry("registry closed")
}
