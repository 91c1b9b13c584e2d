package value

import (
	"sync"

	"go.uber.org/zap"
)

// Registry tracks every Value whose handle has been given out to the host,
// keyed by the handle's address. It keeps the Value (and thus any engine
// resources it owns) alive until the host surrenders the handle.
type Registry struct {
	log *zap.Logger

	mu     sync.Mutex
	values map[*Handle]*Value
}

func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{log: log, values: make(map[*Handle]*Value)}
}

// Remember registers v and returns its handle for the host.
func (r *Registry) Remember(v *Value) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[&v.handle] = v
	return &v.handle
}

// Forget surrenders a handle. The Value's engine resources are released
// through the deferred collector; an unknown handle is logged and ignored
// rather than trusted.
func (r *Registry) Forget(h *Handle) {
	if h == nil {
		return
	}
	r.mu.Lock()
	v, ok := r.values[h]
	if ok {
		delete(r.values, h)
	}
	r.mu.Unlock()

	if !ok {
		r.log.Warn("forget of unknown value handle")
		return
	}
	v.destroy()
}

// FromHandle resolves a handle back to its Value, or nil if the handle was
// never registered or already surrendered.
func (r *Registry) FromHandle(h *Handle) *Value {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.values[h]
}

// Count returns the number of outstanding handles.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.values)
}
