package manager

import (
	"sort"
	"sync"

	"go.uber.org/multierr"
)

// closer is the part of a device the registry needs.
type closer interface {
	Close() error
}

// Registry maps device ids to devices. All methods are safe for concurrent
// use; Range iterates over a snapshot so callbacks may attach or detach.
type Registry[D closer] struct {
	mu      sync.RWMutex
	devices map[string]D
}

// NewRegistry returns an empty registry.
func NewRegistry[D closer]() *Registry[D] {
	return &Registry[D]{devices: make(map[string]D)}
}

// Attach stores dev under id and returns the device it replaced, if any.
// The replaced device is not closed.
func (r *Registry[D]) Attach(id string, dev D) (prev D, replaced bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, replaced = r.devices[id]
	r.devices[id] = dev
	return prev, replaced
}

// Detach removes id and returns the device that was stored.
func (r *Registry[D]) Detach(id string) (dev D, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	dev, ok = r.devices[id]
	delete(r.devices, id)
	return dev, ok
}

// DetachIf removes id only while it still maps to dev according to same.
func (r *Registry[D]) DetachIf(id string, same func(D) bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	dev, ok := r.devices[id]
	if !ok || !same(dev) {
		return false
	}
	delete(r.devices, id)
	return true
}

// Lookup returns the device attached under id.
func (r *Registry[D]) Lookup(id string) (D, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	dev, ok := r.devices[id]
	return dev, ok
}

// IDs returns the attached ids in sorted order.
func (r *Registry[D]) IDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.devices))
	for id := range r.devices {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Len returns the number of attached devices.
func (r *Registry[D]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// Range calls fn for every attached device.
func (r *Registry[D]) Range(fn func(id string, dev D)) {
	r.mu.RLock()
	snapshot := make(map[string]D, len(r.devices))
	for id, dev := range r.devices {
		snapshot[id] = dev
	}
	r.mu.RUnlock()

	for id, dev := range snapshot {
		fn(id, dev)
	}
}

// CloseAll detaches and closes every device, combining their close errors.
func (r *Registry[D]) CloseAll() error {
	r.mu.Lock()
	devices := r.devices
	r.devices = make(map[string]D)
	r.mu.Unlock()

	var err error
	for _, dev := range devices {
		err = multierr.Append(err, dev.Close())
	}
	return err
}
