package notify

import (
	"github.com/confmesh/confstore-go/internal/core/domain"
	"github.com/confmesh/confstore-go/internal/telemetry/logger"
)

// Event describes one successful store write.
type Event struct {
	// Key is the key that changed.
	Key string

	// NamespaceID is the namespace the key belongs to.
	NamespaceID uint8

	// Type is the value type after the write.
	Type domain.ValueType

	// OldValue holds the previous stored bytes, or nil when the key was
	// created by this write.
	OldValue []byte

	// NewValue holds the bytes just stored.
	NewValue []byte
}

// Created reports whether the event is a first-time key creation.
func (ev Event) Created() bool {
	return ev.OldValue == nil
}

// Func is a change callback. userData is the opaque context supplied at
// registration.
type Func func(ev Event, userData any)

type regSlot struct {
	used     bool
	gen      uint32
	wildcard bool
	key      string
	fn       Func
	userData any
}

// Registry is the fixed-capacity callback table.
type Registry struct {
	slots []regSlot
	log   logger.Logger
	fired uint64
}

// New creates a registry with capacity limits.MaxCallbacks.
func New(limits domain.Limits, log logger.Logger) *Registry {
	if log == nil {
		log = logger.Default()
	}
	r := &Registry{
		slots: make([]regSlot, limits.MaxCallbacks),
		log:   log,
	}
	for i := range r.slots {
		r.slots[i].gen = 1
	}
	return r
}

func (r *Registry) register(key string, wildcard bool, fn Func, userData any) (domain.Handle, error) {
	if fn == nil {
		return domain.Handle{}, domain.ErrInvalidParameter.WithDetails("nil callback")
	}
	for i := range r.slots {
		if !r.slots[i].used {
			r.slots[i].used = true
			r.slots[i].wildcard = wildcard
			r.slots[i].key = key
			r.slots[i].fn = fn
			r.slots[i].userData = userData
			return domain.NewHandle(i, r.slots[i].gen), nil
		}
	}
	return domain.Handle{}, domain.ErrCallbackTableFull
}

// Register subscribes fn to changes of exactly key.
func (r *Registry) Register(key string, fn Func, userData any) (domain.Handle, error) {
	if key == "" {
		return domain.Handle{}, domain.ErrInvalidParameter.WithDetails("empty key")
	}
	return r.register(key, false, fn, userData)
}

// RegisterWildcard subscribes fn to changes of every key.
func (r *Registry) RegisterWildcard(fn Func, userData any) (domain.Handle, error) {
	return r.register("", true, fn, userData)
}

// Unregister invalidates exactly one handle and frees its slot for
// reuse. Unregistering an already-invalid handle is an error, not a
// no-op.
func (r *Registry) Unregister(h domain.Handle) error {
	i := h.Slot()
	if i < 0 || i >= len(r.slots) || !r.slots[i].used || r.slots[i].gen != h.Gen() {
		return domain.ErrInvalidHandle
	}
	gen := r.slots[i].gen + 1
	r.slots[i] = regSlot{gen: gen}
	return nil
}

// Notify dispatches the event to every matching registration in slot
// order. Callers invoke this only after the store write succeeded.
func (r *Registry) Notify(ev Event) {
	for i := range r.slots {
		if !r.slots[i].used {
			continue
		}
		if !r.slots[i].wildcard && r.slots[i].key != ev.Key {
			continue
		}
		r.invoke(&r.slots[i], ev)
	}
}

// invoke runs one callback with panic isolation: one misbehaving
// observer must not block the others.
func (r *Registry) invoke(s *regSlot, ev Event) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("change callback panicked",
				"key", ev.Key,
				"namespace_id", ev.NamespaceID,
				"panic", p)
		}
	}()
	r.fired++
	s.fn(ev, s.userData)
}

// Count returns the number of live registrations.
func (r *Registry) Count() int {
	n := 0
	for i := range r.slots {
		if r.slots[i].used {
			n++
		}
	}
	return n
}

// Fired returns the total number of callback invocations, for metrics.
func (r *Registry) Fired() uint64 {
	return r.fired
}

// Reset drops every registration. Called on engine deinit.
func (r *Registry) Reset() {
	for i := range r.slots {
		gen := r.slots[i].gen
		if r.slots[i].used {
			gen++
		}
		r.slots[i] = regSlot{gen: gen}
	}
}
