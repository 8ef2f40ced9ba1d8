package domain

// Handle is an opaque token referencing a slot in a fixed pool.
//
// A handle pairs the slot index with the generation counter the slot had
// when the handle was issued. Pools bump the generation on release, so a
// retained handle goes stale instead of silently aliasing the slot's next
// occupant.
type Handle struct {
	slot int
	gen  uint32
}

// NewHandle builds a handle for a pool slot. Pools call this; callers
// treat handles as opaque.
func NewHandle(slot int, gen uint32) Handle {
	return Handle{slot: slot, gen: gen}
}

// Slot returns the pool slot index.
func (h Handle) Slot() int { return h.slot }

// Gen returns the generation the handle was issued under.
func (h Handle) Gen() uint32 { return h.gen }

// IsZero reports whether the handle was never issued.
func (h Handle) IsZero() bool { return h.gen == 0 }
