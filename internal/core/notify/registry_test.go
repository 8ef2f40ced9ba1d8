package notify

import (
	"errors"
	"testing"

	"github.com/confmesh/confstore-go/internal/core/domain"
)

func newRegistry(max int) *Registry {
	limits := domain.DefaultLimits()
	limits.MaxCallbacks = max
	return New(limits, nil)
}

func TestRegistry_ExactAndWildcardMatching(t *testing.T) {
	r := newRegistry(8)

	var gotA, gotB, gotWild int
	if _, err := r.Register("a", func(ev Event, _ any) { gotA++ }, nil); err != nil {
		t.Fatalf("Register a: %v", err)
	}
	if _, err := r.Register("b", func(ev Event, _ any) { gotB++ }, nil); err != nil {
		t.Fatalf("Register b: %v", err)
	}
	if _, err := r.RegisterWildcard(func(ev Event, _ any) { gotWild++ }, nil); err != nil {
		t.Fatalf("RegisterWildcard: %v", err)
	}

	r.Notify(Event{Key: "a", Type: domain.TypeBool, NewValue: []byte{1}})

	if gotA != 1 || gotB != 0 || gotWild != 1 {
		t.Fatalf("invocations a=%d b=%d wild=%d, want 1 0 1", gotA, gotB, gotWild)
	}
}

func TestRegistry_UserData(t *testing.T) {
	r := newRegistry(4)

	type ctx struct{ n int }
	c := &ctx{}
	if _, err := r.Register("k", func(ev Event, userData any) {
		userData.(*ctx).n++
	}, c); err != nil {
		t.Fatalf("Register: %v", err)
	}

	r.Notify(Event{Key: "k"})
	if c.n != 1 {
		t.Fatalf("user data not threaded through: %d", c.n)
	}
}

func TestRegistry_PanicIsolation(t *testing.T) {
	r := newRegistry(4)

	ran := false
	if _, err := r.Register("k", func(Event, any) { panic("observer bug") }, nil); err != nil {
		t.Fatalf("Register panicking: %v", err)
	}
	if _, err := r.Register("k", func(Event, any) { ran = true }, nil); err != nil {
		t.Fatalf("Register second: %v", err)
	}

	r.Notify(Event{Key: "k"})
	if !ran {
		t.Fatalf("panicking callback blocked the next one")
	}
}

func TestRegistry_OldValueAbsentOnCreate(t *testing.T) {
	r := newRegistry(4)

	var created, oldVal []byte
	var sawCreate bool
	r.RegisterWildcard(func(ev Event, _ any) {
		sawCreate = ev.Created()
		created = ev.NewValue
		oldVal = ev.OldValue
	}, nil)

	r.Notify(Event{Key: "k", NewValue: []byte{7}})
	if !sawCreate || oldVal != nil || created[0] != 7 {
		t.Fatalf("create event = created:%v old:%v new:%v", sawCreate, oldVal, created)
	}

	r.Notify(Event{Key: "k", OldValue: []byte{7}, NewValue: []byte{8}})
	if sawCreate {
		t.Fatalf("update event reported as create")
	}
}

func TestRegistry_UnregisterStaleHandle(t *testing.T) {
	r := newRegistry(4)

	h, err := r.Register("k", func(Event, any) {}, nil)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Unregister(h); err != nil {
		t.Fatalf("Unregister: %v", err)
	}
	if err := r.Unregister(h); !errors.Is(err, domain.ErrInvalidHandle) {
		t.Fatalf("second Unregister err = %v, want %v", err, domain.ErrInvalidHandle)
	}
	if r.Count() != 0 {
		t.Fatalf("Count = %d, want 0", r.Count())
	}
}

func TestRegistry_SlotReuseInvalidatesOldHandle(t *testing.T) {
	r := newRegistry(1)

	h1, err := r.Register("k", func(Event, any) {}, nil)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Unregister(h1); err != nil {
		t.Fatalf("Unregister: %v", err)
	}

	h2, err := r.Register("k", func(Event, any) {}, nil)
	if err != nil {
		t.Fatalf("Register reuse: %v", err)
	}
	if h2.Slot() != h1.Slot() {
		t.Fatalf("slot not reused")
	}
	if err := r.Unregister(h1); !errors.Is(err, domain.ErrInvalidHandle) {
		t.Fatalf("old handle err = %v, want %v", err, domain.ErrInvalidHandle)
	}
}

func TestRegistry_TableFull(t *testing.T) {
	r := newRegistry(2)

	for i := 0; i < 2; i++ {
		if _, err := r.Register("k", func(Event, any) {}, nil); err != nil {
			t.Fatalf("Register %d: %v", i, err)
		}
	}
	if _, err := r.Register("k", func(Event, any) {}, nil); !errors.Is(err, domain.ErrCallbackTableFull) {
		t.Fatalf("err = %v, want %v", err, domain.ErrCallbackTableFull)
	}
}
