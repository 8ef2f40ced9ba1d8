package namespace

import (
	"errors"
	"testing"

	"github.com/confmesh/confstore-go/internal/core/domain"
	"github.com/confmesh/confstore-go/internal/core/store"
)

func newManager(t *testing.T) (*Manager, *store.Table) {
	t.Helper()
	limits := domain.DefaultLimits()
	limits.MaxNamespaces = 4
	limits.MaxHandles = 4
	tb := store.New(limits)
	return New(limits, tb), tb
}

func TestManager_CreateOrGetIdempotent(t *testing.T) {
	m, _ := newManager(t)

	id1, err := m.CreateOrGet("wifi")
	if err != nil {
		t.Fatalf("CreateOrGet: %v", err)
	}
	id2, err := m.CreateOrGet("wifi")
	if err != nil {
		t.Fatalf("CreateOrGet again: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("ids differ: %d vs %d", id1, id2)
	}
	if id1 == domain.DefaultNamespaceID {
		t.Fatalf("new namespace got the default id")
	}
	if m.Count() != 2 {
		t.Fatalf("Count = %d, want 2", m.Count())
	}
}

func TestManager_DefaultNamespaceExists(t *testing.T) {
	m, _ := newManager(t)

	id, err := m.GetID(DefaultName)
	if err != nil {
		t.Fatalf("GetID default: %v", err)
	}
	if id != domain.DefaultNamespaceID {
		t.Fatalf("default id = %d, want %d", id, domain.DefaultNamespaceID)
	}
}

func TestManager_NameValidation(t *testing.T) {
	m, _ := newManager(t)

	if _, err := m.CreateOrGet(""); !errors.Is(err, domain.ErrInvalidParameter) {
		t.Fatalf("empty name err = %v", err)
	}
	long := make([]byte, 100)
	for i := range long {
		long[i] = 'x'
	}
	if _, err := m.CreateOrGet(string(long)); !errors.Is(err, domain.ErrInvalidParameter) {
		t.Fatalf("long name err = %v", err)
	}

	// Case-sensitive exact match.
	if _, err := m.CreateOrGet("Net"); err != nil {
		t.Fatalf("CreateOrGet Net: %v", err)
	}
	if _, err := m.GetID("net"); !errors.Is(err, domain.ErrNamespaceNotFound) {
		t.Fatalf("GetID net err = %v", err)
	}
}

func TestManager_TableFull(t *testing.T) {
	m, _ := newManager(t)

	// Default occupies one of the 4 slots.
	for _, name := range []string{"a", "b", "c"} {
		if _, err := m.CreateOrGet(name); err != nil {
			t.Fatalf("CreateOrGet %s: %v", name, err)
		}
	}
	if _, err := m.CreateOrGet("d"); !errors.Is(err, domain.ErrNamespaceTableFull) {
		t.Fatalf("err = %v, want %v", err, domain.ErrNamespaceTableFull)
	}
}

func TestManager_OpenCloseRefCount(t *testing.T) {
	m, _ := newManager(t)

	h1, err := m.Open("app")
	if err != nil {
		t.Fatalf("Open 1: %v", err)
	}
	h2, err := m.Open("app")
	if err != nil {
		t.Fatalf("Open 2: %v", err)
	}

	if rc, _ := m.RefCount("app"); rc != 2 {
		t.Fatalf("RefCount = %d, want 2", rc)
	}

	if err := m.Close(h1); err != nil {
		t.Fatalf("Close 1: %v", err)
	}
	if rc, _ := m.RefCount("app"); rc != 1 {
		t.Fatalf("RefCount after close = %d, want 1", rc)
	}

	// h2 is still usable, h1 is stale.
	if _, err := m.Resolve(h2); err != nil {
		t.Fatalf("Resolve h2: %v", err)
	}
	if _, err := m.Resolve(h1); !errors.Is(err, domain.ErrInvalidHandle) {
		t.Fatalf("Resolve stale h1 err = %v", err)
	}
	if err := m.Close(h1); !errors.Is(err, domain.ErrInvalidHandle) {
		t.Fatalf("double Close err = %v", err)
	}
}

func TestManager_StaleHandleGeneration(t *testing.T) {
	m, _ := newManager(t)

	h1, err := m.Open("app")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := m.Close(h1); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Reopening reuses the slot but bumps the generation, so the old
	// handle stays invalid.
	h2, err := m.Open("app")
	if err != nil {
		t.Fatalf("Open again: %v", err)
	}
	if h2.Slot() != h1.Slot() {
		t.Fatalf("slot not reused: %d vs %d", h2.Slot(), h1.Slot())
	}
	if _, err := m.Resolve(h1); !errors.Is(err, domain.ErrInvalidHandle) {
		t.Fatalf("Resolve old handle err = %v", err)
	}
}

func TestManager_EraseSemantics(t *testing.T) {
	m, tb := newManager(t)

	id, err := m.CreateOrGet("tmp")
	if err != nil {
		t.Fatalf("CreateOrGet: %v", err)
	}
	tb.Set("k", id, domain.TypeBool, []byte{1}, 0)

	// Open handle pins the id slot: erase clears entries but keeps it.
	h, err := m.Open("tmp")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := m.Erase("tmp"); err != nil {
		t.Fatalf("Erase while open: %v", err)
	}
	if tb.CountNamespace(id) != 0 {
		t.Fatalf("entries not cleared")
	}
	if _, err := m.GetID("tmp"); err != nil {
		t.Fatalf("id slot freed while handle open: %v", err)
	}

	// After closing, erase frees the id slot.
	if err := m.Close(h); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := m.Erase("tmp"); err != nil {
		t.Fatalf("Erase after close: %v", err)
	}
	if _, err := m.GetID("tmp"); !errors.Is(err, domain.ErrNamespaceNotFound) {
		t.Fatalf("GetID after erase err = %v", err)
	}
}

func TestManager_EraseDefaultClearsInPlace(t *testing.T) {
	m, tb := newManager(t)

	tb.Set("k", domain.DefaultNamespaceID, domain.TypeBool, []byte{1}, 0)
	if err := m.Erase(DefaultName); err != nil {
		t.Fatalf("Erase default: %v", err)
	}
	if tb.Count() != 0 {
		t.Fatalf("default entries not cleared")
	}
	if _, err := m.GetID(DefaultName); err != nil {
		t.Fatalf("default namespace deallocated: %v", err)
	}
}

func TestManager_HandlePoolExhausted(t *testing.T) {
	m, _ := newManager(t)

	for i := 0; i < 4; i++ {
		if _, err := m.Open("app"); err != nil {
			t.Fatalf("Open %d: %v", i, err)
		}
	}
	if _, err := m.Open("app"); !errors.Is(err, domain.ErrHandlePoolExhausted) {
		t.Fatalf("err = %v, want %v", err, domain.ErrHandlePoolExhausted)
	}
}
