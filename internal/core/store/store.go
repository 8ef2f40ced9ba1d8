package store

import (
	"fmt"

	"github.com/confmesh/confstore-go/internal/core/domain"
)

// AllNamespaces selects every namespace in calls that take a namespace
// scope.
const AllNamespaces = -1

type slot struct {
	used  bool
	entry domain.Entry
}

// Table is the fixed-capacity entry table.
type Table struct {
	slots  []slot
	limits domain.Limits
	count  int
}

// New creates a table sized by the given limits.
func New(limits domain.Limits) *Table {
	return &Table{
		slots:  make([]slot, limits.MaxEntries),
		limits: limits,
	}
}

// Limits returns the limits the table was built with.
func (t *Table) Limits() domain.Limits {
	return t.limits
}

func (t *Table) find(key string, nsID uint8) int {
	for i := range t.slots {
		if t.slots[i].used && t.slots[i].entry.NamespaceID == nsID && t.slots[i].entry.Key == key {
			return i
		}
	}
	return -1
}

// Set stores a value. An existing key in the same namespace is
// overwritten in place without changing slot identity; a new key takes
// the first free slot. Key length and value size are validated here,
// before any slot is touched.
func (t *Table) Set(key string, nsID uint8, typ domain.ValueType, value []byte, flags domain.EntryFlags) error {
	if key == "" {
		return domain.ErrInvalidParameter.WithDetails("empty key")
	}
	if !typ.Valid() {
		return domain.ErrInvalidParameter.WithDetails("invalid value type")
	}
	if len(key) > t.limits.MaxKeyLength {
		return domain.ErrKeyTooLong
	}
	if len(value) > t.limits.MaxValueSize {
		return domain.ErrValueTooLarge
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	if i := t.find(key, nsID); i >= 0 {
		t.slots[i].entry.Type = typ
		t.slots[i].entry.Flags = flags
		t.slots[i].entry.Value = stored
		return nil
	}

	for i := range t.slots {
		if !t.slots[i].used {
			t.slots[i].used = true
			t.slots[i].entry = domain.Entry{
				Key:         key,
				NamespaceID: nsID,
				Type:        typ,
				Flags:       flags,
				Value:       stored,
			}
			t.count++
			return nil
		}
	}
	return domain.ErrOutOfSpace
}

// Get returns a clone of the entry for key in the namespace.
func (t *Table) Get(key string, nsID uint8) (*domain.Entry, error) {
	i := t.find(key, nsID)
	if i < 0 {
		return nil, domain.ErrNotFound
	}
	return t.slots[i].entry.Clone(), nil
}

// Read copies the value bytes into dst and returns the number of bytes
// copied. When dst is too small the required size is reported in the
// error details and nothing is copied.
func (t *Table) Read(key string, nsID uint8, dst []byte) (int, error) {
	i := t.find(key, nsID)
	if i < 0 {
		return 0, domain.ErrNotFound
	}
	need := len(t.slots[i].entry.Value)
	if len(dst) < need {
		return 0, domain.ErrBufferTooSmall.WithDetails(fmt.Sprintf("need %d bytes, have %d", need, len(dst)))
	}
	copy(dst, t.slots[i].entry.Value)
	return need, nil
}

// GetType returns the stored type of a key.
func (t *Table) GetType(key string, nsID uint8) (domain.ValueType, error) {
	i := t.find(key, nsID)
	if i < 0 {
		return domain.TypeUnspecified, domain.ErrNotFound
	}
	return t.slots[i].entry.Type, nil
}

// GetFlags returns the stored flags of a key.
func (t *Table) GetFlags(key string, nsID uint8) (domain.EntryFlags, error) {
	i := t.find(key, nsID)
	if i < 0 {
		return 0, domain.ErrNotFound
	}
	return t.slots[i].entry.Flags, nil
}

// GetSize returns the stored value size of a key.
func (t *Table) GetSize(key string, nsID uint8) (int, error) {
	i := t.find(key, nsID)
	if i < 0 {
		return 0, domain.ErrNotFound
	}
	return len(t.slots[i].entry.Value), nil
}

// Exists reports whether a key is present in the namespace.
func (t *Table) Exists(key string, nsID uint8) bool {
	return t.find(key, nsID) >= 0
}

// Delete removes a key. The freed slot becomes available for reuse.
func (t *Table) Delete(key string, nsID uint8) error {
	i := t.find(key, nsID)
	if i < 0 {
		return domain.ErrNotFound
	}
	t.slots[i] = slot{}
	t.count--
	return nil
}

// Count returns the number of live entries across all namespaces.
func (t *Table) Count() int {
	return t.count
}

// CountNamespace returns the number of live entries in one namespace.
func (t *Table) CountNamespace(nsID uint8) int {
	n := 0
	for i := range t.slots {
		if t.slots[i].used && t.slots[i].entry.NamespaceID == nsID {
			n++
		}
	}
	return n
}

// ClearNamespace removes every entry in the namespace.
func (t *Table) ClearNamespace(nsID uint8) {
	for i := range t.slots {
		if t.slots[i].used && t.slots[i].entry.NamespaceID == nsID {
			t.slots[i] = slot{}
			t.count--
		}
	}
}

// ClearAll removes every entry.
func (t *Table) ClearAll() {
	for i := range t.slots {
		t.slots[i] = slot{}
	}
	t.count = 0
}

// Iterate visits entries in slot order. nsID may be AllNamespaces or a
// concrete namespace id. The visitor receives a reference to the stored
// entry; it must not modify or retain it, and must not mutate the table.
// Returning false stops the iteration.
func (t *Table) Iterate(nsID int, fn func(e *domain.Entry) bool) {
	for i := range t.slots {
		if !t.slots[i].used {
			continue
		}
		if nsID != AllNamespaces && int(t.slots[i].entry.NamespaceID) != nsID {
			continue
		}
		if !fn(&t.slots[i].entry) {
			return
		}
	}
}

// Update applies fn to the stored entry for key, in place. Used by key
// rotation to rewrite ciphertexts without going through Set validation
// twice or firing change notifications.
func (t *Table) Update(key string, nsID uint8, fn func(e *domain.Entry) error) error {
	i := t.find(key, nsID)
	if i < 0 {
		return domain.ErrNotFound
	}
	return fn(&t.slots[i].entry)
}
