package namespace

import (
	"github.com/confmesh/confstore-go/internal/core/domain"
	"github.com/confmesh/confstore-go/internal/core/store"
)

// DefaultName is the name of the always-present default namespace.
const DefaultName = "default"

type nsSlot struct {
	used     bool
	name     string
	refCount int
}

type handleSlot struct {
	used bool
	gen  uint32
	nsID uint8
}

// Manager owns the namespace id table and the handle pool. Both are
// fixed-size arrays allocated at construction.
type Manager struct {
	names   []nsSlot
	handles []handleSlot
	table   *store.Table
	limits  domain.Limits
}

// New creates a namespace manager over the given entry table. The
// default namespace occupies id 0 from the start.
func New(limits domain.Limits, table *store.Table) *Manager {
	m := &Manager{
		names:   make([]nsSlot, limits.MaxNamespaces),
		handles: make([]handleSlot, limits.MaxHandles),
		table:   table,
		limits:  limits,
	}
	m.names[domain.DefaultNamespaceID] = nsSlot{used: true, name: DefaultName}
	for i := range m.handles {
		// Generation 0 is reserved so a zero Handle can never validate.
		m.handles[i].gen = 1
	}
	return m
}

func (m *Manager) validateName(name string) error {
	if name == "" {
		return domain.ErrInvalidParameter.WithDetails("empty namespace name")
	}
	if len(name) > m.limits.MaxKeyLength {
		return domain.ErrInvalidParameter.WithDetails("namespace name too long")
	}
	return nil
}

func (m *Manager) lookup(name string) int {
	for i := range m.names {
		if m.names[i].used && m.names[i].name == name {
			return i
		}
	}
	return -1
}

// CreateOrGet returns the id for name, allocating a new id slot on the
// first call. Idempotent: repeated calls with the same name return the
// same id.
func (m *Manager) CreateOrGet(name string) (uint8, error) {
	if err := m.validateName(name); err != nil {
		return 0, err
	}
	if i := m.lookup(name); i >= 0 {
		return uint8(i), nil
	}
	for i := range m.names {
		if !m.names[i].used {
			m.names[i] = nsSlot{used: true, name: name}
			return uint8(i), nil
		}
	}
	return 0, domain.ErrNamespaceTableFull
}

// GetID returns the id for an existing name. Lookup is case-sensitive
// exact match.
func (m *Manager) GetID(name string) (uint8, error) {
	if err := m.validateName(name); err != nil {
		return 0, err
	}
	i := m.lookup(name)
	if i < 0 {
		return 0, domain.ErrNamespaceNotFound
	}
	return uint8(i), nil
}

// Name returns the name registered for an id.
func (m *Manager) Name(nsID uint8) (string, error) {
	if int(nsID) >= len(m.names) || !m.names[nsID].used {
		return "", domain.ErrNamespaceNotFound
	}
	return m.names[nsID].name, nil
}

// Open creates the namespace if needed, increments its ref count, and
// issues a fresh handle. Multiple independent handles to one namespace
// are legal.
func (m *Manager) Open(name string) (domain.Handle, error) {
	nsID, err := m.CreateOrGet(name)
	if err != nil {
		return domain.Handle{}, err
	}
	for i := range m.handles {
		if !m.handles[i].used {
			m.handles[i].used = true
			m.handles[i].nsID = nsID
			m.names[nsID].refCount++
			return domain.NewHandle(i, m.handles[i].gen), nil
		}
	}
	return domain.Handle{}, domain.ErrHandlePoolExhausted
}

// Resolve returns the namespace id a handle refers to, rejecting stale
// handles by generation mismatch.
func (m *Manager) Resolve(h domain.Handle) (uint8, error) {
	i := h.Slot()
	if i < 0 || i >= len(m.handles) || !m.handles[i].used || m.handles[i].gen != h.Gen() {
		return 0, domain.ErrInvalidHandle
	}
	return m.handles[i].nsID, nil
}

// Close invalidates one handle and decrements the namespace ref count.
// Other handles to the same namespace stay valid.
func (m *Manager) Close(h domain.Handle) error {
	nsID, err := m.Resolve(h)
	if err != nil {
		return err
	}
	i := h.Slot()
	m.handles[i].used = false
	m.handles[i].gen++
	m.names[nsID].refCount--
	return nil
}

// Erase clears the namespace's entries in the store. The id slot is
// additionally freed only when no handles are open and the namespace is
// not the default, which is kept alive and merely cleared.
func (m *Manager) Erase(name string) error {
	if err := m.validateName(name); err != nil {
		return err
	}
	i := m.lookup(name)
	if i < 0 {
		return domain.ErrNamespaceNotFound
	}

	m.table.ClearNamespace(uint8(i))

	if uint8(i) != domain.DefaultNamespaceID && m.names[i].refCount == 0 {
		m.names[i] = nsSlot{}
	}
	return nil
}

// RefCount returns the number of open handles for a namespace name.
func (m *Manager) RefCount(name string) (int, error) {
	i := m.lookup(name)
	if i < 0 {
		return 0, domain.ErrNamespaceNotFound
	}
	return m.names[i].refCount, nil
}

// Count returns the number of allocated namespace ids, including the
// default namespace.
func (m *Manager) Count() int {
	n := 0
	for i := range m.names {
		if m.names[i].used {
			n++
		}
	}
	return n
}

// Names returns the allocated namespace names in id order.
func (m *Manager) Names() []string {
	var out []string
	for i := range m.names {
		if m.names[i].used {
			out = append(out, m.names[i].name)
		}
	}
	return out
}

// Reset clears all namespaces except the default and invalidates every
// handle. Called on engine deinit.
func (m *Manager) Reset() {
	for i := range m.names {
		if uint8(i) == domain.DefaultNamespaceID {
			m.names[i].refCount = 0
			continue
		}
		m.names[i] = nsSlot{}
	}
	for i := range m.handles {
		if m.handles[i].used {
			m.handles[i].used = false
			m.handles[i].gen++
		}
	}
}
