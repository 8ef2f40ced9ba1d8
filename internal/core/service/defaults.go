package service

import (
	"github.com/confmesh/confstore-go/internal/core/domain"
)

// defaultsRegistry is the fixed-capacity table of registered default
// values. Defaults are applied only through ResetToDefault and
// ResetAllToDefaults; getters never consult them.
type defaultsRegistry struct {
	slots []defaultSlot
	count int
}

type defaultSlot struct {
	used  bool
	key   string
	nsID  uint8
	typ   domain.ValueType
	value []byte
}

func newDefaultsRegistry(limits domain.Limits) *defaultsRegistry {
	return &defaultsRegistry{slots: make([]defaultSlot, limits.MaxDefaults)}
}

func (d *defaultsRegistry) find(key string, nsID uint8) int {
	for i := range d.slots {
		if d.slots[i].used && d.slots[i].nsID == nsID && d.slots[i].key == key {
			return i
		}
	}
	return -1
}

func (d *defaultsRegistry) put(key string, nsID uint8, typ domain.ValueType, value []byte) error {
	if i := d.find(key, nsID); i >= 0 {
		if d.slots[i].typ != typ {
			return domain.ErrTypeMismatch.WithDetails(
				"default for " + key + " already registered as " + d.slots[i].typ.String())
		}
		d.slots[i].value = value
		return nil
	}
	for i := range d.slots {
		if !d.slots[i].used {
			d.slots[i] = defaultSlot{used: true, key: key, nsID: nsID, typ: typ, value: value}
			d.count++
			return nil
		}
	}
	return domain.ErrOutOfSpace.WithDetails("defaults table is full")
}

// registerDefault validates and records one default value.
func (s *Scoped) registerDefault(key string, typ domain.ValueType, value []byte) error {
	m := s.m
	if err := m.ready(); err != nil {
		return m.fail(err)
	}
	if key == "" {
		return m.fail(domain.ErrInvalidParameter.WithDetails("key is empty"))
	}
	if len(key) > m.limits.MaxKeyLength {
		return m.fail(domain.ErrKeyTooLong)
	}
	if len(value) > m.limits.MaxValueSize {
		return m.fail(domain.ErrValueTooLarge)
	}
	if err := m.defaults.put(key, s.nsID, typ, value); err != nil {
		return m.fail(err)
	}
	m.ok()
	return nil
}

func (s *Scoped) RegisterDefaultInt32(key string, v int32) error {
	return s.registerDefault(key, domain.TypeInt32, domain.EncodeInt32(v))
}

func (s *Scoped) RegisterDefaultUint32(key string, v uint32) error {
	return s.registerDefault(key, domain.TypeUint32, domain.EncodeUint32(v))
}

func (s *Scoped) RegisterDefaultInt64(key string, v int64) error {
	return s.registerDefault(key, domain.TypeInt64, domain.EncodeInt64(v))
}

func (s *Scoped) RegisterDefaultFloat(key string, v float32) error {
	return s.registerDefault(key, domain.TypeFloat, domain.EncodeFloat(v))
}

func (s *Scoped) RegisterDefaultBool(key string, v bool) error {
	return s.registerDefault(key, domain.TypeBool, domain.EncodeBool(v))
}

func (s *Scoped) RegisterDefaultString(key, v string) error {
	return s.registerDefault(key, domain.TypeString, domain.EncodeString(v))
}

// ResetToDefault writes the registered default value for key. This is
// an ordinary write: the type-fixed rule applies and callbacks fire.
func (s *Scoped) ResetToDefault(key string) error {
	m := s.m
	if err := m.ready(); err != nil {
		return m.fail(err)
	}
	i := m.defaults.find(key, s.nsID)
	if i < 0 {
		return m.fail(domain.ErrNotFound.WithDetails("no default registered for " + key))
	}
	return s.setTyped(key, m.defaults.slots[i].typ, m.defaults.slots[i].value, 0)
}

// ResetAllToDefaults writes every registered default for this
// namespace and returns how many were applied. Individual write
// failures are counted and skipped.
func (s *Scoped) ResetAllToDefaults() (applied int, err error) {
	m := s.m
	if err := m.ready(); err != nil {
		return 0, m.fail(err)
	}
	var firstErr error
	for i := range m.defaults.slots {
		sl := &m.defaults.slots[i]
		if !sl.used || sl.nsID != s.nsID {
			continue
		}
		if err := s.setTyped(sl.key, sl.typ, sl.value, 0); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		applied++
	}
	if firstErr != nil {
		return applied, m.fail(firstErr)
	}
	m.ok()
	return applied, nil
}

// Default-namespace wrappers.

func (m *Manager) RegisterDefaultInt32(key string, v int32) error {
	return m.root().RegisterDefaultInt32(key, v)
}

func (m *Manager) RegisterDefaultUint32(key string, v uint32) error {
	return m.root().RegisterDefaultUint32(key, v)
}

func (m *Manager) RegisterDefaultInt64(key string, v int64) error {
	return m.root().RegisterDefaultInt64(key, v)
}

func (m *Manager) RegisterDefaultFloat(key string, v float32) error {
	return m.root().RegisterDefaultFloat(key, v)
}

func (m *Manager) RegisterDefaultBool(key string, v bool) error {
	return m.root().RegisterDefaultBool(key, v)
}

func (m *Manager) RegisterDefaultString(key, v string) error {
	return m.root().RegisterDefaultString(key, v)
}

func (m *Manager) ResetToDefault(key string) error {
	return m.root().ResetToDefault(key)
}

func (m *Manager) ResetAllToDefaults() (int, error) {
	return m.root().ResetAllToDefaults()
}
