package service

import (
	"github.com/confmesh/confstore-go/internal/core/domain"
	"github.com/confmesh/confstore-go/internal/core/notify"
)

// Scoped is a namespace-bound view of a Manager. All accessors on
// Manager itself operate on the default namespace.
type Scoped struct {
	m    *Manager
	nsID uint8
}

// In resolves a namespace handle into a scoped accessor view.
func (m *Manager) In(h domain.Handle) (*Scoped, error) {
	if err := m.ready(); err != nil {
		return nil, m.fail(err)
	}
	nsID, err := m.namespaces.Resolve(h)
	if err != nil {
		return nil, m.fail(err)
	}
	m.ok()
	return &Scoped{m: m, nsID: nsID}, nil
}

func (m *Manager) root() *Scoped {
	return &Scoped{m: m, nsID: domain.DefaultNamespaceID}
}

// setTyped is the shared write path. The type of an existing key is
// fixed until the key is deleted; writes under a different type fail
// with ErrTypeMismatch. Change callbacks fire after a successful store.
func (s *Scoped) setTyped(key string, typ domain.ValueType, value []byte, flags domain.EntryFlags) error {
	m := s.m
	if err := m.ready(); err != nil {
		return m.fail(err)
	}

	var oldValue []byte
	if existing, err := m.table.Get(key, s.nsID); err == nil {
		if existing.Type != typ {
			return m.fail(domain.ErrTypeMismatch.WithDetails(
				"key " + key + " holds " + existing.Type.String() + ", delete it to change the type"))
		}
		oldValue = existing.Value
	}

	if err := m.table.Set(key, s.nsID, typ, value, flags); err != nil {
		return m.fail(err)
	}

	m.callbacks.Notify(notify.Event{
		Key:         key,
		NamespaceID: s.nsID,
		Type:        typ,
		OldValue:    oldValue,
		NewValue:    value,
	})
	m.ok()
	return nil
}

// getTyped is the shared read path. A missing key yields the caller's
// fallback with a nil error; a present key of the wrong type is an
// ErrTypeMismatch. Encrypted entries are decrypted transparently.
func (s *Scoped) getTyped(key string, typ domain.ValueType) (value []byte, found bool, err error) {
	m := s.m
	if err := m.ready(); err != nil {
		return nil, false, m.fail(err)
	}

	e, err := m.table.Get(key, s.nsID)
	if err != nil {
		return nil, false, nil
	}
	if e.Type != typ {
		return nil, false, m.fail(domain.ErrTypeMismatch.WithDetails(
			"key " + key + " holds " + e.Type.String()))
	}

	value = e.Value
	if e.Flags.Encrypted() {
		if m.cipher == nil {
			return nil, false, m.fail(domain.ErrNoEncryptionKey)
		}
		value, err = m.cipher.Decrypt(e.Value)
		if err != nil {
			return nil, false, m.fail(domain.ErrCryptoFailure.WithCause(err))
		}
	}
	m.ok()
	return value, true, nil
}

// Typed setters.

func (s *Scoped) SetInt32(key string, v int32) error {
	return s.setTyped(key, domain.TypeInt32, domain.EncodeInt32(v), 0)
}

func (s *Scoped) SetUint32(key string, v uint32) error {
	return s.setTyped(key, domain.TypeUint32, domain.EncodeUint32(v), 0)
}

func (s *Scoped) SetInt64(key string, v int64) error {
	return s.setTyped(key, domain.TypeInt64, domain.EncodeInt64(v), 0)
}

func (s *Scoped) SetFloat(key string, v float32) error {
	return s.setTyped(key, domain.TypeFloat, domain.EncodeFloat(v), 0)
}

func (s *Scoped) SetBool(key string, v bool) error {
	return s.setTyped(key, domain.TypeBool, domain.EncodeBool(v), 0)
}

func (s *Scoped) SetString(key, v string) error {
	return s.setTyped(key, domain.TypeString, domain.EncodeString(v), 0)
}

func (s *Scoped) SetBlob(key string, v []byte) error {
	return s.setTyped(key, domain.TypeBlob, v, 0)
}

// setEncrypted encrypts plain and stores the iv-prefixed ciphertext
// with the encrypted flag.
func (s *Scoped) setEncrypted(key string, typ domain.ValueType, plain []byte) error {
	m := s.m
	if err := m.ready(); err != nil {
		return m.fail(err)
	}
	if m.cipher == nil {
		return m.fail(domain.ErrNoEncryptionKey)
	}
	ct, err := m.cipher.Encrypt(plain)
	if err != nil {
		return m.fail(domain.ErrCryptoFailure.WithCause(err))
	}
	return s.setTyped(key, typ, ct, domain.FlagEncrypted)
}

// SetSecretString stores a string encrypted at rest. Reads through
// GetString decrypt transparently.
func (s *Scoped) SetSecretString(key, v string) error {
	return s.setEncrypted(key, domain.TypeString, domain.EncodeString(v))
}

// SetSecretBlob stores a blob encrypted at rest.
func (s *Scoped) SetSecretBlob(key string, v []byte) error {
	return s.setEncrypted(key, domain.TypeBlob, v)
}

// Typed getters. fallback is returned with a nil error when the key
// does not exist; it is the caller's value, never the defaults
// registry's.

func (s *Scoped) GetInt32(key string, fallback int32) (int32, error) {
	raw, found, err := s.getTyped(key, domain.TypeInt32)
	if err != nil || !found {
		return fallback, err
	}
	v, err := domain.DecodeInt32(raw)
	if err != nil {
		return fallback, s.m.fail(err)
	}
	return v, nil
}

func (s *Scoped) GetUint32(key string, fallback uint32) (uint32, error) {
	raw, found, err := s.getTyped(key, domain.TypeUint32)
	if err != nil || !found {
		return fallback, err
	}
	v, err := domain.DecodeUint32(raw)
	if err != nil {
		return fallback, s.m.fail(err)
	}
	return v, nil
}

func (s *Scoped) GetInt64(key string, fallback int64) (int64, error) {
	raw, found, err := s.getTyped(key, domain.TypeInt64)
	if err != nil || !found {
		return fallback, err
	}
	v, err := domain.DecodeInt64(raw)
	if err != nil {
		return fallback, s.m.fail(err)
	}
	return v, nil
}

func (s *Scoped) GetFloat(key string, fallback float32) (float32, error) {
	raw, found, err := s.getTyped(key, domain.TypeFloat)
	if err != nil || !found {
		return fallback, err
	}
	v, err := domain.DecodeFloat(raw)
	if err != nil {
		return fallback, s.m.fail(err)
	}
	return v, nil
}

func (s *Scoped) GetBool(key string, fallback bool) (bool, error) {
	raw, found, err := s.getTyped(key, domain.TypeBool)
	if err != nil || !found {
		return fallback, err
	}
	v, err := domain.DecodeBool(raw)
	if err != nil {
		return fallback, s.m.fail(err)
	}
	return v, nil
}

func (s *Scoped) GetString(key, fallback string) (string, error) {
	raw, found, err := s.getTyped(key, domain.TypeString)
	if err != nil || !found {
		return fallback, err
	}
	v, err := domain.DecodeString(raw)
	if err != nil {
		return fallback, s.m.fail(err)
	}
	return v, nil
}

func (s *Scoped) GetBlob(key string, fallback []byte) ([]byte, error) {
	raw, found, err := s.getTyped(key, domain.TypeBlob)
	if err != nil || !found {
		return fallback, err
	}
	return raw, nil
}

// Untyped entry operations.

// Delete removes a key. Deleting frees the key's type for reuse.
func (s *Scoped) Delete(key string) error {
	m := s.m
	if err := m.ready(); err != nil {
		return m.fail(err)
	}
	if err := m.table.Delete(key, s.nsID); err != nil {
		return m.fail(err)
	}
	m.ok()
	return nil
}

// Exists reports whether a key is present.
func (s *Scoped) Exists(key string) bool {
	if s.m.ready() != nil {
		return false
	}
	return s.m.table.Exists(key, s.nsID)
}

// Type returns a key's value type.
func (s *Scoped) Type(key string) (domain.ValueType, error) {
	m := s.m
	if err := m.ready(); err != nil {
		return 0, m.fail(err)
	}
	typ, err := m.table.GetType(key, s.nsID)
	if err != nil {
		return 0, m.fail(err)
	}
	return typ, nil
}

// Size returns a key's stored value size in bytes. For encrypted
// entries this is the ciphertext size.
func (s *Scoped) Size(key string) (int, error) {
	m := s.m
	if err := m.ready(); err != nil {
		return 0, m.fail(err)
	}
	n, err := m.table.GetSize(key, s.nsID)
	if err != nil {
		return 0, m.fail(err)
	}
	return n, nil
}

// IsEncrypted reports whether a key is stored encrypted.
func (s *Scoped) IsEncrypted(key string) (bool, error) {
	m := s.m
	if err := m.ready(); err != nil {
		return false, m.fail(err)
	}
	flags, err := m.table.GetFlags(key, s.nsID)
	if err != nil {
		return false, m.fail(err)
	}
	return flags.Encrypted(), nil
}

// Count returns the number of entries in this namespace.
func (s *Scoped) Count() int {
	if s.m.ready() != nil {
		return 0
	}
	return s.m.table.CountNamespace(s.nsID)
}

// Keys returns the keys stored in this namespace, in slot order.
func (s *Scoped) Keys() []string {
	if s.m.ready() != nil {
		return nil
	}
	var keys []string
	s.m.table.Iterate(int(s.nsID), func(e *domain.Entry) bool {
		keys = append(keys, e.Key)
		return true
	})
	return keys
}

// Default-namespace accessors on the Manager itself.

func (m *Manager) SetInt32(key string, v int32) error { return m.root().SetInt32(key, v) }

func (m *Manager) SetUint32(key string, v uint32) error { return m.root().SetUint32(key, v) }

func (m *Manager) SetInt64(key string, v int64) error { return m.root().SetInt64(key, v) }

func (m *Manager) SetFloat(key string, v float32) error { return m.root().SetFloat(key, v) }

func (m *Manager) SetBool(key string, v bool) error { return m.root().SetBool(key, v) }

func (m *Manager) SetString(key, v string) error { return m.root().SetString(key, v) }

func (m *Manager) SetBlob(key string, v []byte) error { return m.root().SetBlob(key, v) }

func (m *Manager) SetSecretString(key, v string) error { return m.root().SetSecretString(key, v) }

func (m *Manager) SetSecretBlob(key string, v []byte) error {
	return m.root().SetSecretBlob(key, v)
}

func (m *Manager) GetInt32(key string, fallback int32) (int32, error) {
	return m.root().GetInt32(key, fallback)
}

func (m *Manager) GetUint32(key string, fallback uint32) (uint32, error) {
	return m.root().GetUint32(key, fallback)
}

func (m *Manager) GetInt64(key string, fallback int64) (int64, error) {
	return m.root().GetInt64(key, fallback)
}

func (m *Manager) GetFloat(key string, fallback float32) (float32, error) {
	return m.root().GetFloat(key, fallback)
}

func (m *Manager) GetBool(key string, fallback bool) (bool, error) {
	return m.root().GetBool(key, fallback)
}

func (m *Manager) GetString(key, fallback string) (string, error) {
	return m.root().GetString(key, fallback)
}

func (m *Manager) GetBlob(key string, fallback []byte) ([]byte, error) {
	return m.root().GetBlob(key, fallback)
}

func (m *Manager) Delete(key string) error { return m.root().Delete(key) }

func (m *Manager) Exists(key string) bool { return m.root().Exists(key) }

func (m *Manager) Type(key string) (domain.ValueType, error) { return m.root().Type(key) }

func (m *Manager) Size(key string) (int, error) { return m.root().Size(key) }

func (m *Manager) IsEncrypted(key string) (bool, error) { return m.root().IsEncrypted(key) }

func (m *Manager) Keys() []string { return m.root().Keys() }
