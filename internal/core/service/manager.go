package service

import (
	"fmt"

	"github.com/confmesh/confstore-go/internal/codec"
	"github.com/confmesh/confstore-go/internal/core/domain"
	"github.com/confmesh/confstore-go/internal/core/namespace"
	"github.com/confmesh/confstore-go/internal/core/notify"
	"github.com/confmesh/confstore-go/internal/core/store"
	"github.com/confmesh/confstore-go/internal/telemetry/logger"
	"github.com/confmesh/confstore-go/pkg/crypto/aescbc"
)

// Backend persists a serialized configuration set. Implementations live
// in internal/storage.
type Backend interface {
	// Commit durably stores one serialized snapshot, replacing any
	// previous one.
	Commit(data []byte) error

	// Load returns the last committed snapshot. A backend with no
	// committed snapshot returns domain.ErrNotFound.
	Load() ([]byte, error)
}

// Option configures a Manager before Init.
type Option func(*Manager)

// WithLimits overrides the default capacity limits.
func WithLimits(limits domain.Limits) Option {
	return func(m *Manager) { m.limits = limits }
}

// WithLogger sets the logger. Defaults to logger.Default().
func WithLogger(log logger.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// WithBackend attaches a persistence backend for Commit and Load.
func WithBackend(b Backend) Option {
	return func(m *Manager) { m.backend = b }
}

// Stats is a point-in-time snapshot of the engine's counters.
type Stats struct {
	Entries        int
	Namespaces     int
	Callbacks      int
	CallbacksFired uint64
	EncryptionSet  bool
}

// Manager is the configuration store façade.
type Manager struct {
	limits  domain.Limits
	log     logger.Logger
	backend Backend

	table      *store.Table
	namespaces *namespace.Manager
	callbacks  *notify.Registry
	defaults   *defaultsRegistry

	cipher      *aescbc.Cipher
	algorithm   aescbc.Algorithm
	initialized bool
	lastErr     error
}

// New creates an uninitialized Manager. Every operation except Init
// fails with ErrNotInitialized until Init is called.
func New(opts ...Option) *Manager {
	m := &Manager{
		limits: domain.DefaultLimits(),
		log:    logger.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Init allocates the fixed-capacity tables and marks the manager ready.
func (m *Manager) Init() error {
	if m.initialized {
		return m.fail(domain.ErrAlreadyInitialized)
	}
	if err := m.limits.Verify(); err != nil {
		return m.fail(err)
	}

	m.table = store.New(m.limits)
	m.namespaces = namespace.New(m.limits, m.table)
	m.callbacks = notify.New(m.limits, m.log)
	m.defaults = newDefaultsRegistry(m.limits)
	m.initialized = true
	m.lastErr = nil

	m.log.Info("store initialized",
		"max_entries", m.limits.MaxEntries,
		"max_namespaces", m.limits.MaxNamespaces)
	return nil
}

// Deinit releases every table and zeroizes key material. The manager
// can be re-initialized afterwards.
func (m *Manager) Deinit() error {
	if !m.initialized {
		return m.fail(domain.ErrNotInitialized)
	}
	m.clearCipher()
	m.table = nil
	m.namespaces = nil
	m.callbacks = nil
	m.defaults = nil
	m.initialized = false
	m.lastErr = nil
	m.log.Info("store deinitialized")
	return nil
}

// Initialized reports whether Init has completed.
func (m *Manager) Initialized() bool {
	return m.initialized
}

// LastError returns the most recent operation error, or nil. It is
// cleared by each successful mutating operation.
func (m *Manager) LastError() error {
	return m.lastErr
}

// fail records err as the last error and returns it.
func (m *Manager) fail(err error) error {
	m.lastErr = err
	return err
}

func (m *Manager) ok() {
	m.lastErr = nil
}

func (m *Manager) ready() error {
	if !m.initialized {
		return domain.ErrNotInitialized
	}
	return nil
}

// Stats returns current table occupancy counters.
func (m *Manager) Stats() Stats {
	if !m.initialized {
		return Stats{}
	}
	return Stats{
		Entries:        m.table.Count(),
		Namespaces:     m.namespaces.Count(),
		Callbacks:      m.callbacks.Count(),
		CallbacksFired: m.callbacks.Fired(),
		EncryptionSet:  m.cipher != nil,
	}
}

// Namespace operations.

// CreateNamespace allocates (or finds) a namespace id for name.
func (m *Manager) CreateNamespace(name string) (uint8, error) {
	if err := m.ready(); err != nil {
		return 0, m.fail(err)
	}
	id, err := m.namespaces.CreateOrGet(name)
	if err != nil {
		return 0, m.fail(err)
	}
	m.ok()
	return id, nil
}

// OpenNamespace opens a ref-counted handle, creating the namespace if
// needed.
func (m *Manager) OpenNamespace(name string) (domain.Handle, error) {
	if err := m.ready(); err != nil {
		return domain.Handle{}, m.fail(err)
	}
	h, err := m.namespaces.Open(name)
	if err != nil {
		return domain.Handle{}, m.fail(err)
	}
	m.ok()
	return h, nil
}

// CloseNamespace releases a handle. The handle is invalid afterwards.
func (m *Manager) CloseNamespace(h domain.Handle) error {
	if err := m.ready(); err != nil {
		return m.fail(err)
	}
	if err := m.namespaces.Close(h); err != nil {
		return m.fail(err)
	}
	m.ok()
	return nil
}

// EraseNamespace deletes every entry in the named namespace and frees
// its id once no handles remain open.
func (m *Manager) EraseNamespace(name string) error {
	if err := m.ready(); err != nil {
		return m.fail(err)
	}
	if err := m.namespaces.Erase(name); err != nil {
		return m.fail(err)
	}
	m.ok()
	return nil
}

// Namespaces lists the allocated namespace names.
func (m *Manager) Namespaces() ([]string, error) {
	if err := m.ready(); err != nil {
		return nil, m.fail(err)
	}
	return m.namespaces.Names(), nil
}

// EntryInfo describes one stored entry without exposing its value.
type EntryInfo struct {
	Key         string
	Namespace   string
	NamespaceID uint8
	Type        domain.ValueType
	Size        int
	Encrypted   bool
}

// Entries lists metadata for every stored entry in slot order. The
// namespace name is empty when the id has no registered name, which
// happens after loading a snapshot: the binary format carries ids only.
func (m *Manager) Entries() ([]EntryInfo, error) {
	if err := m.ready(); err != nil {
		return nil, m.fail(err)
	}
	var out []EntryInfo
	m.table.Iterate(store.AllNamespaces, func(e *domain.Entry) bool {
		name, _ := m.namespaces.Name(e.NamespaceID)
		out = append(out, EntryInfo{
			Key:         e.Key,
			Namespace:   name,
			NamespaceID: e.NamespaceID,
			Type:        e.Type,
			Size:        len(e.Value),
			Encrypted:   e.Flags.Encrypted(),
		})
		return true
	})
	m.ok()
	return out, nil
}

// Callback operations.

// Watch registers fn for changes to one exact key in the default
// namespace.
func (m *Manager) Watch(key string, fn notify.Func, userData any) (domain.Handle, error) {
	if err := m.ready(); err != nil {
		return domain.Handle{}, m.fail(err)
	}
	h, err := m.callbacks.Register(key, fn, userData)
	if err != nil {
		return domain.Handle{}, m.fail(err)
	}
	m.ok()
	return h, nil
}

// WatchAll registers fn for every change in every namespace.
func (m *Manager) WatchAll(fn notify.Func, userData any) (domain.Handle, error) {
	if err := m.ready(); err != nil {
		return domain.Handle{}, m.fail(err)
	}
	h, err := m.callbacks.RegisterWildcard(fn, userData)
	if err != nil {
		return domain.Handle{}, m.fail(err)
	}
	m.ok()
	return h, nil
}

// Unwatch removes a previously registered callback.
func (m *Manager) Unwatch(h domain.Handle) error {
	if err := m.ready(); err != nil {
		return m.fail(err)
	}
	if err := m.callbacks.Unregister(h); err != nil {
		return m.fail(err)
	}
	m.ok()
	return nil
}

// Encryption operations.

// SetEncryptionKey installs a raw AES key. An existing cipher is
// zeroized first. Entries already stored encrypted keep their old
// ciphertext; use RotateKey to re-encrypt them.
func (m *Manager) SetEncryptionKey(key []byte, algorithm aescbc.Algorithm) error {
	if err := m.ready(); err != nil {
		return m.fail(err)
	}
	c, err := aescbc.NewCipher(key, algorithm)
	if err != nil {
		return m.fail(err)
	}
	m.clearCipher()
	m.cipher = c
	m.algorithm = algorithm
	m.log.Info("encryption key set", "algorithm", algorithm.String())
	m.ok()
	return nil
}

// SetEncryptionPassphrase derives an AES key from a passphrase with
// argon2id and installs it. The salt used is returned so it can be
// stored alongside the data; pass nil to generate a fresh one.
func (m *Manager) SetEncryptionPassphrase(passphrase string, salt []byte, algorithm aescbc.Algorithm) ([]byte, error) {
	if err := m.ready(); err != nil {
		return nil, m.fail(err)
	}
	key, usedSalt, err := aescbc.DeriveKeyFromPassphrase([]byte(passphrase), salt, algorithm)
	if err != nil {
		return nil, m.fail(err)
	}
	defer aescbc.ZeroKey(key)
	if err := m.SetEncryptionKey(key, algorithm); err != nil {
		return nil, err
	}
	return usedSalt, nil
}

// ClearEncryptionKey zeroizes and removes the cipher. Encrypted entries
// remain stored but can no longer be read.
func (m *Manager) ClearEncryptionKey() error {
	if err := m.ready(); err != nil {
		return m.fail(err)
	}
	m.clearCipher()
	m.ok()
	return nil
}

// HasEncryptionKey reports whether a cipher is installed.
func (m *Manager) HasEncryptionKey() bool {
	return m.cipher != nil
}

// RotateKey re-encrypts every encrypted entry under a new key and
// installs the new cipher. Entries that fail to decrypt under the old
// key are left untouched and counted; callbacks do not fire for
// re-encrypted values since the plaintext does not change.
func (m *Manager) RotateKey(newKey []byte, algorithm aescbc.Algorithm) (int, error) {
	if err := m.ready(); err != nil {
		return 0, m.fail(err)
	}
	if m.cipher == nil {
		return 0, m.fail(domain.ErrNoEncryptionKey)
	}
	newCipher, err := aescbc.NewCipher(newKey, algorithm)
	if err != nil {
		return 0, m.fail(err)
	}

	type target struct {
		key  string
		nsID uint8
	}
	var targets []target
	m.table.Iterate(store.AllNamespaces, func(e *domain.Entry) bool {
		if e.Flags.Encrypted() {
			targets = append(targets, target{e.Key, e.NamespaceID})
		}
		return true
	})

	failed := 0
	for _, tg := range targets {
		err := m.table.Update(tg.key, tg.nsID, func(e *domain.Entry) error {
			plain, err := m.cipher.Decrypt(e.Value)
			if err != nil {
				return err
			}
			defer aescbc.ZeroKey(plain)
			ct, err := newCipher.Encrypt(plain)
			if err != nil {
				return err
			}
			e.Value = ct
			return nil
		})
		if err != nil {
			failed++
			m.log.Warn("key rotation skipped entry",
				"entry_key", tg.key, "namespace_id", tg.nsID, "error", err)
		}
	}

	m.clearCipher()
	m.cipher = newCipher
	m.algorithm = algorithm
	m.log.Info("encryption key rotated",
		"algorithm", algorithm.String(),
		"reencrypted", len(targets)-failed, "failed", failed)
	m.ok()
	return failed, nil
}

func (m *Manager) clearCipher() {
	if m.cipher != nil {
		m.cipher.Zero()
		m.cipher = nil
	}
}

// Persistence operations.

// Commit serializes the whole store in the binary format and hands it
// to the backend.
func (m *Manager) Commit() error {
	if err := m.ready(); err != nil {
		return m.fail(err)
	}
	if m.backend == nil {
		return m.fail(domain.ErrWriteFailure.WithDetails("no backend configured"))
	}
	data, err := codec.ExportBinaryAlloc(m.table, codec.DefaultExportOptions())
	if err != nil {
		return m.fail(err)
	}
	if err := m.backend.Commit(data); err != nil {
		return m.fail(domain.ErrWriteFailure.WithCause(err))
	}
	m.log.Debug("snapshot committed", "bytes", len(data), "entries", m.table.Count())
	m.ok()
	return nil
}

// Load replaces the store contents with the backend's last committed
// snapshot. The store is cleared only after the snapshot's header
// validates.
func (m *Manager) Load() error {
	if err := m.ready(); err != nil {
		return m.fail(err)
	}
	if m.backend == nil {
		return m.fail(domain.ErrReadFailure.WithDetails("no backend configured"))
	}
	data, err := m.backend.Load()
	if err != nil {
		return m.fail(domain.ErrReadFailure.WithCause(err))
	}
	opts := codec.DefaultImportOptions()
	opts.Clear = true
	if err := codec.ImportBinary(m.table, data, opts); err != nil {
		return m.fail(err)
	}
	m.log.Debug("snapshot loaded", "bytes", len(data), "entries", m.table.Count())
	m.ok()
	return nil
}

// Export serializes the store in the requested format.
func (m *Manager) Export(format Format, opts codec.ExportOptions) ([]byte, error) {
	if err := m.ready(); err != nil {
		return nil, m.fail(err)
	}
	if opts.Decrypt {
		if m.cipher == nil {
			return nil, m.fail(domain.ErrNoEncryptionKey)
		}
		opts.Cipher = m.cipher
	}

	var data []byte
	var err error
	switch format {
	case FormatBinary:
		data, err = codec.ExportBinaryAlloc(m.table, opts)
	case FormatJSON:
		data, err = codec.ExportJSONAlloc(m.table, opts)
	default:
		err = domain.ErrInvalidParameter.WithDetails(fmt.Sprintf("unknown format %q", format))
	}
	if err != nil {
		return nil, m.fail(err)
	}
	m.ok()
	return data, nil
}

// Import parses data in the requested format into the store.
func (m *Manager) Import(format Format, data []byte, opts codec.ImportOptions) error {
	if err := m.ready(); err != nil {
		return m.fail(err)
	}

	var err error
	switch format {
	case FormatBinary:
		err = codec.ImportBinary(m.table, data, opts)
	case FormatJSON:
		err = codec.ImportJSON(m.table, data, opts)
	default:
		err = domain.ErrInvalidParameter.WithDetails(fmt.Sprintf("unknown format %q", format))
	}
	if err != nil {
		return m.fail(err)
	}
	m.ok()
	return nil
}

// Format selects a serialization codec.
type Format string

const (
	FormatBinary Format = "binary"
	FormatJSON   Format = "json"
)

// ParseFormat maps a format name to a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatBinary, FormatJSON:
		return Format(s), nil
	}
	return "", domain.ErrInvalidParameter.WithDetails(fmt.Sprintf("unknown format %q", s))
}
