package service

import (
	"bytes"
	"errors"
	"testing"

	"github.com/confmesh/confstore-go/internal/codec"
	"github.com/confmesh/confstore-go/internal/core/domain"
	"github.com/confmesh/confstore-go/internal/core/notify"
	"github.com/confmesh/confstore-go/pkg/crypto/aescbc"
)

func defaultExport() codec.ExportOptions { return codec.DefaultExportOptions() }
func defaultImport() codec.ImportOptions { return codec.DefaultImportOptions() }

func newManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	m := New(opts...)
	if err := m.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return m
}

func testKey(b byte, n int) []byte {
	return bytes.Repeat([]byte{b}, n)
}

// memBackend is a trivial in-process Backend for tests.
type memBackend struct {
	data      []byte
	commitErr error
	loadErr   error
	commits   int
}

func (b *memBackend) Commit(data []byte) error {
	if b.commitErr != nil {
		return b.commitErr
	}
	b.data = bytes.Clone(data)
	b.commits++
	return nil
}

func (b *memBackend) Load() ([]byte, error) {
	if b.loadErr != nil {
		return nil, b.loadErr
	}
	if b.data == nil {
		return nil, domain.ErrNotFound
	}
	return bytes.Clone(b.data), nil
}

func TestLifecycle(t *testing.T) {
	m := New()
	if m.Initialized() {
		t.Error("new manager reports initialized")
	}
	if err := m.SetInt32("k", 1); !errors.Is(err, domain.ErrNotInitialized) {
		t.Errorf("Set before Init: %v, want ErrNotInitialized", err)
	}
	if _, err := m.GetInt32("k", 0); !errors.Is(err, domain.ErrNotInitialized) {
		t.Errorf("Get before Init: %v, want ErrNotInitialized", err)
	}

	if err := m.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := m.Init(); !errors.Is(err, domain.ErrAlreadyInitialized) {
		t.Errorf("second Init: %v, want ErrAlreadyInitialized", err)
	}

	if err := m.SetInt32("k", 1); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := m.Deinit(); err != nil {
		t.Fatalf("Deinit: %v", err)
	}
	if err := m.Deinit(); !errors.Is(err, domain.ErrNotInitialized) {
		t.Errorf("second Deinit: %v, want ErrNotInitialized", err)
	}

	// Re-init starts empty.
	if err := m.Init(); err != nil {
		t.Fatalf("re-Init: %v", err)
	}
	if m.Exists("k") {
		t.Error("entry survived Deinit")
	}
}

func TestTypedRoundTrip(t *testing.T) {
	m := newManager(t)

	if err := m.SetInt32("i", -5); err != nil {
		t.Fatal(err)
	}
	if err := m.SetUint32("u", 7); err != nil {
		t.Fatal(err)
	}
	if err := m.SetInt64("l", 1<<40); err != nil {
		t.Fatal(err)
	}
	if err := m.SetFloat("f", 0.5); err != nil {
		t.Fatal(err)
	}
	if err := m.SetBool("b", true); err != nil {
		t.Fatal(err)
	}
	if err := m.SetString("s", "hello"); err != nil {
		t.Fatal(err)
	}
	if err := m.SetBlob("raw", []byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}

	if v, err := m.GetInt32("i", 0); err != nil || v != -5 {
		t.Errorf("GetInt32 = %d, %v", v, err)
	}
	if v, err := m.GetUint32("u", 0); err != nil || v != 7 {
		t.Errorf("GetUint32 = %d, %v", v, err)
	}
	if v, err := m.GetInt64("l", 0); err != nil || v != 1<<40 {
		t.Errorf("GetInt64 = %d, %v", v, err)
	}
	if v, err := m.GetFloat("f", 0); err != nil || v != 0.5 {
		t.Errorf("GetFloat = %v, %v", v, err)
	}
	if v, err := m.GetBool("b", false); err != nil || !v {
		t.Errorf("GetBool = %v, %v", v, err)
	}
	if v, err := m.GetString("s", ""); err != nil || v != "hello" {
		t.Errorf("GetString = %q, %v", v, err)
	}
	if v, err := m.GetBlob("raw", nil); err != nil || !bytes.Equal(v, []byte{1, 2, 3}) {
		t.Errorf("GetBlob = %x, %v", v, err)
	}
}

func TestGetMissingKeyReturnsFallback(t *testing.T) {
	m := newManager(t)

	v, err := m.GetInt32("absent", 42)
	if err != nil {
		t.Fatalf("missing key must not error: %v", err)
	}
	if v != 42 {
		t.Errorf("fallback = %d, want 42", v)
	}
	if m.LastError() != nil {
		t.Errorf("missing key set last error: %v", m.LastError())
	}

	s, err := m.GetString("absent", "def")
	if err != nil || s != "def" {
		t.Errorf("GetString fallback = %q, %v", s, err)
	}
}

func TestTypeFixedUntilDelete(t *testing.T) {
	m := newManager(t)

	if err := m.SetInt32("port", 80); err != nil {
		t.Fatal(err)
	}
	if err := m.SetString("port", "eighty"); !errors.Is(err, domain.ErrTypeMismatch) {
		t.Fatalf("cross-type write: %v, want ErrTypeMismatch", err)
	}
	// The original value is untouched.
	if v, _ := m.GetInt32("port", 0); v != 80 {
		t.Errorf("value after rejected write = %d, want 80", v)
	}

	// Typed read under the wrong type also fails, with the fallback.
	if v, err := m.GetString("port", "fb"); !errors.Is(err, domain.ErrTypeMismatch) || v != "fb" {
		t.Errorf("wrong-type read = %q, %v", v, err)
	}

	// Delete releases the type.
	if err := m.Delete("port"); err != nil {
		t.Fatal(err)
	}
	if err := m.SetString("port", "eighty"); err != nil {
		t.Fatalf("write after delete: %v", err)
	}
}

func TestLastErrorTracking(t *testing.T) {
	m := newManager(t)

	if err := m.SetInt32("k", 1); err != nil {
		t.Fatal(err)
	}
	if m.LastError() != nil {
		t.Fatalf("last error after success: %v", m.LastError())
	}

	if err := m.SetString("k", "x"); err == nil {
		t.Fatal("expected type mismatch")
	}
	if !errors.Is(m.LastError(), domain.ErrTypeMismatch) {
		t.Errorf("last error = %v, want ErrTypeMismatch", m.LastError())
	}

	// The next successful operation clears it.
	if err := m.SetInt32("k", 2); err != nil {
		t.Fatal(err)
	}
	if m.LastError() != nil {
		t.Errorf("last error not cleared: %v", m.LastError())
	}
}

func TestNamespaceScopedAccess(t *testing.T) {
	m := newManager(t)

	h, err := m.OpenNamespace("sensors")
	if err != nil {
		t.Fatalf("OpenNamespace: %v", err)
	}
	ns, err := m.In(h)
	if err != nil {
		t.Fatalf("In: %v", err)
	}

	if err := m.SetInt32("rate", 1); err != nil {
		t.Fatal(err)
	}
	if err := ns.SetInt32("rate", 2); err != nil {
		t.Fatal(err)
	}

	if v, _ := m.GetInt32("rate", 0); v != 1 {
		t.Errorf("default ns rate = %d, want 1", v)
	}
	if v, _ := ns.GetInt32("rate", 0); v != 2 {
		t.Errorf("sensors rate = %d, want 2", v)
	}
	if ns.Count() != 1 {
		t.Errorf("sensors count = %d, want 1", ns.Count())
	}

	if err := m.CloseNamespace(h); err != nil {
		t.Fatalf("CloseNamespace: %v", err)
	}
	// The handle is dead after close.
	if _, err := m.In(h); !errors.Is(err, domain.ErrInvalidHandle) {
		t.Errorf("In after close: %v, want ErrInvalidHandle", err)
	}
}

func TestEraseNamespace(t *testing.T) {
	m := newManager(t)

	h, err := m.OpenNamespace("tmp")
	if err != nil {
		t.Fatal(err)
	}
	ns, err := m.In(h)
	if err != nil {
		t.Fatal(err)
	}
	if err := ns.SetBool("flag", true); err != nil {
		t.Fatal(err)
	}
	if err := m.CloseNamespace(h); err != nil {
		t.Fatal(err)
	}

	if err := m.EraseNamespace("tmp"); err != nil {
		t.Fatalf("EraseNamespace: %v", err)
	}
	names, err := m.Namespaces()
	if err != nil {
		t.Fatal(err)
	}
	for _, n := range names {
		if n == "tmp" {
			t.Error("erased namespace still listed")
		}
	}
}

func TestCallbacksFireOnWrite(t *testing.T) {
	m := newManager(t)

	var events []notify.Event
	h, err := m.Watch("watched", func(ev notify.Event, userData any) {
		events = append(events, ev)
		if userData.(string) != "ctx" {
			t.Errorf("userData = %v", userData)
		}
	}, "ctx")
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}

	if err := m.SetInt32("other", 1); err != nil {
		t.Fatal(err)
	}
	if len(events) != 0 {
		t.Fatalf("callback fired for unrelated key")
	}

	if err := m.SetInt32("watched", 1); err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || !events[0].Created() {
		t.Fatalf("create event = %+v", events)
	}

	if err := m.SetInt32("watched", 2); err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 || events[1].Created() {
		t.Fatalf("update event = %+v", events)
	}
	if old, _ := domain.DecodeInt32(events[1].OldValue); old != 1 {
		t.Errorf("old value = %d, want 1", old)
	}
	if nv, _ := domain.DecodeInt32(events[1].NewValue); nv != 2 {
		t.Errorf("new value = %d, want 2", nv)
	}

	if err := m.Unwatch(h); err != nil {
		t.Fatalf("Unwatch: %v", err)
	}
	if err := m.SetInt32("watched", 3); err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Error("callback fired after Unwatch")
	}
}

func TestRejectedWriteDoesNotNotify(t *testing.T) {
	m := newManager(t)

	fired := 0
	if _, err := m.WatchAll(func(ev notify.Event, _ any) { fired++ }, nil); err != nil {
		t.Fatal(err)
	}

	if err := m.SetInt32("k", 1); err != nil {
		t.Fatal(err)
	}
	if err := m.SetString("k", "x"); !errors.Is(err, domain.ErrTypeMismatch) {
		t.Fatal(err)
	}
	if fired != 1 {
		t.Errorf("fired = %d, want 1", fired)
	}
}

func TestEncryptedValues(t *testing.T) {
	m := newManager(t)
	key := testKey(0xAA, 16)

	if err := m.SetSecretString("token", "s3cret"); !errors.Is(err, domain.ErrNoEncryptionKey) {
		t.Fatalf("secret write without key: %v, want ErrNoEncryptionKey", err)
	}

	if err := m.SetEncryptionKey(key, aescbc.AES128); err != nil {
		t.Fatalf("SetEncryptionKey: %v", err)
	}
	if err := m.SetSecretString("token", "s3cret"); err != nil {
		t.Fatalf("SetSecretString: %v", err)
	}

	enc, err := m.IsEncrypted("token")
	if err != nil || !enc {
		t.Fatalf("IsEncrypted = %v, %v", enc, err)
	}

	// Transparent decrypt on read.
	if v, err := m.GetString("token", ""); err != nil || v != "s3cret" {
		t.Fatalf("GetString = %q, %v", v, err)
	}

	// Unreadable without the key.
	if err := m.ClearEncryptionKey(); err != nil {
		t.Fatal(err)
	}
	if _, err := m.GetString("token", ""); !errors.Is(err, domain.ErrNoEncryptionKey) {
		t.Errorf("read without key: %v, want ErrNoEncryptionKey", err)
	}

	// Wrong key fails closed.
	if err := m.SetEncryptionKey(testKey(0xBB, 16), aescbc.AES128); err != nil {
		t.Fatal(err)
	}
	if _, err := m.GetString("token", ""); !errors.Is(err, domain.ErrCryptoFailure) {
		t.Errorf("read with wrong key: %v, want ErrCryptoFailure", err)
	}
}

func TestPassphraseKey(t *testing.T) {
	m := newManager(t)

	if _, err := m.SetEncryptionPassphrase("short", nil, aescbc.AES256); err == nil {
		t.Fatal("weak passphrase accepted")
	}

	salt, err := m.SetEncryptionPassphrase("correct horse battery", nil, aescbc.AES256)
	if err != nil {
		t.Fatalf("SetEncryptionPassphrase: %v", err)
	}
	if len(salt) != aescbc.SaltLength {
		t.Fatalf("salt length = %d, want %d", len(salt), aescbc.SaltLength)
	}
	if err := m.SetSecretString("s", "v"); err != nil {
		t.Fatal(err)
	}

	// The same passphrase and salt reach the same key.
	m2 := newManager(t)
	if _, err := m2.SetEncryptionPassphrase("correct horse battery", salt, aescbc.AES256); err != nil {
		t.Fatal(err)
	}
	data, err := m.Export(FormatBinary, defaultExport())
	if err != nil {
		t.Fatal(err)
	}
	if err := m2.Import(FormatBinary, data, defaultImport()); err != nil {
		t.Fatal(err)
	}
	if v, err := m2.GetString("s", ""); err != nil || v != "v" {
		t.Errorf("cross-manager read = %q, %v", v, err)
	}
}

func TestRotateKey(t *testing.T) {
	m := newManager(t)

	if _, err := m.RotateKey(testKey(1, 16), aescbc.AES128); !errors.Is(err, domain.ErrNoEncryptionKey) {
		t.Fatalf("rotate without key: %v, want ErrNoEncryptionKey", err)
	}

	if err := m.SetEncryptionKey(testKey(1, 16), aescbc.AES128); err != nil {
		t.Fatal(err)
	}
	if err := m.SetSecretString("a", "one"); err != nil {
		t.Fatal(err)
	}
	if err := m.SetSecretBlob("b", []byte{9, 9}); err != nil {
		t.Fatal(err)
	}
	if err := m.SetString("plain", "stays"); err != nil {
		t.Fatal(err)
	}

	fired := 0
	if _, err := m.WatchAll(func(notify.Event, any) { fired++ }, nil); err != nil {
		t.Fatal(err)
	}

	failed, err := m.RotateKey(testKey(2, 32), aescbc.AES256)
	if err != nil {
		t.Fatalf("RotateKey: %v", err)
	}
	if failed != 0 {
		t.Errorf("failed = %d, want 0", failed)
	}
	if fired != 0 {
		t.Errorf("rotation fired %d callbacks, want 0", fired)
	}

	// Readable under the new key only.
	if v, err := m.GetString("a", ""); err != nil || v != "one" {
		t.Errorf("a = %q, %v", v, err)
	}
	if v, err := m.GetBlob("b", nil); err != nil || !bytes.Equal(v, []byte{9, 9}) {
		t.Errorf("b = %x, %v", v, err)
	}
	if v, err := m.GetString("plain", ""); err != nil || v != "stays" {
		t.Errorf("plain = %q, %v", v, err)
	}
}

func TestDefaults(t *testing.T) {
	m := newManager(t)

	if err := m.RegisterDefaultInt32("retries", 3); err != nil {
		t.Fatal(err)
	}
	if err := m.RegisterDefaultString("mode", "auto"); err != nil {
		t.Fatal(err)
	}

	// Registering a default does not create the entry, and fallback
	// reads do not consult the registry.
	if m.Exists("retries") {
		t.Error("RegisterDefault created the entry")
	}
	if v, err := m.GetInt32("retries", 99); err != nil || v != 99 {
		t.Errorf("fallback read = %d, %v", v, err)
	}

	if err := m.ResetToDefault("retries"); err != nil {
		t.Fatalf("ResetToDefault: %v", err)
	}
	if v, _ := m.GetInt32("retries", 0); v != 3 {
		t.Errorf("retries = %d, want 3", v)
	}

	if err := m.ResetToDefault("unregistered"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unregistered reset: %v, want ErrNotFound", err)
	}

	if err := m.SetInt32("retries", 10); err != nil {
		t.Fatal(err)
	}
	applied, err := m.ResetAllToDefaults()
	if err != nil {
		t.Fatalf("ResetAllToDefaults: %v", err)
	}
	if applied != 2 {
		t.Errorf("applied = %d, want 2", applied)
	}
	if v, _ := m.GetInt32("retries", 0); v != 3 {
		t.Errorf("retries after reset-all = %d, want 3", v)
	}
	if v, _ := m.GetString("mode", ""); v != "auto" {
		t.Errorf("mode = %q, want auto", v)
	}
}

func TestDefaultsTypeConflict(t *testing.T) {
	m := newManager(t)

	if err := m.RegisterDefaultInt32("k", 1); err != nil {
		t.Fatal(err)
	}
	if err := m.RegisterDefaultString("k", "x"); !errors.Is(err, domain.ErrTypeMismatch) {
		t.Errorf("re-register under new type: %v, want ErrTypeMismatch", err)
	}
	// Same type updates the stored default.
	if err := m.RegisterDefaultInt32("k", 5); err != nil {
		t.Fatal(err)
	}
	if err := m.ResetToDefault("k"); err != nil {
		t.Fatal(err)
	}
	if v, _ := m.GetInt32("k", 0); v != 5 {
		t.Errorf("k = %d, want 5", v)
	}

	// A stored entry of a conflicting type blocks the reset.
	if err := m.Delete("k"); err != nil {
		t.Fatal(err)
	}
	if err := m.SetString("k", "occupied"); err != nil {
		t.Fatal(err)
	}
	if err := m.ResetToDefault("k"); !errors.Is(err, domain.ErrTypeMismatch) {
		t.Errorf("reset over conflicting type: %v, want ErrTypeMismatch", err)
	}
}

func TestCommitAndLoad(t *testing.T) {
	backend := &memBackend{}
	m := newManager(t, WithBackend(backend))

	if err := m.SetString("host", "db1"); err != nil {
		t.Fatal(err)
	}
	if err := m.SetInt32("port", 5432); err != nil {
		t.Fatal(err)
	}
	if err := m.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if backend.commits != 1 {
		t.Fatalf("commits = %d", backend.commits)
	}

	if err := m.SetString("host", "changed"); err != nil {
		t.Fatal(err)
	}
	if err := m.SetBool("extra", true); err != nil {
		t.Fatal(err)
	}
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if v, _ := m.GetString("host", ""); v != "db1" {
		t.Errorf("host = %q, want db1", v)
	}
	if m.Exists("extra") {
		t.Error("Load kept an entry not in the snapshot")
	}
}

func TestEntriesListsUnnamedNamespacesAfterLoad(t *testing.T) {
	backend := &memBackend{}
	m := newManager(t, WithBackend(backend))

	h, err := m.OpenNamespace("plugins")
	if err != nil {
		t.Fatal(err)
	}
	ns, err := m.In(h)
	if err != nil {
		t.Fatal(err)
	}
	if err := ns.SetBool("feature", true); err != nil {
		t.Fatal(err)
	}
	if err := m.SetString("host", "db1"); err != nil {
		t.Fatal(err)
	}
	if err := m.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	entries, err := m.Entries()
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	byKey := make(map[string]EntryInfo)
	for _, e := range entries {
		byKey[e.Key] = e
	}
	if e := byKey["feature"]; e.Namespace != "plugins" {
		t.Errorf("feature namespace = %q, want plugins", e.Namespace)
	}

	// The snapshot carries namespace ids only; a fresh manager loading
	// it must still list entries outside the default namespace.
	m2 := newManager(t, WithBackend(backend))
	if err := m2.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	entries, err = m2.Entries()
	if err != nil {
		t.Fatalf("Entries after Load: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Entries after Load = %d rows, want 2", len(entries))
	}
	byKey = make(map[string]EntryInfo)
	for _, e := range entries {
		byKey[e.Key] = e
	}
	e, ok := byKey["feature"]
	if !ok {
		t.Fatal("loaded entry in a non-default namespace is missing")
	}
	if e.Namespace != "" || e.NamespaceID == domain.DefaultNamespaceID {
		t.Errorf("feature = %+v, want an unnamed non-default namespace id", e)
	}
	if e.Type != domain.TypeBool || e.Encrypted {
		t.Errorf("feature metadata = %+v", e)
	}
	if e := byKey["host"]; e.Namespace != "default" {
		t.Errorf("host namespace = %q, want default", e.Namespace)
	}
}

func TestCommitLoadErrors(t *testing.T) {
	m := newManager(t)
	if err := m.Commit(); !errors.Is(err, domain.ErrWriteFailure) {
		t.Errorf("Commit without backend: %v, want ErrWriteFailure", err)
	}
	if err := m.Load(); !errors.Is(err, domain.ErrReadFailure) {
		t.Errorf("Load without backend: %v, want ErrReadFailure", err)
	}

	backend := &memBackend{commitErr: errors.New("disk full")}
	m = newManager(t, WithBackend(backend))
	if err := m.Commit(); !errors.Is(err, domain.ErrWriteFailure) {
		t.Errorf("failing Commit: %v, want ErrWriteFailure", err)
	}

	backend = &memBackend{}
	m = newManager(t, WithBackend(backend))
	if err := m.Load(); !errors.Is(err, domain.ErrReadFailure) {
		t.Errorf("Load with empty backend: %v, want ErrReadFailure", err)
	}

	// A corrupt snapshot must not clear the store.
	backend.data = []byte("not a snapshot at all")
	if err := m.SetBool("keep", true); err != nil {
		t.Fatal(err)
	}
	if err := m.Load(); !errors.Is(err, domain.ErrInvalidFormat) {
		t.Errorf("corrupt Load: %v, want ErrInvalidFormat", err)
	}
	if !m.Exists("keep") {
		t.Error("corrupt Load cleared the store")
	}
}

func TestExportImportFormats(t *testing.T) {
	m := newManager(t)
	if err := m.SetString("name", "confstore"); err != nil {
		t.Fatal(err)
	}

	for _, format := range []Format{FormatBinary, FormatJSON} {
		data, err := m.Export(format, defaultExport())
		if err != nil {
			t.Fatalf("Export(%s): %v", format, err)
		}
		m2 := newManager(t)
		if err := m2.Import(format, data, defaultImport()); err != nil {
			t.Fatalf("Import(%s): %v", format, err)
		}
		if v, _ := m2.GetString("name", ""); v != "confstore" {
			t.Errorf("%s round trip = %q", format, v)
		}
	}

	if _, err := m.Export(Format("xml"), defaultExport()); !errors.Is(err, domain.ErrInvalidParameter) {
		t.Errorf("unknown export format: %v", err)
	}
	if _, err := ParseFormat("yaml"); !errors.Is(err, domain.ErrInvalidParameter) {
		t.Errorf("ParseFormat: %v", err)
	}
}

func TestExportDecryptRequiresKey(t *testing.T) {
	m := newManager(t)
	opts := defaultExport()
	opts.Decrypt = true
	if _, err := m.Export(FormatJSON, opts); !errors.Is(err, domain.ErrNoEncryptionKey) {
		t.Errorf("decrypting export without key: %v, want ErrNoEncryptionKey", err)
	}
}

func TestStats(t *testing.T) {
	m := newManager(t)

	if err := m.SetInt32("a", 1); err != nil {
		t.Fatal(err)
	}
	if _, err := m.OpenNamespace("x"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.WatchAll(func(notify.Event, any) {}, nil); err != nil {
		t.Fatal(err)
	}
	if err := m.SetInt32("a", 2); err != nil {
		t.Fatal(err)
	}

	st := m.Stats()
	if st.Entries != 1 {
		t.Errorf("Entries = %d, want 1", st.Entries)
	}
	if st.Namespaces != 2 {
		t.Errorf("Namespaces = %d, want 2", st.Namespaces)
	}
	if st.Callbacks != 1 {
		t.Errorf("Callbacks = %d, want 1", st.Callbacks)
	}
	if st.CallbacksFired != 1 {
		t.Errorf("CallbacksFired = %d, want 1", st.CallbacksFired)
	}
	if st.EncryptionSet {
		t.Error("EncryptionSet without a key")
	}
}
