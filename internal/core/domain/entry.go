package domain

// ValueType identifies the stored type of an entry's value bytes.
//
// The numeric values are part of the binary export format and must not
// be reordered.
type ValueType uint8

const (
	// TypeUnspecified is the zero value and never stored.
	TypeUnspecified ValueType = 0

	// TypeInt32 is a signed 32-bit integer, little-endian.
	TypeInt32 ValueType = 1

	// TypeUint32 is an unsigned 32-bit integer, little-endian.
	TypeUint32 ValueType = 2

	// TypeInt64 is a signed 64-bit integer, little-endian.
	TypeInt64 ValueType = 3

	// TypeFloat is an IEEE-754 float32, little-endian.
	TypeFloat ValueType = 4

	// TypeBool is a single byte, 0 or 1.
	TypeBool ValueType = 5

	// TypeString is a NUL-terminated byte string; the terminator is
	// included in the stored value and in value_len on the wire.
	TypeString ValueType = 6

	// TypeBlob is an opaque byte buffer.
	TypeBlob ValueType = 7
)

// String returns the canonical name used in the JSON export format.
func (t ValueType) String() string {
	switch t {
	case TypeInt32:
		return "i32"
	case TypeUint32:
		return "u32"
	case TypeInt64:
		return "i64"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	case TypeString:
		return "string"
	case TypeBlob:
		return "blob"
	default:
		return "unknown"
	}
}

// ParseValueType parses a JSON-format type name.
func ParseValueType(s string) (ValueType, error) {
	switch s {
	case "i32":
		return TypeInt32, nil
	case "u32":
		return TypeUint32, nil
	case "i64":
		return TypeInt64, nil
	case "float":
		return TypeFloat, nil
	case "bool":
		return TypeBool, nil
	case "string":
		return TypeString, nil
	case "blob":
		return TypeBlob, nil
	default:
		return TypeUnspecified, ErrInvalidFormat.WithDetails("unknown value type " + s)
	}
}

// Valid reports whether t is one of the storable types.
func (t ValueType) Valid() bool {
	return t >= TypeInt32 && t <= TypeBlob
}

// EntryFlags is a bit set attached to each entry.
type EntryFlags uint8

const (
	// FlagEncrypted marks the value bytes as an iv-prefixed AES-CBC
	// ciphertext rather than plaintext.
	FlagEncrypted EntryFlags = 1 << 0
)

// Encrypted reports whether the encrypted bit is set.
func (f EntryFlags) Encrypted() bool {
	return f&FlagEncrypted != 0
}

// DefaultNamespaceID is the namespace every key belongs to unless the
// caller opened a named namespace. It exists from Init and can never be
// deallocated, only cleared.
const DefaultNamespaceID uint8 = 0

// Entry is one stored key-value pair.
//
// Within a namespace there is at most one live entry per key. The value
// slice is owned by the store; callers receive clones.
type Entry struct {
	Key         string
	NamespaceID uint8
	Type        ValueType
	Flags       EntryFlags
	Value       []byte
}

// Clone returns a deep copy of the entry.
func (e *Entry) Clone() *Entry {
	clone := *e
	if e.Value != nil {
		clone.Value = make([]byte, len(e.Value))
		copy(clone.Value, e.Value)
	}
	return &clone
}

// Limits bounds every table in the engine. All tables are allocated at
// Init time and never grow.
type Limits struct {
	// MaxEntries is the capacity of the entry table.
	MaxEntries int `koanf:"max_entries"`

	// MaxKeyLength is the maximum key length in bytes.
	MaxKeyLength int `koanf:"max_key_length"`

	// MaxValueSize is the maximum value size in bytes.
	MaxValueSize int `koanf:"max_value_size"`

	// MaxNamespaces is the capacity of the namespace id table,
	// including the default namespace.
	MaxNamespaces int `koanf:"max_namespaces"`

	// MaxHandles is the capacity of the namespace handle pool.
	MaxHandles int `koanf:"max_handles"`

	// MaxCallbacks is the capacity of the change-callback table.
	MaxCallbacks int `koanf:"max_callbacks"`

	// MaxDefaults is the capacity of the registered-defaults table.
	MaxDefaults int `koanf:"max_defaults"`
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MaxEntries:    256,
		MaxKeyLength:  64,
		MaxValueSize:  2048,
		MaxNamespaces: 16,
		MaxHandles:    32,
		MaxCallbacks:  32,
		MaxDefaults:   64,
	}
}

// Verify checks the limits for internal consistency.
func (l Limits) Verify() error {
	if l.MaxEntries <= 0 || l.MaxKeyLength <= 0 || l.MaxValueSize <= 0 {
		return ErrInvalidParameter.WithDetails("entry limits must be positive")
	}
	if l.MaxNamespaces < 1 {
		return ErrInvalidParameter.WithDetails("at least the default namespace is required")
	}
	if l.MaxNamespaces > 256 {
		return ErrInvalidParameter.WithDetails("namespace ids are single bytes")
	}
	if l.MaxHandles <= 0 || l.MaxCallbacks <= 0 || l.MaxDefaults <= 0 {
		return ErrInvalidParameter.WithDetails("pool limits must be positive")
	}
	if l.MaxValueSize > 0xFFFF {
		return ErrInvalidParameter.WithDetails("value size is a 16-bit field on the wire")
	}
	if l.MaxKeyLength > 0xFF {
		return ErrInvalidParameter.WithDetails("key length is an 8-bit field on the wire")
	}
	return nil
}
