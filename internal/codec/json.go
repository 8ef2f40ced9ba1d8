package codec

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/confmesh/confstore-go/internal/core/domain"
	"github.com/confmesh/confstore-go/internal/core/store"
)

// JSONSize returns the exact buffer size a JSON export needs.
func JSONSize(t *store.Table, opts ExportOptions) int {
	size := 2 // braces
	first := true
	t.Iterate(opts.NamespaceID, func(e *domain.Entry) bool {
		if !first {
			size++ // comma
		}
		first = false
		size += len(jsonEntry(e, opts))
		return true
	})
	return size
}

// ExportJSON serializes the store as a JSON object into buf and returns
// the number of bytes written.
func ExportJSON(t *store.Table, opts ExportOptions, buf []byte) (int, error) {
	off := 0
	writeErr := false
	write := func(p []byte) bool {
		if off+len(p) > len(buf) {
			writeErr = true
			return false
		}
		off += copy(buf[off:], p)
		return true
	}

	if !write([]byte{'{'}) {
		return 0, domain.ErrBufferTooSmall
	}
	first := true
	t.Iterate(opts.NamespaceID, func(e *domain.Entry) bool {
		if !first && !write([]byte{','}) {
			return false
		}
		first = false
		return write(jsonEntry(e, opts))
	})
	if writeErr || !write([]byte{'}'}) {
		return 0, domain.ErrBufferTooSmall
	}
	return off, nil
}

// ExportJSONAlloc sizes, allocates, and serializes in one call.
func ExportJSONAlloc(t *store.Table, opts ExportOptions) ([]byte, error) {
	buf := make([]byte, JSONSize(t, opts))
	n, err := ExportJSON(t, opts, buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// jsonEntry renders one `"key":{...}` member. Both export phases call
// this, so sizing and writing cannot disagree.
func jsonEntry(e *domain.Entry, opts ExportOptions) []byte {
	value, encrypted := exportValue(e.Value, e.Flags.Encrypted(), opts)

	out := appendJSONString(nil, e.Key)
	out = append(out, `:{"type":"`...)
	out = append(out, e.Type.String()...)
	out = append(out, `","value":`...)
	out = appendJSONValue(out, e.Type, value, encrypted)
	if encrypted {
		out = append(out, `,"encrypted":true`...)
	}
	out = append(out, '}')
	return out
}

// appendJSONValue renders the typed literal. Values that remain
// encrypted are rendered as the hex of the stored iv-prefixed
// ciphertext regardless of their logical type.
func appendJSONValue(dst []byte, typ domain.ValueType, value []byte, encrypted bool) []byte {
	if encrypted {
		return appendHexString(dst, value)
	}

	switch typ {
	case domain.TypeInt32:
		if v, err := domain.DecodeInt32(value); err == nil {
			return strconv.AppendInt(dst, int64(v), 10)
		}
	case domain.TypeUint32:
		if v, err := domain.DecodeUint32(value); err == nil {
			return strconv.AppendUint(dst, uint64(v), 10)
		}
	case domain.TypeInt64:
		if v, err := domain.DecodeInt64(value); err == nil {
			return strconv.AppendInt(dst, v, 10)
		}
	case domain.TypeFloat:
		if v, err := domain.DecodeFloat(value); err == nil {
			return strconv.AppendFloat(dst, float64(v), 'g', -1, 32)
		}
	case domain.TypeBool:
		if v, err := domain.DecodeBool(value); err == nil {
			return strconv.AppendBool(dst, v)
		}
	case domain.TypeString:
		if v, err := domain.DecodeString(value); err == nil {
			return appendJSONString(dst, v)
		}
	}
	// Blobs, and values whose bytes do not match their declared type.
	return appendHexString(dst, value)
}

// appendHexString appends a quoted lower-case hex rendering of b.
func appendHexString(dst, b []byte) []byte {
	dst = append(dst, '"')
	dst = append(dst, hex.EncodeToString(b)...)
	return append(dst, '"')
}

// appendJSONString appends s as a quoted, escaped JSON string.
func appendJSONString(dst []byte, s string) []byte {
	dst = append(dst, '"')
	for _, c := range []byte(s) {
		switch c {
		case '"':
			dst = append(dst, '\\', '"')
		case '\\':
			dst = append(dst, '\\', '\\')
		case '\n':
			dst = append(dst, '\\', 'n')
		case '\r':
			dst = append(dst, '\\', 'r')
		case '\t':
			dst = append(dst, '\\', 't')
		default:
			if c < 0x20 {
				dst = append(dst, fmt.Sprintf("\\u%04x", c)...)
			} else {
				dst = append(dst, c)
			}
		}
	}
	return append(dst, '"')
}
