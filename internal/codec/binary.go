package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/confmesh/confstore-go/internal/core/domain"
	"github.com/confmesh/confstore-go/internal/core/store"
)

// Binary format constants. The header is
//
//	magic:u32 version:u8 reserved:u8[3] entry_count:u32 data_size:u32
//
// followed by unaligned little-endian entry records:
//
//	key_len:u8 type:u8 flags:u8 namespace_id:u8 value_len:u16
//	key_bytes[key_len] value_bytes[value_len]
const (
	// BinaryMagic spells "CONF" in the serialized byte order.
	BinaryMagic uint32 = 0x464E4F43

	// BinaryVersion is the one supported format revision.
	BinaryVersion byte = 1

	binaryHeaderSize      = 16
	binaryEntryHeaderSize = 6
)

// BinarySize returns the exact buffer size a binary export needs.
func BinarySize(t *store.Table, opts ExportOptions) int {
	size := binaryHeaderSize
	t.Iterate(opts.NamespaceID, func(e *domain.Entry) bool {
		value, _ := exportValue(e.Value, e.Flags.Encrypted(), opts)
		size += binaryEntryHeaderSize + len(e.Key) + len(value)
		return true
	})
	return size
}

// ExportBinary serializes the store into buf and returns the number of
// bytes written. buf must be at least BinarySize bytes; every append is
// still bounds-checked.
func ExportBinary(t *store.Table, opts ExportOptions, buf []byte) (int, error) {
	count := 0
	dataSize := 0
	t.Iterate(opts.NamespaceID, func(e *domain.Entry) bool {
		value, _ := exportValue(e.Value, e.Flags.Encrypted(), opts)
		count++
		dataSize += binaryEntryHeaderSize + len(e.Key) + len(value)
		return true
	})

	if len(buf) < binaryHeaderSize+dataSize {
		return 0, domain.ErrBufferTooSmall.WithDetails(
			fmt.Sprintf("need %d bytes, have %d", binaryHeaderSize+dataSize, len(buf)))
	}

	binary.LittleEndian.PutUint32(buf[0:], BinaryMagic)
	buf[4] = BinaryVersion
	buf[5], buf[6], buf[7] = 0, 0, 0
	binary.LittleEndian.PutUint32(buf[8:], uint32(count))
	binary.LittleEndian.PutUint32(buf[12:], uint32(dataSize))

	off := binaryHeaderSize
	writeErr := false
	t.Iterate(opts.NamespaceID, func(e *domain.Entry) bool {
		value, encrypted := exportValue(e.Value, e.Flags.Encrypted(), opts)
		need := binaryEntryHeaderSize + len(e.Key) + len(value)
		if off+need > len(buf) {
			writeErr = true
			return false
		}

		flags := e.Flags &^ domain.FlagEncrypted
		if encrypted {
			flags |= domain.FlagEncrypted
		}

		buf[off] = byte(len(e.Key))
		buf[off+1] = byte(e.Type)
		buf[off+2] = byte(flags)
		buf[off+3] = e.NamespaceID
		binary.LittleEndian.PutUint16(buf[off+4:], uint16(len(value)))
		off += binaryEntryHeaderSize
		off += copy(buf[off:], e.Key)
		off += copy(buf[off:], value)
		return true
	})
	if writeErr {
		return 0, domain.ErrBufferTooSmall
	}
	return off, nil
}

// ExportBinaryAlloc sizes, allocates, and serializes in one call.
func ExportBinaryAlloc(t *store.Table, opts ExportOptions) ([]byte, error) {
	buf := make([]byte, BinarySize(t, opts))
	n, err := ExportBinary(t, opts, buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// ImportBinary parses a binary export and stores its entries. The magic
// number and version are validated before any length field is trusted,
// and declared key and value lengths are bounds-checked against the
// buffer before copying.
func ImportBinary(t *store.Table, data []byte, opts ImportOptions) error {
	if len(data) < binaryHeaderSize {
		return domain.ErrInvalidFormat.WithDetails("truncated header")
	}
	if binary.LittleEndian.Uint32(data[0:]) != BinaryMagic {
		return domain.ErrInvalidFormat.WithDetails("bad magic number")
	}
	if data[4] != BinaryVersion {
		return domain.ErrInvalidFormat.WithDetails(
			fmt.Sprintf("unsupported format version %d", data[4]))
	}
	count := int(binary.LittleEndian.Uint32(data[8:]))
	dataSize := int(binary.LittleEndian.Uint32(data[12:]))
	if binaryHeaderSize+dataSize > len(data) {
		return domain.ErrInvalidFormat.WithDetails("declared data size exceeds buffer")
	}

	if opts.Clear {
		clearDestination(t, opts)
	}

	off := binaryHeaderSize
	for i := 0; i < count; i++ {
		if off+binaryEntryHeaderSize > len(data) {
			return domain.ErrInvalidFormat.WithDetails("truncated entry header")
		}
		keyLen := int(data[off])
		typ := domain.ValueType(data[off+1])
		flags := domain.EntryFlags(data[off+2])
		nsID := data[off+3]
		valueLen := int(binary.LittleEndian.Uint16(data[off+4:]))
		off += binaryEntryHeaderSize

		if off+keyLen+valueLen > len(data) {
			return domain.ErrInvalidFormat.WithDetails("entry lengths exceed buffer")
		}
		key := string(data[off : off+keyLen])
		value := data[off+keyLen : off+keyLen+valueLen]
		off += keyLen + valueLen

		if opts.NamespaceID != store.AllNamespaces {
			nsID = uint8(opts.NamespaceID)
		}

		if err := t.Set(key, nsID, typ, value, flags); err != nil {
			if opts.SkipErrors {
				continue
			}
			return err
		}
	}
	return nil
}

func clearDestination(t *store.Table, opts ImportOptions) {
	if opts.NamespaceID == store.AllNamespaces {
		t.ClearAll()
		return
	}
	t.ClearNamespace(uint8(opts.NamespaceID))
}
