package domain

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Typed value bytes are little-endian fixed-width for numerics, a
// single byte for booleans, and NUL-terminated for strings. The
// terminator is stored so value sizes on the wire match the stored
// sizes exactly.

// EncodeInt32 encodes a signed 32-bit value.
func EncodeInt32(v int32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	return b
}

// DecodeInt32 decodes a signed 32-bit value.
func DecodeInt32(b []byte) (int32, error) {
	if len(b) != 4 {
		return 0, ErrTypeMismatch.WithDetails(fmt.Sprintf("i32 value has %d bytes", len(b)))
	}
	return int32(binary.LittleEndian.Uint32(b)), nil
}

// EncodeUint32 encodes an unsigned 32-bit value.
func EncodeUint32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

// DecodeUint32 decodes an unsigned 32-bit value.
func DecodeUint32(b []byte) (uint32, error) {
	if len(b) != 4 {
		return 0, ErrTypeMismatch.WithDetails(fmt.Sprintf("u32 value has %d bytes", len(b)))
	}
	return binary.LittleEndian.Uint32(b), nil
}

// EncodeInt64 encodes a signed 64-bit value.
func EncodeInt64(v int64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(v))
	return b
}

// DecodeInt64 decodes a signed 64-bit value.
func DecodeInt64(b []byte) (int64, error) {
	if len(b) != 8 {
		return 0, ErrTypeMismatch.WithDetails(fmt.Sprintf("i64 value has %d bytes", len(b)))
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}

// EncodeFloat encodes an IEEE-754 float32 value.
func EncodeFloat(v float32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
	return b
}

// DecodeFloat decodes an IEEE-754 float32 value.
func DecodeFloat(b []byte) (float32, error) {
	if len(b) != 4 {
		return 0, ErrTypeMismatch.WithDetails(fmt.Sprintf("float value has %d bytes", len(b)))
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b)), nil
}

// EncodeBool encodes a boolean as one byte.
func EncodeBool(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}

// DecodeBool decodes a one-byte boolean.
func DecodeBool(b []byte) (bool, error) {
	if len(b) != 1 {
		return false, ErrTypeMismatch.WithDetails(fmt.Sprintf("bool value has %d bytes", len(b)))
	}
	return b[0] != 0, nil
}

// EncodeString encodes a string with its NUL terminator.
func EncodeString(v string) []byte {
	b := make([]byte, len(v)+1)
	copy(b, v)
	return b
}

// DecodeString decodes a NUL-terminated string value.
func DecodeString(b []byte) (string, error) {
	if len(b) == 0 || b[len(b)-1] != 0 {
		return "", ErrTypeMismatch.WithDetails("string value missing terminator")
	}
	return string(b[:len(b)-1]), nil
}
