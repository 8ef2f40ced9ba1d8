package aescbc

import (
	"errors"
	"fmt"
)

// Cipher errors.
var (
	ErrKeySize            = errors.New("aescbc: key must be 16 bytes (AES-128) or 32 bytes (AES-256)")
	ErrCiphertextTooShort = errors.New("aescbc: ciphertext shorter than IV plus one block")
	ErrCiphertextLength   = errors.New("aescbc: ciphertext not a multiple of the block size")
	ErrBadPadding         = errors.New("aescbc: bad padding - wrong key or corrupted ciphertext")
	ErrKeyCleared         = errors.New("aescbc: cipher key has been cleared")
)

// Algorithm selects the AES key size.
type Algorithm uint8

const (
	// AES128 uses a 16-byte key and 10 rounds.
	AES128 Algorithm = iota + 1
	// AES256 uses a 32-byte key and 14 rounds.
	AES256
)

// KeySize returns the key length in bytes.
func (a Algorithm) KeySize() int {
	if a == AES256 {
		return 32
	}
	return 16
}

// String returns the algorithm name.
func (a Algorithm) String() string {
	if a == AES256 {
		return "aes-256-cbc"
	}
	return "aes-128-cbc"
}

// ParseAlgorithm parses an algorithm name or key-size designator.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch s {
	case "aes-128-cbc", "aes128", "128":
		return AES128, nil
	case "aes-256-cbc", "aes256", "256":
		return AES256, nil
	default:
		return 0, fmt.Errorf("aescbc: unknown algorithm %q", s)
	}
}

// Cipher is a keyed AES-CBC cipher with an internal IV generator.
type Cipher struct {
	algorithm Algorithm
	words     []uint32
	rounds    int
	iv        lfsr
	cleared   bool
}

// NewCipher creates a cipher from raw key bytes. The key length must
// match the algorithm. The IV generator is seeded from the key via
// HKDF, so the key alone determines the full cipher state.
func NewCipher(key []byte, algorithm Algorithm) (*Cipher, error) {
	if algorithm != AES128 && algorithm != AES256 {
		return nil, ErrKeySize
	}
	if len(key) != algorithm.KeySize() {
		return nil, ErrKeySize
	}

	words, rounds := expandKey(key)
	seed, err := deriveIVSeed(key)
	if err != nil {
		return nil, err
	}

	return &Cipher{
		algorithm: algorithm,
		words:     words,
		rounds:    rounds,
		iv:        newLFSR(seed),
	}, nil
}

// Algorithm returns the cipher's algorithm.
func (c *Cipher) Algorithm() Algorithm {
	return c.algorithm
}

// EncryptedSize returns the output size of Encrypt for a plaintext of
// n bytes: the 16-byte IV plus the PKCS7-padded length.
func EncryptedSize(n int) int {
	return BlockSize + (n/BlockSize+1)*BlockSize
}

// DecryptedSize returns the maximum plaintext length recoverable from a
// ciphertext of n bytes (IV included). The actual length depends on the
// pad and is only known after Decrypt.
func DecryptedSize(n int) int {
	if n < 2*BlockSize {
		return 0
	}
	return n - BlockSize - 1
}

// Encrypt encrypts plaintext and returns iv‖ciphertext. A fresh IV is
// drawn from the cipher's generator on every call.
func (c *Cipher) Encrypt(plaintext []byte) ([]byte, error) {
	if c.cleared {
		return nil, ErrKeyCleared
	}

	padLen := BlockSize - len(plaintext)%BlockSize
	out := make([]byte, BlockSize+len(plaintext)+padLen)

	iv := out[:BlockSize]
	c.iv.fill(iv)

	padded := out[BlockSize:]
	copy(padded, plaintext)
	for i := len(plaintext); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}

	var block [BlockSize]byte
	prev := iv
	for off := 0; off < len(padded); off += BlockSize {
		for i := 0; i < BlockSize; i++ {
			block[i] = padded[off+i] ^ prev[i]
		}
		encryptBlock(&block, c.words, c.rounds)
		copy(padded[off:], block[:])
		prev = padded[off : off+BlockSize]
	}
	return out, nil
}

// Decrypt decrypts iv‖ciphertext produced by Encrypt and strips the
// PKCS7 padding. A pad byte of zero, a pad longer than a block, or
// non-uniform trailing bytes all fail with ErrBadPadding.
func (c *Cipher) Decrypt(data []byte) ([]byte, error) {
	if c.cleared {
		return nil, ErrKeyCleared
	}
	if len(data) < 2*BlockSize {
		return nil, ErrCiphertextTooShort
	}
	ct := data[BlockSize:]
	if len(ct)%BlockSize != 0 {
		return nil, ErrCiphertextLength
	}

	plain := make([]byte, len(ct))
	var block [BlockSize]byte
	prev := data[:BlockSize]
	for off := 0; off < len(ct); off += BlockSize {
		copy(block[:], ct[off:])
		decryptBlock(&block, c.words, c.rounds)
		for i := 0; i < BlockSize; i++ {
			plain[off+i] = block[i] ^ prev[i]
		}
		prev = ct[off : off+BlockSize]
	}

	padLen := int(plain[len(plain)-1])
	if padLen == 0 || padLen > BlockSize {
		return nil, ErrBadPadding
	}
	for i := len(plain) - padLen; i < len(plain); i++ {
		if plain[i] != byte(padLen) {
			return nil, ErrBadPadding
		}
	}
	return plain[:len(plain)-padLen], nil
}

// Zero destroys the key schedule and IV generator state. The cipher is
// unusable afterwards.
func (c *Cipher) Zero() {
	for i := range c.words {
		c.words[i] = 0
	}
	c.iv = lfsr{}
	c.cleared = true
}

// lfsr is a 64-bit maximal-length Galois LFSR (taps x^64+x^63+x^61+x^60+1)
// used to generate initialization vectors. The sequence is deterministic
// per key; it provides uniqueness, not unpredictability.
type lfsr struct {
	state uint64
}

const lfsrTaps = 0xD800000000000000

func newLFSR(seed uint64) lfsr {
	if seed == 0 {
		// The all-zero state is the one fixed point.
		seed = 0x6366737365656400 // "cfsseed\0"
	}
	return lfsr{state: seed}
}

func (l *lfsr) next() uint64 {
	for i := 0; i < 64; i++ {
		lsb := l.state & 1
		l.state >>= 1
		if lsb != 0 {
			l.state ^= lfsrTaps
		}
	}
	return l.state
}

// fill writes len(dst) pseudo-random bytes.
func (l *lfsr) fill(dst []byte) {
	for i := 0; i < len(dst); i += 8 {
		v := l.next()
		for j := 0; j < 8 && i+j < len(dst); j++ {
			dst[i+j] = byte(v >> (8 * j))
		}
	}
}
