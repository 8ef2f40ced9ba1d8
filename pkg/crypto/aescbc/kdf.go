package aescbc

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
)

// Key derivation errors.
var (
	ErrPassphraseTooWeak = errors.New("aescbc: passphrase too weak (minimum 8 characters)")
)

const (
	// SaltLength is the salt length used for passphrase derivation.
	SaltLength = 16

	// MinPassphraseLength is the minimum passphrase length.
	MinPassphraseLength = 8

	// Argon2id parameters for passphrase-based key derivation.
	argon2Time    = 3
	argon2Memory  = 64 * 1024
	argon2Threads = 4
)

// deriveIVSeed derives the IV generator seed from the cipher key using
// HKDF-SHA256, so the key alone determines the IV sequence.
func deriveIVSeed(key []byte) (uint64, error) {
	reader := hkdf.New(sha256.New, key, nil, []byte("confstore/iv-seed"))
	var seed [8]byte
	if _, err := io.ReadFull(reader, seed[:]); err != nil {
		return 0, fmt.Errorf("aescbc: derive iv seed: %w", err)
	}
	return binary.LittleEndian.Uint64(seed[:]), nil
}

// DeriveKeyFromPassphrase derives an AES key of the algorithm's size
// from a passphrase using Argon2id. If salt is nil a new random salt is
// generated; the salt used is returned and must be persisted by the
// caller to re-derive the same key later.
func DeriveKeyFromPassphrase(passphrase []byte, salt []byte, algorithm Algorithm) (key, usedSalt []byte, err error) {
	if len(passphrase) < MinPassphraseLength {
		return nil, nil, ErrPassphraseTooWeak
	}
	if salt == nil {
		salt = make([]byte, SaltLength)
		if _, err := rand.Read(salt); err != nil {
			return nil, nil, fmt.Errorf("aescbc: generate salt: %w", err)
		}
	}

	key = argon2.IDKey(
		passphrase,
		salt,
		argon2Time,
		argon2Memory,
		argon2Threads,
		uint32(algorithm.KeySize()),
	)
	return key, salt, nil
}

// GenerateKey generates a random key for the algorithm.
func GenerateKey(algorithm Algorithm) ([]byte, error) {
	key := make([]byte, algorithm.KeySize())
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("aescbc: generate key: %w", err)
	}
	return key, nil
}

// ZeroKey securely zeros key material in memory.
func ZeroKey(key []byte) {
	for i := range key {
		key[i] = 0
	}
}
