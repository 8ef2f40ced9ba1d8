// Package aescbc implements AES-128 and AES-256 in CBC mode with PKCS7
// padding.
//
// The block cipher is implemented from first principles (substitution
// box, row shifts, GF(2^8) column mixing, textbook key schedule) so the
// engine has no runtime dependency on platform crypto for its stored
// data format. Every Encrypt call draws a fresh 16-byte IV from a
// linear-feedback generator seeded from the active key, and prepends it
// to the ciphertext; callers never manage IVs.
//
// Decrypt validates the PKCS7 padding and rejects ciphertexts whose pad
// is malformed, which catches most wrong-key and corruption cases. This
// is not an authenticated-encryption check: a ciphertext that passes
// padding validation is not guaranteed untampered, and the package must
// not be relied upon for tamper detection.
package aescbc
