package crypto

import "errors"

// Key material.
var (
	ErrInvalidSecretKeySize = errors.New("invalid ML-KEM secret key size")
	ErrInvalidKeySize       = errors.New("invalid AES key size")
	ErrInvalidNonceSize     = errors.New("invalid AES-GCM nonce size")
)

// Sealed data.
var (
	// ErrDecryptionFailed covers every AES-GCM open failure, so callers
	// cannot tell a wrong key from a modified ciphertext.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrBlobTooShort means a blob cannot hold a KEM ciphertext, a nonce
	// and a tag.
	ErrBlobTooShort = errors.New("blob too short")

	// ErrInvalidWrappedSize means a wrapped secret cannot hold its salt,
	// nonce and tag.
	ErrInvalidWrappedSize = errors.New("invalid wrapped secret size")
)
