package kem

import (
	"errors"

	"github.com/mercyshield/pqshield/internal/ring"
)

const (
	// SeedSize is the size of the key generation seeds d and z, and of the
	// encapsulation message m.
	SeedSize = 32
	// KeySeedSize is the size of a full deterministic key seed d ‖ z.
	KeySeedSize = 2 * SeedSize

	// PublicKeySize is the size of an encoded ML-KEM-768 public key.
	PublicKeySize = encodedVectorSize + SeedSize
	// SecretKeySize is the size of an encoded ML-KEM-768 secret key.
	SecretKeySize = encodedVectorSize + PublicKeySize + 2*SeedSize
	// CiphertextSize is the size of an ML-KEM-768 ciphertext.
	CiphertextSize = compressedVectorSize + compressedPolySize
	// SharedKeySize is the size of the shared secret.
	SharedKeySize = 32

	du = 10
	dv = 4

	encodedPolySize      = ring.N * 12 / 8
	encodedVectorSize    = ring.K * encodedPolySize
	compressedUSize      = ring.N * du / 8
	compressedVectorSize = ring.K * compressedUSize
	compressedPolySize   = ring.N * dv / 8
)

var (
	// ErrInvalidPublicKeySize is returned when a public key has the wrong length.
	ErrInvalidPublicKeySize = errors.New("invalid public key size")

	// ErrInvalidPublicKey is returned when a public key holds coefficients
	// that are not reduced modulo q.
	ErrInvalidPublicKey = errors.New("invalid public key")

	// ErrInvalidSecretKeySize is returned when a secret key has the wrong length.
	ErrInvalidSecretKeySize = errors.New("invalid secret key size")

	// ErrInvalidSecretKey is returned when a secret key fails its consistency
	// checks: non-canonical coefficients or a mismatched public key hash.
	ErrInvalidSecretKey = errors.New("invalid secret key")

	// ErrInvalidCiphertextSize is returned when a ciphertext has the wrong length.
	ErrInvalidCiphertextSize = errors.New("invalid ciphertext size")

	// ErrInvalidSeedSize is returned when a deterministic key seed has the
	// wrong length.
	ErrInvalidSeedSize = errors.New("invalid seed size")
)
