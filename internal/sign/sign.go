// Package sign wraps ML-DSA-65 (NIST FIPS 204) for signing integrity
// reports. Keys and signatures cross this package as raw bytes; parsed
// private keys are wiped before every return.
package sign

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/cloudflare/circl/sign/mldsa/mldsa65"
)

const (
	// PublicKeySize is the size of an ML-DSA-65 verifying key in bytes.
	PublicKeySize = mldsa65.PublicKeySize
	// PrivateKeySize is the size of an ML-DSA-65 signing key in bytes.
	PrivateKeySize = mldsa65.PrivateKeySize
	// SignatureSize is the size of an ML-DSA-65 signature in bytes.
	SignatureSize = mldsa65.SignatureSize

	// Context is the FIPS 204 context string bound into every signature.
	Context = "pqshield:report:v1"
)

var (
	// ErrInvalidPublicKeySize is returned when a verifying key has the wrong length.
	ErrInvalidPublicKeySize = errors.New("invalid verifying key size")

	// ErrInvalidPrivateKeySize is returned when a signing key has the wrong length.
	ErrInvalidPrivateKeySize = errors.New("invalid signing key size")

	// ErrInvalidPrivateKey is returned when a signing key cannot be parsed.
	ErrInvalidPrivateKey = errors.New("invalid signing key")
)

// GenerateKey creates an ML-DSA-65 key pair using r, or crypto/rand when r
// is nil. The caller owns priv and must clear it.
func GenerateKey(r io.Reader) (pub, priv []byte, err error) {
	if r == nil {
		r = rand.Reader
	}

	pk, sk, err := mldsa65.GenerateKey(r)
	if err != nil {
		return nil, nil, fmt.Errorf("generate signing key: %w", err)
	}
	defer func() { *sk = mldsa65.PrivateKey{} }()

	// MarshalBinary never fails for keys from GenerateKey
	pub, _ = pk.MarshalBinary()
	priv, _ = sk.MarshalBinary()
	return pub, priv, nil
}

// Sign signs message with the encoded signing key priv. priv is overwritten
// with zeros before Sign returns, on success and on failure.
func Sign(priv, message []byte) ([]byte, error) {
	defer clear(priv)

	if len(priv) != PrivateKeySize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidPrivateKeySize, len(priv), PrivateKeySize)
	}

	var sk mldsa65.PrivateKey
	defer func() { sk = mldsa65.PrivateKey{} }()
	if err := sk.UnmarshalBinary(priv); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}

	sig := make([]byte, SignatureSize)
	if err := mldsa65.SignTo(&sk, message, []byte(Context), true, sig); err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	return sig, nil
}

// Verify reports whether sig is a valid signature over message under pub.
// Malformed keys and signatures verify as false.
func Verify(pub, message, sig []byte) bool {
	if len(pub) != PublicKeySize || len(sig) != SignatureSize {
		return false
	}

	var pk mldsa65.PublicKey
	if err := pk.UnmarshalBinary(pub); err != nil {
		return false
	}
	return mldsa65.Verify(&pk, message, []byte(Context), sig)
}

// PublicKeyFromPrivate returns the verifying key embedded in the encoded
// signing key priv. priv is not modified.
func PublicKeyFromPrivate(priv []byte) ([]byte, error) {
	if len(priv) != PrivateKeySize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidPrivateKeySize, len(priv), PrivateKeySize)
	}

	var sk mldsa65.PrivateKey
	defer func() { sk = mldsa65.PrivateKey{} }()
	if err := sk.UnmarshalBinary(priv); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}

	pk, ok := sk.Public().(*mldsa65.PublicKey)
	if !ok {
		return nil, ErrInvalidPrivateKey
	}
	pub, _ := pk.MarshalBinary()
	return pub, nil
}
