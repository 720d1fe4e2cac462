package crypto

import (
	"crypto/rand"
	"io"

	"github.com/mercyshield/pqshield/internal/kem"
	"github.com/mercyshield/pqshield/internal/sign"
)

// randReader overrides crypto/rand for key generation, nonces and wrap
// salts when non-nil.
var randReader io.Reader

// SetRandReaderForTesting installs r as the package random source and
// returns a function restoring the previous one.
func SetRandReaderForTesting(r io.Reader) func() {
	original := randReader
	randReader = r
	return func() { randReader = original }
}

// reader picks r if set, then the test override, then crypto/rand.
func reader(r io.Reader) io.Reader {
	if r != nil {
		return r
	}
	if randReader != nil {
		return randReader
	}
	return rand.Reader
}

// GenerateKEMKey creates a new ML-KEM-768 key pair.
func GenerateKEMKey() (*kem.SecretKey, error) {
	return kem.GenerateKey(reader(nil))
}

// GenerateSigningKey creates a new ML-DSA-65 key pair. The caller owns priv
// and must clear it.
func GenerateSigningKey() (pub, priv []byte, err error) {
	return sign.GenerateKey(reader(nil))
}

// DerivePublicKeyFromSecret extracts the public key from a secret key.
// In ML-KEM-768, the public key is embedded in the secret key.
// Returns an error if the secret key has an invalid size.
func DerivePublicKeyFromSecret(secretKey []byte) ([]byte, error) {
	if len(secretKey) != MLKEMSecretKeySize {
		return nil, ErrInvalidSecretKeySize
	}

	publicKey := make([]byte, MLKEMPublicKeySize)
	copy(publicKey, secretKey[PublicKeyOffset:PublicKeyOffset+MLKEMPublicKeySize])
	return publicKey, nil
}

// ValidateSignerPublicKey reports whether a base64url-encoded value has the
// size of an ML-DSA-65 verifying key.
func ValidateSignerPublicKey(signerPublicKey string) bool {
	publicKey, err := FromBase64URL(signerPublicKey)
	if err != nil {
		return false
	}
	return len(publicKey) == MLDSAPublicKeySize
}
