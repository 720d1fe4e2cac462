package crypto

import (
	"github.com/mercyshield/pqshield/internal/kem"
	"github.com/mercyshield/pqshield/internal/sign"
)

const (
	// WrapContext is the HKDF info prefix used when deriving key-file wrap
	// keys, for domain separation.
	WrapContext = "pqshield:keyfile:v1"

	// MLKEMPublicKeySize is the size of an ML-KEM-768 public key in bytes.
	MLKEMPublicKeySize = kem.PublicKeySize
	// MLKEMSecretKeySize is the size of an ML-KEM-768 secret key in bytes.
	MLKEMSecretKeySize = kem.SecretKeySize
	// MLKEMCiphertextSize is the size of an ML-KEM-768 ciphertext in bytes.
	MLKEMCiphertextSize = kem.CiphertextSize
	// MLKEMSharedKeySize is the size of the shared secret from ML-KEM-768 in bytes.
	MLKEMSharedKeySize = kem.SharedKeySize

	// MLDSAPublicKeySize is the size of an ML-DSA-65 public key in bytes.
	MLDSAPublicKeySize = sign.PublicKeySize
	// MLDSASignatureSize is the size of an ML-DSA-65 signature in bytes.
	MLDSASignatureSize = sign.SignatureSize

	// AESKeySize is the size of an AES-256 key in bytes.
	AESKeySize = 32
	// AESNonceSize is the size of an AES-GCM nonce in bytes.
	AESNonceSize = 12
	// AESTagSize is the size of an AES-GCM authentication tag in bytes.
	AESTagSize = 16

	// WrapSaltSize is the size of the random HKDF salt stored with a
	// wrapped secret.
	WrapSaltSize = 32

	// PublicKeyOffset is the byte offset where the public key is embedded
	// within an ML-KEM-768 secret key.
	PublicKeyOffset = 1152

	// BlobOverhead is the smallest possible blob: ciphertext, nonce and tag
	// around an empty payload.
	BlobOverhead = MLKEMCiphertextSize + AESNonceSize + AESTagSize
)

// AlgsCiphersuite is the canonical string representation of the algorithm suite.
const AlgsCiphersuite = "ML-KEM-768:ML-DSA-65:AES-256-GCM"
