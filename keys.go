package pqshield

import (
	"bytes"
	"errors"
	"sync"

	"github.com/mercyshield/pqshield/internal/crypto"
	"github.com/mercyshield/pqshield/internal/kem"
	"github.com/mercyshield/pqshield/internal/sign"
)

// Sizes of the values crossing the API, in bytes.
const (
	PublicKeySize    = kem.PublicKeySize
	SecretKeySize    = kem.SecretKeySize
	CiphertextSize   = kem.CiphertextSize
	SharedSecretSize = kem.SharedKeySize
	NonceSize        = crypto.AESNonceSize
	TagSize          = crypto.AESTagSize
	VerifyingKeySize = sign.PublicKeySize
	SigningKeySize   = sign.PrivateKeySize
	SignatureSize    = crypto.MLDSASignatureSize
	MinBlobSize      = crypto.BlobOverhead
)

const (
	// ProtocolVersion is the version of the blob and key-file formats.
	ProtocolVersion = 1
	// Suite names the algorithms used by this version.
	Suite = crypto.AlgsCiphersuite
	// SignatureContext is the ML-DSA context string bound into report signatures.
	SignatureContext = sign.Context
)

// ServerKey is a loaded ML-KEM-768 decapsulation key. It is safe for
// concurrent use; the key material is never modified until Close.
type ServerKey struct {
	mu     sync.RWMutex
	sk     *kem.SecretKey
	pub    []byte
	closed bool
}

// GenerateServerKey creates a new server key pair.
func GenerateServerKey() (*ServerKey, error) {
	sk, err := crypto.GenerateKEMKey()
	if err != nil {
		return nil, err
	}
	return newServerKey(sk), nil
}

// LoadServerKey parses an encoded 2400-byte decapsulation key. The input is
// copied; the caller should clear its own buffer.
func LoadServerKey(secretKey []byte) (*ServerKey, error) {
	if len(secretKey) != SecretKeySize {
		return nil, lengthError("server secret key", len(secretKey), SecretKeySize)
	}

	sk, err := kem.ParseSecretKey(secretKey)
	if err != nil {
		return nil, &FormatError{Field: "server secret key", Err: err}
	}
	return newServerKey(sk), nil
}

func newServerKey(sk *kem.SecretKey) *ServerKey {
	return &ServerKey{sk: sk, pub: sk.PublicKey().Bytes()}
}

// PublicKey returns a copy of the 1184-byte encapsulation key.
func (k *ServerKey) PublicKey() []byte {
	return bytes.Clone(k.pub)
}

// Bytes returns a copy of the encoded secret key, or nil once closed. The
// caller must clear it.
func (k *ServerKey) Bytes() []byte {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.closed {
		return nil
	}
	return k.sk.Bytes()
}

// Decapsulate recovers the shared secret from a raw ML-KEM ciphertext. An
// invalid ciphertext of the right length yields an unrelated secret, not an
// error.
func (k *ServerKey) Decapsulate(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) != CiphertextSize {
		return nil, lengthError("ciphertext", len(ciphertext), CiphertextSize)
	}

	var ss []byte
	err := k.use(func(sk *kem.SecretKey) error {
		var err error
		ss, err = kem.Decapsulate(sk, ciphertext)
		return err
	})
	return ss, err
}

// Close zeroes the key material. Later calls fail with ErrKeyClosed.
func (k *ServerKey) Close() {
	k.mu.Lock()
	defer k.mu.Unlock()

	if !k.closed {
		k.sk.Zero()
		k.closed = true
	}
}

// use runs f with the secret key held for reading.
func (k *ServerKey) use(f func(*kem.SecretKey) error) error {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.closed {
		return ErrKeyClosed
	}
	return f(k.sk)
}

// SigningKeyPair is an ML-DSA-65 key pair held by a device.
type SigningKeyPair struct {
	// VerifyingKey is the 1952-byte public key.
	VerifyingKey []byte
	// SigningKey is the 4032-byte secret key. Passing it to Sign or
	// WithSigningKey consumes it.
	SigningKey []byte
}

// GenerateSigningKey creates a new ML-DSA-65 key pair.
func GenerateSigningKey() (*SigningKeyPair, error) {
	pub, priv, err := crypto.GenerateSigningKey()
	if err != nil {
		return nil, err
	}
	return &SigningKeyPair{VerifyingKey: pub, SigningKey: priv}, nil
}

// Zero overwrites the signing key.
func (p *SigningKeyPair) Zero() {
	clear(p.SigningKey)
}

// Keypair bundles a server KEM key with a device signing key pair.
type Keypair struct {
	Server *ServerKey
	Signer *SigningKeyPair
}

// GenerateKeypair creates a server key and a signing key pair.
func GenerateKeypair() (*Keypair, error) {
	server, err := GenerateServerKey()
	if err != nil {
		return nil, err
	}

	signer, err := GenerateSigningKey()
	if err != nil {
		server.Close()
		return nil, err
	}
	return &Keypair{Server: server, Signer: signer}, nil
}

// Zero wipes both secret keys.
func (k *Keypair) Zero() {
	k.Server.Close()
	k.Signer.Zero()
}

// Sign signs message with an encoded ML-DSA-65 signing key. The key is
// consumed: it is overwritten with zeros before Sign returns, on every path.
func Sign(signingKey, message []byte) ([]byte, error) {
	defer clear(signingKey)

	if len(signingKey) != SigningKeySize {
		return nil, lengthError("signing key", len(signingKey), SigningKeySize)
	}

	sig, err := sign.Sign(signingKey, message)
	if err != nil {
		if errors.Is(err, sign.ErrInvalidPrivateKey) {
			return nil, &FormatError{Field: "signing key", Err: err}
		}
		return nil, err
	}
	return sig, nil
}

// Verify reports whether signature is a valid signature over message.
// Inputs of the wrong length verify as false.
func Verify(verifyingKey, message, signature []byte) bool {
	return sign.Verify(verifyingKey, message, signature)
}

// Encapsulate creates a fresh shared secret for an encoded public key and
// returns it with its 1088-byte ciphertext.
func Encapsulate(publicKey []byte) (ciphertext, sharedSecret []byte, err error) {
	pk, err := parsePublicKey(publicKey)
	if err != nil {
		return nil, nil, err
	}
	return kem.Encapsulate(pk, nil)
}

// ValidatePublicKey reports whether publicKey is a well-formed encapsulation
// key, returning a FormatError otherwise.
func ValidatePublicKey(publicKey []byte) error {
	_, err := parsePublicKey(publicKey)
	return err
}

func parsePublicKey(publicKey []byte) (*kem.PublicKey, error) {
	if len(publicKey) != PublicKeySize {
		return nil, lengthError("public key", len(publicKey), PublicKeySize)
	}

	pk, err := kem.ParsePublicKey(publicKey)
	if err != nil {
		return nil, &FormatError{Field: "public key", Err: err}
	}
	return pk, nil
}
