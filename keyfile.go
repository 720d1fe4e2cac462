package pqshield

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mercyshield/pqshield/internal/crypto"
	"github.com/mercyshield/pqshield/internal/sign"
)

// KeyFileVersion is the current key file format version.
const KeyFileVersion = ProtocolVersion

// Labels bound into sealed key file fields.
const (
	labelServerSecretKey = "serverSecretKey"
	labelSigningKey      = "signingKey"
)

// KeyFile is the JSON export format for pqshield key material.
// WARNING: Unless Sealed is set, this contains private key material in the
// clear - handle securely.
//
// Binary fields are base64url without padding. When Sealed is set, the
// secret fields hold WrapSecret output under an operator wrap key instead of
// the raw keys.
type KeyFile struct {
	// Version is the key file format version. MUST be 1.
	Version int `json:"version"`
	// Suite names the algorithms. MUST equal Suite.
	Suite string `json:"suite"`
	// CreatedAt is the export timestamp. Informational only.
	CreatedAt time.Time `json:"createdAt"`
	// ServerPublicKey is the ML-KEM-768 public key (1184 bytes decoded).
	ServerPublicKey string `json:"serverPublicKey,omitempty"`
	// ServerSecretKey is the ML-KEM-768 secret key (2400 bytes decoded, or
	// sealed).
	ServerSecretKey string `json:"serverSecretKey,omitempty"`
	// SignerPublicKey is the ML-DSA-65 verifying key (1952 bytes decoded).
	SignerPublicKey string `json:"signerPublicKey,omitempty"`
	// SigningKey is the ML-DSA-65 signing key (4032 bytes decoded, or sealed).
	SigningKey string `json:"signingKey,omitempty"`
	// Sealed indicates that the secret fields are wrapped.
	Sealed bool `json:"sealed"`
}

// NewKeyFile exports the given keys. Either may be nil. A non-nil wrapKey
// (32 bytes) seals the secret fields; the signing key is copied, not
// consumed.
func NewKeyFile(server *ServerKey, signer *SigningKeyPair, wrapKey []byte) (*KeyFile, error) {
	f := &KeyFile{
		Version:   KeyFileVersion,
		Suite:     Suite,
		CreatedAt: time.Now().UTC(),
		Sealed:    wrapKey != nil,
	}

	if server != nil {
		secret := server.Bytes()
		if secret == nil {
			return nil, ErrKeyClosed
		}
		defer clear(secret)

		enc, err := f.encodeSecret(wrapKey, secret, labelServerSecretKey)
		if err != nil {
			return nil, err
		}
		f.ServerSecretKey = enc
		f.ServerPublicKey = crypto.ToBase64URL(server.PublicKey())
	}

	if signer != nil {
		enc, err := f.encodeSecret(wrapKey, signer.SigningKey, labelSigningKey)
		if err != nil {
			return nil, err
		}
		f.SigningKey = enc
		f.SignerPublicKey = crypto.ToBase64URL(signer.VerifyingKey)
	}

	return f, f.Validate()
}

func (f *KeyFile) encodeSecret(wrapKey, secret []byte, label string) (string, error) {
	if !f.Sealed {
		return crypto.ToBase64URL(secret), nil
	}

	wrapped, err := crypto.WrapSecret(wrapKey, secret, label)
	if err != nil {
		return "", fmt.Errorf("%w: seal %s: %v", ErrInvalidKeyFile, label, err)
	}
	return crypto.ToBase64URL(wrapped), nil
}

// Validate checks the structure of the key file: version, suite, field
// encodings and sizes, and that each public key matches its secret key
// where both are in the clear.
func (f *KeyFile) Validate() error {
	if f.Version != KeyFileVersion {
		return fmt.Errorf("%w: unsupported version %d, expected %d", ErrInvalidKeyFile, f.Version, KeyFileVersion)
	}
	if f.Suite != Suite {
		return fmt.Errorf("%w: unsupported suite %q", ErrInvalidKeyFile, f.Suite)
	}
	if f.ServerPublicKey == "" && f.ServerSecretKey == "" && f.SignerPublicKey == "" && f.SigningKey == "" {
		return fmt.Errorf("%w: no keys present", ErrInvalidKeyFile)
	}

	serverPub, err := decodeField("serverPublicKey", f.ServerPublicKey, PublicKeySize)
	if err != nil {
		return err
	}
	signerPub, err := decodeField("signerPublicKey", f.SignerPublicKey, VerifyingKeySize)
	if err != nil {
		return err
	}

	if f.ServerSecretKey != "" && f.ServerPublicKey == "" {
		return fmt.Errorf("%w: serverPublicKey is required with serverSecretKey", ErrInvalidKeyFile)
	}
	if f.SigningKey != "" && f.SignerPublicKey == "" {
		return fmt.Errorf("%w: signerPublicKey is required with signingKey", ErrInvalidKeyFile)
	}

	secretSize, signingSize := SecretKeySize, SigningKeySize
	if f.Sealed {
		secretSize += crypto.WrapSaltSize + crypto.AESNonceSize + crypto.AESTagSize
		signingSize += crypto.WrapSaltSize + crypto.AESNonceSize + crypto.AESTagSize
	}

	serverSecret, err := decodeField("serverSecretKey", f.ServerSecretKey, secretSize)
	if err != nil {
		return err
	}
	defer clear(serverSecret)
	signingKey, err := decodeField("signingKey", f.SigningKey, signingSize)
	if err != nil {
		return err
	}
	defer clear(signingKey)

	if f.Sealed {
		return nil
	}

	if serverSecret != nil {
		embedded, _ := crypto.DerivePublicKeyFromSecret(serverSecret)
		if !bytes.Equal(embedded, serverPub) {
			return fmt.Errorf("%w: serverPublicKey does not match serverSecretKey", ErrInvalidKeyFile)
		}
	}
	if signingKey != nil {
		if err := checkSignerPair(signingKey, signerPub); err != nil {
			return err
		}
	}

	return nil
}

// checkSignerPair fails with ErrInvalidKeyFile unless pub is the verifying
// key of signingKey.
func checkSignerPair(signingKey, pub []byte) error {
	derived, err := sign.PublicKeyFromPrivate(signingKey)
	if err != nil {
		return fmt.Errorf("%w: signingKey: %v", ErrInvalidKeyFile, err)
	}
	if !bytes.Equal(derived, pub) {
		return fmt.Errorf("%w: signerPublicKey does not match signingKey", ErrInvalidKeyFile)
	}
	return nil
}

// decodeField decodes a base64url field and checks its size. An empty
// field decodes to nil.
func decodeField(name, value string, size int) ([]byte, error) {
	if value == "" {
		return nil, nil
	}

	data, err := crypto.FromBase64URL(value)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s encoding", ErrInvalidKeyFile, name)
	}
	if len(data) != size {
		return nil, fmt.Errorf("%w: %s size %d, expected %d", ErrInvalidKeyFile, name, len(data), size)
	}
	return data, nil
}

// ParseKeyFile decodes and validates a JSON key file.
func ParseKeyFile(data []byte) (*KeyFile, error) {
	var f KeyFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyFile, err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Marshal returns the indented JSON encoding of f.
func (f *KeyFile) Marshal() ([]byte, error) {
	return json.MarshalIndent(f, "", "  ")
}

// Public returns a copy of f with the secret fields removed.
func (f *KeyFile) Public() *KeyFile {
	pub := *f
	pub.ServerSecretKey = ""
	pub.SigningKey = ""
	pub.Sealed = false
	return &pub
}

// ServerKey loads the server secret key. wrapKey is required when the file
// is sealed and ignored otherwise.
func (f *KeyFile) ServerKey(wrapKey []byte) (*ServerKey, error) {
	if f.ServerSecretKey == "" {
		return nil, fmt.Errorf("%w: no serverSecretKey", ErrInvalidKeyFile)
	}

	secret, err := f.decodeSecret(wrapKey, f.ServerSecretKey, labelServerSecretKey)
	if err != nil {
		return nil, err
	}
	defer clear(secret)

	key, err := LoadServerKey(secret)
	if err != nil {
		return nil, err
	}
	if f.ServerPublicKey != crypto.ToBase64URL(key.PublicKey()) {
		key.Close()
		return nil, fmt.Errorf("%w: serverPublicKey does not match serverSecretKey", ErrInvalidKeyFile)
	}
	return key, nil
}

// SigningKeyPair loads the signing key pair, checking that signerPublicKey
// belongs to signingKey. The caller owns the returned signing key.
func (f *KeyFile) SigningKeyPair(wrapKey []byte) (*SigningKeyPair, error) {
	if f.SigningKey == "" {
		return nil, fmt.Errorf("%w: no signingKey", ErrInvalidKeyFile)
	}

	secret, err := f.decodeSecret(wrapKey, f.SigningKey, labelSigningKey)
	if err != nil {
		return nil, err
	}
	if len(secret) != SigningKeySize {
		clear(secret)
		return nil, lengthError("signing key", len(secret), SigningKeySize)
	}

	pub, err := decodeField("signerPublicKey", f.SignerPublicKey, VerifyingKeySize)
	if err == nil {
		err = checkSignerPair(secret, pub)
	}
	if err != nil {
		clear(secret)
		return nil, err
	}
	return &SigningKeyPair{VerifyingKey: pub, SigningKey: secret}, nil
}

// ServerPublicKeyBytes returns the decoded server public key.
func (f *KeyFile) ServerPublicKeyBytes() ([]byte, error) {
	if f.ServerPublicKey == "" {
		return nil, fmt.Errorf("%w: no serverPublicKey", ErrInvalidKeyFile)
	}
	return decodeField("serverPublicKey", f.ServerPublicKey, PublicKeySize)
}

// SignerPublicKeyBytes returns the decoded signer verifying key.
func (f *KeyFile) SignerPublicKeyBytes() ([]byte, error) {
	if f.SignerPublicKey == "" {
		return nil, fmt.Errorf("%w: no signerPublicKey", ErrInvalidKeyFile)
	}
	return decodeField("signerPublicKey", f.SignerPublicKey, VerifyingKeySize)
}

func (f *KeyFile) decodeSecret(wrapKey []byte, value, label string) ([]byte, error) {
	data, err := crypto.FromBase64URL(value)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s encoding", ErrInvalidKeyFile, label)
	}
	if !f.Sealed {
		return data, nil
	}

	if wrapKey == nil {
		return nil, ErrWrapKeyRequired
	}
	secret, err := crypto.UnwrapSecret(wrapKey, data, label)
	if err != nil {
		return nil, fmt.Errorf("%w: unseal %s: %v", ErrInvalidKeyFile, label, err)
	}
	return secret, nil
}
