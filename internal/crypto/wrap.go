package crypto

import (
	"crypto/sha512"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// WrapSecret encrypts secret under an AES-256 key derived from wrapKey with
// HKDF-SHA-512. label names the secret and is bound into the derivation, so
// a wrapped value cannot be moved to another field. The output is
//
//	salt (32) ‖ nonce (12) ‖ ciphertext ‖ tag (16)
func WrapSecret(wrapKey, secret []byte, label string) ([]byte, error) {
	if len(wrapKey) != AESKeySize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidKeySize, len(wrapKey), AESKeySize)
	}

	r := reader(nil)
	var header [WrapSaltSize + AESNonceSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("read wrap salt: %w", err)
	}
	salt, nonce := header[:WrapSaltSize], header[WrapSaltSize:]

	key, err := deriveWrapKey(wrapKey, salt, label)
	if err != nil {
		return nil, err
	}
	defer clear(key[:])

	sealed, err := EncryptAES(key[:], secret, nonce)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, WrapSaltSize+len(sealed))
	out = append(out, salt...)
	return append(out, sealed...), nil
}

// UnwrapSecret reverses WrapSecret. A wrong wrap key, a wrong label, or a
// modified value fails with ErrDecryptionFailed.
func UnwrapSecret(wrapKey, wrapped []byte, label string) ([]byte, error) {
	if len(wrapKey) != AESKeySize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidKeySize, len(wrapKey), AESKeySize)
	}
	if len(wrapped) < WrapSaltSize+AESNonceSize+AESTagSize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidWrappedSize, len(wrapped))
	}

	key, err := deriveWrapKey(wrapKey, wrapped[:WrapSaltSize], label)
	if err != nil {
		return nil, err
	}
	defer clear(key[:])

	return DecryptAES(key[:], wrapped[WrapSaltSize:])
}

// deriveWrapKey expands wrapKey into the AES key for one wrapped value with
// HKDF-SHA-512, salted per value and bound to label.
func deriveWrapKey(wrapKey, salt []byte, label string) (*[AESKeySize]byte, error) {
	var key [AESKeySize]byte
	kdf := hkdf.New(sha512.New, wrapKey, salt, wrapInfo(label))
	if _, err := io.ReadFull(kdf, key[:]); err != nil {
		return nil, fmt.Errorf("failed to derive wrap key: %w", err)
	}
	return &key, nil
}

func wrapInfo(label string) []byte {
	return []byte(WrapContext + ":" + label)
}
