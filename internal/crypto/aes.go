package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return cipher.NewGCMWithNonceSize(block, AESNonceSize)
}

// sealAESGCM appends the AES-256-GCM encryption of plaintext (ciphertext ‖
// tag, no associated data) to dst.
func sealAESGCM(dst []byte, key *[AESKeySize]byte, nonce *[AESNonceSize]byte, plaintext []byte) ([]byte, error) {
	gcm, err := newGCM(key[:])
	if err != nil {
		return nil, err
	}
	return gcm.Seal(dst, nonce[:], plaintext, nil), nil
}

// openAESGCM authenticates and decrypts sealed (ciphertext ‖ tag). Any
// authentication failure is reported as ErrDecryptionFailed.
func openAESGCM(key *[AESKeySize]byte, nonce *[AESNonceSize]byte, sealed []byte) ([]byte, error) {
	if len(sealed) < AESTagSize {
		return nil, ErrDecryptionFailed
	}

	gcm, err := newGCM(key[:])
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, nonce[:], sealed, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// EncryptAES seals plaintext under a caller-chosen nonce and returns
// nonce ‖ ciphertext ‖ tag. Key files use it for wrapped secrets.
func EncryptAES(key, plaintext, nonce []byte) ([]byte, error) {
	if len(key) != AESKeySize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidKeySize, len(key), AESKeySize)
	}
	if len(nonce) != AESNonceSize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidNonceSize, len(nonce), AESNonceSize)
	}

	out := make([]byte, 0, AESNonceSize+len(plaintext)+AESTagSize)
	out = append(out, nonce...)
	return sealAESGCM(out, (*[AESKeySize]byte)(key), (*[AESNonceSize]byte)(nonce), plaintext)
}

// DecryptAES opens the output of EncryptAES.
func DecryptAES(key, ciphertext []byte) ([]byte, error) {
	if len(key) != AESKeySize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidKeySize, len(key), AESKeySize)
	}
	if len(ciphertext) < AESNonceSize+AESTagSize {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecryptionFailed)
	}

	return openAESGCM((*[AESKeySize]byte)(key), (*[AESNonceSize]byte)(ciphertext[:AESNonceSize]), ciphertext[AESNonceSize:])
}
