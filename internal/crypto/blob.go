package crypto

import (
	"fmt"
	"io"

	"github.com/mercyshield/pqshield/internal/kem"
)

// SealBlob encapsulates a fresh shared secret to pk and encrypts payload
// under it. The shared secret is the AES-256 key as is. The result is laid
// out as
//
//	ciphertext (1088) ‖ nonce (12) ‖ AES-256-GCM(payload) ‖ tag (16)
//
// r supplies the encapsulation seed and the nonce; nil selects the package
// random source.
func SealBlob(payload []byte, pk *kem.PublicKey, r io.Reader) ([]byte, error) {
	r = reader(r)

	ct, ss, err := kem.Encapsulate(pk, r)
	if err != nil {
		return nil, err
	}
	defer clear(ss)

	key := blobKey(ss)
	defer clear(key[:])

	var nonce [AESNonceSize]byte
	if _, err := io.ReadFull(r, nonce[:]); err != nil {
		return nil, fmt.Errorf("read nonce: %w", err)
	}

	blob := make([]byte, 0, BlobOverhead+len(payload))
	blob = append(blob, ct...)
	blob = append(blob, nonce[:]...)
	return sealAESGCM(blob, key, &nonce, payload)
}

// OpenBlob reverses SealBlob. A blob shorter than BlobOverhead fails with
// ErrBlobTooShort; any authentication failure, including one caused by
// implicit rejection in decapsulation, fails with ErrDecryptionFailed.
func OpenBlob(blob []byte, sk *kem.SecretKey) ([]byte, error) {
	if len(blob) < BlobOverhead {
		return nil, fmt.Errorf("%w: got %d bytes, need at least %d", ErrBlobTooShort, len(blob), BlobOverhead)
	}

	ct := blob[:MLKEMCiphertextSize]
	nonce := (*[AESNonceSize]byte)(blob[MLKEMCiphertextSize : MLKEMCiphertextSize+AESNonceSize])
	sealed := blob[MLKEMCiphertextSize+AESNonceSize:]

	ss, err := kem.Decapsulate(sk, ct)
	if err != nil {
		return nil, err
	}
	defer clear(ss)

	key := blobKey(ss)
	defer clear(key[:])

	return openAESGCM(key, nonce, sealed)
}

// The ML-KEM shared secret is the AES-256 key as is.
var _ = [1]struct{}{}[AESKeySize-MLKEMSharedKeySize]

func blobKey(ss []byte) *[AESKeySize]byte {
	key := [AESKeySize]byte(ss[:MLKEMSharedKeySize])
	return &key
}
