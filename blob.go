package pqshield

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/mercyshield/pqshield/integrity"
	"github.com/mercyshield/pqshield/internal/crypto"
	"github.com/mercyshield/pqshield/internal/kem"
	"github.com/mercyshield/pqshield/internal/sign"
)

// MaxReportSize is the largest report BuildBlob accepts.
const MaxReportSize = 1 << 20

// maxBlobSize is the largest blob OpenBlob will try to decrypt.
const maxBlobSize = MinBlobSize + MaxReportSize + SignatureSize

// OpenedBlob is the result of OpenBlob.
type OpenedBlob struct {
	// Report is the decrypted report.
	Report []byte
	// Signature is the verified ML-DSA-65 signature, nil for unsigned blobs.
	Signature []byte
	// SignerKey is the key the signature verified under, nil for unsigned blobs.
	SignerKey []byte
}

// BuildBlob encrypts report so that only the holder of the secret key for
// serverPublicKey can read it. With WithSigningKey the report is signed
// first and the signature travels inside the ciphertext.
//
// The blob layout is
//
//	[ML-KEM ciphertext: 1088][nonce: 12][AES-256-GCM(report ‖ signature)][tag: 16]
func BuildBlob(report, serverPublicKey []byte, opts ...BuildOption) ([]byte, error) {
	cfg := &buildConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	defer clear(cfg.signingKey)

	if len(report) > MaxReportSize {
		return nil, &FormatError{Field: "report", Err: fmt.Errorf("%d bytes exceeds the %d byte limit", len(report), MaxReportSize)}
	}

	pk, err := parsePublicKey(serverPublicKey)
	if err != nil {
		return nil, err
	}

	payload := report
	if cfg.signed {
		sig, err := Sign(cfg.signingKey, report)
		if err != nil {
			return nil, err
		}
		payload = make([]byte, 0, len(report)+len(sig))
		payload = append(payload, report...)
		payload = append(payload, sig...)
	}

	return crypto.SealBlob(payload, pk, cfg.rand)
}

// OpenBlob decrypts a blob with key and, unless WithoutSignature is given,
// verifies the trailing report signature.
//
// A blob that is too short, was built for another key, or was modified in
// transit fails with an error matching ErrInvalidBlob. A blob that decrypts
// but whose signature does not verify fails with ErrForgedReport. A payload
// too short to carry a signature fails with ErrInvalidFormat.
func OpenBlob(blob []byte, key *ServerKey, opts ...OpenOption) (*OpenedBlob, error) {
	cfg := &openConfig{resolver: DeclaredSignerKey}
	for _, opt := range opts {
		opt(cfg)
	}

	if key == nil {
		return nil, ErrKeyClosed
	}
	if len(blob) > maxBlobSize {
		return nil, &BlobError{Stage: "length", Err: fmt.Errorf("%d bytes exceeds the %d byte limit", len(blob), maxBlobSize)}
	}

	var payload []byte
	err := key.use(func(sk *kem.SecretKey) error {
		var err error
		payload, err = crypto.OpenBlob(blob, sk)
		return err
	})
	if err != nil {
		return nil, wrapBlobError(err)
	}

	if cfg.unsigned {
		return &OpenedBlob{Report: payload}, nil
	}

	if len(payload) < SignatureSize {
		return nil, &FormatError{Field: "payload", Err: fmt.Errorf("%d bytes is shorter than a %d byte signature", len(payload), SignatureSize)}
	}
	split := len(payload) - SignatureSize
	report, sig := payload[:split], payload[split:]

	signer, err := cfg.signerKey(report)
	if err != nil {
		return nil, err
	}
	if len(signer) != VerifyingKeySize {
		return nil, lengthError("signer public key", len(signer), VerifyingKeySize)
	}

	if !sign.Verify(signer, report, sig) {
		return nil, &SignatureVerificationError{Message: "signature does not verify under the signer key"}
	}

	return &OpenedBlob{Report: report, Signature: sig, SignerKey: signer}, nil
}

// signerKey resolves the verifying key for report, reconciling the key the
// report declares with a pinned key.
func (c *openConfig) signerKey(report []byte) ([]byte, error) {
	declared, err := c.resolver(report)
	if c.pinned == nil {
		return declared, err
	}

	switch {
	case err == nil:
		if !bytes.Equal(declared, c.pinned) {
			return nil, ErrSignerKeyMismatch
		}
		return declared, nil
	case errors.Is(err, ErrMissingSignerKey):
		return c.pinned, nil
	default:
		return nil, err
	}
}

// DeclaredSignerKey is the default SignerKeyFunc. It reads the base64url
// signer_public_key field of a JSON integrity report.
func DeclaredSignerKey(report []byte) ([]byte, error) {
	pub, err := integrity.SignerKey(report)
	switch {
	case errors.Is(err, integrity.ErrNoSignerKey):
		return nil, ErrMissingSignerKey
	case err != nil:
		return nil, &FormatError{Field: "signer public key", Err: err}
	}
	return pub, nil
}
