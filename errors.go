package pqshield

import (
	"errors"
	"fmt"

	"github.com/mercyshield/pqshield/internal/crypto"
)

// Sentinel errors for errors.Is() checks
var (
	// ErrInvalidFormat is returned when a key, ciphertext, signature or nonce
	// has the wrong length or encoding.
	ErrInvalidFormat = errors.New("invalid format")

	// ErrInvalidBlob is returned when a blob is too short or fails
	// authenticated decryption.
	ErrInvalidBlob = errors.New("invalid blob")

	// ErrForgedReport is returned when the report signature does not verify.
	ErrForgedReport = errors.New("forged report")

	// ErrSignerKeyMismatch is returned when the key declared by a report
	// differs from the pinned signer key.
	ErrSignerKeyMismatch = errors.New("signer key mismatch: report key differs from pinned key")

	// ErrMissingSignerKey is returned when a signed report does not declare
	// its verifying key and none was pinned.
	ErrMissingSignerKey = errors.New("report declares no signer key")

	// ErrKeyClosed is returned when a closed ServerKey is used.
	ErrKeyClosed = errors.New("server key has been closed")

	// ErrInvalidKeyFile is returned when a key file fails validation.
	ErrInvalidKeyFile = errors.New("invalid key file")

	// ErrWrapKeyRequired is returned when a sealed key file is read without
	// a wrap key.
	ErrWrapKeyRequired = errors.New("key file is sealed: wrap key required")
)

// ShieldError is implemented by all typed pqshield errors.
type ShieldError interface {
	error
	ShieldError() // marker method
}

// FormatError reports a malformed input crossing the API boundary.
type FormatError struct {
	// Field names the input, such as "public key" or "signature".
	Field string
	// Got and Want are byte lengths. Both are zero when the length was right
	// but the content was not.
	Got, Want int
	// Err is the underlying parse error, if any.
	Err error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("invalid %s: got %d bytes, want %d", e.Field, e.Got, e.Want)
}

// Unwrap returns the underlying error.
func (e *FormatError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *FormatError) Is(target error) bool {
	return target == ErrInvalidFormat
}

// ShieldError implements the ShieldError interface.
func (e *FormatError) ShieldError() {}

// BlobError reports a blob that could not be opened.
type BlobError struct {
	Stage string // "length", "decrypt"
	Err   error
}

func (e *BlobError) Error() string {
	return fmt.Sprintf("invalid blob at %s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *BlobError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *BlobError) Is(target error) bool {
	return target == ErrInvalidBlob
}

// ShieldError implements the ShieldError interface.
func (e *BlobError) ShieldError() {}

// SignatureVerificationError indicates a forged or corrupted report.
type SignatureVerificationError struct {
	Message string
}

func (e *SignatureVerificationError) Error() string {
	return fmt.Sprintf("forged report: %s", e.Message)
}

// Is implements errors.Is for sentinel error matching.
func (e *SignatureVerificationError) Is(target error) bool {
	return target == ErrForgedReport
}

// ShieldError implements the ShieldError interface.
func (e *SignatureVerificationError) ShieldError() {}

// lengthError builds a FormatError for a wrong-length input.
func lengthError(field string, got, want int) error {
	return &FormatError{Field: field, Got: got, Want: want}
}

// wrapBlobError converts internal blob errors to public errors.
// This ensures that errors.Is() checks work with public sentinel errors.
func wrapBlobError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, crypto.ErrBlobTooShort):
		return &BlobError{Stage: "length", Err: err}
	case errors.Is(err, crypto.ErrDecryptionFailed):
		return &BlobError{Stage: "decrypt", Err: err}
	}
	return err
}
