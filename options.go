package pqshield

import (
	"bytes"
	"io"
)

// buildConfig holds configuration for BuildBlob.
type buildConfig struct {
	signed     bool
	signingKey []byte
	rand       io.Reader
}

// openConfig holds configuration for OpenBlob.
type openConfig struct {
	pinned   []byte
	resolver SignerKeyFunc
	unsigned bool
}

// BuildOption configures BuildBlob.
type BuildOption func(*buildConfig)

// OpenOption configures OpenBlob.
type OpenOption func(*openConfig)

// SignerKeyFunc returns the verifying key a report declares for itself.
// Returning an error wrapping ErrMissingSignerKey means the report carries
// no key.
type SignerKeyFunc func(report []byte) ([]byte, error)

// WithSigningKey signs the report with the encoded ML-DSA-65 signing key
// before sealing. The key is consumed: BuildBlob overwrites it with zeros
// before returning, whether or not it succeeds.
func WithSigningKey(signingKey []byte) BuildOption {
	return func(c *buildConfig) {
		c.signed = true
		c.signingKey = signingKey
	}
}

// WithRandom sets the randomness source for encapsulation and the nonce.
// It is intended for tests; the default is crypto/rand.
func WithRandom(r io.Reader) BuildOption {
	return func(c *buildConfig) {
		c.rand = r
	}
}

// WithPinnedSignerKey requires the report to be signed by pub. A report that
// declares a different key fails with ErrSignerKeyMismatch; a report that
// declares none is verified against pub.
func WithPinnedSignerKey(pub []byte) OpenOption {
	return func(c *openConfig) {
		c.pinned = bytes.Clone(pub)
	}
}

// WithSignerKeyFunc replaces the default signer key lookup, which reads the
// signer_public_key field of a JSON integrity report.
func WithSignerKeyFunc(f SignerKeyFunc) OpenOption {
	return func(c *openConfig) {
		c.resolver = f
	}
}

// WithoutSignature treats the whole decrypted payload as the report and
// skips signature verification.
func WithoutSignature() OpenOption {
	return func(c *openConfig) {
		c.unsigned = true
	}
}
