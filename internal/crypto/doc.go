// Package crypto composes the pqshield primitives into the attestation blob
// and the key-file wrapping format.
//
// # Algorithm Suite
//
// The package uses the following cryptographic algorithms:
//
//   - ML-KEM-768 (NIST FIPS 203): Post-quantum key encapsulation mechanism,
//     implemented in internal/kem. Each blob carries a fresh encapsulation
//     whose 32-byte shared secret is used directly as the AES-256 key.
//
//   - ML-DSA-65 (NIST FIPS 204): Post-quantum signatures over the report,
//     provided by internal/sign. Signing happens before sealing, so this
//     package only sees the signature as part of the payload.
//
//   - AES-256-GCM: Authenticated encryption of the payload with a random
//     96-bit nonce and no associated data.
//
//   - HKDF-SHA-512 (RFC 5869): Derives key-file wrap keys from an operator
//     supplied 32-byte key, a random salt and the field label.
//
// # Blob Layout
//
//	[ML-KEM ciphertext: 1088][nonce: 12][AES-GCM ciphertext: len(payload)][tag: 16]
//
// Decapsulation never fails on a well-sized ciphertext. A tampered
// ciphertext produces an unrelated key, which surfaces only as an AES-GCM
// authentication failure ([ErrDecryptionFailed]).
//
// # Base64 Encoding
//
// [ToBase64URL]/[FromBase64URL] use URL-safe base64 without padding
// (RFC 4648 §5) for every key and blob value in exported files.
// [DecodeBase64] also accepts the standard alphabet and padding.
package crypto
