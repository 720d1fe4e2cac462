// Package kem implements the ML-KEM-768 key-encapsulation mechanism
// (NIST FIPS 203): key generation, encapsulation, and decapsulation with
// implicit rejection.
//
// Encodings are byte-compatible with other FIPS 203 implementations.
package kem

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"io"

	"github.com/mercyshield/pqshield/internal/codec"
	"github.com/mercyshield/pqshield/internal/ring"
	"golang.org/x/crypto/sha3"
)

// PublicKey is a parsed encapsulation key. It is immutable once built.
type PublicKey struct {
	t   ring.Vector // NTT domain
	rho [SeedSize]byte

	raw [PublicKeySize]byte
	h   [32]byte // H(raw)
}

// SecretKey is a parsed decapsulation key. Call Zero when it is no longer
// needed.
type SecretKey struct {
	s  ring.Vector // NTT domain
	pk PublicKey
	z  [SeedSize]byte
}

func (pk *PublicKey) encode() {
	out := pk.raw[:0]
	for i := range pk.t {
		out = codec.Encode12(out, &pk.t[i])
	}
	copy(pk.raw[encodedVectorSize:], pk.rho[:])
	pk.h = sha3.Sum256(pk.raw[:])
}

// ParsePublicKey decodes an encapsulation key, checking its length and that
// every coefficient is reduced modulo q.
func ParsePublicKey(b []byte) (*PublicKey, error) {
	if len(b) != PublicKeySize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidPublicKeySize, len(b), PublicKeySize)
	}

	pk := &PublicKey{}
	if err := pk.decode(b); err != nil {
		return nil, err
	}
	return pk, nil
}

func (pk *PublicKey) decode(b []byte) error {
	for i := range pk.t {
		if err := codec.Decode12(&pk.t[i], b[i*encodedPolySize:(i+1)*encodedPolySize]); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
		}
	}
	copy(pk.rho[:], b[encodedVectorSize:])
	copy(pk.raw[:], b)
	pk.h = sha3.Sum256(pk.raw[:])
	return nil
}

// Bytes returns the encoded public key.
func (pk *PublicKey) Bytes() []byte {
	out := make([]byte, PublicKeySize)
	copy(out, pk.raw[:])
	return out
}

// Equal reports whether pk and other encode the same key.
func (pk *PublicKey) Equal(other *PublicKey) bool {
	return subtle.ConstantTimeCompare(pk.raw[:], other.raw[:]) == 1
}

// GenerateKey creates a fresh key pair using randomness from r. A nil r
// selects crypto/rand.
func GenerateKey(r io.Reader) (*SecretKey, error) {
	if r == nil {
		r = rand.Reader
	}

	var seed [KeySeedSize]byte
	defer clear(seed[:])
	if _, err := io.ReadFull(r, seed[:]); err != nil {
		return nil, fmt.Errorf("read key seed: %w", err)
	}
	return NewKeyFromSeed(seed[:])
}

// NewKeyFromSeed deterministically derives a key pair from the 64-byte seed
// d ‖ z.
func NewKeyFromSeed(seed []byte) (*SecretKey, error) {
	if len(seed) != KeySeedSize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidSeedSize, len(seed), KeySeedSize)
	}

	var d [SeedSize]byte
	defer clear(d[:])
	copy(d[:], seed[:SeedSize])

	sk := &SecretKey{}
	pkeKeyGen(&sk.pk, &sk.s, &d)
	copy(sk.z[:], seed[SeedSize:])
	return sk, nil
}

// ParseSecretKey decodes a decapsulation key, checking its length, the
// embedded public key, and the stored public key hash.
func ParseSecretKey(b []byte) (*SecretKey, error) {
	if len(b) != SecretKeySize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidSecretKeySize, len(b), SecretKeySize)
	}

	sk := &SecretKey{}
	for i := range sk.s {
		if err := codec.Decode12(&sk.s[i], b[i*encodedPolySize:(i+1)*encodedPolySize]); err != nil {
			sk.Zero()
			return nil, fmt.Errorf("%w: %v", ErrInvalidSecretKey, err)
		}
	}

	off := encodedVectorSize
	if err := sk.pk.decode(b[off : off+PublicKeySize]); err != nil {
		sk.Zero()
		return nil, fmt.Errorf("%w: embedded public key: %v", ErrInvalidSecretKey, err)
	}
	off += PublicKeySize

	if subtle.ConstantTimeCompare(sk.pk.h[:], b[off:off+32]) != 1 {
		sk.Zero()
		return nil, fmt.Errorf("%w: public key hash mismatch", ErrInvalidSecretKey)
	}
	off += 32

	copy(sk.z[:], b[off:])
	return sk, nil
}

// Bytes returns the encoded secret key. The caller owns the returned buffer
// and must clear it when done.
func (sk *SecretKey) Bytes() []byte {
	out := make([]byte, 0, SecretKeySize)
	for i := range sk.s {
		out = codec.Encode12(out, &sk.s[i])
	}
	out = append(out, sk.pk.raw[:]...)
	out = append(out, sk.pk.h[:]...)
	out = append(out, sk.z[:]...)
	return out
}

// PublicKey returns the public key embedded in sk.
func (sk *SecretKey) PublicKey() *PublicKey {
	pk := sk.pk
	return &pk
}

// Zero overwrites the secret material held by sk.
func (sk *SecretKey) Zero() {
	sk.s.Zero()
	clear(sk.z[:])
}

// Encapsulate generates a shared secret and its ciphertext for pk, drawing
// the message from r (crypto/rand when r is nil).
func Encapsulate(pk *PublicKey, r io.Reader) (ct, ss []byte, err error) {
	if r == nil {
		r = rand.Reader
	}

	var m [SeedSize]byte
	defer clear(m[:])
	if _, err := io.ReadFull(r, m[:]); err != nil {
		return nil, nil, fmt.Errorf("read encapsulation seed: %w", err)
	}

	var c [CiphertextSize]byte
	var k [SharedKeySize]byte
	encapsulate(&c, &k, pk, &m)

	ss = make([]byte, SharedKeySize)
	copy(ss, k[:])
	clear(k[:])
	return c[:], ss, nil
}

// encapsulate is the deterministic core of Encapsulate: (K, r) = G(m ‖ H(ek)),
// c = Encrypt(ek, m, r).
func encapsulate(ct *[CiphertextSize]byte, ss *[SharedKeySize]byte, pk *PublicKey, m *[SeedSize]byte) {
	var in [2 * SeedSize]byte
	copy(in[:], m[:])
	copy(in[SeedSize:], pk.h[:])
	g := sha3.Sum512(in[:])
	defer clear(g[:])
	defer clear(in[:])

	var r [SeedSize]byte
	defer clear(r[:])
	copy(r[:], g[SharedKeySize:])

	pkeEncrypt(ct, pk, m, &r)
	copy(ss[:], g[:SharedKeySize])
}

// Decapsulate recovers the shared secret from ct. A ciphertext that does not
// re-encrypt to itself yields the pseudorandom value J(z ‖ ct) instead; this
// is not reported as an error. The only error is a wrong ciphertext length.
func Decapsulate(sk *SecretKey, ct []byte) ([]byte, error) {
	if len(ct) != CiphertextSize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidCiphertextSize, len(ct), CiphertextSize)
	}

	var m [SeedSize]byte
	defer clear(m[:])
	pkeDecrypt(&m, &sk.s, ct)

	var candidate [CiphertextSize]byte
	var k [SharedKeySize]byte
	defer clear(k[:])
	encapsulate(&candidate, &k, &sk.pk, &m)

	var rejected [SharedKeySize]byte
	defer clear(rejected[:])
	j := sha3.NewShake256()
	j.Write(sk.z[:])
	j.Write(ct)
	j.Read(rejected[:])

	equal := ctEqual(ct, candidate[:])
	subtle.ConstantTimeCopy(1-equal, k[:], rejected[:])

	ss := make([]byte, SharedKeySize)
	copy(ss, k[:])
	return ss, nil
}

// ctEqual returns 1 if a and b hold the same bytes and 0 otherwise. The
// lengths must match. Every byte pair is folded into the accumulator before
// the single comparison at the end.
func ctEqual(a, b []byte) int {
	var acc byte
	for i := range a {
		acc |= a[i] ^ b[i]
	}
	return subtle.ConstantTimeByteEq(acc, 0)
}
