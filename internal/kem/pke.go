package kem

import (
	"github.com/mercyshield/pqshield/internal/codec"
	"github.com/mercyshield/pqshield/internal/ntt"
	"github.com/mercyshield/pqshield/internal/ring"
	"github.com/mercyshield/pqshield/internal/sample"
	"golang.org/x/crypto/sha3"
)

// pkeKeyGen derives the inner public-key encryption key pair from d. It sets
// pk.t, pk.rho and the encoded forms, and s to the NTT-domain secret.
func pkeKeyGen(pk *PublicKey, s *ring.Vector, d *[SeedSize]byte) {
	var in [SeedSize + 1]byte
	copy(in[:], d[:])
	in[SeedSize] = ring.K
	g := sha3.Sum512(in[:])
	defer clear(g[:])
	defer clear(in[:])

	var sigma [SeedSize]byte
	defer clear(sigma[:])
	copy(pk.rho[:], g[:SeedSize])
	copy(sigma[:], g[SeedSize:])

	a := sample.ExpandMatrix(&pk.rho, false)

	var e ring.Vector
	defer e.Zero()
	nonce := sample.NoiseVector(s, &sigma, 0)
	sample.NoiseVector(&e, &sigma, nonce)

	ntt.ForwardVector(s)
	ntt.ForwardVector(&e)

	// t = A∘s + e
	for i := range pk.t {
		ntt.InnerProduct(&pk.t[i], &a[i], s)
		pk.t[i].Add(&pk.t[i], &e[i])
	}

	pk.encode()
}

// pkeEncrypt encrypts the 32-byte message m under pk with encryption
// randomness r and writes the ciphertext to ct.
func pkeEncrypt(ct *[CiphertextSize]byte, pk *PublicKey, m, r *[SeedSize]byte) {
	at := sample.ExpandMatrix(&pk.rho, true)

	var y, e1 ring.Vector
	var e2, mu ring.Poly
	defer y.Zero()
	defer e1.Zero()
	defer e2.Zero()
	defer mu.Zero()

	nonce := sample.NoiseVector(&y, r, 0)
	nonce = sample.NoiseVector(&e1, r, nonce)
	sample.Noise(&e2, r, nonce)

	ntt.ForwardVector(&y)

	// u = NTT⁻¹(Aᵀ∘y) + e1
	var u ring.Vector
	for i := range u {
		ntt.InnerProduct(&u[i], &at[i], &y)
		ntt.Inverse(&u[i])
		u[i].Add(&u[i], &e1[i])
	}

	// v = NTT⁻¹(t∘y) + e2 + Decompress_1(m)
	var v ring.Poly
	defer v.Zero()
	ntt.InnerProduct(&v, &pk.t, &y)
	ntt.Inverse(&v)
	v.Add(&v, &e2)
	codec.EncodeMessage(&mu, m)
	v.Add(&v, &mu)

	out := ct[:0]
	for i := range u {
		out = codec.CompressPoly(out, &u[i], du)
	}
	codec.CompressPoly(out, &v, dv)
}

// pkeDecrypt recovers the message from ct with the NTT-domain secret s.
// ct must be exactly CiphertextSize bytes.
func pkeDecrypt(m *[SeedSize]byte, s *ring.Vector, ct []byte) {
	var u ring.Vector
	var v, w ring.Poly
	defer w.Zero()

	// Lengths are fixed by the caller's check, so decoding cannot fail.
	for i := range u {
		_ = codec.DecompressPoly(&u[i], ct[i*compressedUSize:(i+1)*compressedUSize], du)
	}
	_ = codec.DecompressPoly(&v, ct[compressedVectorSize:], dv)

	// w = v - NTT⁻¹(s∘NTT(u))
	ntt.ForwardVector(&u)
	ntt.InnerProduct(&w, s, &u)
	ntt.Inverse(&w)
	w.Sub(&v, &w)

	codec.DecodeMessage(m, &w)
}
