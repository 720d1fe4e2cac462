// Package sample derives ring elements from seeds: uniform NTT-domain matrix
// entries through SHAKE128 rejection sampling, and small noise polynomials
// through a SHAKE256 PRF and the centered binomial distribution.
package sample

import (
	"github.com/mercyshield/pqshield/internal/ring"
	"golang.org/x/crypto/sha3"
)

const (
	// SeedSize is the size of the matrix seed ρ and the noise seed σ.
	SeedSize = 32

	// Eta is the centered binomial parameter for both noise distributions.
	Eta = 2

	// NoiseInputSize is the number of PRF bytes consumed per noise polynomial,
	// 2·η bits per coefficient.
	NoiseInputSize = 64 * Eta

	// xofBlockSize is the SHAKE128 rate; it is a multiple of 3 so 12-bit pairs
	// never straddle two squeezes.
	xofBlockSize = 168
)

// Matrix is a K×K matrix of NTT-domain ring elements.
type Matrix [ring.K]ring.Vector

// MatrixEntry sets p to the NTT-domain entry A[row][col] derived from rho.
// The XOF input is rho ‖ col ‖ row.
func MatrixEntry(p *ring.Poly, rho *[SeedSize]byte, row, col byte) {
	xof := sha3.NewShake128()
	xof.Write(rho[:])
	xof.Write([]byte{col, row})

	var buf [xofBlockSize]byte
	n := 0
	for n < ring.N {
		xof.Read(buf[:])
		n = rejectionSample(p, n, buf[:])
	}
}

// rejectionSample parses buf as little-endian 12-bit values, appends every
// value below q to p starting at index n, and returns the new count.
func rejectionSample(p *ring.Poly, n int, buf []byte) int {
	for off := 0; off+3 <= len(buf) && n < ring.N; off += 3 {
		d1 := uint16(buf[off]) | uint16(buf[off+1]&0x0f)<<8
		d2 := uint16(buf[off+1]>>4) | uint16(buf[off+2])<<4
		if d1 < ring.Q {
			p[n] = ring.Reduce(int32(d1))
			n++
		}
		if d2 < ring.Q && n < ring.N {
			p[n] = ring.Reduce(int32(d2))
			n++
		}
	}
	return n
}

// ExpandMatrix regenerates A from rho. With transpose set it returns Aᵀ,
// which encryption uses.
func ExpandMatrix(rho *[SeedSize]byte, transpose bool) *Matrix {
	var a Matrix
	for i := 0; i < ring.K; i++ {
		for j := 0; j < ring.K; j++ {
			if transpose {
				MatrixEntry(&a[i][j], rho, byte(j), byte(i))
			} else {
				MatrixEntry(&a[i][j], rho, byte(i), byte(j))
			}
		}
	}
	return &a
}

// CBD sets p to a centered binomial sample with η = 2. Each byte of buf
// yields two coefficients: for each nibble, (bit0 + bit1) - (bit2 + bit3).
func CBD(p *ring.Poly, buf *[NoiseInputSize]byte) {
	for i, b := range buf {
		x0 := int16(b&1) + int16((b>>1)&1)
		y0 := int16((b>>2)&1) + int16((b>>3)&1)
		x1 := int16((b>>4)&1) + int16((b>>5)&1)
		y1 := int16((b>>6)&1) + int16((b>>7)&1)
		p[2*i] = x0 - y0
		p[2*i+1] = x1 - y1
	}
}

// Noise sets p to the noise polynomial CBD(PRF(sigma, nonce)), where PRF is
// SHAKE256(sigma ‖ nonce) truncated to NoiseInputSize bytes.
func Noise(p *ring.Poly, sigma *[SeedSize]byte, nonce byte) {
	var buf [NoiseInputSize]byte
	defer clear(buf[:])

	prf := sha3.NewShake256()
	prf.Write(sigma[:])
	prf.Write([]byte{nonce})
	prf.Read(buf[:])

	CBD(p, &buf)
}

// NoiseVector fills v with noise polynomials using nonces nonce, nonce+1, ….
// It returns the next unused nonce.
func NoiseVector(v *ring.Vector, sigma *[SeedSize]byte, nonce byte) byte {
	for i := range v {
		Noise(&v[i], sigma, nonce)
		nonce++
	}
	return nonce
}
