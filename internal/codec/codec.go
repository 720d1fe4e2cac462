// Package codec converts ring elements to and from their fixed-size byte
// encodings: lossy d-bit compression for ciphertexts, exact 12-bit encoding
// for keys, and the 1-bit message encoding.
//
// All packings are little-endian bit streams: coefficient i occupies bits
// [i·d, (i+1)·d), least significant bit first.
package codec

import (
	"errors"
	"fmt"

	"github.com/mercyshield/pqshield/internal/ring"
)

const (
	// MessageSize is the size of an encoded 1-bit message polynomial.
	MessageSize = 32

	halfQ = (ring.Q - 1) / 2

	// barrettMulCompress / 2^barrettShiftCompress approximates 1/q for the
	// products formed during compression.
	barrettMulCompress   = 5039
	barrettShiftCompress = 24
)

var (
	// ErrInvalidLength is returned when an encoding has the wrong size for
	// its bit width.
	ErrInvalidLength = errors.New("invalid encoded length")

	// ErrNonCanonical is returned when a 12-bit encoding holds a value >= q.
	ErrNonCanonical = errors.New("coefficient not reduced modulo q")
)

// EncodedSize returns the size in bytes of a polynomial packed at d bits per
// coefficient.
func EncodedSize(d int) int {
	return ring.N * d / 8
}

// lt returns 1 if a < b and 0 otherwise, for a, b < 2^31.
func lt(a, b uint32) uint32 {
	return uint32((int32(a)-int32(b))>>31) & 1
}

// Compress maps a coefficient to round(2^d/q · x) mod 2^d, for 1 <= d <= 11.
func Compress(x int16, d int) uint16 {
	product := uint32(ring.Canonical(x)) << d
	quotient := uint32((uint64(product) * barrettMulCompress) >> barrettShiftCompress)
	remainder := product - quotient*ring.Q

	// remainder is in [0, 2q); round the quotient to nearest.
	quotient += lt(halfQ, remainder)
	quotient += lt(ring.Q+halfQ, remainder)
	return uint16(quotient) & (1<<d - 1)
}

// Decompress maps a d-bit value to round(q/2^d · y), centered.
func Decompress(y uint16, d int) int16 {
	product := uint32(y) * ring.Q
	rounded := (product + 1<<(d-1)) >> d
	return ring.Reduce(int32(rounded))
}

func pack(dst []byte, vals *[ring.N]uint16, d int) []byte {
	var acc uint32
	var bits int
	for _, v := range vals {
		acc |= uint32(v) << bits
		bits += d
		for bits >= 8 {
			dst = append(dst, byte(acc))
			acc >>= 8
			bits -= 8
		}
	}
	return dst
}

func unpack(vals *[ring.N]uint16, src []byte, d int) {
	mask := uint32(1)<<d - 1
	var acc uint32
	var bits, i int
	for _, b := range src {
		acc |= uint32(b) << bits
		bits += 8
		for bits >= d && i < ring.N {
			vals[i] = uint16(acc & mask)
			acc >>= d
			bits -= d
			i++
		}
	}
}

// CompressPoly appends the d-bit compression of p to dst.
func CompressPoly(dst []byte, p *ring.Poly, d int) []byte {
	var vals [ring.N]uint16
	for i, c := range p {
		vals[i] = Compress(c, d)
	}
	return pack(dst, &vals, d)
}

// DecompressPoly sets p from a d-bit compressed encoding.
func DecompressPoly(p *ring.Poly, b []byte, d int) error {
	if len(b) != EncodedSize(d) {
		return fmt.Errorf("%w: got %d, want %d", ErrInvalidLength, len(b), EncodedSize(d))
	}

	var vals [ring.N]uint16
	unpack(&vals, b, d)
	for i, v := range vals {
		p[i] = Decompress(v, d)
	}
	return nil
}

// Encode12 appends the exact 12-bit encoding of p to dst.
func Encode12(dst []byte, p *ring.Poly) []byte {
	var vals [ring.N]uint16
	defer clear(vals[:])
	for i, c := range p {
		vals[i] = ring.Canonical(c)
	}
	return pack(dst, &vals, 12)
}

// Decode12 sets p from a 12-bit encoding, rejecting values >= q.
func Decode12(p *ring.Poly, b []byte) error {
	if len(b) != EncodedSize(12) {
		return fmt.Errorf("%w: got %d, want %d", ErrInvalidLength, len(b), EncodedSize(12))
	}

	var vals [ring.N]uint16
	defer clear(vals[:])
	unpack(&vals, b, 12)

	var bad uint16
	for i, v := range vals {
		bad |= (ring.Q - 1 - v) >> 15
		p[i] = ring.Reduce(int32(v))
	}
	if bad != 0 {
		return ErrNonCanonical
	}
	return nil
}

// EncodeMessage sets p to Decompress_1 of the message bits: each bit becomes
// 0 or round(q/2).
func EncodeMessage(p *ring.Poly, m *[MessageSize]byte) {
	var vals [ring.N]uint16
	defer clear(vals[:])
	unpack(&vals, m[:], 1)
	for i, v := range vals {
		p[i] = Decompress(v, 1)
	}
}

// DecodeMessage sets m to Compress_1 of p: each coefficient becomes 1 when it
// is closer to q/2 than to 0.
func DecodeMessage(m *[MessageSize]byte, p *ring.Poly) {
	var vals [ring.N]uint16
	defer clear(vals[:])
	for i, c := range p {
		vals[i] = Compress(c, 1)
	}
	pack(m[:0], &vals, 1)
}
