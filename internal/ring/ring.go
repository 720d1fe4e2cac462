package ring

const (
	// N is the number of coefficients of a ring element.
	N = 256
	// Q is the ring modulus.
	Q = 3329
	// K is the module rank of the ML-KEM-768 parameter set.
	K = 3

	halfQ = Q / 2

	// barrettMul is floor(2^32 / Q).
	barrettMul = 1290167
)

// Poly is a ring element. Coefficients are centered in [-1664, 1664].
type Poly [N]int16

// Vector is an element of the module R_q^K.
type Vector [K]Poly

// Reduce maps any int32 into the centered range [-1664, 1664] congruent to
// it modulo Q.
func Reduce(x int32) int16 {
	t := int32((int64(x) * barrettMul) >> 32)
	r := x - t*Q // r in (-Q, 2Q)

	r -= Q & ^((r - Q) >> 31)    // r >= Q
	r += Q & (r >> 31)           // r < 0
	r -= Q & ((halfQ - r) >> 31) // r > Q/2
	return int16(r)
}

// Mul returns a*b mod Q, centered.
func Mul(a, b int16) int16 {
	return Reduce(int32(a) * int32(b))
}

// Canonical returns the representative of a centered coefficient in [0, Q).
func Canonical(x int16) uint16 {
	return uint16(x + (Q & (x >> 15)))
}

// Add sets p = a + b.
func (p *Poly) Add(a, b *Poly) {
	for i := range p {
		p[i] = Reduce(int32(a[i]) + int32(b[i]))
	}
}

// Sub sets p = a - b.
func (p *Poly) Sub(a, b *Poly) {
	for i := range p {
		p[i] = Reduce(int32(a[i]) - int32(b[i]))
	}
}

// Reduce brings every coefficient of p back into the centered range.
func (p *Poly) Reduce() {
	for i := range p {
		p[i] = Reduce(int32(p[i]))
	}
}

// Equal reports whether p and o represent the same ring element. It
// inspects every coefficient regardless of where a difference occurs.
func (p *Poly) Equal(o *Poly) bool {
	var acc uint16
	for i := range p {
		acc |= Canonical(Reduce(int32(p[i]))) ^ Canonical(Reduce(int32(o[i])))
	}
	return acc == 0
}

// Zero overwrites every coefficient with zero.
func (p *Poly) Zero() {
	clear(p[:])
}

// Add sets v = a + b.
func (v *Vector) Add(a, b *Vector) {
	for i := range v {
		v[i].Add(&a[i], &b[i])
	}
}

// Zero overwrites every element of v with zero.
func (v *Vector) Zero() {
	for i := range v {
		v[i].Zero()
	}
}
