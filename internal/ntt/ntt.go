// Package ntt implements the number-theoretic transform over
// Z_3329[X]/(X^256 + 1).
//
// The transform has 7 layers. It maps a ring element to 128 residues modulo
// the degree-1 factors X^2 - γ_i, with γ_i = 17^(2·BitRev7(i)+1), so products
// in the transformed domain are computed pairwise by [PointwiseMul].
package ntt

import "github.com/mercyshield/pqshield/internal/ring"

// inverseScale is 128^-1 mod q, undoing the 2^7 growth of the transform.
const inverseScale = 3303

// zetas[i] = 17^BitRev7(i) mod q.
var zetas = [128]int16{
	1, 1729, 2580, 3289, 2642, 630, 1897, 848,
	1062, 1919, 193, 797, 2786, 3260, 569, 1746,
	296, 2447, 1339, 1476, 3046, 56, 2240, 1333,
	1426, 2094, 535, 2882, 2393, 2879, 1974, 821,
	289, 331, 3253, 1756, 1197, 2304, 2277, 2055,
	650, 1977, 2513, 632, 2865, 33, 1320, 1915,
	2319, 1435, 807, 452, 1438, 2868, 1534, 2402,
	2647, 2617, 1481, 648, 2474, 3110, 1227, 910,
	17, 2761, 583, 2649, 1637, 723, 2288, 1100,
	1409, 2662, 3281, 233, 756, 2156, 3015, 3050,
	1703, 1651, 2789, 1789, 1847, 952, 1461, 2687,
	939, 2308, 2437, 2388, 733, 2337, 268, 641,
	1584, 2298, 2037, 3220, 375, 2549, 2090, 1645,
	1063, 319, 2773, 757, 2099, 561, 2466, 2594,
	2804, 1092, 403, 1026, 1143, 2150, 2775, 886,
	1722, 1212, 1874, 1029, 2110, 2935, 885, 2154,
}

// gammas[i] = 17^(2·BitRev7(i)+1) mod q, centered.
var gammas = func() (g [128]int16) {
	for i := range g {
		g[i] = ring.Reduce(int32(pow17(2*bitRev7(i) + 1)))
	}
	return g
}()

func bitRev7(x int) int {
	var r int
	for i := 0; i < 7; i++ {
		r = r<<1 | x&1
		x >>= 1
	}
	return r
}

func pow17(e int) int {
	r := 1
	for i := 0; i < e; i++ {
		r = r * 17 % ring.Q
	}
	return r
}

// Forward transforms p in place into the NTT domain.
func Forward(p *ring.Poly) {
	k := 1
	for length := 128; length >= 2; length >>= 1 {
		for start := 0; start < ring.N; start += 2 * length {
			zeta := zetas[k]
			k++
			for j := start; j < start+length; j++ {
				t := ring.Mul(zeta, p[j+length])
				p[j+length] = ring.Reduce(int32(p[j]) - int32(t))
				p[j] = ring.Reduce(int32(p[j]) + int32(t))
			}
		}
	}
}

// Inverse transforms p in place from the NTT domain back to coefficients.
func Inverse(p *ring.Poly) {
	k := 127
	for length := 2; length <= 128; length <<= 1 {
		for start := 0; start < ring.N; start += 2 * length {
			zeta := zetas[k]
			k--
			for j := start; j < start+length; j++ {
				t := p[j]
				p[j] = ring.Reduce(int32(t) + int32(p[j+length]))
				p[j+length] = ring.Mul(zeta, ring.Reduce(int32(p[j+length])-int32(t)))
			}
		}
	}
	for i := range p {
		p[i] = ring.Mul(p[i], inverseScale)
	}
}

// PointwiseMul sets dst to the product of the NTT-domain elements a and b.
// dst may alias a or b.
func PointwiseMul(dst, a, b *ring.Poly) {
	for i := 0; i < ring.N/2; i++ {
		a0, a1 := int32(a[2*i]), int32(a[2*i+1])
		b0, b1 := int32(b[2*i]), int32(b[2*i+1])
		hi := int32(ring.Mul(ring.Reduce(a1*b1), gammas[i]))
		dst[2*i] = ring.Reduce(a0*b0 + hi)
		dst[2*i+1] = ring.Reduce(a0*b1 + a1*b0)
	}
}

// MulAdd sets acc = acc + a∘b for NTT-domain elements.
func MulAdd(acc, a, b *ring.Poly) {
	var t ring.Poly
	PointwiseMul(&t, a, b)
	acc.Add(acc, &t)
}

// ForwardVector transforms every element of v in place.
func ForwardVector(v *ring.Vector) {
	for i := range v {
		Forward(&v[i])
	}
}

// InverseVector inverse-transforms every element of v in place.
func InverseVector(v *ring.Vector) {
	for i := range v {
		Inverse(&v[i])
	}
}

// InnerProduct sets dst = Σ a[i]∘b[i] over NTT-domain vectors.
func InnerProduct(dst *ring.Poly, a, b *ring.Vector) {
	dst.Zero()
	for i := range a {
		MulAdd(dst, &a[i], &b[i])
	}
}
