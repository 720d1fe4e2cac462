// Package ring implements arithmetic in the polynomial ring
// Z_q[X]/(X^256 + 1) with q = 3329, the ring underlying ML-KEM-768.
//
// Coefficients are stored as int16 values centered in [-1664, 1664]. Every
// operation in this package leaves its result in that range. The canonical
// representative in [0, q) is only produced at encoding boundaries through
// [Canonical].
//
// Reduction is branch-free: the quotient estimate uses a Barrett multiplier
// and the final corrections are applied through sign masks, so the
// execution path does not depend on coefficient values.
package ring
