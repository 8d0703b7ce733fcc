package utils

import "math/big"

// MulDiv computes a * b / den with a 128-bit intermediate, truncating toward
// zero. den must be non-zero. Used for every fixed-point conversion so that
// share and rate math cannot overflow int64 mid-computation.
func MulDiv(a, b, den int64) int64 {
	p := new(big.Int).Mul(big.NewInt(a), big.NewInt(b))
	p.Quo(p, big.NewInt(den))
	return p.Int64()
}

// Clamp0 returns v, clamped at zero from below.
func Clamp0(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

// Min returns the smaller of a and b.
func Min(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
