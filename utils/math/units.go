package math

import (
	stdmath "math"
	"math/big"
)

// WeiPerNative is 1e18, the scale of every EVM native token
const WeiPerNative = 1e18

// ScaleDown converts an integer token amount with the given decimals into a float
func ScaleDown(amount *big.Int, decimals uint8) float64 {
	if amount == nil {
		return 0
	}
	denom := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(amount), denom).Float64()
	return f
}

// WeiToNative converts a wei amount into whole native tokens
func WeiToNative(wei *big.Int) float64 {
	return ScaleDown(wei, 18)
}

// MulUint64 multiplies two uint64 values, saturating instead of wrapping
func MulUint64(a, b uint64) uint64 {
	if a == 0 || b == 0 {
		return 0
	}
	if a > stdmath.MaxUint64/b {
		return stdmath.MaxUint64
	}
	return a * b
}

// CeilToUnit rounds x up to the next multiple of unit.
// Values already within float noise of a multiple are snapped to it.
func CeilToUnit(x, unit float64) float64 {
	if unit <= 0 {
		return x
	}
	n := x / unit
	if r := stdmath.Round(n); stdmath.Abs(n-r) < snapTolerance {
		return r * unit
	}
	return stdmath.Ceil(n) * unit
}

// FloorToUnit rounds x down to a multiple of unit
func FloorToUnit(x, unit float64) float64 {
	if unit <= 0 {
		return x
	}
	n := x / unit
	if r := stdmath.Round(n); stdmath.Abs(n-r) < snapTolerance {
		return r * unit
	}
	return stdmath.Floor(n) * unit
}

const snapTolerance = 1e-9

// IsFinitePositive reports whether v is a usable price or amount
func IsFinitePositive(v float64) bool {
	return v > 0 && !stdmath.IsInf(v, 0) && !stdmath.IsNaN(v)
}

// IsFiniteNonNegative reports whether v is a usable balance or threshold
func IsFiniteNonNegative(v float64) bool {
	return v >= 0 && !stdmath.IsInf(v, 0)
}
