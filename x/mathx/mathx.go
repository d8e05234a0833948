package mathx

import "golang.org/x/exp/constraints"

// Clamp limits v to [lo, hi]. If lo > hi, the bounds are swapped.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func Min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// Span returns the smallest and largest element of vs. Zero values for an empty slice.
func Span[T constraints.Ordered](vs []T) (lo, hi T) {
	if len(vs) == 0 {
		return lo, hi
	}
	lo, hi = vs[0], vs[0]
	for _, v := range vs[1:] {
		lo = Min(lo, v)
		hi = Max(hi, v)
	}
	return lo, hi
}

// SumU32 adds unsigned values with a 32-bit accumulator.
func SumU32[T constraints.Unsigned](vs []T) uint32 {
	var s uint32
	for _, v := range vs {
		s += uint32(v)
	}
	return s
}

// MulDivU16 returns x*num/den with a 32-bit intermediate and truncating division.
// den==0 yields x unchanged; results above 0xFFFF saturate.
func MulDivU16(x, num, den uint16) uint16 {
	if den == 0 {
		return x
	}
	r := uint32(x) * uint32(num) / uint32(den)
	if r > 0xFFFF {
		return 0xFFFF
	}
	return uint16(r)
}

// SubClampU16 returns a-b, or 0 when b > a.
func SubClampU16(a, b uint16) uint16 {
	if b > a {
		return 0
	}
	return a - b
}
