package util

import "errors"

// ErrDivideByZero is returned by CeilDiv when the divisor is zero. Divisors are
// owner-configurable and are validated at the point of use, never silently
// truncated.
var ErrDivideByZero = errors.New("division by zero")

// CeilDiv returns ceil(a/b). Any nonzero a yields at least 1, which keeps
// value-proportional rewards and fees from rounding down to nothing.
func CeilDiv(a, b uint64) (uint64, error) {
	if b == 0 {
		return 0, ErrDivideByZero
	}
	q := a / b
	if a%b != 0 {
		q++
	}
	return q, nil
}

// Magnitude returns |x| as uint64. The -(x+1)+1 form stays inside the uint64
// range for MinInt64, where a plain negation would overflow.
func Magnitude(x int64) uint64 {
	if x >= 0 {
		return uint64(x)
	}
	return uint64(-(x + 1)) + 1
}

// MinU64 returns the smaller of a and b.
func MinU64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
