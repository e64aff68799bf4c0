package util

import "math/bits"

// IsPowerOfTwo reports whether x is a power of two (> 0).
func IsPowerOfTwo(x uint64) bool {
	return x != 0 && (x&(x-1)) == 0
}

// NextPow2 returns the smallest power of two >= x.
// x == 0 yields 1; results that would overflow 64 bits are clamped to 1<<63.
func NextPow2(x uint64) uint64 {
	if x <= 1 {
		return 1
	}
	n := bits.Len64(x - 1)
	if n >= 64 {
		return 1 << 63
	}
	return 1 << n
}

// Log2 returns floor(log2(x)) for x > 0 and 0 for x == 0.
func Log2(x uint64) int {
	if x == 0 {
		return 0
	}
	return bits.Len64(x) - 1
}
