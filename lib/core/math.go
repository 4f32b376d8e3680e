package core

import "math"

// --------------------------------------------------------------------------
// Checked Arithmetic
// --------------------------------------------------------------------------
//
// Offset and size bookkeeping must never wrap or saturate: a wrapped u32
// offset silently points into foreign data. All arithmetic on persisted
// counters goes through these helpers, which fail with IntegrityViolation.

// CheckedAddU32 returns a+b or an IntegrityViolation error on overflow.
func CheckedAddU32(a, b uint32) (uint32, error) {
	if a > math.MaxUint32-b {
		return 0, NewError(KindIntegrityViolation, "u32 overflow: %d + %d", a, b)
	}
	return a + b, nil
}

// CheckedSubU32 returns a-b or an IntegrityViolation error on underflow.
func CheckedSubU32(a, b uint32) (uint32, error) {
	if b > a {
		return 0, NewError(KindIntegrityViolation, "u32 underflow: %d - %d", a, b)
	}
	return a - b, nil
}

// CheckedAddU64 returns a+b or an IntegrityViolation error on overflow.
func CheckedAddU64(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, NewError(KindIntegrityViolation, "u64 overflow: %d + %d", a, b)
	}
	return a + b, nil
}

// CheckedSubU64 returns a-b or an IntegrityViolation error on underflow.
func CheckedSubU64(a, b uint64) (uint64, error) {
	if b > a {
		return 0, NewError(KindIntegrityViolation, "u64 underflow: %d - %d", a, b)
	}
	return a - b, nil
}
