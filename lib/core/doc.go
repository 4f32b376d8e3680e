// Package core provides the shared foundation types for the lockbox module:
// caller identities, the typed error system used by every component, the
// external clock oracle, and checked integer arithmetic.
//
// The package focuses on:
//   - A single error type (Error) with a stable kind taxonomy so that callers
//     can distinguish failure classes (not found, capacity, timing, ...) and
//     surface the numeric context (remaining cooldown, available space)
//   - The Clock interface: time is supplied externally, read once per
//     operation, and is never polled inside the core
//   - Checked add/sub helpers that surface overflow and underflow as
//     IntegrityViolation errors instead of silently wrapping, because a
//     wrapped offset or size corrupts storage bookkeeping invisibly
package core
