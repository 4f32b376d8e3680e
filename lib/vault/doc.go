// Package vault implements the master record of an owner's encrypted vault:
// the directory of storage chunks, aggregate capacity and usage accounting,
// entry-id issuance, and the subscription state the capacity checks consume.
//
// The chunk list held here is a *mirror* of each chunk's own sizing, kept
// eventually-consistent by explicit update calls after every chunk mutation.
// It exists for fast aggregate queries; the chunk remains the source of
// truth for its bytes. Reconcile repairs a mirror that has drifted from the
// chunks that actually exist.
//
// Usage deltas are applied with checked arithmetic: a usage decrease larger
// than the recorded usage is a consistency bug and surfaces as an
// IntegrityViolation rather than saturating.
package vault
