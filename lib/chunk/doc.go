// Package chunk implements the segmented byte-storage unit of the vault: a
// fixed-capacity contiguous arena plus an ordered directory of entry headers
// locating each encrypted record by offset and size.
//
// The representation is deliberately a single buffer with compact-on-mutate
// semantics: inserts append, updates and deletes splice the arena and shift
// the offsets of every subsequent header by the signed size delta. Resizes
// are O(n) in arena size, which is acceptable because a chunk is capped at
// 10KB and 100 entries. In exchange, reads are a bounds-checked slice and
// there is no free list to maintain.
//
// All offset and size arithmetic is checked: overflow or underflow aborts
// the operation with an IntegrityViolation instead of wrapping, since a
// wrapped offset would corrupt the directory invisibly.
//
// Invariants maintained by every operation:
//   - usedSize == sum(header.Size) == len(arena)
//   - header [offset, offset+size) ranges partition [0, usedSize) with no
//     gaps and no overlap
//   - len(headers) <= MaxEntries, usedSize <= maxCapacity
package chunk
