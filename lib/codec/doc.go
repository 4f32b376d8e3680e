// Package codec provides record serialization for the lockbox storage
// layer. It defines a common interface and multiple implementations for
// encoding and decoding the record envelope that every persisted entity
// travels in.
//
// Key Components:
//
//   - ICodec: Core interface that all codec implementations must satisfy.
//
//   - binaryCodecImpl: Custom binary format optimized for speed and space
//     efficiency. Uses a flag-based approach to encode only present fields,
//     resulting in compact output with minimal overhead. Recommended for
//     the snapshot file.
//
//   - jsonCodecImpl: JSON encoding, useful for debugging and export, but
//     with lower performance and larger output.
//
//   - gobCodecImpl: Go's built-in gob encoding. Kept for compatibility
//     checks; larger and slower than the binary format.
//
// Entity payloads inside a record are gob-encoded via MarshalEntity and
// UnmarshalEntity regardless of the envelope codec, so the envelope codec
// can be swapped without re-encoding entities.
//
// Thread Safety:
//
//	All codec implementations are stateless and safe for concurrent use
//	across multiple goroutines without additional synchronization.
package codec
