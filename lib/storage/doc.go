// Package storage provides the persistence layer underneath the lockbox
// service: a concurrent in-memory record store with a logical write index,
// snapshot persistence, and a unit-of-work transaction type.
//
// The package focuses on:
//   - A small key-value interface the service layer programs against
//   - Stale-write rejection via a monotonic logical write index
//   - Snapshot persistence to any io.Writer/io.Reader with format checking
//   - All-or-nothing multi-record commits through Txn
//
// Key Components:
//
//   - IStore: Core interface all store implementations must satisfy.
//
//   - memStore: The default implementation backed by xsync.MapOf, safe for
//     concurrent use without external locking. Every write carries a
//     logical index; writes older than the stored record are ignored, so
//     replayed operations cannot roll state backwards.
//
//   - Txn: A unit of work that stages writes and deletes against a store
//     and applies them under a single freshly allocated write index. The
//     service layer mutates several records per operation (a chunk plus
//     the vault directory, a session plus its configuration) and commits
//     them as one unit.
//
// Thread Safety:
//
//	IStore implementations are safe for concurrent use. A Txn is NOT safe
//	for concurrent use; the caller serializes per owner.
package storage
