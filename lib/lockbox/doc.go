// Package lockbox is the service layer tying the storage engine together:
// it loads entities from the record store, applies the domain operations
// from the chunk, vault, category, recovery and emergency packages, and
// commits every operation's mutations as one transactional unit.
//
// The package focuses on:
//   - Load-mutate-commit atomicity: each operation begins a storage.Txn,
//     mutates every affected entity, and commits once. A snapshot taken
//     between operations never contains half an operation.
//   - Per-owner serialization: operations on one owner's vault are
//     serialized through an in-process lock table, so the load-mutate-commit
//     cycle is never interleaved for the same owner.
//   - One clock read per operation: the current time is read once at entry
//     and threaded through, so all timestamps written by one operation
//     agree.
//
// Key Components:
//
//   - Service: The operation surface. Construct with New and an Options
//     struct carrying the store, codec, clock and logger.
//
//   - IPaymentProcessor: Collaborator charged for subscription upgrades
//     and renewals. The default ledger implementation records transfers
//     in memory.
//
// All operations return the typed *core.Error so callers can branch on
// the failure kind.
package lockbox
