// Package recovery implements guardian-based threshold recovery of vault
// ownership: the guardian registry with share indices and commitments, the
// rate-limited, time-locked recovery session state machine, and the two
// completion protocols.
//
// Protocol variants:
//
//   - V1 (share submission): guardians approve a session by submitting their
//     decrypted 32-byte share; once the threshold is reached the requester
//     completes and the shares on the session allow client-side
//     reconstruction. Shares are exposed to the store, which is why V2
//     exists.
//
//   - V2 (commitment + challenge): guardians only confirm participation and
//     hand their shares to the requester off-line. Initiation stores an
//     encrypted challenge plus hash commitments; completion requires the
//     decrypted challenge plaintext and the reconstructed master secret,
//     verified against the stored commitments and a binding commitment
//     H(plaintext || secret) that ties the two together. The binding check
//     stops a party who captured the encrypted challenge from completing
//     without a true reconstruction.
//
// The two variants have different data exposure and proof obligations, so
// their verification logic is kept in separate verifiers selected by the
// configured protocol; they are never mixed.
//
// Every timing comparison follows one rule set: the threshold comparison is
// >=, a session is still valid while now <= expiresAt, and expiry is the
// strict now > expiresAt. Expiry is a lazily evaluated predicate; there is
// no background sweep.
package recovery
