package recovery

import "github.com/hackingbutlegal/lockbox/lib/core"

// --------------------------------------------------------------------------
// Guardian
// --------------------------------------------------------------------------

// GuardianStatus is the lifecycle state of a guardian. Persisted, stable.
type GuardianStatus uint8

const (
	GuardianPendingAcceptance GuardianStatus = 0
	GuardianActive            GuardianStatus = 1
	GuardianRevoked           GuardianStatus = 2
)

func (s GuardianStatus) String() string {
	switch s {
	case GuardianPendingAcceptance:
		return "pending-acceptance"
	case GuardianActive:
		return "active"
	case GuardianRevoked:
		return "revoked"
	}
	return "unknown"
}

const (
	// MaxShareMaterial bounds the per-guardian share payload: the encrypted
	// share in V1, the 32-byte commitment in V2.
	MaxShareMaterial = 128

	// MaxNickname bounds the encrypted guardian nickname.
	MaxNickname = 64
)

// Guardian is one trusted recovery participant. ShareMaterial is opaque to
// the core: V1 stores the share encrypted to the guardian's key, V2 stores
// the SHA-256 commitment H(share || guardian identity).
type Guardian struct {
	ID            core.Identity
	ShareIndex    uint8 // 1..255; 0 is reserved, it breaks Lagrange interpolation
	ShareMaterial []byte
	Nickname      []byte // opaque encrypted nickname, may be empty
	AddedAt       core.Timestamp
	Status        GuardianStatus
}
