package lockbox

import (
	"fmt"

	"github.com/hackingbutlegal/lockbox/lib/core"
)

// Storage key derivation. Every persisted entity has exactly one key; the
// owner identity is embedded so Range over a prefix yields one owner's
// records.

func keyDirectory(owner core.Identity) string {
	return "vault/" + string(owner)
}

func keyChunk(owner core.Identity, index uint16) string {
	return fmt.Sprintf("chunk/%s/%d", owner, index)
}

func keyRecoveryConfig(owner core.Identity) string {
	return "recovery/" + string(owner)
}

func keySession(owner core.Identity, requestID uint64) string {
	return fmt.Sprintf("session/%s/%d", owner, requestID)
}

func keyCategoryRegistry(owner core.Identity) string {
	return "categories/" + string(owner)
}

func keyEmergency(owner core.Identity) string {
	return "emergency/" + string(owner)
}

func chunkKeyPrefix(owner core.Identity) string {
	return fmt.Sprintf("chunk/%s/", owner)
}

func sessionKeyPrefix(owner core.Identity) string {
	return fmt.Sprintf("session/%s/", owner)
}
