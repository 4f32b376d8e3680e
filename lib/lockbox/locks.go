package lockbox

import (
	"sync"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/hackingbutlegal/lockbox/lib/core"
)

// ownerLocks serializes operations per owner identity. Locks are created
// on first use and never removed; the set of owners is small and
// long-lived compared to the lock footprint.
type ownerLocks struct {
	locks *xsync.MapOf[string, *sync.Mutex]
}

func newOwnerLocks() *ownerLocks {
	return &ownerLocks{
		locks: xsync.NewMapOf[string, *sync.Mutex](),
	}
}

// acquire locks the owner's mutex and returns the release function.
func (l *ownerLocks) acquire(owner core.Identity) func() {
	mu, _ := l.locks.LoadOrCompute(string(owner), func() *sync.Mutex {
		return &sync.Mutex{}
	})
	mu.Lock()
	return mu.Unlock
}
