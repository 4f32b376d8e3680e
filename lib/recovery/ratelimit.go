package recovery

import "github.com/hackingbutlegal/lockbox/lib/core"

// RateLimiter spaces out recovery initiations for a single owner. State is
// one timestamp; callers persist it as part of the configuration record so
// a crash cannot reset the window.
type RateLimiter struct {
	LastAttemptAt core.Timestamp
}

// Permit reports whether an attempt at now is allowed under the given
// cooldown. When denied, remaining holds the seconds until the next attempt
// is allowed. A zero LastAttemptAt always permits.
func (r *RateLimiter) Permit(now core.Timestamp, cooldown uint64) (ok bool, remaining uint64) {
	if r.LastAttemptAt == 0 || now >= r.LastAttemptAt+cooldown {
		return true, 0
	}
	return false, r.LastAttemptAt + cooldown - now
}

// Record marks an attempt. Called only after Permit allowed it.
func (r *RateLimiter) Record(now core.Timestamp) {
	r.LastAttemptAt = now
}
