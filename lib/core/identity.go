package core

// Identity is an opaque, stable caller/owner identifier. The core never
// interprets its content, it only compares identities for equality and uses
// them in storage keys.
type Identity string

// IsZero reports whether the identity is unset.
func (id Identity) IsZero() bool {
	return id == ""
}

// Timestamp is a coarse-grained unix time in seconds, supplied by the
// external clock oracle. 0 means "never".
type Timestamp = uint64
