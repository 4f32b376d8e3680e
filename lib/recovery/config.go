package recovery

import "github.com/hackingbutlegal/lockbox/lib/core"

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	// MaxGuardians bounds a guardian registry.
	MaxGuardians = 10

	// MinDelay is the shortest permitted recovery delay (1 day).
	MinDelay uint64 = 24 * 60 * 60

	// MaxDelay is the longest permitted recovery delay (30 days).
	MaxDelay uint64 = 30 * 24 * 60 * 60

	// DefaultDelay is the suggested recovery delay (7 days).
	DefaultDelay uint64 = 7 * 24 * 60 * 60

	// ExpirationWindow is the fixed period after readyAt during which a
	// session can still complete (30 days).
	ExpirationWindow uint64 = 30 * 24 * 60 * 60

	// DefaultCooldown is the minimum spacing between recovery initiations
	// for one owner (1 hour).
	DefaultCooldown uint64 = 60 * 60
)

// Protocol selects the completion variant of a recovery configuration.
// Persisted, stable.
type Protocol uint8

const (
	ProtocolShares    Protocol = 1 // V1: guardians submit decrypted shares
	ProtocolChallenge Protocol = 2 // V2: commitments + encrypted challenge proof
)

func (p Protocol) String() string {
	switch p {
	case ProtocolShares:
		return "shares"
	case ProtocolChallenge:
		return "challenge"
	}
	return "unknown"
}

// --------------------------------------------------------------------------
// Config (guardian registry)
// --------------------------------------------------------------------------

// Config is the per-owner recovery configuration: the guardian set, the
// threshold, the time-lock delay, the monotonic request-id counter, and the
// rate-limiter state. LastRequestID and Limiter are persisted together with
// any session they authorize, in one transactional unit.
type Config struct {
	Owner         core.Identity
	Protocol      Protocol
	Threshold     uint8
	Guardians     []Guardian
	RecoveryDelay uint64 // seconds, within [MinDelay, MaxDelay]
	CreatedAt     core.Timestamp
	LastModified  core.Timestamp
	LastRequestID uint64 // monotonic; the next session gets LastRequestID+1

	// MasterSecretCommitment is SHA-256 of the master secret
	// (ProtocolChallenge only; zero otherwise).
	MasterSecretCommitment [32]byte

	Limiter RateLimiter
}

// NewConfig validates and creates a recovery configuration. Guardians are
// added afterwards; the threshold is validated against the registry bound
// here and against the live guardian count on every membership change.
func NewConfig(owner core.Identity, proto Protocol, threshold uint8, delay uint64, secretCommitment [32]byte, now core.Timestamp) (*Config, error) {
	if proto != ProtocolShares && proto != ProtocolChallenge {
		return nil, core.NewError(core.KindValidationError, "unknown recovery protocol %d", proto)
	}
	if threshold == 0 || int(threshold) > MaxGuardians {
		return nil, core.NewError(core.KindValidationError,
			"threshold %d outside [1, %d]", threshold, MaxGuardians)
	}
	if delay < MinDelay || delay > MaxDelay {
		return nil, core.NewError(core.KindValidationError,
			"recovery delay %ds outside [%ds, %ds]", delay, MinDelay, MaxDelay)
	}
	cfg := &Config{
		Owner:         owner,
		Protocol:      proto,
		Threshold:     threshold,
		RecoveryDelay: delay,
		CreatedAt:     now,
		LastModified:  now,
	}
	if proto == ProtocolChallenge {
		cfg.MasterSecretCommitment = secretCommitment
	}
	return cfg, nil
}

// --------------------------------------------------------------------------
// Guardian Membership
// --------------------------------------------------------------------------

func (c *Config) findGuardian(id core.Identity) (int, error) {
	for i := range c.Guardians {
		if c.Guardians[i].ID == id {
			return i, nil
		}
	}
	return 0, core.NewError(core.KindNotFound, "guardian %s not found", id)
}

// Guardian returns a guardian by identity.
func (c *Config) Guardian(id core.Identity) (*Guardian, error) {
	i, err := c.findGuardian(id)
	if err != nil {
		return nil, err
	}
	return &c.Guardians[i], nil
}

// IsActiveGuardian reports whether id is a guardian in Active status.
func (c *Config) IsActiveGuardian(id core.Identity) bool {
	for i := range c.Guardians {
		if c.Guardians[i].ID == id && c.Guardians[i].Status == GuardianActive {
			return true
		}
	}
	return false
}

// ActiveGuardianCount counts guardians in Active status.
func (c *Config) ActiveGuardianCount() int {
	n := 0
	for i := range c.Guardians {
		if c.Guardians[i].Status == GuardianActive {
			n++
		}
	}
	return n
}

// AddGuardian registers a new guardian in PendingAcceptance status. The
// share index must be non-zero and unused; index 0 is reserved because it
// breaks polynomial interpolation.
func (c *Config) AddGuardian(id core.Identity, shareIndex uint8, shareMaterial, nickname []byte, now core.Timestamp) error {
	if len(c.Guardians) >= MaxGuardians {
		return core.NewCapacityError(0, "guardian registry full (%d)", MaxGuardians)
	}
	if _, err := c.findGuardian(id); err == nil {
		return core.NewError(core.KindValidationError, "guardian %s already exists", id)
	}
	if shareIndex == 0 {
		return core.NewError(core.KindValidationError, "share index 0 is reserved")
	}
	for i := range c.Guardians {
		if c.Guardians[i].ShareIndex == shareIndex {
			return core.NewError(core.KindValidationError, "share index %d already in use", shareIndex)
		}
	}
	if len(shareMaterial) == 0 || len(shareMaterial) > MaxShareMaterial {
		return core.NewError(core.KindValidationError,
			"share material %d bytes outside (0, %d]", len(shareMaterial), MaxShareMaterial)
	}
	if len(nickname) > MaxNickname {
		return core.NewError(core.KindValidationError,
			"nickname %d bytes exceeds %d", len(nickname), MaxNickname)
	}
	c.Guardians = append(c.Guardians, Guardian{
		ID:            id,
		ShareIndex:    shareIndex,
		ShareMaterial: shareMaterial,
		Nickname:      nickname,
		AddedAt:       now,
		Status:        GuardianPendingAcceptance,
	})
	c.LastModified = now
	return nil
}

// AcceptGuardianship transitions a guardian from PendingAcceptance to
// Active. Only the guardian themselves may accept.
func (c *Config) AcceptGuardianship(id core.Identity, now core.Timestamp) error {
	i, err := c.findGuardian(id)
	if err != nil {
		return err
	}
	if c.Guardians[i].Status != GuardianPendingAcceptance {
		return core.NewError(core.KindInvalidState,
			"guardian %s is %s, not pending acceptance", id, c.Guardians[i].Status)
	}
	c.Guardians[i].Status = GuardianActive
	c.LastModified = now
	return nil
}

// RemoveGuardian removes a guardian. Rejected when the remaining TOTAL
// guardian count would drop below the threshold, so the owner can never
// lock themselves out of recovery.
func (c *Config) RemoveGuardian(id core.Identity, now core.Timestamp) error {
	i, err := c.findGuardian(id)
	if err != nil {
		return err
	}
	if len(c.Guardians)-1 < int(c.Threshold) {
		return core.NewError(core.KindInvalidState,
			"removing guardian %s would leave %d guardians below threshold %d",
			id, len(c.Guardians)-1, c.Threshold)
	}
	c.Guardians = append(c.Guardians[:i], c.Guardians[i+1:]...)
	c.LastModified = now
	return nil
}

// VerifyShareCommitment checks a revealed share against a guardian's stored
// commitment H(share || guardian identity). ProtocolChallenge only.
func (c *Config) VerifyShareCommitment(id core.Identity, share []byte) bool {
	if c.Protocol != ProtocolChallenge {
		return false
	}
	g, err := c.Guardian(id)
	if err != nil {
		return false
	}
	sum := ShareCommitment(share, id)
	if len(g.ShareMaterial) != len(sum) {
		return false
	}
	for i := range sum {
		if g.ShareMaterial[i] != sum[i] {
			return false
		}
	}
	return true
}
