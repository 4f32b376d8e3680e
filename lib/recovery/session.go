package recovery

import (
	"bytes"

	"github.com/hackingbutlegal/lockbox/lib/core"
)

// --------------------------------------------------------------------------
// Session Status
// --------------------------------------------------------------------------

// Status is the lifecycle state of a recovery session. Persisted, stable.
type Status uint8

const (
	StatusPending   Status = 0 // time-lock running; participation opens at readyAt
	StatusReady     Status = 1 // time-lock elapsed and threshold met
	StatusCompleted Status = 2
	StatusCancelled Status = 3
	StatusExpired   Status = 4
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusReady:
		return "ready"
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	case StatusExpired:
		return "expired"
	}
	return "unknown"
}

// --------------------------------------------------------------------------
// Session
// --------------------------------------------------------------------------

// Approval is one guardian's share submission (ProtocolShares).
type Approval struct {
	Guardian   core.Identity
	ShareIndex uint8
	Share      [32]byte
	ApprovedAt core.Timestamp
}

// Challenge carries the ProtocolChallenge proof material: the encrypted
// challenge the requester must decrypt, a fingerprint of its plaintext, and
// a binding commitment H(challenge plaintext || master secret) that ties
// the proof to the secret actually being recovered.
type Challenge struct {
	Encrypted   [ChallengeBlobSize]byte
	Fingerprint [32]byte
	Binding     [32]byte
	CreatedAt   core.Timestamp
}

// Session is one in-flight recovery attempt. Request IDs are allocated from
// the configuration's monotonic counter before the session is written, so a
// replayed write can never reuse an id.
type Session struct {
	Owner     core.Identity
	RequestID uint64
	Protocol  Protocol
	Requester core.Identity
	NewOwner  core.Identity // designated takeover identity; empty means the requester
	Status    Status

	InitiatedAt core.Timestamp
	ReadyAt     core.Timestamp // InitiatedAt + RecoveryDelay
	ExpiresAt   core.Timestamp // ReadyAt + ExpirationWindow
	CompletedAt core.Timestamp

	// ProtocolShares state.
	Approvals []Approval

	// ProtocolChallenge state.
	Challenge     Challenge
	Confirmations []core.Identity
}

// Initiate starts a recovery session against cfg. Only an active guardian
// may initiate; newOwner designates who takes over the vault on completion
// (empty means the requester). The rate limiter and the request counter are
// mutated on cfg; the caller persists cfg and the returned session
// atomically.
func Initiate(cfg *Config, requester, newOwner core.Identity, challenge *Challenge, now core.Timestamp) (*Session, error) {
	if !cfg.IsActiveGuardian(requester) {
		return nil, core.NewError(core.KindUnauthorized, "%s is not an active guardian", requester)
	}
	if cfg.ActiveGuardianCount() < int(cfg.Threshold) {
		return nil, core.NewError(core.KindInvalidState,
			"%d active guardians below threshold %d", cfg.ActiveGuardianCount(), cfg.Threshold)
	}
	if ok, remaining := cfg.Limiter.Permit(now, DefaultCooldown); !ok {
		return nil, core.NewTimingError(remaining, "recovery rate limited")
	}
	if cfg.Protocol == ProtocolChallenge {
		if challenge == nil {
			return nil, core.NewError(core.KindValidationError, "challenge material required")
		}
	} else if challenge != nil {
		return nil, core.NewError(core.KindValidationError, "challenge material not accepted by this protocol")
	}

	id, err := core.CheckedAddU64(cfg.LastRequestID, 1)
	if err != nil {
		return nil, err
	}
	cfg.LastRequestID = id
	cfg.Limiter.Record(now)
	cfg.LastModified = now

	s := &Session{
		Owner:       cfg.Owner,
		RequestID:   id,
		Protocol:    cfg.Protocol,
		Requester:   requester,
		NewOwner:    newOwner,
		Status:      StatusPending,
		InitiatedAt: now,
		ReadyAt:     now + cfg.RecoveryDelay,
	}
	s.ExpiresAt = s.ReadyAt + ExpirationWindow
	if challenge != nil {
		s.Challenge = *challenge
		s.Challenge.CreatedAt = now
	}
	return s, nil
}

// refresh applies lazy expiry and the ready transition.
func (s *Session) refresh(threshold uint8, now core.Timestamp) {
	if s.Status != StatusPending && s.Status != StatusReady {
		return
	}
	if now > s.ExpiresAt {
		s.Status = StatusExpired
		return
	}
	if s.Status == StatusPending && now >= s.ReadyAt && s.participantCount() >= int(threshold) {
		s.Status = StatusReady
	}
}

func (s *Session) participantCount() int {
	if s.Protocol == ProtocolShares {
		return len(s.Approvals)
	}
	return len(s.Confirmations)
}

// IsExpired reports whether the session has passed its completion window.
func (s *Session) IsExpired(now core.Timestamp) bool {
	return (s.Status == StatusPending || s.Status == StatusReady) && now > s.ExpiresAt
}

// EffectiveNewOwner is the identity that takes over the vault when the
// session completes: the designated new owner when one was set at
// initiation, otherwise the requester.
func (s *Session) EffectiveNewOwner() core.Identity {
	if s.NewOwner != "" {
		return s.NewOwner
	}
	return s.Requester
}

// --------------------------------------------------------------------------
// ProtocolShares (V1)
// --------------------------------------------------------------------------

// Approve records a guardian's share submission. Shares are accepted only
// after the time-lock has elapsed, so a compromised guardian quorum cannot
// shorten the owner's reaction window. Duplicate submissions by the same
// guardian are rejected; duplicate share indices across guardians are
// rejected too since they would corrupt reconstruction.
func (s *Session) Approve(cfg *Config, guardian core.Identity, shareIndex uint8, share [32]byte, now core.Timestamp) error {
	if s.Protocol != ProtocolShares {
		return core.NewError(core.KindInvalidState, "session protocol is %s", s.Protocol)
	}
	s.refresh(cfg.Threshold, now)
	if s.Status != StatusPending && s.Status != StatusReady {
		return core.NewError(core.KindInvalidState, "session is %s", s.Status)
	}
	if now < s.ReadyAt {
		return core.NewTimingError(s.ReadyAt-now, "recovery delay still running")
	}
	if !cfg.IsActiveGuardian(guardian) {
		return core.NewError(core.KindUnauthorized, "%s is not an active guardian", guardian)
	}
	g, err := cfg.Guardian(guardian)
	if err != nil {
		return err
	}
	if g.ShareIndex != shareIndex {
		return core.NewError(core.KindValidationError,
			"share index %d does not match guardian record %d", shareIndex, g.ShareIndex)
	}
	for i := range s.Approvals {
		if s.Approvals[i].Guardian == guardian {
			return core.NewError(core.KindValidationError, "guardian %s already approved", guardian)
		}
		if s.Approvals[i].ShareIndex == shareIndex {
			return core.NewError(core.KindValidationError, "share index %d already submitted", shareIndex)
		}
	}
	s.Approvals = append(s.Approvals, Approval{
		Guardian:   guardian,
		ShareIndex: shareIndex,
		Share:      share,
		ApprovedAt: now,
	})
	s.refresh(cfg.Threshold, now)
	return nil
}

// Shares returns the submitted shares once the session is Ready. The caller
// reconstructs the secret client side; this store never sees it assembled.
func (s *Session) Shares(cfg *Config, now core.Timestamp) ([]Approval, error) {
	s.refresh(cfg.Threshold, now)
	if s.Status != StatusReady {
		return nil, s.notReadyError(cfg.Threshold, now)
	}
	out := make([]Approval, len(s.Approvals))
	copy(out, s.Approvals)
	return out, nil
}

// CompleteWithShares closes a ProtocolShares session after the requester
// has reconstructed the secret.
func (s *Session) CompleteWithShares(cfg *Config, requester core.Identity, now core.Timestamp) error {
	if s.Protocol != ProtocolShares {
		return core.NewError(core.KindInvalidState, "session protocol is %s", s.Protocol)
	}
	if requester != s.Requester {
		return core.NewError(core.KindUnauthorized, "only the requester may complete recovery")
	}
	s.refresh(cfg.Threshold, now)
	if s.Status != StatusReady {
		return s.notReadyError(cfg.Threshold, now)
	}
	s.Status = StatusCompleted
	s.CompletedAt = now
	return nil
}

// --------------------------------------------------------------------------
// ProtocolChallenge (V2)
// --------------------------------------------------------------------------

// Confirm records a guardian's participation confirmation, accepted only
// after the time-lock has elapsed. Guardians never submit share material
// under this protocol; shares travel out of band and only commitments are
// checked. Idempotent per guardian.
func (s *Session) Confirm(cfg *Config, guardian core.Identity, now core.Timestamp) error {
	if s.Protocol != ProtocolChallenge {
		return core.NewError(core.KindInvalidState, "session protocol is %s", s.Protocol)
	}
	s.refresh(cfg.Threshold, now)
	if s.Status != StatusPending && s.Status != StatusReady {
		return core.NewError(core.KindInvalidState, "session is %s", s.Status)
	}
	if now < s.ReadyAt {
		return core.NewTimingError(s.ReadyAt-now, "recovery delay still running")
	}
	if !cfg.IsActiveGuardian(guardian) {
		return core.NewError(core.KindUnauthorized, "%s is not an active guardian", guardian)
	}
	for _, id := range s.Confirmations {
		if id == guardian {
			return nil
		}
	}
	s.Confirmations = append(s.Confirmations, guardian)
	s.refresh(cfg.Threshold, now)
	return nil
}

// CompleteWithProof closes a ProtocolChallenge session. The requester
// proves reconstruction by revealing the decrypted challenge plaintext; it
// must match the stored fingerprint, and the binding commitment must tie it
// to the configured master secret commitment.
func (s *Session) CompleteWithProof(cfg *Config, requester core.Identity, plaintext []byte, masterSecret []byte, now core.Timestamp) error {
	if s.Protocol != ProtocolChallenge {
		return core.NewError(core.KindInvalidState, "session protocol is %s", s.Protocol)
	}
	if requester != s.Requester {
		return core.NewError(core.KindUnauthorized, "only the requester may complete recovery")
	}
	s.refresh(cfg.Threshold, now)
	if s.Status != StatusReady {
		return s.notReadyError(cfg.Threshold, now)
	}
	if fp := Fingerprint(plaintext); !bytes.Equal(fp[:], s.Challenge.Fingerprint[:]) {
		return core.NewError(core.KindIntegrityViolation, "challenge fingerprint mismatch")
	}
	if sum := SecretCommitment(masterSecret); !bytes.Equal(sum[:], cfg.MasterSecretCommitment[:]) {
		return core.NewError(core.KindIntegrityViolation, "master secret commitment mismatch")
	}
	if b := BindingCommitment(plaintext, masterSecret); !bytes.Equal(b[:], s.Challenge.Binding[:]) {
		return core.NewError(core.KindIntegrityViolation, "binding commitment mismatch")
	}
	s.Status = StatusCompleted
	s.CompletedAt = now
	return nil
}

// --------------------------------------------------------------------------
// Shared Transitions
// --------------------------------------------------------------------------

// Cancel aborts an in-flight session. Allowed to the vault owner at any
// point before completion and to the requester as a withdrawal.
func (s *Session) Cancel(by core.Identity, now core.Timestamp) error {
	if by != s.Owner && by != s.Requester {
		return core.NewError(core.KindUnauthorized, "%s may not cancel this recovery", by)
	}
	if s.Status == StatusCompleted || s.Status == StatusCancelled {
		return core.NewError(core.KindInvalidState, "session is %s", s.Status)
	}
	s.Status = StatusCancelled
	s.CompletedAt = now
	return nil
}

func (s *Session) notReadyError(threshold uint8, now core.Timestamp) error {
	if s.Status == StatusExpired || now > s.ExpiresAt {
		return core.NewError(core.KindInvalidState, "session expired")
	}
	if now < s.ReadyAt {
		return core.NewTimingError(s.ReadyAt-now, "recovery delay still running")
	}
	if got := s.participantCount(); got < int(threshold) {
		return core.NewError(core.KindInvalidState,
			"%d of %d required guardians have participated", got, threshold)
	}
	return core.NewError(core.KindInvalidState, "session is %s", s.Status)
}
