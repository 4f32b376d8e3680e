package recovery

import (
	"bytes"
	"errors"
	"testing"

	"github.com/hackingbutlegal/lockbox/lib/core"
)

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

const testOwner = core.Identity("owner-1")

var testSecret = bytes.Repeat([]byte{0xA5}, 32)

// Builds a config with n accepted guardians g1..gn and threshold m.
func testConfig(t *testing.T, proto Protocol, m uint8, n int) (*Config, *core.ManualClock) {
	t.Helper()

	clock := core.NewManualClock(1_000_000)
	cfg, err := NewConfig(testOwner, proto, m, DefaultDelay, SecretCommitment(testSecret), clock.Now())
	if err != nil {
		t.Fatalf("NewConfig failed: %v", err)
	}
	for i := 1; i <= n; i++ {
		id := core.Identity(string(rune('a' + i - 1)))
		material := []byte{byte(i)}
		if proto == ProtocolChallenge {
			sum := ShareCommitment([]byte{byte(i)}, id)
			material = sum[:]
		}
		if err := cfg.AddGuardian(id, uint8(i), material, nil, clock.Now()); err != nil {
			t.Fatalf("AddGuardian %d failed: %v", i, err)
		}
		if err := cfg.AcceptGuardianship(id, clock.Now()); err != nil {
			t.Fatalf("AcceptGuardianship %d failed: %v", i, err)
		}
	}
	return cfg, clock
}

func guardianID(i int) core.Identity {
	return core.Identity(string(rune('a' + i - 1)))
}

// --------------------------------------------------------------------------
// Configuration tests
// --------------------------------------------------------------------------

func TestConfigValidation(t *testing.T) {
	clock := core.NewManualClock(100)

	if _, err := NewConfig(testOwner, ProtocolShares, 0, DefaultDelay, [32]byte{}, clock.Now()); err == nil {
		t.Errorf("Expected zero threshold to be rejected")
	}

	if _, err := NewConfig(testOwner, ProtocolShares, 11, DefaultDelay, [32]byte{}, clock.Now()); err == nil {
		t.Errorf("Expected threshold above %d to be rejected", MaxGuardians)
	}

	if _, err := NewConfig(testOwner, ProtocolShares, 2, MinDelay-1, [32]byte{}, clock.Now()); err == nil {
		t.Errorf("Expected delay below minimum to be rejected")
	}

	if _, err := NewConfig(testOwner, ProtocolShares, 2, MaxDelay+1, [32]byte{}, clock.Now()); err == nil {
		t.Errorf("Expected delay above maximum to be rejected")
	}

	if _, err := NewConfig(testOwner, Protocol(9), 2, DefaultDelay, [32]byte{}, clock.Now()); err == nil {
		t.Errorf("Expected unknown protocol to be rejected")
	}
}

func TestGuardianRegistry(t *testing.T) {
	cfg, clock := testConfig(t, ProtocolShares, 2, 3)

	t.Run("DuplicateIdentity", func(t *testing.T) {
		err := cfg.AddGuardian(guardianID(1), 9, []byte{9}, nil, clock.Now())
		if core.KindOf(err) != core.KindValidationError {
			t.Errorf("Expected ValidationError for duplicate identity, got %v", err)
		}
	})

	t.Run("DuplicateShareIndex", func(t *testing.T) {
		err := cfg.AddGuardian("x", 1, []byte{9}, nil, clock.Now())
		if core.KindOf(err) != core.KindValidationError {
			t.Errorf("Expected ValidationError for duplicate share index, got %v", err)
		}
	})

	t.Run("ZeroShareIndex", func(t *testing.T) {
		err := cfg.AddGuardian("x", 0, []byte{9}, nil, clock.Now())
		if core.KindOf(err) != core.KindValidationError {
			t.Errorf("Expected ValidationError for share index 0, got %v", err)
		}
	})

	t.Run("RegistryFull", func(t *testing.T) {
		full, now := testConfig(t, ProtocolShares, 2, MaxGuardians)
		err := full.AddGuardian("overflow", 11, []byte{11}, nil, now.Now())
		if core.KindOf(err) != core.KindCapacityExceeded {
			t.Errorf("Expected CapacityExceeded for full registry, got %v", err)
		}
	})

	t.Run("PendingNotActive", func(t *testing.T) {
		if err := cfg.AddGuardian("pending", 7, []byte{7}, nil, clock.Now()); err != nil {
			t.Fatalf("AddGuardian failed: %v", err)
		}
		if cfg.IsActiveGuardian("pending") {
			t.Errorf("Expected pending guardian to not be active")
		}
		if err := cfg.AcceptGuardianship("pending", clock.Now()); err != nil {
			t.Fatalf("AcceptGuardianship failed: %v", err)
		}
		if !cfg.IsActiveGuardian("pending") {
			t.Errorf("Expected accepted guardian to be active")
		}
		if err := cfg.AcceptGuardianship("pending", clock.Now()); core.KindOf(err) != core.KindInvalidState {
			t.Errorf("Expected InvalidState on double accept, got %v", err)
		}
		if err := cfg.RemoveGuardian("pending", clock.Now()); err != nil {
			t.Fatalf("RemoveGuardian failed: %v", err)
		}
	})
}

func TestRemoveGuardianLockout(t *testing.T) {
	cfg, clock := testConfig(t, ProtocolShares, 2, 2)

	err := cfg.RemoveGuardian(guardianID(1), clock.Now())
	if core.KindOf(err) != core.KindInvalidState {
		t.Errorf("Expected InvalidState when removal would drop below threshold, got %v", err)
	}

	if err := cfg.AddGuardian("c", 3, []byte{3}, nil, clock.Now()); err != nil {
		t.Fatalf("AddGuardian failed: %v", err)
	}
	if err := cfg.RemoveGuardian(guardianID(1), clock.Now()); err != nil {
		t.Errorf("Expected removal to succeed with 3 guardians, got %v", err)
	}
}

// --------------------------------------------------------------------------
// Rate limiter tests
// --------------------------------------------------------------------------

func TestRateLimiter(t *testing.T) {
	var r RateLimiter

	if ok, _ := r.Permit(500, DefaultCooldown); !ok {
		t.Errorf("Expected fresh limiter to permit")
	}

	r.Record(1000)

	if ok, remaining := r.Permit(1000+DefaultCooldown-1, DefaultCooldown); ok {
		t.Errorf("Expected attempt inside cooldown to be denied")
	} else if remaining != 1 {
		t.Errorf("Expected 1s remaining, got %d", remaining)
	}

	if ok, _ := r.Permit(1000+DefaultCooldown, DefaultCooldown); !ok {
		t.Errorf("Expected attempt at cooldown boundary to be permitted")
	}
}

// --------------------------------------------------------------------------
// Session lifecycle (ProtocolShares)
// --------------------------------------------------------------------------

func TestSharesRecoveryFlow(t *testing.T) {
	cfg, clock := testConfig(t, ProtocolShares, 2, 3)
	requester := guardianID(1)

	s, err := Initiate(cfg, requester, "", nil, clock.Now())
	if err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}
	if s.RequestID != 1 {
		t.Errorf("Expected first request id 1, got %d", s.RequestID)
	}
	if s.Status != StatusPending {
		t.Errorf("Expected pending status, got %s", s.Status)
	}
	if s.ReadyAt != s.InitiatedAt+DefaultDelay {
		t.Errorf("Expected readyAt %d, got %d", s.InitiatedAt+DefaultDelay, s.ReadyAt)
	}
	if s.ExpiresAt != s.ReadyAt+ExpirationWindow {
		t.Errorf("Expected expiresAt %d, got %d", s.ReadyAt+ExpirationWindow, s.ExpiresAt)
	}
	if s.EffectiveNewOwner() != requester {
		t.Errorf("Expected takeover to default to the requester, got %s", s.EffectiveNewOwner())
	}

	var share1, share2 [32]byte
	share1[0], share2[0] = 1, 2

	// shares are not accepted while the delay runs
	if err := s.Approve(cfg, guardianID(1), 1, share1, clock.Now()); core.KindOf(err) != core.KindTimingViolation {
		t.Fatalf("Expected TimingViolation approving before readyAt, got %v", err)
	}
	if len(s.Approvals) != 0 {
		t.Fatalf("Expected no approval recorded during the delay, got %d", len(s.Approvals))
	}

	clock.Advance(DefaultDelay)

	if err := s.Approve(cfg, guardianID(1), 1, share1, clock.Now()); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	// below threshold
	if err := s.CompleteWithShares(cfg, requester, clock.Now()); core.KindOf(err) != core.KindInvalidState {
		t.Errorf("Expected InvalidState below threshold, got %v", err)
	}

	if err := s.Approve(cfg, guardianID(2), 2, share2, clock.Now()); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	shares, err := s.Shares(cfg, clock.Now())
	if err != nil {
		t.Fatalf("Shares failed: %v", err)
	}
	if len(shares) != 2 {
		t.Errorf("Expected 2 shares, got %d", len(shares))
	}

	if err := s.CompleteWithShares(cfg, "mallory", clock.Now()); core.KindOf(err) != core.KindUnauthorized {
		t.Errorf("Expected Unauthorized for non-requester, got %v", err)
	}

	if err := s.CompleteWithShares(cfg, requester, clock.Now()); err != nil {
		t.Fatalf("CompleteWithShares failed: %v", err)
	}
	if s.Status != StatusCompleted {
		t.Errorf("Expected completed status, got %s", s.Status)
	}

	if err := s.Approve(cfg, guardianID(3), 3, share1, clock.Now()); core.KindOf(err) != core.KindInvalidState {
		t.Errorf("Expected InvalidState approving completed session, got %v", err)
	}
}

func TestInitiateRequiresActiveGuardian(t *testing.T) {
	cfg, clock := testConfig(t, ProtocolShares, 2, 3)

	if _, err := Initiate(cfg, "stranger", "", nil, clock.Now()); core.KindOf(err) != core.KindUnauthorized {
		t.Errorf("Expected Unauthorized for a non-guardian requester, got %v", err)
	}

	if err := cfg.AddGuardian("invited", 7, []byte{7}, nil, clock.Now()); err != nil {
		t.Fatalf("AddGuardian failed: %v", err)
	}
	if _, err := Initiate(cfg, "invited", "", nil, clock.Now()); core.KindOf(err) != core.KindUnauthorized {
		t.Errorf("Expected Unauthorized for a pending guardian, got %v", err)
	}

	// rejected attempts must not burn the cooldown window
	if _, err := Initiate(cfg, guardianID(1), "", nil, clock.Now()); err != nil {
		t.Errorf("Expected an active guardian to initiate immediately, got %v", err)
	}
}

func TestDesignatedNewOwner(t *testing.T) {
	cfg, clock := testConfig(t, ProtocolShares, 2, 3)

	s, err := Initiate(cfg, guardianID(1), "heir", nil, clock.Now())
	if err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}
	if s.NewOwner != "heir" {
		t.Errorf("Expected designated owner to be recorded, got %q", s.NewOwner)
	}
	if s.EffectiveNewOwner() != "heir" {
		t.Errorf("Expected takeover by the designated owner, got %s", s.EffectiveNewOwner())
	}
}

func TestSharesApprovalValidation(t *testing.T) {
	cfg, clock := testConfig(t, ProtocolShares, 2, 3)

	s, err := Initiate(cfg, guardianID(1), "", nil, clock.Now())
	if err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}
	clock.Advance(DefaultDelay)

	var share [32]byte
	share[0] = 1

	if err := s.Approve(cfg, "stranger", 1, share, clock.Now()); core.KindOf(err) != core.KindUnauthorized {
		t.Errorf("Expected Unauthorized for non-guardian, got %v", err)
	}

	if err := s.Approve(cfg, guardianID(1), 2, share, clock.Now()); core.KindOf(err) != core.KindValidationError {
		t.Errorf("Expected ValidationError for mismatched share index, got %v", err)
	}

	if err := s.Approve(cfg, guardianID(1), 1, share, clock.Now()); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if err := s.Approve(cfg, guardianID(1), 1, share, clock.Now()); core.KindOf(err) != core.KindValidationError {
		t.Errorf("Expected ValidationError for duplicate approval, got %v", err)
	}
}

func TestTimeLock(t *testing.T) {
	cfg, clock := testConfig(t, ProtocolShares, 1, 2)
	requester := guardianID(1)

	s, err := Initiate(cfg, requester, "", nil, clock.Now())
	if err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}

	var share [32]byte
	clock.Advance(DefaultDelay - 1)
	err = s.Approve(cfg, guardianID(1), 1, share, clock.Now())
	if core.KindOf(err) != core.KindTimingViolation {
		t.Fatalf("Expected TimingViolation before readyAt, got %v", err)
	}
	var te *core.Error
	if !errors.As(err, &te) || te.Remaining != 1 {
		t.Errorf("Expected 1s remaining, got %v", err)
	}

	clock.Advance(1)
	if err := s.Approve(cfg, guardianID(1), 1, share, clock.Now()); err != nil {
		t.Fatalf("Expected approval at readyAt to succeed, got %v", err)
	}
	if err := s.CompleteWithShares(cfg, requester, clock.Now()); err != nil {
		t.Errorf("Expected completion at readyAt to succeed, got %v", err)
	}
}

func TestSessionExpiry(t *testing.T) {
	cfg, clock := testConfig(t, ProtocolShares, 1, 2)
	requester := guardianID(1)

	s, err := Initiate(cfg, requester, "", nil, clock.Now())
	if err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}

	clock.Advance(DefaultDelay + ExpirationWindow + 1)

	if !s.IsExpired(clock.Now()) {
		t.Errorf("Expected session to be expired")
	}
	var share [32]byte
	if err := s.Approve(cfg, guardianID(1), 1, share, clock.Now()); core.KindOf(err) != core.KindInvalidState {
		t.Errorf("Expected InvalidState approving an expired session, got %v", err)
	}
	if err := s.CompleteWithShares(cfg, requester, clock.Now()); core.KindOf(err) != core.KindInvalidState {
		t.Errorf("Expected InvalidState on expired session, got %v", err)
	}
	if s.Status != StatusExpired {
		t.Errorf("Expected lazy transition to expired, got %s", s.Status)
	}
}

func TestCancel(t *testing.T) {
	cfg, clock := testConfig(t, ProtocolShares, 2, 3)

	s, err := Initiate(cfg, guardianID(1), "", nil, clock.Now())
	if err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}

	if err := s.Cancel("mallory", clock.Now()); core.KindOf(err) != core.KindUnauthorized {
		t.Errorf("Expected Unauthorized cancel by stranger, got %v", err)
	}

	if err := s.Cancel(testOwner, clock.Now()); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if s.Status != StatusCancelled {
		t.Errorf("Expected cancelled status, got %s", s.Status)
	}
	if err := s.Cancel(testOwner, clock.Now()); core.KindOf(err) != core.KindInvalidState {
		t.Errorf("Expected InvalidState on double cancel, got %v", err)
	}
}

func TestInitiateRateLimit(t *testing.T) {
	cfg, clock := testConfig(t, ProtocolShares, 2, 3)

	if _, err := Initiate(cfg, guardianID(1), "", nil, clock.Now()); err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}

	_, err := Initiate(cfg, guardianID(1), "", nil, clock.Now())
	if core.KindOf(err) != core.KindTimingViolation {
		t.Errorf("Expected TimingViolation inside cooldown, got %v", err)
	}

	clock.Advance(DefaultCooldown)
	s, err := Initiate(cfg, guardianID(1), "", nil, clock.Now())
	if err != nil {
		t.Fatalf("Initiate after cooldown failed: %v", err)
	}
	if s.RequestID != 2 {
		t.Errorf("Expected request id 2, got %d", s.RequestID)
	}
}

func TestInitiateBelowThreshold(t *testing.T) {
	clock := core.NewManualClock(1_000_000)
	cfg, err := NewConfig(testOwner, ProtocolShares, 3, DefaultDelay, [32]byte{}, clock.Now())
	if err != nil {
		t.Fatalf("NewConfig failed: %v", err)
	}
	for i := 1; i <= 2; i++ {
		if err := cfg.AddGuardian(guardianID(i), uint8(i), []byte{byte(i)}, nil, clock.Now()); err != nil {
			t.Fatalf("AddGuardian failed: %v", err)
		}
		if err := cfg.AcceptGuardianship(guardianID(i), clock.Now()); err != nil {
			t.Fatalf("AcceptGuardianship failed: %v", err)
		}
	}

	if _, err := Initiate(cfg, guardianID(1), "", nil, clock.Now()); core.KindOf(err) != core.KindInvalidState {
		t.Errorf("Expected InvalidState with too few active guardians, got %v", err)
	}
}

// --------------------------------------------------------------------------
// Session lifecycle (ProtocolChallenge)
// --------------------------------------------------------------------------

func TestChallengeRecoveryFlow(t *testing.T) {
	cfg, clock := testConfig(t, ProtocolChallenge, 2, 3)
	requester := guardianID(1)

	blob, plaintext, err := SealChallenge(testSecret)
	if err != nil {
		t.Fatalf("SealChallenge failed: %v", err)
	}
	ch := &Challenge{
		Encrypted:   blob,
		Fingerprint: Fingerprint(plaintext),
		Binding:     BindingCommitment(plaintext, testSecret),
	}

	s, err := Initiate(cfg, requester, "", ch, clock.Now())
	if err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}

	// confirmations wait out the delay like share submissions do
	if err := s.Confirm(cfg, guardianID(1), clock.Now()); core.KindOf(err) != core.KindTimingViolation {
		t.Fatalf("Expected TimingViolation confirming before readyAt, got %v", err)
	}

	clock.Advance(DefaultDelay)

	if err := s.Confirm(cfg, guardianID(1), clock.Now()); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	// idempotent
	if err := s.Confirm(cfg, guardianID(1), clock.Now()); err != nil {
		t.Errorf("Expected repeat confirm to be a no-op, got %v", err)
	}
	if len(s.Confirmations) != 1 {
		t.Errorf("Expected 1 confirmation, got %d", len(s.Confirmations))
	}
	if err := s.Confirm(cfg, guardianID(2), clock.Now()); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}

	// the requester reconstructs the secret out of band, then decrypts
	decrypted, err := OpenChallenge(s.Challenge.Encrypted, testSecret)
	if err != nil {
		t.Fatalf("OpenChallenge failed: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Fatalf("Expected decrypted challenge to match plaintext")
	}

	if err := s.CompleteWithProof(cfg, requester, decrypted, testSecret, clock.Now()); err != nil {
		t.Fatalf("CompleteWithProof failed: %v", err)
	}
	if s.Status != StatusCompleted {
		t.Errorf("Expected completed status, got %s", s.Status)
	}
}

func TestChallengeProofRejection(t *testing.T) {
	cfg, clock := testConfig(t, ProtocolChallenge, 1, 2)
	requester := guardianID(1)

	blob, plaintext, err := SealChallenge(testSecret)
	if err != nil {
		t.Fatalf("SealChallenge failed: %v", err)
	}
	ch := &Challenge{
		Encrypted:   blob,
		Fingerprint: Fingerprint(plaintext),
		Binding:     BindingCommitment(plaintext, testSecret),
	}

	s, err := Initiate(cfg, requester, "", ch, clock.Now())
	if err != nil {
		t.Fatalf("Initiate failed: %v", err)
	}
	clock.Advance(DefaultDelay)
	if err := s.Confirm(cfg, guardianID(1), clock.Now()); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}

	t.Run("WrongPlaintext", func(t *testing.T) {
		bogus := bytes.Repeat([]byte{0xFF}, ChallengePlaintextSize)
		err := s.CompleteWithProof(cfg, requester, bogus, testSecret, clock.Now())
		if core.KindOf(err) != core.KindIntegrityViolation {
			t.Errorf("Expected IntegrityViolation for wrong plaintext, got %v", err)
		}
	})

	t.Run("WrongSecret", func(t *testing.T) {
		bogus := bytes.Repeat([]byte{0xFF}, 32)
		err := s.CompleteWithProof(cfg, requester, plaintext, bogus, clock.Now())
		if core.KindOf(err) != core.KindIntegrityViolation {
			t.Errorf("Expected IntegrityViolation for wrong secret, got %v", err)
		}
	})

	t.Run("WrongRequester", func(t *testing.T) {
		err := s.CompleteWithProof(cfg, "mallory", plaintext, testSecret, clock.Now())
		if core.KindOf(err) != core.KindUnauthorized {
			t.Errorf("Expected Unauthorized for non-requester, got %v", err)
		}
	})

	if err := s.CompleteWithProof(cfg, requester, plaintext, testSecret, clock.Now()); err != nil {
		t.Fatalf("Expected valid proof to succeed after rejections, got %v", err)
	}
}

func TestChallengeRequiredPerProtocol(t *testing.T) {
	cfg, clock := testConfig(t, ProtocolChallenge, 2, 3)
	if _, err := Initiate(cfg, guardianID(1), "", nil, clock.Now()); core.KindOf(err) != core.KindValidationError {
		t.Errorf("Expected ValidationError without challenge material, got %v", err)
	}

	sharesCfg, clock2 := testConfig(t, ProtocolShares, 2, 3)
	ch := &Challenge{}
	if _, err := Initiate(sharesCfg, guardianID(1), "", ch, clock2.Now()); core.KindOf(err) != core.KindValidationError {
		t.Errorf("Expected ValidationError with unexpected challenge material, got %v", err)
	}
}

func TestShareCommitmentVerification(t *testing.T) {
	cfg, _ := testConfig(t, ProtocolChallenge, 2, 3)

	share := []byte{1}
	if !cfg.VerifyShareCommitment(guardianID(1), share) {
		t.Errorf("Expected guardian 1's share to verify")
	}
	if cfg.VerifyShareCommitment(guardianID(2), share) {
		t.Errorf("Expected guardian 2's commitment to reject guardian 1's share")
	}
	if cfg.VerifyShareCommitment("stranger", share) {
		t.Errorf("Expected unknown guardian to fail verification")
	}
}

// --------------------------------------------------------------------------
// Challenge crypto tests
// --------------------------------------------------------------------------

func TestChallengeSealOpen(t *testing.T) {
	blob, plaintext, err := SealChallenge(testSecret)
	if err != nil {
		t.Fatalf("SealChallenge failed: %v", err)
	}
	if len(plaintext) != ChallengePlaintextSize {
		t.Errorf("Expected %d byte plaintext, got %d", ChallengePlaintextSize, len(plaintext))
	}

	got, err := OpenChallenge(blob, testSecret)
	if err != nil {
		t.Fatalf("OpenChallenge failed: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("Expected round-trip to recover plaintext")
	}

	wrongKey := bytes.Repeat([]byte{1}, 32)
	if _, err := OpenChallenge(blob, wrongKey); core.KindOf(err) != core.KindIntegrityViolation {
		t.Errorf("Expected IntegrityViolation with wrong key, got %v", err)
	}

	tampered := blob
	tampered[40] ^= 0x01
	if _, err := OpenChallenge(tampered, testSecret); core.KindOf(err) != core.KindIntegrityViolation {
		t.Errorf("Expected IntegrityViolation on tampered ciphertext, got %v", err)
	}

	if _, _, err := SealChallenge([]byte("short")); core.KindOf(err) != core.KindValidationError {
		t.Errorf("Expected ValidationError for bad key size, got %v", err)
	}
}
