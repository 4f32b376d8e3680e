package emergency

import (
	"testing"

	"github.com/hackingbutlegal/lockbox/lib/core"
)

const (
	testOwner   = core.Identity("owner-1")
	testContact = core.Identity("contact-1")
)

func testSwitch(t *testing.T) (*Switch, *core.ManualClock) {
	t.Helper()

	clock := core.NewManualClock(1_000_000)
	s, err := New(testOwner, MinInactivity, MinGrace, clock.Now())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := s.AddContact(testContact, []byte("enc"), AccessFull, clock.Now()); err != nil {
		t.Fatalf("AddContact failed: %v", err)
	}
	if err := s.AcceptRole(testContact, clock.Now()); err != nil {
		t.Fatalf("AcceptRole failed: %v", err)
	}
	return s, clock
}

func TestSwitchValidation(t *testing.T) {
	clock := core.NewManualClock(100)

	if _, err := New(testOwner, MinInactivity-1, MinGrace, clock.Now()); err == nil {
		t.Errorf("Expected inactivity below minimum to be rejected")
	}
	if _, err := New(testOwner, MaxInactivity+1, MinGrace, clock.Now()); err == nil {
		t.Errorf("Expected inactivity above maximum to be rejected")
	}
	if _, err := New(testOwner, MinInactivity, MinGrace-1, clock.Now()); err == nil {
		t.Errorf("Expected grace below minimum to be rejected")
	}
}

func TestContactManagement(t *testing.T) {
	s, clock := testSwitch(t)

	if err := s.AddContact(testContact, nil, AccessReadOnly, clock.Now()); core.KindOf(err) != core.KindValidationError {
		t.Errorf("Expected ValidationError for duplicate contact, got %v", err)
	}

	if err := s.AddContact("x", nil, AccessLevel(9), clock.Now()); core.KindOf(err) != core.KindValidationError {
		t.Errorf("Expected ValidationError for unknown access level, got %v", err)
	}

	for i := 1; i < MaxContacts; i++ {
		id := core.Identity(string(rune('a' + i)))
		if err := s.AddContact(id, nil, AccessReadOnly, clock.Now()); err != nil {
			t.Fatalf("AddContact %d failed: %v", i, err)
		}
	}
	if err := s.AddContact("overflow", nil, AccessReadOnly, clock.Now()); core.KindOf(err) != core.KindCapacityExceeded {
		t.Errorf("Expected CapacityExceeded for full contact list, got %v", err)
	}

	if err := s.RemoveContact("b", clock.Now()); err != nil {
		t.Fatalf("RemoveContact failed: %v", err)
	}
	if _, err := s.Contact("b"); core.KindOf(err) != core.KindNotFound {
		t.Errorf("Expected NotFound after removal, got %v", err)
	}
}

func TestPendingContactCannotRequest(t *testing.T) {
	s, clock := testSwitch(t)

	if err := s.AddContact("pending", nil, AccessReadOnly, clock.Now()); err != nil {
		t.Fatalf("AddContact failed: %v", err)
	}

	clock.Advance(MinInactivity)
	if err := s.RequestAccess("pending", clock.Now()); core.KindOf(err) != core.KindUnauthorized {
		t.Errorf("Expected Unauthorized for a pending contact, got %v", err)
	}

	if err := s.AcceptRole("pending", clock.Now()); err != nil {
		t.Fatalf("AcceptRole failed: %v", err)
	}
	if err := s.AcceptRole("pending", clock.Now()); core.KindOf(err) != core.KindInvalidState {
		t.Errorf("Expected InvalidState accepting twice, got %v", err)
	}

	// accepting must not reset the owner's inactivity window
	if err := s.RequestAccess("pending", clock.Now()); err != nil {
		t.Errorf("Expected active contact to request, got %v", err)
	}
}

func TestDeadManCountdown(t *testing.T) {
	s, clock := testSwitch(t)

	// owner still active
	err := s.RequestAccess(testContact, clock.Now())
	if core.KindOf(err) != core.KindTimingViolation {
		t.Fatalf("Expected TimingViolation while owner active, got %v", err)
	}

	if err := s.RequestAccess("stranger", clock.Now()); core.KindOf(err) != core.KindUnauthorized {
		t.Errorf("Expected Unauthorized for non-contact, got %v", err)
	}

	clock.Advance(MinInactivity)
	if err := s.RequestAccess(testContact, clock.Now()); err != nil {
		t.Fatalf("RequestAccess failed: %v", err)
	}
	if s.State != StateTriggered {
		t.Errorf("Expected triggered state, got %s", s.State)
	}

	// grace not elapsed
	if _, err := s.ClaimAccess(testContact, clock.Now()); core.KindOf(err) != core.KindTimingViolation {
		t.Errorf("Expected TimingViolation during grace, got %v", err)
	}

	clock.Advance(MinGrace)
	level, err := s.ClaimAccess(testContact, clock.Now())
	if err != nil {
		t.Fatalf("ClaimAccess failed: %v", err)
	}
	if level != AccessFull {
		t.Errorf("Expected full access, got %s", level)
	}
	if s.State != StateReleased {
		t.Errorf("Expected released state, got %s", s.State)
	}

	if err := s.CheckIn(clock.Now()); core.KindOf(err) != core.KindInvalidState {
		t.Errorf("Expected InvalidState checking in after release, got %v", err)
	}
}

func TestCheckInCancelsTrigger(t *testing.T) {
	s, clock := testSwitch(t)

	clock.Advance(MinInactivity)
	if err := s.RequestAccess(testContact, clock.Now()); err != nil {
		t.Fatalf("RequestAccess failed: %v", err)
	}

	// owner returns during the grace countdown
	if err := s.CheckIn(clock.Now()); err != nil {
		t.Fatalf("CheckIn failed: %v", err)
	}
	if s.State != StateArmed {
		t.Errorf("Expected armed state after check-in, got %s", s.State)
	}

	clock.Advance(MinGrace)
	if _, err := s.ClaimAccess(testContact, clock.Now()); core.KindOf(err) != core.KindInvalidState {
		t.Errorf("Expected InvalidState claiming cancelled trigger, got %v", err)
	}

	// inactivity window restarted at check-in
	if err := s.RequestAccess(testContact, clock.Now()); core.KindOf(err) != core.KindTimingViolation {
		t.Errorf("Expected TimingViolation after window reset, got %v", err)
	}
}

func TestRemoveTriggeringContactBlocked(t *testing.T) {
	s, clock := testSwitch(t)

	clock.Advance(MinInactivity)
	if err := s.RequestAccess(testContact, clock.Now()); err != nil {
		t.Fatalf("RequestAccess failed: %v", err)
	}

	if err := s.RemoveContact(testContact, clock.Now()); core.KindOf(err) != core.KindInvalidState {
		t.Errorf("Expected InvalidState removing triggering contact, got %v", err)
	}

	if err := s.Cancel(clock.Now()); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if err := s.RemoveContact(testContact, clock.Now()); err != nil {
		t.Errorf("Expected removal after cancel to succeed, got %v", err)
	}
}

func TestUpdatePeriods(t *testing.T) {
	s, clock := testSwitch(t)

	clock.Advance(MinInactivity - 1)
	if err := s.UpdatePeriods(MinInactivity, MinGrace*2, clock.Now()); err != nil {
		t.Fatalf("UpdatePeriods failed: %v", err)
	}
	if s.GracePeriod != MinGrace*2 {
		t.Errorf("Expected grace %d, got %d", MinGrace*2, s.GracePeriod)
	}
	if s.LastCheckIn != clock.Now() {
		t.Errorf("Expected update to count as a check-in")
	}

	if err := s.UpdatePeriods(0, MinGrace, clock.Now()); core.KindOf(err) != core.KindValidationError {
		t.Errorf("Expected ValidationError for bad inactivity, got %v", err)
	}
}
