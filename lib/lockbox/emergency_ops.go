package lockbox

import (
	"github.com/hackingbutlegal/lockbox/lib/core"
	"github.com/hackingbutlegal/lockbox/lib/emergency"
	"github.com/hackingbutlegal/lockbox/lib/storage"
	"github.com/hackingbutlegal/lockbox/lib/tier"
)

// --------------------------------------------------------------------------
// Emergency Access Operations
// --------------------------------------------------------------------------

// SetupEmergency creates the owner's dead-man's switch. Requires a tier
// that includes emergency access.
func (s *Service) SetupEmergency(owner core.Identity, inactivity, grace uint64) error {
	const op = "setup_emergency"
	now, release := s.begin(op, owner)
	defer release()

	txn := storage.Begin(s.store)
	d, err := s.loadDirectory(txn, owner)
	if err != nil {
		return s.fail(op, owner, err)
	}
	if !d.Tier.SupportsFeature(tier.FeatureEmergencyAccess) {
		return s.fail(op, owner, core.NewError(core.KindUnauthorized,
			"tier %s does not include emergency access", d.Tier))
	}
	if txn.Has(keyEmergency(owner)) {
		return s.fail(op, owner, core.NewError(core.KindValidationError,
			"emergency access already configured for %s", owner))
	}

	sw, err := emergency.New(owner, inactivity, grace, now)
	if err != nil {
		return s.fail(op, owner, err)
	}
	if err := s.saveEmergency(txn, sw, now); err != nil {
		return s.fail(op, owner, err)
	}
	txn.Commit()

	s.logger.Info().
		Str("owner", string(owner)).
		Uint64("inactivity", inactivity).
		Uint64("grace", grace).
		Msg("emergency access configured")
	return nil
}

// EmergencySwitch returns the owner's dead-man's switch.
func (s *Service) EmergencySwitch(owner core.Identity) (*emergency.Switch, error) {
	const op = "get_emergency"
	_, release := s.begin(op, owner)
	defer release()

	txn := storage.Begin(s.store)
	sw, err := s.loadEmergency(txn, owner)
	if err != nil {
		return nil, s.fail(op, owner, err)
	}
	return sw, nil
}

// mutateEmergency is the shared load-mutate-commit cycle for switch
// operations.
func (s *Service) mutateEmergency(op string, owner core.Identity, fn func(sw *emergency.Switch, now core.Timestamp) error) error {
	now, release := s.begin(op, owner)
	defer release()

	txn := storage.Begin(s.store)
	sw, err := s.loadEmergency(txn, owner)
	if err != nil {
		return s.fail(op, owner, err)
	}
	if err := fn(sw, now); err != nil {
		return s.fail(op, owner, err)
	}
	if err := s.saveEmergency(txn, sw, now); err != nil {
		return s.fail(op, owner, err)
	}
	txn.Commit()
	return nil
}

// AddEmergencyContact registers a contact.
func (s *Service) AddEmergencyContact(owner, contact core.Identity, info []byte, level emergency.AccessLevel) error {
	return s.mutateEmergency("add_emergency_contact", owner, func(sw *emergency.Switch, now core.Timestamp) error {
		return sw.AddContact(contact, info, level, now)
	})
}

// AcceptEmergencyContact activates a pending contact.
func (s *Service) AcceptEmergencyContact(owner, contact core.Identity) error {
	return s.mutateEmergency("accept_emergency_contact", owner, func(sw *emergency.Switch, now core.Timestamp) error {
		return sw.AcceptRole(contact, now)
	})
}

// RemoveEmergencyContact drops a contact.
func (s *Service) RemoveEmergencyContact(owner, contact core.Identity) error {
	return s.mutateEmergency("remove_emergency_contact", owner, func(sw *emergency.Switch, now core.Timestamp) error {
		return sw.RemoveContact(contact, now)
	})
}

// EmergencyCheckIn records owner activity and cancels any running trigger.
func (s *Service) EmergencyCheckIn(owner core.Identity) error {
	return s.mutateEmergency("emergency_check_in", owner, func(sw *emergency.Switch, now core.Timestamp) error {
		return sw.CheckIn(now)
	})
}

// UpdateEmergencyPeriods changes the timing configuration.
func (s *Service) UpdateEmergencyPeriods(owner core.Identity, inactivity, grace uint64) error {
	return s.mutateEmergency("update_emergency_periods", owner, func(sw *emergency.Switch, now core.Timestamp) error {
		return sw.UpdatePeriods(inactivity, grace, now)
	})
}

// RequestEmergencyAccess starts the grace countdown for a contact.
func (s *Service) RequestEmergencyAccess(owner, contact core.Identity) error {
	err := s.mutateEmergency("request_emergency_access", owner, func(sw *emergency.Switch, now core.Timestamp) error {
		return sw.RequestAccess(contact, now)
	})
	if err == nil {
		s.logger.Warn().
			Str("owner", string(owner)).
			Str("contact", string(contact)).
			Msg("emergency access requested, grace countdown running")
	}
	return err
}

// ClaimEmergencyAccess completes a trigger and returns the contact's
// access level.
func (s *Service) ClaimEmergencyAccess(owner, contact core.Identity) (emergency.AccessLevel, error) {
	const op = "claim_emergency_access"
	now, release := s.begin(op, owner)
	defer release()

	txn := storage.Begin(s.store)
	sw, err := s.loadEmergency(txn, owner)
	if err != nil {
		return 0, s.fail(op, owner, err)
	}
	level, err := sw.ClaimAccess(contact, now)
	if err != nil {
		return 0, s.fail(op, owner, err)
	}
	if err := s.saveEmergency(txn, sw, now); err != nil {
		return 0, s.fail(op, owner, err)
	}
	txn.Commit()

	s.logger.Warn().
		Str("owner", string(owner)).
		Str("contact", string(contact)).
		Str("level", level.String()).
		Msg("emergency access released")
	return level, nil
}

// touchVaultActivity counts a vault mutation as owner activity on the
// dead-man's switch, when one is configured. Runs inside the caller's
// transaction so the check-in commits with the mutation it witnesses. A
// released switch is left alone.
func (s *Service) touchVaultActivity(txn *storage.Txn, owner core.Identity, now core.Timestamp) error {
	if !txn.Has(keyEmergency(owner)) {
		return nil
	}
	sw, err := s.loadEmergency(txn, owner)
	if err != nil {
		return err
	}
	if sw.State == emergency.StateReleased {
		return nil
	}
	if err := sw.CheckIn(now); err != nil {
		return err
	}
	return s.saveEmergency(txn, sw, now)
}

// CancelEmergencyTrigger aborts a running trigger without counting as a
// check-in.
func (s *Service) CancelEmergencyTrigger(owner core.Identity) error {
	return s.mutateEmergency("cancel_emergency_trigger", owner, func(sw *emergency.Switch, now core.Timestamp) error {
		return sw.Cancel(now)
	})
}
