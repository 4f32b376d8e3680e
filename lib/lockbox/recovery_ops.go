package lockbox

import (
	"strings"

	"github.com/hackingbutlegal/lockbox/lib/codec"
	"github.com/hackingbutlegal/lockbox/lib/core"
	"github.com/hackingbutlegal/lockbox/lib/recovery"
	"github.com/hackingbutlegal/lockbox/lib/storage"
	"github.com/hackingbutlegal/lockbox/lib/tier"
)

// --------------------------------------------------------------------------
// Recovery Configuration
// --------------------------------------------------------------------------

// SetupRecovery creates the owner's recovery configuration. Requires a
// tier that includes social recovery.
func (s *Service) SetupRecovery(owner core.Identity, proto recovery.Protocol, threshold uint8, delay uint64, secretCommitment [32]byte) error {
	const op = "setup_recovery"
	now, release := s.begin(op, owner)
	defer release()

	txn := storage.Begin(s.store)
	d, err := s.loadDirectory(txn, owner)
	if err != nil {
		return s.fail(op, owner, err)
	}
	if !d.Tier.SupportsFeature(tier.FeatureSocialRecovery) {
		return s.fail(op, owner, core.NewError(core.KindUnauthorized,
			"tier %s does not include social recovery", d.Tier))
	}
	if txn.Has(keyRecoveryConfig(owner)) {
		return s.fail(op, owner, core.NewError(core.KindValidationError,
			"recovery already configured for %s", owner))
	}

	cfg, err := recovery.NewConfig(owner, proto, threshold, delay, secretCommitment, now)
	if err != nil {
		return s.fail(op, owner, err)
	}
	if err := s.saveRecoveryConfig(txn, cfg, now); err != nil {
		return s.fail(op, owner, err)
	}
	txn.Commit()

	s.logger.Info().
		Str("owner", string(owner)).
		Str("protocol", proto.String()).
		Uint8("threshold", threshold).
		Msg("recovery configured")
	return nil
}

// RecoveryConfig returns the owner's recovery configuration.
func (s *Service) RecoveryConfig(owner core.Identity) (*recovery.Config, error) {
	const op = "get_recovery_config"
	_, release := s.begin(op, owner)
	defer release()

	txn := storage.Begin(s.store)
	cfg, err := s.loadRecoveryConfig(txn, owner)
	if err != nil {
		return nil, s.fail(op, owner, err)
	}
	return cfg, nil
}

// AddGuardian registers a guardian in pending status.
func (s *Service) AddGuardian(owner, guardian core.Identity, shareIndex uint8, shareMaterial, nickname []byte) error {
	const op = "add_guardian"
	now, release := s.begin(op, owner)
	defer release()

	txn := storage.Begin(s.store)
	cfg, err := s.loadRecoveryConfig(txn, owner)
	if err != nil {
		return s.fail(op, owner, err)
	}
	if err := cfg.AddGuardian(guardian, shareIndex, shareMaterial, nickname, now); err != nil {
		return s.fail(op, owner, err)
	}
	if err := s.saveRecoveryConfig(txn, cfg, now); err != nil {
		return s.fail(op, owner, err)
	}
	txn.Commit()

	s.logger.Info().
		Str("owner", string(owner)).
		Str("guardian", string(guardian)).
		Uint8("share_index", shareIndex).
		Msg("guardian added")
	return nil
}

// AcceptGuardianship activates a pending guardian. Called by the guardian.
func (s *Service) AcceptGuardianship(owner, guardian core.Identity) error {
	const op = "accept_guardianship"
	now, release := s.begin(op, owner)
	defer release()

	txn := storage.Begin(s.store)
	cfg, err := s.loadRecoveryConfig(txn, owner)
	if err != nil {
		return s.fail(op, owner, err)
	}
	if err := cfg.AcceptGuardianship(guardian, now); err != nil {
		return s.fail(op, owner, err)
	}
	if err := s.saveRecoveryConfig(txn, cfg, now); err != nil {
		return s.fail(op, owner, err)
	}
	txn.Commit()
	return nil
}

// RemoveGuardian drops a guardian, refusing removals that would leave the
// registry below the threshold.
func (s *Service) RemoveGuardian(owner, guardian core.Identity) error {
	const op = "remove_guardian"
	now, release := s.begin(op, owner)
	defer release()

	txn := storage.Begin(s.store)
	cfg, err := s.loadRecoveryConfig(txn, owner)
	if err != nil {
		return s.fail(op, owner, err)
	}
	if err := cfg.RemoveGuardian(guardian, now); err != nil {
		return s.fail(op, owner, err)
	}
	if err := s.saveRecoveryConfig(txn, cfg, now); err != nil {
		return s.fail(op, owner, err)
	}
	txn.Commit()
	return nil
}

// --------------------------------------------------------------------------
// Recovery Sessions
// --------------------------------------------------------------------------

// InitiateRecovery starts a recovery session and returns its request id.
// Only an active guardian may initiate; newOwner designates who takes over
// the vault on completion (empty means the requester). The configuration's
// request counter, its rate limiter, and the new session commit atomically,
// so a crash between them cannot reuse an id.
func (s *Service) InitiateRecovery(owner, requester, newOwner core.Identity, challenge *recovery.Challenge) (uint64, error) {
	const op = "initiate_recovery"
	now, release := s.begin(op, owner)
	defer release()

	txn := storage.Begin(s.store)
	cfg, err := s.loadRecoveryConfig(txn, owner)
	if err != nil {
		return 0, s.fail(op, owner, err)
	}
	sess, err := recovery.Initiate(cfg, requester, newOwner, challenge, now)
	if err != nil {
		return 0, s.fail(op, owner, err)
	}
	if err := s.saveRecoveryConfig(txn, cfg, now); err != nil {
		return 0, s.fail(op, owner, err)
	}
	if err := s.saveSession(txn, sess, now); err != nil {
		return 0, s.fail(op, owner, err)
	}
	txn.Commit()

	s.logger.Info().
		Str("owner", string(owner)).
		Str("requester", string(requester)).
		Uint64("request", sess.RequestID).
		Msg("recovery initiated")
	return sess.RequestID, nil
}

// RecoveryStatus returns a recovery session as stored.
func (s *Service) RecoveryStatus(owner core.Identity, requestID uint64) (*recovery.Session, error) {
	const op = "recovery_status"
	_, release := s.begin(op, owner)
	defer release()

	txn := storage.Begin(s.store)
	sess, err := s.loadSession(txn, owner, requestID)
	if err != nil {
		return nil, s.fail(op, owner, err)
	}
	return sess, nil
}

// ApproveRecovery records a guardian's share submission.
func (s *Service) ApproveRecovery(owner core.Identity, requestID uint64, guardian core.Identity, shareIndex uint8, share [32]byte) error {
	const op = "approve_recovery"
	now, release := s.begin(op, owner)
	defer release()

	txn := storage.Begin(s.store)
	cfg, err := s.loadRecoveryConfig(txn, owner)
	if err != nil {
		return s.fail(op, owner, err)
	}
	sess, err := s.loadSession(txn, owner, requestID)
	if err != nil {
		return s.fail(op, owner, err)
	}
	if err := sess.Approve(cfg, guardian, shareIndex, share, now); err != nil {
		return s.fail(op, owner, err)
	}
	if err := s.saveSession(txn, sess, now); err != nil {
		return s.fail(op, owner, err)
	}
	txn.Commit()
	return nil
}

// ConfirmParticipation records a guardian's confirmation on a
// challenge-protocol session.
func (s *Service) ConfirmParticipation(owner core.Identity, requestID uint64, guardian core.Identity) error {
	const op = "confirm_participation"
	now, release := s.begin(op, owner)
	defer release()

	txn := storage.Begin(s.store)
	cfg, err := s.loadRecoveryConfig(txn, owner)
	if err != nil {
		return s.fail(op, owner, err)
	}
	sess, err := s.loadSession(txn, owner, requestID)
	if err != nil {
		return s.fail(op, owner, err)
	}
	if err := sess.Confirm(cfg, guardian, now); err != nil {
		return s.fail(op, owner, err)
	}
	if err := s.saveSession(txn, sess, now); err != nil {
		return s.fail(op, owner, err)
	}
	txn.Commit()
	return nil
}

// RecoveryShares hands the submitted shares to the requester once the
// session is ready. Reconstruction happens on the requester's side.
func (s *Service) RecoveryShares(owner core.Identity, requestID uint64, requester core.Identity) ([]recovery.Approval, error) {
	const op = "recovery_shares"
	now, release := s.begin(op, owner)
	defer release()

	txn := storage.Begin(s.store)
	cfg, err := s.loadRecoveryConfig(txn, owner)
	if err != nil {
		return nil, s.fail(op, owner, err)
	}
	sess, err := s.loadSession(txn, owner, requestID)
	if err != nil {
		return nil, s.fail(op, owner, err)
	}
	if requester != sess.Requester {
		return nil, s.fail(op, owner, core.NewError(core.KindUnauthorized,
			"only the requester may read recovery shares"))
	}
	shares, err := sess.Shares(cfg, now)
	if err != nil {
		return nil, s.fail(op, owner, err)
	}
	if err := s.saveSession(txn, sess, now); err != nil {
		return nil, s.fail(op, owner, err)
	}
	txn.Commit()
	return shares, nil
}

// CompleteRecovery closes a shares-protocol session and hands the vault to
// the recovered identity.
func (s *Service) CompleteRecovery(owner core.Identity, requestID uint64, requester core.Identity) error {
	const op = "complete_recovery"
	now, release := s.begin(op, owner)
	defer release()

	txn := storage.Begin(s.store)
	cfg, err := s.loadRecoveryConfig(txn, owner)
	if err != nil {
		return s.fail(op, owner, err)
	}
	sess, err := s.loadSession(txn, owner, requestID)
	if err != nil {
		return s.fail(op, owner, err)
	}
	if err := sess.CompleteWithShares(cfg, requester, now); err != nil {
		return s.fail(op, owner, err)
	}
	newOwner := sess.EffectiveNewOwner()
	if newOwner != owner {
		if err := s.transferVault(txn, owner, newOwner, now); err != nil {
			return s.fail(op, owner, err)
		}
		sess.Owner = newOwner
	}
	if err := s.saveSession(txn, sess, now); err != nil {
		return s.fail(op, owner, err)
	}
	txn.Commit()

	s.logger.Info().
		Str("owner", string(owner)).
		Str("new_owner", string(newOwner)).
		Uint64("request", requestID).
		Msg("recovery completed")
	return nil
}

// CompleteRecoveryWithProof closes a challenge-protocol session after
// verifying the requester's decryption proof, then hands the vault to the
// recovered identity.
func (s *Service) CompleteRecoveryWithProof(owner core.Identity, requestID uint64, requester core.Identity, plaintext, masterSecret []byte) error {
	const op = "complete_recovery_proof"
	now, release := s.begin(op, owner)
	defer release()

	txn := storage.Begin(s.store)
	cfg, err := s.loadRecoveryConfig(txn, owner)
	if err != nil {
		return s.fail(op, owner, err)
	}
	sess, err := s.loadSession(txn, owner, requestID)
	if err != nil {
		return s.fail(op, owner, err)
	}
	if err := sess.CompleteWithProof(cfg, requester, plaintext, masterSecret, now); err != nil {
		return s.fail(op, owner, err)
	}
	newOwner := sess.EffectiveNewOwner()
	if newOwner != owner {
		if err := s.transferVault(txn, owner, newOwner, now); err != nil {
			return s.fail(op, owner, err)
		}
		sess.Owner = newOwner
	}
	if err := s.saveSession(txn, sess, now); err != nil {
		return s.fail(op, owner, err)
	}
	txn.Commit()

	s.logger.Info().
		Str("owner", string(owner)).
		Str("new_owner", string(newOwner)).
		Uint64("request", requestID).
		Msg("recovery completed with proof")
	return nil
}

// CancelRecovery aborts a session. The vault owner or the requester may
// cancel.
func (s *Service) CancelRecovery(owner core.Identity, requestID uint64, by core.Identity) error {
	const op = "cancel_recovery"
	now, release := s.begin(op, owner)
	defer release()

	txn := storage.Begin(s.store)
	sess, err := s.loadSession(txn, owner, requestID)
	if err != nil {
		return s.fail(op, owner, err)
	}
	if err := sess.Cancel(by, now); err != nil {
		return s.fail(op, owner, err)
	}
	if err := s.saveSession(txn, sess, now); err != nil {
		return s.fail(op, owner, err)
	}
	txn.Commit()
	return nil
}

// --------------------------------------------------------------------------
// Ownership Transfer
// --------------------------------------------------------------------------

// transferVault re-homes every record of a vault under the recovered
// identity, inside the caller's transaction: the directory, all chunks, the
// category registry, the emergency switch, the recovery configuration, and
// the historical sessions. Storage keys embed the owner, so transferring
// means rewriting each record under its new key and deleting the old one.
func (s *Service) transferVault(txn *storage.Txn, oldOwner, newOwner core.Identity, now core.Timestamp) error {
	if txn.Has(keyDirectory(newOwner)) {
		return core.NewError(core.KindInvalidState, "%s already owns a vault", newOwner)
	}
	d, err := s.loadDirectory(txn, oldOwner)
	if err != nil {
		return err
	}
	d.Owner = newOwner
	d.Touch(now)
	if err := s.saveDirectory(txn, d, now); err != nil {
		return err
	}
	txn.Delete(keyDirectory(oldOwner))

	for _, info := range d.Chunks {
		c, err := s.loadChunk(txn, oldOwner, info.Index)
		if err != nil {
			return err
		}
		c.Owner = newOwner
		if err := s.saveChunk(txn, c, now); err != nil {
			return err
		}
		txn.Delete(keyChunk(oldOwner, info.Index))
	}

	if txn.Has(keyCategoryRegistry(oldOwner)) {
		r, err := s.loadRegistry(txn, oldOwner)
		if err != nil {
			return err
		}
		r.Owner = newOwner
		if err := s.saveRegistry(txn, r, now); err != nil {
			return err
		}
		txn.Delete(keyCategoryRegistry(oldOwner))
	}

	if txn.Has(keyEmergency(oldOwner)) {
		sw, err := s.loadEmergency(txn, oldOwner)
		if err != nil {
			return err
		}
		sw.Owner = newOwner
		if err := s.saveEmergency(txn, sw, now); err != nil {
			return err
		}
		txn.Delete(keyEmergency(oldOwner))
	}

	if txn.Has(keyRecoveryConfig(oldOwner)) {
		cfg, err := s.loadRecoveryConfig(txn, oldOwner)
		if err != nil {
			return err
		}
		cfg.Owner = newOwner
		if err := s.saveRecoveryConfig(txn, cfg, now); err != nil {
			return err
		}
		txn.Delete(keyRecoveryConfig(oldOwner))
	}

	var moveErr error
	prefix := sessionKeyPrefix(oldOwner)
	s.store.Range(func(key string, _ []byte) bool {
		if !strings.HasPrefix(key, prefix) {
			return true
		}
		var sess recovery.Session
		if err := s.getEntity(txn, key, codec.KindRecoverySession, &sess); err != nil {
			moveErr = err
			return false
		}
		sess.Owner = newOwner
		if err := s.saveSession(txn, &sess, now); err != nil {
			moveErr = err
			return false
		}
		txn.Delete(key)
		return true
	})
	return moveErr
}
