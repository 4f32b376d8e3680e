package lockbox

import (
	"strings"

	"github.com/hackingbutlegal/lockbox/lib/core"
	"github.com/hackingbutlegal/lockbox/lib/storage"
	"github.com/hackingbutlegal/lockbox/lib/tier"
	"github.com/hackingbutlegal/lockbox/lib/vault"
)

// --------------------------------------------------------------------------
// Vault Lifecycle
// --------------------------------------------------------------------------

// CreateVault creates the master record for an owner.
func (s *Service) CreateVault(owner core.Identity) (*vault.Directory, error) {
	const op = "create_vault"
	now, release := s.begin(op, owner)
	defer release()

	txn := storage.Begin(s.store)
	if txn.Has(keyDirectory(owner)) {
		return nil, s.fail(op, owner, core.NewError(core.KindValidationError,
			"vault for %s already exists", owner))
	}

	d := vault.New(owner, now)
	if err := s.saveDirectory(txn, d, now); err != nil {
		return nil, s.fail(op, owner, err)
	}
	txn.Commit()

	s.logger.Info().Str("owner", string(owner)).Msg("vault created")
	return d, nil
}

// Directory returns the owner's master record.
func (s *Service) Directory(owner core.Identity) (*vault.Directory, error) {
	const op = "get_directory"
	_, release := s.begin(op, owner)
	defer release()

	txn := storage.Begin(s.store)
	d, err := s.loadDirectory(txn, owner)
	if err != nil {
		return nil, s.fail(op, owner, err)
	}
	return d, nil
}

// CloseVault deletes the master record and every per-owner supplement.
// Rejected while chunks remain: the owner closes them first so no entry
// payload is silently dropped.
func (s *Service) CloseVault(owner core.Identity) error {
	const op = "close_vault"
	_, release := s.begin(op, owner)
	defer release()

	txn := storage.Begin(s.store)
	d, err := s.loadDirectory(txn, owner)
	if err != nil {
		return s.fail(op, owner, err)
	}
	if len(d.Chunks) > 0 {
		return s.fail(op, owner, core.NewError(core.KindInvalidState,
			"%d chunks still open", len(d.Chunks)))
	}

	txn.Delete(keyDirectory(owner))
	txn.Delete(keyRecoveryConfig(owner))
	txn.Delete(keyCategoryRegistry(owner))
	txn.Delete(keyEmergency(owner))
	s.store.Range(func(key string, _ []byte) bool {
		if strings.HasPrefix(key, sessionKeyPrefix(owner)) {
			txn.Delete(key)
		}
		return true
	})
	txn.Commit()

	s.logger.Info().Str("owner", string(owner)).Msg("vault closed")
	return nil
}

// --------------------------------------------------------------------------
// Subscription Operations
// --------------------------------------------------------------------------

// UpgradeTier moves the vault to a strictly higher tier, charging one
// period up front. The payment clears before any state is committed.
func (s *Service) UpgradeTier(owner core.Identity, target tier.Tier) error {
	const op = "upgrade_tier"
	now, release := s.begin(op, owner)
	defer release()

	txn := storage.Begin(s.store)
	d, err := s.loadDirectory(txn, owner)
	if err != nil {
		return s.fail(op, owner, err)
	}
	if !d.Tier.CanUpgradeTo(target) {
		return s.fail(op, owner, core.NewError(core.KindValidationError,
			"cannot upgrade tier %s to %s", d.Tier, target))
	}
	if err := s.payments.Transfer(owner, target.MonthlyCost()); err != nil {
		return s.fail(op, owner, err)
	}
	if err := d.Upgrade(target, now); err != nil {
		return s.fail(op, owner, err)
	}
	if err := s.saveDirectory(txn, d, now); err != nil {
		return s.fail(op, owner, err)
	}
	txn.Commit()

	s.logger.Info().
		Str("owner", string(owner)).
		Str("tier", target.String()).
		Msg("subscription upgraded")
	return nil
}

// RenewSubscription extends the current paid period by one duration.
func (s *Service) RenewSubscription(owner core.Identity) error {
	const op = "renew_subscription"
	now, release := s.begin(op, owner)
	defer release()

	txn := storage.Begin(s.store)
	d, err := s.loadDirectory(txn, owner)
	if err != nil {
		return s.fail(op, owner, err)
	}
	if d.Tier == tier.Free {
		return s.fail(op, owner, core.NewError(core.KindInvalidState, "free tier has nothing to renew"))
	}
	if err := s.payments.Transfer(owner, d.Tier.MonthlyCost()); err != nil {
		return s.fail(op, owner, err)
	}
	if err := d.Renew(now); err != nil {
		return s.fail(op, owner, err)
	}
	if err := s.saveDirectory(txn, d, now); err != nil {
		return s.fail(op, owner, err)
	}
	txn.Commit()
	return nil
}

// DowngradeTier moves the vault to a lower tier. No refund is issued; the
// downgrade is rejected while stored bytes exceed the target capacity.
func (s *Service) DowngradeTier(owner core.Identity, target tier.Tier) error {
	const op = "downgrade_tier"
	now, release := s.begin(op, owner)
	defer release()

	txn := storage.Begin(s.store)
	d, err := s.loadDirectory(txn, owner)
	if err != nil {
		return s.fail(op, owner, err)
	}
	if err := d.Downgrade(target, now); err != nil {
		return s.fail(op, owner, err)
	}
	if err := s.saveDirectory(txn, d, now); err != nil {
		return s.fail(op, owner, err)
	}
	txn.Commit()
	return nil
}
