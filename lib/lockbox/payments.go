package lockbox

import (
	"sync"

	"github.com/hackingbutlegal/lockbox/lib/core"
)

// IPaymentProcessor is charged for subscription upgrades and renewals. The
// service never inspects balances itself; a processor rejecting a transfer
// aborts the operation before any state is committed.
type IPaymentProcessor interface {
	// Transfer charges the payer. A nil return means the payment cleared.
	Transfer(payer core.Identity, amount uint64) error
}

// ledgerProcessor is the default in-memory processor. It records every
// cleared transfer; useful for tests and single-node deployments where
// billing is reconciled elsewhere.
type ledgerProcessor struct {
	mu      sync.Mutex
	charges map[core.Identity]uint64
}

// NewLedgerProcessor creates an in-memory payment ledger.
func NewLedgerProcessor() IPaymentProcessor {
	return &ledgerProcessor{
		charges: make(map[core.Identity]uint64),
	}
}

func (l *ledgerProcessor) Transfer(payer core.Identity, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	total, err := core.CheckedAddU64(l.charges[payer], amount)
	if err != nil {
		return err
	}
	l.charges[payer] = total
	return nil
}
