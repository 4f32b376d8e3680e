package lockbox

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
	"github.com/rs/zerolog"

	"github.com/hackingbutlegal/lockbox/lib/category"
	"github.com/hackingbutlegal/lockbox/lib/chunk"
	"github.com/hackingbutlegal/lockbox/lib/codec"
	"github.com/hackingbutlegal/lockbox/lib/core"
	"github.com/hackingbutlegal/lockbox/lib/emergency"
	"github.com/hackingbutlegal/lockbox/lib/recovery"
	"github.com/hackingbutlegal/lockbox/lib/storage"
	"github.com/hackingbutlegal/lockbox/lib/vault"
)

// --------------------------------------------------------------------------
// Service Setup
// --------------------------------------------------------------------------

// Options configures a Service.
type Options struct {
	Store    storage.IStore     // Record store (required)
	Codec    codec.ICodec       // Record envelope codec (nil = binary)
	Clock    core.Clock         // Time source (nil = system clock)
	Logger   zerolog.Logger     // Structured logger (zero value = disabled)
	Payments IPaymentProcessor  // Subscription billing (nil = in-memory ledger)
}

// Service is the lockbox operation surface.
type Service struct {
	store    storage.IStore
	codec    codec.ICodec
	clock    core.Clock
	logger   zerolog.Logger
	payments IPaymentProcessor
	locks    *ownerLocks
}

// New creates a Service from the given options.
func New(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, core.NewError(core.KindValidationError, "a record store is required")
	}
	c := opts.Codec
	if c == nil {
		c = codec.NewBinaryCodec()
	}
	clock := opts.Clock
	if clock == nil {
		clock = core.SystemClock{}
	}
	payments := opts.Payments
	if payments == nil {
		payments = NewLedgerProcessor()
	}
	return &Service{
		store:    opts.Store,
		codec:    c,
		clock:    clock,
		logger:   opts.Logger,
		payments: payments,
		locks:    newOwnerLocks(),
	}, nil
}

// begin is the shared operation prologue: it bumps the operation counter,
// reads the clock once, and locks the owner. The caller defers the
// returned release function.
func (s *Service) begin(op string, owner core.Identity) (core.Timestamp, func()) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`lockbox_operations_total{op=%q}`, op)).Inc()
	release := s.locks.acquire(owner)
	return s.clock.Now(), release
}

// fail bumps the error counter and logs the failed operation.
func (s *Service) fail(op string, owner core.Identity, err error) error {
	metrics.GetOrCreateCounter(fmt.Sprintf(`lockbox_operation_errors_total{op=%q}`, op)).Inc()
	s.logger.Debug().
		Str("op", op).
		Str("owner", string(owner)).
		Err(err).
		Msg("operation failed")
	return err
}

// --------------------------------------------------------------------------
// Entity Persistence Helpers
// --------------------------------------------------------------------------

// putEntity encodes an entity into its record envelope and stages it.
func (s *Service) putEntity(txn *storage.Txn, key string, kind codec.RecordKind, owner core.Identity, index uint64, now core.Timestamp, entity interface{}) error {
	payload, err := codec.MarshalEntity(entity)
	if err != nil {
		return core.NewError(core.KindValidationError, "encode entity: %v", err)
	}
	b, err := s.codec.Encode(codec.Record{
		Kind:       kind,
		Owner:      string(owner),
		Index:      index,
		ModifiedAt: uint64(now),
		Payload:    payload,
	})
	if err != nil {
		return core.NewError(core.KindValidationError, "encode record: %v", err)
	}
	txn.Set(key, b)
	return nil
}

// getEntity loads and decodes a record into entity. Returns NotFound when
// the key is absent and IntegrityViolation when the record kind mismatches.
func (s *Service) getEntity(txn *storage.Txn, key string, kind codec.RecordKind, entity interface{}) error {
	b, ok := txn.Get(key)
	if !ok {
		return core.NewError(core.KindNotFound, "record %s not found", key)
	}
	var rec codec.Record
	if err := s.codec.Decode(b, &rec); err != nil {
		return core.NewError(core.KindIntegrityViolation, "decode record %s: %v", key, err)
	}
	if rec.Kind != kind {
		return core.NewError(core.KindIntegrityViolation,
			"record %s has kind %d, expected %d", key, rec.Kind, kind)
	}
	if err := codec.UnmarshalEntity(rec.Payload, entity); err != nil {
		return core.NewError(core.KindIntegrityViolation, "decode entity %s: %v", key, err)
	}
	return nil
}

func (s *Service) loadDirectory(txn *storage.Txn, owner core.Identity) (*vault.Directory, error) {
	var d vault.Directory
	if err := s.getEntity(txn, keyDirectory(owner), codec.KindVaultDirectory, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Service) saveDirectory(txn *storage.Txn, d *vault.Directory, now core.Timestamp) error {
	return s.putEntity(txn, keyDirectory(d.Owner), codec.KindVaultDirectory, d.Owner, 0, now, d)
}

func (s *Service) loadChunk(txn *storage.Txn, owner core.Identity, index uint16) (*chunk.Chunk, error) {
	var c chunk.Chunk
	if err := s.getEntity(txn, keyChunk(owner, index), codec.KindChunk, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Service) saveChunk(txn *storage.Txn, c *chunk.Chunk, now core.Timestamp) error {
	return s.putEntity(txn, keyChunk(c.Owner, c.Index), codec.KindChunk, c.Owner, uint64(c.Index), now, c)
}

func (s *Service) loadRecoveryConfig(txn *storage.Txn, owner core.Identity) (*recovery.Config, error) {
	var cfg recovery.Config
	if err := s.getEntity(txn, keyRecoveryConfig(owner), codec.KindRecoveryConfig, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s *Service) saveRecoveryConfig(txn *storage.Txn, cfg *recovery.Config, now core.Timestamp) error {
	return s.putEntity(txn, keyRecoveryConfig(cfg.Owner), codec.KindRecoveryConfig, cfg.Owner, 0, now, cfg)
}

func (s *Service) loadSession(txn *storage.Txn, owner core.Identity, requestID uint64) (*recovery.Session, error) {
	var sess recovery.Session
	if err := s.getEntity(txn, keySession(owner, requestID), codec.KindRecoverySession, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *Service) saveSession(txn *storage.Txn, sess *recovery.Session, now core.Timestamp) error {
	return s.putEntity(txn, keySession(sess.Owner, sess.RequestID), codec.KindRecoverySession, sess.Owner, sess.RequestID, now, sess)
}

func (s *Service) loadRegistry(txn *storage.Txn, owner core.Identity) (*category.Registry, error) {
	var r category.Registry
	if err := s.getEntity(txn, keyCategoryRegistry(owner), codec.KindCategoryRegistry, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Service) saveRegistry(txn *storage.Txn, r *category.Registry, now core.Timestamp) error {
	return s.putEntity(txn, keyCategoryRegistry(r.Owner), codec.KindCategoryRegistry, r.Owner, 0, now, r)
}

func (s *Service) loadEmergency(txn *storage.Txn, owner core.Identity) (*emergency.Switch, error) {
	var sw emergency.Switch
	if err := s.getEntity(txn, keyEmergency(owner), codec.KindEmergencySwitch, &sw); err != nil {
		return nil, err
	}
	return &sw, nil
}

func (s *Service) saveEmergency(txn *storage.Txn, sw *emergency.Switch, now core.Timestamp) error {
	return s.putEntity(txn, keyEmergency(sw.Owner), codec.KindEmergencySwitch, sw.Owner, 0, now, sw)
}
