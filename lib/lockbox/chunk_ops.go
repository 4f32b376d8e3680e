package lockbox

import (
	"sort"
	"strings"

	"github.com/hackingbutlegal/lockbox/lib/chunk"
	"github.com/hackingbutlegal/lockbox/lib/codec"
	"github.com/hackingbutlegal/lockbox/lib/core"
	"github.com/hackingbutlegal/lockbox/lib/storage"
	"github.com/hackingbutlegal/lockbox/lib/vault"
)

// --------------------------------------------------------------------------
// Chunk Lifecycle
// --------------------------------------------------------------------------

// InitializeChunk creates a new chunk at the next sequential index and
// registers it in the vault directory.
func (s *Service) InitializeChunk(owner core.Identity, capacity uint32, typ chunk.StorageType) (*chunk.Chunk, error) {
	const op = "initialize_chunk"
	now, release := s.begin(op, owner)
	defer release()

	txn := storage.Begin(s.store)
	d, err := s.loadDirectory(txn, owner)
	if err != nil {
		return nil, s.fail(op, owner, err)
	}

	index := uint16(len(d.Chunks))
	c, err := chunk.New(owner, index, capacity, typ, now)
	if err != nil {
		return nil, s.fail(op, owner, err)
	}
	if err := d.RegisterChunk(vault.ChunkInfo{
		Index:        index,
		MaxCap:       capacity,
		Type:         typ,
		CreatedAt:    now,
		LastModified: now,
	}); err != nil {
		return nil, s.fail(op, owner, err)
	}
	d.Touch(now)

	if err := s.touchVaultActivity(txn, owner, now); err != nil {
		return nil, s.fail(op, owner, err)
	}
	if err := s.saveChunk(txn, c, now); err != nil {
		return nil, s.fail(op, owner, err)
	}
	if err := s.saveDirectory(txn, d, now); err != nil {
		return nil, s.fail(op, owner, err)
	}
	txn.Commit()

	s.logger.Info().
		Str("owner", string(owner)).
		Uint16("chunk", index).
		Uint32("capacity", capacity).
		Msg("chunk initialized")
	return c, nil
}

// Chunk returns a chunk with its headers and arena.
func (s *Service) Chunk(owner core.Identity, index uint16) (*chunk.Chunk, error) {
	const op = "get_chunk"
	_, release := s.begin(op, owner)
	defer release()

	txn := storage.Begin(s.store)
	c, err := s.loadChunk(txn, owner, index)
	if err != nil {
		return nil, s.fail(op, owner, err)
	}
	return c, nil
}

// ExpandChunk grows a chunk's arena ceiling and mirrors the new capacity.
func (s *Service) ExpandChunk(owner core.Identity, index uint16, additional uint32) error {
	const op = "expand_chunk"
	now, release := s.begin(op, owner)
	defer release()

	txn := storage.Begin(s.store)
	d, err := s.loadDirectory(txn, owner)
	if err != nil {
		return s.fail(op, owner, err)
	}
	c, err := s.loadChunk(txn, owner, index)
	if err != nil {
		return s.fail(op, owner, err)
	}
	if err := c.Expand(additional, now); err != nil {
		return s.fail(op, owner, err)
	}
	if err := d.UpdateCapacity(index, c.MaxCap, now); err != nil {
		return s.fail(op, owner, err)
	}

	if err := s.touchVaultActivity(txn, owner, now); err != nil {
		return s.fail(op, owner, err)
	}
	if err := s.saveChunk(txn, c, now); err != nil {
		return s.fail(op, owner, err)
	}
	if err := s.saveDirectory(txn, d, now); err != nil {
		return s.fail(op, owner, err)
	}
	txn.Commit()
	return nil
}

// CloseChunk removes an empty chunk and releases its mirror entry. Only
// the highest index can be closed normally, so the remaining indices stay
// exactly 0..n-1 and every directory lookup stays valid.
func (s *Service) CloseChunk(owner core.Identity, index uint16) error {
	const op = "close_chunk"
	now, release := s.begin(op, owner)
	defer release()

	txn := storage.Begin(s.store)
	d, err := s.loadDirectory(txn, owner)
	if err != nil {
		return s.fail(op, owner, err)
	}
	if len(d.Chunks) == 0 || int(index) != len(d.Chunks)-1 {
		return s.fail(op, owner, core.NewError(core.KindInvalidState,
			"only the highest chunk index %d can be closed", len(d.Chunks)-1))
	}
	c, err := s.loadChunk(txn, owner, index)
	if err != nil {
		return s.fail(op, owner, err)
	}
	if c.EntryCount() > 0 {
		return s.fail(op, owner, core.NewError(core.KindInvalidState,
			"chunk %d still holds %d entries", index, c.EntryCount()))
	}
	if err := d.RemoveChunk(index); err != nil {
		return s.fail(op, owner, err)
	}
	d.Touch(now)

	if err := s.touchVaultActivity(txn, owner, now); err != nil {
		return s.fail(op, owner, err)
	}
	txn.Delete(keyChunk(owner, index))
	if err := s.saveDirectory(txn, d, now); err != nil {
		return s.fail(op, owner, err)
	}
	txn.Commit()

	s.logger.Info().Str("owner", string(owner)).Uint16("chunk", index).Msg("chunk closed")
	return nil
}

// ForceCloseChunk deletes a chunk record without touching the directory
// mirror. It exists to reclaim a corrupt or unreadable chunk; the mirror
// entry it strands is repaired by ReconcileMirror. Entries inside the
// chunk are lost.
func (s *Service) ForceCloseChunk(owner core.Identity, index uint16) error {
	const op = "force_close_chunk"
	_, release := s.begin(op, owner)
	defer release()

	txn := storage.Begin(s.store)
	if !txn.Has(keyChunk(owner, index)) {
		return s.fail(op, owner, core.NewError(core.KindNotFound,
			"chunk %d not found", index))
	}
	txn.Delete(keyChunk(owner, index))
	txn.Commit()

	s.logger.Warn().
		Str("owner", string(owner)).
		Uint16("chunk", index).
		Msg("chunk force-closed, directory mirror now stale until reconciliation")
	return nil
}

// --------------------------------------------------------------------------
// Mirror Reconciliation
// --------------------------------------------------------------------------

// ReconcileReport summarizes a mirror repair.
type ReconcileReport struct {
	ChunksBefore int    // mirror entries before the repair
	ChunksAfter  int    // chunk records found and kept
	Reindexed    int    // chunks moved to close index gaps
	StorageUsed  uint64 // recomputed aggregate
	TotalEntries uint64 // recomputed aggregate
}

// ReconcileMirror rebuilds the directory mirror from the chunk records
// themselves. Chunks are kept in index order and reindexed to close any
// gaps left by force-closes; all aggregates are recomputed from the
// surviving chunks.
func (s *Service) ReconcileMirror(owner core.Identity) (*ReconcileReport, error) {
	const op = "reconcile_mirror"
	now, release := s.begin(op, owner)
	defer release()

	txn := storage.Begin(s.store)
	d, err := s.loadDirectory(txn, owner)
	if err != nil {
		return nil, s.fail(op, owner, err)
	}

	// Collect surviving chunk records
	var chunks []*chunk.Chunk
	prefix := chunkKeyPrefix(owner)
	var scanErr error
	s.store.Range(func(key string, _ []byte) bool {
		if !strings.HasPrefix(key, prefix) {
			return true
		}
		var c chunk.Chunk
		if err := s.getEntity(txn, key, codec.KindChunk, &c); err != nil {
			scanErr = err
			return false
		}
		chunks = append(chunks, &c)
		return true
	})
	if scanErr != nil {
		return nil, s.fail(op, owner, scanErr)
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Index < chunks[j].Index })

	report := &ReconcileReport{ChunksBefore: len(d.Chunks), ChunksAfter: len(chunks)}

	// Drop every old record and mirror entry, then rebuild both with
	// sequential indices
	for _, c := range chunks {
		txn.Delete(keyChunk(owner, c.Index))
	}
	d.Chunks = nil
	d.TotalCapacity = 0
	d.StorageUsed = 0
	d.TotalEntries = 0

	for i, c := range chunks {
		if int(c.Index) != i {
			c.Index = uint16(i)
			report.Reindexed++
		}
		if err := d.RegisterChunk(vault.ChunkInfo{
			Index:        c.Index,
			MaxCap:       c.MaxCap,
			UsedSize:     c.UsedSize,
			Type:         c.Type,
			CreatedAt:    c.CreatedAt,
			LastModified: now,
		}); err != nil {
			return nil, s.fail(op, owner, err)
		}
		used, err := core.CheckedAddU64(d.StorageUsed, uint64(c.UsedSize))
		if err != nil {
			return nil, s.fail(op, owner, err)
		}
		d.StorageUsed = used
		d.TotalEntries += uint64(c.EntryCount())
		if err := s.saveChunk(txn, c, now); err != nil {
			return nil, s.fail(op, owner, err)
		}
	}
	d.Touch(now)

	report.StorageUsed = d.StorageUsed
	report.TotalEntries = d.TotalEntries

	if err := s.saveDirectory(txn, d, now); err != nil {
		return nil, s.fail(op, owner, err)
	}
	txn.Commit()

	s.logger.Info().
		Str("owner", string(owner)).
		Int("chunks", report.ChunksAfter).
		Int("reindexed", report.Reindexed).
		Msg("directory mirror reconciled")
	return report, nil
}

// ValidateChunk checks a chunk's internal invariants and its agreement
// with the directory mirror.
func (s *Service) ValidateChunk(owner core.Identity, index uint16) error {
	const op = "validate_chunk"
	_, release := s.begin(op, owner)
	defer release()

	txn := storage.Begin(s.store)
	d, err := s.loadDirectory(txn, owner)
	if err != nil {
		return s.fail(op, owner, err)
	}
	c, err := s.loadChunk(txn, owner, index)
	if err != nil {
		return s.fail(op, owner, err)
	}
	if err := c.Validate(); err != nil {
		return s.fail(op, owner, err)
	}
	info, err := d.ChunkInfo(index)
	if err != nil {
		return s.fail(op, owner, err)
	}
	if info.UsedSize != c.UsedSize || info.MaxCap != c.MaxCap {
		return s.fail(op, owner, core.NewError(core.KindIntegrityViolation,
			"mirror records %d/%d bytes but chunk holds %d/%d",
			info.UsedSize, info.MaxCap, c.UsedSize, c.MaxCap))
	}
	return nil
}
