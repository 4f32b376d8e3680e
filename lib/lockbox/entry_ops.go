package lockbox

import (
	"bytes"

	"github.com/hackingbutlegal/lockbox/lib/chunk"
	"github.com/hackingbutlegal/lockbox/lib/core"
	"github.com/hackingbutlegal/lockbox/lib/storage"
)

// --------------------------------------------------------------------------
// Entry Operations
// --------------------------------------------------------------------------

// AddEntry stores an encrypted record in a chunk and returns the assigned
// entry id. The id, the chunk mutation, the mirror update, and the
// category count all commit as one unit.
func (s *Service) AddEntry(owner core.Identity, chunkIndex uint16, typ chunk.EntryType, categoryID uint32, titleHash [32]byte, payload []byte) (uint64, error) {
	const op = "add_entry"
	now, release := s.begin(op, owner)
	defer release()

	if !typ.Valid() {
		return 0, s.fail(op, owner, core.NewError(core.KindValidationError, "unknown entry type %d", typ))
	}
	if len(payload) == 0 {
		return 0, s.fail(op, owner, core.NewError(core.KindValidationError, "empty entry payload"))
	}

	txn := storage.Begin(s.store)
	d, err := s.loadDirectory(txn, owner)
	if err != nil {
		return 0, s.fail(op, owner, err)
	}
	if !d.IsSubscriptionActive(now) {
		return 0, s.fail(op, owner, core.NewError(core.KindInvalidState,
			"subscription expired, renew before adding entries"))
	}
	if !d.HasCapacity(uint64(len(payload))) {
		return 0, s.fail(op, owner, core.NewCapacityError(
			d.Tier.MaxCapacity()-d.StorageUsed,
			"%d bytes exceed the %s tier limit", len(payload), d.Tier))
	}
	c, err := s.loadChunk(txn, owner, chunkIndex)
	if err != nil {
		return 0, s.fail(op, owner, err)
	}

	entryID := d.ReserveEntryID()
	hdr := chunk.EntryHeader{
		EntryID:      entryID,
		Size:         uint32(len(payload)),
		Type:         typ,
		CategoryID:   categoryID,
		TitleHash:    titleHash,
		CreatedAt:    now,
		LastModified: now,
	}
	if err := c.Insert(hdr, payload, now); err != nil {
		return 0, s.fail(op, owner, err)
	}
	if err := d.UpdateUsage(chunkIndex, c.UsedSize, now); err != nil {
		return 0, s.fail(op, owner, err)
	}
	d.IncrementEntries()
	d.Touch(now)

	if categoryID != 0 {
		if err := s.adjustCategoryCount(txn, owner, categoryID, 1, now); err != nil {
			return 0, s.fail(op, owner, err)
		}
	}
	if err := s.touchVaultActivity(txn, owner, now); err != nil {
		return 0, s.fail(op, owner, err)
	}
	if err := s.saveChunk(txn, c, now); err != nil {
		return 0, s.fail(op, owner, err)
	}
	if err := s.saveDirectory(txn, d, now); err != nil {
		return 0, s.fail(op, owner, err)
	}
	txn.Commit()

	s.logger.Debug().
		Str("owner", string(owner)).
		Uint16("chunk", chunkIndex).
		Uint64("entry", entryID).
		Int("size", len(payload)).
		Msg("entry added")
	return entryID, nil
}

// GetEntry returns an entry's payload and header, bumping its access
// counter.
func (s *Service) GetEntry(owner core.Identity, chunkIndex uint16, entryID uint64) ([]byte, *chunk.EntryHeader, error) {
	const op = "get_entry"
	now, release := s.begin(op, owner)
	defer release()

	txn := storage.Begin(s.store)
	c, err := s.loadChunk(txn, owner, chunkIndex)
	if err != nil {
		return nil, nil, s.fail(op, owner, err)
	}
	payload, err := c.Read(entryID)
	if err != nil {
		return nil, nil, s.fail(op, owner, err)
	}
	if err := c.RecordAccess(entryID, now); err != nil {
		return nil, nil, s.fail(op, owner, err)
	}
	hdr, err := c.Header(entryID)
	if err != nil {
		return nil, nil, s.fail(op, owner, err)
	}
	hdrCopy := *hdr

	if err := s.saveChunk(txn, c, now); err != nil {
		return nil, nil, s.fail(op, owner, err)
	}
	txn.Commit()
	return payload, &hdrCopy, nil
}

// UpdateEntry replaces an entry's payload in place.
func (s *Service) UpdateEntry(owner core.Identity, chunkIndex uint16, entryID uint64, payload []byte) error {
	const op = "update_entry"
	now, release := s.begin(op, owner)
	defer release()

	if len(payload) == 0 {
		return s.fail(op, owner, core.NewError(core.KindValidationError, "empty entry payload"))
	}

	txn := storage.Begin(s.store)
	d, err := s.loadDirectory(txn, owner)
	if err != nil {
		return s.fail(op, owner, err)
	}
	c, err := s.loadChunk(txn, owner, chunkIndex)
	if err != nil {
		return s.fail(op, owner, err)
	}
	hdr, err := c.Header(entryID)
	if err != nil {
		return s.fail(op, owner, err)
	}
	if uint32(len(payload)) > hdr.Size {
		growth := uint64(len(payload)) - uint64(hdr.Size)
		if !d.HasCapacity(growth) {
			return s.fail(op, owner, core.NewCapacityError(
				d.Tier.MaxCapacity()-d.StorageUsed,
				"update grows entry by %d bytes past the %s tier limit", growth, d.Tier))
		}
	}
	if err := c.Update(entryID, payload, now); err != nil {
		return s.fail(op, owner, err)
	}
	if err := d.UpdateUsage(chunkIndex, c.UsedSize, now); err != nil {
		return s.fail(op, owner, err)
	}
	d.Touch(now)

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

// DeleteEntry removes an entry, compacts the chunk, and releases the
// entry's bytes and counters.
func (s *Service) DeleteEntry(owner core.Identity, chunkIndex uint16, entryID uint64) error {
	const op = "delete_entry"
	now, release := s.begin(op, owner)
	defer release()

	txn := storage.Begin(s.store)
	d, err := s.loadDirectory(txn, owner)
	if err != nil {
		return s.fail(op, owner, err)
	}
	c, err := s.loadChunk(txn, owner, chunkIndex)
	if err != nil {
		return s.fail(op, owner, err)
	}
	hdr, err := c.Header(entryID)
	if err != nil {
		return s.fail(op, owner, err)
	}
	categoryID := hdr.CategoryID

	if err := c.Delete(entryID, now); err != nil {
		return s.fail(op, owner, err)
	}
	if err := d.UpdateUsage(chunkIndex, c.UsedSize, now); err != nil {
		return s.fail(op, owner, err)
	}
	if err := d.DecrementEntries(); err != nil {
		return s.fail(op, owner, err)
	}
	d.Touch(now)

	if categoryID != 0 {
		if err := s.adjustCategoryCount(txn, owner, categoryID, -1, now); err != nil {
			return s.fail(op, owner, err)
		}
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

	s.logger.Debug().
		Str("owner", string(owner)).
		Uint16("chunk", chunkIndex).
		Uint64("entry", entryID).
		Msg("entry deleted")
	return nil
}

// ListEntries returns copies of all entry headers in a chunk.
func (s *Service) ListEntries(owner core.Identity, chunkIndex uint16) ([]chunk.EntryHeader, error) {
	const op = "list_entries"
	_, release := s.begin(op, owner)
	defer release()

	txn := storage.Begin(s.store)
	c, err := s.loadChunk(txn, owner, chunkIndex)
	if err != nil {
		return nil, s.fail(op, owner, err)
	}
	out := make([]chunk.EntryHeader, len(c.Headers))
	copy(out, c.Headers)
	return out, nil
}

// SetEntryFlags updates the favorite and archived bits. A nil pointer
// leaves the corresponding bit unchanged.
func (s *Service) SetEntryFlags(owner core.Identity, chunkIndex uint16, entryID uint64, favorite, archived *bool) error {
	const op = "set_entry_flags"
	now, release := s.begin(op, owner)
	defer release()

	txn := storage.Begin(s.store)
	c, err := s.loadChunk(txn, owner, chunkIndex)
	if err != nil {
		return s.fail(op, owner, err)
	}
	hdr, err := c.Header(entryID)
	if err != nil {
		return s.fail(op, owner, err)
	}
	if favorite != nil {
		hdr.SetFavorite(*favorite)
	}
	if archived != nil {
		hdr.SetArchived(*archived)
	}
	hdr.LastModified = now

	if err := s.touchVaultActivity(txn, owner, now); err != nil {
		return s.fail(op, owner, err)
	}
	if err := s.saveChunk(txn, c, now); err != nil {
		return s.fail(op, owner, err)
	}
	txn.Commit()
	return nil
}

// EntryLocation identifies an entry across chunks.
type EntryLocation struct {
	ChunkIndex uint16
	EntryID    uint64
}

// SearchByTitleHash finds entries whose title fingerprint matches. The
// store never sees titles in the clear; clients hash the title they are
// looking for and match blindly.
func (s *Service) SearchByTitleHash(owner core.Identity, titleHash [32]byte) ([]EntryLocation, error) {
	const op = "search_title_hash"
	_, release := s.begin(op, owner)
	defer release()

	txn := storage.Begin(s.store)
	d, err := s.loadDirectory(txn, owner)
	if err != nil {
		return nil, s.fail(op, owner, err)
	}

	var found []EntryLocation
	for _, info := range d.Chunks {
		c, err := s.loadChunk(txn, owner, info.Index)
		if err != nil {
			return nil, s.fail(op, owner, err)
		}
		for i := range c.Headers {
			if bytes.Equal(c.Headers[i].TitleHash[:], titleHash[:]) {
				found = append(found, EntryLocation{ChunkIndex: c.Index, EntryID: c.Headers[i].EntryID})
			}
		}
	}
	return found, nil
}
