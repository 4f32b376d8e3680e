package chunk

import (
	"github.com/hackingbutlegal/lockbox/lib/core"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	// MaxEntries is the maximum number of entries one chunk may hold.
	MaxEntries = 100

	// MinCapacity is the smallest chunk arena (1KB).
	MinCapacity uint32 = 1024

	// MaxCapacity is the global per-chunk arena ceiling (10KB).
	MaxCapacity uint32 = 10240

	// MaxExpandIncrement bounds a single Expand call (10KB). One oversized
	// resize request must not produce disproportionate backing cost.
	MaxExpandIncrement uint32 = 10240
)

// --------------------------------------------------------------------------
// Chunk
// --------------------------------------------------------------------------

// Chunk is one fixed-capacity storage segment of a vault. The zero value is
// not usable; create chunks with New.
type Chunk struct {
	Owner        core.Identity // Vault owner; chunks are never shared across vaults
	Index        uint16        // Stable identity within the vault, assigned sequentially
	MaxCap       uint32        // Arena capacity ceiling (<= MaxCapacity)
	UsedSize     uint32        // Occupied bytes; always == len(Arena)
	Type         StorageType   // Kind of data stored
	Arena        []byte        // Contiguous encrypted payload buffer
	Headers      []EntryHeader // Ordered directory; offsets partition the arena
	CreatedAt    core.Timestamp
	LastModified core.Timestamp
}

// New creates an empty chunk with the given capacity.
func New(owner core.Identity, index uint16, capacity uint32, typ StorageType, now core.Timestamp) (*Chunk, error) {
	if capacity < MinCapacity || capacity > MaxCapacity {
		return nil, core.NewError(core.KindValidationError,
			"chunk capacity %d outside [%d, %d]", capacity, MinCapacity, MaxCapacity)
	}
	return &Chunk{
		Owner:        owner,
		Index:        index,
		MaxCap:       capacity,
		Type:         typ,
		CreatedAt:    now,
		LastModified: now,
	}, nil
}

// EntryCount returns the number of entries in the chunk.
func (c *Chunk) EntryCount() int {
	return len(c.Headers)
}

// AvailableSpace returns the free bytes in the arena.
func (c *Chunk) AvailableSpace() uint32 {
	return c.MaxCap - c.UsedSize
}

// CanFit reports whether size additional bytes fit.
func (c *Chunk) CanFit(size uint32) bool {
	return c.AvailableSpace() >= size
}

// findHeader returns the directory position of an entry. The directory is
// capped at MaxEntries, so a linear scan beats any index structure.
func (c *Chunk) findHeader(entryID uint64) (int, error) {
	for i := range c.Headers {
		if c.Headers[i].EntryID == entryID {
			return i, nil
		}
	}
	return 0, core.NewError(core.KindNotFound, "entry %d not found in chunk %d", entryID, c.Index)
}

// Header returns the header of an entry for inspection.
func (c *Chunk) Header(entryID uint64) (*EntryHeader, error) {
	i, err := c.findHeader(entryID)
	if err != nil {
		return nil, err
	}
	return &c.Headers[i], nil
}

// --------------------------------------------------------------------------
// Mutations
// --------------------------------------------------------------------------

// Insert appends a new entry. The header's EntryID, Type, CategoryID and
// TitleHash must be set by the caller; Offset, Size and the timestamps are
// assigned here. Inserts are append-only: the new record starts at the
// current end of the arena, so no compaction is needed.
func (c *Chunk) Insert(hdr EntryHeader, payload []byte, now core.Timestamp) error {
	if len(c.Headers) >= MaxEntries {
		return core.NewCapacityError(0, "chunk %d entry directory full (%d)", c.Index, MaxEntries)
	}
	newSize, err := core.CheckedAddU32(c.UsedSize, uint32(len(payload)))
	if err != nil {
		return err
	}
	if newSize > c.MaxCap {
		return core.NewCapacityError(uint64(c.AvailableSpace()),
			"chunk %d cannot fit %d bytes", c.Index, len(payload))
	}

	hdr.Offset = c.UsedSize
	hdr.Size = uint32(len(payload))
	hdr.CreatedAt = now
	hdr.LastModified = now
	hdr.AccessCount = 0

	c.Arena = append(c.Arena, payload...)
	c.Headers = append(c.Headers, hdr)
	c.UsedSize = newSize
	c.LastModified = now
	return nil
}

// Read returns a copy of an entry's payload. Bounds are re-validated against
// the current arena length before slicing, as a defense against stale or
// corrupted directory state. Bumping the access counter is the caller's
// responsibility (RecordAccess).
func (c *Chunk) Read(entryID uint64) ([]byte, error) {
	i, err := c.findHeader(entryID)
	if err != nil {
		return nil, err
	}
	h := &c.Headers[i]
	end, err := core.CheckedAddU32(h.Offset, h.Size)
	if err != nil {
		return nil, err
	}
	if end > uint32(len(c.Arena)) {
		return nil, core.NewError(core.KindIntegrityViolation,
			"entry %d range [%d,%d) exceeds arena length %d", entryID, h.Offset, end, len(c.Arena))
	}
	out := make([]byte, h.Size)
	copy(out, c.Arena[h.Offset:end])
	return out, nil
}

// RecordAccess bumps an entry's access counter.
func (c *Chunk) RecordAccess(entryID uint64, now core.Timestamp) error {
	i, err := c.findHeader(entryID)
	if err != nil {
		return err
	}
	c.Headers[i].AccessCount++
	c.LastModified = now
	return nil
}

// Update replaces an entry's payload. Same-size updates overwrite in place;
// any resize rebuilds the arena and shifts every later header's offset by
// the signed size delta, with checked arithmetic throughout.
func (c *Chunk) Update(entryID uint64, payload []byte, now core.Timestamp) error {
	i, err := c.findHeader(entryID)
	if err != nil {
		return err
	}
	h := &c.Headers[i]
	oldSize := h.Size
	newSize := uint32(len(payload))

	var newUsed uint32
	if newSize >= oldSize {
		newUsed, err = core.CheckedAddU32(c.UsedSize, newSize-oldSize)
	} else {
		newUsed, err = core.CheckedSubU32(c.UsedSize, oldSize-newSize)
	}
	if err != nil {
		return err
	}
	if newUsed > c.MaxCap {
		return core.NewCapacityError(uint64(c.AvailableSpace()),
			"chunk %d cannot grow entry %d to %d bytes", c.Index, entryID, newSize)
	}

	if newSize == oldSize {
		copy(c.Arena[h.Offset:h.Offset+oldSize], payload)
	} else {
		if err := c.splice(i, h.Offset, oldSize, payload); err != nil {
			return err
		}
	}

	h = &c.Headers[i]
	h.Size = newSize
	h.LastModified = now
	h.AccessCount++
	c.UsedSize = newUsed
	c.LastModified = now
	return nil
}

// Delete removes an entry, splicing its bytes out of the arena and shifting
// all subsequent headers down by the removed size.
func (c *Chunk) Delete(entryID uint64, now core.Timestamp) error {
	i, err := c.findHeader(entryID)
	if err != nil {
		return err
	}
	h := c.Headers[i]

	newUsed, err := core.CheckedSubU32(c.UsedSize, h.Size)
	if err != nil {
		return err
	}
	if err := c.splice(i, h.Offset, h.Size, nil); err != nil {
		return err
	}

	c.Headers = append(c.Headers[:i], c.Headers[i+1:]...)
	c.UsedSize = newUsed
	c.LastModified = now
	return nil
}

// splice rebuilds the arena with the byte range [offset, offset+oldSize)
// replaced by payload, and shifts the offset of every header positioned
// after directory index idx by the signed size delta. Underflow on a shift
// is a corruption signal and aborts the whole operation before any header
// is modified.
func (c *Chunk) splice(idx int, offset, oldSize uint32, payload []byte) error {
	newSize := uint32(len(payload))

	// Headers are ordered by offset, so everything after idx moves. Validate
	// every shift before touching state.
	shifted := make([]uint32, 0, len(c.Headers)-idx-1)
	for j := idx + 1; j < len(c.Headers); j++ {
		var next uint32
		var err error
		if newSize >= oldSize {
			next, err = core.CheckedAddU32(c.Headers[j].Offset, newSize-oldSize)
		} else {
			next, err = core.CheckedSubU32(c.Headers[j].Offset, oldSize-newSize)
		}
		if err != nil {
			return err
		}
		shifted = append(shifted, next)
	}

	end := offset + oldSize
	if end > uint32(len(c.Arena)) {
		return core.NewError(core.KindIntegrityViolation,
			"splice range [%d,%d) exceeds arena length %d", offset, end, len(c.Arena))
	}

	rebuilt := make([]byte, 0, len(c.Arena)-int(oldSize)+len(payload))
	rebuilt = append(rebuilt, c.Arena[:offset]...)
	rebuilt = append(rebuilt, payload...)
	rebuilt = append(rebuilt, c.Arena[end:]...)
	c.Arena = rebuilt

	for k, j := 0, idx+1; j < len(c.Headers); k, j = k+1, j+1 {
		c.Headers[j].Offset = shifted[k]
	}
	return nil
}

// Expand raises the chunk capacity by additional bytes, bounded by the
// global per-chunk ceiling and the per-call increment ceiling. The caller
// mirrors the new capacity into the vault directory.
func (c *Chunk) Expand(additional uint32, now core.Timestamp) error {
	if additional == 0 || additional > MaxExpandIncrement {
		return core.NewError(core.KindValidationError,
			"expand increment %d outside (0, %d]", additional, MaxExpandIncrement)
	}
	newCap, err := core.CheckedAddU32(c.MaxCap, additional)
	if err != nil {
		return err
	}
	if newCap > MaxCapacity {
		return core.NewCapacityError(uint64(MaxCapacity-c.MaxCap),
			"chunk %d expansion to %d exceeds ceiling %d", c.Index, newCap, MaxCapacity)
	}
	c.MaxCap = newCap
	c.LastModified = now
	return nil
}

// --------------------------------------------------------------------------
// Validation
// --------------------------------------------------------------------------

// Validate checks the structural invariants: used size equals arena length
// equals the sum of header sizes, and the header ranges partition the
// occupied prefix with no gaps or overlap. Used by tests and by the mirror
// reconciliation path.
func (c *Chunk) Validate() error {
	if c.UsedSize != uint32(len(c.Arena)) {
		return core.NewError(core.KindIntegrityViolation,
			"chunk %d used size %d != arena length %d", c.Index, c.UsedSize, len(c.Arena))
	}
	var sum uint32
	cursor := uint32(0)
	for i := range c.Headers {
		h := &c.Headers[i]
		if h.Offset != cursor {
			return core.NewError(core.KindIntegrityViolation,
				"chunk %d entry %d offset %d leaves a gap at %d", c.Index, h.EntryID, h.Offset, cursor)
		}
		var err error
		if cursor, err = core.CheckedAddU32(cursor, h.Size); err != nil {
			return err
		}
		if sum, err = core.CheckedAddU32(sum, h.Size); err != nil {
			return err
		}
	}
	if sum != c.UsedSize {
		return core.NewError(core.KindIntegrityViolation,
			"chunk %d header sizes sum to %d, used size is %d", c.Index, sum, c.UsedSize)
	}
	if c.UsedSize > c.MaxCap {
		return core.NewError(core.KindIntegrityViolation,
			"chunk %d used size %d exceeds capacity %d", c.Index, c.UsedSize, c.MaxCap)
	}
	if len(c.Headers) > MaxEntries {
		return core.NewError(core.KindIntegrityViolation,
			"chunk %d directory holds %d entries (max %d)", c.Index, len(c.Headers), MaxEntries)
	}
	return nil
}
