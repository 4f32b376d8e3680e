package vault

import (
	"github.com/hackingbutlegal/lockbox/lib/chunk"
	"github.com/hackingbutlegal/lockbox/lib/core"
	"github.com/hackingbutlegal/lockbox/lib/tier"
)

// MaxChunks is the maximum number of storage chunks one vault may register.
const MaxChunks = 100

// --------------------------------------------------------------------------
// Chunk Mirror
// --------------------------------------------------------------------------

// ChunkInfo mirrors one chunk's sizing inside the master record. It is a
// cache: the chunk itself owns the truth, and every chunk mutation is
// followed by an explicit UpdateUsage/UpdateCapacity call here.
type ChunkInfo struct {
	Index        uint16
	MaxCap       uint32
	UsedSize     uint32
	Type         chunk.StorageType
	CreatedAt    core.Timestamp
	LastModified core.Timestamp
}

// --------------------------------------------------------------------------
// Directory (master record)
// --------------------------------------------------------------------------

// Directory is the per-owner master record. One exists per owner identity;
// it routes entry operations to chunks and answers aggregate queries.
type Directory struct {
	Owner               core.Identity
	TotalEntries        uint64
	Tier                tier.Tier
	SubscriptionExpires core.Timestamp // 0 for Free
	LastAccessed        core.Timestamp
	TotalCapacity       uint64 // == sum(mirror MaxCap)
	StorageUsed         uint64 // == sum(mirror UsedSize)
	Chunks              []ChunkInfo
	NextEntryID         uint64 // strictly increasing, never reused; 0 is never a valid id
	CategoriesCount     uint32
	CreatedAt           core.Timestamp
}

// New creates the master record for an owner. Entry ids start at 1.
func New(owner core.Identity, now core.Timestamp) *Directory {
	return &Directory{
		Owner:        owner,
		Tier:         tier.Free,
		NextEntryID:  1,
		LastAccessed: now,
		CreatedAt:    now,
	}
}

// Touch records activity on the vault.
func (d *Directory) Touch(now core.Timestamp) {
	d.LastAccessed = now
}

// --------------------------------------------------------------------------
// Chunk Registration and Mirror Maintenance
// --------------------------------------------------------------------------

// RegisterChunk appends a new chunk descriptor. Indices are assigned
// sequentially: the new chunk's index must equal the current chunk count,
// which keeps the mirror indices exactly 0..len-1 with no duplicates.
func (d *Directory) RegisterChunk(info ChunkInfo) error {
	if len(d.Chunks) >= MaxChunks {
		return core.NewCapacityError(0, "vault chunk directory full (%d)", MaxChunks)
	}
	if int(info.Index) != len(d.Chunks) {
		return core.NewError(core.KindValidationError,
			"chunk index %d out of sequence (expected %d)", info.Index, len(d.Chunks))
	}
	newTotal, err := core.CheckedAddU64(d.TotalCapacity, uint64(info.MaxCap))
	if err != nil {
		return err
	}
	d.Chunks = append(d.Chunks, info)
	d.TotalCapacity = newTotal
	return nil
}

// findChunk returns the mirror position of a chunk index.
func (d *Directory) findChunk(index uint16) (int, error) {
	for i := range d.Chunks {
		if d.Chunks[i].Index == index {
			return i, nil
		}
	}
	return 0, core.NewError(core.KindNotFound, "chunk %d not found in vault directory", index)
}

// ChunkInfo returns the mirror entry for a chunk index.
func (d *Directory) ChunkInfo(index uint16) (*ChunkInfo, error) {
	i, err := d.findChunk(index)
	if err != nil {
		return nil, err
	}
	return &d.Chunks[i], nil
}

// UpdateUsage mirrors a chunk's new used size and adjusts the aggregate by
// the signed delta. The arithmetic is checked, not saturating: a decrease
// larger than the recorded aggregate is a consistency bug and must surface.
func (d *Directory) UpdateUsage(index uint16, newUsed uint32, now core.Timestamp) error {
	i, err := d.findChunk(index)
	if err != nil {
		return err
	}
	old := d.Chunks[i].UsedSize

	var total uint64
	if newUsed >= old {
		total, err = core.CheckedAddU64(d.StorageUsed, uint64(newUsed-old))
	} else {
		total, err = core.CheckedSubU64(d.StorageUsed, uint64(old-newUsed))
	}
	if err != nil {
		return err
	}
	d.Chunks[i].UsedSize = newUsed
	d.Chunks[i].LastModified = now
	d.StorageUsed = total
	return nil
}

// UpdateCapacity mirrors a chunk's expanded capacity.
func (d *Directory) UpdateCapacity(index uint16, newCap uint32, now core.Timestamp) error {
	i, err := d.findChunk(index)
	if err != nil {
		return err
	}
	old := d.Chunks[i].MaxCap
	if newCap < old {
		return core.NewError(core.KindValidationError,
			"chunk %d capacity cannot shrink (%d -> %d)", index, old, newCap)
	}
	total, err := core.CheckedAddU64(d.TotalCapacity, uint64(newCap-old))
	if err != nil {
		return err
	}
	d.Chunks[i].MaxCap = newCap
	d.Chunks[i].LastModified = now
	d.TotalCapacity = total
	return nil
}

// RemoveChunk drops a chunk from the mirror and releases its capacity and
// usage from the aggregates. Normal closure removes only the highest index
// so that the remaining indices stay exactly 0..len-1; the reconciliation
// path may remove any index.
func (d *Directory) RemoveChunk(index uint16) error {
	i, err := d.findChunk(index)
	if err != nil {
		return err
	}
	info := d.Chunks[i]
	used, err := core.CheckedSubU64(d.StorageUsed, uint64(info.UsedSize))
	if err != nil {
		return err
	}
	cap64, err := core.CheckedSubU64(d.TotalCapacity, uint64(info.MaxCap))
	if err != nil {
		return err
	}
	d.Chunks = append(d.Chunks[:i], d.Chunks[i+1:]...)
	d.StorageUsed = used
	d.TotalCapacity = cap64
	return nil
}

// --------------------------------------------------------------------------
// Entry Id Issuance and Counters
// --------------------------------------------------------------------------

// ReserveEntryID returns the next entry id and advances the counter. The
// caller must commit the directory in the same transactional unit as the
// entry that consumes the id, so a failed operation never burns an id.
func (d *Directory) ReserveEntryID() uint64 {
	id := d.NextEntryID
	d.NextEntryID++
	return id
}

// IncrementEntries bumps the vault-wide entry counter.
func (d *Directory) IncrementEntries() {
	d.TotalEntries++
}

// DecrementEntries lowers the vault-wide entry counter.
func (d *Directory) DecrementEntries() error {
	n, err := core.CheckedSubU64(d.TotalEntries, 1)
	if err != nil {
		return err
	}
	d.TotalEntries = n
	return nil
}

// --------------------------------------------------------------------------
// Capacity and Subscription
// --------------------------------------------------------------------------

// HasCapacity reports whether additional bytes fit within the tier limit.
func (d *Directory) HasCapacity(additional uint64) bool {
	total, err := core.CheckedAddU64(d.StorageUsed, additional)
	if err != nil {
		return false
	}
	return total <= d.Tier.MaxCapacity()
}

// IsSubscriptionActive reports whether the vault's tier is currently
// usable. Free never expires.
func (d *Directory) IsSubscriptionActive(now core.Timestamp) bool {
	if d.Tier == tier.Free {
		return true
	}
	return now < d.SubscriptionExpires
}

// Upgrade moves the vault to a higher tier and starts a new paid period.
func (d *Directory) Upgrade(target tier.Tier, now core.Timestamp) error {
	if !d.Tier.CanUpgradeTo(target) {
		return core.NewError(core.KindValidationError,
			"cannot upgrade tier %s to %s", d.Tier, target)
	}
	d.Tier = target
	d.SubscriptionExpires = now + tier.SubscriptionDuration
	return nil
}

// Renew extends the current paid period by one duration, from the later of
// now and the current expiry.
func (d *Directory) Renew(now core.Timestamp) error {
	if d.Tier == tier.Free {
		return core.NewError(core.KindInvalidState, "free tier has nothing to renew")
	}
	from := now
	if d.SubscriptionExpires > from {
		from = d.SubscriptionExpires
	}
	d.SubscriptionExpires = from + tier.SubscriptionDuration
	return nil
}

// Downgrade moves the vault to a lower tier. Rejected while stored bytes
// exceed the target tier's capacity.
func (d *Directory) Downgrade(target tier.Tier, now core.Timestamp) error {
	if !target.Valid() || target >= d.Tier {
		return core.NewError(core.KindValidationError,
			"cannot downgrade tier %s to %s", d.Tier, target)
	}
	if d.StorageUsed > target.MaxCapacity() {
		return core.NewCapacityError(target.MaxCapacity(),
			"stored %d bytes exceed %s tier capacity", d.StorageUsed, target)
	}
	d.Tier = target
	if target == tier.Free {
		d.SubscriptionExpires = 0
	}
	return nil
}
