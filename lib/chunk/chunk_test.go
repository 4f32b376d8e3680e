package chunk

import (
	"bytes"
	"testing"

	"github.com/hackingbutlegal/lockbox/lib/core"
)

const testOwner = core.Identity("owner-1")

func testChunk(t *testing.T) (*Chunk, *core.ManualClock) {
	t.Helper()

	clock := core.NewManualClock(1_000_000)
	c, err := New(testOwner, 0, MinCapacity, StoragePasswords, clock.Now())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c, clock
}

func insert(t *testing.T, c *Chunk, id uint64, payload []byte, now core.Timestamp) {
	t.Helper()

	hdr := EntryHeader{EntryID: id, Type: EntryLogin}
	if err := c.Insert(hdr, payload, now); err != nil {
		t.Fatalf("Insert %d failed: %v", id, err)
	}
}

func TestNewValidation(t *testing.T) {
	clock := core.NewManualClock(100)

	if _, err := New(testOwner, 0, MinCapacity-1, StoragePasswords, clock.Now()); core.KindOf(err) != core.KindValidationError {
		t.Errorf("Expected ValidationError for undersized capacity, got %v", err)
	}
	if _, err := New(testOwner, 0, MaxCapacity+1, StoragePasswords, clock.Now()); core.KindOf(err) != core.KindValidationError {
		t.Errorf("Expected ValidationError for oversized capacity, got %v", err)
	}
}

func TestInsertReadRoundTrip(t *testing.T) {
	c, clock := testChunk(t)

	payload := []byte("encrypted-login-record")
	insert(t, c, 1, payload, clock.Now())

	got, err := c.Read(1)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("Expected payload %q, got %q", payload, got)
	}

	// Read returns a copy; mutating it must not touch the arena.
	got[0] = 'X'
	again, err := c.Read(1)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !bytes.Equal(again, payload) {
		t.Errorf("Expected arena unchanged after mutating a read copy")
	}

	if _, err := c.Read(99); core.KindOf(err) != core.KindNotFound {
		t.Errorf("Expected NotFound for unknown entry, got %v", err)
	}

	h, err := c.Header(1)
	if err != nil {
		t.Fatalf("Header failed: %v", err)
	}
	if h.AccessCount != 0 {
		t.Errorf("Expected access count 0 before RecordAccess, got %d", h.AccessCount)
	}
	if err := c.RecordAccess(1, clock.Now()); err != nil {
		t.Fatalf("RecordAccess failed: %v", err)
	}
	if h.AccessCount != 1 {
		t.Errorf("Expected access count 1, got %d", h.AccessCount)
	}
}

func TestOffsetsPartitionArena(t *testing.T) {
	c, clock := testChunk(t)

	insert(t, c, 1, []byte("aaaa"), clock.Now())
	insert(t, c, 2, []byte("bbbbbbbb"), clock.Now())
	insert(t, c, 3, []byte("cc"), clock.Now())

	if err := c.Validate(); err != nil {
		t.Fatalf("Validate failed after inserts: %v", err)
	}
	if c.UsedSize != 14 {
		t.Errorf("Expected used size 14, got %d", c.UsedSize)
	}

	// Deleting the middle entry shifts every later offset down.
	if err := c.Delete(2, clock.Now()); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate failed after middle delete: %v", err)
	}
	if c.UsedSize != 6 {
		t.Errorf("Expected used size 6, got %d", c.UsedSize)
	}
	got, err := c.Read(3)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !bytes.Equal(got, []byte("cc")) {
		t.Errorf("Expected entry 3 intact after shift, got %q", got)
	}
	h, err := c.Header(3)
	if err != nil {
		t.Fatalf("Header failed: %v", err)
	}
	if h.Offset != 4 {
		t.Errorf("Expected entry 3 offset 4 after shift, got %d", h.Offset)
	}
}

func TestUpdateResizes(t *testing.T) {
	c, clock := testChunk(t)

	insert(t, c, 1, []byte("first"), clock.Now())
	insert(t, c, 2, []byte("second"), clock.Now())

	// Grow the first entry and verify the second survives the shift.
	if err := c.Update(1, []byte("first-grown-payload"), clock.Now()); err != nil {
		t.Fatalf("Update (grow) failed: %v", err)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate failed after grow: %v", err)
	}
	got, err := c.Read(2)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !bytes.Equal(got, []byte("second")) {
		t.Errorf("Expected entry 2 intact after grow, got %q", got)
	}

	// Shrink back and verify again.
	if err := c.Update(1, []byte("x"), clock.Now()); err != nil {
		t.Fatalf("Update (shrink) failed: %v", err)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate failed after shrink: %v", err)
	}
	if c.UsedSize != 7 {
		t.Errorf("Expected used size 7 after shrink, got %d", c.UsedSize)
	}

	// Same-size update overwrites in place.
	if err := c.Update(1, []byte("y"), clock.Now()); err != nil {
		t.Fatalf("Update (same size) failed: %v", err)
	}
	got, err = c.Read(1)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !bytes.Equal(got, []byte("y")) {
		t.Errorf("Expected overwritten payload, got %q", got)
	}
}

func TestCapacityLimits(t *testing.T) {
	c, clock := testChunk(t)

	big := make([]byte, MinCapacity+1)
	if err := c.Insert(EntryHeader{EntryID: 1}, big, clock.Now()); core.KindOf(err) != core.KindCapacityExceeded {
		t.Errorf("Expected CapacityExceeded for oversized insert, got %v", err)
	}

	exact := make([]byte, MinCapacity)
	insert(t, c, 1, exact, clock.Now())
	if c.AvailableSpace() != 0 {
		t.Errorf("Expected full chunk, %d bytes available", c.AvailableSpace())
	}

	if err := c.Insert(EntryHeader{EntryID: 2}, []byte("z"), clock.Now()); core.KindOf(err) != core.KindCapacityExceeded {
		t.Errorf("Expected CapacityExceeded when full, got %v", err)
	}
	if err := c.Update(1, make([]byte, MinCapacity+1), clock.Now()); core.KindOf(err) != core.KindCapacityExceeded {
		t.Errorf("Expected CapacityExceeded for growing past capacity, got %v", err)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate failed after rejected mutations: %v", err)
	}
}

func TestEntryDirectoryLimit(t *testing.T) {
	c, clock := testChunk(t)

	for i := 1; i <= MaxEntries; i++ {
		insert(t, c, uint64(i), []byte("p"), clock.Now())
	}
	if err := c.Insert(EntryHeader{EntryID: MaxEntries + 1}, []byte("p"), clock.Now()); core.KindOf(err) != core.KindCapacityExceeded {
		t.Errorf("Expected CapacityExceeded for full directory, got %v", err)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate failed at directory limit: %v", err)
	}
}

func TestExpand(t *testing.T) {
	c, clock := testChunk(t)

	if err := c.Expand(0, clock.Now()); core.KindOf(err) != core.KindValidationError {
		t.Errorf("Expected ValidationError for zero increment, got %v", err)
	}
	if err := c.Expand(MaxExpandIncrement+1, clock.Now()); core.KindOf(err) != core.KindValidationError {
		t.Errorf("Expected ValidationError for oversized increment, got %v", err)
	}

	if err := c.Expand(MinCapacity, clock.Now()); err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	if c.MaxCap != 2*MinCapacity {
		t.Errorf("Expected capacity %d, got %d", 2*MinCapacity, c.MaxCap)
	}

	if err := c.Expand(MaxCapacity, clock.Now()); core.KindOf(err) != core.KindCapacityExceeded {
		t.Errorf("Expected CapacityExceeded past the ceiling, got %v", err)
	}
}

func TestFlags(t *testing.T) {
	c, clock := testChunk(t)
	insert(t, c, 1, []byte("p"), clock.Now())

	h, err := c.Header(1)
	if err != nil {
		t.Fatalf("Header failed: %v", err)
	}
	if h.IsFavorite() || h.IsArchived() {
		t.Errorf("Expected fresh entry to carry no flags")
	}

	h.SetFavorite(true)
	h.SetArchived(true)
	if !h.IsFavorite() || !h.IsArchived() {
		t.Errorf("Expected both flags set")
	}

	h.SetFavorite(false)
	if h.IsFavorite() {
		t.Errorf("Expected favorite flag cleared")
	}
	if !h.IsArchived() {
		t.Errorf("Expected archived flag untouched by clearing favorite")
	}
}

func TestValidateDetectsCorruption(t *testing.T) {
	c, clock := testChunk(t)
	insert(t, c, 1, []byte("aaaa"), clock.Now())
	insert(t, c, 2, []byte("bbbb"), clock.Now())

	c.Headers[1].Offset++ // introduce a gap
	if core.KindOf(c.Validate()) != core.KindIntegrityViolation {
		t.Errorf("Expected IntegrityViolation for offset gap")
	}
	c.Headers[1].Offset--

	c.UsedSize++ // desync the aggregate
	if core.KindOf(c.Validate()) != core.KindIntegrityViolation {
		t.Errorf("Expected IntegrityViolation for used size mismatch")
	}
}
