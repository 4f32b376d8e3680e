package storage

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	magicNum       = "LOCKBOX\x00" // File format identifier
	formatVersion  = 1             // Snapshot format version
	saveBufferSize = 1024 * 1024   // 1 MB buffer for Save/Load
)

// --------------------------------------------------------------------------
// Core store structure
// --------------------------------------------------------------------------

// record is the stored unit: the value plus the logical index of the write
// that produced it.
type record struct {
	Value []byte
	Index uint64
}

// memStore implements IStore on top of xsync.MapOf.
type memStore struct {
	data      *xsync.MapOf[string, record]
	currIndex atomic.Uint64
}

// NewMemStore creates a new in-memory record store.
//
// Thread-safety: the returned store is safe for concurrent use.
func NewMemStore() IStore {
	return &memStore{
		data: xsync.NewMapOf[string, record](),
	}
}

// --------------------------------------------------------------------------
// Core IStore Methods - Write Operations
// --------------------------------------------------------------------------

// Set inserts or updates a record (docu see storage.IStore).
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (s *memStore) Set(key string, value []byte, writeIdx uint64) {
	s.advanceWriteIdx(writeIdx)

	// Copy value to prevent memory corruption
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	s.data.Compute(key, func(old record, loaded bool) (record, bool) {
		// Stale writes are ignored
		if loaded && writeIdx < old.Index {
			return old, false
		}
		return record{Value: valueCopy, Index: writeIdx}, false
	})
}

// Delete removes a record (docu see storage.IStore).
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (s *memStore) Delete(key string, writeIdx uint64) {
	s.advanceWriteIdx(writeIdx)

	s.data.Compute(key, func(old record, loaded bool) (record, bool) {
		if !loaded {
			return old, true // delete=true so no record is created
		}
		if writeIdx < old.Index {
			return old, false
		}
		return record{}, true
	})
}

// --------------------------------------------------------------------------
// Core IStore Methods - Read Operations
// --------------------------------------------------------------------------

// Get retrieves a record (docu see storage.IStore).
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (s *memStore) Get(key string) ([]byte, bool) {
	rec, ok := s.data.Load(key)
	if !ok {
		return nil, false
	}
	out := make([]byte, len(rec.Value))
	copy(out, rec.Value)
	return out, true
}

// Has checks if a key exists (docu see storage.IStore).
func (s *memStore) Has(key string) bool {
	_, ok := s.data.Load(key)
	return ok
}

// Range calls fn for every record (docu see storage.IStore).
func (s *memStore) Range(fn func(key string, value []byte) bool) {
	s.data.Range(func(key string, rec record) bool {
		out := make([]byte, len(rec.Value))
		copy(out, rec.Value)
		return fn(key, out)
	})
}

// --------------------------------------------------------------------------
// Persistence Operations
// --------------------------------------------------------------------------

// Save persists the store to the writer.
//
// Thread-safety: This function allows concurrent reads and writes; it takes
// a snapshot of the data without blocking modifications.
func (s *memStore) Save(w io.Writer) error {
	bw := bufio.NewWriterSize(w, saveBufferSize)

	type entryToSave struct {
		key string
		rec record
	}

	var entries []entryToSave
	s.data.Range(func(key string, rec record) bool {
		recCopy := record{
			Index: rec.Index,
			Value: make([]byte, len(rec.Value)),
		}
		copy(recCopy.Value, rec.Value)
		entries = append(entries, entryToSave{key, recCopy})
		return true
	})

	// Write file header
	if _, err := bw.WriteString(magicNum); err != nil {
		return err
	}

	// Write format version
	if err := binary.Write(bw, binary.LittleEndian, uint8(formatVersion)); err != nil {
		return err
	}

	// Write total record count
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(entries))); err != nil {
		return err
	}

	for _, item := range entries {
		// Write key length and key
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(item.key))); err != nil {
			return err
		}
		if _, err := bw.WriteString(item.key); err != nil {
			return err
		}

		// Write write index
		if err := binary.Write(bw, binary.LittleEndian, item.rec.Index); err != nil {
			return err
		}

		// Write value length and value
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(item.rec.Value))); err != nil {
			return err
		}
		if _, err := bw.Write(item.rec.Value); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// Load restores the store from the reader.
//
// Thread-safety: This function is not thread-safe and should not be called
// concurrently with other operations.
func (s *memStore) Load(r io.Reader) error {
	br := bufio.NewReaderSize(r, saveBufferSize)

	// Read and verify magic number
	magicBytes := make([]byte, len(magicNum))
	if _, err := io.ReadFull(br, magicBytes); err != nil {
		return err
	}
	if string(magicBytes) != magicNum {
		return fmt.Errorf("invalid file format: magic number mismatch")
	}

	// Read and verify version
	var version uint8
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return err
	}
	if int(version) != formatVersion {
		return fmt.Errorf("unsupported snapshot version: %d (expected %d)", version, formatVersion)
	}

	// Replace all current data
	s.data = xsync.NewMapOf[string, record]()
	s.currIndex.Store(0)

	// Read record count
	var count uint64
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return err
	}

	// Track the highest index seen during load
	var maxIndex uint64 = 0

	for i := uint64(0); i < count; i++ {
		// Read key
		var keyLen uint32
		if err := binary.Read(br, binary.LittleEndian, &keyLen); err != nil {
			return err
		}
		keyBytes := make([]byte, keyLen)
		if _, err := io.ReadFull(br, keyBytes); err != nil {
			return err
		}

		// Read write index
		var index uint64
		if err := binary.Read(br, binary.LittleEndian, &index); err != nil {
			return err
		}
		if index > maxIndex {
			maxIndex = index
		}

		// Read value
		var valueLen uint32
		if err := binary.Read(br, binary.LittleEndian, &valueLen); err != nil {
			return err
		}
		value := make([]byte, valueLen)
		if _, err := io.ReadFull(br, value); err != nil {
			return err
		}

		s.data.Store(string(keyBytes), record{Value: value, Index: index})
	}

	// Resume the index where the snapshot left off
	s.advanceWriteIdx(maxIndex)

	return nil
}

// Close releases resources (docu see storage.IStore).
func (s *memStore) Close() error {
	return nil
}

// --------------------------------------------------------------------------
// Index Management
// --------------------------------------------------------------------------

// NextWriteIdx atomically allocates the next logical write index.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (s *memStore) NextWriteIdx() uint64 {
	return s.currIndex.Add(1)
}

// WriteIdx returns the current logical write index.
func (s *memStore) WriteIdx() uint64 {
	return s.currIndex.Load()
}

// advanceWriteIdx updates the current index if the new one is greater.
// It uses atomic operations to ensure that the index only increases.
func (s *memStore) advanceWriteIdx(newIdx uint64) {
	for {
		currIdx := s.currIndex.Load()
		if newIdx <= currIdx {
			return
		}
		if s.currIndex.CompareAndSwap(currIdx, newIdx) {
			return
		}
	}
}
