package storage

import "io"

// IStore is the interface for all record stores
type IStore interface {
	// Set inserts or updates a record. The writeIdx parameter is a logical
	// timestamp; writes with an index older than the stored record are
	// ignored.
	Set(key string, value []byte, writeIdx uint64)

	// Get retrieves a record. The boolean indicates whether the key was
	// found. The returned value is a copy and safe to modify.
	Get(key string) ([]byte, bool)

	// Has checks if a key exists.
	Has(key string) bool

	// Delete removes a record. Deletes are also index-checked.
	Delete(key string, writeIdx uint64)

	// Range calls fn for every record until fn returns false. The value
	// passed to fn is a copy.
	Range(fn func(key string, value []byte) bool)

	// NextWriteIdx atomically allocates the next logical write index.
	NextWriteIdx() uint64

	// WriteIdx returns the current logical write index.
	WriteIdx() uint64

	// Save persists the store to the writer.
	Save(w io.Writer) error

	// Load restores the store from the reader, replacing all current data.
	Load(r io.Reader) error

	// Close releases resources held by the store.
	Close() error
}
