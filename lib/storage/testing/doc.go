// Package testing provides a standardised test suite for store
// implementations that satisfy the storage.IStore interface.
//
// Example usage:
//
//	// Creating a factory function for your implementation
//	factory := func() storage.IStore {
//		return NewMyStore()
//	}
//
//	// Running the standard test suite
//	storetesting.RunStoreTests(t, "MyStore", factory)
package testing
