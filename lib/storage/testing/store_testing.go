package testing

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/hackingbutlegal/lockbox/lib/storage"
)

// StoreFactory is a function that creates a new instance of an IStore implementation
type StoreFactory func() storage.IStore

// RunStoreTests runs a comprehensive test suite for an IStore implementation.
func RunStoreTests(t *testing.T, name string, factory StoreFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory())
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory())
		})

		t.Run("Has", func(t *testing.T) {
			testHas(t, factory())
		})

		t.Run("StaleWrites", func(t *testing.T) {
			testStaleWrites(t, factory())
		})

		t.Run("WriteIdx", func(t *testing.T) {
			testWriteIdx(t, factory())
		})

		t.Run("Range", func(t *testing.T) {
			testRange(t, factory())
		})

		t.Run("SaveLoad", func(t *testing.T) {
			testSaveLoad(t, factory)
		})

		t.Run("Txn", func(t *testing.T) {
			testTxn(t, factory())
		})

		t.Run("ConcurrentUsage", func(t *testing.T) {
			testConcurrentUsage(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, store storage.IStore) {
	defer store.Close()

	testKey := "test-key"
	testValue1 := []byte("test-value1")
	testValue2 := []byte("test-value2")

	store.Set(testKey, testValue1, store.NextWriteIdx())

	result, exists := store.Get(testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after Set", testKey)
	}
	if !bytes.Equal(result, testValue1) {
		t.Errorf("Expected value %s, got %s", testValue1, result)
	}

	store.Set(testKey, testValue2, store.NextWriteIdx())

	result, exists = store.Get(testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after Set", testKey)
	}
	if !bytes.Equal(result, testValue2) {
		t.Errorf("Expected value %s, got %s", testValue2, result)
	}

	_, exists = store.Get("nonexistent-key")
	if exists {
		t.Errorf("Expected nonexistent key to return exists=false")
	}

	// The returned value must be a copy
	retrievedValue, _ := store.Get(testKey)
	retrievedValue[0] = 'X'
	result, _ = store.Get(testKey)
	if !bytes.Equal(result, testValue2) {
		t.Errorf("Expected stored value to be unaffected by mutation of a returned copy")
	}
}

func testDelete(t *testing.T, store storage.IStore) {
	defer store.Close()

	testKey := "delete-key"
	store.Set(testKey, []byte("v"), store.NextWriteIdx())

	store.Delete(testKey, store.NextWriteIdx())

	if _, exists := store.Get(testKey); exists {
		t.Errorf("Expected key %s to be gone after Delete", testKey)
	}

	// Deleting a nonexistent key must not create it
	store.Delete("never-existed", store.NextWriteIdx())
	if store.Has("never-existed") {
		t.Errorf("Expected Delete of nonexistent key to not create it")
	}
}

func testHas(t *testing.T, store storage.IStore) {
	defer store.Close()

	if store.Has("missing") {
		t.Errorf("Expected Has to return false for missing key")
	}

	store.Set("present", []byte("v"), store.NextWriteIdx())
	if !store.Has("present") {
		t.Errorf("Expected Has to return true for present key")
	}
}

func testStaleWrites(t *testing.T, store storage.IStore) {
	defer store.Close()

	idx1 := store.NextWriteIdx()
	idx2 := store.NextWriteIdx()

	store.Set("key", []byte("newer"), idx2)
	store.Set("key", []byte("older"), idx1)

	result, _ := store.Get("key")
	if !bytes.Equal(result, []byte("newer")) {
		t.Errorf("Expected stale write to be ignored, got %s", result)
	}

	// Stale delete must be ignored too
	store.Delete("key", idx1)
	if !store.Has("key") {
		t.Errorf("Expected stale delete to be ignored")
	}
}

func testWriteIdx(t *testing.T, store storage.IStore) {
	defer store.Close()

	first := store.NextWriteIdx()
	second := store.NextWriteIdx()
	if second <= first {
		t.Errorf("Expected write index to increase, got %d then %d", first, second)
	}
	if store.WriteIdx() != second {
		t.Errorf("Expected WriteIdx %d, got %d", second, store.WriteIdx())
	}
}

func testRange(t *testing.T, store storage.IStore) {
	defer store.Close()

	for i := 0; i < 10; i++ {
		store.Set(fmt.Sprintf("key-%d", i), []byte{byte(i)}, store.NextWriteIdx())
	}

	seen := make(map[string]bool)
	store.Range(func(key string, value []byte) bool {
		seen[key] = true
		return true
	})
	if len(seen) != 10 {
		t.Errorf("Expected 10 keys from Range, got %d", len(seen))
	}

	// Early termination
	count := 0
	store.Range(func(key string, value []byte) bool {
		count++
		return count < 3
	})
	if count != 3 {
		t.Errorf("Expected Range to stop after 3 keys, got %d", count)
	}
}

func testSaveLoad(t *testing.T, factory StoreFactory) {
	src := factory()
	defer src.Close()

	for i := 0; i < 100; i++ {
		src.Set(fmt.Sprintf("key-%d", i), []byte(fmt.Sprintf("value-%d", i)), src.NextWriteIdx())
	}

	var buf bytes.Buffer
	if err := src.Save(&buf); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	dst := factory()
	defer dst.Close()
	if err := dst.Load(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("key-%d", i)
		want := []byte(fmt.Sprintf("value-%d", i))
		got, exists := dst.Get(key)
		if !exists {
			t.Errorf("Expected key %s to survive save/load", key)
			continue
		}
		if !bytes.Equal(got, want) {
			t.Errorf("Expected value %s for key %s, got %s", want, key, got)
		}
	}

	// The write index must resume past the snapshot's highest index
	if dst.WriteIdx() < src.WriteIdx() {
		t.Errorf("Expected loaded write index >= %d, got %d", src.WriteIdx(), dst.WriteIdx())
	}

	// Corrupt header must be rejected
	bad := factory()
	defer bad.Close()
	if err := bad.Load(bytes.NewReader([]byte("NOTLOCKBOX"))); err == nil {
		t.Errorf("Expected Load of corrupt data to fail")
	}
}

func testTxn(t *testing.T, store storage.IStore) {
	defer store.Close()

	store.Set("existing", []byte("old"), store.NextWriteIdx())

	txn := storage.Begin(store)
	txn.Set("existing", []byte("new"))
	txn.Set("added", []byte("v"))
	txn.Delete("existing")

	// Staged mutations visible inside the transaction
	if txn.Has("existing") {
		t.Errorf("Expected staged delete to be visible inside the txn")
	}
	if v, ok := txn.Get("added"); !ok || !bytes.Equal(v, []byte("v")) {
		t.Errorf("Expected staged write to be visible inside the txn")
	}

	// Nothing applied before commit
	if v, _ := store.Get("existing"); !bytes.Equal(v, []byte("old")) {
		t.Errorf("Expected store to be untouched before commit")
	}
	if store.Has("added") {
		t.Errorf("Expected store to be untouched before commit")
	}

	idx := txn.Commit()
	if idx == 0 {
		t.Errorf("Expected a nonzero commit index")
	}

	if store.Has("existing") {
		t.Errorf("Expected delete to be applied on commit")
	}
	if v, ok := store.Get("added"); !ok || !bytes.Equal(v, []byte("v")) {
		t.Errorf("Expected write to be applied on commit")
	}

	// Discard drops everything
	txn2 := storage.Begin(store)
	txn2.Set("discarded", []byte("v"))
	txn2.Discard()
	txn2.Commit()
	if store.Has("discarded") {
		t.Errorf("Expected discarded write to not be applied")
	}
}

func testConcurrentUsage(t *testing.T, store storage.IStore) {
	defer store.Close()

	const goroutines = 8
	const opsPerGoroutine = 200

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func(g int) {
			defer wg.Done()
			for i := 0; i < opsPerGoroutine; i++ {
				key := fmt.Sprintf("g%d-key-%d", g, i)
				store.Set(key, []byte(key), store.NextWriteIdx())
				if v, ok := store.Get(key); !ok || !bytes.Equal(v, []byte(key)) {
					t.Errorf("Expected to read back %s", key)
					return
				}
			}
		}(g)
	}
	wg.Wait()
}
