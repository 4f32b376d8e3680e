package storage_test

import (
	"testing"

	"github.com/hackingbutlegal/lockbox/lib/storage"
	storetesting "github.com/hackingbutlegal/lockbox/lib/storage/testing"
)

func Test(t *testing.T) {
	storetesting.RunStoreTests(t, "MemStore", func() storage.IStore {
		return storage.NewMemStore()
	})
}
