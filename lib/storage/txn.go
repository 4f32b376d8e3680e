package storage

// stagedOp is one pending mutation inside a transaction.
type stagedOp struct {
	value  []byte
	delete bool
}

// Txn is a unit of work against a store. Reads see staged mutations first,
// then fall through to the store. Commit applies every staged mutation
// under one freshly allocated write index, so a snapshot taken between two
// operations never contains half an operation.
//
// Thread-safety: a Txn is NOT safe for concurrent use.
type Txn struct {
	store  IStore
	staged map[string]stagedOp
	order  []string
}

// Begin starts a transaction against the store.
func Begin(store IStore) *Txn {
	return &Txn{
		store:  store,
		staged: make(map[string]stagedOp),
	}
}

// Get reads a key, honoring staged mutations.
func (t *Txn) Get(key string) ([]byte, bool) {
	if op, ok := t.staged[key]; ok {
		if op.delete {
			return nil, false
		}
		out := make([]byte, len(op.value))
		copy(out, op.value)
		return out, true
	}
	return t.store.Get(key)
}

// Has checks a key, honoring staged mutations.
func (t *Txn) Has(key string) bool {
	if op, ok := t.staged[key]; ok {
		return !op.delete
	}
	return t.store.Has(key)
}

// Set stages a write.
func (t *Txn) Set(key string, value []byte) {
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)
	t.stage(key, stagedOp{value: valueCopy})
}

// Delete stages a delete.
func (t *Txn) Delete(key string) {
	t.stage(key, stagedOp{delete: true})
}

func (t *Txn) stage(key string, op stagedOp) {
	if _, ok := t.staged[key]; !ok {
		t.order = append(t.order, key)
	}
	t.staged[key] = op
}

// Commit applies all staged mutations in staging order under one write
// index and returns that index. A Txn must not be reused after Commit.
func (t *Txn) Commit() uint64 {
	idx := t.store.NextWriteIdx()
	for _, key := range t.order {
		op := t.staged[key]
		if op.delete {
			t.store.Delete(key, idx)
		} else {
			t.store.Set(key, op.value, idx)
		}
	}
	t.staged = nil
	t.order = nil
	return idx
}

// Discard drops all staged mutations without applying them.
func (t *Txn) Discard() {
	t.staged = make(map[string]stagedOp)
	t.order = nil
}
