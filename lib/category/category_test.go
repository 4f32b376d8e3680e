package category

import (
	"testing"

	"github.com/hackingbutlegal/lockbox/lib/core"
)

func TestCreateAssignsIDs(t *testing.T) {
	r := NewRegistry("owner-1", 100)

	id, err := r.Create([]byte("enc-a"), 1, 2, nil, 100)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	// id 0 marks uncategorized entries and is never issued
	if id != 1 {
		t.Fatalf("Expected first category id 1, got %d", id)
	}

	id2, err := r.Create([]byte("enc-b"), 1, 2, nil, 100)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if id2 != 2 {
		t.Errorf("Expected second category id 2, got %d", id2)
	}

	// ids are never reused after a delete
	if err := r.Delete(id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	id3, err := r.Create([]byte("enc-c"), 1, 2, nil, 100)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if id3 != 3 {
		t.Errorf("Expected category id 3, got %d", id3)
	}
}

func TestCreateValidation(t *testing.T) {
	r := NewRegistry("owner-1", 100)

	long := make([]byte, MaxNameSize+1)
	if _, err := r.Create(long, 0, 0, nil, 100); core.KindOf(err) != core.KindValidationError {
		t.Errorf("Expected ValidationError for oversized name, got %v", err)
	}

	missing := uint8(9)
	if _, err := r.Create([]byte("x"), 0, 0, &missing, 100); core.KindOf(err) != core.KindNotFound {
		t.Errorf("Expected NotFound for missing parent, got %v", err)
	}
}

func TestHierarchy(t *testing.T) {
	r := NewRegistry("owner-1", 100)

	root, _ := r.Create([]byte("root"), 0, 0, nil, 100)
	child, err := r.Create([]byte("child"), 0, 0, &root, 100)
	if err != nil {
		t.Fatalf("Create child failed: %v", err)
	}

	if err := r.Update(child, nil, nil, nil, true, &child, 200); core.KindOf(err) != core.KindValidationError {
		t.Errorf("Expected ValidationError for self-parenting, got %v", err)
	}

	if err := r.Delete(root); core.KindOf(err) != core.KindInvalidState {
		t.Errorf("Expected InvalidState deleting a category with children, got %v", err)
	}

	// move the child to the root, then the old parent can go
	if err := r.Update(child, nil, nil, nil, true, nil, 200); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := r.Delete(root); err != nil {
		t.Errorf("Expected delete after reparenting, got %v", err)
	}
}

func TestEntryCounts(t *testing.T) {
	r := NewRegistry("owner-1", 100)
	id, _ := r.Create([]byte("x"), 0, 0, nil, 100)

	if err := r.AdjustCount(id, 2, 200); err != nil {
		t.Fatalf("AdjustCount failed: %v", err)
	}
	if err := r.Delete(id); core.KindOf(err) != core.KindInvalidState {
		t.Errorf("Expected InvalidState deleting a category in use, got %v", err)
	}

	if err := r.AdjustCount(id, -3, 200); core.KindOf(err) != core.KindIntegrityViolation {
		t.Errorf("Expected underflow to be rejected, got %v", err)
	}

	if err := r.AdjustCount(id, -2, 200); err != nil {
		t.Fatalf("AdjustCount failed: %v", err)
	}
	if err := r.Delete(id); err != nil {
		t.Errorf("Expected delete once the count drains, got %v", err)
	}
}
