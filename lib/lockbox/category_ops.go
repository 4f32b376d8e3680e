package lockbox

import (
	"github.com/hackingbutlegal/lockbox/lib/category"
	"github.com/hackingbutlegal/lockbox/lib/core"
	"github.com/hackingbutlegal/lockbox/lib/storage"
)

// --------------------------------------------------------------------------
// Category Operations
// --------------------------------------------------------------------------

// CreateCategory adds a category and returns its assigned id. The registry
// is created lazily on first use.
func (s *Service) CreateCategory(owner core.Identity, nameEncrypted []byte, icon, color uint8, parentID *uint8) (uint8, error) {
	const op = "create_category"
	now, release := s.begin(op, owner)
	defer release()

	txn := storage.Begin(s.store)
	d, err := s.loadDirectory(txn, owner)
	if err != nil {
		return 0, s.fail(op, owner, err)
	}

	r, err := s.loadRegistry(txn, owner)
	if core.KindOf(err) == core.KindNotFound {
		r = category.NewRegistry(owner, now)
	} else if err != nil {
		return 0, s.fail(op, owner, err)
	}

	id, err := r.Create(nameEncrypted, icon, color, parentID, now)
	if err != nil {
		return 0, s.fail(op, owner, err)
	}
	d.CategoriesCount++
	d.Touch(now)

	if err := s.saveRegistry(txn, r, now); err != nil {
		return 0, s.fail(op, owner, err)
	}
	if err := s.saveDirectory(txn, d, now); err != nil {
		return 0, s.fail(op, owner, err)
	}
	txn.Commit()

	s.logger.Debug().Str("owner", string(owner)).Uint8("category", id).Msg("category created")
	return id, nil
}

// UpdateCategory changes a category's fields. Nil pointers leave the
// corresponding field unchanged; reparent controls whether parentID is
// applied.
func (s *Service) UpdateCategory(owner core.Identity, id uint8, nameEncrypted []byte, icon, color *uint8, reparent bool, parentID *uint8) error {
	const op = "update_category"
	now, release := s.begin(op, owner)
	defer release()

	txn := storage.Begin(s.store)
	r, err := s.loadRegistry(txn, owner)
	if err != nil {
		return s.fail(op, owner, err)
	}
	if err := r.Update(id, nameEncrypted, icon, color, reparent, parentID, now); err != nil {
		return s.fail(op, owner, err)
	}
	if err := s.saveRegistry(txn, r, now); err != nil {
		return s.fail(op, owner, err)
	}
	txn.Commit()
	return nil
}

// DeleteCategory removes an empty category.
func (s *Service) DeleteCategory(owner core.Identity, id uint8) error {
	const op = "delete_category"
	now, release := s.begin(op, owner)
	defer release()

	txn := storage.Begin(s.store)
	d, err := s.loadDirectory(txn, owner)
	if err != nil {
		return s.fail(op, owner, err)
	}
	r, err := s.loadRegistry(txn, owner)
	if err != nil {
		return s.fail(op, owner, err)
	}
	if err := r.Delete(id); err != nil {
		return s.fail(op, owner, err)
	}
	n, err := core.CheckedSubU32(d.CategoriesCount, 1)
	if err != nil {
		return s.fail(op, owner, err)
	}
	d.CategoriesCount = n
	d.Touch(now)

	if err := s.saveRegistry(txn, r, now); err != nil {
		return s.fail(op, owner, err)
	}
	if err := s.saveDirectory(txn, d, now); err != nil {
		return s.fail(op, owner, err)
	}
	txn.Commit()
	return nil
}

// ListCategories returns copies of all categories.
func (s *Service) ListCategories(owner core.Identity) ([]category.Category, error) {
	const op = "list_categories"
	_, release := s.begin(op, owner)
	defer release()

	txn := storage.Begin(s.store)
	r, err := s.loadRegistry(txn, owner)
	if core.KindOf(err) == core.KindNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, s.fail(op, owner, err)
	}
	out := make([]category.Category, len(r.Categories))
	copy(out, r.Categories)
	return out, nil
}

// adjustCategoryCount applies an entry-count delta inside a caller's
// transaction. Entry headers carry 32-bit category ids; the registry only
// issues ids up to 255, so anything larger never matches a category.
func (s *Service) adjustCategoryCount(txn *storage.Txn, owner core.Identity, categoryID uint32, delta int32, now core.Timestamp) error {
	if categoryID > 255 {
		return core.NewError(core.KindValidationError, "category id %d out of range", categoryID)
	}
	r, err := s.loadRegistry(txn, owner)
	if err != nil {
		return err
	}
	if err := r.AdjustCount(uint8(categoryID), delta, now); err != nil {
		return err
	}
	return s.saveRegistry(txn, r, now)
}
