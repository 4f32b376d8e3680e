// Package category implements the per-owner registry of user-defined entry
// categories: opaque encrypted names, icon/color hints, optional hierarchy,
// and per-category entry counts maintained by the storage operations.
package category

import "github.com/hackingbutlegal/lockbox/lib/core"

const (
	// MaxNameSize bounds the encrypted category name.
	MaxNameSize = 64

	// MaxCategories bounds the registry (category ids are u8).
	MaxCategories = 255
)

// --------------------------------------------------------------------------
// Category
// --------------------------------------------------------------------------

// Category is one organizational bucket. Names are encrypted client-side;
// the core never interprets them.
type Category struct {
	ID            uint8
	NameEncrypted []byte // opaque, <= MaxNameSize
	Icon          uint8
	Color         uint8
	ParentID      *uint8 // nil for root categories
	EntryCount    uint32
	CreatedAt     core.Timestamp
	LastModified  core.Timestamp
	Flags         uint8
}

// --------------------------------------------------------------------------
// Registry
// --------------------------------------------------------------------------

// Registry holds all categories of one owner. Id 0 is reserved: entry
// headers use category id 0 to mean "uncategorized", so the registry never
// issues it.
type Registry struct {
	Owner          core.Identity
	Categories     []Category
	NextCategoryID uint8
	CreatedAt      core.Timestamp
}

// NewRegistry creates an empty registry for an owner.
func NewRegistry(owner core.Identity, now core.Timestamp) *Registry {
	return &Registry{
		Owner:          owner,
		NextCategoryID: 1,
		CreatedAt:      now,
	}
}

func (r *Registry) find(id uint8) (int, error) {
	for i := range r.Categories {
		if r.Categories[i].ID == id {
			return i, nil
		}
	}
	return 0, core.NewError(core.KindNotFound, "category %d not found", id)
}

// Get returns a category by id.
func (r *Registry) Get(id uint8) (*Category, error) {
	i, err := r.find(id)
	if err != nil {
		return nil, err
	}
	return &r.Categories[i], nil
}

// Create adds a new category and returns its assigned id.
func (r *Registry) Create(nameEncrypted []byte, icon, color uint8, parentID *uint8, now core.Timestamp) (uint8, error) {
	if len(r.Categories) >= MaxCategories {
		return 0, core.NewCapacityError(0, "category registry full (%d)", MaxCategories)
	}
	if len(nameEncrypted) > MaxNameSize {
		return 0, core.NewError(core.KindValidationError,
			"category name %d bytes exceeds %d", len(nameEncrypted), MaxNameSize)
	}
	if parentID != nil {
		if _, err := r.find(*parentID); err != nil {
			return 0, err
		}
	}
	id := r.NextCategoryID
	if id == 0 {
		// the counter wrapped; ids are never reused, so the u8 space is gone
		return 0, core.NewCapacityError(0, "category id space exhausted")
	}
	r.Categories = append(r.Categories, Category{
		ID:            id,
		NameEncrypted: nameEncrypted,
		Icon:          icon,
		Color:         color,
		ParentID:      parentID,
		CreatedAt:     now,
		LastModified:  now,
	})
	r.NextCategoryID++
	return id, nil
}

// Update modifies category metadata. Nil arguments leave fields unchanged;
// reparent accepts an explicit nil target to move a category to the root.
func (r *Registry) Update(id uint8, nameEncrypted []byte, icon, color *uint8, reparent bool, parentID *uint8, now core.Timestamp) error {
	i, err := r.find(id)
	if err != nil {
		return err
	}
	c := &r.Categories[i]
	if nameEncrypted != nil {
		if len(nameEncrypted) > MaxNameSize {
			return core.NewError(core.KindValidationError,
				"category name %d bytes exceeds %d", len(nameEncrypted), MaxNameSize)
		}
		c.NameEncrypted = nameEncrypted
	}
	if icon != nil {
		c.Icon = *icon
	}
	if color != nil {
		c.Color = *color
	}
	if reparent {
		if parentID != nil {
			if *parentID == id {
				return core.NewError(core.KindValidationError, "category %d cannot parent itself", id)
			}
			if _, err := r.find(*parentID); err != nil {
				return err
			}
		}
		c.ParentID = parentID
	}
	c.LastModified = now
	return nil
}

// Delete removes a category. Rejected while entries still reference it.
func (r *Registry) Delete(id uint8) error {
	i, err := r.find(id)
	if err != nil {
		return err
	}
	if r.Categories[i].EntryCount != 0 {
		return core.NewError(core.KindInvalidState,
			"category %d still has %d entries", id, r.Categories[i].EntryCount)
	}
	for j := range r.Categories {
		if r.Categories[j].ParentID != nil && *r.Categories[j].ParentID == id {
			return core.NewError(core.KindInvalidState,
				"category %d still has child category %d", id, r.Categories[j].ID)
		}
	}
	r.Categories = append(r.Categories[:i], r.Categories[i+1:]...)
	return nil
}

// AdjustCount applies a signed delta to a category's entry count.
func (r *Registry) AdjustCount(id uint8, delta int32, now core.Timestamp) error {
	i, err := r.find(id)
	if err != nil {
		return err
	}
	c := &r.Categories[i]
	if delta >= 0 {
		n, err := core.CheckedAddU32(c.EntryCount, uint32(delta))
		if err != nil {
			return err
		}
		c.EntryCount = n
	} else {
		n, err := core.CheckedSubU32(c.EntryCount, uint32(-delta))
		if err != nil {
			return err
		}
		c.EntryCount = n
	}
	c.LastModified = now
	return nil
}
