package memory

import (
	"context"

	"github.com/geocoder89/farmhub/internal/domain/category"
)

type CategoriesRepo struct {
	s *Store
}

func (r *CategoriesRepo) rowsLocked() []category.Category {
	out := make([]category.Category, 0, len(r.s.categories))
	for _, c := range r.s.categories {
		c.ParentID = copyStr(c.ParentID)
		out = append(out, c)
	}
	category.SortByName(out)
	return out
}

func (r *CategoriesRepo) List(_ context.Context) ([]category.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.rowsLocked(), nil
}

func (r *CategoriesRepo) Exists(_ context.Context, id string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	_, ok := r.s.categories[id]
	return ok, nil
}

func (r *CategoriesRepo) Create(_ context.Context, req category.CreateRequest) (category.Category, error) {
	c, err := category.NewFromCreateRequest(req)
	if err != nil {
		return category.Category{}, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if c.ParentID != nil {
		if _, ok := r.s.categories[*c.ParentID]; !ok {
			return category.Category{}, category.ErrParentNotFound
		}
	}

	r.s.categories[c.ID] = c
	return c, nil
}

func (r *CategoriesRepo) Update(_ context.Context, id string, req category.UpdateRequest) (category.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.categories[id]
	if !ok {
		return category.Category{}, category.ErrNotFound
	}

	next, parentChanged := category.ApplyUpdate(existing, req)
	if parentChanged {
		if err := category.CheckParent(id, next.ParentID, category.ParentIndex(r.rowsLocked())); err != nil {
			return category.Category{}, err
		}
	}

	r.s.categories[id] = next
	return next, nil
}

func (r *CategoriesRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.categories[id]; !ok {
		return category.ErrNotFound
	}

	for cid, c := range r.s.categories {
		if c.ParentID != nil && *c.ParentID == id {
			c.ParentID = nil
			r.s.categories[cid] = c
		}
	}
	for pid, p := range r.s.posts {
		if p.CategoryID != nil && *p.CategoryID == id {
			p.CategoryID = nil
			r.s.posts[pid] = p
		}
	}
	delete(r.s.categories, id)
	return nil
}
