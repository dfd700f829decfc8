package memory

import (
	"context"
	"sort"

	"github.com/geocoder89/farmhub/internal/domain/post"
)

type PostsRepo struct {
	s *Store
}

// joinLocked fills the read-side category fields the way the SQL join does.
func (r *PostsRepo) joinLocked(p post.Post) post.Post {
	p.CategoryID = copyStr(p.CategoryID)
	p.CategoryName, p.ParentCategoryID, p.ParentCategoryName = nil, nil, nil

	if p.CategoryID == nil {
		return p
	}
	c, ok := r.s.categories[*p.CategoryID]
	if !ok {
		return p
	}
	name := c.Name
	p.CategoryName = &name
	p.ParentCategoryID = copyStr(c.ParentID)

	if c.ParentID != nil {
		if parent, ok := r.s.categories[*c.ParentID]; ok {
			pn := parent.Name
			p.ParentCategoryName = &pn
		}
	}
	return p
}

func (r *PostsRepo) List(_ context.Context) ([]post.Post, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]post.Post, 0, len(r.s.posts))
	for _, p := range r.s.posts {
		out = append(out, r.joinLocked(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *PostsRepo) GetByID(_ context.Context, id string) (post.Post, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.posts[id]
	if !ok {
		return post.Post{}, post.ErrNotFound
	}
	return r.joinLocked(p), nil
}

func (r *PostsRepo) Create(_ context.Context, req post.CreateRequest) (post.Post, error) {
	p := post.NewFromCreateRequest(req)

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if p.CategoryID != nil {
		if _, ok := r.s.categories[*p.CategoryID]; !ok {
			return post.Post{}, post.ErrUnknownCategory
		}
	}
	r.s.posts[p.ID] = p
	return r.joinLocked(p), nil
}

func (r *PostsRepo) Update(_ context.Context, id string, req post.UpdateRequest) (post.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.posts[id]
	if !ok {
		return post.Post{}, post.ErrNotFound
	}

	next := post.ApplyUpdate(existing, req)
	if next.CategoryID != nil {
		if _, ok := r.s.categories[*next.CategoryID]; !ok {
			return post.Post{}, post.ErrUnknownCategory
		}
	}
	r.s.posts[id] = next
	return r.joinLocked(next), nil
}

func (r *PostsRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.posts[id]; !ok {
		return post.ErrNotFound
	}
	delete(r.s.posts, id)
	return nil
}
