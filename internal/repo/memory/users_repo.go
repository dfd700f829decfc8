package memory

import (
	"context"
	"sort"

	"github.com/geocoder89/farmhub/internal/domain/user"
)

type UsersRepo struct {
	s *Store
}

func (r *UsersRepo) emailTakenLocked(email, exceptID string) bool {
	for _, u := range r.s.users {
		if u.ID != exceptID && u.Email == email {
			return true
		}
	}
	return false
}

func (r *UsersRepo) Create(_ context.Context, u user.User) (user.User, error) {
	u.Email = user.NormalizeEmail(u.Email)

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.emailTakenLocked(u.Email, "") {
		return user.User{}, user.ErrEmailTaken
	}
	r.s.users[u.ID] = u
	return u, nil
}

func (r *UsersRepo) GetByEmail(_ context.Context, email string) (user.User, error) {
	email = user.NormalizeEmail(email)

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) GetByID(_ context.Context, id string) (user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (r *UsersRepo) List(_ context.Context) ([]user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]user.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *UsersRepo) Update(_ context.Context, id string, ch user.Changes) (user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	if ch.Email != nil {
		email := user.NormalizeEmail(*ch.Email)
		if r.emailTakenLocked(email, id) {
			return user.User{}, user.ErrEmailTaken
		}
		u.Email = email
	}
	if ch.Name != nil {
		u.Name = *ch.Name
	}
	if ch.PasswordHash != nil {
		u.PasswordHash = *ch.PasswordHash
	}
	if ch.Role != nil {
		u.Role = *ch.Role
	}

	r.s.users[id] = u
	return u, nil
}

func (r *UsersRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return user.ErrNotFound
	}
	delete(r.s.users, id)
	delete(r.s.nests, id)
	return nil
}
