package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/farmhub/internal/domain/birdnest"
	"github.com/geocoder89/farmhub/internal/domain/user"
)

var ErrDuplicateNestID = errors.New("duplicate nest id")

type BirdNestsRepo struct {
	s *Store
}

func (r *BirdNestsRepo) listLocked(ownerID string) []birdnest.Nest {
	stored := r.s.nests[ownerID]
	out := make([]birdnest.Nest, 0, len(stored))
	for _, n := range stored {
		n.HatchDate = copyStr(n.HatchDate)
		out = append(out, n)
	}
	return out
}

func (r *BirdNestsRepo) List(_ context.Context, ownerID string) ([]birdnest.Nest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.listLocked(ownerID), nil
}

// ReplaceAll validates the whole submission before touching the stored set,
// so a rejected sync leaves the previous collection in place.
func (r *BirdNestsRepo) ReplaceAll(_ context.Context, ownerID string, in []birdnest.Input, expectedVersion string) ([]birdnest.Nest, error) {
	nests, err := birdnest.Normalize(ownerID, in)
	if err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[ownerID]; !ok {
		return nil, fmt.Errorf("lock owner %s: %w", ownerID, user.ErrNotFound)
	}

	if expectedVersion != "" && birdnest.Version(r.listLocked(ownerID)) != expectedVersion {
		return nil, birdnest.ErrVersionMismatch
	}

	seen := make(map[string]struct{}, len(nests))
	for _, n := range nests {
		if _, dup := seen[n.ID]; dup {
			return nil, fmt.Errorf("insert nest %q: %w", n.ID, ErrDuplicateNestID)
		}
		seen[n.ID] = struct{}{}
	}

	r.s.nests[ownerID] = nests
	return r.listLocked(ownerID), nil
}
