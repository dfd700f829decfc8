package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/geocoder89/farmhub/internal/domain/birdnest"
	"github.com/geocoder89/farmhub/internal/domain/category"
	"github.com/geocoder89/farmhub/internal/domain/post"
	"github.com/geocoder89/farmhub/internal/domain/user"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sp(s string) *string { return &s }

func mustCategory(t *testing.T, repo *CategoriesRepo, name string, parent *string) category.Category {
	t.Helper()
	c, err := repo.Create(context.Background(), category.CreateRequest{Name: name, ParentID: parent})
	require.NoError(t, err)
	return c
}

func seedOwner(t *testing.T, s *Store) string {
	t.Helper()
	u, err := s.Users().Create(context.Background(), user.User{
		ID:        uuid.NewString(),
		Email:     uuid.NewString() + "@example.com",
		Role:      user.RoleUser,
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	return u.ID
}

func TestCategories_DeleteReparentsChildrenAndDetachesPosts(t *testing.T) {
	s := NewStore()
	cats := s.Categories()
	ctx := context.Background()

	fruit := mustCategory(t, cats, "Fruit", nil)
	apple := mustCategory(t, cats, "Apple", &fruit.ID)
	gala := mustCategory(t, cats, "Gala", &apple.ID)

	p, err := s.Posts().Create(ctx, post.CreateRequest{Title: "Harvest", CategoryID: &apple.ID})
	require.NoError(t, err)
	require.NotNil(t, p.ParentCategoryName)
	assert.Equal(t, "Fruit", *p.ParentCategoryName)

	require.NoError(t, cats.Delete(ctx, apple.ID))
	assert.ErrorIs(t, cats.Delete(ctx, apple.ID), category.ErrNotFound)

	rows, err := cats.List(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		if r.ID == gala.ID {
			assert.Nil(t, r.ParentID)
		}
	}

	p, err = s.Posts().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, p.CategoryID)
	assert.Nil(t, p.CategoryName)
}

func TestCategories_CreateAndUpdateValidation(t *testing.T) {
	s := NewStore()
	cats := s.Categories()
	ctx := context.Background()

	_, err := cats.Create(ctx, category.CreateRequest{Name: "Orphan", ParentID: sp("missing")})
	assert.ErrorIs(t, err, category.ErrParentNotFound)

	root := mustCategory(t, cats, "Root", sp(""))
	assert.Nil(t, root.ParentID)

	child := mustCategory(t, cats, "Child", &root.ID)

	_, err = cats.Update(ctx, root.ID, category.UpdateRequest{ParentID: &root.ID})
	assert.ErrorIs(t, err, category.ErrInvalidParent)

	_, err = cats.Update(ctx, root.ID, category.UpdateRequest{ParentID: &child.ID})
	assert.ErrorIs(t, err, category.ErrInvalidParent)

	_, err = cats.Update(ctx, "missing", category.UpdateRequest{Name: sp("x")})
	assert.ErrorIs(t, err, category.ErrNotFound)

	moved, err := cats.Update(ctx, child.ID, category.UpdateRequest{ParentID: sp("")})
	require.NoError(t, err)
	assert.Nil(t, moved.ParentID)

	renamed, err := cats.Update(ctx, child.ID, category.UpdateRequest{Name: sp("  ")})
	require.NoError(t, err)
	assert.Equal(t, "Child", renamed.Name)
}

// Racing reparents of two nodes under each other must leave an acyclic forest.
func TestCategories_ConcurrentReparentsStayAcyclic(t *testing.T) {
	s := NewStore()
	cats := s.Categories()
	ctx := context.Background()

	for round := 0; round < 50; round++ {
		a := mustCategory(t, cats, fmt.Sprintf("a%d", round), nil)
		b := mustCategory(t, cats, fmt.Sprintf("b%d", round), nil)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = cats.Update(ctx, a.ID, category.UpdateRequest{ParentID: &b.ID})
		}()
		go func() {
			defer wg.Done()
			_, _ = cats.Update(ctx, b.ID, category.UpdateRequest{ParentID: &a.ID})
		}()
		wg.Wait()

		rows, err := cats.List(ctx)
		require.NoError(t, err)
		lookup := category.ParentIndex(rows)
		for _, r := range rows {
			steps := 0
			for cur := r.ParentID; cur != nil; cur, _ = lookup(*cur) {
				steps++
				require.LessOrEqual(t, steps, len(rows))
			}
		}
	}
}

func TestBirdNests_ReplaceAllIsIdempotent(t *testing.T) {
	s := NewStore()
	repo := s.BirdNests()
	ctx := context.Background()
	owner := seedOwner(t, s)

	in := []birdnest.Input{
		{ID: sp("porch"), Name: sp("Porch"), HatchDate: sp("2026-10-01"), Notes: sp("3 eggs")},
		{ID: sp("shed"), Name: sp("Shed")},
	}

	first, err := repo.ReplaceAll(ctx, owner, in, "")
	require.NoError(t, err)
	second, err := repo.ReplaceAll(ctx, owner, in, "")
	require.NoError(t, err)

	assert.Equal(t, birdnest.Version(first), birdnest.Version(second))
	assert.Equal(t, first, second)
}

func TestBirdNests_ReplaceAllUnknownOwner(t *testing.T) {
	repo := NewStore().BirdNests()

	_, err := repo.ReplaceAll(context.Background(), uuid.NewString(), []birdnest.Input{{ID: sp("1")}}, "")
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestBirdNests_ReplaceAll(t *testing.T) {
	s := NewStore()
	repo := s.BirdNests()
	ctx := context.Background()
	owner := seedOwner(t, s)
	other := seedOwner(t, s)

	got, err := repo.ReplaceAll(ctx, owner, []birdnest.Input{
		{ID: sp("1"), Name: sp("A")},
		{Name: sp("B"), HatchDate: sp("2026-10-01")},
	}, "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "B", got[1].Name)

	_, err = repo.ReplaceAll(ctx, other, []birdnest.Input{{ID: sp("1")}}, "")
	require.NoError(t, err, "ids are scoped per owner")

	before := birdnest.Version(got)

	_, err = repo.ReplaceAll(ctx, owner, []birdnest.Input{{ID: sp("dup")}, {ID: sp("dup")}}, "")
	assert.ErrorIs(t, err, ErrDuplicateNestID)

	_, err = repo.ReplaceAll(ctx, owner, []birdnest.Input{{HatchDate: sp("2026-13-40")}}, "")
	assert.ErrorIs(t, err, birdnest.ErrInvalidDate)

	_, err = repo.ReplaceAll(ctx, owner, nil, `"stale"`)
	assert.ErrorIs(t, err, birdnest.ErrVersionMismatch)

	after, err := repo.List(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, before, birdnest.Version(after), "failed syncs leave the stored set alone")

	cleared, err := repo.ReplaceAll(ctx, owner, []birdnest.Input{}, before)
	require.NoError(t, err)
	assert.Empty(t, cleared)

	otherNests, err := repo.List(ctx, other)
	require.NoError(t, err)
	assert.Len(t, otherNests, 1)
}

func TestBirdNests_ConcurrentSyncsAreNeverInterleaved(t *testing.T) {
	s := NewStore()
	repo := s.BirdNests()
	ctx := context.Background()
	owner := seedOwner(t, s)

	sets := make([][]birdnest.Input, 8)
	for i := range sets {
		for j := 0; j < 5; j++ {
			sets[i] = append(sets[i], birdnest.Input{ID: sp(fmt.Sprintf("%d-%d", i, j))})
		}
	}

	var wg sync.WaitGroup
	for _, set := range sets {
		wg.Add(1)
		go func(in []birdnest.Input) {
			defer wg.Done()
			_, _ = repo.ReplaceAll(ctx, owner, in, "")
		}(set)
	}
	wg.Wait()

	final, err := repo.List(ctx, owner)
	require.NoError(t, err)
	require.Len(t, final, 5)

	prefix := final[0].ID[:2]
	for i, n := range final {
		assert.Equal(t, fmt.Sprintf("%s%d", prefix, i), n.ID)
	}
}

func TestUsers_EmailUniqueness(t *testing.T) {
	s := NewStore()
	repo := s.Users()
	ctx := context.Background()

	_, err := repo.Create(ctx, user.User{ID: "1", Email: "A@Farm.com"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, user.User{ID: "2", Email: "a@farm.com "})
	assert.ErrorIs(t, err, user.ErrEmailTaken)

	_, err = repo.Create(ctx, user.User{ID: "3", Email: "b@farm.com"})
	require.NoError(t, err)

	_, err = repo.Update(ctx, "3", user.Changes{Email: sp("A@FARM.COM")})
	assert.ErrorIs(t, err, user.ErrEmailTaken)

	_, err = repo.Update(ctx, "missing", user.Changes{})
	assert.ErrorIs(t, err, user.ErrNotFound)
}
