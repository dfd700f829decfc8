package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/geocoder89/farmhub/internal/config"
	"github.com/geocoder89/farmhub/internal/db"
	"github.com/geocoder89/farmhub/internal/domain/birdnest"
	"github.com/geocoder89/farmhub/internal/domain/category"
	"github.com/geocoder89/farmhub/internal/domain/post"
	"github.com/geocoder89/farmhub/internal/domain/user"
	"github.com/geocoder89/farmhub/internal/repo/postgres"
	"github.com/geocoder89/farmhub/internal/security"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, db.Migrate(ctx, pool))

	_, err = pool.Exec(ctx, `TRUNCATE bird_nests, posts, post_categories, orders, products, users CASCADE`)
	require.NoError(t, err)

	return pool
}

func sp(s string) *string { return &s }

func seedUser(t *testing.T, repo *postgres.UsersRepo, email string) user.User {
	t.Helper()
	u, err := repo.Create(context.Background(), user.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: "x",
		Name:         "Test",
		Role:         user.RoleUser,
		CreatedAt:    time.Now().UTC(),
	})
	require.NoError(t, err)
	return u
}

func TestUsersRepo_EmailIsCaseInsensitiveUnique(t *testing.T) {
	pool := setupPool(t)
	repo := postgres.NewUsersRepo(pool, nil)
	ctx := context.Background()

	seedUser(t, repo, "Farmer@Example.com")

	_, err := repo.Create(ctx, user.User{ID: uuid.NewString(), Email: "farmer@example.COM", PasswordHash: "x", Role: user.RoleUser})
	assert.ErrorIs(t, err, user.ErrEmailTaken)

	got, err := repo.GetByEmail(ctx, "FARMER@example.com")
	require.NoError(t, err)
	assert.Equal(t, "farmer@example.com", got.Email)
}

func TestCategoriesRepo_TreeLifecycle(t *testing.T) {
	pool := setupPool(t)
	cats := postgres.NewCategoriesRepo(pool, nil)
	posts := postgres.NewPostsRepo(pool, nil)
	ctx := context.Background()

	fruit, err := cats.Create(ctx, category.CreateRequest{Name: "Fruit"})
	require.NoError(t, err)
	apple, err := cats.Create(ctx, category.CreateRequest{Name: "Apple", ParentID: &fruit.ID})
	require.NoError(t, err)
	gala, err := cats.Create(ctx, category.CreateRequest{Name: "Gala", ParentID: &apple.ID})
	require.NoError(t, err)

	_, err = cats.Create(ctx, category.CreateRequest{Name: "Ghost", ParentID: sp(uuid.NewString())})
	assert.ErrorIs(t, err, category.ErrParentNotFound)

	_, err = cats.Update(ctx, fruit.ID, category.UpdateRequest{ParentID: &gala.ID})
	assert.ErrorIs(t, err, category.ErrInvalidParent)

	_, err = cats.Update(ctx, uuid.NewString(), category.UpdateRequest{Name: sp("x")})
	assert.ErrorIs(t, err, category.ErrNotFound)

	p, err := posts.Create(ctx, post.CreateRequest{Title: "Pruning", CategoryID: &apple.ID})
	require.NoError(t, err)
	require.NotNil(t, p.ParentCategoryName)
	assert.Equal(t, "Fruit", *p.ParentCategoryName)

	require.NoError(t, cats.Delete(ctx, apple.ID))

	rows, err := cats.List(ctx)
	require.NoError(t, err)
	f := category.BuildTree(rows)
	require.Len(t, f.Tree, 2)
	assert.Equal(t, "Fruit", f.Tree[0].Name)
	assert.Equal(t, "Gala", f.Tree[1].Name)

	p, err = posts.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, p.CategoryID)

	assert.ErrorIs(t, cats.Delete(ctx, apple.ID), category.ErrNotFound)
}

func TestBirdNestsRepo_ReplaceAll(t *testing.T) {
	pool := setupPool(t)
	users := postgres.NewUsersRepo(pool, nil)
	nests := postgres.NewBirdNestsRepo(pool, nil)
	ctx := context.Background()

	owner := seedUser(t, users, "owner@example.com")

	stored, err := nests.ReplaceAll(ctx, owner.ID, []birdnest.Input{
		{ID: sp("n1"), Name: sp("A"), HatchDate: sp("2026-10-01")},
		{Name: sp("B")},
	}, "")
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "n1", stored[0].ID)
	assert.Equal(t, "2026-10-01", *stored[0].HatchDate)
	assert.Nil(t, stored[1].HatchDate)

	version := birdnest.Version(stored)

	_, err = nests.ReplaceAll(ctx, owner.ID, []birdnest.Input{{ID: sp("x")}, {ID: sp("x")}}, "")
	require.Error(t, err)

	after, err := nests.List(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, version, birdnest.Version(after), "failed sync leaves the previous set")

	_, err = nests.ReplaceAll(ctx, owner.ID, []birdnest.Input{}, `"stale"`)
	assert.ErrorIs(t, err, birdnest.ErrVersionMismatch)

	cleared, err := nests.ReplaceAll(ctx, owner.ID, []birdnest.Input{}, version)
	require.NoError(t, err)
	assert.Empty(t, cleared)
}

func TestBirdNestsRepo_ReplaceAllIsIdempotent(t *testing.T) {
	pool := setupPool(t)
	nests := postgres.NewBirdNestsRepo(pool, nil)
	ctx := context.Background()

	owner := seedUser(t, postgres.NewUsersRepo(pool, nil), "repeat@example.com")

	in := []birdnest.Input{
		{ID: sp("porch"), Name: sp("Porch"), HatchDate: sp("2026-10-01"), Notes: sp("3 eggs")},
		{ID: sp("shed"), Name: sp("Shed")},
	}

	first, err := nests.ReplaceAll(ctx, owner.ID, in, "")
	require.NoError(t, err)
	second, err := nests.ReplaceAll(ctx, owner.ID, in, "")
	require.NoError(t, err)

	assert.Equal(t, birdnest.Version(first), birdnest.Version(second))
	assert.Equal(t, first, second)
}

func TestBirdNestsRepo_ReplaceAllDeletedOwner(t *testing.T) {
	pool := setupPool(t)
	nests := postgres.NewBirdNestsRepo(pool, nil)

	_, err := nests.ReplaceAll(context.Background(), uuid.NewString(), []birdnest.Input{{ID: sp("1")}}, "")
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestEnsureAdminUser(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()

	cfg := config.Config{AdminEmail: "Admin@Farm.com", AdminName: "Administrator"}
	_, err := db.EnsureAdminUser(ctx, pool, cfg)
	assert.ErrorIs(t, err, db.ErrAdminPasswordMissing)

	cfg.AdminPassword = "first-pass"
	created, err := db.EnsureAdminUser(ctx, pool, cfg)
	require.NoError(t, err)
	assert.True(t, created)

	// an admin exists now, so nothing changes
	cfg.AdminPassword = "second-pass"
	created, err = db.EnsureAdminUser(ctx, pool, cfg)
	require.NoError(t, err)
	assert.False(t, created)

	u, err := postgres.NewUsersRepo(pool, nil).GetByEmail(ctx, "admin@farm.com")
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, u.Role)
	assert.NoError(t, security.CheckPassword(u.PasswordHash, "first-pass"))
}
