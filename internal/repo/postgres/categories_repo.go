package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/farmhub/internal/domain/category"
	"github.com/geocoder89/farmhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CategoriesRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewCategoriesRepo(pool *pgxpool.Pool, prom *observability.Prom) *CategoriesRepo {
	return &CategoriesRepo{pool: pool, prom: prom}
}

func scanCategories(rows pgx.Rows) ([]category.Category, error) {
	defer rows.Close()

	out := make([]category.Category, 0)
	for rows.Next() {
		var c category.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.ParentID, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CategoriesRepo) List(ctx context.Context) ([]category.Category, error) {
	var rows pgx.Rows

	err := r.prom.ObserveDB("categories.list", func() error {
		var e error
		rows, e = r.pool.Query(ctx,
			`SELECT id, name, parent_id, created_at
			FROM post_categories
			ORDER BY LOWER(name) ASC, id ASC`)
		return e
	})
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	return scanCategories(rows)
}

func (r *CategoriesRepo) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool

	err := r.prom.ObserveDB("categories.exists", func() error {
		return r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM post_categories WHERE id = $1)`, id).Scan(&exists)
	})

	return exists, err
}

func (r *CategoriesRepo) Create(ctx context.Context, req category.CreateRequest) (c category.Category, err error) {
	c, err = category.NewFromCreateRequest(req)
	if err != nil {
		return
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if c.ParentID != nil {
		// key-share lock keeps the parent alive until commit
		err = r.prom.ObserveDB("categories.create.parent_lock", func() error {
			var id string
			return tx.QueryRow(ctx, `SELECT id FROM post_categories WHERE id = $1 FOR KEY SHARE`, *c.ParentID).Scan(&id)
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				err = category.ErrParentNotFound
			}
			return
		}
	}

	err = r.prom.ObserveDB("categories.create.insert", func() error {
		_, e := tx.Exec(ctx,
			`INSERT INTO post_categories (id, name, parent_id, created_at) VALUES ($1,$2,$3,$4)`,
			c.ID, c.Name, c.ParentID, c.CreatedAt,
		)
		return e
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			err = category.ErrParentNotFound
		}
		return
	}

	err = tx.Commit(ctx)
	return
}

// Update renames and/or reparents a category. All category rows are locked
// for the duration of the ancestor walk, so two concurrent reparents are
// serialized and cannot jointly close a cycle.
func (r *CategoriesRepo) Update(ctx context.Context, id string, req category.UpdateRequest) (next category.Category, err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var rows pgx.Rows
	err = r.prom.ObserveDB("categories.update.lock_all", func() error {
		var e error
		rows, e = tx.Query(ctx, `SELECT id, name, parent_id, created_at FROM post_categories ORDER BY id FOR UPDATE`)
		return e
	})
	if err != nil {
		return
	}

	all, err := scanCategories(rows)
	if err != nil {
		return
	}

	var existing *category.Category
	for i := range all {
		if all[i].ID == id {
			existing = &all[i]
			break
		}
	}
	if existing == nil {
		err = category.ErrNotFound
		return
	}

	next, parentChanged := category.ApplyUpdate(*existing, req)
	if parentChanged {
		if err = category.CheckParent(id, next.ParentID, category.ParentIndex(all)); err != nil {
			return
		}
	}

	err = r.prom.ObserveDB("categories.update.write", func() error {
		_, e := tx.Exec(ctx,
			`UPDATE post_categories SET name = $2, parent_id = $3 WHERE id = $1`,
			id, next.Name, next.ParentID,
		)
		return e
	})
	if err != nil {
		return
	}

	err = tx.Commit(ctx)
	return
}

// Delete moves direct children to the root, detaches posts and removes the
// row, all or nothing.
func (r *CategoriesRepo) Delete(ctx context.Context, id string) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	err = r.prom.ObserveDB("categories.delete.lock", func() error {
		var got string
		return tx.QueryRow(ctx, `SELECT id FROM post_categories WHERE id = $1 FOR UPDATE`, id).Scan(&got)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = category.ErrNotFound
		}
		return
	}

	steps := []struct {
		op  string
		sql string
	}{
		{"categories.delete.reparent_children", `UPDATE post_categories SET parent_id = NULL WHERE parent_id = $1`},
		{"categories.delete.detach_posts", `UPDATE posts SET category_id = NULL WHERE category_id = $1`},
		{"categories.delete.remove", `DELETE FROM post_categories WHERE id = $1`},
	}

	for _, s := range steps {
		err = r.prom.ObserveDB(s.op, func() error {
			_, e := tx.Exec(ctx, s.sql, id)
			return e
		})
		if err != nil {
			err = fmt.Errorf("%s: %w", s.op, err)
			return
		}
	}

	err = tx.Commit(ctx)
	return
}
