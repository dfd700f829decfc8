package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/farmhub/internal/domain/post"
	"github.com/geocoder89/farmhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postSelect = `SELECT p.id, p.title, p.content, p.excerpt, p.status, p.image, p.category_id, p.created_at,
	c.name, c.parent_id, pc.name
FROM posts p
LEFT JOIN post_categories c ON c.id = p.category_id
LEFT JOIN post_categories pc ON pc.id = c.parent_id`

type PostsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewPostsRepo(pool *pgxpool.Pool, prom *observability.Prom) *PostsRepo {
	return &PostsRepo{pool: pool, prom: prom}
}

func scanPost(row pgx.Row) (post.Post, error) {
	var p post.Post
	err := row.Scan(
		&p.ID, &p.Title, &p.Content, &p.Excerpt, &p.Status, &p.Image, &p.CategoryID, &p.CreatedAt,
		&p.CategoryName, &p.ParentCategoryID, &p.ParentCategoryName,
	)
	return p, err
}

func (r *PostsRepo) List(ctx context.Context) ([]post.Post, error) {
	var rows pgx.Rows

	err := r.prom.ObserveDB("posts.list", func() error {
		var e error
		rows, e = r.pool.Query(ctx, postSelect+` ORDER BY p.created_at DESC, p.id ASC`)
		return e
	})
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	out := make([]post.Post, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostsRepo) GetByID(ctx context.Context, id string) (post.Post, error) {
	var p post.Post

	err := r.prom.ObserveDB("posts.get_by_id", func() error {
		var e error
		p, e = scanPost(r.pool.QueryRow(ctx, postSelect+` WHERE p.id = $1`, id))
		return e
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return post.Post{}, post.ErrNotFound
		}
		return post.Post{}, err
	}
	return p, nil
}

func (r *PostsRepo) Create(ctx context.Context, req post.CreateRequest) (post.Post, error) {
	p := post.NewFromCreateRequest(req)

	err := r.prom.ObserveDB("posts.create", func() error {
		_, e := r.pool.Exec(ctx,
			`INSERT INTO posts (id, title, content, excerpt, status, image, category_id, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			p.ID, p.Title, p.Content, p.Excerpt, p.Status, p.Image, p.CategoryID, p.CreatedAt,
		)
		return e
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return post.Post{}, post.ErrUnknownCategory
		}
		return post.Post{}, fmt.Errorf("insert post: %w", err)
	}

	return r.GetByID(ctx, p.ID)
}

func (r *PostsRepo) Update(ctx context.Context, id string, req post.UpdateRequest) (post.Post, error) {
	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return post.Post{}, err
	}

	next := post.ApplyUpdate(existing, req)

	var affected int64
	err = r.prom.ObserveDB("posts.update", func() error {
		tag, e := r.pool.Exec(ctx,
			`UPDATE posts
			SET title = $2, content = $3, excerpt = $4, status = $5, image = $6, category_id = $7
			WHERE id = $1`,
			id, next.Title, next.Content, next.Excerpt, next.Status, next.Image, next.CategoryID,
		)
		affected = tag.RowsAffected()
		return e
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return post.Post{}, post.ErrUnknownCategory
		}
		return post.Post{}, fmt.Errorf("update post: %w", err)
	}
	if affected == 0 {
		return post.Post{}, post.ErrNotFound
	}

	return r.GetByID(ctx, id)
}

func (r *PostsRepo) Delete(ctx context.Context, id string) error {
	var affected int64

	err := r.prom.ObserveDB("posts.delete", func() error {
		tag, e := r.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
		affected = tag.RowsAffected()
		return e
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return post.ErrNotFound
	}
	return nil
}
