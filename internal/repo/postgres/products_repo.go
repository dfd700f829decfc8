package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/farmhub/internal/domain/product"
	"github.com/geocoder89/farmhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const productColumns = `id, name, price, stock, status, image, created_at`

type ProductsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewProductsRepo(pool *pgxpool.Pool, prom *observability.Prom) *ProductsRepo {
	return &ProductsRepo{pool: pool, prom: prom}
}

func scanProduct(row pgx.Row) (product.Product, error) {
	var p product.Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.Status, &p.Image, &p.CreatedAt)
	return p, err
}

func (r *ProductsRepo) List(ctx context.Context) ([]product.Product, error) {
	var rows pgx.Rows

	err := r.prom.ObserveDB("products.list", func() error {
		var e error
		rows, e = r.pool.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at DESC, id ASC`)
		return e
	})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	out := make([]product.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *ProductsRepo) GetByID(ctx context.Context, id string) (product.Product, error) {
	var p product.Product

	err := r.prom.ObserveDB("products.get_by_id", func() error {
		var e error
		p, e = scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
		return e
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return product.Product{}, product.ErrNotFound
		}
		return product.Product{}, err
	}
	return p, nil
}

func (r *ProductsRepo) Create(ctx context.Context, req product.CreateRequest) (product.Product, error) {
	p := product.NewFromCreateRequest(req)

	err := r.prom.ObserveDB("products.create", func() error {
		_, e := r.pool.Exec(ctx,
			`INSERT INTO products (id, name, price, stock, status, image, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			p.ID, p.Name, p.Price, p.Stock, p.Status, p.Image, p.CreatedAt,
		)
		return e
	})
	if err != nil {
		return product.Product{}, fmt.Errorf("insert product: %w", err)
	}
	return p, nil
}

func (r *ProductsRepo) Update(ctx context.Context, id string, req product.UpdateRequest) (product.Product, error) {
	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return product.Product{}, err
	}

	next := product.ApplyUpdate(existing, req)

	var p product.Product
	err = r.prom.ObserveDB("products.update", func() error {
		var e error
		p, e = scanProduct(r.pool.QueryRow(ctx,
			`UPDATE products
			SET name = $2, price = $3, stock = $4, status = $5, image = $6
			WHERE id = $1
			RETURNING `+productColumns,
			id, next.Name, next.Price, next.Stock, next.Status, next.Image,
		))
		return e
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return product.Product{}, product.ErrNotFound
		}
		return product.Product{}, fmt.Errorf("update product: %w", err)
	}
	return p, nil
}

func (r *ProductsRepo) Delete(ctx context.Context, id string) error {
	var affected int64

	err := r.prom.ObserveDB("products.delete", func() error {
		tag, e := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
		affected = tag.RowsAffected()
		return e
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return product.ErrNotFound
	}
	return nil
}
