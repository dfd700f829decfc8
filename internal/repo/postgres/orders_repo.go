package postgres

import (
	"context"
	"fmt"

	"github.com/geocoder89/farmhub/internal/domain/order"
	"github.com/geocoder89/farmhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OrdersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewOrdersRepo(pool *pgxpool.Pool, prom *observability.Prom) *OrdersRepo {
	return &OrdersRepo{pool: pool, prom: prom}
}

func (r *OrdersRepo) List(ctx context.Context) ([]order.Order, error) {
	var rows pgx.Rows

	err := r.prom.ObserveDB("orders.list", func() error {
		var e error
		rows, e = r.pool.Query(ctx,
			`SELECT id, code, customer_name, total, date, status, phone, address, items, created_at
			FROM orders
			ORDER BY date DESC, id ASC`)
		return e
	})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	out := make([]order.Order, 0)
	for rows.Next() {
		var o order.Order
		err := rows.Scan(&o.ID, &o.Code, &o.CustomerName, &o.Total, &o.Date, &o.Status, &o.Phone, &o.Address, &o.Items, &o.CreatedAt)
		if err != nil {
			return nil, err
		}
		if o.Items == nil {
			o.Items = []order.Item{}
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *OrdersRepo) Create(ctx context.Context, o order.Order) (order.Order, error) {
	err := r.prom.ObserveDB("orders.create", func() error {
		_, e := r.pool.Exec(ctx,
			`INSERT INTO orders (id, code, customer_name, total, date, status, phone, address, items, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			o.ID, o.Code, o.CustomerName, o.Total, o.Date, o.Status, o.Phone, o.Address, o.Items, o.CreatedAt,
		)
		return e
	})
	if err != nil {
		return order.Order{}, fmt.Errorf("insert order: %w", err)
	}
	return o, nil
}
