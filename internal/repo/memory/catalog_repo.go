package memory

import (
	"context"
	"sort"

	"github.com/geocoder89/farmhub/internal/domain/order"
	"github.com/geocoder89/farmhub/internal/domain/product"
)

type ProductsRepo struct {
	s *Store
}

func (r *ProductsRepo) List(_ context.Context) ([]product.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]product.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *ProductsRepo) GetByID(_ context.Context, id string) (product.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.products[id]
	if !ok {
		return product.Product{}, product.ErrNotFound
	}
	return p, nil
}

func (r *ProductsRepo) Create(_ context.Context, req product.CreateRequest) (product.Product, error) {
	p := product.NewFromCreateRequest(req)

	r.s.mu.Lock()
	r.s.products[p.ID] = p
	r.s.mu.Unlock()

	return p, nil
}

func (r *ProductsRepo) Update(_ context.Context, id string, req product.UpdateRequest) (product.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.products[id]
	if !ok {
		return product.Product{}, product.ErrNotFound
	}
	next := product.ApplyUpdate(existing, req)
	r.s.products[id] = next
	return next, nil
}

func (r *ProductsRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.products[id]; !ok {
		return product.ErrNotFound
	}
	delete(r.s.products, id)
	return nil
}

type OrdersRepo struct {
	s *Store
}

func (r *OrdersRepo) List(_ context.Context) ([]order.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]order.Order, len(r.s.orders))
	copy(out, r.s.orders)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (r *OrdersRepo) Create(_ context.Context, o order.Order) (order.Order, error) {
	r.s.mu.Lock()
	r.s.orders = append(r.s.orders, o)
	r.s.mu.Unlock()

	return o, nil
}
