package product

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const StatusAvailable = "available"

type Product struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Stock     int       `json:"stock"`
	Status    string    `json:"status"`
	Image     string    `json:"image"`
	CreatedAt time.Time `json:"createdAt"`
}

var ErrNotFound = errors.New("product not found")

type CreateRequest struct {
	Name   string  `json:"name" binding:"required,max=200"`
	Price  float64 `json:"price" binding:"min=0"`
	Stock  int     `json:"stock" binding:"min=0"`
	Status string  `json:"status" binding:"omitempty,max=32"`
	Image  string  `json:"image"`
}

type UpdateRequest struct {
	Name   *string  `json:"name" binding:"omitempty,min=1,max=200"`
	Price  *float64 `json:"price" binding:"omitempty,min=0"`
	Stock  *int     `json:"stock" binding:"omitempty,min=0"`
	Status *string  `json:"status" binding:"omitempty,max=32"`
	Image  *string  `json:"image"`
}

func NewFromCreateRequest(req CreateRequest) Product {
	status := req.Status
	if status == "" {
		status = StatusAvailable
	}
	return Product{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Price:     req.Price,
		Stock:     req.Stock,
		Status:    status,
		Image:     req.Image,
		CreatedAt: time.Now().UTC(),
	}
}

func ApplyUpdate(existing Product, req UpdateRequest) Product {
	next := existing
	if req.Name != nil {
		next.Name = *req.Name
	}
	if req.Price != nil {
		next.Price = *req.Price
	}
	if req.Stock != nil {
		next.Stock = *req.Stock
	}
	if req.Status != nil {
		next.Status = *req.Status
	}
	if req.Image != nil {
		next.Image = *req.Image
	}
	return next
}
