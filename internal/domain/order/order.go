package order

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

const StatusPending = "pending"

type Item struct {
	ID    string  `json:"id,omitempty"`
	Name  string  `json:"name,omitempty"`
	Price float64 `json:"price" binding:"min=0"`
	Qty   int     `json:"qty" binding:"min=0"`
	Image string  `json:"image,omitempty"`
}

type Order struct {
	ID           string    `json:"id"`
	Code         string    `json:"code"`
	CustomerName string    `json:"customerName"`
	Total        float64   `json:"total"`
	Date         time.Time `json:"date"`
	Status       string    `json:"status"`
	Phone        string    `json:"phone"`
	Address      string    `json:"address"`
	Items        []Item    `json:"items"`
	CreatedAt    time.Time `json:"createdAt"`
}

// CreateRequest is the admin form; everything but the customer is optional.
type CreateRequest struct {
	Code         string     `json:"code" binding:"max=64"`
	CustomerName string     `json:"customerName" binding:"required,max=200"`
	Total        float64    `json:"total" binding:"min=0"`
	Date         *time.Time `json:"date"`
	Status       string     `json:"status" binding:"omitempty,max=32"`
	Phone        string     `json:"phone" binding:"max=32"`
	Address      string     `json:"address" binding:"max=500"`
	Items        []Item     `json:"items" binding:"dive"`
}

// PublicRequest is a storefront checkout; the total is computed server side.
type PublicRequest struct {
	CustomerName string `json:"customerName" binding:"required,max=200"`
	Phone        string `json:"phone" binding:"required,max=32"`
	Address      string `json:"address" binding:"required,max=500"`
	Items        []Item `json:"items" binding:"required,min=1,dive"`
}

func NewCode(now time.Time) string {
	return fmt.Sprintf("DH-%d", now.UnixMilli())
}

// Total sums price*qty; a zero quantity counts as one unit.
func Total(items []Item) float64 {
	var sum float64
	for _, it := range items {
		qty := it.Qty
		if qty == 0 {
			qty = 1
		}
		sum += it.Price * float64(qty)
	}
	return math.Round(sum*100) / 100
}

func NewFromCreateRequest(req CreateRequest) Order {
	now := time.Now().UTC()

	o := Order{
		ID:           uuid.NewString(),
		Code:         req.Code,
		CustomerName: req.CustomerName,
		Total:        req.Total,
		Date:         now,
		Status:       req.Status,
		Phone:        req.Phone,
		Address:      req.Address,
		Items:        req.Items,
		CreatedAt:    now,
	}
	if o.Code == "" {
		o.Code = NewCode(now)
	}
	if req.Date != nil {
		o.Date = req.Date.UTC()
	}
	if o.Status == "" {
		o.Status = StatusPending
	}
	if o.Items == nil {
		o.Items = []Item{}
	}
	return o
}

func NewFromPublicRequest(req PublicRequest) Order {
	now := time.Now().UTC()
	return Order{
		ID:           uuid.NewString(),
		Code:         NewCode(now),
		CustomerName: req.CustomerName,
		Total:        Total(req.Items),
		Date:         now,
		Status:       StatusPending,
		Phone:        req.Phone,
		Address:      req.Address,
		Items:        req.Items,
		CreatedAt:    now,
	}
}
