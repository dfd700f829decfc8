package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/geocoder89/farmhub/internal/domain/order"
	"github.com/gin-gonic/gin"
)

type OrdersRepo interface {
	List(ctx context.Context) ([]order.Order, error)
	Create(ctx context.Context, o order.Order) (order.Order, error)
}

type OrdersHandler struct {
	repo OrdersRepo
}

func NewOrdersHandler(repo OrdersRepo) *OrdersHandler {
	return &OrdersHandler{repo: repo}
}

func (h *OrdersHandler) List(ctx *gin.Context) {
	cctx, cancel := opCtx(ctx, 3*time.Second)
	defer cancel()

	orders, err := h.repo.List(cctx)
	if err != nil {
		RespondInternal(ctx, "Could not load orders", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *OrdersHandler) Create(ctx *gin.Context) {
	var req order.CreateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	h.save(ctx, order.NewFromCreateRequest(req))
}

// CreatePublic is the storefront checkout; the total is recomputed from the
// submitted items.
func (h *OrdersHandler) CreatePublic(ctx *gin.Context) {
	var req order.PublicRequest
	if !BindJSON(ctx, &req) {
		return
	}

	h.save(ctx, order.NewFromPublicRequest(req))
}

func (h *OrdersHandler) save(ctx *gin.Context, o order.Order) {
	cctx, cancel := opCtx(ctx, 3*time.Second)
	defer cancel()

	saved, err := h.repo.Create(cctx, o)
	if err != nil {
		RespondInternal(ctx, "Could not save order", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"order": saved})
}
