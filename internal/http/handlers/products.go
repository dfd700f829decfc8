package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/farmhub/internal/domain/product"
	"github.com/geocoder89/farmhub/internal/utils"
	"github.com/gin-gonic/gin"
)

type ProductsRepo interface {
	List(ctx context.Context) ([]product.Product, error)
	GetByID(ctx context.Context, id string) (product.Product, error)
	Create(ctx context.Context, req product.CreateRequest) (product.Product, error)
	Update(ctx context.Context, id string, req product.UpdateRequest) (product.Product, error)
	Delete(ctx context.Context, id string) error
}

type ProductsHandler struct {
	repo ProductsRepo
}

func NewProductsHandler(repo ProductsRepo) *ProductsHandler {
	return &ProductsHandler{repo: repo}
}

func (h *ProductsHandler) List(ctx *gin.Context) {
	cctx, cancel := opCtx(ctx, 3*time.Second)
	defer cancel()

	products, err := h.repo.List(cctx)
	if err != nil {
		RespondInternal(ctx, "Could not load products", err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{"products": products})
}

func (h *ProductsHandler) Get(ctx *gin.Context) {
	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "Product not found")
		return
	}

	cctx, cancel := opCtx(ctx, 2*time.Second)
	defer cancel()

	p, err := h.repo.GetByID(cctx, id)
	if err != nil {
		h.respondError(ctx, err, "Could not load product")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{"product": p})
}

func (h *ProductsHandler) Create(ctx *gin.Context) {
	var req product.CreateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := opCtx(ctx, 3*time.Second)
	defer cancel()

	p, err := h.repo.Create(cctx, req)
	if err != nil {
		RespondInternal(ctx, "Could not create product", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"product": p})
}

func (h *ProductsHandler) Update(ctx *gin.Context) {
	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "Product not found")
		return
	}

	var req product.UpdateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := opCtx(ctx, 3*time.Second)
	defer cancel()

	p, err := h.repo.Update(cctx, id, req)
	if err != nil {
		h.respondError(ctx, err, "Could not update product")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"product": p})
}

func (h *ProductsHandler) Delete(ctx *gin.Context) {
	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "Product not found")
		return
	}

	cctx, cancel := opCtx(ctx, 3*time.Second)
	defer cancel()

	if err := h.repo.Delete(cctx, id); err != nil {
		h.respondError(ctx, err, "Could not delete product")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *ProductsHandler) respondError(ctx *gin.Context, err error, failMsg string) {
	if errors.Is(err, product.ErrNotFound) {
		RespondNotFound(ctx, "Product not found")
		return
	}
	RespondInternal(ctx, failMsg, err)
}
