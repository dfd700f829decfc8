package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/farmhub/internal/domain/category"
	"github.com/geocoder89/farmhub/internal/observability"
	"github.com/geocoder89/farmhub/internal/utils"
	"github.com/gin-gonic/gin"
)

type CategoriesRepo interface {
	List(ctx context.Context) ([]category.Category, error)
	Create(ctx context.Context, req category.CreateRequest) (category.Category, error)
	Update(ctx context.Context, id string, req category.UpdateRequest) (category.Category, error)
	Delete(ctx context.Context, id string) error
}

type CategoriesHandler struct {
	repo CategoriesRepo
	prom *observability.Prom
}

func NewCategoriesHandler(repo CategoriesRepo, prom *observability.Prom) *CategoriesHandler {
	return &CategoriesHandler{repo: repo, prom: prom}
}

// List returns the forest and the flat list built from one read.
func (h *CategoriesHandler) List(ctx *gin.Context) {
	cctx, cancel := opCtx(ctx, 3*time.Second)
	defer cancel()

	rows, err := h.repo.List(cctx)
	if err != nil {
		RespondInternal(ctx, "Could not load categories", err)
		return
	}

	ctx.JSON(http.StatusOK, category.BuildTree(rows))
}

// a parent id that is not a UUID cannot name an existing row
func malformedParent(p *string) bool {
	if p == nil {
		return false
	}
	v := strings.TrimSpace(*p)
	return v != "" && !utils.IsUUID(v)
}

func (h *CategoriesHandler) Create(ctx *gin.Context) {
	var req category.CreateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	if malformedParent(req.ParentID) {
		h.respondWriteError(ctx, "create", category.ErrParentNotFound, "")
		return
	}

	cctx, cancel := opCtx(ctx, 3*time.Second)
	defer cancel()

	c, err := h.repo.Create(cctx, req)
	if err != nil {
		h.respondWriteError(ctx, "create", err, "Could not create category")
		return
	}

	h.prom.IncCategoryMutation("create", "ok")
	ctx.JSON(http.StatusOK, gin.H{"category": c})
}

func (h *CategoriesHandler) Update(ctx *gin.Context) {
	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		h.respondWriteError(ctx, "update", category.ErrNotFound, "")
		return
	}

	var req category.UpdateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	// a malformed parentId goes to the repo, which reports a missing target
	// before looking the parent up

	cctx, cancel := opCtx(ctx, 5*time.Second)
	defer cancel()

	c, err := h.repo.Update(cctx, id, req)
	if err != nil {
		h.respondWriteError(ctx, "update", err, "Could not update category")
		return
	}

	h.prom.IncCategoryMutation("update", "ok")
	ctx.JSON(http.StatusOK, gin.H{"category": c})
}

func (h *CategoriesHandler) Delete(ctx *gin.Context) {
	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		h.respondWriteError(ctx, "delete", category.ErrNotFound, "")
		return
	}

	cctx, cancel := opCtx(ctx, 5*time.Second)
	defer cancel()

	if err := h.repo.Delete(cctx, id); err != nil {
		h.respondWriteError(ctx, "delete", err, "Could not delete category")
		return
	}

	h.prom.IncCategoryMutation("delete", "ok")
	ctx.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *CategoriesHandler) respondWriteError(ctx *gin.Context, op string, err error, failMsg string) {
	switch {
	case errors.Is(err, category.ErrNotFound):
		h.prom.IncCategoryMutation(op, "not_found")
		RespondNotFound(ctx, "Category not found")
	case errors.Is(err, category.ErrEmptyName):
		h.prom.IncCategoryMutation(op, "invalid")
		RespondBadRequest(ctx, CodeValidation, "Category name is required", nil)
	case errors.Is(err, category.ErrParentNotFound):
		h.prom.IncCategoryMutation(op, "invalid")
		RespondBadRequest(ctx, CodeParentNotFound, "Parent category does not exist", nil)
	case errors.Is(err, category.ErrInvalidParent):
		h.prom.IncCategoryMutation(op, "invalid")
		RespondBadRequest(ctx, CodeInvalidParent, "Invalid parent category", nil)
	default:
		h.prom.IncCategoryMutation(op, "error")
		RespondInternal(ctx, failMsg, err)
	}
}
