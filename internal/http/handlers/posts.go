package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/farmhub/internal/domain/post"
	"github.com/geocoder89/farmhub/internal/utils"
	"github.com/gin-gonic/gin"
)

type PostsRepo interface {
	List(ctx context.Context) ([]post.Post, error)
	GetByID(ctx context.Context, id string) (post.Post, error)
	Create(ctx context.Context, req post.CreateRequest) (post.Post, error)
	Update(ctx context.Context, id string, req post.UpdateRequest) (post.Post, error)
	Delete(ctx context.Context, id string) error
}

// CategoryLookup is the category tree's existence check.
type CategoryLookup interface {
	Exists(ctx context.Context, id string) (bool, error)
}

type PostsHandler struct {
	repo       PostsRepo
	categories CategoryLookup
}

func NewPostsHandler(repo PostsRepo, categories CategoryLookup) *PostsHandler {
	return &PostsHandler{repo: repo, categories: categories}
}

func (h *PostsHandler) List(ctx *gin.Context) {
	cctx, cancel := opCtx(ctx, 3*time.Second)
	defer cancel()

	posts, err := h.repo.List(cctx)
	if err != nil {
		RespondInternal(ctx, "Could not load posts", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"posts": posts})
}

func (h *PostsHandler) Get(ctx *gin.Context) {
	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "Post not found")
		return
	}

	cctx, cancel := opCtx(ctx, 2*time.Second)
	defer cancel()

	p, err := h.repo.GetByID(cctx, id)
	if err != nil {
		h.respondError(ctx, err, "Could not load post")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"post": p})
}

// checkCategory answers false after writing the response when id names no
// category. A nil or blank id is always fine.
func (h *PostsHandler) checkCategory(cctx context.Context, ctx *gin.Context, id *string) bool {
	if id == nil || strings.TrimSpace(*id) == "" {
		return true
	}

	v := strings.TrimSpace(*id)
	if !utils.IsUUID(v) {
		h.respondError(ctx, post.ErrUnknownCategory, "")
		return false
	}

	ok, err := h.categories.Exists(cctx, v)
	if err != nil {
		RespondInternal(ctx, "Could not check category", err)
		return false
	}
	if !ok {
		h.respondError(ctx, post.ErrUnknownCategory, "")
		return false
	}
	return true
}

func (h *PostsHandler) Create(ctx *gin.Context) {
	var req post.CreateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := opCtx(ctx, 3*time.Second)
	defer cancel()

	if !h.checkCategory(cctx, ctx, req.CategoryID) {
		return
	}

	p, err := h.repo.Create(cctx, req)
	if err != nil {
		h.respondError(ctx, err, "Could not create post")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"post": p})
}

func (h *PostsHandler) Update(ctx *gin.Context) {
	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "Post not found")
		return
	}

	var req post.UpdateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := opCtx(ctx, 3*time.Second)
	defer cancel()

	if !h.checkCategory(cctx, ctx, req.CategoryID) {
		return
	}

	p, err := h.repo.Update(cctx, id, req)
	if err != nil {
		h.respondError(ctx, err, "Could not update post")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"post": p})
}

func (h *PostsHandler) Delete(ctx *gin.Context) {
	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "Post not found")
		return
	}

	cctx, cancel := opCtx(ctx, 3*time.Second)
	defer cancel()

	if err := h.repo.Delete(cctx, id); err != nil {
		h.respondError(ctx, err, "Could not delete post")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *PostsHandler) respondError(ctx *gin.Context, err error, failMsg string) {
	switch {
	case errors.Is(err, post.ErrNotFound):
		RespondNotFound(ctx, "Post not found")
	case errors.Is(err, post.ErrUnknownCategory):
		RespondBadRequest(ctx, CodeUnknownCategory, "Category does not exist", nil)
	default:
		RespondInternal(ctx, failMsg, err)
	}
}
