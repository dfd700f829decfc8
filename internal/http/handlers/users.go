package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/farmhub/internal/domain/user"
	"github.com/geocoder89/farmhub/internal/http/middlewares"
	"github.com/geocoder89/farmhub/internal/security"
	"github.com/geocoder89/farmhub/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type UsersRepo interface {
	Create(ctx context.Context, u user.User) (user.User, error)
	List(ctx context.Context) ([]user.User, error)
	Update(ctx context.Context, id string, ch user.Changes) (user.User, error)
	Delete(ctx context.Context, id string) error
}

type UsersHandler struct {
	repo UsersRepo
}

func NewUsersHandler(repo UsersRepo) *UsersHandler {
	return &UsersHandler{repo: repo}
}

func (h *UsersHandler) List(ctx *gin.Context) {
	cctx, cancel := opCtx(ctx, 3*time.Second)
	defer cancel()

	users, err := h.repo.List(cctx)
	if err != nil {
		RespondInternal(ctx, "Could not list accounts", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"users": user.SanitizeAll(users)})
}

func (h *UsersHandler) Create(ctx *gin.Context) {
	var req user.CreateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	role := req.Role
	if role == "" {
		role = user.RoleUser
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		RespondInternal(ctx, "Could not create account", err)
		return
	}

	cctx, cancel := opCtx(ctx, 3*time.Second)
	defer cancel()

	u, err := h.repo.Create(cctx, user.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		h.respondWriteError(ctx, err, "Could not create account")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": user.Sanitize(u)})
}

func (h *UsersHandler) Update(ctx *gin.Context) {
	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "Account not found")
		return
	}

	var req user.UpdateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	ch := user.Changes{Name: req.Name, Email: req.Email, Role: req.Role}
	if req.Password != nil && *req.Password != "" {
		hash, err := security.HashPassword(*req.Password)
		if err != nil {
			RespondInternal(ctx, "Could not update account", err)
			return
		}
		ch.PasswordHash = &hash
	}

	h.apply(ctx, id, ch, "Could not update account")
}

func (h *UsersHandler) UpdateRole(ctx *gin.Context) {
	id := ctx.Param("id")
	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "Account not found")
		return
	}

	var req user.RoleRequest
	if !BindJSON(ctx, &req) {
		return
	}

	h.apply(ctx, id, user.Changes{Role: &req.Role}, "Could not update role")
}

func (h *UsersHandler) apply(ctx *gin.Context, id string, ch user.Changes, failMsg string) {
	cctx, cancel := opCtx(ctx, 3*time.Second)
	defer cancel()

	u, err := h.repo.Update(cctx, id, ch)
	if err != nil {
		h.respondWriteError(ctx, err, failMsg)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": user.Sanitize(u)})
}

func (h *UsersHandler) Delete(ctx *gin.Context) {
	id := ctx.Param("id")

	if self, _ := middlewares.UserIDFromContext(ctx); self == id {
		RespondBadRequest(ctx, CodeSelfDeletion, "You cannot delete your own account", nil)
		return
	}

	if !utils.IsUUID(id) {
		RespondNotFound(ctx, "Account not found")
		return
	}

	cctx, cancel := opCtx(ctx, 3*time.Second)
	defer cancel()

	if err := h.repo.Delete(cctx, id); err != nil {
		h.respondWriteError(ctx, err, "Could not delete account")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *UsersHandler) respondWriteError(ctx *gin.Context, err error, failMsg string) {
	switch {
	case errors.Is(err, user.ErrNotFound):
		RespondNotFound(ctx, "Account not found")
	case errors.Is(err, user.ErrEmailTaken):
		RespondConflict(ctx, "Email is already in use")
	default:
		RespondInternal(ctx, failMsg, err)
	}
}
