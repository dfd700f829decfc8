package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/farmhub/internal/domain/user"
	"github.com/geocoder89/farmhub/internal/http/middlewares"
	"github.com/geocoder89/farmhub/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type UserStore interface {
	Create(ctx context.Context, u user.User) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
}

type TokenIssuer interface {
	IssueToken(u user.User) (string, error)
}

type AuthHandler struct {
	users UserStore
	jwt   TokenIssuer
}

func NewAuthHandler(users UserStore, jwt TokenIssuer) *AuthHandler {
	return &AuthHandler{users: users, jwt: jwt}
}

type authResponse struct {
	Token string      `json:"token"`
	User  user.Public `json:"user"`
}

func (h *AuthHandler) respondWithToken(ctx *gin.Context, status int, u user.User) {
	token, err := h.jwt.IssueToken(u)
	if err != nil {
		RespondInternal(ctx, "Could not issue token", err)
		return
	}

	ctx.JSON(status, authResponse{Token: token, User: user.Sanitize(u)})
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := opCtx(ctx, 3*time.Second)
	defer cancel()

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		RespondInternal(ctx, "Could not create account", err)
		return
	}

	u, err := h.users.Create(cctx, user.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		Role:         user.RoleUser,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			RespondConflict(ctx, "Email is already in use")
			return
		}
		RespondInternal(ctx, "Could not create account", err)
		return
	}

	h.respondWithToken(ctx, http.StatusCreated, u)
}

// authenticate resolves the credential pair. Unknown email and wrong password
// give the same answer.
func (h *AuthHandler) authenticate(ctx *gin.Context) (user.User, bool) {
	var req user.LoginRequest

	if !BindJSON(ctx, &req) {
		return user.User{}, false
	}

	cctx, cancel := opCtx(ctx, 2*time.Second)
	defer cancel()

	found, err := h.users.GetByEmail(cctx, req.Email)
	if err != nil && !errors.Is(err, user.ErrNotFound) {
		RespondInternal(ctx, "Could not sign in", err)
		return user.User{}, false
	}

	if err != nil || !security.VerifyCredential(req.Password, found.PasswordHash) {
		RespondUnauthorized(ctx, CodeInvalidCredential, "Email or password is incorrect")
		return user.User{}, false
	}

	return found, true
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	u, ok := h.authenticate(ctx)
	if !ok {
		return
	}

	h.respondWithToken(ctx, http.StatusOK, u)
}

// AdminLogin only signs in administrators. The role is checked after the
// password so the endpoint does not reveal which emails are admins.
func (h *AuthHandler) AdminLogin(ctx *gin.Context) {
	u, ok := h.authenticate(ctx)
	if !ok {
		return
	}

	if u.Role != user.RoleAdmin {
		RespondForbidden(ctx, "Administrator access required")
		return
	}

	h.respondWithToken(ctx, http.StatusOK, u)
}

func (h *AuthHandler) Me(ctx *gin.Context) {
	id, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, CodeUnauthenticated, "Authentication required")
		return
	}

	cctx, cancel := opCtx(ctx, 2*time.Second)
	defer cancel()

	u, err := h.users.GetByID(cctx, id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			// token outlived its account
			RespondUnauthorized(ctx, CodeUnauthenticated, "Authentication required")
			return
		}
		RespondInternal(ctx, "Could not load account", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": user.Sanitize(u)})
}
