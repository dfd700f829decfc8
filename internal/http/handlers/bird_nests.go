package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/farmhub/internal/actorctx"
	"github.com/geocoder89/farmhub/internal/domain/birdnest"
	"github.com/geocoder89/farmhub/internal/domain/user"
	"github.com/geocoder89/farmhub/internal/observability"
	"github.com/gin-gonic/gin"
)

type BirdNestsRepo interface {
	List(ctx context.Context, ownerID string) ([]birdnest.Nest, error)
	ReplaceAll(ctx context.Context, ownerID string, in []birdnest.Input, expectedVersion string) ([]birdnest.Nest, error)
}

type BirdNestsHandler struct {
	repo BirdNestsRepo
	prom *observability.Prom
	now  func() time.Time
}

func NewBirdNestsHandler(repo BirdNestsRepo, prom *observability.Prom) *BirdNestsHandler {
	return &BirdNestsHandler{repo: repo, prom: prom, now: time.Now}
}

func (h *BirdNestsHandler) respond(ctx *gin.Context, nests []birdnest.Nest) {
	version := birdnest.Version(nests)
	ctx.Header("ETag", version)

	if ctx.Request.Method == http.MethodGet && etagMatches(ctx.GetHeader("If-None-Match"), version) {
		ctx.Status(http.StatusNotModified)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"nests": birdnest.Views(nests, h.now())})
}

func (h *BirdNestsHandler) List(ctx *gin.Context) {
	owner, ok := actorctx.UserIDFrom(ctx.Request.Context())
	if !ok {
		RespondUnauthorized(ctx, CodeUnauthenticated, "Authentication required")
		return
	}

	cctx, cancel := opCtx(ctx, 3*time.Second)
	defer cancel()

	nests, err := h.repo.List(cctx, owner)
	if err != nil {
		RespondInternal(ctx, "Could not load bird nests", err)
		return
	}

	h.respond(ctx, nests)
}

// Replace swaps the caller's whole nest collection for the submitted one.
func (h *BirdNestsHandler) Replace(ctx *gin.Context) {
	owner, ok := actorctx.UserIDFrom(ctx.Request.Context())
	if !ok {
		RespondUnauthorized(ctx, CodeUnauthenticated, "Authentication required")
		return
	}

	var req birdnest.ReplaceRequest
	if !BindJSON(ctx, &req) {
		h.prom.IncNestSync("invalid")
		return
	}

	cctx, cancel := opCtx(ctx, 5*time.Second)
	defer cancel()

	stored, err := h.repo.ReplaceAll(cctx, owner, req.Nests, expectedVersion(ctx.GetHeader("If-Match")))
	if err != nil {
		switch {
		case errors.Is(err, birdnest.ErrInvalidDate):
			h.prom.IncNestSync("invalid")
			RespondBadRequest(ctx, CodeValidation, "hatchDate must be a date in YYYY-MM-DD format", nil)
		case errors.Is(err, birdnest.ErrVersionMismatch):
			h.prom.IncNestSync("conflict")
			RespondError(ctx, http.StatusPreconditionFailed, CodeVersionMismatch, "Bird nests changed since they were loaded", nil)
		case errors.Is(err, user.ErrNotFound):
			// token outlived its account
			h.prom.IncNestSync("unauthenticated")
			RespondUnauthorized(ctx, CodeUnauthenticated, "Authentication required")
		default:
			h.prom.IncNestSync("error")
			RespondInternal(ctx, "Could not save bird nests", err)
		}
		return
	}

	h.prom.IncNestSync("ok")
	h.respond(ctx, stored)
}
