package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is a readiness dependency such as the database pool or redis.
type Pinger func(ctx context.Context) error

type HealthHandler struct {
	deps map[string]Pinger
}

func NewHealthHandler(deps map[string]Pinger) *HealthHandler {
	return &HealthHandler{deps: deps}
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz pings every dependency and reports each one.
func (h *HealthHandler) Readyz(ctx *gin.Context) {
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), time.Second)
	defer cancel()

	names := make([]string, 0, len(h.deps))
	for name := range h.deps {
		names = append(names, name)
	}
	sort.Strings(names)

	checks := make(gin.H, len(names))
	ready := true
	for _, name := range names {
		if err := h.deps[name](cctx); err != nil {
			checks[name] = "down"
			ready = false
			continue
		}
		checks[name] = "up"
	}

	if !ready {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "checks": checks})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ready", "checks": checks})
}
