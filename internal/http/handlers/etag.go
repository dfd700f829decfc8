package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RespondJSONWithETag writes payload with a content hash ETag and answers 304
// when the client already holds it.
func RespondJSONWithETag(ctx *gin.Context, status int, payload any) {
	b, err := json.Marshal(payload)
	if err != nil {
		ctx.JSON(status, payload)
		return
	}

	sum := sha256.Sum256(b)
	etag := `"` + hex.EncodeToString(sum[:16]) + `"`
	ctx.Header("ETag", etag)

	if etagMatches(ctx.GetHeader("If-None-Match"), etag) {
		ctx.Status(http.StatusNotModified)
		return
	}

	ctx.Data(status, "application/json; charset=utf-8", b)
}

// etagMatches reports whether an If-None-Match / If-Match header lists
// current. "*" matches anything.
func etagMatches(headerValue, current string) bool {
	if strings.TrimSpace(headerValue) == "" || strings.TrimSpace(current) == "" {
		return false
	}

	if strings.TrimSpace(headerValue) == "*" {
		return true
	}

	current = normalizeETag(current)

	for _, part := range strings.Split(headerValue, ",") {
		if normalizeETag(part) == current {
			return true
		}
	}

	return false
}

func normalizeETag(raw string) string {
	v := strings.TrimSpace(raw)

	// weak validators like W/"abc" compare by their opaque part
	if strings.HasPrefix(v, "W/") {
		v = strings.TrimSpace(strings.TrimPrefix(v, "W/"))
	}

	return v
}

// expectedVersion reads If-Match as the version a write is conditioned on.
// An absent header or "*" means unconditional.
func expectedVersion(headerValue string) string {
	v := strings.TrimSpace(headerValue)
	if v == "" || v == "*" {
		return ""
	}

	// one version is meaningful; take the first listed
	first, _, _ := strings.Cut(v, ",")
	first = normalizeETag(first)
	if !strings.HasPrefix(first, `"`) {
		first = `"` + first + `"`
	}
	return first
}
