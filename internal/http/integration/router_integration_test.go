package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/farmhub/internal/auth"
	"github.com/geocoder89/farmhub/internal/config"
	"github.com/geocoder89/farmhub/internal/domain/user"
	apphttp "github.com/geocoder89/farmhub/internal/http"
	"github.com/geocoder89/farmhub/internal/http/handlers"
	"github.com/geocoder89/farmhub/internal/http/middlewares"
	"github.com/geocoder89/farmhub/internal/observability"
	"github.com/geocoder89/farmhub/internal/repo/memory"
	"github.com/geocoder89/farmhub/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminEmail    = "admin@farm.com"
	adminPassword = "admin-pass-123"
)

func testConfig() config.Config {
	return config.Config{
		Env:            "test",
		APIBasePath:    "/api",
		JWTSecret:      "test-secret-key",
		MaxBodyBytes:   1 << 20,
		AuthRateLimit:  0,
		AuthRateWindow: time.Minute,
	}
}

type testApp struct {
	router *gin.Engine
	store  *memory.Store
}

func newTestApp(t *testing.T, cfg config.Config) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()

	hash, err := security.HashPassword(adminPassword)
	require.NoError(t, err)
	_, err = store.Users().Create(context.Background(), user.User{
		ID:           uuid.NewString(),
		Email:        adminEmail,
		PasswordHash: hash,
		Name:         "Admin",
		Role:         user.RoleAdmin,
		CreatedAt:    time.Now().UTC(),
	})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	deps := apphttp.Deps{
		Users:      store.Users(),
		Categories: store.Categories(),
		Posts:      store.Posts(),
		Products:   store.Products(),
		Orders:     store.Orders(),
		BirdNests:  store.BirdNests(),
		Tokens:     auth.NewManager(cfg.JWTSecret),
		Prom:       observability.NewProm(reg),
		Gatherer:   reg,
		RateStore:  middlewares.NewMemoryWindowStore(),
		Ready: map[string]handlers.Pinger{
			"store": func(context.Context) error { return nil },
		},
	}

	return &testApp{router: apphttp.NewRouter(logger, deps, cfg), store: store}
}

func (a *testApp) do(t *testing.T, method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}

func (a *testApp) adminToken(t *testing.T) string {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/auth/admin-login", "", map[string]string{
		"email":    adminEmail,
		"password": adminPassword,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode(t, w)["token"].(string)
}

func (a *testApp) register(t *testing.T, email string) string {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name":     "Grower",
		"email":    email,
		"password": "secret123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w)["token"].(string)
}

func TestAuthGate(t *testing.T) {
	app := newTestApp(t, testConfig())
	admin := app.adminToken(t)
	grower := app.register(t, "grower@farm.com")

	tests := []struct {
		name     string
		method   string
		path     string
		token    string
		wantCode int
		wantErr  string
	}{
		{"users list without token", http.MethodGet, "/api/users", "", http.StatusUnauthorized, handlers.CodeUnauthenticated},
		{"users list as user", http.MethodGet, "/api/users", grower, http.StatusForbidden, handlers.CodeForbidden},
		{"users list as admin", http.MethodGet, "/api/users", admin, http.StatusOK, ""},
		{"nests without token", http.MethodGet, "/api/bird-nests", "", http.StatusUnauthorized, handlers.CodeUnauthenticated},
		{"nests with garbage token", http.MethodGet, "/api/bird-nests", "not-a-jwt", http.StatusUnauthorized, handlers.CodeUnauthenticated},
		{"nests as user", http.MethodGet, "/api/bird-nests", grower, http.StatusOK, ""},
		{"public products", http.MethodGet, "/api/products", "", http.StatusOK, ""},
		{"public category tree", http.MethodGet, "/api/post-categories", "", http.StatusOK, ""},
		{"me", http.MethodGet, "/api/auth/me", grower, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := app.do(t, tt.method, tt.path, tt.token, nil)
			require.Equal(t, tt.wantCode, w.Code, w.Body.String())
			if tt.wantErr != "" {
				body := decode(t, w)
				assert.Equal(t, tt.wantErr, body["code"])
				assert.NotEmpty(t, body["requestId"])
			}
		})
	}
}

func TestAdminLogin_RejectsNonAdmin(t *testing.T) {
	app := newTestApp(t, testConfig())
	app.register(t, "grower@farm.com")

	w := app.do(t, http.MethodPost, "/api/auth/admin-login", "", map[string]string{
		"email":    "grower@farm.com",
		"password": "secret123",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = app.do(t, http.MethodPost, "/api/auth/admin-login", "", map[string]string{
		"email":    adminEmail,
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCategoryLifecycle(t *testing.T) {
	app := newTestApp(t, testConfig())
	admin := app.adminToken(t)

	create := func(name string, parent any) string {
		w := app.do(t, http.MethodPost, "/api/post-categories", admin, map[string]any{"name": name, "parentId": parent})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		return decode(t, w)["category"].(map[string]any)["id"].(string)
	}

	fruit := create("Fruit", nil)
	apple := create("Apple", fruit)
	gala := create("Gala", apple)

	// Fruit under its own grandchild
	w := app.do(t, http.MethodPut, "/api/post-categories/"+fruit, admin, map[string]any{"parentId": gala})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, handlers.CodeInvalidParent, decode(t, w)["code"])

	w = app.do(t, http.MethodPut, "/api/post-categories/"+apple, admin, map[string]any{"parentId": uuid.NewString()})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, handlers.CodeParentNotFound, decode(t, w)["code"])

	w = app.do(t, http.MethodDelete, "/api/post-categories/"+fruit, admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = app.do(t, http.MethodGet, "/api/post-categories", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)

	roots := body["categories"].([]any)
	require.Len(t, roots, 1)
	root := roots[0].(map[string]any)
	assert.Equal(t, apple, root["id"])
	assert.Nil(t, root["parentId"])
	children := root["children"].([]any)
	require.Len(t, children, 1)
	assert.Equal(t, gala, children[0].(map[string]any)["id"])
	assert.Len(t, body["flat"].([]any), 2)

	w = app.do(t, http.MethodDelete, "/api/post-categories/"+fruit, admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCategoryUpdate_MissingTargetWinsOverMalformedParent(t *testing.T) {
	app := newTestApp(t, testConfig())
	admin := app.adminToken(t)

	w := app.do(t, http.MethodPut, "/api/post-categories/"+uuid.NewString(), admin, map[string]any{"parentId": "not-a-uuid"})
	require.Equal(t, http.StatusNotFound, w.Code, w.Body.String())
	assert.Equal(t, handlers.CodeNotFound, decode(t, w)["code"])

	w = app.do(t, http.MethodPost, "/api/post-categories", admin, map[string]any{"name": "Seeds"})
	require.Equal(t, http.StatusOK, w.Code)
	seeds := decode(t, w)["category"].(map[string]any)["id"].(string)

	w = app.do(t, http.MethodPut, "/api/post-categories/"+seeds, admin, map[string]any{"parentId": "not-a-uuid"})
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Equal(t, handlers.CodeParentNotFound, decode(t, w)["code"])
}

func TestPostCategoryReference(t *testing.T) {
	app := newTestApp(t, testConfig())
	admin := app.adminToken(t)

	w := app.do(t, http.MethodPost, "/api/posts", admin, map[string]any{"title": "Hello", "categoryId": uuid.NewString()})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, handlers.CodeUnknownCategory, decode(t, w)["code"])

	w = app.do(t, http.MethodPost, "/api/post-categories", admin, map[string]any{"name": "News"})
	require.Equal(t, http.StatusOK, w.Code)
	news := decode(t, w)["category"].(map[string]any)["id"].(string)

	w = app.do(t, http.MethodPost, "/api/posts", admin, map[string]any{"title": "Hello", "categoryId": news})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	p := decode(t, w)["post"].(map[string]any)
	assert.Equal(t, "News", p["categoryName"])
	postID := p["id"].(string)

	require.Equal(t, http.StatusOK, app.do(t, http.MethodDelete, "/api/post-categories/"+news, admin, nil).Code)

	w = app.do(t, http.MethodGet, "/api/posts/"+postID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	p = decode(t, w)["post"].(map[string]any)
	assert.Nil(t, p["categoryId"])
	assert.Nil(t, p["categoryName"])
}

func TestBirdNestSync(t *testing.T) {
	app := newTestApp(t, testConfig())
	alice := app.register(t, "alice@farm.com")
	bob := app.register(t, "bob@farm.com")

	w := app.do(t, http.MethodGet, "/api/bird-nests", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	initial := w.Header().Get("ETag")
	require.NotEmpty(t, initial)

	w = app.do(t, http.MethodPut, "/api/bird-nests", alice, map[string]any{
		"nests": []map[string]any{
			{"id": "n1", "name": "Porch", "hatchDate": "2026-10-01"},
			{"name": "Shed"},
		},
	}, "If-Match", initial)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	nests := decode(t, w)["nests"].([]any)
	require.Len(t, nests, 2)
	assert.Equal(t, "n1", nests[0].(map[string]any)["id"])
	assert.NotNil(t, nests[0].(map[string]any)["progress"])

	// stale precondition
	w = app.do(t, http.MethodPut, "/api/bird-nests", alice, map[string]any{"nests": []any{}}, "If-Match", initial)
	require.Equal(t, http.StatusPreconditionFailed, w.Code)
	assert.Equal(t, handlers.CodeVersionMismatch, decode(t, w)["code"])

	w = app.do(t, http.MethodGet, "/api/bird-nests", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["nests"])

	w = app.do(t, http.MethodGet, "/api/bird-nests", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["nests"], 2)

	w = app.do(t, http.MethodPut, "/api/bird-nests", alice, map[string]any{"nests": []any{}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["nests"])
}

func TestBirdNestSync_RepeatedPutIsIdempotent(t *testing.T) {
	app := newTestApp(t, testConfig())
	grower := app.register(t, "grower@farm.com")

	body := map[string]any{
		"nests": []map[string]any{
			{"id": "porch", "name": "Porch", "hatchDate": "2026-10-01", "notes": "3 eggs"},
			{"id": "shed", "name": "Shed"},
		},
	}

	first := app.do(t, http.MethodPut, "/api/bird-nests", grower, body)
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	second := app.do(t, http.MethodPut, "/api/bird-nests", grower, body)
	require.Equal(t, http.StatusOK, second.Code, second.Body.String())

	assert.Equal(t, first.Header().Get("ETag"), second.Header().Get("ETag"))

	nestIDs := func(w *httptest.ResponseRecorder) []any {
		var ids []any
		for _, n := range decode(t, w)["nests"].([]any) {
			ids = append(ids, n.(map[string]any)["id"])
		}
		return ids
	}
	assert.Equal(t, nestIDs(first), nestIDs(second))
}

func TestBirdNestSync_DeletedAccountIsUnauthenticated(t *testing.T) {
	app := newTestApp(t, testConfig())
	admin := app.adminToken(t)
	grower := app.register(t, "grower@farm.com")

	w := app.do(t, http.MethodGet, "/api/auth/me", grower, nil)
	require.Equal(t, http.StatusOK, w.Code)
	id := decode(t, w)["user"].(map[string]any)["id"].(string)

	require.Equal(t, http.StatusOK, app.do(t, http.MethodDelete, "/api/users/"+id, admin, nil).Code)

	w = app.do(t, http.MethodPut, "/api/bird-nests", grower, map[string]any{"nests": []any{}})
	require.Equal(t, http.StatusUnauthorized, w.Code, w.Body.String())
	assert.Equal(t, handlers.CodeUnauthenticated, decode(t, w)["code"])
}

func TestGateRunsBeforeContentTypeCheck(t *testing.T) {
	app := newTestApp(t, testConfig())
	grower := app.register(t, "grower@farm.com")

	plain := func(path, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, path, bytes.NewBufferString("nests"))
		req.Header.Set("Content-Type", "text/plain")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		app.router.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusUnauthorized, plain("/api/bird-nests", "").Code)
	assert.Equal(t, http.StatusUnauthorized, plain("/api/products/"+uuid.NewString(), "").Code)
	assert.Equal(t, http.StatusForbidden, plain("/api/products/"+uuid.NewString(), grower).Code)
	assert.Equal(t, http.StatusUnsupportedMediaType, plain("/api/bird-nests", grower).Code)
}

func TestPublicOrderFlow(t *testing.T) {
	app := newTestApp(t, testConfig())
	admin := app.adminToken(t)

	w := app.do(t, http.MethodPost, "/api/orders/public", "", map[string]any{
		"customerName": "Lan",
		"phone":        "0900000000",
		"address":      "Hamlet 3",
		"items":        []map[string]any{{"name": "Eggs", "price": 2.5, "qty": 4}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	o := decode(t, w)["order"].(map[string]any)
	assert.InDelta(t, 10.0, o["total"], 0.001)

	w = app.do(t, http.MethodPost, "/api/orders/public", "", map[string]any{
		"customerName": "Lan",
		"phone":        "0900000000",
		"address":      "Hamlet 3",
		"items":        []any{},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, http.MethodGet, "/api/orders", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["orders"], 1)
}

func TestAuthRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.AuthRateLimit = 2
	app := newTestApp(t, cfg)

	creds := map[string]string{"email": "nobody@farm.com", "password": "whatever"}
	for i := 0; i < 2; i++ {
		w := app.do(t, http.MethodPost, "/api/auth/login", "", creds)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}

	w := app.do(t, http.MethodPost, "/api/auth/login", "", creds)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRouterEdges(t *testing.T) {
	app := newTestApp(t, testConfig())
	admin := app.adminToken(t)

	w := app.do(t, http.MethodGet, "/api/nope", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, handlers.CodeNotFound, decode(t, w)["code"])

	req := httptest.NewRequest(http.MethodPost, "/api/post-categories", bytes.NewBufferString("name=x"))
	req.Header.Set("Authorization", "Bearer "+admin)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	w = app.do(t, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodGet, "/docs/openapi.yaml", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
