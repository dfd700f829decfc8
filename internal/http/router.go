package http

import (
	"fmt"
	"log/slog"

	"github.com/geocoder89/farmhub/internal/config"
	"github.com/geocoder89/farmhub/internal/domain/user"
	"github.com/geocoder89/farmhub/internal/http/handlers"
	"github.com/geocoder89/farmhub/internal/http/middlewares"
	"github.com/geocoder89/farmhub/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const serviceName = "farmhub"

type UsersStore interface {
	handlers.UserStore
	handlers.UsersRepo
}

type CategoriesStore interface {
	handlers.CategoriesRepo
	handlers.CategoryLookup
}

type Tokens interface {
	handlers.TokenIssuer
	middlewares.TokenVerifier
}

// Deps is everything the router needs. Postgres repos back it in production
// and the memory store in tests.
type Deps struct {
	Users      UsersStore
	Categories CategoriesStore
	Posts      handlers.PostsRepo
	Products   handlers.ProductsRepo
	Orders     handlers.OrdersRepo
	BirdNests  handlers.BirdNestsRepo
	Tokens     Tokens

	Prom     *observability.Prom
	Gatherer prometheus.Gatherer

	// RateStore backs the auth and checkout limiters; nil means in-process.
	RateStore middlewares.WindowStore
	Ready     map[string]handlers.Pinger
}

func NewRouter(log *slog.Logger, deps Deps, cfg config.Config) *gin.Engine {
	if cfg.Env != "dev" && cfg.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		handlers.RespondInternal(c, "Internal server error", fmt.Errorf("panic: %v", recovered))
	}))
	r.Use(otelgin.Middleware(serviceName))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders("/docs"))
	r.Use(middlewares.CORSMiddleware(cfg.CORSAllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(cfg.MaxBodyBytes))
	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}

	r.NoRoute(func(c *gin.Context) {
		handlers.RespondNotFound(c, "Route not found")
	})

	// probes, metrics and docs stay at the root
	health := handlers.NewHealthHandler(deps.Ready)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)

	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	r.GET("/docs", handlers.SwaggerUI("/docs/openapi.yaml"))
	r.GET("/docs/openapi.yaml", handlers.OpenAPISpec)

	rateStore := deps.RateStore
	if rateStore == nil {
		rateStore = middlewares.NewMemoryWindowStore()
	}
	authLimiter := middlewares.NewRateLimiter(rateStore, "auth", cfg.AuthRateLimit, cfg.AuthRateWindow)
	checkoutLimiter := middlewares.NewRateLimiter(rateStore, "checkout", cfg.AuthRateLimit, cfg.AuthRateWindow)

	gate := middlewares.NewAuthMiddleware(deps.Tokens, deps.Prom)
	// the content-type check runs after the gate so unauthenticated writes
	// get 401, not 415
	jsonOnly := middlewares.RequireJSON()
	requireAdmin := []gin.HandlerFunc{gate.RequireAuth(), gate.RequireRole(user.RoleAdmin), jsonOnly}

	api := r.Group(cfg.APIBasePath)

	api.GET("/health", health.Healthz)

	authH := handlers.NewAuthHandler(deps.Users, deps.Tokens)
	authGroup := api.Group("/auth")
	{
		limited := authLimiter.RateLimiterMiddleware(middlewares.KeyByIP)
		authGroup.POST("/register", limited, jsonOnly, authH.Register)
		authGroup.POST("/login", limited, jsonOnly, authH.Login)
		authGroup.POST("/admin-login", limited, jsonOnly, authH.AdminLogin)
		authGroup.GET("/me", gate.RequireAuth(), authH.Me)
	}

	productsH := handlers.NewProductsHandler(deps.Products)
	api.GET("/products", productsH.List)
	api.GET("/products/:id", productsH.Get)

	postsH := handlers.NewPostsHandler(deps.Posts, deps.Categories)
	api.GET("/posts", postsH.List)
	api.GET("/posts/:id", postsH.Get)

	categoriesH := handlers.NewCategoriesHandler(deps.Categories, deps.Prom)
	api.GET("/post-categories", categoriesH.List)

	ordersH := handlers.NewOrdersHandler(deps.Orders)
	api.POST("/orders/public", checkoutLimiter.RateLimiterMiddleware(middlewares.KeyByIP), jsonOnly, ordersH.CreatePublic)

	nestsH := handlers.NewBirdNestsHandler(deps.BirdNests, deps.Prom)
	nests := api.Group("/bird-nests", gate.RequireAuth(), jsonOnly)
	{
		nests.GET("", nestsH.List)
		nests.PUT("", nestsH.Replace)
	}

	admin := api.Group("", requireAdmin...)
	{
		admin.POST("/products", productsH.Create)
		admin.PUT("/products/:id", productsH.Update)
		admin.DELETE("/products/:id", productsH.Delete)

		admin.POST("/posts", postsH.Create)
		admin.PUT("/posts/:id", postsH.Update)
		admin.DELETE("/posts/:id", postsH.Delete)

		admin.POST("/post-categories", categoriesH.Create)
		admin.PUT("/post-categories/:id", categoriesH.Update)
		admin.DELETE("/post-categories/:id", categoriesH.Delete)

		usersH := handlers.NewUsersHandler(deps.Users)
		admin.GET("/users", usersH.List)
		admin.POST("/users", usersH.Create)
		admin.PUT("/users/:id", usersH.Update)
		admin.PUT("/users/:id/role", usersH.UpdateRole)
		admin.DELETE("/users/:id", usersH.Delete)

		admin.GET("/orders", ordersH.List)
		admin.POST("/orders", ordersH.Create)
	}

	return r
}
