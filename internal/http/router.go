package http

import (
	"log/slog"

	"github.com/geocoder89/userhub/internal/config"
	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/http/handlers"
	"github.com/geocoder89/userhub/internal/http/middlewares"
	"github.com/geocoder89/userhub/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// AuthService issues tokens at login and verifies them on every request.
type AuthService interface {
	handlers.Authenticator
	middlewares.TokenVerifier
}

type Deps struct {
	Log    *slog.Logger
	Config config.Config

	Users handlers.UserService
	Auth  AuthService
	Store handlers.Pinger

	Prom     *observability.Prom
	Gatherer prometheus.Gatherer

	// Limiter throttles POST /auth/login. Nil means an in-memory limiter
	// sized from Config.
	Limiter middlewares.Limiter
}

func NewRouter(d Deps) *gin.Engine {
	if d.Config.Env != "dev" && d.Config.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.NoRoute(noRoute)
	r.NoMethod(noMethod)

	// middleware

	r.Use(middlewares.RequestID())
	r.Use(Recovery())
	if d.Config.Tracer.Endpoint != "" {
		r.Use(otelgin.Middleware(d.Config.Tracer.ServiceName))
	}
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.RequestLogger())
	r.Use(middlewares.SecurityHeaders(d.Config.IsProduction()))
	r.Use(middlewares.CORSMiddleware(d.Config.HTTP.CORSOrigins))
	if d.Config.HTTP.MaxBodyBytes > 0 {
		r.Use(middlewares.MaxBodyBytes(d.Config.HTTP.MaxBodyBytes))
	}

	// health
	h := handlers.NewHealthHandler(d.Store)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	// docs
	r.GET("/docs", handlers.SwaggerUI)
	r.GET("/docs/openapi.yaml", handlers.OpenAPISpec)

	limiter := d.Limiter
	if limiter == nil {
		limiter = middlewares.NewRateLimiter(d.Config.HTTP.LoginRateLimit, d.Config.HTTP.LoginRateWindow)
	}

	authMW := middlewares.NewAuthMiddleware(d.Auth)
	authHandler := handlers.NewAuthHandler(d.Auth, d.Prom)
	usersHandler := handlers.NewUsersHandler(d.Users)

	// auth
	authGroup := r.Group("/auth")
	authGroup.POST("/login",
		middlewares.RateLimit(limiter, middlewares.KeyByIP, d.Prom.ObserveRateLimited),
		middlewares.RequireJSON(),
		authHandler.Login,
	)
	authGroup.GET("/dashboard", authMW.RequireAuth(), authHandler.Dashboard)

	// users: reading a single user needs any identity, everything else is Admin only
	users := r.Group("/users", authMW.RequireAuth())
	users.GET("/:id", usersHandler.Get)

	admin := users.Group("", middlewares.RequireRole(user.RoleAdmin))
	admin.GET("", usersHandler.ListAll)
	admin.GET("/paged", usersHandler.Paged)
	admin.POST("/search", usersHandler.Search)
	admin.POST("", middlewares.RequireJSON(), usersHandler.Create)
	admin.PUT("/:id", middlewares.RequireJSON(), usersHandler.Update)
	admin.DELETE("/:id", usersHandler.Delete)

	return r
}
