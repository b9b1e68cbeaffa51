package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/geocoder89/civichub/internal/cache"
	"github.com/geocoder89/civichub/internal/domain/user"
	"github.com/geocoder89/civichub/internal/http/handlers"
	"github.com/geocoder89/civichub/internal/http/middlewares"
	"github.com/geocoder89/civichub/internal/observability"
	"github.com/geocoder89/civichub/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const (
	serviceName  = "civichub-api"
	jsonMaxBytes = 1 << 20
)

// Deps is everything the router needs. Stores are picked by the caller so
// the same routes run on postgres or in memory.
type Deps struct {
	Env string
	Log *slog.Logger

	Accounts   handlers.AccountService
	Activities handlers.ActivitiesStore
	Terms      handlers.TermsStore
	Documents  storage.DocumentStore
	Cache      cache.Store
	Tokens     middlewares.TokenVerifier

	// Ping backs /readyz; nil means always ready.
	Ping         func(ctx context.Context) error
	ShuttingDown func() bool

	Prom     *observability.Prom
	Gatherer prometheus.Gatherer

	CORSOrigins     []string
	UploadDir       string
	UploadMaxBytes  int64
	LoginRateLimit  int
	LoginRateWindow time.Duration
}

func NewRouter(d Deps) *gin.Engine {
	switch d.Env {
	case "dev":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(d.Log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.CORSOrigins))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}

	// health and metrics
	health := handlers.NewHealthHandler(d.Ping, d.ShuttingDown)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	// locally stored documents
	if d.UploadDir != "" {
		r.Static("/uploads", d.UploadDir)
	}

	authMW := middlewares.NewAuthMiddleware(d.Tokens)

	limitJSON := middlewares.MaxBodyBytes(jsonMaxBytes)
	requireJSON := middlewares.RequireJSON()
	limitUpload := middlewares.MaxBodyBytes(d.UploadMaxBytes + jsonMaxBytes)
	requireUpload := middlewares.RequireContentType("application/json", "multipart/form-data")

	loginLimiter := middlewares.NewRateLimiter(d.LoginRateLimit, d.LoginRateWindow)

	// users
	usersHandler := handlers.NewUsersHandler(d.Accounts)

	users := r.Group("/users")
	{
		users.POST("", limitJSON, requireJSON, authMW.OptionalAuth(), usersHandler.CreateUser)
		users.POST("/login", limitJSON, requireJSON, loginLimiter.RateLimiterMiddleware(middlewares.KeyByIP), usersHandler.Login)

		self := users.Group("/:id", authMW.RequireAuth(), authMW.RequireSelfOrRole("id", user.RoleAdmin))
		self.GET("", usersHandler.GetUser)
		self.PUT("", limitJSON, requireJSON, usersHandler.UpdateUser)
		self.DELETE("", usersHandler.DeleteUser)
	}

	// activities
	activitiesHandler := handlers.NewActivitiesHandler(d.Activities, d.Documents, d.Cache, d.UploadMaxBytes, d.Log)

	activities := r.Group("/activities")
	{
		activities.GET("", activitiesHandler.ListActivities)
		activities.GET("/:id", activitiesHandler.GetActivity)

		admin := activities.Group("", authMW.RequireAuth(), authMW.RequireRole(user.RoleAdmin))
		admin.POST("", limitUpload, requireUpload, activitiesHandler.CreateActivity)
		admin.PUT("/:id", limitUpload, requireUpload, activitiesHandler.UpdateActivity)
		admin.DELETE("/:id", activitiesHandler.DeleteActivity)
	}

	// terms
	termsHandler := handlers.NewTermsHandler(d.Terms)

	terms := r.Group("/terms")
	{
		terms.GET("", termsHandler.ListTerms)
		terms.GET("/:id", termsHandler.GetTerm)

		admin := terms.Group("", authMW.RequireAuth(), authMW.RequireRole(user.RoleAdmin))
		admin.POST("", limitJSON, requireJSON, termsHandler.CreateTerm)
	}

	return r
}
