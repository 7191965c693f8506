package router

import (
	"context"
	"time"

	"github.com/P3chys/ustam-api/internal/config"
	"github.com/P3chys/ustam-api/internal/handlers"
	"github.com/P3chys/ustam-api/internal/metrics"
	"github.com/P3chys/ustam-api/internal/middleware"
	"github.com/P3chys/ustam-api/internal/models"
	"github.com/P3chys/ustam-api/internal/repository"
	"github.com/P3chys/ustam-api/internal/services"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps are the long-lived clients built by main. Storage, Search and
// RateLimiter may be nil when the backing service is unavailable.
type Deps struct {
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
	Storage     *services.StorageService
	Search      *services.SearchService
	Email       *services.EmailService
	RateLimiter *middleware.RateLimiter
}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func passthrough(c *gin.Context) {
	c.Next()
}

func Setup(db *gorm.DB, cfg *config.Config, deps Deps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// Initialize Services
	activityService := services.NewActivityService(db)
	mailer := services.NewMailer(db, deps.Email)

	var indexer services.CraftsmanIndexer
	if deps.Search != nil {
		indexer = deps.Search
	}

	quoteLogger := logger.Named("quotes")

	reviewService := services.NewReviewService(repository.NewGormStore(db), services.ReviewDeps{
		Indexer:  indexer,
		Activity: activityService,
		Notifier: mailer,
		Metrics:  deps.Metrics,
		Logger:   logger.Named("reviews"),
	})

	// Redis-backed middleware degrades to no-ops without Redis
	var revoker *middleware.TokenRevoker
	var revocations middleware.RevocationChecker
	var logoutRevoker handlers.TokenRevoker
	authLimit := gin.HandlerFunc(passthrough)
	reviewLimit := gin.HandlerFunc(passthrough)
	pingers := map[string]handlers.Pinger{"redis": nil}
	if rl := deps.RateLimiter; rl != nil {
		revoker = middleware.NewTokenRevoker(rl.Client())
		revocations = revoker
		logoutRevoker = revoker
		authLimit = rl.RateLimitByIP(cfg.RateLimitAuth, time.Hour)
		reviewLimit = rl.RateLimitByUser(cfg.RateLimitReviews, time.Hour)
		pingers["redis"] = redisPinger{client: rl.Client()}
	}

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	r := gin.New()
	r.Use(middleware.Recovery(logger), middleware.RequestLogger(logger), deps.Metrics.Middleware())

	// CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept-Language"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After", "X-RateLimit-Remaining"},
		AllowCredentials: true,
	}))

	r.GET("/health", handlers.HealthCheck(db, pingers))
	r.GET("/metrics", deps.Metrics.Handler())

	auth := middleware.AuthRequired(cfg, revocations)
	customerOnly := middleware.RoleRequired(models.RoleCustomer)
	craftsmanOnly := middleware.RoleRequired(models.RoleCraftsman)

	// API v1 routes
	api := r.Group("/api/v1")
	{
		// Public routes
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authLimit, handlers.Register(db, cfg, indexer))
			authGroup.POST("/login", authLimit, handlers.Login(db, cfg))
		}

		api.GET("/categories", handlers.ListCategories(db))
		api.GET("/categories/:slug", handlers.GetCategory(db))

		api.GET("/craftsmen", handlers.ListCraftsmen(db))
		api.GET("/craftsmen/search", handlers.SearchCraftsmen(deps.Search))
		api.GET("/craftsmen/:id", handlers.GetCraftsman(db))
		api.GET("/craftsmen/:id/avatar", handlers.GetAvatar(db, deps.Storage))
		api.GET("/craftsmen/:id/reviews", handlers.ListCraftsmanReviews(reviewService))
		api.GET("/craftsmen/:id/rating", handlers.GetRatingSummary(reviewService))

		api.GET("/reviews/:id", handlers.GetReview(reviewService))

		// Protected routes
		protected := api.Group("")
		protected.Use(auth)
		{
			// Auth
			protected.GET("/auth/me", handlers.GetCurrentUser(db))
			protected.POST("/auth/logout", handlers.Logout(logoutRevoker))

			// Craftsman profile
			protected.PUT("/craftsmen/me", craftsmanOnly, handlers.UpdateMyProfile(db, indexer))
			protected.POST("/craftsmen/me/avatar", craftsmanOnly, handlers.UploadAvatar(db, deps.Storage))

			// Quotes
			protected.POST("/quotes", customerOnly, handlers.CreateQuote(db, activityService, mailer, quoteLogger))
			protected.GET("/quotes", handlers.ListMyQuotes(db))
			protected.GET("/quotes/:id", handlers.GetQuote(db))
			protected.POST("/quotes/:id/cancel", handlers.TransitionQuote(db, models.QuoteCancelled, activityService, mailer, quoteLogger))
			protected.POST("/quotes/:id/accept", craftsmanOnly, handlers.TransitionQuote(db, models.QuoteAccepted, activityService, mailer, quoteLogger))
			protected.POST("/quotes/:id/reject", craftsmanOnly, handlers.TransitionQuote(db, models.QuoteRejected, activityService, mailer, quoteLogger))
			protected.POST("/quotes/:id/start", craftsmanOnly, handlers.TransitionQuote(db, models.QuoteInProgress, activityService, mailer, quoteLogger))
			protected.POST("/quotes/:id/complete", craftsmanOnly, handlers.TransitionQuote(db, models.QuoteCompleted, activityService, mailer, quoteLogger))

			// Messages
			protected.GET("/quotes/:id/messages", handlers.ListMessages(db))
			protected.POST("/quotes/:id/messages", handlers.SendMessage(db))

			// Payments
			protected.GET("/quotes/:id/payments", handlers.ListPayments(db))
			protected.POST("/quotes/:id/payments", customerOnly, handlers.CreatePayment(db))

			// Reviews
			protected.POST("/quotes/:id/reviews", customerOnly, reviewLimit, handlers.CreateReview(reviewService))
			protected.PUT("/reviews/:id", handlers.UpdateReview(reviewService))
			protected.DELETE("/reviews/:id", handlers.DeleteReview(reviewService))
		}

		// Admin routes
		admin := api.Group("/admin")
		admin.Use(auth, middleware.AdminRequired())
		{
			admin.POST("/categories", handlers.CreateCategory(db))
			admin.PUT("/categories/:id", handlers.UpdateCategory(db))
			admin.DELETE("/reviews/:id", handlers.DeleteReview(reviewService))
			admin.GET("/activities", handlers.GetRecentActivities(activityService))
			admin.POST("/craftsmen/:id/verify", handlers.VerifyCraftsman(db, indexer))
		}
	}

	return r
}
