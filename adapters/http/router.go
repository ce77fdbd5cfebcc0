package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/khoahotran/filmila/internal/application/service"
	"github.com/khoahotran/filmila/internal/domain/user"
	"github.com/khoahotran/filmila/pkg/auth"
	"github.com/khoahotran/filmila/pkg/logger"
)

type RouterDeps struct {
	AuthHandler     *AuthHandler
	FilmHandler     *FilmHandler
	PurchaseHandler *PurchaseHandler
	WebhookHandler  *WebhookHandler
	FeedHandler     *FeedHandler
	JWTService      *auth.JWTService
	Revocations     service.RevocationStore
	// AuthLimiter throttles /api/auth; nil disables it.
	AuthLimiter RateLimiter
	Logger      logger.Logger
}

func NewRouter(d RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(d.Logger))
	router.Use(ErrorMiddleware(d.Logger))

	authMiddleware := AuthMiddleware(d.JWTService, d.Revocations, d.Logger)
	optionalAuth := OptionalAuthMiddleware(d.JWTService, d.Revocations, d.Logger)

	api := router.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "UP"}) })

		authGroup := api.Group("/auth")
		if d.AuthLimiter != nil {
			authGroup.Use(RateLimitMiddleware(d.AuthLimiter))
		}
		{
			authGroup.POST("/register", d.AuthHandler.Register)
			authGroup.POST("/login", d.AuthHandler.Login)
			authGroup.POST("/logout", authMiddleware, d.AuthHandler.Logout)
			authGroup.POST("/logout-all", authMiddleware, d.AuthHandler.LogoutAll)
		}

		api.POST("/webhooks/stripe", d.WebhookHandler.Stripe)
		api.GET("/feeds/releases.rss", d.FeedHandler.ReleasesRSS)

		films := api.Group("/films")
		{
			films.GET("", d.FilmHandler.ListFilms)
			films.GET("/:id", optionalAuth, d.FilmHandler.GetFilm)
			films.POST("", authMiddleware, RequireRole(user.RoleFilmmaker), d.FilmHandler.UploadFilm)
			films.POST("/:id/publish", authMiddleware, RequireRole(user.RoleFilmmaker), d.FilmHandler.PublishFilm)

			films.POST("/:id/purchase", authMiddleware, d.PurchaseHandler.RequestPurchase)
			films.GET("/:id/access", authMiddleware, d.PurchaseHandler.CheckAccess)
			films.GET("/:id/stream", authMiddleware, d.PurchaseHandler.StreamContent)
		}

		private := api.Group("/")
		private.Use(authMiddleware)
		{
			private.GET("/me", d.AuthHandler.Me)
			private.GET("/me/films", RequireRole(user.RoleFilmmaker), d.FilmHandler.ListMyFilms)
			private.GET("/me/purchases", d.PurchaseHandler.ListMyPurchases)
			private.GET("/purchases/:id", d.PurchaseHandler.GetPurchase)
		}
	}

	return router
}
