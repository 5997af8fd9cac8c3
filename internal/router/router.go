package router

import (
	"github.com/aminimarket/marketplace-backend/config"
	"github.com/aminimarket/marketplace-backend/internal/app/controller"
	"github.com/aminimarket/marketplace-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

type Router struct {
	authController     *controller.AuthController
	merchantController *controller.MerchantController
	documentController *controller.DocumentController
	queueController    *controller.QueueController
	uploadController   *controller.UploadController
	authMiddleware     *middleware.AuthMiddleware
	config             *config.Config
}

func NewRouter(
	authController *controller.AuthController,
	merchantController *controller.MerchantController,
	documentController *controller.DocumentController,
	queueController *controller.QueueController,
	uploadController *controller.UploadController,
	authMiddleware *middleware.AuthMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		authController:     authController,
		merchantController: merchantController,
		documentController: documentController,
		queueController:    queueController,
		uploadController:   uploadController,
		authMiddleware:     authMiddleware,
		config:             cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"message": "Amini Market API is running",
		})
	})

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/login", r.authController.Login)
			auth.GET("/me", r.authMiddleware.Authenticate(), r.authController.GetMe)
		}

		merchants := v1.Group("/merchants")
		{
			// token-gated, no admin session needed
			merchants.POST("/account-setup", r.merchantController.SetupAccount)

			merchants.GET("",
				r.authMiddleware.Authenticate(),
				r.merchantController.ListMerchants,
			)
			merchants.GET("/:id",
				r.authMiddleware.Authenticate(),
				r.merchantController.GetMerchant,
			)
			merchants.POST("",
				r.authMiddleware.Authenticate(),
				r.authMiddleware.RequireRole("admin", "operator"),
				r.merchantController.CreateMerchant,
			)
			merchants.POST("/batch",
				r.authMiddleware.Authenticate(),
				r.authMiddleware.RequireRole("admin", "operator"),
				r.merchantController.CreateMerchantsBatch,
			)

			merchants.GET("/:id/documents",
				r.authMiddleware.Authenticate(),
				r.documentController.GetDocuments,
			)
			merchants.POST("/:id/documents",
				r.authMiddleware.Authenticate(),
				r.documentController.SubmitDocument,
			)
			merchants.POST("/:id/review",
				r.authMiddleware.Authenticate(),
				r.authMiddleware.RequireRole("admin"),
				r.documentController.Decide,
			)
			merchants.POST("/:id/reopen",
				r.authMiddleware.Authenticate(),
				r.authMiddleware.RequireRole("admin"),
				r.documentController.Reopen,
			)
		}

		queue := v1.Group("/credential-queue")
		queue.Use(r.authMiddleware.Authenticate())
		{
			queue.GET("", r.queueController.Status)
			queue.POST("/dispatch",
				r.authMiddleware.RequireRole("admin", "operator"),
				r.queueController.Dispatch,
			)
			queue.DELETE("",
				r.authMiddleware.RequireRole("admin"),
				r.queueController.Discard,
			)
		}

		upload := v1.Group("/upload")
		upload.Use(r.authMiddleware.Authenticate())
		{
			upload.POST("/documents", r.uploadController.PresignDocument)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
