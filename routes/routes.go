package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"learnly/handlers"
	"learnly/middleware"
)

func SetupRouter() *gin.Engine {
	router := gin.Default()

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Learnly API is running",
			"time":    time.Now().Unix(),
		})
	})

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://127.0.0.1:3000", "http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Public routes (no auth required)
	router.POST("/api/signup", handlers.Signup)
	router.POST("/api/login", handlers.Login)
	router.POST("/api/forgot-password", handlers.ForgotPassword)
	router.POST("/api/reset-password", handlers.ResetPassword)

	router.GET("/api/posts", handlers.GetPosts)
	router.GET("/api/posts/:slug", handlers.GetPostBySlug)
	router.GET("/api/categories", handlers.GetCategories)

	// Public certificate verification, rate limited since it takes no auth
	verifyLimiter := middleware.NewIPRateLimiter(60, time.Minute)
	verify := router.Group("/api/certificates")
	verify.Use(middleware.RateLimitMiddleware(verifyLimiter))
	verify.GET("", handlers.SearchCertificates)
	verify.GET("/:uniqueId", handlers.GetCertificate)
	verify.GET("/:uniqueId/download", handlers.DownloadCertificate)

	// Protected routes group
	protected := router.Group("/api")
	protected.Use(middleware.JWTAuthMiddleware())

	protected.GET("/me", handlers.GetMyProfile)
	protected.GET("/me/certificates", handlers.GetMyCertificates)
	protected.PUT("/posts/complete/:postId", handlers.MarkPostComplete)

	// Authoring
	admin := protected.Group("")
	admin.Use(middleware.RequireAdmin())
	admin.POST("/posts", handlers.CreatePost)

	router.NoRoute(func(c *gin.Context) {
		if len(c.Request.URL.Path) >= 4 && c.Request.URL.Path[:4] == "/api" {
			c.JSON(404, gin.H{
				"error": "Endpoint not found",
				"path":  c.Request.URL.Path,
			})
			return
		}
		c.Next()
	})

	return router
}
