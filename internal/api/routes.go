package api

import (
	"net/http"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"readu-app-go/internal/core"
	"readu-app-go/internal/middleware"
)

// SetupRoutes wires all HTTP routes to their handlers. Global middleware
// (request id, logging, recovery, CORS) is expected to be attached to the
// router by the caller before this runs.
func SetupRoutes(
	router *gin.Engine,
	logger *zap.Logger,
	authClient *auth.Client,
	userService core.UserService,
	billingService core.BillingService,
	auditService core.AuditService,
) {
	authMW := middleware.NewAuthMiddleware(authClient, logger)

	authHandler := NewAuthHandler(userService, auditService, logger)
	userHandler := NewUserHandler(userService, logger)
	billingHandler := NewBillingHandler(billingService, logger)
	catalogHandler := NewCatalogHandler(logger)

	// Payment-relay endpoints live at the root, matching the client's
	// expectation of POST {baseURL}/paymentsheet. The webhook is public;
	// Stripe authenticates via its signature header.
	router.POST("/paymentsheet", billingHandler.CreatePaymentSheet)
	router.POST("/webhook", billingHandler.HandleWebhook)

	apiV1 := router.Group("/api/v1")
	{
		userGroup := apiV1.Group("/users")
		{
			// Called after a client-side sign-in or sign-up so the backend
			// profile exists before any authenticated feature is used.
			userGroup.POST("/initialize", authMW.VerifyToken(), authHandler.InitializeUserProfile)
			userGroup.GET("/me", authMW.VerifyToken(), userHandler.GetCurrentUserProfile)
		}

		// The catalog is bundled, immutable data; no auth required.
		coursesGroup := apiV1.Group("/courses")
		{
			coursesGroup.GET("", catalogHandler.ListCourses)
			coursesGroup.GET("/:courseId", catalogHandler.GetCourse)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "message": "READU payment relay is healthy."})
	})

	logger.Info("API routes configured", zap.Strings("public", []string{"/paymentsheet", "/webhook", "/api/v1/courses", "/health"}))
}
