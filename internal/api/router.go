package api

import (
	"net/http" // HTTP status codes

	"feedback_system/internal/middleware" // Custom middleware
	"feedback_system/internal/service"    // Business operations
	"feedback_system/internal/session"    // Session store

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/pkg/errors"      // Configuration errors
	"github.com/sirupsen/logrus" // Logging
	"gorm.io/gorm"               // GORM ORM library
)

// Deps are the collaborators the router needs
type Deps struct {
	DB             *gorm.DB                 // Used by the health check
	Accounts       *service.AccountService  // Registration, login, profiles
	Feedback       *service.FeedbackService // Feedback CRUD
	Sessions       session.Store            // Cookie or Redis sessions
	CSRFKey        []byte                   // 32-byte key signing the CSRF cookie
	SecureCookies  bool                     // Mark cookies HTTPS only
	TrustedProxies []string                 // Proxies allowed to set client IP headers
}

// NewRouter builds the gin engine with every route of the application
func NewRouter(deps Deps) (*gin.Engine, error) {
	if len(deps.CSRFKey) != 32 {
		return nil, errors.New("CSRF key must be 32 bytes")
	}
	pages, err := newPageRender() // Parse embedded templates once
	if err != nil {
		return nil, err
	}

	r := gin.New()                  // Gin router instance
	r.HTMLRender = pages            // Layout-aware renderer
	r.HandleMethodNotAllowed = true // 405 instead of 404 for wrong methods
	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies(deps.TrustedProxies); err != nil {
		return nil, err
	}

	r.Use(
		middleware.RequestID(),                                       // Tag every request
		middleware.Logger(),                                          // Structured access log
		gin.CustomRecovery(recovered),                                // Panics become 500 pages
		session.Middleware(deps.Sessions),                            // Load the session
		middleware.CSRF(deps.CSRFKey, deps.SecureCookies, forbidden), // Token on every POST
	)

	r.GET("/healthz", HealthHandler(deps.DB)) // Liveness probe

	// Public routes
	r.GET("/", HomeHandler())
	r.GET("/register", RegisterPageHandler())
	r.POST("/register", RegisterHandler(deps.Accounts))
	r.GET("/login", LoginPageHandler())
	r.POST("/login", LoginHandler(deps.Accounts))
	r.GET("/logout", LogoutHandler())

	// User routes (session must match :username)
	userGroup := r.Group("/users/:username", middleware.OwnerOnly(), middleware.NoStore())
	userGroup.GET("", ProfileHandler(deps.Accounts))                   // Profile endpoint
	userGroup.POST("/delete", DeleteUserHandler(deps.Accounts))        // Delete account endpoint
	userGroup.GET("/feedback/add", AddFeedbackPageHandler())           // Add feedback form
	userGroup.POST("/feedback/add", AddFeedbackHandler(deps.Feedback)) // Add feedback endpoint

	// Feedback routes (session must match the feedback owner, checked in the handler)
	feedbackGroup := r.Group("/feedback/:id", middleware.NoStore())
	feedbackGroup.GET("/update", EditFeedbackPageHandler(deps.Feedback)) // Edit feedback form
	feedbackGroup.POST("/update", UpdateFeedbackHandler(deps.Feedback))  // Update feedback endpoint
	feedbackGroup.POST("/delete", DeleteFeedbackHandler(deps.Feedback))  // Delete feedback endpoint

	r.NoRoute(notFound)
	r.NoMethod(func(c *gin.Context) {
		renderPage(c, http.StatusMethodNotAllowed, "error.page.html", gin.H{
			"Title":   "Method Not Allowed",
			"Message": "This page does not accept that request method.",
		})
	})
	return r, nil
}

// recovered turns a panic into the generic error page
func recovered(c *gin.Context, err any) {
	logrus.WithFields(logrus.Fields{
		"request_id": c.GetString(middleware.RequestIDKey), // Request ID
		"panic":      err,                                  // Recovered value
	}).Error("Handler panicked")
	c.HTML(http.StatusInternalServerError, "error.page.html", gin.H{
		"Title":   "Server Error",
		"Message": "Something went wrong. Please try again later.",
	})
	c.Abort()
}

// HealthHandler reports whether the database answers
func HealthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			logrus.WithError(err).Error("Health check failed")
			c.String(http.StatusServiceUnavailable, "unavailable")
			return
		}
		c.String(http.StatusOK, "ok")
	}
}
