package middleware

import (
	"net/http" // HTTP status codes

	"feedback_system/internal/session" // Session access

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging
)

// NotAuthorizedMessage is flashed when the ownership check fails
const NotAuthorizedMessage = "You are not authorized to access this page."

// EnsureCorrectUser checks that the session is authenticated as owner.
// On failure it flashes a warning, redirects to /login, aborts the chain and returns false.
func EnsureCorrectUser(c *gin.Context, owner string) bool {
	s := session.Default(c) // Session loaded by session.Middleware
	if current := s.Username(); current != "" && current == owner {
		return true // Owner matches, proceed
	}
	logrus.WithFields(logrus.Fields{
		"request_id": c.GetString(RequestIDKey), // Request ID
		"session":    s.Username(),              // Who asked
		"owner":      owner,                     // Who owns the resource
		"path":       c.Request.URL.Path,        // What was requested
	}).Warn("ownership check failed")
	s.AddFlash(session.Danger, NotAuthorizedMessage)
	if err := session.Save(c); err != nil {
		logrus.WithError(err).Error("failed to save session")
	}
	c.Redirect(http.StatusSeeOther, "/login")
	c.Abort()
	return false
}

// OwnerOnly guards routes whose :username path parameter must match the session
func OwnerOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !EnsureCorrectUser(c, c.Param("username")) {
			return // Already redirected
		}
		c.Next() // If owner, proceed to the next handler
	}
}

// NoStore keeps private pages out of browser and proxy caches
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
		c.Header("Pragma", "no-cache")
		c.Next()
	}
}
