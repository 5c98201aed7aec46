package middleware

import (
	"context"       // Carries the gin context through gorilla/csrf
	"html/template" // Hidden field markup
	"net/http"      // Handler adapter

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/gorilla/csrf"    // Token issue and verification
	"github.com/sirupsen/logrus" // Logging
)

// CSRFField is the form field carrying the token
const CSRFField = "csrf_token"

type ginContextKey struct{}

// CSRF requires a valid token on every POST. Rejected requests are passed
// to onFailure, which writes the response.
func CSRF(key []byte, secure bool, onFailure gin.HandlerFunc) gin.HandlerFunc {
	reject := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		c := r.Context().Value(ginContextKey{}).(*gin.Context)
		c.Request = r // Keeps the fresh token for the error page
		logrus.WithFields(logrus.Fields{
			"request_id": c.GetString(RequestIDKey), // Request ID
			"path":       r.URL.Path,                // Request path
			"reason":     csrf.FailureReason(r),     // Why the token was refused
		}).Warn("CSRF check failed")
		onFailure(c)
		c.Abort()
	})
	protect := csrf.Protect(key,
		csrf.FieldName(CSRFField),           // Hidden form field
		csrf.Path("/"),                      // One token cookie for the whole site
		csrf.Secure(secure),                 // HTTPS only in production
		csrf.HttpOnly(true),                 // Not readable from scripts
		csrf.SameSite(csrf.SameSiteLaxMode), // Same policy as the session cookie
		csrf.ErrorHandler(reject),
	)
	next := protect(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		c := r.Context().Value(ginContextKey{}).(*gin.Context)
		c.Request = r // Request now carries the masked token
		c.Next()
	}))
	return func(c *gin.Context) {
		r := c.Request.WithContext(context.WithValue(c.Request.Context(), ginContextKey{}, c))
		if !secure {
			r = csrf.PlaintextHTTPRequest(r) // Plain HTTP: no Referer check
		}
		next.ServeHTTP(c.Writer, r)
	}
}

// CSRFTemplateField returns the hidden input for the current request
func CSRFTemplateField(c *gin.Context) template.HTML {
	return csrf.TemplateField(c.Request)
}
