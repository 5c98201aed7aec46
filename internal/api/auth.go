package api

import (
	"net/http" // HTTP status codes
	"net/url"  // Path escaping

	"feedback_system/internal/forms"      // Form binding and validation
	"feedback_system/internal/middleware" // Request ids
	"feedback_system/internal/service"    // Account operations
	"feedback_system/internal/session"    // Session access

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/pkg/errors"      // Error inspection
	"github.com/sirupsen/logrus" // Logging
)

// Messages flashed by the authentication handlers
const (
	msgRegistered   = "Registration successful!"
	msgLoggedIn     = "Login successful!"
	msgBadLogin     = "Invalid username or password."
	msgLoggedOut    = "You have been logged out successfully."
	msgUserDeleted  = "Your account has been deleted."
	msgFeedbackNew  = "Feedback added successfully."
	msgFeedbackEdit = "Feedback updated successfully."
	msgFeedbackGone = "Feedback deleted successfully."
)

// profileURL returns the profile path of username
func profileURL(username string) string {
	return "/users/" + url.PathEscape(username)
}

// HomeHandler sends visitors to the registration page
func HomeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		redirect(c, "/register")
	}
}

// RegisterPageHandler shows the empty registration form
func RegisterPageHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		renderPage(c, http.StatusOK, "register.page.html", gin.H{"Title": "Register", "Form": forms.RegisterForm{}})
	}
}

// RegisterHandler creates a user and logs the new user in
func RegisterHandler(accounts *service.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var form forms.RegisterForm // Bind form to struct
		// Re-render the form with inline errors when invalid
		if errs := forms.Bind(c, &form); errs.Any() {
			renderRegister(c, form, errs)
			return
		}
		user, err := accounts.Register(c.Request.Context(), form)
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			// Duplicate username or email lands here
			renderRegister(c, form, verr.Fields)
			return
		}
		if err != nil {
			serverError(c, err) // Nothing was persisted
			return
		}
		s := session.Default(c) // Establish the session
		s.Renew()
		s.SetUsername(user.Username)
		s.AddFlash(session.Success, msgRegistered)
		redirect(c, profileURL(user.Username))
	}
}

// renderRegister re-renders the registration form; the password is never echoed
func renderRegister(c *gin.Context, form forms.RegisterForm, errs forms.Errors) {
	form.Password = ""
	renderPage(c, http.StatusUnprocessableEntity, "register.page.html", gin.H{"Title": "Register", "Form": form, "Errors": errs})
}

// LoginPageHandler shows the empty login form
func LoginPageHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		renderPage(c, http.StatusOK, "login.page.html", gin.H{"Title": "Login", "Form": forms.LoginForm{}})
	}
}

// LoginHandler authenticates a user and establishes the session
func LoginHandler(accounts *service.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var form forms.LoginForm // Bind form to struct
		if errs := forms.Bind(c, &form); errs.Any() {
			form.Password = ""
			renderPage(c, http.StatusUnprocessableEntity, "login.page.html", gin.H{"Title": "Login", "Form": form, "Errors": errs})
			return
		}
		user, err := accounts.Authenticate(c.Request.Context(), form.Username, form.Password)
		if errors.Is(err, service.ErrInvalidCredentials) {
			// Same message whether the user is unknown or the password is wrong
			logrus.WithFields(logrus.Fields{
				"request_id": c.GetString(middleware.RequestIDKey), // Request ID
				"client_ip":  c.ClientIP(),                         // Caller
			}).Warn("Login failed")
			session.Default(c).AddFlash(session.Danger, msgBadLogin)
			form.Password = ""
			renderPage(c, http.StatusUnauthorized, "login.page.html", gin.H{"Title": "Login", "Form": form})
			return
		}
		if err != nil {
			serverError(c, err)
			return
		}
		s := session.Default(c)
		s.Renew() // Fresh session id on privilege change
		s.SetUsername(user.Username)
		s.AddFlash(session.Success, msgLoggedIn)
		redirect(c, profileURL(user.Username))
	}
}

// LogoutHandler forgets the authenticated user
func LogoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := session.Default(c)
		s.ClearUsername()
		s.Renew()
		s.AddFlash(session.Success, msgLoggedOut)
		redirect(c, "/")
	}
}
