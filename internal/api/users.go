package api

import (
	"net/http" // HTTP status codes

	"feedback_system/internal/service" // Account operations
	"feedback_system/internal/session" // Session access
	"feedback_system/internal/store"   // Sentinel errors

	"github.com/gin-gonic/gin" // Gin web framework
	"github.com/pkg/errors"    // Error inspection
)

// ProfileHandler shows a user and the feedback it owns; guarded by middleware.OwnerOnly
func ProfileHandler(accounts *service.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, feedback, err := accounts.Profile(c.Request.Context(), c.Param("username"))
		if errors.Is(err, store.ErrNotFound) {
			notFound(c) // Session outlived the account
			return
		}
		if err != nil {
			serverError(c, err)
			return
		}
		renderPage(c, http.StatusOK, "profile.page.html", gin.H{
			"Title":    user.Username, // Page title
			"User":     user,          // Profile
			"Feedback": feedback,      // Owned feedback
		})
	}
}

// DeleteUserHandler removes the account with its feedback and logs out; guarded by middleware.OwnerOnly
func DeleteUserHandler(accounts *service.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := accounts.Delete(c.Request.Context(), c.Param("username"))
		if errors.Is(err, store.ErrNotFound) {
			notFound(c)
			return
		}
		if err != nil {
			serverError(c, err) // Transaction rolled back
			return
		}
		s := session.Default(c)
		s.ClearUsername()
		s.Renew()
		s.AddFlash(session.Success, msgUserDeleted)
		redirect(c, "/")
	}
}
