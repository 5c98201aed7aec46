package api

import (
	"net/http" // HTTP status codes
	"strconv"  // Id parsing

	"feedback_system/internal/domain"     // Domain models
	"feedback_system/internal/forms"      // Form binding and validation
	"feedback_system/internal/middleware" // Ownership guard
	"feedback_system/internal/service"    // Feedback operations
	"feedback_system/internal/session"    // Session access
	"feedback_system/internal/store"      // Sentinel errors

	"github.com/gin-gonic/gin" // Gin web framework
	"github.com/pkg/errors"    // Error inspection
)

// AddFeedbackPageHandler shows the empty feedback form; guarded by middleware.OwnerOnly
func AddFeedbackPageHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		username := c.Param("username")
		renderFeedbackForm(c, http.StatusOK, "Add Feedback", addURL(username), username, forms.FeedbackForm{}, nil)
	}
}

// AddFeedbackHandler stores new feedback for the path user; guarded by middleware.OwnerOnly
func AddFeedbackHandler(feedback *service.FeedbackService) gin.HandlerFunc {
	return func(c *gin.Context) {
		username := c.Param("username")
		var form forms.FeedbackForm // Bind form to struct
		if errs := forms.Bind(c, &form); errs.Any() {
			renderFeedbackForm(c, http.StatusUnprocessableEntity, "Add Feedback", addURL(username), username, form, errs)
			return
		}
		_, err := feedback.Add(c.Request.Context(), username, form)
		if errors.Is(err, store.ErrNotFound) {
			notFound(c) // Owner no longer exists
			return
		}
		if err != nil {
			serverError(c, err)
			return
		}
		session.Default(c).AddFlash(session.Success, msgFeedbackNew)
		redirect(c, profileURL(username))
	}
}

// EditFeedbackPageHandler shows the feedback form pre-filled with the current values
func EditFeedbackPageHandler(feedback *service.FeedbackService) gin.HandlerFunc {
	return func(c *gin.Context) {
		fb, ok := loadOwnedFeedback(c, feedback)
		if !ok {
			return
		}
		form := forms.FeedbackForm{Title: fb.Title, Content: fb.Content}
		renderFeedbackForm(c, http.StatusOK, "Edit Feedback", updateURL(fb), fb.Username, form, nil)
	}
}

// UpdateFeedbackHandler overwrites title and content of owned feedback
func UpdateFeedbackHandler(feedback *service.FeedbackService) gin.HandlerFunc {
	return func(c *gin.Context) {
		fb, ok := loadOwnedFeedback(c, feedback)
		if !ok {
			return
		}
		var form forms.FeedbackForm // Bind form to struct
		if errs := forms.Bind(c, &form); errs.Any() {
			renderFeedbackForm(c, http.StatusUnprocessableEntity, "Edit Feedback", updateURL(fb), fb.Username, form, errs)
			return
		}
		err := feedback.Update(c.Request.Context(), fb, form)
		if errors.Is(err, store.ErrNotFound) {
			notFound(c) // Deleted concurrently
			return
		}
		if err != nil {
			serverError(c, err)
			return
		}
		session.Default(c).AddFlash(session.Success, msgFeedbackEdit)
		redirect(c, profileURL(fb.Username))
	}
}

// DeleteFeedbackHandler removes owned feedback
func DeleteFeedbackHandler(feedback *service.FeedbackService) gin.HandlerFunc {
	return func(c *gin.Context) {
		fb, ok := loadOwnedFeedback(c, feedback)
		if !ok {
			return
		}
		err := feedback.Delete(c.Request.Context(), fb)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			serverError(c, err)
			return
		}
		session.Default(c).AddFlash(session.Success, msgFeedbackGone)
		redirect(c, profileURL(fb.Username))
	}
}

// loadOwnedFeedback resolves :id and applies the ownership guard.
// A missing entry is reported as 404 before ownership is considered.
func loadOwnedFeedback(c *gin.Context, feedback *service.FeedbackService) (*domain.Feedback, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		notFound(c) // Not an id at all
		return nil, false
	}
	fb, err := feedback.Get(c.Request.Context(), uint(id))
	if errors.Is(err, store.ErrNotFound) {
		notFound(c)
		return nil, false
	}
	if err != nil {
		serverError(c, err)
		return nil, false
	}
	// Same guard as the /users/:username routes
	if !middleware.EnsureCorrectUser(c, fb.Username) {
		return nil, false
	}
	return fb, true
}

// renderFeedbackForm renders the add/edit form
func renderFeedbackForm(c *gin.Context, status int, title, action, owner string, form forms.FeedbackForm, errs forms.Errors) {
	if errs == nil {
		errs = forms.Errors{}
	}
	renderPage(c, status, "feedback_form.page.html", gin.H{
		"Title":  title,             // Page heading
		"Action": action,            // Form target
		"Cancel": profileURL(owner), // Back link
		"Form":   form,              // Current values
		"Errors": errs,              // Inline errors
	})
}

// addURL is the add-feedback form target for username
func addURL(username string) string {
	return profileURL(username) + "/feedback/add"
}

// updateURL is the edit form target for fb
func updateURL(fb *domain.Feedback) string {
	return "/feedback/" + strconv.FormatUint(uint64(fb.ID), 10) + "/update"
}
