package forms

import (
	"fmt"     // Message formatting
	"reflect" // Struct tag lookup
	"regexp"  // Username characters
	"strings" // Tag parsing
	"sync"    // One-time validator setup

	"github.com/gin-gonic/gin"               // Gin web framework
	"github.com/gin-gonic/gin/binding"       // Form binding
	"github.com/go-playground/validator/v10" // Field validation
)

// RegisterForm is the registration form
type RegisterForm struct {
	Username  string `form:"username" binding:"required,max=20,username"` // Username must be a valid path segment
	Password  string `form:"password" binding:"required"`                 // Password must be provided
	Email     string `form:"email" binding:"required,email,max=50"`       // Valid email must be provided
	FirstName string `form:"first_name" binding:"required,max=30"`        // First name must be provided
	LastName  string `form:"last_name" binding:"required,max=30"`         // Last name must be provided
}

// LoginForm is the login form
type LoginForm struct {
	Username string `form:"username" binding:"required"` // Username must be provided
	Password string `form:"password" binding:"required"` // Password must be provided
}

// FeedbackForm is used to add and edit feedback
type FeedbackForm struct {
	Title   string `form:"title" binding:"required,max=100"` // Title must be provided
	Content string `form:"content" binding:"required"`       // Content must be provided
}

// Errors maps a form field name to its message
type Errors map[string]string

// Add records msg for field, keeping the first message per field
func (e Errors) Add(field, msg string) {
	if _, ok := e[field]; !ok {
		e[field] = msg
	}
}

// Any reports whether there are errors
func (e Errors) Any() bool {
	return len(e) > 0
}

var (
	setup        sync.Once
	usernameChar = regexp.MustCompile(`^[A-Za-z0-9_-]+$`) // Safe in /users/{username}
)

// useFormNames reports field names by their form tag instead of the Go name
// and registers the custom rules
func useFormNames() {
	setup.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return usernameChar.MatchString(fl.Field().String())
		})
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
	})
}

// Bind decodes a submitted form into dst and validates it
func Bind(c *gin.Context, dst any) Errors {
	useFormNames()
	if err := c.ShouldBindWith(dst, binding.Form); err != nil {
		return translate(err)
	}
	return nil
}

// Validate runs the binding rules on an already populated form
func Validate(form any) Errors {
	useFormNames()
	if err := binding.Validator.ValidateStruct(form); err != nil {
		return translate(err)
	}
	return nil
}

// translate turns validator errors into per-field messages
func translate(err error) Errors {
	errs := Errors{}
	var verrs validator.ValidationErrors
	if !asValidationErrors(err, &verrs) {
		errs.Add("form", "The submitted form could not be read.")
		return errs
	}
	for _, fe := range verrs {
		errs.Add(fe.Field(), message(fe))
	}
	return errs
}

// asValidationErrors unwraps gin's slice wrapper when present
func asValidationErrors(err error, dst *validator.ValidationErrors) bool {
	switch e := err.(type) {
	case validator.ValidationErrors:
		*dst = e
		return true
	case binding.SliceValidationError:
		for _, inner := range e {
			if asValidationErrors(inner, dst) {
				return true
			}
		}
	}
	return false
}

// message renders the user facing text for one failed rule
func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Field cannot be longer than %s characters.", fe.Param())
	case "email":
		return "Invalid email address."
	case "username":
		return "Use only letters, digits, underscores and hyphens."
	}
	return "Invalid value."
}
