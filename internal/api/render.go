package api

import (
	"embed"         // Embedded templates
	"html/template" // HTML templates
	"io/fs"         // Template discovery
	"net/http"      // HTTP status codes
	"path"          // Template names

	"feedback_system/internal/forms"      // Form errors
	"feedback_system/internal/middleware" // Request ids
	"feedback_system/internal/session"    // Flashes and identity

	"github.com/gin-gonic/gin"        // Gin web framework
	"github.com/gin-gonic/gin/render" // Gin render interface
	"github.com/sirupsen/logrus"      // Logging
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutFile = "templates/base.layout.html" // Shared page skeleton

// fieldView is what the "input" partial renders
type fieldView struct {
	Name  string // Form field name
	Label string // Visible label
	Type  string // Input type
	Value string // Current value
	Error string // Validation message
}

var functions = template.FuncMap{
	"field": func(name, label, typ, value string, errs forms.Errors) fieldView {
		return fieldView{Name: name, Label: label, Type: typ, Value: value, Error: errs[name]}
	},
}

// pageRender renders "<page>.page.html" inside the base layout
type pageRender struct {
	pages map[string]*template.Template
}

// newPageRender parses every page together with the layout and partials
func newPageRender() (*pageRender, error) {
	pages, err := fs.Glob(templateFS, "templates/*.page.html")
	if err != nil {
		return nil, err
	}
	partials, err := fs.Glob(templateFS, "templates/*.partial.html")
	if err != nil {
		return nil, err
	}
	pr := &pageRender{pages: make(map[string]*template.Template, len(pages))}
	for _, page := range pages {
		files := append([]string{layoutFile, page}, partials...)
		ts, err := template.New(path.Base(page)).Funcs(functions).ParseFS(templateFS, files...)
		if err != nil {
			return nil, err
		}
		pr.pages[path.Base(page)] = ts
	}
	return pr, nil
}

// Instance implements render.HTMLRender
func (pr *pageRender) Instance(name string, data any) render.Render {
	return render.HTML{Template: pr.pages[name], Name: "base", Data: data}
}

// renderPage pops pending flashes, saves the session and renders page
func renderPage(c *gin.Context, status int, page string, data gin.H) {
	s := session.Default(c) // Per-request session
	if data == nil {
		data = gin.H{}
	}
	if _, ok := data["Errors"]; !ok {
		data["Errors"] = forms.Errors{} // Templates index into it unconditionally
	}
	data["Flashes"] = s.Flashes()                       // One-shot messages
	data["CurrentUser"] = s.Username()                  // Navigation state
	data["CSRFField"] = middleware.CSRFTemplateField(c) // Hidden token input
	if err := session.Save(c); err != nil {
		logrus.WithFields(logrus.Fields{
			"request_id": c.GetString(middleware.RequestIDKey), // Request ID
			"error":      err.Error(),                          // Error message
		}).Error("Failed to save session")
	}
	c.HTML(status, page, data)
}

// redirect saves the session so flashes survive, then sends 303 See Other
func redirect(c *gin.Context, location string) {
	if err := session.Save(c); err != nil {
		serverError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, location)
}

// notFound renders the 404 page
func notFound(c *gin.Context) {
	renderPage(c, http.StatusNotFound, "error.page.html", gin.H{
		"Title":   "Not Found",
		"Message": "The page you requested does not exist.",
	})
}

// forbidden renders the page shown when a form token is missing or stale
func forbidden(c *gin.Context) {
	renderPage(c, http.StatusForbidden, "error.page.html", gin.H{
		"Title":   "Forbidden",
		"Message": "The form has expired. Reload the page and try again.",
	})
}

// serverError logs err and renders a generic 500 page
func serverError(c *gin.Context, err error) {
	logrus.WithFields(logrus.Fields{
		"request_id": c.GetString(middleware.RequestIDKey), // Request ID
		"path":       c.Request.URL.Path,                   // Request path
		"error":      err.Error(),                          // Error message
	}).Error("Request failed")
	c.HTML(http.StatusInternalServerError, "error.page.html", gin.H{
		"Title":   "Server Error",
		"Message": "Something went wrong. Please try again later.",
		"Errors":  forms.Errors{},
	})
}
