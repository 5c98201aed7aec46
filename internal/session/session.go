// Package session keeps per-client state between requests: the
// authenticated username and one-shot flash messages.
package session

import (
	"context"  // Store calls carry the request context
	"net/http" // Cookies
	"time"     // Cookie lifetimes

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging
)

// Flash categories
const (
	Success = "success"
	Danger  = "danger"
)

const contextKey = "session" // gin context key

// Flash is a one-shot notice shown on the next rendered page
type Flash struct {
	Category string `json:"category"` // success or danger
	Message  string `json:"message"`  // User facing text
}

// Data is the serialized part of a session
type Data struct {
	Username string  `json:"username,omitempty"` // Authenticated username
	Flashes  []Flash `json:"flashes,omitempty"`  // Pending flash messages
}

// Session is the state of one client for the current request
type Session struct {
	ID       string // Server-side id; empty for cookie sessions
	data     Data
	modified bool   // Needs to be written back
	previous string // Id to discard after Renew
	store    Store
}

// Store loads and persists sessions
type Store interface {
	Load(ctx context.Context, r *http.Request) (*Session, error)
	Save(ctx context.Context, w http.ResponseWriter, s *Session) error
}

// CookieOptions are shared by the cookie-carrying stores
type CookieOptions struct {
	Name   string        // Cookie name
	TTL    time.Duration // Session lifetime
	Secure bool          // Send only over HTTPS
}

// Username returns the authenticated username, or "" when anonymous
func (s *Session) Username() string {
	return s.data.Username
}

// SetUsername marks the session as authenticated
func (s *Session) SetUsername(username string) {
	s.data.Username = username
	s.modified = true
}

// ClearUsername logs the session out, keeping pending flashes
func (s *Session) ClearUsername() {
	s.data.Username = ""
	s.modified = true
}

// AddFlash queues a message for the next rendered page
func (s *Session) AddFlash(category, message string) {
	s.data.Flashes = append(s.data.Flashes, Flash{Category: category, Message: message})
	s.modified = true
}

// Flashes pops all queued messages
func (s *Session) Flashes() []Flash {
	flashes := s.data.Flashes
	if len(flashes) > 0 {
		s.data.Flashes = nil
		s.modified = true
	}
	return flashes
}

// Renew asks the store to issue a fresh id, used when privileges change
func (s *Session) Renew() {
	if s.ID != "" && s.previous == "" {
		s.previous = s.ID
	}
	s.modified = true
}

// Modified reports whether the session must be written back
func (s *Session) Modified() bool {
	return s.modified
}

// empty reports whether there is nothing worth persisting
func (s *Session) empty() bool {
	return s.data.Username == "" && len(s.data.Flashes) == 0
}

// Middleware loads the session for every request and stores it in the gin context
func Middleware(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := store.Load(c.Request.Context(), c.Request)
		if err != nil {
			// A broken session is treated as anonymous
			logrus.WithError(err).Warn("failed to load session")
			s = &Session{}
		}
		s.store = store
		c.Set(contextKey, s)
		c.Next()
	}
}

// Default returns the session loaded by Middleware
func Default(c *gin.Context) *Session {
	return c.MustGet(contextKey).(*Session)
}

// Save writes the session back if it changed; call before writing the response
func Save(c *gin.Context) error {
	s := Default(c)
	if !s.modified || s.store == nil {
		return nil
	}
	if err := s.store.Save(c.Request.Context(), c.Writer, s); err != nil {
		return err
	}
	s.modified = false
	s.previous = ""
	return nil
}

// setCookie writes the session cookie
func setCookie(w http.ResponseWriter, opts CookieOptions, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     opts.Name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(opts.TTL.Seconds()),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearCookie expires the session cookie
func clearCookie(w http.ResponseWriter, opts CookieOptions) {
	http.SetCookie(w, &http.Cookie{
		Name:     opts.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
