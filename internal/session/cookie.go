package session

import (
	"context"  // Store interface
	"net/http" // Cookies
	"time"     // Token expiry

	"github.com/golang-jwt/jwt/v5" // JWT library
	"github.com/pkg/errors"        // Error wrapping
)

// cookieClaims carries the session data inside a signed token
type cookieClaims struct {
	Data                 // Session values
	jwt.RegisteredClaims // Standard JWT claims
}

// CookieStore keeps the whole session in an HS256-signed cookie
type CookieStore struct {
	secret []byte
	opts   CookieOptions
}

// NewCookieStore creates a CookieStore signing with secret
func NewCookieStore(secret string, opts CookieOptions) *CookieStore {
	if opts.Name == "" {
		opts.Name = "session"
	}
	return &CookieStore{secret: []byte(secret), opts: opts}
}

// Load parses the cookie; a missing, tampered or expired cookie yields an empty session
func (cs *CookieStore) Load(_ context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(cs.opts.Name)
	if err != nil || cookie.Value == "" {
		return &Session{}, nil
	}
	claims, err := cs.parse(cookie.Value)
	if err != nil {
		return &Session{}, nil
	}
	return &Session{data: claims.Data}, nil
}

// Save signs the session into the cookie, or clears the cookie when empty
func (cs *CookieStore) Save(_ context.Context, w http.ResponseWriter, s *Session) error {
	if s.empty() {
		clearCookie(w, cs.opts)
		return nil
	}
	now := time.Now()
	claims := cookieClaims{
		Data: s.data,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(cs.opts.TTL)), // Session lifetime
			IssuedAt:  jwt.NewNumericDate(now),                  // Issued at current time
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(cs.secret)
	if err != nil {
		return errors.Wrap(err, "sign session cookie")
	}
	setCookie(w, cs.opts, signed)
	return nil
}

// parse validates the signature and expiry of a session token
func (cs *CookieStore) parse(value string) (*cookieClaims, error) {
	claims := &cookieClaims{}
	token, err := jwt.ParseWithClaims(value, claims, func(*jwt.Token) (any, error) {
		return cs.secret, nil // Return the secret key for validation
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrSignatureInvalid
	}
	return claims, nil
}
