// Package session owns the bearer token and the reaction to an expired session.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/julianstephens/habitrack/internal/logger"
)

// Session wraps a TokenStore and notifies listeners when the server rejects
// the token. It is safe for concurrent use.
type Session struct {
	store TokenStore

	mu        sync.Mutex
	listeners []func()
}

func New(store TokenStore) *Session {
	return &Session{store: store}
}

// Token returns the stored token, or "" when there is none or the store fails.
func (s *Session) Token() string {
	token, err := s.store.Get()
	if err != nil {
		if !errors.Is(err, ErrNoToken) {
			logger.Warn("Failed to read session token", "error", err)
		}
		return ""
	}
	return token
}

// Authenticated reports whether a token is stored.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// Require returns ErrNoToken when no token is stored.
func (s *Session) Require() error {
	if !s.Authenticated() {
		return ErrNoToken
	}
	return nil
}

// Save stores a freshly issued token.
func (s *Session) Save(token string) error {
	return s.store.Set(token)
}

// Clear removes the stored token. Clearing an empty session is not an error.
func (s *Session) Clear() error {
	if err := s.store.Delete(); err != nil && !errors.Is(err, ErrNoToken) {
		return err
	}
	return nil
}

// OnUnauthorized registers fn to run whenever the server rejects the token.
func (s *Session) OnUnauthorized(fn func()) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Expire clears the token and notifies listeners. Called by the API client on
// any 401 response.
func (s *Session) Expire() {
	if err := s.Clear(); err != nil {
		logger.Warn("Failed to clear expired session token", "error", err)
	}
	s.mu.Lock()
	listeners := append([]func(){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

// Expiry reads the exp claim of a JWT without verifying it. ok is false for
// opaque tokens or tokens without an expiry.
func Expiry(token string) (exp time.Time, ok bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
