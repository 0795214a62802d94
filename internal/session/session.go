// Package session decides whether the user is signed in, which gates the
// watcher's enable flag, and hands the bearer token to the feed client.
package session

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoToken is returned by FromToken for an empty token.
var ErrNoToken = errors.New("session: no token")

// Session is a parsed access token.
type Session struct {
	Token   string
	Subject string
	// ExpiresAt is zero when the token carries no expiry (opaque tokens
	// included).
	ExpiresAt time.Time
}

// FromToken inspects a bearer token. JWTs are parsed without verifying the
// signature: the API verifies it, we only read sub and exp. Opaque tokens
// are accepted as-is.
func FromToken(token string) (Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Session{}, ErrNoToken
	}
	s := Session{Token: token}
	if strings.Count(token, ".") != 2 {
		return s, nil
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		// Looks like a JWT but is not one; the API will have the final say.
		return s, nil
	}
	if sub, err := claims.GetSubject(); err == nil {
		s.Subject = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		s.ExpiresAt = exp.Time
	}
	return s, nil
}

// Authenticated reports whether the session is usable at now.
func (s Session) Authenticated(now time.Time) bool {
	if s.Token == "" {
		return false
	}
	return s.ExpiresAt.IsZero() || now.Before(s.ExpiresAt)
}

// Store holds the current session. It is safe for concurrent use.
type Store struct {
	mu  sync.RWMutex
	cur Session
	now func() time.Time
}

func NewStore() *Store { return &Store{now: time.Now} }

// Set replaces the session from a raw token. An empty token signs out.
func (s *Store) Set(token string) Session {
	sess, err := FromToken(token)
	if err != nil {
		sess = Session{}
	}
	s.mu.Lock()
	s.cur = sess
	s.mu.Unlock()
	return sess
}

// Invalidate signs out if token is still the current one. It reports whether
// the session was dropped; a token replaced in the meantime is kept.
func (s *Store) Invalidate(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token == "" || s.cur.Token != token {
		return false
	}
	s.cur = Session{}
	return true
}

func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// Token returns the bearer token, or "" when signed out or expired.
func (s *Store) Token() string {
	cur := s.Current()
	if !cur.Authenticated(s.now()) {
		return ""
	}
	return cur.Token
}

func (s *Store) Authenticated() bool {
	return s.Current().Authenticated(s.now())
}

// Until returns the time left before expiry; ok is false when there is no
// expiry or no session.
func (s *Store) Until() (time.Duration, bool) {
	cur := s.Current()
	if cur.Token == "" || cur.ExpiresAt.IsZero() {
		return 0, false
	}
	return cur.ExpiresAt.Sub(s.now()), true
}
