// Package session implements the server-side session store.  A session is
// identified by an opaque random token carried in an HttpOnly cookie; all
// session state (the logged-in user id, the per-session CSRF token and
// pending flash messages) lives on the server, keyed by that token.
//
// The primary implementation stores sessions in Redis with a sliding TTL.
// When Redis is unavailable the application degrades to an in-memory store
// so a missing cache never takes the site down; the in-memory store is
// also what the tests use.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
)

// ErrNotFound is returned when a token does not resolve to a live session.
var ErrNotFound = errors.New("session not found")

// Session is the server-side state for one browser session.  UserID is 0
// for anonymous visitors.  CSRFToken is minted once when the session is
// created and never rotates.  Flashes are one-shot messages queued for the
// next rendered page.
type Session struct {
	Token     string   `json:"-"`
	UserID    uint64   `json:"user_id"`
	CSRFToken string   `json:"csrf_token"`
	Flashes   []string `json:"flashes,omitempty"`
}

// Store persists sessions.  Save must overwrite the full session state
// atomically; Get must return ErrNotFound for unknown or expired tokens.
type Store interface {
	Create(ctx context.Context) (*Session, error)
	Get(ctx context.Context, token string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, token string) error
}

// newToken returns a URL-safe random token of n bytes of entropy.
func newToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// newSession mints a blank anonymous session with fresh session and CSRF
// tokens.
func newSession() (*Session, error) {
	tok, err := newToken(32)
	if err != nil {
		return nil, err
	}
	csrf, err := newToken(32)
	if err != nil {
		return nil, err
	}
	return &Session{Token: tok, CSRFToken: csrf}, nil
}
