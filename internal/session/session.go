// Package session holds the per-visitor state the storefront keeps between
// requests: authentication flag, bearer token, username and pending toast
// notifications.
//
// A Session is created anonymous for every visitor. Login initialises the
// authenticated part and Logout tears it down again; the session id itself
// survives a logout.
package session

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrExpired  = errors.New("session expired")
)

// Level is the severity of a flash notification
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Flash is a one-shot notification shown on the next rendered view
type Flash struct {
	Level  Level  `json:"level"`
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`
}

// Session is the server-side record of one visitor
type Session struct {
	ID            string    `json:"id"`
	Authenticated bool      `json:"authenticated"`
	Token         string    `json:"token,omitempty"`
	Username      string    `json:"username,omitempty"`
	Flashes       []Flash   `json:"flashes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Config controls session lifetime
type Config struct {
	TTL time.Duration
}

func newSession(id string, ttl time.Duration) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// Login marks the session authenticated for username with the API token
func (s *Session) Login(token, username string) {
	s.Authenticated = true
	s.Token = token
	s.Username = username
}

// Logout clears the authentication flag, token and username
func (s *Session) Logout() {
	s.Authenticated = false
	s.Token = ""
	s.Username = ""
}

// BearerToken returns the token sent to the storefront API
func (s *Session) BearerToken() string {
	return s.Token
}

// AddFlash queues a notification for the next view
func (s *Session) AddFlash(level Level, title, detail string) {
	s.Flashes = append(s.Flashes, Flash{Level: level, Title: title, Detail: detail})
}

// PopFlashes returns and clears the queued notifications
func (s *Session) PopFlashes() []Flash {
	f := s.Flashes
	s.Flashes = nil
	return f
}

// Expired reports whether the session is past its expiry at now
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// Clone returns a deep copy of s
func (s *Session) Clone() *Session {
	c := *s
	if s.Flashes != nil {
		c.Flashes = append([]Flash(nil), s.Flashes...)
	}
	return &c
}

// Store persists sessions. Get returns ErrNotFound or ErrExpired for ids it cannot serve.
type Store interface {
	Create(ctx context.Context) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
	Prune(ctx context.Context) (int64, error)
	Close() error
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying s
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored by NewContext
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(contextKey{}).(*Session)
	return s, ok
}
