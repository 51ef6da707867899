package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/SigNoz/storefront-go-app/internal/session"
	"go.uber.org/zap"
)

// CookieConfig controls the session cookie
type CookieConfig struct {
	Name   string
	Secure bool
	MaxAge int
}

// SessionMiddleware loads the visitor's session, or creates one, and puts it
// in the request context. The session is saved right before the response
// headers go out, so redirects carry the latest flashes and login state.
func SessionMiddleware(store session.Store, cookie CookieConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var (
				sess   *session.Session
				loaded bool
			)
			if c, err := r.Cookie(cookie.Name); err == nil && c.Value != "" {
				s, err := store.Get(ctx, c.Value)
				switch {
				case err == nil:
					sess, loaded = s, true
				case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrExpired):
				default:
					logger.Warn("failed to load session", zap.Error(err))
				}
			}
			if sess == nil {
				s, err := store.Create(ctx)
				if err != nil {
					logger.Error("failed to create session", zap.Error(err))
					http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
					return
				}
				sess = s
			}

			http.SetCookie(w, &http.Cookie{
				Name:     cookie.Name,
				Value:    sess.ID,
				Path:     "/",
				MaxAge:   cookie.MaxAge,
				HttpOnly: true,
				Secure:   cookie.Secure,
				SameSite: http.SameSiteLaxMode,
			})

			var before authState
			if loaded {
				before = authOf(sess)
			}
			sw := &sessionWriter{ResponseWriter: w, save: func() {
				if loaded && authOf(sess) == before {
					refreshAuth(ctx, store, sess, logger)
				}
				if err := store.Save(ctx, sess); err != nil {
					logger.Warn("failed to save session", zap.String("session_id", sess.ID), zap.Error(err))
				}
			}}
			next.ServeHTTP(sw, r.WithContext(session.NewContext(ctx, sess)))
			sw.flush()
		})
	}
}

// authState is the part of a session only login and logout may change
type authState struct {
	authenticated bool
	token         string
	username      string
}

func authOf(s *session.Session) authState {
	return authState{authenticated: s.Authenticated, token: s.Token, username: s.Username}
}

// refreshAuth copies the stored login state into sess, so a request that
// started before a login or logout in another tab does not undo it.
func refreshAuth(ctx context.Context, store session.Store, sess *session.Session, logger *zap.Logger) {
	current, err := store.Get(ctx, sess.ID)
	switch {
	case err == nil:
		sess.Authenticated = current.Authenticated
		sess.Token = current.Token
		sess.Username = current.Username
	case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrExpired):
		// deleted meanwhile, nothing left to be logged in to
		sess.Logout()
	default:
		logger.Warn("failed to reload session", zap.String("session_id", sess.ID), zap.Error(err))
	}
}

// sessionWriter saves the session once, before the first byte of the response
type sessionWriter struct {
	http.ResponseWriter
	save  func()
	saved bool
}

func (sw *sessionWriter) flush() {
	if !sw.saved {
		sw.saved = true
		sw.save()
	}
}

func (sw *sessionWriter) WriteHeader(code int) {
	sw.flush()
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *sessionWriter) Write(b []byte) (int, error) {
	sw.flush()
	return sw.ResponseWriter.Write(b)
}

// RequireAuth redirects visitors without an authenticated session to loginPath
func RequireAuth(loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := session.FromContext(r.Context())
			if !ok || !sess.Authenticated {
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
