package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SigNoz/storefront-go-app/internal/metrics"
	"github.com/SigNoz/storefront-go-app/internal/session"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const cookieName = "storefront_session"

func newRouter(store session.Store) *mux.Router {
	r := mux.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(ErrorHandlerMiddleware(zap.NewNop()))
	r.Use(MetricsMiddleware(metrics.NewNoop(), zap.NewNop()))
	r.Use(SessionMiddleware(store, CookieConfig{Name: cookieName}, zap.NewNop()))

	r.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		sess, _ := session.FromContext(r.Context())
		sess.Login("tok", "loja")
		sess.AddFlash(session.LevelSuccess, "Login realizado com sucesso!", "")
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
	})
	r.HandleFunc("/panic", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(RequireAuth("/login"))
	admin.HandleFunc("", func(w http.ResponseWriter, r *http.Request) {
		sess, _ := session.FromContext(r.Context())
		w.Write([]byte("Olá, " + sess.Username))
	})
	return r
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == cookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie set", cookieName)
	return nil
}

func TestRequireAuthRedirectsAnonymous(t *testing.T) {
	router := newRouter(session.NewMemoryStore(session.Config{TTL: time.Hour}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestRequireAuthRendersWhenAuthenticated(t *testing.T) {
	store := session.NewMemoryStore(session.Config{TTL: time.Hour})
	router := newRouter(store)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	cookie := sessionCookie(t, rec)

	// the redirect must already see the saved login
	saved, err := store.Get(context.Background(), cookie.Value)
	require.NoError(t, err)
	assert.True(t, saved.Authenticated)
	assert.Len(t, saved.Flashes, 1)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Olá, loja", rec.Body.String())
}

func TestSessionMiddlewareReplacesUnknownCookie(t *testing.T) {
	router := newRouter(session.NewMemoryStore(session.Config{TTL: time.Hour}))

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: cookieName, Value: "forged"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.NotEqual(t, "forged", sessionCookie(t, rec).Value)
}

func TestRequestIDMiddleware(t *testing.T) {
	router := newRouter(session.NewMemoryStore(session.Config{TTL: time.Hour}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("X-Request-ID", "req-1")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "req-1", rec.Header().Get("X-Request-ID"))
}

func TestErrorHandlerRecovers(t *testing.T) {
	router := newRouter(session.NewMemoryStore(session.Config{TTL: time.Hour}))

	rec := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

// inFlight serves one request whose handler runs meanwhile before it responds,
// standing in for another tab acting on the same session.
func inFlight(t *testing.T, store session.Store, cookie *http.Cookie, meanwhile func(id string)) {
	t.Helper()
	handler := SessionMiddleware(store, CookieConfig{Name: cookieName}, zap.NewNop())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, _ := session.FromContext(r.Context())
			meanwhile(sess.ID)
			sess.AddFlash(session.LevelInfo, "Catálogo atualizado", "")
			w.Write([]byte("ok"))
		}))

	req := httptest.NewRequest(http.MethodGet, "/store", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestSlowRequestDoesNotUndoLogout(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore(session.Config{TTL: time.Hour})
	router := newRouter(store)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
	cookie := sessionCookie(t, rec)

	inFlight(t, store, cookie, func(id string) {
		other, err := store.Get(ctx, id)
		require.NoError(t, err)
		other.Logout()
		require.NoError(t, store.Save(ctx, other))
	})

	saved, err := store.Get(ctx, cookie.Value)
	require.NoError(t, err)
	assert.False(t, saved.Authenticated)
	assert.Empty(t, saved.Token)
	assert.Empty(t, saved.Username)
	// the slow request's own changes still land
	require.NotEmpty(t, saved.Flashes)
	assert.Equal(t, "Catálogo atualizado", saved.Flashes[len(saved.Flashes)-1].Title)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestSlowRequestDoesNotUndoLogin(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore(session.Config{TTL: time.Hour})
	anon, err := store.Create(ctx)
	require.NoError(t, err)

	inFlight(t, store, &http.Cookie{Name: cookieName, Value: anon.ID}, func(id string) {
		other, err := store.Get(ctx, id)
		require.NoError(t, err)
		other.Login("tok", "loja")
		require.NoError(t, store.Save(ctx, other))
	})

	saved, err := store.Get(ctx, anon.ID)
	require.NoError(t, err)
	assert.True(t, saved.Authenticated)
	assert.Equal(t, "tok", saved.Token)
}
