// Package web serves the storefront and the admin console as server-rendered
// HTML. Every mutation answers with a redirect, so list views always show the
// result of a fresh fetch from the storefront API.
package web

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"github.com/SigNoz/storefront-go-app/internal/apiclient"
	"github.com/SigNoz/storefront-go-app/internal/cart"
	"github.com/SigNoz/storefront-go-app/internal/metrics"
	"github.com/SigNoz/storefront-go-app/internal/middleware"
	"github.com/SigNoz/storefront-go-app/internal/models"
	"github.com/SigNoz/storefront-go-app/internal/session"
	"github.com/SigNoz/storefront-go-app/pkg/config"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

// App holds application dependencies
type App struct {
	config    *config.Config
	store     session.Store
	baskets   *cart.Registry
	api       *apiclient.Client
	metrics   *metrics.AppMetrics
	logger    *zap.Logger
	templates map[string]*template.Template
}

// NewApp creates a new application instance
func NewApp(
	cfg *config.Config,
	store session.Store,
	baskets *cart.Registry,
	api *apiclient.Client,
	m *metrics.AppMetrics,
	logger *zap.Logger,
) (*App, error) {
	templates, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	return &App{
		config:    cfg,
		store:     store,
		baskets:   baskets,
		api:       api,
		metrics:   m,
		logger:    logger,
		templates: templates,
	}, nil
}

// SetupRoutes configures the HTTP routes
func (a *App) SetupRoutes(r *mux.Router) {
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.ErrorHandlerMiddleware(a.logger))
	r.Use(middleware.MetricsMiddleware(a.metrics, a.logger))

	r.HandleFunc("/health", a.HealthHandler).Methods("GET")

	// Everything below needs a visitor session
	site := r.NewRoute().Subrouter()
	site.Use(middleware.SessionMiddleware(a.store, middleware.CookieConfig{
		Name:   a.config.SessionCookieName,
		Secure: a.config.SessionCookieSecure,
		MaxAge: int(a.config.SessionTTL.Seconds()),
	}, a.logger))

	site.HandleFunc("/", a.HomeHandler).Methods("GET")
	site.HandleFunc("/login", a.LoginPageHandler).Methods("GET")
	site.HandleFunc("/login", a.LoginHandler).Methods("POST")
	site.HandleFunc("/register", a.RegisterPageHandler).Methods("GET")
	site.HandleFunc("/register", a.RegisterHandler).Methods("POST")
	site.HandleFunc("/logout", a.LogoutHandler).Methods("POST")

	// Store
	site.HandleFunc("/store", a.StoreHandler).Methods("GET")
	site.HandleFunc("/store/cart", a.CartHandler).Methods("GET")
	site.HandleFunc("/store/cart/add", a.AddToCartHandler).Methods("POST")
	site.HandleFunc("/store/cart/remove", a.RemoveFromCartHandler).Methods("POST")
	site.HandleFunc("/store/checkout", a.CheckoutPageHandler).Methods("GET")
	site.HandleFunc("/store/checkout", a.CheckoutHandler).Methods("POST")
	site.HandleFunc("/thank-you", a.ThankYouHandler).Methods("GET")

	// Admin
	admin := site.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.RequireAuth("/login"))

	admin.HandleFunc("", a.DashboardHandler).Methods("GET")

	admin.HandleFunc("/produtos", a.ListProductsHandler).Methods("GET")
	admin.HandleFunc("/produtos", a.CreateProductHandler).Methods("POST")
	admin.HandleFunc("/produtos/{id}", a.UpdateProductHandler).Methods("POST")
	admin.HandleFunc("/produtos/{id}/excluir", a.ConfirmDeleteProductHandler).Methods("GET")
	admin.HandleFunc("/produtos/{id}/excluir", a.DeleteProductHandler).Methods("POST")

	admin.HandleFunc("/categorias", a.ListCategoriesHandler).Methods("GET")
	admin.HandleFunc("/categorias", a.CreateCategoryHandler).Methods("POST")
	admin.HandleFunc("/categorias/{id}", a.UpdateCategoryHandler).Methods("POST")
	admin.HandleFunc("/categorias/{id}/excluir", a.ConfirmDeleteCategoryHandler).Methods("GET")
	admin.HandleFunc("/categorias/{id}/excluir", a.DeleteCategoryHandler).Methods("POST")

	admin.HandleFunc("/vendas", a.ListSalesHandler).Methods("GET")
	admin.HandleFunc("/vendas/{id}/excluir", a.ConfirmDeleteSaleHandler).Methods("GET")
	admin.HandleFunc("/vendas/{id}/excluir", a.DeleteSaleHandler).Methods("POST")
}

// HealthHandler handles GET /health
func (a *App) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	sessions, err := a.store.Count(r.Context())
	if err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "error": err.Error()})
		return
	}

	json.NewEncoder(w).Encode(map[string]any{
		"status":       "healthy",
		"sessions":     sessions,
		"active_carts": a.baskets.Active(),
	})
}

// HomeHandler handles GET /
func (a *App) HomeHandler(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// page is the data every template receives
type page struct {
	Title     string
	Session   *session.Session
	Flashes   []session.Flash
	CartUnits int
	Data      any
}

var funcs = template.FuncMap{
	"brl": models.FormatBRL,
	"mul": func(price decimal.Decimal, qty int) decimal.Decimal {
		return price.Mul(decimal.NewFromInt(int64(qty)))
	},
	"lower": strings.ToLower,
}

func parseTemplates() (map[string]*template.Template, error) {
	pages, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	templates := make(map[string]*template.Template, len(pages))
	for _, p := range pages {
		name := strings.TrimSuffix(strings.TrimPrefix(p, "templates/"), ".html")
		if name == "layout" {
			continue
		}
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", p)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		templates[name] = t
	}
	return templates, nil
}

// render executes the named page inside the layout, consuming pending flashes
func (a *App) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	t, ok := a.templates[name]
	if !ok {
		a.logger.Error("unknown template", zap.String("template", name))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	sess := a.session(r)
	p := page{
		Title:     title,
		Session:   sess,
		Flashes:   sess.PopFlashes(),
		CartUnits: a.baskets.Get(sess.ID).Cart.Units(),
		Data:      data,
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", p); err != nil {
		a.logger.Error("failed to render template", zap.String("template", name), zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// session returns the visitor's session; SessionMiddleware guarantees one
func (a *App) session(r *http.Request) *session.Session {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		panic("web: request without session")
	}
	return sess
}

// basket returns the visitor's cart and checkout
func (a *App) basket(r *http.Request) *cart.Basket {
	return a.baskets.Get(a.session(r).ID)
}

// client returns the API client bound to the visitor's token
func (a *App) client(r *http.Request) *apiclient.Client {
	return a.api.With(a.session(r))
}

// redirect answers 303 so the browser always follows with a GET
func redirect(w http.ResponseWriter, r *http.Request, path string) {
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// flash queues a notification for the next rendered view
func (a *App) flash(r *http.Request, level session.Level, title, detail string) {
	a.session(r).AddFlash(level, title, detail)
}

// flashError turns err into a toast. Validation problems are warnings; every
// other failure is an error the visitor may retry.
func (a *App) flashError(r *http.Request, title string, err error) {
	if errors.Is(err, models.ErrValidation) {
		a.flash(r, session.LevelWarning, "Dados inválidos", validationDetail(err))
		return
	}

	if !errors.Is(err, context.Canceled) {
		a.logger.Warn(title,
			zap.Error(err),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
		)
	}

	detail := "Tente novamente."
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		detail = apiErr.Message
	}
	a.flash(r, session.LevelError, title, detail)
}

func validationDetail(err error) string {
	var fields []string
	collectFields(err, &fields)
	return strings.Join(fields, ", ")
}

func collectFields(err error, fields *[]string) {
	if err == nil {
		return
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			collectFields(e, fields)
		}
		return
	}
	var vErr *models.ValidationError
	if errors.As(err, &vErr) {
		*fields = append(*fields, vErr.Error())
	}
}
