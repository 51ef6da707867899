package web

import (
	"net/http"
	"strings"

	"github.com/SigNoz/storefront-go-app/internal/models"
	"github.com/SigNoz/storefront-go-app/internal/session"
	"go.uber.org/zap"
)

// LoginPageHandler handles GET /login
func (a *App) LoginPageHandler(w http.ResponseWriter, r *http.Request) {
	a.render(w, r, http.StatusOK, "login", "Login", nil)
}

// LoginHandler handles POST /login
func (a *App) LoginHandler(w http.ResponseWriter, r *http.Request) {
	creds := models.Credentials{
		Username: strings.TrimSpace(r.PostFormValue("usuario")),
		Password: r.PostFormValue("senha"),
	}
	if err := creds.Validate(); err != nil {
		a.flashError(r, "Erro ao fazer login", err)
		redirect(w, r, "/login")
		return
	}

	token, err := a.client(r).Login(r.Context(), creds)
	a.metrics.RecordLogin(r.Context(), err == nil)
	if err != nil {
		a.flashError(r, "Erro ao fazer login", err)
		redirect(w, r, "/login")
		return
	}

	sess := a.session(r)
	sess.Login(token, creds.Username)
	sess.AddFlash(session.LevelSuccess, "Login realizado com sucesso!", "")
	a.logger.Info("user logged in", zap.String("username", creds.Username))
	redirect(w, r, "/admin")
}

// RegisterPageHandler handles GET /register
func (a *App) RegisterPageHandler(w http.ResponseWriter, r *http.Request) {
	a.render(w, r, http.StatusOK, "register", "Criar conta", nil)
}

// RegisterHandler handles POST /register
func (a *App) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	reg := models.Registration{
		Username: strings.TrimSpace(r.PostFormValue("usuario")),
		Password: r.PostFormValue("senha"),
		Confirm:  r.PostFormValue("confirma"),
	}
	if err := reg.Validate(); err != nil {
		a.flashError(r, "Erro ao criar conta", err)
		redirect(w, r, "/register")
		return
	}

	if _, err := a.client(r).Register(r.Context(), reg); err != nil {
		a.flashError(r, "Erro ao criar conta", err)
		redirect(w, r, "/register")
		return
	}

	a.flash(r, session.LevelSuccess, "Conta criada com sucesso!", "Faça login para continuar.")
	redirect(w, r, "/login")
}

// LogoutHandler handles POST /logout
func (a *App) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	sess := a.session(r)
	sess.Logout()
	a.baskets.Drop(sess.ID)
	sess.AddFlash(session.LevelInfo, "Você saiu da sua conta", "")
	redirect(w, r, "/login")
}
