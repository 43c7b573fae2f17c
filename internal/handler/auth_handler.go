// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/startupconnect/internal/auth"
	"github.com/hitoshi/startupconnect/internal/middleware"
	"github.com/hitoshi/startupconnect/internal/model"
	"github.com/hitoshi/startupconnect/internal/view"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, in auth.RegisterInput) (*model.Identity, *model.Session, error)
	Login(ctx context.Context, email, password string) (*model.Identity, *model.Session, error)
	Logout(ctx context.Context, sessionID string) error
}

// AuthHandler は登録・ログイン・ログアウトのHTTPハンドラー。
type AuthHandler struct {
	*pages
	service AuthServiceInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(p *pages, service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{pages: p, service: service}
}

// Root はログイン状態に応じてダッシュボードかログイン画面へリダイレクトする。
// GET /
func (h *AuthHandler) Root(w http.ResponseWriter, r *http.Request) {
	if isLoggedIn(r) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// LoginForm はログイン画面を表示する。
// GET /login
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if isLoggedIn(r) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	h.renderer.Render(w, r, http.StatusOK, view.PageLogin, view.LoginPage{
		Page: h.page(r, "Sign In", nil),
	})
}

// Login はメールアドレスとパスワードでログインする。
// POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if isLoggedIn(r) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	email := r.PostFormValue("email")
	_, session, err := h.service.Login(r.Context(), email, r.PostFormValue("password"))
	if err != nil {
		var appErr *model.AppError
		if errors.As(err, &appErr) {
			h.renderer.Render(w, r, statusForAppError(appErr), view.PageLogin, view.LoginPage{
				Page:  h.page(r, "Sign In", nil),
				Email: email,
				Error: appErr,
			})
			return
		}
		h.serverError(w, r, nil, err)
		return
	}

	h.setSessionCookie(w, session)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// RegisterForm は登録画面を表示する。
// GET /register
func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	if isLoggedIn(r) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	h.renderer.Render(w, r, http.StatusOK, view.PageRegister, view.RegisterPage{
		Page: h.page(r, "Create Account", nil),
	})
}

// Register は新規登録を行い、そのままログイン状態にする。
// POST /register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if isLoggedIn(r) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	in := auth.RegisterInput{
		Name:            r.PostFormValue("name"),
		Email:           r.PostFormValue("email"),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirmPassword"),
		Role:            r.PostFormValue("role"),
		Company:         r.PostFormValue("company"),
		Description:     r.PostFormValue("description"),
	}

	_, session, err := h.service.Register(r.Context(), in)
	if err != nil {
		var appErr *model.AppError
		if errors.As(err, &appErr) {
			h.renderer.Render(w, r, statusForAppError(appErr), view.PageRegister, view.RegisterPage{
				Page: h.page(r, "Create Account", nil),
				Form: view.RegisterForm{
					Name:        in.Name,
					Email:       in.Email,
					Role:        in.Role,
					Company:     in.Company,
					Description: in.Description,
				},
				Error: appErr,
			})
			return
		}
		h.serverError(w, r, nil, err)
		return
	}

	h.setSessionCookie(w, session)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// Logout はセッションを破棄してログイン画面へリダイレクトする。
// POST /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err == nil && cookie.Value != "" {
		if logoutErr := h.service.Logout(r.Context(), cookie.Value); logoutErr != nil {
			slog.Error("failed to logout", slog.String("error", logoutErr.Error()))
			// ログアウト失敗してもCookieはクリアする
		}
	}

	h.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
