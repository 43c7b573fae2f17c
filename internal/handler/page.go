package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/startupconnect/internal/middleware"
	"github.com/hitoshi/startupconnect/internal/model"
	"github.com/hitoshi/startupconnect/internal/view"
)

// IdentityFinder はログイン中のIdentityを解決するためのインターフェース。
type IdentityFinder interface {
	IdentityByID(ctx context.Context, userID string) (*model.Identity, error)
}

// CookieConfig はセッションCookieの設定。
type CookieConfig struct {
	Domain        string
	Secure        bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// pages は画面ハンドラーに共通する描画とログインユーザーの解決を提供する。
type pages struct {
	renderer   *view.Renderer
	identities IdentityFinder
	cookies    CookieConfig
}

// page は共通の表示データを組み立てる。
func (p *pages) page(r *http.Request, title string, viewer *model.Identity) view.Page {
	return view.Page{
		Title:     title,
		Viewer:    viewer,
		CSRFToken: middleware.CSRFTokenFromContext(r.Context()),
	}
}

// viewer はセッションのユーザーIDからIdentityを取得する。
// Identityが存在しない場合はセッションCookieを破棄してログイン画面へリダイレクトし、falseを返す。
func (p *pages) viewer(w http.ResponseWriter, r *http.Request) (*model.Identity, bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return nil, false
	}

	identity, err := p.identities.IdentityByID(r.Context(), userID)
	if err != nil {
		var appErr *model.AppError
		if errors.As(err, &appErr) {
			p.clearSessionCookie(w)
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return nil, false
		}
		p.serverError(w, r, nil, err)
		return nil, false
	}
	return identity, true
}

// serverError は内部エラーをログに記録し、詳細を含まないエラー画面を返す。
func (p *pages) serverError(w http.ResponseWriter, r *http.Request, viewer *model.Identity, err error) {
	slog.Error("request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	p.renderer.RenderError(w, r, p.page(r, "", viewer), http.StatusInternalServerError,
		"Something went wrong.", "Please try again in a moment.")
}

// appError は利用者向けエラーをエラー画面として返す。
func (p *pages) appError(w http.ResponseWriter, r *http.Request, viewer *model.Identity, appErr *model.AppError) {
	p.renderer.RenderError(w, r, p.page(r, "", viewer), statusForAppError(appErr), appErr.Message, appErr.Action)
}

// setSessionCookie はセッションCookieを設定する（HTTP Only）。
func (p *pages) setSessionCookie(w http.ResponseWriter, session *model.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		Domain:   p.cookies.Domain,
		MaxAge:   p.cookies.SessionMaxAge,
		HttpOnly: true,
		Secure:   p.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie はセッションCookieを削除する。
func (p *pages) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   p.cookies.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   p.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// statusForAppError はエラーコードに対応するHTTPステータスを返す。
func statusForAppError(appErr *model.AppError) int {
	switch appErr.Code {
	case model.ErrCodeDuplicateEmail:
		return http.StatusConflict
	case model.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeSelfConversation:
		return http.StatusBadRequest
	default:
		return http.StatusUnprocessableEntity
	}
}

// isLoggedIn はリクエストにログイン済みのセッションがあるかを返す。
func isLoggedIn(r *http.Request) bool {
	_, err := middleware.UserIDFromContext(r.Context())
	return err == nil
}
