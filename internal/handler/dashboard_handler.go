package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/startupconnect/internal/dashboard"
	"github.com/hitoshi/startupconnect/internal/model"
	"github.com/hitoshi/startupconnect/internal/view"
)

// noticeSent はConnect/Invest後にダッシュボードへ戻る際のクエリ値。
const noticeSent = "sent"

// DashboardServiceInterface はダッシュボードハンドラーが必要とするサービスインターフェース。
type DashboardServiceInterface interface {
	View(ctx context.Context, viewer *model.Identity, query, focus string) (*dashboard.Page, error)
	Acknowledge(ctx context.Context, viewer *model.Identity, targetID string) (string, error)
}

// DashboardHandler はダッシュボードのHTTPハンドラー。
type DashboardHandler struct {
	*pages
	service DashboardServiceInterface
}

// NewDashboardHandler はDashboardHandlerを生成する。
func NewDashboardHandler(p *pages, service DashboardServiceInterface) *DashboardHandler {
	return &DashboardHandler{pages: p, service: service}
}

// Show はロールに応じたダッシュボードを表示する。
// GET /dashboard?q=&focus=&notice=
func (h *DashboardHandler) Show(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.viewer(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	page, err := h.service.View(r.Context(), viewer, q.Get("q"), q.Get("focus"))
	if err != nil {
		h.serverError(w, r, viewer, err)
		return
	}
	if q.Get("notice") == noticeSent {
		page.Notice = dashboard.AcknowledgementFor(viewer.Role)
	}

	h.renderer.Render(w, r, http.StatusOK, view.PageDashboard, view.DashboardPage{
		Page:      h.page(r, "Dashboard", viewer),
		Dashboard: page,
	})
}

// Connect は「Connect」「Invest」ボタンを受け付け、確認メッセージ付きでダッシュボードへ戻す。
// POST /dashboard/connect/{id}
func (h *DashboardHandler) Connect(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.viewer(w, r)
	if !ok {
		return
	}

	if _, err := h.service.Acknowledge(r.Context(), viewer, chi.URLParam(r, "id")); err != nil {
		var appErr *model.AppError
		if errors.As(err, &appErr) {
			h.appError(w, r, viewer, appErr)
			return
		}
		h.serverError(w, r, viewer, err)
		return
	}

	back := url.Values{"notice": {noticeSent}}
	http.Redirect(w, r, "/dashboard?"+back.Encode(), http.StatusSeeOther)
}
