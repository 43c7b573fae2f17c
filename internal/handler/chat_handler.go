package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/startupconnect/internal/chat"
	"github.com/hitoshi/startupconnect/internal/model"
	"github.com/hitoshi/startupconnect/internal/view"
)

// ChatServiceInterface は会話ハンドラーが必要とするサービスインターフェース。
type ChatServiceInterface interface {
	Load(ctx context.Context, viewer *model.Identity, otherID string) (*chat.Thread, error)
	Send(ctx context.Context, viewer *model.Identity, otherID, content string) (*model.Message, error)
	Conversations(ctx context.Context, viewer *model.Identity) ([]model.Conversation, error)
}

// ChatHandler は会話画面のHTTPハンドラー。
type ChatHandler struct {
	*pages
	service ChatServiceInterface
}

// NewChatHandler はChatHandlerを生成する。
func NewChatHandler(p *pages, service ChatServiceInterface) *ChatHandler {
	return &ChatHandler{pages: p, service: service}
}

// Show は相手との会話を表示する。
// GET /chat/{userId}
func (h *ChatHandler) Show(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.viewer(w, r)
	if !ok {
		return
	}

	thread, err := h.service.Load(r.Context(), viewer, chi.URLParam(r, "userId"))
	if err != nil {
		h.loadError(w, r, viewer, err)
		return
	}

	h.renderer.Render(w, r, http.StatusOK, view.PageChat, view.ChatPage{
		Page:   h.page(r, thread.Other.Name, viewer),
		Thread: thread,
	})
}

// Send はメッセージを送信し、会話画面へリダイレクトする。
// 本文が空の場合は何も保存せず、エラー付きで会話画面を再表示する。
// POST /chat/{userId}
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.viewer(w, r)
	if !ok {
		return
	}

	otherID := chi.URLParam(r, "userId")
	content := r.PostFormValue("message")

	_, err := h.service.Send(r.Context(), viewer, otherID, content)
	if err != nil {
		var appErr *model.AppError
		if !errors.As(err, &appErr) || appErr.Code != model.ErrCodeEmptyMessage {
			h.loadError(w, r, viewer, err)
			return
		}

		thread, loadErr := h.service.Load(r.Context(), viewer, otherID)
		if loadErr != nil {
			h.loadError(w, r, viewer, loadErr)
			return
		}
		h.renderer.Render(w, r, statusForAppError(appErr), view.PageChat, view.ChatPage{
			Page:   h.page(r, thread.Other.Name, viewer),
			Thread: thread,
			Draft:  content,
			Error:  appErr,
		})
		return
	}

	http.Redirect(w, r, "/chat/"+url.PathEscape(otherID), http.StatusSeeOther)
}

// Messages は参加している会話の一覧を表示する。
// GET /messages
func (h *ChatHandler) Messages(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.viewer(w, r)
	if !ok {
		return
	}

	conversations, err := h.service.Conversations(r.Context(), viewer)
	if err != nil {
		h.serverError(w, r, viewer, err)
		return
	}

	h.renderer.Render(w, r, http.StatusOK, view.PageMessages, view.MessagesPage{
		Page:          h.page(r, "Messages", viewer),
		Conversations: conversations,
	})
}

// loadError は会話の読み込み・送信エラーを画面に変換する。
func (h *ChatHandler) loadError(w http.ResponseWriter, r *http.Request, viewer *model.Identity, err error) {
	var appErr *model.AppError
	if errors.As(err, &appErr) {
		h.appError(w, r, viewer, appErr)
		return
	}
	h.serverError(w, r, viewer, err)
}
