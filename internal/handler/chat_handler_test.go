package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/startupconnect/internal/chat"
	"github.com/hitoshi/startupconnect/internal/model"
)

// --- モック定義 ---

type mockChatService struct {
	loadFn          func(ctx context.Context, viewer *model.Identity, otherID string) (*chat.Thread, error)
	sendFn          func(ctx context.Context, viewer *model.Identity, otherID, content string) (*model.Message, error)
	conversationsFn func(ctx context.Context, viewer *model.Identity) ([]model.Conversation, error)
}

func (m *mockChatService) Load(ctx context.Context, viewer *model.Identity, otherID string) (*chat.Thread, error) {
	if m.loadFn != nil {
		return m.loadFn(ctx, viewer, otherID)
	}
	return nil, model.NewUserNotFoundError()
}

func (m *mockChatService) Send(ctx context.Context, viewer *model.Identity, otherID, content string) (*model.Message, error) {
	if m.sendFn != nil {
		return m.sendFn(ctx, viewer, otherID, content)
	}
	return &model.Message{}, nil
}

func (m *mockChatService) Conversations(ctx context.Context, viewer *model.Identity) ([]model.Conversation, error) {
	if m.conversationsFn != nil {
		return m.conversationsFn(ctx, viewer)
	}
	return nil, nil
}

var _ ChatServiceInterface = (*mockChatService)(nil)
var _ ChatServiceInterface = (*chat.Service)(nil)

// --- ヘルパー ---

func threadBetween(viewer, other *model.Identity, messages ...model.Message) *chat.Thread {
	return &chat.Thread{
		Viewer:   viewer,
		Other:    other,
		Key:      chat.StorageKey(viewer.ID, other.ID),
		Messages: messages,
		Days:     chat.GroupByDay(messages, time.UTC),
	}
}

// --- テスト ---

func TestChatHandler_Show_RendersThread(t *testing.T) {
	msg := model.Message{
		ID: "m1", SenderID: testFounder.ID, SenderName: testFounder.Name,
		Content: "hello", Timestamp: time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC),
	}
	h := NewChatHandler(newTestPages(t, identitiesOf(testInvestor)), &mockChatService{
		loadFn: func(ctx context.Context, viewer *model.Identity, otherID string) (*chat.Thread, error) {
			if otherID != testFounder.ID {
				t.Errorf("otherID = %q, want %q", otherID, testFounder.ID)
			}
			return threadBetween(viewer, testFounder, msg), nil
		},
	})

	req := withUser(httptest.NewRequest(http.MethodGet, "/chat/"+testFounder.ID, nil), testInvestor.ID)
	req = withURLParam(req, "userId", testFounder.ID)
	w := httptest.NewRecorder()
	h.Show(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := w.Body.String()
	if !strings.Contains(body, `class="message received"`) {
		t.Error("message from the other party should be rendered as received")
	}
	if !strings.Contains(body, "hello") || !strings.Contains(body, "Jan 15, 2026") {
		t.Error("expected message content and date separator")
	}
}

func TestChatHandler_Show_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"unknown user", model.NewUserNotFoundError(), http.StatusNotFound},
		{"self conversation", model.NewSelfConversationError(), http.StatusBadRequest},
		{"internal", errors.New("store down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewChatHandler(newTestPages(t, identitiesOf(testFounder)), &mockChatService{
				loadFn: func(ctx context.Context, viewer *model.Identity, otherID string) (*chat.Thread, error) {
					return nil, tt.err
				},
			})

			req := withUser(httptest.NewRequest(http.MethodGet, "/chat/x", nil), testFounder.ID)
			req = withURLParam(req, "userId", "x")
			w := httptest.NewRecorder()
			h.Show(w, req)

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
		})
	}
}

func TestChatHandler_Send_RedirectsToThread(t *testing.T) {
	var gotContent, gotOther string
	h := NewChatHandler(newTestPages(t, identitiesOf(testFounder)), &mockChatService{
		sendFn: func(ctx context.Context, viewer *model.Identity, otherID, content string) (*model.Message, error) {
			gotOther, gotContent = otherID, content
			return &model.Message{ID: "m1", Content: content}, nil
		},
	})

	req := withUser(formRequest(http.MethodPost, "/chat/"+testInvestor.ID, url.Values{"message": {"hello"}}), testFounder.ID)
	req = withURLParam(req, "userId", testInvestor.ID)
	w := httptest.NewRecorder()
	h.Send(w, req)

	if gotOther != testInvestor.ID || gotContent != "hello" {
		t.Errorf("Send called with (%q, %q)", gotOther, gotContent)
	}
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/chat/"+testInvestor.ID {
		t.Errorf("status = %d, Location = %q", w.Code, w.Header().Get("Location"))
	}
}

func TestChatHandler_Send_EmptyMessage_RerendersWithError(t *testing.T) {
	h := NewChatHandler(newTestPages(t, identitiesOf(testFounder)), &mockChatService{
		sendFn: func(ctx context.Context, viewer *model.Identity, otherID, content string) (*model.Message, error) {
			return nil, model.NewEmptyMessageError()
		},
		loadFn: func(ctx context.Context, viewer *model.Identity, otherID string) (*chat.Thread, error) {
			return threadBetween(viewer, testInvestor), nil
		},
	})

	req := withUser(formRequest(http.MethodPost, "/chat/"+testInvestor.ID, url.Values{"message": {"   "}}), testFounder.ID)
	req = withURLParam(req, "userId", testInvestor.ID)
	w := httptest.NewRecorder()
	h.Send(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Message is empty") {
		t.Error("expected inline error")
	}
	if !strings.Contains(body, "Start a conversation with Ivan") {
		t.Error("expected empty thread placeholder")
	}
}

func TestChatHandler_Send_UnknownUser_Returns404(t *testing.T) {
	h := NewChatHandler(newTestPages(t, identitiesOf(testFounder)), &mockChatService{
		sendFn: func(ctx context.Context, viewer *model.Identity, otherID, content string) (*model.Message, error) {
			return nil, model.NewUserNotFoundError()
		},
	})

	req := withUser(formRequest(http.MethodPost, "/chat/nobody", url.Values{"message": {"hi"}}), testFounder.ID)
	req = withURLParam(req, "userId", "nobody")
	w := httptest.NewRecorder()
	h.Send(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestChatHandler_Messages(t *testing.T) {
	last := &model.Message{
		ID: "m1", SenderID: testInvestor.ID, SenderName: testInvestor.Name,
		Content: "let's talk", Timestamp: time.Now(),
	}
	h := NewChatHandler(newTestPages(t, identitiesOf(testFounder)), &mockChatService{
		conversationsFn: func(ctx context.Context, viewer *model.Identity) ([]model.Conversation, error) {
			return []model.Conversation{{
				Key:         chat.StorageKey(testFounder.ID, testInvestor.ID),
				Other:       testInvestor,
				LastMessage: last,
			}}, nil
		},
	})

	req := withUser(httptest.NewRequest(http.MethodGet, "/messages", nil), testFounder.ID)
	w := httptest.NewRecorder()
	h.Messages(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := w.Body.String()
	if !strings.Contains(body, "/chat/"+testInvestor.ID) || !strings.Contains(body, "let&#39;s talk") {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestChatHandler_Messages_Empty(t *testing.T) {
	h := NewChatHandler(newTestPages(t, identitiesOf(testFounder)), &mockChatService{})

	req := withUser(httptest.NewRequest(http.MethodGet, "/messages", nil), testFounder.ID)
	w := httptest.NewRecorder()
	h.Messages(w, req)

	if !strings.Contains(w.Body.String(), "No conversations yet.") {
		t.Error("expected empty state")
	}
}
