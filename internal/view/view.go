// Package view はHTML画面の描画を提供する。
//
// 画面はembedしたhtml/templateで記述し、templ.Componentとしてレスポンスに書き出す。
package view

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/hitoshi/startupconnect/internal/chat"
	"github.com/hitoshi/startupconnect/internal/dashboard"
	"github.com/hitoshi/startupconnect/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// 画面名
const (
	PageLogin     = "login"
	PageRegister  = "register"
	PageDashboard = "dashboard"
	PageChat      = "chat"
	PageMessages  = "messages"
	PageError     = "error"
)

var pageNames = []string{PageLogin, PageRegister, PageDashboard, PageChat, PageMessages, PageError}

// Page は全画面に共通する表示データ。
type Page struct {
	Title     string
	Viewer    *model.Identity // 未ログイン時はnil
	CSRFToken string
}

// LoginPage はログイン画面の表示データ。
type LoginPage struct {
	Page
	Email string
	Error *model.AppError
}

// RegisterForm は登録フォームの再表示用の入力値。パスワードは含めない。
type RegisterForm struct {
	Name        string
	Email       string
	Role        string
	Company     string
	Description string
}

// RegisterPage は登録画面の表示データ。
type RegisterPage struct {
	Page
	Form  RegisterForm
	Error *model.AppError
}

// DashboardPage はダッシュボード画面の表示データ。
type DashboardPage struct {
	Page
	Dashboard *dashboard.Page
}

// ChatPage は会話画面の表示データ。
type ChatPage struct {
	Page
	Thread *chat.Thread
	Draft  string
	Error  *model.AppError
}

// MessagesPage は会話一覧画面の表示データ。
type MessagesPage struct {
	Page
	Conversations []model.Conversation
}

// ErrorPage はエラー画面の表示データ。
type ErrorPage struct {
	Page
	Status  int
	Message string
	Action  string
}

var funcs = template.FuncMap{
	"roleLabel": func(role model.Role) string {
		if role == model.RoleInvestor {
			return "Investor"
		}
		return "Startup Founder"
	},
	"searchLabel": func(role model.Role) string {
		if role == model.RoleInvestor {
			return "Discover Startups"
		}
		return "Find Investors"
	},
	"initial": func(name string) string {
		for _, r := range strings.TrimSpace(name) {
			return strings.ToUpper(string(r))
		}
		return "?"
	},
	"shortTime": func(t time.Time) string {
		return t.Local().Format("Jan 2, 03:04 PM")
	},
}

// Renderer は画面テンプレートを保持する。
// 各画面はレイアウトと画面固有のテンプレートを組み合わせて個別にパースする。
type Renderer struct {
	pages map[string]*template.Template
}

// New は埋め込みテンプレートをパースしてRendererを生成する。
func New() (*Renderer, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS,
			"templates/layout.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		pages[name] = t
	}
	return &Renderer{pages: pages}, nil
}

// Component は画面をtempl.Componentとして返す。
func (v *Renderer) Component(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		t, ok := v.pages[name]
		if !ok {
			return fmt.Errorf("unknown page: %s", name)
		}
		return t.ExecuteTemplate(w, "layout", data)
	})
}

// Render は画面を指定したステータスコードで書き出す。
// 描画はバッファに対して行われるため、失敗時に途中までのHTMLは送信されない。
func (v *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	templ.Handler(v.Component(name, data),
		templ.WithStatus(status),
		templ.WithErrorHandler(func(r *http.Request, err error) http.Handler {
			slog.Error("failed to render page",
				slog.String("page", name),
				slog.String("error", err.Error()),
			)
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "internal server error", http.StatusInternalServerError)
			})
		}),
	).ServeHTTP(w, r)
}

// RenderError はエラー画面を書き出す。
func (v *Renderer) RenderError(w http.ResponseWriter, r *http.Request, page Page, status int, message, action string) {
	page.Title = http.StatusText(status)
	v.Render(w, r, status, PageError, ErrorPage{
		Page:    page,
		Status:  status,
		Message: message,
		Action:  action,
	})
}
