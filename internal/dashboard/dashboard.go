// Package dashboard はロール別ダッシュボードの表示内容と検索を提供する。
//
// 創業者には投資家の一覧を、投資家には創業者（スタートアップ）の一覧を表示する。
// 統計値やタグは表示用の固定値で、保存済みデータから算出しない。
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/samber/lo"

	"github.com/hitoshi/startupconnect/internal/metrics"
	"github.com/hitoshi/startupconnect/internal/model"
	"github.com/hitoshi/startupconnect/internal/repository"
)

// Stat はヘッダーの統計カード1枚分。
type Stat struct {
	Value string
	Label string
}

// Metric はカード内の指標1件分。
type Metric struct {
	Label string
	Value string
}

// FocusOption は絞り込みセレクトボックスの選択肢。
type FocusOption struct {
	Value    string
	Label    string
	Selected bool
}

// Page はダッシュボード画面の表示モデル。
type Page struct {
	Viewer            *model.Identity
	Tagline           string
	ProfileHeading    string
	ProfileTags       []string
	Stats             []Stat
	SearchPlaceholder string
	Query             string
	Focus             string
	FocusOptions      []FocusOption
	ListHeading       string
	Counterparts      []*model.Identity
	ActionLabel       string
	CardTags          []string
	CardDetails       []string
	CardMetrics       []Metric
	CardBadge         string
	Notice            string
}

// IsFounder は閲覧者が創業者かどうかを返す。テンプレートの分岐に使う。
func (p *Page) IsFounder() bool {
	return p.Viewer != nil && p.Viewer.Role == model.RoleFounder
}

// Service はダッシュボードのビジネスロジックを提供する。
type Service struct {
	identRepo repository.IdentityRepository
	metrics   metrics.MetricsCollector
}

// NewService はServiceを生成する。
func NewService(identRepo repository.IdentityRepository, collector metrics.MetricsCollector) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Service{identRepo: identRepo, metrics: collector}
}

// Counterparts は閲覧者の相手ロールのIdentityを保存順に返す。
// queryが空でなければ名前・会社名・説明のいずれかに大文字小文字を区別せず部分一致するものに絞り込む。
// queryの空白も検索語の一部として扱う。
func (s *Service) Counterparts(ctx context.Context, viewer *model.Identity, query string) ([]*model.Identity, error) {
	identities, err := s.identRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list identities: %w", err)
	}

	target := viewer.Role.Counterpart()
	needle := strings.ToLower(query)

	return lo.Filter(identities, func(identity *model.Identity, _ int) bool {
		if identity.Role != target {
			return false
		}
		return Matches(identity, needle)
	}), nil
}

// Matches はIdentityが検索語に一致するかを判定する。needleは小文字化済みであること。
func Matches(identity *model.Identity, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(identity.Name), needle) ||
		strings.Contains(strings.ToLower(identity.Company), needle) ||
		strings.Contains(strings.ToLower(identity.Description), needle)
}

// View はダッシュボード画面の表示モデルを組み立てる。
// focusは選択状態として表示に反映するだけで、一覧は絞り込まない。
func (s *Service) View(ctx context.Context, viewer *model.Identity, query, focus string) (*Page, error) {
	if viewer == nil || !viewer.Role.Valid() {
		return nil, fmt.Errorf("dashboard requires a founder or investor")
	}

	counterparts, err := s.Counterparts(ctx, viewer, query)
	if err != nil {
		return nil, err
	}

	if query != "" {
		s.metrics.RecordSearch(string(viewer.Role))
		slog.Debug("dashboard search",
			slog.String("user_id", viewer.ID),
			slog.Int("results", len(counterparts)),
		)
	}

	layout := layoutFor(viewer)
	page := &Page{
		Viewer:            viewer,
		Tagline:           layout.tagline,
		ProfileHeading:    layout.profileHeading,
		ProfileTags:       layout.profileTags,
		Stats:             layout.stats,
		SearchPlaceholder: layout.searchPlaceholder,
		Query:             query,
		ListHeading:       layout.listHeading,
		Counterparts:      counterparts,
		ActionLabel:       layout.actionLabel,
		CardTags:          layout.cardTags,
		CardDetails:       layout.cardDetails,
		CardMetrics:       layout.cardMetrics,
		CardBadge:         layout.cardBadge,
	}
	page.Focus, page.FocusOptions = focusOptions(layout.focus, focus)

	return page, nil
}

// Acknowledge は「Connect」「Invest」ボタンの確認メッセージを返す。状態は変更しない。
func (s *Service) Acknowledge(ctx context.Context, viewer *model.Identity, targetID string) (string, error) {
	target, err := s.identRepo.FindByID(ctx, targetID)
	if err != nil {
		return "", fmt.Errorf("failed to find identity: %w", err)
	}
	if target == nil || target.Role != viewer.Role.Counterpart() {
		return "", model.NewUserNotFoundError()
	}

	slog.Info("dashboard action acknowledged",
		slog.String("user_id", viewer.ID),
		slog.String("target_id", targetID),
	)
	return AcknowledgementFor(viewer.Role), nil
}

// AcknowledgementFor はロールごとの確認メッセージを返す。
func AcknowledgementFor(role model.Role) string {
	if role == model.RoleInvestor {
		return "Investment interest sent!"
	}
	return "Connection request sent!"
}

// focusOptions は選択肢に選択状態を付与する。未知の値は"all"として扱う。
func focusOptions(options []FocusOption, selected string) (string, []FocusOption) {
	if !lo.ContainsBy(options, func(o FocusOption) bool { return o.Value == selected }) {
		selected = "all"
	}
	return selected, lo.Map(options, func(o FocusOption, _ int) FocusOption {
		o.Selected = o.Value == selected
		return o
	})
}
