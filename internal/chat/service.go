// Package chat は2人のユーザー間の会話の読み込みと送信を提供する。
package chat

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/lo"

	"github.com/hitoshi/startupconnect/internal/metrics"
	"github.com/hitoshi/startupconnect/internal/model"
	"github.com/hitoshi/startupconnect/internal/repository"
)

// 日付・時刻の表示形式
const (
	dayLayout  = "Jan 2, 2006"
	timeLayout = "03:04 PM"
)

// Day は同じ暦日に送られたメッセージのまとまり。
type Day struct {
	Label    string
	Messages []model.Message
}

// Thread は会話画面の表示モデル。
type Thread struct {
	Viewer   *model.Identity
	Other    *model.Identity
	Key      string
	Messages []model.Message
	Days     []Day
	loc      *time.Location
}

// IsSent はメッセージが閲覧者の送信したものかを返す。
func (t *Thread) IsSent(msg model.Message) bool {
	return msg.SenderID == t.Viewer.ID
}

// TimeLabel はメッセージの送信時刻を表示用に整形する。
func (t *Thread) TimeLabel(msg model.Message) string {
	loc := t.loc
	if loc == nil {
		loc = time.Local
	}
	return msg.Timestamp.In(loc).Format(timeLayout)
}

// Service は会話のビジネスロジックを提供する。
type Service struct {
	identRepo   repository.IdentityRepository
	messageRepo repository.MessageRepository
	metrics     metrics.MetricsCollector
	now         func() time.Time
	loc         *time.Location
}

// NewService はServiceを生成する。日付の区切りはサーバーのローカルタイムゾーンで判定する。
func NewService(
	identRepo repository.IdentityRepository,
	messageRepo repository.MessageRepository,
	collector metrics.MetricsCollector,
) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Service{
		identRepo:   identRepo,
		messageRepo: messageRepo,
		metrics:     collector,
		now:         time.Now,
		loc:         time.Local,
	}
}

// Load は閲覧者と相手の会話を読み込む。
func (s *Service) Load(ctx context.Context, viewer *model.Identity, otherID string) (*Thread, error) {
	other, err := s.counterpart(ctx, viewer, otherID)
	if err != nil {
		return nil, err
	}

	key := StorageKey(viewer.ID, other.ID)
	messages, err := s.messageRepo.ListByKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}

	return &Thread{
		Viewer:   viewer,
		Other:    other,
		Key:      key,
		Messages: messages,
		Days:     GroupByDay(messages, s.loc),
		loc:      s.loc,
	}, nil
}

// Send は会話の末尾にメッセージを1件追加する。
// 前後の空白を除いた本文が空の場合は何も保存せずEMPTY_MESSAGEを返す。
func (s *Service) Send(ctx context.Context, viewer *model.Identity, otherID, content string) (*model.Message, error) {
	other, err := s.counterpart(ctx, viewer, otherID)
	if err != nil {
		return nil, err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, model.NewEmptyMessageError()
	}

	now := s.now()
	msg := model.Message{
		ID:         ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		SenderID:   viewer.ID,
		SenderName: viewer.Name,
		Content:    content,
		Timestamp:  now.UTC(),
	}

	if err := s.messageRepo.Append(ctx, StorageKey(viewer.ID, other.ID), msg); err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}

	s.metrics.RecordMessageSent()
	slog.Info("message sent",
		slog.String("message_id", msg.ID),
		slog.String("sender_id", viewer.ID),
		slog.String("recipient_id", other.ID),
	)
	return &msg, nil
}

// Conversations は閲覧者が参加している会話を最新メッセージの新しい順に返す。
// メッセージのない会話と相手が存在しない会話は含めない。
func (s *Service) Conversations(ctx context.Context, viewer *model.Identity) ([]model.Conversation, error) {
	keys, err := s.messageRepo.ListKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	var conversations []model.Conversation
	for _, key := range keys {
		otherID, ok := counterpartID(key, viewer.ID)
		if !ok {
			continue
		}

		other, err := s.identRepo.FindByID(ctx, otherID)
		if err != nil {
			return nil, fmt.Errorf("failed to find identity: %w", err)
		}
		if other == nil {
			continue
		}

		messages, err := s.messageRepo.ListByKey(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to load messages: %w", err)
		}
		if len(messages) == 0 {
			continue
		}
		last := messages[len(messages)-1]

		conversations = append(conversations, model.Conversation{
			Key:         key,
			Other:       other,
			LastMessage: &last,
		})
	}

	slices.SortStableFunc(conversations, func(a, b model.Conversation) int {
		return cmp.Compare(b.LastMessage.Timestamp.UnixNano(), a.LastMessage.Timestamp.UnixNano())
	})
	return conversations, nil
}

// counterpart は会話相手のIdentityを解決する。
func (s *Service) counterpart(ctx context.Context, viewer *model.Identity, otherID string) (*model.Identity, error) {
	if otherID == viewer.ID {
		return nil, model.NewSelfConversationError()
	}

	other, err := s.identRepo.FindByID(ctx, otherID)
	if err != nil {
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}
	if other == nil {
		return nil, model.NewUserNotFoundError()
	}
	return other, nil
}

// GroupByDay はメッセージを暦日ごとにまとめる。
// グループは最初に現れた順、グループ内は元の順序を保つ。
func GroupByDay(messages []model.Message, loc *time.Location) []Day {
	if len(messages) == 0 {
		return nil
	}

	groups := lo.PartitionBy(messages, func(msg model.Message) string {
		return msg.Timestamp.In(loc).Format(time.DateOnly)
	})

	return lo.Map(groups, func(group []model.Message, _ int) Day {
		return Day{
			Label:    group[0].Timestamp.In(loc).Format(dayLayout),
			Messages: group,
		}
	})
}
