// Package repository はキーバリュー名前空間上のデータ永続化を提供する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/startupconnect/internal/model"
)

// キー体系
const (
	// UsersKey は全Identityの配列を保持する共有キー。
	UsersKey = "users"
	// SessionKeyPrefix はセッションキーのプレフィックス。後ろにセッションIDが続く。
	SessionKeyPrefix = "session_"
	// ChatKeyPrefix は会話キーのプレフィックス。後ろにペアキーが続く。
	ChatKeyPrefix = "chat_"
)

// ErrDuplicateEmail は登録済みのメールアドレスでIdentityを作成しようとした場合のエラー。
var ErrDuplicateEmail = errors.New("email already exists")

// IdentityRepository は登録ユーザーの永続化インターフェース。
type IdentityRepository interface {
	// List は登録順に全Identityを返す。
	List(ctx context.Context) ([]*model.Identity, error)

	// FindByID は指定IDのIdentityを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Identity, error)

	// FindByEmail はメールアドレスでIdentityを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Identity, error)

	// Create はIdentityを一覧の末尾に追加する。
	// 同じメールアドレスが存在する場合はErrDuplicateEmailを返し、一覧は変更しない。
	Create(ctx context.Context, identity *model.Identity) error
}

// SessionRepository はセッションの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションをExpiresAtまで有効な状態で保存する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
}

// MessageRepository は会話メッセージの永続化インターフェース。
type MessageRepository interface {
	// ListByKey は会話キーに保存されたメッセージを追加順に返す。存在しない場合は空スライス。
	ListByKey(ctx context.Context, key string) ([]model.Message, error)

	// Append はメッセージを1件だけ会話の末尾に追加する。既存メッセージの順序は維持される。
	Append(ctx context.Context, key string, msg model.Message) error

	// ListKeys は保存済みの全会話キーを返す。
	ListKeys(ctx context.Context) ([]string, error)
}
