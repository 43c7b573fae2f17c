// Package kvstore はアプリケーション全体で共有するフラットなキーバリュー名前空間を提供する。
//
// キー体系:
//
//	users                      → Identity配列（JSON）
//	chat_<id1>_<id2>           → Message配列（JSON、idはソート済み）
//	session_<sessionID>        → Session（JSON、有効期限付き）
//
// バックエンドはPostgreSQL、Redis、Badger、インメモリから選択する。
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrUnknownBackend は未対応のバックエンド名が指定された場合のエラー。
var ErrUnknownBackend = errors.New("unknown store backend")

// UpdateFunc は現在値を受け取り、新しい値を返す。
// 現在値が存在しない場合はnilが渡される。
// エラーを返した場合は書き込みを行わず、そのエラーがUpdateの戻り値になる。
type UpdateFunc func(current []byte) ([]byte, error)

// Store はキーバリューストアのインターフェース。
type Store interface {
	// Get は指定キーの値を取得する。存在しない、または期限切れの場合はnilを返す。
	Get(ctx context.Context, key string) ([]byte, error)

	// Set は値を保存する。ttlが0の場合は期限なし。
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete は指定キーを削除する。存在しない場合もエラーにしない。
	Delete(ctx context.Context, key string) error

	// Update は単一キーに対する読み取り・変更・書き込みをアトミックに行う。
	// 同じキーへの同時更新は直列化され、書き込みが失われることはない。
	// 既存キーの有効期限は維持される。
	Update(ctx context.Context, key string, fn UpdateFunc) error

	// Keys は指定プレフィックスを持つ有効なキーをバイト順の昇順で返す。
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Ping はストアへの疎通を確認する。
	Ping(ctx context.Context) error

	// Close はストアの接続を閉じる。
	Close() error
}

// Backend はストアの実装種別を表す。
type Backend string

const (
	BackendPostgres Backend = "postgres"
	BackendRedis    Backend = "redis"
	BackendBadger   Backend = "badger"
	BackendMemory   Backend = "memory"
)

// Options はOpenに渡す接続設定。使用されるのは選択したバックエンドの項目のみ。
type Options struct {
	Backend     Backend
	DatabaseURL string
	RedisURL    string
	BadgerDir   string
}

// Open は設定に応じたStoreを生成する。
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case BackendPostgres:
		return OpenPostgres(opts.DatabaseURL)
	case BackendRedis:
		return OpenRedis(ctx, opts.RedisURL)
	case BackendBadger:
		return OpenBadger(opts.BadgerDir)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}

// maxUpdateRetries は楽観的トランザクションの衝突時に再試行する上限回数。
const maxUpdateRetries = 32
