package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hitoshi/startupconnect/internal/kvstore"
	"github.com/hitoshi/startupconnect/internal/model"
)

// KVSessionRepo はsession_<id>キーを使用するセッションリポジトリ。
// 有効期限はストアのTTLで管理する。
type KVSessionRepo struct {
	store kvstore.Store
	now   func() time.Time
}

// NewKVSessionRepo はKVSessionRepoを生成する。
func NewKVSessionRepo(store kvstore.Store) *KVSessionRepo {
	return &KVSessionRepo{store: store, now: time.Now}
}

// Create はセッションを保存する。
func (r *KVSessionRepo) Create(ctx context.Context, session *model.Session) error {
	ttl := session.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return fmt.Errorf("session %s is already expired", session.ID)
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if err := r.store.Set(ctx, SessionKeyPrefix+session.ID, data, ttl); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
func (r *KVSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	raw, err := r.store.Get(ctx, SessionKeyPrefix+id)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if raw == nil {
		return nil, nil
	}

	session := &model.Session{}
	if err := json.Unmarshal(raw, session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}

	// ストアの期限切れ削除はバックエンドにより遅延するため、ここでも判定する
	if !session.ExpiresAt.After(r.now()) {
		return nil, nil
	}
	return session, nil
}

// DeleteByID は指定IDのセッションを削除する。
func (r *KVSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, SessionKeyPrefix+id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// compile-time interface check
var _ SessionRepository = (*KVSessionRepo)(nil)
