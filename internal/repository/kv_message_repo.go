package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/startupconnect/internal/kvstore"
	"github.com/hitoshi/startupconnect/internal/model"
)

// KVMessageRepo はchat_<pairKey>キーにJSON配列を保存するメッセージリポジトリ。
type KVMessageRepo struct {
	store kvstore.Store
}

// NewKVMessageRepo はKVMessageRepoを生成する。
func NewKVMessageRepo(store kvstore.Store) *KVMessageRepo {
	return &KVMessageRepo{store: store}
}

// ListByKey は会話キーのメッセージを追加順に返す。
func (r *KVMessageRepo) ListByKey(ctx context.Context, key string) ([]model.Message, error) {
	raw, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	return decodeMessages(raw)
}

// Append はメッセージを末尾に追加する。
// 読み取りから書き込みまでをUpdateで行うため、同時送信でもメッセージは失われない。
func (r *KVMessageRepo) Append(ctx context.Context, key string, msg model.Message) error {
	err := r.store.Update(ctx, key, func(current []byte) ([]byte, error) {
		messages, err := decodeMessages(current)
		if err != nil {
			return nil, err
		}
		return json.Marshal(append(messages, msg))
	})
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// ListKeys は保存済みの全会話キーを返す。
func (r *KVMessageRepo) ListKeys(ctx context.Context) ([]string, error) {
	keys, err := r.store.Keys(ctx, ChatKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return keys, nil
}

func decodeMessages(raw []byte) ([]model.Message, error) {
	messages := make([]model.Message, 0)
	if len(raw) == 0 {
		return messages, nil
	}
	if err := json.Unmarshal(raw, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}
	return messages, nil
}

// compile-time interface check
var _ MessageRepository = (*KVMessageRepo)(nil)
