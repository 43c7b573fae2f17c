package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hitoshi/startupconnect/internal/kvstore"
	"github.com/hitoshi/startupconnect/internal/model"
)

// KVIdentityRepo はusersキーに保存したJSON配列を使用するIdentityリポジトリ。
type KVIdentityRepo struct {
	store kvstore.Store
}

// NewKVIdentityRepo はKVIdentityRepoを生成する。
func NewKVIdentityRepo(store kvstore.Store) *KVIdentityRepo {
	return &KVIdentityRepo{store: store}
}

// List は登録順に全Identityを返す。
func (r *KVIdentityRepo) List(ctx context.Context) ([]*model.Identity, error) {
	raw, err := r.store.Get(ctx, UsersKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	return decodeIdentities(raw)
}

// FindByID は指定IDのIdentityを取得する。見つからない場合はnilを返す。
func (r *KVIdentityRepo) FindByID(ctx context.Context, id string) (*model.Identity, error) {
	identities, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, ident := range identities {
		if ident.ID == id {
			return ident, nil
		}
	}
	return nil, nil
}

// FindByEmail はメールアドレスでIdentityを検索する。見つからない場合はnilを返す。
func (r *KVIdentityRepo) FindByEmail(ctx context.Context, email string) (*model.Identity, error) {
	identities, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, ident := range identities {
		if ident.Email == email {
			return ident, nil
		}
	}
	return nil, nil
}

// Create はメールアドレスの重複を確認したうえでIdentityを追加する。
// 確認と追加は同一のUpdate内で行うため、同時登録でも重複は作られない。
func (r *KVIdentityRepo) Create(ctx context.Context, identity *model.Identity) error {
	err := r.store.Update(ctx, UsersKey, func(current []byte) ([]byte, error) {
		identities, err := decodeIdentities(current)
		if err != nil {
			return nil, err
		}
		for _, ident := range identities {
			if ident.Email == identity.Email {
				return nil, ErrDuplicateEmail
			}
		}
		return json.Marshal(append(identities, identity))
	})
	if errors.Is(err, ErrDuplicateEmail) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to create identity: %w", err)
	}
	return nil
}

func decodeIdentities(raw []byte) ([]*model.Identity, error) {
	identities := make([]*model.Identity, 0)
	if len(raw) == 0 {
		return identities, nil
	}
	if err := json.Unmarshal(raw, &identities); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return identities, nil
}

// compile-time interface check
var _ IdentityRepository = (*KVIdentityRepo)(nil)
