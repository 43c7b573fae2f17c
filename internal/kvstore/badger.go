package kvstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStore は組み込みKVデータベースBadgerを使用したStore実装。
// 単一プロセスからローカルディレクトリに保存する。
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger は指定ディレクトリのBadgerデータベースを開く。
// dirが空の場合はインメモリモードで開く。
func OpenBadger(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// Get は指定キーの値を取得する。存在しない、または期限切れの場合はnilを返す。
func (s *BadgerStore) Get(_ context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key %q: %w", key, err)
	}
	return value, nil
}

// Set は値を保存する。ttlが0の場合は期限なし。
func (s *BadgerStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("failed to set key %q: %w", key, err)
	}
	return nil
}

// Delete は指定キーを削除する。
func (s *BadgerStore) Delete(_ context.Context, key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("failed to delete key %q: %w", key, err)
	}
	return nil
}

// Update は読み書きトランザクション内で読み取り・変更・書き込みを行う。
// Badgerの楽観的並行制御で衝突した場合（ErrConflict）は再試行する。
func (s *BadgerStore) Update(ctx context.Context, key string, fn UpdateFunc) error {
	k := []byte(key)

	for i := 0; i < maxUpdateRetries; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := s.db.Update(func(txn *badger.Txn) error {
			var (
				current   []byte
				expiresAt uint64
			)
			item, err := txn.Get(k)
			switch {
			case errors.Is(err, badger.ErrKeyNotFound):
			case err != nil:
				return fmt.Errorf("failed to read key %q: %w", key, err)
			default:
				current, err = item.ValueCopy(nil)
				if err != nil {
					return fmt.Errorf("failed to copy value of %q: %w", key, err)
				}
				expiresAt = item.ExpiresAt()
			}

			next, err := fn(current)
			if err != nil {
				return err
			}

			entry := badger.NewEntry(k, next)
			if expiresAt > 0 {
				remaining := time.Until(time.Unix(int64(expiresAt), 0))
				if remaining > 0 {
					entry = entry.WithTTL(remaining)
				}
			}
			return txn.SetEntry(entry)
		})
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		return err
	}
	return fmt.Errorf("failed to update key %q: too many concurrent writers", key)
}

// Keys はプレフィックス走査で有効なキーを昇順で返す。
func (s *BadgerStore) Keys(_ context.Context, prefix string) ([]string, error) {
	keys := make([]string, 0)
	p := []byte(prefix)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Ping はデータベースが開いているかを確認する。
func (s *BadgerStore) Ping(_ context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger database is closed")
	}
	return nil
}

// Close はデータベースを閉じる。
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// compile-time interface check
var _ Store = (*BadgerStore)(nil)
