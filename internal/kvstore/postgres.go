package kvstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/hitoshi/startupconnect/internal/database"
)

// PostgresStore はPostgreSQLのkv_entriesテーブルを使用したStore実装。
// テーブル定義はdatabase/migrationsで管理する。
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres はPostgreSQLに接続しPostgresStoreを生成する。
// 接続確認はPingで行うこと。
func OpenPostgres(databaseURL string) (*PostgresStore, error) {
	db, err := database.Open(databaseURL)
	if err != nil {
		return nil, err
	}
	return NewPostgresStore(db), nil
}

// NewPostgresStore は既存の接続からPostgresStoreを生成する。
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// DB は内部の接続を返す。クリーンアップジョブ用。
func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

// Get は指定キーの値を取得する。存在しない、または期限切れの場合はnilを返す。
func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv_entries
		 WHERE key = $1 AND (expires_at IS NULL OR expires_at > now())`,
		key,
	).Scan(&value)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key %q: %w", key, err)
	}
	return value, nil
}

// Set は値をUPSERTする。
func (s *PostgresStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv_entries (key, value, expires_at, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (key) DO UPDATE
		 SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at, updated_at = now()`,
		key, value, expiresAt(ttl),
	)
	if err != nil {
		return fmt.Errorf("failed to set key %q: %w", key, err)
	}
	return nil
}

// Delete は指定キーを削除する。
func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("failed to delete key %q: %w", key, err)
	}
	return nil
}

// Update はトランザクション内でキー単位のアドバイザリロックを取得してから
// 読み取り・変更・書き込みを行う。
// 行が存在しない場合もロック対象になるため、初回作成の競合でも書き込みは失われない。
func (s *PostgresStore) Update(ctx context.Context, key string, fn UpdateFunc) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 1. キー単位の排他ロック（トランザクション終了で解放）
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		return fmt.Errorf("failed to lock key %q: %w", key, err)
	}

	// 2. 現在値の取得
	var (
		current   []byte
		expiresAt sql.NullTime
	)
	err = tx.QueryRowContext(ctx,
		`SELECT value, expires_at FROM kv_entries
		 WHERE key = $1 AND (expires_at IS NULL OR expires_at > now())`,
		key,
	).Scan(&current, &expiresAt)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to read key %q: %w", key, err)
	}

	// 3. 変更
	next, err := fn(current)
	if err != nil {
		return err
	}

	// 4. 書き込み（有効期限は維持）
	var exp any
	if expiresAt.Valid {
		exp = expiresAt.Time
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO kv_entries (key, value, expires_at, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (key) DO UPDATE
		 SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at, updated_at = now()`,
		key, next, exp,
	)
	if err != nil {
		return fmt.Errorf("failed to write key %q: %w", key, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Keys は指定プレフィックスを持つ有効なキーをバイト順で返す。
// データベースの照合順序に依存しないようCOLLATE "C"で並べる。
func (s *PostgresStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM kv_entries
		 WHERE key LIKE $1 ESCAPE '\' AND (expires_at IS NULL OR expires_at > now())
		 ORDER BY key COLLATE "C"`,
		escapeLike(prefix)+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate keys: %w", err)
	}
	return keys, nil
}

// Ping はデータベースへの疎通を確認する。
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close は接続を閉じる。
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// escapeLike はLIKEパターンのメタ文字をエスケープする。
// キー体系では "_" を区切りに使うため必須。
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func expiresAt(ttl time.Duration) any {
	if ttl <= 0 {
		return nil
	}
	return time.Now().Add(ttl)
}

// compile-time interface check
var _ Store = (*PostgresStore)(nil)
