package kvstore

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"sync"
	"testing"
)

// runStoreContract は全バックエンド共通の振る舞いを検証する。
func runStoreContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("存在しないキーはnil", func(t *testing.T) {
		got, err := store.Get(ctx, "missing")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != nil {
			t.Errorf("Get(missing) = %q, want nil", got)
		}
	})

	t.Run("SetとGet", func(t *testing.T) {
		if err := store.Set(ctx, "users", []byte(`[]`), 0); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		got, err := store.Get(ctx, "users")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(got) != `[]` {
			t.Errorf("Get(users) = %q, want %q", got, `[]`)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := store.Set(ctx, "session_x", []byte(`{}`), 0); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		if err := store.Delete(ctx, "session_x"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		got, _ := store.Get(ctx, "session_x")
		if got != nil {
			t.Errorf("削除後もキーが残っています: %q", got)
		}
		// 存在しないキーの削除はエラーにならない
		if err := store.Delete(ctx, "session_x"); err != nil {
			t.Errorf("Delete(missing) returned error: %v", err)
		}
	})

	t.Run("Updateは現在値を受け取る", func(t *testing.T) {
		var seen []byte
		err := store.Update(ctx, "counter", func(current []byte) ([]byte, error) {
			seen = current
			return []byte("1"), nil
		})
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if seen != nil {
			t.Errorf("初回Updateの現在値 = %q, want nil", seen)
		}
		err = store.Update(ctx, "counter", func(current []byte) ([]byte, error) {
			seen = current
			return []byte("2"), nil
		})
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if string(seen) != "1" {
			t.Errorf("2回目Updateの現在値 = %q, want %q", seen, "1")
		}
	})

	t.Run("Updateのエラー時は書き込まない", func(t *testing.T) {
		sentinel := errors.New("reject")
		if err := store.Set(ctx, "guarded", []byte("keep"), 0); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		err := store.Update(ctx, "guarded", func(current []byte) ([]byte, error) {
			return nil, sentinel
		})
		if !errors.Is(err, sentinel) {
			t.Fatalf("Update error = %v, want sentinel", err)
		}
		got, _ := store.Get(ctx, "guarded")
		if string(got) != "keep" {
			t.Errorf("値が変更されています: %q", got)
		}
	})

	t.Run("同時Updateで書き込みが失われない", func(t *testing.T) {
		const writers = 20
		var wg sync.WaitGroup
		errs := make(chan error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- store.Update(ctx, "concurrent", func(current []byte) ([]byte, error) {
					n := 0
					if current != nil {
						var err error
						n, err = strconv.Atoi(string(current))
						if err != nil {
							return nil, err
						}
					}
					return []byte(strconv.Itoa(n + 1)), nil
				})
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Fatalf("Update failed: %v", err)
			}
		}
		got, _ := store.Get(ctx, "concurrent")
		if string(got) != strconv.Itoa(writers) {
			t.Errorf("concurrent = %q, want %d", got, writers)
		}
	})

	t.Run("Keysはプレフィックスで絞り込み昇順で返す", func(t *testing.T) {
		for _, k := range []string{"chat_b_c", "chat_a_b", "chatter", "session_1"} {
			if err := store.Set(ctx, k, []byte("[]"), 0); err != nil {
				t.Fatalf("Set(%s) failed: %v", k, err)
			}
		}
		keys, err := store.Keys(ctx, "chat_")
		if err != nil {
			t.Fatalf("Keys failed: %v", err)
		}
		want := []string{"chat_a_b", "chat_b_c"}
		if len(keys) != len(want) {
			t.Fatalf("Keys = %v, want %v", keys, want)
		}
		for i := range want {
			if keys[i] != want[i] {
				t.Errorf("Keys[%d] = %q, want %q", i, keys[i], want[i])
			}
		}
	})

	t.Run("Keysは大文字小文字と記号をバイト順で並べる", func(t *testing.T) {
		inserted := []string{"order_b", "order_B", "order_-z", "order_a_1", "order_A", "order_a-2"}
		for _, k := range inserted {
			if err := store.Set(ctx, k, []byte("1"), 0); err != nil {
				t.Fatalf("Set(%s) failed: %v", k, err)
			}
		}
		keys, err := store.Keys(ctx, "order_")
		if err != nil {
			t.Fatalf("Keys failed: %v", err)
		}
		want := []string{"order_-z", "order_A", "order_B", "order_a-2", "order_a_1", "order_b"}
		if !slices.Equal(keys, want) {
			t.Errorf("Keys = %v, want %v", keys, want)
		}
	})

	t.Run("Ping", func(t *testing.T) {
		if err := store.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})
}
