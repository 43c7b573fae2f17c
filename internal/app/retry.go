package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	// initialBackoff は接続リトライの初回遅延。
	initialBackoff = 500 * time.Millisecond
	// maxBackoff は接続リトライの最大遅延。
	maxBackoff = 8 * time.Second
	// maxPingAttempts はストアへの疎通確認の最大試行回数。
	maxPingAttempts = 6
)

// pinger はストアの疎通確認に必要なインターフェース。
type pinger interface {
	Ping(ctx context.Context) error
}

// calculateBackoff は失敗回数に基づいて指数バックオフ遅延を計算する。
// 初回500ms、2倍ずつ増加、最大8秒。
func calculateBackoff(failures int) time.Duration {
	delay := initialBackoff
	for i := 0; i < failures; i++ {
		delay *= 2
		if delay > maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

// pingWithRetry はストアが応答するまで指数バックオフで疎通確認を繰り返す。
// コンテナ起動直後のデータベースを待つために使う。
func pingWithRetry(ctx context.Context, p pinger, attempts int, sleep func(time.Duration)) error {
	var err error
	for i := 0; i < attempts; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = p.Ping(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if i == attempts-1 {
			break
		}

		delay := calculateBackoff(i)
		slog.Warn("store not reachable, retrying",
			slog.Int("attempt", i+1),
			slog.Duration("retry_in", delay),
			slog.String("error", err.Error()),
		)
		sleep(delay)
	}
	return fmt.Errorf("store not reachable after %d attempts: %w", attempts, err)
}
