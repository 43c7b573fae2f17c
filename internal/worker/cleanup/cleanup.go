// Package cleanup は期限切れセッションの定期削除ジョブを提供する。
// PostgreSQLバックエンドでは期限切れ行が読み取り時に無視されるだけで残り続けるため、
// kv_entriesから定期的に物理削除する。RedisとBadgerはTTLで自動削除される。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/startupconnect/internal/repository"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// SweepRecorder は削除件数の記録先。metrics.MetricsCollectorの部分集合。
type SweepRecorder interface {
	RecordSessionsSwept(count int64)
}

// CleanupJob は期限切れセッションの削除ジョブ。
// 削除対象がない場合も成功とし、何度実行しても結果は変わらない。
type CleanupJob struct {
	db        Executor
	logger    *slog.Logger
	recorder  SweepRecorder
	KeyPrefix string // 削除対象のキープレフィックス（デフォルト: session_）
}

// NewCleanupJob は新しいCleanupJobを生成する。recorderはnilでもよい。
func NewCleanupJob(db Executor, logger *slog.Logger, recorder SweepRecorder) *CleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanupJob{
		db:        db,
		logger:    logger,
		recorder:  recorder,
		KeyPrefix: repository.SessionKeyPrefix,
	}
}

// Run はexpires_atを過ぎたKeyPrefixのエントリを削除する。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	query := `DELETE FROM kv_entries
		 WHERE expires_at IS NOT NULL
		   AND expires_at <= now()
		   AND left(key, length($1)) = $1`
	result, err := j.db.ExecContext(ctx, query, j.KeyPrefix)
	if err != nil {
		j.logger.Error("期限切れセッションの削除に失敗しました",
			slog.String("error", err.Error()),
			slog.String("key_prefix", j.KeyPrefix),
		)
		return fmt.Errorf("failed to sweep expired sessions: %w", err)
	}

	deletedCount, err := result.RowsAffected()
	if err != nil {
		j.logger.Error("削除件数の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to read deleted count: %w", err)
	}

	if j.recorder != nil {
		j.recorder.RecordSessionsSwept(deletedCount)
	}

	j.logger.Info("期限切れセッションの削除が完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.String("key_prefix", j.KeyPrefix),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}

// Start は起動直後に1回、その後intervalごとにRunを実行する。
// ctxがキャンセルされるまでブロックする。個々の実行の失敗では停止しない。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	_ = j.Run(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}
