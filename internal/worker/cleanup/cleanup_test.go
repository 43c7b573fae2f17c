package cleanup

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeResult struct {
	rowsAffected int64
}

func (r *fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r *fakeResult) RowsAffected() (int64, error) { return r.rowsAffected, nil }

// mockExecutor はExecutorのモック実装。呼び出し回数とクエリを記録する。
type mockExecutor struct {
	mu     sync.Mutex
	calls  int
	query  string
	args   []interface{}
	result sql.Result
	err    error
}

func (m *mockExecutor) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.query = query
	m.args = args
	return m.result, m.err
}

func (m *mockExecutor) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockRecorder struct {
	swept []int64
}

func (m *mockRecorder) RecordSessionsSwept(count int64) {
	m.swept = append(m.swept, count)
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// findLogField はJSONログの各行からkeyを持つ最初の値を返す。
func findLogField(buf *bytes.Buffer, key string) (interface{}, bool) {
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if v, ok := entry[key]; ok {
			return v, true
		}
	}
	return nil, false
}

func TestNewCleanupJob_DefaultsToSessionPrefix(t *testing.T) {
	job := NewCleanupJob(&mockExecutor{}, nil, nil)

	if job.KeyPrefix != "session_" {
		t.Errorf("KeyPrefix = %q, want %q", job.KeyPrefix, "session_")
	}
}

func TestCleanupJob_Run_ExecutesDeleteQuery(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{result: &fakeResult{rowsAffected: 5}}
	job := NewCleanupJob(mock, newTestLogger(&buf), nil)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() がエラーを返した: %v", err)
	}

	if mock.callCount() != 1 {
		t.Fatalf("ExecContext calls = %d, want 1", mock.callCount())
	}
	for _, want := range []string{"DELETE FROM kv_entries", "expires_at <= now()"} {
		if !strings.Contains(mock.query, want) {
			t.Errorf("クエリに %q が含まれていない: %s", want, mock.query)
		}
	}
	if len(mock.args) != 1 || mock.args[0] != "session_" {
		t.Errorf("args = %v, want [session_]", mock.args)
	}
}

func TestCleanupJob_Run_CustomPrefix(t *testing.T) {
	var buf bytes.Buffer
	mock := &mockExecutor{result: &fakeResult{}}
	job := NewCleanupJob(mock, newTestLogger(&buf), nil)
	job.KeyPrefix = "tmp_"

	_ = job.Run(context.Background())

	if len(mock.args) != 1 || mock.args[0] != "tmp_" {
		t.Errorf("args = %v, want [tmp_]", mock.args)
	}
}

func TestCleanupJob_Run_RecordsAndLogsDeletedCount(t *testing.T) {
	tests := []int64{0, 42}

	for _, count := range tests {
		var buf bytes.Buffer
		recorder := &mockRecorder{}
		job := NewCleanupJob(&mockExecutor{result: &fakeResult{rowsAffected: count}}, newTestLogger(&buf), recorder)

		if err := job.Run(context.Background()); err != nil {
			t.Fatalf("Run() がエラーを返した: %v", err)
		}

		if len(recorder.swept) != 1 || recorder.swept[0] != count {
			t.Errorf("recorded = %v, want [%d]", recorder.swept, count)
		}
		got, ok := findLogField(&buf, "deleted_count")
		if !ok || got != float64(count) {
			t.Errorf("ログに deleted_count=%d が記録されていない。ログ出力: %s", count, buf.String())
		}
		if _, ok := findLogField(&buf, "duration_ms"); !ok {
			t.Errorf("ログに duration_ms が記録されていない。ログ出力: %s", buf.String())
		}
	}
}

func TestCleanupJob_Run_ReturnsErrorOnDBFailure(t *testing.T) {
	var buf bytes.Buffer
	recorder := &mockRecorder{}
	job := NewCleanupJob(&mockExecutor{err: sql.ErrConnDone}, newTestLogger(&buf), recorder)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("DBエラー時に Run() は nil でないエラーを返すべき")
	}
	if !strings.Contains(err.Error(), "sql: connection is already closed") {
		t.Errorf("エラーメッセージが期待と異なる: %v", err)
	}
	if !strings.Contains(buf.String(), "ERROR") {
		t.Errorf("エラー時にERRORレベルのログが記録されていない。ログ出力: %s", buf.String())
	}
	if len(recorder.swept) != 0 {
		t.Errorf("失敗時は削除件数を記録しない: %v", recorder.swept)
	}
}

func TestCleanupJob_Run_Idempotent_ZeroRows(t *testing.T) {
	job := NewCleanupJob(&mockExecutor{result: &fakeResult{}}, newTestLogger(&bytes.Buffer{}), nil)

	for i := 0; i < 2; i++ {
		if err := job.Run(context.Background()); err != nil {
			t.Fatalf("%d回目の Run() がエラーを返した: %v", i+1, err)
		}
	}
}

func TestCleanupJob_Start_RunsImmediatelyAndStopsOnCancel(t *testing.T) {
	mock := &mockExecutor{result: &fakeResult{}}
	job := NewCleanupJob(mock, newTestLogger(&bytes.Buffer{}), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx, 10*time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for mock.callCount() < 2 {
		select {
		case <-deadline:
			t.Fatalf("ExecContext calls = %d, want >= 2", mock.callCount())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
